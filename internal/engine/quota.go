package engine

import (
	"errors"
	"fmt"
)

// DefaultMaxCascade is the default number of events one drain may process.
// This bounds runaway cascades such as two rules that keep sending each
// other's objects back and forth between states.
const DefaultMaxCascade = 10000

// WithMaxCascade sets the per-drain event limit. Zero or a negative value
// disables the limit.
//
// Default: 10000 events (DefaultMaxCascade)
// Use WithMaxCascade(10) for testing cascade enforcement.
func WithMaxCascade(n int) EngineOption {
	return func(e *Engine) {
		e.maxCascade = n
	}
}

// cascadeQuota counts events processed by one drain.
type cascadeQuota struct {
	max     int
	current int
}

func newCascadeQuota(max int) *cascadeQuota {
	return &cascadeQuota{max: max}
}

// Check increments the event counter and validates against the limit.
func (q *cascadeQuota) Check() *CascadeLimitError {
	q.current++
	if q.max > 0 && q.current > q.max {
		return &CascadeLimitError{Events: q.current, Limit: q.max}
	}
	return nil
}

// CascadeLimitError is returned by Emit when a drain exceeds its event
// limit. The drain stops and every event still queued is dropped, so the
// engine is usable again immediately.
type CascadeLimitError struct {
	Events  int // Events dequeued, including the one that tripped the limit
	Limit   int // Configured limit
	Dropped int // Events discarded
}

// Error implements the error interface.
func (e *CascadeLimitError) Error() string {
	return fmt.Sprintf("cascade limit exceeded: %d events > %d limit (%d dropped)",
		e.Events, e.Limit, e.Dropped)
}

// IsCascadeLimitError returns true if the error is a CascadeLimitError.
// Uses errors.As to handle wrapped errors.
func IsCascadeLimitError(err error) bool {
	var ce *CascadeLimitError
	return errors.As(err, &ce)
}
