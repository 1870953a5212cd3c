package engine

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/agnivade/levenshtein"

	"github.com/roach88/blocktrigger/internal/ir"
)

// HandlerFunc implements a custom action. It receives the StateContext
// active for the tick, the rule's target object id (possibly empty) and
// the action's opaque data (nil when absent).
type HandlerFunc func(ctx context.Context, sc StateContext, targetObjectID string, data ir.Value) error

// maxSuggestionDistance bounds the edit distance for "did you mean" hints.
const maxSuggestionDistance = 2

// RegisterHandler adds a named custom action handler. Rules may only
// reference registered names.
func (e *Engine) RegisterHandler(name string, h HandlerFunc) error {
	if name == "" {
		return fmt.Errorf("register handler: name is required")
	}
	if h == nil {
		return fmt.Errorf("register handler %q: handler is nil", name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.handlers[name]; exists {
		return fmt.Errorf("register handler %q: %w", name, ErrDuplicateHandler)
	}
	e.handlers[name] = h
	return nil
}

// UnregisterHandler removes a handler. Rules that still reference it fail
// at dispatch with ErrUnknownHandler.
func (e *Engine) UnregisterHandler(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.handlers[name]; !exists {
		return false
	}
	delete(e.handlers, name)
	return true
}

// Handlers returns the registered handler names, sorted.
func (e *Engine) Handlers() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handlerNamesLocked()
}

func (e *Engine) handlerNamesLocked() []string {
	names := make([]string, 0, len(e.handlers))
	for name := range e.handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// checkHandlerLocked rejects a custom action whose handler is unknown.
// Caller must hold e.mu.
func (e *Engine) checkHandlerLocked(rule ir.TriggerRule) error {
	custom, ok := rule.TargetAction.(ir.Custom)
	if !ok {
		return nil
	}
	if _, exists := e.handlers[custom.Handler]; exists {
		return nil
	}
	return NewUnknownHandlerError(rule.ID, custom.Handler, suggestHandlers(custom.Handler, e.handlerNamesLocked()))
}

// suggestHandlers returns up to three known names within
// maxSuggestionDistance edits of name, closest first.
func suggestHandlers(name string, known []string) []string {
	type candidate struct {
		name string
		dist int
	}

	var candidates []candidate
	for _, k := range known {
		if d := levenshtein.ComputeDistance(name, k); d <= maxSuggestionDistance {
			candidates = append(candidates, candidate{name: k, dist: d})
		}
	}
	slices.SortFunc(candidates, func(a, b candidate) int {
		if c := cmp.Compare(a.dist, b.dist); c != 0 {
			return c
		}
		return cmp.Compare(a.name, b.name)
	})

	var out []string
	for i := 0; i < len(candidates) && i < 3; i++ {
		out = append(out, candidates[i].name)
	}
	return out
}

// callHandler runs a custom handler, converting a panic into an error.
func callHandler(ctx context.Context, name string, h HandlerFunc, sc StateContext, target string, data ir.Value) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("custom handler %q panicked: %v", name, r)
		}
	}()
	return h(ctx, sc, target, ir.CloneValue(data))
}
