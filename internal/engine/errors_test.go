package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuleError_Format(t *testing.T) {
	err := NewRuleNotFoundError("r1")
	assert.Equal(t, "RULE_NOT_FOUND: no rule with this id (rule=r1)", err.Error())

	err = NewInvalidRuleError("", errors.New("sourceObjectId is required"))
	assert.Equal(t, "INVALID_RULE: rule failed validation: sourceObjectId is required", err.Error())

	err = NewUnknownHandlerError("r2", "confeti", []string{"confetti"})
	assert.Equal(t, `UNKNOWN_HANDLER: custom handler "confeti" is not registered (rule=r2) (did you mean: confetti?)`, err.Error())
}

func TestRuleError_WrappedHelpers(t *testing.T) {
	wrapped := fmt.Errorf("import: %w", NewDuplicateIDError("r1"))

	assert.True(t, IsDuplicateID(wrapped))
	assert.False(t, IsInvalidRule(wrapped))
	assert.False(t, IsRuleNotFound(wrapped))

	notFound := fmt.Errorf("timer: %w", NewRuleNotFoundError("r1"))
	assert.True(t, IsRuleNotFound(notFound))
	assert.ErrorIs(t, notFound, ErrRuleNotFound)
	assert.False(t, IsRuleNotFound(nil))
}
