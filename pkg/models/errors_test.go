package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatching(t *testing.T) {
	err := NewError(CodeUnauthorized, "set_slippage", "caller %s is not the owner", "bob")

	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "set_slippage: Unauthorized: caller bob is not the owner", err.Error())

	wrapped := fmt.Errorf("update failed: %w", err)
	assert.ErrorIs(t, wrapped, ErrUnauthorized)
	assert.Equal(t, CodeUnauthorized, CodeOf(wrapped))
}

func TestWrapErrorKeepsCause(t *testing.T) {
	cause := errors.New("execution reverted")
	err := WrapError(CodeBurnFailed, "execute_intent_with_burn", cause)

	assert.ErrorIs(t, err, ErrBurnFailed)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "execute_intent_with_burn: BurnFailed: execution reverted", err.Error())
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, ErrorCode(0), CodeOf(errors.New("boom")))
	assert.Equal(t, "InvalidIntentId", CodeInvalidIntentID.String())
	assert.Equal(t, "ErrorCode(99)", ErrorCode(99).String())
}
