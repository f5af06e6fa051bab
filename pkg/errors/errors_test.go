package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"validation", Validation("bad %s", "input"), ErrValidation},
		{"not found", NotFound("beta code"), ErrNotFound},
		{"already used", AlreadyUsed("used"), ErrAlreadyUsed},
		{"expired", Expired("late"), ErrExpired},
		{"unauthorized", Unauthorized("who"), ErrUnauthorized},
		{"upstream", Upstream("payments", errors.New("boom")), ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.kind)
			wrapped := fmt.Errorf("redeem: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.kind)
		})
	}
}

func TestUpstreamKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Upstream("storage", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "something went wrong", Message(err, "something went wrong"))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "beta code not found", Message(NotFound("beta code"), "x"))
	assert.Equal(t, "fallback", Message(errors.New("raw"), "fallback"))
	assert.Equal(t, "correct answers exceed total", Message(fmt.Errorf("wrap: %w", Validation("correct answers exceed total")), "x"))
}
