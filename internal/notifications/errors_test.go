package notifications

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "retryable error",
			err:      NewRetryableError(errors.New("temporary error")),
			expected: true,
		},
		{
			name:     "non-retryable error",
			err:      NewNonRetryableError(errors.New("permanent error")),
			expected: false,
		},
		{
			name:     "wrapped non-retryable error",
			err:      fmt.Errorf("edit message: %w", NewNonRetryableError(errors.New("gone"))),
			expected: false,
		},
		{
			name:     "generic error defaults to retryable",
			err:      errors.New("unknown error"),
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestRetryableError(t *testing.T) {
	originalErr := errors.New("original error")

	err := NewRetryableError(originalErr)
	assert.Equal(t, "original error", err.Error())
	assert.True(t, err.IsRetryable())
	assert.Equal(t, originalErr, errors.Unwrap(err))

	err = NewNonRetryableError(originalErr)
	assert.False(t, err.IsRetryable())
	assert.ErrorIs(t, err, originalErr)
}

func TestRecordNotification(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordNotification(ActionSend, nil, 10*time.Millisecond)
		RecordNotification(ActionEdit, errors.New("boom"), time.Second)
		RecordNotification(ActionEdit, NewNonRetryableError(errors.New("gone")), time.Second)
	})
}
