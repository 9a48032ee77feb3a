package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalcBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{5, 16 * time.Second},
		{8, 16 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, calcBackoff(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, sleep(ctx, time.Minute))
	assert.True(t, sleep(context.Background(), time.Millisecond))
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := Connect(context.Background(), Config{URL: "://bad"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse database url")
}
