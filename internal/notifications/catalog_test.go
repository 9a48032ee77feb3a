package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Format(t *testing.T) {
	c := DefaultCatalog()

	tests := []struct {
		name     string
		kind     MessageKind
		params   Params
		expected string
	}{
		{
			name:     "listening",
			kind:     MessageListeningOn,
			params:   Params{URL: "https://status.example.com"},
			expected: "Listening on https://status.example.com",
		},
		{
			name:     "new incident",
			kind:     MessageNewIncident,
			params:   Params{Name: "Example", ID: "abc"},
			expected: "New Example incident found: abc",
		},
		{
			name:     "failed to edit",
			kind:     MessageFailedToEdit,
			params:   Params{Name: "Example", ID: "abc", MID: "123"},
			expected: "Failed to edit message 123 for Example incident abc",
		},
		{
			name:     "no placeholders",
			kind:     MessageWaitingForNextCheck,
			expected: "Waiting for the next check",
		},
		{
			name:     "unknown kind falls back to key",
			kind:     MessageKind("NOPE"),
			expected: "NOPE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.Format(tt.kind, tt.params))
		})
	}
}

func TestNewCatalog_Overrides(t *testing.T) {
	c, err := NewCatalog(map[string]string{
		"checking":     "Prüfe {{NAME}}",
		"NEW_INCIDENT": "{{ID}} @ {{NAME}} / {{ID}}",
	})
	require.NoError(t, err)

	assert.Equal(t, "Prüfe Example", c.Format(MessageChecking, Params{Name: "Example"}))
	assert.Equal(t, "abc @ Example / abc", c.Format(MessageNewIncident, Params{Name: "Example", ID: "abc"}))
	assert.Equal(t, "Impact", c.Text(MessageImpact))
}

func TestNewCatalog_UnknownKeys(t *testing.T) {
	_, err := NewCatalog(map[string]string{
		"zeta":     "z",
		"alpha":    "a",
		"CHECKING": "ok",
	})

	require.Error(t, err)
	assert.Equal(t, "unknown translation keys: alpha, zeta", err.Error())
}

func TestDefaultCatalog_CoversAllKinds(t *testing.T) {
	c := DefaultCatalog()
	for kind := range defaultMessages {
		assert.NotEqual(t, string(kind), c.Text(kind), kind)
	}
}
