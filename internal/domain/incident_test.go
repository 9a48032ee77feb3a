package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncidentStatus_IsResolved(t *testing.T) {
	tests := []struct {
		status   IncidentStatus
		expected bool
	}{
		{IncidentStatusInvestigating, false},
		{IncidentStatusIdentified, false},
		{IncidentStatusMonitoring, false},
		{IncidentStatusResolved, true},
		{IncidentStatusPostmortem, true},
		{IncidentStatusScheduled, false},
		{IncidentStatusInProgress, false},
		{IncidentStatusVerifying, false},
		{IncidentStatusCompleted, true},
		{IncidentStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.IsResolved())
		})
	}
}

func TestRemoteIncident_LastChanged(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	t.Run("prefers updated_at", func(t *testing.T) {
		inc := RemoteIncident{CreatedAt: created, UpdatedAt: &updated}
		assert.Equal(t, updated, inc.LastChanged())
	})

	t.Run("falls back to created_at", func(t *testing.T) {
		inc := RemoteIncident{CreatedAt: created}
		assert.Equal(t, created, inc.LastChanged())
	})
}

func TestRemoteIncident_StartTime(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	scheduled := created.Add(24 * time.Hour)
	started := created.Add(25 * time.Hour)

	assert.Equal(t, started, RemoteIncident{CreatedAt: created, ScheduledFor: &scheduled, StartedAt: &started}.StartTime())
	assert.Equal(t, scheduled, RemoteIncident{CreatedAt: created, ScheduledFor: &scheduled}.StartTime())
	assert.Equal(t, created, RemoteIncident{CreatedAt: created}.StartTime())
}

func TestRemoteIncident_DecodeProviderPayload(t *testing.T) {
	raw := `{
		"id": "p31zjtct2jer",
		"name": "Elevated API error rates",
		"status": "monitoring",
		"impact": "major",
		"shortlink": "https://stspg.io/p31zjtct2jer",
		"created_at": "2024-03-01T10:00:00.123Z",
		"updated_at": null,
		"started_at": "2024-03-01T09:58:00.000-05:00",
		"components": [{"id": "c1", "name": "API", "status": "partial_outage"}],
		"incident_updates": [
			{"id": "u2", "status": "monitoring", "body": "Fix deployed.", "created_at": "2024-03-01T11:00:00Z"},
			{"id": "u1", "status": "investigating", "body": "Looking into it.", "created_at": "2024-03-01T10:00:00Z"}
		]
	}`

	var inc RemoteIncident
	require.NoError(t, json.Unmarshal([]byte(raw), &inc))

	assert.Equal(t, "p31zjtct2jer", inc.ID)
	assert.Equal(t, IncidentStatusMonitoring, inc.Status)
	assert.Equal(t, ImpactMajor, inc.Impact)
	assert.Nil(t, inc.UpdatedAt)
	require.NotNil(t, inc.StartedAt)
	assert.Equal(t, inc.CreatedAt, inc.LastChanged())
	require.Len(t, inc.Components, 1)
	assert.Equal(t, "API", inc.Components[0].Name)
	require.Len(t, inc.IncidentUpdates, 2)
	assert.Equal(t, "u2", inc.IncidentUpdates[0].ID)
}

func TestFeedKind_IsValid(t *testing.T) {
	assert.True(t, FeedIncidents.IsValid())
	assert.True(t, FeedMaintenance.IsValid())
	assert.False(t, FeedKind("components").IsValid())
}

func TestTrackedIncident_JSONFieldNames(t *testing.T) {
	ti := TrackedIncident{
		IncidentID: "abc",
		LastUpdate: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		MessageID:  "123",
		Resolved:   true,
	}

	data, err := json.Marshal(ti)
	require.NoError(t, err)

	assert.JSONEq(t, `{"incidentId":"abc","lastUpdate":"2024-03-01T10:00:00Z","messageId":"123","resolved":true}`, string(data))
}
