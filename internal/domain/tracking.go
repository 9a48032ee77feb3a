package domain

import "time"

// FeedKind identifies one of the provider feeds.
type FeedKind string

// Feed kinds.
const (
	FeedIncidents   FeedKind = "incidents"
	FeedMaintenance FeedKind = "scheduled-maintenances"
)

// FeedKinds lists every feed in check order.
var FeedKinds = []FeedKind{FeedIncidents, FeedMaintenance}

// IsValid checks if the feed kind is known.
func (k FeedKind) IsValid() bool {
	return k == FeedIncidents || k == FeedMaintenance
}

// TrackedIncident records an announced incident and the message that announced it.
// JSON names match the persisted store format.
type TrackedIncident struct {
	IncidentID string    `json:"incidentId"`
	LastUpdate time.Time `json:"lastUpdate"`
	MessageID  string    `json:"messageId"`
	Resolved   bool      `json:"resolved"`
}
