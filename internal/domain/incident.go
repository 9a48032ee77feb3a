// Package domain contains the status page and tracking types shared across packages.
package domain

import "time"

// IncidentStatus represents the provider status of an incident or maintenance.
type IncidentStatus string

// Incident and maintenance statuses reported by the provider.
const (
	IncidentStatusInvestigating IncidentStatus = "investigating"
	IncidentStatusIdentified    IncidentStatus = "identified"
	IncidentStatusMonitoring    IncidentStatus = "monitoring"
	IncidentStatusResolved      IncidentStatus = "resolved"
	IncidentStatusPostmortem    IncidentStatus = "postmortem"
	IncidentStatusScheduled     IncidentStatus = "scheduled"
	IncidentStatusInProgress    IncidentStatus = "in_progress"
	IncidentStatusVerifying     IncidentStatus = "verifying"
	IncidentStatusCompleted     IncidentStatus = "completed"
)

// IsResolved checks if the status closes the incident or maintenance.
func (s IncidentStatus) IsResolved() bool {
	return s == IncidentStatusPostmortem ||
		s == IncidentStatusResolved ||
		s == IncidentStatusCompleted
}

// Impact represents the provider impact level.
type Impact string

// Impact levels.
const (
	ImpactNone        Impact = "none"
	ImpactMinor       Impact = "minor"
	ImpactMajor       Impact = "major"
	ImpactCritical    Impact = "critical"
	ImpactMaintenance Impact = "maintenance"
)

// RemoteIncident is an incident or scheduled maintenance as returned by the provider.
type RemoteIncident struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Status          IncidentStatus   `json:"status"`
	Impact          Impact           `json:"impact"`
	Shortlink       string           `json:"shortlink"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       *time.Time       `json:"updated_at"`
	StartedAt       *time.Time       `json:"started_at"`
	ResolvedAt      *time.Time       `json:"resolved_at"`
	ScheduledFor    *time.Time       `json:"scheduled_for,omitempty"`
	ScheduledUntil  *time.Time       `json:"scheduled_until,omitempty"`
	Components      []Component      `json:"components"`
	IncidentUpdates []IncidentUpdate `json:"incident_updates"`
}

// LastChanged returns updated_at, falling back to created_at.
func (i RemoteIncident) LastChanged() time.Time {
	if i.UpdatedAt != nil {
		return *i.UpdatedAt
	}
	return i.CreatedAt
}

// StartTime returns when the incident started. Maintenances that have not
// started yet report their scheduled start.
func (i RemoteIncident) StartTime() time.Time {
	switch {
	case i.StartedAt != nil:
		return *i.StartedAt
	case i.ScheduledFor != nil:
		return *i.ScheduledFor
	default:
		return i.CreatedAt
	}
}

// Component is a page component affected by an incident.
type Component struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// IncidentUpdate is one entry of an incident's update history.
type IncidentUpdate struct {
	ID        string         `json:"id"`
	Status    IncidentStatus `json:"status"`
	Body      string         `json:"body"`
	CreatedAt time.Time      `json:"created_at"`
	DisplayAt *time.Time     `json:"display_at,omitempty"`
}

// Page is the provider page metadata attached to every feed.
type Page struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	UpdatedAt time.Time `json:"updated_at"`
}
