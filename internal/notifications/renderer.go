package notifications

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bissquit/incident-relay/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Webhook embed limits, counted in runes.
const (
	MaxFields           = 25
	MaxFieldValueRunes  = 1024
	MaxTitleRunes       = 256
	MaxDescriptionRunes = 4096
	MaxEmbedRunes       = 6000
)

// Palette holds the embed colours by severity.
type Palette struct {
	Resolved  int
	Critical  int
	Major     int
	Minor     int
	Scheduled int
	Unknown   int
}

// DefaultPalette returns the built-in colours.
func DefaultPalette() Palette {
	return Palette{
		Resolved:  0x57F287,
		Critical:  0xED4245,
		Major:     0xE67E22,
		Minor:     0xFEE75C,
		Scheduled: 0x3498DB,
		Unknown:   0x95A5A6,
	}
}

// Renderer turns provider incidents into notifications.
type Renderer struct {
	palette Palette
	catalog *Catalog
}

// NewRenderer creates a new renderer.
func NewRenderer(palette Palette, catalog *Catalog) *Renderer {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Renderer{
		palette: palette,
		catalog: catalog,
	}
}

// Render builds the notification for an incident. The input is not modified.
// The text of the embed stays within MaxEmbedRunes.
func (r *Renderer) Render(incident domain.RemoteIncident) Notification {
	n := Notification{
		Title:       truncate(incident.Name, MaxTitleRunes),
		Description: truncate(r.description(incident), MaxDescriptionRunes),
		URL:         incident.Shortlink,
		Color:       r.Color(incident),
		Timestamp:   incident.StartTime(),
		Footer:      fmt.Sprintf("Incident ID: %s", incident.ID),
	}
	budget := MaxEmbedRunes - runeLen(n.Title) - runeLen(n.Description) - runeLen(n.Footer)
	n.Fields = updateFields(incident.IncidentUpdates, budget)
	return n
}

// Color picks the embed colour. The first matching rule wins.
func (r *Renderer) Color(incident domain.RemoteIncident) int {
	switch {
	case incident.Status.IsResolved():
		return r.palette.Resolved
	case incident.Impact == domain.ImpactCritical:
		return r.palette.Critical
	case incident.Impact == domain.ImpactMajor:
		return r.palette.Major
	case incident.Impact == domain.ImpactMinor || incident.Status == domain.IncidentStatusInProgress:
		return r.palette.Minor
	case incident.Status == domain.IncidentStatusScheduled:
		return r.palette.Scheduled
	default:
		return r.palette.Unknown
	}
}

func (r *Renderer) description(incident domain.RemoteIncident) string {
	lines := []string{
		fmt.Sprintf("- **%s**: %s", r.catalog.Text(MessageImpact), incident.Impact),
	}

	if len(incident.Components) > 0 {
		names := make([]string, 0, len(incident.Components))
		for _, c := range incident.Components {
			names = append(names, c.Name)
		}
		lines = append(lines, fmt.Sprintf("- **%s**: %s",
			r.catalog.Text(MessageAffectedComponents), strings.Join(names, ", ")))
	}

	if incident.ScheduledFor != nil && incident.ScheduledUntil != nil {
		lines = append(lines, fmt.Sprintf("- **%s**: %s - %s",
			r.catalog.Text(MessageScheduled),
			discordTime(*incident.ScheduledFor, "f"),
			discordTime(*incident.ScheduledUntil, "f")))
	}

	return strings.Join(lines, "\n")
}

// updateFields lists updates oldest first. Updates arrive newest first; the
// newest are kept while they fit in MaxFields and budget runes.
func updateFields(updates []domain.IncidentUpdate, budget int) []Field {
	fields := make([]Field, 0, min(len(updates), MaxFields))
	for _, u := range updates {
		if len(fields) == MaxFields {
			break
		}
		f := Field{
			Name:  fmt.Sprintf("%s (%s)", startCase(string(u.Status)), discordTime(u.CreatedAt, "R")),
			Value: clip(u.Body, MaxFieldValueRunes),
		}
		size := runeLen(f.Name) + runeLen(f.Value)
		if size > budget {
			break
		}
		budget -= size
		fields = append(fields, f)
	}
	slices.Reverse(fields)
	return fields
}

// startCase turns "in_progress" into "In Progress".
// A Caser is stateful, so each call gets its own.
func startCase(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	return cases.Title(language.English).String(strings.Join(words, " "))
}

// discordTime renders a client-localised timestamp tag.
func discordTime(t time.Time, style string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), style)
}

// clip truncates a field value. Empty values are rejected by the webhook.
func clip(s string, limit int) string {
	if s == "" {
		return "\u200b"
	}
	return truncate(s, limit)
}

func truncate(s string, limit int) string {
	if runeLen(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
