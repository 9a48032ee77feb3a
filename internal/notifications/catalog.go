package notifications

import (
	"fmt"
	"sort"
	"strings"
)

// MessageKind identifies a translatable message.
type MessageKind string

// Message kinds. Values double as configuration keys.
const (
	MessageListeningOn         MessageKind = "LISTENING_ON"
	MessageChecking            MessageKind = "CHECKING"
	MessageNewIncident         MessageKind = "NEW_INCIDENT"
	MessageNewIncidentUpdate   MessageKind = "NEW_INCIDENT_UPDATE"
	MessageNewIncidentMessage  MessageKind = "NEW_INCIDENT_MESSAGE"
	MessageFailedToCheck       MessageKind = "FAILED_TO_CHECK"
	MessageWaitingForNextCheck MessageKind = "WAITING_FOR_NEXT_CHECK"
	MessageFailedToEdit        MessageKind = "FAILED_TO_EDIT"
	MessageFailedToSend        MessageKind = "FAILED_TO_SEND"
	MessageImpact              MessageKind = "IMPACT"
	MessageAffectedComponents  MessageKind = "AFFECTED_COMPONENTS"
	MessageScheduled           MessageKind = "SCHEDULED"
)

var defaultMessages = map[MessageKind]string{
	MessageListeningOn:         "Listening on {{URL}}",
	MessageChecking:            "Checking {{NAME}} for new incidents",
	MessageNewIncident:         "New {{NAME}} incident found: {{ID}}",
	MessageNewIncidentUpdate:   "New update found for {{NAME}} incident {{ID}}",
	MessageNewIncidentMessage:  "Posted message {{MID}} for {{NAME}} incident {{ID}}",
	MessageFailedToCheck:       "Failed to check {{NAME}} for incidents",
	MessageWaitingForNextCheck: "Waiting for the next check",
	MessageFailedToEdit:        "Failed to edit message {{MID}} for {{NAME}} incident {{ID}}",
	MessageFailedToSend:        "Failed to send message for {{NAME}} incident {{ID}}",
	MessageImpact:              "Impact",
	MessageAffectedComponents:  "Affected Components",
	MessageScheduled:           "Scheduled",
}

// Params holds placeholder values.
type Params struct {
	URL  string // {{URL}}
	Name string // {{NAME}}
	ID   string // {{ID}}
	MID  string // {{MID}}
}

// Catalog formats messages from templates with placeholder tokens.
type Catalog struct {
	messages map[MessageKind]string
}

// NewCatalog creates a catalog with English defaults replaced by overrides.
// Override keys must name a known message kind.
func NewCatalog(overrides map[string]string) (*Catalog, error) {
	messages := make(map[MessageKind]string, len(defaultMessages))
	for k, v := range defaultMessages {
		messages[k] = v
	}

	var unknown []string
	for key, value := range overrides {
		kind := MessageKind(strings.ToUpper(key))
		if _, ok := defaultMessages[kind]; !ok {
			unknown = append(unknown, key)
			continue
		}
		messages[kind] = value
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown translation keys: %s", strings.Join(unknown, ", "))
	}

	return &Catalog{messages: messages}, nil
}

// DefaultCatalog returns the English catalog.
func DefaultCatalog() *Catalog {
	c, _ := NewCatalog(nil)
	return c
}

// Format renders a message, substituting placeholders from params.
func (c *Catalog) Format(kind MessageKind, params Params) string {
	tmpl, ok := c.messages[kind]
	if !ok {
		return string(kind)
	}

	return strings.NewReplacer(
		"{{URL}}", params.URL,
		"{{NAME}}", params.Name,
		"{{ID}}", params.ID,
		"{{MID}}", params.MID,
	).Replace(tmpl)
}

// Text returns a message that has no placeholders.
func (c *Catalog) Text(kind MessageKind) string {
	return c.Format(kind, Params{})
}
