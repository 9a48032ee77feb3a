// Package notifications renders incidents into webhook messages and sends them.
package notifications

import (
	"context"
	"time"
)

// Notification is a rendered webhook message carrying a single embed.
type Notification struct {
	Title       string
	Description string
	URL         string
	Color       int
	Timestamp   time.Time
	Footer      string
	Fields      []Field
}

// Field is one titled section of a notification.
type Field struct {
	Name  string
	Value string
}

// MessageSender posts new messages and edits existing ones.
// Both operations return the id of the resulting message.
type MessageSender interface {
	Send(ctx context.Context, notification Notification) (string, error)
	Edit(ctx context.Context, messageID string, notification Notification) (string, error)
}
