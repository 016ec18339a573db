// Package content defines the content change events shared between instances.
package content

import "time"

// EventTypeContentChanged is the event type of ContentChangedEvent.
const EventTypeContentChanged = "content.changed"

// Actions carried by ContentChangedEvent.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// ContentChangedEvent is published after every successful content write.
type ContentChangedEvent struct {
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EventTime     time.Time `json:"event_time"`
	SchemaVersion string    `json:"schema_version"`

	// Source identifies the instance that made the change.
	Source     string `json:"source"`
	Collection string `json:"collection"`
	Key        string `json:"key"`
	Action     string `json:"action"`
}
