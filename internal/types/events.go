package types

import "time"

// EventType names an engine state change
type EventType string

const (
	EventAttendantRegistered EventType = "attendant.registered"
	EventAttendantStatus     EventType = "attendant.status_changed"
	EventChatEnqueued        EventType = "chat.enqueued"
	EventChatAssigned        EventType = "chat.assigned"
	EventChatTransferred     EventType = "chat.transferred"
	EventChatEnded           EventType = "chat.ended"
	EventChatRequeued        EventType = "chat.requeued"
	EventChatRemoved         EventType = "chat.removed"
	EventChatAbandoned       EventType = "chat.abandoned"
	EventChatReprioritized   EventType = "chat.reprioritized"
)

// Event is an outbox entry returned by every mutating engine call.
// The caller dispatches it after the state change has been committed.
type Event struct {
	Type            EventType       `json:"type"`
	Timestamp       time.Time       `json:"timestamp"`
	ChatID          string          `json:"chatId,omitempty"`
	QueueItemID     string          `json:"queueItemId,omitempty"`
	AttendantID     string          `json:"attendantId,omitempty"`
	AttendantName   string          `json:"attendantName,omitempty"`
	FromAttendantID string          `json:"fromAttendantId,omitempty"`
	Priority        Priority        `json:"priority,omitempty"`
	Contact         string          `json:"contact,omitempty"`
	Reason          string          `json:"reason,omitempty"`
	Status          AttendantStatus `json:"status,omitempty"`
	PreviousStatus  AttendantStatus `json:"previousStatus,omitempty"`
	EnqueueTime     *time.Time      `json:"enqueueTime,omitempty"`
	StartTime       *time.Time      `json:"startTime,omitempty"`
	DurationMs      int64           `json:"durationMs,omitempty"`
	Transfers       int             `json:"transfers,omitempty"`
}

// EventMessage wraps an event for the dashboard websocket
type EventMessage struct {
	Type  string `json:"type"` // "event"
	Event Event  `json:"event"`
}
