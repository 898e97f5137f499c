package types

import "time"

// Priority is the queue band of a waiting chat
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
)

// AllPriorities lists the bands from most to least urgent
var AllPriorities = []Priority{PriorityUrgent, PriorityHigh, PriorityNormal}

// Rank orders priorities; lower ranks are served first
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	default:
		return 2
	}
}

// Valid reports whether p is a known band
func (p Priority) Valid() bool {
	return p == PriorityUrgent || p == PriorityHigh || p == PriorityNormal
}

// QueueItem is a chat waiting for an attendant
type QueueItem struct {
	ID             string    `json:"id"`
	ChatID         string    `json:"chatId"`
	Priority       Priority  `json:"priority"`
	RequiredSkills []string  `json:"requiredSkills,omitempty"`
	EnqueueTime    time.Time `json:"enqueueTime"`
	Contact        string    `json:"contact,omitempty"`
	Preview        string    `json:"preview,omitempty"` // first inbound message text
	Requeued       bool      `json:"requeued,omitempty"`
	Seq            uint64    `json:"-"`
}

// WaitTime is derived from the enqueue time, never stored
func (q *QueueItem) WaitTime(now time.Time) time.Duration {
	return now.Sub(q.EnqueueTime)
}

// Clone returns a copy with its own skill slice
func (q *QueueItem) Clone() QueueItem {
	c := *q
	c.RequiredSkills = append([]string(nil), q.RequiredSkills...)
	return c
}

// ActiveChat is a chat owned by exactly one attendant
type ActiveChat struct {
	ChatID         string    `json:"chatId"`
	AttendantID    string    `json:"attendantId"`
	StartTime      time.Time `json:"startTime"`
	Priority       Priority  `json:"priority"`
	RequiredSkills []string  `json:"requiredSkills,omitempty"`
	EnqueueTime    time.Time `json:"enqueueTime"`
	Contact        string    `json:"contact,omitempty"`
	Transfers      int       `json:"transfers"`
}

// Clone returns a copy with its own skill slice
func (c *ActiveChat) Clone() ActiveChat {
	out := *c
	out.RequiredSkills = append([]string(nil), c.RequiredSkills...)
	return out
}

// Assignment is the result of a successful auto-assignment
type Assignment struct {
	ChatID      string `json:"chatId"`
	AttendantID string `json:"attendantId"`
	QueueItemID string `json:"queueItemId"`
}

// EndedChat is returned when an active chat is closed
type EndedChat struct {
	ChatID      string    `json:"chatId"`
	AttendantID string    `json:"attendantId"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	DurationMs  int64     `json:"durationMs"`
}

// ReallocationResult describes what happened to one chat during reallocation
type ReallocationResult string

const (
	ReallocationTransferred ReallocationResult = "transferred"
	ReallocationRequeued    ReallocationResult = "returned_to_queue"
)

// ReallocationOutcome reports the fate of a chat taken from an attendant
type ReallocationOutcome struct {
	ChatID        string             `json:"chatId"`
	Result        ReallocationResult `json:"result"`
	ToAttendantID string             `json:"toAttendantId,omitempty"`
	QueueItemID   string             `json:"queueItemId,omitempty"`
}
