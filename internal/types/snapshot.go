package types

import "time"

// QueueSnapshot summarizes the waiting queue
type QueueSnapshot struct {
	TotalInQueue   int              `json:"totalInQueue"`
	ByPriority     map[Priority]int `json:"byPriority"`
	OldestWaitTime time.Duration    `json:"oldestWaitTime"` // nanoseconds
	OldestWaitSecs float64          `json:"oldestWaitSecs"`
}

// AttendantEfficiency pairs an attendant with its efficiency score
type AttendantEfficiency struct {
	AttendantID string          `json:"attendantId"`
	Name        string          `json:"name"`
	Status      AttendantStatus `json:"status"`
	ActiveChats int             `json:"activeChats"`
	Efficiency  float64         `json:"efficiency"` // 0-100
}

// AlertSeverity represents the severity of a dashboard alert
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// Alert flags a queue item or attendant that needs supervisor attention
type Alert struct {
	Rule        string        `json:"rule"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	ChatID      string        `json:"chatId,omitempty"`
	AttendantID string        `json:"attendantId,omitempty"`
}

// EngineSnapshot is a consistent copy of the engine state taken under one lock
type EngineSnapshot struct {
	Taken      time.Time    `json:"taken"`
	Attendants []Attendant  `json:"attendants"`
	Queue      []QueueItem  `json:"queue"`
	Active     []ActiveChat `json:"active"`
	Completed  int          `json:"completed"`
	Abandoned  int          `json:"abandoned"`
}

// DashboardSummary is the payload pushed to dashboard clients every tick
type DashboardSummary struct {
	Type        string                `json:"type"` // "summary"
	Timestamp   time.Time             `json:"timestamp"`
	Queue       QueueSnapshot         `json:"queue"`
	Utilization float64               `json:"utilization"` // 0-100
	ActiveChats int                   `json:"activeChats"`
	Completed   int                   `json:"completed"`
	Abandoned   int                   `json:"abandoned"`
	Attendants  []AttendantEfficiency `json:"attendants"`
	Alerts      []Alert               `json:"alerts,omitempty"`
}
