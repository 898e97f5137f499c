package types

import (
	"fmt"
	"time"
)

// QueueConfig is the queue configuration supplied by the settings store.
// The engine treats it as read-only and re-reads it on every use.
type QueueConfig struct {
	UrgentKeywords []string      `json:"urgentKeywords"`
	HighKeywords   []string      `json:"highKeywords"`
	VIPContacts    []string      `json:"vipContacts"`
	MaxWaitSecs    int           `json:"maxWaitSecs"`
	AutoAssign     bool          `json:"autoAssign"`
	BusinessHours  BusinessHours `json:"businessHours"`
	Messages       Messages      `json:"messages"`
}

// MaxWaitTime returns the configured maximum wait as a duration
func (c QueueConfig) MaxWaitTime() time.Duration {
	return time.Duration(c.MaxWaitSecs) * time.Second
}

// Validate checks the configuration for values the engine cannot use
func (c QueueConfig) Validate() error {
	if c.MaxWaitSecs < 0 {
		return fmt.Errorf("maxWaitSecs must be >= 0, got %d", c.MaxWaitSecs)
	}
	return c.BusinessHours.Validate()
}

// Messages holds the customer-facing WhatsApp templates.
// {attendant} is replaced by the attendant name.
type Messages struct {
	Assigned    string `json:"assigned"`
	Transferred string `json:"transferred"`
	Requeued    string `json:"requeued"`
	Ended       string `json:"ended"`
	OutOfHours  string `json:"outOfHours"`
}

// BusinessHours is the weekly window during which chats are auto-assigned
type BusinessHours struct {
	Enabled  bool   `json:"enabled"`
	Timezone string `json:"timezone"` // IANA name, empty means UTC
	Days     []int  `json:"days"`     // time.Weekday values, 0 = Sunday
	Open     string `json:"open"`     // "09:00"
	Close    string `json:"close"`    // "18:00"
}

// Validate checks the clock strings and timezone
func (b BusinessHours) Validate() error {
	if !b.Enabled {
		return nil
	}
	if _, err := b.location(); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", b.Timezone, err)
	}
	open, err := parseClock(b.Open)
	if err != nil {
		return fmt.Errorf("invalid open time: %w", err)
	}
	closing, err := parseClock(b.Close)
	if err != nil {
		return fmt.Errorf("invalid close time: %w", err)
	}
	if closing <= open {
		return fmt.Errorf("close %s must be after open %s", b.Close, b.Open)
	}
	for _, d := range b.Days {
		if d < 0 || d > 6 {
			return fmt.Errorf("invalid weekday %d", d)
		}
	}
	return nil
}

// IsOpen reports whether now falls inside the window. A disabled schedule is always open.
func (b BusinessHours) IsOpen(now time.Time) bool {
	if !b.Enabled {
		return true
	}
	loc, err := b.location()
	if err != nil {
		return true
	}
	local := now.In(loc)

	dayOK := len(b.Days) == 0
	for _, d := range b.Days {
		if time.Weekday(d) == local.Weekday() {
			dayOK = true
			break
		}
	}
	if !dayOK {
		return false
	}

	open, err1 := parseClock(b.Open)
	closing, err2 := parseClock(b.Close)
	if err1 != nil || err2 != nil {
		return true
	}
	minute := local.Hour()*60 + local.Minute()
	return minute >= open && minute < closing
}

func (b BusinessHours) location() (*time.Location, error) {
	if b.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(b.Timezone)
}

// parseClock converts "HH:MM" into minutes after midnight
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// DefaultQueueConfig returns the configuration used when nothing is stored
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		UrgentKeywords: []string{"urgente", "urgent", "emergência", "emergency"},
		HighKeywords:   []string{"cancelar", "cancel", "reclamação", "complaint", "problema"},
		VIPContacts:    []string{},
		MaxWaitSecs:    300,
		AutoAssign:     true,
		BusinessHours: BusinessHours{
			Enabled: false,
			Days:    []int{1, 2, 3, 4, 5},
			Open:    "08:00",
			Close:   "18:00",
		},
		Messages: Messages{
			Assigned:    "Olá! Você está sendo atendido por {attendant}.",
			Transferred: "Sua conversa foi transferida para {attendant}.",
			Requeued:    "Você voltou para a fila e será atendido em breve.",
			Ended:       "Atendimento encerrado. Obrigado pelo contato!",
			OutOfHours:  "Estamos fora do horário de atendimento. Responderemos assim que possível.",
		},
	}
}
