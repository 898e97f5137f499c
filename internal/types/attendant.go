package types

import "time"

// AttendantStatus represents the availability of an attendant
type AttendantStatus string

const (
	StatusAvailable AttendantStatus = "available" // Can take new chats
	StatusBusy      AttendantStatus = "busy"      // At capacity or manually busy
	StatusAway      AttendantStatus = "away"      // Logged in, not taking chats
	StatusOffline   AttendantStatus = "offline"   // Logged out, owns no chats
)

// Valid reports whether s is one of the known statuses
func (s AttendantStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusBusy, StatusAway, StatusOffline:
		return true
	}
	return false
}

// Attendant is a human agent handling WhatsApp chats
type Attendant struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Skills             []string        `json:"skills"`
	Status             AttendantStatus `json:"status"`
	MaxConcurrentChats int             `json:"maxConcurrentChats"`
	CurrentChats       []string        `json:"currentChats"`
	TotalChatsToday    int             `json:"totalChatsToday"`
	AvgResponseTime    float64         `json:"avgResponseTime"`   // milliseconds
	SatisfactionScore  float64         `json:"satisfactionScore"` // 0-5
	ResponseSamples    int             `json:"responseSamples"`
	SatisfactionVotes  int             `json:"satisfactionVotes"`
	RegisteredAt       time.Time       `json:"registeredAt"`
	StatusSince        time.Time       `json:"statusSince"`
	LastAssignedAt     *time.Time      `json:"lastAssignedAt,omitempty"`
}

// HasCapacity reports whether the attendant can take one more chat
func (a *Attendant) HasCapacity() bool {
	return len(a.CurrentChats) < a.MaxConcurrentChats
}

// AtCapacity reports whether the attendant holds the maximum number of chats
func (a *Attendant) AtCapacity() bool {
	return len(a.CurrentChats) >= a.MaxConcurrentChats
}

// HasSkills reports whether the attendant's skills are a superset of required
func (a *Attendant) HasSkills(required []string) bool {
	for _, need := range required {
		found := false
		for _, s := range a.Skills {
			if s == need {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Owns reports whether chatID is in the attendant's current chats
func (a *Attendant) Owns(chatID string) bool {
	for _, id := range a.CurrentChats {
		if id == chatID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand out of a locked section
func (a *Attendant) Clone() Attendant {
	c := *a
	c.Skills = append([]string(nil), a.Skills...)
	c.CurrentChats = append([]string{}, a.CurrentChats...)
	if a.LastAssignedAt != nil {
		t := *a.LastAssignedAt
		c.LastAssignedAt = &t
	}
	return c
}
