package registry

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dennisdiepolder/monti/supportdesk/internal/errs"
	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
	"github.com/google/uuid"
)

// Registry holds attendant records and their live status and load.
//
// Registry is not safe for concurrent use. The chatqueue Engine owns one
// instance and serializes every call under its own lock.
type Registry struct {
	attendants map[string]*types.Attendant // attendantID -> record
	order      []string                    // registration order
	now        func() time.Time
}

// NewRegistry creates an empty registry. A nil clock defaults to time.Now.
func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		attendants: make(map[string]*types.Attendant),
		now:        now,
	}
}

// Register adds a new attendant in the available state
func (r *Registry) Register(name string, skills []string, maxConcurrentChats int) (types.Attendant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Attendant{}, fmt.Errorf("%w: attendant name is required", errs.ErrValidation)
	}
	if maxConcurrentChats < 1 {
		return types.Attendant{}, fmt.Errorf("%w: maxConcurrentChats must be >= 1, got %d", errs.ErrValidation, maxConcurrentChats)
	}

	now := r.now()
	a := &types.Attendant{
		ID:                 uuid.NewString(),
		Name:               name,
		Skills:             NormalizeSkills(skills),
		Status:             types.StatusAvailable,
		MaxConcurrentChats: maxConcurrentChats,
		CurrentChats:       []string{},
		RegisteredAt:       now,
		StatusSince:        now,
	}
	r.attendants[a.ID] = a
	r.order = append(r.order, a.ID)
	return a.Clone(), nil
}

// Get returns a copy of the attendant
func (r *Registry) Get(id string) (types.Attendant, error) {
	a, err := r.lookup(id)
	if err != nil {
		return types.Attendant{}, err
	}
	return a.Clone(), nil
}

// All returns copies of every attendant in registration order
func (r *Registry) All() []types.Attendant {
	out := make([]types.Attendant, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.attendants[id].Clone())
	}
	return out
}

// Count returns the number of registered attendants
func (r *Registry) Count() int {
	return len(r.order)
}

// ListAvailable returns attendants that are available, below capacity and
// hold every required skill, in registration order
func (r *Registry) ListAvailable(requiredSkills []string) []types.Attendant {
	required := NormalizeSkills(requiredSkills)
	out := make([]types.Attendant, 0)
	for _, id := range r.order {
		a := r.attendants[id]
		if a.Status != types.StatusAvailable || !a.HasCapacity() {
			continue
		}
		if !a.HasSkills(required) {
			continue
		}
		out = append(out, a.Clone())
	}
	return out
}

// SetStatus changes the attendant's status and returns the previous one.
// Going offline while owning chats is refused; Engine.SetStatus reallocates first.
// Setting available on an attendant at capacity resolves to busy.
func (r *Registry) SetStatus(id string, status types.AttendantStatus) (types.AttendantStatus, error) {
	a, err := r.lookup(id)
	if err != nil {
		return "", err
	}
	if !status.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", errs.ErrValidation, status)
	}
	if status == types.StatusOffline && len(a.CurrentChats) > 0 {
		return "", fmt.Errorf("%w: attendant %s still owns %d chats", errs.ErrValidation, id, len(a.CurrentChats))
	}
	if status == types.StatusAvailable && a.AtCapacity() {
		status = types.StatusBusy
	}

	prev := a.Status
	if prev != status {
		a.Status = status
		a.StatusSince = r.now()
	}
	return prev, nil
}

// AttachChat appends chatID to the attendant's chats, flipping it to busy at capacity
func (r *Registry) AttachChat(id, chatID string) error {
	a, err := r.lookup(id)
	if err != nil {
		return err
	}
	if a.Owns(chatID) {
		return fmt.Errorf("%w: chat %s already owned by %s", errs.ErrValidation, chatID, id)
	}
	if !a.HasCapacity() {
		return fmt.Errorf("%w: attendant %s holds %d/%d chats", errs.ErrCapacityExceeded, id, len(a.CurrentChats), a.MaxConcurrentChats)
	}

	a.CurrentChats = append(a.CurrentChats, chatID)
	if a.AtCapacity() && a.Status == types.StatusAvailable {
		a.Status = types.StatusBusy
		a.StatusSince = r.now()
	}
	return nil
}

// DetachChat removes chatID from the attendant's chats. An attendant that was
// busy because it was at capacity becomes available again.
func (r *Registry) DetachChat(id, chatID string) error {
	a, err := r.lookup(id)
	if err != nil {
		return err
	}

	idx := -1
	for i, c := range a.CurrentChats {
		if c == chatID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: chat %s not owned by attendant %s", errs.ErrNotFound, chatID, id)
	}

	wasAtCapacity := a.AtCapacity()
	a.CurrentChats = append(a.CurrentChats[:idx:idx], a.CurrentChats[idx+1:]...)
	if a.Status == types.StatusBusy && wasAtCapacity && a.HasCapacity() {
		a.Status = types.StatusAvailable
		a.StatusSince = r.now()
	}
	return nil
}

// MarkAssigned counts a new chat towards today's total
func (r *Registry) MarkAssigned(id string) error {
	a, err := r.lookup(id)
	if err != nil {
		return err
	}
	now := r.now()
	a.TotalChatsToday++
	a.LastAssignedAt = &now
	return nil
}

// RecordResponseTime folds a first-response time into the running average
func (r *Registry) RecordResponseTime(id string, d time.Duration) error {
	a, err := r.lookup(id)
	if err != nil {
		return err
	}
	if d < 0 {
		return fmt.Errorf("%w: response time must be >= 0", errs.ErrValidation)
	}
	ms := float64(d) / float64(time.Millisecond)
	a.ResponseSamples++
	a.AvgResponseTime += (ms - a.AvgResponseTime) / float64(a.ResponseSamples)
	return nil
}

// RecordSatisfaction folds a customer rating (0-5) into the running average
func (r *Registry) RecordSatisfaction(id string, score float64) error {
	a, err := r.lookup(id)
	if err != nil {
		return err
	}
	if math.IsNaN(score) || score < 0 || score > 5 {
		return fmt.Errorf("%w: satisfaction score must be within [0,5], got %v", errs.ErrValidation, score)
	}
	a.SatisfactionVotes++
	a.SatisfactionScore += (score - a.SatisfactionScore) / float64(a.SatisfactionVotes)
	return nil
}

// ResetDaily zeroes the daily counters and returns the attendants as they were before
func (r *Registry) ResetDaily() []types.Attendant {
	before := r.All()
	for _, a := range r.attendants {
		a.TotalChatsToday = 0
	}
	return before
}

func (r *Registry) lookup(id string) (*types.Attendant, error) {
	a, ok := r.attendants[id]
	if !ok {
		return nil, fmt.Errorf("%w: attendant %s", errs.ErrNotFound, id)
	}
	return a, nil
}

// NormalizeSkills lowercases, trims, deduplicates and sorts a skill list
func NormalizeSkills(skills []string) []string {
	if len(skills) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
