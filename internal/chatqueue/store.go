package chatqueue

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dennisdiepolder/monti/supportdesk/internal/errs"
	"github.com/dennisdiepolder/monti/supportdesk/internal/registry"
	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
	"github.com/google/uuid"
)

// EnqueueRequest describes a chat entering the queue
type EnqueueRequest struct {
	ChatID         string         `json:"chatId"`
	RequiredSkills []string       `json:"requiredSkills,omitempty"`
	Hint           types.Priority `json:"priority,omitempty"` // explicit priority hint
	Text           string         `json:"text,omitempty"`     // first message, used by keyword rules
	Contact        string         `json:"contact,omitempty"`  // WhatsApp number, used by VIP rules
}

// QueueStore holds chats waiting for an attendant.
// Like the registry it relies on the Engine for serialization.
type QueueStore struct {
	items     map[string]*types.QueueItem // itemID -> item
	byChat    map[string]string           // chatID -> itemID
	seq       uint64
	abandoned int
	now       func() time.Time
}

// NewQueueStore creates an empty store. A nil clock defaults to time.Now.
func NewQueueStore(now func() time.Time) *QueueStore {
	if now == nil {
		now = time.Now
	}
	return &QueueStore{
		items:  make(map[string]*types.QueueItem),
		byChat: make(map[string]string),
		now:    now,
	}
}

// Enqueue adds a chat, resolving its priority once through rules
func (s *QueueStore) Enqueue(req EnqueueRequest, rules []Rule) (types.QueueItem, error) {
	chatID := strings.TrimSpace(req.ChatID)
	if chatID == "" {
		return types.QueueItem{}, fmt.Errorf("%w: chatId is required", errs.ErrValidation)
	}
	if req.Hint != "" && !req.Hint.Valid() {
		return types.QueueItem{}, fmt.Errorf("%w: unknown priority %q", errs.ErrValidation, req.Hint)
	}
	if _, ok := s.byChat[chatID]; ok {
		return types.QueueItem{}, fmt.Errorf("%w: chat %s is already queued", errs.ErrValidation, chatID)
	}

	priority := ResolvePriority(rules, PriorityContext{
		ChatID:  chatID,
		Hint:    req.Hint,
		Text:    req.Text,
		Contact: req.Contact,
	})

	item := types.QueueItem{
		ID:             uuid.NewString(),
		ChatID:         chatID,
		Priority:       priority,
		RequiredSkills: registry.NormalizeSkills(req.RequiredSkills),
		EnqueueTime:    s.now(),
		Contact:        req.Contact,
		Preview:        preview(req.Text),
	}
	s.insert(item)
	return item.Clone(), nil
}

// insert stores a fully built item, stamping its sequence number
func (s *QueueStore) insert(item types.QueueItem) types.QueueItem {
	s.seq++
	item.Seq = s.seq
	stored := item.Clone()
	s.items[item.ID] = &stored
	s.byChat[item.ChatID] = item.ID
	return stored.Clone()
}

// PeekBest returns the item DequeueBest would return without removing it
func (s *QueueStore) PeekBest(requestedSkills []string) (types.QueueItem, bool) {
	requested := registry.NormalizeSkills(requestedSkills)
	var best *types.QueueItem
	for _, item := range s.items {
		if best == nil || s.before(item, best, requested) {
			best = item
		}
	}
	if best == nil {
		return types.QueueItem{}, false
	}
	return best.Clone(), true
}

// DequeueBest removes and returns the next item: skill match tier first when
// skills are requested, then priority, then oldest, then insertion order
func (s *QueueStore) DequeueBest(requestedSkills []string) (types.QueueItem, bool) {
	item, ok := s.PeekBest(requestedSkills)
	if !ok {
		return types.QueueItem{}, false
	}
	s.delete(item.ID)
	return item, true
}

// Get returns a copy of the item
func (s *QueueStore) Get(itemID string) (types.QueueItem, error) {
	item, ok := s.items[itemID]
	if !ok {
		return types.QueueItem{}, fmt.Errorf("%w: queue item %s", errs.ErrNotFound, itemID)
	}
	return item.Clone(), nil
}

// FindByChat returns the queue item holding chatID
func (s *QueueStore) FindByChat(chatID string) (types.QueueItem, bool) {
	id, ok := s.byChat[chatID]
	if !ok {
		return types.QueueItem{}, false
	}
	return s.items[id].Clone(), true
}

// Remove deletes an item, e.g. when a supervisor drops it
func (s *QueueStore) Remove(itemID string) (types.QueueItem, error) {
	item, err := s.Get(itemID)
	if err != nil {
		return types.QueueItem{}, err
	}
	s.delete(itemID)
	return item, nil
}

// Abandon removes an item and counts it as abandoned
func (s *QueueStore) Abandon(itemID string) (types.QueueItem, error) {
	item, err := s.Remove(itemID)
	if err != nil {
		return types.QueueItem{}, err
	}
	s.abandoned++
	return item, nil
}

// Reprioritize moves an item to another band, keeping its wait time
func (s *QueueStore) Reprioritize(itemID string, priority types.Priority) (types.QueueItem, error) {
	if !priority.Valid() {
		return types.QueueItem{}, fmt.Errorf("%w: unknown priority %q", errs.ErrValidation, priority)
	}
	item, ok := s.items[itemID]
	if !ok {
		return types.QueueItem{}, fmt.Errorf("%w: queue item %s", errs.ErrNotFound, itemID)
	}
	item.Priority = priority
	return item.Clone(), nil
}

// Size returns the number of waiting items
func (s *QueueStore) Size() int {
	return len(s.items)
}

// Abandoned returns how many items were abandoned
func (s *QueueStore) Abandoned() int {
	return s.abandoned
}

// PeekAll returns every waiting item in service order
func (s *QueueStore) PeekAll() []types.QueueItem {
	sorted := make([]*types.QueueItem, 0, len(s.items))
	for _, item := range s.items {
		sorted = append(sorted, item)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return s.before(sorted[i], sorted[j], nil)
	})

	out := make([]types.QueueItem, len(sorted))
	for i, item := range sorted {
		out[i] = item.Clone()
	}
	return out
}

// Wipe clears the queue, returning the number of removed items
func (s *QueueStore) Wipe() int {
	count := len(s.items)
	s.items = make(map[string]*types.QueueItem)
	s.byChat = make(map[string]string)
	return count
}

func (s *QueueStore) delete(itemID string) {
	if item, ok := s.items[itemID]; ok {
		delete(s.byChat, item.ChatID)
		delete(s.items, itemID)
	}
}

// before is the total service order used by PeekBest and PeekAll
func (s *QueueStore) before(a, b *types.QueueItem, requested []string) bool {
	if len(requested) > 0 {
		ta, tb := skillTier(a.RequiredSkills, requested), skillTier(b.RequiredSkills, requested)
		if ta != tb {
			return ta < tb
		}
	}
	if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
		return ra < rb
	}
	if !a.EnqueueTime.Equal(b.EnqueueTime) {
		return a.EnqueueTime.Before(b.EnqueueTime)
	}
	return a.Seq < b.Seq
}

// skillTier ranks how well an item's required skills match the requested set:
// 0 = all requested skills present, 1 = some overlap, 2 = none
func skillTier(itemSkills, requested []string) int {
	matched := 0
	for _, r := range requested {
		for _, s := range itemSkills {
			if s == r {
				matched++
				break
			}
		}
	}
	switch {
	case matched == len(requested):
		return 0
	case matched > 0:
		return 1
	default:
		return 2
	}
}

func preview(text string) string {
	text = strings.TrimSpace(text)
	r := []rune(text)
	if len(r) > 120 {
		return string(r[:120])
	}
	return text
}
