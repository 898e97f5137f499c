package chatqueue

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dennisdiepolder/monti/supportdesk/internal/errs"
	"github.com/dennisdiepolder/monti/supportdesk/internal/registry"
	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ConfigProvider supplies the current queue configuration. The engine calls
// it on every use and never caches the result.
type ConfigProvider interface {
	QueueConfig() types.QueueConfig
}

// StaticConfig is a ConfigProvider that always returns the same configuration
type StaticConfig types.QueueConfig

// QueueConfig implements ConfigProvider
func (c StaticConfig) QueueConfig() types.QueueConfig {
	return types.QueueConfig(c)
}

// Engine assigns queued chats to attendants and owns the active chats.
//
// Registry, queue and active chats form one unit guarded by mu: every mutating
// call holds the write lock for its whole duration, reads take copies under
// the read lock. Mutating calls return the events they produced; the engine
// itself performs no I/O.
type Engine struct {
	registry  *registry.Registry
	queue     *QueueStore
	active    map[string]*types.ActiveChat // chatID -> active chat
	completed int
	routing   RoutingStrategy
	config    ConfigProvider
	now       func() time.Time
	mu        sync.RWMutex
	logger    zerolog.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithClock overrides time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRoutingStrategy replaces the default LeastLoaded strategy
func WithRoutingStrategy(s RoutingStrategy) Option {
	return func(e *Engine) { e.routing = s }
}

// WithConfigProvider sets where the queue configuration is read from
func WithConfigProvider(p ConfigProvider) Option {
	return func(e *Engine) { e.config = p }
}

// NewEngine creates an engine with an empty registry and queue
func NewEngine(logger zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		active:  make(map[string]*types.ActiveChat),
		routing: LeastLoaded{},
		config:  StaticConfig(types.DefaultQueueConfig()),
		now:     time.Now,
		logger:  logger.With().Str("component", "engine").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.registry = registry.NewRegistry(e.now)
	e.queue = NewQueueStore(e.now)
	return e
}

// QueueConfig returns the current configuration from the provider
func (e *Engine) QueueConfig() types.QueueConfig {
	return e.config.QueueConfig()
}

// RegisterAttendant adds an attendant in the available state
func (e *Engine) RegisterAttendant(name string, skills []string, maxConcurrentChats int) (types.Attendant, []types.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.registry.Register(name, skills, maxConcurrentChats)
	if err != nil {
		return types.Attendant{}, nil, err
	}

	e.logger.Debug().
		Str("attendant_id", a.ID).
		Str("name", a.Name).
		Strs("skills", a.Skills).
		Int("max_chats", a.MaxConcurrentChats).
		Msg("attendant registered")

	ev := e.event(types.EventAttendantRegistered)
	ev.AttendantID = a.ID
	ev.AttendantName = a.Name
	ev.Status = a.Status
	return a, []types.Event{ev}, nil
}

// GetAttendant returns a copy of the attendant
func (e *Engine) GetAttendant(id string) (types.Attendant, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.Get(id)
}

// ListAttendants returns copies of all attendants in registration order
func (e *Engine) ListAttendants() []types.Attendant {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.All()
}

// ListAvailable returns attendants able to take a chat requiring skills
func (e *Engine) ListAvailable(skills []string) []types.Attendant {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.ListAvailable(skills)
}

// SetStatus changes an attendant's status. Going offline first reallocates every
// owned chat; chats nobody can take go back to the queue, so the call always succeeds
// for a known attendant.
func (e *Engine) SetStatus(id string, status types.AttendantStatus) ([]types.ReallocationOutcome, []types.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	before, err := e.registry.Get(id)
	if err != nil {
		return nil, nil, err
	}
	if !status.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown status %q", errs.ErrValidation, status)
	}

	var outcomes []types.ReallocationOutcome
	var events []types.Event
	if status == types.StatusOffline && len(before.CurrentChats) > 0 {
		outcomes, events = e.reallocate(id)
	}

	if _, err := e.registry.SetStatus(id, status); err != nil {
		// Unreachable after reallocate; surfaced rather than hidden.
		return outcomes, events, err
	}
	events = append(events, e.statusChange(before, "manual")...)

	e.logger.Debug().
		Str("attendant_id", id).
		Str("prev_status", string(before.Status)).
		Str("status", string(status)).
		Int("reallocated", len(outcomes)).
		Msg("attendant status set")

	return outcomes, events, nil
}

// Enqueue puts a chat in the queue. Chats already active are rejected.
func (e *Engine) Enqueue(req EnqueueRequest) (types.QueueItem, []types.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.active[req.ChatID]; ok {
		return types.QueueItem{}, nil, fmt.Errorf("%w: chat %s is already active", errs.ErrValidation, req.ChatID)
	}

	cfg := e.config.QueueConfig()
	item, err := e.queue.Enqueue(req, RulesFromConfig(cfg))
	if err != nil {
		return types.QueueItem{}, nil, err
	}

	e.logger.Debug().
		Str("chat_id", item.ChatID).
		Str("item_id", item.ID).
		Str("priority", string(item.Priority)).
		Strs("skills", item.RequiredSkills).
		Int("queue_depth", e.queue.Size()).
		Msg("chat enqueued")

	return item, []types.Event{e.itemEvent(types.EventChatEnqueued, item)}, nil
}

// Remove drops a queued item without counting it as abandoned
func (e *Engine) Remove(itemID string) (types.QueueItem, []types.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	item, err := e.queue.Remove(itemID)
	if err != nil {
		return types.QueueItem{}, nil, err
	}
	e.logger.Debug().Str("chat_id", item.ChatID).Msg("queue item removed")
	return item, []types.Event{e.itemEvent(types.EventChatRemoved, item)}, nil
}

// Abandon drops a queued item whose customer gave up
func (e *Engine) Abandon(itemID string) (types.QueueItem, []types.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	item, err := e.queue.Abandon(itemID)
	if err != nil {
		return types.QueueItem{}, nil, err
	}
	e.logger.Debug().
		Str("chat_id", item.ChatID).
		Dur("wait", item.WaitTime(e.now())).
		Msg("queue item abandoned")
	return item, []types.Event{e.itemEvent(types.EventChatAbandoned, item)}, nil
}

// Reprioritize moves a queued item to another priority band
func (e *Engine) Reprioritize(itemID string, priority types.Priority) (types.QueueItem, []types.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	item, err := e.queue.Reprioritize(itemID, priority)
	if err != nil {
		return types.QueueItem{}, nil, err
	}
	return item, []types.Event{e.itemEvent(types.EventChatReprioritized, item)}, nil
}

// FindQueued returns the queue item holding chatID
func (e *Engine) FindQueued(chatID string) (types.QueueItem, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.queue.FindByChat(chatID)
}

// AutoAssign matches the best queued item with an attendant. An empty queue
// yields a nil assignment and no error. When the best item has no eligible
// attendant it stays queued and ErrNoAttendantAvailable is returned.
func (e *Engine) AutoAssign() (*types.Assignment, []types.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.autoAssign()
}

// AssignPending places every queued item it can, in queue order. Items with
// no eligible attendant stay queued and do not block the items behind them.
// Attendants only lose capacity during the pass, so one walk is enough.
func (e *Engine) AssignPending() ([]types.Assignment, []types.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var assignments []types.Assignment
	var events []types.Event
	for _, item := range e.queue.PeekAll() {
		assignment, evs, err := e.place(item)
		if err != nil {
			continue
		}
		assignments = append(assignments, *assignment)
		events = append(events, evs...)
	}
	return assignments, events
}

func (e *Engine) autoAssign() (*types.Assignment, []types.Event, error) {
	item, ok := e.queue.PeekBest(nil)
	if !ok {
		return nil, nil, nil
	}
	return e.place(item)
}

// place hands item to the attendant picked by the routing strategy
func (e *Engine) place(item types.QueueItem) (*types.Assignment, []types.Event, error) {
	candidates := e.registry.ListAvailable(item.RequiredSkills)
	pick := e.routing.SelectAttendant(candidates)
	if pick == nil {
		return nil, nil, fmt.Errorf("%w: chat %s requires %v", errs.ErrNoAttendantAvailable, item.ChatID, item.RequiredSkills)
	}

	chat, events, err := e.assign(item, pick.ID)
	if err != nil {
		return nil, nil, err
	}
	return &types.Assignment{
		ChatID:      chat.ChatID,
		AttendantID: chat.AttendantID,
		QueueItemID: item.ID,
	}, events, nil
}

// AssignToAttendant hands a specific queued item to a specific attendant
func (e *Engine) AssignToAttendant(itemID, attendantID string) (types.ActiveChat, []types.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	item, err := e.queue.Get(itemID)
	if err != nil {
		return types.ActiveChat{}, nil, err
	}
	a, err := e.registry.Get(attendantID)
	if err != nil {
		return types.ActiveChat{}, nil, err
	}
	if !a.HasCapacity() {
		return types.ActiveChat{}, nil, fmt.Errorf("%w: attendant %s holds %d/%d chats", errs.ErrCapacityExceeded, a.ID, len(a.CurrentChats), a.MaxConcurrentChats)
	}
	if a.Status != types.StatusAvailable {
		return types.ActiveChat{}, nil, fmt.Errorf("%w: attendant %s is %s", errs.ErrAttendantUnavailable, a.ID, a.Status)
	}

	return e.assign(item, attendantID)
}

// assign moves item out of the queue into an active chat owned by attendantID.
// The attach is done first so a refusal leaves every record untouched.
func (e *Engine) assign(item types.QueueItem, attendantID string) (types.ActiveChat, []types.Event, error) {
	before, err := e.registry.Get(attendantID)
	if err != nil {
		return types.ActiveChat{}, nil, err
	}
	if err := e.registry.AttachChat(attendantID, item.ChatID); err != nil {
		return types.ActiveChat{}, nil, err
	}
	e.queue.delete(item.ID)
	e.registry.MarkAssigned(attendantID)

	now := e.now()
	chat := &types.ActiveChat{
		ChatID:         item.ChatID,
		AttendantID:    attendantID,
		StartTime:      now,
		Priority:       item.Priority,
		RequiredSkills: append([]string(nil), item.RequiredSkills...),
		EnqueueTime:    item.EnqueueTime,
		Contact:        item.Contact,
	}
	e.active[item.ChatID] = chat

	e.logger.Debug().
		Str("chat_id", item.ChatID).
		Str("attendant_id", attendantID).
		Str("priority", string(item.Priority)).
		Dur("wait", item.WaitTime(now)).
		Msg("chat assigned to attendant")

	ev := e.chatEvent(types.EventChatAssigned, chat, before.Name)
	ev.QueueItemID = item.ID
	events := []types.Event{ev}
	events = append(events, e.statusChange(before, "assignment")...)
	return chat.Clone(), events, nil
}

// TransferChat moves an active chat from one attendant to another
func (e *Engine) TransferChat(chatID, fromID, toID, reason string) ([]types.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	chat, ok := e.active[chatID]
	if !ok {
		return nil, fmt.Errorf("%w: active chat %s", errs.ErrNotFound, chatID)
	}
	if chat.AttendantID != fromID {
		return nil, fmt.Errorf("%w: chat %s is owned by %s, not %s", errs.ErrValidation, chatID, chat.AttendantID, fromID)
	}
	if fromID == toID {
		return nil, fmt.Errorf("%w: cannot transfer chat %s to its owner", errs.ErrValidation, chatID)
	}
	target, err := e.registry.Get(toID)
	if err != nil {
		return nil, err
	}
	if !target.HasCapacity() {
		return nil, fmt.Errorf("%w: attendant %s holds %d/%d chats", errs.ErrCapacityExceeded, toID, len(target.CurrentChats), target.MaxConcurrentChats)
	}
	if target.Status != types.StatusAvailable {
		return nil, fmt.Errorf("%w: attendant %s is %s", errs.ErrAttendantUnavailable, toID, target.Status)
	}

	return e.move(chat, toID, reason)
}

// move reassigns an active chat. The target is attached before the source is
// detached; if the detach fails the attach is rolled back.
func (e *Engine) move(chat *types.ActiveChat, toID, reason string) ([]types.Event, error) {
	fromID := chat.AttendantID
	source, err := e.registry.Get(fromID)
	if err != nil {
		return nil, err
	}
	target, err := e.registry.Get(toID)
	if err != nil {
		return nil, err
	}

	if err := e.registry.AttachChat(toID, chat.ChatID); err != nil {
		return nil, err
	}
	if err := e.registry.DetachChat(fromID, chat.ChatID); err != nil {
		e.registry.DetachChat(toID, chat.ChatID)
		return nil, err
	}
	chat.AttendantID = toID
	chat.Transfers++

	e.logger.Debug().
		Str("chat_id", chat.ChatID).
		Str("from", fromID).
		Str("to", toID).
		Str("reason", reason).
		Msg("chat transferred")

	ev := e.chatEvent(types.EventChatTransferred, chat, target.Name)
	ev.FromAttendantID = fromID
	ev.Reason = reason
	events := []types.Event{ev}
	events = append(events, e.statusChange(source, "transfer")...)
	events = append(events, e.statusChange(target, "transfer")...)
	return events, nil
}

// EndChat closes an active chat and frees its attendant
func (e *Engine) EndChat(chatID string) (types.EndedChat, []types.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	chat, ok := e.active[chatID]
	if !ok {
		return types.EndedChat{}, nil, fmt.Errorf("%w: active chat %s", errs.ErrNotFound, chatID)
	}
	before, err := e.registry.Get(chat.AttendantID)
	if err != nil {
		return types.EndedChat{}, nil, err
	}
	if err := e.registry.DetachChat(chat.AttendantID, chatID); err != nil {
		return types.EndedChat{}, nil, err
	}
	delete(e.active, chatID)
	e.completed++

	now := e.now()
	ended := types.EndedChat{
		ChatID:      chatID,
		AttendantID: chat.AttendantID,
		StartTime:   chat.StartTime,
		EndTime:     now,
		DurationMs:  now.Sub(chat.StartTime).Milliseconds(),
	}

	e.logger.Debug().
		Str("chat_id", chatID).
		Str("attendant_id", chat.AttendantID).
		Int64("duration_ms", ended.DurationMs).
		Msg("chat ended")

	ev := e.chatEvent(types.EventChatEnded, chat, before.Name)
	ev.DurationMs = ended.DurationMs
	events := []types.Event{ev}
	events = append(events, e.statusChange(before, "chat_ended")...)
	return ended, events, nil
}

// Reallocate moves every chat owned by attendantID to another attendant,
// returning chats nobody can take to the queue. It yields one outcome per chat.
func (e *Engine) Reallocate(attendantID string) ([]types.ReallocationOutcome, []types.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.registry.Get(attendantID); err != nil {
		return nil, nil, err
	}
	outcomes, events := e.reallocate(attendantID)
	return outcomes, events, nil
}

func (e *Engine) reallocate(attendantID string) ([]types.ReallocationOutcome, []types.Event) {
	a, err := e.registry.Get(attendantID)
	if err != nil {
		return nil, nil
	}

	outcomes := make([]types.ReallocationOutcome, 0, len(a.CurrentChats))
	var events []types.Event
	for _, chatID := range a.CurrentChats {
		chat, ok := e.active[chatID]
		if !ok {
			// Registry lists a chat the engine does not know; drop the stale reference.
			e.logger.Warn().Str("chat_id", chatID).Str("attendant_id", attendantID).Msg("stale chat reference during reallocation")
			e.registry.DetachChat(attendantID, chatID)
			continue
		}

		if pick := e.replacement(attendantID, chat.RequiredSkills); pick != nil {
			evs, err := e.move(chat, pick.ID, "reallocation")
			if err == nil {
				outcomes = append(outcomes, types.ReallocationOutcome{
					ChatID:        chatID,
					Result:        types.ReallocationTransferred,
					ToAttendantID: pick.ID,
				})
				events = append(events, evs...)
				continue
			}
			e.logger.Warn().Err(err).Str("chat_id", chatID).Msg("reallocation transfer failed, requeueing")
		}

		item, evs := e.requeue(chat)
		outcomes = append(outcomes, types.ReallocationOutcome{
			ChatID:      chatID,
			Result:      types.ReallocationRequeued,
			QueueItemID: item.ID,
		})
		events = append(events, evs...)
	}

	e.logger.Info().
		Str("attendant_id", attendantID).
		Int("chats", len(outcomes)).
		Msg("attendant chats reallocated")

	return outcomes, events
}

// replacement picks another attendant able to take a chat with the given skills
func (e *Engine) replacement(excludeID string, skills []string) *types.Attendant {
	candidates := e.registry.ListAvailable(skills)
	filtered := candidates[:0]
	for _, c := range candidates {
		if c.ID != excludeID {
			filtered = append(filtered, c)
		}
	}
	return e.routing.SelectAttendant(filtered)
}

// requeue returns an active chat to the queue as a new item with its original
// priority, skills and enqueue time
func (e *Engine) requeue(chat *types.ActiveChat) (types.QueueItem, []types.Event) {
	before, _ := e.registry.Get(chat.AttendantID)
	e.registry.DetachChat(chat.AttendantID, chat.ChatID)
	delete(e.active, chat.ChatID)

	item := e.queue.insert(types.QueueItem{
		ID:             uuid.NewString(),
		ChatID:         chat.ChatID,
		Priority:       chat.Priority,
		RequiredSkills: append([]string(nil), chat.RequiredSkills...),
		EnqueueTime:    chat.EnqueueTime,
		Contact:        chat.Contact,
		Requeued:       true,
	})

	e.logger.Debug().
		Str("chat_id", chat.ChatID).
		Str("from", chat.AttendantID).
		Str("priority", string(item.Priority)).
		Msg("chat returned to queue")

	ev := e.itemEvent(types.EventChatRequeued, item)
	ev.FromAttendantID = chat.AttendantID
	ev.Reason = "reallocation"
	events := []types.Event{ev}
	if before.ID != "" {
		events = append(events, e.statusChange(before, "reallocation")...)
	}
	return item, events
}

// RecordResponseTime feeds an attendant's first-response time into its average
func (e *Engine) RecordResponseTime(attendantID string, d time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.RecordResponseTime(attendantID, d)
}

// RecordSatisfaction feeds a customer rating into the attendant's average
func (e *Engine) RecordSatisfaction(attendantID string, score float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.RecordSatisfaction(attendantID, score)
}

// ResetDaily zeroes daily counters and returns the attendants as they were
func (e *Engine) ResetDaily() []types.Attendant {
	e.mu.Lock()
	defer e.mu.Unlock()

	before := e.registry.ResetDaily()
	e.logger.Info().Int("attendants", len(before)).Msg("daily counters reset")
	return before
}

// WipeQueue removes every queued item
func (e *Engine) WipeQueue() (int, []types.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	items := e.queue.PeekAll()
	events := make([]types.Event, 0, len(items))
	for _, item := range items {
		events = append(events, e.itemEvent(types.EventChatRemoved, item))
	}
	count := e.queue.Wipe()
	e.logger.Info().Int("cleared", count).Msg("queue wiped")
	return count, events
}

// PeekAll returns the queued items in service order
func (e *Engine) PeekAll() []types.QueueItem {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.queue.PeekAll()
}

// QueueSize returns the number of queued items
func (e *Engine) QueueSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.queue.Size()
}

// GetActive returns the active chat for chatID
func (e *Engine) GetActive(chatID string) (types.ActiveChat, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	chat, ok := e.active[chatID]
	if !ok {
		return types.ActiveChat{}, fmt.Errorf("%w: active chat %s", errs.ErrNotFound, chatID)
	}
	return chat.Clone(), nil
}

// ListActive returns the active chats ordered by start time
func (e *Engine) ListActive() []types.ActiveChat {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.listActive()
}

func (e *Engine) listActive() []types.ActiveChat {
	out := make([]types.ActiveChat, 0, len(e.active))
	for _, c := range e.active {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ChatID < out[j].ChatID
	})
	return out
}

// Snapshot copies the whole engine state under a single read lock
func (e *Engine) Snapshot() types.EngineSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return types.EngineSnapshot{
		Taken:      e.now(),
		Attendants: e.registry.All(),
		Queue:      e.queue.PeekAll(),
		Active:     e.listActive(),
		Completed:  e.completed,
		Abandoned:  e.queue.Abandoned(),
	}
}

// IsNoAttendant reports whether err means demand currently exceeds capacity
func IsNoAttendant(err error) bool {
	return errors.Is(err, errs.ErrNoAttendantAvailable)
}

func (e *Engine) event(t types.EventType) types.Event {
	return types.Event{Type: t, Timestamp: e.now()}
}

func (e *Engine) itemEvent(t types.EventType, item types.QueueItem) types.Event {
	ev := e.event(t)
	ev.ChatID = item.ChatID
	ev.QueueItemID = item.ID
	ev.Priority = item.Priority
	ev.Contact = item.Contact
	enq := item.EnqueueTime
	ev.EnqueueTime = &enq
	return ev
}

func (e *Engine) chatEvent(t types.EventType, chat *types.ActiveChat, attendantName string) types.Event {
	ev := e.event(t)
	ev.ChatID = chat.ChatID
	ev.AttendantID = chat.AttendantID
	ev.AttendantName = attendantName
	ev.Priority = chat.Priority
	ev.Contact = chat.Contact
	ev.Transfers = chat.Transfers
	enq, start := chat.EnqueueTime, chat.StartTime
	ev.EnqueueTime = &enq
	ev.StartTime = &start
	return ev
}

// statusChange emits a status event when the attendant's status moved since before
func (e *Engine) statusChange(before types.Attendant, reason string) []types.Event {
	after, err := e.registry.Get(before.ID)
	if err != nil || after.Status == before.Status {
		return nil
	}
	ev := e.event(types.EventAttendantStatus)
	ev.AttendantID = after.ID
	ev.AttendantName = after.Name
	ev.Status = after.Status
	ev.PreviousStatus = before.Status
	ev.Reason = reason
	return []types.Event{ev}
}
