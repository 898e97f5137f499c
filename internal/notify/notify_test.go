package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dennisdiepolder/monti/supportdesk/internal/metrics"
	"github.com/dennisdiepolder/monti/supportdesk/internal/storage"
	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

type recordingSink struct {
	name    string
	handles func(types.EventType) bool
	err     error

	mu  sync.Mutex
	got []types.Event
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Handles(t types.EventType) bool {
	return s.handles == nil || s.handles(t)
}

func (s *recordingSink) Deliver(_ context.Context, ev types.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, ev)
	return s.err
}

func (s *recordingSink) delivered() []types.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Event(nil), s.got...)
}

func TestDispatcherDeliversInOrder(t *testing.T) {
	all := &recordingSink{name: "all"}
	failing := &recordingSink{name: "failing", err: errors.New("boom")}
	endedOnly := &recordingSink{name: "ended", handles: func(t types.EventType) bool { return t == types.EventChatEnded }}
	m := metrics.New()

	d := NewDispatcher(8, m, zerolog.Nop(), all, failing, endedOnly)
	ctx, cancel := context.WithCancel(context.Background())
	go d.Start(ctx)

	d.Publish([]types.Event{{Type: types.EventChatEnqueued, ChatID: "c1"}, {Type: types.EventChatAssigned, ChatID: "c1"}})
	d.Publish(nil)
	d.Publish([]types.Event{{Type: types.EventChatEnded, ChatID: "c1"}})

	cancel()
	<-d.Done()

	got := all.delivered()
	want := []types.EventType{types.EventChatEnqueued, types.EventChatAssigned, types.EventChatEnded}
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %+v", len(want), got)
	}
	for i := range want {
		if got[i].Type != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], got[i].Type)
		}
	}
	if len(endedOnly.delivered()) != 1 {
		t.Errorf("expected filtered sink to get 1 event, got %d", len(endedOnly.delivered()))
	}
	if len(failing.delivered()) != 3 {
		t.Errorf("expected failing sink to keep receiving, got %d", len(failing.delivered()))
	}
	if m.DispatchFailures("failing") != 3 || m.DispatchFailures("all") != 0 {
		t.Errorf("unexpected failure counts: failing=%d all=%d", m.DispatchFailures("failing"), m.DispatchFailures("all"))
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	m := metrics.New()
	d := NewDispatcher(1, m, zerolog.Nop())

	d.Publish([]types.Event{{Type: types.EventChatEnqueued}})
	d.Publish([]types.Event{{Type: types.EventChatEnqueued}})

	if m.DispatchDropped != 1 {
		t.Errorf("expected 1 dropped batch, got %d", m.DispatchDropped)
	}
}

type fakeSender struct {
	chatID, text string
}

func (f *fakeSender) SendMessage(_ context.Context, chatID, text string) error {
	f.chatID, f.text = chatID, text
	return nil
}

type staticConfig types.QueueConfig

func (c staticConfig) QueueConfig() types.QueueConfig { return types.QueueConfig(c) }

func TestCustomerMessage(t *testing.T) {
	cfg := types.DefaultQueueConfig()
	cfg.Messages.Assigned = "Olá! Você está falando com {attendant}."
	cfg.BusinessHours = types.BusinessHours{Enabled: true, Days: []int{1, 2, 3, 4, 5}, Open: "09:00", Close: "18:00"}

	monday10 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	sunday := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ev   types.Event
		want string
	}{
		{"assigned", types.Event{Type: types.EventChatAssigned, AttendantName: "Ana"}, "Olá! Você está falando com Ana."},
		{"enqueued in hours", types.Event{Type: types.EventChatEnqueued, Timestamp: monday10}, ""},
		{"enqueued out of hours", types.Event{Type: types.EventChatEnqueued, Timestamp: sunday}, cfg.Messages.OutOfHours},
		{"requeued", types.Event{Type: types.EventChatRequeued}, cfg.Messages.Requeued},
		{"status change", types.Event{Type: types.EventAttendantStatus}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CustomerMessage(cfg, tt.ev); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestGatewaySink(t *testing.T) {
	sender := &fakeSender{}
	sink := NewGatewaySink(sender, staticConfig(types.DefaultQueueConfig()))

	if sink.Handles(types.EventAttendantRegistered) {
		t.Error("gateway sink should ignore attendant events")
	}
	ev := types.Event{Type: types.EventChatTransferred, ChatID: "5511@c.us", AttendantName: "Bruno"}
	if err := sink.Deliver(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	if sender.chatID != "5511@c.us" || sender.text != "Sua conversa foi transferida para Bruno." {
		t.Errorf("unexpected message %q to %q", sender.text, sender.chatID)
	}

	// Disabled template sends nothing
	cfg := types.DefaultQueueConfig()
	cfg.Messages.Ended = ""
	sender = &fakeSender{}
	if err := NewGatewaySink(sender, staticConfig(cfg)).Deliver(context.Background(), types.Event{Type: types.EventChatEnded, ChatID: "c"}); err != nil {
		t.Fatal(err)
	}
	if sender.chatID != "" {
		t.Errorf("expected no message, got %q", sender.text)
	}
}

type fakeTrigger struct {
	names []string
}

func (f *fakeTrigger) TriggerWorkflow(_ context.Context, name string, _ interface{}) error {
	f.names = append(f.names, name)
	return nil
}

func TestWorkflowSink(t *testing.T) {
	trigger := &fakeTrigger{}
	sink := NewWorkflowSink(trigger)

	if sink.Handles(types.EventAttendantStatus) || !sink.Handles(types.EventChatAssigned) {
		t.Error("workflow sink should only handle chat events")
	}
	sink.Deliver(context.Background(), types.Event{Type: types.EventChatReprioritized})
	if len(trigger.names) != 1 || trigger.names[0] != "chat-reprioritized" {
		t.Errorf("unexpected webhook names %v", trigger.names)
	}
}

type fakeHub struct{ events []types.Event }

func (h *fakeHub) BroadcastEvent(ev types.Event) error {
	h.events = append(h.events, ev)
	return nil
}

func TestHubAndRecordSinks(t *testing.T) {
	hub := &fakeHub{}
	if err := NewHubSink(hub).Deliver(context.Background(), types.Event{Type: types.EventAttendantRegistered}); err != nil {
		t.Fatal(err)
	}
	if len(hub.events) != 1 {
		t.Errorf("expected hub to receive event")
	}

	store := storage.NewMemoryStore()
	sink := NewRecordSink(store)
	if sink.Handles(types.EventChatAssigned) {
		t.Error("record sink should only handle ended chats")
	}
	end := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	start := end.Add(-10 * time.Minute)
	if err := sink.Deliver(context.Background(), types.Event{
		Type: types.EventChatEnded, Timestamp: end, ChatID: "c1", AttendantID: "att-1", StartTime: &start, DurationMs: 600000,
	}); err != nil {
		t.Fatal(err)
	}
	records, _ := store.GetAttendantChatsByDate(context.Background(), "att-1", "2026-03-02")
	if len(records) != 1 || records[0].Duration != 600 {
		t.Errorf("unexpected records %+v", records)
	}
}

func TestPublishing(t *testing.T) {
	ts := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	msg, err := publishing(types.Event{Type: types.EventChatAssigned, ChatID: "c1", Timestamp: ts})
	if err != nil {
		t.Fatal(err)
	}
	if msg.ContentType != "application/json" || msg.DeliveryMode != amqp.Persistent {
		t.Errorf("unexpected envelope %+v", msg)
	}
	if msg.MessageId == "" || msg.CorrelationId != "c1" || msg.Type != "chat.assigned" || !msg.Timestamp.Equal(ts) {
		t.Errorf("unexpected headers %+v", msg)
	}
	var ev types.Event
	if err := json.Unmarshal(msg.Body, &ev); err != nil || ev.ChatID != "c1" {
		t.Errorf("unexpected body %s", msg.Body)
	}
}
