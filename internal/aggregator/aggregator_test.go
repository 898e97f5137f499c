package aggregator

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dennisdiepolder/monti/supportdesk/internal/chatqueue"
	"github.com/dennisdiepolder/monti/supportdesk/internal/metrics"
	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
	"github.com/rs/zerolog"
)

type fakeHub struct {
	messages [][]byte
}

func (h *fakeHub) Broadcast(message []byte) bool {
	h.messages = append(h.messages, message)
	return true
}

func (h *fakeHub) ClientCount() int { return 1 }

func TestTickBroadcastsSummary(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	cfg := types.DefaultQueueConfig()
	cfg.MaxWaitSecs = 60

	engine := chatqueue.NewEngine(zerolog.Nop(),
		chatqueue.WithClock(func() time.Time { return now.Add(-2 * time.Minute) }),
		chatqueue.WithConfigProvider(chatqueue.StaticConfig(cfg)),
	)
	if _, _, err := engine.RegisterAttendant("Ana", nil, 1); err != nil {
		t.Fatalf("register: %v", err)
	}
	for _, chat := range []string{"c1", "c2"} {
		if _, _, err := engine.Enqueue(chatqueue.EnqueueRequest{ChatID: chat, Text: "oi"}); err != nil {
			t.Fatalf("enqueue %s: %v", chat, err)
		}
	}
	if _, _, err := engine.AutoAssign(); err != nil {
		t.Fatalf("auto assign: %v", err)
	}

	hub := &fakeHub{}
	m := metrics.New()
	agg := NewAggregator(engine, hub, m, zerolog.Nop())
	agg.now = func() time.Time { return now }

	agg.Tick()

	if len(hub.messages) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(hub.messages))
	}
	var summary types.DashboardSummary
	if err := json.Unmarshal(hub.messages[0], &summary); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if summary.Type != "summary" {
		t.Errorf("expected summary type, got %q", summary.Type)
	}
	if summary.Queue.TotalInQueue != 1 || summary.ActiveChats != 1 {
		t.Errorf("unexpected counts %+v", summary)
	}
	if summary.Utilization != 100 {
		t.Errorf("expected 100%% utilization, got %v", summary.Utilization)
	}
	if len(summary.Alerts) != 1 || summary.Alerts[0].ChatID != "c2" {
		t.Errorf("expected wait alert for c2, got %+v", summary.Alerts)
	}
	if m.AggregationCyclesTotal != 1 {
		t.Errorf("expected 1 aggregation cycle, got %d", m.AggregationCyclesTotal)
	}
}
