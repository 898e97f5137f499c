package chatqueue

import (
	"testing"
	"time"

	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
	"github.com/rs/zerolog"
)

func TestRoutingLoopTick(t *testing.T) {
	cfg := types.DefaultQueueConfig()
	e, clock := newTestEngine(t, WithConfigProvider(StaticConfig(cfg)))
	mustRegister(t, e, "A", nil, 2)
	mustEnqueue(t, e, EnqueueRequest{ChatID: "C1"})
	mustEnqueue(t, e, EnqueueRequest{ChatID: "C2"})
	mustEnqueue(t, e, EnqueueRequest{ChatID: "C3"})

	pub := &recordingPublisher{}
	counter := &countingAssignments{}
	loop := NewRoutingLoop(e, pub, counter, 0, zerolog.Nop())

	assignments := loop.Tick(clock.now())
	if len(assignments) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(assignments))
	}
	if counter.n != 2 {
		t.Errorf("expected counter 2, got %d", counter.n)
	}
	if !hasEvent(pub.events, types.EventChatAssigned) {
		t.Errorf("expected assigned events, got %v", pub.recorded())
	}
	if e.QueueSize() != 1 {
		t.Errorf("expected 1 left, got %d", e.QueueSize())
	}

	if again := loop.Tick(clock.now()); len(again) != 0 {
		t.Errorf("expected nothing to assign, got %d", len(again))
	}
}

func TestRoutingLoopRespectsConfig(t *testing.T) {
	off := types.DefaultQueueConfig()
	off.AutoAssign = false

	closed := types.DefaultQueueConfig()
	closed.BusinessHours = types.BusinessHours{
		Enabled:  true,
		Timezone: "UTC",
		Days:     []int{1, 2, 3, 4, 5},
		Open:     "08:00",
		Close:    "18:00",
	}

	tests := []struct {
		name string
		cfg  types.QueueConfig
		now  time.Time
		want int
	}{
		{"auto assign off", off, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), 0},
		{"after hours", closed, time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC), 0},
		{"sunday", closed, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), 0},
		{"open", closed, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t, WithConfigProvider(StaticConfig(tt.cfg)))
			mustRegister(t, e, "A", nil, 1)
			mustEnqueue(t, e, EnqueueRequest{ChatID: "C1"})

			loop := NewRoutingLoop(e, &recordingPublisher{}, nil, time.Second, zerolog.Nop())
			if got := len(loop.Tick(tt.now)); got != tt.want {
				t.Errorf("expected %d assignments, got %d", tt.want, got)
			}
		})
	}
}
