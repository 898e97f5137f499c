package chatqueue

import (
	"context"
	"time"

	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
	"github.com/rs/zerolog"
)

// Publisher receives the events produced by engine calls
type Publisher interface {
	Publish(events []types.Event)
}

// AssignmentCounter is notified of every assignment made by the loop
type AssignmentCounter interface {
	IncAssignments(n int)
}

// RoutingLoop periodically matches queued chats to available attendants
type RoutingLoop struct {
	engine    *Engine
	publisher Publisher
	counter   AssignmentCounter
	interval  time.Duration
	logger    zerolog.Logger
}

// NewRoutingLoop creates a new RoutingLoop. counter may be nil.
func NewRoutingLoop(engine *Engine, publisher Publisher, counter AssignmentCounter, interval time.Duration, logger zerolog.Logger) *RoutingLoop {
	if interval <= 0 {
		interval = time.Second
	}
	return &RoutingLoop{
		engine:    engine,
		publisher: publisher,
		counter:   counter,
		interval:  interval,
		logger:    logger.With().Str("component", "routing_loop").Logger(),
	}
}

// Start runs the loop until the context is cancelled
func (rl *RoutingLoop) Start(ctx context.Context) {
	ticker := time.NewTicker(rl.interval)
	defer ticker.Stop()

	rl.logger.Info().Dur("interval", rl.interval).Msg("routing loop started")

	for {
		select {
		case <-ctx.Done():
			rl.logger.Info().Msg("routing loop stopped")
			return
		case <-ticker.C:
			rl.Tick(rl.engine.now())
		}
	}
}

// Tick performs a single routing pass and returns the assignments made.
// Nothing is assigned while auto-assign is off or the desk is closed.
func (rl *RoutingLoop) Tick(now time.Time) []types.Assignment {
	cfg := rl.engine.QueueConfig()
	if !cfg.AutoAssign || !cfg.BusinessHours.IsOpen(now) {
		return nil
	}

	assignments, events := rl.engine.AssignPending()
	if len(assignments) == 0 {
		return nil
	}

	rl.logger.Debug().
		Int("assigned", len(assignments)).
		Int("queue_depth", rl.engine.QueueSize()).
		Msg("routing pass")

	if rl.counter != nil {
		rl.counter.IncAssignments(len(assignments))
	}
	rl.publisher.Publish(events)
	return assignments
}
