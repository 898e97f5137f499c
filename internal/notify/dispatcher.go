// Package notify delivers engine events to the outside world after the state
// change has been committed. Delivery is asynchronous and best-effort: a
// failing sink is logged and counted, the engine state is never rolled back.
package notify

import (
	"context"
	"time"

	"github.com/dennisdiepolder/monti/supportdesk/internal/metrics"
	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
	"github.com/rs/zerolog"
)

// Sink receives the events it handles, in commit order
type Sink interface {
	Name() string
	Handles(t types.EventType) bool
	Deliver(ctx context.Context, ev types.Event) error
}

// Dispatcher queues event batches and fans them out to sinks on one goroutine
type Dispatcher struct {
	sinks   []Sink
	queue   chan []types.Event
	timeout time.Duration
	metrics *metrics.Metrics
	done    chan struct{}
	logger  zerolog.Logger
}

// NewDispatcher creates a dispatcher holding up to buffer pending batches. m may be nil.
func NewDispatcher(buffer int, m *metrics.Metrics, logger zerolog.Logger, sinks ...Sink) *Dispatcher {
	if buffer < 1 {
		buffer = 1
	}
	return &Dispatcher{
		sinks:   sinks,
		queue:   make(chan []types.Event, buffer),
		timeout: 10 * time.Second,
		metrics: m,
		done:    make(chan struct{}),
		logger:  logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Publish queues events for delivery. It never blocks; a full buffer drops the batch.
func (d *Dispatcher) Publish(events []types.Event) {
	if len(events) == 0 {
		return
	}
	select {
	case d.queue <- events:
	default:
		if d.metrics != nil {
			d.metrics.RecordDispatchDropped()
		}
		d.logger.Warn().
			Int("events", len(events)).
			Str("first", string(events[0].Type)).
			Msg("dispatch buffer full, dropping events")
	}
}

// Start delivers queued events until ctx is cancelled, then drains what is
// already buffered and returns
func (d *Dispatcher) Start(ctx context.Context) {
	defer close(d.done)
	d.logger.Info().Int("sinks", len(d.sinks)).Msg("dispatcher started")

	for {
		select {
		case batch := <-d.queue:
			d.deliverBatch(ctx, batch)
		case <-ctx.Done():
			d.drain()
			d.logger.Info().Msg("dispatcher stopped")
			return
		}
	}
}

// Done is closed once Start has returned
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) drain() {
	// The parent context is gone; give the drain its own deadline
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	for {
		select {
		case batch := <-d.queue:
			d.deliverBatch(ctx, batch)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliverBatch(ctx context.Context, batch []types.Event) {
	for _, ev := range batch {
		for _, sink := range d.sinks {
			if !sink.Handles(ev.Type) {
				continue
			}
			d.deliver(ctx, sink, ev)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, sink Sink, ev types.Event) {
	sctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err := sink.Deliver(sctx, ev)
	if d.metrics != nil {
		d.metrics.RecordDelivery(sink.Name(), err == nil)
	}
	if err != nil {
		d.logger.Warn().
			Err(err).
			Str("sink", sink.Name()).
			Str("event", string(ev.Type)).
			Str("chat_id", ev.ChatID).
			Msg("event delivery failed")
		return
	}
	d.logger.Debug().
		Str("sink", sink.Name()).
		Str("event", string(ev.Type)).
		Msg("event delivered")
}
