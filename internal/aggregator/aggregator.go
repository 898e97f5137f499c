package aggregator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dennisdiepolder/monti/supportdesk/internal/alerts"
	"github.com/dennisdiepolder/monti/supportdesk/internal/metrics"
	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
	"github.com/rs/zerolog"
)

// Source is the engine state the aggregator reads each cycle
type Source interface {
	Snapshot() types.EngineSnapshot
	QueueConfig() types.QueueConfig
}

// Broadcaster pushes a payload to every dashboard client
type Broadcaster interface {
	Broadcast(message []byte) bool
	ClientCount() int
}

// Aggregator turns engine snapshots into dashboard summaries
type Aggregator struct {
	source  Source
	hub     Broadcaster
	metrics *metrics.Metrics
	now     func() time.Time
	logger  zerolog.Logger
}

// NewAggregator creates a new aggregator
func NewAggregator(source Source, hub Broadcaster, m *metrics.Metrics, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		source:  source,
		hub:     hub,
		metrics: m,
		now:     time.Now,
		logger:  logger.With().Str("component", "aggregator").Logger(),
	}
}

// Start broadcasts a summary every second until ctx is cancelled
func (a *Aggregator) Start(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	a.logger.Info().Msg("aggregator started")

	for {
		select {
		case <-ctx.Done():
			a.logger.Info().Msg("aggregator stopped")
			return
		case <-ticker.C:
			a.Tick()
		}
	}
}

// Current builds a summary with alerts from the latest engine state
func (a *Aggregator) Current() types.DashboardSummary {
	now := a.now()
	snap := a.source.Snapshot()
	summary := metrics.Summarize(snap, now)
	summary.Alerts = alerts.Check(snap, a.source.QueueConfig(), now)
	return summary
}

// Tick runs one aggregation cycle
func (a *Aggregator) Tick() {
	cycleStart := time.Now()
	summary := a.Current()

	data, err := json.Marshal(summary)
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to marshal summary")
		return
	}
	if !a.hub.Broadcast(data) {
		a.logger.Warn().Msg("summary dropped")
	}

	if a.metrics != nil {
		a.metrics.RecordAggregationCycle(time.Since(cycleStart), summary)
	}

	a.logger.Debug().
		Int("queue", summary.Queue.TotalInQueue).
		Int("active_chats", summary.ActiveChats).
		Int("alerts", len(summary.Alerts)).
		Int("clients", a.hub.ClientCount()).
		Msg("summary broadcasted")
}
