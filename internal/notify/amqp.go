package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// AMQPSink publishes every event to a topic exchange with the event type as
// routing key, so consumers can bind to "chat.*" or "attendant.#"
type AMQPSink struct {
	url      string
	exchange string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel

	logger zerolog.Logger
}

// NewAMQPSink connects to the broker and declares the exchange
func NewAMQPSink(url, exchange string, logger zerolog.Logger) (*AMQPSink, error) {
	s := &AMQPSink{
		url:      url,
		exchange: exchange,
		logger:   logger.With().Str("component", "amqp_sink").Logger(),
	}
	if err := s.connect(); err != nil {
		return nil, err
	}
	s.logger.Info().Str("exchange", exchange).Msg("connected to broker")
	return s, nil
}

func (s *AMQPSink) Name() string                 { return "amqp" }
func (s *AMQPSink) Handles(types.EventType) bool { return true }

// Deliver publishes ev, reconnecting once if the broker dropped the channel
func (s *AMQPSink) Deliver(ctx context.Context, ev types.Event) error {
	msg, err := publishing(ev)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil || s.conn.IsClosed() || s.ch == nil || s.ch.IsClosed() {
		s.logger.Warn().Msg("broker channel closed, reconnecting")
		if err := s.connect(); err != nil {
			return err
		}
	}
	return s.ch.PublishWithContext(ctx, s.exchange, string(ev.Type), false, false, msg)
}

// Close shuts the broker connection
func (s *AMQPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// connect dials and declares the exchange; callers hold mu, except the constructor
func (s *AMQPSink) connect() error {
	if s.conn != nil && !s.conn.IsClosed() {
		s.conn.Close()
	}

	conn, err := amqp.Dial(s.url)
	if err != nil {
		return fmt.Errorf("failed to dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(s.exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", s.exchange, err)
	}

	s.conn = conn
	s.ch = ch
	return nil
}

// publishing wraps ev as a persistent JSON message
func publishing(ev types.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     uuid.NewString(),
		CorrelationId: ev.ChatID,
		Type:          string(ev.Type),
		Timestamp:     ev.Timestamp,
		Body:          body,
	}, nil
}
