package notify

import (
	"context"
	"strings"

	"github.com/dennisdiepolder/monti/supportdesk/internal/storage"
	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
)

// MessageSender sends a WhatsApp message; implemented by gateway.Client
type MessageSender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// ConfigProvider supplies the message templates and business hours
type ConfigProvider interface {
	QueueConfig() types.QueueConfig
}

// GatewaySink tells customers what happened to their chat
type GatewaySink struct {
	sender MessageSender
	config ConfigProvider
}

// NewGatewaySink creates a sink that messages customers through sender using the templates from config
func NewGatewaySink(sender MessageSender, config ConfigProvider) *GatewaySink {
	return &GatewaySink{sender: sender, config: config}
}

// Name identifies the sink in dispatcher logs
func (s *GatewaySink) Name() string { return "gateway" }

// Handles reports whether customers are told about events of type t
func (s *GatewaySink) Handles(t types.EventType) bool {
	switch t {
	case types.EventChatEnqueued, types.EventChatAssigned, types.EventChatTransferred,
		types.EventChatRequeued, types.EventChatEnded:
		return true
	}
	return false
}

// Deliver sends the customer message for ev, skipping events with an empty template
func (s *GatewaySink) Deliver(ctx context.Context, ev types.Event) error {
	text := CustomerMessage(s.config.QueueConfig(), ev)
	if text == "" {
		return nil
	}
	return s.sender.SendMessage(ctx, ev.ChatID, text)
}

// CustomerMessage renders the template for ev, or "" when nothing should be sent.
// A chat queued outside business hours gets the out-of-hours reply.
func CustomerMessage(cfg types.QueueConfig, ev types.Event) string {
	var tmpl string
	switch ev.Type {
	case types.EventChatEnqueued:
		if cfg.BusinessHours.IsOpen(ev.Timestamp) {
			return ""
		}
		tmpl = cfg.Messages.OutOfHours
	case types.EventChatAssigned:
		tmpl = cfg.Messages.Assigned
	case types.EventChatTransferred:
		tmpl = cfg.Messages.Transferred
	case types.EventChatRequeued:
		tmpl = cfg.Messages.Requeued
	case types.EventChatEnded:
		tmpl = cfg.Messages.Ended
	}
	return strings.ReplaceAll(tmpl, "{attendant}", ev.AttendantName)
}

// WorkflowTrigger fires an n8n webhook; implemented by workflow.Client
type WorkflowTrigger interface {
	TriggerWorkflow(ctx context.Context, name string, payload interface{}) error
}

// WorkflowSink fires one n8n webhook per chat event, named after the event type
// ("chat.assigned" triggers "chat-assigned")
type WorkflowSink struct {
	trigger WorkflowTrigger
}

// NewWorkflowSink creates a sink that fires n8n webhooks through trigger
func NewWorkflowSink(trigger WorkflowTrigger) *WorkflowSink {
	return &WorkflowSink{trigger: trigger}
}

// Name identifies the sink in dispatcher logs
func (s *WorkflowSink) Name() string { return "workflow" }

// Handles accepts every chat.* event
func (s *WorkflowSink) Handles(t types.EventType) bool {
	return strings.HasPrefix(string(t), "chat.")
}

// Deliver triggers the webhook named after ev.Type with ev as payload
func (s *WorkflowSink) Deliver(ctx context.Context, ev types.Event) error {
	return s.trigger.TriggerWorkflow(ctx, WorkflowName(ev.Type), ev)
}

// WorkflowName maps an event type to its webhook name
func WorkflowName(t types.EventType) string {
	return strings.NewReplacer(".", "-", "_", "-").Replace(string(t))
}

// EventBroadcaster relays events to dashboards; implemented by websocket.Hub
type EventBroadcaster interface {
	BroadcastEvent(ev types.Event) error
}

// HubSink pushes every event to connected dashboards
type HubSink struct {
	hub EventBroadcaster
}

// NewHubSink creates a sink that relays events to dashboard websocket clients
func NewHubSink(hub EventBroadcaster) *HubSink {
	return &HubSink{hub: hub}
}

// Name identifies the sink in dispatcher logs
func (s *HubSink) Name() string { return "websocket" }

// Handles accepts every event type
func (s *HubSink) Handles(types.EventType) bool { return true }

// Deliver broadcasts ev to the hub
func (s *HubSink) Deliver(_ context.Context, ev types.Event) error {
	return s.hub.BroadcastEvent(ev)
}

// RecordSink writes closed chats to the history store
type RecordSink struct {
	store storage.Store
}

// NewRecordSink creates a sink that persists ended chats to store
func NewRecordSink(store storage.Store) *RecordSink {
	return &RecordSink{store: store}
}

// Name identifies the sink in dispatcher logs
func (s *RecordSink) Name() string { return "records" }

// Handles accepts only chat.ended
func (s *RecordSink) Handles(t types.EventType) bool {
	return t == types.EventChatEnded
}

// Deliver saves the closed chat as a history record
func (s *RecordSink) Deliver(ctx context.Context, ev types.Event) error {
	return s.store.SaveChatRecord(ctx, types.NewChatRecord(ev))
}
