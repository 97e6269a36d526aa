package events

import (
	"context"
	"encoding/json"
	"log/slog"

	goSession "github.com/MrEthical07/goSession"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// DefaultTopic receives every event unless PublisherSink.TopicFor says otherwise.
const DefaultTopic = "gosession.audit"

// Metadata keys set on each published message.
const (
	MetadataEventType = "event_type"
	MetadataUserID    = "user_id"
	MetadataSuccess   = "success"
)

// PublisherSink is a goSession.AuditSink publishing each event as a JSON message.
// Publish failures are logged and the event is dropped.
type PublisherSink struct {
	publisher message.Publisher
	topicFor  func(goSession.AuditEvent) string
	logger    *slog.Logger
}

// Option customizes a PublisherSink.
type Option func(*PublisherSink)

// WithTopic publishes every event to topic.
func WithTopic(topic string) Option {
	return func(s *PublisherSink) {
		s.topicFor = func(goSession.AuditEvent) string { return topic }
	}
}

// WithTopicPerEventType publishes each event to prefix + "." + event type, for
// example "gosession.auth_success".
func WithTopicPerEventType(prefix string) Option {
	return func(s *PublisherSink) {
		s.topicFor = func(e goSession.AuditEvent) string { return prefix + "." + e.EventType }
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *PublisherSink) {
		s.logger = logger
	}
}

func NewPublisherSink(publisher message.Publisher, opts ...Option) *PublisherSink {
	s := &PublisherSink{
		publisher: publisher,
		topicFor:  func(goSession.AuditEvent) string { return DefaultTopic },
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Emit publishes event. The message UUID is the event id when it has one.
func (s *PublisherSink) Emit(ctx context.Context, event goSession.AuditEvent) {
	if s == nil || s.publisher == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("audit event marshal failed", "event_type", event.EventType, "error", err)
		return
	}

	id := event.ID
	if id == "" {
		id = uuid.NewString()
	}
	msg := message.NewMessage(id, payload)
	msg.Metadata.Set(MetadataEventType, event.EventType)
	msg.Metadata.Set(MetadataUserID, event.UserID)
	if event.Success {
		msg.Metadata.Set(MetadataSuccess, "true")
	} else {
		msg.Metadata.Set(MetadataSuccess, "false")
	}
	if ctx != nil {
		msg.SetContext(ctx)
	}

	topic := s.topicFor(event)
	if err := s.publisher.Publish(topic, msg); err != nil {
		s.logger.Warn("audit event publish failed", "topic", topic, "event_type", event.EventType, "error", err)
	}
}

// Decode reads an event back from a message published by PublisherSink.
func Decode(msg *message.Message) (goSession.AuditEvent, error) {
	var event goSession.AuditEvent
	err := json.Unmarshal(msg.Payload, &event)
	return event, err
}
