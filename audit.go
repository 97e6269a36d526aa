package goSession

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Audit event types. Sign-in, sign-out and access checks carry the outcome in
// AuditEvent.Success; the session lifecycle events are always successful.
const (
	EventAuthSuccess    = "auth_success"
	EventAuthFail       = "auth_fail"
	EventLogout         = "logout"
	EventAccessGrant    = "access_grant"
	EventAccessDeny     = "access_deny"
	EventError          = "error"
	EventSessionRenewed = "session_renewed"
	EventRenewConflict  = "renew_conflict"
	EventSessionRevoked = "session_revoked"
	EventSessionsSwept  = "sessions_swept"
)

// AuditEvent records one session or access decision. Tokens and session keys are
// never included; Metadata holds labels such as the access reason or sweep counts.
type AuditEvent struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives events from the Manager's dispatcher goroutine. Emit must not
// retain ctx past the call.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// AuditSinkFunc adapts a function to AuditSink.
type AuditSinkFunc func(ctx context.Context, event AuditEvent)

func (f AuditSinkFunc) Emit(ctx context.Context, event AuditEvent) { f(ctx, event) }

// NoOpSink discards every event.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// MultiSink fans every event out to sinks in order. Nil sinks are skipped.
func MultiSink(sinks ...AuditSink) AuditSink {
	kept := make([]AuditSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return AuditSinkFunc(func(ctx context.Context, event AuditEvent) {
		for _, s := range kept {
			s.Emit(ctx, event)
		}
	})
}

// FilterSink forwards only the listed event types to sink, for example
// EventAuthFail and EventAccessDeny to a security channel.
func FilterSink(sink AuditSink, eventTypes ...string) AuditSink {
	allowed := make(map[string]struct{}, len(eventTypes))
	for _, t := range eventTypes {
		allowed[t] = struct{}{}
	}
	return AuditSinkFunc(func(ctx context.Context, event AuditEvent) {
		if _, ok := allowed[event.EventType]; ok && sink != nil {
			sink.Emit(ctx, event)
		}
	})
}

// ChannelSink hands events to an in-process consumer. Emit waits for room until ctx
// is done.
type ChannelSink struct {
	ch chan AuditEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{ch: make(chan AuditEvent, max(buffer, 1))}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.ch <- event:
	case <-ctx.Done():
	}
}

// Events is the receive side for the consumer.
func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.ch
}

// JSONWriterSink writes events as JSON lines, one per event.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	if w == nil {
		return &JSONWriterSink{}
	}
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil || s.enc == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.enc.Encode(event)
}
