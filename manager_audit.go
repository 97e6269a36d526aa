package goSession

import (
	"context"
	"errors"
)

// AuditErrorCode is the stable, non-sensitive error label carried by audit events.
type AuditErrorCode string

const (
	auditErrCallbackTimeout       AuditErrorCode = "callback_timeout"
	auditErrInvalidBackingUser    AuditErrorCode = "invalid_backing_user"
	auditErrEvaluationFailed      AuditErrorCode = "evaluation_failed"
	auditErrSessionCreationFailed AuditErrorCode = "session_creation_failed"
	auditErrUnavailable           AuditErrorCode = "store_unavailable"
	auditErrCanceled              AuditErrorCode = "canceled"
	auditErrInternal              AuditErrorCode = "internal_error"
)

func (m *Manager) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if m == nil || m.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: m.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	m.audit.Emit(ctx, event)
}

// auditErrorCode checks the most specific causes first: a timed-out storage
// callback also carries ErrStoreUnavailable.
func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrCallbackTimeout):
		return auditErrCallbackTimeout
	case errors.Is(err, ErrInvalidBackingUser):
		return auditErrInvalidBackingUser
	case errors.Is(err, ErrEvaluationFailed):
		return auditErrEvaluationFailed
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrSessionCreationFailed):
		return auditErrSessionCreationFailed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return auditErrCanceled
	default:
		return auditErrInternal
	}
}
