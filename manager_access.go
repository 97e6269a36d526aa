package goSession

import (
	"context"
	"fmt"
	"strconv"

	"github.com/MrEthical07/goSession/access"
)

// CheckAccess decides whether userID satisfies req, resolving the user's level
// through the UserProvider when req sets one. An empty userID is denied.
//
// A user without a level, or a failed lookup, returns ErrEvaluationFailed rather
// than a denial.
func (m *Manager) CheckAccess(ctx context.Context, userID string, req access.Requirement) (access.Decision, error) {
	if !m.ready() {
		return access.Decision{}, ErrNotReady
	}
	d, err := m.evaluator.Check(ctx, userID, req)
	if err != nil {
		return access.Decision{}, m.evaluationFailed(ctx, userID, err)
	}
	return d, nil
}

// Authorize is CheckAccess for a user the caller already holds, typically the one
// GetUser returned. A nil user is denied.
func (m *Manager) Authorize(ctx context.Context, user *User, req access.Requirement) (access.Decision, error) {
	if !m.ready() {
		return access.Decision{}, ErrNotReady
	}
	var (
		userID string
		level  *int
	)
	if user != nil {
		userID, level = user.ID, user.Level
	}
	d, err := m.evaluator.Report(ctx, userID, level, req)
	if err != nil {
		return access.Decision{}, m.evaluationFailed(ctx, userID, err)
	}
	return d, nil
}

func (m *Manager) levelOf(ctx context.Context, userID string) (*int, error) {
	u, err := m.lookupUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.Level, nil
}

func (m *Manager) evaluationFailed(ctx context.Context, userID string, err error) error {
	err = fmt.Errorf("%w: %w", ErrEvaluationFailed, err)
	m.callbackFailed(err)
	m.logger.Error("access evaluation failed", "user_id", userID, "error", err)
	m.emitAudit(ctx, EventError, false, userID, err, operation("check_access"))
	return err
}

// accessAuditSink turns evaluator decisions into metrics and audit events.
type accessAuditSink struct {
	m *Manager
}

func (s accessAuditSink) Decided(ctx context.Context, d access.Decision) {
	eventType := EventAccessDeny
	metric := MetricAccessDenied
	if d.Access {
		eventType = EventAccessGrant
		metric = MetricAccessGranted
	}
	s.m.metricInc(metric)

	s.m.emitAudit(ctx, eventType, d.Access, d.UserID, nil, func() map[string]string {
		md := make(map[string]string, 6)
		if d.ReasonID != 0 {
			md["reason_id"] = strconv.Itoa(d.ReasonID)
			md["reason"] = d.Reason
		}
		if d.UserLevel != nil {
			md["user_level"] = strconv.Itoa(*d.UserLevel)
		}
		if d.RequiredLevel != nil {
			md["required_level"] = strconv.Itoa(*d.RequiredLevel)
		}
		if method, path := requestInfoFromContext(ctx); method != "" || path != "" {
			md["method"] = method
			md["path"] = path
		}
		return md
	})
}

var _ access.EventSink = accessAuditSink{}
