package goSession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/access"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/token"
)

// Manager issues and validates session tokens. It is safe for concurrent use once
// built.
type Manager struct {
	config     Config
	codec      token.Codec
	store      session.Store
	closeStore func() error
	flows      flows.Service

	userProvider   UserProvider
	authenticator  Authenticator
	signOutHandler SignOutHandler
	evaluator      *access.Evaluator

	audit   *auditDispatcher
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time

	closeOnce sync.Once
	closeErr  error
}

func (m *Manager) ready() bool {
	return m != nil && m.flows.Initialized()
}

// Config returns a copy of the configuration the Manager was built with.
func (m *Manager) Config() Config {
	if m == nil {
		return Config{}
	}
	return m.config
}

// Close drains pending audit events and releases stores the Manager opened itself.
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	m.closeOnce.Do(func() {
		m.audit.Close()
		if m.closeStore != nil {
			m.closeErr = m.closeStore()
		}
	})
	return m.closeErr
}

func (m *Manager) AuditDropped() uint64 {
	if m == nil || m.audit == nil {
		return 0
	}
	return m.audit.Dropped()
}

func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	if m == nil || m.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return m.metrics.Snapshot()
}

func (m *Manager) metricInc(id MetricID) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.Inc(id)
}

// SignIn authenticates credentials with the configured Authenticator and issues a
// token for the resulting user. Rejected credentials return ("", nil).
//
// The token is also pushed to the TokenSink on ctx, if any.
func (m *Manager) SignIn(ctx context.Context, credentials any) (string, error) {
	if !m.ready() {
		return "", ErrNotReady
	}
	if m.authenticator == nil {
		return "", fmt.Errorf("%w: no authenticator configured", ErrNotReady)
	}

	userID, err := callWithTimeout(ctx, m.config.Callbacks.Timeout, func(ctx context.Context) (string, error) {
		return m.authenticator.Authenticate(ctx, credentials)
	})
	if err != nil {
		m.callbackFailed(err)
		m.metricInc(MetricSignInFailure)
		m.logger.Warn("authenticator failed", "error", err)
		m.emitAudit(ctx, EventAuthFail, false, "", err, nil)
		return "", fmt.Errorf("authenticate: %w", err)
	}
	if userID == "" {
		m.metricInc(MetricSignInRejected)
		m.emitAudit(ctx, EventAuthFail, false, "", nil, func() map[string]string {
			return map[string]string{"reason": "credentials_rejected"}
		})
		return "", nil
	}

	return m.SignInUser(ctx, userID)
}

// SignInUser issues a token for a user the host has already authenticated.
func (m *Manager) SignInUser(ctx context.Context, userID string) (string, error) {
	if !m.ready() {
		return "", ErrNotReady
	}
	if userID == "" {
		return "", fmt.Errorf("%w: empty user id", ErrSessionCreationFailed)
	}

	res, err := m.flows.SignIn(ctx, userID)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSessionCreationFailed, err)
		m.callbackFailed(err)
		m.metricInc(MetricSignInFailure)
		m.logger.Error("sign-in failed", "user_id", userID, "error", err)
		m.emitAudit(ctx, EventError, false, userID, err, operation("sign_in"))
		return "", err
	}

	pushToken(ctx, res.Token)
	m.metricInc(MetricSignInSuccess)
	m.emitAudit(ctx, EventAuthSuccess, true, userID, nil, func() map[string]string {
		return map[string]string{"reused": strconv.FormatBool(res.Reused)}
	})
	return res.Token, nil
}

// GetUser returns the user behind tokenStr, or nil when the token is absent,
// undecodable, revoked, expired or superseded. Errors are reserved for store
// failures and users the UserProvider can no longer resolve.
func (m *Manager) GetUser(ctx context.Context, tokenStr string) (*User, error) {
	v, err := m.Validate(ctx, tokenStr)
	if v == nil {
		return nil, err
	}
	return v.User, nil
}

// Validate is GetUser with the renewal outcome exposed. When the session is renewed
// the new token is returned in Validation.Token and pushed to the TokenSink on ctx.
func (m *Manager) Validate(ctx context.Context, tokenStr string) (*Validation, error) {
	if !m.ready() {
		return nil, ErrNotReady
	}
	if m.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { m.metrics.Observe(MetricValidateLatency, time.Since(start)) }()
	}

	res := m.flows.Validate(ctx, tokenStr)
	if res.Failure != flows.ValidateFailureNone {
		if res.Failure.Negative() {
			m.metricInc(MetricValidateRejected)
			m.logger.Debug("token rejected", "reason", res.Failure.String(), "user_id", res.UserID)
			return nil, nil
		}

		err := res.Err
		if res.Failure == flows.ValidateFailureRenew {
			err = fmt.Errorf("%w: %w", ErrSessionCreationFailed, err)
		}
		m.callbackFailed(err)
		m.metricInc(MetricValidateFailure)
		m.logger.Error("session validation failed", "reason", res.Failure.String(), "user_id", res.UserID, "error", err)
		m.emitAudit(ctx, EventError, false, res.UserID, err, operation("validate"))
		return nil, err
	}

	user, _ := res.User.(*User)
	out := &Validation{User: user, Token: tokenStr, Record: res.Record}

	switch {
	case res.Renewed:
		out.Token = res.Token
		out.Renewed = true
		pushToken(ctx, res.Token)
		m.metricInc(MetricSessionRenewed)
		m.emitAudit(ctx, EventSessionRenewed, true, res.UserID, nil, func() map[string]string {
			return map[string]string{"expires_at": res.Record.ExpiresAt.UTC().Format(time.RFC3339Nano)}
		})
	case res.RenewConflict:
		m.metricInc(MetricRenewConflict)
		m.logger.Debug("session renewed by a concurrent request", "user_id", res.UserID)
		m.emitAudit(ctx, EventRenewConflict, true, res.UserID, nil, nil)
	}

	m.metricInc(MetricValidateSuccess)
	return out, nil
}

// SignOut runs the SignOutHandler, then removes the session named by tokenStr and
// clears the token at the TokenSink on ctx. Missing or undecodable tokens are not
// an error, and signing out twice is harmless.
func (m *Manager) SignOut(ctx context.Context, tokenStr string, credentials any) error {
	if !m.ready() {
		return ErrNotReady
	}

	if m.signOutHandler != nil {
		_, err := callWithTimeout(ctx, m.config.Callbacks.Timeout, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, m.signOutHandler.SignOut(ctx, credentials)
		})
		if err != nil {
			m.callbackFailed(err)
			m.logger.Warn("sign-out handler failed", "error", err)
			m.emitAudit(ctx, EventError, false, "", err, operation("sign_out"))
			return fmt.Errorf("sign-out handler: %w", err)
		}
	}

	if tokenStr == "" {
		return nil
	}

	res := m.flows.SignOut(ctx, tokenStr)
	if res.Err != nil {
		m.callbackFailed(res.Err)
		m.logger.Error("sign-out failed", "user_id", res.UserID, "error", res.Err)
		m.emitAudit(ctx, EventError, false, res.UserID, res.Err, operation("sign_out"))
		return res.Err
	}

	pushToken(ctx, "")
	if res.Decoded {
		m.metricInc(MetricSignOut)
		m.emitAudit(ctx, EventLogout, true, res.UserID, nil, nil)
	}
	return nil
}

// ForceSessionRemove revokes userID's session regardless of any live token.
func (m *Manager) ForceSessionRemove(ctx context.Context, userID string) error {
	if !m.ready() {
		return ErrNotReady
	}

	if err := m.flows.Revoke(ctx, userID); err != nil {
		m.callbackFailed(err)
		m.logger.Error("session revocation failed", "user_id", userID, "error", err)
		m.emitAudit(ctx, EventError, false, userID, err, operation("force_remove"))
		return err
	}

	m.metricInc(MetricForcedRevocation)
	m.emitAudit(ctx, EventSessionRevoked, true, userID, nil, nil)
	return nil
}

// FreeSessions removes expired and unreadable session records. It is never called
// implicitly; hosts schedule it or run a Sweeper.
//
// A sign-in that lands between the sweep's read and its removal of an expired
// record can be lost; the user then signs in again.
func (m *Manager) FreeSessions(ctx context.Context) (SweepReport, error) {
	if !m.ready() {
		return SweepReport{}, ErrNotReady
	}

	res, err := m.flows.Sweep(ctx)
	report := SweepReport{Scanned: res.Scanned, Removed: res.Removed, Failed: res.Failed}

	if m.metrics != nil {
		m.metrics.Add(MetricSweepRemoved, uint64(res.Removed))
		m.metrics.Add(MetricSweepFailed, uint64(res.Failed))
	}
	m.emitAudit(ctx, EventSessionsSwept, err == nil, "", err, func() map[string]string {
		return map[string]string{
			"scanned": strconv.Itoa(report.Scanned),
			"removed": strconv.Itoa(report.Removed),
			"failed":  strconv.Itoa(report.Failed),
		}
	})

	if err != nil {
		m.logger.Error("session sweep failed", "scanned", report.Scanned, "removed", report.Removed, "error", err)
		return report, err
	}
	m.logger.Info("session sweep finished", "scanned", report.Scanned, "removed", report.Removed, "failed", report.Failed)
	return report, nil
}

// loadUser resolves the user behind a valid session for the validate flow.
func (m *Manager) loadUser(ctx context.Context, userID string) (any, error) {
	return m.lookupUser(ctx, userID)
}

func (m *Manager) lookupUser(ctx context.Context, userID string) (*User, error) {
	u, err := callWithTimeout(ctx, m.config.Callbacks.Timeout, func(ctx context.Context) (*User, error) {
		return m.userProvider.GetUserByID(ctx, userID)
	})
	if err != nil {
		return nil, fmt.Errorf("user provider: %w", err)
	}
	if u == nil || u.ID == "" || u.ID != userID {
		return nil, ErrInvalidBackingUser
	}
	return u, nil
}

func (m *Manager) callbackFailed(err error) {
	if errors.Is(err, ErrCallbackTimeout) {
		m.metricInc(MetricCallbackTimeout)
	}
}

func pushToken(ctx context.Context, tok string) {
	if sink := tokenSinkFromContext(ctx); sink != nil {
		sink.SetToken(tok)
	}
}

func operation(op string) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"operation": op}
	}
}
