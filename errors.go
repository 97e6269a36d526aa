package goSession

import (
	"errors"

	"github.com/MrEthical07/goSession/session"
)

var (
	// ErrInvalidConfig wraps every configuration and Build failure.
	ErrInvalidConfig = errors.New("invalid session manager config")
	// ErrInvalidBackingUser is returned when a valid session names a user the
	// UserProvider can no longer resolve.
	ErrInvalidBackingUser = errors.New("invalid backing user")
	// ErrCallbackTimeout is returned when a host callback exceeds Config.Callbacks.Timeout.
	ErrCallbackTimeout = errors.New("host callback timed out")
	// ErrEvaluationFailed is returned when an access check cannot resolve a usable level.
	ErrEvaluationFailed = errors.New("access evaluation failed")
	// ErrStoreUnavailable is returned for session store I/O failures.
	ErrStoreUnavailable = session.ErrStoreUnavailable
	// ErrNotReady is returned by methods called on a Manager that was not built.
	ErrNotReady = errors.New("session manager not initialized")
	// ErrSessionCreationFailed wraps failures to mint, persist or encode a new session.
	ErrSessionCreationFailed = errors.New("session creation failed")
)
