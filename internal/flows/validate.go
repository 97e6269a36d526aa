package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/token"
)

// ValidateFailureKind classifies validation failures for root-level mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureNoToken
	ValidateFailureDecode
	ValidateFailureNoSession
	ValidateFailureKeyMismatch
	ValidateFailureExpired
	ValidateFailureStore
	ValidateFailureUser
	ValidateFailureRenew
)

// Negative reports whether the failure is a normal "not signed in" outcome rather
// than an error the caller must see.
func (k ValidateFailureKind) Negative() bool {
	switch k {
	case ValidateFailureNoToken,
		ValidateFailureDecode,
		ValidateFailureNoSession,
		ValidateFailureKeyMismatch,
		ValidateFailureExpired:
		return true
	default:
		return false
	}
}

// ValidateDeps captures validation and auto-renew dependencies.
type ValidateDeps struct {
	Common
	AutoUpdate        bool
	AutoUpdateTimeout time.Duration
	// MultipleSessions keeps the shared key on renewal and only extends the expiry,
	// so other devices holding the key stay signed in.
	MultipleSessions bool
	// LoadUser resolves the backing identity. The flow treats the value as opaque.
	LoadUser func(ctx context.Context, userID string) (any, error)
}

// ValidateResult returns either the resolved identity or a classified failure.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error

	UserID string
	User   any
	Record session.Record

	// Token is the renewed token when Renewed is true.
	Token         string
	Renewed       bool
	RenewConflict bool
}

// RunValidate decodes tokenStr, checks it against the stored record and, when the
// record is past its renewal point, renews it with a compare-and-swap. Renewal
// rotates the key unless MultipleSessions is set.
func RunValidate(ctx context.Context, tokenStr string, deps ValidateDeps) ValidateResult {
	if tokenStr == "" {
		return ValidateResult{Failure: ValidateFailureNoToken}
	}

	payload, err := deps.Codec.Decode(tokenStr)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureDecode}
	}

	rec, ok, err := deps.Store.Get(ctx, payload.User)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureStore, Err: err, UserID: payload.User}
	}
	if !ok {
		return ValidateResult{Failure: ValidateFailureNoSession, UserID: payload.User}
	}

	now := deps.Now()
	if !rec.KeyMatches(payload.Key) {
		return ValidateResult{Failure: ValidateFailureKeyMismatch, UserID: payload.User}
	}
	if !rec.ValidAt(now, deps.MaxAge) {
		return ValidateResult{Failure: ValidateFailureExpired, UserID: payload.User}
	}

	user, err := deps.LoadUser(ctx, payload.User)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureUser, Err: err, UserID: payload.User}
	}

	res := ValidateResult{UserID: payload.User, User: user, Record: rec}
	if !deps.AutoUpdate || !renewDue(rec, now, deps.MaxAge, deps.AutoUpdateTimeout) {
		return res
	}

	key := rec.Key
	if !deps.MultipleSessions {
		key, err = deps.NewKey()
		if err != nil {
			return ValidateResult{Failure: ValidateFailureRenew, Err: err, UserID: payload.User}
		}
	}
	next := session.Record{OwnerID: payload.User, Key: key, ExpiresAt: now.Add(deps.MaxAge)}
	tok, err := deps.Codec.Encode(token.Payload{User: payload.User, Key: key})
	if err != nil {
		return ValidateResult{Failure: ValidateFailureRenew, Err: err, UserID: payload.User}
	}

	swapped, err := deps.Store.CompareAndSwap(ctx, payload.User, rec.Key, next)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureStore, Err: err, UserID: payload.User}
	}
	if !swapped {
		// A concurrent request renewed first; this request stays authenticated with
		// the key it presented.
		res.RenewConflict = true
		return res
	}

	res.Record = next
	res.Token = tok
	res.Renewed = true
	return res
}

// renewDue reports whether now is past creation time plus the renewal timeout.
// Creation time is recovered as ExpiresAt - maxAge.
func renewDue(rec session.Record, now time.Time, maxAge, timeout time.Duration) bool {
	return now.After(rec.ExpiresAt.Add(-maxAge).Add(timeout))
}

func (k ValidateFailureKind) String() string {
	switch k {
	case ValidateFailureNone:
		return "none"
	case ValidateFailureNoToken:
		return "no_token"
	case ValidateFailureDecode:
		return "decode"
	case ValidateFailureNoSession:
		return "no_session"
	case ValidateFailureKeyMismatch:
		return "key_mismatch"
	case ValidateFailureExpired:
		return "expired"
	case ValidateFailureStore:
		return "store"
	case ValidateFailureUser:
		return "user"
	case ValidateFailureRenew:
		return "renew"
	default:
		return "unknown"
	}
}
