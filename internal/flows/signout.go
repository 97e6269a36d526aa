package flows

import (
	"context"
)

// SignOutDeps captures sign-out and revocation dependencies.
type SignOutDeps struct {
	Common
}

type SignOutResult struct {
	UserID  string
	Decoded bool
	Err     error
}

// RunSignOut removes the record of the user named by tokenStr. Empty and undecodable
// tokens are a successful no-op.
func RunSignOut(ctx context.Context, tokenStr string, deps SignOutDeps) SignOutResult {
	if tokenStr == "" {
		return SignOutResult{}
	}
	payload, err := deps.Codec.Decode(tokenStr)
	if err != nil {
		return SignOutResult{}
	}
	return SignOutResult{
		UserID:  payload.User,
		Decoded: true,
		Err:     deps.Store.Remove(ctx, payload.User),
	}
}

// RunRevoke removes the record for userID unconditionally.
func RunRevoke(ctx context.Context, userID string, deps SignOutDeps) error {
	return deps.Store.Remove(ctx, userID)
}
