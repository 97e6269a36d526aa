package flows

import (
	"context"

	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/token"
)

// SignInDeps captures sign-in flow dependencies.
type SignInDeps struct {
	Common
	MultipleSessions bool
}

// SignInResult carries the issued token and the record it is bound to.
type SignInResult struct {
	Token  string
	Record session.Record
	Reused bool
}

// RunSignIn issues a token for an already authenticated userID.
//
// With MultipleSessions a live record is reused so other holders of the same key stay
// signed in. Otherwise a fresh key replaces whatever record the user had.
func RunSignIn(ctx context.Context, userID string, deps SignInDeps) (SignInResult, error) {
	now := deps.Now()

	if deps.MultipleSessions {
		current, ok, err := deps.Store.Get(ctx, userID)
		if err != nil {
			return SignInResult{}, err
		}
		if ok && current.ValidAt(now, deps.MaxAge) {
			tok, err := deps.Codec.Encode(token.Payload{User: userID, Key: current.Key})
			if err != nil {
				return SignInResult{}, err
			}
			return SignInResult{Token: tok, Record: current, Reused: true}, nil
		}
	}

	key, err := deps.NewKey()
	if err != nil {
		return SignInResult{}, err
	}
	rec := session.Record{
		OwnerID:   userID,
		Key:       key,
		ExpiresAt: now.Add(deps.MaxAge),
	}

	tok, err := deps.Codec.Encode(token.Payload{User: userID, Key: key})
	if err != nil {
		return SignInResult{}, err
	}
	if err := deps.Store.Set(ctx, rec); err != nil {
		return SignInResult{}, err
	}

	return SignInResult{Token: tok, Record: rec}, nil
}
