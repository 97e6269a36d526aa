package goSession

import (
	"context"

	"github.com/MrEthical07/goSession/session"
)

// User is the identity a UserProvider resolves. Only ID is interpreted by the
// Manager; Level is consulted by access checks and Data is carried through untouched.
type User struct {
	ID    string
	Level *int
	Data  any
}

// UserProvider resolves users by id. Returning (nil, nil) means the user no longer
// exists.
type UserProvider interface {
	GetUserByID(ctx context.Context, userID string) (*User, error)
}

// UserProviderFunc adapts a function to UserProvider.
type UserProviderFunc func(ctx context.Context, userID string) (*User, error)

func (f UserProviderFunc) GetUserByID(ctx context.Context, userID string) (*User, error) {
	return f(ctx, userID)
}

// Authenticator verifies host credentials. An empty user id with a nil error means
// the credentials were rejected.
type Authenticator interface {
	Authenticate(ctx context.Context, credentials any) (string, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, credentials any) (string, error)

func (f AuthenticatorFunc) Authenticate(ctx context.Context, credentials any) (string, error) {
	return f(ctx, credentials)
}

// SignOutHandler is an optional host hook run before the session is removed.
type SignOutHandler interface {
	SignOut(ctx context.Context, credentials any) error
}

// SignOutHandlerFunc adapts a function to SignOutHandler.
type SignOutHandlerFunc func(ctx context.Context, credentials any) error

func (f SignOutHandlerFunc) SignOut(ctx context.Context, credentials any) error {
	return f(ctx, credentials)
}

// TokenSink receives tokens the Manager issues while handling a request. An empty
// token means the client should drop the one it holds.
type TokenSink interface {
	SetToken(token string)
}

// TokenSinkFunc adapts a function to TokenSink.
type TokenSinkFunc func(token string)

func (f TokenSinkFunc) SetToken(token string) {
	f(token)
}

// Validation is the result of a successful Validate.
type Validation struct {
	User *User
	// Token is the token the client should hold after this request. It differs from
	// the presented token only when Renewed is true.
	Token   string
	Renewed bool
	Record  session.Record
}

// SweepReport summarizes one FreeSessions run.
type SweepReport struct {
	Scanned int
	Removed int
	Failed  int
}
