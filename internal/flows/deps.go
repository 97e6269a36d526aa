package flows

import (
	"time"

	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/token"
)

// Deps groups flow dependency sets. The root Manager builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	SignIn   SignInDeps
	Validate ValidateDeps
	SignOut  SignOutDeps
	Sweep    SweepDeps
}

// Common is the wiring every flow shares.
type Common struct {
	Codec  token.Codec
	Store  session.Store
	Now    func() time.Time
	NewKey func() (string, error)
	MaxAge time.Duration
}
