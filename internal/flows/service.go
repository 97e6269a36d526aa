package flows

import "context"

// Service is the centralized flow runner built once by the root Manager.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Validate.Codec != nil && s.deps.Validate.Store != nil
}

func (s Service) SignIn(ctx context.Context, userID string) (SignInResult, error) {
	return RunSignIn(ctx, userID, s.deps.SignIn)
}

func (s Service) Validate(ctx context.Context, tokenStr string) ValidateResult {
	return RunValidate(ctx, tokenStr, s.deps.Validate)
}

func (s Service) SignOut(ctx context.Context, tokenStr string) SignOutResult {
	return RunSignOut(ctx, tokenStr, s.deps.SignOut)
}

func (s Service) Revoke(ctx context.Context, userID string) error {
	return RunRevoke(ctx, userID, s.deps.SignOut)
}

func (s Service) Sweep(ctx context.Context) (SweepResult, error) {
	return RunSweep(ctx, s.deps.Sweep)
}
