package access

import (
	"context"
	"errors"
	"testing"
)

type recordingSink struct {
	decisions []Decision
}

func (s *recordingSink) Decided(_ context.Context, d Decision) {
	s.decisions = append(s.decisions, d)
}

func levelPtr(v int) *int { return &v }

func staticLevels(levels map[string]*int) LevelLookup {
	return LevelLookupFunc(func(_ context.Context, userID string) (*int, error) {
		return levels[userID], nil
	})
}

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name       string
		userID     string
		level      *int
		req        Requirement
		wantAccess bool
		wantReason int
		wantErr    error
	}{
		{name: "no user", req: RequireLevel(3), wantReason: ReasonNoAuthorization},
		{name: "no user any", req: AnyAuthenticated(), wantReason: ReasonNoAuthorization},
		{name: "any authenticated", userID: "u", req: AnyAuthenticated(), wantAccess: true},
		{name: "any authenticated without level", userID: "u", level: nil, req: Requirement{}, wantAccess: true},
		{name: "equal level", userID: "u", level: levelPtr(3), req: RequireLevel(3), wantAccess: true},
		{name: "more privileged", userID: "u", level: levelPtr(0), req: RequireLevel(3), wantAccess: true},
		{name: "less privileged", userID: "u", level: levelPtr(4), req: RequireLevel(3), wantReason: ReasonInsufficientRights},
		{name: "missing level", userID: "u", req: RequireLevel(3), wantErr: ErrNoLevel},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := Evaluate(tc.userID, tc.level, tc.req)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.Access != tc.wantAccess || d.ReasonID != tc.wantReason {
				t.Fatalf("got access=%v reason=%d, want access=%v reason=%d", d.Access, d.ReasonID, tc.wantAccess, tc.wantReason)
			}
		})
	}
}

func TestEvaluateDenyCarriesLevels(t *testing.T) {
	d, err := Evaluate("u", levelPtr(7), RequireLevel(2))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if d.UserLevel == nil || *d.UserLevel != 7 {
		t.Fatalf("deny must carry the observed level, got %v", d.UserLevel)
	}
	if d.RequiredLevel == nil || *d.RequiredLevel != 2 {
		t.Fatalf("deny must carry the required level, got %v", d.RequiredLevel)
	}
	if d.Reason != "insufficient rights" {
		t.Fatalf("unexpected reason %q", d.Reason)
	}
}

func TestEvaluatorCheckReportsDecisions(t *testing.T) {
	sink := &recordingSink{}
	ev := NewEvaluator(staticLevels(map[string]*int{
		"admin": levelPtr(0),
		"guest": levelPtr(9),
	}), sink)

	ctx := context.Background()
	if d, err := ev.Check(ctx, "admin", RequireLevel(1)); err != nil || !d.Access {
		t.Fatalf("admin should be granted: %+v %v", d, err)
	}
	if d, err := ev.Check(ctx, "guest", RequireLevel(1)); err != nil || d.Access {
		t.Fatalf("guest should be denied: %+v %v", d, err)
	}
	if d, err := ev.Check(ctx, "", AnyAuthenticated()); err != nil || d.Access {
		t.Fatalf("anonymous should be denied: %+v %v", d, err)
	}

	if len(sink.decisions) != 3 {
		t.Fatalf("expected 3 reported decisions, got %d", len(sink.decisions))
	}
	if sink.decisions[2].ReasonID != ReasonNoAuthorization {
		t.Fatalf("unexpected anonymous reason %d", sink.decisions[2].ReasonID)
	}
}

func TestEvaluatorCheckSkipsLookupWithoutLevel(t *testing.T) {
	calls := 0
	ev := NewEvaluator(LevelLookupFunc(func(context.Context, string) (*int, error) {
		calls++
		return nil, nil
	}), nil)

	d, err := ev.Check(context.Background(), "u", AnyAuthenticated())
	if err != nil || !d.Access {
		t.Fatalf("expected grant, got %+v %v", d, err)
	}
	if calls != 0 {
		t.Fatalf("lookup must not run for AnyAuthenticated, ran %d times", calls)
	}
}

func TestEvaluatorCheckErrors(t *testing.T) {
	sink := &recordingSink{}
	boom := errors.New("directory down")
	ev := NewEvaluator(LevelLookupFunc(func(_ context.Context, userID string) (*int, error) {
		if userID == "broken" {
			return nil, boom
		}
		return nil, nil
	}), sink)

	if _, err := ev.Check(context.Background(), "broken", RequireLevel(1)); !errors.Is(err, boom) {
		t.Fatalf("expected lookup error, got %v", err)
	}
	if _, err := ev.Check(context.Background(), "nolevel", RequireLevel(1)); !errors.Is(err, ErrNoLevel) {
		t.Fatalf("expected ErrNoLevel, got %v", err)
	}
	if len(sink.decisions) != 0 {
		t.Fatalf("errors must not be reported as decisions, got %d", len(sink.decisions))
	}

	if _, err := NewEvaluator(nil, nil).Check(context.Background(), "u", RequireLevel(1)); !errors.Is(err, ErrNoLevel) {
		t.Fatalf("missing lookup must fail with ErrNoLevel, got %v", err)
	}
}
