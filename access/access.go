package access

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoLevel is returned when a level is required but the user has none.
var ErrNoLevel = errors.New("user has no usable access level")

const (
	// ReasonNoAuthorization marks a denial for a request without an authenticated user.
	ReasonNoAuthorization = 1
	// ReasonInsufficientRights marks a denial for a user whose level is too high.
	ReasonInsufficientRights = 2
)

const (
	reasonNoAuthorization    = "no authorization"
	reasonInsufficientRights = "insufficient rights"
)

// Requirement is the level a request must satisfy. The zero value admits any
// authenticated user.
type Requirement struct {
	level int
	set   bool
}

// AnyAuthenticated admits every authenticated user.
func AnyAuthenticated() Requirement {
	return Requirement{}
}

// RequireLevel admits users whose level is at most level.
func RequireLevel(level int) Requirement {
	return Requirement{level: level, set: true}
}

// Level returns the required level and whether one is set.
func (r Requirement) Level() (int, bool) {
	return r.level, r.set
}

// Decision is the outcome of one check.
type Decision struct {
	Access   bool
	UserID   string
	ReasonID int
	Reason   string

	// UserLevel is the observed level, set whenever one was looked up.
	UserLevel     *int
	RequiredLevel *int
}

// LevelLookup resolves a user's numeric level. A nil level means none is assigned.
type LevelLookup interface {
	LevelOf(ctx context.Context, userID string) (*int, error)
}

// LevelLookupFunc adapts a function to LevelLookup.
type LevelLookupFunc func(ctx context.Context, userID string) (*int, error)

func (f LevelLookupFunc) LevelOf(ctx context.Context, userID string) (*int, error) {
	return f(ctx, userID)
}

// EventSink receives every decision an Evaluator makes.
type EventSink interface {
	Decided(ctx context.Context, d Decision)
}

// Evaluator checks requirements against levels from a LevelLookup.
type Evaluator struct {
	lookup LevelLookup
	sink   EventSink
}

// NewEvaluator returns an evaluator. sink may be nil.
func NewEvaluator(lookup LevelLookup, sink EventSink) *Evaluator {
	return &Evaluator{lookup: lookup, sink: sink}
}

// Check decides whether userID satisfies req. An empty userID is denied. The lookup
// is consulted only when req sets a level.
//
// A lookup failure or a missing level is an error, not a denial, and is not reported
// to the sink.
func (e *Evaluator) Check(ctx context.Context, userID string, req Requirement) (Decision, error) {
	var level *int
	if _, needed := req.Level(); needed && userID != "" {
		if e.lookup == nil {
			return Decision{}, fmt.Errorf("%w: no level lookup configured", ErrNoLevel)
		}
		l, err := e.lookup.LevelOf(ctx, userID)
		if err != nil {
			return Decision{}, fmt.Errorf("level lookup: %w", err)
		}
		level = l
	}
	return e.Report(ctx, userID, level, req)
}

// Report evaluates an already known level and reports the decision to the sink.
func (e *Evaluator) Report(ctx context.Context, userID string, level *int, req Requirement) (Decision, error) {
	d, err := Evaluate(userID, level, req)
	if err != nil {
		return d, err
	}
	if e != nil && e.sink != nil {
		e.sink.Decided(ctx, d)
	}
	return d, nil
}

// Evaluate is the pure decision rule.
func Evaluate(userID string, level *int, req Requirement) (Decision, error) {
	if userID == "" {
		return Decision{
			ReasonID: ReasonNoAuthorization,
			Reason:   reasonNoAuthorization,
		}, nil
	}

	required, ok := req.Level()
	if !ok {
		return Decision{Access: true, UserID: userID, UserLevel: copyLevel(level)}, nil
	}
	if level == nil {
		return Decision{}, ErrNoLevel
	}

	d := Decision{
		UserID:        userID,
		UserLevel:     copyLevel(level),
		RequiredLevel: &required,
	}
	if *level <= required {
		d.Access = true
		return d, nil
	}
	d.ReasonID = ReasonInsufficientRights
	d.Reason = reasonInsufficientRights
	return d, nil
}

func copyLevel(level *int) *int {
	if level == nil {
		return nil
	}
	v := *level
	return &v
}
