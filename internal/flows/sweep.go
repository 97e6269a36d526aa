package flows

import (
	"context"
)

// SweepDeps captures garbage-collection dependencies.
type SweepDeps struct {
	Common
	// Wait paces removals. Nil means unpaced.
	Wait func(ctx context.Context) error
	// OnFailure observes per-owner failures. The sweep continues past them.
	OnFailure func(ownerID string, err error)
}

// SweepResult counts what a sweep did.
type SweepResult struct {
	Scanned int
	Removed int
	Failed  int
}

// RunSweep lists every owner and removes records that are expired or unreadable.
// A failure on one owner does not stop the sweep; a List failure or a cancelled
// context does, returning what was done so far.
func RunSweep(ctx context.Context, deps SweepDeps) (SweepResult, error) {
	var res SweepResult

	owners, err := deps.Store.List(ctx)
	if err != nil {
		return res, err
	}

	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Scanned++

		rec, ok, err := deps.Store.Get(ctx, owner)
		if err != nil {
			res.Failed++
			deps.failure(owner, err)
			continue
		}
		// Listed but unreadable means corrupt (or removed meanwhile); both are safe to drop.
		if ok && !rec.ExpiresAt.Before(deps.Now()) {
			continue
		}

		if deps.Wait != nil {
			if err := deps.Wait(ctx); err != nil {
				return res, err
			}
		}
		if err := deps.Store.Remove(ctx, owner); err != nil {
			res.Failed++
			deps.failure(owner, err)
			continue
		}
		res.Removed++
	}

	return res, nil
}

func (d SweepDeps) failure(owner string, err error) {
	if d.OnFailure != nil {
		d.OnFailure(owner, err)
	}
}
