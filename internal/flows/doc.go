// Package flows contains pure-function orchestrators for every Manager operation.
//
// Each flow function (RunSignIn, RunValidate, RunSignOut, RunSweep) accepts a typed
// dependency struct and returns a classified result without side-effects beyond those
// dependencies. The root Manager maps results onto errors, audit events and metrics.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the token codec, the session store and the
// host's user lookup. They do NOT own any of these resources; ownership stays with the
// Manager.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goSession (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency interfaces.
package flows
