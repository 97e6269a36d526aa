// Package goSession issues opaque session tokens and validates them against a
// server-side session record on every request.
//
// A token names a user and a random session key. It is valid only while the store
// holds a record for that user with the same key and the current time falls inside
// the record's window of [ExpiresAt-MaxAge, ExpiresAt]. Signing out, revoking or
// renewing a session changes or removes the record, which invalidates every token
// minted against the old key.
//
// The package is designed for concurrent server workloads: Manager methods are safe
// to call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Manager], [Builder], [Config] and the
// host callback interfaces. Token encryption lives in package token, storage backends
// in package session and level checks in package access. Flow orchestration lives
// under internal/ and is never exported. Transport (cookies, headers) is optional and
// provided by package middleware; the Manager only sees token strings and an optional
// [TokenSink] on the request context.
//
// # What this package must NOT do
//
//   - Log or audit tokens or session keys.
//   - Sweep expired sessions implicitly. Hosts call [Manager.FreeSessions] or run a
//     [Sweeper].
//   - Import any sub-package that re-imports goSession (no import cycles).
package goSession
