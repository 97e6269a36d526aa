// Package session provides the server-side session record store used by goSession,
// with interchangeable backends behind a single [Store] interface.
//
// # Records
//
// A [Record] maps one owner (user id) to the current session key and its absolute
// expiry. The text form shared by the filesystem, Redis, and callback backends is
//
//	<base64-key>:<millis-since-epoch-expiry>
//
// Anything that does not split into exactly two fields, or whose expiry is not an
// integer, is a corrupt record and reads as absent.
//
// # Backends
//
//   - [FileStore]: one file per owner in a directory.
//   - [CallbackStore]: delegates to host-supplied functions.
//   - [RedisStore]: one key per owner with a PX TTL, Lua compare-and-swap.
//   - [SQLiteStore]: modernc.org/sqlite with embedded migrations.
//   - [PostgresStore]: pgx connection pool.
//
// # Architecture boundaries
//
// This package owns persistence only. It does NOT decode tokens, check freshness
// against a max age, or decide when to renew; those belong to the Manager.
//
// # What this package must NOT do
//
//   - Import goSession or token (no upward imports).
//   - Persist codec secrets or tokens.
//   - Return an error for an absent record; absence is (Record{}, false, nil).
package session
