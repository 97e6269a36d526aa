// Package token turns a (user id, session key) pair into an opaque client-held string
// and back.
//
// Three codecs share the [Codec] interface:
//
//   - AES-256-GCM ([NewAESCodec]), the default. Encrypted, hex or base64 rendered.
//   - HS256 JWT ([NewJWTCodec]). Signed only; the payload is readable by the client.
//   - PASETO v4.local ([NewPasetoCodec]). Encrypted and authenticated.
//
// Key material for every codec is derived from the configured [Secrets] with
// HKDF-SHA256, using a distinct info label per codec, so one secret pair never yields
// the same key for two algorithms.
//
// Codecs carry no expiry. Whether a decoded payload still names a live session is
// decided against the server-side record, never by the token itself.
//
// Every decode failure (bad encoding, tampering, wrong key, malformed payload) is
// reported as [ErrDecode] and must be treated by callers as "no valid session".
package token
