// Package password verifies sign-in credentials against Argon2id hashes.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Authenticator] plugs into goSession.Builder.WithAuthenticator. It looks up the
// stored hash through a [CredentialLookup], verifies the password and, when the
// lookup also implements [Rehasher], replaces hashes made with weaker parameters.
//
// Plaintext passwords are never stored or logged.
package password
