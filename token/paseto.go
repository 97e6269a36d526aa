package token

import (
	"fmt"
	"time"

	paseto "aidanwoods.dev/go-paseto"
)

// PasetoCodec encrypts payloads as PASETO v4.local tokens with claims uid and sk.
type PasetoCodec struct {
	key paseto.V4SymmetricKey
	now func() time.Time
}

// NewPasetoCodec derives the symmetric key from secrets.
func NewPasetoCodec(secrets Secrets) (*PasetoCodec, error) {
	raw, err := deriveKey(secrets, infoPaseto)
	if err != nil {
		return nil, err
	}
	key, err := paseto.V4SymmetricKeyFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("paseto key: %w", err)
	}
	return &PasetoCodec{key: key, now: time.Now}, nil
}

func (c *PasetoCodec) Encode(p Payload) (string, error) {
	if !p.valid() {
		return "", fmt.Errorf("token payload requires user and key")
	}
	tok := paseto.NewToken()
	tok.SetIssuedAt(c.now())
	tok.SetString("uid", p.User)
	tok.SetString("sk", p.Key)
	return tok.V4Encrypt(c.key, nil), nil
}

func (c *PasetoCodec) Decode(s string) (Payload, error) {
	if s == "" {
		return Payload{}, fmt.Errorf("%w: empty token", ErrDecode)
	}

	// Expiry lives in the session record, not the token.
	parser := paseto.NewParserWithoutExpiryCheck()
	parsed, err := parser.ParseV4Local(c.key, s, nil)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	uid, err := parsed.GetString("uid")
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	sk, err := parsed.GetString("sk")
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	p := Payload{User: uid, Key: sk}
	if !p.valid() {
		return Payload{}, fmt.Errorf("%w: missing user or key", ErrDecode)
	}
	return p, nil
}
