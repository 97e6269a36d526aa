package token

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// ErrDecode is returned for every token that cannot be decoded into a valid payload.
var ErrDecode = errors.New("token decode failed")

// ErrMissingSecret is returned when a codec is built without both secrets.
var ErrMissingSecret = errors.New("token secrets are required")

// Payload is the content carried by a token.
type Payload struct {
	User string `json:"user"`
	Key  string `json:"key"`
}

func (p Payload) valid() bool {
	return p.User != "" && p.Key != ""
}

// Codec encodes payloads to opaque strings and decodes them back.
// Implementations are safe for concurrent use.
type Codec interface {
	Encode(p Payload) (string, error)
	Decode(s string) (Payload, error)
}

// Secrets is the configured secret pair. Key32 is the primary key material and Key16
// salts the derivation. Both must be non-empty.
type Secrets struct {
	Key32 string
	Key16 string
}

// Validate reports ErrMissingSecret when either secret is empty.
func (s Secrets) Validate() error {
	if s.Key32 == "" || s.Key16 == "" {
		return ErrMissingSecret
	}
	return nil
}

// Format selects the text rendering of binary tokens.
type Format string

const (
	FormatHex    Format = "hex"
	FormatBase64 Format = "base64"
)

// Kind names a codec implementation.
type Kind string

const (
	KindAES    Kind = "aes"
	KindJWT    Kind = "jwt"
	KindPaseto Kind = "paseto"
)

const (
	infoAES    = "goSession/token/aes-256-gcm/v1"
	infoJWT    = "goSession/token/jwt-hs256/v1"
	infoPaseto = "goSession/token/paseto-v4-local/v1"
)

// New builds the codec named by kind. format only affects the AES codec.
func New(kind Kind, secrets Secrets, format Format) (Codec, error) {
	switch kind {
	case KindAES, "":
		return NewAESCodec(secrets, format)
	case KindJWT:
		return NewJWTCodec(secrets)
	case KindPaseto:
		return NewPasetoCodec(secrets)
	default:
		return nil, fmt.Errorf("unsupported token codec %q", kind)
	}
}

// deriveKey expands the secret pair into a 32-byte key bound to info.
// The same secrets and info always yield the same key.
func deriveKey(secrets Secrets, info string) ([]byte, error) {
	if err := secrets.Validate(); err != nil {
		return nil, err
	}
	r := hkdf.New(sha256.New, []byte(secrets.Key32), []byte(secrets.Key16), []byte(info))
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive token key: %w", err)
	}
	return key, nil
}

func marshalPayload(p Payload) ([]byte, error) {
	if !p.valid() {
		return nil, errors.New("token payload requires user and key")
	}
	return json.Marshal(p)
}

func unmarshalPayload(raw []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if !p.valid() {
		return Payload{}, fmt.Errorf("%w: missing user or key", ErrDecode)
	}
	return p, nil
}
