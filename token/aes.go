package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
)

const aesWireVersion byte = 1

// AESCodec encrypts payloads with AES-256-GCM.
//
// Wire layout before text rendering: [1-byte version][12-byte nonce][ciphertext+tag].
// Every Encode draws a fresh random nonce, so equal payloads never share a token.
type AESCodec struct {
	aead   cipher.AEAD
	format Format
}

// NewAESCodec derives the cipher key from secrets. An empty format means hex.
func NewAESCodec(secrets Secrets, format Format) (*AESCodec, error) {
	switch format {
	case "":
		format = FormatHex
	case FormatHex, FormatBase64:
	default:
		return nil, fmt.Errorf("unsupported token format %q", format)
	}

	key, err := deriveKey(secrets, infoAES)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &AESCodec{aead: aead, format: format}, nil
}

func (c *AESCodec) Encode(p Payload) (string, error) {
	plain, err := marshalPayload(p)
	if err != nil {
		return "", err
	}

	nonceSize := c.aead.NonceSize()
	out := make([]byte, 1+nonceSize, 1+nonceSize+len(plain)+c.aead.Overhead())
	out[0] = aesWireVersion
	if _, err := io.ReadFull(rand.Reader, out[1:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	out = c.aead.Seal(out, out[1:1+nonceSize], plain, out[:1])

	return c.render(out), nil
}

func (c *AESCodec) Decode(s string) (Payload, error) {
	raw, err := c.parse(s)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	nonceSize := c.aead.NonceSize()
	if len(raw) < 1+nonceSize+c.aead.Overhead() {
		return Payload{}, fmt.Errorf("%w: token too short", ErrDecode)
	}
	if raw[0] != aesWireVersion {
		return Payload{}, fmt.Errorf("%w: unknown version %d", ErrDecode, raw[0])
	}

	plain, err := c.aead.Open(nil, raw[1:1+nonceSize], raw[1+nonceSize:], raw[:1])
	if err != nil {
		return Payload{}, fmt.Errorf("%w: authentication failed", ErrDecode)
	}
	return unmarshalPayload(plain)
}

func (c *AESCodec) render(b []byte) string {
	if c.format == FormatBase64 {
		return base64.RawURLEncoding.EncodeToString(b)
	}
	return hex.EncodeToString(b)
}

func (c *AESCodec) parse(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("empty token")
	}
	var (
		raw []byte
		err error
	)
	if c.format == FormatBase64 {
		raw, err = base64.RawURLEncoding.Strict().DecodeString(s)
	} else {
		raw, err = hex.DecodeString(s)
	}
	if err != nil {
		return nil, err
	}
	// One canonical text form per token: no uppercase hex, no stray trailing bits.
	if c.render(raw) != s {
		return nil, fmt.Errorf("non-canonical token encoding")
	}
	return raw, nil
}
