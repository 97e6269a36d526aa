package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type jwtClaims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// JWTCodec signs payloads as HS256 JWTs with sub=user, sid=key, a random jti and iat.
// The token is not encrypted: the session key is visible to the holder, which is
// acceptable only because it is useless without the matching server-side record.
type JWTCodec struct {
	key    []byte
	now    func() time.Time
	parser *jwt.Parser
}

// NewJWTCodec derives the HMAC key from secrets.
func NewJWTCodec(secrets Secrets) (*JWTCodec, error) {
	key, err := deriveKey(secrets, infoJWT)
	if err != nil {
		return nil, err
	}
	return &JWTCodec{
		key:    key,
		now:    time.Now,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}, nil
}

func (c *JWTCodec) Encode(p Payload) (string, error) {
	if !p.valid() {
		return "", fmt.Errorf("token payload requires user and key")
	}
	claims := jwtClaims{
		SID: p.Key,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  p.User,
			ID:       uuid.NewString(),
			IssuedAt: jwt.NewNumericDate(c.now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

func (c *JWTCodec) Decode(s string) (Payload, error) {
	if s == "" {
		return Payload{}, fmt.Errorf("%w: empty token", ErrDecode)
	}
	tok, err := c.parser.ParseWithClaims(s, &jwtClaims{}, func(*jwt.Token) (interface{}, error) {
		return c.key, nil
	})
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	claims, ok := tok.Claims.(*jwtClaims)
	if !ok || !tok.Valid {
		return Payload{}, fmt.Errorf("%w: invalid claims", ErrDecode)
	}

	p := Payload{User: claims.Subject, Key: claims.SID}
	if !p.valid() {
		return Payload{}, fmt.Errorf("%w: missing user or key", ErrDecode)
	}
	return p, nil
}
