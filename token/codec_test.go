package token

import (
	"errors"
	"strings"
	"testing"
)

var testSecrets = Secrets{
	Key32: "0123456789abcdef0123456789abcdef",
	Key16: "0123456789abcdef",
}

func allCodecs(t *testing.T, secrets Secrets) map[string]Codec {
	t.Helper()
	aesHex, err := NewAESCodec(secrets, FormatHex)
	if err != nil {
		t.Fatalf("aes hex: %v", err)
	}
	aesB64, err := NewAESCodec(secrets, FormatBase64)
	if err != nil {
		t.Fatalf("aes base64: %v", err)
	}
	jwtCodec, err := NewJWTCodec(secrets)
	if err != nil {
		t.Fatalf("jwt: %v", err)
	}
	pasetoCodec, err := NewPasetoCodec(secrets)
	if err != nil {
		t.Fatalf("paseto: %v", err)
	}
	return map[string]Codec{
		"aes-hex":    aesHex,
		"aes-base64": aesB64,
		"jwt":        jwtCodec,
		"paseto":     pasetoCodec,
	}
}

func TestCodecRoundTrip(t *testing.T) {
	payloads := []Payload{
		{User: "alice", Key: "a2V5LWFsaWNl"},
		{User: "42", Key: "+/=="},
		{User: "user:with:colons", Key: strings.Repeat("k", 64)},
		{User: "ユーザー", Key: "ключ"},
	}

	for name, codec := range allCodecs(t, testSecrets) {
		t.Run(name, func(t *testing.T) {
			for _, p := range payloads {
				tok, err := codec.Encode(p)
				if err != nil {
					t.Fatalf("encode %+v: %v", p, err)
				}
				got, err := codec.Decode(tok)
				if err != nil {
					t.Fatalf("decode %+v: %v", p, err)
				}
				if got != p {
					t.Fatalf("round trip mismatch: got %+v want %+v", got, p)
				}
			}
		})
	}
}

func TestCodecSameSecretsInteroperate(t *testing.T) {
	a, _ := NewAESCodec(testSecrets, FormatHex)
	b, _ := NewAESCodec(testSecrets, FormatHex)

	tok, err := a.Encode(Payload{User: "alice", Key: "k"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := b.Decode(tok); err != nil {
		t.Fatalf("codec with identical secrets must decode: %v", err)
	}
}

func TestCodecWrongSecretsRejected(t *testing.T) {
	other := Secrets{Key32: testSecrets.Key32, Key16: "fedcba9876543210"}
	mine := allCodecs(t, testSecrets)
	theirs := allCodecs(t, other)

	for name, codec := range mine {
		t.Run(name, func(t *testing.T) {
			tok, err := codec.Encode(Payload{User: "alice", Key: "k"})
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if _, err := theirs[name].Decode(tok); !errors.Is(err, ErrDecode) {
				t.Fatalf("expected ErrDecode with different secrets, got %v", err)
			}
		})
	}
}

func TestCodecTamperRejected(t *testing.T) {
	for name, codec := range allCodecs(t, testSecrets) {
		t.Run(name, func(t *testing.T) {
			tok, err := codec.Encode(Payload{User: "alice", Key: "k"})
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			// The final character of unpadded base64 may only carry discarded bits.
			for i := 0; i < len(tok)-1; i++ {
				tampered := []byte(tok)
				tampered[i] = flipChar(tampered[i])
				if got, err := codec.Decode(string(tampered)); err == nil {
					t.Fatalf("tampered byte %d decoded to %+v", i, got)
				}
			}
		})
	}
}

func TestAESCodecRejectsAlteredText(t *testing.T) {
	p := Payload{User: "alice", Key: "k"}

	hexCodec, _ := NewAESCodec(testSecrets, FormatHex)
	hexTok, _ := hexCodec.Encode(p)
	upper := strings.ToUpper(hexTok)
	if upper == hexTok {
		t.Fatal("hex token has no letters to change case")
	}
	if _, err := hexCodec.Decode(upper); !errors.Is(err, ErrDecode) {
		t.Fatalf("uppercased hex token: expected ErrDecode, got %v", err)
	}
	for i := 0; i < len(hexTok); i++ {
		c := hexTok[i]
		if c < 'a' || c > 'f' {
			continue
		}
		altered := hexTok[:i] + string(c-'a'+'A') + hexTok[i+1:]
		if _, err := hexCodec.Decode(altered); !errors.Is(err, ErrDecode) {
			t.Fatalf("case change at %d: expected ErrDecode, got %v", i, err)
		}
	}

	b64Codec, _ := NewAESCodec(testSecrets, FormatBase64)
	b64Tok, _ := b64Codec.Encode(p)
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	last := b64Tok[len(b64Tok)-1]
	for i := 0; i < len(alphabet); i++ {
		if alphabet[i] == last {
			continue
		}
		altered := b64Tok[:len(b64Tok)-1] + string(alphabet[i])
		if got, err := b64Codec.Decode(altered); !errors.Is(err, ErrDecode) {
			t.Fatalf("last character %q: decoded to %+v, err %v", alphabet[i], got, err)
		}
	}
}

func TestCodecRejectsGarbage(t *testing.T) {
	inputs := []string{"", "zz", "00", "not a token", strings.Repeat("0", 200), "a.b.c", "v4.local.AAAA"}
	for name, codec := range allCodecs(t, testSecrets) {
		t.Run(name, func(t *testing.T) {
			for _, in := range inputs {
				if _, err := codec.Decode(in); !errors.Is(err, ErrDecode) {
					t.Fatalf("input %q: expected ErrDecode, got %v", in, err)
				}
			}
		})
	}
}

func TestCodecRefusesIncompletePayload(t *testing.T) {
	for name, codec := range allCodecs(t, testSecrets) {
		t.Run(name, func(t *testing.T) {
			if _, err := codec.Encode(Payload{User: "alice"}); err == nil {
				t.Fatal("expected error for missing key")
			}
			if _, err := codec.Encode(Payload{Key: "k"}); err == nil {
				t.Fatal("expected error for missing user")
			}
		})
	}
}

func TestAESCodecRandomNonce(t *testing.T) {
	codec, _ := NewAESCodec(testSecrets, FormatBase64)
	p := Payload{User: "alice", Key: "k"}
	a, _ := codec.Encode(p)
	b, _ := codec.Encode(p)
	if a == b {
		t.Fatal("equal payloads must not produce equal tokens")
	}
}

func TestAESCodecFormats(t *testing.T) {
	hexCodec, _ := NewAESCodec(testSecrets, FormatHex)
	b64Codec, _ := NewAESCodec(testSecrets, FormatBase64)
	p := Payload{User: "alice", Key: "k"}

	hexTok, _ := hexCodec.Encode(p)
	if strings.Trim(hexTok, "0123456789abcdef") != "" {
		t.Fatalf("hex token contains non-hex characters: %q", hexTok)
	}
	b64Tok, _ := b64Codec.Encode(p)
	if strings.ContainsAny(b64Tok, "+/=") {
		t.Fatalf("base64 token must be URL-safe and unpadded: %q", b64Tok)
	}

	if _, err := b64Codec.Decode(hexTok); err == nil {
		t.Fatal("base64 codec must not accept hex token")
	}
}

func TestNewRequiresSecrets(t *testing.T) {
	cases := []Secrets{{}, {Key32: "x"}, {Key16: "y"}}
	for _, s := range cases {
		for _, kind := range []Kind{KindAES, KindJWT, KindPaseto} {
			if _, err := New(kind, s, FormatHex); !errors.Is(err, ErrMissingSecret) {
				t.Fatalf("kind %s secrets %+v: expected ErrMissingSecret, got %v", kind, s, err)
			}
		}
	}
}

func TestNewRejectsUnknownKindAndFormat(t *testing.T) {
	if _, err := New("rot13", testSecrets, FormatHex); err == nil {
		t.Fatal("expected error for unknown codec")
	}
	if _, err := NewAESCodec(testSecrets, "octal"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestDeriveKeyDeterministicAndLabelled(t *testing.T) {
	a, err := deriveKey(testSecrets, infoAES)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	b, _ := deriveKey(testSecrets, infoAES)
	c, _ := deriveKey(testSecrets, infoJWT)
	if string(a) != string(b) {
		t.Fatal("derivation must be deterministic")
	}
	if string(a) == string(c) {
		t.Fatal("different codecs must derive different keys")
	}
	if len(a) != 32 {
		t.Fatalf("expected 32-byte key, got %d", len(a))
	}
}

// flipChar swaps a token character for a different one from the same alphabet so
// the change survives text decoding and reaches authentication.
func flipChar(c byte) byte {
	switch {
	case c == '0':
		return '1'
	case c >= '1' && c <= '9':
		return '0'
	case c == 'a':
		return 'b'
	case c >= 'b' && c <= 'z':
		return 'a'
	case c == 'A':
		return 'B'
	case c >= 'B' && c <= 'Z':
		return 'A'
	case c == '-':
		return '_'
	case c == '_':
		return '-'
	case c == '.':
		return '-'
	default:
		return 'x'
	}
}
