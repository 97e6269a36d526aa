package middleware

import (
	"net/http"
	"strings"

	goSession "github.com/MrEthical07/goSession"
)

// Transport reads and writes session tokens according to a TokenConfig.
type Transport struct {
	cfg    goSession.TokenConfig
	maxAge int
}

// NewTransport builds a Transport from the token and session settings of cfg.
// Cookies live as long as a session.
func NewTransport(cfg goSession.Config) *Transport {
	return &Transport{
		cfg:    cfg.Token,
		maxAge: int(cfg.Session.MaxAge.Seconds()),
	}
}

// ReadToken returns the token presented by r, or "" when there is none. Header
// values may carry a "Bearer " prefix.
func (t *Transport) ReadToken(r *http.Request) string {
	if t.cfg.Mode == goSession.TokenModeHeader {
		v := strings.TrimSpace(r.Header.Get(t.cfg.Header))
		if tok, ok := bearerToken(v); ok {
			return tok
		}
		return v
	}

	c, err := r.Cookie(t.cfg.Name)
	if err != nil {
		return ""
	}
	return c.Value
}

// WriteToken hands tok to the client. An empty tok clears the cookie in cookie mode
// and sends an empty header in header mode.
func (t *Transport) WriteToken(w http.ResponseWriter, tok string) {
	if t.cfg.Mode == goSession.TokenModeHeader {
		w.Header().Set(t.cfg.Header, tok)
		return
	}

	c := &http.Cookie{
		Name:     t.cfg.Name,
		Value:    tok,
		Path:     t.cfg.CookiePath,
		Domain:   t.cfg.CookieDomain,
		Secure:   t.cfg.SecureCookie,
		HttpOnly: true,
		SameSite: t.cfg.SameSite,
		MaxAge:   t.maxAge,
	}
	if tok == "" {
		c.MaxAge = -1
	}
	http.SetCookie(w, c)
}

// Sink returns a TokenSink writing to w. Tokens must be written before the handler
// writes the response status.
func (t *Transport) Sink(w http.ResponseWriter) goSession.TokenSink {
	return goSession.TokenSinkFunc(func(tok string) {
		t.WriteToken(w, tok)
	})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
