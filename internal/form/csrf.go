// internal/form/csrf.go
//
// Stateless CSRF tokens for the JSON API.
//
// Context
//   The panel frontend fetches a token from GET /api/csrf and echoes it in
//   the X-CSRF-Token header of every state-changing request.  Tokens are
//   stateless:
//
//      base64url( nonce | unixMicro | HMAC_SHA256(key, nonce+unixMicro) )
//
//   •  nonce – 16 random bytes.
//   •  unixMicro – issue time, 8 bytes, big-endian.
//   •  HMAC – keyed with http.csrf_key from the configuration.
//
//   Any instance holding the key can verify a token, so nothing is stored
//   server-side.
//
// Workflow
//   •  Token()          → returns a fresh token.
//   •  Verify(tok)      → constant-time verify; false on any failure.
//   •  RequireCSRF      → rejects unsafe methods without a valid header.
//
//------------------------------------------------------------------------------

package form

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"net/http"
	"time"
)

const (
	tokenBytes = 16 + 8 + sha256.Size // nonce + ts + sig

	// HeaderName carries the token on unsafe requests.
	HeaderName = "X-CSRF-Token"

	// DefaultMaxAge is the token validity window.
	DefaultMaxAge = 2 * time.Hour
)

// ErrShortKey is returned by NewCSRF for keys under 32 bytes.
var ErrShortKey = errors.New("form: csrf key must be at least 32 bytes")

// CSRF issues and verifies tokens under one key.
type CSRF struct {
	key    []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewCSRF returns a CSRF keyed with key.
func NewCSRF(key string, maxAge time.Duration) (*CSRF, error) {
	if len(key) < 32 {
		return nil, ErrShortKey
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &CSRF{key: []byte(key), maxAge: maxAge, now: time.Now}, nil
}

// Token creates a new CSRF token.
func (c *CSRF) Token() (string, error) {
	buf := make([]byte, 16+8, tokenBytes)
	if _, err := rand.Read(buf[:16]); err != nil {
		return "", err
	}
	binary.BigEndian.PutUint64(buf[16:24], uint64(c.now().UnixMicro()))
	return base64.RawURLEncoding.EncodeToString(append(buf, c.sign(buf)...)), nil
}

// Verify returns true if tok passes HMAC and age checks.
func (c *CSRF) Verify(tok string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) != tokenBytes {
		return false
	}
	payload, sig := raw[:24], raw[24:]

	issued := time.UnixMicro(int64(binary.BigEndian.Uint64(payload[16:])))
	now := c.now()
	if now.Sub(issued) > c.maxAge || issued.Sub(now) > time.Minute {
		// Expired, or from the future beyond clock skew.
		return false
	}
	return hmac.Equal(sig, c.sign(payload))
}

func (c *CSRF) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, c.key)
	mac.Write(payload)
	return mac.Sum(nil)
}

// RequireCSRF rejects POST, PUT, PATCH, and DELETE requests whose
// X-CSRF-Token header is missing or invalid.
func (c *CSRF) RequireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		if tok := r.Header.Get(HeaderName); tok == "" || !c.Verify(tok) {
			http.Error(w, "Security token invalid.  Please refresh and try again.", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
