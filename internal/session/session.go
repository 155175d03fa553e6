// internal/session/session.go
//
// Signed session cookies.
//
// Context
//   The panel's login page (outside this service) and this service share
//   one HMAC key.  A session cookie names the signed-in account and an
//   expiry, nothing else, so the value is safe to keep client-side:
//
//      base64url( accountID | unixExpiry | HMAC_SHA256(key, accountID+unixExpiry) )
//
//   Both integers are 8 bytes, big-endian.  Account type and name are read
//   from the database on each request (see internal/acl), so demoting or
//   deleting an account takes effect without revoking cookies.
//
// Workflow
//   •  Issue(w, id)       → sets the cookie.
//   •  AccountID(r)       → verifies signature and expiry.
//   •  Clear(w)           → expires the cookie.
//   •  Token(id)          → raw value, used by `panelctl session`.
//
//------------------------------------------------------------------------------

package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"net/http"
	"time"
)

const (
	// CookieName is shared with the login frontend.
	CookieName = "panel_session"

	payloadBytes = 8 + 8
	tokenBytes   = payloadBytes + sha256.Size
)

// ErrShortKey is returned by New for keys under 32 bytes.
var ErrShortKey = errors.New("session: key must be at least 32 bytes")

// Manager issues and verifies cookies.  Safe for concurrent use.
type Manager struct {
	key    []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// New returns a Manager.  secure marks cookies HTTPS-only.
func New(key string, ttl time.Duration, secure bool) (*Manager, error) {
	if len(key) < 32 {
		return nil, ErrShortKey
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Manager{key: []byte(key), ttl: ttl, secure: secure, now: time.Now}, nil
}

// Token returns a signed value for accountID valid for the manager's ttl.
func (m *Manager) Token(accountID int64) string {
	buf := make([]byte, payloadBytes, tokenBytes)
	binary.BigEndian.PutUint64(buf[:8], uint64(accountID))
	binary.BigEndian.PutUint64(buf[8:], uint64(m.now().Add(m.ttl).Unix()))
	return base64.RawURLEncoding.EncodeToString(append(buf, m.sign(buf)...))
}

// Issue sets the session cookie for accountID.
func (m *Manager) Issue(w http.ResponseWriter, accountID int64) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    m.Token(accountID),
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(m.ttl / time.Second),
	})
}

// Clear expires the session cookie.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
	})
}

// AccountID returns the account of a valid, unexpired cookie.
func (m *Manager) AccountID(r *http.Request) (int64, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return 0, false
	}
	return m.Verify(c.Value)
}

// Verify checks a raw token.
func (m *Manager) Verify(tok string) (int64, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) != tokenBytes {
		return 0, false
	}
	payload, sig := raw[:payloadBytes], raw[payloadBytes:]
	if !hmac.Equal(sig, m.sign(payload)) {
		return 0, false
	}
	exp := time.Unix(int64(binary.BigEndian.Uint64(payload[8:])), 0)
	if !m.now().Before(exp) {
		return 0, false
	}
	id := int64(binary.BigEndian.Uint64(payload[:8]))
	return id, id > 0
}

func (m *Manager) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, m.key)
	mac.Write(payload)
	return mac.Sum(nil)
}
