// internal/session/session_test.go
//
// Run: go test ./internal/session -v

package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

var testKey = strings.Repeat("s", 32)

func TestNewRejectsShortKey(t *testing.T) {
	if _, err := New("short", time.Hour, true); err != ErrShortKey {
		t.Fatalf("err = %v, want ErrShortKey", err)
	}
}

func TestIssueAndRead(t *testing.T) {
	m, err := New(testKey, time.Hour, true)
	if err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	m.Issue(rec, 42)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		r.AddCookie(c)
	}
	id, ok := m.AccountID(r)
	if !ok || id != 42 {
		t.Fatalf("AccountID = %d, %v", id, ok)
	}
}

func TestVerifyRejectsTamperingAndExpiry(t *testing.T) {
	m, _ := New(testKey, time.Minute, false)
	now := time.Unix(1_700_000_000, 0)
	m.now = func() time.Time { return now }
	tok := m.Token(7)

	other, _ := New(strings.Repeat("x", 32), time.Minute, false)
	other.now = m.now
	if _, ok := other.Verify(tok); ok {
		t.Error("token verified under a different key")
	}
	if _, ok := m.Verify(tok[:len(tok)-2] + "AA"); ok {
		t.Error("tampered token verified")
	}
	if _, ok := m.Verify("not-base64!"); ok {
		t.Error("garbage verified")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := m.Verify(tok); ok {
		t.Error("expired token verified")
	}
}

func TestAccountIDWithoutCookie(t *testing.T) {
	m, _ := New(testKey, time.Hour, false)
	if _, ok := m.AccountID(httptest.NewRequest(http.MethodGet, "/", nil)); ok {
		t.Fatal("AccountID succeeded without a cookie")
	}
}
