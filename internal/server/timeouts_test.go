package server

import (
	"net/http"
	"testing"
	"time"
)

func TestNewAppliesDefaults(t *testing.T) {
	s := New(":0", http.NotFoundHandler(), Timeouts{Write: 5 * time.Second})
	if s.ReadTimeout != DefaultRead || s.IdleTimeout != DefaultIdle {
		t.Errorf("defaults not applied: read %s idle %s", s.ReadTimeout, s.IdleTimeout)
	}
	if s.WriteTimeout != 5*time.Second {
		t.Errorf("WriteTimeout = %s, want 5s", s.WriteTimeout)
	}
	if s.ReadHeaderTimeout != DefaultRead/2 {
		t.Errorf("ReadHeaderTimeout = %s", s.ReadHeaderTimeout)
	}
}
