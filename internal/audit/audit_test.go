// internal/audit/audit_test.go
//
// Run: go test ./internal/audit -v

package audit

import (
	"context"
	"net"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yanizio/panel/internal/auth"
	"github.com/yanizio/panel/internal/requestinfo"
	"github.com/yanizio/panel/internal/ua"
)

func TestRecordCarriesActorAndRequest(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	ctx := auth.WithIdentity(context.Background(), auth.Identity{ID: 7, Name: "reseller1", Type: auth.TypeReseller})
	ctx = requestinfo.WithInfo(ctx, &requestinfo.RequestInfo{
		Geo: requestinfo.Geo{IP: net.ParseIP("203.0.113.9"), CountryISO: "FR"},
		UA:  ua.Agent{Browser: "Firefox", Version: "128.0", OS: "Linux"},
	})

	Record(ctx, "scheduled deletion of customer account: %s", "bob")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log lines, want 1", len(entries))
	}
	e := entries[0]
	if e.Message != "reseller1: scheduled deletion of customer account: bob" {
		t.Errorf("message = %q", e.Message)
	}
	fields := e.ContextMap()
	if fields["country"] != "FR" || fields["ip"] != "203.0.113.9" || fields["actor_type"] != "reseller" ||
		fields["browser"] != "Firefox 128 on Linux" {
		t.Errorf("fields = %v", fields)
	}
}

func TestRecordWithoutIdentity(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	Record(context.Background(), "sent daemon request")

	if got := logs.All()[0].Message; got != "system: sent daemon request" {
		t.Fatalf("message = %q", got)
	}
}
