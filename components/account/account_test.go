package account

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yanizio/panel/internal/auth"
	"github.com/yanizio/panel/internal/component"
	"github.com/yanizio/panel/internal/form"
	"github.com/yanizio/panel/internal/requestinfo"
	"github.com/yanizio/panel/internal/ua"
)

func newComp(t *testing.T) *Comp {
	t.Helper()
	csrf, err := form.NewCSRF(strings.Repeat("c", 32), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	c := &Comp{}
	if err := c.Init(&component.Resources{Tokens: csrf}); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestMe(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := auth.WithIdentity(r.Context(), auth.Identity{ID: 12, Name: "bob", Type: auth.TypeUser})
	ctx = requestinfo.WithInfo(ctx, &requestinfo.RequestInfo{
		UA:  ua.Agent{Browser: "Firefox", Version: "128", OS: "Linux"},
		Geo: requestinfo.Geo{IP: net.ParseIP("203.0.113.9"), CountryISO: "DE"},
	})
	rec := httptest.NewRecorder()
	newComp(t).Routes().ServeHTTP(rec, r.WithContext(ctx))

	var me Me
	if err := json.NewDecoder(rec.Body).Decode(&me); err != nil {
		t.Fatal(err)
	}
	if me.Name != "bob" || me.IP != "203.0.113.9" || me.Country != "DE" || me.Browser != "Firefox 128 on Linux" {
		t.Fatalf("me = %+v", me)
	}
}

func TestCSRFToken(t *testing.T) {
	c := newComp(t)
	rec := httptest.NewRecorder()
	c.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/csrf", nil))

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !c.csrf.Verify(body["token"]) || body["header"] != form.HeaderName {
		t.Fatalf("body = %v", body)
	}
}
