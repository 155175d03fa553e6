// internal/requestinfo/requestinfo_test.go
//
// Run: go test ./internal/requestinfo -v

package requestinfo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.9:51234"
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	if got := clientIP(r, false).String(); got != "10.0.0.9" {
		t.Errorf("untrusted clientIP = %s", got)
	}
	if got := clientIP(r, true).String(); got != "203.0.113.7" {
		t.Errorf("trusted clientIP = %s", got)
	}

	r.Header.Del("X-Forwarded-For")
	r.Header.Set("X-Real-Ip", "198.51.100.4")
	if got := clientIP(r, true).String(); got != "198.51.100.4" {
		t.Errorf("X-Real-Ip clientIP = %s", got)
	}
}

func TestEnrichAttachesInfo(t *testing.T) {
	var got *RequestInfo
	h := Enrich(false)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodPost, "/client/mail/4/delete", nil)
	r.RemoteAddr = "192.0.2.10:4000"
	h.ServeHTTP(httptest.NewRecorder(), r)

	if got == nil {
		t.Fatal("RequestInfo missing from context")
	}
	if got.Geo.IP.String() != "192.0.2.10" || got.Path != "/client/mail/4/delete" {
		t.Fatalf("RequestInfo = %+v", got)
	}
	if got.Geo.CountryISO != "" {
		t.Fatalf("country resolved without a database: %q", got.Geo.CountryISO)
	}
}

func TestFromContextEmpty(t *testing.T) {
	if FromContext(context.Background()) != nil {
		t.Fatal("FromContext on a bare context returned a value")
	}
}

func TestInitGeoEmptyPath(t *testing.T) {
	if err := InitGeo(""); err != nil {
		t.Fatalf("InitGeo(\"\"): %v", err)
	}
	if err := InitGeo("/nonexistent/GeoLite2-Country.mmdb"); err == nil {
		t.Fatal("InitGeo accepted a missing file")
	}
}
