//
//  internal/requestinfo/requestinfo.go
//
//  Per-request metadata used by the audit trail: user-agent fingerprint,
//  client IP with an optional country lookup, and arrival time.  The structs
//  are inert, so they are safe to log or JSON-encode.
//
//  Dependencies
//  • internal/ua                         (UA parsing, avct/uasurfer)
//  • github.com/oschwald/geoip2-golang   (MaxMind lookup, optional)
//

package requestinfo

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/oschwald/geoip2-golang"

	"github.com/yanizio/panel/internal/ua"
)

// Geo holds IP-based hints.  Country is empty when no database is loaded.
type Geo struct {
	IP         net.IP
	CountryISO string
}

// RequestInfo is stored in the request context by Enrich.
type RequestInfo struct {
	UA        ua.Agent
	Geo       Geo
	Path      string
	Timestamp time.Time
}

//
//  -----------------------------
//  GeoLite2 reader
//  -----------------------------
//

var geoReader atomic.Pointer[geoip2.Reader]

// InitGeo opens a GeoLite2-Country or -City database.  An empty path leaves
// country lookups disabled.
func InitGeo(dbPath string) error {
	if dbPath == "" {
		return nil
	}
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return fmt.Errorf("requestinfo: open %s: %w", dbPath, err)
	}
	if old := geoReader.Swap(r); old != nil {
		_ = old.Close()
	}
	return nil
}

// CloseGeo releases the database handle, if any.
func CloseGeo() {
	if r := geoReader.Swap(nil); r != nil {
		_ = r.Close()
	}
}

func lookupGeo(ip net.IP) Geo {
	r := geoReader.Load()
	if r == nil || ip == nil {
		return Geo{IP: ip}
	}
	rec, err := r.Country(ip)
	if err != nil {
		return Geo{IP: ip}
	}
	return Geo{IP: ip, CountryISO: rec.Country.IsoCode}
}

//
//  -----------------------------
//  Context helpers
//  -----------------------------
//

type ctxKey struct{}

// WithInfo returns a copy of ctx carrying info.  Enrich uses it; tests and
// the CLI may too.
func WithInfo(ctx context.Context, info *RequestInfo) context.Context {
	return context.WithValue(ctx, ctxKey{}, info)
}

// FromContext returns the value stored by WithInfo, or nil.
func FromContext(ctx context.Context) *RequestInfo {
	v, _ := ctx.Value(ctxKey{}).(*RequestInfo)
	return v
}
