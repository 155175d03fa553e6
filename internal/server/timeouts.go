// internal/server/timeouts.go
//
// HTTP server helper with robust timeouts.
//
// Production hardening recommends:
//
//   • ReadHeaderTimeout – abort slow-loris headers
//   • ReadTimeout       – cap time to read the whole request
//   • WriteTimeout      – cap total response time
//   • IdleTimeout       – close keep-alives on idle clients
//
// The values come from the `http` section of the configuration; zero fields
// fall back to the defaults below.
//

package server

import (
	"net/http"
	"time"
)

// Timeouts configures New.
type Timeouts struct {
	Read  time.Duration
	Write time.Duration
	Idle  time.Duration
}

// Defaults used for zero Timeouts fields.
const (
	DefaultRead  = 10 * time.Second
	DefaultWrite = 30 * time.Second
	DefaultIdle  = 60 * time.Second
)

// New constructs an *http.Server with hardened timeouts.
func New(addr string, handler http.Handler, t Timeouts) *http.Server {
	if t.Read <= 0 {
		t.Read = DefaultRead
	}
	if t.Write <= 0 {
		t.Write = DefaultWrite
	}
	if t.Idle <= 0 {
		t.Idle = DefaultIdle
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: t.Read / 2,
		ReadTimeout:       t.Read,
		WriteTimeout:      t.Write,
		IdleTimeout:       t.Idle,
		MaxHeaderBytes:    1 << 20,
	}
}
