// cmd/web/main.go
//
// Panel API – HTTP entry point.
//
// Request life-cycle
// ------------------
//
//  1. Bootstrap config, logger, database, task store, dispatcher, and the
//     provisioning service (internal/app).
//
//  2. Ensure daemon_task exists and load the optional GeoLite2 database.
//
//  3. Initialise every registered component with the shared resources.
//
//  4. Build the router:
//
//     • request id, panic recovery, request logger
//     • security headers, HTTPS redirect
//     • request info (UA, client IP, country)
//     • /metrics                  – Prometheus
//     • public components         – /healthz
//     • session → identity → CSRF – every other component at /<name>
//
//  5. Run the HTTP server and the dispatcher loop in one errgroup.  SIGINT
//     or SIGTERM cancels both; the server drains for up to 15 seconds.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/panel/internal/acl"
	"github.com/yanizio/panel/internal/app"
	"github.com/yanizio/panel/internal/component"
	"github.com/yanizio/panel/internal/form"
	"github.com/yanizio/panel/internal/middleware"
	"github.com/yanizio/panel/internal/requestinfo"
	"github.com/yanizio/panel/internal/server"
	"github.com/yanizio/panel/internal/session"

	_ "github.com/yanizio/panel/components/account"
	_ "github.com/yanizio/panel/components/customers"
	_ "github.com/yanizio/panel/components/debugger"
	_ "github.com/yanizio/panel/components/domains"
	_ "github.com/yanizio/panel/components/ftp"
	_ "github.com/yanizio/panel/components/healthz"
	_ "github.com/yanizio/panel/components/mail"
	_ "github.com/yanizio/panel/components/protected"
	_ "github.com/yanizio/panel/components/sqldb"
)

const shutdownGrace = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "panel:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//
	// ── 1.  Bootstrap ───────────────────────────────────────────────────
	//
	a, err := app.New(ctx, app.InTTY())
	if err != nil {
		return err
	}
	defer a.Close()
	cfg, log := a.Config, a.Log

	//
	// ── 2.  Schema and optional GeoIP ───────────────────────────────────
	//
	if err := a.Tasks.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate daemon_task: %w", err)
	}
	if err := requestinfo.InitGeo(cfg.GeoIP.DBPath); err != nil {
		log.Warnw("geoip disabled", "path", cfg.GeoIP.DBPath, "err", err)
	}
	defer requestinfo.CloseGeo()

	//
	// ── 3.  Components ──────────────────────────────────────────────────
	//
	sessions, err := session.New(cfg.HTTP.SessionKey, cfg.HTTP.SessionTTL, cfg.HTTP.ForceHTTPS)
	if err != nil {
		return err
	}
	csrf, err := form.NewCSRF(cfg.HTTP.CSRFKey, form.DefaultMaxAge)
	if err != nil {
		return err
	}
	env := &component.Resources{
		SQL:       a.DB,
		Service:   a.Provision,
		TaskStore: a.Tasks,
		Notifier:  a.Notifier,
		Tokens:    csrf,
	}
	comps := component.All()
	for _, c := range comps {
		if err := c.Init(env); err != nil {
			return fmt.Errorf("init component %s: %w", c.Name(), err)
		}
	}

	//
	// ── 4.  Router ──────────────────────────────────────────────────────
	//
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLog(log))
	r.Use(middleware.Security)
	r.Use(middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS, cfg.HTTP.TrustProxy))
	r.Use(requestinfo.Enrich(cfg.HTTP.TrustProxy))

	r.Handle("/metrics", promhttp.Handler())

	identities := acl.NewStore(a.DB, 1024, time.Minute)
	r.Group(func(private chi.Router) {
		private.Use(acl.Authenticate(identities, sessions))
		private.Use(csrf.RequireCSRF)
		for _, c := range comps {
			if !component.IsPublic(c) {
				private.Mount("/"+c.Name(), c.Routes())
			}
		}
	})
	for _, c := range comps {
		if component.IsPublic(c) {
			r.Mount("/"+c.Name(), c.Routes())
		}
	}

	//
	// ── 5.  Serve ───────────────────────────────────────────────────────
	//
	srv := server.New(cfg.HTTP.ListenAddr, r, server.Timeouts{
		Read:  cfg.HTTP.ReadTimeout,
		Write: cfg.HTTP.WriteTimeout,
		Idle:  cfg.HTTP.IdleTimeout,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infow("listening", "addr", cfg.HTTP.ListenAddr, "components", len(comps))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return a.Dispatcher.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		log.Infow("shutting down")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
