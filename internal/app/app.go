// internal/app/app.go
//
// Process bootstrap shared by cmd/web and cmd/panelctl.
//
// Start-up order
// --------------
//
//  1. Load configuration (.env → conf/panel.yaml → PANEL_ env, Vault refs).
//
//  2. Start the daily rotating logger (tees to console when running in a
//     TTY).
//
//  3. Open the panel database with pool limits and ping retries.
//
//  4. Build the daemon notifier, the task store, the dispatcher, and the
//     provisioning service on top of them.
//
// Close releases everything in reverse order.  Nothing here starts a
// goroutine; cmd/web runs the dispatcher loop itself.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/panel/internal/config"
	"github.com/yanizio/panel/internal/daemon"
	"github.com/yanizio/panel/internal/database"
	"github.com/yanizio/panel/internal/logger"
	"github.com/yanizio/panel/internal/provision"
	"github.com/yanizio/panel/internal/taskqueue"
)

// App holds the long-lived resources of one process.
type App struct {
	Config     *config.Config
	Log        *zap.SugaredLogger
	DB         *sqlx.DB
	Notifier   daemon.Notifier
	Tasks      *taskqueue.Store
	Dispatcher *taskqueue.Dispatcher
	Provision  *provision.Service
}

// New loads configuration and wires every resource.  tee attaches a console
// logger in addition to the log file.
func New(ctx context.Context, tee bool) (*App, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log.Dir, cfg.Log.Level, tee)
	if err != nil {
		return nil, fmt.Errorf("start logger: %w", err)
	}

	opts := database.DefaultOptions()
	opts.MaxOpenConns = cfg.Database.MaxOpen
	opts.MaxIdleConns = cfg.Database.MaxIdle
	log.Infow("connecting to panel database")
	db, err := database.OpenWithOptions(ctx, cfg.Database.DSNWithPassword(), opts)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	log.Infow("panel database online")

	a := &App{Config: cfg, Log: log, DB: db}
	a.Notifier = NewNotifier(cfg.Daemon)
	a.Tasks = taskqueue.NewStore(db, TaskConfig(cfg.Queue))
	a.Dispatcher = taskqueue.NewDispatcher(a.Tasks, a.Notifier)
	a.Provision = provision.New(db, a.Tasks, a.Dispatcher, provision.Options{
		HardMailSuspension: cfg.Panel.HardMailSuspension,
		ProtectDefaultMail: cfg.Panel.ProtectDefaultMail,
		CountDefaultMail:   cfg.Panel.CountDefaultMail,
	})
	return a, nil
}

// Close releases the database and flushes the logger.
func (a *App) Close() {
	if a.DB != nil {
		_ = a.DB.Close()
	}
	if a.Log != nil {
		_ = a.Log.Sync()
	}
}

// NewNotifier returns the daemon client selected by c.Type.
func NewNotifier(c config.Daemon) daemon.Notifier {
	if c.Type == "none" {
		return daemon.Nop{}
	}
	return daemon.New(daemon.Config{
		Addr:        c.Addr,
		Version:     c.Version,
		DialTimeout: c.DialTimeout,
		IOTimeout:   c.IOTimeout,
	})
}

// TaskConfig maps the queue section onto the store settings.  Zero fields
// keep the store defaults.
func TaskConfig(q config.Queue) taskqueue.Config {
	return taskqueue.Config{
		PollInterval:  q.PollInterval,
		Lease:         q.Lease,
		MaxAttempts:   q.MaxAttempts,
		BaseBackoff:   q.BaseBackoff,
		MaxBackoff:    q.MaxBackoff,
		SettleTimeout: q.SettleTimeout,
		BatchSize:     q.BatchSize,
		Retention:     q.Retention,
	}
}

// InTTY returns true when stdout is a character device.
func InTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
