// internal/component/env.go
package component

import (
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/panel/internal/daemon"
	"github.com/yanizio/panel/internal/form"
	"github.com/yanizio/panel/internal/provision"
	"github.com/yanizio/panel/internal/taskqueue"
)

// Env exposes process-wide resources to Components during Init.
type Env interface {
	DB() *sqlx.DB
	Provision() *provision.Service
	Tasks() *taskqueue.Store
	Daemon() daemon.Notifier
	CSRF() *form.CSRF
}

// Resources is the plain Env implementation used by cmd/web and tests.
type Resources struct {
	SQL       *sqlx.DB
	Service   *provision.Service
	TaskStore *taskqueue.Store
	Notifier  daemon.Notifier
	Tokens    *form.CSRF
}

func (r *Resources) DB() *sqlx.DB { return r.SQL }
func (r *Resources) Provision() *provision.Service { return r.Service }
func (r *Resources) Tasks() *taskqueue.Store { return r.TaskStore }
func (r *Resources) CSRF() *form.CSRF { return r.Tokens }

// Daemon returns the configured notifier, or daemon.Nop when none is set.
func (r *Resources) Daemon() daemon.Notifier {
	if r.Notifier == nil {
		return daemon.Nop{}
	}
	return r.Notifier
}
