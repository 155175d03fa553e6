// components/debugger/debugger.go
//
// Administrator debugger.
//
// Context
// -------
// Lists every row the daemon reported as failed, counts rows still waiting
// for it, lets an administrator hand a failed row back to the daemon, and
// requests a daemon run on demand.
//
//	GET  /debugger                    → errors + pending counts
//	POST /debugger/run                → notify the daemon
//	POST /debugger/change/{kind}/{id} → retry one row
//
// Notes
// -----
// • Administrators only.
// • Oxford commas, two spaces after periods.
package debugger

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/panel/internal/acl"
	"github.com/yanizio/panel/internal/auth"
	"github.com/yanizio/panel/internal/component"
	"github.com/yanizio/panel/internal/daemon"
	"github.com/yanizio/panel/internal/entity"
	"github.com/yanizio/panel/internal/form"
	"github.com/yanizio/panel/internal/message"
	"github.com/yanizio/panel/internal/provision"
)

// Service is the part of *provision.Service the debugger drives.
type Service interface {
	ListErrors(ctx context.Context) ([]provision.FailedRow, error)
	CountPending(ctx context.Context) ([]provision.PendingCount, int64, error)
	RequestDaemon(ctx context.Context, n daemon.Notifier) (int64, error)
	Retry(ctx context.Context, ref entity.Ref) error
}

// compile-time assertions
var (
	_ component.Component = (*Comp)(nil)
	_ Service             = (*provision.Service)(nil)
)

// Comp implements component.Component.
type Comp struct {
	svc    Service
	daemon daemon.Notifier
}

func (c *Comp) Name() string { return "debugger" }

func (c *Comp) Init(env component.Env) error {
	c.svc, c.daemon = env.Provision(), env.Daemon()
	return nil
}

func (c *Comp) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(acl.RequireType(auth.TypeAdmin))
	r.Get("/", c.overview)
	r.Post("/run", c.run)
	r.Post("/change/{kind}/{id}", c.change)
	return r
}

// Overview is the GET response.
type Overview struct {
	Errors       []provision.FailedRow    `json:"errors"`
	Pending      []provision.PendingCount `json:"pending"`
	PendingTotal int64                    `json:"pending_total"`
}

func (c *Comp) overview(w http.ResponseWriter, r *http.Request) {
	errs, err := c.svc.ListErrors(r.Context())
	if err != nil {
		message.Error(w, r, err)
		return
	}
	pending, total, err := c.svc.CountPending(r.Context())
	if err != nil {
		message.Error(w, r, err)
		return
	}
	if errs == nil {
		errs = []provision.FailedRow{}
	}
	if pending == nil {
		pending = []provision.PendingCount{}
	}
	message.JSON(w, http.StatusOK, Overview{Errors: errs, Pending: pending, PendingTotal: total})
}

func (c *Comp) run(w http.ResponseWriter, r *http.Request) {
	n, err := c.svc.RequestDaemon(r.Context(), c.daemon)
	if err != nil {
		message.Error(w, r, err)
		return
	}
	message.JSON(w, http.StatusOK, map[string]any{
		"message": "Daemon request successful.",
		"pending": n,
	})
}

func (c *Comp) change(w http.ResponseWriter, r *http.Request) {
	ref := entity.Ref{Kind: entity.Kind(chi.URLParam(r, "kind")), ID: chi.URLParam(r, "id")}
	if _, err := entity.Lookup(ref.Kind); err != nil || ref.ID == "" {
		message.Error(w, r, form.ValidationError{Fields: []form.ErrorField{{Name: "kind", Message: "Unknown item type."}}})
		return
	}
	if err := c.svc.Retry(r.Context(), ref); err != nil {
		message.Error(w, r, err)
		return
	}
	message.OK(w, "Item scheduled for modification.")
}

// Register component at package init.
func init() {
	component.Register(&Comp{})
}
