// components/customers/customers.go
//
// Reseller customer management.
//
// Context
// -------
// Resellers suspend, reactivate, and delete the accounts they created, and
// decide on domain alias orders placed by those customers.  Administrators
// may do the same for any account; their requests are not scoped.
//
//	POST /customers/{id}/status           {"action":"activate"|"deactivate"}
//	POST /customers/{id}/delete
//	GET  /customers/stats
//	POST /customers/aliases/{id}/approve
//	POST /customers/aliases/{id}/reject
//
// Notes
// -----
// • A customer owned by another reseller answers 404, never 403.
// • Oxford commas, two spaces after periods.
package customers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/panel/internal/acl"
	"github.com/yanizio/panel/internal/auth"
	"github.com/yanizio/panel/internal/component"
	"github.com/yanizio/panel/internal/form"
	"github.com/yanizio/panel/internal/message"
	"github.com/yanizio/panel/internal/provision"
	"github.com/yanizio/panel/internal/reseller"
)

// Service is the part of *provision.Service this component drives.
type Service interface {
	ChangeCustomerStatus(ctx context.Context, resellerID, customerID int64, op provision.CustomerOp) error
	DeleteCustomer(ctx context.Context, resellerID, customerID int64) error
	ApproveAliasOrder(ctx context.Context, resellerID, aliasID int64) error
	RejectAliasOrder(ctx context.Context, resellerID, aliasID int64) error
	ResellerCounts(ctx context.Context, resellerID int64) (reseller.Counts, error)
}

var (
	_ component.Component = (*Comp)(nil)
	_ Service             = (*provision.Service)(nil)
)

// Comp implements component.Component.
type Comp struct {
	svc Service
}

func (c *Comp) Name() string { return "customers" }

func (c *Comp) Init(env component.Env) error {
	c.svc = env.Provision()
	return nil
}

func (c *Comp) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(acl.RequireType(auth.TypeAdmin, auth.TypeReseller))
	r.Post("/{id}/status", c.changeStatus)
	r.Post("/{id}/delete", c.delete)
	r.Post("/aliases/{id}/approve", c.approve)
	r.Post("/aliases/{id}/reject", c.reject)
	r.With(acl.RequireType(auth.TypeReseller)).Get("/stats", c.stats)
	return r
}

type statusRequest struct {
	Action string `json:"action" validate:"required,oneof=activate deactivate"`
}

func (c *Comp) changeStatus(w http.ResponseWriter, r *http.Request) {
	scope, id, err := target(r)
	if err != nil {
		message.Error(w, r, err)
		return
	}
	var req statusRequest
	if err := form.Bind(w, r, &req); err != nil {
		message.Error(w, r, err)
		return
	}
	op, err := provision.ParseCustomerOp(req.Action)
	if err != nil {
		message.Error(w, r, err)
		return
	}
	if err := c.svc.ChangeCustomerStatus(r.Context(), scope, id, op); err != nil {
		message.Error(w, r, err)
		return
	}
	if op == provision.Activate {
		message.OK(w, "Customer account scheduled for activation.")
		return
	}
	message.OK(w, "Customer account scheduled for deactivation.")
}

func (c *Comp) delete(w http.ResponseWriter, r *http.Request) {
	scope, id, err := target(r)
	if err == nil {
		err = c.svc.DeleteCustomer(r.Context(), scope, id)
	}
	if err != nil {
		message.Error(w, r, err)
		return
	}
	message.OK(w, "Customer account scheduled for deletion.")
}

func (c *Comp) approve(w http.ResponseWriter, r *http.Request) {
	scope, id, err := target(r)
	if err == nil {
		err = c.svc.ApproveAliasOrder(r.Context(), scope, id)
	}
	if err != nil {
		message.Error(w, r, err)
		return
	}
	message.OK(w, "Domain alias order approved.")
}

func (c *Comp) reject(w http.ResponseWriter, r *http.Request) {
	scope, id, err := target(r)
	if err == nil {
		err = c.svc.RejectAliasOrder(r.Context(), scope, id)
	}
	if err != nil {
		message.Error(w, r, err)
		return
	}
	message.OK(w, "Domain alias order rejected.")
}

func (c *Comp) stats(w http.ResponseWriter, r *http.Request) {
	id, err := component.AccountID(r)
	if err != nil {
		message.Error(w, r, err)
		return
	}
	counts, err := c.svc.ResellerCounts(r.Context(), id)
	if err != nil {
		message.Error(w, r, err)
		return
	}
	message.JSON(w, http.StatusOK, counts)
}

// target returns the reseller scope and the {id} path parameter.
func target(r *http.Request) (int64, int64, error) {
	scope, err := component.Scope(r)
	if err != nil {
		return 0, 0, err
	}
	id, err := component.IDParam(r, "id")
	return scope, id, err
}

// Register component at package init.
func init() {
	component.Register(&Comp{})
}
