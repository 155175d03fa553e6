// components/protected/protected.go
//
// Customer protected areas (htaccess) with their users and groups.
//
//	POST /protected/areas/{id}/delete
//	POST /protected/users/{id}/delete
//	POST /protected/groups/{id}/delete
package protected

import (
	"context"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/panel/internal/acl"
	"github.com/yanizio/panel/internal/auth"
	"github.com/yanizio/panel/internal/component"
	"github.com/yanizio/panel/internal/provision"
)

// Service is the part of *provision.Service this component drives.
type Service interface {
	DeleteProtectedArea(ctx context.Context, customerID, areaID int64) error
	DeleteHtUser(ctx context.Context, customerID, htUserID int64) error
	DeleteHtGroup(ctx context.Context, customerID, htGroupID int64) error
}

var (
	_ component.Component = (*Comp)(nil)
	_ Service             = (*provision.Service)(nil)
)

type Comp struct{ svc Service }

func (c *Comp) Name() string { return "protected" }

func (c *Comp) Init(env component.Env) error {
	c.svc = env.Provision()
	return nil
}

func (c *Comp) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(acl.RequireType(auth.TypeUser))
	r.Post("/areas/{id}/delete", component.Owned(c.svc.DeleteProtectedArea, "Protected area scheduled for deletion."))
	r.Post("/users/{id}/delete", component.Owned(c.svc.DeleteHtUser, "Htaccess user scheduled for deletion."))
	r.Post("/groups/{id}/delete", component.Owned(c.svc.DeleteHtGroup, "Htaccess group scheduled for deletion."))
	return r
}

func init() { component.Register(&Comp{}) }
