// components/sqldb/sqldb.go
//
// Customer SQL databases and users.  Unlike every other object these are
// removed immediately; no daemon task is involved.
//
//	POST /sqldb/databases/{id}/delete
//	POST /sqldb/users/{id}/delete
package sqldb

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
	DeleteSQLDatabase(ctx context.Context, customerID, dbID int64) error
	DeleteSQLUser(ctx context.Context, customerID, userID int64) error
}

var (
	_ component.Component = (*Comp)(nil)
	_ Service             = (*provision.Service)(nil)
)

type Comp struct{ svc Service }

func (c *Comp) Name() string { return "sqldb" }

func (c *Comp) Init(env component.Env) error {
	c.svc = env.Provision()
	return nil
}

func (c *Comp) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(acl.RequireType(auth.TypeUser))
	r.Post("/databases/{id}/delete", component.Owned(c.svc.DeleteSQLDatabase, "SQL database successfully deleted."))
	r.Post("/users/{id}/delete", component.Owned(c.svc.DeleteSQLUser, "SQL user successfully deleted."))
	return r
}

func init() { component.Register(&Comp{}) }
