// components/mail/mail.go
//
// Customer mail accounts.
//
//	POST /mail/{id}/delete
package mail

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
	DeleteMail(ctx context.Context, customerID, mailID int64) error
}

var (
	_ component.Component = (*Comp)(nil)
	_ Service             = (*provision.Service)(nil)
)

type Comp struct{ svc Service }

func (c *Comp) Name() string { return "mail" }

func (c *Comp) Init(env component.Env) error {
	c.svc = env.Provision()
	return nil
}

func (c *Comp) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(acl.RequireType(auth.TypeUser))
	r.Post("/{id}/delete", component.Owned(c.svc.DeleteMail, "Mail account scheduled for deletion."))
	return r
}

func init() { component.Register(&Comp{}) }
