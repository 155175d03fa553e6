// components/domains/domains.go
//
// Customer domain objects: aliases, subdomains, custom DNS records, and SSL
// certificates.
//
//	POST /domains/aliases/{id}/delete
//	POST /domains/aliases/{id}/cancel     (withdraw a pending order)
//	POST /domains/subdomains/{id}/delete
//	POST /domains/dns/{id}/delete
//	POST /domains/ssl/{id}/delete
package domains

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
	DeleteDomainAlias(ctx context.Context, customerID, aliasID int64) error
	CancelAliasOrder(ctx context.Context, customerID, aliasID int64) error
	DeleteSubdomain(ctx context.Context, customerID, subdomainID int64) error
	DeleteDNSRecord(ctx context.Context, customerID, recordID int64) error
	DeleteSSLCert(ctx context.Context, customerID, certID int64) error
}

var (
	_ component.Component = (*Comp)(nil)
	_ Service             = (*provision.Service)(nil)
)

// Comp implements component.Component.
type Comp struct{ svc Service }

func (c *Comp) Name() string { return "domains" }

func (c *Comp) Init(env component.Env) error {
	c.svc = env.Provision()
	return nil
}

func (c *Comp) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(acl.RequireType(auth.TypeUser))
	r.Post("/aliases/{id}/delete", component.Owned(c.svc.DeleteDomainAlias, "Domain alias scheduled for deletion."))
	r.Post("/aliases/{id}/cancel", component.Owned(c.svc.CancelAliasOrder, "Domain alias order cancelled."))
	r.Post("/subdomains/{id}/delete", component.Owned(c.svc.DeleteSubdomain, "Subdomain scheduled for deletion."))
	r.Post("/dns/{id}/delete", component.Owned(c.svc.DeleteDNSRecord, "Custom DNS record scheduled for deletion."))
	r.Post("/ssl/{id}/delete", component.Owned(c.svc.DeleteSSLCert, "SSL certificate scheduled for deletion."))
	return r
}

func init() {
	component.Register(&Comp{})
}
