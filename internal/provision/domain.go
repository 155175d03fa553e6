// internal/provision/domain.go
//
// Domain-level deletions (aliases, subdomains, custom DNS records, and SSL
// certificates) plus the alias order workflow.
//
// Every customer-facing call is scoped by customerID through a join on
// domain.domain_admin_id, so a foreign id reads as ErrNotFound.

package provision

import (
	"context"
	"fmt"
	"path"

	"github.com/yanizio/panel/internal/audit"
	"github.com/yanizio/panel/internal/entity"
	"github.com/yanizio/panel/internal/status"
)

// mountPredicate matches htaccess rows at or below mount.
func mountPredicate(mount string) (string, []any) {
	clean := path.Clean("/" + mount)
	if clean == "/" {
		return "dmn_id = ?", nil
	}
	return "dmn_id = ? AND (path = ? OR path LIKE ?)", []any{clean, likeEscape(clean) + "/%"}
}

// DeleteDomainAlias schedules removal of an alias and everything mounted on
// it: FTP and mail accounts, SSL certificates, protected areas, and
// subdomain aliases.
func (s *Service) DeleteDomainAlias(ctx context.Context, customerID, aliasID int64) error {
	var name string
	err := s.run(ctx, func(b *batch) error {
		var a struct {
			Name     string `db:"alias_name"`
			Mount    string `db:"alias_mount"`
			Status   string `db:"alias_status"`
			DomainID int64  `db:"domain_id"`
			Owner    string `db:"admin_name"`
		}
		if err := b.get(&a, `SELECT domain_aliases.alias_name, domain_aliases.alias_mount, domain_aliases.alias_status,
  domain.domain_id, admin.admin_name
FROM domain_aliases
JOIN domain ON domain.domain_id = domain_aliases.domain_id
JOIN admin ON admin.admin_id = domain.domain_admin_id
WHERE domain_aliases.alias_id = ? AND domain.domain_admin_id = ?
FOR UPDATE`, aliasID, customerID); err != nil {
			return err
		}
		name = a.Name
		alias := refOf(entity.Alias, aliasID)
		if err := check(alias, status.Of(a.Status), status.ActionDelete); err != nil {
			return err
		}

		if err := b.pruneFTPGroup(a.Owner, underDomain(a.Name)); err != nil {
			return err
		}
		for _, q := range []string{
			"DELETE FROM domain_dns WHERE alias_id = ?",
			"DELETE FROM php_ini WHERE domain_id = ? AND domain_type = 'als'",
			`DELETE php_ini FROM php_ini
JOIN subdomain_alias ON subdomain_alias.subdomain_alias_id = php_ini.domain_id AND php_ini.domain_type = 'subals'
WHERE subdomain_alias.alias_id = ?`,
		} {
			if _, err := b.exec(q, aliasID); err != nil {
				return err
			}
		}

		const subAliasIDs = "SELECT subdomain_alias_id FROM subdomain_alias WHERE alias_id = ?"
		htWhere, htArgs := mountPredicate(a.Mount)
		purges := []move{
			{
				kind:  entity.FTP,
				where: "userid LIKE ? OR userid LIKE ?",
				args:  []any{"%@" + likeEscape(a.Name), "%@%." + likeEscape(a.Name)},
			},
			{
				kind:  entity.Mail,
				where: "(sub_id = ? AND mail_type LIKE '%alias\\_%') OR (sub_id IN (" + subAliasIDs + ") AND mail_type LIKE '%alssub\\_%')",
				args:  []any{aliasID, aliasID},
			},
			{kind: entity.SSLCert, where: "domain_type = 'alssub' AND domain_id IN (" + subAliasIDs + ")", args: []any{aliasID}},
			{kind: entity.SSLCert, where: "domain_type = 'als' AND domain_id = ?", args: []any{aliasID}},
			{kind: entity.Htaccess, where: htWhere, args: append([]any{a.DomainID}, htArgs...)},
			{kind: entity.SubdomainAlias, where: "alias_id = ?", args: []any{aliasID}},
		}
		for _, m := range purges {
			m.action = status.ActionPurge
			if _, err := b.update(m); err != nil {
				return err
			}
		}

		to, err := b.transition(alias, status.Of(a.Status), status.ActionDelete)
		if err != nil {
			return err
		}
		return b.enqueue(alias, status.ActionDelete, to)
	})
	if err != nil {
		return err
	}
	audit.Record(ctx, "scheduled deletion of the %s domain alias", name)
	return nil
}

// DeleteSubdomain schedules removal of a subdomain and what is mounted on it.
func (s *Service) DeleteSubdomain(ctx context.Context, customerID, subdomainID int64) error {
	var fqdn string
	err := s.run(ctx, func(b *batch) error {
		var sd struct {
			FQDN     string `db:"fqdn"`
			Mount    string `db:"subdomain_mount"`
			Status   string `db:"subdomain_status"`
			DomainID int64  `db:"domain_id"`
			Owner    string `db:"admin_name"`
		}
		if err := b.get(&sd, `SELECT CONCAT(subdomain.subdomain_name, '.', domain.domain_name) AS fqdn,
  subdomain.subdomain_mount, subdomain.subdomain_status, domain.domain_id, admin.admin_name
FROM subdomain
JOIN domain ON domain.domain_id = subdomain.domain_id
JOIN admin ON admin.admin_id = domain.domain_admin_id
WHERE subdomain.subdomain_id = ? AND domain.domain_admin_id = ?
FOR UPDATE`, subdomainID, customerID); err != nil {
			return err
		}
		fqdn = sd.FQDN
		sub := refOf(entity.Subdomain, subdomainID)
		if err := check(sub, status.Of(sd.Status), status.ActionDelete); err != nil {
			return err
		}

		if err := b.pruneFTPGroup(sd.Owner, underDomain(sd.FQDN)); err != nil {
			return err
		}
		if _, err := b.exec("DELETE FROM php_ini WHERE domain_id = ? AND domain_type = 'sub'", subdomainID); err != nil {
			return err
		}

		htWhere, htArgs := mountPredicate(sd.Mount)
		purges := []move{
			{kind: entity.FTP, where: "userid LIKE ?", args: []any{"%@" + likeEscape(sd.FQDN)}},
			{kind: entity.Mail, where: "sub_id = ? AND mail_type LIKE '%subdom\\_%'", args: []any{subdomainID}},
			{kind: entity.SSLCert, where: "domain_type = 'sub' AND domain_id = ?", args: []any{subdomainID}},
			{kind: entity.Htaccess, where: htWhere, args: append([]any{sd.DomainID}, htArgs...)},
		}
		for _, m := range purges {
			m.action = status.ActionPurge
			if _, err := b.update(m); err != nil {
				return err
			}
		}

		to, err := b.transition(sub, status.Of(sd.Status), status.ActionDelete)
		if err != nil {
			return err
		}
		return b.enqueue(sub, status.ActionDelete, to)
	})
	if err != nil {
		return err
	}
	audit.Record(ctx, "scheduled deletion of the %s subdomain", fqdn)
	return nil
}

// DeleteDNSRecord schedules removal of a custom DNS record.  Records owned by
// other features (for example the mail service) are not reachable here.
func (s *Service) DeleteDNSRecord(ctx context.Context, customerID, recordID int64) error {
	err := s.run(ctx, func(b *batch) error {
		var raw string
		if err := b.get(&raw, `SELECT domain_dns.domain_dns_status
FROM domain_dns JOIN domain ON domain.domain_id = domain_dns.domain_id
WHERE domain_dns.domain_dns_id = ? AND domain.domain_admin_id = ? AND domain_dns.owned_by = 'custom_dns_feature'
FOR UPDATE`, recordID, customerID); err != nil {
			return err
		}
		r := refOf(entity.CustomDNS, recordID)
		to, err := b.transition(r, status.Of(raw), status.ActionDelete)
		if err != nil {
			return err
		}
		return b.enqueue(r, status.ActionDelete, to)
	})
	if err != nil {
		return err
	}
	audit.Record(ctx, "scheduled deletion of a custom DNS record")
	return nil
}

// sslParents maps ssl_certs.domain_type to the row that serves the vhost.
var sslParents = map[string]entity.Kind{
	"dmn":    entity.Domain,
	"als":    entity.Alias,
	"sub":    entity.Subdomain,
	"alssub": entity.SubdomainAlias,
}

const sslOwned = `((ssl_certs.domain_type = 'dmn' AND ssl_certs.domain_id IN
    (SELECT domain_id FROM domain WHERE domain_admin_id = ?))
  OR (ssl_certs.domain_type = 'als' AND ssl_certs.domain_id IN
    (SELECT alias_id FROM domain_aliases JOIN domain ON domain.domain_id = domain_aliases.domain_id
     WHERE domain.domain_admin_id = ?))
  OR (ssl_certs.domain_type = 'sub' AND ssl_certs.domain_id IN
    (SELECT subdomain_id FROM subdomain JOIN domain ON domain.domain_id = subdomain.domain_id
     WHERE domain.domain_admin_id = ?))
  OR (ssl_certs.domain_type = 'alssub' AND ssl_certs.domain_id IN
    (SELECT subdomain_alias_id FROM subdomain_alias
     JOIN domain_aliases ON domain_aliases.alias_id = subdomain_alias.alias_id
     JOIN domain ON domain.domain_id = domain_aliases.domain_id
     WHERE domain.domain_admin_id = ?)))`

// DeleteSSLCert schedules removal of a certificate and a rebuild of the vhost
// that served it.
func (s *Service) DeleteSSLCert(ctx context.Context, customerID, certID int64) error {
	err := s.run(ctx, func(b *batch) error {
		var c struct {
			DomainID   int64  `db:"domain_id"`
			DomainType string `db:"domain_type"`
			Status     string `db:"status"`
		}
		if err := b.get(&c, "SELECT domain_id, domain_type, status FROM ssl_certs WHERE cert_id = ? AND "+sslOwned+" FOR UPDATE",
			certID, customerID, customerID, customerID, customerID); err != nil {
			return err
		}
		parent, ok := sslParents[c.DomainType]
		if !ok {
			return fmt.Errorf("ssl certificate %d: unknown domain type %q", certID, c.DomainType)
		}

		cert := refOf(entity.SSLCert, certID)
		to, err := b.transition(cert, status.Of(c.Status), status.ActionDelete)
		if err != nil {
			return err
		}
		def := entity.MustLookup(parent)
		if err := b.bulk(parent, status.ActionChange, def.IDColumn+" = ?", c.DomainID); err != nil {
			return err
		}
		return b.enqueue(cert, status.ActionDelete, to)
	})
	if err != nil {
		return err
	}
	audit.Record(ctx, "scheduled deletion of SSL certificate %d", certID)
	return nil
}

// ApproveAliasOrder moves an alias ordered by a customer of resellerID into
// provisioning.
func (s *Service) ApproveAliasOrder(ctx context.Context, resellerID, aliasID int64) error {
	var name string
	err := s.run(ctx, func(b *batch) error {
		var a struct {
			Name   string `db:"alias_name"`
			Status string `db:"alias_status"`
		}
		if err := b.get(&a, `SELECT domain_aliases.alias_name, domain_aliases.alias_status
FROM domain_aliases
JOIN domain ON domain.domain_id = domain_aliases.domain_id
JOIN admin ON admin.admin_id = domain.domain_admin_id
WHERE domain_aliases.alias_id = ? AND admin.created_by = ?
FOR UPDATE`, aliasID, resellerID); err != nil {
			return err
		}
		name = a.Name
		alias := refOf(entity.Alias, aliasID)
		to, err := b.transition(alias, status.Of(a.Status), status.ActionApprove)
		if err != nil {
			return err
		}
		return b.enqueue(alias, status.ActionApprove, to)
	})
	if err != nil {
		return err
	}
	audit.Record(ctx, "approved the %s domain alias order", name)
	return nil
}

// RejectAliasOrder deletes an ordered alias of a customer of resellerID.
// Nothing was provisioned yet, so the daemon is not involved.
func (s *Service) RejectAliasOrder(ctx context.Context, resellerID, aliasID int64) error {
	return s.dropOrder(ctx, "admin.created_by = ?", resellerID, aliasID, "rejected")
}

// CancelAliasOrder is the customer's own withdrawal of an alias order.
func (s *Service) CancelAliasOrder(ctx context.Context, customerID, aliasID int64) error {
	return s.dropOrder(ctx, "domain.domain_admin_id = ?", customerID, aliasID, "cancelled")
}

func (s *Service) dropOrder(ctx context.Context, scope string, scopeID, aliasID int64, verb string) error {
	err := s.run(ctx, func(b *batch) error {
		n, err := b.exec(`DELETE domain_aliases FROM domain_aliases
JOIN domain ON domain.domain_id = domain_aliases.domain_id
JOIN admin ON admin.admin_id = domain.domain_admin_id
WHERE domain_aliases.alias_id = ? AND `+scope+` AND domain_aliases.alias_status = ?`,
			aliasID, scopeID, string(status.Ordered))
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	audit.Record(ctx, "%s domain alias order %d", verb, aliasID)
	return nil
}
