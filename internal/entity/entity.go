// internal/entity/entity.go
//
// Registry of provisionable row kinds.
//
// Context
// -------
// Each kind names the table that holds it, its key column, its status
// column, and an SQL expression that yields a display name.  Generic code
// (the error listing, the retry action, the task reconciler) builds its SQL
// from this registry only, so no identifier ever comes from user input.
//
// Schema reference (shared panel schema, abridged)
//
//	admin            (admin_id, admin_name, admin_type, admin_status, created_by)
//	domain           (domain_id, domain_admin_id, domain_name, domain_status)
//	domain_aliases   (alias_id, domain_id, alias_name, alias_mount, alias_status)
//	subdomain        (subdomain_id, domain_id, subdomain_name, subdomain_status)
//	subdomain_alias  (subdomain_alias_id, alias_id, subdomain_alias_name, subdomain_alias_status)
//	domain_dns       (domain_dns_id, domain_id, alias_id, domain_dns, domain_dns_status)
//	mail_users       (mail_id, domain_id, sub_id, mail_acc, mail_addr, mail_type, po_active, status)
//	ftp_users        (userid, admin_id, status)
//	ssl_certs        (cert_id, domain_id, domain_type, status)
//	htaccess         (id, dmn_id, auth_name, path, status)
//	htaccess_groups  (id, dmn_id, ugroup, status)
//	htaccess_users   (id, dmn_id, uname, status)
//	server_ips       (ip_id, ip_number, ip_card, ip_status)
//
// Notes
// -----
//   - Kind names double as the `type` path segment of the debugger API.
//   - Oxford commas, two spaces after periods.
package entity

import (
	"errors"
	"fmt"
	"sort"
)

// Kind identifies a provisionable row type.
type Kind string

const (
	Customer       Kind = "user"
	Domain         Kind = "domain"
	Alias          Kind = "alias"
	Subdomain      Kind = "subdomain"
	SubdomainAlias Kind = "subdomain_alias"
	CustomDNS      Kind = "custom_dns"
	Mail           Kind = "mail"
	FTP            Kind = "ftp"
	SSLCert        Kind = "ssl"
	Htaccess       Kind = "htaccess"
	HtGroup        Kind = "htgroup"
	HtPasswd       Kind = "htpasswd"
	IP             Kind = "ip"
)

// ErrUnknownKind is returned by Lookup for names outside the registry.
var ErrUnknownKind = errors.New("entity: unknown kind")

// Def describes where a kind lives in the schema.
type Def struct {
	Kind      Kind
	Table     string
	IDColumn  string
	StatusCol string
	NameExpr  string // SQL expression, may reference other tables via Join
	Join      string // optional LEFT JOIN clause used by NameExpr
	Filter    string // optional extra WHERE predicate, e.g. admin_type
}

var defs = map[Kind]Def{
	Customer: {
		Kind: Customer, Table: "admin", IDColumn: "admin_id",
		StatusCol: "admin_status", NameExpr: "admin_name",
		Filter: "admin_type = 'user'",
	},
	Domain: {
		Kind: Domain, Table: "domain", IDColumn: "domain_id",
		StatusCol: "domain_status", NameExpr: "domain_name",
	},
	Alias: {
		Kind: Alias, Table: "domain_aliases", IDColumn: "alias_id",
		StatusCol: "alias_status", NameExpr: "alias_name",
	},
	Subdomain: {
		Kind: Subdomain, Table: "subdomain", IDColumn: "subdomain_id",
		StatusCol: "subdomain_status",
		NameExpr:  "CONCAT(subdomain.subdomain_name, '.', IFNULL(domain.domain_name, '?'))",
		Join:      "LEFT JOIN domain ON domain.domain_id = subdomain.domain_id",
	},
	SubdomainAlias: {
		Kind: SubdomainAlias, Table: "subdomain_alias", IDColumn: "subdomain_alias_id",
		StatusCol: "subdomain_alias_status",
		NameExpr:  "CONCAT(subdomain_alias.subdomain_alias_name, '.', IFNULL(domain_aliases.alias_name, '?'))",
		Join:      "LEFT JOIN domain_aliases ON domain_aliases.alias_id = subdomain_alias.alias_id",
	},
	CustomDNS: {
		Kind: CustomDNS, Table: "domain_dns", IDColumn: "domain_dns_id",
		StatusCol: "domain_dns_status", NameExpr: "domain_dns",
	},
	Mail: {
		Kind: Mail, Table: "mail_users", IDColumn: "mail_id",
		StatusCol: "status", NameExpr: "mail_addr",
	},
	FTP: {
		Kind: FTP, Table: "ftp_users", IDColumn: "userid",
		StatusCol: "status", NameExpr: "userid",
	},
	SSLCert: {
		Kind: SSLCert, Table: "ssl_certs", IDColumn: "cert_id",
		StatusCol: "status", NameExpr: "CONCAT(domain_type, ':', domain_id)",
	},
	Htaccess: {
		Kind: Htaccess, Table: "htaccess", IDColumn: "id",
		StatusCol: "status", NameExpr: "auth_name",
	},
	HtGroup: {
		Kind: HtGroup, Table: "htaccess_groups", IDColumn: "id",
		StatusCol: "status", NameExpr: "ugroup",
	},
	HtPasswd: {
		Kind: HtPasswd, Table: "htaccess_users", IDColumn: "id",
		StatusCol: "status", NameExpr: "uname",
	},
	IP: {
		Kind: IP, Table: "server_ips", IDColumn: "ip_id",
		StatusCol: "ip_status", NameExpr: "CONCAT(ip_number, ' (', ip_card, ')')",
	},
}

// Lookup returns the definition of k.
func Lookup(k Kind) (Def, error) {
	d, ok := defs[k]
	if !ok {
		return Def{}, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
	return d, nil
}

// MustLookup is Lookup for kinds compiled into the binary.
func MustLookup(k Kind) Def {
	d, err := Lookup(k)
	if err != nil {
		panic(err)
	}
	return d
}

// All returns every definition ordered by kind name.
func All() []Def {
	out := make([]Def, 0, len(defs))
	for _, d := range defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// Ref points at one row.  IDs are strings because ftp_users is keyed by its
// textual userid; numeric keys bind identically through the driver.
type Ref struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

func (r Ref) String() string { return string(r.Kind) + "#" + r.ID }

// Column qualifies col with the table name.
func (d Def) Column(col string) string { return d.Table + "." + col }

// From renders the FROM clause including the optional name join.
func (d Def) From() string {
	if d.Join == "" {
		return d.Table
	}
	return d.Table + " " + d.Join
}

// Where combines the optional filter with pred.
func (d Def) Where(pred string) string {
	if d.Filter == "" {
		return pred
	}
	return d.Filter + " AND " + pred
}
