// internal/provision/customer.go
//
// Account-wide operations: activation, deactivation, and deletion.
//
// Workflow (DeleteCustomer)
// -------------------------
//  1. Load the account and its main domain, scoped to the reseller when one
//     is given, and refuse when the account is already being deleted.
//  2. Drop SQL databases and users.  These are DDL statements that commit
//     implicitly, so they run before the transaction.
//  3. In one transaction: delete rows the daemon never reads, purge-schedule
//     everything it provisions, and recompute the reseller's counters.
//  4. Commit, wake the dispatcher, and write the audit line.
package provision

import (
	"context"
	"fmt"
	"strconv"

	"github.com/yanizio/panel/internal/audit"
	"github.com/yanizio/panel/internal/entity"
	"github.com/yanizio/panel/internal/reseller"
	"github.com/yanizio/panel/internal/status"
)

// CustomerOp selects ChangeCustomerStatus behaviour.
type CustomerOp string

const (
	Activate   CustomerOp = "activate"
	Deactivate CustomerOp = "deactivate"
)

// ParseCustomerOp validates a raw request value.
func ParseCustomerOp(raw string) (CustomerOp, error) {
	switch op := CustomerOp(raw); op {
	case Activate, Deactivate:
		return op, nil
	default:
		return "", fmt.Errorf("%w: unknown customer action %q", ErrInvalidArgument, raw)
	}
}

type customerRow struct {
	AdminID     int64  `db:"admin_id"`
	AdminName   string `db:"admin_name"`
	AdminStatus string `db:"admin_status"`
	CreatedBy   int64  `db:"created_by"`
	DomainID    int64  `db:"domain_id"`
	DomainName  string `db:"domain_name"`
	DomainState string `db:"domain_status"`
}

const customerSelect = `SELECT admin.admin_id, admin.admin_name, admin.admin_status, admin.created_by,
  domain.domain_id, domain.domain_name, domain.domain_status
FROM admin
JOIN domain ON domain.domain_admin_id = admin.admin_id
WHERE admin.admin_type = 'user' AND admin.admin_id = ?`

// loadCustomer reads the account and its main domain.  resellerID 0 skips
// the ownership check (administrators).
func (b *batch) loadCustomer(customerID, resellerID int64, lock bool) (customerRow, error) {
	q, args := customerSelect, []any{customerID}
	if resellerID != 0 {
		q += " AND admin.created_by = ?"
		args = append(args, resellerID)
	}
	if lock {
		q += " FOR UPDATE"
	}
	var row customerRow
	err := b.get(&row, q, args...)
	return row, err
}

// ChangeCustomerStatus schedules suspension or reactivation of every
// provisionable row of a customer account.
func (s *Service) ChangeCustomerStatus(ctx context.Context, resellerID, customerID int64, op CustomerOp) error {
	action := status.ActionDisable
	if op == Activate {
		action = status.ActionEnable
	} else if op != Deactivate {
		return fmt.Errorf("%w: unknown customer action %q", ErrInvalidArgument, op)
	}

	var name string
	err := s.run(ctx, func(b *batch) error {
		c, err := b.loadCustomer(customerID, resellerID, true)
		if err != nil {
			return err
		}
		name = c.AdminName
		domain := refOf(entity.Domain, c.DomainID)
		if err := check(domain, status.Of(c.DomainState), action); err != nil {
			return err
		}

		if err := b.changeMailStatus(c.DomainID, op); err != nil {
			return err
		}

		moves := []move{
			{kind: entity.FTP, where: "admin_id = ?", args: []any{customerID}},
			{kind: entity.Htaccess, where: "dmn_id = ?", args: []any{c.DomainID}},
			{kind: entity.HtGroup, where: "dmn_id = ?", args: []any{c.DomainID}},
			{kind: entity.HtPasswd, where: "dmn_id = ?", args: []any{c.DomainID}},
			{kind: entity.Domain, where: "domain_id = ?", args: []any{c.DomainID}},
			{kind: entity.Subdomain, where: "domain_id = ?", args: []any{c.DomainID}},
			{kind: entity.Alias, where: "domain_id = ?", args: []any{c.DomainID}},
			{
				kind:  entity.SubdomainAlias,
				from:  "subdomain_alias JOIN domain_aliases ON domain_aliases.alias_id = subdomain_alias.alias_id",
				where: "domain_aliases.domain_id = ?", args: []any{c.DomainID},
			},
			{kind: entity.CustomDNS, where: "domain_id = ?", args: []any{c.DomainID}},
		}
		for _, m := range moves {
			m.action = action
			if _, err := b.update(m); err != nil {
				return err
			}
		}

		target, _ := status.Target(action)
		return b.enqueue(domain, action, target)
	})
	if err != nil {
		return err
	}

	verb := "deactivation"
	if op == Activate {
		verb = "activation"
	}
	audit.Record(ctx, "scheduled %s of customer account: %s", verb, name)
	return nil
}

// changeMailStatus handles mail_users, whose po_active flag follows the
// account even when the status column does not move.
func (b *batch) changeMailStatus(domainID int64, op CustomerOp) error {
	const poRestore = "po_active = IF(mail_type LIKE '%_mail%', 'yes', po_active)"

	if op == Deactivate {
		if b.svc.opts.HardMailSuspension {
			if _, err := b.update(move{
				kind: entity.Mail, action: status.ActionDisable,
				set: "po_active = 'no'", where: "domain_id = ?", args: []any{domainID},
			}); err != nil {
				return err
			}
		}
		// IMAP and POP go away in both modes.
		_, err := b.exec("UPDATE mail_users SET po_active = 'no' WHERE domain_id = ?", domainID)
		return err
	}

	if _, err := b.update(move{
		kind: entity.Mail, action: status.ActionEnable,
		set: poRestore, where: "domain_id = ?", args: []any{domainID},
	}); err != nil {
		return err
	}
	_, err := b.exec("UPDATE mail_users SET "+poRestore+" WHERE domain_id = ? AND status <> 'disabled'", domainID)
	return err
}

// DeleteCustomer schedules removal of a customer account and everything it
// owns.  resellerID 0 skips the ownership check.
func (s *Service) DeleteCustomer(ctx context.Context, resellerID, customerID int64) error {
	var c customerRow
	if err := s.run(ctx, func(b *batch) error {
		var err error
		c, err = b.loadCustomer(customerID, resellerID, false)
		if err != nil {
			return err
		}
		return check(refOf(entity.Customer, customerID), status.Of(c.AdminStatus), status.ActionPurge)
	}); err != nil {
		return err
	}

	// Sessions and SQL objects first.  Neither is transactional on MySQL.
	if _, err := s.db.ExecContext(ctx, "DELETE FROM login WHERE user_name = ?", c.AdminName); err != nil {
		return fmt.Errorf("delete sessions of %s: %w", c.AdminName, err)
	}
	var dbIDs []int64
	if err := s.db.SelectContext(ctx, &dbIDs,
		"SELECT sqld_id FROM sql_database WHERE domain_id = ?", c.DomainID); err != nil {
		return fmt.Errorf("list sql databases of %s: %w", c.AdminName, err)
	}
	for _, id := range dbIDs {
		if err := s.dropDatabase(ctx, c.DomainID, id); err != nil {
			return err
		}
	}

	err := s.run(ctx, func(b *batch) error {
		// Re-read under lock; a concurrent request may have won the race.
		c, err := b.loadCustomer(customerID, resellerID, true)
		if err != nil {
			return err
		}
		account := refOf(entity.Customer, customerID)
		if err := check(account, status.Of(c.AdminStatus), status.ActionPurge); err != nil {
			return err
		}
		dmn := c.DomainID

		// Rows the daemon does not provision are deleted outright.
		deletes := []stmt{
			{"DELETE FROM htaccess WHERE dmn_id = ?", []any{dmn}},
			{"DELETE FROM htaccess_users WHERE dmn_id = ?", []any{dmn}},
			{"DELETE FROM htaccess_groups WHERE dmn_id = ?", []any{dmn}},
			{"DELETE FROM domain_traffic WHERE domain_id = ?", []any{dmn}},
			{"DELETE FROM domain_dns WHERE domain_id = ?", []any{dmn}},
			{"DELETE FROM ftp_group WHERE groupname = ?", []any{c.AdminName}},
			{"DELETE FROM quotalimits WHERE name = ?", []any{c.AdminName}},
			{"DELETE FROM quotatallies WHERE name = ?", []any{c.AdminName}},
			{"DELETE FROM tickets WHERE ticket_from = ? OR ticket_to = ?", []any{customerID, customerID}},
			{"DELETE FROM user_gui_props WHERE user_id = ?", []any{customerID}},
			{"DELETE FROM php_ini WHERE admin_id = ?", []any{customerID}},
		}
		for _, d := range deletes {
			if _, err := b.exec(d.q, d.args...); err != nil {
				return fmt.Errorf("delete customer %d: %w", customerID, err)
			}
		}

		const aliasIDs = "SELECT alias_id FROM domain_aliases WHERE domain_id = ?"
		purges := []move{
			{kind: entity.FTP, where: "admin_id = ?", args: []any{customerID}},
			{kind: entity.Mail, where: "domain_id = ?", args: []any{dmn}},
			{kind: entity.SubdomainAlias, where: "alias_id IN (" + aliasIDs + ")", args: []any{dmn}},
			{kind: entity.Alias, where: "domain_id = ?", args: []any{dmn}},
			{kind: entity.Subdomain, where: "domain_id = ?", args: []any{dmn}},
			{kind: entity.Domain, where: "domain_id = ?", args: []any{dmn}},
			{kind: entity.Customer, where: "admin_id = ?", args: []any{customerID}},
			{kind: entity.SSLCert, where: "domain_type = 'dmn' AND domain_id = ?", args: []any{dmn}},
			{kind: entity.SSLCert, where: "domain_type = 'als' AND domain_id IN (" + aliasIDs + ")", args: []any{dmn}},
			{
				kind:  entity.SSLCert,
				where: "domain_type = 'sub' AND domain_id IN (SELECT subdomain_id FROM subdomain WHERE domain_id = ?)",
				args:  []any{dmn},
			},
			{
				kind: entity.SSLCert,
				where: "domain_type = 'alssub' AND domain_id IN (SELECT subdomain_alias_id FROM subdomain_alias WHERE alias_id IN (" +
					aliasIDs + "))",
				args: []any{dmn},
			},
		}
		for _, m := range purges {
			m.action = status.ActionPurge
			if _, err := b.update(m); err != nil {
				return err
			}
		}

		if err := b.pruneAutoreplyLogs(); err != nil {
			return err
		}
		if err := reseller.RecalculateAssignments(b.ctx, b.tx, c.CreatedBy); err != nil {
			return err
		}
		return b.enqueue(account, status.ActionPurge, status.ToDelete)
	})
	if err != nil {
		return err
	}

	audit.Record(ctx, "scheduled deletion of customer account: %s", c.AdminName)
	return nil
}

// pruneAutoreplyLogs drops autoresponder history for addresses that are no
// longer live.
func (b *batch) pruneAutoreplyLogs() error {
	_, err := b.exec("DELETE FROM autoreplies_log WHERE `from` NOT IN (SELECT mail_addr FROM mail_users WHERE status <> 'todelete')")
	return err
}

// ResellerCounts returns the live object counts of a reseller, honouring the
// default mail address setting.
func (s *Service) ResellerCounts(ctx context.Context, resellerID int64) (reseller.Counts, error) {
	return reseller.Count(ctx, s.db, resellerID, s.opts.CountDefaultMail)
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
