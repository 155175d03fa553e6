// internal/provision/mail.go
//
// Mail account deletion.
//
// Forward and catch-all accounts list target addresses in mail_forward and
// mail_acc respectively.  Deleting an address rewrites those lists; an
// account left with an empty list is scheduled for deletion as well.
//
// The forwards created with every domain (abuse@, hostmaster@, postmaster@,
// webmaster@) and subdomain (webmaster@) are refused when the panel protects
// default addresses.

package provision

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/yanizio/panel/internal/audit"
	"github.com/yanizio/panel/internal/entity"
	"github.com/yanizio/panel/internal/status"
)

// catchAllForward marks a catch-all row; its targets live in mail_acc.
const catchAllForward = "_no_"

type mailRef struct {
	ID      int64  `db:"mail_id"`
	Acc     string `db:"mail_acc"`
	Forward string `db:"mail_forward"`
	Status  string `db:"status"`
}

// defaultAccounts lists the local parts of the default forwards by
// mail_type.  A default address turned into a mailbox is no longer one.
var defaultAccounts = map[string][]string{
	"normal_forward": {"abuse", "hostmaster", "postmaster", "webmaster"},
	"alias_forward":  {"abuse", "hostmaster", "postmaster", "webmaster"},
	"subdom_forward": {"webmaster"},
	"alssub_forward": {"webmaster"},
}

// isDefaultAddress reports whether acc of type mailType is a default forward.
func isDefaultAddress(acc, mailType string) bool {
	for _, name := range defaultAccounts[mailType] {
		if acc == name {
			return true
		}
	}
	return false
}

// DeleteMail schedules removal of a mail account owned by customerID.
func (s *Service) DeleteMail(ctx context.Context, customerID, mailID int64) error {
	var addr string
	err := s.run(ctx, func(b *batch) error {
		var m struct {
			Addr   string `db:"mail_addr"`
			Acc    string `db:"mail_acc"`
			Type   string `db:"mail_type"`
			Status string `db:"status"`
		}
		if err := b.get(&m, `SELECT mail_users.mail_addr, mail_users.mail_acc, mail_users.mail_type, mail_users.status
FROM mail_users JOIN domain ON domain.domain_id = mail_users.domain_id
WHERE mail_users.mail_id = ? AND domain.domain_admin_id = ?
FOR UPDATE`, mailID, customerID); err != nil {
			return err
		}
		addr = m.Addr
		mail := refOf(entity.Mail, mailID)
		if s.opts.ProtectDefaultMail && isDefaultAddress(m.Acc, m.Type) {
			return fmt.Errorf("%s: default address %s: %w", mail, m.Addr, ErrProtected)
		}
		to, err := b.transition(mail, status.Of(m.Status), status.ActionDelete)
		if err != nil {
			return err
		}
		if err := b.unlinkAddress(mailID, m.Addr); err != nil {
			return err
		}
		if err := b.pruneAutoreplyLogs(); err != nil {
			return err
		}
		return b.enqueue(mail, status.ActionDelete, to)
	})
	if err != nil {
		return err
	}
	audit.Record(ctx, "scheduled deletion of mail account: %s", addr)
	return nil
}

// unlinkAddress drops addr from every forward and catch-all list.
func (b *batch) unlinkAddress(mailID int64, addr string) error {
	pattern := "(,|^)" + regexp.QuoteMeta(addr) + "(,|$)"
	var refs []mailRef
	if err := b.tx.SelectContext(b.ctx, &refs, `SELECT mail_id, mail_acc, mail_forward, status
FROM mail_users
WHERE mail_id <> ? AND (mail_acc RLIKE ? OR mail_forward RLIKE ?)
FOR UPDATE`, mailID, pattern, pattern); err != nil {
		return err
	}

	for _, r := range refs {
		acc, fwd := r.Acc, r.Forward
		if fwd == catchAllForward {
			acc = without(acc, addr)
		} else {
			fwd = without(fwd, addr)
		}
		id := itoa(r.ID)

		if acc == "" || fwd == "" {
			if err := b.bulk(entity.Mail, status.ActionPurge, "mail_id = ?", id); err != nil {
				return err
			}
			continue
		}
		if err := b.rewrite(entity.Mail, id, "mail_acc = ?, mail_forward = ?", acc, fwd); err != nil {
			return err
		}
	}
	return nil
}

// without removes addr from a comma-separated list.
func without(list, addr string) string {
	var kept []string
	for _, item := range splitList(list) {
		if !strings.EqualFold(item, addr) {
			kept = append(kept, item)
		}
	}
	return strings.Join(kept, ",")
}
