// internal/provision/ftp.go
//
// FTP account deletion and ftp_group membership upkeep.
//
// ftp_group keeps one row per customer (groupname = admin_name) with a
// comma-separated member list.  The row, and the quota rows that share its
// name, go away with the last member.

package provision

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/yanizio/panel/internal/audit"
	"github.com/yanizio/panel/internal/entity"
	"github.com/yanizio/panel/internal/status"
)

// DeleteFTPUser schedules removal of one FTP account owned by customerID.
func (s *Service) DeleteFTPUser(ctx context.Context, customerID int64, userID string) error {
	if userID == "" {
		return ErrInvalidArgument
	}
	err := s.run(ctx, func(b *batch) error {
		var row struct {
			Group  string `db:"admin_name"`
			Status string `db:"status"`
		}
		if err := b.get(&row, `SELECT admin.admin_name, ftp_users.status
FROM ftp_users JOIN admin ON admin.admin_id = ftp_users.admin_id
WHERE ftp_users.userid = ? AND ftp_users.admin_id = ?
FOR UPDATE`, userID, customerID); err != nil {
			return err
		}

		r := entity.Ref{Kind: entity.FTP, ID: userID}
		to, err := b.transition(r, status.Of(row.Status), status.ActionDelete)
		if err != nil {
			return err
		}
		if err := b.pruneFTPGroup(row.Group, func(m string) bool { return m == userID }); err != nil {
			return err
		}
		return b.enqueue(r, status.ActionDelete, to)
	})
	if err != nil {
		return err
	}
	audit.Record(ctx, "scheduled deletion of FTP account: %s", userID)
	return nil
}

// pruneFTPGroup removes every member for which drop returns true.
func (b *batch) pruneFTPGroup(group string, drop func(member string) bool) error {
	var members string
	err := b.get(&members, "SELECT members FROM ftp_group WHERE groupname = ? FOR UPDATE", group)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	all := splitList(members)
	kept := all[:0:0]
	for _, m := range all {
		if !drop(m) {
			kept = append(kept, m)
		}
	}
	if len(kept) == len(all) {
		return nil
	}
	if len(kept) == 0 {
		for _, q := range []string{
			"DELETE FROM ftp_group WHERE groupname = ?",
			"DELETE FROM quotalimits WHERE name = ?",
			"DELETE FROM quotatallies WHERE name = ?",
		} {
			if _, err := b.exec(q, group); err != nil {
				return err
			}
		}
		return nil
	}
	_, err = b.exec("UPDATE ftp_group SET members = ? WHERE groupname = ?", strings.Join(kept, ","), group)
	return err
}

// underDomain matches FTP and mail logins on name or on any host below it.
func underDomain(name string) func(string) bool {
	re := regexp.MustCompile(`@(?:.+\.)?` + regexp.QuoteMeta(name) + `$`)
	return re.MatchString
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// likeEscape quotes the LIKE wildcards in s.
func likeEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
