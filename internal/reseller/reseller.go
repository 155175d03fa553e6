// internal/reseller/reseller.go
//
// Reseller counters.
//
// Context
// -------
// reseller_props caches what a reseller has handed out to its customers.
// The cache is never incremented in place: callers recompute it from the
// live rows whenever an account is created, edited, or removed.  Domains in
// `todelete` no longer count.
//
// Notes
// -----
//   - RecalculateAssignments takes an ExecerContext so it can run inside the
//     caller's transaction.
//   - Oxford commas, two spaces after periods.
package reseller

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const recalculate = `UPDATE reseller_props AS t1
JOIN (
  SELECT COUNT(domain_id) AS dmn_count,
    IFNULL(SUM(IF(domain_subd_limit >= 0, domain_subd_limit, 0)), 0) AS sub_limit,
    IFNULL(SUM(IF(domain_alias_limit >= 0, domain_alias_limit, 0)), 0) AS als_limit,
    IFNULL(SUM(IF(domain_mailacc_limit >= 0, domain_mailacc_limit, 0)), 0) AS mail_limit,
    IFNULL(SUM(IF(domain_ftpacc_limit >= 0, domain_ftpacc_limit, 0)), 0) AS ftp_limit,
    IFNULL(SUM(IF(domain_sqld_limit >= 0, domain_sqld_limit, 0)), 0) AS sqld_limit,
    IFNULL(SUM(IF(domain_sqlu_limit >= 0, domain_sqlu_limit, 0)), 0) AS sqlu_limit,
    IFNULL(SUM(domain_disk_limit), 0) AS disk_limit,
    IFNULL(SUM(domain_traffic_limit), 0) AS traffic_limit
  FROM admin
  JOIN domain ON domain.domain_admin_id = admin.admin_id
  WHERE admin.created_by = ? AND domain.domain_status <> 'todelete'
) AS t2
SET t1.current_dmn_cnt = t2.dmn_count, t1.current_sub_cnt = t2.sub_limit,
  t1.current_als_cnt = t2.als_limit, t1.current_mail_cnt = t2.mail_limit,
  t1.current_ftp_cnt = t2.ftp_limit, t1.current_sql_db_cnt = t2.sqld_limit,
  t1.current_sql_user_cnt = t2.sqlu_limit, t1.current_disk_amnt = t2.disk_limit,
  t1.current_traff_amnt = t2.traffic_limit
WHERE t1.reseller_id = ?`

// RecalculateAssignments rewrites the reseller's cached totals from the
// limits of its live customers.
func RecalculateAssignments(ctx context.Context, ext sqlx.ExecerContext, resellerID int64) error {
	if _, err := ext.ExecContext(ctx, recalculate, resellerID, resellerID); err != nil {
		return fmt.Errorf("recalculate reseller %d: %w", resellerID, err)
	}
	return nil
}

// Counts is the number of live objects owned by a reseller's customers.
type Counts struct {
	Customers  int64 `db:"customers" json:"customers"`
	Domains    int64 `db:"domains" json:"domains"`
	Subdomains int64 `db:"subdomains" json:"subdomains"`
	Aliases    int64 `db:"aliases" json:"aliases"`
	Mail       int64 `db:"mail" json:"mail"`
	FTP        int64 `db:"ftp" json:"ftp"`
	SQLDBs     int64 `db:"sql_databases" json:"sql_databases"`
	SQLUsers   int64 `db:"sql_users" json:"sql_users"`
}

// defaultMailFilter hides the forwards the panel creates for every domain
// (abuse, hostmaster, postmaster, and webmaster) and subdomain (webmaster).
// A default address the customer turned into a mailbox counts again, since
// its mail_type no longer matches.
const defaultMailFilter = `
    AND NOT (mail_users.mail_acc IN ('abuse', 'hostmaster', 'postmaster', 'webmaster')
      AND mail_users.mail_type IN ('normal_forward', 'alias_forward'))
    AND NOT (mail_users.mail_acc = 'webmaster' AND mail_users.mail_type IN ('subdom_forward', 'alssub_forward'))`

// countHead and countTail wrap the mail sub-select, whose filter depends on
// the panel's default-address setting.  Every owned row hangs off the
// customer's domain.
const countHead = `SELECT
  (SELECT COUNT(admin_id) FROM admin WHERE admin_type = 'user' AND created_by = ?) AS customers,
  (SELECT COUNT(domain_id) FROM domain JOIN admin ON admin.admin_id = domain.domain_admin_id
    WHERE admin.created_by = ? AND domain.domain_status <> 'todelete') AS domains,
  (SELECT COUNT(subdomain_id) FROM subdomain JOIN domain USING (domain_id) JOIN admin ON admin.admin_id = domain.domain_admin_id
    WHERE admin.created_by = ? AND subdomain.subdomain_status <> 'todelete') AS subdomains,
  (SELECT COUNT(alias_id) FROM domain_aliases JOIN domain USING (domain_id) JOIN admin ON admin.admin_id = domain.domain_admin_id
    WHERE admin.created_by = ? AND domain_aliases.alias_status NOT IN ('todelete', 'ordered')) AS aliases,
  (SELECT COUNT(mail_id) FROM mail_users JOIN domain USING (domain_id) JOIN admin ON admin.admin_id = domain.domain_admin_id
    WHERE admin.created_by = ? AND mail_users.status <> 'todelete'`

const countTail = `) AS mail,
  (SELECT COUNT(userid) FROM ftp_users JOIN admin USING (admin_id)
    WHERE admin.created_by = ? AND ftp_users.status <> 'todelete') AS ftp,
  (SELECT COUNT(sqld_id) FROM sql_database JOIN domain USING (domain_id) JOIN admin ON admin.admin_id = domain.domain_admin_id
    WHERE admin.created_by = ?) AS sql_databases,
  (SELECT COUNT(DISTINCT sql_user.sqlu_name) FROM sql_user JOIN sql_database USING (sqld_id) JOIN domain USING (domain_id)
    JOIN admin ON admin.admin_id = domain.domain_admin_id WHERE admin.created_by = ?) AS sql_users`

// countQuery renders the counting statement.  countDefaultMail includes
// the default addresses in the mail total.
func countQuery(countDefaultMail bool) string {
	if countDefaultMail {
		return countHead + countTail
	}
	return countHead + defaultMailFilter + countTail
}

// Count returns the live object counts of resellerID.
func Count(ctx context.Context, q sqlx.QueryerContext, resellerID int64, countDefaultMail bool) (Counts, error) {
	var c Counts
	args := make([]any, 8)
	for i := range args {
		args[i] = resellerID
	}
	if err := sqlx.GetContext(ctx, q, &c, countQuery(countDefaultMail), args...); err != nil {
		return Counts{}, fmt.Errorf("count reseller %d: %w", resellerID, err)
	}
	return c, nil
}
