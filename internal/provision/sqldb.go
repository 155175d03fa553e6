// internal/provision/sqldb.go
//
// Customer SQL databases and users.
//
// Context
// -------
// These objects are created and dropped by the panel itself, against the
// same MySQL server, so no status column or daemon task is involved.  DROP
// DATABASE and grant-table changes commit implicitly on MySQL, which is why
// nothing here runs inside a transaction.
//
// Notes
// -----
//   - A MySQL account may be shared by several databases of one customer.
//     It is only dropped with its last sql_user row.
package provision

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/yanizio/panel/internal/audit"
)

// DeleteSQLDatabase drops a database of customerID together with its users.
func (s *Service) DeleteSQLDatabase(ctx context.Context, customerID, dbID int64) error {
	domainID, err := s.mainDomain(ctx, customerID)
	if err != nil {
		return err
	}
	if err := s.dropDatabase(ctx, domainID, dbID); err != nil {
		return err
	}
	audit.Record(ctx, "deleted SQL database %d", dbID)
	return nil
}

// DeleteSQLUser drops one SQL user of customerID.
func (s *Service) DeleteSQLUser(ctx context.Context, customerID, userID int64) error {
	domainID, err := s.mainDomain(ctx, customerID)
	if err != nil {
		return err
	}
	name, err := s.dropUser(ctx, domainID, userID)
	if err != nil {
		return err
	}
	audit.Record(ctx, "deleted SQL user: %s", name)
	return nil
}

func (s *Service) mainDomain(ctx context.Context, customerID int64) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, "SELECT domain_id FROM domain WHERE domain_admin_id = ?", customerID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return id, err
}

func (s *Service) dropDatabase(ctx context.Context, domainID, dbID int64) error {
	var name string
	err := s.db.GetContext(ctx, &name,
		"SELECT sqld_name FROM sql_database WHERE domain_id = ? AND sqld_id = ?", domainID, dbID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	var users []int64
	if err := s.db.SelectContext(ctx, &users, "SELECT sqlu_id FROM sql_user WHERE sqld_id = ?", dbID); err != nil {
		return err
	}
	for _, u := range users {
		if _, err := s.dropUser(ctx, domainID, u); err != nil {
			return fmt.Errorf("drop database %s: %w", name, err)
		}
	}

	if _, err := s.db.ExecContext(ctx, "DROP DATABASE IF EXISTS "+quoteIdent(name)); err != nil {
		return fmt.Errorf("drop database %s: %w", name, err)
	}
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM sql_database WHERE domain_id = ? AND sqld_id = ?", domainID, dbID); err != nil {
		return err
	}
	return nil
}

func (s *Service) dropUser(ctx context.Context, domainID, userID int64) (string, error) {
	var u struct {
		Name string `db:"sqlu_name"`
		Host string `db:"sqlu_host"`
		DB   string `db:"sqld_name"`
	}
	err := s.db.GetContext(ctx, &u, `SELECT sql_user.sqlu_name, sql_user.sqlu_host, sql_database.sqld_name
FROM sql_user JOIN sql_database ON sql_database.sqld_id = sql_user.sqld_id
WHERE sql_user.sqlu_id = ? AND sql_database.domain_id = ?`, userID, domainID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}

	var shared int
	if err := s.db.GetContext(ctx, &shared,
		"SELECT COUNT(sqlu_id) FROM sql_user WHERE sqlu_name = ? AND sqlu_host = ?", u.Name, u.Host); err != nil {
		return "", err
	}

	var stmts []stmt
	if shared < 2 {
		stmts = append(stmts,
			stmt{"DELETE FROM mysql.user WHERE User = ? AND Host = ?", []any{u.Name, u.Host}},
			stmt{"DELETE FROM mysql.db WHERE Host = ? AND User = ?", []any{u.Host, u.Name}},
		)
	} else {
		stmts = append(stmts,
			stmt{"DELETE FROM mysql.db WHERE Host = ? AND Db = ? AND User = ?", []any{u.Host, grantPattern(u.DB), u.Name}})
	}
	stmts = append(stmts,
		stmt{"DELETE FROM sql_user WHERE sqlu_id = ?", []any{userID}},
		stmt{"FLUSH PRIVILEGES", nil},
	)
	for _, st := range stmts {
		if _, err := s.db.ExecContext(ctx, st.q, st.args...); err != nil {
			return "", fmt.Errorf("drop sql user %s@%s: %w", u.Name, u.Host, err)
		}
	}
	return u.Name, nil
}

type stmt struct {
	q    string
	args []any
}

// quoteIdent quotes a MySQL identifier.
func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// grantPattern escapes the wildcards mysql.db uses in its Db column.
func grantPattern(db string) string {
	return strings.NewReplacer(`%`, `\%`, `_`, `\_`).Replace(db)
}
