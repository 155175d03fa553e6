// internal/acl/store.go
//
// Account lookups for access control.
//
// Context
// -------
// The panel has three fixed account tiers stored in admin.admin_type:
//
//	admin     → everything, including the debugger
//	reseller  → its own customers (admin.created_by = reseller id)
//	user      → its own domain
//
// A session cookie only names the account id, so every request needs the
// account's name and tier.  Store answers that from a short-lived LRU and
// collapses concurrent misses for the same id into one query.
//
// Notes
// -----
// • A cached identity can outlive a demotion by at most the TTL.  Call
//   Invalidate after editing an account to drop it sooner.
// • Oxford commas, two spaces after periods.
// • Max line length 100 columns.
package acl

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/panel/internal/auth"
	"github.com/yanizio/panel/internal/cache"
	"github.com/yanizio/panel/internal/metrics"
)

// ErrUnknownAccount is returned for ids with no admin row.
var ErrUnknownAccount = errors.New("acl: unknown account")

const identityQuery = `SELECT admin_id, admin_name, admin_type FROM admin WHERE admin_id = ?`

// Store resolves account ids to identities.
type Store struct {
	db    *sqlx.DB
	cache *cache.LRU[int64, auth.Identity]
	group singleflight.Group
}

// NewStore caches up to capacity identities for ttl.
func NewStore(db *sqlx.DB, capacity int, ttl time.Duration) *Store {
	if capacity <= 0 {
		capacity = 1024
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Store{db: db, cache: cache.New[int64, auth.Identity](capacity, ttl)}
}

// Identity returns the account behind id.
func (s *Store) Identity(ctx context.Context, id int64) (auth.Identity, error) {
	if ident, ok := s.cache.Get(id); ok {
		return ident, nil
	}
	metrics.ACLCacheMissTotal.Inc()

	v, err, _ := s.group.Do(strconv.FormatInt(id, 10), func() (any, error) {
		var row struct {
			ID   int64  `db:"admin_id"`
			Name string `db:"admin_name"`
			Type string `db:"admin_type"`
		}
		err := s.db.GetContext(ctx, &row, identityQuery, id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnknownAccount
		}
		if err != nil {
			return nil, fmt.Errorf("acl: load account %d: %w", id, err)
		}
		ident := auth.Identity{ID: row.ID, Name: row.Name, Type: row.Type}
		s.cache.Add(id, ident)
		return ident, nil
	})
	if err != nil {
		return auth.Identity{}, err
	}
	return v.(auth.Identity), nil
}

// Invalidate drops the cached identity of id.
func (s *Store) Invalidate(id int64) {
	s.cache.Remove(id)
}
