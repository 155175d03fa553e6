// internal/provision/protected.go
//
// Protected areas (htaccess) and their users and groups.
//
// htaccess.user_id and htaccess.group_id, like htaccess_groups.members, are
// comma-separated id lists.  Removing a user or group rewrites the lists and
// schedules the affected files for regeneration; an area left with neither
// users nor groups is scheduled for deletion.

package provision

import (
	"context"
	"strings"

	"github.com/yanizio/panel/internal/audit"
	"github.com/yanizio/panel/internal/entity"
	"github.com/yanizio/panel/internal/status"
)

const ownedDomain = "dmn_id IN (SELECT domain_id FROM domain WHERE domain_admin_id = ?)"

// DeleteProtectedArea schedules removal of one protected area.
func (s *Service) DeleteProtectedArea(ctx context.Context, customerID, areaID int64) error {
	var name string
	err := s.run(ctx, func(b *batch) error {
		var a struct {
			Name   string `db:"auth_name"`
			Status string `db:"status"`
		}
		if err := b.get(&a, "SELECT auth_name, status FROM htaccess WHERE id = ? AND "+ownedDomain+" FOR UPDATE",
			areaID, customerID); err != nil {
			return err
		}
		name = a.Name
		r := refOf(entity.Htaccess, areaID)
		to, err := b.transition(r, status.Of(a.Status), status.ActionDelete)
		if err != nil {
			return err
		}
		return b.enqueue(r, status.ActionDelete, to)
	})
	if err != nil {
		return err
	}
	audit.Record(ctx, "scheduled deletion of protected area: %s", name)
	return nil
}

type htRow struct {
	ID     int64  `db:"id"`
	Users  string `db:"user_id"`
	Groups string `db:"group_id"`
}

// DeleteHtUser schedules removal of a protected-area user.
func (s *Service) DeleteHtUser(ctx context.Context, customerID, htUserID int64) error {
	var uname string
	err := s.run(ctx, func(b *batch) error {
		var u struct {
			Name     string `db:"uname"`
			Status   string `db:"status"`
			DomainID int64  `db:"dmn_id"`
		}
		if err := b.get(&u, "SELECT uname, status, dmn_id FROM htaccess_users WHERE id = ? AND "+ownedDomain+" FOR UPDATE",
			htUserID, customerID); err != nil {
			return err
		}
		uname = u.Name
		r := refOf(entity.HtPasswd, htUserID)
		to, err := b.transition(r, status.Of(u.Status), status.ActionDelete)
		if err != nil {
			return err
		}

		var groups []struct {
			ID      int64  `db:"id"`
			Members string `db:"members"`
		}
		if err := b.tx.SelectContext(b.ctx, &groups,
			"SELECT id, members FROM htaccess_groups WHERE dmn_id = ? FOR UPDATE", u.DomainID); err != nil {
			return err
		}
		id := itoa(htUserID)
		for _, g := range groups {
			members, hit := dropID(g.Members, id)
			if !hit {
				continue
			}
			if err := b.rewrite(entity.HtGroup, g.ID, "members = ?", members); err != nil {
				return err
			}
		}

		if err := b.rewriteAreas(u.DomainID, func(a *htRow) bool {
			var hit bool
			a.Users, hit = dropID(a.Users, id)
			return hit
		}); err != nil {
			return err
		}
		return b.enqueue(r, status.ActionDelete, to)
	})
	if err != nil {
		return err
	}
	audit.Record(ctx, "scheduled deletion of protected area user: %s", uname)
	return nil
}

// DeleteHtGroup schedules removal of a protected-area group.
func (s *Service) DeleteHtGroup(ctx context.Context, customerID, htGroupID int64) error {
	var group string
	err := s.run(ctx, func(b *batch) error {
		var g struct {
			Name     string `db:"ugroup"`
			Status   string `db:"status"`
			DomainID int64  `db:"dmn_id"`
		}
		if err := b.get(&g, "SELECT ugroup, status, dmn_id FROM htaccess_groups WHERE id = ? AND "+ownedDomain+" FOR UPDATE",
			htGroupID, customerID); err != nil {
			return err
		}
		group = g.Name
		r := refOf(entity.HtGroup, htGroupID)
		to, err := b.transition(r, status.Of(g.Status), status.ActionDelete)
		if err != nil {
			return err
		}

		id := itoa(htGroupID)
		if err := b.rewriteAreas(g.DomainID, func(a *htRow) bool {
			var hit bool
			a.Groups, hit = dropID(a.Groups, id)
			return hit
		}); err != nil {
			return err
		}
		return b.enqueue(r, status.ActionDelete, to)
	})
	if err != nil {
		return err
	}
	audit.Record(ctx, "scheduled deletion of protected area group: %s", group)
	return nil
}

// rewriteAreas applies edit to every area of the domain.  Edited areas get
// their lists rewritten, or are purged when no user or group is left.
func (b *batch) rewriteAreas(domainID int64, edit func(*htRow) bool) error {
	var areas []htRow
	if err := b.tx.SelectContext(b.ctx, &areas,
		"SELECT id, COALESCE(user_id, '') AS user_id, COALESCE(group_id, '') AS group_id FROM htaccess WHERE dmn_id = ? FOR UPDATE", domainID); err != nil {
		return err
	}
	for i := range areas {
		a := &areas[i]
		if !edit(a) {
			continue
		}
		if a.Users != "" || a.Groups != "" {
			if err := b.rewrite(entity.Htaccess, a.ID, "user_id = ?, group_id = ?", a.Users, a.Groups); err != nil {
				return err
			}
			continue
		}
		if err := b.bulk(entity.Htaccess, status.ActionPurge, "id = ?", a.ID); err != nil {
			return err
		}
	}
	return nil
}

// dropID removes id from a comma-separated id list and reports whether it
// was present.
func dropID(list, id string) (string, bool) {
	var (
		kept []string
		hit  bool
	)
	for _, item := range splitList(list) {
		if item == id {
			hit = true
			continue
		}
		kept = append(kept, item)
	}
	return strings.Join(kept, ","), hit
}
