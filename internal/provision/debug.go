// internal/provision/debug.go
//
// Single-row scheduling and the read side used by the debugger and
// panelctl: rows the daemon reported as failed, and the number of rows
// still waiting for it.
package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/yanizio/panel/internal/audit"
	"github.com/yanizio/panel/internal/daemon"
	"github.com/yanizio/panel/internal/entity"
	"github.com/yanizio/panel/internal/status"
)

// Schedule applies action to the single row ref and queues its task.
func (s *Service) Schedule(ctx context.Context, ref entity.Ref, action status.Action) (status.Status, error) {
	def, err := entity.Lookup(ref.Kind)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	var to status.Status
	err = s.run(ctx, func(b *batch) error {
		var raw string
		q := "SELECT " + def.StatusCol + " FROM " + def.Table + " WHERE " + def.Where(def.IDColumn+" = ?") + " FOR UPDATE"
		if err := b.get(&raw, q, ref.ID); err != nil {
			return err
		}
		next, err := b.transition(ref, status.Of(raw), action)
		if err != nil {
			return err
		}
		to = next
		return b.enqueue(ref, action, to)
	})
	if err != nil {
		return "", err
	}
	audit.Record(ctx, "scheduled %s of %s", action, ref)
	return to, nil
}

// Retry hands a failed row back to the daemon as a change request.
func (s *Service) Retry(ctx context.Context, ref entity.Ref) error {
	_, err := s.Schedule(ctx, ref, status.ActionRetry)
	return err
}

// FailedRow is a row whose status column holds a daemon error message.
type FailedRow struct {
	Ref     entity.Ref `json:"ref"`
	Name    string     `json:"name"`
	Message string     `json:"message"`
}

// ListErrors returns every failed row across the registry, grouped by kind.
func (s *Service) ListErrors(ctx context.Context) ([]FailedRow, error) {
	var out []FailedRow
	for _, def := range entity.All() {
		pred, args := status.FailedSQL(def.Column(def.StatusCol))
		q := "SELECT " + def.Column(def.IDColumn) + " AS id, " + def.NameExpr + " AS name, " +
			def.Column(def.StatusCol) + " AS message FROM " + def.From() + " WHERE " + def.Where(pred) +
			" ORDER BY " + def.Column(def.IDColumn)

		var rows []struct {
			ID      string `db:"id"`
			Name    string `db:"name"`
			Message string `db:"message"`
		}
		if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
			return nil, fmt.Errorf("list %s errors: %w", def.Kind, err)
		}
		for _, r := range rows {
			out = append(out, FailedRow{
				Ref:     entity.Ref{Kind: def.Kind, ID: r.ID},
				Name:    r.Name,
				Message: r.Message,
			})
		}
	}
	return out, nil
}

// PendingCount is the number of rows of one kind awaiting the daemon.
type PendingCount struct {
	Kind  entity.Kind `json:"kind"`
	Count int64       `json:"count"`
}

// CountPending returns per-kind pending counts, omitting kinds with none,
// and the total.
func (s *Service) CountPending(ctx context.Context) ([]PendingCount, int64, error) {
	var (
		out   []PendingCount
		total int64
	)
	for _, def := range entity.All() {
		pred, args := status.PendingSQL(def.StatusCol)
		var n int64
		if err := s.db.GetContext(ctx, &n,
			"SELECT COUNT(*) FROM "+def.Table+" WHERE "+def.Where(pred), args...); err != nil {
			return nil, 0, fmt.Errorf("count pending %s: %w", def.Kind, err)
		}
		if n == 0 {
			continue
		}
		out = append(out, PendingCount{Kind: def.Kind, Count: n})
		total += n
	}
	return out, total, nil
}

// ErrNoPending is returned by RequestDaemon when no row awaits the daemon.
var ErrNoPending = errors.New("provision: nothing to do")

// RequestDaemon wakes the dispatcher and notifies the daemon directly, so
// rows scheduled outside this service are picked up too.  It returns the
// number of pending rows.
func (s *Service) RequestDaemon(ctx context.Context, n daemon.Notifier) (int64, error) {
	_, total, err := s.CountPending(ctx)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, ErrNoPending
	}
	s.signal.Signal()
	if err := n.Notify(ctx); err != nil {
		return total, err
	}
	audit.Record(ctx, "requested daemon run for %d pending items", total)
	return total, nil
}
