// internal/provision/service.go
//
// Transactional status mutations over the shared panel schema.
//
// Context
// -------
// Every operation in this package has the same shape:
//
//	begin → lock and check the root row → move rows with the transition
//	table → enqueue one daemon task → commit → wake the dispatcher
//
// Bulk statements render their WHERE clause from status.Sources, so a row
// that is not in a state the action applies to is left as it is.  Cascades
// (children of an account or domain that goes away) use ActionPurge, which
// also overrides in-flight work.
//
// Notes
// -----
//   - Column and table names come only from the entity registry.
//   - Audit lines are written after commit, never for a rolled-back change.
//   - Oxford commas, two spaces after periods.
package provision

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/panel/internal/database"
	"github.com/yanizio/panel/internal/entity"
	"github.com/yanizio/panel/internal/metrics"
	"github.com/yanizio/panel/internal/status"
	"github.com/yanizio/panel/internal/taskqueue"
)

var (
	// ErrNotFound covers both a missing row and a row the caller does not
	// own.  Handlers answer 404 either way.
	ErrNotFound = errors.New("provision: not found")

	// ErrInvalidArgument is returned for requests that fail validation
	// before any row is read.
	ErrInvalidArgument = errors.New("provision: invalid argument")

	// ErrProtected is returned for rows the panel settings forbid touching,
	// such as the default mail forwards.
	ErrProtected = errors.New("provision: protected")
)

// Signaller wakes the task dispatcher after a commit.
type Signaller interface {
	Signal()
}

type nopSignal struct{}

func (nopSignal) Signal() {}

// Options carries panel-wide switches.
type Options struct {
	// HardMailSuspension disables SMTP as well as IMAP and POP when an
	// account is deactivated.
	HardMailSuspension bool

	// ProtectDefaultMail makes DeleteMail refuse the default forwards.
	ProtectDefaultMail bool

	// CountDefaultMail includes the default forwards in reseller counts.
	CountDefaultMail bool
}

// Service performs provisioning mutations.  Safe for concurrent use.
type Service struct {
	db     *sqlx.DB
	queue  taskqueue.Enqueuer
	signal Signaller
	opts   Options
}

// New wires a Service.  A nil signaller is allowed; tasks are then picked up
// on the dispatcher's next poll.
func New(db *sqlx.DB, queue taskqueue.Enqueuer, signal Signaller, opts Options) *Service {
	if signal == nil {
		signal = nopSignal{}
	}
	return &Service{db: db, queue: queue, signal: signal, opts: opts}
}

// run executes fn in one transaction and wakes the dispatcher when fn
// queued at least one task.
func (s *Service) run(ctx context.Context, fn func(b *batch) error) error {
	var queued int
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		b := &batch{ctx: ctx, tx: tx, svc: s}
		if err := fn(b); err != nil {
			return err
		}
		queued = b.queued
		return nil
	})
	if err != nil {
		return err
	}
	if queued > 0 {
		s.signal.Signal()
	}
	return nil
}

// batch is the per-transaction helper handed to operations.
type batch struct {
	ctx    context.Context
	tx     *sqlx.Tx
	svc    *Service
	queued int
}

// move describes one bulk status update.
type move struct {
	kind    entity.Kind
	action  status.Action
	from    string // table expression; defaults to the kind's table
	set     string // extra assignments after the status column
	setArgs []any
	where   string
	args    []any
}

// update applies m to every row in the action's source set and returns the
// number of rows moved.
func (b *batch) update(m move) (int64, error) {
	def, err := entity.Lookup(m.kind)
	if err != nil {
		return 0, err
	}
	to, ok := status.Target(m.action)
	if !ok {
		return 0, fmt.Errorf("provision: action %q has no single target", m.action)
	}
	from := m.from
	if from == "" {
		from = def.Table
	}
	col := def.Column(def.StatusCol)
	src, srcArgs := status.Sources(m.action).SQL(col)

	q := "UPDATE " + from + " SET " + col + " = ?"
	if m.set != "" {
		q += ", " + m.set
	}
	q += " WHERE (" + m.where + ") AND " + src

	args := make([]any, 0, 1+len(m.setArgs)+len(m.args)+len(srcArgs))
	args = append(args, string(to))
	args = append(args, m.setArgs...)
	args = append(args, m.args...)
	args = append(args, srcArgs...)

	res, err := b.tx.ExecContext(b.ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", m.action, m.kind, err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		metrics.TransitionsTotal.WithLabelValues(string(m.kind), string(m.action)).Add(float64(n))
	}
	return n, nil
}

// bulk is update for the common single-table case.
func (b *batch) bulk(kind entity.Kind, action status.Action, where string, args ...any) error {
	_, err := b.update(move{kind: kind, action: action, where: where, args: args})
	return err
}

// rewrite writes the list columns of one row whatever its status, then
// schedules the row for regeneration when it is at rest.  A disabled or
// in-flight row keeps its status; the daemon reads the new lists when it
// next handles the row.
func (b *batch) rewrite(kind entity.Kind, id any, set string, setArgs ...any) error {
	def, err := entity.Lookup(kind)
	if err != nil {
		return err
	}
	q := "UPDATE " + def.Table + " SET " + set + " WHERE " + def.IDColumn + " = ?"
	if _, err := b.exec(q, append(setArgs, id)...); err != nil {
		return fmt.Errorf("rewrite %s %v: %w", kind, id, err)
	}
	return b.bulk(kind, status.ActionChange, def.IDColumn+" = ?", id)
}

// exec runs a statement that does not touch a status column.
func (b *batch) exec(q string, args ...any) (int64, error) {
	res, err := b.tx.ExecContext(b.ctx, q, args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// get scans one row into dest, mapping sql.ErrNoRows to ErrNotFound.
func (b *batch) get(dest any, q string, args ...any) error {
	err := b.tx.GetContext(b.ctx, dest, q, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// transition moves the single row ref from current via action.  The caller
// must already hold the row lock (SELECT … FOR UPDATE).
func (b *batch) transition(ref entity.Ref, current status.Status, action status.Action) (status.Status, error) {
	to, err := status.Transition(current, action)
	if err != nil {
		metrics.TransitionRejectedTotal.WithLabelValues(string(ref.Kind), string(action)).Inc()
		return "", fmt.Errorf("%s: %w", ref, err)
	}
	def, err := entity.Lookup(ref.Kind)
	if err != nil {
		return "", err
	}
	q := "UPDATE " + def.Table + " SET " + def.StatusCol + " = ? WHERE " + def.IDColumn + " = ?"
	if _, err := b.tx.ExecContext(b.ctx, q, string(to), ref.ID); err != nil {
		return "", fmt.Errorf("%s %s: %w", action, ref, err)
	}
	metrics.TransitionsTotal.WithLabelValues(string(ref.Kind), string(action)).Inc()
	return to, nil
}

// check validates action against current without writing anything.
func check(ref entity.Ref, current status.Status, action status.Action) error {
	if _, err := status.Transition(current, action); err != nil {
		metrics.TransitionRejectedTotal.WithLabelValues(string(ref.Kind), string(action)).Inc()
		return fmt.Errorf("%s: %w", ref, err)
	}
	return nil
}

// enqueue records the task that acknowledges this batch.
func (b *batch) enqueue(ref entity.Ref, action status.Action, target status.Status) error {
	t, err := b.svc.queue.Enqueue(b.ctx, b.tx, taskqueue.NewTask(ref, action, target))
	if err != nil {
		return err
	}
	b.queued++
	zap.S().Debugw("daemon task queued", "task", t.ID, "entity", ref.String(), "action", action)
	return nil
}

func refOf(kind entity.Kind, id int64) entity.Ref {
	return entity.Ref{Kind: kind, ID: strconv.FormatInt(id, 10)}
}
