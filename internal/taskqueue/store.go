// internal/taskqueue/store.go
//
// SQL side of the daemon task queue.
//
// Context
// -------
// Claim takes a batch of due tasks with SELECT … FOR UPDATE SKIP LOCKED and
// leases them, so two panel processes never signal for the same task at the
// same time.  A task left in `sending` by a crashed process becomes claimable
// again once its lease runs out.
//
// Release and Requeue compute the next attempt with an exponential backoff
// (cenkalti/backoff) capped at MaxBackoff, and dead-letter a task once its
// attempts reach MaxAttempts.
package taskqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/panel/internal/database"
	"github.com/yanizio/panel/internal/entity"
	"github.com/yanizio/panel/internal/metrics"
	"github.com/yanizio/panel/internal/status"
)

// Config tunes claiming, retrying, and acknowledgement.
type Config struct {
	PollInterval  time.Duration
	Lease         time.Duration
	MaxAttempts   int
	BaseBackoff   time.Duration
	MaxBackoff    time.Duration
	SettleTimeout time.Duration
	BatchSize     int
	Retention     time.Duration // how long done tasks are kept
}

// DefaultConfig returns settings suited to a single panel host.
func DefaultConfig() Config {
	return Config{
		PollInterval:  5 * time.Second,
		Lease:         30 * time.Second,
		MaxAttempts:   8,
		BaseBackoff:   2 * time.Second,
		MaxBackoff:    5 * time.Minute,
		SettleTimeout: 10 * time.Minute,
		BatchSize:     50,
		Retention:     7 * 24 * time.Hour,
	}
}

// Store reads and writes daemon_task.
type Store struct {
	db  *sqlx.DB
	cfg Config
	now func() time.Time
}

// NewStore wraps db.  Zero fields in cfg take their DefaultConfig value.
func NewStore(db *sqlx.DB, cfg Config) *Store {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.Lease <= 0 {
		cfg.Lease = def.Lease
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = def.BaseBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.SettleTimeout <= 0 {
		cfg.SettleTimeout = def.SettleTimeout
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Retention <= 0 {
		cfg.Retention = def.Retention
	}
	return &Store{db: db, cfg: cfg, now: time.Now}
}

// Config returns the effective settings.
func (s *Store) Config() Config { return s.cfg }

// Migrate creates daemon_task when missing.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	return err
}

const claimSelect = `SELECT ` + columns + `
FROM daemon_task
WHERE (state = ? AND next_attempt_at <= ?)
   OR (state = ? AND lease_until < ?)
ORDER BY next_attempt_at, created_at
LIMIT ?
FOR UPDATE SKIP LOCKED`

const claimUpdate = `UPDATE daemon_task
SET state = ?, attempts = attempts + 1, lease_until = ?, updated_at = ?
WHERE id IN (?)`

// Claim leases up to BatchSize due tasks and moves them to `sending`.
func (s *Store) Claim(ctx context.Context) ([]Task, error) {
	var claimed []Task
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		now := s.now()
		var due []Task
		if err := tx.SelectContext(ctx, &due, claimSelect,
			string(StatePending), now, string(StateSending), now, s.cfg.BatchSize); err != nil {
			return fmt.Errorf("select due tasks: %w", err)
		}
		if len(due) == 0 {
			return nil
		}

		lease := now.Add(s.cfg.Lease)
		q, args, err := sqlx.In(claimUpdate, string(StateSending), lease, now, taskIDs(due))
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(q), args...); err != nil {
			return fmt.Errorf("lease tasks: %w", err)
		}
		for i := range due {
			due[i].State = StateSending
			due[i].Attempts++
			due[i].LeaseUntil = sql.NullTime{Time: lease, Valid: true}
			due[i].UpdatedAt = now
		}
		claimed = due
		return nil
	})
	return claimed, err
}

const markSent = `UPDATE daemon_task
SET state = ?, sent_at = ?, lease_until = NULL, last_error = '', updated_at = ?
WHERE state = ? AND id IN (?)`

// MarkSent records a successful wake-up for the claimed tasks.
func (s *Store) MarkSent(ctx context.Context, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}
	now := s.now()
	q, args, err := sqlx.In(markSent, string(StateSent), now, now, string(StateSending), taskIDs(tasks))
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(q), args...)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	n, _ := res.RowsAffected()
	metrics.TaskOutcomesTotal.WithLabelValues("sent").Add(float64(n))
	return nil
}

const reschedule = `UPDATE daemon_task
SET state = ?, next_attempt_at = ?, lease_until = NULL, sent_at = NULL, last_error = ?, updated_at = ?
WHERE id = ?`

// Release returns claimed tasks to the queue after a failed wake-up.
func (s *Store) Release(ctx context.Context, tasks []Task, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	var errs []error
	for _, t := range tasks {
		if err := s.retry(ctx, t, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// retry schedules the next attempt of t, or dead-letters it.
func (s *Store) retry(ctx context.Context, t Task, msg string) error {
	now := s.now()
	state, next, outcome := StatePending, now.Add(s.Delay(t.Attempts)), "retried"
	if t.Attempts >= s.cfg.MaxAttempts {
		state, next, outcome = StateDead, now, "dead"
		zap.S().Warnw("daemon task dead-lettered",
			"task", t.ID, "entity", t.Ref().String(), "attempts", t.Attempts, "err", msg)
	}
	if _, err := s.db.ExecContext(ctx, reschedule, string(state), next, msg, now, t.ID.String()); err != nil {
		return fmt.Errorf("reschedule %s: %w", t.ID, err)
	}
	metrics.TaskOutcomesTotal.WithLabelValues(outcome).Inc()
	return nil
}

// Delay returns the wait before attempt+1.  The first retry waits
// BaseBackoff, and every further one doubles up to MaxBackoff.
func (s *Store) Delay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.BaseBackoff
	b.MaxInterval = s.cfg.MaxBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	d := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}

const selectSent = `SELECT ` + columns + `
FROM daemon_task
WHERE state = ?
ORDER BY sent_at
LIMIT ?`

const finish = `UPDATE daemon_task
SET state = ?, lease_until = NULL, last_error = ?, updated_at = ?
WHERE id = ? AND state = ?`

// Reconcile is the acknowledgement step.  For every sent task it reads the
// watched row: a settled row completes the task, a daemon error fails it,
// and a row still pending after SettleTimeout is queued for another signal.
// It returns the number of tasks that left the `sent` state.
//
// A task naming a kind this binary does not know is failed.  A row that
// cannot be read is skipped until the next call.  Neither stops the loop.
func (s *Store) Reconcile(ctx context.Context) (int, error) {
	var sent []Task
	if err := s.db.SelectContext(ctx, &sent, selectSent, string(StateSent), s.cfg.BatchSize); err != nil {
		return 0, fmt.Errorf("select sent tasks: %w", err)
	}

	moved := 0
	for _, t := range sent {
		raw, found, err := s.rowStatus(ctx, t.Ref())
		if errors.Is(err, entity.ErrUnknownKind) {
			zap.S().Warnw("failing task for unknown entity kind", "task", t.ID, "kind", t.Kind, "err", err)
			if err := s.finish(ctx, t, StateFailed, err.Error(), "failed"); err != nil {
				return moved, err
			}
			moved++
			continue
		}
		if err != nil {
			zap.S().Warnw("cannot read watched row", "task", t.ID, "entity", t.Ref().String(), "err", err)
			continue
		}
		changed, err := s.settle(ctx, t, raw, found)
		if err != nil {
			return moved, err
		}
		if changed {
			moved++
		}
	}
	return moved, nil
}

func (s *Store) settle(ctx context.Context, t Task, raw string, found bool) (bool, error) {
	now := s.now()

	if !found {
		if t.Target == status.ToDelete {
			return true, s.finish(ctx, t, StateDone, "", "done")
		}
		return true, s.finish(ctx, t, StateFailed, "row no longer exists", "failed")
	}

	st := status.Of(raw)
	switch {
	case st.IsFailed():
		zap.S().Warnw("daemon reported failure",
			"task", t.ID, "entity", t.Ref().String(), "status", raw)
		return true, s.finish(ctx, t, StateFailed, raw, "failed")
	case st.IsPending():
		if !t.SentAt.Valid || now.Sub(t.SentAt.Time) < s.cfg.SettleTimeout {
			return false, nil
		}
		return true, s.retry(ctx, t, fmt.Sprintf("still %s after %s", st, s.cfg.SettleTimeout))
	default:
		return true, s.finish(ctx, t, StateDone, "", "done")
	}
}

func (s *Store) finish(ctx context.Context, t Task, state State, msg, outcome string) error {
	_, err := s.db.ExecContext(ctx, finish, string(state), msg, s.now(), t.ID.String(), string(StateSent))
	if err != nil {
		return fmt.Errorf("finish %s: %w", t.ID, err)
	}
	metrics.TaskOutcomesTotal.WithLabelValues(outcome).Inc()
	return nil
}

// rowStatus reads the status column of ref.  found is false when the row is
// gone, which is how a completed deletion looks.
func (s *Store) rowStatus(ctx context.Context, ref entity.Ref) (string, bool, error) {
	def, err := entity.Lookup(ref.Kind)
	if err != nil {
		return "", false, err
	}
	q := "SELECT " + def.StatusCol + " FROM " + def.Table + " WHERE " + def.IDColumn + " = ?"
	var raw string
	switch err := s.db.GetContext(ctx, &raw, q, ref.ID); {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("read status of %s: %w", ref, err)
	}
	return raw, true, nil
}

// Stats counts tasks per state.  Every state is present in the result.
func (s *Store) Stats(ctx context.Context) (map[State]int, error) {
	rows := []struct {
		State string `db:"state"`
		N     int    `db:"n"`
	}{}
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT state, COUNT(*) AS n FROM daemon_task GROUP BY state`); err != nil {
		return nil, fmt.Errorf("task stats: %w", err)
	}
	out := make(map[State]int, len(allStates))
	for _, st := range allStates {
		out[st] = 0
	}
	for _, r := range rows {
		if st, ok := ParseState(r.State); ok {
			out[st] = r.N
		}
	}
	return out, nil
}

// List returns the newest tasks in state, up to limit.
func (s *Store) List(ctx context.Context, state State, limit int) ([]Task, error) {
	var out []Task
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+columns+` FROM daemon_task WHERE state = ? ORDER BY updated_at DESC LIMIT ?`,
		string(state), limit)
	if err != nil {
		return nil, fmt.Errorf("list %s tasks: %w", state, err)
	}
	return out, nil
}

// RequeueDead gives dead tasks a fresh set of attempts.
func (s *Store) RequeueDead(ctx context.Context) (int64, error) {
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE daemon_task SET state = ?, attempts = 0, next_attempt_at = ?, updated_at = ? WHERE state = ?`,
		string(StatePending), now, now, string(StateDead))
	if err != nil {
		return 0, fmt.Errorf("requeue dead tasks: %w", err)
	}
	return res.RowsAffected()
}

// Prune deletes done tasks older than Retention.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM daemon_task WHERE state = ? AND updated_at < ?`,
		string(StateDone), s.now().Add(-s.cfg.Retention))
	if err != nil {
		return 0, fmt.Errorf("prune tasks: %w", err)
	}
	return res.RowsAffected()
}

func taskIDs(tasks []Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID.String()
	}
	return ids
}
