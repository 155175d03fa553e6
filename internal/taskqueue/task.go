// internal/taskqueue/task.go
//
// Daemon tasks: the outbox rows that make wake-up signals at-least-once.
//
// Context
// -------
// Every provisioning mutation inserts one task in the same transaction that
// moves the rows.  The task names the root row whose status acknowledges the
// whole batch (the customer for an account deletion, the domain for a
// suspension, the row itself for a single-entity action).  The dispatcher
// later signals the daemon and watches that row settle.
//
// Lifecycle
//
//	pending ──claim──▶ sending ──notify ok──▶ sent ──row settled──▶ done
//	   ▲                  │                    │
//	   └──notify failed───┘                    ├──row failed──▶ failed
//	   └──────────── not settled in time ──────┘
//	any retry beyond max_attempts ──▶ dead
//
// Notes
// -----
//   - Times are bound from Go, so the DSN needs parseTime=true.
//   - Oxford commas, two spaces after periods.
package taskqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/panel/internal/entity"
	"github.com/yanizio/panel/internal/status"
)

// State is the queue-side lifecycle of a task.
type State string

const (
	StatePending State = "pending"
	StateSending State = "sending"
	StateSent    State = "sent"
	StateDone    State = "done"
	StateFailed  State = "failed"
	StateDead    State = "dead"
)

var allStates = []State{StatePending, StateSending, StateSent, StateDone, StateFailed, StateDead}

var stateSet = func() map[State]struct{} {
	set := make(map[State]struct{}, len(allStates))
	for _, s := range allStates {
		set[s] = struct{}{}
	}
	return set
}()

// States returns every state in lifecycle order.
func States() []State { return append([]State(nil), allStates...) }

// ParseState normalises value and reports whether it is a known state.
func ParseState(value string) (State, bool) {
	s := State(strings.ToLower(strings.TrimSpace(value)))
	if s == "" {
		return "", false
	}
	_, ok := stateSet[s]
	return s, ok
}

// Terminal reports whether the dispatcher is finished with the task.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateDead
}

// Task is one row of daemon_task.
type Task struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	Kind          entity.Kind   `db:"entity_kind" json:"kind"`
	EntityID      string        `db:"entity_id" json:"entity_id"`
	Action        status.Action `db:"action" json:"action"`
	Target        status.Status `db:"target_status" json:"target"`
	State         State         `db:"state" json:"state"`
	Attempts      int           `db:"attempts" json:"attempts"`
	NextAttemptAt time.Time     `db:"next_attempt_at" json:"next_attempt_at"`
	LeaseUntil    sql.NullTime  `db:"lease_until" json:"-"`
	SentAt        sql.NullTime  `db:"sent_at" json:"-"`
	LastError     string        `db:"last_error" json:"last_error,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// Ref returns the row the task is waiting on.
func (t Task) Ref() entity.Ref { return entity.Ref{Kind: t.Kind, ID: t.EntityID} }

// NewTask builds a task for ref.  Target is the status the action wrote.
func NewTask(ref entity.Ref, action status.Action, target status.Status) Task {
	return Task{Kind: ref.Kind, EntityID: ref.ID, Action: action, Target: target}
}

// Schema creates the outbox table.  It lives next to the panel schema and is
// the only table this service owns.
const Schema = `CREATE TABLE IF NOT EXISTS daemon_task (
  id              CHAR(36)     NOT NULL PRIMARY KEY,
  entity_kind     VARCHAR(32)  NOT NULL,
  entity_id       VARCHAR(255) NOT NULL,
  action          VARCHAR(16)  NOT NULL,
  target_status   VARCHAR(16)  NOT NULL,
  state           VARCHAR(16)  NOT NULL DEFAULT 'pending',
  attempts        INT UNSIGNED NOT NULL DEFAULT 0,
  next_attempt_at DATETIME(3)  NOT NULL,
  lease_until     DATETIME(3)  NULL,
  sent_at         DATETIME(3)  NULL,
  last_error      TEXT         NOT NULL,
  created_at      DATETIME(3)  NOT NULL,
  updated_at      DATETIME(3)  NOT NULL,
  KEY idx_daemon_task_state (state, next_attempt_at),
  KEY idx_daemon_task_entity (entity_kind, entity_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const columns = `id, entity_kind, entity_id, action, target_status, state, attempts,
  next_attempt_at, lease_until, sent_at, last_error, created_at, updated_at`

const insertTask = `INSERT INTO daemon_task
  (id, entity_kind, entity_id, action, target_status, state, attempts,
   next_attempt_at, last_error, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, 0, ?, '', ?, ?)`

// ErrInvalidTask is returned by Enqueue for a task without a row to watch.
var ErrInvalidTask = errors.New("taskqueue: task needs an entity kind and id")

// Enqueuer is what mutation code needs from the queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, ext sqlx.ExtContext, t Task) (Task, error)
}

// Enqueue inserts t through ext, normally the caller's transaction, so the
// task commits or rolls back with the status change it describes.
func (s *Store) Enqueue(ctx context.Context, ext sqlx.ExtContext, t Task) (Task, error) {
	if t.Kind == "" || t.EntityID == "" {
		return Task{}, ErrInvalidTask
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := s.now()
	t.State = StatePending
	t.Attempts = 0
	t.NextAttemptAt = now
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := ext.ExecContext(ctx, insertTask,
		t.ID.String(), string(t.Kind), t.EntityID, string(t.Action), string(t.Target),
		string(t.State), t.NextAttemptAt, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return Task{}, fmt.Errorf("enqueue %s: %w", t.Ref(), err)
	}
	return t, nil
}
