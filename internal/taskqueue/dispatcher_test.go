package taskqueue

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/yanizio/panel/internal/entity"
	"github.com/yanizio/panel/internal/status"
)

type fakeNotifier struct {
	calls int
	err   error
}

func (f *fakeNotifier) Notify(context.Context) error {
	f.calls++
	return f.err
}

// expectQuietTail covers the prune and gauge refresh that end every cycle.
func expectQuietTail(mock sqlmock.Sqlmock) {
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM daemon_task WHERE state = ? AND updated_at < ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT state, COUNT(*) AS n FROM daemon_task GROUP BY state")).
		WillReturnRows(sqlmock.NewRows([]string{"state", "n"}))
}

func TestCycleMarksSent(t *testing.T) {
	s, mock := newStore(t, Config{})
	id := uuid.New()
	n := &fakeNotifier{}
	d := NewDispatcher(s, n)

	mock.ExpectQuery(regexp.QuoteMeta(selectSent)).WillReturnRows(sqlmock.NewRows(taskCols))
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(claimSelect)).
		WillReturnRows(sqlmock.NewRows(taskCols).
			AddRow(taskRow(id, entity.Customer, "42", status.ToDelete, StatePending, 0, nil)...))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE daemon_task\nSET state = ?, attempts")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE daemon_task
SET state = ?, sent_at = ?, lease_until = NULL, last_error = '', updated_at = ?
WHERE state = ? AND id IN (?)`)).
		WithArgs("sent", fixedNow, fixedNow, "sending", id.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectQuietTail(mock)

	if err := d.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if n.calls != 1 {
		t.Fatalf("daemon notified %d times, want 1", n.calls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestCycleReleasesWhenDaemonIsDown(t *testing.T) {
	s, mock := newStore(t, Config{BaseBackoff: time.Second, MaxAttempts: 4})
	id := uuid.New()
	d := NewDispatcher(s, &fakeNotifier{err: errors.New("connection refused")})

	mock.ExpectQuery(regexp.QuoteMeta(selectSent)).WillReturnRows(sqlmock.NewRows(taskCols))
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(claimSelect)).
		WillReturnRows(sqlmock.NewRows(taskCols).
			AddRow(taskRow(id, entity.Domain, "5", status.ToEnable, StatePending, 0, nil)...))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE daemon_task\nSET state = ?, attempts")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec(regexp.QuoteMeta(reschedule)).
		WithArgs("pending", fixedNow.Add(time.Second), "connection refused", fixedNow, id.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectQuietTail(mock)

	if err := d.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestCycleIdleSkipsDaemon(t *testing.T) {
	s, mock := newStore(t, Config{})
	n := &fakeNotifier{}
	d := NewDispatcher(s, n)

	mock.ExpectQuery(regexp.QuoteMeta(selectSent)).WillReturnRows(sqlmock.NewRows(taskCols))
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(claimSelect)).WillReturnRows(sqlmock.NewRows(taskCols))
	mock.ExpectCommit()
	expectQuietTail(mock)

	if err := d.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if n.calls != 0 {
		t.Fatalf("daemon notified with an empty queue")
	}
}

func TestSignalCoalesces(t *testing.T) {
	s, _ := newStore(t, Config{})
	d := NewDispatcher(s, &fakeNotifier{})

	d.Signal()
	d.Signal()
	d.Signal()
	if got := len(d.wake); got != 1 {
		t.Fatalf("pending wake-ups = %d, want 1", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s, _ := newStore(t, Config{PollInterval: time.Hour})
	d := NewDispatcher(s, &fakeNotifier{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
