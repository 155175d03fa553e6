// internal/acl/acl_test.go
//
// Unit-tests for the identity store and tier middleware using sqlmock.
//
// Run: go test ./internal/acl -v

package acl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/panel/internal/auth"
)

func newStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet SQL expectations: %v", err)
		}
		db.Close()
	})
	return NewStore(sqlx.NewDb(db, "mysql"), 8, time.Minute), mock
}

func TestIdentityCachesLookups(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(identityQuery)).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"admin_id", "admin_name", "admin_type"}).
			AddRow(42, "reseller1", "reseller"))

	for i := 0; i < 3; i++ {
		got, err := s.Identity(context.Background(), 42)
		if err != nil {
			t.Fatalf("Identity: %v", err)
		}
		if got.Name != "reseller1" || got.Type != auth.TypeReseller {
			t.Fatalf("Identity = %+v", got)
		}
	}
}

func TestIdentityUnknownAndInvalidate(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(identityQuery)).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"admin_id", "admin_name", "admin_type"}))
	if _, err := s.Identity(context.Background(), 9); err != ErrUnknownAccount {
		t.Fatalf("err = %v, want ErrUnknownAccount", err)
	}

	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"admin_id", "admin_name", "admin_type"}).AddRow(1, "admin", "admin")
	}
	mock.ExpectQuery(regexp.QuoteMeta(identityQuery)).WithArgs(int64(1)).WillReturnRows(rows())
	mock.ExpectQuery(regexp.QuoteMeta(identityQuery)).WithArgs(int64(1)).WillReturnRows(rows())
	if _, err := s.Identity(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	s.Invalidate(1)
	if _, err := s.Identity(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
}

type fakeSessions map[string]int64

func (f fakeSessions) AccountID(r *http.Request) (int64, bool) {
	id, ok := f[r.Header.Get("X-Test-Session")]
	return id, ok
}

type fakeResolver map[int64]auth.Identity

func (f fakeResolver) Identity(_ context.Context, id int64) (auth.Identity, error) {
	ident, ok := f[id]
	if !ok {
		return auth.Identity{}, ErrUnknownAccount
	}
	return ident, nil
}

func TestAuthenticateAndRequireType(t *testing.T) {
	resolver := fakeResolver{
		1: {ID: 1, Name: "admin", Type: auth.TypeAdmin},
		2: {ID: 2, Name: "bob", Type: auth.TypeUser},
	}
	sessions := fakeSessions{"a": 1, "u": 2, "ghost": 99}

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := Authenticate(resolver, sessions)(RequireType(auth.TypeAdmin, auth.TypeReseller)(ok))

	cases := []struct {
		session string
		want    int
	}{
		{"a", http.StatusNoContent},
		{"u", http.StatusForbidden},
		{"ghost", http.StatusUnauthorized},
		{"", http.StatusUnauthorized},
	}
	for _, c := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Test-Session", c.session)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		if rec.Code != c.want {
			t.Errorf("session %q: status = %d, want %d", c.session, rec.Code, c.want)
		}
	}
}

func TestRequireTypePanicsWithoutTypes(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("RequireType() did not panic")
		}
	}()
	RequireType()
}
