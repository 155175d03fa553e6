// components/debugger/debugger_test.go
//
// Run: go test ./components/debugger -v

package debugger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yanizio/panel/internal/auth"
	"github.com/yanizio/panel/internal/daemon"
	"github.com/yanizio/panel/internal/entity"
	"github.com/yanizio/panel/internal/provision"
	"github.com/yanizio/panel/internal/status"
)

type fakeService struct {
	failed  []provision.FailedRow
	pending int64
	retried []entity.Ref
}

func (f *fakeService) ListErrors(context.Context) ([]provision.FailedRow, error) {
	return f.failed, nil
}

func (f *fakeService) CountPending(context.Context) ([]provision.PendingCount, int64, error) {
	if f.pending == 0 {
		return nil, 0, nil
	}
	return []provision.PendingCount{{Kind: entity.Mail, Count: f.pending}}, f.pending, nil
}

func (f *fakeService) RequestDaemon(_ context.Context, _ daemon.Notifier) (int64, error) {
	if f.pending == 0 {
		return 0, provision.ErrNoPending
	}
	return f.pending, nil
}

func (f *fakeService) Retry(_ context.Context, ref entity.Ref) error {
	if ref.ID == "404" {
		return fmt.Errorf("%s: %w", ref, provision.ErrNotFound)
	}
	if ref.ID == "busy" {
		_, err := status.Transition(status.ToAdd, status.ActionRetry)
		return err
	}
	f.retried = append(f.retried, ref)
	return nil
}

func serve(c *Comp, method, path string, ident auth.Identity) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, nil)
	r = r.WithContext(auth.WithIdentity(r.Context(), ident))
	rec := httptest.NewRecorder()
	c.Routes().ServeHTTP(rec, r)
	return rec
}

var admin = auth.Identity{ID: 1, Name: "admin", Type: auth.TypeAdmin}

func TestOverview(t *testing.T) {
	svc := &fakeService{
		failed:  []provision.FailedRow{{Ref: entity.Ref{Kind: entity.Domain, ID: "3"}, Name: "acme.example", Message: "vhost failed"}},
		pending: 2,
	}
	rec := serve(&Comp{svc: svc}, http.MethodGet, "/", admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got Overview
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got.Errors) != 1 || got.PendingTotal != 2 {
		t.Fatalf("overview = %+v", got)
	}
}

func TestOverviewRequiresAdmin(t *testing.T) {
	rec := serve(&Comp{svc: &fakeService{}}, http.MethodGet, "/", auth.Identity{ID: 4, Type: auth.TypeReseller})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestRun(t *testing.T) {
	if rec := serve(&Comp{svc: &fakeService{pending: 3}}, http.MethodPost, "/run", admin); rec.Code != http.StatusOK {
		t.Errorf("run with pending: status = %d", rec.Code)
	}
	if rec := serve(&Comp{svc: &fakeService{}}, http.MethodPost, "/run", admin); rec.Code != http.StatusConflict {
		t.Errorf("run with nothing pending: status = %d, want 409", rec.Code)
	}
}

func TestChange(t *testing.T) {
	svc := &fakeService{}
	c := &Comp{svc: svc}
	cases := []struct {
		path string
		want int
	}{
		{"/change/domain/3", http.StatusOK},
		{"/change/ftp/bob@acme.example", http.StatusOK},
		{"/change/planet/3", http.StatusBadRequest},
		{"/change/mail/404", http.StatusNotFound},
		{"/change/mail/busy", http.StatusConflict},
	}
	for _, tc := range cases {
		if rec := serve(c, http.MethodPost, tc.path, admin); rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.path, rec.Code, tc.want)
		}
	}
	if len(svc.retried) != 2 || svc.retried[1].ID != "bob@acme.example" {
		t.Errorf("retried = %v", svc.retried)
	}
}
