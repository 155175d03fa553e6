// components/customers/customers_test.go
//
// Run: go test ./components/customers -v

package customers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yanizio/panel/internal/auth"
	"github.com/yanizio/panel/internal/provision"
	"github.com/yanizio/panel/internal/reseller"
)

type call struct {
	op            string
	scope, target int64
}

type fakeService struct{ calls []call }

func (f *fakeService) record(op string, scope, id int64) error {
	if id == 404 {
		return fmt.Errorf("customer %d: %w", id, provision.ErrNotFound)
	}
	f.calls = append(f.calls, call{op, scope, id})
	return nil
}

func (f *fakeService) ChangeCustomerStatus(_ context.Context, scope, id int64, op provision.CustomerOp) error {
	return f.record(string(op), scope, id)
}

func (f *fakeService) DeleteCustomer(_ context.Context, scope, id int64) error {
	return f.record("delete", scope, id)
}

func (f *fakeService) ApproveAliasOrder(_ context.Context, scope, id int64) error {
	return f.record("approve", scope, id)
}

func (f *fakeService) RejectAliasOrder(_ context.Context, scope, id int64) error {
	return f.record("reject", scope, id)
}

func (f *fakeService) ResellerCounts(_ context.Context, id int64) (reseller.Counts, error) {
	if err := f.record("counts", id, id); err != nil {
		return reseller.Counts{}, err
	}
	return reseller.Counts{Customers: 2, Domains: 2, Aliases: 1, Mail: 10, FTP: 3, SQLDBs: 1, SQLUsers: 1}, nil
}

var (
	admin  = auth.Identity{ID: 1, Type: auth.TypeAdmin}
	seller = auth.Identity{ID: 7, Type: auth.TypeReseller}
	user   = auth.Identity{ID: 12, Type: auth.TypeUser}
)

func serve(c *Comp, method, path, body string, ident auth.Identity) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	r = r.WithContext(auth.WithIdentity(r.Context(), ident))
	rec := httptest.NewRecorder()
	c.Routes().ServeHTTP(rec, r)
	return rec
}

func TestRoutesScopeByCaller(t *testing.T) {
	svc := &fakeService{}
	c := &Comp{svc: svc}
	cases := []struct {
		path, body string
		ident      auth.Identity
		want       int
	}{
		{"/12/status", `{"action":"deactivate"}`, seller, http.StatusOK},
		{"/12/status", `{"action":"activate"}`, admin, http.StatusOK},
		{"/12/status", `{"action":"explode"}`, seller, http.StatusBadRequest},
		{"/12/delete", "", seller, http.StatusOK},
		{"/404/delete", "", seller, http.StatusNotFound},
		{"/aliases/3/approve", "", seller, http.StatusOK},
		{"/aliases/3/reject", "", admin, http.StatusOK},
		{"/12/delete", "", user, http.StatusForbidden},
		{"/abc/delete", "", seller, http.StatusBadRequest},
	}
	for _, tc := range cases {
		if rec := serve(c, http.MethodPost, tc.path, tc.body, tc.ident); rec.Code != tc.want {
			t.Errorf("%s as %s: status = %d, want %d (%s)", tc.path, tc.ident.Type, rec.Code, tc.want, rec.Body)
		}
	}

	want := []call{
		{"deactivate", 7, 12},
		{"activate", 0, 12},
		{"delete", 7, 12},
		{"approve", 7, 3},
		{"reject", 0, 3},
	}
	if len(svc.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", svc.calls, want)
	}
	for i := range want {
		if svc.calls[i] != want[i] {
			t.Errorf("call %d = %v, want %v", i, svc.calls[i], want[i])
		}
	}
}

func TestStats(t *testing.T) {
	svc := &fakeService{}
	c := &Comp{svc: svc}
	rec := serve(c, http.MethodGet, "/stats", "", seller)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"mail":10`) {
		t.Fatalf("stats = %d %s", rec.Code, rec.Body)
	}

	if len(svc.calls) != 1 || svc.calls[0] != (call{"counts", 7, 7}) {
		t.Errorf("calls = %v, want one count for reseller 7", svc.calls)
	}

	if rec := serve(c, http.MethodGet, "/stats", "", admin); rec.Code != http.StatusForbidden {
		t.Errorf("admin stats: status = %d, want 403", rec.Code)
	}
}
