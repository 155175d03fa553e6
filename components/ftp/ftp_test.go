package ftp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yanizio/panel/internal/auth"
	"github.com/yanizio/panel/internal/provision"
)

type fakeService struct{ got string }

func (f *fakeService) DeleteFTPUser(_ context.Context, _ int64, userID string) error {
	if userID == "ghost@acme.example" {
		return provision.ErrNotFound
	}
	f.got = userID
	return nil
}

func TestDeleteFTPUser(t *testing.T) {
	svc := &fakeService{}
	h := (&Comp{svc: svc}).Routes()
	post := func(path string) int {
		r := httptest.NewRequest(http.MethodPost, path, nil)
		r = r.WithContext(auth.WithIdentity(r.Context(), auth.Identity{ID: 12, Type: auth.TypeUser}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Code
	}

	if code := post("/bob@acme.example/delete"); code != http.StatusOK || svc.got != "bob@acme.example" {
		t.Fatalf("delete bob: status %d, got %q", code, svc.got)
	}
	if code := post("/ghost@acme.example/delete"); code != http.StatusNotFound {
		t.Fatalf("delete ghost: status %d, want 404", code)
	}
}
