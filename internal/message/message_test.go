// internal/message/message_test.go
//
// Run: go test ./internal/message -v

package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yanizio/panel/internal/form"
	"github.com/yanizio/panel/internal/provision"
	"github.com/yanizio/panel/internal/status"
)

func TestClassify(t *testing.T) {
	_, transErr := status.Transition(status.ToDelete, status.ActionDelete)
	cases := []struct {
		err  error
		want int
	}{
		{form.ValidationError{Fields: []form.ErrorField{{Name: "id", Message: "x"}}}, http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", provision.ErrInvalidArgument), http.StatusBadRequest},
		{ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("mail#4: %w", provision.ErrProtected), http.StatusForbidden},
		{fmt.Errorf("domain#3: %w", provision.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("domain#3: %w", transErr), http.StatusConflict},
		{provision.ErrNoPending, http.StatusConflict},
		{errors.New("driver: bad connection"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got, _ := Classify(c.err); got != c.want {
			t.Errorf("Classify(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestConflictMessage(t *testing.T) {
	_, err := status.Transition(status.ToDelete, status.ActionDelete)
	_, body := Classify(err)
	if body.Message != "Cannot delete this item now (Deletion in progress)." {
		t.Errorf("message = %q", body.Message)
	}
}

func TestErrorHidesInternalText(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, httptest.NewRequest(http.MethodPost, "/x", nil), errors.New("secret dsn leaked"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var b Body
	if err := json.NewDecoder(rec.Body).Decode(&b); err != nil {
		t.Fatal(err)
	}
	if b.Message != Unexpected {
		t.Fatalf("message = %q", b.Message)
	}
}
