// internal/component/handlers.go
//
// Handler builders for the customer-scoped delete endpoints, which all share
// one shape: signed-in account, {id} path parameter, service call, message.

package component

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/panel/internal/message"
)

// OwnedFunc acts on row id owned by customerID.
type OwnedFunc func(ctx context.Context, customerID, id int64) error

// Owned returns a handler that runs fn for the caller and the numeric {id}
// parameter, answering with okMsg on success.
func Owned(fn OwnedFunc, okMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := AccountID(r)
		if err != nil {
			message.Error(w, r, err)
			return
		}
		id, err := IDParam(r, "id")
		if err != nil {
			message.Error(w, r, err)
			return
		}
		if err := fn(r.Context(), customerID, id); err != nil {
			message.Error(w, r, err)
			return
		}
		message.OK(w, okMsg)
	}
}

// OwnedNamedFunc acts on a row keyed by a string id.
type OwnedNamedFunc func(ctx context.Context, customerID int64, id string) error

// OwnedNamed is Owned for string keys such as FTP user ids.
func OwnedNamed(fn OwnedNamedFunc, okMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := AccountID(r)
		if err != nil {
			message.Error(w, r, err)
			return
		}
		if err := fn(r.Context(), customerID, chi.URLParam(r, "id")); err != nil {
			message.Error(w, r, err)
			return
		}
		message.OK(w, okMsg)
	}
}
