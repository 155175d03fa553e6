// internal/component/params.go
//
// Path-parameter and identity helpers shared by components.

package component

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/panel/internal/auth"
	"github.com/yanizio/panel/internal/form"
	"github.com/yanizio/panel/internal/message"
)

// IDParam parses the positive integer path parameter name.  Failures are
// returned as a form.ValidationError so message.Error answers 400.
func IDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, form.ValidationError{Fields: []form.ErrorField{{Name: name, Message: "Must be a positive number."}}}
	}
	return id, nil
}

// AccountID returns the signed-in account id.  Routes only run behind
// acl.Authenticate, so a missing identity is a wiring fault and reported as
// forbidden.
func AccountID(r *http.Request) (int64, error) {
	id, ok := auth.UserID(r.Context())
	if !ok {
		return 0, message.ErrForbidden
	}
	return id, nil
}

// Scope returns the reseller scope for customer operations: the caller's own
// id for resellers, 0 (no scope) for administrators.
func Scope(r *http.Request) (int64, error) {
	ident, ok := auth.FromContext(r.Context())
	switch {
	case !ok || ident.ID == 0:
		return 0, message.ErrForbidden
	case ident.Type == auth.TypeAdmin:
		return 0, nil
	case ident.Type == auth.TypeReseller:
		return ident.ID, nil
	default:
		return 0, message.ErrForbidden
	}
}
