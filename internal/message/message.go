// internal/message/message.go
//
// User-facing messages and JSON responses.
//
// Context
//   Every handler ends the same way: write a JSON body with a status code and
//   a sentence the panel can show as-is.  Errors from the service layer are
//   mapped here so each component does not invent its own table:
//
//      form.ValidationError       → 400 + field errors
//      provision.ErrInvalidArgument → 400
//      ErrForbidden               → 403
//      provision.ErrProtected     → 403
//      provision.ErrNotFound      → 404
//      status.ErrTransition       → 409
//      provision.ErrNoPending     → 409
//      anything else              → 500 "An unexpected error occurred."
//
//   500s are logged with the request logger.  The client never sees the
//   underlying error text.
//
// Style
//   Two-space sentence spacing, Oxford comma, concise inline notes.
//
//------------------------------------------------------------------------------

package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/yanizio/panel/internal/form"
	"github.com/yanizio/panel/internal/logger"
	"github.com/yanizio/panel/internal/provision"
	"github.com/yanizio/panel/internal/status"
)

// Unexpected is the only text a client sees for a server-side failure.
const Unexpected = "An unexpected error occurred."

// ErrForbidden is returned by handlers that refuse an authenticated caller.
var ErrForbidden = errors.New("forbidden")

// Body is the envelope of every non-data response.
type Body struct {
	Message string            `json:"message"`
	Fields  []form.ErrorField `json:"fields,omitempty"`
}

// JSON writes v with code.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes a 200 with a user-facing message.
func OK(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusOK, Body{Message: msg})
}

// Classify maps err to an HTTP status and a user-facing body.
func Classify(err error) (int, Body) {
	var ve form.ValidationError
	var te *status.TransitionError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, Body{Message: "Please correct the highlighted fields.", Fields: ve.Fields}
	case errors.Is(err, provision.ErrInvalidArgument):
		return http.StatusBadRequest, Body{Message: "The request is not valid."}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, Body{Message: "You are not allowed to do that."}
	case errors.Is(err, provision.ErrProtected):
		return http.StatusForbidden, Body{Message: "Default mail accounts cannot be deleted."}
	case errors.Is(err, provision.ErrNotFound):
		return http.StatusNotFound, Body{Message: "The item does not exist or does not belong to you."}
	case errors.As(err, &te):
		return http.StatusConflict, Body{Message: conflictMessage(te)}
	case errors.Is(err, provision.ErrNoPending):
		return http.StatusConflict, Body{Message: "Nothing to do."}
	default:
		return http.StatusInternalServerError, Body{Message: Unexpected}
	}
}

func conflictMessage(te *status.TransitionError) string {
	if te.From.IsFailed() {
		return "The item is in an error state.  An administrator has to resolve it first."
	}
	return fmt.Sprintf("Cannot %s this item now (%s).", te.Action,
		strings.TrimSuffix(status.Humanize(te.From, false), "..."))
}

// Error writes the response for err.  Server-side failures are logged.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	code, body := Classify(err)
	if code == http.StatusInternalServerError {
		logger.FromContext(r.Context()).Errorw("request failed",
			"method", r.Method, "path", r.URL.Path, zap.Error(err))
	}
	JSON(w, code, body)
}
