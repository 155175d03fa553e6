// internal/form/submit.go
//
// Consolidated Bind helper.
//
// Context
//   Most handlers want one call that decodes the JSON body and validates it.
//   Bind provides that so component code stays terse.
//
//------------------------------------------------------------------------------

package form

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// MaxBody caps request bodies.  Panel requests are small.
const MaxBody = 64 << 10

// Bind decodes r's JSON body into dst and validates it.  Malformed JSON and
// unknown fields are reported as a ValidationError on the field "" so callers
// answer 400 for every client mistake.
func Bind(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		msg := "Malformed request body."
		var mbe *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			msg = "Request body is empty."
		case errors.As(err, &mbe):
			msg = "Request body is too large."
		}
		return ValidationError{Fields: []ErrorField{{Name: "", Message: msg}}}
	}
	return Validate(dst)
}
