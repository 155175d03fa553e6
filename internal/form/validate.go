// internal/form/validate.go
//
// Request validation on top of go-playground/validator.
//
// Context
//   Handlers decode a JSON body into a request struct whose fields carry
//   `validate` tags.  Failures come back as []ErrorField keyed by the JSON
//   field name so the frontend can highlight the exact input.
//
// Custom rules
//   •  panel_status: one of the status keywords the panel understands.
//   •  entity_kind: a kind registered in internal/entity.
//
// Style
//   Comments follow the house guide: full sentences, two space spacing,
//   Oxford comma.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/yanizio/panel/internal/entity"
	"github.com/yanizio/panel/internal/status"
)

// ErrorField describes a single validation failure.
type ErrorField struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// ValidationError wraps []ErrorField and satisfies the error interface.
type ValidationError struct{ Fields []ErrorField }

func (ve ValidationError) Error() string {
	if len(ve.Fields) == 1 {
		return "validation failed: " + ve.Fields[0].Name + ": " + ve.Fields[0].Message
	}
	return fmt.Sprintf("validation failed: %d fields", len(ve.Fields))
}

// IsValidationError reports whether err came from failed validation.
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = val.RegisterValidation("panel_status", func(fl validator.FieldLevel) bool {
		_, err := status.Parse(fl.Field().String())
		return err == nil
	})
	_ = val.RegisterValidation("entity_kind", func(fl validator.FieldLevel) bool {
		_, err := entity.Lookup(entity.Kind(fl.Field().String()))
		return err == nil
	})
	return val
}

// Validate checks dst's `validate` tags.  It returns a ValidationError on
// field failures and a plain error when dst itself is unusable.
func Validate(dst any) error {
	err := v.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]ErrorField, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, ErrorField{Name: fe.Field(), Message: messageFor(fe)})
	}
	return ValidationError{Fields: fields}
}

// messageFor renders a user-facing sentence for one failed rule.
func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must be at least %s characters.", fe.Param())
		}
		return fmt.Sprintf("Must be at least %s.", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must be at most %s characters.", fe.Param())
		}
		return fmt.Sprintf("Must be at most %s.", fe.Param())
	case "gt":
		return fmt.Sprintf("Must be greater than %s.", fe.Param())
	case "oneof":
		return "Must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ") + "."
	case "email":
		return "Invalid email address."
	case "fqdn", "hostname":
		return "Invalid domain name."
	case "panel_status":
		return "Unknown status."
	case "entity_kind":
		return "Unknown item type."
	default:
		return "Invalid input."
	}
}
