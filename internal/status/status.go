// internal/status/status.go
//
// Provisioning status vocabulary.
//
// Context
// -------
// Every provisionable row in the shared schema carries a status column.  The
// panel writes pending values into it, the provisioning daemon consumes them
// and writes back either a stable value or a free-form error message.  That
// makes the column a closed vocabulary plus one open class: anything the
// panel does not recognise is, by construction, a daemon failure report.
//
// Notes
// -----
//   - `Parse` never fails on unknown text; it classifies it as Failed.
//   - Oxford commas, two spaces after periods.
package status

import (
	"errors"
	"strings"
)

// Status is the raw value of a status column.
type Status string

const (
	OK          Status = "ok"
	Disabled    Status = "disabled"
	ToAdd       Status = "toadd"
	ToChange    Status = "tochange"
	ToRestore   Status = "torestore"
	ToChangePwd Status = "tochangepwd"
	ToDelete    Status = "todelete"
	ToEnable    Status = "toenable"
	ToDisable   Status = "todisable"
	Ordered     Status = "ordered"
)

// Class partitions statuses by what the UI may do with the row.
type Class int

const (
	ClassInvalid Class = iota
	ClassStable
	ClassPending
	ClassOrdered
	ClassFailed
)

func (c Class) String() string {
	switch c {
	case ClassStable:
		return "stable"
	case ClassPending:
		return "pending"
	case ClassOrdered:
		return "ordered"
	case ClassFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// ErrEmpty is returned by Parse for a blank column value.
var ErrEmpty = errors.New("status: empty value")

var known = map[Status]Class{
	OK:          ClassStable,
	Disabled:    ClassStable,
	ToAdd:       ClassPending,
	ToChange:    ClassPending,
	ToRestore:   ClassPending,
	ToChangePwd: ClassPending,
	ToDelete:    ClassPending,
	ToEnable:    ClassPending,
	ToDisable:   ClassPending,
	Ordered:     ClassOrdered,
}

// Known returns every status of the closed vocabulary in a stable order.
func Known() []Status {
	return []Status{OK, Disabled, ToAdd, ToChange, ToRestore, ToChangePwd,
		ToDelete, ToEnable, ToDisable, Ordered}
}

// Pending returns the statuses that mean "daemon work outstanding".
func Pending() []Status {
	return []Status{ToAdd, ToChange, ToRestore, ToChangePwd, ToDelete, ToEnable, ToDisable}
}

// Parse normalises a raw column value.  Known values are lower-cased and
// trimmed; unknown values are returned verbatim so the daemon's message
// survives for display.
func Parse(raw string) (Status, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrEmpty
	}
	if s := Status(strings.ToLower(trimmed)); known[s] != ClassInvalid {
		return s, nil
	}
	return Status(trimmed), nil
}

// Of is Parse for values read from a status column.  A blank value comes
// back as the empty status, which no action other than add accepts.
func Of(raw string) Status {
	s, _ := Parse(raw)
	return s
}

// Class reports the class of s.  Any non-empty value outside the closed
// vocabulary is ClassFailed.
func (s Status) Class() Class {
	if s == "" {
		return ClassInvalid
	}
	if c, ok := known[s]; ok {
		return c
	}
	return ClassFailed
}

// IsStable reports whether the row is safe to read and act upon.
func (s Status) IsStable() bool { return s.Class() == ClassStable }

// IsPending reports whether daemon work is outstanding for the row.
func (s Status) IsPending() bool { return s.Class() == ClassPending }

// IsFailed reports whether the daemon left an error message in the column.
func (s Status) IsFailed() bool { return s.Class() == ClassFailed }

// IsKnown reports whether s belongs to the closed vocabulary.
func (s Status) IsKnown() bool {
	_, ok := known[s]
	return ok
}

func (s Status) String() string { return string(s) }
