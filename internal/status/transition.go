// internal/status/transition.go
//
// Transition table for provisioning statuses.
//
// Context
// -------
// The panel never writes a status literal by hand.  Callers name an Action,
// and Transition looks the pair (current status, action) up in one table.
// Bulk updates that touch many rows use Sources(action) to build the WHERE
// clause, so rows in a state the action does not apply to stay untouched.
//
// Two actions belong to the daemon side (Complete, and Fail via the Fail
// helper).  The panel does not perform them, but the dispatcher uses them to
// decide whether a signalled row has settled.
//
// Notes
// -----
//   - A Failed source is any value outside the closed vocabulary.
//   - `Removed` is the outcome of completing a deletion: the row is gone.
package status

import (
	"fmt"
	"strings"
)

// Action is a request to move a row to a new status.
type Action string

const (
	ActionAdd       Action = "add"
	ActionChange    Action = "change"
	ActionRestore   Action = "restore"
	ActionChangePwd Action = "changepwd"
	ActionDisable   Action = "disable"
	ActionEnable    Action = "enable"
	ActionDelete    Action = "delete"
	ActionPurge     Action = "purge"
	ActionApprove   Action = "approve"
	ActionRetry     Action = "retry"
	ActionComplete  Action = "complete"
)

// Removed is the target of a completed deletion.
const Removed Status = ""

type edge struct {
	from   Status
	failed bool // matches any daemon error message
	fresh  bool // matches a row that does not exist yet
	to     Status
}

var table = map[Action][]edge{
	ActionAdd:       {{fresh: true, to: ToAdd}},
	ActionChange:    {{from: OK, to: ToChange}},
	ActionRestore:   {{from: OK, to: ToRestore}},
	ActionChangePwd: {{from: OK, to: ToChangePwd}},
	ActionDisable:   {{from: OK, to: ToDisable}},
	ActionEnable:    {{from: Disabled, to: ToEnable}},
	ActionDelete: {
		{from: OK, to: ToDelete},
		{from: Disabled, to: ToDelete},
		{failed: true, to: ToDelete},
	},
	// Purge is the cascade form of delete used when a parent account or
	// domain goes away.  It overrides in-flight work.
	ActionPurge: {
		{from: OK, to: ToDelete},
		{from: Disabled, to: ToDelete},
		{from: Ordered, to: ToDelete},
		{from: ToAdd, to: ToDelete},
		{from: ToChange, to: ToDelete},
		{from: ToRestore, to: ToDelete},
		{from: ToChangePwd, to: ToDelete},
		{from: ToEnable, to: ToDelete},
		{from: ToDisable, to: ToDelete},
		{failed: true, to: ToDelete},
	},
	ActionApprove: {{from: Ordered, to: ToAdd}},
	ActionRetry:   {{failed: true, to: ToChange}},
	ActionComplete: {
		{from: ToAdd, to: OK},
		{from: ToChange, to: OK},
		{from: ToRestore, to: OK},
		{from: ToChangePwd, to: OK},
		{from: ToEnable, to: OK},
		{from: ToDisable, to: Disabled},
		{from: ToDelete, to: Removed},
	},
}

// TransitionError reports an action that does not apply to a status.
type TransitionError struct {
	From   Status
	Action Action
}

func (e *TransitionError) Error() string {
	from := string(e.From)
	if from == "" {
		from = "<new>"
	}
	return fmt.Sprintf("status: cannot %s from %q", e.Action, from)
}

// Is lets errors.Is(err, ErrTransition) match any *TransitionError.
func (e *TransitionError) Is(target error) bool { return target == ErrTransition }

// ErrTransition is the sentinel matched by every *TransitionError.
var ErrTransition = &TransitionError{}

// Transition returns the status a row moves to when action is applied to
// from.  Pass the empty status for a row that is about to be inserted.
func Transition(from Status, action Action) (Status, error) {
	edges, ok := table[action]
	if !ok {
		return "", fmt.Errorf("status: unknown action %q", action)
	}
	for _, e := range edges {
		switch {
		case e.fresh && from == "":
			return e.to, nil
		case e.failed && from.IsFailed():
			return e.to, nil
		case !e.fresh && !e.failed && from != "" && e.from == from:
			return e.to, nil
		}
	}
	return "", &TransitionError{From: from, Action: action}
}

// Fail validates a daemon-reported failure of a pending row.  The message
// becomes the new column value, so it must not collide with the vocabulary.
func Fail(from Status, message string) (Status, error) {
	if !from.IsPending() {
		return "", &TransitionError{From: from, Action: "fail"}
	}
	msg := strings.TrimSpace(message)
	if msg == "" {
		msg = "unknown error"
	}
	if Status(strings.ToLower(msg)).IsKnown() {
		msg = "error: " + msg
	}
	return Status(msg), nil
}

// Target returns the pending status an action produces regardless of
// source.  Daemon-side actions with several targets return false.
func Target(action Action) (Status, bool) {
	edges := table[action]
	if len(edges) == 0 {
		return "", false
	}
	to := edges[0].to
	for _, e := range edges[1:] {
		if e.to != to {
			return "", false
		}
	}
	return to, true
}

// Matcher describes the source set of an action.
type Matcher struct {
	Statuses []Status
	Failed   bool
}

// Sources returns the statuses action may be applied to.
func Sources(action Action) Matcher {
	var m Matcher
	for _, e := range table[action] {
		switch {
		case e.failed:
			m.Failed = true
		case !e.fresh:
			m.Statuses = append(m.Statuses, e.from)
		}
	}
	return m
}

// Match reports whether s belongs to the source set.
func (m Matcher) Match(s Status) bool {
	if m.Failed && s.IsFailed() {
		return true
	}
	for _, x := range m.Statuses {
		if x == s {
			return true
		}
	}
	return false
}

// Empty reports whether nothing can match.
func (m Matcher) Empty() bool { return len(m.Statuses) == 0 && !m.Failed }

// SQL renders the source set as a boolean expression over column.  Column
// must be a trusted identifier.  An empty matcher renders as "1 = 0".
func (m Matcher) SQL(column string) (string, []any) {
	var (
		parts []string
		args  []any
	)
	if len(m.Statuses) > 0 {
		parts = append(parts, column+" IN ("+placeholders(len(m.Statuses))+")")
		for _, s := range m.Statuses {
			args = append(args, string(s))
		}
	}
	if m.Failed {
		k := Known()
		parts = append(parts, column+" NOT IN ("+placeholders(len(k))+")")
		for _, s := range k {
			args = append(args, string(s))
		}
	}
	switch len(parts) {
	case 0:
		return "1 = 0", nil
	case 1:
		return parts[0], args
	default:
		return "(" + strings.Join(parts, " OR ") + ")", args
	}
}

// FailedSQL renders "column holds a daemon error" for listings.
func FailedSQL(column string) (string, []any) {
	return Matcher{Failed: true}.SQL(column)
}

// PendingSQL renders "column holds a pending status".
func PendingSQL(column string) (string, []any) {
	return Matcher{Statuses: Pending()}.SQL(column)
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
