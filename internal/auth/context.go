// internal/auth/context.go
//
// Request-scoped identity of the signed-in panel account.
//
// Usage
// -----
//
//	// The session middleware attaches the account after the cookie checks out.
//	ctx = auth.WithIdentity(ctx, auth.Identity{ID: 12, Name: "reseller1", Type: auth.TypeReseller})
//
//	// Downstream code retrieves it.
//	id, ok := auth.FromContext(ctx)
//
// Notes
// -----
// • Account types mirror admin.admin_type in the panel schema.
// • Oxford commas, two spaces after periods.

package auth

import (
	"context"
	"strconv"
)

// Account tiers.
const (
	TypeAdmin    = "admin"
	TypeReseller = "reseller"
	TypeUser     = "user"
)

// Identity is the signed-in account.  Type is filled by the ACL lookup and
// may be empty before it runs.
type Identity struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// identityKey is unexported to avoid context-key collisions.
type identityKey struct{}

// WithIdentity returns a new context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext extracts the identity.  It returns (Identity{}, false) when no
// account is signed in.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// WithUser attaches a bare account id.  Used by tests and by the CLI, which
// act on behalf of an account without a session.
func WithUser(ctx context.Context, userID int64) context.Context {
	return WithIdentity(ctx, Identity{ID: userID})
}

// UserID extracts the account id from ctx.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := FromContext(ctx)
	if !ok || id.ID == 0 {
		return 0, false
	}
	return id.ID, true
}

// Actor names whoever is acting in ctx for log lines.
func Actor(ctx context.Context) string {
	id, ok := FromContext(ctx)
	switch {
	case !ok:
		return "system"
	case id.Name != "":
		return id.Name
	default:
		return "account#" + strconv.FormatInt(id.ID, 10)
	}
}
