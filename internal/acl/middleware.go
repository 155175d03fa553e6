// internal/acl/middleware.go
//
// Chi middleware helpers that enforce account tiers.

package acl

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/panel/internal/auth"
	"github.com/yanizio/panel/internal/logger"
)

// Sessions extracts the signed-in account id from a request.
// *session.Manager satisfies it.
type Sessions interface {
	AccountID(r *http.Request) (int64, bool)
}

// Resolver turns an account id into an identity.  *Store satisfies it.
type Resolver interface {
	Identity(ctx context.Context, id int64) (auth.Identity, error)
}

// Authenticate attaches the session's identity to the request context.
// Requests without a valid session get 401.
func Authenticate(store Resolver, sessions Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid, ok := sessions.AccountID(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			ident, err := store.Identity(r.Context(), uid)
			if errors.Is(err, ErrUnknownAccount) {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			if err != nil {
				logger.FromContext(r.Context()).Errorw("acl identity", zap.Error(err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), ident)))
		})
	}
}

// RequireType ensures the current account is ANY of the supplied tiers.
func RequireType(types ...string) func(http.Handler) http.Handler {
	if len(types) == 0 {
		panic("acl.RequireType: at least one account type must be supplied")
	}
	allowSet := make(map[string]struct{}, len(types))
	for _, t := range types {
		allowSet[t] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, ok := auth.FromContext(r.Context())
			if !ok || ident.ID == 0 {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			if _, ok := allowSet[ident.Type]; !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
