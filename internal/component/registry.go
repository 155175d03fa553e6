// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  cmd/web calls Init(env) on
// every component once the shared resources are up, then mounts each
// component's Routes() at "/<name>".  Components that implement Public are
// mounted outside the session and CSRF checks.

package component

import (
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Initializer receives the shared resources before Routes is called.
type Initializer interface {
	Init(Env) error
}

// Component contract.
//
// Routes() mounts the component's JSON endpoints relative to "/<name>" and
// applies any account-tier checks itself, e.g:
//
//	r := chi.NewRouter()
//	r.Use(acl.RequireType(auth.TypeAdmin))
//	r.Get("/", c.list)
//	return r
type Component interface {
	Name() string
	Routes() chi.Router
	Initializer
}

// Public marks a component that serves unauthenticated requests.
type Public interface {
	Public()
}

// IsPublic reports whether c implements Public.
func IsPublic(c Component) bool {
	_, ok := c.(Public)
	return ok
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register is invoked from component init() functions.
func Register(c Component) {
	mu.Lock()
	registry[c.Name()] = c
	mu.Unlock()
}

// All returns every registered component sorted by name.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
