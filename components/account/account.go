// components/account/account.go
//
// Account component – who is signed in, from where, and a CSRF token for
// the next state-changing request.
package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/panel/internal/auth"
	"github.com/yanizio/panel/internal/component"
	"github.com/yanizio/panel/internal/form"
	"github.com/yanizio/panel/internal/message"
	"github.com/yanizio/panel/internal/requestinfo"
)

// compile-time assertions
var (
	_ component.Component   = (*Comp)(nil)
	_ component.Initializer = (*Comp)(nil)
)

// Comp implements component.Component.
type Comp struct {
	csrf *form.CSRF
}

func (c *Comp) Name() string { return "account" }

func (c *Comp) Init(env component.Env) error {
	c.csrf = env.CSRF()
	return nil
}

// Me is the GET /account response.
type Me struct {
	auth.Identity
	IP      string `json:"ip,omitempty"`
	Country string `json:"country,omitempty"`
	Browser string `json:"browser,omitempty"`
}

func (c *Comp) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		ident, ok := auth.FromContext(r.Context())
		if !ok {
			message.Error(w, r, message.ErrForbidden)
			return
		}
		me := Me{Identity: ident}
		if ri := requestinfo.FromContext(r.Context()); ri != nil {
			if ri.Geo.IP != nil {
				me.IP = ri.Geo.IP.String()
			}
			me.Country = ri.Geo.CountryISO
			me.Browser = ri.UA.Label()
		}
		message.JSON(w, http.StatusOK, me)
	})

	r.Get("/csrf", func(w http.ResponseWriter, r *http.Request) {
		tok, err := c.csrf.Token()
		if err != nil {
			message.Error(w, r, err)
			return
		}
		message.JSON(w, http.StatusOK, map[string]string{"token": tok, "header": form.HeaderName})
	})

	return r
}

// Register component at package init.
func init() {
	component.Register(&Comp{})
}
