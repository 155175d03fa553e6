// components/healthz/healthz.go
//
// Liveness and task-queue health for load balancers and monitoring.  Served
// without a session.
//
//	GET /healthz → 200 {"status":"ok","tasks":{...}} or 503 when the
//	               database is unreachable.
package healthz

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/panel/internal/component"
	"github.com/yanizio/panel/internal/logger"
	"github.com/yanizio/panel/internal/message"
	"github.com/yanizio/panel/internal/taskqueue"
)

// Pinger is satisfied by *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Stats is satisfied by *taskqueue.Store.
type Stats interface {
	Stats(ctx context.Context) (map[taskqueue.State]int, error)
}

var (
	_ component.Component = (*Comp)(nil)
	_ component.Public    = (*Comp)(nil)
)

// Comp implements component.Component and component.Public.
type Comp struct {
	db    Pinger
	tasks Stats
}

func (c *Comp) Name() string { return "healthz" }
func (c *Comp) Public()      {}

func (c *Comp) Init(env component.Env) error {
	c.db, c.tasks = env.DB(), env.Tasks()
	return nil
}

// Report is the response body.
type Report struct {
	Status string                  `json:"status"`
	Tasks  map[taskqueue.State]int `json:"tasks,omitempty"`
}

func (c *Comp) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := c.db.PingContext(ctx); err != nil {
			logger.FromContext(ctx).Warnw("health check: database unreachable", zap.Error(err))
			message.JSON(w, http.StatusServiceUnavailable, Report{Status: "database unreachable"})
			return
		}
		stats, err := c.tasks.Stats(ctx)
		if err != nil {
			message.Error(w, r, err)
			return
		}
		message.JSON(w, http.StatusOK, Report{Status: "ok", Tasks: stats})
	})
	return r
}

func init() { component.Register(&Comp{}) }
