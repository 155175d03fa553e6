// internal/audit/audit.go
//
// Audit trail for account-level actions.
//
// Context
// -------
// Operators read the panel log to find out who scheduled what.  Each line
// has the shape
//
//	<actor>: scheduled deletion of customer account: <name>
//
// and carries the actor's IP, country, and browser when the action came in
// over HTTP (see internal/requestinfo).  CLI actions log as "system" unless
// the command attached an identity.
//
// Notes
// -----
// • Lines go through the global zap logger under the "audit" name so they
//   can be filtered out of the JSON file.
// • Oxford commas, two spaces after periods.
package audit

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yanizio/panel/internal/auth"
	"github.com/yanizio/panel/internal/requestinfo"
)

// Record writes one audit line.  format must not include the actor prefix.
func Record(ctx context.Context, format string, args ...any) {
	msg := auth.Actor(ctx) + ": " + fmt.Sprintf(format, args...)

	fields := []any{}
	if id, ok := auth.FromContext(ctx); ok {
		fields = append(fields, "actor_id", id.ID, "actor_type", id.Type)
	}
	if info := requestinfo.FromContext(ctx); info != nil {
		fields = append(fields,
			"ip", info.Geo.IP.String(),
			"country", info.Geo.CountryISO,
			"browser", info.UA.Label(),
			"bot", info.UA.IsBot,
		)
	}
	zap.S().Named("audit").Infow(msg, fields...)
}
