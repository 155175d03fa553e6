package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yanizio/panel/internal/entity"
	"github.com/yanizio/panel/internal/provision"
	"github.com/yanizio/panel/internal/reseller"
	"github.com/yanizio/panel/internal/session"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the daemon_task table when missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.Tasks.Migrate(cmd.Context()); err != nil {
				return err
			}
			printf(cmd, "daemon_task is up to date\n")
			return nil
		},
	}
}

func newPendingCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "Count rows waiting for the daemon, per kind",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			counts, total, err := a.Provision.CountPending(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.json() {
				return writeJSON(cmd, map[string]any{"kinds": counts, "total": total})
			}
			printf(cmd, "%s\n", pendingTable(counts, total))
			return nil
		},
	}
}

func pendingTable(counts []provision.PendingCount, total int64) string {
	rows := make([][]string, 0, len(counts)+1)
	for _, c := range counts {
		rows = append(rows, []string{string(c.Kind), strconv.FormatInt(c.Count, 10)})
	}
	rows = append(rows, []string{"total", strconv.FormatInt(total, 10)})
	return renderTable([]string{"Kind", "Pending"}, rows, []columnAlignment{alignLeft, alignRight})
}

func newErrorsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "errors",
		Short: "List rows the daemon reported as failed",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			failed, err := a.Provision.ListErrors(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.json() {
				return writeJSON(cmd, failed)
			}
			if len(failed) == 0 {
				printf(cmd, "No errors\n")
				return nil
			}
			printf(cmd, "%s\n", errorsTable(failed))
			return nil
		},
	}
}

func errorsTable(failed []provision.FailedRow) string {
	rows := make([][]string, 0, len(failed))
	for _, f := range failed {
		rows = append(rows, []string{string(f.Ref.Kind), f.Ref.ID, f.Name, f.Message})
	}
	return renderTable([]string{"Kind", "ID", "Name", "Error"}, rows, nil)
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <kind> <id>",
		Short: "Hand a failed row back to the daemon",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := entity.Ref{Kind: entity.Kind(args[0]), ID: args[1]}
			if _, err := entity.Lookup(ref.Kind); err != nil {
				return err
			}
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.Provision.Retry(cmd.Context(), ref); err != nil {
				return err
			}
			printf(cmd, "%s scheduled for modification\n", ref)
			return nil
		},
	}
}

func newNotifyCommand(ctx *commandContext) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Ask the daemon to process pending rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			if force {
				if err := a.Notifier.Notify(cmd.Context()); err != nil {
					return err
				}
				printf(cmd, "Daemon notified\n")
				return nil
			}
			n, err := a.Provision.RequestDaemon(cmd.Context(), a.Notifier)
			if err != nil {
				return err
			}
			printf(cmd, "Daemon notified, %d pending\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Notify even when nothing is pending")
	return cmd
}

func newRecalcCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "recalc <reseller-id>",
		Short: "Recompute a reseller's assignment counters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := reseller.RecalculateAssignments(cmd.Context(), a.DB, id); err != nil {
				return err
			}
			counts, err := a.Provision.ResellerCounts(cmd.Context(), id)
			if err != nil {
				return err
			}
			if ctx.json() {
				return writeJSON(cmd, counts)
			}
			printf(cmd, "%s\n", renderTable(
				[]string{"Customers", "Domains", "Subdomains", "Aliases", "Mail", "FTP", "SQL DBs", "SQL users"},
				[][]string{{
					itoa(counts.Customers), itoa(counts.Domains), itoa(counts.Subdomains), itoa(counts.Aliases),
					itoa(counts.Mail), itoa(counts.FTP), itoa(counts.SQLDBs), itoa(counts.SQLUsers),
				}},
				nil))
			return nil
		},
	}
}

func newSessionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "session <account-id>",
		Short: "Mint a session cookie value for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.config(cmd.Context())
			if err != nil {
				return err
			}
			m, err := session.New(cfg.HTTP.SessionKey, cfg.HTTP.SessionTTL, cfg.HTTP.ForceHTTPS)
			if err != nil {
				return err
			}
			printf(cmd, "%s=%s\n", session.CookieName, m.Token(id))
			return nil
		},
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
