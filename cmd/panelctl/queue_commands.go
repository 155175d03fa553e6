package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/yanizio/panel/internal/taskqueue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the daemon task queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRequeueCommand(ctx))
	queueCmd.AddCommand(newQueuePruneCommand(ctx))
	queueCmd.AddCommand(newQueueCycleCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show task counts per state",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := a.Tasks.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.json() {
				return writeJSON(cmd, stats)
			}
			printf(cmd, "%s\n", statusTable(stats))
			return nil
		},
	}
}

func statusTable(stats map[taskqueue.State]int) string {
	rows := make([][]string, 0, len(stats))
	for _, s := range taskqueue.States() {
		rows = append(rows, []string{string(s), strconv.Itoa(stats[s])})
	}
	return renderTable([]string{"State", "Tasks"}, rows, []columnAlignment{alignLeft, alignRight})
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var (
		state string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the newest tasks in one state",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, ok := taskqueue.ParseState(state)
			if !ok {
				return fmt.Errorf("unknown state %q", state)
			}
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			tasks, err := a.Tasks.List(cmd.Context(), st, limit)
			if err != nil {
				return err
			}
			if ctx.json() {
				return writeJSON(cmd, tasks)
			}
			if len(tasks) == 0 {
				printf(cmd, "No %s tasks\n", st)
				return nil
			}
			printf(cmd, "%s\n", taskTable(tasks))
			return nil
		},
	}
	cmd.Flags().StringVar(&state, "state", string(taskqueue.StatePending), "Task state to list")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of tasks")
	return cmd
}

func taskTable(tasks []taskqueue.Task) string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{
			t.ID.String()[:8],
			t.Ref().String(),
			string(t.Action),
			strconv.Itoa(t.Attempts),
			t.UpdatedAt.Local().Format(time.DateTime),
			t.LastError,
		})
	}
	return renderTable(
		[]string{"ID", "Row", "Action", "Attempts", "Updated", "Last error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
	)
}

func newQueueRequeueCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "requeue",
		Short: "Give dead tasks a fresh set of attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			n, err := a.Tasks.RequeueDead(cmd.Context())
			if err != nil {
				return err
			}
			printf(cmd, "Requeued %d task(s)\n", n)
			return nil
		},
	}
}

func newQueuePruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete done tasks older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			n, err := a.Tasks.Prune(cmd.Context())
			if err != nil {
				return err
			}
			printf(cmd, "Pruned %d task(s)\n", n)
			return nil
		},
	}
}

func newQueueCycleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cycle",
		Short: "Run one reconcile, claim, and notify pass now",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.Dispatcher.Cycle(cmd.Context()); err != nil {
				return err
			}
			printf(cmd, "Cycle complete\n")
			return nil
		},
	}
}
