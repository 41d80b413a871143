package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/meridian-fin/meridian-fin/cmd/meridianctl/cli"
	"github.com/meridian-fin/meridian-fin/internal/app"
	"github.com/meridian-fin/meridian-fin/internal/fx"
	"github.com/meridian-fin/meridian-fin/internal/platform/cache"
	"github.com/meridian-fin/meridian-fin/internal/platform/db"
	statementshttp "github.com/meridian-fin/meridian-fin/internal/statements/http"
	"github.com/meridian-fin/meridian-fin/jobs"
)

// exitCodeError carries a specific process exit code through cobra. The fx
// commands distinguish "gaps found" (10) from usage errors (1) so close
// checklists can script against them.
type exitCodeError struct{ code int }

func (e exitCodeError) Error() string { return fmt.Sprintf("exit code %d", e.code) }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		var ec exitCodeError
		if errors.As(err, &ec) {
			os.Exit(ec.code)
		}
		fmt.Fprintln(os.Stderr, "meridianctl:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "meridianctl",
		Short:         "Operations helpers for the Meridian reporting service",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.AddCommand(newFXCommand(), newJobsCommand(), newSnapshotsCommand())
	return root
}

func loadConfig() (*app.Config, error) {
	_ = godotenv.Load()
	return app.LoadConfig()
}

func newFXCommand() *cobra.Command {
	fxCmd := &cobra.Command{
		Use:   "fx",
		Short: "Manage the FX rates backing presentation conversion",
	}
	fxCmd.AddCommand(newFXValidateCommand(), newFXBackfillCommand())
	return fxCmd
}

func withFXOpsCLI(cmd *cobra.Command, fn func(*cli.FXOpsCLI) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	pool, err := db.New(cmd.Context(), cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	ops, err := cli.NewFXOpsCLI(fx.NewPgSource(pool))
	if err != nil {
		return err
	}
	// Best effort: without Redis the backfill still applies, it just cannot
	// invalidate cached statements.
	if redisClient, rerr := cache.New(cmd.Context(), cfg.RedisAddr); rerr == nil {
		defer func() { _ = redisClient.Close() }()
		ops = ops.WithCacheInvalidator(statementshttp.NewCache(redisClient, cfg.StatementCacheTTL))
	}
	return fn(ops)
}

func newFXValidateCommand() *cobra.Command {
	var pairs, period string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that rate rows exist for the given pairs and month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFXOpsCLI(cmd, func(ops *cli.FXOpsCLI) error {
				code := ops.ValidateCommand(cmd.Context(), cli.FXValidateOptions{
					Pairs:      strings.Split(pairs, ","),
					Period:     period,
					JSONOutput: jsonOut,
				})
				if code != 0 {
					return exitCodeError{code: code}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&pairs, "pairs", "", "comma separated currency pairs, e.g. EURUSD,EURGBP (required)")
	_ = cmd.MarkFlagRequired("pairs")
	cmd.Flags().StringVar(&period, "period", "", "reporting month, YYYY-MM (required)")
	_ = cmd.MarkFlagRequired("period")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit JSON output")

	return cmd
}

func newFXBackfillCommand() *cobra.Command {
	var pair, from, to, mode, source string
	var jsonOut, yes bool

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Fill months without a closing rate from a CSV source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFXOpsCLI(cmd, func(ops *cli.FXOpsCLI) error {
				opts := cli.FXBackfillOptions{
					Pair:       pair,
					From:       from,
					To:         to,
					Mode:       cli.FXBackfillMode(mode),
					Source:     source,
					JSONOutput: jsonOut,
				}
				if yes {
					opts.Confirm = func(io.Reader, io.Writer) (bool, error) { return true, nil }
				}
				if code := ops.BackfillCommand(cmd.Context(), opts); code != 0 {
					return exitCodeError{code: code}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&pair, "pair", "", "currency pair, e.g. EURUSD (required)")
	_ = cmd.MarkFlagRequired("pair")
	cmd.Flags().StringVar(&from, "from", "", "first month, YYYY-MM (required)")
	_ = cmd.MarkFlagRequired("from")
	cmd.Flags().StringVar(&to, "to", "", "last month, YYYY-MM (required)")
	_ = cmd.MarkFlagRequired("to")
	cmd.Flags().StringVar(&mode, "mode", "dry", "dry or apply")
	cmd.Flags().StringVar(&source, "source", "", "CSV file with period,pair,average,closing columns; - for stdin")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit JSON output")
	cmd.Flags().BoolVar(&yes, "yes", false, "skip the apply confirmation prompt")

	return cmd
}

func newJobsCommand() *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and trigger background jobs",
	}
	jobsCmd.AddCommand(newJobsTriggerCommand(), newJobsStatsCommand(), newJobsScheduledCommand())
	return jobsCmd
}

func withJobsCLI(fn func(*cli.JobsCLI) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	jc, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() { _ = jc.Close() }()
	return fn(jc)
}

func newJobsTriggerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "trigger <task>",
		Short: "Enqueue a job by task name (" + jobs.TaskStatementsWarmup + ", " + jobs.TaskLedgerIntegrity + ")",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJobsCLI(func(jc *cli.JobsCLI) error {
				info, err := jc.Trigger(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Printf("queued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
				return nil
			})
		},
	}
}

func newJobsStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show queue depth for the default queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJobsCLI(func(jc *cli.JobsCLI) error {
				stats, err := jc.InspectQueue(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
					stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
				return nil
			})
		},
	}
}

func newJobsScheduledCommand() *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "scheduled",
		Short: "List upcoming scheduled tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJobsCLI(func(jc *cli.JobsCLI) error {
				tasks, err := jc.ListScheduled(cmd.Context(), size)
				if err != nil {
					return err
				}
				if len(tasks) == 0 {
					fmt.Println("no scheduled tasks")
					return nil
				}
				for _, task := range tasks {
					fmt.Printf("%s id=%s next=%s\n", task.Type, task.ID, task.NextProcessAt.Format(time.RFC3339))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&size, "size", 10, "maximum number of tasks to list")

	return cmd
}

func newSnapshotsCommand() *cobra.Command {
	snapCmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Manage statement snapshot builds",
	}
	snapCmd.AddCommand(newSnapshotsRequeueCommand())
	return snapCmd
}

func newSnapshotsRequeueCommand() *cobra.Command {
	var id int64

	cmd := &cobra.Command{
		Use:   "requeue",
		Short: "Re-enqueue the build for an existing snapshot record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJobsCLI(func(jc *cli.JobsCLI) error {
				info, err := jc.RequeueSnapshot(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Printf("queued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "snapshot record id (required)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}
