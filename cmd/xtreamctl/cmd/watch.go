package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jmylchreest/xtreamctl/internal/scheduler"
	"github.com/jmylchreest/xtreamctl/pkg/format"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Refresh every server on a cron schedule",
	Long: `Run in the foreground and refresh every saved server on a schedule.

The schedule is a 6-field cron expression with seconds first, or a
descriptor such as "@every 1h". It defaults to watch.schedule from the
configuration. Stop with Ctrl+C.`,
	Example: `  xtreamctl watch --schedule "0 30 */2 * * *"`,
	Args:    cobra.NoArgs,
	RunE:    runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().String("schedule", "", "cron expression (default from watch.schedule)")
	watchCmd.Flags().Bool("run-now", true, "refresh once immediately on start")

	mustBindPFlag("watch.schedule", watchCmd.Flags().Lookup("schedule"))
}

// mustBindPFlag binds a flag to a viper key. A flag that only overrides when
// set keeps the env and config file precedence intact.
func mustBindPFlag(key string, flag *pflag.Flag) {
	if flag == nil {
		panic(fmt.Sprintf("flag for %s is not defined", key))
	}
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", flag.Name, err))
	}
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	runNow, _ := cmd.Flags().GetBool("run-now")
	sched := scheduler.NewScheduler().
		WithLogger(logger).
		WithConfig(scheduler.SchedulerConfig{
			JobTimeout: appConfig.Watch.JobTimeout,
			RunOnStart: runNow,
		})

	schedule := appConfig.Watch.Schedule
	if err := sched.ValidateCron(schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	mgr, err := newManager()
	if err != nil {
		return err
	}

	job := func(ctx context.Context) error {
		outcomes, err := mgr.RefreshAll(ctx)
		failed := 0
		for i := range outcomes {
			if outcomes[i].Err != nil {
				failed++
			}
		}
		logger.InfoContext(ctx, "refresh pass finished",
			slog.Int("servers", len(outcomes)),
			slog.Int("failed", failed),
		)
		return err
	}

	if err := sched.Start(ctx, schedule, "refresh_all", job); err != nil {
		return err
	}
	defer sched.Stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %d servers: %s\n", len(mgr.ListServers()), format.CronDescription(schedule))
	if next := sched.Next(); !next.IsZero() {
		fmt.Fprintf(cmd.OutOrStdout(), "Next refresh at %s\n", format.Timestamp(&next))
	}

	<-ctx.Done()
	logger.Info("stopping watch")
	return nil
}
