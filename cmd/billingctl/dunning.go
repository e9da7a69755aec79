package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const dunningRunTimeout = 5 * time.Minute

func dunningCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dunning",
		Short: "Send payment reminders for overdue orders",
	}
	cmd.AddCommand(dunningRunCmd())
	cmd.AddCommand(dunningScheduleCmd())
	return cmd
}

func dunningRunCmd() *cobra.Command {
	var (
		limit  int
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one reminder batch and print the summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()
			defer application.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), dunningRunTimeout)
			defer cancel()

			summary, err := application.Dunning.ProcessReminders(ctx, limit, dryRun)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum orders to evaluate (default from config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report candidates without recording reminders")
	return cmd
}

func dunningScheduleCmd() *cobra.Command {
	var spec string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run reminder batches on a cron schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()
			defer application.Close()

			if spec == "" {
				spec = application.Config.Dunning.Schedule
			}

			scheduler := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
			_, err = scheduler.AddFunc(spec, func() {
				ctx, cancel := context.WithTimeout(context.Background(), dunningRunTimeout)
				defer cancel()

				summary, err := application.Dunning.ProcessReminders(ctx, 0, false)
				if err != nil {
					log.Error("Scheduled dunning run failed", zap.Error(err))
					return
				}
				log.Info("Scheduled dunning run finished",
					zap.Int("evaluated", summary.Evaluated),
					zap.Int("reminders_sent", summary.RemindersSent))
			})
			if err != nil {
				return fmt.Errorf("invalid schedule %q: %w", spec, err)
			}

			log.Info("Dunning scheduler started", zap.String("schedule", spec))
			scheduler.Start()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			<-sigChan

			log.Info("Stopping dunning scheduler...")
			<-scheduler.Stop().Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&spec, "schedule", "", "cron spec with seconds (default from config)")
	return cmd
}
