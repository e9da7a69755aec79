package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect billing events",
	}
	cmd.AddCommand(eventsWatchCmd())
	return cmd
}

func eventsWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print billing events from the Redis channel until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()
			defer application.Close()

			if application.Redis == nil {
				return errors.New("redis.addr is not configured")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			channel := application.Config.Redis.Channel
			messages, err := application.Redis.Subscribe(ctx, channel)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for {
				select {
				case <-ctx.Done():
					return nil
				case msg, ok := <-messages:
					if !ok {
						return nil
					}
					fmt.Fprintf(out, "%s %s\n", msg.Time.Format("2006-01-02T15:04:05Z07:00"), msg.Payload)
				}
			}
		},
	}
}
