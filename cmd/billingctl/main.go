package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Radamanths/Irina-online-school-sub000/internal/app"
	"github.com/Radamanths/Irina-online-school-sub000/internal/config"
	"github.com/Radamanths/Irina-online-school-sub000/pkg/logger"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:          "billingctl",
		Short:        "Operator tooling for the billing service",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $CONFIG_PATH or ./configs/billing.yaml)")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(dunningCmd())
	rootCmd.AddCommand(eventsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadConfig()
}

// bootstrap loads config, builds the logger and wires the application.
// The caller closes the returned App and syncs the logger.
func bootstrap() (*app.App, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewZapLogger(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	application, err := app.New(cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, nil, err
	}
	return application, log, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the billing schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()
			defer application.Close()

			return application.Migrate()
		},
	}
}
