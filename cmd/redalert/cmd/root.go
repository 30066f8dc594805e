package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/redalert/internal/logger"
	"github.com/oshokin/redalert/internal/service/monitor"
	"github.com/oshokin/redalert/internal/version"
)

var (
	// configPath to the optional configuration YAML file.
	configPath string
	// allowMultiple disables the single instance check.
	allowMultiple bool

	// rootCmd represents the base command for running the monitor.
	rootCmd = &cobra.Command{
		Use:   "redalert",
		Short: "Poll the civil alert feed and republish alerts over MQTT.",
		Long: `Polls the Home Front Command alert feed on a fixed cadence, filters and
deduplicates alerts, republishes them on the MQTT topics <topic>/data,
<topic>/alerts and <topic>/status, and notifies the configured channels.

Settings come from the environment (MQTT_HOST, REGION, NOTIFIERS, ...) and
optionally from a YAML file; the environment takes precedence.
Startup blocks until the broker accepts the connection.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &monitor.Options{
				ConfigPath:    configPath,
				AllowMultiple: allowMultiple,
			}

			return monitor.Run(ctx, options)
		},
	}
)

// Execute runs the redalert CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		logger.ErrorKV(context.Background(), "Command failed", "error", err)
		logger.Sync()
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to optional configuration file")
	rootCmd.Flags().BoolVar(&allowMultiple, "allow-multiple", false, "start even if another instance is running")

	rootCmd.AddCommand(statusCmd, configCmd)
}
