package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/redalert/internal/config"
)

// outputPath is where `config` writes the settings instead of stdout.
var outputPath string

// configCmd prints the effective configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML.",
	Long: `Resolves defaults, the optional configuration file and the environment
exactly as the monitor does and prints the result as YAML.
With --output the result is written to a file that can be passed back with --config.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		if outputPath != "" {
			return config.Save(outputPath, cfg)
		}

		data, err := config.Marshal(cfg)
		if err != nil {
			return err
		}

		_, _ = cmd.OutOrStdout().Write(data)

		return nil
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	configCmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the configuration to this file")
}
