package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/oshokin/redalert/internal/config"
	"github.com/oshokin/redalert/internal/service/common"
)

var (
	// statusTimeout bounds the status call.
	statusTimeout time.Duration

	errNoStatusAddress = errors.New("no status address: pass one or set STATUS_ADDR")

	// statusCmd queries a running monitor.
	statusCmd = &cobra.Command{
		Use:   "status [address]",
		Short: "Print the status of a running monitor.",
		Long: `Queries the gRPC status endpoint of a running monitor and prints the
alarm state, broker session and last cycle as JSON.
The address defaults to STATUS_ADDR from the configuration.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address := ""
			if len(args) > 0 {
				address = args[0]
			} else {
				cfg, err := config.Load(configPath)
				if err != nil {
					return fmt.Errorf("load configuration: %w", err)
				}

				address = cfg.StatusAddress
			}

			if address == "" {
				return errNoStatusAddress
			}

			client, err := common.Dial(cmd.Context(), address, common.WithCallTimeout(statusTimeout))
			if err != nil {
				return err
			}

			defer func() {
				_ = client.Close()
			}()

			document, err := client.GetStatus(cmd.Context())
			if err != nil {
				return err
			}

			output, err := protojson.MarshalOptions{Multiline: true}.Marshal(document)
			if err != nil {
				return fmt.Errorf("encode status: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(output))

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	statusCmd.Flags().DurationVarP(&statusTimeout, "timeout", "t", common.DefaultCallTimeout, "timeout of the status call")
}
