package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newPollCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Run one polling pass and exit",
		Long: `Loads all active watches, checks every container once, and prints the
run summary as JSON. Per-container failures are counted in the summary; the
command only fails when watches or baselines cannot be loaded.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp(appInstance)
			sum, runErr := appInstance.Scheduler.RunOnce(cmd.Context())
			sum.Transcript = nil
			out, err := json.MarshalIndent(sum, "", "  ")
			if err != nil {
				return fmt.Errorf("encode summary: %w", err)
			}
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), string(out)); err != nil {
				appInstance.Logger.Warn("write summary failed", zap.Error(err))
			}
			if runErr != nil {
				return fmt.Errorf("poll run: %w", runErr)
			}
			return nil
		},
	}
}
