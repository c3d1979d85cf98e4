package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gtapools-backend/lib/telemetry"

	"github.com/spf13/cobra"
)

var verbose *bool

var rootCmd = &cobra.Command{
	Use:   "gtapools",
	Short: "gtapools collects drop-in swim schedules from GTA municipal booking platforms.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)

		// telemetry is opt-in; a missing telemetry.json5 just means
		// spans and metrics go nowhere
		tel, err := telemetry.SetupFromEnv(cmd.Context(), "gtapools")
		if err != nil {
			if !os.IsNotExist(err) {
				slog.Warn("failed to set up telemetry", "err", err)
			}
			return
		}
		go func() {
			<-cmd.Context().Done()
			tel.Shutdown(context.Background())
		}()
		telemetry.InstrumentPerfStats(cmd.Context())
	},
}

func init() {
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging, including per-request logs.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
