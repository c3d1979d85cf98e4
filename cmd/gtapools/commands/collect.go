package commands

import (
	"log/slog"
	"os"
	"time"

	"gtapools-backend/lib/configutil"
	"gtapools-backend/lib/coords"
	"gtapools-backend/lib/pool"
	"gtapools-backend/lib/serviceutil"
	"gtapools-backend/services/collector"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var configPath *string
var coordsPath *string
var outputPath *string

func init() {
	configPath = collectCmd.Flags().String("config", "config.json5", "The collection configuration to use.")
	coordsPath = collectCmd.Flags().String("coords", "coordinates.json5", "The static facility coordinate table.")
	outputPath = collectCmd.Flags().String("out", "", "Overrides the output path from the config.")
	rootCmd.AddCommand(collectCmd)
}

var collectCmd = &cobra.Command{
	Use:   "collect [--config <path>] [--coords <path>] [--out <path>]",
	Short: "Runs one collection across every configured source and writes the dataset.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := configutil.ReadConfig[collector.Config](*configPath)
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		coordTable, err := coords.Load(*coordsPath)
		if err != nil && !os.IsNotExist(err) {
			serviceutil.Fatal("failed to read coordinate table", err)
		}
		if os.IsNotExist(err) {
			slog.Warn("no coordinate table found, pools will have null coordinates", "path", *coordsPath)
		}

		service, err := collector.NewService(cfg, coordTable)
		if err != nil {
			serviceutil.Fatal("invalid configuration", err)
		}

		slog.Info(
			"collecting swim schedules",
			"sources", len(cfg.Sources),
			"window_start", cfg.DateRange.Start,
			"window_end", cfg.DateRange.End,
		)

		t1 := time.Now()
		ds := service.Collect(cmd.Context())

		out := cfg.Output
		if out == "" {
			out = "output/pool-data.json"
		}
		if *outputPath != "" {
			out = *outputPath
		}
		err = collector.WriteDataset(out, ds)
		if err != nil {
			serviceutil.Fatal("failed to write dataset", err)
		}
		t2 := time.Now()

		printSummary(ds)
		slog.Info(
			"collection complete",
			"output", out,
			"seconds", t2.Sub(t1).Seconds(),
		)
	},
}

func printSummary(ds pool.Dataset) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Pool", "Municipality", "Sessions", "Child-friendly"})

	for _, p := range ds.Pools {
		childFriendly := 0
		for _, s := range p.Sessions {
			if s.IsChildFriendly {
				childFriendly++
			}
		}
		t.AppendRow(table.Row{p.Name, p.Municipality, len(p.Sessions), childFriendly})
	}
	t.AppendFooter(table.Row{
		ds.Metadata.Season, "",
		ds.Metadata.TotalSessions,
		ds.Metadata.TotalChildFriendlySessions,
	})
	t.Render()
}
