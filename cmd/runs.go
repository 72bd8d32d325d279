package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/nbs-planner/internal/model"
	"github.com/sells-group/nbs-planner/internal/report"
	"github.com/sells-group/nbs-planner/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect saved planning runs",
	Long:  "Commands for listing saved runs, viewing their summaries, and exporting their cells.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return cfg.Validate("runs")
	},
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		name, _ := cmd.Flags().GetString("name")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		runs, err := st.ListRuns(ctx, store.RunFilter{Name: name, Limit: limit, Offset: offset})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the summary of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		}

		fmt.Fprintf(os.Stdout, "Run %s (%s), %dx%d cells of %.0f m\n\n",
			run.ID, run.Name, run.Rows, run.Cols, run.CellSizeM)
		formatSummaries(os.Stdout, run.Summaries)
		fmt.Fprintln(os.Stdout)
		formatStats(os.Stdout, run.Stats, run.Budget)
		return nil
	},
}

// -- runs cells --

var runsCellsCmd = &cobra.Command{
	Use:   "cells <run-id>",
	Short: "Export the cells of a run as GeoJSON or CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var filter store.CellFilter
		if c, _ := cmd.Flags().GetString("category"); c != "" {
			cat, err := model.ParseCategory(c)
			if err != nil {
				return err
			}
			filter.Category = &cat
		}
		filter.SelectedOnly, _ = cmd.Flags().GetBool("selected")
		format, _ := cmd.Flags().GetString("format")

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		cells, err := st.ListCells(ctx, args[0], filter)
		if err != nil {
			return eris.Wrap(err, "runs cells")
		}

		switch format {
		case report.FormatGeoJSON:
			return report.WriteGeoJSON(os.Stdout, cells)
		case report.FormatCSV:
			return report.WriteCellsCSV(os.Stdout, cells)
		default:
			return eris.Errorf("runs cells: unsupported format %q", format)
		}
	},
}

func init() {
	runsListCmd.Flags().String("name", "", "filter by run name")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")
	runsListCmd.Flags().Int("offset", 0, "number of runs to skip")

	runsShowCmd.Flags().Bool("json", false, "print the full run record as JSON")

	runsCellsCmd.Flags().String("category", "", "only cells of this category (name or slug)")
	runsCellsCmd.Flags().Bool("selected", false, "only cells selected under the budget")
	runsCellsCmd.Flags().String("format", report.FormatGeoJSON, "output format: geojson or csv")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsCellsCmd)
	rootCmd.AddCommand(runsCmd)
}
