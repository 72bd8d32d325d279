package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/nbs-planner/internal/config"
	"github.com/sells-group/nbs-planner/internal/geoio"
	"github.com/sells-group/nbs-planner/internal/pipeline"
	"github.com/sells-group/nbs-planner/internal/report"
)

// planOptions are the file inputs of the plan command.
type planOptions struct {
	Buildings string
	GreenBlue string
	Context   string
	Wind      string
	WindDeg   *float64
	Budget    *float64
	CellSizeM float64
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Run the planning pipeline over building and green/blue inputs",
	Long:  "Reads building footprints (GeoJSON or shapefile) and optional green/blue areas, per-cell context and wind observations, then writes the plan in the configured export formats.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		flags := cmd.Flags()
		if flags.Changed("cell-size") {
			cfg.Grid.CellSizeM, _ = flags.GetFloat64("cell-size")
		}
		if flags.Changed("budget") {
			b, _ := flags.GetFloat64("budget")
			cfg.Planner.Budget = &b
		}
		if flags.Changed("wind-deg") {
			d, _ := flags.GetFloat64("wind-deg")
			cfg.Planner.WindDeg = &d
		}
		if flags.Changed("out") {
			cfg.Export.Dir, _ = flags.GetString("out")
		}
		if flags.Changed("format") {
			cfg.Export.Formats, _ = flags.GetStringSlice("format")
		}
		if err := cfg.Validate("plan"); err != nil {
			return err
		}

		opts := planOptions{CellSizeM: cfg.Grid.CellSizeM, Budget: cfg.Planner.Budget, WindDeg: cfg.Planner.WindDeg}
		opts.Buildings, _ = flags.GetString("buildings")
		opts.GreenBlue, _ = flags.GetString("green-blue")
		opts.Context, _ = flags.GetString("context")
		opts.Wind, _ = flags.GetString("wind")
		name, _ := flags.GetString("name")
		noPersist, _ := flags.GetBool("no-persist")
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(opts.Buildings), filepath.Ext(opts.Buildings))
		}

		return runPlan(cmd.Context(), name, opts, !noPersist)
	},
}

func runPlan(ctx context.Context, name string, opts planOptions, persist bool) error {
	in, err := loadInput(opts, cfg.Grid)
	if err != nil {
		return err
	}

	planner, err := newPlanner(cfg)
	if err != nil {
		return err
	}
	if cfg.Planner.TimeoutSecs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Planner.TimeoutSecs)*time.Second)
		defer cancel()
	}

	plan, err := planner.Run(ctx, in)
	if err != nil {
		return eris.Wrap(err, "plan")
	}

	paths, err := report.Export(cfg.Export.Dir, cfg.Export.Formats, plan)
	if err != nil {
		return err
	}
	for _, p := range paths {
		zap.L().Info("plan: wrote export", zap.String("path", p))
	}

	if persist {
		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
			run, err := st.SavePlan(ctx, name, plan)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(os.Stderr, "Saved run %s\n", run.ID)
		}
	}

	formatSummaries(os.Stdout, plan.Summaries)
	_, _ = fmt.Fprintln(os.Stdout)
	formatStats(os.Stdout, plan.Stats, plan.Selection.Budget)
	return nil
}

// loadInput reads every input file named in opts.
func loadInput(opts planOptions, gc config.GridConfig) (pipeline.Input, error) {
	in := pipeline.Input{
		StudyArea: gc.Extent(),
		CellSizeM: opts.CellSizeM,
		WindDeg:   opts.WindDeg,
		Budget:    opts.Budget,
	}

	if opts.Buildings == "" {
		return in, eris.New("plan: --buildings is required")
	}
	var err error
	if strings.EqualFold(filepath.Ext(opts.Buildings), ".shp") {
		in.Buildings, err = geoio.ReadBuildingsShapefile(opts.Buildings)
	} else {
		in.Buildings, err = geoio.ReadBuildingsGeoJSON(opts.Buildings)
	}
	if err != nil {
		return in, err
	}

	if opts.GreenBlue != "" {
		if in.GreenBlue, err = geoio.ReadGreenBlueGeoJSON(opts.GreenBlue); err != nil {
			return in, err
		}
	}

	if opts.Context != "" {
		var cc *geoio.CellContext
		if strings.EqualFold(filepath.Ext(opts.Context), ".xlsx") {
			cc, err = geoio.ReadCellContextXLSX(opts.Context, "")
		} else {
			cc, err = geoio.ReadCellContextCSV(opts.Context)
		}
		if err != nil {
			return in, err
		}
		in.Population = cc.Population
		in.NearWater = cc.NearWater
		in.CorridorAxes = cc.CorridorAxes
	}

	if opts.Wind != "" {
		if in.WindObservations, err = geoio.ReadWindCSV(opts.Wind); err != nil {
			return in, err
		}
	}

	zap.L().Info("plan: inputs loaded",
		zap.Int("buildings", len(in.Buildings)),
		zap.Int("green_blue", len(in.GreenBlue)),
		zap.Int("context_cells", len(in.Population)+len(in.NearWater)+len(in.CorridorAxes)),
		zap.Int("wind_observations", len(in.WindObservations)),
	)
	return in, nil
}

func init() {
	f := planCmd.Flags()
	f.String("buildings", "", "building footprints (.geojson or .shp)")
	f.String("green-blue", "", "existing green/blue areas (.geojson)")
	f.String("context", "", "per-cell context .csv or .xlsx (row, col, population_weight, near_water, corridor_axis_deg)")
	f.String("wind", "", "hourly wind observations CSV (time, direction_deg, speed_ms)")
	f.Float64("wind-deg", 0, "prevailing wind direction in degrees (overrides --wind)")
	f.Float64("cell-size", 0, "grid cell size in meters (default from config)")
	f.Float64("budget", 0, "implementation budget (default unlimited)")
	f.String("out", "", "export directory (default from config)")
	f.StringSlice("format", nil, "export formats: json, csv, geojson, xlsx (default from config)")
	f.String("name", "", "run name (default: buildings file name)")
	f.Bool("no-persist", false, "do not save the run to the store")
	_ = planCmd.MarkFlagRequired("buildings")

	rootCmd.AddCommand(planCmd)
}
