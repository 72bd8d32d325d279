package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/nbs-planner/internal/config"
	"github.com/sells-group/nbs-planner/internal/nbs"
	"github.com/sells-group/nbs-planner/internal/pipeline"
	"github.com/sells-group/nbs-planner/internal/store"
)

// initStore opens and migrates the configured store. It returns nil when the
// driver is "none".
func initStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch sc.Driver {
	case config.DriverNone:
		return nil, nil
	case config.DriverSQLite:
		st, err = store.NewSQLite(sc.Path)
	case config.DriverPostgres:
		st, err = store.NewPostgres(ctx, sc.DatabaseURL, &store.PoolConfig{
			MaxConns: sc.MaxConns,
			MinConns: sc.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", sc.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// newPlanner builds a planner from the planner and grid sections, applying a
// coefficient table override when one is configured.
func newPlanner(c *config.Config) (*pipeline.Planner, error) {
	pc := c.Planner
	opts := []pipeline.Option{
		pipeline.WithWorkers(pc.Workers),
		pipeline.WithWaterBuffer(pc.WaterBufferM),
		pipeline.WithMaxCells(c.Grid.MaxCells),
	}
	if pc.TablesPath != "" {
		table, err := nbs.LoadTable(pc.TablesPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithTable(table))
	}
	return pipeline.New(opts...), nil
}
