package config

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/nbs-planner/internal/grid"
	"github.com/sells-group/nbs-planner/internal/report"
)

// Config holds the full application configuration.
type Config struct {
	Grid    GridConfig    `yaml:"grid" mapstructure:"grid"`
	Planner PlannerConfig `yaml:"planner" mapstructure:"planner"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Export  ExportConfig  `yaml:"export" mapstructure:"export"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// GridConfig sizes the analysis lattice. The study area is either explicit
// bounds or a center point with a radius; with neither, the grid covers the
// building extent.
type GridConfig struct {
	CellSizeM float64        `yaml:"cell_size_m" mapstructure:"cell_size_m"`
	StudyArea grid.StudyArea `yaml:"study_area" mapstructure:"study_area"`
	Center    CenterConfig   `yaml:"center" mapstructure:"center"`
	MaxCells  int            `yaml:"max_cells" mapstructure:"max_cells"`
}

// CenterConfig is a study area given as a projected center and radius.
type CenterConfig struct {
	X       float64 `yaml:"x" mapstructure:"x"`
	Y       float64 `yaml:"y" mapstructure:"y"`
	RadiusM float64 `yaml:"radius_m" mapstructure:"radius_m"`
}

// Extent resolves the configured study area, or nil when none is set.
func (g GridConfig) Extent() *orb.Bound {
	sa := g.StudyArea
	if sa != (grid.StudyArea{}) {
		b := sa.Bound()
		return &b
	}
	if g.Center.RadiusM > 0 {
		b := grid.AroundCenter(g.Center.X, g.Center.Y, g.Center.RadiusM).Bound()
		return &b
	}
	return nil
}

// PlannerConfig configures the planning batch.
type PlannerConfig struct {
	Workers      int      `yaml:"workers" mapstructure:"workers"`
	Budget       *float64 `yaml:"budget" mapstructure:"budget"`
	WaterBufferM float64  `yaml:"water_buffer_m" mapstructure:"water_buffer_m"`
	TablesPath   string   `yaml:"tables_path" mapstructure:"tables_path"`
	WindDeg      *float64 `yaml:"wind_direction_deg" mapstructure:"wind_direction_deg"`
	TimeoutSecs  int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// StoreConfig selects where runs are persisted.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	RateLimit      float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst      int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	MaxBodyMB      int      `yaml:"max_body_mb" mapstructure:"max_body_mb"`
}

// ExportConfig configures plan file output.
type ExportConfig struct {
	Dir     string   `yaml:"dir" mapstructure:"dir"`
	Formats []string `yaml:"formats" mapstructure:"formats"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("NBS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Optional keys have no default, so AutomaticEnv alone would miss them.
	_ = v.BindEnv("planner.budget")
	_ = v.BindEnv("planner.wind_direction_deg")

	// Defaults
	v.SetDefault("grid.cell_size_m", grid.DefaultCellSizeM)
	v.SetDefault("grid.study_area.min_x", 0.0)
	v.SetDefault("grid.study_area.min_y", 0.0)
	v.SetDefault("grid.study_area.max_x", 0.0)
	v.SetDefault("grid.study_area.max_y", 0.0)
	v.SetDefault("grid.center.x", 0.0)
	v.SetDefault("grid.center.y", 0.0)
	v.SetDefault("grid.center.radius_m", 0.0)
	v.SetDefault("grid.max_cells", grid.DefaultMaxCells)
	v.SetDefault("planner.workers", 0)
	v.SetDefault("planner.water_buffer_m", 0.0)
	v.SetDefault("planner.tables_path", "")
	v.SetDefault("planner.timeout_secs", 300)
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.path", "nbs-planner.db")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 5.0)
	v.SetDefault("server.rate_burst", 10)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_body_mb", 64)
	v.SetDefault("export.dir", "out")
	v.SetDefault("export.formats", []string{report.FormatJSON, report.FormatCSV})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command depends on. mode is the command
// name ("plan", "serve", "runs", "tables").
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.Grid.CellSizeM <= 0 {
		errs = append(errs, fmt.Sprintf("grid.cell_size_m must be positive, got %g", c.Grid.CellSizeM))
	}
	sa := c.Grid.StudyArea
	if sa != (grid.StudyArea{}) && (sa.MaxX <= sa.MinX || sa.MaxY <= sa.MinY) {
		errs = append(errs, "grid.study_area max must exceed min")
	}
	if c.Grid.MaxCells < 1 {
		errs = append(errs, fmt.Sprintf("grid.max_cells must be positive, got %d", c.Grid.MaxCells))
	}
	if c.Grid.Center.RadiusM < 0 {
		errs = append(errs, "grid.center.radius_m must not be negative")
	}
	if c.Planner.Budget != nil && *c.Planner.Budget < 0 {
		errs = append(errs, "planner.budget must not be negative")
	}
	if c.Planner.WaterBufferM < 0 {
		errs = append(errs, "planner.water_buffer_m must not be negative")
	}
	if c.Planner.Workers < 0 {
		errs = append(errs, "planner.workers must not be negative")
	}

	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.Path == "" {
			errs = append(errs, "store.path is required for sqlite")
		}
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for postgres")
		}
	case DriverNone:
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not one of sqlite, postgres, none", c.Store.Driver))
	}

	switch mode {
	case "plan":
		for _, f := range c.Export.Formats {
			if !report.ValidFormat(f) {
				errs = append(errs, fmt.Sprintf("export.formats: unknown format %q", f))
			}
		}
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server.rate_limit must not be negative")
		}
	case "runs":
		if c.Store.Driver == DriverNone {
			errs = append(errs, "store.driver none has no runs")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
