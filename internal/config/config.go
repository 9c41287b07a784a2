package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"futurb/internal/sims/isobenefit"
)

// Config holds the full application configuration. Preset names a growth
// preset applied on top of Simulation.
type Config struct {
	Log        LogConfig         `yaml:"log" mapstructure:"log"`
	Preset     string            `yaml:"preset" mapstructure:"preset"`
	Simulation isobenefit.Config `yaml:"simulation" mapstructure:"simulation"`
	Grid       GridConfig        `yaml:"grid" mapstructure:"grid"`
	Store      StoreConfig       `yaml:"store" mapstructure:"store"`
	Sweep      SweepConfig       `yaml:"sweep" mapstructure:"sweep"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// GridConfig describes the synthetic grid used when no checkpoint or
// extents file is given.
type GridConfig struct {
	Rows     int     `yaml:"rows" mapstructure:"rows"`
	Cols     int     `yaml:"cols" mapstructure:"cols"`
	CellSize float64 `yaml:"cell_size" mapstructure:"cell_size"`
}

// StoreConfig points at the SQLite run database. An empty path disables it.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// SweepConfig configures parameter sweeps.
type SweepConfig struct {
	Workers int                 `yaml:"workers" mapstructure:"workers"`
	Axes    map[string][]string `yaml:"axes" mapstructure:"axes"`
}

// Load reads configuration from file and environment. With an empty path it
// looks for an optional futurb.yaml in the working directory; an explicit
// path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("futurb")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("FUTURB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("preset", "")
	v.SetDefault("grid.rows", 100)
	v.SetDefault("grid.cols", 100)
	v.SetDefault("grid.cell_size", 100.0)
	v.SetDefault("store.path", "")
	v.SetDefault("sweep.workers", 0)
	setSimulationDefaults(v)

	// Read config file (optional unless named)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setSimulationDefaults(v *viper.Viper) {
	d := isobenefit.DefaultConfig()
	v.SetDefault("simulation.max_walking_distance", d.MaxWalkingDistance)
	v.SetDefault("simulation.contiguity_radius", d.ContiguityRadius)
	v.SetDefault("simulation.density_radius", d.DensityRadius)
	v.SetDefault("simulation.density_cap", d.DensityCap)
	v.SetDefault("simulation.centrality_distance", d.CentralityDistance)
	v.SetDefault("simulation.centrality_threshold", d.CentralityThreshold)
	v.SetDefault("simulation.max_iterations", d.MaxIterations)
	v.SetDefault("simulation.target_fraction", d.TargetFraction)
	v.SetDefault("simulation.seed", d.Seed)
	v.SetDefault("simulation.workers", d.Workers)
	v.SetDefault("simulation.rules", d.Rules)
	v.SetDefault("simulation.policy", d.Policy)
	v.SetDefault("simulation.conversions_per_iteration", d.ConversionsPerIteration)
	v.SetDefault("simulation.build_prob", d.BuildProb)
	v.SetDefault("simulation.centrality_prob", d.CentralityProb)
	v.SetDefault("simulation.density_levels", d.DensityLevels)
	v.SetDefault("simulation.density_weights", d.DensityWeights)
	v.SetDefault("simulation.min_long_green_span", d.MinLongGreenSpan)
	v.SetDefault("simulation.min_short_green_span", d.MinShortGreenSpan)
	v.SetDefault("simulation.min_green_area", d.MinGreenArea)
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
