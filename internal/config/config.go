package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Dataset   DatasetConfig   `yaml:"dataset" mapstructure:"dataset"`
	Folds     FoldsConfig     `yaml:"folds" mapstructure:"folds"`
	Fit       FitConfig       `yaml:"fit" mapstructure:"fit"`
	Selection SelectionConfig `yaml:"selection" mapstructure:"selection"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run-history database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// DatasetConfig maps input columns onto the survey schema.
type DatasetConfig struct {
	LatColumn      string   `yaml:"lat_column" mapstructure:"lat_column"`
	LonColumn      string   `yaml:"lon_column" mapstructure:"lon_column"`
	PositiveColumn string   `yaml:"positive_column" mapstructure:"positive_column"`
	ExaminedColumn string   `yaml:"examined_column" mapstructure:"examined_column"`
	Covariates     []string `yaml:"covariates" mapstructure:"covariates"`
	BoundaryPath   string   `yaml:"boundary_path" mapstructure:"boundary_path"`
	SheetName      string   `yaml:"sheet_name" mapstructure:"sheet_name"`
}

// FoldsConfig configures k-fold partitioning.
type FoldsConfig struct {
	K          int   `yaml:"k" mapstructure:"k"`
	Seed       int64 `yaml:"seed" mapstructure:"seed"`
	Stratified bool  `yaml:"stratified" mapstructure:"stratified"`
}

// FitConfig configures the binomial geostatistical fitter.
type FitConfig struct {
	Kernel      string  `yaml:"kernel" mapstructure:"kernel"`
	RangeKM     float64 `yaml:"range_km" mapstructure:"range_km"`
	MaxIter     int     `yaml:"max_iter" mapstructure:"max_iter"`
	Tolerance   float64 `yaml:"tolerance" mapstructure:"tolerance"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Concurrency int     `yaml:"concurrency" mapstructure:"concurrency"`
	Spatial     bool    `yaml:"spatial" mapstructure:"spatial"`
}

// SelectionConfig configures backward covariate elimination.
type SelectionConfig struct {
	Floor int `yaml:"floor" mapstructure:"floor"`
}

// ServerConfig configures the run-inspection HTTP server.
type ServerConfig struct {
	Port             int     `yaml:"port" mapstructure:"port"`
	SelectionsPerMin float64 `yaml:"selections_per_min" mapstructure:"selections_per_min"`
	SelectionsBurst  int     `yaml:"selections_burst" mapstructure:"selections_burst"`
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
	v.SetEnvPrefix("GEOSTAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "geostat.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.selections_per_min", 6)
	v.SetDefault("server.selections_burst", 2)
	v.SetDefault("dataset.lat_column", "latitude")
	v.SetDefault("dataset.lon_column", "longitude")
	v.SetDefault("dataset.positive_column", "positives")
	v.SetDefault("dataset.examined_column", "examined")
	v.SetDefault("folds.k", 5)
	v.SetDefault("folds.seed", 1)
	v.SetDefault("folds.stratified", true)
	v.SetDefault("fit.kernel", "matern32")
	v.SetDefault("fit.range_km", 50)
	v.SetDefault("fit.max_iter", 50)
	v.SetDefault("fit.tolerance", 1e-8)
	v.SetDefault("fit.timeout_secs", 120)
	v.SetDefault("fit.concurrency", 0)
	v.SetDefault("fit.spatial", true)
	v.SetDefault("selection.floor", 2)

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
