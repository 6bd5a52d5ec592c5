package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/heliowatt/pvscope/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Plant    PlantConfig    `yaml:"plant" mapstructure:"plant"`
	Loader   LoaderConfig   `yaml:"loader" mapstructure:"loader"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// PlantConfig holds the plant rating and classification thresholds.
type PlantConfig struct {
	CapacityMWp         float64 `yaml:"capacity_mwp" mapstructure:"capacity_mwp"`
	PRThreshold         float64 `yaml:"pr_threshold" mapstructure:"pr_threshold"`
	EfficiencyThreshold float64 `yaml:"efficiency_threshold" mapstructure:"efficiency_threshold"`
}

// Params converts the plant section into the parameter struct the core
// functions take.
func (p PlantConfig) Params() model.PlantParams {
	return model.PlantParams{
		CapacityMWp:         p.CapacityMWp,
		PRThreshold:         p.PRThreshold,
		EfficiencyThreshold: p.EfficiencyThreshold,
	}
}

// LoaderConfig configures source workbook parsing.
type LoaderConfig struct {
	// SheetName is the sheet read from every workbook.
	SheetName string `yaml:"sheet_name" mapstructure:"sheet_name"`
	// ColumnMapFile optionally points at a YAML file overriding the
	// per-role column positions.
	ColumnMapFile string `yaml:"column_map_file" mapstructure:"column_map_file"`
}

// AnalysisConfig configures run execution.
type AnalysisConfig struct {
	// Concurrency bounds how many inverter sets are summarized at once.
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig configures the HTTP upload server.
type ServerConfig struct {
	Port          int `yaml:"port" mapstructure:"port"`
	MaxUploadMB   int `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	RatePerMinute int `yaml:"rate_per_minute" mapstructure:"rate_per_minute"`
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
	v.SetEnvPrefix("PVSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("plant.capacity_mwp", 2.06)
	v.SetDefault("plant.pr_threshold", 0.75)
	v.SetDefault("plant.efficiency_threshold", 0.90)
	v.SetDefault("loader.sheet_name", "5 minutes")
	v.SetDefault("analysis.concurrency", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("server.rate_per_minute", 30)
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
