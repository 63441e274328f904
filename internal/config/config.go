// Package config loads the application configuration from defaults, an
// optional chemrisk.yaml, and CHEMRISK_* environment variables. The loaded
// Config is immutable after startup; commands copy values out rather than
// mutating it.
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
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Data      DataConfig      `yaml:"data" mapstructure:"data"`
	Export    ExportConfig    `yaml:"export" mapstructure:"export"`
	Model     ModelConfig     `yaml:"model" mapstructure:"model"`
	Knowledge KnowledgeConfig `yaml:"knowledge" mapstructure:"knowledge"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Alerts    AlertsConfig    `yaml:"alerts" mapstructure:"alerts"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DataConfig holds the stage artifact paths.
type DataConfig struct {
	Raw     string `yaml:"raw" mapstructure:"raw"`
	Clean   string `yaml:"clean" mapstructure:"clean"`
	Risk    string `yaml:"risk" mapstructure:"risk"`
	Anomaly string `yaml:"anomaly" mapstructure:"anomaly"`
}

// ExportConfig holds the web-facing output paths.
type ExportConfig struct {
	Web     string `yaml:"web" mapstructure:"web"`
	GeoJSON string `yaml:"geojson" mapstructure:"geojson"`
}

// ModelConfig tunes the risk and anomaly models.
type ModelConfig struct {
	Variant               string  `yaml:"variant" mapstructure:"variant"`
	Seed                  uint64  `yaml:"seed" mapstructure:"seed"`
	Trees                 int     `yaml:"trees" mapstructure:"trees"`
	IndustryTrees         int     `yaml:"industry_trees" mapstructure:"industry_trees"`
	SampleSize            int     `yaml:"sample_size" mapstructure:"sample_size"`
	ContaminationGlobal   float64 `yaml:"contamination_global" mapstructure:"contamination_global"`
	ContaminationIndustry float64 `yaml:"contamination_industry" mapstructure:"contamination_industry"`
	IndustryMinGroup      int     `yaml:"industry_min_group" mapstructure:"industry_min_group"`
	RiskPercentile        float64 `yaml:"risk_percentile" mapstructure:"risk_percentile"`
	Parallelism           int     `yaml:"parallelism" mapstructure:"parallelism"`
}

// KnowledgeConfig points at optional overrides for the built-in toxicity
// table and sensitive-location set.
type KnowledgeConfig struct {
	ToxicityFile  string  `yaml:"toxicity_file" mapstructure:"toxicity_file"`
	LocationsFile string  `yaml:"locations_file" mapstructure:"locations_file"`
	LocationsSHP  string  `yaml:"locations_shp" mapstructure:"locations_shp"`
	SHPCategory   string  `yaml:"shp_category" mapstructure:"shp_category"`
	SHPWeight     float64 `yaml:"shp_weight" mapstructure:"shp_weight"`
}

// StoreConfig configures the runs ledger backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite, postgres, or none
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr        string   `yaml:"addr" mapstructure:"addr"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	RefreshCron string   `yaml:"refresh_cron" mapstructure:"refresh_cron"`
}

// AlertsConfig configures the anomaly alert publisher.
type AlertsConfig struct {
	Enabled bool     `yaml:"enabled" mapstructure:"enabled"`
	Brokers []string `yaml:"brokers" mapstructure:"brokers"`
	Topic   string   `yaml:"topic" mapstructure:"topic"`
}

// FetchConfig configures raw extract downloads.
type FetchConfig struct {
	URL         string  `yaml:"url" mapstructure:"url"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Rate        float64 `yaml:"rate" mapstructure:"rate"` // requests per second
	Burst       int     `yaml:"burst" mapstructure:"burst"`
	Retries     int     `yaml:"retries" mapstructure:"retries"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("chemrisk")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CHEMRISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("data.raw", "data/raw/chemtrac_raw.csv")
	v.SetDefault("data.clean", "data/processed/chemtrac_rows_clean.csv")
	v.SetDefault("data.risk", "data/processed/facilities_with_risk.csv")
	v.SetDefault("data.anomaly", "data/processed/facilities_with_risk_and_anomaly.csv")
	v.SetDefault("export.web", "web/public/data/facilities.json")
	v.SetDefault("export.geojson", "web/public/data/facilities.geojson")
	v.SetDefault("model.variant", "advanced")
	v.SetDefault("model.seed", 42)
	v.SetDefault("model.trees", 200)
	v.SetDefault("model.industry_trees", 100)
	v.SetDefault("model.sample_size", 256)
	v.SetDefault("model.contamination_global", 0.06)
	v.SetDefault("model.contamination_industry", 0.15)
	v.SetDefault("model.industry_min_group", 3)
	v.SetDefault("model.risk_percentile", 95)
	v.SetDefault("model.parallelism", 0)
	v.SetDefault("knowledge.shp_category", "school")
	v.SetDefault("knowledge.shp_weight", 2.0)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "chemrisk.db")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("alerts.enabled", false)
	v.SetDefault("alerts.brokers", []string{"localhost:9092"})
	v.SetDefault("alerts.topic", "chemrisk.anomalies")
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.rate", 2)
	v.SetDefault("fetch.burst", 1)
	v.SetDefault("fetch.retries", 3)

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

// Validate checks cross-field constraints that viper cannot express. It runs
// once at startup; a Config that passes is safe to share between goroutines.
func (c *Config) Validate() error {
	var problems []string

	switch c.Model.Variant {
	case "advanced", "legacy":
	default:
		problems = append(problems, "model.variant must be advanced or legacy")
	}
	if c.Model.ContaminationGlobal <= 0 || c.Model.ContaminationGlobal >= 0.5 {
		problems = append(problems, "model.contamination_global must be in (0, 0.5)")
	}
	if c.Model.ContaminationIndustry <= 0 || c.Model.ContaminationIndustry >= 0.5 {
		problems = append(problems, "model.contamination_industry must be in (0, 0.5)")
	}
	if c.Model.RiskPercentile <= 0 || c.Model.RiskPercentile > 100 {
		problems = append(problems, "model.risk_percentile must be in (0, 100]")
	}
	if c.Model.IndustryMinGroup < 2 {
		problems = append(problems, "model.industry_min_group must be >= 2")
	}

	switch c.Store.Driver {
	case "sqlite", "postgres", "none":
	default:
		problems = append(problems, "store.driver must be sqlite, postgres, or none")
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required for the postgres driver")
	}

	if c.Server.Addr == "" {
		problems = append(problems, "server.addr must not be empty")
	}
	if c.Alerts.Enabled && len(c.Alerts.Brokers) == 0 {
		problems = append(problems, "alerts.brokers must not be empty when alerts are enabled")
	}
	if c.Fetch.Rate <= 0 {
		problems = append(problems, "fetch.rate must be > 0")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
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
