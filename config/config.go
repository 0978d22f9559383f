package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the cosmos pipeline.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Storage   StorageConfig   `mapstructure:"storage"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug             bool          `mapstructure:"debug"`
	LogLevel          string        `mapstructure:"log_level"`
	MaxProcessingTime time.Duration `mapstructure:"max_processing_time"`
	DefaultTimeout    time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LLMConfig contains LLM provider configurations
type LLMConfig struct {
	Providers map[string]LLMProvider `mapstructure:"providers"`
	Routing   LLMRoutingConfig       `mapstructure:"routing"`
}

// LLMProvider represents a single LLM provider configuration
type LLMProvider struct {
	Type       string              `mapstructure:"type"` // openai, compatible local gateway, etc.
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Models     map[string]LLMModel `mapstructure:"models"`
	MaxRetries int                 `mapstructure:"max_retries"`
	Timeout    time.Duration       `mapstructure:"timeout"`
}

// LLMModel represents a specific model configuration
type LLMModel struct {
	Name            string  `mapstructure:"name"`
	APIName         string  `mapstructure:"api_name"`
	MaxTokens       int     `mapstructure:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature"`
	CostPer1K       float64 `mapstructure:"cost_per_1k_input"`
	CostPer1KOutput float64 `mapstructure:"cost_per_1k_output"`
}

// LLMRoutingConfig maps pipeline quality tiers to configured models.
// Fast is used for batch enrichment and incremental classification,
// Deep for the single spatial layout call.
type LLMRoutingConfig struct {
	Fast     string `mapstructure:"fast"`
	Deep     string `mapstructure:"deep"`
	Fallback string `mapstructure:"fallback"`
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	LogFile      string `mapstructure:"log_file"`
	CostTracking bool   `mapstructure:"cost_tracking"`
}

// PipelineConfig contains the knobs of the enrichment/layout pipeline.
type PipelineConfig struct {
	BatchSize         int          `mapstructure:"batch_size"`
	MaxConcurrentRuns int          `mapstructure:"max_concurrent_runs"`
	ClassifyTopPosts  int          `mapstructure:"classify_top_posts"`
	Layout            LayoutConfig `mapstructure:"layout"`
}

// LayoutConfig declares the coordinate space communicated to the layout
// call and enforced on its output. Axis X is the opinion spectrum, Y the
// abstraction level, Z novelty.
type LayoutConfig struct {
	AxisMin           float64 `mapstructure:"axis_min"`
	AxisMax           float64 `mapstructure:"axis_max"`
	MinClusterDist    float64 `mapstructure:"min_cluster_dist"`
	MaxPostRadius     float64 `mapstructure:"max_post_radius"`
	MinClusters       int     `mapstructure:"min_clusters"`
	MaxClusters       int     `mapstructure:"max_clusters"`
	SampledPerCluster int     `mapstructure:"sampled_per_cluster"`
}

// StorageConfig contains data storage configurations
type StorageConfig struct {
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig contains Redis settings
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PostgresConfig contains PostgreSQL settings
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// LoadConfig reads the config file (and COSMOS_* env overrides) or panics.
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.max_processing_time", "10m")
	viper.SetDefault("general.default_timeout", "120s")
	viper.SetDefault("server.address", ":10010")
	viper.SetDefault("pipeline.batch_size", 20)
	viper.SetDefault("pipeline.max_concurrent_runs", 4)
	viper.SetDefault("pipeline.classify_top_posts", 40)
	viper.SetDefault("pipeline.layout.axis_min", -10.0)
	viper.SetDefault("pipeline.layout.axis_max", 10.0)
	viper.SetDefault("pipeline.layout.min_cluster_dist", 4.0)
	viper.SetDefault("pipeline.layout.max_post_radius", 6.0)
	viper.SetDefault("pipeline.layout.min_clusters", 3)
	viper.SetDefault("pipeline.layout.max_clusters", 7)
	viper.SetDefault("pipeline.layout.sampled_per_cluster", 5)
	viper.SetDefault("telemetry.enabled", true)
	viper.SetDefault("telemetry.cost_tracking", true)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("COSMOS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	if err := config.Pipeline.Validate(); err != nil {
		panic(err)
	}
	return &config
}

// Validate sanity-checks the pipeline knobs.
func (p PipelineConfig) Validate() error {
	if p.BatchSize <= 0 {
		return fmt.Errorf("pipeline.batch_size must be positive, got %d", p.BatchSize)
	}
	if p.MaxConcurrentRuns <= 0 {
		return fmt.Errorf("pipeline.max_concurrent_runs must be positive, got %d", p.MaxConcurrentRuns)
	}
	if p.Layout.AxisMin >= p.Layout.AxisMax {
		return fmt.Errorf("pipeline.layout axis range is empty: [%v,%v]", p.Layout.AxisMin, p.Layout.AxisMax)
	}
	if p.Layout.MinClusters < 1 || p.Layout.MaxClusters < p.Layout.MinClusters {
		return fmt.Errorf("pipeline.layout cluster bounds invalid: %d..%d", p.Layout.MinClusters, p.Layout.MaxClusters)
	}
	return nil
}
