// Package config loads service configuration from file and environment.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all configuration for the docintel pipeline
type Config struct {
	// DataDir is the base data directory (DOCINTEL_DATA_DIR, default: ./data)
	DataDir string `mapstructure:"data_dir"`
	// SQLitePath is the database file path, derived from DataDir when empty
	SQLitePath string `mapstructure:"sqlite_path"`
	// IndexPath is the search index directory, derived from DataDir when empty
	IndexPath string `mapstructure:"index_path"`

	// Automation identity every pipeline operation runs as
	Automation struct {
		AccountID   string `mapstructure:"account_id" validate:"required"`
		AccountName string `mapstructure:"account_name"`
	} `mapstructure:"automation"`

	Logging struct {
		Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
		Format string `mapstructure:"format" validate:"oneof=json console"`
	} `mapstructure:"logging"`

	Redis struct {
		Enabled  bool   `mapstructure:"enabled"`
		Addr     string `mapstructure:"addr" validate:"required_if=Enabled true"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db" validate:"min=0,max=15"`
	} `mapstructure:"redis"`

	Kafka struct {
		Enabled bool     `mapstructure:"enabled"`
		Brokers []string `mapstructure:"brokers" validate:"required_if=Enabled true"`
		Topic   string   `mapstructure:"topic"`
	} `mapstructure:"kafka"`

	Feeds struct {
		TickInterval time.Duration `mapstructure:"tick_interval" validate:"min=1s"`
	} `mapstructure:"feeds"`

	Indexer struct {
		PassInterval time.Duration `mapstructure:"pass_interval" validate:"min=1m"`
	} `mapstructure:"indexer"`

	Whitelist struct {
		// Warning-list URLs imported at startup
		Lists []string `mapstructure:"lists" validate:"dive,url"`
	} `mapstructure:"whitelist"`

	Enrich struct {
		// Tag prefixes propagated from FQDN nodes to URLs
		TagPrefixes []string `mapstructure:"tag_prefixes"`
	} `mapstructure:"enrich"`

	Ops struct {
		// Listen address of the health/metrics endpoint, empty disables it
		Addr string `mapstructure:"addr"`
	} `mapstructure:"ops"`
}

func setDefaults() {
	viper.SetDefault("data_dir", "./data")
	viper.SetDefault("sqlite_path", "") // derived from data_dir
	viper.SetDefault("index_path", "") // derived from data_dir

	viper.SetDefault("automation.account_id", "")
	viper.SetDefault("automation.account_name", "docintel-automation")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("kafka.enabled", false)
	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.topic", "docintel.submissions")

	viper.SetDefault("feeds.tick_interval", time.Minute)
	viper.SetDefault("indexer.pass_interval", 24*time.Hour)

	viper.SetDefault("enrich.tag_prefixes", []string{"classification:", "feed:"})

	viper.SetDefault("ops.addr", ":9105")
}

func loadFromEnv() {
	viper.SetEnvPrefix("DOCINTEL")
	viper.AutomaticEnv()

	_ = viper.BindEnv("data_dir", "DOCINTEL_DATA_DIR")
	_ = viper.BindEnv("sqlite_path", "DOCINTEL_SQLITE_PATH")
	_ = viper.BindEnv("index_path", "DOCINTEL_INDEX_PATH")
	_ = viper.BindEnv("automation.account_id", "DOCINTEL_AUTOMATION_ACCOUNT_ID")
	_ = viper.BindEnv("redis.addr", "DOCINTEL_REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "DOCINTEL_REDIS_PASSWORD")
	_ = viper.BindEnv("kafka.brokers", "DOCINTEL_KAFKA_BROKERS")
	_ = viper.BindEnv("logging.level", "DOCINTEL_LOG_LEVEL")
}

// LoadConfig loads configuration from config.yaml and environment variables.
// A missing config file is fine; defaults and environment apply.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()
	loadFromEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.resolvePaths()

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// resolvePaths derives file locations from DataDir when not set explicitly
func (c *Config) resolvePaths() {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.SQLitePath == "" {
		c.SQLitePath = filepath.Join(c.DataDir, "docintel.db")
	} else if !filepath.IsAbs(c.SQLitePath) {
		c.SQLitePath = filepath.Clean(c.SQLitePath)
	}
	if c.IndexPath == "" {
		c.IndexPath = filepath.Join(c.DataDir, "index.bleve")
	} else if !filepath.IsAbs(c.IndexPath) {
		c.IndexPath = filepath.Clean(c.IndexPath)
	}
}
