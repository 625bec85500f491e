package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port            string `mapstructure:"port"`
		MetricsPort     string `mapstructure:"metrics_port"`
		PollingInterval int    `mapstructure:"polling_interval_seconds"`
		RefreshInterval int    `mapstructure:"refresh_interval_seconds"`
		LogLevel        string `mapstructure:"log_level"`
	} `mapstructure:"server"`
	Database struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
	} `mapstructure:"database"`
	Storage struct {
		Provider        string `mapstructure:"provider"` // "s3" or "local"
		KeyID           string `mapstructure:"key_id"`
		AppKey          string `mapstructure:"app_key"`
		Endpoint        string `mapstructure:"endpoint"`
		Region          string `mapstructure:"region"`
		BucketOrders    string `mapstructure:"bucket_orders"`
		ProcessedPrefix string `mapstructure:"processed_prefix"`
		LocalRoot       string `mapstructure:"local_root"`
	} `mapstructure:"storage"`
	Catalog struct {
		BaseURL        string  `mapstructure:"base_url"`
		TimeoutSeconds int     `mapstructure:"timeout_seconds"`
		RatePerSecond  float64 `mapstructure:"rate_per_second"`
	} `mapstructure:"catalog"`
	Redis struct {
		Enabled bool   `mapstructure:"enabled"`
		Addr    string `mapstructure:"addr"`
		Channel string `mapstructure:"channel"`
	} `mapstructure:"redis"`
	Campaigns struct {
		RemovalWindowDays int      `mapstructure:"removal_window_days"`
		DefaultSlotCount  int      `mapstructure:"default_slot_count"`
		ExcludedPrefixes  []string `mapstructure:"excluded_order_prefixes"`
	} `mapstructure:"campaigns"`
}

func Load() *Config {
	viper.SetEnvPrefix("PROMO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Register keys
	viper.BindEnv("server.port")
	viper.BindEnv("server.metrics_port")
	viper.BindEnv("server.polling_interval_seconds")
	viper.BindEnv("server.refresh_interval_seconds")
	viper.BindEnv("server.log_level")

	viper.BindEnv("database.host")
	viper.BindEnv("database.port")
	viper.BindEnv("database.user")
	viper.BindEnv("database.password")
	viper.BindEnv("database.name")

	viper.BindEnv("storage.provider")
	viper.BindEnv("storage.key_id")
	viper.BindEnv("storage.app_key")
	viper.BindEnv("storage.endpoint")
	viper.BindEnv("storage.region")
	viper.BindEnv("storage.bucket_orders")
	viper.BindEnv("storage.processed_prefix")
	viper.BindEnv("storage.local_root")

	viper.BindEnv("catalog.base_url")
	viper.BindEnv("catalog.timeout_seconds")
	viper.BindEnv("catalog.rate_per_second")

	viper.BindEnv("redis.enabled")
	viper.BindEnv("redis.addr")
	viper.BindEnv("redis.channel")

	viper.BindEnv("campaigns.removal_window_days")
	viper.BindEnv("campaigns.default_slot_count")

	// Defaults
	viper.SetDefault("server.port", ":8081")
	viper.SetDefault("server.metrics_port", ":9091")
	viper.SetDefault("server.polling_interval_seconds", 30)
	// Occupancy staleness must stay under a minute.
	viper.SetDefault("server.refresh_interval_seconds", 45)
	viper.SetDefault("server.log_level", "info")

	viper.SetDefault("storage.provider", "s3")
	viper.SetDefault("storage.processed_prefix", "processed/")
	viper.SetDefault("storage.local_root", "./data")

	viper.SetDefault("catalog.timeout_seconds", 5)
	viper.SetDefault("catalog.rate_per_second", 4)

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.channel", "broadcast")

	viper.SetDefault("campaigns.removal_window_days", 30)
	viper.SetDefault("campaigns.default_slot_count", 5)
	viper.SetDefault("campaigns.excluded_order_prefixes", []string{"LEGACY-", "EXT-"})

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Warning: Config error: %s", err)
		} else {
			log.Println("Info: config.yaml not found, using Environment Variables only.")
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Unable to decode config: %v", err)
	}

	return &cfg
}
