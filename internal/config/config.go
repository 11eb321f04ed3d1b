package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NatsConfig struct {
	URL            string        `mapstructure:"url"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
}

type PushConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BaseURL     string `mapstructure:"base_url"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	Workers     int    `mapstructure:"workers"`
	MaxWorkers  int    `mapstructure:"max_workers"`
	QueueSize   int    `mapstructure:"queue_size"`
}

type DedupConfig struct {
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

type StorageConfig struct {
	UploadDir string `mapstructure:"upload_dir"`
	PublicURL string `mapstructure:"public_url"`
}

type Config struct {
	DatabaseURL string        `mapstructure:"database_url"`
	ServerPort  string        `mapstructure:"server_port"`
	JWTSecret   string        `mapstructure:"jwt_secret"`
	Redis       RedisConfig   `mapstructure:"redis"`
	Nats        NatsConfig    `mapstructure:"nats"`
	Push        PushConfig    `mapstructure:"push"`
	Dedup       DedupConfig   `mapstructure:"dedup"`
	Storage     StorageConfig `mapstructure:"storage"`
}

// Load reads the configuration from a YAML file and returns a Config instance.
func Load() *Config {
	v := viper.New()

	// Look for config in the current directory and ./config
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Error unmarshalling config: %v", err)
	}

	// Fallback defaults
	if config.ServerPort == "" {
		config.ServerPort = "8080"
	}
	if config.JWTSecret == "" {
		log.Fatal("JWT secret must be set in the config file")
	}
	if config.Redis.Addr == "" {
		config.Redis.Addr = "localhost:6379"
	}
	if config.Nats.URL == "" {
		config.Nats.URL = "nats://localhost:4222"
	}
	if config.Nats.ConnectTimeout == 0 {
		config.Nats.ConnectTimeout = 5 * time.Second
	}
	if config.Nats.ReconnectWait == 0 {
		config.Nats.ReconnectWait = 2 * time.Second
	}
	if config.Nats.MaxReconnects == 0 {
		config.Nats.MaxReconnects = 10
	}
	if config.Push.BaseURL == "" {
		config.Push.BaseURL = "https://ntfy.sh"
	}
	if config.Push.TopicPrefix == "" {
		config.Push.TopicPrefix = "safety-alert-"
	}
	if config.Push.Workers == 0 {
		config.Push.Workers = 5
	}
	if config.Push.MaxWorkers == 0 {
		config.Push.MaxWorkers = 20
	}
	if config.Push.QueueSize == 0 {
		config.Push.QueueSize = 100
	}
	if config.Dedup.LockTTL == 0 {
		config.Dedup.LockTTL = 2 * time.Minute
	}
	if config.Storage.UploadDir == "" {
		config.Storage.UploadDir = "uploads"
	}
	if config.Storage.PublicURL == "" {
		config.Storage.PublicURL = "/images"
	}

	return &config
}
