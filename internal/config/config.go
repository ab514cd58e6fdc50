package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	Kitchen  KitchenConfig  `yaml:"kitchen" envPrefix:"KITCHEN_"`
	Storage  StorageConfig  `yaml:"storage" envPrefix:"STORAGE_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"DATABASE_"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq" envPrefix:"RABBITMQ_"`
	HTTP     HTTPConfig     `yaml:"http" envPrefix:"HTTP_"`
	Metrics  MetricsConfig  `yaml:"metrics" envPrefix:"METRICS_"`
}

type KitchenConfig struct {
	MaxCapacity           int  `yaml:"max_capacity" env:"MAX_CAPACITY"`
	AllowDirectComplete   bool `yaml:"allow_direct_complete" env:"ALLOW_DIRECT_COMPLETE"`
	RejectUnresolvedItems bool `yaml:"reject_unresolved_items" env:"REJECT_UNRESOLVED_ITEMS"`
}

type StorageConfig struct {
	Driver     string `yaml:"driver" env:"DRIVER"`
	SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	Database string `yaml:"database" env:"NAME"`
}

type RabbitMQConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
}

type HTTPConfig struct {
	Port int `yaml:"port" env:"PORT"`
}

type MetricsConfig struct {
	Port int `yaml:"port" env:"PORT"`
}

// Load reads the YAML file at path (a missing file is not an error), applies
// environment overrides, fills defaults and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Kitchen.MaxCapacity == 0 {
		cfg.Kitchen.MaxCapacity = 5
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverSQLite
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "restaurant.db"
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}

	if cfg.RabbitMQ.Host == "" {
		cfg.RabbitMQ.Host = "localhost"
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 5672
	}

	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 3000
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
}

func (c *Config) validate() error {
	var problems []string

	if c.Kitchen.MaxCapacity < 1 {
		problems = append(problems, "kitchen.max_capacity must be at least 1")
	}

	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Database.User == "" {
			problems = append(problems, "database.user is required for postgres storage")
		}
		if c.Database.Database == "" {
			problems = append(problems, "database.database is required for postgres storage")
		}
	case DriverSQLite, DriverMemory:
	default:
		problems = append(problems, fmt.Sprintf("storage.driver %q must be one of postgres, sqlite, memory", c.Storage.Driver))
	}

	for name, port := range map[string]int{
		"database.port": c.Database.Port,
		"rabbitmq.port": c.RabbitMQ.Port,
		"http.port":     c.HTTP.Port,
		"metrics.port":  c.Metrics.Port,
	} {
		if port <= 0 || port > 65535 {
			problems = append(problems, name+" must be in 1..65535")
		}
	}

	if c.RabbitMQ.Enabled && c.RabbitMQ.User == "" {
		problems = append(problems, "rabbitmq.user is required when rabbitmq is enabled")
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
