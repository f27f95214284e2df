package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration. The hub (api) reads Server,
// Database, NATS, Valkey, and Telemetry; the field agent reads Agent,
// Capture, and NATS.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Capture   CaptureConfig   `mapstructure:"capture"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// AgentConfig configures the on-device field agent.
type AgentConfig struct {
	Port          int    `mapstructure:"port"`           // local control API
	HubURL        string `mapstructure:"hub_url"`        // sync target
	StorePath     string `mapstructure:"store_path"`     // sqlite capture store
	SyncInterval  int    `mapstructure:"sync_interval"`  // seconds between drain cycles
	ProbeInterval int    `mapstructure:"probe_interval"` // seconds between connectivity probes
	RetainSynced  bool   `mapstructure:"retain_synced"`  // keep synced artifacts locally
}

// CaptureConfig tunes position capture behaviour.
type CaptureConfig struct {
	MinFixes          int     `mapstructure:"min_fixes"`           // fixes required for averaging
	MaxAccuracyMeters float64 `mapstructure:"max_accuracy_meters"` // recording fix gate, 0 = accept all
	SimulateGPS       bool    `mapstructure:"simulate_gps"`        // scripted walk instead of hardware
	SimCenterLat      float64 `mapstructure:"sim_center_lat"`
	SimCenterLon      float64 `mapstructure:"sim_center_lon"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "fieldmark")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "fieldmark")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("agent.port", 8090)
	v.SetDefault("agent.hub_url", "http://localhost:8080")
	v.SetDefault("agent.store_path", "fieldmark_capture.db")
	v.SetDefault("agent.sync_interval", 60)
	v.SetDefault("agent.probe_interval", 30)
	v.SetDefault("agent.retain_synced", false)
	v.SetDefault("capture.min_fixes", 3)
	v.SetDefault("capture.max_accuracy_meters", 50)
	v.SetDefault("capture.simulate_gps", false)
	v.SetDefault("capture.sim_center_lat", -1.286389)
	v.SetDefault("capture.sim_center_lon", 36.817223)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: FIELDMARK_DATABASE_HOST → database.host
	v.SetEnvPrefix("FIELDMARK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Agent.Port <= 0 || c.Agent.Port > 65535 {
		errs = append(errs, fmt.Sprintf("agent.port must be 1-65535, got %d", c.Agent.Port))
	}
	if c.Agent.HubURL == "" {
		errs = append(errs, "agent.hub_url is required")
	}
	if c.Agent.StorePath == "" {
		errs = append(errs, "agent.store_path is required")
	}
	if c.Agent.SyncInterval <= 0 {
		errs = append(errs, "agent.sync_interval must be positive")
	}
	if c.Capture.MinFixes < 2 {
		errs = append(errs, fmt.Sprintf("capture.min_fixes must be at least 2, got %d", c.Capture.MinFixes))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
