package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go-simpler.org/env"
	"gopkg.in/yaml.v3"
)

// DefaultBroadcastInterval is the period between stats_update pushes.
// Existing clients expect the 30s cadence, so keep it unless configured.
const DefaultBroadcastInterval = 30 * time.Second

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	WS        WSConfig        `yaml:"ws"`
	Mock      MockConfig      `yaml:"mock"`
	Log       LogConfig       `yaml:"log"`
	HostProbe HostProbeConfig `yaml:"host_probe"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	Host            string        `yaml:"host"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type BroadcastConfig struct {
	Interval          time.Duration `yaml:"interval"`
	SnapshotTimeout   time.Duration `yaml:"snapshot_timeout"`
	SnapshotOnConnect bool          `yaml:"snapshot_on_connect"`
}

type WSConfig struct {
	SendBuffer     int           `yaml:"send_buffer"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	PongWait       time.Duration `yaml:"pong_wait"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	MaxMessageSize int64         `yaml:"max_message_size"`
	MaxConnections int           `yaml:"max_connections"` // 0 = unlimited
	InboundRate    float64       `yaml:"inbound_rate"`    // messages per second, 0 = unlimited
	InboundBurst   int           `yaml:"inbound_burst"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

type MockConfig struct {
	// ChurnInterval flips a random peer's status on every tick. 0 disables churn.
	ChurnInterval time.Duration `yaml:"churn_interval"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type HostProbeConfig struct {
	Enabled          bool `yaml:"enabled"`
	FailureThreshold int  `yaml:"failure_threshold"`
}

// envOverrides lists the settings that can be replaced from the environment.
// Fields are seeded from the file config so unset variables keep their value.
type envOverrides struct {
	Host              string        `env:"FILENEST_HOST"`
	Port              int           `env:"FILENEST_PORT"`
	BroadcastInterval time.Duration `env:"FILENEST_BROADCAST_INTERVAL"`
	LogLevel          string        `env:"FILENEST_LOG_LEVEL"`
	LogFormat         string        `env:"FILENEST_LOG_FORMAT"`
	MaxConnections    int           `env:"FILENEST_MAX_CONNECTIONS"`
	AllowedOrigins    []string      `env:"FILENEST_ALLOWED_ORIGINS"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8000,
			Host:            "0.0.0.0",
			ShutdownTimeout: 10 * time.Second,
		},
		Broadcast: BroadcastConfig{
			Interval:        DefaultBroadcastInterval,
			SnapshotTimeout: 2 * time.Second,
		},
		WS: WSConfig{
			SendBuffer:     64,
			WriteTimeout:   5 * time.Second,
			PongWait:       60 * time.Second,
			PingInterval:   30 * time.Second,
			MaxMessageSize: 4096,
			InboundRate:    20,
			InboundBurst:   40,
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		HostProbe: HostProbeConfig{
			Enabled:          true,
			FailureThreshold: 3,
		},
	}
}

// Default returns the built-in configuration without consulting any file or
// the environment.
func Default() *Config {
	return defaultConfig()
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Load("")
	}
	return Load(path)
}

func (c *Config) applyEnv() error {
	o := envOverrides{
		Host:              c.Server.Host,
		Port:              c.Server.Port,
		BroadcastInterval: c.Broadcast.Interval,
		LogLevel:          c.Log.Level,
		LogFormat:         c.Log.Format,
		MaxConnections:    c.WS.MaxConnections,
		AllowedOrigins:    c.WS.AllowedOrigins,
	}
	if err := env.Load(&o, &env.Options{SliceSep: ","}); err != nil {
		return fmt.Errorf("load environment: %w", err)
	}

	c.Server.Host = o.Host
	c.Server.Port = o.Port
	c.Broadcast.Interval = o.BroadcastInterval
	c.Log.Level = o.LogLevel
	c.Log.Format = o.LogFormat
	c.WS.MaxConnections = o.MaxConnections
	c.WS.AllowedOrigins = trimAll(o.AllowedOrigins)
	return nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Validate reports the first setting that would leave the server unusable.
func (c *Config) Validate() error {
	switch {
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("server.port: %d out of range", c.Server.Port)
	case c.Broadcast.Interval <= 0:
		return fmt.Errorf("broadcast.interval: must be positive, got %s", c.Broadcast.Interval)
	case c.Broadcast.SnapshotTimeout <= 0:
		return fmt.Errorf("broadcast.snapshot_timeout: must be positive, got %s", c.Broadcast.SnapshotTimeout)
	case c.WS.SendBuffer <= 0:
		return fmt.Errorf("ws.send_buffer: must be positive, got %d", c.WS.SendBuffer)
	case c.WS.WriteTimeout <= 0:
		return fmt.Errorf("ws.write_timeout: must be positive, got %s", c.WS.WriteTimeout)
	case c.WS.PingInterval <= 0 || c.WS.PingInterval >= c.WS.PongWait:
		return fmt.Errorf("ws.ping_interval: must be positive and below ws.pong_wait (%s), got %s", c.WS.PongWait, c.WS.PingInterval)
	case c.WS.MaxConnections < 0:
		return fmt.Errorf("ws.max_connections: must not be negative, got %d", c.WS.MaxConnections)
	case c.WS.InboundRate < 0:
		return fmt.Errorf("ws.inbound_rate: must not be negative, got %g", c.WS.InboundRate)
	case c.Mock.ChurnInterval < 0:
		return fmt.Errorf("mock.churn_interval: must not be negative, got %s", c.Mock.ChurnInterval)
	case !validLogLevel(c.Log.Level):
		return fmt.Errorf("log.level: want debug, info, warn or error, got %q", c.Log.Level)
	case !validLogFormat(c.Log.Format):
		return fmt.Errorf("log.format: want text or json, got %q", c.Log.Format)
	}
	return nil
}

func validLogLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

func validLogFormat(format string) bool {
	switch strings.ToLower(format) {
	case "text", "json":
		return true
	}
	return false
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
