package config

import (
	"net"
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendRaft   = "raft"
)

type Config struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ServiceName     string        `yaml:"service_name"`
	Backend         string        `yaml:"backend"`
	NodeID          string        `yaml:"node_id"`
	LogLevel        string        `yaml:"log_level"`
	ApplyTimeout    time.Duration `yaml:"apply_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoadConfig loads configuration from a YAML file if path is provided,
// applies environment variable overrides and fills in defaults.
// It does not validate; callers override from flags first and then call
// Validate.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Validate checks that the configuration can start a server.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return errors.Newf("invalid port %d", c.Port)
	}
	if c.ServiceName == "" {
		return errors.New("service name is required")
	}
	switch c.Backend {
	case BackendMemory, BackendRaft:
	default:
		return errors.Newf("unknown backend %q (want %q or %q)", c.Backend, BackendMemory, BackendRaft)
	}
	if c.ApplyTimeout <= 0 {
		return errors.New("apply_timeout must be positive")
	}
	return nil
}

// ListenAddr is the host:port the server binds.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Config) applyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
	if c.NodeID == "" {
		c.NodeID = "node-1"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.ApplyTimeout == 0 {
		c.ApplyTimeout = 5 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

// applyEnvOverrides allows environment variables to override YAML config values
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("KV_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("KV_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "invalid KV_PORT value")
		}
		cfg.Port = port
	}
	if v := os.Getenv("KV_SERVICE_NAME"); v != "" {
		cfg.ServiceName = v
	}
	if v := os.Getenv("KV_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("KV_NODE_ID"); v != "" {
		cfg.NodeID = v
	}
	if v := os.Getenv("KV_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("KV_APPLY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrap(err, "invalid KV_APPLY_TIMEOUT value")
		}
		cfg.ApplyTimeout = d
	}
	return nil
}
