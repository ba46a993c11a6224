package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"

	"github.com/GriffinCanCode/beacon/internal/event"
	"github.com/GriffinCanCode/beacon/internal/routing"
)

// envPrefix is the prefix for all environment variables, e.g.
// BEACON_TRANSPORT_SAMPLE_RATE or BEACON_ROUTING_ERROR_ENDPOINT.
const envPrefix = "beacon"

// Config holds the full agent configuration.
type Config struct {
	Agent     AgentConfig     `yaml:"agent"`
	Transport TransportConfig `yaml:"transport"`
	Routing   RoutingConfig   `yaml:"routing"`
	Ignore    IgnoreConfig    `yaml:"ignore"`
	Logging   LogConfig       `yaml:"logging"`
	Server    ServerConfig    `yaml:"server"`
}

// AgentConfig identifies the reporting application.
type AgentConfig struct {
	ProjectID   string `yaml:"project_id" split_words:"true"`
	Environment string `yaml:"environment"`
	Service     string `yaml:"service"`
	Release     string `yaml:"release"`
	SourceURL   string `yaml:"source_url" split_words:"true"`
	UserAgent   string `yaml:"user_agent" split_words:"true"`
}

// TransportConfig tunes the buffer and flush behavior.
type TransportConfig struct {
	SampleRate    float64       `yaml:"sample_rate" split_words:"true"`
	MaxBufferSize int           `yaml:"max_buffer_size" split_words:"true"`
	FlushInterval time.Duration `yaml:"flush_interval" split_words:"true"`
	Debug         bool          `yaml:"debug"`
}

// DestinationConfig is one category-specific endpoint/credential pair.
type DestinationConfig struct {
	Endpoint   string `yaml:"endpoint" json:"endpoint"`
	Credential string `yaml:"credential" json:"credential"`
}

// RoutingConfig holds per-category destinations plus the legacy
// single-endpoint pair used when no category entry exists. The json tags
// cover the remote bootstrap document, which uses the same shape.
type RoutingConfig struct {
	Endpoint   string `yaml:"endpoint" json:"endpoint"`
	Credential string `yaml:"credential" json:"credential"`
	RemoteURL  string `yaml:"remote_url" json:"-" split_words:"true"`

	Error       DestinationConfig `yaml:"error" json:"error"`
	Network     DestinationConfig `yaml:"network" json:"network"`
	Performance DestinationConfig `yaml:"performance" json:"performance"`
	Console     DestinationConfig `yaml:"console" json:"console"`
	Custom      DestinationConfig `yaml:"custom" json:"custom"`
}

// IgnoreConfig suppresses observations matching the listed patterns.
type IgnoreConfig struct {
	Errors []string `yaml:"errors"`
	URLs   []string `yaml:"urls"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// ServerConfig holds the debug server configuration.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			Environment: "production",
			UserAgent:   "beacon-agent/1.0",
		},
		Transport: TransportConfig{
			SampleRate:    1.0,
			MaxBufferSize: 50,
			FlushInterval: 10 * time.Second,
		},
		Logging: LogConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Enabled: true,
			Addr:    "127.0.0.1:9464",
		},
	}
}

// Load builds the configuration from defaults overlaid with environment
// variables.
func Load() (*Config, error) {
	cfg := Default()
	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile builds the configuration from defaults, then the YAML file, then
// environment variables. Later sources win.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants the transport trusts at runtime.
func (c *Config) Validate() error {
	if c.Transport.SampleRate < 0 || c.Transport.SampleRate > 1 {
		return fmt.Errorf("sample rate must be in [0,1], got %v", c.Transport.SampleRate)
	}
	if c.Transport.MaxBufferSize <= 0 {
		return fmt.Errorf("max buffer size must be positive, got %d", c.Transport.MaxBufferSize)
	}
	if c.Transport.FlushInterval <= 0 {
		return fmt.Errorf("flush interval must be positive, got %v", c.Transport.FlushInterval)
	}
	return nil
}

// Table builds the immutable routing table from the routing configuration.
func (r *RoutingConfig) Table() *routing.Table {
	categories := map[event.Category]routing.Destination{}
	for cat, dest := range map[event.Category]DestinationConfig{
		event.CategoryError:       r.Error,
		event.CategoryNetwork:     r.Network,
		event.CategoryPerformance: r.Performance,
		event.CategoryConsole:     r.Console,
		event.CategoryCustom:      r.Custom,
	} {
		if dest.Endpoint != "" {
			categories[cat] = routing.Destination{Endpoint: dest.Endpoint, Credential: dest.Credential}
		}
	}
	return routing.NewTable(categories, routing.Destination{
		Endpoint:   r.Endpoint,
		Credential: r.Credential,
	})
}

// Merge fills empty routing fields from a remotely fetched configuration.
// Locally configured values always win.
func (r *RoutingConfig) Merge(remote RoutingConfig) {
	if r.Endpoint == "" {
		r.Endpoint = remote.Endpoint
	}
	if r.Credential == "" {
		r.Credential = remote.Credential
	}
	mergeDest(&r.Error, remote.Error)
	mergeDest(&r.Network, remote.Network)
	mergeDest(&r.Performance, remote.Performance)
	mergeDest(&r.Console, remote.Console)
	mergeDest(&r.Custom, remote.Custom)
}

func mergeDest(local *DestinationConfig, remote DestinationConfig) {
	if local.Endpoint == "" {
		local.Endpoint = remote.Endpoint
	}
	if local.Credential == "" {
		local.Credential = remote.Credential
	}
}
