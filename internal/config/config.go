package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/anstrom/rtspscout/internal/errors"
	"github.com/anstrom/rtspscout/internal/logging"
)

const (
	configDirPerm  = 0750
	configFilePerm = 0600
)

// Port scanner backends.
const (
	PortScannerConnect = "connect"
	PortScannerNmap    = "nmap"
)

// Config represents the complete rtspscout configuration
type Config struct {
	// Discovery pipeline settings
	Discovery DiscoveryConfig `yaml:"discovery" json:"discovery"`

	// Packet capture and probing settings shared by the scanners
	Capture CaptureConfig `yaml:"capture" json:"capture"`

	// RTSP probing settings
	RTSP RTSPConfig `yaml:"rtsp" json:"rtsp"`

	// Logging configuration
	Logging logging.Config `yaml:"logging" json:"logging"`

	// Watch mode HTTP API
	API APIConfig `yaml:"api" json:"api"`

	// Watch mode schedule
	Watch WatchConfig `yaml:"watch" json:"watch"`
}

// DiscoveryConfig holds pipeline-level settings
type DiscoveryConfig struct {
	// Interfaces to scan; empty means every eligible interface
	Interfaces []string `yaml:"interfaces" json:"interfaces"`

	// Maximum number of concurrent jobs within a pipeline stage
	Concurrency int `yaml:"concurrency" json:"concurrency" validate:"min=1,max=4096"`

	// Port scanner backend (connect, nmap)
	PortScanner string `yaml:"port_scanner" json:"port_scanner" validate:"oneof=connect nmap"`
}

// CaptureConfig holds settings for the shared capture context
type CaptureConfig struct {
	// Global probe packet budget
	PacketsPerSecond int `yaml:"packets_per_second" json:"packets_per_second" validate:"min=1"`

	// Concurrent probes per scanner
	Parallelism int `yaml:"parallelism" json:"parallelism" validate:"min=1,max=1024"`

	// Per-probe timeout (ARP reply wait, ping, TCP connect)
	Timeout time.Duration `yaml:"timeout" json:"timeout" validate:"min=1ms"`

	// Upper bound on hosts probed per interface
	MaxHosts int `yaml:"max_hosts" json:"max_hosts" validate:"min=1"`

	// Use raw ICMP sockets instead of unprivileged datagram sockets.
	// Defaults to true when running as root, where raw sockets always work
	// and datagram sockets depend on net.ipv4.ping_group_range.
	Privileged bool `yaml:"privileged" json:"privileged"`
}

// RTSPConfig holds RTSP probing settings
type RTSPConfig struct {
	// Known-path list; empty selects the built-in list
	PathsFile string `yaml:"paths_file" json:"paths_file"`
}

// APIConfig holds watch mode API server settings
type APIConfig struct {
	// Enable API server
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Listen address
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`

	// Listen port
	Port int `yaml:"port" json:"port" validate:"min=0,max=65535"`

	// Server timeouts
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// WatchConfig holds the periodic discovery schedule
type WatchConfig struct {
	// Cron expression or descriptor such as "@every 15m"
	Schedule string `yaml:"schedule" json:"schedule" validate:"required"`

	// Run once immediately on startup
	RunOnStart bool `yaml:"run_on_start" json:"run_on_start"`
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Discovery: DiscoveryConfig{
			Interfaces:  nil,
			Concurrency: 64,
			PortScanner: PortScannerConnect,
		},
		Capture: CaptureConfig{
			PacketsPerSecond: 500,
			Parallelism:      64,
			Timeout:          time.Second,
			MaxHosts:         1024,
			Privileged:       os.Geteuid() == 0,
		},
		RTSP: RTSPConfig{
			PathsFile: "",
		},
		Logging: logging.DefaultConfig(),
		API: APIConfig{
			Enabled:         true,
			ListenAddr:      "127.0.0.1",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Watch: WatchConfig{
			Schedule:   "@every 15m",
			RunOnStart: true,
		},
	}
}

// Load loads configuration from a file on top of the defaults. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	config := Default()

	if path == "" {
		return config, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapConfigError("failed to read config file", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.WrapConfigError("failed to parse config file", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), configDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, configFilePerm); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

var validate = validator.New()

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return errors.NewConfigFieldError(fe.Namespace(),
				fmt.Sprintf("failed %q validation", fe.Tag()), fe.Value())
		}
		return errors.WrapConfigError("validation failed", err)
	}

	if c.API.Enabled && c.API.ListenAddr == "" {
		return errors.NewConfigFieldError("api.listen_addr",
			"listen address is required when the API is enabled", c.API.ListenAddr)
	}

	if c.RTSP.PathsFile != "" {
		if info, err := os.Stat(c.RTSP.PathsFile); err == nil && info.IsDir() {
			return errors.NewConfigFieldError("rtsp.paths_file", "must be a file, not a directory", c.RTSP.PathsFile)
		}
	}

	return nil
}

// GetAPIAddress returns the full API address
func (c *Config) GetAPIAddress() string {
	return fmt.Sprintf("%s:%d", c.API.ListenAddr, c.API.Port)
}
