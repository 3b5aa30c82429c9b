// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Portal() PortalConfig
	Output() OutputConfig

	// Browser Setters
	SetBrowserHeadless(bool)
	SetBrowserSlowMotion(d time.Duration)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	BrowserCfg BrowserConfig `mapstructure:"browser" yaml:"browser"`
	PortalCfg  PortalConfig  `mapstructure:"portal" yaml:"portal"`
	OutputCfg  OutputConfig  `mapstructure:"output" yaml:"output"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig   { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig { return c.BrowserCfg }
func (c *Config) Portal() PortalConfig   { return c.PortalCfg }
func (c *Config) Output() OutputConfig   { return c.OutputCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetBrowserHeadless(b bool)            { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserSlowMotion(d time.Duration) { c.BrowserCfg.SlowMotion = d }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the automated browser instance.
type BrowserConfig struct {
	Headless        bool     `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool     `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	ExecPath        string   `mapstructure:"exec_path" yaml:"exec_path"`
	Args            []string `mapstructure:"args" yaml:"args"`

	// SlowMotion is the minimum spacing between two UI actions. Zero disables pacing.
	SlowMotion        time.Duration `mapstructure:"slow_motion" yaml:"slow_motion"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	LaunchTimeout     time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
}

// PortalConfig describes the remote identity portal.
type PortalConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// QuotaMarkers are case-insensitive substrings of a rejection dialog that
	// mean the portal refuses any further creations.
	QuotaMarkers []string `mapstructure:"quota_markers" yaml:"quota_markers"`
}

// OutputConfig controls where result files are written.
type OutputConfig struct {
	DefaultListFile string `mapstructure:"default_list_file" yaml:"default_list_file"`
	ImportSuffix    string `mapstructure:"import_suffix" yaml:"import_suffix"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "workd-cli")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.slow_motion", "0s")
	v.SetDefault("browser.action_timeout", "30s")
	v.SetDefault("browser.navigation_timeout", "90s")
	v.SetDefault("browser.launch_timeout", "30s")

	// -- Portal --
	v.SetDefault("portal.base_url", "https://workd.go.th")
	v.SetDefault("portal.quota_markers", []string{"quota", "โควตา"})

	// -- Output --
	v.SetDefault("output.default_list_file", "workdUsers.csv")
	v.SetDefault("output.import_suffix", "_imported.csv")
}

// EnvPrefix is the prefix for environment overrides, e.g. WORKD_BROWSER_HEADLESS.
const EnvPrefix = "WORKD"

// BindEnv makes every key known to v overridable from the environment.
// Keys are mapped by upper-casing and replacing "." with "_".
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.LoggerCfg.LogFile != "" {
		expanded, err := homedir.Expand(cfg.LoggerCfg.LogFile)
		if err != nil {
			return nil, fmt.Errorf("failed to expand logger.log_file: %w", err)
		}
		cfg.LoggerCfg.LogFile = expanded
	}
	if cfg.BrowserCfg.ExecPath != "" {
		expanded, err := homedir.Expand(cfg.BrowserCfg.ExecPath)
		if err != nil {
			return nil, fmt.Errorf("failed to expand browser.exec_path: %w", err)
		}
		cfg.BrowserCfg.ExecPath = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.BrowserCfg.ActionTimeout <= 0 {
		return fmt.Errorf("browser.action_timeout must be a positive duration")
	}
	if c.BrowserCfg.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be a positive duration")
	}
	if c.BrowserCfg.LaunchTimeout <= 0 {
		return fmt.Errorf("browser.launch_timeout must be a positive duration")
	}
	if c.BrowserCfg.SlowMotion < 0 {
		return fmt.Errorf("browser.slow_motion must not be negative")
	}
	if !strings.HasPrefix(c.PortalCfg.BaseURL, "http://") && !strings.HasPrefix(c.PortalCfg.BaseURL, "https://") {
		return fmt.Errorf("portal.base_url must be an http(s) URL, got %q", c.PortalCfg.BaseURL)
	}
	if !strings.HasSuffix(strings.ToLower(c.OutputCfg.ImportSuffix), ".csv") {
		return fmt.Errorf("output.import_suffix must end in .csv")
	}
	return nil
}
