// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"archivist/internal/catalog"
	"archivist/internal/formatters"
	"archivist/internal/logging"
	"archivist/internal/policy"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ARCHIVIST_"

// Config represents the application configuration
type Config struct {
	// Default settings
	Defaults struct {
		Format   string        `yaml:"format"`
		Template string        `yaml:"template"`
		Verbose  bool          `yaml:"verbose"`
		Debug    bool          `yaml:"debug"`
		NoColor  bool          `yaml:"no_color"`
		Quiet    bool          `yaml:"quiet"`
		Workers  int           `yaml:"workers"`
		MaxDepth int           `yaml:"max_depth"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"defaults"`

	// Rule table settings
	Rules struct {
		PolicyFile     string `yaml:"policy_file"`
		CodeCutoffYear int    `yaml:"code_cutoff_year"`
	} `yaml:"rules"`

	// Export header templates, added to or replacing the built-in ones
	Export struct {
		Templates formatters.Templates `yaml:"templates"`
	} `yaml:"export"`

	Logging logging.Config `yaml:"logging"`
	Catalog catalog.Config `yaml:"catalog"`

	Metrics struct {
		File string `yaml:"file"`
	} `yaml:"metrics"`

	Watch struct {
		Debounce time.Duration `yaml:"debounce"`
	} `yaml:"watch"`

	// Profiles for different processing scenarios
	Profiles map[string]Profile `yaml:"profiles"`
}

// Profile represents a named set of overrides for the defaults section
type Profile struct {
	Description string `yaml:"description"`
	Format      string `yaml:"format"`
	Template    string `yaml:"template"`
	Verbose     bool   `yaml:"verbose"`
	Debug       bool   `yaml:"debug"`
	NoColor     bool   `yaml:"no_color"`
	Workers     int    `yaml:"workers"`
	MaxDepth    int    `yaml:"max_depth"`
}

// Default returns the built-in configuration.
func Default() *Config {
	config := &Config{
		Profiles: make(map[string]Profile),
	}

	config.Defaults.Format = "text"
	config.Defaults.Template = formatters.DefaultTemplate
	config.Defaults.MaxDepth = 2
	config.Defaults.Timeout = 2 * time.Minute
	config.Logging.SetDefaults()
	config.Catalog.Driver = catalog.DriverSQLite
	config.Watch.Debounce = 500 * time.Millisecond

	config.Profiles["catalog"] = Profile{
		Description: "Catalog spreadsheet with the short header template",
		Format:      "xlsx",
		Template:    "catalog",
	}
	config.Profiles["review"] = Profile{
		Description: "Terminal review listing every rule decision",
		Format:      "text",
		Verbose:     true,
	}

	return config
}

// LoadConfig loads configuration from the specified file path. Environment
// overrides, including those from .env files, are applied last.
func LoadConfig(configPath string) (*Config, error) {
	config := Default()

	if configPath != "" {
		cleanPath := filepath.Clean(configPath)
		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
		config.Logging.SetDefaults()
		if config.Catalog.Driver == "" {
			config.Catalog.Driver = catalog.DriverSQLite
		}
	}

	if err := loadEnvFiles(); err != nil {
		return nil, err
	}
	if err := applyEnv(config); err != nil {
		return nil, err
	}

	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadEnvFiles loads ENV_FILE when set, otherwise .env.local then .env.
// Variables already in the environment are never overwritten.
func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	if err := godotenv.Load(".env.local"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env.local: %w", err)
	}
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

type envBinding struct {
	name  string
	apply func(c *Config, value string) error
}

var envBindings = []envBinding{
	{"FORMAT", func(c *Config, v string) error { c.Defaults.Format = v; return nil }},
	{"TEMPLATE", func(c *Config, v string) error { c.Defaults.Template = v; return nil }},
	{"WORKERS", func(c *Config, v string) error { return setInt(&c.Defaults.Workers, v) }},
	{"MAX_DEPTH", func(c *Config, v string) error { return setInt(&c.Defaults.MaxDepth, v) }},
	{"TIMEOUT", func(c *Config, v string) error { return setDuration(&c.Defaults.Timeout, v) }},
	{"NO_COLOR", func(c *Config, v string) error { return setBool(&c.Defaults.NoColor, v) }},
	{"LOG_LEVEL", func(c *Config, v string) error { c.Logging.Level = v; return nil }},
	{"POLICY_FILE", func(c *Config, v string) error { c.Rules.PolicyFile = v; return nil }},
	{"CODE_CUTOFF_YEAR", func(c *Config, v string) error { return setInt(&c.Rules.CodeCutoffYear, v) }},
	{"CATALOG_DRIVER", func(c *Config, v string) error { c.Catalog.Driver = v; return nil }},
	{"CATALOG_DSN", func(c *Config, v string) error { c.Catalog.DSN = v; return nil }},
	{"METRICS_FILE", func(c *Config, v string) error { c.Metrics.File = v; return nil }},
	{"WATCH_DEBOUNCE", func(c *Config, v string) error { return setDuration(&c.Watch.Debounce, v) }},
}

// EnvNames returns the environment variables LoadConfig honours.
func EnvNames() []string {
	names := make([]string, len(envBindings))
	for i, b := range envBindings {
		names[i] = EnvPrefix + b.name
	}
	return names
}

func applyEnv(c *Config) error {
	for _, b := range envBindings {
		value, ok := os.LookupEnv(EnvPrefix + b.name)
		if !ok || value == "" {
			continue
		}
		if err := b.apply(c, value); err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, b.name, err)
		}
	}
	return nil
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, v string) error {
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

// FindConfigFile looks for a configuration file in the working directory,
// then the home directory, then the XDG config directory.
func FindConfigFile() string {
	for _, name := range []string{"archivist.yaml", "archivist.yml", ".archivist.yaml", ".archivist.yml"} {
		if fileExists(name) {
			return name
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	for _, name := range []string{".archivist.yaml", ".archivist.yml"} {
		if p := filepath.Join(home, name); fileExists(p) {
			return p
		}
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	for _, name := range []string{"config.yaml", "config.yml"} {
		if p := filepath.Join(xdgConfig, "archivist", name); fileExists(p) {
			return p
		}
	}
	return ""
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// ListProfiles returns the available profile names, sorted
func (c *Config) ListProfiles() []string {
	profiles := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		profiles = append(profiles, name)
	}
	sort.Strings(profiles)
	return profiles
}

// GetProfile returns a profile by name, or nil if not found
func (c *Config) GetProfile(name string) *Profile {
	if profile, exists := c.Profiles[name]; exists {
		return &profile
	}
	return nil
}

// ApplyProfile copies the profile's set fields over the defaults section.
func (c *Config) ApplyProfile(name string) error {
	p := c.GetProfile(name)
	if p == nil {
		return fmt.Errorf("profile %q not found. Available profiles: %s", name, strings.Join(c.ListProfiles(), ", "))
	}
	if p.Format != "" {
		c.Defaults.Format = p.Format
	}
	if p.Template != "" {
		c.Defaults.Template = p.Template
	}
	if p.Workers > 0 {
		c.Defaults.Workers = p.Workers
	}
	if p.MaxDepth > 0 {
		c.Defaults.MaxDepth = p.MaxDepth
	}
	c.Defaults.Verbose = c.Defaults.Verbose || p.Verbose
	c.Defaults.Debug = c.Defaults.Debug || p.Debug
	c.Defaults.NoColor = c.Defaults.NoColor || p.NoColor
	return nil
}

// Templates returns the built-in header templates merged with the configured ones.
func (c *Config) Templates() formatters.Templates {
	return formatters.DefaultTemplates().Merge(c.Export.Templates)
}

// PolicyTables compiles the rule tables: the built-in definition, overlaid
// by the policy file when one is set, then the cutoff year override.
func (c *Config) PolicyTables() (*policy.Tables, error) {
	def := policy.DefaultDefinition()
	if c.Rules.PolicyFile != "" {
		data, err := os.ReadFile(filepath.Clean(c.Rules.PolicyFile))
		if err != nil {
			return nil, fmt.Errorf("error reading policy file: %w", err)
		}
		if def, err = policy.Parse(data); err != nil {
			return nil, fmt.Errorf("error parsing policy file %s: %w", c.Rules.PolicyFile, err)
		}
	}
	if c.Rules.CodeCutoffYear != 0 {
		def.CodeCutoffYear = c.Rules.CodeCutoffYear
	}
	return policy.Compile(def)
}

// ValidateConfig checks values that would otherwise fail late.
func ValidateConfig(config *Config) error {
	if config.Defaults.Workers < 0 {
		return fmt.Errorf("defaults.workers must not be negative, got %d", config.Defaults.Workers)
	}
	if config.Defaults.MaxDepth < 0 {
		return fmt.Errorf("defaults.max_depth must not be negative, got %d", config.Defaults.MaxDepth)
	}
	if config.Defaults.Timeout < 0 {
		return fmt.Errorf("defaults.timeout must not be negative, got %s", config.Defaults.Timeout)
	}
	if config.Rules.CodeCutoffYear < 0 {
		return fmt.Errorf("rules.code_cutoff_year must not be negative, got %d", config.Rules.CodeCutoffYear)
	}
	if !logging.ValidLevel(config.Logging.Level) {
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", config.Logging.Level)
	}
	switch config.Catalog.Driver {
	case "", catalog.DriverSQLite, catalog.DriverPostgres:
	default:
		return fmt.Errorf("catalog.driver %q is not supported", config.Catalog.Driver)
	}
	for name, fields := range config.Export.Templates {
		if len(fields) == 0 {
			return fmt.Errorf("export template %q has no fields", name)
		}
	}
	if _, err := config.Templates().Headers(config.Defaults.Template); err != nil {
		return fmt.Errorf("defaults.template: %w", err)
	}
	return nil
}

// LoadConfigOrDefault loads configuration from configFile (or searches standard locations
// when configFile is empty). If loading fails, it returns a default configuration.
func LoadConfigOrDefault(configFile string) *Config {
	configPath := configFile
	if configPath == "" {
		configPath = FindConfigFile()
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return Default()
	}
	return cfg
}
