package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Failure policies for the provisioning step.
const (
	FailurePolicyFatal  = "fatal"
	FailurePolicyReport = "report"
)

// Config represents the complete depseed configuration.
// It can be loaded from .depseed/config.yml with environment variable overrides.
type Config struct {
	Scan      ScanConfig      `yaml:"scan" mapstructure:"scan"`
	Imports   ImportsConfig   `yaml:"imports" mapstructure:"imports"`
	Registry  RegistryConfig  `yaml:"registry" mapstructure:"registry"`
	Provision ProvisionConfig `yaml:"provision" mapstructure:"provision"`
}

// ScanConfig controls which files are enumerated.
type ScanConfig struct {
	Extension     string   `yaml:"extension" mapstructure:"extension"`           // source file suffix, e.g. ".py"
	IncludeHidden bool     `yaml:"include_hidden" mapstructure:"include_hidden"` // descend into dot-directories
	Ignore        []string `yaml:"ignore" mapstructure:"ignore"`                 // glob patterns relative to the project root
}

// ImportsConfig controls how import statements become module references.
type ImportsConfig struct {
	StrictAliases bool `yaml:"strict_aliases" mapstructure:"strict_aliases"` // skip a statement if any name is aliased
	TopLevelOnly  bool `yaml:"top_level_only" mapstructure:"top_level_only"` // "a.b.c" -> "a"
}

// RegistryConfig configures the package registry lookups.
type RegistryConfig struct {
	URL       string        `yaml:"url" mapstructure:"url"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	CacheSize int           `yaml:"cache_size" mapstructure:"cache_size"` // in-process lookup cache entries
	CachePath string        `yaml:"cache_path" mapstructure:"cache_path"` // persistent cache; empty disables
	CacheTTL  time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// ProvisionConfig configures the external dependency-management tool.
type ProvisionConfig struct {
	Tool          string   `yaml:"tool" mapstructure:"tool"`
	Args          []string `yaml:"args" mapstructure:"args"`
	FailurePolicy string   `yaml:"failure_policy" mapstructure:"failure_policy"` // "fatal" or "report"
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			Extension:     ".py",
			IncludeHidden: false,
			Ignore: []string{
				"__pycache__/**",
				"**/__pycache__/**",
			},
		},
		Imports: ImportsConfig{
			StrictAliases: false,
			TopLevelOnly:  false,
		},
		Registry: RegistryConfig{
			URL:       "https://pypi.org",
			Timeout:   10 * time.Second,
			CacheSize: 10_000,
			CachePath: "~/.depseed/registry.db",
			CacheTTL:  24 * time.Hour,
		},
		Provision: ProvisionConfig{
			Tool:          "poetry",
			Args:          []string{"add"},
			FailurePolicy: FailurePolicyFatal,
		},
	}
}

// ResolvedCachePath returns the registry cache path with a leading "~" expanded.
// Returns empty string when the persistent cache is disabled.
func (c *Config) ResolvedCachePath() (string, error) {
	return ExpandHome(c.Registry.CachePath)
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
