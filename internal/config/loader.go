package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir    string
	configFile string
}

// NewLoader creates a new configuration loader for the given project directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// NewFileLoader creates a loader that reads an explicit config file instead of
// searching the project's .depseed directory.
func NewFileLoader(configFile string) Loader {
	return &loader{
		configFile: configFile,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (DEPSEED_*)
// 2. Config file (.depseed/config.yml or .depseed/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(l.rootDir, ".depseed"))
	}

	// DEPSEED_REGISTRY_URL -> registry.url
	v.SetEnvPrefix("DEPSEED")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("scan.extension")
	v.BindEnv("scan.include_hidden")

	v.BindEnv("imports.strict_aliases")
	v.BindEnv("imports.top_level_only")

	v.BindEnv("registry.url")
	v.BindEnv("registry.timeout")
	v.BindEnv("registry.cache_size")
	v.BindEnv("registry.cache_path")
	v.BindEnv("registry.cache_ttl")

	v.BindEnv("provision.tool")
	v.BindEnv("provision.failure_policy")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine when searching; an explicit --config must exist.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || l.configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("scan.extension", defaults.Scan.Extension)
	v.SetDefault("scan.include_hidden", defaults.Scan.IncludeHidden)
	v.SetDefault("scan.ignore", defaults.Scan.Ignore)

	v.SetDefault("imports.strict_aliases", defaults.Imports.StrictAliases)
	v.SetDefault("imports.top_level_only", defaults.Imports.TopLevelOnly)

	v.SetDefault("registry.url", defaults.Registry.URL)
	v.SetDefault("registry.timeout", defaults.Registry.Timeout)
	v.SetDefault("registry.cache_size", defaults.Registry.CacheSize)
	v.SetDefault("registry.cache_path", defaults.Registry.CachePath)
	v.SetDefault("registry.cache_ttl", defaults.Registry.CacheTTL)

	v.SetDefault("provision.tool", defaults.Provision.Tool)
	v.SetDefault("provision.args", defaults.Provision.Args)
	v.SetDefault("provision.failure_policy", defaults.Provision.FailurePolicy)
}

// LoadConfigFromDir loads configuration from a specific project directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
