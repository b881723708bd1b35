package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Load loads the configuration from file, then applies environment
// overrides. A missing config file is not an error: the defaults plus
// environment variables are enough for a fully working gateway.
func (l *Loader) Load() (*Config, error) {
	// Determine config path
	configPath := l.configPath
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".farebridge", "farebridge.json")
	}

	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		v := viper.New()
		v.SetConfigFile(configPath)
		v.SetConfigType("json")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	// Set data directory if not specified
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".farebridge")
	}

	// The log file lives under the data directory unless the config points
	// elsewhere
	if cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(cfg.DataDir, "farebridge.log")
	}

	return cfg, nil
}

// applyEnvOverrides layers environment variables over the file values. The
// AMADEUS_* names match what the upstream API documentation uses, so the
// same environment works for other Amadeus tooling.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AMADEUS_CLIENT_ID"); v != "" {
		cfg.Amadeus.ClientID = v
	}
	if v := os.Getenv("AMADEUS_CLIENT_SECRET"); v != "" {
		cfg.Amadeus.ClientSecret = v
	}
	if v := os.Getenv("AMADEUS_HOST"); v != "" {
		cfg.Amadeus.Host = v
	}
	if v := os.Getenv("FAREBRIDGE_MCP_COMMAND"); v != "" {
		cfg.MCP.Command = strings.Fields(v)
	}
	if v := os.Getenv("DEFAULT_CURRENCY"); v != "" {
		cfg.Defaults.Currency = v
	}
	if v := os.Getenv("DEFAULT_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Defaults.MaxResults = n
		}
	}
}

// Save saves the configuration to file
func (l *Loader) Save(cfg *Config) error {
	// Determine config path
	configPath := l.configPath
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".farebridge", "farebridge.json")
	}

	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Setup viper
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.Set("amadeus", cfg.Amadeus)
	v.Set("mcp", cfg.MCP)
	v.Set("defaults", cfg.Defaults)
	v.Set("logging", cfg.Logging)
	v.Set("data_dir", cfg.DataDir)

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
