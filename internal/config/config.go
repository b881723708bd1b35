package config

import (
	"encoding/json"
	"fmt"
)

// Config represents the main farebridge configuration
type Config struct {
	// Amadeus direct API credentials and host
	Amadeus AmadeusConfig `json:"amadeus" mapstructure:"amadeus"`

	// MCP server subprocess
	MCP MCPConfig `json:"mcp" mapstructure:"mcp"`

	// Search defaults applied when the caller leaves fields unset
	Defaults DefaultsConfig `json:"defaults" mapstructure:"defaults"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory; anchors the default log file location
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// AmadeusConfig holds the direct transport credentials. ClientID and
// ClientSecret are normally supplied through AMADEUS_CLIENT_ID and
// AMADEUS_CLIENT_SECRET rather than the config file.
type AmadeusConfig struct {
	ClientID     string `json:"client_id" mapstructure:"client_id"`
	ClientSecret string `json:"client_secret" mapstructure:"client_secret"`
	Host         string `json:"host" mapstructure:"host"` // test or prod
}

// MCPConfig holds the protocol transport settings
type MCPConfig struct {
	// Command is the server command vector, e.g. ["python", "server.py"]
	Command []string `json:"command" mapstructure:"command"`

	// CallTimeoutSeconds bounds each in-flight call
	CallTimeoutSeconds int `json:"call_timeout_seconds" mapstructure:"call_timeout_seconds"`

	// HandshakeTimeoutSeconds bounds the initialize exchange
	HandshakeTimeoutSeconds int `json:"handshake_timeout_seconds" mapstructure:"handshake_timeout_seconds"`
}

// DefaultsConfig holds search defaults
type DefaultsConfig struct {
	Currency   string `json:"currency" mapstructure:"currency"`
	MaxResults int    `json:"max_results" mapstructure:"max_results"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// DefaultConfig returns the configuration defaults
func DefaultConfig() *Config {
	return &Config{
		Amadeus: AmadeusConfig{
			Host: "test",
		},
		MCP: MCPConfig{
			CallTimeoutSeconds:      10,
			HandshakeTimeoutSeconds: 15,
		},
		Defaults: DefaultsConfig{
			Currency:   "USD",
			MaxResults: 10,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Console:   true,
			Redaction: true,
		},
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.Amadeus.ClientID == "" {
		return fmt.Errorf("amadeus client id is required (set AMADEUS_CLIENT_ID)")
	}
	if c.Amadeus.ClientSecret == "" {
		return fmt.Errorf("amadeus client secret is required (set AMADEUS_CLIENT_SECRET)")
	}
	if err := ValidateHost(c.Amadeus.Host); err != nil {
		return err
	}
	if err := ValidateCurrency(c.Defaults.Currency); err != nil {
		return err
	}
	if c.Defaults.MaxResults < 1 || c.Defaults.MaxResults > 250 {
		return fmt.Errorf("defaults.max_results must be between 1 and 250, got %d", c.Defaults.MaxResults)
	}
	if c.MCP.CallTimeoutSeconds < 1 {
		return fmt.Errorf("mcp.call_timeout_seconds must be positive, got %d", c.MCP.CallTimeoutSeconds)
	}
	if c.MCP.HandshakeTimeoutSeconds < 1 {
		return fmt.Errorf("mcp.handshake_timeout_seconds must be positive, got %d", c.MCP.HandshakeTimeoutSeconds)
	}
	return nil
}

// String returns a JSON representation with the secret masked
func (c *Config) String() string {
	masked := *c
	if masked.Amadeus.ClientSecret != "" {
		masked.Amadeus.ClientSecret = "***"
	}
	data, err := json.MarshalIndent(masked, "", "  ")
	if err != nil {
		return fmt.Sprintf("config marshal error: %v", err)
	}
	return string(data)
}
