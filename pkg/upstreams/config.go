package upstreams

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig is the configuration shape for one static upstream entry.
// Unrecognized fields are ignored; missing optional fields default to empty.
type ServerConfig struct {
	URL         string            `yaml:"url"`
	Command     string            `yaml:"command"`
	Args        []string          `yaml:"args"`
	Env         map[string]string `yaml:"env"`
	Transport   TransportKind     `yaml:"transport"`
	SpecVersion SpecVersion       `yaml:"spec_version"`
	AuthType    AuthKind          `yaml:"auth_type"`
	Credential  string            `yaml:"credential"`
	Description string            `yaml:"description"`
	Cost        *CostInfo         `yaml:"cost_info"`
}

type configFile struct {
	Servers map[string]ServerConfig `yaml:"mcp_servers"`
}

// LoadConfigFile reads a YAML document with an mcp_servers mapping from alias
// to ServerConfig.
func LoadConfigFile(path string) (map[string]ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("upstreams: read config: %w", err)
	}
	var file configFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("upstreams: parse config: %w", err)
	}
	return file.Servers, nil
}

func (c ServerConfig) withDefaults() ServerConfig {
	if c.Transport == "" {
		c.Transport = TransportHTTP
	}
	if c.SpecVersion == "" {
		c.SpecVersion = SpecVersionMar2025
	}
	return c
}

func (c ServerConfig) validate(alias string) error {
	if err := ValidateAlias(alias); err != nil {
		return err
	}
	if c.Transport == TransportStdio && c.Command == "" {
		return fmt.Errorf("%w: alias %q uses stdio transport without a command", ErrInvalidConfig, alias)
	}
	return nil
}

// record builds an upstream Record for the entry, deriving its stable id from
// the defining parameters.
func (c ServerConfig) record(alias string) *Record {
	return &Record{
		ID:          StableID(alias, c.URL, c.Transport, c.SpecVersion, c.AuthType),
		Alias:       alias,
		Transport:   c.Transport,
		Endpoint:    c.URL,
		Command:     c.Command,
		Args:        c.Args,
		Env:         c.Env,
		Auth:        c.AuthType,
		Credential:  c.Credential,
		SpecVersion: c.SpecVersion,
		Description: c.Description,
		Cost:        c.Cost,
	}
}
