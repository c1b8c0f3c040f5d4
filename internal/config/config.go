// Package config provides the configuration schema and loader for the
// Mnemosyne memory server.
//
// Configuration is layered: compiled-in defaults, then an optional YAML
// file, then environment variables. The environment names (MNEMOSYNE_* and
// NEO4J_*) are part of the deployment contract and always win. The result
// is immutable after startup; there is no hot reload.
package config

import (
	"fmt"
	"net"
	"strconv"
)

// LogLevel controls log verbosity for the Mnemosyne server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for Mnemosyne.
// It is typically loaded with [Load], which layers file and environment on
// top of [Default].
type Config struct {
	Server ServerConfig `yaml:"server"`
	Neo4j  Neo4jConfig  `yaml:"neo4j"`

	// MultiTenant scopes every memory item and session to a tenant space
	// derived from the caller's identity headers. Off by default; existing
	// single-tenant data keeps working either way because unscoped items
	// simply carry no space edge.
	MultiTenant bool `yaml:"multi_tenant"`

	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	// Bind is the listen interface (e.g. "0.0.0.0" or "127.0.0.1").
	Bind string `yaml:"bind"`

	// Port is the TCP listen port.
	Port int `yaml:"port"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Bind, strconv.Itoa(s.Port))
}

// Neo4jConfig holds the graph database connection settings.
type Neo4jConfig struct {
	// URI is the bolt or neo4j scheme address of the database
	// (e.g. "bolt://localhost:7687").
	URI string `yaml:"uri"`

	// User and Password authenticate via basic auth.
	User     string `yaml:"user"`
	Password string `yaml:"password"`

	// Database selects the database within the DBMS.
	Database string `yaml:"database"`
}

// String renders the connection target with the password redacted so the
// struct can be logged safely.
func (n Neo4jConfig) String() string {
	pass := "(none)"
	if n.Password != "" {
		pass = "********"
	}
	return fmt.Sprintf("neo4j{uri: %s, user: %s, password: %s, database: %s}",
		n.URI, n.User, pass, n.Database)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level controls verbosity. Empty behaves as "info".
	Level LogLevel `yaml:"level"`
}

// Default returns the configuration the server runs with when no file and no
// environment overrides are present. The values match the published
// container defaults of the service.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Bind: "0.0.0.0",
			Port: 8010,
		},
		Neo4j: Neo4jConfig{
			URI:      "bolt://localhost:7687",
			User:     "neo4j",
			Password: "mnemosyne",
			Database: "neo4j",
		},
		MultiTenant: false,
		Logging: LoggingConfig{
			Level: LogInfo,
		},
	}
}
