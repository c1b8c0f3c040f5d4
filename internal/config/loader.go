package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variable names honoured by [FromEnv].
const (
	EnvBind        = "MNEMOSYNE_BIND"
	EnvPort        = "MNEMOSYNE_PORT"
	EnvMultiTenant = "MNEMOSYNE_MULTI_TENANT"
	EnvLogLevel    = "MNEMOSYNE_LOG_LEVEL"
	EnvNeo4jURI    = "NEO4J_URI"
	EnvNeo4jUser   = "NEO4J_USER"
	EnvNeo4jPass   = "NEO4J_PASSWORD"
	EnvNeo4jDB     = "NEO4J_DATABASE"
)

// Load builds the configuration from [Default], the optional YAML file at
// path, and the environment, in that order, and validates the result. An
// empty path skips the file so containerised deployments can run on
// environment variables alone.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("config: open %q: %w", path, err)
		}
		defer f.Close()

		if err := decode(f, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	if err := FromEnv(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of the defaults and
// validates the result. Environment overrides are not applied. Useful in
// tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decode(r, cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode parses YAML from r into cfg, rejecting unknown keys. An empty
// document leaves cfg untouched.
func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// FromEnv applies environment overrides to cfg. A variable that is unset
// leaves the corresponding field untouched; a variable that is set wins over
// both defaults and file values, even when empty.
func FromEnv(cfg *Config) error {
	if v, ok := os.LookupEnv(EnvBind); ok {
		cfg.Server.Bind = v
	}
	if v, ok := os.LookupEnv(EnvPort); ok {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s %q is not a number: %w", EnvPort, v, err)
		}
		cfg.Server.Port = port
	}
	if v, ok := os.LookupEnv(EnvMultiTenant); ok {
		cfg.MultiTenant = Truthy(v)
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		cfg.Logging.Level = LogLevel(strings.ToLower(strings.TrimSpace(v)))
	}
	if v, ok := os.LookupEnv(EnvNeo4jURI); ok {
		cfg.Neo4j.URI = v
	}
	if v, ok := os.LookupEnv(EnvNeo4jUser); ok {
		cfg.Neo4j.User = v
	}
	if v, ok := os.LookupEnv(EnvNeo4jPass); ok {
		cfg.Neo4j.Password = v
	}
	if v, ok := os.LookupEnv(EnvNeo4jDB); ok {
		cfg.Neo4j.Database = v
	}
	return nil
}

// Truthy reports whether a feature-flag value counts as enabled. Exactly
// "1", "true", "True" and "yes" (after trimming) are truthy; every other
// value, including "TRUE" and "on", is false.
func Truthy(v string) bool {
	switch strings.TrimSpace(v) {
	case "1", "true", "True", "yes":
		return true
	}
	return false
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.Bind == "" {
		errs = append(errs, errors.New("server.bind is required"))
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range [1, 65535]", cfg.Server.Port))
	}
	if cfg.Neo4j.URI == "" {
		errs = append(errs, errors.New("neo4j.uri is required"))
	}
	if cfg.Logging.Level != "" && !cfg.Logging.Level.IsValid() {
		errs = append(errs, fmt.Errorf("logging.level %q is invalid; valid values: debug, info, warn, error", cfg.Logging.Level))
	}

	if cfg.Neo4j.Password == "" {
		slog.Warn("neo4j.password is empty; the connection will be attempted without credentials")
	}

	return errors.Join(errs...)
}
