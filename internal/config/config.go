// Package config provides configuration management for the research graph
// converter and server.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "RGRAPH"

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// Graph sources.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// Config holds all configuration for the converter and server.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Graph selects where the served graph is loaded from.
	Graph GraphConfig `mapstructure:"graph"`
	// Query bounds query-layer work.
	Query QueryConfig `mapstructure:"query"`
	// RateLimit throttles the raw query endpoint.
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	// Convert contains batch conversion settings.
	Convert ConvertConfig `mapstructure:"convert"`
	// Database contains PostgreSQL connection settings for the optional mirror.
	Database DatabaseConfig `mapstructure:"database"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 5000).
	HTTPPort int `mapstructure:"http_port" validate:"min=1,max=65535"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port" validate:"min=1,max=65535"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// GraphConfig selects the served graph.
type GraphConfig struct {
	// Source is "file" or "postgres".
	Source string `mapstructure:"source" validate:"oneof=file postgres"`
	// Path is the serialized graph loaded when Source is "file".
	Path string `mapstructure:"path"`
	// RunID selects a stored run when Source is "postgres". Empty means the latest.
	RunID string `mapstructure:"run_id"`
}

// QueryConfig bounds query-layer work.
type QueryConfig struct {
	// Timeout bounds raw query execution.
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// PageSize is the listing page size (default: 20).
	PageSize int `mapstructure:"page_size" validate:"min=1,max=1000"`
	// SearchLimit caps keyword search results (default: 50).
	SearchLimit int `mapstructure:"search_limit" validate:"min=1"`
	// MaxRows caps raw query result rows. Zero means unlimited.
	MaxRows int `mapstructure:"max_rows" validate:"min=0"`
}

// RateLimitConfig configures the token bucket in front of raw queries.
type RateLimitConfig struct {
	// Enabled turns the limiter on.
	Enabled bool `mapstructure:"enabled"`
	// RequestsPerSecond is the sustained rate.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`
	// Burst is the bucket size.
	Burst int `mapstructure:"burst" validate:"gte=0"`
}

// ConvertConfig holds batch conversion settings.
type ConvertConfig struct {
	// Input is the spreadsheet path.
	Input string `mapstructure:"input"`
	// Output is the serialized graph path.
	Output string `mapstructure:"output" validate:"required"`
	// Format overrides the output format (turtle, ntriples, jsonld). Empty
	// selects by extension.
	Format string `mapstructure:"format" validate:"omitempty,oneof=turtle ntriples jsonld ttl nt json-ld json"`
	// ReportPath is where the summary report is written. Empty prints to stdout.
	ReportPath string `mapstructure:"report_path"`
	// StoreCopy is an optional second copy of the graph for the server.
	StoreCopy string `mapstructure:"store_copy"`
	// Workers bounds concurrent row mapping.
	Workers int `mapstructure:"workers" validate:"min=1,max=256"`
	// Lang tags literal text. "-" disables language tags.
	Lang string `mapstructure:"lang"`
	// AbstractLimit is the abstract truncation length in characters.
	AbstractLimit int `mapstructure:"abstract_limit" validate:"min=0"`
	// IDLength is the hex length of derived identifiers.
	IDLength int `mapstructure:"id_length" validate:"min=8,max=32"`
	// Persist stores the run in PostgreSQL.
	Persist bool `mapstructure:"persist"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password (use environment variable in production).
	Password string `mapstructure:"password"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	SSLMode string `mapstructure:"ssl_mode" validate:"oneof=disable require verify-ca verify-full"`
	// MaxConns is the maximum number of connections in the pool.
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open.
	MinConns int32 `mapstructure:"min_conns"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath reads migrations from a directory. Empty uses the set
	// compiled into the binary.
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun enables automatic migration on startup (default: false).
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format" validate:"oneof=json console pretty"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches
// the default locations.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/research-graph")
	}

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 5000)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Graph defaults
	v.SetDefault("graph.source", SourceFile)
	v.SetDefault("graph.path", "unified_store/complete_store.ttl")
	v.SetDefault("graph.run_id", "")

	// Query defaults
	v.SetDefault("query.timeout", "10s")
	v.SetDefault("query.page_size", 20)
	v.SetDefault("query.search_limit", 50)
	v.SetDefault("query.max_rows", 10000)

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 5.0)
	v.SetDefault("rate_limit.burst", 10)

	// Conversion defaults
	v.SetDefault("convert.input", "bupt.xls")
	v.SetDefault("convert.output", "out/complete_bupt_research.ttl")
	v.SetDefault("convert.format", "")
	v.SetDefault("convert.report_path", "")
	v.SetDefault("convert.store_copy", "")
	v.SetDefault("convert.workers", 4)
	v.SetDefault("convert.lang", "zh")
	v.SetDefault("convert.abstract_limit", 1000)
	v.SetDefault("convert.id_length", 8)
	v.SetDefault("convert.persist", false)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "rgraph")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "research_graph")
	// Default to "require" for production security. Use RGRAPH_DATABASE_SSL_MODE=disable for local development.
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "")
	v.SetDefault("database.migration_auto_run", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "research_graph")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("invalid %s: failed %q check (value %v)", f.Namespace(), f.Tag(), f.Value())
		}
		return err
	}

	if c.Graph.Source == SourceFile && c.Graph.Path == "" {
		return fmt.Errorf("graph path is required when graph source is %q", SourceFile)
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate limit requests_per_second must be positive when enabled")
	}

	if c.Graph.Source == SourcePostgres || c.Convert.Persist {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			return fmt.Errorf("invalid database port: %d", c.Database.Port)
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database name is required")
		}
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}
