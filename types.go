package models

import "time"

// =====================================
// Core Types and Constants
// =====================================

// Wildcard marks a fillable or secured policy that covers every field.
const Wildcard = "*"

// DefaultBase is the name of the root entity every declaration implicitly extends.
// Merging stops when the parent chain reaches it.
const DefaultBase = "entity"

// Property names read by the schema merger.
const (
	PropertyFields    = "fields"
	PropertyFillable  = "fillable"
	PropertySecured   = "secured"
	PropertyGetters   = "getters"
	PropertySetters   = "setters"
	PropertyAccessors = "accessors"
	PropertySchema    = "schema"
)

// MutatorType identifies one of the field mutator kinds
type MutatorType string

const (
	MutatorGetter   MutatorType = "getter"
	MutatorSetter   MutatorType = "setter"
	MutatorAccessor MutatorType = "accessor"
)

// property returns the declaration property holding mutators of this type
func (m MutatorType) property() string {
	switch m {
	case MutatorGetter:
		return PropertyGetters
	case MutatorSetter:
		return PropertySetters
	default:
		return PropertyAccessors
	}
}

// Config controls how a Registry resolves declarations
type Config struct {
	// Base is the root entity name. Declarations extending it (or nothing) do not merge further.
	Base string `json:"base" yaml:"base"`

	// Sources lists declaration files or directories loaded by tooling.
	Sources []string `json:"sources" yaml:"sources"`

	// LogLevel is a zerolog level name used by tooling.
	LogLevel string `json:"log_level" yaml:"log_level"`
}

// base returns the configured root entity name
func (c Config) base() string {
	if c.Base == "" {
		return DefaultBase
	}
	return c.Base
}

// SourceConfig represents connection configuration for the loading adapters
type SourceConfig struct {
	// Connection details
	Driver        string `json:"driver" yaml:"driver"`
	ConnectionURL string `json:"connection_url" yaml:"connection_url"`
	Host          string `json:"host" yaml:"host"`
	Port          int    `json:"port" yaml:"port"`
	Database      string `json:"database" yaml:"database"`
	Username      string `json:"username" yaml:"username"`
	Password      string `json:"password" yaml:"password"`

	// Connection pool settings
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" yaml:"conn_max_idle_time"`

	// Additional options, keyed by adapter name ("gorm", "bun", "mongo", "redis")
	Options map[string]interface{} `json:"options" yaml:"options"`

	// SSL/TLS configuration
	SSL SSLConfig `json:"ssl" yaml:"ssl"`
}

// SSLConfig represents SSL/TLS configuration
type SSLConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Mode     string `json:"mode" yaml:"mode"`
	CertFile string `json:"cert_file" yaml:"cert_file"`
	KeyFile  string `json:"key_file" yaml:"key_file"`
	CAFile   string `json:"ca_file" yaml:"ca_file"`
}

// AdapterOptions returns the option map stored under the given adapter name
func (c SourceConfig) AdapterOptions(adapter string) map[string]interface{} {
	if options, ok := c.Options[adapter]; ok {
		if m, ok := options.(map[string]interface{}); ok {
			return m
		}
	}
	return nil
}

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeAccess        ErrorType = "access"
	ErrorTypeSchema        ErrorType = "schema"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeConnection    ErrorType = "connection"
	ErrorTypeUnsupported   ErrorType = "unsupported"
	ErrorTypeSerialization ErrorType = "serialization"
)
