// Package models provides schema-driven entities: ordered field stores whose reads, writes
// and mass assignment are governed by declarations merged along an explicit inheritance chain.
package models

// Package-level functions operate on the Default registry

// Register adds declarations to the default registry
func Register(decls ...*Declaration) error {
	return Default().Register(decls...)
}

// MustRegister adds declarations to the default registry, panics on error
func MustRegister(decls ...*Declaration) {
	Default().MustRegister(decls...)
}

// New creates an entity of a type declared in the default registry
func New(name string, data *Fields) (*DataEntity, error) {
	return Default().New(name, data)
}

// SchemaOf returns the compiled schema of a type declared in the default registry
func SchemaOf(name string) (*Schema, error) {
	return Default().Schema(name)
}
