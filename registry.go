package models

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

var (
	once     sync.Once
	instance *Registry
)

// Registry owns entity declarations, traits, describe hooks, the mutator library and the
// compiled schema cache. It is safe for concurrent use.
type Registry struct {
	mutex        sync.RWMutex
	config       Config
	logger       zerolog.Logger
	declarations map[string]*Declaration
	order        []string
	traits       map[string]Trait
	hooks        []hookBinding
	filters      map[string]Filter
	accessors    map[string]AccessorFactory
	schemas      map[string]*Schema
	// bumped by every flush; schemas compiled under an older generation are not published
	generation   uint64
}

// Option configures a Registry
type Option func(*Registry)

// WithLogger sets the registry logger
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithConfig sets the registry configuration
func WithConfig(config Config) Option {
	return func(r *Registry) {
		r.config = config
	}
}

// NewRegistry creates an empty registry with the builtin filters
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		logger:       zerolog.Nop(),
		declarations: make(map[string]*Declaration),
		traits:       make(map[string]Trait),
		filters:      builtinFilters(),
		accessors:    make(map[string]AccessorFactory),
		schemas:      make(map[string]*Schema),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Default returns the process-wide registry
func Default() *Registry {
	once.Do(func() {
		instance = NewRegistry()
	})
	return instance
}

// Config returns the registry configuration
func (r *Registry) Config() Config {
	return r.config
}

// Register adds declarations. Names must be unique within the registry.
func (r *Registry) Register(decls ...*Declaration) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, decl := range decls {
		if decl == nil || decl.Name() == "" {
			return NewSchemaError("", "declaration without a name", nil)
		}
		if _, exists := r.declarations[decl.Name()]; exists {
			return NewSchemaError(decl.Name(), "entity is already declared", nil)
		}
		r.declarations[decl.Name()] = decl.clone()
		r.order = append(r.order, decl.Name())
		r.logger.Debug().Str("entity", decl.Name()).Str("extends", decl.Parent()).Msg("entity declared")
	}
	return nil
}

// MustRegister adds declarations, panics on error
func (r *Registry) MustRegister(decls ...*Declaration) {
	if err := r.Register(decls...); err != nil {
		panic(err)
	}
}

// Declaration returns a registered declaration
func (r *Registry) Declaration(name string) (*Declaration, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	decl, exists := r.declarations[name]
	if !exists {
		return nil, EntityError{Type: ErrorTypeNotFound, Message: "entity is not declared", Entity: name}
	}
	return decl, nil
}

// Names returns the declared entity names in registration order
func (r *Registry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return append([]string(nil), r.order...)
}

// Reflect returns a fresh reflection of a declared entity
func (r *Registry) Reflect(name string) (*Reflection, error) {
	decl, err := r.Declaration(name)
	if err != nil {
		return nil, err
	}
	return newReflection(r, decl, nil), nil
}

// Schema returns the compiled schema of an entity, computing it on first use
func (r *Registry) Schema(name string) (*Schema, error) {
	r.mutex.RLock()
	schema, exists := r.schemas[name]
	generation := r.generation
	r.mutex.RUnlock()
	if exists {
		return schema, nil
	}

	rf, err := r.Reflect(name)
	if err != nil {
		return nil, err
	}
	compiled, err := rf.Schema()
	if err != nil {
		r.logger.Debug().Err(err).Str("entity", name).Msg("schema compilation failed")
		return nil, err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.generation != generation {
		r.logger.Debug().Str("entity", name).Msg("registry changed during compilation, schema not cached")
		return compiled, nil
	}
	if schema, exists := r.schemas[name]; exists {
		return schema, nil
	}
	r.schemas[name] = compiled
	r.logger.Debug().
		Str("entity", name).
		Strs("fillable", compiled.fillable.Names()).
		Bool("fillable_all", compiled.fillable.IsAll()).
		Msg("schema compiled")
	return compiled, nil
}

// New creates an entity bound to the compiled schema of a declared entity
func (r *Registry) New(name string, data *Fields) (*DataEntity, error) {
	schema, err := r.Schema(name)
	if err != nil {
		return nil, err
	}
	return NewEntity(schema, data), nil
}

// Describe returns the description of a declared entity
func (r *Registry) Describe(name string) (SchemaDescription, error) {
	decl, err := r.Declaration(name)
	if err != nil {
		return SchemaDescription{}, err
	}
	schema, err := r.Schema(name)
	if err != nil {
		return SchemaDescription{}, err
	}
	return Describe(decl, schema), nil
}

// OnDescribe registers a describe hook. entity and property accept "*" to match everything.
func (r *Registry) OnDescribe(entity, property string, hook DescribeHook) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.hooks = append(r.hooks, hookBinding{entity: entity, property: property, hook: hook})
	r.flush()
}

// RegisterTrait adds a trait that declarations can use by name
func (r *Registry) RegisterTrait(trait Trait) error {
	if trait.Name == "" {
		return NewSchemaError("", "trait without a name", nil)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.traits[trait.Name] = trait
	r.flush()
	r.logger.Debug().Str("trait", trait.Name).Msg("trait registered")
	return nil
}

// RegisterFilter adds a named getter/setter filter, replacing builtins of the same name
func (r *Registry) RegisterFilter(name string, filter Filter) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.filters[name] = filter
	r.flush()
}

// RegisterAccessor adds a named accessor factory
func (r *Registry) RegisterAccessor(name string, factory AccessorFactory) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.accessors[name] = factory
	r.flush()
}

// Validate compiles every declared schema and returns all failures joined
func (r *Registry) Validate() error {
	var errs []error
	for _, name := range r.Names() {
		if _, err := r.Schema(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reset drops every compiled schema
func (r *Registry) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.flush()
}

// flush drops compiled schemas, the caller holds the write lock
func (r *Registry) flush() {
	r.generation++
	if len(r.schemas) > 0 {
		r.schemas = make(map[string]*Schema)
	}
}

// describeHooks collects the hooks bound to a property: trait hooks in Use order, then
// hooks registered for the entity, then hooks registered for every entity.
func (r *Registry) describeHooks(decl *Declaration, property string) ([]DescribeHook, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var hooks []DescribeHook
	for _, name := range decl.Traits() {
		trait, exists := r.traits[name]
		if !exists {
			return nil, NewSchemaError(decl.Name(), fmt.Sprintf("unknown trait '%s'", name), nil)
		}
		hooks = append(hooks, trait.hooks(property)...)
	}
	for _, binding := range r.hooks {
		if binding.entity != Wildcard && binding.matches(decl.Name(), property) {
			hooks = append(hooks, binding.hook)
		}
	}
	for _, binding := range r.hooks {
		if binding.entity == Wildcard && binding.matches(decl.Name(), property) {
			hooks = append(hooks, binding.hook)
		}
	}
	return hooks, nil
}

func (r *Registry) resolveFilter(ref any) (Filter, error) {
	switch v := ref.(type) {
	case string:
		r.mutex.RLock()
		filter, exists := r.filters[v]
		r.mutex.RUnlock()
		if !exists {
			return nil, fmt.Errorf("unknown filter '%s'", v)
		}
		return filter, nil
	case Filter:
		return v, nil
	case func(any) (any, error):
		return v, nil
	case func(any) any:
		return func(value any) (any, error) { return v(value), nil }, nil
	}
	return nil, fmt.Errorf("unsupported filter reference %T", ref)
}

func (r *Registry) resolveAccessor(ref any) (AccessorFactory, error) {
	switch v := ref.(type) {
	case string:
		r.mutex.RLock()
		factory, exists := r.accessors[v]
		r.mutex.RUnlock()
		if !exists {
			return nil, fmt.Errorf("unknown accessor '%s'", v)
		}
		return factory, nil
	case AccessorFactory:
		return v, nil
	case func(any) (Accessor, error):
		return v, nil
	}
	return nil, fmt.Errorf("unsupported accessor reference %T", ref)
}
