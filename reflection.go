package models

import (
	"fmt"
)

// =====================================
// Reflection
// =====================================

// Reflection computes the merged schema metadata of a declared entity. Property values are
// merged with the ancestor chain, passed through describe hooks and cached per reflection.
// A Reflection is not safe for concurrent use; the Registry caches compiled schemas instead.
type Reflection struct {
	registry   *Registry
	decl       *Declaration
	ancestors  []string
	cache      map[string]Value
	describing map[string]bool
}

func newReflection(registry *Registry, decl *Declaration, ancestors []string) *Reflection {
	return &Reflection{
		registry:   registry,
		decl:       decl,
		ancestors:  ancestors,
		cache:      make(map[string]Value),
		describing: make(map[string]bool),
	}
}

// Name returns the entity name
func (rf *Reflection) Name() string { return rf.decl.Name() }

// Declaration returns the reflected declaration
func (rf *Reflection) Declaration() *Declaration { return rf.decl }

// Registry returns the owning registry
func (rf *Reflection) Registry() *Registry { return rf.registry }

// IsEntity reports whether the declaration belongs to the entity hierarchy
func (rf *Reflection) IsEntity() bool { return !rf.decl.IsPlain() }

// Clone returns a reflection of the same declaration with an empty cache
func (rf *Reflection) Clone() *Reflection {
	return newReflection(rf.registry, rf.decl, append([]string(nil), rf.ancestors...))
}

// Parent returns the reflection of the parent declaration, or nil when the declaration
// extends the root entity directly.
func (rf *Reflection) Parent() (*Reflection, error) {
	parent := rf.decl.Parent()
	if parent == "" || parent == rf.registry.config.base() {
		return nil, nil
	}

	chain := append(append([]string(nil), rf.ancestors...), rf.Name())
	for _, name := range chain {
		if name == parent {
			return nil, NewSchemaError(rf.Name(), fmt.Sprintf("inheritance cycle through '%s'", parent), nil)
		}
	}

	decl, err := rf.registry.Declaration(parent)
	if err != nil {
		return nil, NewSchemaError(rf.Name(), fmt.Sprintf("unknown parent '%s'", parent), err)
	}
	return newReflection(rf.registry, decl, chain), nil
}

// Property returns the value of a declared property. With merge, array values are merged
// with the parent's merged value; the child's keyed entries replace the parent's.
// Properties declared nowhere in the chain are null.
func (rf *Reflection) Property(name string, merge bool) (Value, error) {
	if v, ok := rf.cache[name]; ok {
		return v, nil
	}

	own, declared := rf.decl.Lookup(name)
	if !rf.IsEntity() {
		return own, nil
	}
	if rf.describing[name] {
		return Null(), NewSchemaError(rf.Name(), fmt.Sprintf("property '%s' requested while being described", name), nil)
	}

	value := own
	if !declared || (merge && own.IsArray()) {
		parent, err := rf.Parent()
		if err != nil {
			return Null(), err
		}
		if parent != nil {
			inherited, err := parent.Property(name, merge)
			if err != nil {
				return Null(), err
			}
			if declared {
				value = Merge(inherited, own)
			} else {
				value = inherited
			}
		}
	}

	rf.describing[name] = true
	value, err := rf.describe(name, value)
	delete(rf.describing, name)
	if err != nil {
		return Null(), err
	}

	rf.cache[name] = value
	return value, nil
}

// describe runs the describe hooks bound to the property
func (rf *Reflection) describe(property string, value Value) (Value, error) {
	hooks, err := rf.registry.describeHooks(rf.decl, property)
	if err != nil {
		return Null(), err
	}

	event := &DescribeEvent{reflection: rf, property: property, value: value}
	for _, hook := range hooks {
		if err := hook(event); err != nil {
			return Null(), NewSchemaError(rf.Name(), fmt.Sprintf("describe hook failed for '%s'", property), err)
		}
	}
	return event.value, nil
}

// Fillable returns the merged mass-assignable fields
func (rf *Reflection) Fillable() (FieldSet, error) {
	return rf.fieldSet(PropertyFillable)
}

// Secured returns the merged secured fields
func (rf *Reflection) Secured() (FieldSet, error) {
	return rf.fieldSet(PropertySecured)
}

// Fields returns the merged declared fields
func (rf *Reflection) Fields() (FieldSet, error) {
	return rf.fieldSet(PropertyFields)
}

func (rf *Reflection) fieldSet(property string) (FieldSet, error) {
	v, err := rf.Property(property, true)
	if err != nil {
		return FieldSet{}, err
	}
	set, err := fieldSetOf(v)
	if err != nil {
		return FieldSet{}, NewSchemaError(rf.Name(), fmt.Sprintf("invalid '%s' value", property), err)
	}
	return set, nil
}

// Getters returns the merged getter references
func (rf *Reflection) Getters() ([]Entry, error) { return rf.mutators(MutatorGetter) }

// Setters returns the merged setter references
func (rf *Reflection) Setters() ([]Entry, error) { return rf.mutators(MutatorSetter) }

// Accessors returns the merged accessor references
func (rf *Reflection) Accessors() ([]Entry, error) { return rf.mutators(MutatorAccessor) }

// Mutators returns the names of every mutator by kind
func (rf *Reflection) Mutators() (map[MutatorType][]MutatorRef, error) {
	out := make(map[MutatorType][]MutatorRef, 3)
	for _, kind := range []MutatorType{MutatorGetter, MutatorSetter, MutatorAccessor} {
		entries, err := rf.mutators(kind)
		if err != nil {
			return nil, err
		}
		refs := make([]MutatorRef, 0, len(entries))
		for _, e := range entries {
			refs = append(refs, MutatorRef{Field: e.Key, Name: refName(e.Value)})
		}
		out[kind] = refs
	}
	return out, nil
}

func (rf *Reflection) mutators(kind MutatorType) ([]Entry, error) {
	property := kind.property()
	v, err := rf.Property(property, true)
	if err != nil {
		return nil, err
	}
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsArray() {
		return nil, NewSchemaError(rf.Name(), fmt.Sprintf("'%s' must be a field map", property), nil)
	}

	entries := v.Entries()
	for _, e := range entries {
		if !e.Keyed {
			return nil, NewSchemaError(rf.Name(), fmt.Sprintf("'%s' entry %v is not bound to a field", property, e.Value), nil)
		}
	}
	return entries, nil
}

// Custom returns the merged custom schema metadata
func (rf *Reflection) Custom() (Value, error) {
	return rf.Property(PropertySchema, true)
}

// Schema compiles the merged metadata into a Schema, resolving mutator references against
// the registry.
func (rf *Reflection) Schema() (*Schema, error) {
	s := &Schema{
		name:      rf.Name(),
		getters:   make(map[string]Filter),
		setters:   make(map[string]Filter),
		accessors: make(map[string]AccessorFactory),
		refs:      make(map[MutatorType][]MutatorRef, 3),
	}

	var err error
	if s.fillable, err = rf.Fillable(); err != nil {
		return nil, err
	}
	if s.secured, err = rf.Secured(); err != nil {
		return nil, err
	}
	if s.fields, err = rf.Fields(); err != nil {
		return nil, err
	}
	if s.custom, err = rf.Custom(); err != nil {
		return nil, err
	}

	for _, kind := range []MutatorType{MutatorGetter, MutatorSetter, MutatorAccessor} {
		entries, err := rf.mutators(kind)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if err := rf.bind(s, kind, e.Key, e.Value); err != nil {
				return nil, err
			}
			s.refs[kind] = append(s.refs[kind], MutatorRef{Field: e.Key, Name: refName(e.Value)})
		}
	}
	return s, nil
}

func (rf *Reflection) bind(s *Schema, kind MutatorType, field string, ref any) error {
	if kind == MutatorAccessor {
		factory, err := rf.registry.resolveAccessor(ref)
		if err != nil {
			return NewSchemaError(rf.Name(), fmt.Sprintf("accessor of '%s'", field), err)
		}
		s.accessors[field] = factory
		return nil
	}

	filter, err := rf.registry.resolveFilter(ref)
	if err != nil {
		return NewSchemaError(rf.Name(), fmt.Sprintf("%s of '%s'", kind, field), err)
	}
	if kind == MutatorGetter {
		s.getters[field] = filter
	} else {
		s.setters[field] = filter
	}
	return nil
}
