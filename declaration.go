package models

import "strings"

// =====================================
// Declarations
// =====================================

// Declaration is the static description of an entity type: its parent, declared property
// values, constants and the traits it uses. Declarations are built once at startup and
// registered in a Registry.
//
//	models.Declare("user").
//		Fillable("name", "email").
//		Setter("id", models.FilterInt).
//		Accessor("name", "upper")
type Declaration struct {
	name       string
	parent     string
	plain      bool
	order      []string
	properties map[string]Value
	constants  map[string]Value
	traits     []string
}

// Declare starts a declaration extending the root entity
func Declare(name string) *Declaration {
	return &Declaration{
		name:       name,
		properties: make(map[string]Value),
		constants:  make(map[string]Value),
	}
}

// Extends sets the parent entity name
func (d *Declaration) Extends(parent string) *Declaration {
	d.parent = parent
	return d
}

// AsPlain marks the declaration as not descending from the root entity. Plain declarations
// expose raw property values without merging or describe hooks.
func (d *Declaration) AsPlain() *Declaration {
	d.plain = true
	return d
}

// Set declares a property value
func (d *Declaration) Set(property string, value Value) *Declaration {
	if _, ok := d.properties[property]; !ok {
		d.order = append(d.order, property)
	}
	d.properties[property] = value
	return d
}

// Const declares a constant. Constants are the fallback for properties declared nowhere
// else and are looked up by the upper-cased property name.
func (d *Declaration) Const(name string, value Value) *Declaration {
	d.constants[name] = value
	return d
}

// Fillable declares the mass-assignable fields. A single "*" allows every field.
func (d *Declaration) Fillable(fields ...string) *Declaration {
	return d.Set(PropertyFillable, nameSet(fields))
}

// Secured declares the fields excluded from mass assignment. A single "*" secures every field.
func (d *Declaration) Secured(fields ...string) *Declaration {
	return d.Set(PropertySecured, nameSet(fields))
}

// Fields declares the known fields. Entities with declared fields ignore unknown ones.
func (d *Declaration) Fields(fields ...string) *Declaration {
	return d.Set(PropertyFields, nameSet(fields))
}

// Getter binds a read filter to a field. ref is a registered filter name or a Filter.
func (d *Declaration) Getter(field string, ref any) *Declaration {
	return d.mutator(MutatorGetter, field, ref)
}

// Setter binds a write filter to a field. ref is a registered filter name or a Filter.
func (d *Declaration) Setter(field string, ref any) *Declaration {
	return d.mutator(MutatorSetter, field, ref)
}

// Accessor binds an accessor to a field. ref is a registered accessor name or an AccessorFactory.
func (d *Declaration) Accessor(field string, ref any) *Declaration {
	return d.mutator(MutatorAccessor, field, ref)
}

func (d *Declaration) mutator(kind MutatorType, field string, ref any) *Declaration {
	property := kind.property()
	return d.Set(property, d.properties[property].With(KV(field, ref)))
}

// Schema adds an entry to the custom schema metadata
func (d *Declaration) Schema(key string, value any) *Declaration {
	return d.Set(PropertySchema, d.properties[PropertySchema].With(KV(key, value)))
}

// Use appends traits by name. Traits are resolved by the registry when the schema is described.
func (d *Declaration) Use(traits ...string) *Declaration {
	d.traits = append(d.traits, traits...)
	return d
}

// Name returns the entity name
func (d *Declaration) Name() string { return d.name }

// Parent returns the parent entity name, empty for direct descendants of the root entity
func (d *Declaration) Parent() string { return d.parent }

// IsPlain reports whether the declaration is outside the entity hierarchy
func (d *Declaration) IsPlain() bool { return d.plain }

// Traits returns the used trait names
func (d *Declaration) Traits() []string {
	return append([]string(nil), d.traits...)
}

// Properties returns the declared property names in declaration order
func (d *Declaration) Properties() []string {
	return append([]string(nil), d.order...)
}

// Lookup returns the declared value of a property, falling back to the constant named after
// the upper-cased property.
func (d *Declaration) Lookup(property string) (Value, bool) {
	if v, ok := d.properties[property]; ok {
		return v, true
	}
	if v, ok := d.constants[strings.ToUpper(property)]; ok {
		return v, true
	}
	return Null(), false
}

// clone copies the declaration so later builder calls do not leak into a registry
func (d *Declaration) clone() *Declaration {
	out := &Declaration{
		name:       d.name,
		parent:     d.parent,
		plain:      d.plain,
		order:      append([]string(nil), d.order...),
		properties: make(map[string]Value, len(d.properties)),
		constants:  make(map[string]Value, len(d.constants)),
		traits:     append([]string(nil), d.traits...),
	}
	for k, v := range d.properties {
		out.properties[k] = v
	}
	for k, v := range d.constants {
		out.constants[k] = v
	}
	return out
}

func nameSet(fields []string) Value {
	if len(fields) == 1 && fields[0] == Wildcard {
		return All()
	}
	return List(stringsToAny(fields)...)
}

func stringsToAny(values []string) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}
