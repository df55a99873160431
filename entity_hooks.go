package models

// =====================================
// Describe Hooks
// =====================================

// DescribeEvent is passed to describe hooks while a property value is being computed.
// Hooks may replace the value; the final value is cached by the reflection.
type DescribeEvent struct {
	reflection *Reflection
	property   string
	value      Value
}

// Reflection returns the reflection describing the entity
func (e *DescribeEvent) Reflection() *Reflection { return e.reflection }

// Property returns the property being described
func (e *DescribeEvent) Property() string { return e.property }

// Value returns the current property value
func (e *DescribeEvent) Value() Value { return e.value }

// SetValue replaces the property value
func (e *DescribeEvent) SetValue(value Value) { e.value = value }

// DescribeHook rewrites schema metadata of an entity while it is described
type DescribeHook func(event *DescribeEvent) error

// Trait is a named, reusable set of describe hooks keyed by property name ("*" for every
// property). Declarations opt in with Use.
type Trait struct {
	Name     string
	Describe map[string]DescribeHook
}

// hookBinding is a describe hook registered directly on the registry
type hookBinding struct {
	entity   string
	property string
	hook     DescribeHook
}

func (b hookBinding) matches(entity, property string) bool {
	return (b.entity == Wildcard || b.entity == entity) &&
		(b.property == Wildcard || b.property == property)
}

// hooks returns the hooks of the trait bound to the property, exact matches first
func (t Trait) hooks(property string) []DescribeHook {
	var out []DescribeHook
	if h, ok := t.Describe[property]; ok && h != nil {
		out = append(out, h)
	}
	if h, ok := t.Describe[Wildcard]; ok && h != nil {
		out = append(out, h)
	}
	return out
}
