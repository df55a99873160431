package models

// =====================================
// Schema
// =====================================

// FieldSet is a set of field names or the wildcard covering every field
type FieldSet struct {
	all   bool
	names []string
	index map[string]bool
}

// AllFields returns the wildcard set
func AllFields() FieldSet {
	return FieldSet{all: true}
}

// FieldNames returns a set of the given names, duplicates removed
func FieldNames(names ...string) FieldSet {
	s := FieldSet{index: make(map[string]bool, len(names))}
	for _, name := range names {
		if s.index[name] {
			continue
		}
		s.index[name] = true
		s.names = append(s.names, name)
	}
	return s
}

// fieldSetOf interprets a property value as a field set
func fieldSetOf(v Value) (FieldSet, error) {
	if v.IsWildcard() {
		return AllFields(), nil
	}
	names, err := v.Strings()
	if err != nil {
		return FieldSet{}, err
	}
	return FieldNames(names...), nil
}

// IsAll reports whether the set is the wildcard
func (s FieldSet) IsAll() bool { return s.all }

// IsEmpty reports whether the set holds no names and is not the wildcard
func (s FieldSet) IsEmpty() bool { return !s.all && len(s.names) == 0 }

// Names returns the names in declaration order, nil for the wildcard
func (s FieldSet) Names() []string {
	return append([]string(nil), s.names...)
}

// Contains reports whether the set covers the field
func (s FieldSet) Contains(field string) bool {
	return s.all || s.index[field]
}

// Value converts the set back into a property value
func (s FieldSet) Value() Value {
	if s.all {
		return All()
	}
	return List(stringsToAny(s.names)...)
}

// Schema is the compiled, immutable metadata of an entity type
type Schema struct {
	name      string
	fillable  FieldSet
	secured   FieldSet
	fields    FieldSet
	getters   map[string]Filter
	setters   map[string]Filter
	accessors map[string]AccessorFactory
	refs      map[MutatorType][]MutatorRef
	custom    Value
}

// openSchema is used by entities created without a declaration: every field is known and
// fillable, no mutators apply.
var openSchema = &Schema{
	getters:   map[string]Filter{},
	setters:   map[string]Filter{},
	accessors: map[string]AccessorFactory{},
	refs:      map[MutatorType][]MutatorRef{},
}

// OpenSchema returns the schema of undeclared entities
func OpenSchema() *Schema { return openSchema }

// Name returns the entity name, empty for the open schema
func (s *Schema) Name() string { return s.name }

// Fillable returns the mass-assignable fields
func (s *Schema) Fillable() FieldSet { return s.fillable }

// Secured returns the fields excluded from mass assignment
func (s *Schema) Secured() FieldSet { return s.secured }

// Fields returns the declared fields
func (s *Schema) Fields() FieldSet { return s.fields }

// Custom returns the custom schema metadata
func (s *Schema) Custom() Value { return s.custom }

// IsOpen reports whether the schema accepts fields it does not declare
func (s *Schema) IsOpen() bool {
	return s.fields.IsAll() || s.fields.IsEmpty()
}

// IsFillable reports whether a field may be mass assigned. A non-empty fillable set is
// authoritative; the secured set only applies when fillable is empty.
func (s *Schema) IsFillable(field string) bool {
	if s.fillable.IsAll() {
		return true
	}
	if !s.fillable.IsEmpty() {
		return s.fillable.Contains(field)
	}
	if s.secured.IsAll() {
		return false
	}
	return !s.secured.Contains(field)
}

// Knows reports whether the schema declares the field in any form
func (s *Schema) Knows(field string) bool {
	if s.IsOpen() {
		return true
	}
	if s.fields.Contains(field) {
		return true
	}
	if (!s.fillable.IsAll() && s.fillable.Contains(field)) ||
		(!s.secured.IsAll() && s.secured.Contains(field)) {
		return true
	}
	_, getter := s.getters[field]
	_, setter := s.setters[field]
	_, accessor := s.accessors[field]
	return getter || setter || accessor
}

// Getter returns the read filter of a field
func (s *Schema) Getter(field string) (Filter, bool) {
	f, ok := s.getters[field]
	return f, ok
}

// Setter returns the write filter of a field
func (s *Schema) Setter(field string) (Filter, bool) {
	f, ok := s.setters[field]
	return f, ok
}

// Accessor returns the accessor factory of a field
func (s *Schema) Accessor(field string) (AccessorFactory, bool) {
	f, ok := s.accessors[field]
	return f, ok
}

// Mutators returns the mutator references of a kind in declaration order
func (s *Schema) Mutators(kind MutatorType) []MutatorRef {
	return append([]MutatorRef(nil), s.refs[kind]...)
}
