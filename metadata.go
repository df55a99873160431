package models

// =====================================
// Entity Metadata
// =====================================

// SchemaDescription is a serializable view of a compiled schema
type SchemaDescription struct {
	Name      string        `json:"name" yaml:"name"`
	Extends   string        `json:"extends,omitempty" yaml:"extends,omitempty"`
	Traits    []string      `json:"traits,omitempty" yaml:"traits,omitempty"`
	Fields    []string      `json:"fields,omitempty" yaml:"fields,omitempty"`
	Fillable  interface{}   `json:"fillable" yaml:"fillable"`
	Secured   interface{}   `json:"secured" yaml:"secured"`
	Getters   []MutatorRef  `json:"getters,omitempty" yaml:"getters,omitempty"`
	Setters   []MutatorRef  `json:"setters,omitempty" yaml:"setters,omitempty"`
	Accessors []MutatorRef  `json:"accessors,omitempty" yaml:"accessors,omitempty"`
	Schema    interface{}   `json:"schema,omitempty" yaml:"schema,omitempty"`
	Known     []FieldReport `json:"known,omitempty" yaml:"known,omitempty"`
}

// FieldReport describes how a single field behaves under a schema
type FieldReport struct {
	Field    string `json:"field" yaml:"field"`
	Fillable bool   `json:"fillable" yaml:"fillable"`
	Getter   string `json:"getter,omitempty" yaml:"getter,omitempty"`
	Setter   string `json:"setter,omitempty" yaml:"setter,omitempty"`
	Accessor string `json:"accessor,omitempty" yaml:"accessor,omitempty"`
}

// Describe builds the description of a compiled schema
func Describe(decl *Declaration, schema *Schema) SchemaDescription {
	desc := SchemaDescription{
		Name:      schema.Name(),
		Fields:    schema.fields.Names(),
		Fillable:  fieldSetNative(schema.fillable),
		Secured:   fieldSetNative(schema.secured),
		Getters:   schema.Mutators(MutatorGetter),
		Setters:   schema.Mutators(MutatorSetter),
		Accessors: schema.Mutators(MutatorAccessor),
		Schema:    schema.custom.Native(),
	}
	if decl != nil {
		desc.Extends = decl.Parent()
		desc.Traits = decl.Traits()
	}

	for _, field := range knownFields(schema) {
		report := FieldReport{Field: field, Fillable: schema.IsFillable(field)}
		report.Getter = refFor(schema.refs[MutatorGetter], field)
		report.Setter = refFor(schema.refs[MutatorSetter], field)
		report.Accessor = refFor(schema.refs[MutatorAccessor], field)
		desc.Known = append(desc.Known, report)
	}
	return desc
}

// knownFields lists every field named by the schema, first mention first
func knownFields(schema *Schema) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(field string) {
		if !seen[field] {
			seen[field] = true
			names = append(names, field)
		}
	}

	for _, set := range []FieldSet{schema.fields, schema.fillable, schema.secured} {
		for _, field := range set.Names() {
			add(field)
		}
	}
	for _, kind := range []MutatorType{MutatorGetter, MutatorSetter, MutatorAccessor} {
		for _, ref := range schema.refs[kind] {
			add(ref.Field)
		}
	}
	return names
}

func fieldSetNative(s FieldSet) interface{} {
	if s.IsAll() {
		return Wildcard
	}
	names := s.Names()
	if names == nil {
		return []string{}
	}
	return names
}

func refFor(refs []MutatorRef, field string) string {
	for _, ref := range refs {
		if ref.Field == field {
			return ref.Name
		}
	}
	return ""
}
