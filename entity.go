package models

import (
	"fmt"
	"iter"
)

// =====================================
// Data Entity
// =====================================

// DataEntity is an ordered field store governed by a schema. Reads go through accessors and
// getters, writes through setters and accessors, mass assignment through the fillable policy.
// A DataEntity is not safe for concurrent mutation.
type DataEntity struct {
	schema *Schema
	fields *Fields
	// fields whose accessor was handed out in a snapshot; the next write replaces it
	shared map[string]struct{}
	solid  bool
}

// NewDataEntity creates an entity with the open schema: every field is known and fillable
func NewDataEntity(data *Fields) *DataEntity {
	return NewEntity(nil, data)
}

// NewEntity creates an entity bound to a compiled schema. Initial data is stored raw.
func NewEntity(schema *Schema, data *Fields) *DataEntity {
	if schema == nil {
		schema = openSchema
	}
	return &DataEntity{schema: schema, fields: copyFields(data)}
}

// Schema returns the schema the entity is bound to
func (e *DataEntity) Schema() *Schema {
	if e.schema == nil {
		return openSchema
	}
	return e.schema
}

// Has reports whether a field is present
func (e *DataEntity) Has(field string) bool {
	if e.fields == nil {
		return false
	}
	_, exists := e.fields.Get(field)
	return exists
}

// Get reads a field. Accessor fields return their accessor, built from the stored value on
// first read. Fields with a getter return the filtered value. Missing fields read as nil.
func (e *DataEntity) Get(field string) (any, error) {
	e.init()
	value, exists := e.fields.Get(field)

	if factory, ok := e.Schema().Accessor(field); ok {
		if accessor, ok := value.(Accessor); ok {
			return accessor, nil
		}
		accessor, err := factory(value)
		if err != nil {
			return nil, NewAccessError(field, "accessor rejected stored value", err)
		}
		e.store(field, accessor)
		return accessor, nil
	}

	if !exists {
		return nil, nil
	}
	if getter, ok := e.Schema().Getter(field); ok {
		filtered, err := getter(value)
		if err != nil {
			return nil, NewAccessError(field, "getter failed", err)
		}
		return filtered, nil
	}
	return value, nil
}

// GetDefault reads a field, returning def when the field is missing
func (e *DataEntity) GetDefault(field string, def any) (any, error) {
	if !e.Has(field) {
		return def, nil
	}
	return e.Get(field)
}

// Set writes a single field. Setters and accessors apply unless Unfiltered is given.
// Unknown fields are ignored, or rejected with Strict.
func (e *DataEntity) Set(field string, value any, opts ...SetOption) error {
	e.init()
	o := buildSetOptions(opts)

	if !e.knows(field) {
		if o.Strict {
			return NewAccessError(field, "undefined field", nil)
		}
		return nil
	}

	prepared, err := e.prepare(field, value, o.Unfiltered, true)
	if err != nil {
		return err
	}
	e.store(field, prepared)
	return nil
}

// Fill mass assigns values in order. Non-fillable, unknown and rejected fields are skipped
// unless BypassSecurity lifts the fillable check. With StrictFill any of them aborts the fill
// and nothing is written.
func (e *DataEntity) Fill(values *Fields, opts ...FillOption) error {
	e.init()
	if values == nil {
		return nil
	}
	o := buildFillOptions(opts)

	type write struct {
		field string
		value any
	}
	batch := make([]write, 0, values.Len())

	for pair := values.Oldest(); pair != nil; pair = pair.Next() {
		field := pair.Key
		if !o.BypassSecurity && !e.Schema().IsFillable(field) {
			if o.Strict {
				return NewAccessError(field, "field is not fillable", nil)
			}
			continue
		}
		if !e.knows(field) {
			if o.Strict {
				return NewAccessError(field, "undefined field", nil)
			}
			continue
		}

		prepared, err := e.prepare(field, pair.Value, false, false)
		if err != nil {
			if o.Strict {
				return err
			}
			continue
		}
		batch = append(batch, write{field: field, value: prepared})
	}

	for _, w := range batch {
		e.store(w.field, w.value)
	}
	return nil
}

// FillMap mass assigns a Go map in sorted key order
func (e *DataEntity) FillMap(values map[string]any, opts ...FillOption) error {
	return e.Fill(FieldsOf(values), opts...)
}

// Delete removes a field
func (e *DataEntity) Delete(field string) {
	if e.fields != nil {
		e.fields.Delete(field)
	}
	delete(e.shared, field)
}

// Keys returns the field names in insertion order
func (e *DataEntity) Keys() []string {
	return fieldKeys(e.fields)
}

// Len returns the number of fields
func (e *DataEntity) Len() int {
	if e.fields == nil {
		return 0
	}
	return e.fields.Len()
}

// Fields returns a copy of the stored values, accessors included. Accessors in the copy are
// not updated by later writes to the entity.
func (e *DataEntity) Fields() *Fields {
	snapshot := copyFields(e.fields)
	for pair := snapshot.Oldest(); pair != nil; pair = pair.Next() {
		if _, ok := pair.Value.(Accessor); !ok {
			continue
		}
		if e.shared == nil {
			e.shared = make(map[string]struct{})
		}
		e.shared[pair.Key] = struct{}{}
	}
	return snapshot
}

// Values reads every field through Get
func (e *DataEntity) Values() (*Fields, error) {
	out := NewFields()
	for _, field := range e.Keys() {
		value, err := e.Get(field)
		if err != nil {
			return nil, err
		}
		out.Set(field, value)
	}
	return out, nil
}

// Serialize returns the packed field values: accessors and nested entities are packed,
// getters are not applied.
func (e *DataEntity) Serialize() *Fields {
	out := NewFields()
	if e.fields == nil {
		return out
	}
	for pair := e.fields.Oldest(); pair != nil; pair = pair.Next() {
		out.Set(pair.Key, pack(pair.Value))
	}
	return out
}

// All iterates over a snapshot of the stored values. The sequence can be ranged over more
// than once and is not affected by later writes.
func (e *DataEntity) All() iter.Seq2[string, any] {
	snapshot := e.Fields()
	return func(yield func(string, any) bool) {
		for pair := snapshot.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

// SetValue fills the entity from another entity, a field map or a Go map. It lets entities
// act as accessors of their parent entity's fields.
func (e *DataEntity) SetValue(value any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case *DataEntity:
		return e.Fill(v.Serialize())
	case *Fields:
		return e.Fill(v)
	case map[string]any:
		return e.FillMap(v)
	}
	return NewAccessError("", fmt.Sprintf("cannot fill entity from %T", value), nil)
}

// PackValue returns the serialized entity
func (e *DataEntity) PackValue() any {
	return e.Serialize()
}

// SolidState marks the entity as solid or not
func (e *DataEntity) SolidState(solid bool) {
	e.solid = solid
}

// IsSolid reports whether the entity is solid
func (e *DataEntity) IsSolid() bool {
	return e.solid
}

// EntityFactory returns an accessor factory creating nested entities of the schema
func EntityFactory(schema *Schema) AccessorFactory {
	return func(value any) (Accessor, error) {
		entity := NewEntity(schema, nil)
		if err := entity.SetValue(value); err != nil {
			return nil, err
		}
		return entity, nil
	}
}

func (e *DataEntity) init() {
	if e.fields == nil {
		e.fields = NewFields()
	}
}

// store writes a prepared value, the field no longer holds a shared accessor
func (e *DataEntity) store(field string, value any) {
	e.fields.Set(field, value)
	delete(e.shared, field)
}

// knows reports whether a write to the field is accepted
func (e *DataEntity) knows(field string) bool {
	return e.Schema().Knows(field) || e.Has(field)
}

// prepare computes the stored form of a value. With reuse an accessor already stored for
// the field is updated in place instead of being replaced, unless a snapshot holds it.
func (e *DataEntity) prepare(field string, value any, unfiltered, reuse bool) (any, error) {
	if unfiltered {
		return value, nil
	}
	if accessor, ok := value.(Accessor); ok {
		return accessor, nil
	}

	if setter, ok := e.Schema().Setter(field); ok {
		filtered, err := setter(value)
		if err != nil {
			return nil, NewAccessError(field, "setter rejected value", err)
		}
		value = filtered
	}

	factory, ok := e.Schema().Accessor(field)
	if !ok {
		return value, nil
	}

	if _, shared := e.shared[field]; reuse && !shared {
		if current, exists := e.fields.Get(field); exists {
			if accessor, ok := current.(Accessor); ok {
				if err := accessor.SetValue(value); err != nil {
					return nil, NewAccessError(field, "accessor rejected value", err)
				}
				return accessor, nil
			}
		}
	}

	accessor, err := factory(value)
	if err != nil {
		return nil, NewAccessError(field, "accessor rejected value", err)
	}
	return accessor, nil
}

// pack converts a stored value into its serialized form
func pack(value any) any {
	switch v := value.(type) {
	case Accessor:
		return pack(v.PackValue())
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = pack(item)
		}
		return out
	}
	return value
}
