package models

// Accessor mediates reads, writes and serialization of a single field value.
// Accessor-backed fields are never exposed raw.
type Accessor interface {
	// SetValue replaces the wrapped value. An error rejects the input.
	SetValue(value any) error

	// PackValue returns the serialized form of the wrapped value.
	PackValue() any
}

// AccessorFactory builds an accessor around a raw field value
type AccessorFactory func(value any) (Accessor, error)

// TransformAccessor is an accessor that stores the result of a filter
type TransformAccessor struct {
	transform Filter
	value     any
}

// NewTransformAccessor returns a factory of accessors that pass every value through transform
func NewTransformAccessor(transform Filter) AccessorFactory {
	return func(value any) (Accessor, error) {
		a := &TransformAccessor{transform: transform}
		if err := a.SetValue(value); err != nil {
			return nil, err
		}
		return a, nil
	}
}

// SetValue transforms and stores the value
func (a *TransformAccessor) SetValue(value any) error {
	v, err := a.transform(value)
	if err != nil {
		return err
	}
	a.value = v
	return nil
}

// PackValue returns the stored value
func (a *TransformAccessor) PackValue() any {
	return a.value
}

// String returns the stored value formatted as a string
func (a *TransformAccessor) String() string {
	s, err := ToString(a.value)
	if err != nil {
		return ""
	}
	return s.(string)
}
