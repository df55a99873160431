package models

import (
	"fmt"
	"sort"
)

// ValueKind classifies a declared property value
type ValueKind int

const (
	KindNull ValueKind = iota
	KindScalar
	KindArray
)

// String returns the kind name
func (k ValueKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindArray:
		return "array"
	default:
		return "null"
	}
}

// Entry is one element of an array value. Positional entries have Keyed == false.
type Entry struct {
	Key   string
	Keyed bool
	Value any
}

// Item creates a positional entry
func Item(value any) Entry {
	return Entry{Value: value}
}

// KV creates a keyed entry
func KV(key string, value any) Entry {
	return Entry{Key: key, Keyed: true, Value: value}
}

// Value is a declared property value: null, a scalar (the wildcard included) or an
// ordered array of positional and keyed entries.
type Value struct {
	kind    ValueKind
	scalar  any
	entries []Entry
}

// Null returns the empty value
func Null() Value {
	return Value{}
}

// Scalar wraps a single non-array value
func Scalar(v any) Value {
	if v == nil {
		return Null()
	}
	return Value{kind: KindScalar, scalar: v}
}

// All returns the wildcard value
func All() Value {
	return Scalar(Wildcard)
}

// List creates an array of positional entries
func List(items ...any) Value {
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, Item(item))
	}
	return Value{kind: KindArray, entries: entries}
}

// Array creates an array from explicit entries
func Array(entries ...Entry) Value {
	return Value{kind: KindArray, entries: append([]Entry(nil), entries...)}
}

// MapValue creates a keyed array from a Go map. Keys are sorted to keep the order stable.
func MapValue(m map[string]any) Value {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, KV(k, m[k]))
	}
	return Value{kind: KindArray, entries: entries}
}

// Kind returns the value kind
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether the value is empty
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsArray reports whether the value is an array
func (v Value) IsArray() bool { return v.kind == KindArray }

// IsWildcard reports whether the value is the "*" scalar
func (v Value) IsWildcard() bool {
	if v.kind != KindScalar {
		return false
	}
	s, ok := v.scalar.(string)
	return ok && s == Wildcard
}

// Interface returns the scalar payload, or nil for arrays and null
func (v Value) Interface() any { return v.scalar }

// Len returns the number of array entries
func (v Value) Len() int { return len(v.entries) }

// Entries returns a copy of the array entries
func (v Value) Entries() []Entry {
	return append([]Entry(nil), v.entries...)
}

// Lookup returns the value stored under a key
func (v Value) Lookup(key string) (any, bool) {
	for _, e := range v.entries {
		if e.Keyed && e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// With returns a copy of the array with the entry appended, or replaced in place when
// an entry with the same key exists. Null and scalar values are replaced by a new array.
func (v Value) With(entry Entry) Value {
	out := Value{kind: KindArray}
	if v.kind == KindArray {
		out.entries = v.Entries()
	}
	out.put(entry)
	return out
}

func (v *Value) put(entry Entry) {
	if entry.Keyed {
		for i := range v.entries {
			if v.entries[i].Keyed && v.entries[i].Key == entry.Key {
				v.entries[i].Value = entry.Value
				return
			}
		}
	}
	v.entries = append(v.entries, entry)
}

// Merge combines a parent and child array. Parent entries come first; keyed child entries
// replace parent entries with the same key in place, positional child entries are appended.
// If either side is not an array the child is returned unchanged.
func Merge(parent, child Value) Value {
	if !parent.IsArray() || !child.IsArray() {
		return child
	}

	out := Value{kind: KindArray, entries: parent.Entries()}
	for _, e := range child.entries {
		out.put(e)
	}
	return out
}

// Strings interprets the value as a list of names. A single string scalar is a one-element
// list, null is empty, keyed entries contribute their values. Duplicates keep the first
// occurrence.
func (v Value) Strings() ([]string, error) {
	switch v.kind {
	case KindNull:
		return nil, nil
	case KindScalar:
		s, ok := v.scalar.(string)
		if !ok {
			return nil, fmt.Errorf("expected string or list, got %T", v.scalar)
		}
		return []string{s}, nil
	}

	seen := make(map[string]bool, len(v.entries))
	names := make([]string, 0, len(v.entries))
	for _, e := range v.entries {
		s, ok := e.Value.(string)
		if !ok {
			return nil, fmt.Errorf("expected string entry, got %T", e.Value)
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		names = append(names, s)
	}
	return names, nil
}

// Native converts the value to plain Go data: nil, the scalar, a []any for positional
// arrays or a map[string]any when any entry is keyed.
func (v Value) Native() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindScalar:
		return v.scalar
	}

	keyed := false
	for _, e := range v.entries {
		if e.Keyed {
			keyed = true
			break
		}
	}
	if !keyed {
		out := make([]any, 0, len(v.entries))
		for _, e := range v.entries {
			out = append(out, e.Value)
		}
		return out
	}

	out := make(map[string]any, len(v.entries))
	for i, e := range v.entries {
		key := e.Key
		if !e.Keyed {
			key = fmt.Sprint(i)
		}
		out[key] = e.Value
	}
	return out
}
