package models

import (
	"fmt"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Fields is an insertion-ordered map of field values
type Fields = orderedmap.OrderedMap[string, any]

// NewFields creates an empty field map
func NewFields() *Fields {
	return orderedmap.New[string, any]()
}

// Pairs builds a field map from alternating keys and values. It panics on an odd number of
// arguments or a non-string key.
func Pairs(kv ...any) *Fields {
	if len(kv)%2 != 0 {
		panic("models: Pairs requires an even number of arguments")
	}
	fields := NewFields()
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("models: Pairs key %d is %T, not string", i/2, kv[i]))
		}
		fields.Set(key, kv[i+1])
	}
	return fields
}

// FieldsOf converts a Go map into a field map with sorted keys
func FieldsOf(m map[string]any) *Fields {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := NewFields()
	for _, k := range keys {
		fields.Set(k, m[k])
	}
	return fields
}

func copyFields(src *Fields) *Fields {
	out := NewFields()
	if src == nil {
		return out
	}
	for pair := src.Oldest(); pair != nil; pair = pair.Next() {
		out.Set(pair.Key, pair.Value)
	}
	return out
}

func fieldKeys(src *Fields) []string {
	if src == nil {
		return nil
	}
	keys := make([]string, 0, src.Len())
	for pair := src.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}
