package models

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// =====================================
// Mutators
// =====================================

// Filter transforms a field value. Getters run on reads, setters on writes.
type Filter func(value any) (any, error)

// Builtin filter names available in every registry
const (
	FilterInt    = "int"
	FilterFloat  = "float"
	FilterString = "string"
	FilterBool   = "bool"
	FilterUpper  = "upper"
	FilterLower  = "lower"
	FilterTrim   = "trim"
)

// builtinFilters returns a fresh copy of the builtin filter library
func builtinFilters() map[string]Filter {
	return map[string]Filter{
		FilterInt:    ToInt,
		FilterFloat:  ToFloat,
		FilterString: ToString,
		FilterBool:   ToBool,
		FilterUpper:  stringFilter(strings.ToUpper),
		FilterLower:  stringFilter(strings.ToLower),
		FilterTrim:   stringFilter(strings.TrimSpace),
	}
}

func stringFilter(fn func(string) string) Filter {
	return func(value any) (any, error) {
		s, err := ToString(value)
		if err != nil {
			return nil, err
		}
		return fn(s.(string)), nil
	}
}

var (
	intPrefix   = regexp.MustCompile(`^\s*[+-]?\d+`)
	floatPrefix = regexp.MustCompile(`^\s*[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)
)

// ToInt converts a value to int. Strings contribute their leading integer (0 when there is
// none), collections convert to 0 when empty and 1 otherwise.
func ToInt(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		return parseIntPrefix(v), nil
	case []byte:
		return parseIntPrefix(string(v)), nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return int(rv.Float()), nil
	case reflect.Slice, reflect.Array, reflect.Map:
		if rv.Len() == 0 {
			return 0, nil
		}
		return 1, nil
	}
	return nil, fmt.Errorf("cannot convert %T to int", value)
}

func parseIntPrefix(s string) int {
	m := strings.TrimSpace(intPrefix.FindString(s))
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// ToFloat converts a value to float64 following the same rules as ToInt
func ToFloat(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return float64(0), nil
	case float64:
		return v, nil
	case string:
		return parseFloatPrefix(v), nil
	case []byte:
		return parseFloatPrefix(string(v)), nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Float32:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	}

	n, err := ToInt(value)
	if err != nil {
		return nil, fmt.Errorf("cannot convert %T to float", value)
	}
	return float64(n.(int)), nil
}

func parseFloatPrefix(s string) float64 {
	m := strings.TrimSpace(floatPrefix.FindString(s))
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return f
}

// ToString converts a scalar value to string
func ToString(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case fmt.Stringer:
		return v.String(), nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	}
	return nil, fmt.Errorf("cannot convert %T to string", value)
}

// ToBool converts a value to bool. Empty strings, "0" and "false" are false.
func ToBool(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b, nil
		}
		return v != "", nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0, nil
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0, nil
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0, nil
	}
	return nil, fmt.Errorf("cannot convert %T to bool", value)
}

// MutatorRef names the mutator bound to a field. Name is "func" for mutators given as
// Go functions instead of registry names.
type MutatorRef struct {
	Field string `json:"field" yaml:"field"`
	Name  string `json:"name" yaml:"name"`
}

const funcRef = "func"

// refName returns the display name of a mutator reference
func refName(ref any) string {
	if s, ok := ref.(string); ok {
		return s
	}
	return funcRef
}
