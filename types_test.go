package models

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSourceConfig(t *testing.T) {
	config := SourceConfig{
		Driver:          "postgres",
		Host:            "localhost",
		Port:            5432,
		Database:        "testdb",
		Username:        "user",
		Password:        "pass",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: time.Minute * 30,
		SSL: SSLConfig{
			Enabled: true,
			Mode:    "require",
		},
		Options: map[string]interface{}{
			"redis": map[string]interface{}{"pool_size": 20},
			"gorm":  "invalid",
		},
	}

	if config.Driver != "postgres" {
		t.Errorf("Expected driver 'postgres', got '%s'", config.Driver)
	}
	if !config.SSL.Enabled {
		t.Error("Expected SSL to be enabled")
	}
	if opts := config.AdapterOptions("redis"); opts["pool_size"] != 20 {
		t.Errorf("Expected redis pool_size 20, got '%v'", opts["pool_size"])
	}
	if opts := config.AdapterOptions("gorm"); opts != nil {
		t.Errorf("Expected no gorm options for a non-map value, got %v", opts)
	}
	if opts := config.AdapterOptions("bun"); opts != nil {
		t.Errorf("Expected no bun options, got %v", opts)
	}
}

func TestConfigBase(t *testing.T) {
	if base := (Config{}).base(); base != DefaultBase {
		t.Errorf("Expected default base '%s', got '%s'", DefaultBase, base)
	}
	if base := (Config{Base: "record"}).base(); base != "record" {
		t.Errorf("Expected base 'record', got '%s'", base)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "modelschema.yaml")
	content := "base: record\nlog_level: debug\nsources:\n  - models\n  - /abs/entities.yaml\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if config.Base != "record" {
		t.Errorf("Expected base 'record', got '%s'", config.Base)
	}
	if config.LogLevel != "debug" {
		t.Errorf("Expected log level 'debug', got '%s'", config.LogLevel)
	}
	if len(config.Sources) != 2 {
		t.Fatalf("Expected 2 sources, got %d", len(config.Sources))
	}
	if config.Sources[0] != filepath.Join(dir, "models") {
		t.Errorf("Expected relative source to resolve against config dir, got '%s'", config.Sources[0])
	}
	if config.Sources[1] != "/abs/entities.yaml" {
		t.Errorf("Expected absolute source unchanged, got '%s'", config.Sources[1])
	}
}

func TestMutatorTypeProperty(t *testing.T) {
	tests := map[MutatorType]string{
		MutatorGetter:   PropertyGetters,
		MutatorSetter:   PropertySetters,
		MutatorAccessor: PropertyAccessors,
	}
	for kind, expected := range tests {
		if kind.property() != expected {
			t.Errorf("Expected %s to map to '%s', got '%s'", kind, expected, kind.property())
		}
	}
}

func TestBuiltinFilters(t *testing.T) {
	tests := []struct {
		name     string
		filter   string
		input    any
		expected any
	}{
		{"int from numeric string", FilterInt, "900", 900},
		{"int from prefixed string", FilterInt, "12abc", 12},
		{"int from text", FilterInt, "abc", 0},
		{"int from empty list", FilterInt, []any{}, 0},
		{"int from list", FilterInt, []any{1}, 1},
		{"int from float", FilterInt, 3.9, 3},
		{"int from bool", FilterInt, true, 1},
		{"int from nil", FilterInt, nil, 0},
		{"int from int64", FilterInt, int64(42), 42},
		{"float from string", FilterFloat, "1.5kg", 1.5},
		{"float from int", FilterFloat, 2, float64(2)},
		{"string from int", FilterString, 15, "15"},
		{"string from float", FilterString, 1.25, "1.25"},
		{"string from bool", FilterString, false, "false"},
		{"bool from zero string", FilterBool, "0", false},
		{"bool from text", FilterBool, "yes", true},
		{"bool from empty", FilterBool, "", false},
		{"bool from int", FilterBool, 5, true},
		{"upper", FilterUpper, "bob", "BOB"},
		{"lower", FilterLower, "BoB", "bob"},
		{"trim", FilterTrim, "  bob ", "bob"},
	}

	filters := builtinFilters()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := filters[tt.filter](tt.input)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %v (%T), got %v (%T)", tt.expected, tt.expected, got, got)
			}
		})
	}
}

func TestBuiltinFiltersReject(t *testing.T) {
	if _, err := ToInt(struct{}{}); err == nil {
		t.Error("Expected int conversion of a struct to fail")
	}
	if _, err := ToString([]any{"a"}); err == nil {
		t.Error("Expected string conversion of a list to fail")
	}
	if _, err := stringFilter(func(s string) string { return s })(map[string]any{}); err == nil {
		t.Error("Expected string filter of a map to fail")
	}
}

func TestTransformAccessor(t *testing.T) {
	factory := NewTransformAccessor(stringFilter(func(s string) string { return s + "!" }))

	accessor, err := factory("hi")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if accessor.PackValue() != "hi!" {
		t.Errorf("Expected packed value 'hi!', got '%v'", accessor.PackValue())
	}
	if err := accessor.SetValue("yo"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if s := accessor.(*TransformAccessor).String(); s != "yo!" {
		t.Errorf("Expected 'yo!', got '%s'", s)
	}

	if _, err := factory(struct{}{}); err == nil {
		t.Error("Expected factory to reject a struct")
	}
}
