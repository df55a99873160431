package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const entitiesYAML = `
entities:
  - name: test
    fillable: [value]
    setters:
      value: int
    getters:
      value: int
    secured: "*"
  - name: extended
    extends: test
    traits: [audit]
    fillable: [name]
    setters:
      name: string
    getters:
      name: upper
    secured: [name]
  - name: schema
    extends: test
    constants:
      SCHEMA: [nice]
  - name: schemaB
    extends: schema
    schema: [nice2]
  - name: settings
    plain: true
    fillable: [a]
`

func TestParse(t *testing.T) {
	decls, err := Parse([]byte(entitiesYAML))
	require.NoError(t, err)
	require.Len(t, decls, 5)

	extended := decls[1]
	assert.Equal(t, "extended", extended.Name())
	assert.Equal(t, "test", extended.Parent())
	assert.Equal(t, []string{"audit"}, extended.Traits())
	assert.Equal(t, []string{PropertyFillable, PropertySetters, PropertyGetters, PropertySecured}, extended.Properties())

	secured, ok := decls[0].Lookup(PropertySecured)
	require.True(t, ok)
	assert.True(t, secured.IsWildcard())

	setters, _ := extended.Lookup(PropertySetters)
	assert.Equal(t, []Entry{KV("name", "string")}, setters.Entries())

	custom, ok := decls[2].Lookup(PropertySchema)
	require.True(t, ok)
	assert.Equal(t, []any{"nice"}, custom.Native())

	assert.True(t, decls[4].IsPlain())
}

func TestParseMatchesBuilder(t *testing.T) {
	decls, err := Parse([]byte(entitiesYAML))
	require.NoError(t, err)

	parsed := NewRegistry()
	require.NoError(t, parsed.RegisterTrait(Trait{Name: "audit"}))
	require.NoError(t, parsed.Register(decls...))

	built := newTestRegistry(t)
	for _, name := range []string{"test", "extended", "schema", "schemaB"} {
		want, err := built.Describe(name)
		require.NoError(t, err)
		got, err := parsed.Describe(name)
		require.NoError(t, err)

		got.Traits = nil
		assert.Equal(t, want, got, name)
	}
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"invalid yaml":  "entities: [",
		"missing name":  "entities:\n  - fillable: [a]\n",
		"not a mapping": "entities:\n  - user\n",
		"bad plain":     "entities:\n  - name: a\n    plain: maybe\n",
		"bad constants": "entities:\n  - name: a\n    constants: [x]\n",
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(input))
			assert.Error(t, err)
		})
	}
}

func TestParseDirAndLoad(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("entities:\n  - name: a\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "b.yml"), []byte("entities:\n  - name: b\n    extends: a\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	decls, err := ParseDir(dir)
	require.NoError(t, err)
	require.Len(t, decls, 2)

	r := NewRegistry()
	require.NoError(t, r.Load(dir))
	assert.ElementsMatch(t, []string{"a", "b"}, r.Names())
	assert.NoError(t, r.Validate())

	err = NewRegistry().Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	single := NewRegistry()
	require.NoError(t, single.Load(filepath.Join(dir, "a.yaml")))
	assert.Equal(t, []string{"a"}, single.Names())
}
