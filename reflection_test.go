package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	r := NewRegistry()
	r.MustRegister(
		Declare("test").
			Fillable("value").
			Setter("value", FilterInt).
			Getter("value", FilterInt).
			Secured(Wildcard),
		Declare("extended").
			Extends("test").
			Fillable("name").
			Setter("name", FilterString).
			Getter("name", FilterUpper).
			Secured("name"),
		Declare("schema").
			Extends("test").
			Const("SCHEMA", List("nice")),
		Declare("schemaB").
			Extends("schema").
			Set(PropertySchema, List("nice2")),
	)
	return r
}

func reflectOf(t *testing.T, r *Registry, name string) *Reflection {
	t.Helper()
	rf, err := r.Reflect(name)
	require.NoError(t, err)
	return rf
}

func TestReflectionFillable(t *testing.T) {
	r := newTestRegistry(t)

	fillable, err := reflectOf(t, r, "test").Fillable()
	require.NoError(t, err)
	assert.Equal(t, []string{"value"}, fillable.Names())

	fillable, err = reflectOf(t, r, "extended").Fillable()
	require.NoError(t, err)
	assert.Equal(t, []string{"value", "name"}, fillable.Names())
}

func TestReflectionSecured(t *testing.T) {
	r := newTestRegistry(t)

	secured, err := reflectOf(t, r, "test").Secured()
	require.NoError(t, err)
	assert.True(t, secured.IsAll())

	secured, err = reflectOf(t, r, "extended").Secured()
	require.NoError(t, err)
	assert.False(t, secured.IsAll())
	assert.Equal(t, []string{"name"}, secured.Names())
}

func TestReflectionMutators(t *testing.T) {
	r := newTestRegistry(t)
	rf := reflectOf(t, r, "extended")

	setters, err := rf.Setters()
	require.NoError(t, err)
	assert.Equal(t, []Entry{KV("value", FilterInt), KV("name", FilterString)}, setters)

	getters, err := rf.Getters()
	require.NoError(t, err)
	assert.Equal(t, []Entry{KV("value", FilterInt), KV("name", FilterUpper)}, getters)

	mutators, err := rf.Mutators()
	require.NoError(t, err)
	assert.Equal(t, []MutatorRef{{Field: "value", Name: FilterInt}, {Field: "name", Name: FilterString}}, mutators[MutatorSetter])
	assert.Empty(t, mutators[MutatorAccessor])
}

func TestReflectionCustomSchema(t *testing.T) {
	r := newTestRegistry(t)

	custom, err := reflectOf(t, r, "schema").Custom()
	require.NoError(t, err)
	assert.Equal(t, []any{"nice"}, custom.Native())

	custom, err = reflectOf(t, r, "schemaB").Custom()
	require.NoError(t, err)
	assert.Equal(t, []any{"nice", "nice2"}, custom.Native())
}

func TestReflectionInheritsAbsentProperty(t *testing.T) {
	r := newTestRegistry(t)
	rf := reflectOf(t, r, "schemaB")

	fillable, err := rf.Fillable()
	require.NoError(t, err)
	assert.Equal(t, []string{"value"}, fillable.Names())

	value, err := rf.Property("unknown", true)
	require.NoError(t, err)
	assert.True(t, value.IsNull())
}

func TestReflectionPropertyWithoutMerge(t *testing.T) {
	r := newTestRegistry(t)
	rf := reflectOf(t, r, "extended")

	own, err := rf.Property(PropertyFillable, false)
	require.NoError(t, err)
	assert.Equal(t, []any{"name"}, own.Native())

	inherited, err := reflectOf(t, r, "schemaB").Property(PropertySetters, false)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"value": FilterInt}, inherited.Native())
}

func TestReflectionWildcardShortCircuits(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(
		Declare("base").Fillable("a", "b"),
		Declare("open").Extends("base").Fillable(Wildcard),
	)

	fillable, err := reflectOf(t, r, "open").Fillable()
	require.NoError(t, err)
	assert.True(t, fillable.IsAll())
}

func TestReflectionParent(t *testing.T) {
	r := newTestRegistry(t)

	parent, err := reflectOf(t, r, "extended").Parent()
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.Equal(t, "test", parent.Name())

	root, err := parent.Parent()
	require.NoError(t, err)
	assert.Nil(t, root)
}

func TestReflectionParentStopsAtBase(t *testing.T) {
	r := NewRegistry(WithConfig(Config{Base: "record"}))
	r.MustRegister(
		Declare("record").Fillable("ignored"),
		Declare("user").Extends("record").Fillable("name"),
	)

	fillable, err := reflectOf(t, r, "user").Fillable()
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, fillable.Names())
}

func TestReflectionUnknownParent(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Declare("orphan").Extends("missing").Fillable("a"))

	_, err := reflectOf(t, r, "orphan").Fillable()
	require.Error(t, err)
	assert.True(t, IsSchema(err))
	assert.True(t, IsNotFound(errors.Unwrap(err)))
}

func TestReflectionCycle(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(
		Declare("a").Extends("b").Fillable("x"),
		Declare("b").Extends("a").Fillable("y"),
	)

	_, err := reflectOf(t, r, "a").Fillable()
	require.Error(t, err)
	assert.True(t, IsSchema(err))
	assert.Contains(t, err.Error(), "inheritance cycle")
}

func TestReflectionPlainDeclaration(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(
		Declare("parent").Fillable("a"),
		Declare("plain").AsPlain().Extends("parent").Fillable("b"),
	)
	r.OnDescribe(Wildcard, Wildcard, func(e *DescribeEvent) error {
		e.SetValue(List("hooked"))
		return nil
	})

	rf := reflectOf(t, r, "plain")
	assert.False(t, rf.IsEntity())

	fillable, err := rf.Property(PropertyFillable, true)
	require.NoError(t, err)
	assert.Equal(t, []any{"b"}, fillable.Native())

	secured, err := rf.Property(PropertySecured, true)
	require.NoError(t, err)
	assert.True(t, secured.IsNull())
}

func TestReflectionDescribeHook(t *testing.T) {
	r := newTestRegistry(t)

	var calls int
	r.OnDescribe("extended", PropertyFillable, func(e *DescribeEvent) error {
		calls++
		assert.Equal(t, PropertyFillable, e.Property())
		assert.Equal(t, []any{"value", "name"}, e.Value().Native())
		assert.Equal(t, "extended", e.Reflection().Name())
		e.SetValue(List("value", "name", "other"))
		return nil
	})

	rf := reflectOf(t, r, "extended")
	fillable, err := rf.Fillable()
	require.NoError(t, err)
	assert.Equal(t, []string{"value", "name", "other"}, fillable.Names())

	_, err = rf.Fillable()
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "described values are cached")

	_, err = rf.Clone().Fillable()
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "clones start with an empty cache")
}

func TestReflectionHookOrder(t *testing.T) {
	r := NewRegistry()
	var order []string
	record := func(name string) DescribeHook {
		return func(e *DescribeEvent) error {
			order = append(order, name)
			e.SetValue(e.Value().With(Item(name)))
			return nil
		}
	}

	require.NoError(t, r.RegisterTrait(Trait{Name: "first", Describe: map[string]DescribeHook{PropertyFillable: record("trait-first")}}))
	require.NoError(t, r.RegisterTrait(Trait{Name: "second", Describe: map[string]DescribeHook{Wildcard: record("trait-second")}}))
	r.OnDescribe(Wildcard, PropertyFillable, record("global"))
	r.OnDescribe("user", PropertyFillable, record("user"))
	r.MustRegister(Declare("user").Use("first", "second").Fillable("name"))

	fillable, err := reflectOf(t, r, "user").Fillable()
	require.NoError(t, err)
	assert.Equal(t, []string{"trait-first", "trait-second", "user", "global"}, order)
	assert.Equal(t, []string{"name", "trait-first", "trait-second", "user", "global"}, fillable.Names())
}

func TestReflectionTraitInjectsAbsentProperty(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterTrait(Trait{
		Name: "timestamps",
		Describe: map[string]DescribeHook{
			PropertySetters: func(e *DescribeEvent) error {
				e.SetValue(e.Value().With(KV("created_at", FilterInt)))
				return nil
			},
		},
	}))
	r.MustRegister(Declare("post").Use("timestamps"))

	setters, err := reflectOf(t, r, "post").Setters()
	require.NoError(t, err)
	assert.Equal(t, []Entry{KV("created_at", FilterInt)}, setters)
}

func TestReflectionUnknownTrait(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Declare("user").Use("missing"))

	_, err := reflectOf(t, r, "user").Fillable()
	require.Error(t, err)
	assert.True(t, IsSchema(err))
	assert.Contains(t, err.Error(), "unknown trait 'missing'")
}

func TestReflectionHookError(t *testing.T) {
	r := newTestRegistry(t)
	cause := errors.New("boom")
	r.OnDescribe(Wildcard, PropertySecured, func(*DescribeEvent) error { return cause })

	_, err := reflectOf(t, r, "test").Secured()
	require.Error(t, err)
	assert.True(t, IsSchema(err))
	assert.ErrorIs(t, err, cause)
}

func TestReflectionRecursiveDescribe(t *testing.T) {
	r := newTestRegistry(t)
	r.OnDescribe("test", PropertyFillable, func(e *DescribeEvent) error {
		_, err := e.Reflection().Property(PropertyFillable, true)
		return err
	})

	_, err := reflectOf(t, r, "test").Fillable()
	require.Error(t, err)
	assert.True(t, IsSchema(err))
}

func TestReflectionHookReadsOtherProperty(t *testing.T) {
	r := newTestRegistry(t)
	r.OnDescribe("extended", PropertyFields, func(e *DescribeEvent) error {
		fillable, err := e.Reflection().Property(PropertyFillable, true)
		if err != nil {
			return err
		}
		e.SetValue(fillable)
		return nil
	})

	fields, err := reflectOf(t, r, "extended").Fields()
	require.NoError(t, err)
	assert.Equal(t, []string{"value", "name"}, fields.Names())
}

func TestReflectionMalformedMetadata(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(
		Declare("badFillable").Set(PropertyFillable, Scalar(10)),
		Declare("badSetters").Set(PropertySetters, Scalar("int")),
		Declare("positionalSetters").Set(PropertySetters, List("int")),
	)

	_, err := reflectOf(t, r, "badFillable").Fillable()
	assert.True(t, IsSchema(err))

	_, err = reflectOf(t, r, "badSetters").Setters()
	assert.True(t, IsSchema(err))

	_, err = reflectOf(t, r, "positionalSetters").Setters()
	assert.True(t, IsSchema(err))
}

func TestReflectionSchema(t *testing.T) {
	r := newTestRegistry(t)

	schema, err := reflectOf(t, r, "extended").Schema()
	require.NoError(t, err)

	assert.Equal(t, "extended", schema.Name())
	assert.Equal(t, []string{"value", "name"}, schema.Fillable().Names())
	assert.True(t, schema.IsOpen())

	setter, ok := schema.Setter("value")
	require.True(t, ok)
	v, err := setter("900")
	require.NoError(t, err)
	assert.Equal(t, 900, v)

	getter, ok := schema.Getter("name")
	require.True(t, ok)
	v, err = getter("bob")
	require.NoError(t, err)
	assert.Equal(t, "BOB", v)

	_, ok = schema.Accessor("name")
	assert.False(t, ok)
}

func TestReflectionSchemaFuncMutators(t *testing.T) {
	r := NewRegistry()
	double := func(v any) any { return v.(int) * 2 }
	r.MustRegister(Declare("calc").
		Setter("n", double).
		Getter("n", Filter(func(v any) (any, error) { return v, nil })).
		Accessor("tag", NewTransformAccessor(ToString)))

	schema, err := reflectOf(t, r, "calc").Schema()
	require.NoError(t, err)

	setter, ok := schema.Setter("n")
	require.True(t, ok)
	v, err := setter(4)
	require.NoError(t, err)
	assert.Equal(t, 8, v)

	assert.Equal(t, []MutatorRef{{Field: "n", Name: "func"}}, schema.Mutators(MutatorSetter))
	_, ok = schema.Accessor("tag")
	assert.True(t, ok)
}

func TestReflectionSchemaUnknownMutator(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(
		Declare("badFilter").Setter("id", "nope"),
		Declare("badAccessor").Accessor("name", "nope"),
		Declare("badRef").Getter("id", 42),
	)

	for _, name := range []string{"badFilter", "badAccessor", "badRef"} {
		_, err := reflectOf(t, r, name).Schema()
		assert.True(t, IsSchema(err), name)
	}
}
