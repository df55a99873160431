// Package schemadsl parses a compact declaration language into entity declarations.
//
//	# comments run to the end of the line
//	entity user extends base uses audit, timestamps {
//	    fields id, name, email;
//	    fillable name, email;
//	    secured *;
//	    setter id = int;
//	    getter email = lower;
//	    accessor address = "address";
//	    schema table = "users";
//	    const PRIMARY = "id";
//	    property connection = "default";
//	}
//
//	plain entity settings { fillable *; }
package schemadsl

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/spiral/models"
)

// --- Grammar ---

// File is the top-level grammar: any number of entity definitions
type File struct {
	Entities []*EntityDef `parser:"@@*"`
}

// EntityDef parses: [plain] entity name [extends parent] [uses trait, ...] { clause* }
type EntityDef struct {
	Pos     lexer.Position
	Plain   bool      `parser:"@'plain'?"`
	Name    string    `parser:"'entity' @Ident"`
	Extends string    `parser:"( 'extends' @Ident )?"`
	Uses    []string  `parser:"( 'uses' @Ident ( ',' @Ident )* )?"`
	Clauses []*Clause `parser:"'{' @@* '}'"`
}

// Clause is one statement inside an entity body
type Clause struct {
	Pos      lexer.Position
	Fields   *FieldList `parser:"  'fields' @@ ';'"`
	Fillable *FieldList `parser:"| 'fillable' @@ ';'"`
	Secured  *FieldList `parser:"| 'secured' @@ ';'"`
	Getter   *Binding   `parser:"| 'getter' @@ ';'"`
	Setter   *Binding   `parser:"| 'setter' @@ ';'"`
	Accessor *Binding   `parser:"| 'accessor' @@ ';'"`
	Schema   *Assign    `parser:"| 'schema' @@ ';'"`
	Const    *Assign    `parser:"| 'const' @@ ';'"`
	Property *Assign    `parser:"| 'property' @@ ';'"`
}

// FieldList parses: * | name, name, ... | (nothing)
type FieldList struct {
	All   bool     `parser:"(  @'*'"`
	Names []string `parser:"  | @Ident ( ',' @Ident )* )?"`
}

// Binding parses: field = ref
type Binding struct {
	Field string `parser:"@Ident '='"`
	Ref   string `parser:"@( Ident | String )"`
}

// Assign parses: key = literal
type Assign struct {
	Key   string   `parser:"@Ident '='"`
	Value *Literal `parser:"@@"`
}

// Literal is a string, number, boolean, null or list
type Literal struct {
	String *string    `parser:"  @String"`
	Number *string    `parser:"| @Number"`
	Bool   *Boolean   `parser:"| @( 'true' | 'false' )"`
	Null   bool       `parser:"| @'null'"`
	List   bool       `parser:"| @'['"`
	Items  []*Literal `parser:"  ( @@ ( ',' @@ )* )? ']'"`
}

// Boolean captures true and false
type Boolean bool

// Capture implements participle.Capture
func (b *Boolean) Capture(values []string) error {
	*b = values[0] == "true"
	return nil
}

var dslLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `[\s]+`},
	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"`},
	{Name: "Number", Pattern: `-?[0-9]+(?:\.[0-9]+)?`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_\-]*`},
	{Name: "Punct", Pattern: `[{};,=*\[\]]`},
})

var parser = participle.MustBuild[File](
	participle.Lexer(dslLexer),
	participle.Unquote("String"),
	participle.Elide("Comment", "Whitespace"),
	participle.UseLookahead(2),
)

// --- Entry points ---

// Parse parses declarations from source text
func Parse(source string) ([]*models.Declaration, error) {
	return parse("schema.models", source)
}

// ParseFile reads and parses a declaration file
func ParseFile(path string) ([]*models.Declaration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, models.NewErrorWithCause(models.ErrorTypeSchema, fmt.Sprintf("failed to read %s", path), err)
	}
	return parse(path, string(data))
}

// Load parses declaration files and registers every declaration
func Load(registry *models.Registry, paths ...string) error {
	for _, path := range paths {
		decls, err := ParseFile(path)
		if err != nil {
			return err
		}
		for _, decl := range decls {
			if err := registry.Register(decl); err != nil {
				return err
			}
		}
	}
	return nil
}

func parse(filename, source string) ([]*models.Declaration, error) {
	ast, err := parser.ParseString(filename, source)
	if err != nil {
		return nil, models.NewErrorWithCause(models.ErrorTypeSchema, "failed to parse declarations", err)
	}

	decls := make([]*models.Declaration, 0, len(ast.Entities))
	for _, def := range ast.Entities {
		decl, err := convertEntity(def)
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
	}
	return decls, nil
}

// --- Conversion ---

func convertEntity(def *EntityDef) (*models.Declaration, error) {
	decl := models.Declare(def.Name)
	if def.Extends != "" {
		decl.Extends(def.Extends)
	}
	if def.Plain {
		decl.AsPlain()
	}
	if len(def.Uses) > 0 {
		decl.Use(def.Uses...)
	}

	for _, clause := range def.Clauses {
		if err := applyClause(decl, clause); err != nil {
			return nil, models.NewSchemaError(def.Name, fmt.Sprintf("%s: %v", clause.Pos, err), err)
		}
	}
	return decl, nil
}

func applyClause(decl *models.Declaration, clause *Clause) error {
	switch {
	case clause.Fields != nil:
		decl.Fields(clause.Fields.names()...)
	case clause.Fillable != nil:
		decl.Fillable(clause.Fillable.names()...)
	case clause.Secured != nil:
		decl.Secured(clause.Secured.names()...)
	case clause.Getter != nil:
		decl.Getter(clause.Getter.Field, clause.Getter.Ref)
	case clause.Setter != nil:
		decl.Setter(clause.Setter.Field, clause.Setter.Ref)
	case clause.Accessor != nil:
		decl.Accessor(clause.Accessor.Field, clause.Accessor.Ref)
	case clause.Schema != nil:
		value, err := clause.Schema.Value.native()
		if err != nil {
			return err
		}
		decl.Schema(clause.Schema.Key, value)
	case clause.Const != nil:
		value, err := clause.Const.Value.value()
		if err != nil {
			return err
		}
		decl.Const(clause.Const.Key, value)
	case clause.Property != nil:
		value, err := clause.Property.Value.value()
		if err != nil {
			return err
		}
		decl.Set(clause.Property.Key, value)
	}
	return nil
}

func (f *FieldList) names() []string {
	if f.All {
		return []string{models.Wildcard}
	}
	if f.Names == nil {
		return []string{}
	}
	return f.Names
}

// value converts the literal into a property value; lists become arrays
func (l *Literal) value() (models.Value, error) {
	if l.Null {
		return models.Null(), nil
	}
	v, err := l.native()
	if err != nil {
		return models.Null(), err
	}
	if items, ok := v.([]any); ok {
		return models.List(items...), nil
	}
	return models.Scalar(v), nil
}

func (l *Literal) native() (any, error) {
	switch {
	case l.String != nil:
		return *l.String, nil
	case l.Number != nil:
		return parseNumber(*l.Number)
	case l.Bool != nil:
		return bool(*l.Bool), nil
	case l.List:
		items := make([]any, 0, len(l.Items))
		for _, item := range l.Items {
			v, err := item.native()
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	}
	return nil, nil
}

func parseNumber(s string) (any, error) {
	if strings.Contains(s, ".") {
		return strconv.ParseFloat(s, 64)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return int(n), nil
}
