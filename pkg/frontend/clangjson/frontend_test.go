package clangjson_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/clangbind/pkg/ast"
	"github.com/Sumatoshi-tech/clangbind/pkg/frontend/clangjson"
)

const (
	mainFile   = "testdata/main.cpp"
	shapesFile = "testdata/shapes.h"
)

const clangStderr = `testdata/main.cpp:18:6: warning: function 'draw' has internal linkage but is not defined
void draw(int, double scale);
     ^
1 warning generated.
`

var errExit = errors.New("exit status 1")

type call struct {
	name string
	args []string
}

func fixtureRunner(t *testing.T, calls *[]call) clangjson.Runner {
	t.Helper()

	dump, err := os.ReadFile("testdata/main.json")
	require.NoError(t, err)

	return func(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
		*calls = append(*calls, call{name: name, args: args})

		return dump, []byte(clangStderr), nil
	}
}

func parse(t *testing.T, detailed bool) (*ast.TranslationUnit, []call) {
	t.Helper()

	var calls []call

	fe := clangjson.New(clangjson.Options{Run: fixtureRunner(t, &calls), ExtraArgs: []string{"-w"}})

	sess, err := fe.NewSession()
	require.NoError(t, err)

	t.Cleanup(func() { _ = sess.Close() })

	tu, err := sess.Parse(context.Background(), mainFile, []string{"-std=c++17"}, ast.ParseOptions{DetailedPreprocessing: detailed})
	require.NoError(t, err)

	return tu, calls
}

func walk(c ast.Cursor, visit func(ast.Cursor)) {
	visit(c)

	for _, kid := range c.Children() {
		walk(kid, visit)
	}
}

func find(t *testing.T, root ast.Cursor, kind ast.Kind, name string) ast.Cursor {
	t.Helper()

	var found ast.Cursor

	walk(root, func(c ast.Cursor) {
		if found == nil && c.Kind() == kind && c.Spelling() == name {
			found = c
		}
	})

	require.NotNil(t, found, "no %s %q", kind, name)

	return found
}

func count(root ast.Cursor, kind ast.Kind) int {
	n := 0

	walk(root, func(c ast.Cursor) {
		if c.Kind() == kind {
			n++
		}
	})

	return n
}

func childKinds(c ast.Cursor) []string {
	out := make([]string, 0, len(c.Children()))
	for _, kid := range c.Children() {
		out = append(out, kid.Kind().String()+":"+kid.Spelling())
	}

	return out
}

func TestParse_CommandLine(t *testing.T) {
	t.Parallel()

	_, calls := parse(t, false)
	require.Len(t, calls, 1)

	assert.Equal(t, clangjson.DefaultPath, calls[0].name)
	assert.Equal(t, []string{"-fsyntax-only", "-Xclang", "-ast-dump=json", "-w", "-std=c++17", mainFile}, calls[0].args)
}

func TestParse_TopLevelOrder(t *testing.T) {
	t.Parallel()

	tu, _ := parse(t, true)

	assert.Equal(t, mainFile, tu.Spelling)
	assert.Equal(t, ast.KindTranslationUnit, tu.Cursor.Kind())
	assert.Equal(t, []string{
		"INCLUSION_DIRECTIVE:shapes.h",
		"STRUCT_DECL:Shape",
		"MACRO_DEFINITION:SCALE",
		"NAMESPACE:geo",
	}, childKinds(tu.Cursor))

	inc := find(t, tu.Cursor, ast.KindInclusionDirective, "shapes.h")
	attrs := inc.(ast.Attributer).Attributes()
	assert.Equal(t, false, attrs["angled"])
	assert.Equal(t, shapesFile, attrs["included_file"])
}

func TestParse_WithoutDetailedPreprocessing(t *testing.T) {
	t.Parallel()

	tu, _ := parse(t, false)

	assert.Equal(t, []string{"STRUCT_DECL:Shape", "NAMESPACE:geo"}, childKinds(tu.Cursor))
	assert.Zero(t, count(tu.Cursor, ast.KindMacroDefinition))
}

func TestParse_LocationsAreInherited(t *testing.T) {
	t.Parallel()

	tu, _ := parse(t, false)

	shape := find(t, tu.Cursor, ast.KindStructDecl, "Shape")
	assert.Equal(t, ast.Location{File: shapesFile, Line: 1, Column: 8}, shape.Location())

	point := find(t, tu.Cursor, ast.KindStructDecl, "Point")
	assert.Equal(t, ast.Location{File: mainFile, Line: 4, Column: 8}, point.Location())

	draw := find(t, tu.Cursor, ast.KindFunctionDecl, "draw")
	assert.Equal(t, ast.Location{File: mainFile, Line: 18, Column: 6}, draw.Location())

	r := find(t, tu.Cursor, ast.KindParmDecl, "r")
	assert.Equal(t, ast.Location{File: mainFile, Line: 14, Column: 14}, r.Location())
}

func TestParse_ImplicitNodesAreSkipped(t *testing.T) {
	t.Parallel()

	tu, _ := parse(t, false)

	assert.Equal(t, 2, count(tu.Cursor, ast.KindStructDecl))
	assert.Equal(t, 1, count(tu.Cursor, ast.KindClassDecl))
	assert.Zero(t, count(tu.Cursor, ast.KindTypedefDecl))
}

func TestParse_StructMembers(t *testing.T) {
	t.Parallel()

	tu, _ := parse(t, false)
	point := find(t, tu.Cursor, ast.KindStructDecl, "Point")

	assert.Equal(t, []string{
		"FIELD_DECL:x",
		"FIELD_DECL:y",
		"CONSTRUCTOR:Point",
		"CONSTRUCTOR:Point",
		"VAR_DECL:count",
		"CXX_METHOD:norm",
	}, childKinds(point))
	assert.True(t, point.Traits().Has(ast.TraitDefinition))
	assert.Equal(t, "geo::Point", point.Type().Spelling)

	kids := point.Children()
	for _, kid := range kids {
		assert.Equal(t, ast.AccessPublic, kid.Access(), kid.Spelling())
	}

	y := kids[1]
	assert.True(t, y.Type().Const)
	assert.True(t, y.Traits().Has(ast.TraitHasDefault))
	require.Len(t, y.Children(), 1)
	assert.Equal(t, ast.KindIntegerLiteral, y.Children()[0].Kind())
	assert.Equal(t, int64(0), y.Children()[0].(ast.Attributer).Attributes()["value"])

	assert.True(t, kids[2].Traits().Has(ast.TraitDefaulted))
	assert.Equal(t, ast.TypeVoid, kids[2].ResultType().Kind)

	deleted := kids[3]
	assert.True(t, deleted.Traits().Has(ast.TraitDeleted))
	require.Len(t, deleted.Children(), 1)
	param := deleted.Children()[0]
	assert.Equal(t, ast.KindParmDecl, param.Kind())
	assert.Equal(t, ast.AccessInvalid, param.Access())
	assert.Equal(t, ast.TypeLValueReference, param.Type().Kind)
	assert.Equal(t, ast.TypeRecord, param.Type().Pointee.Kind)

	assert.True(t, kids[4].Traits().Has(ast.TraitStatic))

	norm := kids[5]
	assert.True(t, norm.Traits().Has(ast.TraitConst))
	assert.Equal(t, ast.TypeDouble, norm.ResultType().Kind)
	assert.Equal(t, ast.TypeFunctionProto, norm.Type().Kind)
}

func TestParse_ClassAccessAndInitializers(t *testing.T) {
	t.Parallel()

	tu, _ := parse(t, false)
	circle := find(t, tu.Cursor, ast.KindClassDecl, "Circle")

	assert.Equal(t, []string{
		"CXX_BASE_SPECIFIER:struct Point",
		"CXX_ACCESS_SPEC_DECL:",
		"CONSTRUCTOR:Circle",
		"CXX_ACCESS_SPEC_DECL:",
		"FIELD_DECL:radius",
	}, childKinds(circle))

	kids := circle.Children()
	assert.Equal(t, ast.AccessPublic, kids[0].Access())
	assert.Equal(t, []string{"TYPE_REF:struct Point"}, childKinds(kids[0]))
	assert.Equal(t, ast.AccessPublic, kids[2].Access())
	assert.Equal(t, ast.AccessPrivate, kids[3].Access())
	assert.Equal(t, ast.AccessPrivate, kids[4].Access())

	ctor := kids[2]
	assert.True(t, ctor.Traits().Has(ast.TraitDefinition))
	assert.Equal(t, []string{
		"PARM_DECL:r",
		"TYPE_REF:struct Point",
		"CALL_EXPR:Point",
		"MEMBER_REF:radius",
		"UNEXPOSED_EXPR:",
		"COMPOUND_STMT:",
	}, childKinds(ctor))
	assert.Equal(t, []string{"DECL_REF_EXPR:r"}, childKinds(ctor.Children()[4]))
}

func TestParse_FreeFunctionsAndTemplates(t *testing.T) {
	t.Parallel()

	tu, _ := parse(t, false)

	draw := find(t, tu.Cursor, ast.KindFunctionDecl, "draw")
	assert.Equal(t, ast.AccessInvalid, draw.Access())
	assert.Equal(t, ast.TypeVoid, draw.ResultType().Kind)
	assert.Equal(t, []string{"PARM_DECL:", "PARM_DECL:scale"}, childKinds(draw))
	assert.False(t, draw.Traits().Has(ast.TraitDefinition))

	assert.Equal(t, 1, count(tu.Cursor, ast.KindFunctionTemplate))
	assert.Equal(t, 1, count(tu.Cursor, ast.KindFunctionDecl))

	twice := find(t, tu.Cursor, ast.KindFunctionTemplate, "twice")
	assert.Equal(t, []string{"TEMPLATE_TYPE_PARAMETER:T", "PARM_DECL:v"}, childKinds(twice))
	assert.Equal(t, ast.TypeUnexposed, twice.ResultType().Kind)
	assert.Equal(t, "FUNCTION_DECL", twice.(ast.Attributer).Attributes()["templated_kind"])

	param := twice.Children()[0]
	assert.Equal(t, ast.AccessPublic, param.Access())
	assert.Equal(t, ast.TypeUnexposed, param.Type().Kind)
	assert.Equal(t, ast.TypeUnexposed, twice.Children()[1].Type().Kind)
}

func TestParse_Diagnostics(t *testing.T) {
	t.Parallel()

	tu, _ := parse(t, false)

	require.Len(t, tu.Diagnostics, 1)
	d := tu.Diagnostics[0]
	assert.Equal(t, ast.SeverityWarning, d.Severity)
	assert.Equal(t, ast.Location{File: mainFile, Line: 18, Column: 6}, d.Location)
	assert.Contains(t, d.Message, "'draw'")
}

func TestParse_NoOutput(t *testing.T) {
	t.Parallel()

	fe := clangjson.New(clangjson.Options{
		Run: func(context.Context, string, ...string) ([]byte, []byte, error) {
			return nil, []byte("main.cpp:1:10: fatal error: 'missing.h' file not found\n"), errExit
		},
	})

	sess, err := fe.NewSession()
	require.NoError(t, err)

	_, err = sess.Parse(context.Background(), "main.cpp", nil, ast.ParseOptions{})
	require.Error(t, err)
	require.ErrorIs(t, err, errExit)
	assert.Contains(t, err.Error(), "missing.h")
}

func TestParse_NonZeroExitWithAST(t *testing.T) {
	t.Parallel()

	dump, err := os.ReadFile("testdata/main.json")
	require.NoError(t, err)

	fe := clangjson.New(clangjson.Options{
		Run: func(context.Context, string, ...string) ([]byte, []byte, error) {
			return dump, []byte("testdata/main.cpp:5:3: error: unknown type name 'foo'\n"), errExit
		},
	})

	sess, err := fe.NewSession()
	require.NoError(t, err)

	tu, err := sess.Parse(context.Background(), mainFile, nil, ast.ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, ast.SeverityError, tu.Diagnostics.Worst())
}

func TestParse_BadJSON(t *testing.T) {
	t.Parallel()

	fe := clangjson.New(clangjson.Options{
		Run: func(context.Context, string, ...string) ([]byte, []byte, error) {
			return []byte("{not json"), nil, nil
		},
	})

	sess, err := fe.NewSession()
	require.NoError(t, err)

	_, err = sess.Parse(context.Background(), mainFile, nil, ast.ParseOptions{})
	require.Error(t, err)
}

func TestParse_ClosedSessionAndCanceledContext(t *testing.T) {
	t.Parallel()

	var calls []call

	fe := clangjson.New(clangjson.Options{Run: fixtureRunner(t, &calls)})

	sess, err := fe.NewSession()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = sess.Parse(ctx, mainFile, nil, ast.ParseOptions{})
	require.ErrorIs(t, err, context.Canceled)

	require.NoError(t, sess.Close())

	_, err = sess.Parse(context.Background(), mainFile, nil, ast.ParseOptions{})
	require.Error(t, err)
	assert.Len(t, calls, 1)
}

func TestFrontend_Name(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "clang", clangjson.New(clangjson.Options{}).Name())
}
