package ast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/clangbind/pkg/ast"
)

func TestKind_NamesAreUniqueAndRoundTrip(t *testing.T) {
	t.Parallel()

	seen := make(map[string]ast.Kind)

	for _, k := range ast.AllKinds() {
		name := k.String()
		require.NotEmpty(t, name, "kind %d has no name", k)

		prev, dup := seen[name]
		require.False(t, dup, "name %q shared by %d and %d", name, prev, k)

		seen[name] = k

		back, ok := ast.KindFromName(name)
		require.True(t, ok)
		assert.Equal(t, k, back)
	}
}

func TestKind_Categories(t *testing.T) {
	t.Parallel()

	assert.True(t, ast.KindStructDecl.IsDeclaration())
	assert.True(t, ast.KindStaticAssert.IsDeclaration())
	assert.False(t, ast.KindTypeRef.IsDeclaration())
	assert.True(t, ast.KindCXXBaseSpecifier.IsReference())
	assert.True(t, ast.KindCallExpr.IsExpression())
	assert.True(t, ast.KindCompoundStmt.IsStatement())
	assert.True(t, ast.KindInclusionDirective.IsPreprocessing())
	assert.True(t, ast.KindTranslationUnit.IsTranslationUnit())
	assert.True(t, ast.KindInvalid.IsInvalid())
	assert.True(t, ast.Kind(60000).IsInvalid())
	assert.Equal(t, "INVALID_FILE", ast.Kind(60000).String())
	assert.True(t, ast.KindConstructor.IsFunctionLike())
	assert.False(t, ast.KindFieldDecl.IsFunctionLike())
	assert.True(t, ast.KindUnionDecl.IsRecord())
}

func TestKind_EveryKindHasExactlyOneCategory(t *testing.T) {
	t.Parallel()

	for _, k := range ast.AllKinds() {
		if k == ast.KindInvalid {
			continue
		}

		count := 0

		for _, pred := range []func() bool{
			k.IsDeclaration, k.IsReference, k.IsExpression,
			k.IsStatement, k.IsTranslationUnit, k.IsPreprocessing,
		} {
			if pred() {
				count++
			}
		}

		assert.Equal(t, 1, count, "kind %s", k)
	}
}

func TestParseType(t *testing.T) {
	t.Parallel()

	isRecord := func(name string) bool { return name == "Point" }

	tests := []struct {
		in       string
		spelling string
		kind     ast.TypeKind
		isConst  bool
		pointee  ast.TypeKind
	}{
		{in: "int", spelling: "int", kind: ast.TypeInt},
		{in: "unsigned  int", spelling: "unsigned int", kind: ast.TypeUInt},
		{in: "double", spelling: "double", kind: ast.TypeDouble},
		{in: "void", spelling: "void", kind: ast.TypeVoid},
		{in: "const int", spelling: "const int", kind: ast.TypeInt, isConst: true},
		{in: "int*", spelling: "int *", kind: ast.TypePointer, pointee: ast.TypeInt},
		{in: "const Point&", spelling: "const Point &", kind: ast.TypeLValueReference, pointee: ast.TypeRecord},
		{in: "Point&&", spelling: "Point &&", kind: ast.TypeRValueReference, pointee: ast.TypeRecord},
		{in: "struct Foo", spelling: "struct Foo", kind: ast.TypeRecord},
		{in: "enum Color", spelling: "enum Color", kind: ast.TypeEnum},
		{in: "std::vector<T>", spelling: "std::vector<T>", kind: ast.TypeUnexposed},
		{in: "Other", spelling: "Other", kind: ast.TypeElaborated},
		{in: "int[4]", spelling: "int[4]", kind: ast.TypeConstantArray},
		{in: "char **", spelling: "char **", kind: ast.TypePointer, pointee: ast.TypePointer},
		{in: "int * const", spelling: "int * const", kind: ast.TypePointer, isConst: true, pointee: ast.TypeInt},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got := ast.ParseType(tt.in, isRecord)
			assert.Equal(t, tt.spelling, got.Spelling)
			assert.Equal(t, tt.kind, got.Kind, "kind %s", got.Kind)
			assert.Equal(t, tt.isConst, got.Const)

			if tt.pointee != ast.TypeInvalid {
				require.NotNil(t, got.Pointee)
				assert.Equal(t, tt.pointee, got.Pointee.Kind)
			}
		})
	}
}

func TestParseType_Empty(t *testing.T) {
	t.Parallel()

	got := ast.ParseType("   ", nil)
	assert.False(t, got.IsValid())
	assert.Equal(t, "INVALID", got.Kind.String())
}

func TestParseAccess(t *testing.T) {
	t.Parallel()

	acc, ok := ast.ParseAccess("public")
	require.True(t, ok)
	assert.Equal(t, "PUBLIC", acc.String())

	acc, ok = ast.ParseAccess("PRIVATE")
	require.True(t, ok)
	assert.Equal(t, ast.AccessPrivate, acc)

	_, ok = ast.ParseAccess("friendly")
	assert.False(t, ok)
}

func TestDiagnostics_Worst(t *testing.T) {
	t.Parallel()

	ds := ast.Diagnostics{
		{Severity: ast.SeverityWarning, Message: "unused"},
		{Severity: ast.SeverityError, Message: "expected ';'", Location: ast.Location{File: "a.cpp", Line: 3, Column: 7}},
	}

	assert.Equal(t, ast.SeverityError, ds.Worst())
	assert.Len(t, ds.AtLeast(ast.SeverityError), 1)
	assert.Equal(t, "warning: unused\na.cpp:3:7: error: expected ';'", ds.String())
	assert.Equal(t, ast.SeverityIgnored, ast.Diagnostics(nil).Worst())
}

func TestNode_Children(t *testing.T) {
	t.Parallel()

	root := (&ast.Node{K: ast.KindTranslationUnit, Name: "a.cpp"}).Add(
		&ast.Node{K: ast.KindFunctionDecl, Name: "F"},
		&ast.Node{K: ast.KindVarDecl, Name: "v"},
	)

	kids := root.Children()
	require.Len(t, kids, 2)
	assert.Equal(t, "F", kids[0].Spelling())
	assert.Equal(t, ast.KindVarDecl, kids[1].Kind())

	root.SetAttr("x", 1)
	assert.Equal(t, 1, root.Attributes()["x"])
}
