package treesitter_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/clangbind/pkg/ast"
	"github.com/Sumatoshi-tech/clangbind/pkg/frontend/treesitter"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func parseFile(t *testing.T, opts treesitter.Options, file string, args ...string) *ast.TranslationUnit {
	t.Helper()

	sess, err := treesitter.New(opts).NewSession()
	require.NoError(t, err)

	t.Cleanup(func() { _ = sess.Close() })

	tu, err := sess.Parse(context.Background(), file, args, ast.ParseOptions{DetailedPreprocessing: true})
	require.NoError(t, err)

	return tu
}

func parseSource(t *testing.T, src string, args ...string) *ast.TranslationUnit {
	t.Helper()

	return parseFile(t, treesitter.Options{}, writeFile(t, t.TempDir(), "main.cpp", src), args...)
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

func TestParse_TranslationUnit(t *testing.T) {
	t.Parallel()

	file := writeFile(t, t.TempDir(), "main.cpp", "int x;\n")
	tu := parseFile(t, treesitter.Options{}, file)

	assert.Equal(t, file, tu.Spelling)
	assert.Equal(t, ast.KindTranslationUnit, tu.Cursor.Kind())
	assert.Equal(t, file, tu.Cursor.Spelling())
	assert.Empty(t, tu.Diagnostics)

	x := find(t, tu.Cursor, ast.KindVarDecl, "x")
	assert.Equal(t, ast.Location{File: file, Line: 1, Column: 5}, x.Location())
	assert.Equal(t, ast.TypeInt, x.Type().Kind)
	assert.Equal(t, ast.AccessInvalid, x.Access())
}

func TestParse_StructFieldsAndMethods(t *testing.T) {
	t.Parallel()

	tu := parseSource(t, `
struct Point {
    int x;
    const double y = 1.5;
    static int count;
    Point(int a, double b);
    ~Point();
    double norm() const;
    static Point origin();
    Point& operator+=(const Point& other);
};
`)

	point := find(t, tu.Cursor, ast.KindStructDecl, "Point")
	assert.True(t, point.Traits().Has(ast.TraitDefinition))
	assert.Equal(t, ast.TypeRecord, point.Type().Kind)

	x := find(t, point, ast.KindFieldDecl, "x")
	assert.Equal(t, ast.AccessPublic, x.Access())

	y := find(t, point, ast.KindFieldDecl, "y")
	assert.True(t, y.Type().Const)
	assert.True(t, y.Traits().Has(ast.TraitHasDefault))

	cnt := find(t, point, ast.KindVarDecl, "count")
	assert.True(t, cnt.Traits().Has(ast.TraitStatic))

	ctor := find(t, point, ast.KindConstructor, "Point")
	assert.Equal(t, "void", ctor.ResultType().Spelling)
	require.Len(t, ctor.Children(), 2)
	assert.Equal(t, "int", ctor.Children()[0].Type().Spelling)
	assert.Equal(t, "double", ctor.Children()[1].Type().Spelling)

	find(t, point, ast.KindDestructor, "~Point")

	norm := find(t, point, ast.KindCXXMethod, "norm")
	assert.True(t, norm.Traits().Has(ast.TraitConst))
	assert.Equal(t, "double", norm.ResultType().Spelling)
	assert.Equal(t, "double () const", norm.Type().Spelling)

	origin := find(t, point, ast.KindCXXMethod, "origin")
	assert.True(t, origin.Traits().Has(ast.TraitStatic))
	assert.Equal(t, ast.TypeRecord, origin.ResultType().Kind)

	op := find(t, point, ast.KindCXXMethod, "operator+=")
	assert.Equal(t, ast.TypeLValueReference, op.ResultType().Kind)

	other := find(t, op, ast.KindParmDecl, "other")
	assert.Equal(t, "const Point &", other.Type().Spelling)
	assert.Equal(t, ast.TypeLValueReference, other.Type().Kind)
	assert.True(t, other.Type().Pointee.Const)
}

func TestParse_ClassAccess(t *testing.T) {
	t.Parallel()

	tu := parseSource(t, `
class Account {
    int id;
public:
    void deposit(long amount);
protected:
    int balance;
private:
    void audit();
};
`)

	acct := find(t, tu.Cursor, ast.KindClassDecl, "Account")
	assert.Equal(t, ast.AccessPrivate, find(t, acct, ast.KindFieldDecl, "id").Access())
	assert.Equal(t, ast.AccessPublic, find(t, acct, ast.KindCXXMethod, "deposit").Access())
	assert.Equal(t, ast.AccessProtected, find(t, acct, ast.KindFieldDecl, "balance").Access())
	assert.Equal(t, ast.AccessPrivate, find(t, acct, ast.KindCXXMethod, "audit").Access())
	assert.Equal(t, 3, count(acct, ast.KindCXXAccessSpecifier))
}

func TestParse_SpecialMembers(t *testing.T) {
	t.Parallel()

	tu := parseSource(t, `
struct Widget {
    Widget() = default;
    Widget(const Widget&) = delete;
    virtual void draw() = 0;
    virtual void resize(int w) override;
};
`)

	widget := find(t, tu.Cursor, ast.KindStructDecl, "Widget")

	var ctors []ast.Cursor

	for _, kid := range widget.Children() {
		if kid.Kind() == ast.KindConstructor {
			ctors = append(ctors, kid)
		}
	}

	require.Len(t, ctors, 2)
	assert.True(t, ctors[0].Traits().Has(ast.TraitDefaulted))
	assert.True(t, ctors[1].Traits().Has(ast.TraitDeleted))

	draw := find(t, widget, ast.KindCXXMethod, "draw")
	assert.True(t, draw.Traits().Has(ast.TraitPureVirtual))
	assert.True(t, draw.Traits().Has(ast.TraitVirtual))

	resize := find(t, widget, ast.KindCXXMethod, "resize")
	assert.True(t, resize.Traits().Has(ast.TraitOverride))
}

func TestParse_NamespacesAndFunctions(t *testing.T) {
	t.Parallel()

	tu := parseSource(t, `
namespace outer {
namespace inner {
int add(int a, int b) { return a + b; }
}
void log(const char* msg, ...);
}
`)

	outer := find(t, tu.Cursor, ast.KindNamespace, "outer")
	inner := find(t, outer, ast.KindNamespace, "inner")

	add := find(t, inner, ast.KindFunctionDecl, "add")
	assert.True(t, add.Traits().Has(ast.TraitDefinition))
	assert.Equal(t, "int (int, int)", add.Type().Spelling)
	assert.Equal(t, []string{"PARM_DECL:a", "PARM_DECL:b", "COMPOUND_STMT:"}, childKinds(add))

	ret := find(t, add, ast.KindReturnStmt, "")
	bin := find(t, ret, ast.KindBinaryOperator, "")
	assert.Equal(t, []string{"UNEXPOSED_EXPR:a", "UNEXPOSED_EXPR:b"}, childKinds(bin))
	find(t, bin, ast.KindDeclRefExpr, "a")

	logFn := find(t, outer, ast.KindFunctionDecl, "log")
	assert.True(t, logFn.Traits().Has(ast.TraitVariadic))
	assert.False(t, logFn.Traits().Has(ast.TraitDefinition))
	assert.Equal(t, "const char *", find(t, logFn, ast.KindParmDecl, "msg").Type().Spelling)
}

func TestParse_Enums(t *testing.T) {
	t.Parallel()

	tu := parseSource(t, `
enum Color { Red, Green = 5, Blue };
enum class Mode : unsigned char { Off, On };
`)

	color := find(t, tu.Cursor, ast.KindEnumDecl, "Color")
	assert.False(t, color.Traits().Has(ast.TraitScoped))

	values := map[string]any{}

	for _, kid := range color.Children() {
		attrs := kid.(ast.Attributer).Attributes()
		values[kid.Spelling()] = attrs["enum_value"]
	}

	assert.Equal(t, map[string]any{"Red": int64(0), "Green": int64(5), "Blue": int64(6)}, values)

	mode := find(t, tu.Cursor, ast.KindEnumDecl, "Mode")
	assert.True(t, mode.Traits().Has(ast.TraitScoped))
	assert.Len(t, mode.Children(), 2)
	assert.Equal(t, ast.TypeEnum, find(t, mode, ast.KindEnumConstantDecl, "On").Type().Kind)
}

func TestParse_InheritanceAndInitializers(t *testing.T) {
	t.Parallel()

	tu := parseSource(t, `
struct Base { int v; };
class Derived : public Base {
public:
    Derived(int x) : Base(), w(x) {}
    int w;
};
`)

	derived := find(t, tu.Cursor, ast.KindClassDecl, "Derived")

	base := find(t, derived, ast.KindCXXBaseSpecifier, "struct Base")
	assert.Equal(t, ast.AccessPublic, base.Access())
	find(t, base, ast.KindTypeRef, "struct Base")

	ctor := find(t, derived, ast.KindConstructor, "Derived")
	assert.True(t, ctor.Traits().Has(ast.TraitDefinition))
	find(t, ctor, ast.KindMemberRef, "w")
	find(t, ctor, ast.KindTypeRef, "struct Base")
}

func TestParse_Templates(t *testing.T) {
	t.Parallel()

	tu := parseSource(t, `
template <typename T, int N = 4>
struct Buffer {
    T data[N];
    T get(int i) const;
};

template <class T>
T max_of(T a, T b) { return a > b ? a : b; }
`)

	buf := find(t, tu.Cursor, ast.KindClassTemplate, "Buffer")

	tparam := find(t, buf, ast.KindTemplateTypeParameter, "T")
	assert.Equal(t, ast.AccessPublic, tparam.Access())
	assert.Equal(t, ast.TypeUnexposed, tparam.Type().Kind)

	n := find(t, buf, ast.KindTemplateNonTypeParameter, "N")
	assert.True(t, n.Traits().Has(ast.TraitHasDefault))

	get := find(t, buf, ast.KindCXXMethod, "get")
	assert.Equal(t, ast.TypeUnexposed, get.ResultType().Kind)

	fn := find(t, tu.Cursor, ast.KindFunctionTemplate, "max_of")
	assert.Equal(t, "TEMPLATE_TYPE_PARAMETER:T", childKinds(fn)[0])
	find(t, fn, ast.KindConditionalOperator, "")
}

func TestParse_AnonymousAndNestedRecords(t *testing.T) {
	t.Parallel()

	tu := parseSource(t, `
struct Outer {
    struct Inner { int a; } inner;
    union { int i; float f; };
};
`)

	outer := find(t, tu.Cursor, ast.KindStructDecl, "Outer")
	inner := find(t, outer, ast.KindStructDecl, "Inner")
	assert.Equal(t, "Outer::Inner", inner.Type().Spelling)

	field := find(t, outer, ast.KindFieldDecl, "inner")
	assert.Equal(t, ast.TypeRecord, field.Type().Kind)

	var anon ast.Cursor

	for _, kid := range outer.Children() {
		if kid.Kind() == ast.KindUnionDecl {
			anon = kid
		}
	}

	require.NotNil(t, anon)
	assert.True(t, anon.Traits().Has(ast.TraitAnonymous))
	assert.Empty(t, anon.Spelling())
	assert.Len(t, anon.Children(), 2)
}

func TestParse_IncludesExpandProjectHeaders(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "inc/shapes.h", `#pragma once
struct Shape { virtual double area() const = 0; };
`)
	writeFile(t, dir, "local.h", `#ifndef LOCAL_H
#define LOCAL_H
int local_value();
#endif
`)
	main := writeFile(t, dir, "main.cpp", `#include "local.h"
#include "local.h"
#include <shapes.h>
#include <vector>
double total(const Shape& s);
`)

	tu := parseFile(t, treesitter.Options{}, main, "-I"+filepath.Join(dir, "inc"))

	assert.Equal(t, 4, count(tu.Cursor, ast.KindInclusionDirective))
	assert.Equal(t, 2, count(tu.Cursor, ast.KindFunctionDecl), "local_value is declared once")

	shape := find(t, tu.Cursor, ast.KindStructDecl, "Shape")
	assert.Equal(t, filepath.Join(dir, "inc", "shapes.h"), shape.Location().File)
	assert.Equal(t, 2, shape.Location().Line)

	local := find(t, tu.Cursor, ast.KindFunctionDecl, "local_value")
	assert.Equal(t, filepath.Join(dir, "local.h"), local.Location().File)

	guard := find(t, tu.Cursor, ast.KindMacroDefinition, "LOCAL_H")
	assert.Equal(t, filepath.Join(dir, "local.h"), guard.Location().File)

	vec := find(t, tu.Cursor, ast.KindInclusionDirective, "vector")
	assert.Equal(t, true, vec.(ast.Attributer).Attributes()["angled"])

	require.Len(t, tu.Diagnostics, 1)
	assert.Equal(t, ast.SeverityNote, tu.Diagnostics[0].Severity)
	assert.Contains(t, tu.Diagnostics[0].Message, "vector")

	total := find(t, tu.Cursor, ast.KindFunctionDecl, "total")
	s := find(t, total, ast.KindParmDecl, "s")
	assert.Equal(t, ast.TypeRecord, s.Type().Pointee.Kind)
}

func TestParse_MissingQuotedIncludeIsFatal(t *testing.T) {
	t.Parallel()

	tu := parseSource(t, "#include \"missing.h\"\nint x;\n")

	assert.Equal(t, ast.SeverityFatal, tu.Diagnostics.Worst())
	assert.Contains(t, tu.Diagnostics.String(), "'missing.h' file not found")
}

func TestParse_ConditionalCompilation(t *testing.T) {
	t.Parallel()

	src := `
#define FEATURE_A 1
#if FEATURE_A && __cplusplus >= 201703L
int modern();
#else
int legacy();
#endif
#ifdef FROM_CMDLINE
int cmdline();
#endif
#ifndef NOT_DEFINED
int fallback();
#elif 1
int unreachable();
#endif
#undef FEATURE_A
#if defined(FEATURE_A)
int removed();
#endif
struct Opts {
#ifdef FROM_CMDLINE
    int extra;
#endif
    int base;
};
`

	tu := parseSource(t, src, "-DFROM_CMDLINE", "-std=c++17")

	var names []string

	walk(tu.Cursor, func(c ast.Cursor) {
		if c.Kind() == ast.KindFunctionDecl || c.Kind() == ast.KindFieldDecl {
			names = append(names, c.Spelling())
		}
	})

	assert.Equal(t, []string{"modern", "cmdline", "fallback", "extra", "base"}, names)

	without := parseSource(t, src, "-std=c++11")

	names = names[:0]

	walk(without.Cursor, func(c ast.Cursor) {
		if c.Kind() == ast.KindFunctionDecl || c.Kind() == ast.KindFieldDecl {
			names = append(names, c.Spelling())
		}
	})

	assert.Equal(t, []string{"legacy", "fallback", "base"}, names)
}

func TestParse_SyntaxErrorsAreDiagnostics(t *testing.T) {
	t.Parallel()

	tu := parseSource(t, "struct Ok { int a; };\nint broken( {\n")

	assert.Equal(t, ast.SeverityError, tu.Diagnostics.Worst())
	find(t, tu.Cursor, ast.KindStructDecl, "Ok")
}

func TestParse_Tokens(t *testing.T) {
	t.Parallel()

	file := writeFile(t, t.TempDir(), "main.cpp", "int answer = 42;\n")
	tu := parseFile(t, treesitter.Options{Tokens: true}, file)

	v := find(t, tu.Cursor, ast.KindVarDecl, "answer")
	assert.Equal(t, []string{"int", "answer", "=", "42", ";"}, v.(ast.Tokenizer).Tokens())

	lit := find(t, v, ast.KindIntegerLiteral, "")
	assert.Equal(t, int64(42), lit.(ast.Attributer).Attributes()["value"])
}

func TestParse_WithoutDetailedPreprocessing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.h", "#define A 1\nstruct A_t {};\n")
	main := writeFile(t, dir, "main.cpp", "#include \"a.h\"\n")

	sess, err := treesitter.New(treesitter.Options{}).NewSession()
	require.NoError(t, err)

	defer sess.Close()

	tu, err := sess.Parse(context.Background(), main, nil, ast.ParseOptions{})
	require.NoError(t, err)

	assert.Zero(t, count(tu.Cursor, ast.KindInclusionDirective))
	assert.Zero(t, count(tu.Cursor, ast.KindMacroDefinition))
	find(t, tu.Cursor, ast.KindStructDecl, "A_t")
}

func TestParse_TypedefsAndAliases(t *testing.T) {
	t.Parallel()

	tu := parseSource(t, `
typedef unsigned long size_type;
using callback = void (*)(int);
namespace fs = std::filesystem;
using namespace std;
static_assert(sizeof(int) == 4, "int");
`)

	td := find(t, tu.Cursor, ast.KindTypedefDecl, "size_type")
	assert.Equal(t, "unsigned long", td.(ast.Attributer).Attributes()["underlying_type"])

	find(t, tu.Cursor, ast.KindTypeAliasDecl, "callback")
	find(t, tu.Cursor, ast.KindNamespaceAlias, "fs")
	find(t, find(t, tu.Cursor, ast.KindUsingDirective, ""), ast.KindNamespaceRef, "std")
	find(t, tu.Cursor, ast.KindStaticAssert, "")
}

func TestParse_OutOfLineDefinitions(t *testing.T) {
	t.Parallel()

	tu := parseSource(t, `
struct Counter { Counter(); int next(); };
Counter::Counter() {}
int Counter::next() { return 1; }
`)

	assert.Equal(t, 2, count(tu.Cursor, ast.KindConstructor))

	var outOfLine ast.Cursor

	for _, kid := range tu.Cursor.Children() {
		if kid.Kind() == ast.KindCXXMethod && kid.Spelling() == "next" {
			outOfLine = kid
		}
	}

	require.NotNil(t, outOfLine)
	assert.True(t, outOfLine.Traits().Has(ast.TraitDefinition))
	assert.Equal(t, "Counter", outOfLine.(ast.Attributer).Attributes()["semantic_parent"])
}

func TestParse_ClosedSessionAndMissingFile(t *testing.T) {
	t.Parallel()

	sess, err := treesitter.New(treesitter.Options{}).NewSession()
	require.NoError(t, err)

	_, err = sess.Parse(context.Background(), filepath.Join(t.TempDir(), "nope.cpp"), nil, ast.ParseOptions{})
	require.Error(t, err)

	require.NoError(t, sess.Close())

	_, err = sess.Parse(context.Background(), "x.cpp", nil, ast.ParseOptions{})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "closed"))
}

func TestFrontend_Name(t *testing.T) {
	t.Parallel()

	assert.Equal(t, treesitter.Name, treesitter.New(treesitter.Options{}).Name())
}
