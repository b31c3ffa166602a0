package bind_test

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/clangbind/pkg/ast"
	"github.com/Sumatoshi-tech/clangbind/pkg/bind"
	"github.com/Sumatoshi-tech/clangbind/pkg/frontend/treesitter"
	"github.com/Sumatoshi-tech/clangbind/pkg/parse"
)

func buildTree(t *testing.T, src string) *parse.Tree {
	t.Helper()

	file := filepath.Join(t.TempDir(), "main.cpp")
	require.NoError(t, os.WriteFile(file, []byte(src), 0o600))

	tree, err := parse.NewBuilder(treesitter.New(treesitter.Options{})).Build(context.Background(), file, nil, nil)
	require.NoError(t, err)

	return tree
}

func generate(t *testing.T, src string, opts bind.Options) *bind.Result {
	t.Helper()

	res, err := bind.New(opts).Generate(context.Background(), "pcl", buildTree(t, src))
	require.NoError(t, err)

	return res
}

func fragments(t *testing.T, src string) []string {
	t.Helper()

	return generate(t, src, bind.Options{}).Fragments
}

func TestGenerate_FunctionWithoutParameters(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{`m.def("F", &F);`}, fragments(t, "void F();"))
}

func TestGenerate_FunctionWithParameters(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{`m.def("F", &F, "a"_a, "b"_a);`}, fragments(t, "void F(int a, double b);"))
}

func TestGenerate_StructWithoutMembers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{
		"py::class_<S>(m, \"S\")\n" +
			"    .def(py::init<>());",
	}, fragments(t, "struct S {};"))
}

func TestGenerate_StructWithMembers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{
		"py::class_<S>(m, \"S\")\n" +
			"    .def(py::init<>())\n" +
			"    .def_readwrite(\"m\", &S::m);",
	}, fragments(t, "struct S { int m; };"))
}

func TestGenerate_DeletedConstructorsProduceNothing(t *testing.T) {
	t.Parallel()

	res := generate(t, "class C { C() = default; C(double) = delete; };", bind.Options{})

	assert.Equal(t, []string{
		"py::class_<C>(m, \"C\")\n" +
			"    .def(py::init<>());",
	}, res.Fragments)
	assert.Equal(t, 2, res.Bindings)
}

func TestGenerate_OnlyDeletedConstructors(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{
		"py::class_<NoCopy>(m, \"NoCopy\")\n" +
			"    .def_readwrite(\"v\", &NoCopy::v);",
	}, fragments(t, "struct NoCopy { NoCopy(const NoCopy&) = delete; int v; };"))
}

func TestGenerate_UserDefinedConstructors(t *testing.T) {
	t.Parallel()

	got := fragments(t, `
struct Point {
    Point() = default;
    Point(int x, int y) : x(x), y(y) {}
    Point(double) {}
    int x;
    int y;
};
`)

	assert.Equal(t, []string{
		"py::class_<Point>(m, \"Point\")\n" +
			"    .def(py::init<>())\n" +
			"    .def(py::init<int, int>(), \"x\"_a, \"y\"_a)\n" +
			"    .def(py::init<double>(), \"arg0\"_a)\n" +
			"    .def_readwrite(\"x\", &Point::x)\n" +
			"    .def_readwrite(\"y\", &Point::y);",
	}, got)
}

func TestGenerate_AnnotationsFollowParameterOrder(t *testing.T) {
	t.Parallel()

	for n := range 6 {
		params := make([]string, n)
		want := make([]string, n)

		for i := range n {
			params[i] = fmt.Sprintf("int p%d", i)
			want[i] = fmt.Sprintf(`"p%d"_a`, i)
		}

		got := fragments(t, "void f("+strings.Join(params, ", ")+");")
		require.Len(t, got, 1)

		assert.Equal(t, n, strings.Count(got[0], "_a"), got[0])

		expected := `m.def("f", &f);`
		if n > 0 {
			expected = `m.def("f", &f, ` + strings.Join(want, ", ") + `);`
		}

		assert.Equal(t, expected, got[0])
	}
}

func TestGenerate_UnnamedParameters(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{`m.def("f", &f, "arg0"_a, "scale"_a);`}, fragments(t, "void f(int, double scale);"))
}

func TestGenerate_OverloadedFunctions(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{
		`m.def("f", py::overload_cast<int>(&f), "x"_a);`,
		`m.def("f", py::overload_cast<double>(&f), "y"_a);`,
	}, fragments(t, "void f(int x);\nvoid f(double y);\n"))
}

func TestGenerate_RedeclarationsBindOnce(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{`m.def("f", &f, "x"_a);`}, fragments(t, "int f(int x);\nint f(int x) { return x; }\n"))
}

func TestGenerate_Methods(t *testing.T) {
	t.Parallel()

	got := fragments(t, `
struct S {
    void run(int n);
    static S make();
    int get() const;
    int get(int i) const;
    bool operator==(const S& other) const;
    void gone() = delete;
    ~S();
};
`)

	assert.Equal(t, []string{
		"py::class_<S>(m, \"S\")\n" +
			"    .def(py::init<>())\n" +
			"    .def(\"run\", &S::run, \"n\"_a)\n" +
			"    .def_static(\"make\", &S::make)\n" +
			"    .def(\"get\", py::overload_cast<>(&S::get, py::const_))\n" +
			"    .def(\"get\", py::overload_cast<int>(&S::get, py::const_), \"i\"_a);",
	}, got)
}

func TestGenerate_FieldVariants(t *testing.T) {
	t.Parallel()

	got := fragments(t, `
struct Config {
    const int version = 1;
    static int instances;
    static const int limit = 8;
    int value;
};
`)

	assert.Equal(t, []string{
		"py::class_<Config>(m, \"Config\")\n" +
			"    .def(py::init<>())\n" +
			"    .def_readonly(\"version\", &Config::version)\n" +
			"    .def_readwrite_static(\"instances\", &Config::instances)\n" +
			"    .def_readonly_static(\"limit\", &Config::limit)\n" +
			"    .def_readwrite(\"value\", &Config::value);",
	}, got)
}

func TestGenerate_BaseClasses(t *testing.T) {
	t.Parallel()

	got := fragments(t, `
struct A {};
struct B : A {};
class C : public A, private B {};
`)

	assert.Equal(t, []string{
		"py::class_<A>(m, \"A\")\n    .def(py::init<>());",
		"py::class_<B, A>(m, \"B\")\n    .def(py::init<>());",
		"py::class_<C, A>(m, \"C\")\n    .def(py::init<>());",
	}, got)
}

func TestGenerate_NamespacesFlatten(t *testing.T) {
	t.Parallel()

	got := fragments(t, `
namespace geo {
struct P { int x; };
void f(P p);
}
`)

	assert.Equal(t, []string{
		"py::class_<geo::P>(m, \"P\")\n" +
			"    .def(py::init<>())\n" +
			"    .def_readwrite(\"x\", &geo::P::x);",
		`m.def("f", &geo::f, "p"_a);`,
	}, got)
}

func TestGenerate_NamespacesSubmodule(t *testing.T) {
	t.Parallel()

	res := generate(t, `
namespace a {
namespace b {
void f();
}
void g();
}
namespace a {
void h();
}
namespace {
void hidden();
}
`, bind.Options{Namespaces: bind.NamespacesSubmodule})

	assert.Equal(t, []string{
		`auto m_a = m.def_submodule("a");`,
		`auto m_a_b = m_a.def_submodule("b");`,
		`m_a_b.def("f", &a::b::f);`,
		`m_a.def("g", &a::g);`,
		`m_a.def("h", &a::h);`,
		`m.def("hidden", &hidden);`,
	}, res.Fragments)
}

func TestGenerate_AccessFilter(t *testing.T) {
	t.Parallel()

	src := `
class K {
    int hidden;
public:
    int shown;
};
`

	public := generate(t, src, bind.Options{Access: []ast.Access{ast.AccessPublic}})
	assert.Equal(t, []string{
		"py::class_<K>(m, \"K\")\n" +
			"    .def(py::init<>())\n" +
			"    .def_readwrite(\"shown\", &K::shown);",
	}, public.Fragments)

	all := generate(t, src, bind.Options{})
	require.Len(t, all.Fragments, 1)
	assert.Contains(t, all.Fragments[0], `"hidden"`)
}

func TestGenerate_ContainersWithoutBindings(t *testing.T) {
	t.Parallel()

	res := generate(t, `
template <typename T> struct Box { T v; };
template <typename T> T twice(T v);
enum Color { Red, Green };
union U { int i; float f; };
struct Outer {
    union { int i; float f; };
    struct { int z; } point;
    int after;
};
`, bind.Options{})

	assert.Equal(t, []string{
		"py::class_<Outer>(m, \"Outer\")\n" +
			"    .def(py::init<>())\n" +
			"    .def_readwrite(\"i\", &Outer::i)\n" +
			"    .def_readwrite(\"f\", &Outer::f)\n" +
			"    .def_readwrite(\"point\", &Outer::point)\n" +
			"    .def_readwrite(\"after\", &Outer::after);",
	}, res.Fragments)
	assert.Zero(t, res.Skipped)
}

func TestGenerate_AnonymousMembersBelongToRecord(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{
		"py::class_<S>(m, \"S\")\n" +
			"    .def(py::init<>())\n" +
			"    .def_readwrite(\"u\", &S::u)\n" +
			"    .def_readwrite(\"f\", &S::f)\n" +
			"    .def_readwrite(\"x\", &S::x)\n" +
			"    .def_readwrite(\"a\", &S::a);",
	}, fragments(t, `
struct S {
    union { int u; float f; };
    struct { int x; };
    struct { int hidden; } a;
};
`))
}

func TestGenerate_ExplicitSpecialization(t *testing.T) {
	t.Parallel()

	res := generate(t, `
template <typename T> struct X { T v; };
template <> struct X<int> { int v; };
`, bind.Options{})

	assert.Equal(t, []string{
		"py::class_<X<int>>(m, \"X_int\")\n" +
			"    .def(py::init<>())\n" +
			"    .def_readwrite(\"v\", &X<int>::v);",
	}, res.Fragments)
}

func TestGenerate_Idempotent(t *testing.T) {
	t.Parallel()

	src := `
namespace n {
struct S { S(int a); int a; void f(int x); void f(); };
void g(int, double);
}
`

	first := generate(t, src, bind.Options{})
	second := generate(t, src, bind.Options{})

	assert.Equal(t, first.Fragments, second.Fragments)
	assert.Equal(t,
		bind.Module("pcl", []string{"n.h"}, first.Fragments),
		bind.Module("pcl", []string{"n.h"}, second.Fragments))
}

// fakeFrontend returns a fixed translation unit.
type fakeFrontend struct {
	tu *ast.Node
}

func (f fakeFrontend) Name() string { return "fake" }

func (f fakeFrontend) NewSession() (ast.Session, error) { return f, nil }

func (f fakeFrontend) Parse(context.Context, string, []string, ast.ParseOptions) (*ast.TranslationUnit, error) {
	return &ast.TranslationUnit{Cursor: f.tu, Spelling: f.tu.Name}, nil
}

func (f fakeFrontend) Close() error { return nil }

func unsupportedTree(t *testing.T) *parse.Tree {
	t.Helper()

	tu := &ast.Node{K: ast.KindTranslationUnit, Name: "x.cpp"}
	tu.Add(
		&ast.Node{K: ast.KindUnexposedDecl, Loc: ast.Location{File: "x.cpp", Line: 3, Column: 1}},
		&ast.Node{K: ast.KindFunctionDecl, Name: "f", Loc: ast.Location{File: "x.cpp", Line: 4, Column: 6}},
	)

	tree, err := parse.NewBuilder(fakeFrontend{tu: tu}).Build(context.Background(), "x.cpp", nil, nil)
	require.NoError(t, err)

	return tree
}

func TestGenerate_UnsupportedSkip(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer

	g := bind.New(bind.Options{Logger: slog.New(slog.NewTextHandler(&logs, nil))})

	res, err := g.Generate(context.Background(), "pcl", unsupportedTree(t))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, []string{`m.def("f", &f);`}, res.Fragments)
	assert.Contains(t, logs.String(), "unsupported declaration skipped")
	assert.Contains(t, logs.String(), "kind=UNEXPOSED_DECL")
	assert.Contains(t, logs.String(), "line=3")
}

func TestGenerate_UnsupportedFail(t *testing.T) {
	t.Parallel()

	g := bind.New(bind.Options{Unsupported: bind.UnsupportedFail})

	_, err := g.Generate(context.Background(), "pcl", unsupportedTree(t))
	require.ErrorIs(t, err, bind.ErrUnsupportedKind)
	assert.Contains(t, err.Error(), "x.cpp:3:1")
}

func TestGenerate_PackageLevel(t *testing.T) {
	t.Parallel()

	got, err := bind.Generate("pcl", buildTree(t, "void F();"))
	require.NoError(t, err)
	assert.Equal(t, []string{`m.def("F", &F);`}, got)
}

func TestModule(t *testing.T) {
	t.Parallel()

	got := bind.Module("pcl", []string{"geo/point.h"}, []string{
		`m.def("F", &F);`,
		"py::class_<S>(m, \"S\")\n    .def(py::init<>());",
	})

	assert.Equal(t, `#include <geo/point.h>

#include <pybind11/pybind11.h>

namespace py = pybind11;
using namespace py::literals;

PYBIND11_MODULE(pcl, m) {
    m.def("F", &F);
    py::class_<S>(m, "S")
        .def(py::init<>());
}
`, got)
}

func TestParsePolicies(t *testing.T) {
	t.Parallel()

	ns, err := bind.ParseNamespacePolicy("")
	require.NoError(t, err)
	assert.Equal(t, bind.NamespacesFlatten, ns)

	ns, err = bind.ParseNamespacePolicy("submodule")
	require.NoError(t, err)
	assert.Equal(t, bind.NamespacesSubmodule, ns)

	_, err = bind.ParseNamespacePolicy("nested")
	require.ErrorIs(t, err, bind.ErrUnknownPolicy)

	up, err := bind.ParseUnsupportedPolicy("fail")
	require.NoError(t, err)
	assert.Equal(t, bind.UnsupportedFail, up)

	_, err = bind.ParseUnsupportedPolicy("panic")
	require.ErrorIs(t, err, bind.ErrUnknownPolicy)
}
