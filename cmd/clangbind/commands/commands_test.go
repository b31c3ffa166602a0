package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/clangbind/cmd/clangbind/commands"
	"github.com/Sumatoshi-tech/clangbind/pkg/output"
	"github.com/Sumatoshi-tech/clangbind/pkg/parse"
)

const quietConfig = "logging:\n  level: error\n"

type fixture struct {
	dir    string
	config string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	f := &fixture{dir: dir, config: filepath.Join(dir, "clangbind.yaml")}
	f.write(t, "clangbind.yaml", quietConfig)

	return f
}

func (f *fixture) write(t *testing.T, name, content string) string {
	t.Helper()

	p := filepath.Join(f.dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))

	return p
}

func (f *fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd := commands.NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", f.config}, args...))

	err := cmd.Execute()

	return stdout.String(), err
}

func TestVersion(t *testing.T) {
	t.Parallel()

	out, err := newFixture(t).run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "clangbind ")
}

func TestGenerate_Files(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a := f.write(t, "src/a.cpp", "void F(int a);\nstruct P { int x; };\n")
	outDir := filepath.Join(f.dir, "out")

	out, err := f.run(t, "generate", "-m", "geo", "-o", outDir, "--project-root", f.dir, a)
	require.NoError(t, err)

	assert.Contains(t, out, "src/a.cpp")
	assert.Contains(t, out, "geo.cpp")
	assert.Contains(t, out, "TOTAL")

	data, err := os.ReadFile(filepath.Join(outDir, "geo.cpp"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "PYBIND11_MODULE(geo, m) {")
	assert.Contains(t, string(data), `m.def("F", &F, "a"_a);`)
	assert.Contains(t, string(data), `py::class_<P>(m, "P")`)
}

func TestGenerate_Check(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a := f.write(t, "a.cpp", "void F();\n")
	outDir := filepath.Join(f.dir, "out")

	_, err := f.run(t, "generate", "-m", "m", "-o", outDir, a)
	require.NoError(t, err)

	_, err = f.run(t, "generate", "-m", "m", "-o", outDir, "--check", a)
	require.NoError(t, err)

	f.write(t, "a.cpp", "void F();\nvoid G();\n")

	out, err := f.run(t, "generate", "-m", "m", "-o", outDir, "--check", a)
	require.ErrorIs(t, err, output.ErrStale)
	assert.Contains(t, out, "STALE")
	assert.Contains(t, out, `+    m.def("G", &G);`)

	data, err := os.ReadFile(filepath.Join(outDir, "m.cpp"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"G"`)
}

func TestGenerate_PartialFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	good := f.write(t, "good.cpp", "void Good();\n")
	missing := filepath.Join(f.dir, "missing.cpp")
	outDir := filepath.Join(f.dir, "out")

	out, err := f.run(t, "generate", "-m", "m", "-o", outDir, missing, good)
	require.ErrorIs(t, err, commands.ErrFilesFailed)
	require.ErrorIs(t, err, parse.ErrParse)
	assert.Contains(t, out, "FAIL")

	data, err := os.ReadFile(filepath.Join(outDir, "m.cpp"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `m.def("Good", &Good);`)
}

func TestGenerate_CompileCommands(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.write(t, "a.cpp", "#ifdef GREET\nvoid Hello();\n#endif\nvoid Always();\n")
	f.write(t, "compile_commands.json", `[
  {"directory": "`+f.dir+`", "arguments": ["c++", "-DGREET", "-c", "a.cpp"], "file": "a.cpp"}
]`)
	outDir := filepath.Join(f.dir, "out")

	_, err := f.run(t, "generate", "-p", f.dir, "--project-root", f.dir, "-m", "greet", "-o", outDir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, "greet.cpp"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `m.def("Hello", &Hello);`)
	assert.Contains(t, string(data), `m.def("Always", &Always);`)
}

func TestGenerate_Args(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a := f.write(t, "a.cpp", "#if LEVEL > 1\nvoid High();\n#else\nvoid Low();\n#endif\n")
	outDir := filepath.Join(f.dir, "out")

	_, err := f.run(t, "generate", "-m", "lvl", "-o", outDir, "--args", "-DLEVEL=2 -std=c++17", a)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, "lvl.cpp"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"High"`)
	assert.NotContains(t, string(data), `"Low"`)
}

func TestGenerate_NoInput(t *testing.T) {
	t.Parallel()

	_, err := newFixture(t).run(t, "generate")
	require.ErrorIs(t, err, commands.ErrNoInput)
}

func TestGenerate_InvalidConfig(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a := f.write(t, "a.cpp", "void F();\n")

	_, err := f.run(t, "generate", "-m", "not-an-ident", a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "module must be a C++ identifier")
}

func TestParse_JSON(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a := f.write(t, "a.cpp", "struct S { int m; };\n")

	out, err := f.run(t, "parse", "--format", "json", a)
	require.NoError(t, err)
	assert.Contains(t, out, `"TRANSLATION_UNIT"`)
	assert.Contains(t, out, `"STRUCT_DECL"`)
}

func TestParse_CompressedFile(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a := f.write(t, "a.cpp", "struct S { int m; };\n")
	dump := filepath.Join(f.dir, "tree.json.lz4")

	_, err := f.run(t, "parse", "-o", dump, a)
	require.NoError(t, err)

	codec, err := output.CodecForPath(dump, "yaml")
	require.NoError(t, err)

	var tree parse.Dump
	require.NoError(t, output.Decode(dump, codec, &tree))

	assert.Equal(t, "TRANSLATION_UNIT", tree.Record.KindName())
	require.Len(t, tree.Children, 1)
	assert.Equal(t, "STRUCT_DECL", tree.Children[0].Record.KindName())
}

func TestParse_Paths(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a := f.write(t, "a.cpp", "struct S { int m; };\n")

	out, err := f.run(t, "parse", "--paths", a)
	require.NoError(t, err)
	assert.Contains(t, out, "STRUCT_DECL:S > FIELD_DECL:m\n")
}

func TestInspect(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a := f.write(t, "a.cpp", "struct S { int m; };\nvoid F();\n")

	out, err := f.run(t, "inspect", "-k", "FIELD_DECL", a)
	require.NoError(t, err)
	assert.Contains(t, out, "FIELD_DECL")
	assert.Contains(t, out, "TOTAL: 1 NODES")
	assert.NotContains(t, out, "FUNCTION_DECL")
}

func TestTargets(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	buildDir := filepath.Join("..", "..", "..", "pkg", "cmakeapi", "testdata", "build")

	out, err := f.run(t, "targets", "-B", buildDir)
	require.NoError(t, err)
	assert.Contains(t, out, "geo")
	assert.Contains(t, out, "SHARED_LIBRARY")
	assert.Contains(t, out, "util")
	assert.NotContains(t, out, "EXECUTABLE")

	out, err = f.run(t, "targets", "-B", buildDir, "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "EXECUTABLE")
	assert.Contains(t, out, "TOTAL: 3 TARGETS")
}

func TestTargets_NoBuildDir(t *testing.T) {
	t.Parallel()

	_, err := newFixture(t).run(t, "targets")
	require.ErrorIs(t, err, commands.ErrNoBuildDir)
}

func TestCMakeQuery(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	build := filepath.Join(f.dir, "build")

	out, err := f.run(t, "cmake-query", build)
	require.NoError(t, err)
	assert.Contains(t, out, "codemodel-v2")

	_, err = os.Stat(filepath.Join(build, ".cmake", "api", "v1", "query", "codemodel-v2"))
	require.NoError(t, err)
}

func TestMCPCommand_Flags(t *testing.T) {
	t.Parallel()

	cmd, _, err := commands.NewRootCommand().Find([]string{"mcp"})
	require.NoError(t, err)
	assert.Equal(t, "mcp", cmd.Name())

	flag := cmd.Flags().Lookup("debug")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}
