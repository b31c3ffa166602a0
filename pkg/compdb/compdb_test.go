package compdb_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/clangbind/pkg/compdb"
)

func TestLoad_CommandAndArguments(t *testing.T) {
	t.Parallel()

	db, err := compdb.Load(filepath.Join("testdata", "compile_commands.json"))
	require.NoError(t, err)

	assert.Equal(t, []string{"/work/src/point.cpp", "/work/src/shape.cpp"}, db.Files())

	args, err := db.Arguments("/work/src/point.cpp")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"-DGEO_EXPORTS",
		"-I/work/src/include",
		"-I/work/third_party",
		"-isystem/work/build/ext",
		"-std=gnu++17",
		"-fPIC",
	}, args)

	args, err = db.Arguments("/work/src/../src/shape.cpp")
	require.NoError(t, err)
	assert.Equal(t, []string{"-iquote/work/build/gen", `-DNAME="a b"`}, args)
}

func TestLoad_Directory(t *testing.T) {
	t.Parallel()

	db, err := compdb.Load("testdata")
	require.NoError(t, err)
	assert.Len(t, db.Entries(), 2)
}

func TestArguments_Missing(t *testing.T) {
	t.Parallel()

	db, err := compdb.Load("testdata")
	require.NoError(t, err)

	_, err = db.Arguments("/work/src/other.cpp")
	require.ErrorIs(t, err, compdb.ErrNoCompileCommand)
}

func TestArguments_ReturnsCopy(t *testing.T) {
	t.Parallel()

	db, err := compdb.Load("testdata")
	require.NoError(t, err)

	args, err := db.Arguments("/work/src/point.cpp")
	require.NoError(t, err)

	args[0] = "changed"

	again, err := db.Arguments("/work/src/point.cpp")
	require.NoError(t, err)
	assert.Equal(t, "-DGEO_EXPORTS", again[0])
}

func TestParse_SchemaViolation(t *testing.T) {
	t.Parallel()

	_, err := compdb.Load(filepath.Join("testdata", "invalid.json"))
	require.ErrorIs(t, err, compdb.ErrInvalidDatabase)
	assert.Contains(t, err.Error(), "invalid.json")

	_, err = compdb.Parse([]byte(`{"directory": "/"}`))
	require.ErrorIs(t, err, compdb.ErrInvalidDatabase)

	_, err = compdb.Parse([]byte(`not json`))
	require.ErrorIs(t, err, compdb.ErrInvalidDatabase)
}

func TestParse_UnbalancedQuotes(t *testing.T) {
	t.Parallel()

	_, err := compdb.Parse([]byte(`[{"directory": "/b", "file": "a.cpp", "command": "c++ -DX='oops a.cpp"}]`))
	require.ErrorIs(t, err, compdb.ErrInvalidDatabase)
	assert.Contains(t, err.Error(), "split command")
}

func TestParse_FirstEntryWins(t *testing.T) {
	t.Parallel()

	db, err := compdb.Parse([]byte(`[
		{"directory": "/b", "file": "a.cpp", "arguments": ["c++", "-DFIRST", "a.cpp"]},
		{"directory": "/b", "file": "/b/a.cpp", "arguments": ["c++", "-DSECOND", "a.cpp"]}
	]`))
	require.NoError(t, err)

	args, err := db.Arguments("/b/a.cpp")
	require.NoError(t, err)
	assert.Equal(t, []string{"-DFIRST"}, args)
}

func TestParse_JoinedOutputAndTrailingFlag(t *testing.T) {
	t.Parallel()

	db, err := compdb.Parse([]byte(`[
		{"directory": "/b", "file": "a.cpp", "arguments": ["c++", "-oa.o", "a.cpp", "-I"]}
	]`))
	require.NoError(t, err)

	args, err := db.Arguments("/b/a.cpp")
	require.NoError(t, err)
	assert.Equal(t, []string{"-I"}, args)
}

func TestParse_StripsDependencyFileFlags(t *testing.T) {
	t.Parallel()

	db, err := compdb.Parse([]byte(`[
		{"directory": "/b", "file": "a.cpp", "arguments": [
			"c++", "-DX", "-MD", "-MT", "a.o", "-MF", "deps/a.d", "-MQ$(OBJ)", "-MMD", "-MP",
			"-MFother.d", "-c", "a.cpp", "-std=c++17"
		]}
	]`))
	require.NoError(t, err)

	args, err := db.Arguments("/b/a.cpp")
	require.NoError(t, err)
	assert.Equal(t, []string{"-DX", "-std=c++17"}, args)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := compdb.Load(filepath.Join(t.TempDir(), "nope.json"))
	require.ErrorIs(t, err, compdb.ErrInvalidDatabase)
	require.ErrorIs(t, err, os.ErrNotExist)
}
