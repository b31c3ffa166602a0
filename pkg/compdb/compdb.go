// Package compdb reads JSON compilation databases (compile_commands.json)
// and turns their entries into front-end arguments.
package compdb

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/kballard/go-shellquote"
	"github.com/xeipuuv/gojsonschema"
)

// FileName is the conventional database file name inside a build directory.
const FileName = "compile_commands.json"

// Sentinel errors.
var (
	ErrNoCompileCommand = errors.New("no compile command")
	ErrInvalidDatabase  = errors.New("invalid compilation database")
)

//go:embed schema.json
var schema []byte

// rawEntry is one object of the database as written by the build system.
type rawEntry struct {
	Directory string   `json:"directory"`
	File      string   `json:"file"`
	Command   string   `json:"command"`
	Output    string   `json:"output"`
	Arguments []string `json:"arguments"`
}

// Entry is a normalized compile command.
type Entry struct {
	// File is the absolute, cleaned source path.
	File      string
	Directory string
	// Args are the compiler flags without argv0, the input file, -c and -o.
	// Include directories are absolute.
	Args []string
}

// Database is a loaded compilation database.
type Database struct {
	byFile  map[string]int
	entries []Entry
}

// Load reads path, which is either the database file or a directory
// holding compile_commands.json.
func Load(path string) (*Database, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, FileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDatabase, err)
	}

	db, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return db, nil
}

// Parse validates and decodes database content.
func Parse(data []byte) (*Database, error) {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDatabase, err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}

		return nil, fmt.Errorf("%w: %s", ErrInvalidDatabase, strings.Join(msgs, "; "))
	}

	var raw []rawEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDatabase, err)
	}

	db := &Database{byFile: make(map[string]int, len(raw))}

	for _, r := range raw {
		e, err := normalize(r)
		if err != nil {
			return nil, err
		}

		// The first command for a file wins, as with clang tooling.
		if _, dup := db.byFile[e.File]; dup {
			continue
		}

		db.byFile[e.File] = len(db.entries)
		db.entries = append(db.entries, e)
	}

	return db, nil
}

// Entries returns every entry in database order.
func (db *Database) Entries() []Entry {
	return slices.Clone(db.entries)
}

// Files returns the source files in database order.
func (db *Database) Files() []string {
	out := make([]string, len(db.entries))
	for i, e := range db.entries {
		out[i] = e.File
	}

	return out
}

// Arguments returns the front-end arguments for file.
func (db *Database) Arguments(file string) ([]string, error) {
	i, ok := db.byFile[absClean("", file)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoCompileCommand, file)
	}

	return slices.Clone(db.entries[i].Args), nil
}

func absClean(dir, p string) string {
	if !filepath.IsAbs(p) {
		if dir != "" {
			p = filepath.Join(dir, p)
		} else if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
	}

	return filepath.Clean(p)
}

func normalize(r rawEntry) (Entry, error) {
	argv := r.Arguments
	if len(argv) == 0 {
		split, err := shellquote.Split(r.Command)
		if err != nil {
			return Entry{}, fmt.Errorf("%w: %s: split command: %w", ErrInvalidDatabase, r.File, err)
		}

		argv = split
	}

	e := Entry{
		File:      absClean(r.Directory, r.File),
		Directory: r.Directory,
	}

	if len(argv) > 0 {
		e.Args = cleanArgs(argv[1:], r.Directory, e.File)
	}

	return e, nil
}

// pathFlags take a directory that is resolved against the entry directory.
var pathFlags = []string{"-I", "-isystem", "-iquote", "-idirafter"}

// Dependency-file flags only shape build outputs. The ones in depValueFlags
// take a value, attached or as the next argument.
var (
	depFlags      = []string{"-M", "-MM", "-MD", "-MMD", "-MP", "-MG"}
	depValueFlags = []string{"-MF", "-MT", "-MQ"}
)

func joinedDepValue(arg string) bool {
	for _, f := range depValueFlags {
		if strings.HasPrefix(arg, f) && len(arg) > len(f) {
			return true
		}
	}

	return false
}

func cleanArgs(args []string, dir, file string) []string {
	out := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch {
		case arg == "-c":
			continue
		case arg == "-o", slices.Contains(depValueFlags, arg):
			i++

			continue
		case slices.Contains(depFlags, arg), joinedDepValue(arg):
			continue
		case strings.HasPrefix(arg, "-o") && len(arg) > 2:
			continue
		case !strings.HasPrefix(arg, "-") && absClean(dir, arg) == file:
			continue
		}

		if flag, value, joined := splitPathFlag(arg); flag != "" {
			if !joined {
				if i+1 >= len(args) {
					out = append(out, arg)

					continue
				}

				i++
				value = args[i]
			}

			out = append(out, flag+absClean(dir, value))

			continue
		}

		out = append(out, arg)
	}

	return out
}

// splitPathFlag recognizes "-Idir" and "-I dir" style flags. joined reports
// whether the value was attached.
func splitPathFlag(arg string) (flag, value string, joined bool) {
	for _, f := range pathFlags {
		switch {
		case arg == f:
			return f, "", false
		case strings.HasPrefix(arg, f):
			return f, arg[len(f):], true
		}
	}

	return "", "", false
}
