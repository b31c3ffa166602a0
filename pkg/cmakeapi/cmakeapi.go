// Package cmakeapi reads the build graph that CMake writes through its
// File API (codemodel v2).
package cmakeapi

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

// Sentinel errors.
var (
	ErrNoReply       = errors.New("no cmake file api reply")
	ErrInvalidReply  = errors.New("invalid cmake file api reply")
	ErrUnknownTarget = errors.New("unknown target")
)

// Target types reported by CMake.
const (
	TypeExecutable = "EXECUTABLE"
	TypeShared     = "SHARED_LIBRARY"
	TypeStatic     = "STATIC_LIBRARY"
	TypeModule     = "MODULE_LIBRARY"
	TypeObject     = "OBJECT_LIBRARY"
	TypeInterface  = "INTERFACE_LIBRARY"
	TypeUtility    = "UTILITY"
)

const codemodelQueryKey = "codemodel-v2"

//go:embed codemodel.schema.json
var codemodelSchema []byte

// APIDir returns the File API root of a build directory.
func APIDir(buildDir string) string {
	return filepath.Join(buildDir, ".cmake", "api", "v1")
}

// WriteQuery asks the next cmake configure of buildDir to produce a
// codemodel reply.
func WriteQuery(buildDir string) (string, error) {
	dir := filepath.Join(APIDir(buildDir), "query")

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create query dir: %w", err)
	}

	path := filepath.Join(dir, codemodelQueryKey)

	if err := os.WriteFile(path, nil, 0o600); err != nil {
		return "", fmt.Errorf("write query: %w", err)
	}

	return path, nil
}

// CompileGroup is a set of sources compiled with the same flags.
type CompileGroup struct {
	Language  string
	Fragments []string
	Defines   []string
	Includes  []string
}

// Arguments renders the group as front-end arguments. Fragments are shell
// split; defines and includes become -D and -I flags.
func (g CompileGroup) Arguments() ([]string, error) {
	var args []string

	for _, f := range g.Fragments {
		words, err := shellquote.Split(f)
		if err != nil {
			return nil, fmt.Errorf("%w: fragment %q: %w", ErrInvalidReply, f, err)
		}

		args = append(args, words...)
	}

	for _, d := range g.Defines {
		args = append(args, "-D"+d)
	}

	for _, inc := range g.Includes {
		args = append(args, "-I"+inc)
	}

	return args, nil
}

// Source is one file of a target.
type Source struct {
	// Path is absolute.
	Path string
	// Group indexes Target.CompileGroups, or is -1 for files that are not
	// compiled (headers).
	Group int
}

// Target is one build target.
type Target struct {
	ID            string
	Name          string
	Type          string
	NameOnDisk    string
	Folder        string
	Artifacts     []string
	Sources       []Source
	CompileGroups []CompileGroup
	// Dependencies holds target names, taken from the dependency IDs.
	Dependencies []string
}

// IsLibrary reports whether the target builds a library with code in it.
func (t *Target) IsLibrary() bool {
	switch t.Type {
	case TypeShared, TypeStatic, TypeModule, TypeObject:
		return true
	default:
		return false
	}
}

// SourcePaths returns the absolute paths of every source.
func (t *Target) SourcePaths() []string {
	out := make([]string, len(t.Sources))
	for i, s := range t.Sources {
		out[i] = s.Path
	}

	return out
}

// Arguments returns the compile arguments of one source of the target.
// Sources outside every compile group get the arguments of the first
// group, since headers are parsed with their target's flags.
func (t *Target) Arguments(path string) ([]string, error) {
	if len(t.CompileGroups) == 0 {
		return nil, nil
	}

	group := 0

	for _, s := range t.Sources {
		if s.Path == filepath.Clean(path) && s.Group >= 0 {
			group = s.Group

			break
		}
	}

	return t.CompileGroups[group].Arguments()
}

// Model is the loaded build graph.
type Model struct {
	targets   map[string]*Target
	SourceDir string
	BuildDir  string
}

// Targets returns every target sorted by name.
func (m *Model) Targets() []*Target {
	out := make([]*Target, 0, len(m.targets))
	for _, t := range m.targets {
		out = append(out, t)
	}

	slices.SortFunc(out, func(a, b *Target) int { return strings.Compare(a.Name, b.Name) })

	return out
}

// Target returns the named target.
func (m *Model) Target(name string) (*Target, error) {
	t, ok := m.targets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, name)
	}

	return t, nil
}

// LibraryTargets returns the names of library targets, sorted.
func (m *Model) LibraryTargets() []string {
	var out []string

	for _, t := range m.Targets() {
		if t.IsLibrary() {
			out = append(out, t.Name)
		}
	}

	return out
}

// Dependencies returns the dependency names of a target.
func (m *Model) Dependencies(name string) ([]string, error) {
	t, err := m.Target(name)
	if err != nil {
		return nil, err
	}

	return slices.Clone(t.Dependencies), nil
}

// Sources returns the absolute source paths of a target.
func (m *Model) Sources(name string) ([]string, error) {
	t, err := m.Target(name)
	if err != nil {
		return nil, err
	}

	return t.SourcePaths(), nil
}

type (
	jsonIndex struct {
		Reply map[string]struct {
			JSONFile string `json:"jsonFile"`
		} `json:"reply"`
	}

	jsonCodemodel struct {
		Paths struct {
			Source string `json:"source"`
			Build  string `json:"build"`
		} `json:"paths"`
		Configurations []struct {
			Name    string `json:"name"`
			Targets []struct {
				Name     string `json:"name"`
				JSONFile string `json:"jsonFile"`
			} `json:"targets"`
		} `json:"configurations"`
	}

	jsonTarget struct {
		Name       string `json:"name"`
		ID         string `json:"id"`
		Type       string `json:"type"`
		NameOnDisk string `json:"nameOnDisk"`
		Folder     struct {
			Name string `json:"name"`
		} `json:"folder"`
		Artifacts []struct {
			Path string `json:"path"`
		} `json:"artifacts"`
		Sources []struct {
			CompileGroupIndex *int   `json:"compileGroupIndex"`
			Path              string `json:"path"`
		} `json:"sources"`
		CompileGroups []struct {
			Language  string `json:"language"`
			Fragments []struct {
				Fragment string `json:"fragment"`
			} `json:"compileCommandFragments"`
			Defines []struct {
				Define string `json:"define"`
			} `json:"defines"`
			Includes []struct {
				Path string `json:"path"`
			} `json:"includes"`
		} `json:"compileGroups"`
		Dependencies []struct {
			ID string `json:"id"`
		} `json:"dependencies"`
	}
)

// Load reads the newest codemodel reply of buildDir.
func Load(buildDir string) (*Model, error) {
	replyDir := filepath.Join(APIDir(buildDir), "reply")

	name, err := codemodelFile(replyDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(replyDir, name))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoReply, err)
	}

	if err := validate(name, data); err != nil {
		return nil, err
	}

	var cm jsonCodemodel
	if err := json.Unmarshal(data, &cm); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidReply, name, err)
	}

	m := &Model{
		targets:   make(map[string]*Target),
		SourceDir: cm.Paths.Source,
		BuildDir:  cm.Paths.Build,
	}

	for _, cfg := range cm.Configurations {
		for _, ref := range cfg.Targets {
			if _, seen := m.targets[ref.Name]; seen {
				continue
			}

			t, err := loadTarget(filepath.Join(replyDir, ref.JSONFile), m.SourceDir)
			if err != nil {
				return nil, err
			}

			m.targets[t.Name] = t
		}
	}

	return m, nil
}

// codemodelFile picks the codemodel named by the newest index file, falling
// back to any codemodel reply when no index is present.
func codemodelFile(replyDir string) (string, error) {
	indexes, err := filepath.Glob(filepath.Join(replyDir, "index-*.json"))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoReply, err)
	}

	if len(indexes) > 0 {
		slices.Sort(indexes)

		data, err := os.ReadFile(indexes[len(indexes)-1])
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrNoReply, err)
		}

		var idx jsonIndex
		if err := json.Unmarshal(data, &idx); err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrInvalidReply, filepath.Base(indexes[len(indexes)-1]), err)
		}

		if cm, ok := idx.Reply[codemodelQueryKey]; ok && cm.JSONFile != "" {
			return cm.JSONFile, nil
		}
	}

	models, err := filepath.Glob(filepath.Join(replyDir, "codemodel-v2-*.json"))
	if err != nil || len(models) == 0 {
		return "", fmt.Errorf("%w in %s (run cmake-query, then re-run cmake)", ErrNoReply, replyDir)
	}

	slices.Sort(models)

	return filepath.Base(models[len(models)-1]), nil
}

func validate(name string, data []byte) error {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(codemodelSchema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidReply, name, err)
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.Field()+": "+e.Description())
	}

	return fmt.Errorf("%w: %s: %s", ErrInvalidReply, name, strings.Join(msgs, "; "))
}

func loadTarget(path, sourceDir string) (*Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReply, err)
	}

	var jt jsonTarget
	if err := json.Unmarshal(data, &jt); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidReply, filepath.Base(path), err)
	}

	t := &Target{
		ID:         jt.ID,
		Name:       jt.Name,
		Type:       jt.Type,
		NameOnDisk: jt.NameOnDisk,
		Folder:     jt.Folder.Name,
	}

	for _, a := range jt.Artifacts {
		t.Artifacts = append(t.Artifacts, a.Path)
	}

	for _, s := range jt.Sources {
		p := s.Path
		if !filepath.IsAbs(p) {
			p = filepath.Join(sourceDir, p)
		}

		group := -1
		if s.CompileGroupIndex != nil {
			group = *s.CompileGroupIndex
		}

		t.Sources = append(t.Sources, Source{Path: filepath.Clean(p), Group: group})
	}

	for _, g := range jt.CompileGroups {
		cg := CompileGroup{Language: g.Language}

		for _, f := range g.Fragments {
			cg.Fragments = append(cg.Fragments, f.Fragment)
		}

		for _, d := range g.Defines {
			cg.Defines = append(cg.Defines, d.Define)
		}

		for _, inc := range g.Includes {
			cg.Includes = append(cg.Includes, inc.Path)
		}

		t.CompileGroups = append(t.CompileGroups, cg)
	}

	for _, d := range jt.Dependencies {
		name, _, _ := strings.Cut(d.ID, "::")
		t.Dependencies = append(t.Dependencies, name)
	}

	return t, nil
}
