package pipeline

import (
	"errors"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/clangbind/pkg/cmakeapi"
)

// ErrNoTargets is returned when the build graph has nothing to bind.
var ErrNoTargets = errors.New("no library targets to bind")

// ArgsSource resolves the compile arguments of a file. Both
// *compdb.Database and *cmakeapi.Target satisfy it.
type ArgsSource interface {
	Arguments(file string) ([]string, error)
}

// StaticArgs gives every file the same arguments.
type StaticArgs []string

// Arguments returns a copy of the arguments.
func (s StaticArgs) Arguments(string) ([]string, error) {
	return slices.Clone(s), nil
}

// Task is one translation unit to parse and bind.
type Task struct {
	args       ArgsSource
	Module     string
	Target     string
	File       string
	Inclusions []string
}

// Arguments resolves the task's compile arguments.
func (t Task) Arguments() ([]string, error) {
	if t.args == nil {
		return nil, nil
	}

	return t.args.Arguments(t.File)
}

// ModulePlan is the work feeding one PYBIND11_MODULE block.
type ModulePlan struct {
	Name    string
	Targets []string
	// Headers are the include names written at the top of the module file.
	Headers []string
	Tasks   []Task
}

// Plan is the ordered work of a run.
type Plan struct {
	Modules []ModulePlan
}

// Len returns the number of tasks.
func (p *Plan) Len() int {
	n := 0
	for _, m := range p.Modules {
		n += len(m.Tasks)
	}

	return n
}

func (p *Plan) module(name string) *ModulePlan {
	for i := range p.Modules {
		if p.Modules[i].Name == name {
			return &p.Modules[i]
		}
	}

	p.Modules = append(p.Modules, ModulePlan{Name: name})

	return &p.Modules[len(p.Modules)-1]
}

// PlanOptions select what a plan covers.
type PlanOptions struct {
	// Module binds every target into one module. Empty gives each target a
	// module named after it.
	Module      string
	ProjectRoot string
	// Targets restricts the plan. Empty means every library target.
	Targets     []string
	SelectFiles []string
	IgnoreFiles []string
	// AllowInclusionsFromOtherTargets adds the headers of the transitive
	// dependencies of a target to its inclusion sources.
	AllowInclusionsFromOtherTargets bool
}

// PlanTargets builds a plan from the CMake build graph. args supplies the
// compile arguments; nil uses each target's compile groups.
func PlanTargets(model *cmakeapi.Model, args ArgsSource, opts PlanOptions) (*Plan, error) {
	matcher, err := NewMatcher(opts.SelectFiles, opts.IgnoreFiles)
	if err != nil {
		return nil, err
	}

	root := opts.ProjectRoot
	if root == "" {
		root = model.SourceDir
	}

	names := opts.Targets
	if len(names) == 0 {
		names = model.LibraryTargets()
	}

	if len(names) == 0 {
		return nil, ErrNoTargets
	}

	plan := &Plan{}

	for _, name := range names {
		target, err := model.Target(name)
		if err != nil {
			return nil, err
		}

		units, own := splitSources(target.SourcePaths(), root, matcher)

		inclusions := slices.Clone(own)

		if opts.AllowInclusionsFromOtherTargets {
			for _, dep := range dependencyClosure(model, name) {
				_, hdrs := splitSources(dep.SourcePaths(), root, matcher)
				inclusions = appendUnique(inclusions, hdrs...)
			}
		}

		source := args
		if source == nil {
			source = target
		}

		moduleName := opts.Module
		if moduleName == "" {
			moduleName = name
		}

		mp := plan.module(moduleName)
		mp.Targets = append(mp.Targets, name)

		dirs := includeDirs(target)
		for _, h := range own {
			mp.Headers = appendUnique(mp.Headers, includeName(h, dirs, root))
		}

		for _, u := range units {
			mp.Tasks = append(mp.Tasks, Task{
				args:       source,
				Module:     moduleName,
				Target:     name,
				File:       u,
				Inclusions: inclusions,
			})
		}
	}

	return plan, nil
}

// PlanFiles builds a single-module plan for files given directly. Headers
// listed in inclusions are kept and included by the module.
func PlanFiles(files, inclusions []string, args ArgsSource, opts PlanOptions) (*Plan, error) {
	matcher, err := NewMatcher(opts.SelectFiles, opts.IgnoreFiles)
	if err != nil {
		return nil, err
	}

	name := opts.Module
	if name == "" && len(files) > 0 {
		name = moduleFromFile(files[0])
	}

	plan := &Plan{}
	mp := plan.module(name)

	abs := make([]string, 0, len(inclusions))
	for _, inc := range inclusions {
		p, _ := filepath.Abs(inc)
		abs = append(abs, p)
		mp.Headers = appendUnique(mp.Headers, includeName(p, nil, opts.ProjectRoot))
	}

	for _, f := range files {
		p, _ := filepath.Abs(f)
		if !matcher.Match(relPath(opts.ProjectRoot, p)) {
			continue
		}

		mp.Tasks = append(mp.Tasks, Task{args: args, Module: name, File: p, Inclusions: abs})
	}

	return plan, nil
}

func moduleFromFile(file string) string {
	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))

	var b strings.Builder

	for i, r := range base {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteRune('_')
			}

			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	return b.String()
}

// dependencyClosure returns the transitive dependencies of name in
// breadth-first order. Dependencies missing from the model are skipped.
func dependencyClosure(model *cmakeapi.Model, name string) []*cmakeapi.Target {
	seen := map[string]bool{name: true}
	queue := []string{name}

	var out []*cmakeapi.Target

	for len(queue) > 0 {
		deps, err := model.Dependencies(queue[0])
		queue = queue[1:]

		if err != nil {
			continue
		}

		for _, d := range deps {
			if seen[d] {
				continue
			}

			seen[d] = true

			t, err := model.Target(d)
			if err != nil {
				continue
			}

			out = append(out, t)
			queue = append(queue, d)
		}
	}

	return out
}

func includeDirs(t *cmakeapi.Target) []string {
	var dirs []string
	for _, g := range t.CompileGroups {
		dirs = appendUnique(dirs, g.Includes...)
	}

	return dirs
}

// includeName spells header h for an #include line: relative to the
// deepest include directory containing it, else to root, else its base name.
func includeName(h string, dirs []string, root string) string {
	best := ""

	for _, d := range dirs {
		if strings.HasPrefix(h, filepath.Clean(d)+string(filepath.Separator)) && len(d) > len(best) {
			best = filepath.Clean(d)
		}
	}

	if best != "" {
		rel, _ := filepath.Rel(best, h)

		return filepath.ToSlash(rel)
	}

	if rel := relPath(root, h); root != "" && rel != filepath.ToSlash(h) {
		return rel
	}

	return filepath.Base(h)
}

func appendUnique(dst []string, items ...string) []string {
	for _, it := range items {
		if !slices.Contains(dst, it) {
			dst = append(dst, it)
		}
	}

	return dst
}
