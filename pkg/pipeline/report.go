package pipeline

import (
	"errors"
	"slices"
	"time"

	"github.com/Sumatoshi-tech/clangbind/pkg/ast"
	"github.com/Sumatoshi-tech/clangbind/pkg/bind"
	"github.com/Sumatoshi-tech/clangbind/pkg/observability"
)

// FileResult is the outcome of one task.
type FileResult struct {
	Err         error
	Module      string
	Target      string
	File        string
	Fragments   []string
	Diagnostics ast.Diagnostics
	Stats       observability.FileStats
	Duration    time.Duration
}

// ModuleReport aggregates the files of one module in plan order.
type ModuleReport struct {
	Name    string
	Targets []string
	Headers []string
	Files   []FileResult
	// Fragments holds every successful file's fragments, first occurrence
	// kept, so a header shared by several units is registered once.
	Fragments []string
}

// Source renders the module's binding file.
func (m *ModuleReport) Source() string {
	return bind.Module(m.Name, m.Headers, m.Fragments)
}

// Failed reports whether any file of the module failed.
func (m *ModuleReport) Failed() bool {
	return slices.ContainsFunc(m.Files, func(f FileResult) bool { return f.Err != nil })
}

// FailedCount returns the number of failed files of the module.
func (m *ModuleReport) FailedCount() int {
	n := 0

	for _, f := range m.Files {
		if f.Err != nil {
			n++
		}
	}

	return n
}

// Report is the outcome of a run.
type Report struct {
	RunID    string
	Modules  []ModuleReport
	Duration time.Duration
}

// Err joins every file failure, or returns nil.
func (r *Report) Err() error {
	var errs []error

	for _, m := range r.Modules {
		for _, f := range m.Files {
			if f.Err != nil {
				errs = append(errs, f.Err)
			}
		}
	}

	return errors.Join(errs...)
}

// FailedCount returns the number of failed files.
func (r *Report) FailedCount() int {
	n := 0

	for i := range r.Modules {
		n += r.Modules[i].FailedCount()
	}

	return n
}

// Totals sums the stats of every file.
func (r *Report) Totals() observability.FileStats {
	var t observability.FileStats

	for _, m := range r.Modules {
		for _, f := range m.Files {
			t.Nodes += f.Stats.Nodes
			t.Bindings += f.Stats.Bindings
			t.Unsupported += f.Stats.Unsupported
		}
	}

	return t
}

func assemble(runID string, plan *Plan, results []FileResult) *Report {
	report := &Report{RunID: runID}

	i := 0

	for _, mp := range plan.Modules {
		mr := ModuleReport{
			Name:    mp.Name,
			Targets: mp.Targets,
			Headers: mp.Headers,
			Files:   results[i : i+len(mp.Tasks)],
		}
		i += len(mp.Tasks)

		seen := make(map[string]bool)

		for _, f := range mr.Files {
			if f.Err != nil {
				continue
			}

			for _, frag := range f.Fragments {
				if !seen[frag] {
					seen[frag] = true
					mr.Fragments = append(mr.Fragments, frag)
				}
			}
		}

		report.Modules = append(report.Modules, mr)
	}

	return report
}
