package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/clangbind/internal/config"
	"github.com/Sumatoshi-tech/clangbind/pkg/ast"
	"github.com/Sumatoshi-tech/clangbind/pkg/cmakeapi"
	"github.com/Sumatoshi-tech/clangbind/pkg/compdb"
	"github.com/Sumatoshi-tech/clangbind/pkg/output"
	"github.com/Sumatoshi-tech/clangbind/pkg/pipeline"
)

// ErrFilesFailed is returned when at least one translation unit failed.
var ErrFilesFailed = errors.New("some files failed")

var (
	okLabel    = color.New(color.FgGreen).SprintFunc()
	failLabel  = color.New(color.FgRed).SprintFunc()
	skipLabel  = color.New(color.FgYellow).SprintFunc()
	noteLabel  = color.New(color.FgCyan).SprintFunc()
	boldHeader = color.New(color.Bold).SprintFunc()
)

type generateOptions struct {
	check    bool
	argLine  string
	includes []string
}

// commonBindings are the flags shared by generate, parse and inspect.
var commonBindings = []flagBinding{
	{"frontend", "frontend"},
	{"compile-commands", "compile_commands"},
	{"project-root", "project_root"},
	{"clang-path", "clang.path"},
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().String("frontend", "", "C++ front-end: treesitter or clang")
	cmd.Flags().StringP("compile-commands", "p", "", "compile_commands.json or its directory")
	cmd.Flags().String("project-root", "", "project root for relative paths and patterns")
	cmd.Flags().String("clang-path", "", "clang binary used by the clang front-end")
}

func newGenerateCommand(g *globalFlags) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate [files...]",
		Short: "Write binding modules for CMake targets or source files",
		Long: `Generate parses every translation unit and writes one <module>.cpp per
module into the output directory.

Without file arguments the CMake File API reply in --build-dir selects the
library targets and their sources; run "clangbind cmake-query" before the
next cmake configure to request it. With only --compile-commands every
translation unit of the database is bound into one module.

Failed files are reported and the remaining output is still written; the
command then exits non-zero.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd, append(commonBindings,
				flagBinding{"build-dir", "build_dir"},
				flagBinding{"module", "module"},
				flagBinding{"out-dir", "out_dir"},
				flagBinding{"target", "targets"},
				flagBinding{"select", "select_files"},
				flagBinding{"ignore", "ignore_files"},
				flagBinding{"workers", "pipeline.workers"},
				flagBinding{"timeout", "pipeline.timeout"},
				flagBinding{"allow-inclusions-from-other-targets", "allow_inclusions_from_other_targets"},
				flagBinding{"unsupported", "generate.unsupported"},
				flagBinding{"namespaces", "generate.namespaces"},
				flagBinding{"metrics-textfile", "telemetry.metrics_textfile"},
			)...)
			if err != nil {
				return err
			}

			return runGenerate(cmd, g, cfg, args, opts)
		},
	}

	addCommonFlags(cmd)

	f := cmd.Flags()
	f.StringP("build-dir", "B", "", "CMake build directory holding the File API reply")
	f.StringP("module", "m", "", "bind everything into one module with this name")
	f.StringP("out-dir", "o", "", "directory receiving <module>.cpp files")
	f.StringSliceP("target", "t", nil, "CMake targets to bind (default: every library target)")
	f.StringSlice("select", nil, "glob of project-relative files to bind")
	f.StringSlice("ignore", nil, "glob of project-relative files to skip")
	f.IntP("workers", "j", 0, "parallel file tasks (default: GOMAXPROCS)")
	f.Duration("timeout", 0, "wall-clock budget of one file")
	f.Bool("allow-inclusions-from-other-targets", true, "keep declarations from headers of dependency targets")
	f.String("unsupported", "", "unsupported declarations: skip or fail")
	f.String("namespaces", "", "namespace mapping: flatten or submodule")
	f.String("metrics-textfile", "", "write Prometheus metrics to this file at exit")
	f.BoolVar(&opts.check, "check", false, "compare with existing output instead of writing")
	f.StringVar(&opts.argLine, "args", "", "compiler arguments for files given on the command line")
	f.StringSliceVar(&opts.includes, "include", nil, "headers whose declarations are bound with the files")

	return cmd
}

func runGenerate(cmd *cobra.Command, g *globalFlags, cfg *config.Config, files []string, opts *generateOptions) error {
	providers, err := g.telemetry(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer shutdown(providers)

	logger := providers.Logger

	fe, err := newFrontend(cfg, false)
	if err != nil {
		return err
	}

	gen, err := newGenerator(cfg, logger, providers.Tracer)
	if err != nil {
		return err
	}

	plan, err := buildPlan(cfg, files, opts)
	if err != nil {
		return err
	}

	runner, err := pipeline.New(pipeline.Options{
		Frontend:  fe,
		Generator: gen,
		Logger:    logger,
		Tracer:    providers.Tracer,
		Meter:     providers.Meter,
		Workers:   cfg.Pipeline.Workers,
		Timeout:   cfg.Pipeline.Timeout,
	})
	if err != nil {
		return err
	}

	report := runner.Run(cmd.Context(), plan)

	out := cmd.OutOrStdout()
	root := displayRoot(cfg)
	writer := output.NewWriter(cfg.OutDir, logger)

	var errs []error

	for i := range report.Modules {
		mod := &report.Modules[i]

		printFiles(out, root, mod)

		if err := emitModule(out, writer, mod, opts.check); err != nil {
			errs = append(errs, err)
		}
	}

	printSummary(out, report)

	if n := report.FailedCount(); n > 0 {
		errs = append(errs, fmt.Errorf("%w: %d of %d: %w", ErrFilesFailed, n, plan.Len(), report.Err()))
	}

	return errors.Join(errs...)
}

func buildPlan(cfg *config.Config, files []string, opts *generateOptions) (*pipeline.Plan, error) {
	source, db, err := argsSource(cfg, opts.argLine)
	if err != nil {
		return nil, err
	}

	planOpts := pipeline.PlanOptions{
		Module:                          cfg.Module,
		ProjectRoot:                     cfg.ProjectRoot,
		Targets:                         cfg.Targets,
		SelectFiles:                     cfg.SelectFiles,
		IgnoreFiles:                     cfg.IgnoreFiles,
		AllowInclusionsFromOtherTargets: cfg.AllowInclusionsFromOtherTargets,
	}

	switch {
	case len(files) > 0:
		return pipeline.PlanFiles(files, opts.includes, source, planOpts)
	case cfg.BuildDir != "":
		model, err := cmakeapi.Load(cfg.BuildDir)
		if errors.Is(err, cmakeapi.ErrNoReply) {
			return nil, fmt.Errorf("%w (run \"clangbind cmake-query %s\" and re-run cmake)", err, cfg.BuildDir)
		}

		if err != nil {
			return nil, err
		}

		return pipeline.PlanTargets(model, source, planOpts)
	case db != nil:
		return pipeline.PlanFiles(databaseUnits(db, cfg.ProjectRoot), opts.includes, db, planOpts)
	default:
		return nil, ErrNoInput
	}
}

func databaseUnits(db *compdb.Database, root string) []string {
	var units []string

	for _, f := range db.Files() {
		rel := f
		if root != "" {
			if r, err := filepath.Rel(root, f); err == nil {
				rel = r
			}
		}

		if pipeline.ClassifySource(f, rel) == pipeline.SourceUnit {
			units = append(units, f)
		}
	}

	return units
}

func displayRoot(cfg *config.Config) string {
	if cfg.ProjectRoot != "" {
		return cfg.ProjectRoot
	}

	wd, err := os.Getwd()
	if err != nil {
		return ""
	}

	return wd
}

func displayPath(root, p string) string {
	if root == "" {
		return p
	}

	rel, err := filepath.Rel(root, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return p
	}

	return rel
}

func printFiles(w io.Writer, root string, mod *pipeline.ModuleReport) {
	for _, f := range mod.Files {
		name := displayPath(root, f.File)

		if f.Err != nil {
			fmt.Fprintf(w, "%s %s: %v\n", failLabel("FAIL"), name, f.Err)

			continue
		}

		fmt.Fprintf(w, "%s   %s (%d bindings, %s)\n", okLabel("OK"), name, f.Stats.Bindings, f.Duration.Round(time.Millisecond))

		for _, d := range f.Diagnostics.AtLeast(ast.SeverityWarning) {
			fmt.Fprintf(w, "     %s %s\n", noteLabel("note:"), d.String())
		}
	}
}

// emitModule writes the module, or diffs it in check mode. A module whose
// every file failed is skipped so a previous good output survives.
func emitModule(w io.Writer, writer *output.Writer, mod *pipeline.ModuleReport, check bool) error {
	if len(mod.Files) > 0 && mod.FailedCount() == len(mod.Files) {
		fmt.Fprintf(w, "%s %s (no file succeeded)\n", skipLabel("SKIP"), writer.Path(mod.Name))

		return nil
	}

	source := mod.Source()

	if check {
		diff, err := writer.Check(mod.Name, source)
		if errors.Is(err, output.ErrStale) {
			fmt.Fprintf(w, "%s %s\n%s", failLabel("STALE"), writer.Path(mod.Name), diff)
		}

		return err
	}

	changed, err := writer.Write(mod.Name, source)
	if err != nil {
		return err
	}

	state := "unchanged"
	if changed {
		state = "written"
	}

	fmt.Fprintf(w, "%s %s (%s, %s)\n", okLabel("OK"), writer.Path(mod.Name), humanize.Bytes(uint64(len(source))), state)

	return nil
}

func printSummary(w io.Writer, report *pipeline.Report) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false

	tbl.AppendHeader(table.Row{"Module", "Files", "Failed", "Nodes", "Bindings", "Unsupported", "Size"})

	for i := range report.Modules {
		mod := &report.Modules[i]

		var nodes, bindings, unsupported int

		for _, f := range mod.Files {
			nodes += f.Stats.Nodes
			bindings += f.Stats.Bindings
			unsupported += f.Stats.Unsupported
		}

		tbl.AppendRow(table.Row{
			mod.Name,
			len(mod.Files),
			mod.FailedCount(),
			humanize.Comma(int64(nodes)),
			humanize.Comma(int64(bindings)),
			unsupported,
			humanize.Bytes(uint64(len(mod.Source()))),
		})
	}

	totals := report.Totals()
	tbl.AppendFooter(table.Row{
		"Total", "", report.FailedCount(),
		humanize.Comma(int64(totals.Nodes)), humanize.Comma(int64(totals.Bindings)), totals.Unsupported, "",
	})

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s in %s\n", boldHeader("run "+report.RunID), report.Duration.Round(time.Millisecond))
	tbl.Render()
}
