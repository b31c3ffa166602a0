package commands

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/clangbind/pkg/cmakeapi"
	"github.com/Sumatoshi-tech/clangbind/pkg/pipeline"
)

// ErrNoBuildDir is returned when no build directory is configured.
var ErrNoBuildDir = errors.New("build directory is required (use --build-dir or build_dir)")

func newTargetsCommand(g *globalFlags) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "targets",
		Short: "List CMake targets of a build directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load(cmd, flagBinding{"build-dir", "build_dir"})
			if err != nil {
				return err
			}

			if cfg.BuildDir == "" {
				return ErrNoBuildDir
			}

			model, err := cmakeapi.Load(cfg.BuildDir)
			if err != nil {
				return err
			}

			renderTargets(cmd, model, all)

			return nil
		},
	}

	cmd.Flags().StringP("build-dir", "B", "", "CMake build directory holding the File API reply")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include executables and utility targets")

	return cmd
}

func renderTargets(cmd *cobra.Command, model *cmakeapi.Model, all bool) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(cmd.OutOrStdout())
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false

	tbl.AppendHeader(table.Row{"Target", "Type", "Units", "Headers", "Depends on"})

	rows := 0

	for _, t := range model.Targets() {
		if !all && !t.IsLibrary() {
			continue
		}

		var units, headers int

		for _, p := range t.SourcePaths() {
			rel, err := filepath.Rel(model.SourceDir, p)
			if err != nil {
				rel = p
			}

			switch pipeline.ClassifySource(p, rel) {
			case pipeline.SourceUnit:
				units++
			case pipeline.SourceInclusion:
				headers++
			case pipeline.SourceOther:
			}
		}

		tbl.AppendRow(table.Row{t.Name, t.Type, units, headers, strings.Join(t.Dependencies, ", ")})

		rows++
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d targets", rows)})
	tbl.Render()
}

func newCMakeQueryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cmake-query <build-dir>",
		Short: "Request the CMake File API codemodel",
		Long: `Cmake-query writes the File API query file into the build directory.
The next cmake configure of that directory produces the codemodel reply that
generate and targets read.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cmakeapi.WriteQuery(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", okLabel("OK"), path)
			fmt.Fprintf(cmd.OutOrStdout(), "%s re-run cmake in %s to produce the reply\n", noteLabel("note:"), args[0])

			return nil
		},
	}
}
