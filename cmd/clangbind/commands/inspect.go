package commands

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/clangbind/pkg/features"
	"github.com/Sumatoshi-tech/clangbind/pkg/parse"
)

const traitPrefix = "is_"

type inspectOptions struct {
	argLine  string
	includes []string
	kinds    []string
	tokens   bool
}

func newInspectCommand(g *globalFlags) *cobra.Command {
	opts := &inspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show the feature table of one file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd, commonBindings...)
			if err != nil {
				return err
			}

			tree, err := buildTree(cmd, g, cfg, args[0], opts.argLine, opts.includes, opts.tokens)
			if err != nil {
				return err
			}

			renderFeatureTable(cmd, tree, opts.kinds)

			return nil
		},
	}

	addCommonFlags(cmd)
	addTreeFlags(cmd, &opts.argLine, &opts.includes, &opts.tokens)
	cmd.Flags().StringSliceVarP(&opts.kinds, "kind", "k", nil, "only show these cursor kinds, e.g. CXX_METHOD")

	return cmd
}

func renderFeatureTable(cmd *cobra.Command, tree *parse.Tree, kinds []string) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(cmd.OutOrStdout())
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false

	tbl.AppendHeader(table.Row{"Kind", "Spelling", "Line", "Type", "Access", "Traits"})

	rows := 0

	for n := range tree.Walk() {
		rec := n.Record
		kind := rec.KindName()

		if len(kinds) > 0 && !slices.Contains(kinds, kind) {
			continue
		}

		typ, _ := rec.Type.Text(features.PropSpelling)
		access, _ := rec.Cursor.Text(features.PropAccess)

		tbl.AppendRow(table.Row{
			strings.Repeat("  ", rec.Depth) + kind,
			rec.Spelling(),
			fmt.Sprintf("%d:%d", rec.Line, rec.Column),
			typ,
			access,
			strings.Join(traits(rec.Cursor), " "),
		})

		rows++
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d nodes", rows)})
	tbl.Render()
}

// traits lists the true boolean features of a cursor record without the
// "is_" prefix, in key order.
func traits(r features.Record) []string {
	var out []string

	for _, k := range r.Keys() {
		if !strings.HasPrefix(k, traitPrefix) {
			continue
		}

		if v, ok := r.Bool(k); ok && v {
			out = append(out, strings.TrimPrefix(k, traitPrefix))
		}
	}

	return out
}
