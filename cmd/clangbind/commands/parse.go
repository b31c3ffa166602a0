package commands

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/clangbind/internal/config"
	"github.com/Sumatoshi-tech/clangbind/pkg/features"
	"github.com/Sumatoshi-tech/clangbind/pkg/output"
	"github.com/Sumatoshi-tech/clangbind/pkg/parse"
)

const defaultDumpFormat = "yaml"

type parseOptions struct {
	format   string
	out      string
	argLine  string
	includes []string
	paths    bool
	tokens   bool
}

func newParseCommand(g *globalFlags) *cobra.Command {
	opts := &parseOptions{}

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Dump the enriched AST of one file",
		Long: `Parse builds the enriched tree of one translation unit and dumps it.

The format follows the extension of --output (.json, .yaml, with an optional
.lz4 suffix for compressed dumps) or --format when writing to stdout. With
--paths every root-to-leaf path is printed instead, one per line.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd, commonBindings...)
			if err != nil {
				return err
			}

			return runParse(cmd, g, cfg, args[0], opts)
		},
	}

	addCommonFlags(cmd)
	addTreeFlags(cmd, &opts.argLine, &opts.includes, &opts.tokens)

	cmd.Flags().StringVarP(&opts.format, "format", "f", defaultDumpFormat, "dump format: json, yaml, json+lz4, yaml+lz4")
	cmd.Flags().StringVarP(&opts.out, "output", "o", "-", "output file, - for stdout")
	cmd.Flags().BoolVar(&opts.paths, "paths", false, "print root-to-leaf paths instead of the tree")

	return cmd
}

func addTreeFlags(cmd *cobra.Command, argLine *string, includes *[]string, tokens *bool) {
	cmd.Flags().StringVar(argLine, "args", "", "compiler arguments, shell quoted")
	cmd.Flags().StringSliceVar(includes, "include", nil, "headers whose declarations are kept in the tree")
	cmd.Flags().BoolVar(tokens, "tokens", false, "attach source tokens to node records")
}

// buildTree parses file the way generate would, resolving its arguments
// from the compilation database or --args.
func buildTree(cmd *cobra.Command, g *globalFlags, cfg *config.Config, file, argLine string, includes []string, tokens bool) (*parse.Tree, error) {
	providers, err := g.telemetry(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	defer shutdown(providers)

	fe, err := newFrontend(cfg, tokens)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", file, err)
	}

	source, _, err := argsSource(cfg, argLine)
	if err != nil {
		return nil, err
	}

	var args []string

	if source != nil {
		args, err = source.Arguments(abs)
		if err != nil {
			return nil, err
		}
	}

	inclusions := make([]string, 0, len(includes))
	for _, inc := range includes {
		p, _ := filepath.Abs(inc)
		inclusions = append(inclusions, p)
	}

	builder := parse.NewBuilder(fe,
		parse.WithLogger(providers.Logger),
		parse.WithReflector(features.NewReflector(features.WithTokens(tokens))),
	)

	return builder.Build(cmd.Context(), abs, args, inclusions)
}

func runParse(cmd *cobra.Command, g *globalFlags, cfg *config.Config, file string, opts *parseOptions) error {
	tree, err := buildTree(cmd, g, cfg, file, opts.argLine, opts.includes, opts.tokens)
	if err != nil {
		return err
	}

	if opts.paths {
		return printPaths(cmd.OutOrStdout(), tree)
	}

	codec, err := output.CodecForPath(opts.out, opts.format)
	if err != nil {
		return err
	}

	return output.Encode(cmd.OutOrStdout(), opts.out, codec, tree.Dump(tree.Root()))
}

func printPaths(w io.Writer, tree *parse.Tree) error {
	for _, path := range tree.PathsToLeaves() {
		parts := make([]string, 0, len(path))

		for _, id := range path[1:] {
			n, ok := tree.Node(id)
			if !ok {
				continue
			}

			label := n.Record.KindName()
			if s := n.Record.Spelling(); s != "" {
				label += ":" + s
			}

			parts = append(parts, label)
		}

		if len(parts) == 0 {
			continue
		}

		if _, err := fmt.Fprintln(w, strings.Join(parts, " > ")); err != nil {
			return fmt.Errorf("write paths: %w", err)
		}
	}

	return nil
}
