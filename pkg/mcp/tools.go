package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	json "github.com/goccy/go-json"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/clangbind/pkg/ast"
	"github.com/Sumatoshi-tech/clangbind/pkg/bind"
	"github.com/Sumatoshi-tech/clangbind/pkg/parse"
)

// Tool name constants.
const (
	ToolNameParse    = "clangbind_parse"
	ToolNameGenerate = "clangbind_generate"
)

// MaxCodeInputBytes is the maximum allowed size for inline code input (1 MB).
const MaxCodeInputBytes = 1 << 20

const (
	defaultFilename = "input.cpp"
	defaultModule   = "bindings"
)

// Sentinel errors for tool input validation.
var (
	ErrEmptyCode     = errors.New("code parameter is required and must not be empty")
	ErrCodeTooLarge  = errors.New("code input exceeds maximum size")
	ErrBadModuleName = errors.New("module must be a C++ identifier")
	ErrBadFilename   = errors.New("filename must be a bare file name")
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ParseInput is the input schema for the clangbind_parse tool.
type ParseInput struct {
	Code     string   `json:"code"               jsonschema:"C++ source code to parse"`
	Filename string   `json:"filename,omitempty" jsonschema:"file name used for the translation unit (default input.cpp)"`
	Args     []string `json:"args,omitempty"     jsonschema:"compiler arguments such as -DNAME or -std=c++17"`
	Paths    bool     `json:"paths,omitempty"    jsonschema:"return root-to-leaf kind paths instead of the tree"`
}

// GenerateInput is the input schema for the clangbind_generate tool.
type GenerateInput struct {
	Code        string   `json:"code"                  jsonschema:"C++ source code to bind"`
	Module      string   `json:"module,omitempty"      jsonschema:"Python module name (default bindings)"`
	Args        []string `json:"args,omitempty"        jsonschema:"compiler arguments such as -DNAME or -std=c++17"`
	Namespaces  string   `json:"namespaces,omitempty"  jsonschema:"namespace policy: flatten or submodule"`
	Unsupported string   `json:"unsupported,omitempty" jsonschema:"unsupported declaration policy: skip or fail"`
}

// GenerateResult is the structured result of clangbind_generate.
type GenerateResult struct {
	Source      string   `json:"source"`
	Bindings    int      `json:"bindings"`
	Skipped     int      `json:"skipped"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

func validateCode(code string) error {
	if code == "" {
		return ErrEmptyCode
	}

	if len(code) > MaxCodeInputBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrCodeTooLarge, len(code), MaxCodeInputBytes)
	}

	return nil
}

// buildTree writes code to a scratch directory and builds its tree.
func (s *Server) buildTree(ctx context.Context, code, filename string, args []string) (*parse.Tree, error) {
	if err := validateCode(code); err != nil {
		return nil, err
	}

	if filename == "" {
		filename = defaultFilename
	}

	if filepath.Base(filename) != filename {
		return nil, fmt.Errorf("%w: %q", ErrBadFilename, filename)
	}

	dir, err := os.MkdirTemp("", "clangbind-mcp-")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	file := filepath.Join(dir, filename)
	if err := os.WriteFile(file, []byte(code), 0o600); err != nil {
		return nil, fmt.Errorf("write scratch file: %w", err)
	}

	return parse.NewBuilder(s.frontend, parse.WithLogger(s.logger)).Build(ctx, file, args, nil)
}

func (s *Server) handleParse(ctx context.Context, _ *mcpsdk.CallToolRequest, input ParseInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	tree, err := s.buildTree(ctx, input.Code, input.Filename, input.Args)
	if err != nil {
		return errorResult(err)
	}

	if !input.Paths {
		return jsonResult(tree.Dump(tree.Root()))
	}

	var paths [][]string

	for _, p := range tree.PathsToLeaves() {
		kinds := make([]string, 0, len(p))

		for _, id := range p {
			if n, ok := tree.Node(id); ok {
				kinds = append(kinds, n.Record.KindName())
			}
		}

		paths = append(paths, kinds)
	}

	return jsonResult(paths)
}

func (s *Server) handleGenerate(ctx context.Context, _ *mcpsdk.CallToolRequest, input GenerateInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	module := input.Module
	if module == "" {
		module = defaultModule
	}

	if !identRe.MatchString(module) {
		return errorResult(fmt.Errorf("%w: %q", ErrBadModuleName, module))
	}

	namespaces, err := bind.ParseNamespacePolicy(input.Namespaces)
	if err != nil {
		return errorResult(err)
	}

	unsupported, err := bind.ParseUnsupportedPolicy(input.Unsupported)
	if err != nil {
		return errorResult(err)
	}

	tree, err := s.buildTree(ctx, input.Code, "", input.Args)
	if err != nil {
		return errorResult(err)
	}

	gen := bind.New(bind.Options{Logger: s.logger, Namespaces: namespaces, Unsupported: unsupported})

	res, err := gen.Generate(ctx, module, tree)
	if err != nil {
		return errorResult(err)
	}

	out := GenerateResult{
		Source:   bind.Module(module, nil, res.Fragments),
		Bindings: res.Bindings,
		Skipped:  res.Skipped,
	}

	for _, d := range tree.Diagnostics.AtLeast(ast.SeverityWarning) {
		out.Diagnostics = append(out.Diagnostics, d.String())
	}

	return jsonResult(out)
}
