package clangjson

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Sumatoshi-tech/clangbind/pkg/ast"
)

// The JSON dump has no preprocessing records, so directives are recovered
// by scanning the files that contributed top-level declarations.
var (
	includeLine = regexp.MustCompile(`^(\s*)#\s*include\s*([<"])([^>"]+)[>"]`)
	defineLine  = regexp.MustCompile(`^(\s*)#\s*define\s+([A-Za-z_]\w*)(\(([^)]*)\))?`)
)

func scanDirectives(files []string) []*ast.Node {
	var out []*ast.Node

	for _, file := range files {
		out = append(out, scanFile(file)...)
	}

	return out
}

func scanFile(file string) []*ast.Node {
	f, err := os.Open(file)
	if err != nil {
		return nil
	}
	defer f.Close()

	var out []*ast.Node

	sc := bufio.NewScanner(f)

	for line := 1; sc.Scan(); line++ {
		text := sc.Text()

		if m := includeLine.FindStringSubmatch(text); m != nil {
			dir := &ast.Node{
				K:    ast.KindInclusionDirective,
				Name: m[3],
				Loc:  ast.Location{File: file, Line: line, Column: len(m[1]) + 1},
			}
			dir.SetAttr("angled", m[2] == "<")

			if candidate := filepath.Join(filepath.Dir(file), m[3]); m[2] == `"` && isFile(candidate) {
				dir.SetAttr("included_file", candidate)
			}

			out = append(out, dir)

			continue
		}

		if m := defineLine.FindStringSubmatch(text); m != nil {
			def := &ast.Node{
				K:    ast.KindMacroDefinition,
				Name: m[2],
				Loc:  ast.Location{File: file, Line: line, Column: len(m[1]) + 1},
			}

			if m[3] != "" {
				def.SetAttr("is_macro_function_like", true)
				def.SetAttr("macro_parameters", "("+strings.Join(strings.Fields(strings.ReplaceAll(m[4], ",", ", ")), " ")+")")
			}

			out = append(out, def)
		}
	}

	return out
}

func isFile(path string) bool {
	info, err := os.Stat(path)

	return err == nil && !info.IsDir()
}

// mergeDirectives interleaves directives with the top-level cursors by
// source position. A directive goes before the first cursor of its file
// that starts on a later line; an include also goes before the first
// cursor that came from the included file. Anything unplaced is appended.
func mergeDirectives(kids, directives []*ast.Node) []*ast.Node {
	before := make(map[int][]*ast.Node)

	var tail []*ast.Node

	for _, dir := range directives {
		at := placement(kids, dir)
		if at < 0 {
			tail = append(tail, dir)

			continue
		}

		before[at] = append(before[at], dir)
	}

	out := make([]*ast.Node, 0, len(kids)+len(directives))
	for i, kid := range kids {
		out = append(out, before[i]...)
		out = append(out, kid)
	}

	return append(out, tail...)
}

func placement(kids []*ast.Node, dir *ast.Node) int {
	for i, kid := range kids {
		if kid.Loc.File == dir.Loc.File && kid.Loc.Line > dir.Loc.Line {
			return i
		}

		if dir.K == ast.KindInclusionDirective && kid.Loc.File != dir.Loc.File &&
			strings.HasSuffix(filepath.ToSlash(kid.Loc.File), "/"+dir.Name) {
			return i
		}
	}

	return -1
}
