package treesitter

import (
	"iter"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/clangbind/pkg/ast"
)

// live yields the named children of container that survive preprocessing,
// descending into the taken branch of each conditional. Conditions are
// evaluated lazily so #define/#undef seen earlier in the same container
// apply.
func (c *converter) live(fs *source, container sitter.Node) iter.Seq[sitter.Node] {
	return func(yield func(sitter.Node) bool) {
		c.liveChildren(fs, container, nil, yield)
	}
}

func (c *converter) liveChildren(fs *source, container sitter.Node, skip []sitter.Node, yield func(sitter.Node) bool) bool {
	for i := range container.NamedChildCount() {
		child := container.NamedChild(i)

		if child.Type() == "comment" || skipped(child, skip) {
			continue
		}

		if isConditional(child.Type()) {
			if !c.branch(fs, child, yield) {
				return false
			}

			continue
		}

		if !yield(child) {
			return false
		}
	}

	return true
}

func skipped(n sitter.Node, skip []sitter.Node) bool {
	for _, s := range skip {
		if sameNode(n, s) {
			return true
		}
	}

	return false
}

func isConditional(typ string) bool {
	switch strings.TrimSuffix(strings.TrimSuffix(typ, "_in_field_declaration_list"), "_in_enumerator_list") {
	case "preproc_if", "preproc_ifdef", "preproc_elif", "preproc_elifdef", "preproc_else":
		return true
	default:
		return false
	}
}

// branch yields the children of the taken branch of a conditional chain.
func (c *converter) branch(fs *source, n sitter.Node, yield func(sitter.Node) bool) bool {
	typ := strings.TrimSuffix(strings.TrimSuffix(n.Type(), "_in_field_declaration_list"), "_in_enumerator_list")

	var (
		taken bool
		skip  []sitter.Node
	)

	switch typ {
	case "preproc_else":
		return c.liveChildren(fs, n, nil, yield)
	case "preproc_ifdef", "preproc_elifdef":
		name := n.ChildByFieldName("name")
		_, defined := c.macros[c.text(fs, name)]
		taken = defined != negatedDirective(n)
		skip = []sitter.Node{name}
	case "preproc_if", "preproc_elif":
		cond := n.ChildByFieldName("condition")

		v, err := evalCondition(c.text(fs, cond), c.macros)
		if err != nil {
			c.diag(fs, cond, ast.SeverityWarning, "cannot evaluate %q: %v", normalizeType(c.text(fs, cond)), err)
		}

		taken = v
		skip = []sitter.Node{cond}
	default:
		return true
	}

	alt := n.ChildByFieldName("alternative")

	if taken {
		return c.liveChildren(fs, n, append(skip, alt), yield)
	}

	if alt.IsNull() {
		return true
	}

	return c.branch(fs, alt, yield)
}

func negatedDirective(n sitter.Node) bool {
	if n.ChildCount() == 0 {
		return false
	}

	switch n.Child(0).Type() {
	case "#ifndef", "#elifndef":
		return true
	default:
		return false
	}
}

func (c *converter) define(fs *source, n sitter.Node) []*ast.Node {
	nameNode := n.ChildByFieldName("name")
	name := c.text(fs, nameNode)

	value := strings.TrimSpace(c.text(fs, n.ChildByFieldName("value")))
	if n.Type() == "preproc_function_def" {
		// Function-like macros only matter to defined() checks.
		value = ""
	}

	c.macros[name] = value

	if !c.detailed {
		return nil
	}

	out := c.mk(fs, n, nameNode, ast.KindMacroDefinition, name)
	if n.Type() == "preproc_function_def" {
		out.SetAttr("is_macro_function_like", true)
		out.SetAttr("macro_parameters", normalizeType(c.text(fs, n.ChildByFieldName("parameters"))))
	}

	return []*ast.Node{out}
}

// directive handles #undef, #pragma once and #error.
func (c *converter) directive(fs *source, n sitter.Node) {
	arg := strings.TrimSpace(c.text(fs, n.ChildByFieldName("argument")))

	switch strings.TrimSpace(c.text(fs, n.ChildByFieldName("directive"))) {
	case "#undef":
		delete(c.macros, arg)
	case "#pragma":
		if arg == "once" {
			c.expanded[fs.path] = struct{}{}
		}
	case "#error":
		c.diag(fs, n, ast.SeverityError, "#error %s", arg)
	case "#warning":
		c.diag(fs, n, ast.SeverityWarning, "#warning %s", arg)
	default:
	}
}

func (c *converter) include(fs *source, n sitter.Node, sc *scopeCtx) []*ast.Node {
	pathNode := n.ChildByFieldName("path")
	raw := c.text(fs, pathNode)
	angled := nodeType(pathNode) == "system_lib_string"
	name := strings.Trim(raw, `<>"`)

	var (
		out []*ast.Node
		dir *ast.Node
	)

	if c.detailed {
		dir = c.mk(fs, n, sitter.Node{}, ast.KindInclusionDirective, name)
		dir.SetAttr("angled", angled)
		out = append(out, dir)
	}

	resolved, ok := c.resolveInclude(fs.path, name, angled)
	if !ok {
		if angled {
			c.diag(fs, n, ast.SeverityNote, "'%s' not expanded", name)
		} else {
			c.diag(fs, n, ast.SeverityFatal, "'%s' file not found", name)
		}

		return out
	}

	if dir != nil {
		dir.SetAttr("included_file", resolved)
	}

	if _, once := c.expanded[resolved]; once {
		return out
	}

	if c.depth >= c.maxDepth {
		c.diag(fs, n, ast.SeverityError, "#include nested too deeply")

		return out
	}

	src, err := os.ReadFile(resolved)
	if err != nil {
		c.diag(fs, n, ast.SeverityFatal, "cannot read '%s': %v", name, err)

		return out
	}

	tree, root, err := c.session.parseSource(c.ctx, src)
	if err != nil {
		c.diag(fs, n, ast.SeverityFatal, "cannot parse '%s': %v", name, err)

		return out
	}
	defer tree.Close()

	header := &source{path: resolved, src: src}
	c.reportSyntaxErrors(header, root)

	c.depth++
	out = append(out, c.items(header, root, sc)...)
	c.depth--

	return out
}

// resolveInclude searches the includer's directory (quoted form only), then
// -iquote (quoted form only), -I and -isystem directories.
func (c *converter) resolveInclude(includer, name string, angled bool) (string, bool) {
	if filepath.IsAbs(name) {
		return name, isFile(name)
	}

	var dirs []string
	if !angled {
		dirs = append(dirs, filepath.Dir(includer))
		dirs = append(dirs, c.flags.quoteDirs...)
	}

	dirs = append(dirs, c.flags.includeDir...)
	dirs = append(dirs, c.flags.systemDirs...)

	for _, dir := range dirs {
		candidate := filepath.Join(dir, name)
		if isFile(candidate) {
			if abs, err := filepath.Abs(candidate); err == nil {
				return abs, true
			}

			return candidate, true
		}
	}

	return "", false
}

func isFile(path string) bool {
	st, err := os.Stat(path)

	return err == nil && st.Mode().IsRegular()
}
