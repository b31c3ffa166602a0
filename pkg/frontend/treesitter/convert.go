package treesitter

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/clangbind/pkg/ast"
)

// source is one file being converted.
type source struct {
	path string
	src  []byte
}

// scopeCtx carries the enclosing declaration context.
type scopeCtx struct {
	class  string
	access ast.Access
}

func (sc *scopeCtx) memberAccess() ast.Access {
	if sc == nil || sc.class == "" {
		return ast.AccessInvalid
	}

	return sc.access
}

// converter maps one translation unit's grammar trees onto ast.Nodes.
type converter struct {
	ctx       context.Context //nolint:containedctx // scoped to one Parse call.
	session   *Session
	macros    map[string]string
	records   map[string]string // record name (simple and qualified) -> tag keyword.
	expanded  map[string]struct{}
	templates map[string]struct{}
	flags     compileFlags
	diags     ast.Diagnostics
	scope     []string
	maxDepth  int
	depth     int
	detailed  bool
	tokens    bool
}

func (c *converter) translationUnit(file string, src []byte) (*ast.Node, error) {
	tree, root, err := c.session.parseSource(c.ctx, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	fs := &source{path: file, src: src}
	c.reportSyntaxErrors(fs, root)

	tu := &ast.Node{K: ast.KindTranslationUnit, Name: file, Loc: ast.Location{File: file}}
	tu.Kids = c.items(fs, root, &scopeCtx{})

	if err := c.ctx.Err(); err != nil {
		return nil, err
	}

	return tu, nil
}

func (c *converter) text(fs *source, n sitter.Node) string {
	if n.IsNull() {
		return ""
	}

	return n.Content(fs.src)
}

func (c *converter) loc(fs *source, n sitter.Node) ast.Location {
	p := n.StartPoint()

	return ast.Location{File: fs.path, Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

// mk creates a cursor for grammar node n, located at `at` when non-null.
func (c *converter) mk(fs *source, n, at sitter.Node, kind ast.Kind, name string) *ast.Node {
	locNode := n
	if !at.IsNull() {
		locNode = at
	}

	out := &ast.Node{K: kind, Name: name, Loc: c.loc(fs, locNode)}

	if c.tokens {
		out.Toks = c.leafTokens(fs, n, nil)
	}

	return out
}

func (c *converter) leafTokens(fs *source, n sitter.Node, acc []string) []string {
	if n.ChildCount() == 0 {
		if tok := strings.TrimSpace(c.text(fs, n)); tok != "" {
			acc = append(acc, tok)
		}

		return acc
	}

	for i := range n.ChildCount() {
		acc = c.leafTokens(fs, n.Child(i), acc)
	}

	return acc
}

func (c *converter) diag(fs *source, n sitter.Node, sev ast.Severity, format string, args ...any) {
	d := ast.Diagnostic{Severity: sev, Message: fmt.Sprintf(format, args...)}
	if !n.IsNull() {
		d.Location = c.loc(fs, n)
	} else {
		d.Location = ast.Location{File: fs.path}
	}

	c.diags = append(c.diags, d)
}

func (c *converter) reportSyntaxErrors(fs *source, n sitter.Node) {
	if n.Type() == "ERROR" {
		snippet := strings.Join(strings.Fields(c.text(fs, n)), " ")
		if len(snippet) > 40 { //nolint:mnd // diagnostic snippet width.
			snippet = snippet[:40] + "..."
		}

		c.diag(fs, n, ast.SeverityError, "syntax error near %q", snippet)

		return
	}

	for i := range n.NamedChildCount() {
		c.reportSyntaxErrors(fs, n.NamedChild(i))
	}
}

// items converts the live declaration-scope children of parent.
func (c *converter) items(fs *source, parent sitter.Node, sc *scopeCtx) []*ast.Node {
	var out []*ast.Node

	for child := range c.live(fs, parent) {
		if c.ctx.Err() != nil {
			break
		}

		out = append(out, c.item(fs, child, sc)...)
	}

	return out
}

func (c *converter) item(fs *source, n sitter.Node, sc *scopeCtx) []*ast.Node {
	switch n.Type() {
	case "namespace_definition":
		return []*ast.Node{c.namespace(fs, n)}
	case "linkage_specification":
		return []*ast.Node{c.linkage(fs, n, sc)}
	case "struct_specifier", "class_specifier", "union_specifier":
		return []*ast.Node{c.record(fs, n, sc)}
	case "enum_specifier":
		return []*ast.Node{c.enum(fs, n, sc)}
	case "declaration", "constructor_or_destructor_declaration", "operator_cast_declaration":
		return c.declaration(fs, n, sc, false)
	case "field_declaration":
		return c.declaration(fs, n, sc, true)
	case "function_definition", "inline_method_definition", "constructor_or_destructor_definition",
		"operator_cast_definition":
		return c.functionDefinition(fs, n, sc)
	case "template_declaration":
		return c.template(fs, n, sc)
	case "type_definition":
		return c.typedef(fs, n, sc)
	case "alias_declaration":
		return []*ast.Node{c.alias(fs, n, sc)}
	case "using_declaration":
		return []*ast.Node{c.using(fs, n, sc)}
	case "namespace_alias_definition":
		return []*ast.Node{c.namespaceAlias(fs, n)}
	case "static_assert_declaration":
		return []*ast.Node{c.staticAssert(fs, n)}
	case "friend_declaration":
		return []*ast.Node{c.friend(fs, n, sc)}
	case "access_specifier":
		return []*ast.Node{c.accessSpecifier(fs, n, sc)}
	case "preproc_include":
		return c.include(fs, n, sc)
	case "preproc_def", "preproc_function_def":
		return c.define(fs, n)
	case "preproc_call":
		c.directive(fs, n)

		return nil
	case "ERROR":
		return c.items(fs, n, sc)
	case "expression_statement", "comment":
		return nil
	default:
		un := c.mk(fs, n, sitter.Node{}, ast.KindUnexposedDecl, "")
		un.SetAttr("grammar_node", n.Type())

		return []*ast.Node{un}
	}
}

func (c *converter) pushScope(name string) func() {
	c.scope = append(c.scope, name)

	return func() {
		c.scope = c.scope[:len(c.scope)-1]
	}
}

// qualify joins the current named scopes with name.
func (c *converter) qualify(name string) string {
	parts := make([]string, 0, len(c.scope)+1)

	for _, s := range c.scope {
		if s != "" {
			parts = append(parts, s)
		}
	}

	return strings.Join(append(parts, name), "::")
}

func (c *converter) namespace(fs *source, n sitter.Node) *ast.Node {
	nameNode := n.ChildByFieldName("name")
	body := n.ChildByFieldName("body")

	var names []string
	if !nameNode.IsNull() {
		for part := range strings.SplitSeq(c.text(fs, nameNode), "::") {
			part = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), "inline"))
			names = append(names, part)
		}
	} else {
		names = []string{""}
	}

	var outer, inner *ast.Node

	pops := make([]func(), 0, len(names))

	for _, name := range names {
		ns := c.mk(fs, n, nameNode, ast.KindNamespace, name)
		ns.Flags |= ast.TraitDefinition

		if name == "" {
			ns.Flags |= ast.TraitAnonymous
		}

		if hasChildType(n, "inline") {
			ns.Flags |= ast.TraitInline
		}

		if outer == nil {
			outer = ns
		} else {
			inner.Add(ns)
		}

		inner = ns

		pops = append(pops, c.pushScope(name))
	}

	if !body.IsNull() {
		inner.Add(c.items(fs, body, &scopeCtx{})...)
	}

	for i := len(pops) - 1; i >= 0; i-- {
		pops[i]()
	}

	return outer
}

func (c *converter) linkage(fs *source, n sitter.Node, sc *scopeCtx) *ast.Node {
	out := c.mk(fs, n, sitter.Node{}, ast.KindLinkageSpec, "")
	out.SetAttr("language", strings.Trim(c.text(fs, n.ChildByFieldName("value")), `"`))

	body := n.ChildByFieldName("body")
	if body.IsNull() {
		return out
	}

	if body.Type() == "declaration_list" {
		out.Add(c.items(fs, body, sc)...)
	} else {
		out.Add(c.item(fs, body, sc)...)
	}

	return out
}

var recordKinds = map[string]ast.Kind{
	"struct": ast.KindStructDecl,
	"class":  ast.KindClassDecl,
	"union":  ast.KindUnionDecl,
}

func (c *converter) record(fs *source, n sitter.Node, sc *scopeCtx) *ast.Node {
	tag := strings.TrimSuffix(n.Type(), "_specifier")
	nameNode := n.ChildByFieldName("name")
	body := n.ChildByFieldName("body")

	name := ""
	specialization := false

	switch nodeType(nameNode) {
	case "template_type":
		name = c.text(fs, nameNode.ChildByFieldName("name"))
		specialization = true
	case "qualified_identifier":
		name = lastComponent(c.text(fs, nameNode))
	default:
		name = c.text(fs, nameNode)
	}

	out := c.mk(fs, n, nameNode, recordKinds[tag], name)
	out.Acc = sc.memberAccess()

	args := ""
	if specialization {
		args = c.text(fs, nameNode.ChildByFieldName("arguments"))
		out.SetAttr("specialization_args", args)
	}

	if name == "" {
		out.Flags |= ast.TraitAnonymous
		out.Typ = ast.Type{Kind: ast.TypeRecord, Spelling: "(anonymous " + tag + ")"}
	} else {
		qualified := c.qualify(name)
		c.records[name] = tag
		c.records[qualified] = tag
		out.Typ = ast.Type{Kind: ast.TypeRecord, Spelling: qualified + args}
	}

	if body.IsNull() {
		return out
	}

	out.Flags |= ast.TraitDefinition

	for i := range n.NamedChildCount() {
		child := n.NamedChild(i)

		switch child.Type() {
		case "virtual_specifier":
			if c.text(fs, child) == "final" {
				out.Flags |= ast.TraitFinal
			}
		case "base_class_clause":
			out.Add(c.bases(fs, child, tag)...)
		default:
		}
	}

	defaultAccess := ast.AccessPublic
	if tag == "class" {
		defaultAccess = ast.AccessPrivate
	}

	pop := c.pushScope(name)
	out.Add(c.items(fs, body, &scopeCtx{class: name, access: defaultAccess})...)
	pop()

	return out
}

func (c *converter) bases(fs *source, clause sitter.Node, derivedTag string) []*ast.Node {
	defaultAccess := ast.AccessPublic
	if derivedTag == "class" {
		defaultAccess = ast.AccessPrivate
	}

	access := defaultAccess
	virtual := false

	var out []*ast.Node

	for i := range clause.ChildCount() {
		child := clause.Child(i)

		switch child.Type() {
		case "access_specifier", "public", "protected", "private":
			if acc, ok := ast.ParseAccess(c.text(fs, child)); ok {
				access = acc
			}
		case "virtual":
			virtual = true
		case ",":
			access = defaultAccess
			virtual = false
		case "type_identifier", "qualified_identifier", "template_type":
			name := c.text(fs, child)
			spelling := c.tagged(name)

			base := c.mk(fs, child, sitter.Node{}, ast.KindCXXBaseSpecifier, spelling)
			base.Acc = access
			base.Typ = ast.Type{Kind: ast.TypeRecord, Spelling: name}

			if virtual {
				base.Flags |= ast.TraitVirtual
			}

			base.Add(c.typeRefs(fs, child)...)
			out = append(out, base)
		default:
		}
	}

	return out
}

// tagged prefixes a known record name with its tag keyword, as compilers
// spell record references ("struct Base").
func (c *converter) tagged(name string) string {
	lookup := name
	if i := strings.IndexByte(lookup, '<'); i >= 0 {
		lookup = lookup[:i]
	}

	if tag, ok := c.records[strings.TrimPrefix(lookup, "::")]; ok {
		return tag + " " + name
	}

	return name
}

func (c *converter) isRecord(name string) bool {
	_, ok := c.records[strings.TrimPrefix(name, "::")]

	return ok
}

// typeOf classifies a type spelling with what the converter knows about
// records and template parameters in scope.
func (c *converter) typeOf(spelling string) ast.Type {
	t := ast.ParseType(spelling, c.isRecord)
	c.markDependent(&t)

	return t
}

func (c *converter) markDependent(t *ast.Type) {
	if t.Pointee != nil {
		c.markDependent(t.Pointee)
	}

	if t.Kind != ast.TypeElaborated {
		return
	}

	base := strings.TrimPrefix(strings.TrimPrefix(t.Spelling, "const "), "volatile ")
	if _, ok := c.templates[base]; ok {
		t.Kind = ast.TypeUnexposed
	}
}

func (c *converter) enum(fs *source, n sitter.Node, sc *scopeCtx) *ast.Node {
	nameNode := n.ChildByFieldName("name")
	name := lastComponent(c.text(fs, nameNode))
	body := n.ChildByFieldName("body")

	out := c.mk(fs, n, nameNode, ast.KindEnumDecl, name)
	out.Acc = sc.memberAccess()

	if name == "" {
		out.Flags |= ast.TraitAnonymous
	}

	if hasChildType(n, "class") || hasChildType(n, "struct") {
		out.Flags |= ast.TraitScoped
	}

	qualified := c.qualify(name)
	out.Typ = ast.Type{Kind: ast.TypeEnum, Spelling: qualified}

	if base := n.ChildByFieldName("base"); !base.IsNull() {
		out.SetAttr("integer_type", normalizeType(c.text(fs, base)))
	}

	if body.IsNull() {
		return out
	}

	out.Flags |= ast.TraitDefinition

	values := make(map[string]string)
	next := int64(0)
	known := true

	for child := range c.live(fs, body) {
		if child.Type() != "enumerator" {
			continue
		}

		constName := c.text(fs, child.ChildByFieldName("name"))
		constant := c.mk(fs, child, child.ChildByFieldName("name"), ast.KindEnumConstantDecl, constName)
		constant.Typ = ast.Type{Kind: ast.TypeEnum, Spelling: qualified}

		if value := child.ChildByFieldName("value"); !value.IsNull() {
			constant.Add(c.expr(fs, value))

			v, err := evalInteger(c.text(fs, value), mergeMacros(c.macros, values))
			next, known = v, err == nil
		}

		if known {
			constant.SetAttr("enum_value", next)
			values[constName] = fmt.Sprint(next)
		}

		next++

		out.Add(constant)
	}

	return out
}

func mergeMacros(macros, extra map[string]string) map[string]string {
	out := make(map[string]string, len(macros)+len(extra))
	for k, v := range macros {
		out[k] = v
	}

	for k, v := range extra {
		out[k] = v
	}

	return out
}

func (c *converter) accessSpecifier(fs *source, n sitter.Node, sc *scopeCtx) *ast.Node {
	out := c.mk(fs, n, sitter.Node{}, ast.KindCXXAccessSpecifier, "")

	if acc, ok := ast.ParseAccess(c.text(fs, n)); ok && sc != nil {
		sc.access = acc
	}

	out.Acc = sc.memberAccess()

	return out
}

func (c *converter) typedef(fs *source, n sitter.Node, sc *scopeCtx) []*ast.Node {
	var out []*ast.Node

	typeNode := n.ChildByFieldName("type")
	base := c.baseType(fs, n, typeNode, sc, &out)

	for _, group := range c.declaratorGroups(n, typeNode) {
		info := c.declarator(fs, group.decl, base)
		td := c.mk(fs, n, info.nameNode, ast.KindTypedefDecl, info.name)
		td.Acc = sc.memberAccess()
		td.Typ = ast.Type{Kind: ast.TypeTypedef, Spelling: c.qualify(info.name)}
		td.SetAttr("underlying_type", c.typeOf(info.typ).Spelling)
		td.Add(c.typeRefs(fs, typeNode)...)

		out = append(out, td)
	}

	return out
}

func (c *converter) alias(fs *source, n sitter.Node, sc *scopeCtx) *ast.Node {
	nameNode := n.ChildByFieldName("name")
	typeNode := n.ChildByFieldName("type")

	name := c.text(fs, nameNode)
	out := c.mk(fs, n, nameNode, ast.KindTypeAliasDecl, name)
	out.Acc = sc.memberAccess()
	out.Typ = ast.Type{Kind: ast.TypeTypedef, Spelling: c.qualify(name)}
	out.SetAttr("underlying_type", c.typeOf(normalizeType(c.text(fs, typeNode))).Spelling)

	if !typeNode.IsNull() && typeNode.NamedChildCount() > 0 {
		out.Add(c.typeRefs(fs, typeNode.NamedChild(0))...)
	}

	return out
}

func (c *converter) using(fs *source, n sitter.Node, sc *scopeCtx) *ast.Node {
	var target sitter.Node

	for i := range n.NamedChildCount() {
		target = n.NamedChild(i)
	}

	name := c.text(fs, target)

	if hasChildType(n, "namespace") {
		out := c.mk(fs, n, target, ast.KindUsingDirective, "")
		out.Add(c.namespaceRefs(fs, target, name, true)...)

		return out
	}

	out := c.mk(fs, n, target, ast.KindUsingDeclaration, lastComponent(name))
	out.Acc = sc.memberAccess()
	out.Add(c.namespaceRefs(fs, target, name, false)...)

	return out
}

// namespaceRefs emits NAMESPACE_REF cursors for the scope components of a
// qualified name; includeLast also covers the final component.
func (c *converter) namespaceRefs(fs *source, at sitter.Node, qualified string, includeLast bool) []*ast.Node {
	parts := strings.Split(strings.TrimPrefix(qualified, "::"), "::")
	if !includeLast {
		parts = parts[:len(parts)-1]
	}

	out := make([]*ast.Node, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" || c.isRecord(part) {
			continue
		}

		out = append(out, c.mk(fs, at, sitter.Node{}, ast.KindNamespaceRef, part))
	}

	return out
}

func (c *converter) namespaceAlias(fs *source, n sitter.Node) *ast.Node {
	nameNode := n.ChildByFieldName("name")
	out := c.mk(fs, n, nameNode, ast.KindNamespaceAlias, c.text(fs, nameNode))

	if n.NamedChildCount() > 1 {
		target := n.NamedChild(n.NamedChildCount() - 1)
		out.Add(c.namespaceRefs(fs, target, c.text(fs, target), true)...)
	}

	return out
}

func (c *converter) staticAssert(fs *source, n sitter.Node) *ast.Node {
	out := c.mk(fs, n, sitter.Node{}, ast.KindStaticAssert, "")

	if cond := n.ChildByFieldName("condition"); !cond.IsNull() {
		out.Add(c.expr(fs, cond))
	}

	if msg := n.ChildByFieldName("message"); !msg.IsNull() {
		out.Add(c.expr(fs, msg))
	}

	return out
}

func (c *converter) friend(fs *source, n sitter.Node, sc *scopeCtx) *ast.Node {
	out := c.mk(fs, n, sitter.Node{}, ast.KindFriendDecl, "")
	out.Acc = sc.memberAccess()

	// Friends are not members; convert the befriended entity at namespace scope.
	outside := &scopeCtx{}

	for i := range n.NamedChildCount() {
		child := n.NamedChild(i)

		switch child.Type() {
		case "type_identifier", "qualified_identifier", "template_type":
			out.Add(c.typeRefs(fs, child)...)
		default:
			out.Add(c.item(fs, child, outside)...)
		}
	}

	return out
}

func hasChildType(n sitter.Node, typ string) bool {
	for i := range n.ChildCount() {
		if n.Child(i).Type() == typ {
			return true
		}
	}

	return false
}

// nodeType is n.Type() with null nodes reported as "".
func nodeType(n sitter.Node) string {
	if n.IsNull() {
		return ""
	}

	return n.Type()
}

func sameNode(a, b sitter.Node) bool {
	return !a.IsNull() && !b.IsNull() &&
		a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

func lastComponent(qualified string) string {
	qualified = strings.TrimSpace(qualified)
	if i := strings.LastIndex(qualified, "::"); i >= 0 {
		return strings.TrimSpace(qualified[i+2:])
	}

	return qualified
}

func normalizeType(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
