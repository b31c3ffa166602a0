package treesitter

import (
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/clangbind/pkg/ast"
)

// specifiers collects the decl-specifiers that become cursor traits.
type specifiers struct {
	static, extern, inline, virtual, explicit bool
	constQ, volatileQ, constexpr, mutable     bool
}

func (c *converter) specifiers(fs *source, n sitter.Node) specifiers {
	var s specifiers

	for i := range n.ChildCount() {
		child := n.Child(i)

		switch child.Type() {
		case "storage_class_specifier", "type_qualifier":
			switch c.text(fs, child) {
			case "static":
				s.static = true
			case "extern":
				s.extern = true
			case "inline":
				s.inline = true
			case "const":
				s.constQ = true
			case "volatile":
				s.volatileQ = true
			case "constexpr", "consteval", "constinit":
				s.constexpr = true
			case "mutable":
				s.mutable = true
			}
		case "virtual", "virtual_function_specifier":
			s.virtual = true
		case "explicit_function_specifier":
			s.explicit = true
		case "inline":
			s.inline = true
		default:
		}
	}

	return s
}

func (s specifiers) traits() ast.Traits {
	var t ast.Traits

	if s.static {
		t |= ast.TraitStatic
	}

	if s.extern {
		t |= ast.TraitExtern
	}

	if s.inline || s.constexpr {
		t |= ast.TraitInline
	}

	if s.virtual {
		t |= ast.TraitVirtual
	}

	if s.explicit {
		t |= ast.TraitExplicit
	}

	if s.mutable {
		t |= ast.TraitMutable
	}

	return t
}

// qualifyType prefixes cv-qualifiers onto a base type spelling.
func (s specifiers) qualifyType(base string) string {
	if base == "" {
		return ""
	}

	if s.volatileQ {
		base = "volatile " + base
	}

	if s.constQ || s.constexpr {
		base = "const " + base
	}

	return base
}

// baseType spells the declaration's type specifier. Records and enums
// defined inline are converted and appended to out first.
func (c *converter) baseType(fs *source, n, typeNode sitter.Node, sc *scopeCtx, out *[]*ast.Node) string {
	if typeNode.IsNull() {
		return ""
	}

	switch typeNode.Type() {
	case "struct_specifier", "class_specifier", "union_specifier", "enum_specifier":
		if typeNode.ChildByFieldName("body").IsNull() {
			break
		}

		converted := c.item(fs, typeNode, sc)
		*out = append(*out, converted...)

		if len(converted) > 0 {
			return c.specifiers(fs, n).qualifyType(converted[0].Typ.Spelling)
		}
	default:
	}

	return c.specifiers(fs, n).qualifyType(normalizeType(c.text(fs, typeNode)))
}

// declGroup is one declarator with its initializer or bit-field width.
type declGroup struct {
	decl     sitter.Node
	value    sitter.Node
	bitfield sitter.Node
}

var declaratorTypes = map[string]bool{
	"identifier":                         true,
	"field_identifier":                   true,
	"type_identifier":                    true,
	"qualified_identifier":               true,
	"destructor_name":                    true,
	"operator_name":                      true,
	"template_function":                  true,
	"operator_cast":                      true,
	"qualified_operator_cast_identifier": true,
	"structured_binding_declarator":      true,
}

func isDeclarator(typ string) bool {
	return declaratorTypes[typ] || strings.HasSuffix(typ, "_declarator")
}

func (c *converter) declaratorGroups(n, typeNode sitter.Node) []declGroup {
	var (
		groups      []declGroup
		expectValue bool
	)

	for i := range n.ChildCount() {
		child := n.Child(i)

		if !child.IsNamed() {
			if child.Type() == "=" {
				expectValue = true
			}

			continue
		}

		if sameNode(child, typeNode) {
			continue
		}

		typ := child.Type()

		switch {
		case isDeclarator(typ):
			groups = append(groups, declGroup{decl: child})
			expectValue = false
		case len(groups) == 0:
		case typ == "bitfield_clause":
			groups[len(groups)-1].bitfield = child
		case expectValue || typ == "initializer_list" || typ == "argument_list" || strings.HasSuffix(typ, "_clause"):
			groups[len(groups)-1].value = child
			expectValue = false
		default:
		}
	}

	return groups
}

// declInfo is the result of unwrapping a declarator.
type declInfo struct {
	nameNode sitter.Node
	fn       sitter.Node
	value    sitter.Node
	name     string
	typ      string
}

func (c *converter) declarator(fs *source, d sitter.Node, base string) declInfo {
	info := declInfo{typ: base}
	suffix := ""

	for node := d; !node.IsNull(); {
		switch node.Type() {
		case "init_declarator":
			info.value = node.ChildByFieldName("value")
			node = node.ChildByFieldName("declarator")
		case "pointer_declarator", "abstract_pointer_declarator":
			info.typ += " *"

			for i := range node.NamedChildCount() {
				if q := node.NamedChild(i); q.Type() == "type_qualifier" {
					info.typ += " " + c.text(fs, q)
				}
			}

			node = node.ChildByFieldName("declarator")
		case "reference_declarator", "abstract_reference_declarator":
			if hasChildType(node, "&&") {
				info.typ += " &&"
			} else {
				info.typ += " &"
			}

			node = firstNamed(node)
		case "array_declarator", "abstract_array_declarator":
			suffix = "[" + c.text(fs, node.ChildByFieldName("size")) + "]" + suffix
			node = node.ChildByFieldName("declarator")
		case "function_declarator", "abstract_function_declarator":
			inner := node.ChildByFieldName("declarator")
			if nodeType(inner) == "parenthesized_declarator" {
				params := normalizeType(c.text(fs, node.ChildByFieldName("parameters")))
				nested := c.declarator(fs, firstNamed(inner), "")
				info.typ = strings.TrimSpace(info.typ + " (" + strings.TrimSpace(nested.typ) + ")" + params)
				info.name, info.nameNode = nested.name, nested.nameNode

				return info
			}

			info.fn = node
			node = inner
		case "parenthesized_declarator":
			node = firstNamed(node)
		case "operator_cast", "qualified_operator_cast_identifier":
			info.name, info.nameNode = c.text(fs, node), node

			return info
		default:
			if declaratorTypes[node.Type()] {
				info.name, info.nameNode = c.text(fs, node), node
			}

			node = sitter.Node{}
		}
	}

	info.typ += suffix

	return info
}

func firstNamed(n sitter.Node) sitter.Node {
	if n.IsNull() || n.NamedChildCount() == 0 {
		return sitter.Node{}
	}

	return n.NamedChild(0)
}

// declaration converts declaration and field_declaration nodes. member is
// true inside record bodies.
func (c *converter) declaration(fs *source, n sitter.Node, sc *scopeCtx, member bool) []*ast.Node {
	var out []*ast.Node

	typeNode := n.ChildByFieldName("type")
	spec := c.specifiers(fs, n)
	base := c.baseType(fs, n, typeNode, sc, &out)

	for _, group := range c.declaratorGroups(n, typeNode) {
		info := c.declarator(fs, group.decl, base)
		if group.value.IsNull() {
			group.value = info.value
		}

		if !info.fn.IsNull() {
			clause := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(c.text(fs, group.value)), "="))
			fn := c.function(fs, fnParts{
				whole:     n,
				typeNode:  typeNode,
				info:      info,
				spec:      spec,
				pure:      strings.TrimSuffix(clause, ";") == "0",
				defaulted: nodeType(group.value) == "default_method_clause",
				deleted:   nodeType(group.value) == "delete_method_clause",
			}, sc)
			out = append(out, fn)

			continue
		}

		out = append(out, c.variable(fs, n, typeNode, info, group, spec, sc, member))
	}

	return out
}

func (c *converter) variable(fs *source, n, typeNode sitter.Node, info declInfo, group declGroup,
	spec specifiers, sc *scopeCtx, member bool,
) *ast.Node {
	kind := ast.KindVarDecl
	if member && !spec.static {
		kind = ast.KindFieldDecl
	}

	name := lastComponent(info.name)
	out := c.mk(fs, n, info.nameNode, kind, name)
	out.Typ = c.typeOf(info.typ)
	out.Flags |= spec.traits()

	if member {
		out.Acc = sc.memberAccess()
	}

	if !group.bitfield.IsNull() {
		out.Flags |= ast.TraitBitField

		width := firstNamed(group.bitfield)
		if v, err := evalInteger(c.text(fs, width), c.macros); err == nil {
			out.SetAttr("bitfield_width", v)
		}
	}

	if kind == ast.KindVarDecl && (!group.value.IsNull() || !spec.extern) {
		out.Flags |= ast.TraitDefinition
	}

	out.Add(c.typeRefs(fs, typeNode)...)

	if !group.value.IsNull() {
		if kind == ast.KindFieldDecl {
			out.Flags |= ast.TraitHasDefault
		}

		out.Add(c.initializer(fs, group.value)...)
	}

	return out
}

// initializer converts "= expr", "{...}" and "(...)" initializers.
func (c *converter) initializer(fs *source, value sitter.Node) []*ast.Node {
	if value.Type() == "argument_list" {
		var out []*ast.Node
		for i := range value.NamedChildCount() {
			out = append(out, c.expr(fs, value.NamedChild(i)))
		}

		return out
	}

	return []*ast.Node{c.expr(fs, value)}
}

// fnParts gathers what function needs from the various grammar shapes a
// function can take.
type fnParts struct {
	whole     sitter.Node
	typeNode  sitter.Node
	body      sitter.Node
	inits     sitter.Node
	info      declInfo
	spec      specifiers
	defaulted bool
	deleted   bool
	pure      bool
}

func (c *converter) functionDefinition(fs *source, n sitter.Node, sc *scopeCtx) []*ast.Node {
	var out []*ast.Node

	typeNode := n.ChildByFieldName("type")
	spec := c.specifiers(fs, n)
	base := c.baseType(fs, n, typeNode, sc, &out)
	info := c.declarator(fs, n.ChildByFieldName("declarator"), base)

	if info.fn.IsNull() && !strings.HasPrefix(nodeType(info.nameNode), "operator_cast") &&
		nodeType(info.nameNode) != "qualified_operator_cast_identifier" {
		un := c.mk(fs, n, sitter.Node{}, ast.KindUnexposedDecl, info.name)
		un.SetAttr("grammar_node", n.Type())

		return append(out, un)
	}

	parts := fnParts{whole: n, typeNode: typeNode, info: info, spec: spec, body: n.ChildByFieldName("body")}

	for i := range n.NamedChildCount() {
		switch child := n.NamedChild(i); child.Type() {
		case "field_initializer_list":
			parts.inits = child
		case "default_method_clause":
			parts.defaulted = true
		case "delete_method_clause":
			parts.deleted = true
		case "pure_virtual_clause":
			parts.pure = true
		case "try_statement":
			if parts.body.IsNull() {
				parts.body = child
			}
		default:
		}
	}

	return append(out, c.function(fs, parts, sc))
}

// functionKind classifies a function from its declarator name and scope.
func (c *converter) functionKind(fs *source, p fnParts, sc *scopeCtx) (ast.Kind, string) {
	name := p.info.name
	inClass := sc.memberAccess() != ast.AccessInvalid

	switch nodeType(p.info.nameNode) {
	case "destructor_name":
		return ast.KindDestructor, strings.ReplaceAll(name, " ", "")
	case "operator_cast":
		return ast.KindConversionFunction, "operator " + normalizeType(c.text(fs, p.info.nameNode.ChildByFieldName("type")))
	case "qualified_operator_cast_identifier":
		return ast.KindConversionFunction, lastComponent(name)
	case "operator_name":
		if inClass {
			return ast.KindCXXMethod, operatorName(name)
		}

		return ast.KindFunctionDecl, operatorName(name)
	case "qualified_identifier":
		scope, last := splitQualified(name)
		owner := lastComponent(scope)

		switch {
		case strings.HasPrefix(last, "~"):
			return ast.KindDestructor, strings.ReplaceAll(last, " ", "")
		case owner == last || strings.HasPrefix(owner, last+"<"):
			return ast.KindConstructor, last
		case strings.HasPrefix(last, "operator"):
			return ast.KindCXXMethod, operatorName(last)
		case c.isRecord(scope) || c.isRecord(owner):
			return ast.KindCXXMethod, last
		default:
			return ast.KindFunctionDecl, last
		}
	case "template_function":
		name = c.text(fs, p.info.nameNode.ChildByFieldName("name"))
	default:
	}

	if !inClass {
		return ast.KindFunctionDecl, name
	}

	if name == sc.class && p.typeNode.IsNull() {
		return ast.KindConstructor, name
	}

	return ast.KindCXXMethod, name
}

func splitQualified(name string) (string, string) {
	i := strings.LastIndex(name, "::")
	if i < 0 {
		return "", name
	}

	return strings.TrimSpace(name[:i]), strings.TrimSpace(name[i+2:])
}

// operatorName normalizes "operator +" to "operator+" and keeps word
// operators ("operator new") spaced.
func operatorName(name string) string {
	rest := strings.TrimSpace(strings.TrimPrefix(name, "operator"))
	if rest == "" {
		return name
	}

	if c := rest[0]; c == '_' || (c|0x20 >= 'a' && c|0x20 <= 'z') {
		return "operator " + normalizeType(rest)
	}

	return "operator" + strings.ReplaceAll(rest, " ", "")
}

func (c *converter) function(fs *source, p fnParts, sc *scopeCtx) *ast.Node {
	kind, name := c.functionKind(fs, p, sc)

	out := c.mk(fs, p.whole, p.info.nameNode, kind, name)
	out.Flags |= p.spec.traits()

	if kind != ast.KindFunctionDecl {
		out.Acc = sc.memberAccess()
	}

	switch kind {
	case ast.KindConstructor, ast.KindDestructor:
		out.Result = ast.Type{Kind: ast.TypeVoid, Spelling: "void"}
	case ast.KindConversionFunction:
		out.Result = c.typeOf(strings.TrimPrefix(name, "operator "))
	default:
		out.Result = c.typeOf(p.info.typ)
	}

	if !p.body.IsNull() || p.defaulted || p.deleted {
		out.Flags |= ast.TraitDefinition
	}

	if p.defaulted {
		out.Flags |= ast.TraitDefaulted
	}

	if p.deleted {
		out.Flags |= ast.TraitDeleted
	}

	if p.pure {
		out.Flags |= ast.TraitPureVirtual | ast.TraitVirtual
	}

	var (
		params    []*ast.Node
		variadic  bool
		constTail string
	)

	if !p.info.fn.IsNull() {
		params, variadic = c.parameters(fs, p.info.fn.ChildByFieldName("parameters"))

		for i := range p.info.fn.ChildCount() {
			child := p.info.fn.Child(i)

			switch child.Type() {
			case "type_qualifier":
				if c.text(fs, child) == "const" {
					out.Flags |= ast.TraitConst
					constTail = " const"
				}
			case "virtual_specifier":
				switch c.text(fs, child) {
				case "override":
					out.Flags |= ast.TraitOverride | ast.TraitVirtual
				case "final":
					out.Flags |= ast.TraitFinal | ast.TraitVirtual
				}
			default:
			}
		}
	}

	if variadic {
		out.Flags |= ast.TraitVariadic
	}

	paramTypes := make([]string, 0, len(params)+1)
	for _, prm := range params {
		paramTypes = append(paramTypes, prm.Typ.Spelling)
	}

	if variadic {
		paramTypes = append(paramTypes, "...")
	}

	out.Typ = ast.Type{
		Kind:     ast.TypeFunctionProto,
		Spelling: out.Result.Spelling + " (" + strings.Join(paramTypes, ", ") + ")" + constTail,
	}

	if kind != ast.KindConstructor && kind != ast.KindDestructor {
		out.Add(c.typeRefs(fs, p.typeNode)...)
	}

	if nodeType(p.info.nameNode) == "qualified_identifier" {
		scope, _ := splitQualified(p.info.name)
		out.SetAttr("semantic_parent", scope)

		if c.isRecord(scope) {
			out.Add(c.mk(fs, p.info.nameNode, sitter.Node{}, ast.KindTypeRef, c.tagged(scope)))
		}
	}

	out.Add(params...)

	if !p.inits.IsNull() {
		out.Add(c.memberInitializers(fs, p.inits)...)
	}

	if !p.body.IsNull() {
		pop := c.pushScope("")
		out.Add(c.stmt(fs, p.body))
		pop()
	}

	return out
}

func (c *converter) memberInitializers(fs *source, list sitter.Node) []*ast.Node {
	var out []*ast.Node

	for i := range list.NamedChildCount() {
		init := list.NamedChild(i)
		if init.Type() != "field_initializer" {
			continue
		}

		target := firstNamed(init)
		name := c.text(fs, target)

		switch {
		case c.isRecord(name):
			out = append(out, c.mk(fs, target, sitter.Node{}, ast.KindTypeRef, c.tagged(name)))
		case nodeType(target) == "field_identifier":
			out = append(out, c.mk(fs, target, sitter.Node{}, ast.KindMemberRef, name))
		default:
			out = append(out, c.typeRefs(fs, target)...)
		}

		for j := range init.NamedChildCount() {
			if j > 0 {
				out = append(out, c.initializer(fs, init.NamedChild(j))...)
			}
		}
	}

	return out
}

func (c *converter) parameters(fs *source, list sitter.Node) ([]*ast.Node, bool) {
	if list.IsNull() {
		return nil, false
	}

	var (
		out      []*ast.Node
		variadic bool
	)

	for i := range list.ChildCount() {
		child := list.Child(i)

		switch child.Type() {
		case "...":
			variadic = true
		case "parameter_declaration", "optional_parameter_declaration", "variadic_parameter_declaration":
			typeNode := child.ChildByFieldName("type")
			declNode := child.ChildByFieldName("declarator")
			base := c.specifiers(fs, child).qualifyType(normalizeType(c.text(fs, typeNode)))

			if base == "void" && declNode.IsNull() && list.NamedChildCount() == 1 {
				continue
			}

			info := c.declarator(fs, declNode, base)

			prm := c.mk(fs, child, info.nameNode, ast.KindParmDecl, info.name)
			prm.Typ = c.typeOf(info.typ)
			prm.Flags |= ast.TraitDefinition

			if child.Type() == "variadic_parameter_declaration" {
				prm.Flags |= ast.TraitVariadic
			}

			prm.Add(c.typeRefs(fs, typeNode)...)

			if def := child.ChildByFieldName("default_value"); !def.IsNull() {
				prm.Flags |= ast.TraitHasDefault
				prm.Add(c.expr(fs, def))
			}

			out = append(out, prm)
		default:
		}
	}

	return out, variadic
}

// typeRefs emits reference cursors for a named type specifier: namespace
// qualifiers, a TYPE_REF, or a TEMPLATE_REF plus its arguments.
func (c *converter) typeRefs(fs *source, typeNode sitter.Node) []*ast.Node {
	if typeNode.IsNull() {
		return nil
	}

	switch typeNode.Type() {
	case "type_identifier":
		name := c.text(fs, typeNode)
		if _, ok := c.templates[name]; ok {
			return []*ast.Node{c.mk(fs, typeNode, sitter.Node{}, ast.KindTypeRef, name)}
		}

		return []*ast.Node{c.mk(fs, typeNode, sitter.Node{}, ast.KindTypeRef, c.tagged(name))}
	case "qualified_identifier":
		name := c.text(fs, typeNode)
		out := c.namespaceRefs(fs, typeNode, name, false)

		_, last := splitQualified(name)
		if strings.Contains(last, "<") {
			tmpl := typeNode.ChildByFieldName("name")

			return append(out, c.typeRefs(fs, tmpl)...)
		}

		return append(out, c.mk(fs, typeNode, sitter.Node{}, ast.KindTypeRef, c.tagged(normalizeType(name))))
	case "template_type":
		nameNode := typeNode.ChildByFieldName("name")
		out := []*ast.Node{c.mk(fs, nameNode, sitter.Node{}, ast.KindTemplateRef, c.text(fs, nameNode))}

		args := typeNode.ChildByFieldName("arguments")
		for i := range args.NamedChildCount() {
			arg := args.NamedChild(i)
			if arg.Type() == "type_descriptor" {
				out = append(out, c.typeRefs(fs, arg.ChildByFieldName("type"))...)
			}
		}

		return out
	case "struct_specifier", "class_specifier", "union_specifier", "enum_specifier":
		nameNode := typeNode.ChildByFieldName("name")
		if nameNode.IsNull() || !typeNode.ChildByFieldName("body").IsNull() {
			return nil
		}

		return c.typeRefs(fs, nameNode)
	default:
		return nil
	}
}

func (c *converter) template(fs *source, n sitter.Node, sc *scopeCtx) []*ast.Node {
	list := n.ChildByFieldName("parameters")
	params := c.templateParams(fs, list)

	var added []string

	for _, prm := range params {
		if _, ok := c.templates[prm.Name]; !ok && prm.Name != "" {
			c.templates[prm.Name] = struct{}{}
			added = append(added, prm.Name)
		}
	}

	defer func() {
		for _, name := range added {
			delete(c.templates, name)
		}
	}()

	var inner []*ast.Node

	for i := range n.NamedChildCount() {
		child := n.NamedChild(i)
		if sameNode(child, list) {
			continue
		}

		inner = append(inner, c.item(fs, child, sc)...)
	}

	if len(inner) == 0 {
		return nil
	}

	main := inner[len(inner)-1]
	main.SetAttr("templated_kind", main.K.String())

	switch {
	case main.K.IsRecord():
		_, specialized := main.Attrs["specialization_args"]

		switch {
		case specialized && len(params) > 0:
			main.K = ast.KindClassTemplatePartialSpecialization
		case !specialized:
			main.K = ast.KindClassTemplate
		}
	case main.K.IsFunctionLike() && len(params) > 0:
		main.K = ast.KindFunctionTemplate
	case main.K == ast.KindTypeAliasDecl:
		main.K = ast.KindTypeAliasTemplateDecl
	default:
	}

	main.Kids = append(params, main.Kids...)

	return inner
}

func (c *converter) templateParams(fs *source, list sitter.Node) []*ast.Node {
	var out []*ast.Node

	for i := range list.NamedChildCount() {
		child := list.NamedChild(i)

		switch child.Type() {
		case "type_parameter_declaration", "variadic_type_parameter_declaration", "optional_type_parameter_declaration":
			nameNode := child.ChildByFieldName("name")
			if nameNode.IsNull() {
				for j := range child.NamedChildCount() {
					if k := child.NamedChild(j); k.Type() == "type_identifier" {
						nameNode = k
					}
				}
			}

			name := c.text(fs, nameNode)
			prm := c.mk(fs, child, nameNode, ast.KindTemplateTypeParameter, name)
			prm.Acc = ast.AccessPublic
			prm.Typ = ast.Type{Kind: ast.TypeUnexposed, Spelling: name}

			if child.Type() == "variadic_type_parameter_declaration" {
				prm.Flags |= ast.TraitVariadic
			}

			if def := child.ChildByFieldName("default_type"); !def.IsNull() {
				prm.Flags |= ast.TraitHasDefault
				prm.Add(c.typeRefs(fs, def)...)
			}

			out = append(out, prm)
		case "parameter_declaration", "optional_parameter_declaration", "variadic_parameter_declaration":
			base := normalizeType(c.text(fs, child.ChildByFieldName("type")))
			info := c.declarator(fs, child.ChildByFieldName("declarator"), base)

			prm := c.mk(fs, child, info.nameNode, ast.KindTemplateNonTypeParameter, info.name)
			prm.Acc = ast.AccessPublic
			prm.Typ = c.typeOf(info.typ)

			if def := child.ChildByFieldName("default_value"); !def.IsNull() {
				prm.Flags |= ast.TraitHasDefault
				prm.Add(c.expr(fs, def))
			}

			out = append(out, prm)
		case "template_template_parameter_declaration":
			var nameNode sitter.Node

			for j := range child.NamedChildCount() {
				k := child.NamedChild(j)
				if strings.HasSuffix(k.Type(), "type_parameter_declaration") {
					nameNode = k.ChildByFieldName("name")
					if nameNode.IsNull() {
						nameNode = firstNamed(k)
					}
				}
			}

			prm := c.mk(fs, child, nameNode, ast.KindTemplateTemplateParameter, c.text(fs, nameNode))
			prm.Acc = ast.AccessPublic
			out = append(out, prm)
		default:
		}
	}

	return out
}
