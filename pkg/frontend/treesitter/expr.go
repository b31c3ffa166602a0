package treesitter

import (
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/clangbind/pkg/ast"
)

var simpleStatements = map[string]ast.Kind{
	"return_statement":   ast.KindReturnStmt,
	"if_statement":       ast.KindIfStmt,
	"while_statement":    ast.KindWhileStmt,
	"do_statement":       ast.KindDoStmt,
	"for_statement":      ast.KindForStmt,
	"switch_statement":   ast.KindSwitchStmt,
	"break_statement":    ast.KindBreakStmt,
	"continue_statement": ast.KindContinueStmt,
}

func isStatement(typ string) bool {
	return strings.HasSuffix(typ, "_statement") || typ == "declaration" || typ == "for_range_loop" ||
		typ == "type_definition" || typ == "alias_declaration" || typ == "using_declaration"
}

func (c *converter) stmt(fs *source, n sitter.Node) *ast.Node {
	switch typ := n.Type(); typ {
	case "compound_statement":
		out := c.mk(fs, n, sitter.Node{}, ast.KindCompoundStmt, "")

		for child := range c.live(fs, n) {
			if s := c.stmtOrExpr(fs, child); s != nil {
				out.Add(s)
			}
		}

		return out
	case "declaration", "type_definition", "alias_declaration", "using_declaration":
		out := c.mk(fs, n, sitter.Node{}, ast.KindDeclStmt, "")
		out.Add(c.item(fs, n, &scopeCtx{})...)

		return out
	case "expression_statement":
		if n.NamedChildCount() == 0 {
			return c.mk(fs, n, sitter.Node{}, ast.KindNullStmt, "")
		}

		return c.expr(fs, n.NamedChild(0))
	case "case_statement":
		kind := ast.KindCaseStmt
		if n.ChildCount() > 0 && n.Child(0).Type() == "default" {
			kind = ast.KindDefaultStmt
		}

		out := c.mk(fs, n, sitter.Node{}, kind, "")
		out.Add(c.childStatements(fs, n)...)

		return out
	default:
		kind, ok := simpleStatements[typ]
		if !ok {
			kind = ast.KindUnexposedStmt
		}

		out := c.mk(fs, n, sitter.Node{}, kind, "")
		out.Add(c.childStatements(fs, n)...)

		return out
	}
}

// childStatements converts every named child, unwrapping condition and else
// clauses.
func (c *converter) childStatements(fs *source, n sitter.Node) []*ast.Node {
	var out []*ast.Node

	for i := range n.NamedChildCount() {
		child := n.NamedChild(i)

		switch child.Type() {
		case "condition_clause", "else_clause":
			out = append(out, c.childStatements(fs, child)...)
		case "comment":
		default:
			if s := c.stmtOrExpr(fs, child); s != nil {
				out = append(out, s)
			}
		}
	}

	return out
}

func (c *converter) stmtOrExpr(fs *source, n sitter.Node) *ast.Node {
	switch {
	case n.Type() == "comment":
		return nil
	case isStatement(n.Type()):
		return c.stmt(fs, n)
	case n.Type() == "init_declarator":
		info := c.declarator(fs, n, "")
		decl := c.mk(fs, n, info.nameNode, ast.KindVarDecl, info.name)
		if !info.value.IsNull() {
			decl.Add(c.initializer(fs, info.value)...)
		}

		return decl
	default:
		return c.expr(fs, n)
	}
}

var literalKinds = map[string]ast.Kind{
	"string_literal":              ast.KindStringLiteral,
	"raw_string_literal":          ast.KindStringLiteral,
	"concatenated_string":         ast.KindStringLiteral,
	"char_literal":                ast.KindCharacterLiteral,
	"true":                        ast.KindCXXBoolLiteralExpr,
	"false":                       ast.KindCXXBoolLiteralExpr,
	"null":                        ast.KindCXXNullPtrLiteralExpr,
	"nullptr":                     ast.KindCXXNullPtrLiteralExpr,
	"this":                        ast.KindCXXThisExpr,
	"parenthesized_expression":    ast.KindParenExpr,
	"conditional_expression":      ast.KindConditionalOperator,
	"subscript_expression":        ast.KindArraySubscriptExpr,
	"initializer_list":            ast.KindInitListExpr,
	"cast_expression":             ast.KindCStyleCastExpr,
	"new_expression":              ast.KindCXXNewExpr,
	"delete_expression":           ast.KindCXXDeleteExpr,
	"lambda_expression":           ast.KindLambdaExpr,
	"compound_literal_expression": ast.KindCXXFunctionalCastExpr,
	"unary_expression":            ast.KindUnaryOperator,
	"update_expression":           ast.KindUnaryOperator,
	"pointer_expression":          ast.KindUnaryOperator,
}

func (c *converter) expr(fs *source, n sitter.Node) *ast.Node {
	if n.IsNull() {
		return &ast.Node{K: ast.KindUnexposedExpr, Loc: ast.Location{File: fs.path}}
	}

	switch typ := n.Type(); typ {
	case "identifier", "qualified_identifier", "template_function":
		name := c.text(fs, n)
		if typ == "template_function" {
			name = c.text(fs, n.ChildByFieldName("name"))
		}

		ref := c.mk(fs, n, sitter.Node{}, ast.KindDeclRefExpr, lastComponent(name))
		if typ == "qualified_identifier" {
			ref.Add(c.namespaceRefs(fs, n, name, false)...)
		}

		wrap := c.mk(fs, n, sitter.Node{}, ast.KindUnexposedExpr, ref.Name)

		return wrap.Add(ref)
	case "field_identifier":
		return c.mk(fs, n, sitter.Node{}, ast.KindMemberRefExpr, c.text(fs, n))
	case "number_literal":
		text := c.text(fs, n)
		if isFloatLiteral(text) {
			return c.mk(fs, n, sitter.Node{}, ast.KindFloatingLiteral, "")
		}

		out := c.mk(fs, n, sitter.Node{}, ast.KindIntegerLiteral, "")
		if v, err := parseIntLiteral(text); err == nil {
			out.SetAttr("value", v)
		}

		return out
	case "call_expression":
		fn := n.ChildByFieldName("function")
		out := c.mk(fs, n, sitter.Node{}, ast.KindCallExpr, c.calleeName(fs, fn))
		out.Add(c.expr(fs, fn))

		args := n.ChildByFieldName("arguments")
		for i := range args.NamedChildCount() {
			out.Add(c.expr(fs, args.NamedChild(i)))
		}

		return out
	case "field_expression":
		field := n.ChildByFieldName("field")
		out := c.mk(fs, n, field, ast.KindMemberRefExpr, c.text(fs, field))

		return out.Add(c.expr(fs, n.ChildByFieldName("argument")))
	case "binary_expression", "assignment_expression":
		op := c.text(fs, n.ChildByFieldName("operator"))

		kind := ast.KindBinaryOperator
		if typ == "assignment_expression" && op != "=" {
			kind = ast.KindCompoundAssignOperator
		}

		out := c.mk(fs, n, sitter.Node{}, kind, "")
		out.SetAttr("opcode", op)

		return out.Add(c.expr(fs, n.ChildByFieldName("left")), c.expr(fs, n.ChildByFieldName("right")))
	case "lambda_expression":
		out := c.mk(fs, n, sitter.Node{}, ast.KindLambdaExpr, "")
		if body := n.ChildByFieldName("body"); !body.IsNull() {
			out.Add(c.stmt(fs, body))
		}

		return out
	case "string_literal", "raw_string_literal", "concatenated_string", "char_literal":
		return c.mk(fs, n, sitter.Node{}, literalKinds[typ], c.text(fs, n))
	case "comma_expression", "sizeof_expression", "alignof_expression", "template_argument_list":
		return c.exprChildren(fs, n, c.mk(fs, n, sitter.Node{}, ast.KindUnexposedExpr, ""))
	default:
		kind, ok := literalKinds[typ]
		if !ok {
			kind = ast.KindUnexposedExpr
		}

		out := c.mk(fs, n, sitter.Node{}, kind, "")
		if op := n.ChildByFieldName("operator"); !op.IsNull() {
			out.SetAttr("opcode", c.text(fs, op))
		}

		return c.exprChildren(fs, n, out)
	}
}

func (c *converter) exprChildren(fs *source, n sitter.Node, out *ast.Node) *ast.Node {
	for i := range n.NamedChildCount() {
		child := n.NamedChild(i)

		switch {
		case child.Type() == "comment":
		case child.Type() == "type_descriptor":
			out.Add(c.typeRefs(fs, child.ChildByFieldName("type"))...)
		case child.Type() == "compound_statement" || isStatement(child.Type()):
			out.Add(c.stmt(fs, child))
		default:
			out.Add(c.expr(fs, child))
		}
	}

	return out
}

func (c *converter) calleeName(fs *source, fn sitter.Node) string {
	switch fn.Type() {
	case "identifier":
		return c.text(fs, fn)
	case "qualified_identifier":
		return lastComponent(c.text(fs, fn))
	case "field_expression":
		return c.text(fs, fn.ChildByFieldName("field"))
	case "template_function":
		return c.text(fs, fn.ChildByFieldName("name"))
	default:
		return ""
	}
}

func isFloatLiteral(text string) bool {
	lower := strings.ToLower(text)
	if strings.HasPrefix(lower, "0x") {
		return strings.ContainsAny(lower, ".p")
	}

	return strings.ContainsAny(lower, ".e") || strings.HasSuffix(lower, "f")
}
