package bind

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/clangbind/pkg/ast"
	"github.com/Sumatoshi-tech/clangbind/pkg/parse"
)

// rootModule is the variable PYBIND11_MODULE binds the module to.
const rootModule = "m"

type scope struct {
	record *Class
	module string
	// dependent is set inside templates, where nothing can be bound
	// without an instantiation.
	dependent bool
}

type collector struct {
	g          *Generator
	tree       *parse.Tree
	submodules map[string]string
	seen       map[string]struct{}
	decls      []Decl
	skipped    int
}

// Collect walks tree top-down and returns its binding declarations in source
// order, plus the number of unsupported declarations skipped.
func (g *Generator) Collect(ctx context.Context, tree *parse.Tree) ([]Decl, int, error) {
	c := &collector{
		g:          g,
		tree:       tree,
		submodules: make(map[string]string),
		seen:       make(map[string]struct{}),
	}

	if err := c.children(ctx, tree.Root(), scope{module: rootModule}); err != nil {
		return nil, c.skipped, err
	}

	markOverloads(c.decls)

	return c.decls, c.skipped, nil
}

func (c *collector) children(ctx context.Context, id parse.NodeID, sc scope) error {
	for _, kid := range c.tree.Children(id) {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := c.visit(ctx, kid, sc); err != nil {
			return err
		}
	}

	return nil
}

func (c *collector) visit(ctx context.Context, id parse.NodeID, sc scope) error {
	n, _ := c.tree.Node(id)
	cur := n.Cursor

	switch Classify(cur.Kind()) {
	case CategoryIgnore, CategoryParameter:
		return nil
	case CategoryRecurse:
		inner := sc
		inner.record = nil
		inner.dependent = sc.dependent || isTemplate(cur.Kind())

		if cur.Kind() == ast.KindUnionDecl && c.anonymousMember(id, cur, sc) {
			inner.record = sc.record
		}

		return c.children(ctx, id, inner)
	case CategoryNamespace:
		return c.children(ctx, id, c.namespace(id, cur, sc))
	case CategoryRecord:
		return c.record(ctx, id, cur, sc)
	case CategoryFunction:
		c.function(id, cur, sc)
	case CategoryField:
		c.field(cur, sc)
	case CategoryConstructor:
		c.constructor(id, cur, sc)
	case CategoryMethod:
		c.method(id, cur, sc)
	case CategoryUnsupported:
		return c.unsupported(ctx, cur)
	}

	return nil
}

func isTemplate(k ast.Kind) bool {
	switch k {
	case ast.KindClassTemplate, ast.KindFunctionTemplate, ast.KindClassTemplatePartialSpecialization:
		return true
	default:
		return false
	}
}

func (c *collector) unsupported(ctx context.Context, cur ast.Cursor) error {
	loc := cur.Location()

	if c.g.unsupported == UnsupportedFail {
		return fmt.Errorf("%w: %s at %s", ErrUnsupportedKind, cur.Kind(), loc)
	}

	c.skipped++
	c.g.logger.WarnContext(ctx, "unsupported declaration skipped",
		"kind", cur.Kind().String(), "file", loc.File, "line", loc.Line)

	return nil
}

func (c *collector) namespace(id parse.NodeID, cur ast.Cursor, sc scope) scope {
	if c.g.namespaces != NamespacesSubmodule || cur.Spelling() == "" || cur.Traits().Has(ast.TraitAnonymous) {
		return sc
	}

	qualified := c.qualify(id, cur.Spelling())

	if v, ok := c.submodules[qualified]; ok {
		sc.module = v

		return sc
	}

	v := rootModule + "_" + strings.ReplaceAll(qualified, "::", "_")
	c.submodules[qualified] = v
	c.decls = append(c.decls, &Submodule{Var: v, Parent: sc.module, Name: cur.Spelling(), Loc: cur.Location()})
	sc.module = v

	return sc
}

func (c *collector) qualify(id parse.NodeID, name string) string {
	if q := c.tree.Qualifier(id); q != "" {
		return q + "::" + name
	}

	return name
}

// semanticQualify prefers the declaring scope of out-of-line definitions.
func (c *collector) semanticQualify(id parse.NodeID, cur ast.Cursor) (string, bool) {
	if a, ok := cur.(ast.Attributer); ok {
		if parent, ok := a.Attributes()["semantic_parent"].(string); ok && parent != "" {
			return parent + "::" + cur.Spelling(), true
		}
	}

	return c.qualify(id, cur.Spelling()), false
}

// once reports whether key is new; repeated declarations of one entity are
// bound once.
func (c *collector) once(key string) bool {
	if _, ok := c.seen[key]; ok {
		return false
	}

	c.seen[key] = struct{}{}

	return true
}

func (c *collector) record(ctx context.Context, id parse.NodeID, cur ast.Cursor, sc scope) error {
	inner := sc
	inner.record = nil

	if cur.Spelling() == "" || cur.Traits().Has(ast.TraitAnonymous) || sc.dependent {
		if c.anonymousMember(id, cur, sc) {
			inner.record = sc.record
		}

		return c.children(ctx, id, inner)
	}

	if !cur.Traits().Has(ast.TraitDefinition) {
		return nil
	}

	if sc.record != nil && !c.g.allows(cur.Access()) {
		return nil
	}

	cls := &Class{
		Name:      cur.Spelling(),
		Qualified: c.qualify(id, cur.Spelling()),
		Scope:     sc.module,
		Loc:       cur.Location(),
	}

	if args := specializationArgs(cur); args != "" {
		cls.Qualified += args
		cls.Name = pythonName(cur.Spelling() + args)
	}

	if !c.once("class " + cls.Qualified) {
		return nil
	}

	for _, kid := range cur.Children() {
		if kid.Kind() == ast.KindCXXBaseSpecifier && kid.Access() == ast.AccessPublic {
			cls.Bases = append(cls.Bases, baseName(kid))
		}
	}

	c.decls = append(c.decls, cls)
	inner.record = cls

	return c.children(ctx, id, inner)
}

// anonymousMember reports whether cur is an anonymous struct or union whose
// members belong to the enclosing record. A record that only types a named
// member keeps its members to itself.
func (c *collector) anonymousMember(id parse.NodeID, cur ast.Cursor, sc scope) bool {
	if sc.record == nil || sc.dependent {
		return false
	}

	if cur.Spelling() != "" && !cur.Traits().Has(ast.TraitAnonymous) {
		return false
	}

	return !c.typesNextField(id, cur)
}

// typesNextField reports whether the field declared right after the
// anonymous record id has the record as its type, as in struct { int x; } a.
func (c *collector) typesNextField(id parse.NodeID, cur ast.Cursor) bool {
	parent, ok := c.tree.Parent(id)
	if !ok {
		return false
	}

	siblings := c.tree.Children(parent)

	for i, sib := range siblings {
		if sib != id || i+1 == len(siblings) {
			continue
		}

		n, _ := c.tree.Node(siblings[i+1])
		next := n.Cursor

		if next.Kind() != ast.KindFieldDecl && next.Kind() != ast.KindVarDecl {
			return false
		}

		typ := next.Type().Spelling

		return typ == cur.Type().Spelling || strings.Contains(typ, "(anonymous ") || strings.Contains(typ, "(unnamed ")
	}

	return false
}

// specializationArgs returns the template argument list of an explicit
// specialization, such as "<int>", or "".
func specializationArgs(cur ast.Cursor) string {
	a, ok := cur.(ast.Attributer)
	if !ok {
		return ""
	}

	args, _ := a.Attributes()["specialization_args"].(string)

	return args
}

// pythonName turns a C++ type spelling into an identifier: X<int, 3> gives
// X_int_3.
func pythonName(s string) string {
	var b strings.Builder

	pending := false

	for i := range len(s) {
		ch := s[i]
		if !isIdentByte(ch) {
			pending = b.Len() > 0

			continue
		}

		if pending {
			b.WriteByte('_')

			pending = false
		}

		b.WriteByte(ch)
	}

	return b.String()
}

func baseName(base ast.Cursor) string {
	if s := base.Type().Spelling; s != "" {
		return s
	}

	s := base.Spelling()
	for _, tag := range []string{"struct ", "class ", "union "} {
		s = strings.TrimPrefix(s, tag)
	}

	return s
}

func isOperator(name string) bool {
	return strings.HasPrefix(name, "operator") && len(name) > len("operator") &&
		!isIdentByte(name[len("operator")])
}

func isIdentByte(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

func (c *collector) parameters(id parse.NodeID) []*Parameter {
	var out []*Parameter

	for _, kid := range c.tree.Children(id) {
		n, _ := c.tree.Node(kid)
		if Classify(n.Cursor.Kind()) != CategoryParameter {
			continue
		}

		out = append(out, &Parameter{
			Name: n.Cursor.Spelling(),
			Type: n.Cursor.Type().Spelling,
			Loc:  n.Cursor.Location(),
		})
	}

	return out
}

func signature(name string, params []*Parameter) string {
	return name + "(" + strings.Join(paramTypes(params), ", ") + ")"
}

func paramTypes(params []*Parameter) []string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = p.Type
	}

	return out
}

func (c *collector) function(id parse.NodeID, cur ast.Cursor, sc scope) {
	if sc.record != nil || sc.dependent || cur.Spelling() == "" {
		return
	}

	if cur.Traits().Has(ast.TraitDeleted) || isOperator(cur.Spelling()) {
		return
	}

	qualified, _ := c.semanticQualify(id, cur)
	params := c.parameters(id)

	if !c.once("function " + signature(qualified, params)) {
		return
	}

	c.decls = append(c.decls, &Function{
		Name:      cur.Spelling(),
		Qualified: qualified,
		Scope:     sc.module,
		Result:    cur.ResultType().Spelling,
		Params:    params,
		Loc:       cur.Location(),
	})
}

func (c *collector) field(cur ast.Cursor, sc scope) {
	if sc.record == nil || sc.dependent || cur.Spelling() == "" || !c.g.allows(cur.Access()) {
		return
	}

	sc.record.Members = append(sc.record.Members, &Field{
		Name:     cur.Spelling(),
		Owner:    sc.record.Qualified,
		Loc:      cur.Location(),
		ReadOnly: cur.Type().Const,
		Static:   cur.Kind() == ast.KindVarDecl || cur.Traits().Has(ast.TraitStatic),
	})
}

func (c *collector) constructor(id parse.NodeID, cur ast.Cursor, sc scope) {
	if sc.record == nil || sc.dependent {
		return
	}

	sc.record.HasConstructors = true

	if cur.Traits().Has(ast.TraitDeleted) || !c.g.allows(cur.Access()) {
		return
	}

	params := c.parameters(id)
	if !c.once("constructor " + signature(sc.record.Qualified, params)) {
		return
	}

	sc.record.Members = append(sc.record.Members, &Constructor{Params: params, Loc: cur.Location()})
}

func (c *collector) method(id parse.NodeID, cur ast.Cursor, sc scope) {
	if sc.record == nil || sc.dependent || cur.Spelling() == "" {
		return
	}

	if cur.Traits().Has(ast.TraitDeleted) || isOperator(cur.Spelling()) || !c.g.allows(cur.Access()) {
		return
	}

	params := c.parameters(id)
	isConst := cur.Traits().Has(ast.TraitConst)

	key := "method " + signature(sc.record.Qualified+"::"+cur.Spelling(), params) + " const=" + strconv.FormatBool(isConst)
	if !c.once(key) {
		return
	}

	sc.record.Members = append(sc.record.Members, &Method{
		Name:   cur.Spelling(),
		Owner:  sc.record.Qualified,
		Params: params,
		Loc:    cur.Location(),
		Static: cur.Traits().Has(ast.TraitStatic),
		Const:  isConst,
	})
}

// markOverloads flags functions and methods that share a name with another
// binding in the same scope.
func markOverloads(decls []Decl) {
	functions := make(map[string]int)

	for _, d := range decls {
		if fn, ok := d.(*Function); ok {
			functions[fn.Scope+" "+fn.Qualified]++
		}
	}

	for _, d := range decls {
		switch d := d.(type) {
		case *Function:
			d.Overloaded = functions[d.Scope+" "+d.Qualified] > 1
		case *Class:
			methods := make(map[string]int)

			for _, m := range d.Members {
				if m, ok := m.(*Method); ok {
					methods[m.Name]++
				}
			}

			for _, m := range d.Members {
				if m, ok := m.(*Method); ok {
					m.Overloaded = methods[m.Name] > 1
				}
			}
		default:
		}
	}
}
