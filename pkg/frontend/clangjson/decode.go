package clangjson

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/clangbind/pkg/ast"
)

type jsonLoc struct {
	SpellingLoc  *jsonLoc `json:"spellingLoc"`
	ExpansionLoc *jsonLoc `json:"expansionLoc"`
	File         string   `json:"file"`
	Line         int      `json:"line"`
	Col          int      `json:"col"`
}

type jsonRange struct {
	Begin jsonLoc `json:"begin"`
	End   jsonLoc `json:"end"`
}

type jsonType struct {
	QualType          string `json:"qualType"`
	DesugaredQualType string `json:"desugaredQualType"`
}

type jsonBase struct {
	Type      jsonType `json:"type"`
	Access    string   `json:"access"`
	IsVirtual bool     `json:"isVirtual"`
}

type jsonNode struct {
	Value               any         `json:"value"`
	Type                *jsonType   `json:"type"`
	AnyInit             *jsonNode   `json:"anyInit"`
	BaseInit            *jsonType   `json:"baseInit"`
	ReferencedDecl      *jsonNode   `json:"referencedDecl"`
	Loc                 jsonLoc     `json:"loc"`
	Range               jsonRange   `json:"range"`
	ID                  string      `json:"id"`
	ParentDeclContextID string      `json:"parentDeclContextId"`
	Kind                string      `json:"kind"`
	Name                string      `json:"name"`
	TagUsed             string      `json:"tagUsed"`
	StorageClass        string      `json:"storageClass"`
	ExplicitlyDefaulted string      `json:"explicitlyDefaulted"`
	ScopedEnumTag       string      `json:"scopedEnumTag"`
	Access              string      `json:"access"`
	Opcode              string      `json:"opcode"`
	Init                string      `json:"init"`
	Inner               []*jsonNode `json:"inner"`
	Bases               []jsonBase  `json:"bases"`
	IsImplicit          bool        `json:"isImplicit"`
	CompleteDefinition  bool        `json:"completeDefinition"`
	Virtual             bool        `json:"virtual"`
	Pure                bool        `json:"pure"`
	ExplicitlyDeleted   bool        `json:"explicitlyDeleted"`
	Variadic            bool        `json:"variadic"`
	Inline              bool        `json:"inline"`
	IsInline            bool        `json:"isInline"`
	Mutable             bool        `json:"mutable"`
	IsBitfield          bool        `json:"isBitfield"`
	HasInClassInit      bool        `json:"hasInClassInitializer"`
	ParameterPack       bool        `json:"isParameterPack"`
	DefaultArg          bool        `json:"hasDefaultArgument"`
}

// scope is the enclosing declaration context during decoding.
type scope struct {
	record string
	access ast.Access
}

func (sc *scope) memberAccess() ast.Access {
	if sc == nil || sc.record == "" {
		return ast.AccessInvalid
	}

	return sc.access
}

// decoder converts a clang JSON dump. clang omits "file" and "line" from a
// location when they equal the previously printed ones, so the decoder
// replays every location in document order.
type decoder struct {
	records   map[string]string
	scopes    map[string]string
	templates map[string]struct{}
	file      string
	lastFile  string
	namespace []string
	lastLine  int
	enumNext  int64
}

func newDecoder(file string) *decoder {
	return &decoder{
		file:      file,
		records:   make(map[string]string),
		scopes:    make(map[string]string),
		templates: make(map[string]struct{}),
	}
}

func (d *decoder) touch(l *jsonLoc) ast.Location {
	if l.SpellingLoc != nil || l.ExpansionLoc != nil {
		var out ast.Location

		if l.SpellingLoc != nil {
			d.touch(l.SpellingLoc)
		}

		if l.ExpansionLoc != nil {
			out = d.touch(l.ExpansionLoc)
		}

		return out
	}

	if l.Col == 0 && l.Line == 0 && l.File == "" {
		return ast.Location{}
	}

	if l.File != "" {
		d.lastFile = l.File
	}

	if l.Line != 0 {
		d.lastLine = l.Line
	}

	return ast.Location{File: d.lastFile, Line: d.lastLine, Column: l.Col}
}

// visit replays the locations of n, returning the cursor location.
func (d *decoder) visit(n *jsonNode) ast.Location {
	loc := d.touch(&n.Loc)
	begin := d.touch(&n.Range.Begin)
	d.touch(&n.Range.End)

	if loc.File == "" {
		return begin
	}

	return loc
}

// skip replays the locations of a subtree that produces no cursors.
func (d *decoder) skip(n *jsonNode) {
	d.visit(n)

	for _, kid := range n.Inner {
		d.skip(kid)
	}
}

func (d *decoder) translationUnit(root *jsonNode) *ast.Node {
	tu := &ast.Node{K: ast.KindTranslationUnit, Name: d.file, Loc: ast.Location{File: d.file}}
	d.visit(root)

	sc := &scope{}

	for _, kid := range root.Inner {
		tu.Add(d.convert(kid, sc)...)
	}

	return tu
}

// files lists the distinct files of the TU's top-level cursors, main file
// first.
func (d *decoder) files(tu *ast.Node) []string {
	seen := map[string]bool{d.file: true}
	out := []string{d.file}

	for _, kid := range tu.Kids {
		if f := kid.Loc.File; f != "" && !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}

	return out
}

func (d *decoder) qualify(name string) string {
	return strings.Join(append(append([]string(nil), d.namespace...), name), "::")
}

func (d *decoder) isRecord(name string) bool {
	_, ok := d.records[strings.TrimPrefix(name, "::")]

	return ok
}

func (d *decoder) tagged(name string) string {
	if tag, ok := d.records[name]; ok {
		return tag + " " + name
	}

	return name
}

func (d *decoder) typeOf(spelling string) ast.Type {
	t := ast.ParseType(spelling, d.isRecord)
	d.markDependent(&t)

	return t
}

func (d *decoder) markDependent(t *ast.Type) {
	if t.Pointee != nil {
		d.markDependent(t.Pointee)
	}

	base := strings.TrimPrefix(strings.TrimPrefix(t.Spelling, "const "), "volatile ")
	if _, ok := d.templates[base]; ok && t.Kind == ast.TypeElaborated {
		t.Kind = ast.TypeUnexposed
	}
}

// convert maps one clang node onto zero or more cursors.
func (d *decoder) convert(n *jsonNode, sc *scope) []*ast.Node {
	if n.IsImplicit {
		d.skip(n)

		return nil
	}

	switch n.Kind {
	case "CXXCtorInitializer":
		return d.ctorInitializer(n, sc)
	case "ClassTemplateDecl", "FunctionTemplateDecl", "TypeAliasTemplateDecl":
		return d.template(n, sc)
	case "AccessSpecDecl":
		out := &ast.Node{K: ast.KindCXXAccessSpecifier, Loc: d.visit(n)}
		if acc, ok := ast.ParseAccess(n.Access); ok && sc != nil {
			sc.access = acc
		}

		out.Acc = sc.memberAccess()

		return []*ast.Node{out}
	}

	kind, ok := cursorKind(n.Kind, n.TagUsed)
	if !ok {
		d.skip(n)

		return nil
	}

	out := &ast.Node{K: kind, Name: n.Name, Loc: d.visit(n)}

	if acc, ok := ast.ParseAccess(n.Access); ok && kind.IsDeclaration() {
		out.Acc = acc
	} else if kind.IsDeclaration() && kind != ast.KindFunctionDecl {
		out.Acc = sc.memberAccess()
	}

	switch {
	case kind.IsRecord() || kind == ast.KindClassTemplatePartialSpecialization:
		d.record(n, out)
	case kind == ast.KindNamespace:
		d.namespaceDecl(n, out)
	case kind.IsFunctionLike():
		d.function(n, out)
	case kind.IsDeclaration():
		d.declaration(n, out)
		d.children(n, out, &scope{})
	default:
		d.expression(n, out)
		d.children(n, out, &scope{})
	}

	return []*ast.Node{out}
}

func (d *decoder) children(n *jsonNode, out *ast.Node, sc *scope) {
	for _, kid := range n.Inner {
		switch kid.Kind {
		case "FinalAttr":
			out.Flags |= ast.TraitFinal
		case "OverrideAttr":
			out.Flags |= ast.TraitOverride | ast.TraitVirtual
		}

		out.Add(d.convert(kid, sc)...)
	}
}

func (d *decoder) record(n *jsonNode, out *ast.Node) {
	tag := n.TagUsed
	if tag == "" {
		tag = "struct"
	}

	if n.Name == "" {
		out.Flags |= ast.TraitAnonymous
		out.Typ = ast.Type{Kind: ast.TypeRecord, Spelling: "(anonymous " + tag + ")"}
	} else {
		qualified := d.qualify(n.Name)
		d.records[n.Name] = tag
		d.records[qualified] = tag
		d.scopes[n.ID] = qualified
		out.Typ = ast.Type{Kind: ast.TypeRecord, Spelling: qualified}
	}

	if n.CompleteDefinition {
		out.Flags |= ast.TraitDefinition
	}

	if n.Kind == "ClassTemplateSpecializationDecl" {
		out.SetAttr("specialization", true)

		if args := templateArgs(n); args != "" && n.Name != "" {
			out.SetAttr("specialization_args", args)
			out.Typ.Spelling += args
		}
	}

	for _, base := range n.Bases {
		acc, _ := ast.ParseAccess(base.Access)
		spelling := d.tagged(base.Type.QualType)

		spec := &ast.Node{K: ast.KindCXXBaseSpecifier, Name: spelling, Loc: out.Loc, Acc: acc}
		spec.Typ = ast.Type{Kind: ast.TypeRecord, Spelling: base.Type.QualType}

		if base.IsVirtual {
			spec.Flags |= ast.TraitVirtual
		}

		spec.Add(&ast.Node{K: ast.KindTypeRef, Name: spelling, Loc: out.Loc})
		out.Add(spec)
	}

	access := ast.AccessPublic
	if tag == "class" {
		access = ast.AccessPrivate
	}

	d.namespace = append(d.namespace, n.Name)
	d.children(n, out, &scope{record: n.Name, access: access})
	d.namespace = d.namespace[:len(d.namespace)-1]
}

// templateArgs spells the TemplateArgument children of a specialization,
// such as "<int, 3>".
func templateArgs(n *jsonNode) string {
	var args []string

	for _, kid := range n.Inner {
		if kid.Kind != "TemplateArgument" {
			continue
		}

		switch {
		case kid.Type != nil:
			args = append(args, kid.Type.QualType)
		case kid.Value != nil:
			args = append(args, fmt.Sprint(kid.Value))
		}
	}

	if len(args) == 0 {
		return ""
	}

	return "<" + strings.Join(args, ", ") + ">"
}

func (d *decoder) namespaceDecl(n *jsonNode, out *ast.Node) {
	out.Flags |= ast.TraitDefinition

	if n.Name == "" {
		out.Flags |= ast.TraitAnonymous
	}

	if n.IsInline {
		out.Flags |= ast.TraitInline
	}

	d.scopes[n.ID] = d.qualify(n.Name)
	d.namespace = append(d.namespace, n.Name)
	d.children(n, out, &scope{})
	d.namespace = d.namespace[:len(d.namespace)-1]
}

func (d *decoder) declaration(n *jsonNode, out *ast.Node) {
	if n.Type != nil {
		out.Typ = d.typeOf(n.Type.QualType)
	}

	switch out.K {
	case ast.KindVarDecl:
		if n.StorageClass == "static" {
			out.Flags |= ast.TraitStatic
		}

		if n.StorageClass == "extern" && n.Init == "" {
			break
		}

		out.Flags |= ast.TraitDefinition
	case ast.KindFieldDecl:
		if n.Mutable {
			out.Flags |= ast.TraitMutable
		}

		if n.IsBitfield {
			out.Flags |= ast.TraitBitField
		}

		if n.HasInClassInit {
			out.Flags |= ast.TraitHasDefault
		}
	case ast.KindEnumConstantDecl:
		if v, ok := constantValue(n); ok {
			d.enumNext = v
		}

		out.SetAttr("enum_value", d.enumNext)
		d.enumNext++
	case ast.KindEnumDecl:
		d.enumNext = 0

		if n.ScopedEnumTag != "" {
			out.Flags |= ast.TraitScoped
		}

		if n.Name == "" {
			out.Flags |= ast.TraitAnonymous
		}

		out.Flags |= ast.TraitDefinition
		out.Typ = ast.Type{Kind: ast.TypeEnum, Spelling: d.qualify(n.Name)}
	case ast.KindParmDecl:
		out.Flags |= ast.TraitDefinition

		if len(n.Inner) > 0 {
			out.Flags |= ast.TraitHasDefault
		}
	case ast.KindTemplateTypeParameter:
		out.Acc = ast.AccessPublic
		out.Typ = ast.Type{Kind: ast.TypeUnexposed, Spelling: n.Name}

		if n.ParameterPack {
			out.Flags |= ast.TraitVariadic
		}

		if n.DefaultArg {
			out.Flags |= ast.TraitHasDefault
		}
	case ast.KindTemplateNonTypeParameter, ast.KindTemplateTemplateParameter:
		out.Acc = ast.AccessPublic

		if n.DefaultArg {
			out.Flags |= ast.TraitHasDefault
		}
	case ast.KindTypedefDecl, ast.KindTypeAliasDecl:
		if n.Type != nil {
			out.SetAttr("underlying_type", n.Type.QualType)
		}

		out.Typ = ast.Type{Kind: ast.TypeTypedef, Spelling: d.qualify(n.Name)}
	default:
	}
}

// constantValue finds the folded value of an enumerator initializer.
func constantValue(n *jsonNode) (int64, bool) {
	for _, kid := range n.Inner {
		if kid.Kind == "ConstantExpr" {
			return literalValue(kid.Value)
		}
	}

	return 0, false
}

// splitFunctionType splits "int (int, double) const" into its result type
// and whether the function is const-qualified.
func splitFunctionType(qualType string) (string, bool) {
	depth := 0

	for i, r := range qualType {
		switch r {
		case '<':
			depth++
		case '>':
			depth--
		case '(':
			if depth == 0 {
				return strings.TrimSpace(qualType[:i]), strings.HasSuffix(qualType, ") const")
			}
		}
	}

	return qualType, false
}

func (d *decoder) function(n *jsonNode, out *ast.Node) {
	if n.Type != nil {
		result, isConst := splitFunctionType(n.Type.QualType)
		out.Typ = ast.Type{Kind: ast.TypeFunctionProto, Spelling: n.Type.QualType}
		out.Result = d.typeOf(result)

		if isConst {
			out.Flags |= ast.TraitConst
		}
	}

	switch out.K {
	case ast.KindConstructor, ast.KindDestructor:
		out.Result = ast.Type{Kind: ast.TypeVoid, Spelling: "void"}
	case ast.KindFunctionDecl:
		out.Acc = ast.AccessInvalid
	default:
	}

	set := func(cond bool, t ast.Traits) {
		if cond {
			out.Flags |= t
		}
	}

	set(n.StorageClass == "static", ast.TraitStatic)
	set(n.StorageClass == "extern", ast.TraitExtern)
	set(n.Virtual, ast.TraitVirtual)
	set(n.Pure, ast.TraitPureVirtual|ast.TraitVirtual)
	set(n.ExplicitlyDeleted || n.ExplicitlyDefaulted == "deleted", ast.TraitDeleted|ast.TraitDefinition)
	set(n.ExplicitlyDefaulted == "default", ast.TraitDefaulted|ast.TraitDefinition)
	set(n.Variadic, ast.TraitVariadic)
	set(n.Inline, ast.TraitInline)

	for _, kid := range n.Inner {
		if kid.Kind == "CompoundStmt" {
			out.Flags |= ast.TraitDefinition
		}
	}

	// Out-of-line definitions name the scope that declared them.
	if parent, ok := d.scopes[n.ParentDeclContextID]; ok && n.ParentDeclContextID != "" {
		out.SetAttr("semantic_parent", parent)
	}

	d.children(n, out, &scope{})
}

func (d *decoder) ctorInitializer(n *jsonNode, sc *scope) []*ast.Node {
	var out []*ast.Node

	switch {
	case n.AnyInit != nil:
		out = append(out, &ast.Node{K: ast.KindMemberRef, Name: n.AnyInit.Name})
	case n.BaseInit != nil:
		out = append(out, &ast.Node{K: ast.KindTypeRef, Name: d.tagged(n.BaseInit.QualType)})
	}

	for _, kid := range n.Inner {
		out = append(out, d.convert(kid, sc)...)
	}

	// Initializers carry no location; borrow the first expression's.
	if len(out) > 1 && out[0].Loc.File == "" {
		out[0].Loc = out[1].Loc
	}

	if len(out) > 0 && out[0].Loc.File == "" {
		out[0].Loc = ast.Location{File: d.lastFile, Line: d.lastLine}
	}

	return out
}

func (d *decoder) expression(n *jsonNode, out *ast.Node) {
	if n.Type != nil {
		out.Typ = d.typeOf(n.Type.QualType)
	}

	switch {
	case n.Opcode != "":
		out.SetAttr("opcode", n.Opcode)
	case n.ReferencedDecl != nil:
		out.Name = n.ReferencedDecl.Name
	}

	switch out.K {
	case ast.KindIntegerLiteral:
		if v, ok := literalValue(n.Value); ok {
			out.SetAttr("value", v)
		}
	case ast.KindStringLiteral, ast.KindCharacterLiteral:
		if n.Value != nil {
			out.Name = fmt.Sprint(n.Value)
		}
	case ast.KindCallExpr:
		out.Name = calleeName(n)
	default:
	}
}

// literalValue reads clang's integer "value", which is printed as a string.
func literalValue(v any) (int64, bool) {
	if v == nil {
		return 0, false
	}

	i, err := strconv.ParseInt(fmt.Sprint(v), 10, 64)

	return i, err == nil
}

// calleeName unwraps implicit casts to find the called declaration.
func calleeName(n *jsonNode) string {
	if n.Kind == "CXXConstructExpr" || n.Kind == "CXXTemporaryObjectExpr" {
		if n.Type != nil {
			return lastComponent(n.Type.QualType)
		}

		return ""
	}

	for cur := firstInner(n); cur != nil; cur = firstInner(cur) {
		switch cur.Kind {
		case "DeclRefExpr":
			if cur.ReferencedDecl != nil {
				return cur.ReferencedDecl.Name
			}

			return ""
		case "MemberExpr":
			return cur.Name
		case "ImplicitCastExpr", "ParenExpr", "UnresolvedLookupExpr":
			if cur.Kind == "UnresolvedLookupExpr" {
				return cur.Name
			}
		default:
			return ""
		}
	}

	return ""
}

func firstInner(n *jsonNode) *jsonNode {
	if len(n.Inner) == 0 {
		return nil
	}

	return n.Inner[0]
}

func lastComponent(name string) string {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		return name[i+2:]
	}

	return name
}

// template folds the templated declaration into the template cursor, as
// libclang presents it. Implicit instantiations after the templated
// declaration are skipped.
func (d *decoder) template(n *jsonNode, sc *scope) []*ast.Node {
	kind, _ := cursorKind(n.Kind, "")
	loc := d.visit(n)

	var (
		params    []*ast.Node
		templated []*ast.Node
		added     []string
	)

	for _, kid := range n.Inner {
		switch {
		case strings.HasSuffix(kid.Kind, "TemplateParmDecl") || kid.Kind == "TemplateTypeParmDecl":
			params = append(params, d.convert(kid, sc)...)

			if kid.Name != "" {
				if _, ok := d.templates[kid.Name]; !ok {
					d.templates[kid.Name] = struct{}{}
					added = append(added, kid.Name)
				}
			}
		case templated == nil:
			templated = d.convert(kid, sc)
		default:
			d.skip(kid)
		}
	}

	for _, name := range added {
		delete(d.templates, name)
	}

	if len(templated) == 0 {
		return nil
	}

	decl := templated[0]
	decl.SetAttr("templated_kind", decl.K.String())
	decl.K = kind
	decl.Kids = append(params, decl.Kids...)

	if decl.Loc.File == "" {
		decl.Loc = loc
	}

	return templated
}
