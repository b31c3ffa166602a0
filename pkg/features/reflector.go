package features

import (
	"errors"
	"strings"

	"github.com/Sumatoshi-tech/clangbind/pkg/ast"
)

var errInvalidSchema = errors.New("invalid feature schema")

// Feature names referenced outside this package.
const (
	PropName         = "name"
	PropKind         = "kind"
	PropSpelling     = "spelling"
	PropDisplayName  = "displayname"
	PropResultType   = "result_type"
	PropAccess       = "access_specifier"
	PropStorageClass = "storage_class"

	IsAnonymous          = "is_anonymous"
	IsDefinition         = "is_definition"
	IsDeletedMethod      = "is_deleted_method"
	IsDefaultMethod      = "is_default_method"
	IsConstMethod        = "is_const_method"
	IsStaticMethod       = "is_static_method"
	IsVirtualMethod      = "is_virtual_method"
	IsPureVirtualMethod  = "is_pure_virtual_method"
	IsDefaultConstructor = "is_default_constructor"
	IsCopyConstructor    = "is_copy_constructor"
	IsMoveConstructor    = "is_move_constructor"
	IsConverting         = "is_converting_constructor"
	IsScopedEnum         = "is_scoped_enum"
	IsMutableField       = "is_mutable_field"
	IsBitField           = "is_bitfield"
	IsAbstractRecord     = "is_abstract_record"

	GetNumArguments = "get_num_arguments"
	GetArguments    = "get_arguments"
	GetPointee      = "get_pointee"
)

func cursorBool(mask ast.Traits, applies func(ast.Kind) bool) func(ast.Cursor) (any, bool) {
	return func(c ast.Cursor) (any, bool) {
		if applies != nil && !applies(c.Kind()) {
			return nil, false
		}

		return c.Traits().Has(mask), true
	}
}

func isMethodKind(k ast.Kind) bool {
	return k == ast.KindCXXMethod || k == ast.KindConversionFunction
}

func isMemberFunctionKind(k ast.Kind) bool {
	return isMethodKind(k) || k == ast.KindConstructor || k == ast.KindDestructor
}

func isRecordOrEnum(k ast.Kind) bool {
	return k.IsRecord() || k == ast.KindEnumDecl || k == ast.KindNamespace
}

func params(c ast.Cursor) []ast.Cursor {
	var out []ast.Cursor

	for _, kid := range c.Children() {
		if kid.Kind() == ast.KindParmDecl {
			out = append(out, kid)
		}
	}

	return out
}

func templateParams(c ast.Cursor) []ast.Cursor {
	var out []ast.Cursor

	for _, kid := range c.Children() {
		switch kid.Kind() {
		case ast.KindTemplateTypeParameter, ast.KindTemplateNonTypeParameter, ast.KindTemplateTemplateParameter:
			out = append(out, kid)
		default:
		}
	}

	return out
}

// recordName strips a leading tag keyword from a record type spelling.
func recordName(spelling string) string {
	for _, tag := range []string{"struct ", "class ", "union "} {
		spelling = strings.TrimPrefix(spelling, tag)
	}

	return spelling
}

func constructorParamKind(c ast.Cursor, owner string) (ast.TypeKind, bool) {
	ps := params(c)
	if len(ps) != 1 {
		return ast.TypeInvalid, false
	}

	t := ps[0].Type()
	if !t.IsReference() || t.Pointee == nil {
		return ast.TypeInvalid, false
	}

	name := recordName(t.Pointee.Spelling)
	name = strings.TrimPrefix(name, "const ")

	if owner != "" && recordName(name) != owner && !strings.HasSuffix(name, "::"+owner) {
		return ast.TypeInvalid, false
	}

	return t.Kind, true
}

func ctorOnly(fn func(ast.Cursor) bool) func(ast.Cursor) (any, bool) {
	return func(c ast.Cursor) (any, bool) {
		if c.Kind() != ast.KindConstructor {
			return nil, false
		}

		return fn(c), true
	}
}

func isDefaultCtor(c ast.Cursor) bool {
	for _, p := range params(c) {
		if !p.Traits().Has(ast.TraitHasDefault) {
			return false
		}
	}

	return true
}

func isCopyCtor(c ast.Cursor) bool {
	k, ok := constructorParamKind(c, c.Spelling())

	return ok && k == ast.TypeLValueReference
}

func isMoveCtor(c ast.Cursor) bool {
	k, ok := constructorParamKind(c, c.Spelling())

	return ok && k == ast.TypeRValueReference
}

func isConvertingCtor(c ast.Cursor) bool {
	if c.Traits().Has(ast.TraitExplicit) || isCopyCtor(c) || isMoveCtor(c) {
		return false
	}

	required := 0

	for _, p := range params(c) {
		if !p.Traits().Has(ast.TraitHasDefault) {
			required++
		}
	}

	return required == 1 || (required == 0 && len(params(c)) > 0)
}

func displayName(c ast.Cursor) string {
	name := c.Spelling()

	switch {
	case c.Kind().IsFunctionLike():
		ps := params(c)
		types := make([]string, len(ps))

		for i, p := range ps {
			types[i] = p.Type().Spelling
		}

		if c.Traits().Has(ast.TraitVariadic) {
			types = append(types, "...")
		}

		return name + "(" + strings.Join(types, ", ") + ")"
	case c.Kind() == ast.KindClassTemplate:
		tps := templateParams(c)
		names := make([]string, len(tps))

		for i, p := range tps {
			names[i] = p.Spelling()
		}

		return name + "<" + strings.Join(names, ", ") + ">"
	default:
		return name
	}
}

func storageClass(c ast.Cursor) (any, bool) {
	switch c.Kind() {
	case ast.KindVarDecl, ast.KindFunctionDecl, ast.KindCXXMethod, ast.KindFieldDecl:
	default:
		return nil, false
	}

	switch {
	case c.Traits().Has(ast.TraitStatic):
		return "STATIC", true
	case c.Traits().Has(ast.TraitExtern):
		return "EXTERN", true
	default:
		return "NONE", true
	}
}

// CursorSchema lists the features of the cursor facet.
var CursorSchema = Schema[ast.Cursor]{
	{Name: PropKind, Extract: func(c ast.Cursor) (any, bool) { return c.Kind().String(), true }},
	{Name: PropSpelling, Extract: func(c ast.Cursor) (any, bool) { return c.Spelling(), true }},
	{Name: PropDisplayName, Extract: func(c ast.Cursor) (any, bool) { return displayName(c), true }},
	{Name: PropAccess, Extract: func(c ast.Cursor) (any, bool) { return c.Access().String(), true }},
	{Name: PropResultType, Extract: func(c ast.Cursor) (any, bool) {
		if !c.Kind().IsFunctionLike() {
			return nil, false
		}

		return c.ResultType().Spelling, true
	}},
	{Name: PropStorageClass, Extract: storageClass},
	{Name: IsAnonymous, Extract: cursorBool(ast.TraitAnonymous, isRecordOrEnum)},
	{Name: IsDefinition, Extract: cursorBool(ast.TraitDefinition, ast.Kind.IsDeclaration)},
	{Name: "is_implicit", Extract: cursorBool(ast.TraitImplicit, nil)},
	{Name: IsConstMethod, Extract: cursorBool(ast.TraitConst, isMethodKind)},
	{Name: IsStaticMethod, Extract: cursorBool(ast.TraitStatic, isMethodKind)},
	{Name: IsVirtualMethod, Extract: cursorBool(ast.TraitVirtual, isMemberFunctionKind)},
	{Name: IsPureVirtualMethod, Extract: cursorBool(ast.TraitPureVirtual, isMethodKind)},
	{Name: IsDefaultMethod, Extract: cursorBool(ast.TraitDefaulted, isMemberFunctionKind)},
	{Name: IsDeletedMethod, Extract: cursorBool(ast.TraitDeleted, ast.Kind.IsFunctionLike)},
	{Name: "is_override_method", Extract: cursorBool(ast.TraitOverride, isMethodKind)},
	{Name: "is_final", Extract: cursorBool(ast.TraitFinal, func(k ast.Kind) bool {
		return isMethodKind(k) || k.IsRecord()
	})},
	{Name: "is_explicit", Extract: cursorBool(ast.TraitExplicit, func(k ast.Kind) bool {
		return k == ast.KindConstructor || k == ast.KindConversionFunction
	})},
	{Name: "is_inline", Extract: cursorBool(ast.TraitInline, ast.Kind.IsFunctionLike)},
	{Name: "is_variadic", Extract: cursorBool(ast.TraitVariadic, ast.Kind.IsFunctionLike)},
	{Name: IsDefaultConstructor, Extract: ctorOnly(isDefaultCtor)},
	{Name: IsCopyConstructor, Extract: ctorOnly(isCopyCtor)},
	{Name: IsMoveConstructor, Extract: ctorOnly(isMoveCtor)},
	{Name: IsConverting, Extract: ctorOnly(isConvertingCtor)},
	{Name: IsScopedEnum, Extract: cursorBool(ast.TraitScoped, func(k ast.Kind) bool { return k == ast.KindEnumDecl })},
	{Name: IsMutableField, Extract: cursorBool(ast.TraitMutable, func(k ast.Kind) bool { return k == ast.KindFieldDecl })},
	{Name: IsBitField, Extract: cursorBool(ast.TraitBitField, func(k ast.Kind) bool { return k == ast.KindFieldDecl })},
	{Name: IsAbstractRecord, Extract: func(c ast.Cursor) (any, bool) {
		if !c.Kind().IsRecord() {
			return nil, false
		}

		for _, kid := range c.Children() {
			if kid.Traits().Has(ast.TraitPureVirtual) {
				return true, true
			}
		}

		return false, true
	}},
	{Name: GetNumArguments, Extract: func(c ast.Cursor) (any, bool) {
		if !c.Kind().IsFunctionLike() {
			return nil, false
		}

		return len(params(c)), true
	}},
	{Name: GetArguments, Extract: func(c ast.Cursor) (any, bool) {
		if !c.Kind().IsFunctionLike() {
			return nil, false
		}

		ps := params(c)
		names := make([]string, len(ps))

		for i, p := range ps {
			names[i] = p.Spelling()
		}

		return names, true
	}},
	{Name: "get_num_template_parameters", Extract: func(c ast.Cursor) (any, bool) {
		if c.Kind() != ast.KindClassTemplate && c.Kind() != ast.KindFunctionTemplate &&
			c.Kind() != ast.KindClassTemplatePartialSpecialization {
			return nil, false
		}

		return len(templateParams(c)), true
	}},
}

// KindSchema lists the features of the kind facet.
var KindSchema = Schema[ast.Kind]{
	{Name: PropName, Extract: func(k ast.Kind) (any, bool) { return k.String(), true }},
	{Name: "is_declaration", Extract: func(k ast.Kind) (any, bool) { return k.IsDeclaration(), true }},
	{Name: "is_reference", Extract: func(k ast.Kind) (any, bool) { return k.IsReference(), true }},
	{Name: "is_expression", Extract: func(k ast.Kind) (any, bool) { return k.IsExpression(), true }},
	{Name: "is_statement", Extract: func(k ast.Kind) (any, bool) { return k.IsStatement(), true }},
	{Name: "is_attribute", Extract: func(ast.Kind) (any, bool) { return false, true }},
	{Name: "is_invalid", Extract: func(k ast.Kind) (any, bool) { return k.IsInvalid(), true }},
	{Name: "is_translation_unit", Extract: func(k ast.Kind) (any, bool) { return k.IsTranslationUnit(), true }},
	{Name: "is_preprocessing", Extract: func(k ast.Kind) (any, bool) { return k.IsPreprocessing(), true }},
	{Name: "is_unexposed", Extract: func(k ast.Kind) (any, bool) { return k.IsUnexposed(), true }},
}

// TypeSchema lists the features of the type facet.
var TypeSchema = Schema[ast.Type]{
	{Name: PropKind, Extract: func(t ast.Type) (any, bool) { return t.Kind.String(), true }},
	{Name: PropSpelling, Extract: func(t ast.Type) (any, bool) { return t.Spelling, true }},
	{Name: "is_const_qualified", Extract: func(t ast.Type) (any, bool) { return t.Const, true }},
	{Name: "is_volatile_qualified", Extract: func(t ast.Type) (any, bool) { return t.Volatile, true }},
	{Name: GetPointee, Extract: func(t ast.Type) (any, bool) {
		if !t.IsPointer() && !t.IsReference() {
			return nil, false
		}

		return t.Pointee.Spelling, true
	}},
}
