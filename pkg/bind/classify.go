package bind

import "github.com/Sumatoshi-tech/clangbind/pkg/ast"

// Category is the generator's handling of one cursor kind.
type Category uint8

// Categories.
const (
	// CategoryIgnore produces nothing and is not descended into.
	CategoryIgnore Category = iota
	// CategoryRecurse produces nothing for the container but visits its children.
	CategoryRecurse
	CategoryNamespace
	CategoryRecord
	CategoryFunction
	CategoryField
	CategoryConstructor
	CategoryMethod
	CategoryParameter
	// CategoryUnsupported is handled by the configured UnsupportedPolicy.
	CategoryUnsupported
)

var categoryNames = [...]string{
	CategoryIgnore:      "ignore",
	CategoryRecurse:     "recurse",
	CategoryNamespace:   "namespace",
	CategoryRecord:      "record",
	CategoryFunction:    "function",
	CategoryField:       "field",
	CategoryConstructor: "constructor",
	CategoryMethod:      "method",
	CategoryParameter:   "parameter",
	CategoryUnsupported: "unsupported",
}

func (c Category) String() string {
	if int(c) >= len(categoryNames) {
		return "unknown"
	}

	return categoryNames[c]
}

// classification lists every cursor kind. A test keeps it in step with
// ast.AllKinds.
var classification = map[ast.Kind]Category{
	ast.KindInvalid:         CategoryIgnore,
	ast.KindTranslationUnit: CategoryRecurse,

	ast.KindUnexposedDecl:                      CategoryUnsupported,
	ast.KindStructDecl:                         CategoryRecord,
	ast.KindClassDecl:                          CategoryRecord,
	ast.KindUnionDecl:                          CategoryRecurse,
	ast.KindEnumDecl:                           CategoryRecurse,
	ast.KindFieldDecl:                          CategoryField,
	ast.KindEnumConstantDecl:                   CategoryIgnore,
	ast.KindFunctionDecl:                       CategoryFunction,
	ast.KindVarDecl:                            CategoryField,
	ast.KindParmDecl:                           CategoryParameter,
	ast.KindTypedefDecl:                        CategoryIgnore,
	ast.KindCXXMethod:                          CategoryMethod,
	ast.KindNamespace:                          CategoryNamespace,
	ast.KindLinkageSpec:                        CategoryRecurse,
	ast.KindConstructor:                        CategoryConstructor,
	ast.KindDestructor:                         CategoryIgnore,
	ast.KindConversionFunction:                 CategoryIgnore,
	ast.KindTemplateTypeParameter:              CategoryIgnore,
	ast.KindTemplateNonTypeParameter:           CategoryIgnore,
	ast.KindTemplateTemplateParameter:          CategoryIgnore,
	ast.KindFunctionTemplate:                   CategoryRecurse,
	ast.KindClassTemplate:                      CategoryRecurse,
	ast.KindClassTemplatePartialSpecialization: CategoryRecurse,
	ast.KindNamespaceAlias:                     CategoryIgnore,
	ast.KindUsingDirective:                     CategoryIgnore,
	ast.KindUsingDeclaration:                   CategoryIgnore,
	ast.KindTypeAliasDecl:                      CategoryIgnore,
	ast.KindTypeAliasTemplateDecl:              CategoryIgnore,
	ast.KindCXXAccessSpecifier:                 CategoryIgnore,
	ast.KindFriendDecl:                         CategoryIgnore,
	ast.KindStaticAssert:                       CategoryIgnore,

	ast.KindTypeRef:           CategoryIgnore,
	ast.KindCXXBaseSpecifier:  CategoryIgnore,
	ast.KindTemplateRef:       CategoryIgnore,
	ast.KindNamespaceRef:      CategoryIgnore,
	ast.KindMemberRef:         CategoryIgnore,
	ast.KindOverloadedDeclRef: CategoryIgnore,

	ast.KindUnexposedExpr:          CategoryIgnore,
	ast.KindDeclRefExpr:            CategoryIgnore,
	ast.KindMemberRefExpr:          CategoryIgnore,
	ast.KindCallExpr:               CategoryIgnore,
	ast.KindIntegerLiteral:         CategoryIgnore,
	ast.KindFloatingLiteral:        CategoryIgnore,
	ast.KindStringLiteral:          CategoryIgnore,
	ast.KindCharacterLiteral:       CategoryIgnore,
	ast.KindCXXBoolLiteralExpr:     CategoryIgnore,
	ast.KindCXXNullPtrLiteralExpr:  CategoryIgnore,
	ast.KindParenExpr:              CategoryIgnore,
	ast.KindUnaryOperator:          CategoryIgnore,
	ast.KindBinaryOperator:         CategoryIgnore,
	ast.KindCompoundAssignOperator: CategoryIgnore,
	ast.KindConditionalOperator:    CategoryIgnore,
	ast.KindArraySubscriptExpr:     CategoryIgnore,
	ast.KindInitListExpr:           CategoryIgnore,
	ast.KindCStyleCastExpr:         CategoryIgnore,
	ast.KindCXXFunctionalCastExpr:  CategoryIgnore,
	ast.KindCXXThisExpr:            CategoryIgnore,
	ast.KindCXXNewExpr:             CategoryIgnore,
	ast.KindCXXDeleteExpr:          CategoryIgnore,
	ast.KindLambdaExpr:             CategoryIgnore,

	ast.KindUnexposedStmt: CategoryIgnore,
	ast.KindCompoundStmt:  CategoryIgnore,
	ast.KindDeclStmt:      CategoryIgnore,
	ast.KindReturnStmt:    CategoryIgnore,
	ast.KindIfStmt:        CategoryIgnore,
	ast.KindSwitchStmt:    CategoryIgnore,
	ast.KindCaseStmt:      CategoryIgnore,
	ast.KindDefaultStmt:   CategoryIgnore,
	ast.KindWhileStmt:     CategoryIgnore,
	ast.KindDoStmt:        CategoryIgnore,
	ast.KindForStmt:       CategoryIgnore,
	ast.KindBreakStmt:     CategoryIgnore,
	ast.KindContinueStmt:  CategoryIgnore,
	ast.KindNullStmt:      CategoryIgnore,

	ast.KindMacroDefinition:    CategoryIgnore,
	ast.KindMacroExpansion:     CategoryIgnore,
	ast.KindInclusionDirective: CategoryIgnore,
}

// Classify returns how the generator treats kind. Kinds missing from the
// table are unsupported.
func Classify(kind ast.Kind) Category {
	if c, ok := classification[kind]; ok {
		return c
	}

	return CategoryUnsupported
}

// classified reports whether kind has an explicit entry.
func classified(kind ast.Kind) bool {
	_, ok := classification[kind]

	return ok
}
