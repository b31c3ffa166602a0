// Package ast defines the compiler front-end boundary: a closed set of cursor
// kinds, the type and access facets, and the Frontend/Session contract that
// concrete front-ends implement.
package ast

// Kind is the closed category of a cursor.
// Values mirror clang's CXCursorKind naming so records read the same
// regardless of which front-end produced them.
type Kind uint16

// Cursor kinds. KindInvalid is the zero value.
const (
	KindInvalid Kind = iota

	// Declarations.
	KindUnexposedDecl
	KindStructDecl
	KindUnionDecl
	KindClassDecl
	KindEnumDecl
	KindFieldDecl
	KindEnumConstantDecl
	KindFunctionDecl
	KindVarDecl
	KindParmDecl
	KindTypedefDecl
	KindCXXMethod
	KindNamespace
	KindLinkageSpec
	KindConstructor
	KindDestructor
	KindConversionFunction
	KindTemplateTypeParameter
	KindTemplateNonTypeParameter
	KindTemplateTemplateParameter
	KindFunctionTemplate
	KindClassTemplate
	KindClassTemplatePartialSpecialization
	KindNamespaceAlias
	KindUsingDirective
	KindUsingDeclaration
	KindTypeAliasDecl
	KindTypeAliasTemplateDecl
	KindCXXAccessSpecifier
	KindFriendDecl
	KindStaticAssert

	// References.
	KindTypeRef
	KindCXXBaseSpecifier
	KindTemplateRef
	KindNamespaceRef
	KindMemberRef
	KindOverloadedDeclRef

	// Expressions.
	KindUnexposedExpr
	KindDeclRefExpr
	KindMemberRefExpr
	KindCallExpr
	KindIntegerLiteral
	KindFloatingLiteral
	KindStringLiteral
	KindCharacterLiteral
	KindCXXBoolLiteralExpr
	KindCXXNullPtrLiteralExpr
	KindParenExpr
	KindUnaryOperator
	KindBinaryOperator
	KindCompoundAssignOperator
	KindConditionalOperator
	KindArraySubscriptExpr
	KindInitListExpr
	KindCStyleCastExpr
	KindCXXFunctionalCastExpr
	KindCXXThisExpr
	KindCXXNewExpr
	KindCXXDeleteExpr
	KindLambdaExpr

	// Statements.
	KindUnexposedStmt
	KindCompoundStmt
	KindDeclStmt
	KindReturnStmt
	KindIfStmt
	KindSwitchStmt
	KindCaseStmt
	KindDefaultStmt
	KindWhileStmt
	KindDoStmt
	KindForStmt
	KindBreakStmt
	KindContinueStmt
	KindNullStmt

	// Root.
	KindTranslationUnit

	// Preprocessing.
	KindMacroDefinition
	KindMacroExpansion
	KindInclusionDirective

	kindCount
)

var kindNames = [kindCount]string{
	KindInvalid:                            "INVALID_FILE",
	KindUnexposedDecl:                      "UNEXPOSED_DECL",
	KindStructDecl:                         "STRUCT_DECL",
	KindUnionDecl:                          "UNION_DECL",
	KindClassDecl:                          "CLASS_DECL",
	KindEnumDecl:                           "ENUM_DECL",
	KindFieldDecl:                          "FIELD_DECL",
	KindEnumConstantDecl:                   "ENUM_CONSTANT_DECL",
	KindFunctionDecl:                       "FUNCTION_DECL",
	KindVarDecl:                            "VAR_DECL",
	KindParmDecl:                           "PARM_DECL",
	KindTypedefDecl:                        "TYPEDEF_DECL",
	KindCXXMethod:                          "CXX_METHOD",
	KindNamespace:                          "NAMESPACE",
	KindLinkageSpec:                        "LINKAGE_SPEC",
	KindConstructor:                        "CONSTRUCTOR",
	KindDestructor:                         "DESTRUCTOR",
	KindConversionFunction:                 "CONVERSION_FUNCTION",
	KindTemplateTypeParameter:              "TEMPLATE_TYPE_PARAMETER",
	KindTemplateNonTypeParameter:           "TEMPLATE_NON_TYPE_PARAMETER",
	KindTemplateTemplateParameter:          "TEMPLATE_TEMPLATE_PARAMETER",
	KindFunctionTemplate:                   "FUNCTION_TEMPLATE",
	KindClassTemplate:                      "CLASS_TEMPLATE",
	KindClassTemplatePartialSpecialization: "CLASS_TEMPLATE_PARTIAL_SPECIALIZATION",
	KindNamespaceAlias:                     "NAMESPACE_ALIAS",
	KindUsingDirective:                     "USING_DIRECTIVE",
	KindUsingDeclaration:                   "USING_DECLARATION",
	KindTypeAliasDecl:                      "TYPE_ALIAS_DECL",
	KindTypeAliasTemplateDecl:              "TYPE_ALIAS_TEMPLATE_DECL",
	KindCXXAccessSpecifier:                 "CXX_ACCESS_SPEC_DECL",
	KindFriendDecl:                         "FRIEND_DECL",
	KindStaticAssert:                       "STATIC_ASSERT",
	KindTypeRef:                            "TYPE_REF",
	KindCXXBaseSpecifier:                   "CXX_BASE_SPECIFIER",
	KindTemplateRef:                        "TEMPLATE_REF",
	KindNamespaceRef:                       "NAMESPACE_REF",
	KindMemberRef:                          "MEMBER_REF",
	KindOverloadedDeclRef:                  "OVERLOADED_DECL_REF",
	KindUnexposedExpr:                      "UNEXPOSED_EXPR",
	KindDeclRefExpr:                        "DECL_REF_EXPR",
	KindMemberRefExpr:                      "MEMBER_REF_EXPR",
	KindCallExpr:                           "CALL_EXPR",
	KindIntegerLiteral:                     "INTEGER_LITERAL",
	KindFloatingLiteral:                    "FLOATING_LITERAL",
	KindStringLiteral:                      "STRING_LITERAL",
	KindCharacterLiteral:                   "CHARACTER_LITERAL",
	KindCXXBoolLiteralExpr:                 "CXX_BOOL_LITERAL_EXPR",
	KindCXXNullPtrLiteralExpr:              "CXX_NULL_PTR_LITERAL_EXPR",
	KindParenExpr:                          "PAREN_EXPR",
	KindUnaryOperator:                      "UNARY_OPERATOR",
	KindBinaryOperator:                     "BINARY_OPERATOR",
	KindCompoundAssignOperator:             "COMPOUND_ASSIGNMENT_OPERATOR",
	KindConditionalOperator:                "CONDITIONAL_OPERATOR",
	KindArraySubscriptExpr:                 "ARRAY_SUBSCRIPT_EXPR",
	KindInitListExpr:                       "INIT_LIST_EXPR",
	KindCStyleCastExpr:                     "CSTYLE_CAST_EXPR",
	KindCXXFunctionalCastExpr:              "CXX_FUNCTIONAL_CAST_EXPR",
	KindCXXThisExpr:                        "CXX_THIS_EXPR",
	KindCXXNewExpr:                         "CXX_NEW_EXPR",
	KindCXXDeleteExpr:                      "CXX_DELETE_EXPR",
	KindLambdaExpr:                         "LAMBDA_EXPR",
	KindUnexposedStmt:                      "UNEXPOSED_STMT",
	KindCompoundStmt:                       "COMPOUND_STMT",
	KindDeclStmt:                           "DECL_STMT",
	KindReturnStmt:                         "RETURN_STMT",
	KindIfStmt:                             "IF_STMT",
	KindSwitchStmt:                         "SWITCH_STMT",
	KindCaseStmt:                           "CASE_STMT",
	KindDefaultStmt:                        "DEFAULT_STMT",
	KindWhileStmt:                          "WHILE_STMT",
	KindDoStmt:                             "DO_STMT",
	KindForStmt:                            "FOR_STMT",
	KindBreakStmt:                          "BREAK_STMT",
	KindContinueStmt:                       "CONTINUE_STMT",
	KindNullStmt:                           "NULL_STMT",
	KindTranslationUnit:                    "TRANSLATION_UNIT",
	KindMacroDefinition:                    "MACRO_DEFINITION",
	KindMacroExpansion:                     "MACRO_INSTANTIATION",
	KindInclusionDirective:                 "INCLUSION_DIRECTIVE",
}

var kindsByName = func() map[string]Kind {
	out := make(map[string]Kind, kindCount)
	for k := range kindCount {
		out[kindNames[k]] = k
	}

	return out
}()

// String returns the bare enumerant name, e.g. "STRUCT_DECL".
func (k Kind) String() string {
	if k >= kindCount {
		return kindNames[KindInvalid]
	}

	return kindNames[k]
}

// KindFromName resolves a bare enumerant name back to a Kind.
func KindFromName(name string) (Kind, bool) {
	k, ok := kindsByName[name]

	return k, ok
}

// AllKinds returns every defined kind in declaration order.
func AllKinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := range kindCount {
		out = append(out, k)
	}

	return out
}

// IsDeclaration reports whether k is a declaration kind.
func (k Kind) IsDeclaration() bool {
	return k >= KindUnexposedDecl && k <= KindStaticAssert
}

// IsReference reports whether k is a reference kind.
func (k Kind) IsReference() bool {
	return k >= KindTypeRef && k <= KindOverloadedDeclRef
}

// IsExpression reports whether k is an expression kind.
func (k Kind) IsExpression() bool {
	return k >= KindUnexposedExpr && k <= KindLambdaExpr
}

// IsStatement reports whether k is a statement kind.
func (k Kind) IsStatement() bool {
	return k >= KindUnexposedStmt && k <= KindNullStmt
}

// IsTranslationUnit reports whether k is the root kind.
func (k Kind) IsTranslationUnit() bool {
	return k == KindTranslationUnit
}

// IsPreprocessing reports whether k is a preprocessing record.
func (k Kind) IsPreprocessing() bool {
	return k >= KindMacroDefinition && k <= KindInclusionDirective
}

// IsInvalid reports whether k is the invalid kind or out of range.
func (k Kind) IsInvalid() bool {
	return k == KindInvalid || k >= kindCount
}

// IsUnexposed reports whether k is one of the catch-all unexposed kinds.
func (k Kind) IsUnexposed() bool {
	return k == KindUnexposedDecl || k == KindUnexposedExpr || k == KindUnexposedStmt
}

// IsRecord reports whether k declares a struct, class, or union.
func (k Kind) IsRecord() bool {
	return k == KindStructDecl || k == KindClassDecl || k == KindUnionDecl
}

// IsFunctionLike reports whether k carries a result type and parameters.
func (k Kind) IsFunctionLike() bool {
	switch k {
	case KindFunctionDecl, KindCXXMethod, KindConstructor, KindDestructor,
		KindConversionFunction, KindFunctionTemplate:
		return true
	default:
		return false
	}
}
