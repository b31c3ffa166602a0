package clangjson

import (
	"strings"

	"github.com/Sumatoshi-tech/clangbind/pkg/ast"
)

// declKinds maps clang AST node kinds onto cursor kinds. Record kinds are
// resolved from tagUsed instead.
var declKinds = map[string]ast.Kind{
	"NamespaceDecl":                          ast.KindNamespace,
	"LinkageSpecDecl":                        ast.KindLinkageSpec,
	"EnumDecl":                               ast.KindEnumDecl,
	"EnumConstantDecl":                       ast.KindEnumConstantDecl,
	"FieldDecl":                              ast.KindFieldDecl,
	"IndirectFieldDecl":                      ast.KindFieldDecl,
	"FunctionDecl":                           ast.KindFunctionDecl,
	"VarDecl":                                ast.KindVarDecl,
	"ParmVarDecl":                            ast.KindParmDecl,
	"TypedefDecl":                            ast.KindTypedefDecl,
	"TypeAliasDecl":                          ast.KindTypeAliasDecl,
	"TypeAliasTemplateDecl":                  ast.KindTypeAliasTemplateDecl,
	"CXXMethodDecl":                          ast.KindCXXMethod,
	"CXXConstructorDecl":                     ast.KindConstructor,
	"CXXDestructorDecl":                      ast.KindDestructor,
	"CXXConversionDecl":                      ast.KindConversionFunction,
	"TemplateTypeParmDecl":                   ast.KindTemplateTypeParameter,
	"NonTypeTemplateParmDecl":                ast.KindTemplateNonTypeParameter,
	"TemplateTemplateParmDecl":               ast.KindTemplateTemplateParameter,
	"FunctionTemplateDecl":                   ast.KindFunctionTemplate,
	"ClassTemplateDecl":                      ast.KindClassTemplate,
	"ClassTemplatePartialSpecializationDecl": ast.KindClassTemplatePartialSpecialization,
	"NamespaceAliasDecl":                     ast.KindNamespaceAlias,
	"UsingDirectiveDecl":                     ast.KindUsingDirective,
	"UsingDecl":                              ast.KindUsingDeclaration,
	"AccessSpecDecl":                         ast.KindCXXAccessSpecifier,
	"FriendDecl":                             ast.KindFriendDecl,
	"StaticAssertDecl":                       ast.KindStaticAssert,
}

var exprKinds = map[string]ast.Kind{
	"DeclRefExpr":                ast.KindDeclRefExpr,
	"MemberExpr":                 ast.KindMemberRefExpr,
	"CallExpr":                   ast.KindCallExpr,
	"CXXMemberCallExpr":          ast.KindCallExpr,
	"CXXOperatorCallExpr":        ast.KindCallExpr,
	"CXXConstructExpr":           ast.KindCallExpr,
	"CXXTemporaryObjectExpr":     ast.KindCallExpr,
	"IntegerLiteral":             ast.KindIntegerLiteral,
	"FloatingLiteral":            ast.KindFloatingLiteral,
	"StringLiteral":              ast.KindStringLiteral,
	"CharacterLiteral":           ast.KindCharacterLiteral,
	"CXXBoolLiteralExpr":         ast.KindCXXBoolLiteralExpr,
	"CXXNullPtrLiteralExpr":      ast.KindCXXNullPtrLiteralExpr,
	"ParenExpr":                  ast.KindParenExpr,
	"UnaryOperator":              ast.KindUnaryOperator,
	"BinaryOperator":             ast.KindBinaryOperator,
	"CompoundAssignOperator":     ast.KindCompoundAssignOperator,
	"ConditionalOperator":        ast.KindConditionalOperator,
	"ArraySubscriptExpr":         ast.KindArraySubscriptExpr,
	"InitListExpr":               ast.KindInitListExpr,
	"CStyleCastExpr":             ast.KindCStyleCastExpr,
	"CXXFunctionalCastExpr":      ast.KindCXXFunctionalCastExpr,
	"CXXThisExpr":                ast.KindCXXThisExpr,
	"CXXNewExpr":                 ast.KindCXXNewExpr,
	"CXXDeleteExpr":              ast.KindCXXDeleteExpr,
	"LambdaExpr":                 ast.KindLambdaExpr,
	"CompoundStmt":               ast.KindCompoundStmt,
	"DeclStmt":                   ast.KindDeclStmt,
	"ReturnStmt":                 ast.KindReturnStmt,
	"IfStmt":                     ast.KindIfStmt,
	"SwitchStmt":                 ast.KindSwitchStmt,
	"CaseStmt":                   ast.KindCaseStmt,
	"DefaultStmt":                ast.KindDefaultStmt,
	"WhileStmt":                  ast.KindWhileStmt,
	"DoStmt":                     ast.KindDoStmt,
	"ForStmt":                    ast.KindForStmt,
	"BreakStmt":                  ast.KindBreakStmt,
	"ContinueStmt":               ast.KindContinueStmt,
	"NullStmt":                   ast.KindNullStmt,
}

var recordKinds = map[string]ast.Kind{
	"struct": ast.KindStructDecl,
	"class":  ast.KindClassDecl,
	"union":  ast.KindUnionDecl,
}

func isRecordNode(kind string) bool {
	switch kind {
	case "CXXRecordDecl", "RecordDecl", "ClassTemplateSpecializationDecl":
		return true
	default:
		return false
	}
}

// cursorKind classifies a clang node kind. ok is false for nodes that have
// no cursor of their own (attributes, comments, template arguments).
func cursorKind(kind, tag string) (ast.Kind, bool) {
	if isRecordNode(kind) {
		if k, ok := recordKinds[tag]; ok {
			return k, true
		}

		return ast.KindStructDecl, true
	}

	if k, ok := declKinds[kind]; ok {
		return k, true
	}

	if k, ok := exprKinds[kind]; ok {
		return k, true
	}

	switch {
	case strings.HasSuffix(kind, "Attr"), strings.HasSuffix(kind, "Comment"),
		kind == "TemplateArgument", kind == "CXXCtorInitializer", kind == "":
		return ast.KindInvalid, false
	case strings.HasSuffix(kind, "Decl"):
		return ast.KindUnexposedDecl, true
	case strings.HasSuffix(kind, "Stmt"):
		return ast.KindUnexposedStmt, true
	default:
		return ast.KindUnexposedExpr, true
	}
}
