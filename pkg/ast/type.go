package ast

import "strings"

// TypeKind is the closed category of a declared or result type.
type TypeKind uint8

// Type kinds.
const (
	TypeInvalid TypeKind = iota
	TypeUnexposed
	TypeVoid
	TypeBool
	TypeCharS
	TypeSChar
	TypeUChar
	TypeWChar
	TypeChar16
	TypeChar32
	TypeShort
	TypeUShort
	TypeInt
	TypeUInt
	TypeLong
	TypeULong
	TypeLongLong
	TypeULongLong
	TypeFloat
	TypeDouble
	TypeLongDouble
	TypeNullPtr
	TypePointer
	TypeLValueReference
	TypeRValueReference
	TypeRecord
	TypeEnum
	TypeTypedef
	TypeElaborated
	TypeFunctionProto
	TypeConstantArray
	TypeIncompleteArray
	TypeAuto

	typeKindCount
)

var typeKindNames = [typeKindCount]string{
	TypeInvalid:         "INVALID",
	TypeUnexposed:       "UNEXPOSED",
	TypeVoid:            "VOID",
	TypeBool:            "BOOL",
	TypeCharS:           "CHAR_S",
	TypeSChar:           "SCHAR",
	TypeUChar:           "UCHAR",
	TypeWChar:           "WCHAR",
	TypeChar16:          "CHAR16",
	TypeChar32:          "CHAR32",
	TypeShort:           "SHORT",
	TypeUShort:          "USHORT",
	TypeInt:             "INT",
	TypeUInt:            "UINT",
	TypeLong:            "LONG",
	TypeULong:           "ULONG",
	TypeLongLong:        "LONGLONG",
	TypeULongLong:       "ULONGLONG",
	TypeFloat:           "FLOAT",
	TypeDouble:          "DOUBLE",
	TypeLongDouble:      "LONGDOUBLE",
	TypeNullPtr:         "NULLPTR",
	TypePointer:         "POINTER",
	TypeLValueReference: "LVALUEREFERENCE",
	TypeRValueReference: "RVALUEREFERENCE",
	TypeRecord:          "RECORD",
	TypeEnum:            "ENUM",
	TypeTypedef:         "TYPEDEF",
	TypeElaborated:      "ELABORATED",
	TypeFunctionProto:   "FUNCTIONPROTO",
	TypeConstantArray:   "CONSTANTARRAY",
	TypeIncompleteArray: "INCOMPLETEARRAY",
	TypeAuto:            "AUTO",
}

// String returns the bare enumerant name, e.g. "INT".
func (k TypeKind) String() string {
	if k >= typeKindCount {
		return typeKindNames[TypeInvalid]
	}

	return typeKindNames[k]
}

// IsBuiltin reports whether k is a fundamental arithmetic, void or nullptr type.
func (k TypeKind) IsBuiltin() bool {
	return k >= TypeVoid && k <= TypeNullPtr
}

// Type is the type facet of a cursor.
type Type struct {
	Pointee  *Type
	Spelling string
	Kind     TypeKind
	Const    bool
	Volatile bool
}

// IsValid reports whether the type carries any information.
func (t Type) IsValid() bool {
	return t.Kind != TypeInvalid
}

// IsPointer reports whether t is a pointer type.
func (t Type) IsPointer() bool {
	return t.Kind == TypePointer
}

// IsReference reports whether t is an lvalue or rvalue reference.
func (t Type) IsReference() bool {
	return t.Kind == TypeLValueReference || t.Kind == TypeRValueReference
}

// builtinSpellings maps canonical spellings of fundamental types to their kind.
var builtinSpellings = map[string]TypeKind{
	"void":                   TypeVoid,
	"bool":                   TypeBool,
	"char":                   TypeCharS,
	"signed char":            TypeSChar,
	"unsigned char":          TypeUChar,
	"wchar_t":                TypeWChar,
	"char16_t":               TypeChar16,
	"char32_t":               TypeChar32,
	"short":                  TypeShort,
	"short int":              TypeShort,
	"signed short":           TypeShort,
	"unsigned short":         TypeUShort,
	"unsigned short int":     TypeUShort,
	"int":                    TypeInt,
	"signed":                 TypeInt,
	"signed int":             TypeInt,
	"unsigned":               TypeUInt,
	"unsigned int":           TypeUInt,
	"long":                   TypeLong,
	"long int":               TypeLong,
	"signed long":            TypeLong,
	"unsigned long":          TypeULong,
	"unsigned long int":      TypeULong,
	"long long":              TypeLongLong,
	"long long int":          TypeLongLong,
	"unsigned long long":     TypeULongLong,
	"unsigned long long int": TypeULongLong,
	"float":                  TypeFloat,
	"double":                 TypeDouble,
	"long double":            TypeLongDouble,
	"std::nullptr_t":         TypeNullPtr,
	"nullptr_t":              TypeNullPtr,
	"auto":                   TypeAuto,
}

// ParseType classifies a C++ type spelling as printed by a compiler, e.g.
// "const int &" or "struct Foo *". Record-ness of a bare identifier cannot be
// known from spelling alone; such names classify as TypeElaborated unless
// isRecord reports otherwise.
func ParseType(spelling string, isRecord func(name string) bool) Type {
	spelling = normalizeSpelling(spelling)
	if spelling == "" {
		return Type{}
	}

	t := Type{Spelling: spelling}

	switch {
	case strings.HasSuffix(spelling, "&&"):
		inner := ParseType(strings.TrimSuffix(spelling, "&&"), isRecord)
		t.Kind = TypeRValueReference
		t.Pointee = &inner

		return t
	case strings.HasSuffix(spelling, "&"):
		inner := ParseType(strings.TrimSuffix(spelling, "&"), isRecord)
		t.Kind = TypeLValueReference
		t.Pointee = &inner

		return t
	}

	base, isConst, isVolatile := stripTrailingQualifiers(spelling)
	t.Const = isConst
	t.Volatile = isVolatile

	if strings.HasSuffix(base, "*") {
		inner := ParseType(strings.TrimSuffix(base, "*"), isRecord)
		t.Kind = TypePointer
		t.Pointee = &inner

		return t
	}

	base, leadConst, leadVolatile := stripLeadingQualifiers(base)
	t.Const = t.Const || leadConst
	t.Volatile = t.Volatile || leadVolatile

	switch {
	case strings.HasSuffix(base, "[]"):
		t.Kind = TypeIncompleteArray
	case strings.HasSuffix(base, "]"):
		t.Kind = TypeConstantArray
	case strings.Contains(base, "(") && strings.HasSuffix(base, ")"):
		t.Kind = TypeFunctionProto
	default:
		t.Kind = classifyNamed(base, isRecord)
	}

	return t
}

func classifyNamed(base string, isRecord func(string) bool) TypeKind {
	if k, ok := builtinSpellings[base]; ok {
		return k
	}

	for _, tag := range []string{"struct ", "class ", "union "} {
		if strings.HasPrefix(base, tag) {
			return TypeRecord
		}
	}

	if strings.HasPrefix(base, "enum ") {
		return TypeEnum
	}

	if isRecord != nil && isRecord(base) {
		return TypeRecord
	}

	if isTemplateParamLike(base) {
		return TypeUnexposed
	}

	return TypeElaborated
}

// isTemplateParamLike reports spellings that a compiler would leave unexposed,
// such as dependent template arguments.
func isTemplateParamLike(base string) bool {
	return strings.Contains(base, "<") || strings.HasPrefix(base, "typename ")
}

func stripTrailingQualifiers(s string) (string, bool, bool) {
	var isConst, isVolatile bool

	for {
		switch {
		case strings.HasSuffix(s, " const"):
			s = strings.TrimSpace(strings.TrimSuffix(s, " const"))
			isConst = true
		case strings.HasSuffix(s, " volatile"):
			s = strings.TrimSpace(strings.TrimSuffix(s, " volatile"))
			isVolatile = true
		default:
			return s, isConst, isVolatile
		}
	}
}

func stripLeadingQualifiers(s string) (string, bool, bool) {
	var isConst, isVolatile bool

	for {
		switch {
		case strings.HasPrefix(s, "const "):
			s = strings.TrimSpace(strings.TrimPrefix(s, "const "))
			isConst = true
		case strings.HasPrefix(s, "volatile "):
			s = strings.TrimSpace(strings.TrimPrefix(s, "volatile "))
			isVolatile = true
		default:
			return s, isConst, isVolatile
		}
	}
}

// normalizeSpelling collapses whitespace and attaches pointer and reference
// declarators the way clang prints them ("int *", "const Foo &").
func normalizeSpelling(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return s
	}

	var b strings.Builder

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '*' && c != '&' {
			b.WriteByte(c)

			continue
		}

		out := b.String()
		if out != "" && !strings.HasSuffix(out, " ") && !strings.HasSuffix(out, "*") && !strings.HasSuffix(out, "&") {
			b.WriteByte(' ')
		}

		b.WriteByte(c)

		if i+1 < len(s) && s[i+1] == ' ' && i+2 < len(s) && s[i+2] != '*' && s[i+2] != '&' {
			// Keep "int * const" readable.
			continue
		}

		if i+1 < len(s) && s[i+1] == ' ' {
			i++
		}
	}

	return strings.TrimSpace(b.String())
}
