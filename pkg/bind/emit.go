package bind

import (
	"fmt"
	"strings"
)

const memberIndent = "    "

// Emit renders declarations as pybind11 statements, one fragment per
// top-level declaration, and returns the number of binding statements.
func Emit(decls []Decl) ([]string, int) {
	out := make([]string, 0, len(decls))
	bindings := 0

	for _, d := range decls {
		var (
			frag string
			n    int
		)

		switch d := d.(type) {
		case *Function:
			frag, n = emitFunction(d), 1
		case *Class:
			frag, n = emitClass(d)
		case *Submodule:
			frag = fmt.Sprintf("auto %s = %s.def_submodule(%q);", d.Var, d.Parent, d.Name)
		default:
			continue
		}

		out = append(out, frag)
		bindings += n
	}

	return out, bindings
}

// annotations renders keyword arguments; unnamed parameters become argN.
func annotations(params []*Parameter) string {
	var b strings.Builder

	for i, p := range params {
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}

		fmt.Fprintf(&b, ", %q_a", name)
	}

	return b.String()
}

func overloadCast(params []*Parameter, ref string, isConst bool) string {
	suffix := ""
	if isConst {
		suffix = ", py::const_"
	}

	return fmt.Sprintf("py::overload_cast<%s>(%s%s)", strings.Join(paramTypes(params), ", "), ref, suffix)
}

func emitFunction(fn *Function) string {
	ref := "&" + fn.Qualified
	if fn.Overloaded {
		ref = overloadCast(fn.Params, ref, false)
	}

	return fmt.Sprintf("%s.def(%q, %s%s);", fn.Scope, fn.Name, ref, annotations(fn.Params))
}

func emitClass(cls *Class) (string, int) {
	typeArgs := append([]string{cls.Qualified}, cls.Bases...)
	lines := []string{fmt.Sprintf("py::class_<%s>(%s, %q)", strings.Join(typeArgs, ", "), cls.Scope, cls.Name)}

	if !cls.HasConstructors {
		lines = append(lines, memberIndent+".def(py::init<>())")
	}

	for _, m := range cls.Members {
		lines = append(lines, memberIndent+emitMember(m))
	}

	lines[len(lines)-1] += ";"

	return strings.Join(lines, "\n"), len(lines)
}

func emitMember(d Decl) string {
	switch d := d.(type) {
	case *Constructor:
		return fmt.Sprintf(".def(py::init<%s>()%s)", strings.Join(paramTypes(d.Params), ", "), annotations(d.Params))
	case *Field:
		method := "def_readwrite"
		if d.ReadOnly {
			method = "def_readonly"
		}

		if d.Static {
			method += "_static"
		}

		return fmt.Sprintf(".%s(%q, &%s::%s)", method, d.Name, d.Owner, d.Name)
	case *Method:
		method := "def"
		if d.Static {
			method = "def_static"
		}

		ref := "&" + d.Owner + "::" + d.Name
		if d.Overloaded {
			ref = overloadCast(d.Params, ref, d.Const)
		}

		return fmt.Sprintf(".%s(%q, %s%s)", method, d.Name, ref, annotations(d.Params))
	default:
		return ""
	}
}
