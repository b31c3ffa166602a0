package bind

import "github.com/Sumatoshi-tech/clangbind/pkg/ast"

// Decl is one collected binding declaration: *Function, *Class, *Field,
// *Constructor, *Method, *Parameter or *Submodule.
type Decl interface {
	Location() ast.Location
	isDecl()
}

// Parameter is a function or constructor parameter.
type Parameter struct {
	Name string
	Type string
	Loc  ast.Location
}

// Function is a free function.
type Function struct {
	Name      string
	Qualified string
	Scope     string
	Result    string
	Params    []*Parameter
	Loc       ast.Location
	// Overloaded is set when another collected function shares the
	// qualified name.
	Overloaded bool
}

// Class is a struct or class registration with its members in source order.
type Class struct {
	Name      string
	Qualified string
	Scope     string
	Bases     []string
	Members   []Decl
	Loc       ast.Location
	// HasConstructors is set when the record declares any constructor,
	// deleted ones included.
	HasConstructors bool
}

// Field is a data member. Static members are VarDecls inside a record.
type Field struct {
	Name     string
	Owner    string
	Loc      ast.Location
	ReadOnly bool
	Static   bool
}

// Constructor is a non-deleted constructor.
type Constructor struct {
	Params []*Parameter
	Loc    ast.Location
}

// Method is a member function.
type Method struct {
	Name       string
	Owner      string
	Params     []*Parameter
	Loc        ast.Location
	Static     bool
	Const      bool
	Overloaded bool
}

// Submodule is a pybind11 submodule created for a namespace.
type Submodule struct {
	Var    string
	Parent string
	Name   string
	Loc    ast.Location
}

func (d *Parameter) Location() ast.Location   { return d.Loc }
func (d *Function) Location() ast.Location    { return d.Loc }
func (d *Class) Location() ast.Location       { return d.Loc }
func (d *Field) Location() ast.Location       { return d.Loc }
func (d *Constructor) Location() ast.Location { return d.Loc }
func (d *Method) Location() ast.Location      { return d.Loc }
func (d *Submodule) Location() ast.Location   { return d.Loc }

func (*Parameter) isDecl()   {}
func (*Function) isDecl()    {}
func (*Class) isDecl()       {}
func (*Field) isDecl()       {}
func (*Constructor) isDecl() {}
func (*Method) isDecl()      {}
func (*Submodule) isDecl()   {}
