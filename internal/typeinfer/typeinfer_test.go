package typeinfer

import (
	"testing"

	"pascalvm/internal/ast"
	"pascalvm/internal/errors"
	"pascalvm/internal/symtab"
	"pascalvm/internal/types"
)

func newTestInferencer() (*Inferencer, *symtab.SymTable, *errors.Diagnostics) {
	diags := &errors.Diagnostics{}
	model := types.NewModel()
	tab := symtab.New(model, diags, "test.pas")
	return New(tab, diags, "test.pas"), tab, diags
}

func pos() ast.Pos { return ast.Pos{File: "test.pas", Line: 1, Column: 1} }

func TestLiteralIntType(t *testing.T) {
	ti, _, _ := newTestInferencer()
	lit := &ast.LiteralExpr{Base: ast.Base{P: pos()}, Value: int64(7)}
	got := ti.InferExpr(lit)
	if got.Type.ScalarKind != ti.tab.Types.FindType("int64").ScalarKind {
		t.Fatalf("expected int64 literal, got %v", got.Type.Description())
	}
	if !got.IsLiteral || !got.IsConst {
		t.Fatal("expected literal to be marked const and literal")
	}
}

func TestLiteralCharVsStringDistinction(t *testing.T) {
	ti, _, _ := newTestInferencer()
	charLit := &ast.LiteralExpr{Base: ast.Base{P: pos()}, Value: rune('a')}
	strLit := &ast.LiteralExpr{Base: ast.Base{P: pos()}, Value: "hello"}

	charType := ti.InferExpr(charLit)
	strType := ti.InferExpr(strLit)

	if charType.Type != ti.tab.Types.FindType("char") {
		t.Fatalf("expected char literal to resolve to 'char', got %v", charType.Type.Description())
	}
	if strType.Type != ti.tab.Types.FindType("string") {
		t.Fatalf("expected string literal to resolve to 'string', got %v", strType.Type.Description())
	}
}

func TestIdentExprUndefinedReportsError(t *testing.T) {
	ti, _, diags := newTestInferencer()
	id := &ast.IdentExpr{Base: ast.Base{P: pos()}, Name: "nosuch"}
	got := ti.InferExpr(id)
	if !got.Type.IsUndefined() {
		t.Fatal("expected undefined result for unresolved identifier")
	}
	if diags.ErrorCount() != 1 {
		t.Fatalf("expected 1 diagnostic, got %d: %v", diags.ErrorCount(), diags.Strings())
	}
}

func TestBinaryExprPromotesToWiderOperand(t *testing.T) {
	ti, tab, diags := newTestInferencer()
	i32 := types.RefType{Type: tab.Types.FindType("integer")}
	f64 := types.RefType{Type: tab.Types.FindType("real")}
	tab.DeclareVar(1, 1, "a", i32, false)
	tab.DeclareVar(1, 1, "b", f64, false)

	bin := &ast.BinaryExpr{
		Base:     ast.Base{P: pos()},
		Left:     &ast.IdentExpr{Base: ast.Base{P: pos()}, Name: "a"},
		Operator: "+",
		Right:    &ast.IdentExpr{Base: ast.Base{P: pos()}, Name: "b"},
	}
	got := ti.InferExpr(bin)
	if got.Type != tab.Types.FindType("real") {
		t.Fatalf("expected promotion to real, got %v", got.Type.Description())
	}
	if diags.ErrorCount() != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags.Strings())
	}
}

func TestBinaryComparisonForcesBoolean(t *testing.T) {
	ti, tab, _ := newTestInferencer()
	i32 := types.RefType{Type: tab.Types.FindType("integer")}
	tab.DeclareVar(1, 1, "a", i32, false)
	tab.DeclareVar(1, 1, "b", i32, false)

	bin := &ast.BinaryExpr{
		Base:     ast.Base{P: pos()},
		Left:     &ast.IdentExpr{Base: ast.Base{P: pos()}, Name: "a"},
		Operator: "<",
		Right:    &ast.IdentExpr{Base: ast.Base{P: pos()}, Name: "b"},
	}
	got := ti.InferExpr(bin)
	if !got.Type.IsBoolean() {
		t.Fatalf("expected comparison to yield boolean, got %v", got.Type.Description())
	}
}

func TestDivModRequireIntegerOperands(t *testing.T) {
	ti, tab, diags := newTestInferencer()
	f64 := types.RefType{Type: tab.Types.FindType("real")}
	tab.DeclareVar(1, 1, "a", f64, false)
	tab.DeclareVar(1, 1, "b", f64, false)

	bin := &ast.BinaryExpr{
		Base:     ast.Base{P: pos()},
		Left:     &ast.IdentExpr{Base: ast.Base{P: pos()}, Name: "a"},
		Operator: "div",
		Right:    &ast.IdentExpr{Base: ast.Base{P: pos()}, Name: "b"},
	}
	ti.InferExpr(bin)
	if diags.ErrorCount() != 1 {
		t.Fatalf("expected 1 diagnostic for 'div' over reals, got %d: %v", diags.ErrorCount(), diags.Strings())
	}
}

func TestResolveArrayTypeExpr(t *testing.T) {
	ti, tab, diags := newTestInferencer()
	arrType := &ast.ArrayTypeExpr{
		Base: ast.Base{P: pos()},
		Low:  &ast.LiteralExpr{Base: ast.Base{P: pos()}, Value: int64(0)},
		High: &ast.LiteralExpr{Base: ast.Base{P: pos()}, Value: int64(9)},
		Elem: &ast.SimpleTypeExpr{Base: ast.Base{P: pos()}, Name: "integer"},
	}
	got := ti.ResolveType(arrType)
	if got.Type.Category != types.Array {
		t.Fatalf("expected array category, got %v", got.Type.Category)
	}
	if got.Type.ArrayLow != 0 || got.Type.ArrayHigh != 9 {
		t.Fatalf("expected bounds [0,9], got [%d,%d]", got.Type.ArrayLow, got.Type.ArrayHigh)
	}
	if got.Type.Elem() != tab.Types.FindType("integer") {
		t.Fatal("expected element type integer")
	}
	if diags.ErrorCount() != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags.Strings())
	}
}

func TestResolveArrayTypeExprNonConstantBoundsReportsError(t *testing.T) {
	ti, tab, diags := newTestInferencer()
	tab.DeclareVar(1, 1, "n", types.RefType{Type: tab.Types.FindType("integer")}, false)
	arrType := &ast.ArrayTypeExpr{
		Base: ast.Base{P: pos()},
		Low:  &ast.LiteralExpr{Base: ast.Base{P: pos()}, Value: int64(0)},
		High: &ast.IdentExpr{Base: ast.Base{P: pos()}, Name: "n"},
		Elem: &ast.SimpleTypeExpr{Base: ast.Base{P: pos()}, Name: "integer"},
	}
	ti.ResolveType(arrType)
	if diags.ErrorCount() != 1 {
		t.Fatalf("expected 1 diagnostic for non-constant bound, got %d", diags.ErrorCount())
	}
}

func TestResolvePointerTypeExpr(t *testing.T) {
	ti, tab, _ := newTestInferencer()
	ptrType := &ast.PointerTypeExpr{
		Base: ast.Base{P: pos()},
		Elem: &ast.SimpleTypeExpr{Base: ast.Base{P: pos()}, Name: "integer"},
	}
	got := ti.ResolveType(ptrType)
	if got.Type.Category != types.Pointer {
		t.Fatalf("expected pointer category, got %v", got.Type.Category)
	}
	if got.Type.Elem() != tab.Types.FindType("integer") {
		t.Fatal("expected pointee type integer")
	}
}

func TestResolveClassTypeExprRegistersFieldsAndParent(t *testing.T) {
	ti, tab, diags := newTestInferencer()

	baseExpr := &ast.ClassTypeExpr{Base: ast.Base{P: pos()}}
	ti.SetDeclaringTypeName("tbase")
	ti.ResolveType(baseExpr)

	childExpr := &ast.ClassTypeExpr{
		Base:   ast.Base{P: pos()},
		Parent: "tbase",
		Fields: []ast.ClassField{
			{Name: "x", Type: &ast.SimpleTypeExpr{Base: ast.Base{P: pos()}, Name: "integer"}},
			{Name: "y", Type: &ast.SimpleTypeExpr{Base: ast.Base{P: pos()}, Name: "real"}},
		},
	}
	ti.SetDeclaringTypeName("tchild")
	got := ti.ResolveType(childExpr)

	if got.Type.Category != types.Class {
		t.Fatalf("expected class category, got %v", got.Type.Category)
	}
	if got.Type.Parent == nil {
		t.Fatal("expected child class to have a parent set")
	}
	off, ok := got.Type.Offset("y")
	if !ok || off != 1 {
		t.Fatalf("expected field y at offset 1, got (%d, %v)", off, ok)
	}
	if tab.FindClass("tchild") == nil {
		t.Fatal("expected tchild registered in the symbol table")
	}
	if diags.ErrorCount() != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags.Strings())
	}
}

func TestUnaryNotRejectsNonBooleanNonInteger(t *testing.T) {
	ti, tab, diags := newTestInferencer()
	tab.DeclareVar(1, 1, "s", types.RefType{Type: tab.Types.FindType("string")}, false)
	u := &ast.UnaryExpr{
		Base:     ast.Base{P: pos()},
		Operator: "not",
		Operand:  &ast.IdentExpr{Base: ast.Base{P: pos()}, Name: "s"},
	}
	ti.InferExpr(u)
	if diags.ErrorCount() != 1 {
		t.Fatalf("expected 1 diagnostic for 'not' over a string, got %d: %v", diags.ErrorCount(), diags.Strings())
	}
}

func TestAddressOfThenDerefRoundTrips(t *testing.T) {
	ti, tab, diags := newTestInferencer()
	tab.DeclareVar(1, 1, "x", types.RefType{Type: tab.Types.FindType("integer")}, false)

	addr := &ast.AddressOfExpr{Base: ast.Base{P: pos()}, Operand: &ast.IdentExpr{Base: ast.Base{P: pos()}, Name: "x"}}
	ptrType := ti.InferExpr(addr)
	if ptrType.Type.Category != types.Pointer {
		t.Fatalf("expected pointer from address-of, got %v", ptrType.Type.Category)
	}

	deref := &ast.DerefExpr{Base: ast.Base{P: pos()}, Operand: addr}
	got := ti.InferExpr(deref)
	if got.Type != tab.Types.FindType("integer") {
		t.Fatalf("expected deref of @x to yield integer, got %v", got.Type.Description())
	}
	if diags.ErrorCount() != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags.Strings())
	}
}

func TestAddressOfLiteralReportsError(t *testing.T) {
	ti, _, diags := newTestInferencer()
	addr := &ast.AddressOfExpr{Base: ast.Base{P: pos()}, Operand: &ast.LiteralExpr{Base: ast.Base{P: pos()}, Value: int64(1)}}
	ti.InferExpr(addr)
	if diags.ErrorCount() != 1 {
		t.Fatalf("expected 1 diagnostic for address-of a literal, got %d", diags.ErrorCount())
	}
}

func TestIndexOnArrayYieldsElementType(t *testing.T) {
	ti, tab, diags := newTestInferencer()
	arrDef := tab.Types.Register(tab.Types.NewArray(0, 9, tab.Types.FindType("integer")), true, false)
	tab.DeclareVar(1, 1, "arr", types.RefType{Type: arrDef}, false)

	idx := &ast.IndexExpr{
		Base:   ast.Base{P: pos()},
		Object: &ast.IdentExpr{Base: ast.Base{P: pos()}, Name: "arr"},
		Index:  &ast.LiteralExpr{Base: ast.Base{P: pos()}, Value: int64(3)},
	}
	got := ti.InferExpr(idx)
	if got.Type != tab.Types.FindType("integer") {
		t.Fatalf("expected element type integer, got %v", got.Type.Description())
	}
	if diags.ErrorCount() != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags.Strings())
	}
}

func TestIndexOnStringYieldsChar(t *testing.T) {
	ti, tab, _ := newTestInferencer()
	tab.DeclareVar(1, 1, "s", types.RefType{Type: tab.Types.FindType("string")}, false)
	idx := &ast.IndexExpr{
		Base:   ast.Base{P: pos()},
		Object: &ast.IdentExpr{Base: ast.Base{P: pos()}, Name: "s"},
		Index:  &ast.LiteralExpr{Base: ast.Base{P: pos()}, Value: int64(1)},
	}
	got := ti.InferExpr(idx)
	if got.Type != tab.Types.FindType("char") {
		t.Fatalf("expected char from string indexing, got %v", got.Type.Description())
	}
}

func TestFieldExprResolvesClassMember(t *testing.T) {
	ti, tab, diags := newTestInferencer()
	classType := tab.Types.NewClass(nil)
	classType.AddField("x", tab.Types.FindType("integer"))
	tab.Types.SetNameForType(classType, "tpoint")
	tab.DeclareClass(1, 1, "tpoint", classType, "")
	tab.DeclareVar(1, 1, "p", types.RefType{Type: classType}, false)

	fe := &ast.FieldExpr{
		Base:   ast.Base{P: pos()},
		Object: &ast.IdentExpr{Base: ast.Base{P: pos()}, Name: "p"},
		Name:   "x",
	}
	got := ti.InferExpr(fe)
	if got.Type != tab.Types.FindType("integer") {
		t.Fatalf("expected field x to be integer, got %v", got.Type.Description())
	}
	if diags.ErrorCount() != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags.Strings())
	}
}

func TestFieldExprUndefinedFieldReportsError(t *testing.T) {
	ti, tab, diags := newTestInferencer()
	classType := tab.Types.NewClass(nil)
	tab.Types.SetNameForType(classType, "tempty")
	tab.DeclareClass(1, 1, "tempty", classType, "")
	tab.DeclareVar(1, 1, "o", types.RefType{Type: classType}, false)

	fe := &ast.FieldExpr{
		Base:   ast.Base{P: pos()},
		Object: &ast.IdentExpr{Base: ast.Base{P: pos()}, Name: "o"},
		Name:   "nosuch",
	}
	ti.InferExpr(fe)
	if diags.ErrorCount() != 1 {
		t.Fatalf("expected 1 diagnostic for undefined field, got %d", diags.ErrorCount())
	}
}

func TestCallExprResolvesFunctionReturnType(t *testing.T) {
	ti, tab, diags := newTestInferencer()
	retType := types.RefType{Type: tab.Types.FindType("integer")}
	tab.DeclareFunc(1, 1, nil, "square", retType, nil, false, false, false)

	call := &ast.CallExpr{
		Base:   ast.Base{P: pos()},
		Callee: &ast.IdentExpr{Base: ast.Base{P: pos()}, Name: "square"},
	}
	got := ti.InferExpr(call)
	if got.Type != tab.Types.FindType("integer") {
		t.Fatalf("expected call to resolve to integer, got %v", got.Type.Description())
	}
	if diags.ErrorCount() != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags.Strings())
	}
}

func TestEnumTypeExprDeclaresMembersAsIntegerConstants(t *testing.T) {
	ti, tab, diags := newTestInferencer()
	enumType := &ast.EnumTypeExpr{Base: ast.Base{P: pos()}, Names: []string{"red", "green", "blue"}}
	got := ti.ResolveType(enumType)
	if got.Type != tab.Types.FindType("integer") {
		t.Fatalf("expected enum type to behave as integer, got %v", got.Type.Description())
	}
	if tab.FindVar("green", nil) == nil {
		t.Fatal("expected enum member green to be declared as a variable")
	}
	if diags.ErrorCount() != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags.Strings())
	}
}
