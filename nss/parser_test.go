package nss_test

import (
	"testing"

	"github.com/aurora-toolkit/core/nss"
	"github.com/aurora-toolkit/core/nss/ast"
)

func parse(t *testing.T, src string) *ast.File {
	t.Helper()
	toks := tokenize(t, src)
	file, err := nss.NewParser(toks).ParseFile()
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	return file
}

func TestParseFunctionWithDefaults(t *testing.T) {
	file := parse(t, `void f(int a, int b = 3, float c = 1.5);`)
	if len(file.Functions) != 1 {
		t.Fatalf("got %d functions, want 1", len(file.Functions))
	}
	fd := file.Functions[0]
	if fd.Body != nil {
		t.Error("prototype should have no body")
	}
	if len(fd.Params) != 3 {
		t.Fatalf("got %d params, want 3", len(fd.Params))
	}
	if fd.Params[0].Default != nil {
		t.Error("param a should have no default")
	}
	if lit, ok := fd.Params[1].Default.(*ast.IntLit); !ok || lit.Value != 3 {
		t.Errorf("param b default = %#v, want IntLit 3", fd.Params[1].Default)
	}
	if lit, ok := fd.Params[2].Default.(*ast.FloatLit); !ok || lit.Value != 1.5 {
		t.Errorf("param c default = %#v, want FloatLit 1.5", fd.Params[2].Default)
	}
}

func TestParseIfSingleStatement(t *testing.T) {
	file := parse(t, `
void main() {
    int y;
    if (1) y = 1; else y = 2;
}
`)
	body := file.Functions[0].Body
	ifs, ok := body.Stmts[1].(*ast.IfStmt)
	if !ok {
		t.Fatalf("statement is %T, want *ast.IfStmt", body.Stmts[1])
	}
	if _, ok := ifs.Then.(*ast.ExprStmt); !ok {
		t.Errorf("then arm is %T, want *ast.ExprStmt", ifs.Then)
	}
	if _, ok := ifs.Else.(*ast.ExprStmt); !ok {
		t.Errorf("else arm is %T, want *ast.ExprStmt", ifs.Else)
	}
}

func TestParseElseIfChain(t *testing.T) {
	file := parse(t, `
void main() {
    if (1) { } else if (2) { } else { }
}
`)
	ifs := file.Functions[0].Body.Stmts[0].(*ast.IfStmt)
	inner, ok := ifs.Else.(*ast.IfStmt)
	if !ok {
		t.Fatalf("else arm is %T, want *ast.IfStmt", ifs.Else)
	}
	if _, ok := inner.Else.(*ast.Block); !ok {
		t.Errorf("final else arm is %T, want *ast.Block", inner.Else)
	}
}

func TestParsePrecedence(t *testing.T) {
	file := parse(t, `int g = 2 + 3 * 4;`)
	bin, ok := file.Globals[0].Init.(*ast.BinaryExpr)
	if !ok || bin.Op != "+" {
		t.Fatalf("initializer is %#v, want + at the root", file.Globals[0].Init)
	}
	right, ok := bin.Y.(*ast.BinaryExpr)
	if !ok || right.Op != "*" {
		t.Errorf("right operand is %#v, want * subtree", bin.Y)
	}
}

func TestParseVectorLiteral(t *testing.T) {
	file := parse(t, `vector g = [1.0, 2.0, 3.0];`)
	vec, ok := file.Globals[0].Init.(*ast.VectorLit)
	if !ok {
		t.Fatalf("initializer is %T, want *ast.VectorLit", file.Globals[0].Init)
	}
	if z, ok := vec.Z.(*ast.FloatLit); !ok || z.Value != 3.0 {
		t.Errorf("z component = %#v, want FloatLit 3", vec.Z)
	}
}

func TestParseFieldAccessChain(t *testing.T) {
	file := parse(t, `
void main() {
    vector v;
    float f = v.x;
}
`)
	decl := file.Functions[0].Body.Stmts[1].(*ast.DeclStmt)
	fe, ok := decl.Decl.Init.(*ast.FieldExpr)
	if !ok || fe.Field != "x" {
		t.Fatalf("initializer is %#v, want field access .x", decl.Decl.Init)
	}
	if id, ok := fe.X.(*ast.Ident); !ok || id.Name != "v" {
		t.Errorf("field target is %#v, want identifier v", fe.X)
	}
}

func TestParseStructDefWidths(t *testing.T) {
	file := parse(t, `
struct point {
    float x;
    vector dir;
};
`)
	sd := file.Structs[0]
	if sd.TotalWidth != 4 {
		t.Errorf("TotalWidth = %d, want 4 (float 1 + vector 3)", sd.TotalWidth)
	}
	if sd.Fields[1].SlotWidth != 3 {
		t.Errorf("vector field SlotWidth = %d, want 3", sd.Fields[1].SlotWidth)
	}
}

func TestParseSwitchLabelsAndFallthrough(t *testing.T) {
	file := parse(t, `
void main() {
    switch (1) {
        case 1:
        case 2:
            break;
        default:
            break;
    }
}
`)
	sw := file.Functions[0].Body.Stmts[0].(*ast.SwitchStmt)
	if len(sw.Cases) != 3 {
		t.Fatalf("got %d case clauses, want 3", len(sw.Cases))
	}
	if len(sw.Cases[0].Stmts) != 0 {
		t.Errorf("empty case carries %d statements, want 0", len(sw.Cases[0].Stmts))
	}
	if sw.Cases[2].Value != nil {
		t.Error("default clause should have a nil value")
	}
}

func TestParseInclude(t *testing.T) {
	file := parse(t, `#include "utility"
void main() { }
`)
	if len(file.Includes) != 1 || file.Includes[0].Path != "utility" {
		t.Fatalf("includes = %#v, want one entry %q", file.Includes, "utility")
	}
}

func TestParseDoWhileAndFor(t *testing.T) {
	file := parse(t, `
void main() {
    int i;
    do { i = i + 1; } while (i < 3);
    for (i = 0; i < 3; i++) { }
}
`)
	body := file.Functions[0].Body
	if _, ok := body.Stmts[1].(*ast.DoWhileStmt); !ok {
		t.Errorf("statement 1 is %T, want *ast.DoWhileStmt", body.Stmts[1])
	}
	fs, ok := body.Stmts[2].(*ast.ForStmt)
	if !ok {
		t.Fatalf("statement 2 is %T, want *ast.ForStmt", body.Stmts[2])
	}
	if fs.Init == nil || fs.Cond == nil || fs.Post == nil {
		t.Error("for clauses should all be present")
	}
}

func TestParseErrorOnMissingDeclName(t *testing.T) {
	toks := tokenize(t, "void main() { int ; }")
	_, err := nss.NewParser(toks).ParseFile()
	if err == nil {
		t.Fatal("expected a parse error")
	}
}
