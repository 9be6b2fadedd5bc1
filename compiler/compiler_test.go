package compiler_test

import (
	"testing"

	"github.com/aurora-toolkit/core/compiler"
	"github.com/aurora-toolkit/core/internal/vm"
)

// printIntegerRoutines describes the single engine routine every test
// script below forward-declares: void PrintInteger(int n); — assigned
// routine id 0 since it is the only name in each unit that is never
// given a body.
var printIntegerRoutines = map[uint16]vm.RoutineSpec{
	0: {ArgWidth: 1, Returns: false},
}

func compileAndRun(t *testing.T, source string, routines map[uint16]vm.RoutineSpec) vm.ActionTrace {
	t.Helper()
	c := &compiler.Compiler{}
	prog, err := c.Compile([]byte(source), "test.nss")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	m := vm.New(prog, routines)
	if err := m.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return m.Trace
}

// S4: arithmetic with operator precedence compiles to a program that
// invokes PrintInteger once with 14 (2+3*4).
func TestCompileArithmetic(t *testing.T) {
	const src = `
void PrintInteger(int n);

void main() {
    int a = 2 + 3 * 4;
    PrintInteger(a);
}
`
	trace := compileAndRun(t, src, printIntegerRoutines)
	if len(trace) != 1 {
		t.Fatalf("expected 1 action call, got %d: %+v", len(trace), trace)
	}
	if got := trace[0].Args[0].Int; got != 14 {
		t.Errorf("PrintInteger called with %d, want 14", got)
	}
}

// S5: a switch with no explicit breaks falls through from the matched
// case to every clause after it.
func TestCompileSwitchFallthrough(t *testing.T) {
	const src = `
void PrintInteger(int n);

void main() {
    switch (2) {
        case 1: PrintInteger(1);
        case 2: PrintInteger(2);
        case 3: PrintInteger(3);
    }
}
`
	trace := compileAndRun(t, src, printIntegerRoutines)
	if len(trace) != 2 {
		t.Fatalf("expected 2 action calls, got %d: %+v", len(trace), trace)
	}
	if trace[0].Args[0].Int != 2 || trace[1].Args[0].Int != 3 {
		t.Errorf("unexpected trace: %+v", trace)
	}
}

// S6: a call that omits a defaulted trailing argument materializes the
// default at the call site.
func TestCompileDefaultArgument(t *testing.T) {
	const src = `
void PrintInteger(int n);
void f(int x = 7);

void f(int x = 7) {
    PrintInteger(x);
}

void main() {
    f();
}
`
	trace := compileAndRun(t, src, printIntegerRoutines)
	if len(trace) != 1 {
		t.Fatalf("expected 1 action call, got %d: %+v", len(trace), trace)
	}
	if got := trace[0].Args[0].Int; got != 7 {
		t.Errorf("PrintInteger called with %d, want 7", got)
	}
}

func TestCompileMissingRequiredArgumentErrors(t *testing.T) {
	const src = `
void PrintInteger(int n);

void main() {
    PrintInteger();
}
`
	c := &compiler.Compiler{}
	if _, err := c.Compile([]byte(src), "test.nss"); err == nil {
		t.Fatal("expected an error for a missing required argument")
	}
}

func TestCompileUnknownFunctionErrors(t *testing.T) {
	const src = `
void main() {
    DoesNotExist();
}
`
	c := &compiler.Compiler{}
	if _, err := c.Compile([]byte(src), "test.nss"); err == nil {
		t.Fatal("expected an error for an undeclared function")
	}
}
