package compiler

import (
	"fmt"

	"github.com/aurora-toolkit/core/ncs"
	"github.com/aurora-toolkit/core/nss/ast"
)

// lowerAssignExpr lowers plain and compound assignment: the L-value
// is computed once; for a compound operator the current value is
// fetched first; the new value is computed; the store leaves the
// stored value as the expression's own result (so `a = b = 1;` and
// `PrintInteger(a += 2);` both work).
func (lw *lowerer) lowerAssignExpr(e *ast.AssignExpr) (ast.Type, error) {
	switch t := e.Target.(type) {
	case *ast.Ident:
		b, ok := lw.scope.lookup(t.Name)
		if !ok {
			return ast.TypeVoid, &CompileError{Line: t.Pos(), Lexeme: t.Name, Err: ErrUnknownIdentifier}
		}
		return lw.lowerAssignBinding(b, e.Op, e.Value)
	case *ast.FieldExpr:
		sub, _, err := lw.resolveFieldBinding(t.X, t.Field)
		if err != nil {
			return ast.TypeVoid, err
		}
		return lw.lowerAssignBinding(sub, e.Op, e.Value)
	default:
		return ast.TypeVoid, &CompileError{Line: e.Pos(), Err: ErrUnknownIdentifier}
	}
}

func (lw *lowerer) lowerAssignBinding(b *binding, op string, value ast.Expr) (ast.Type, error) {
	if op == "" {
		if err := lw.lowerExprInto(value, b.typ); err != nil {
			return ast.TypeVoid, err
		}
		lw.writeBinding(b)
		return b.typ, nil
	}

	lw.readBinding(b)
	rhsType, err := lw.lowerExpr(value)
	if err != nil {
		return ast.TypeVoid, err
	}
	v, err := resolveBinary(op, b.typ, rhsType, value.Pos())
	if err != nil {
		return ast.TypeVoid, err
	}
	if v.result != b.typ {
		return ast.TypeVoid, &CompileError{Line: value.Pos(), Err: fmt.Errorf("cannot store %s result back into %s", v.result, b.typ)}
	}
	lw.e.emit(ncs.NewBinary(v.op, v.qual))
	lw.e.depth -= typeWidth(b.typ) + typeWidth(rhsType) - typeWidth(v.result)
	lw.writeBinding(b)
	return v.result, nil
}

func (lw *lowerer) lowerCallExpr(e *ast.CallExpr) (ast.Type, error) {
	return lw.emitCall(e.Callee, e.Args, e.Pos())
}

// emitCall resolves name against the user-function and engine-routine
// symbol tables built by buildSymbolTable and emits the matching call
// form, materializing any trailing default arguments the caller
// omitted.
func (lw *lowerer) emitCall(name string, args []ast.Expr, line int) (ast.Type, error) {
	if uf, ok := lw.userFns[name]; ok {
		return lw.emitUserCall(uf, args, line)
	}
	if r, ok := lw.routines[name]; ok {
		return lw.emitRoutineCall(r, args, line)
	}
	return ast.TypeVoid, &CompileError{Line: line, Lexeme: name, Err: ErrUnknownFunction}
}

// emitUserCall implements the calling convention: the caller
// reserves the return-value slot (if any) before pushing arguments
// left to right, JSRs to the
// callee, and the callee (see lowerFunction/lowerReturnStmt) writes
// its result into that slot and unwinds its own parameters and locals
// before RETN — so the caller never separately pops argument cells;
// only the reserved return slot remains on the stack afterward.
func (lw *lowerer) emitUserCall(uf *userFunc, args []ast.Expr, line int) (ast.Type, error) {
	retType := uf.decl.ReturnType
	if retType != ast.TypeVoid {
		lw.emitZero(retType)
	}

	params := uf.decl.Params
	argWidth := 0
	for i, p := range params {
		arg, err := effectiveArg(p, args, i, uf.decl.Name, line)
		if err != nil {
			return ast.TypeVoid, err
		}
		if err := lw.lowerExprInto(arg, p.Type); err != nil {
			return ast.TypeVoid, err
		}
		argWidth += typeWidth(p.Type)
	}

	lw.e.emit(&ncs.Instruction{Op: ncs.OpJSR, Jump: uf.entry})
	lw.e.depth -= argWidth // the callee's own unwind already popped these cells
	return retType, nil
}

// emitRoutineCall emits an engine-routine invocation: every declared
// parameter is pushed (defaults materialized as needed), then a
// single ACTION names the routine id and the argument count; ACTION
// itself pops its arguments and, for a non-void routine, pushes the
// result.
func (lw *lowerer) emitRoutineCall(r *routine, args []ast.Expr, line int) (ast.Type, error) {
	argWidth := 0
	for i, p := range r.params {
		arg, err := effectiveArg(p, args, i, "", line)
		if err != nil {
			return ast.TypeVoid, err
		}
		if err := lw.lowerExprInto(arg, p.Type); err != nil {
			return ast.TypeVoid, err
		}
		argWidth += typeWidth(p.Type)
	}

	lw.e.emit(ncs.NewAction(r.id, uint8(len(r.params))))
	lw.e.depth -= argWidth
	if r.returnType != ast.TypeVoid {
		lw.e.push(typeWidth(r.returnType))
	}
	return r.returnType, nil
}

// effectiveArg returns the expression to lower for parameter i: the
// caller-supplied argument when present, else the parameter's default,
// else ErrMissingRequiredArg.
func effectiveArg(p ast.Param, args []ast.Expr, i int, callee string, line int) (ast.Expr, error) {
	if i < len(args) {
		return args[i], nil
	}
	if p.Default != nil {
		return p.Default, nil
	}
	return nil, &CompileError{Line: line, Lexeme: callee, Err: ErrMissingRequiredArg}
}
