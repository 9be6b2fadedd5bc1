package compiler

import (
	"fmt"

	"github.com/aurora-toolkit/core/ncs"
	"github.com/aurora-toolkit/core/nss/ast"
	"github.com/aurora-toolkit/core/nss/token"
)

// lowerExprInto lowers x and checks it against want. NSS performs no
// implicit int/float conversion at the bytecode level, so a float
// declaration initialized from an int literal is rejected; the source
// must write the float literal form (e.g. 1.0).
func (lw *lowerer) lowerExprInto(x ast.Expr, want ast.Type) error {
	got, err := lw.lowerExpr(x)
	if err != nil {
		return err
	}
	if want != ast.TypeVoid && got != want {
		return &CompileError{Line: x.Pos(), Err: fmt.Errorf("cannot assign %s to %s", got, want)}
	}
	return nil
}

// lowerExpr lowers x, leaving its value on the stack, and returns its
// static type.
func (lw *lowerer) lowerExpr(x ast.Expr) (ast.Type, error) {
	switch e := x.(type) {
	case *ast.IntLit:
		lw.e.emit(ncs.NewConstInt(e.Value))
		lw.e.push(1)
		return ast.TypeInt, nil
	case *ast.FloatLit:
		lw.e.emit(ncs.NewConstFloat(e.Value))
		lw.e.push(1)
		return ast.TypeFloat, nil
	case *ast.StringLit:
		lw.e.emit(ncs.NewConstString(e.Value))
		lw.e.push(1)
		return ast.TypeString, nil
	case *ast.VectorLit:
		return lw.lowerVectorLit(e)
	case *ast.Ident:
		return lw.lowerIdent(e)
	case *ast.ParenExpr:
		return lw.lowerExpr(e.X)
	case *ast.UnaryExpr:
		return lw.lowerUnaryExpr(e)
	case *ast.PostfixExpr:
		return lw.lowerPostfixExpr(e)
	case *ast.BinaryExpr:
		return lw.lowerBinaryExpr(e)
	case *ast.AssignExpr:
		return lw.lowerAssignExpr(e)
	case *ast.CallExpr:
		return lw.lowerCallExpr(e)
	case *ast.FieldExpr:
		return lw.lowerFieldExpr(e)
	default:
		return ast.TypeVoid, fmt.Errorf("compiler: line %d: unsupported expression %T", x.Pos(), x)
	}
}

func (lw *lowerer) lowerVectorLit(e *ast.VectorLit) (ast.Type, error) {
	for _, comp := range []ast.Expr{e.X, e.Y, e.Z} {
		if err := lw.lowerExprInto(comp, ast.TypeFloat); err != nil {
			return ast.TypeVoid, err
		}
	}
	return ast.TypeVector, nil
}

func (lw *lowerer) lowerIdent(e *ast.Ident) (ast.Type, error) {
	if v, ok := engineConstant(e.Name); ok {
		lw.e.emit(ncs.NewConstInt(v))
		lw.e.push(1)
		return ast.TypeInt, nil
	}
	b, ok := lw.scope.lookup(e.Name)
	if !ok {
		return ast.TypeVoid, &CompileError{Line: e.Pos(), Lexeme: e.Name, Err: ErrUnknownIdentifier}
	}
	lw.readBinding(b)
	return b.typ, nil
}

// readBinding copies a binding's value to the top of the stack via
// CPTOPSP/CPTOPBP, computing the relative offset from the current
// local or global stack depth.
func (lw *lowerer) readBinding(b *binding) {
	size := uint16(b.width * cellSize)
	if b.global {
		offset := (b.depth - lw.globalWidth) * cellSize
		lw.e.emit(ncs.NewCopy(ncs.OpCPTOPBP, int32(offset), size))
	} else {
		offset := (b.depth - lw.e.depth) * cellSize
		lw.e.emit(ncs.NewCopy(ncs.OpCPTOPSP, int32(offset), size))
	}
	lw.e.push(b.width)
}

// writeBinding copies the top-of-stack value down into a binding's
// slot via CPDOWNSP/CPDOWNBP, leaving the value on the stack (the
// copy-down family never pops), so the stored value remains the
// assignment expression's own result.
func (lw *lowerer) writeBinding(b *binding) {
	size := uint16(b.width * cellSize)
	if b.global {
		offset := (b.depth - lw.globalWidth) * cellSize
		lw.e.emit(ncs.NewCopy(ncs.OpCPDOWNBP, int32(offset), size))
	} else {
		offset := (b.depth - lw.e.depth) * cellSize
		lw.e.emit(ncs.NewCopy(ncs.OpCPDOWNSP, int32(offset), size))
	}
}

func engineConstant(name string) (int32, bool) {
	v, ok := token.EngineConstants[name]
	return v, ok
}

func (lw *lowerer) lowerUnaryExpr(e *ast.UnaryExpr) (ast.Type, error) {
	switch e.Op {
	case "++", "--":
		return lw.lowerIncDec(e.X, e.Op, true)
	}
	typ, err := lw.lowerExpr(e.X)
	if err != nil {
		return ast.TypeVoid, err
	}
	v, err := resolveUnary(e.Op, typ, e.Pos())
	if err != nil {
		return ast.TypeVoid, err
	}
	lw.e.emit(ncs.NewUnary(v.op, v.qual))
	return typ, nil
}

func (lw *lowerer) lowerPostfixExpr(e *ast.PostfixExpr) (ast.Type, error) {
	return lw.lowerIncDec(e.X, e.Op, false)
}

// lowerIncDec lowers pre/post increment/decrement: pre-forms leave
// the new value on the stack, post-forms leave the old value.
func (lw *lowerer) lowerIncDec(target ast.Expr, op string, pre bool) (ast.Type, error) {
	id, ok := target.(*ast.Ident)
	if !ok {
		return ast.TypeVoid, fmt.Errorf("compiler: line %d: %s requires a variable operand", target.Pos(), op)
	}
	b, ok := lw.scope.lookup(id.Name)
	if !ok {
		return ast.TypeVoid, &CompileError{Line: id.Pos(), Lexeme: id.Name, Err: ErrUnknownIdentifier}
	}

	incOp := ncs.OpINCISP
	if op == "--" {
		incOp = ncs.OpDECISP
	}
	if !pre {
		lw.readBinding(b) // stash old value to return after mutating
	}

	var offset int32
	if b.global {
		offset = int32((b.depth - lw.globalWidth) * cellSize)
		incOp = map[ncs.Opcode]ncs.Opcode{ncs.OpINCISP: ncs.OpINCIBP, ncs.OpDECISP: ncs.OpDECIBP}[incOp]
	} else {
		offset = int32((b.depth - lw.e.depth) * cellSize)
	}
	lw.e.emit(ncs.NewIncDec(incOp, offset))

	if pre {
		lw.readBinding(b)
	}
	return b.typ, nil
}

// binOverload is one legal operand-type combination of a binary
// operator: the opcode/qualifier it lowers to and the type it leaves
// on the stack.
type binOverload struct {
	left, right ast.Type
	op          ncs.Opcode
	qual        ncs.Qualifier
	result      ast.Type
}

// unOverload is one legal operand type of a prefix operator.
type unOverload struct {
	operand ast.Type
	op      ncs.Opcode
	qual    ncs.Qualifier
}

// binaryOverloads is the engine's operator matrix: for each operator,
// every (left, right) pair the stack machine accepts, in resolution
// order. Lowering picks the first variant whose operand types match
// and rejects the expression when none does.
var binaryOverloads = map[string][]binOverload{
	"+": {
		{ast.TypeInt, ast.TypeInt, ncs.OpADD, ncs.QualIntInt, ast.TypeInt},
		{ast.TypeInt, ast.TypeFloat, ncs.OpADD, ncs.QualIntFloat, ast.TypeFloat},
		{ast.TypeFloat, ast.TypeInt, ncs.OpADD, ncs.QualFloatInt, ast.TypeFloat},
		{ast.TypeFloat, ast.TypeFloat, ncs.OpADD, ncs.QualFloatFloat, ast.TypeFloat},
		{ast.TypeString, ast.TypeString, ncs.OpADD, ncs.QualStringString, ast.TypeString},
		{ast.TypeVector, ast.TypeVector, ncs.OpADD, ncs.QualVectorVector, ast.TypeVector},
	},
	"-": {
		{ast.TypeInt, ast.TypeInt, ncs.OpSUB, ncs.QualIntInt, ast.TypeInt},
		{ast.TypeInt, ast.TypeFloat, ncs.OpSUB, ncs.QualIntFloat, ast.TypeFloat},
		{ast.TypeFloat, ast.TypeInt, ncs.OpSUB, ncs.QualFloatInt, ast.TypeFloat},
		{ast.TypeFloat, ast.TypeFloat, ncs.OpSUB, ncs.QualFloatFloat, ast.TypeFloat},
		{ast.TypeVector, ast.TypeVector, ncs.OpSUB, ncs.QualVectorVector, ast.TypeVector},
	},
	"*": {
		{ast.TypeInt, ast.TypeInt, ncs.OpMUL, ncs.QualIntInt, ast.TypeInt},
		{ast.TypeInt, ast.TypeFloat, ncs.OpMUL, ncs.QualIntFloat, ast.TypeFloat},
		{ast.TypeFloat, ast.TypeInt, ncs.OpMUL, ncs.QualFloatInt, ast.TypeFloat},
		{ast.TypeFloat, ast.TypeFloat, ncs.OpMUL, ncs.QualFloatFloat, ast.TypeFloat},
		{ast.TypeVector, ast.TypeFloat, ncs.OpMUL, ncs.QualVectorFloat, ast.TypeVector},
		{ast.TypeFloat, ast.TypeVector, ncs.OpMUL, ncs.QualFloatVector, ast.TypeVector},
	},
	"/": {
		{ast.TypeInt, ast.TypeInt, ncs.OpDIV, ncs.QualIntInt, ast.TypeInt},
		{ast.TypeInt, ast.TypeFloat, ncs.OpDIV, ncs.QualIntFloat, ast.TypeFloat},
		{ast.TypeFloat, ast.TypeInt, ncs.OpDIV, ncs.QualFloatInt, ast.TypeFloat},
		{ast.TypeFloat, ast.TypeFloat, ncs.OpDIV, ncs.QualFloatFloat, ast.TypeFloat},
		{ast.TypeVector, ast.TypeFloat, ncs.OpDIV, ncs.QualVectorFloat, ast.TypeVector},
	},
	"%": {
		{ast.TypeInt, ast.TypeInt, ncs.OpMOD, ncs.QualIntInt, ast.TypeInt},
	},
	"==": {
		{ast.TypeInt, ast.TypeInt, ncs.OpEQUAL, ncs.QualIntInt, ast.TypeInt},
		{ast.TypeFloat, ast.TypeFloat, ncs.OpEQUAL, ncs.QualFloatFloat, ast.TypeInt},
		{ast.TypeObject, ast.TypeObject, ncs.OpEQUAL, ncs.QualObjectObject, ast.TypeInt},
		{ast.TypeString, ast.TypeString, ncs.OpEQUAL, ncs.QualStringString, ast.TypeInt},
	},
	"!=": {
		{ast.TypeInt, ast.TypeInt, ncs.OpNEQUAL, ncs.QualIntInt, ast.TypeInt},
		{ast.TypeFloat, ast.TypeFloat, ncs.OpNEQUAL, ncs.QualFloatFloat, ast.TypeInt},
		{ast.TypeObject, ast.TypeObject, ncs.OpNEQUAL, ncs.QualObjectObject, ast.TypeInt},
		{ast.TypeString, ast.TypeString, ncs.OpNEQUAL, ncs.QualStringString, ast.TypeInt},
	},
	">=": {
		{ast.TypeInt, ast.TypeInt, ncs.OpGEQ, ncs.QualIntInt, ast.TypeInt},
		{ast.TypeFloat, ast.TypeFloat, ncs.OpGEQ, ncs.QualFloatFloat, ast.TypeInt},
	},
	">": {
		{ast.TypeInt, ast.TypeInt, ncs.OpGT, ncs.QualIntInt, ast.TypeInt},
		{ast.TypeFloat, ast.TypeFloat, ncs.OpGT, ncs.QualFloatFloat, ast.TypeInt},
	},
	"<": {
		{ast.TypeInt, ast.TypeInt, ncs.OpLT, ncs.QualIntInt, ast.TypeInt},
		{ast.TypeFloat, ast.TypeFloat, ncs.OpLT, ncs.QualFloatFloat, ast.TypeInt},
	},
	"<=": {
		{ast.TypeInt, ast.TypeInt, ncs.OpLEQ, ncs.QualIntInt, ast.TypeInt},
		{ast.TypeFloat, ast.TypeFloat, ncs.OpLEQ, ncs.QualFloatFloat, ast.TypeInt},
	},
	"<<": {
		{ast.TypeInt, ast.TypeInt, ncs.OpSHLEFT, ncs.QualIntInt, ast.TypeInt},
	},
	">>": {
		{ast.TypeInt, ast.TypeInt, ncs.OpSHRIGHT, ncs.QualIntInt, ast.TypeInt},
	},
	"&": {
		{ast.TypeInt, ast.TypeInt, ncs.OpBOOLAND, ncs.QualIntInt, ast.TypeInt},
	},
	"|": {
		{ast.TypeInt, ast.TypeInt, ncs.OpINCOR, ncs.QualIntInt, ast.TypeInt},
	},
	"^": {
		{ast.TypeInt, ast.TypeInt, ncs.OpEXCOR, ncs.QualIntInt, ast.TypeInt},
	},
}

var unaryOverloads = map[string][]unOverload{
	"-": {
		{ast.TypeInt, ncs.OpNEG, ncs.QualInt},
		{ast.TypeFloat, ncs.OpNEG, ncs.QualFloat},
	},
	"!": {
		{ast.TypeInt, ncs.OpNOT, ncs.QualInt},
	},
	"~": {
		{ast.TypeInt, ncs.OpCOMP, ncs.QualInt},
	},
}

func resolveBinary(op string, left, right ast.Type, line int) (binOverload, error) {
	for _, v := range binaryOverloads[op] {
		if v.left == left && v.right == right {
			return v, nil
		}
	}
	return binOverload{}, &CompileError{
		Line: line,
		Err:  fmt.Errorf("no overload of %q accepts (%s, %s)", op, left, right),
	}
}

func resolveUnary(op string, operand ast.Type, line int) (unOverload, error) {
	for _, v := range unaryOverloads[op] {
		if v.operand == operand {
			return v, nil
		}
	}
	return unOverload{}, &CompileError{
		Line: line,
		Err:  fmt.Errorf("no overload of unary %q accepts %s", op, operand),
	}
}

// lowerBinaryExpr lowers && and || with short-circuit jumps (evaluate
// the left operand, conditionally skip the right, leave one boolean
// on the stack) and every other operator through the overload table.
func (lw *lowerer) lowerBinaryExpr(e *ast.BinaryExpr) (ast.Type, error) {
	if e.Op == "&&" || e.Op == "||" {
		return lw.lowerShortCircuit(e)
	}

	left, err := lw.lowerExpr(e.X)
	if err != nil {
		return ast.TypeVoid, err
	}
	right, err := lw.lowerExpr(e.Y)
	if err != nil {
		return ast.TypeVoid, err
	}
	v, err := resolveBinary(e.Op, left, right, e.Pos())
	if err != nil {
		return ast.TypeVoid, err
	}
	lw.e.emit(ncs.NewBinary(v.op, v.qual))
	// The opcode consumes both operands and pushes one result value;
	// only the net cell difference needs reflecting in depth (matters
	// for vector*float and float*vector, whose operand widths differ
	// from their vector-width result).
	lw.e.depth -= typeWidth(left) + typeWidth(right) - typeWidth(v.result)
	return v.result, nil
}

// lowerShortCircuit emits: <left>; JZ/JNZ skip; <right>; LOGAND/LOGOR
// is not needed because the skip already leaves the correct boolean —
// for `&&`, a false left jumps straight past the right operand with a
// literal 0 already on the stack; for `||`, a true left jumps past
// with a literal 1 already on the stack.
func (lw *lowerer) lowerShortCircuit(e *ast.BinaryExpr) (ast.Type, error) {
	startDepth := lw.e.depth
	if _, err := lw.lowerExpr(e.X); err != nil {
		return ast.TypeVoid, err
	}
	lw.e.depth = startDepth // the condition test below consumes it

	skipOp := ncs.OpJNZ
	if e.Op == "&&" {
		skipOp = ncs.OpJZ
	}
	testJump := lw.e.emit(&ncs.Instruction{Op: skipOp})

	if _, err := lw.lowerExpr(e.Y); err != nil {
		return ast.TypeVoid, err
	}
	jmpEnd := lw.e.emit(&ncs.Instruction{Op: ncs.OpJMP})

	shortValue := int32(0)
	if e.Op == "||" {
		shortValue = 1
	}
	lw.e.depth = startDepth
	short := lw.e.emit(ncs.NewConstInt(shortValue))
	lw.e.push(1)
	testJump.Jump = short

	end := lw.e.emit(&ncs.Instruction{Op: ncs.OpNOP})
	jmpEnd.Jump = end
	return ast.TypeInt, nil
}

func (lw *lowerer) lowerFieldExpr(e *ast.FieldExpr) (ast.Type, error) {
	sub, typ, err := lw.resolveFieldBinding(e.X, e.Field)
	if err != nil {
		return ast.TypeVoid, err
	}
	lw.readBinding(sub)
	return typ, nil
}

// resolveFieldBinding locates the sub-binding backing X.Field: a
// vector's x/y/z component, or a named field of a declared struct
// (offsets computed from StructDef.Fields, precomputed at parse
// time). X must be a plain identifier: a chained access such as a.b.c,
// where X is itself a FieldExpr, is rejected with an "unsupported
// field access target" error.
func (lw *lowerer) resolveFieldBinding(x ast.Expr, field string) (*binding, ast.Type, error) {
	id, ok := x.(*ast.Ident)
	if !ok {
		return nil, ast.TypeVoid, fmt.Errorf("compiler: line %d: unsupported field access target", x.Pos())
	}
	b, ok := lw.scope.lookup(id.Name)
	if !ok {
		return nil, ast.TypeVoid, &CompileError{Line: id.Pos(), Lexeme: id.Name, Err: ErrUnknownIdentifier}
	}

	if b.typ == ast.TypeVector {
		comp, ok := map[string]int{"x": 0, "y": 1, "z": 2}[field]
		if !ok {
			return nil, ast.TypeVoid, fmt.Errorf("compiler: line %d: vector has no field %q", x.Pos(), field)
		}
		sub := *b
		sub.depth += comp
		sub.width = 1
		return &sub, ast.TypeFloat, nil
	}

	if b.typ == ast.TypeStruct {
		sd, ok := lw.structs[b.structName]
		if !ok {
			return nil, ast.TypeVoid, fmt.Errorf("compiler: line %d: unknown struct %q", x.Pos(), b.structName)
		}
		offset := 0
		for _, f := range sd.Fields {
			if f.Name == field {
				sub := *b
				sub.depth += offset
				sub.width = f.SlotWidth
				sub.typ = f.Type
				sub.structName = f.StructName
				return &sub, f.Type, nil
			}
			offset += f.SlotWidth
		}
		return nil, ast.TypeVoid, fmt.Errorf("compiler: line %d: struct %q has no field %q", x.Pos(), b.structName, field)
	}

	return nil, ast.TypeVoid, fmt.Errorf("compiler: line %d: %s is not a struct or vector", x.Pos(), id.Name)
}
