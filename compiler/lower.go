package compiler

import (
	"fmt"

	"github.com/aurora-toolkit/core/ncs"
	"github.com/aurora-toolkit/core/nss/ast"
)

// typeWidth returns how many stack cells a value of typ occupies: 3
// for a vector (its x/y/z components), 1 for every other scalar,
// matching ast.StructField.SlotWidth's convention.
func typeWidth(typ ast.Type) int {
	switch typ {
	case ast.TypeVoid:
		return 0
	case ast.TypeVector:
		return 3
	default:
		return 1
	}
}

// routine describes one engine-call forward declaration: its numeric
// id (its position among bodiless declarations) and its signature,
// needed to materialize omitted trailing default arguments at the
// call site.
type routine struct {
	id         uint16
	returnType ast.Type
	params     []ast.Param
}

// userFunc is one user-defined, lowered function: its entry
// instruction (a NOP used purely as a stable jump label) and its
// signature.
type userFunc struct {
	entry      *ncs.Instruction
	decl       *ast.FuncDecl
	retSlotW   int
}

// lowerer walks one resolved ast.File (includes already merged) and
// emits its globals, then every user function, into an Emitter.
type lowerer struct {
	e *Emitter

	globalScope *Scope
	globalWidth int

	routines map[string]*routine
	userFns  map[string]*userFunc
	structs  map[string]*ast.StructDef

	scope *Scope
}

func newLowerer(e *Emitter) *lowerer {
	return &lowerer{
		e:        e,
		routines: make(map[string]*routine),
		userFns:  make(map[string]*userFunc),
		structs:  make(map[string]*ast.StructDef),
	}
}

// buildSymbolTable partitions file.Functions into engine routines
// (every occurrence is bodiless; assigned a sequential id in
// first-appearance order, matching how the engine's own declaration
// header numbers them) and user functions (at least one occurrence
// has a body). Every call site must resolve to one or the other.
func (lw *lowerer) buildSymbolTable(file *ast.File) {
	defined := make(map[string]bool)
	for _, fd := range file.Functions {
		if fd.Body != nil {
			defined[fd.Name] = true
		}
	}

	var routineOrder []string
	seenRoutine := make(map[string]bool)
	for _, fd := range file.Functions {
		if defined[fd.Name] {
			continue
		}
		if seenRoutine[fd.Name] {
			continue
		}
		seenRoutine[fd.Name] = true
		routineOrder = append(routineOrder, fd.Name)
		lw.routines[fd.Name] = &routine{id: uint16(len(routineOrder) - 1), returnType: fd.ReturnType, params: fd.Params}
	}

	for _, fd := range file.Functions {
		if !defined[fd.Name] {
			continue
		}
		if fd.Body == nil {
			continue // a prototype for a function defined elsewhere in the unit
		}
		lw.userFns[fd.Name] = &userFunc{entry: &ncs.Instruction{Op: ncs.OpNOP}, decl: fd, retSlotW: typeWidth(fd.ReturnType)}
	}

	for _, sd := range file.Structs {
		lw.structs[sd.Name] = sd
	}
}

// lowerFile emits the complete program: globals, SAVEBP, a call into
// the entry point, then every user function body in source order.
func (lw *lowerer) lowerFile(file *ast.File) error {
	lw.buildSymbolTable(file)

	for _, fd := range file.Functions {
		sawDefault := false
		for _, p := range fd.Params {
			if p.Default != nil {
				sawDefault = true
			} else if sawDefault {
				return &CompileError{Line: fd.Pos(), Lexeme: p.Name, Err: ErrDefaultOrdering}
			}
		}
	}

	lw.globalScope = newScope(nil)
	lw.scope = lw.globalScope
	for _, g := range file.Globals {
		width := typeWidth(g.Type)
		b := &binding{depth: lw.e.depth, typ: g.Type, structName: g.StructName, width: width, global: true}
		lw.globalScope.declare(g.Name, b)
		if g.Init != nil {
			if err := lw.lowerExprInto(g.Init, g.Type); err != nil {
				return err
			}
		} else {
			lw.emitZero(g.Type)
		}
	}
	lw.globalWidth = lw.e.depth
	lw.e.emit(&ncs.Instruction{Op: ncs.OpSAVEBP})
	lw.e.depth = 0

	entryName := "main"
	entry, ok := lw.userFns["main"]
	if !ok {
		entry, ok = lw.userFns["StartingConditional"]
		entryName = "StartingConditional"
	}
	if !ok {
		return ErrNoEntryPoint
	}
	if _, err := lw.emitCall(entryName, nil, 0); err != nil {
		return err
	}
	if entry.retSlotW > 0 {
		lw.e.pop(entry.retSlotW)
	}
	lw.e.emit(&ncs.Instruction{Op: ncs.OpRESTOREBP})
	lw.e.emit(&ncs.Instruction{Op: ncs.OpRETN})

	for _, fd := range file.Functions {
		uf, ok := lw.userFns[fd.Name]
		if !ok || fd.Body == nil {
			continue
		}
		if err := lw.lowerFunction(uf); err != nil {
			return err
		}
	}
	return nil
}

func (lw *lowerer) emitZero(typ ast.Type) {
	switch typ {
	case ast.TypeFloat:
		lw.e.emit(ncs.NewConstFloat(0))
	case ast.TypeString:
		lw.e.emit(ncs.NewConstString(""))
	case ast.TypeObject:
		lw.e.emit(ncs.NewConstObject(0))
	case ast.TypeVector:
		lw.e.emit(ncs.NewConstFloat(0))
		lw.e.emit(ncs.NewConstFloat(0))
		lw.e.emit(ncs.NewConstFloat(0))
	default:
		lw.e.emit(ncs.NewConstInt(0))
	}
	lw.e.push(typeWidth(typ))
}

// lowerFunction lowers one user function's body. Parameters are
// treated as already-pushed local bindings at depth 0.., matching the
// call site's convention of pushing arguments left-to-right
// immediately before JSR; a non-void function's return slot is a
// binding at a negative depth, below the parameters, written by
// lowerReturnStmt via CPDOWNSP.
func (lw *lowerer) lowerFunction(uf *userFunc) error {
	lw.e.emit(uf.entry)
	lw.e.depth = 0

	fnScope := newScope(lw.globalScope)
	lw.scope = fnScope

	paramWidth := 0
	for _, p := range uf.decl.Params {
		paramWidth += typeWidth(p.Type)
	}

	if uf.retSlotW > 0 {
		fnScope.declare("$return", &binding{depth: -uf.retSlotW, typ: uf.decl.ReturnType, width: uf.retSlotW})
	}

	depth := 0
	for _, p := range uf.decl.Params {
		w := typeWidth(p.Type)
		fnScope.declare(p.Name, &binding{depth: depth, typ: p.Type, structName: p.StructName, width: w})
		depth += w
	}
	lw.e.depth = depth

	if err := lw.lowerBlockStmts(uf.decl.Body.Stmts); err != nil {
		return err
	}

	// Fall off the end of a function body without an explicit return:
	// unwind locals and RETN exactly as an implicit `return;` would.
	if lw.e.depth > 0 {
		lw.e.emit(ncs.NewMOVSP(int32(-lw.e.depth * cellSize)))
	}
	lw.e.emit(&ncs.Instruction{Op: ncs.OpRETN})
	return nil
}

func (lw *lowerer) lowerBlockStmts(stmts []ast.Stmt) error {
	for _, s := range stmts {
		if err := lw.lowerStmt(s); err != nil {
			return err
		}
	}
	return nil
}

// lowerBlock enters a new nested Scope, lowers its statements, then
// pops every local declared directly in it with a single MOVSP.
func (lw *lowerer) lowerBlock(b *ast.Block) error {
	parent := lw.scope
	lw.scope = newScope(parent)
	startDepth := lw.e.depth

	err := lw.lowerBlockStmts(b.Stmts)

	popped := lw.e.depth - startDepth
	if popped > 0 {
		lw.e.pop(popped)
	}
	lw.scope = parent
	return err
}

func (lw *lowerer) lowerStmt(s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.Block:
		return lw.lowerBlock(st)
	case *ast.DeclStmt:
		return lw.lowerDeclStmt(st)
	case *ast.ExprStmt:
		return lw.lowerExprStmt(st)
	case *ast.IfStmt:
		return lw.lowerIfStmt(st)
	case *ast.WhileStmt:
		return lw.lowerWhileStmt(st)
	case *ast.DoWhileStmt:
		return lw.lowerDoWhileStmt(st)
	case *ast.ForStmt:
		return lw.lowerForStmt(st)
	case *ast.SwitchStmt:
		return lw.lowerSwitchStmt(st)
	case *ast.ReturnStmt:
		return lw.lowerReturnStmt(st)
	case *ast.BreakStmt:
		return lw.lowerBreakStmt(st)
	case *ast.ContinueStmt:
		return lw.lowerContinueStmt(st)
	default:
		return fmt.Errorf("compiler: line %d: unsupported statement %T", s.Pos(), s)
	}
}

func (lw *lowerer) lowerDeclStmt(s *ast.DeclStmt) error {
	d := s.Decl
	w := typeWidth(d.Type)
	if d.Init != nil {
		if err := lw.lowerExprInto(d.Init, d.Type); err != nil {
			return err
		}
	} else {
		lw.emitZero(d.Type)
	}
	lw.scope.declare(d.Name, &binding{depth: lw.e.depth - w, typ: d.Type, structName: d.StructName, width: w})
	return nil
}

// lowerExprStmt lowers a bare expression statement, discarding
// whatever value it leaves on the stack.
func (lw *lowerer) lowerExprStmt(s *ast.ExprStmt) error {
	startDepth := lw.e.depth
	typ, err := lw.lowerExpr(s.X)
	if err != nil {
		return err
	}
	w := typeWidth(typ)
	if lw.e.depth-startDepth != w {
		w = lw.e.depth - startDepth
	}
	if w > 0 {
		lw.e.pop(w)
	}
	return nil
}

func (lw *lowerer) lowerIfStmt(s *ast.IfStmt) error {
	if err := lw.lowerCondAndJumpIfZero(s.Cond); err != nil {
		return err
	}
	jz := lw.e.prog.Instructions[len(lw.e.prog.Instructions)-1]

	if err := lw.lowerBranch(s.Then); err != nil {
		return err
	}

	if s.Else == nil {
		end := lw.e.emit(&ncs.Instruction{Op: ncs.OpNOP})
		jz.Jump = end
		return nil
	}

	jmpEnd := lw.e.emit(&ncs.Instruction{Op: ncs.OpJMP})
	elseStart := lw.e.emit(&ncs.Instruction{Op: ncs.OpNOP})
	jz.Jump = elseStart

	if err := lw.lowerBranch(s.Else); err != nil {
		return err
	}
	end := lw.e.emit(&ncs.Instruction{Op: ncs.OpNOP})
	jmpEnd.Jump = end
	return nil
}

// lowerBranch lowers one if/else arm. A Block already scopes itself; a
// bare single statement still gets its own frame so a declaration in
// an unbraced arm cannot leak into the surrounding scope.
func (lw *lowerer) lowerBranch(s ast.Stmt) error {
	if b, ok := s.(*ast.Block); ok {
		return lw.lowerBlock(b)
	}
	parent := lw.scope
	lw.scope = newScope(parent)
	startDepth := lw.e.depth

	err := lw.lowerStmt(s)

	if popped := lw.e.depth - startDepth; popped > 0 {
		lw.e.pop(popped)
	}
	lw.scope = parent
	return err
}

// lowerCondAndJumpIfZero lowers cond (leaving a boolean int on the
// stack) and emits a JZ whose Jump is left nil for the caller to
// patch to wherever zero should branch.
func (lw *lowerer) lowerCondAndJumpIfZero(cond ast.Expr) error {
	startDepth := lw.e.depth
	if _, err := lw.lowerExpr(cond); err != nil {
		return err
	}
	lw.e.depth = startDepth // JZ consumes the condition
	lw.e.emit(&ncs.Instruction{Op: ncs.OpJZ})
	return nil
}

func (lw *lowerer) lowerWhileStmt(s *ast.WhileStmt) error {
	top := lw.e.emit(&ncs.Instruction{Op: ncs.OpNOP})
	if err := lw.lowerCondAndJumpIfZero(s.Cond); err != nil {
		return err
	}
	jz := lw.e.prog.Instructions[len(lw.e.prog.Instructions)-1]

	exit := &ncs.Instruction{Op: ncs.OpNOP}
	lc := &loopCtx{continueTarget: top, exitTarget: exit, depthAtEntry: lw.e.depth}
	lw.e.pushLoop(lc)
	if err := lw.lowerBlock(s.Body); err != nil {
		return err
	}
	lw.e.popLoop()
	lw.e.emit(&ncs.Instruction{Op: ncs.OpJMP, Jump: top})

	jz.Jump = exit
	lw.e.emit(exit)
	return nil
}

func (lw *lowerer) lowerDoWhileStmt(s *ast.DoWhileStmt) error {
	top := lw.e.emit(&ncs.Instruction{Op: ncs.OpNOP})
	exit := &ncs.Instruction{Op: ncs.OpNOP}
	lc := &loopCtx{continueTarget: top, exitTarget: exit, depthAtEntry: lw.e.depth}
	lw.e.pushLoop(lc)
	if err := lw.lowerBlock(s.Body); err != nil {
		return err
	}
	lw.e.popLoop()

	startDepth := lw.e.depth
	if _, err := lw.lowerExpr(s.Cond); err != nil {
		return err
	}
	lw.e.depth = startDepth
	lw.e.emit(&ncs.Instruction{Op: ncs.OpJNZ, Jump: top})

	lw.e.emit(exit)
	return nil
}

func (lw *lowerer) lowerForStmt(s *ast.ForStmt) error {
	parent := lw.scope
	lw.scope = newScope(parent)
	startDepth := lw.e.depth
	defer func() { lw.scope = parent }()

	if s.Init != nil {
		if err := lw.lowerStmt(s.Init); err != nil {
			return err
		}
	}

	top := lw.e.emit(&ncs.Instruction{Op: ncs.OpNOP})
	var jz *ncs.Instruction
	if s.Cond != nil {
		if err := lw.lowerCondAndJumpIfZero(s.Cond); err != nil {
			return err
		}
		jz = lw.e.prog.Instructions[len(lw.e.prog.Instructions)-1]
	}

	jmpToBody := lw.e.emit(&ncs.Instruction{Op: ncs.OpJMP})
	postLabel := lw.e.emit(&ncs.Instruction{Op: ncs.OpNOP})
	if s.Post != nil {
		if err := lw.lowerStmt(s.Post); err != nil {
			return err
		}
	}
	lw.e.emit(&ncs.Instruction{Op: ncs.OpJMP, Jump: top})

	bodyStart := lw.e.emit(&ncs.Instruction{Op: ncs.OpNOP})
	jmpToBody.Jump = bodyStart

	exit := &ncs.Instruction{Op: ncs.OpNOP}
	lc := &loopCtx{continueTarget: postLabel, exitTarget: exit, depthAtEntry: lw.e.depth}
	lw.e.pushLoop(lc)
	if err := lw.lowerBlock(s.Body); err != nil {
		return err
	}
	lw.e.popLoop()
	lw.e.emit(&ncs.Instruction{Op: ncs.OpJMP, Jump: postLabel})

	if jz != nil {
		jz.Jump = exit
	}
	lw.e.emit(exit)

	if popped := lw.e.depth - startDepth; popped > 0 {
		lw.e.pop(popped)
	}
	return nil
}

// lowerSwitchStmt emits each case label's condition test as a chain
// of EQUAL+JNZ checks against the tag. Case bodies are emitted back
// to back with no implicit break, so fall-through works; a case's own
// `break;` (handled by lowerBreakStmt, via the loop-context mechanism
// reused here) is the only way out early.
func (lw *lowerer) lowerSwitchStmt(s *ast.SwitchStmt) error {
	startDepth := lw.e.depth
	if _, err := lw.lowerExpr(s.Tag); err != nil {
		return err
	}
	tagDepth := lw.e.depth

	exit := &ncs.Instruction{Op: ncs.OpNOP}
	lc := &loopCtx{exitTarget: exit, depthAtEntry: tagDepth}
	lw.e.pushLoop(lc)

	var defaultClause *ast.CaseClause
	var bodyStarts []*ncs.Instruction
	var testJumps []*ncs.Instruction

	for _, cc := range s.Cases {
		if cc.Value == nil {
			defaultClause = cc
			bodyStarts = append(bodyStarts, nil)
			testJumps = append(testJumps, nil)
			continue
		}
		// Duplicate the tag, compare, and consume both operands.
		lw.e.emit(ncs.NewCopy(ncs.OpCPTOPSP, int32(-(lw.e.depth-startDepth)*cellSize), uint16(cellSize)))
		lw.e.push(1)
		if _, err := lw.lowerExpr(cc.Value); err != nil {
			return err
		}
		lw.e.emit(ncs.NewBinary(ncs.OpEQUAL, ncs.QualIntInt))
		lw.e.depth -= 1
		jnz := lw.e.emit(&ncs.Instruction{Op: ncs.OpJNZ})
		lw.e.depth -= 1 // JNZ consumes the comparison result
		testJumps = append(testJumps, jnz)
		bodyStarts = append(bodyStarts, nil)
	}

	jmpToDefaultOrEnd := lw.e.emit(&ncs.Instruction{Op: ncs.OpJMP})

	for i, cc := range s.Cases {
		label := lw.e.emit(&ncs.Instruction{Op: ncs.OpNOP})
		bodyStarts[i] = label
		if testJumps[i] != nil {
			testJumps[i].Jump = label
		}
		if cc == defaultClause {
			jmpToDefaultOrEnd.Jump = label
		}
		if err := lw.lowerBlockStmts(cc.Stmts); err != nil {
			return err
		}
	}
	if defaultClause == nil {
		jmpToDefaultOrEnd.Jump = exit
	}

	lw.e.emit(exit)
	lw.e.popLoop()

	if lw.e.depth > tagDepth {
		lw.e.pop(lw.e.depth - tagDepth)
	}
	lw.e.pop(1) // discard the switch tag
	return nil
}

func (lw *lowerer) lowerReturnStmt(s *ast.ReturnStmt) error {
	curDepth := lw.e.depth
	if s.Value != nil {
		b, ok := lw.scope.lookup("$return")
		if !ok {
			return fmt.Errorf("compiler: line %d: return with value in a void function", s.Pos())
		}
		if err := lw.lowerExprInto(s.Value, b.typ); err != nil {
			return err
		}
		afterPush := lw.e.depth
		offset := (b.depth - afterPush) * cellSize
		lw.e.emit(ncs.NewCopy(ncs.OpCPDOWNSP, int32(offset), uint16(b.width*cellSize)))
		if afterPush > 0 {
			lw.e.emit(ncs.NewMOVSP(int32(-afterPush * cellSize)))
		}
	} else if curDepth > 0 {
		lw.e.emit(ncs.NewMOVSP(int32(-curDepth * cellSize)))
	}
	lw.e.emit(&ncs.Instruction{Op: ncs.OpRETN})
	return nil
}

func (lw *lowerer) lowerBreakStmt(s *ast.BreakStmt) error {
	lc := lw.e.currentLoop()
	if lc == nil {
		return fmt.Errorf("compiler: line %d: %w", s.Pos(), ErrBreakOutsideLoop)
	}
	if unwind := lw.e.depth - lc.depthAtEntry; unwind > 0 {
		lw.e.emit(ncs.NewMOVSP(int32(-unwind * cellSize)))
	}
	lw.e.emit(&ncs.Instruction{Op: ncs.OpJMP, Jump: lc.exitTarget})
	return nil
}

func (lw *lowerer) lowerContinueStmt(s *ast.ContinueStmt) error {
	// A switch pushes a loop context with no continue target; continue
	// goes to the innermost enclosing real loop.
	var lc *loopCtx
	for i := len(lw.e.loops) - 1; i >= 0; i-- {
		if lw.e.loops[i].continueTarget != nil {
			lc = lw.e.loops[i]
			break
		}
	}
	if lc == nil {
		return fmt.Errorf("compiler: line %d: %w", s.Pos(), ErrContinueOutsideLoop)
	}
	if unwind := lw.e.depth - lc.depthAtEntry; unwind > 0 {
		lw.e.emit(ncs.NewMOVSP(int32(-unwind * cellSize)))
	}
	lw.e.emit(&ncs.Instruction{Op: ncs.OpJMP, Jump: lc.continueTarget})
	return nil
}
