package compiler

import (
	"github.com/aurora-toolkit/core/ncs"
)

// loopCtx records the jump targets a break/continue inside the
// current loop must resolve to, plus the stack depth at loop entry so
// the emitted break/continue can compute the MOVSP needed to unwind
// any block scopes entered since.
type loopCtx struct {
	continueTarget *ncs.Instruction
	exitTarget     *ncs.Instruction
	depthAtEntry   int
}

// Emitter accumulates instructions into an ncs.Program while tracking
// the current stack depth (in cells, relative to the enclosing
// frame), the global-frame depth, and the active loop stack for
// break/continue resolution.
type Emitter struct {
	prog *ncs.Program

	depth       int // local cells pushed since the current function's entry
	globalDepth int // cells pushed into the global frame so far

	loops []*loopCtx
}

func newEmitter() *Emitter {
	return &Emitter{prog: ncs.NewProgram()}
}

func (e *Emitter) emit(ins *ncs.Instruction) *ncs.Instruction {
	return e.prog.Append(ins)
}

// push records that n cells now occupy the stack above where they did
// before, without emitting any instruction (the instruction that
// actually pushed the value, e.g. CONST or ACTION's return, already
// did that).
func (e *Emitter) push(n int) { e.depth += n }

// pop lowers the tracked depth by n and immediately emits a single
// MOVSP dropping those n cells (e.g. at scope exit, or after an
// expression statement discards its value).
func (e *Emitter) pop(n int) {
	e.depth -= n
	if n > 0 {
		e.emit(ncs.NewMOVSP(int32(-n * cellSize)))
	}
}

func (e *Emitter) pushLoop(l *loopCtx) { e.loops = append(e.loops, l) }
func (e *Emitter) popLoop()            { e.loops = e.loops[:len(e.loops)-1] }
func (e *Emitter) currentLoop() *loopCtx {
	if len(e.loops) == 0 {
		return nil
	}
	return e.loops[len(e.loops)-1]
}
