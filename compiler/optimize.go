package compiler

import "github.com/aurora-toolkit/core/ncs"

// RemoveNOP drops every NOP instruction from prog, retargeting any
// jump that pointed at a removed NOP to the next surviving
// instruction after it (the label it stood in for), so every jump
// still reaches the same logical successor.
func RemoveNOP(prog *ncs.Program) *ncs.Program {
	redirect := make(map[*ncs.Instruction]*ncs.Instruction, len(prog.Instructions))
	kept := make([]*ncs.Instruction, 0, len(prog.Instructions))

	// Walk backward so a run of consecutive NOPs all redirect to the
	// first surviving instruction after the run.
	var next *ncs.Instruction
	for i := len(prog.Instructions) - 1; i >= 0; i-- {
		ins := prog.Instructions[i]
		if ins.Op == ncs.OpNOP {
			redirect[ins] = next
			continue
		}
		next = ins
	}

	for _, ins := range prog.Instructions {
		if ins.Op == ncs.OpNOP {
			continue
		}
		if ins.Jump != nil {
			if tgt, ok := redirect[ins.Jump]; ok {
				ins.Jump = tgt // tgt may be nil if every instruction after it was also NOP
			}
		}
		kept = append(kept, ins)
	}
	return &ncs.Program{Instructions: kept}
}

// DeadCodeAfterReturn drops every instruction between an unconditional
// RETN and the next jump target reachable from elsewhere in the
// program (a label nothing jumps to is dead; the compiler only ever
// emits one past a return as straight-line fallthrough, e.g. after a
// function's final `return`, so this is a straightforward reachability
// trim rather than a full control-flow analysis).
func DeadCodeAfterReturn(prog *ncs.Program) *ncs.Program {
	targeted := make(map[*ncs.Instruction]bool, len(prog.Instructions))
	for _, ins := range prog.Instructions {
		if ins.Jump != nil {
			targeted[ins.Jump] = true
		}
	}

	kept := make([]*ncs.Instruction, 0, len(prog.Instructions))
	dead := false
	for _, ins := range prog.Instructions {
		if targeted[ins] {
			dead = false
		}
		if dead {
			continue
		}
		kept = append(kept, ins)
		if ins.Op == ncs.OpRETN {
			dead = true
		}
	}
	return &ncs.Program{Instructions: kept}
}
