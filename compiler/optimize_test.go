package compiler

import (
	"testing"

	"github.com/aurora-toolkit/core/ncs"
)

// TestRemoveNOPRetargetsJumps builds JMP -> NOP -> NOP -> RETN with the
// JMP targeting the first NOP, and checks that
// after RemoveNOP the jump lands on RETN (the next surviving
// instruction) and no NOP instruction remains.
func TestRemoveNOPRetargetsJumps(t *testing.T) {
	nop1 := &ncs.Instruction{Op: ncs.OpNOP}
	nop2 := &ncs.Instruction{Op: ncs.OpNOP}
	retn := &ncs.Instruction{Op: ncs.OpRETN}
	jmp := &ncs.Instruction{Op: ncs.OpJMP, Jump: nop1}

	prog := &ncs.Program{Instructions: []*ncs.Instruction{jmp, nop1, nop2, retn}}
	out := RemoveNOP(prog)

	for _, ins := range out.Instructions {
		if ins.Op == ncs.OpNOP {
			t.Fatalf("RemoveNOP left a NOP in the program: %+v", out.Instructions)
		}
	}
	if jmp.Jump != retn {
		t.Fatalf("jump retargeted to %+v, want RETN", jmp.Jump)
	}
	if len(out.Instructions) != 2 {
		t.Fatalf("expected 2 surviving instructions, got %d", len(out.Instructions))
	}
}

// TestDeadCodeAfterReturnDropsUnreachableTail builds RETN -> CONST ->
// RETN where nothing jumps to the second CONST/RETN pair, and checks
// it is trimmed.
func TestDeadCodeAfterReturnDropsUnreachableTail(t *testing.T) {
	first := &ncs.Instruction{Op: ncs.OpRETN}
	deadConst := ncs.NewConstInt(0)
	deadRetn := &ncs.Instruction{Op: ncs.OpRETN}

	prog := &ncs.Program{Instructions: []*ncs.Instruction{first, deadConst, deadRetn}}
	out := DeadCodeAfterReturn(prog)

	if len(out.Instructions) != 1 {
		t.Fatalf("expected dead tail trimmed to 1 instruction, got %d: %+v", len(out.Instructions), out.Instructions)
	}
}

// TestDeadCodeAfterReturnKeepsJumpedToCode checks that code after a
// RETN survives when something still jumps into it (e.g. a loop's exit
// label sitting right after an early return).
func TestDeadCodeAfterReturnKeepsJumpedToCode(t *testing.T) {
	first := &ncs.Instruction{Op: ncs.OpRETN}
	label := &ncs.Instruction{Op: ncs.OpNOP}
	jmp := &ncs.Instruction{Op: ncs.OpJMP, Jump: label}
	second := &ncs.Instruction{Op: ncs.OpRETN}

	prog := &ncs.Program{Instructions: []*ncs.Instruction{jmp, first, label, second}}
	out := DeadCodeAfterReturn(prog)

	if len(out.Instructions) != 4 {
		t.Fatalf("expected the labeled instruction and its RETN to survive, got %d: %+v", len(out.Instructions), out.Instructions)
	}
}
