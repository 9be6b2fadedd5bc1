package convert

import (
	"testing"

	"github.com/aurora-toolkit/core/ncs"
)

func TestRemapRoutines(t *testing.T) {
	p := ncs.NewProgram()
	jmp := p.Append(&ncs.Instruction{Op: ncs.OpJMP})
	a1 := p.Append(ncs.NewAction(5, 0))
	a2 := p.Append(ncs.NewAction(9, 1))
	target := p.Append(&ncs.Instruction{Op: ncs.OpRETN})
	jmp.Jump = target

	out := RemapRoutines(p, RoutineTable{5: 500})

	if out == p {
		t.Fatal("RemapRoutines should return a new program")
	}
	if got := out.Instructions[1].RoutineID; got != 500 {
		t.Errorf("mapped routine id = %d, want 500", got)
	}
	if got := out.Instructions[2].RoutineID; got != 9 {
		t.Errorf("unmapped routine id = %d, want 9 unchanged", got)
	}
	if out.Instructions[0].Jump != out.Instructions[3] {
		t.Error("jump target should point at the cloned instruction, not the original")
	}
	if a1.RoutineID != 5 || a2.RoutineID != 9 {
		t.Error("source program must not be mutated")
	}
}
