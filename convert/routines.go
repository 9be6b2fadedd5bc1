package convert

import "github.com/aurora-toolkit/core/ncs"

// RoutineTable maps a source generation's engine routine id to its
// target-generation equivalent, the compiled-script half of the
// cross-generation rewrite.
type RoutineTable map[uint16]uint16

// RemapRoutines returns a new Program with every ACTION instruction's
// RoutineID rewritten per table; ids absent from table are left
// unchanged. Jump targets are preserved by rebuilding the pointer
// graph between the cloned instructions rather than copying p in
// place, since ncs.Instruction.Jump is a direct pointer into the same
// Program.
func RemapRoutines(p *ncs.Program, table RoutineTable) *ncs.Program {
	clone := make(map[*ncs.Instruction]*ncs.Instruction, len(p.Instructions))
	out := ncs.NewProgram()

	for _, ins := range p.Instructions {
		n := &ncs.Instruction{
			Op:        ins.Op,
			Qual:      ins.Qual,
			Args:      append([]byte{}, ins.Args...),
			RoutineID: ins.RoutineID,
			ArgCount:  ins.ArgCount,
		}
		if ins.Op == ncs.OpACTION {
			if newID, ok := table[ins.RoutineID]; ok {
				n.RoutineID = newID
			}
		}
		clone[ins] = n
		out.Append(n)
	}
	for _, ins := range p.Instructions {
		if ins.Jump != nil {
			clone[ins].Jump = clone[ins.Jump]
		}
	}
	return out
}
