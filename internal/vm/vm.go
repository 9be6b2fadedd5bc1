// Package vm implements a minimal interpreter for the subset of NCS
// opcodes the compiler package emits. It exists solely as a test
// oracle: compiler tests run a compiled Program through it and assert
// the resulting action trace. It is a flat operand stack, a program
// counter, and an opcode-dispatch switch, not a general-purpose NCS
// VM; it makes no attempt to support every opcode or qualifier
// combination the real engine does.
package vm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/aurora-toolkit/core/ncs"
)

// Cell is one stack slot's value. Only one field is meaningful at a
// time; which one depends on the instruction that produced it.
type Cell struct {
	Int   int32
	Float float32
	Str   string
}

// ActionCall records one ACTION invocation: the routine id and the
// argument cells popped for it, in declaration order (index 0 is the
// routine's first parameter).
type ActionCall struct {
	RoutineID uint16
	Args      []Cell
}

// ActionTrace is the ordered log of every ACTION the interpreter
// executed, used in place of real engine routines.
type ActionTrace []ActionCall

// RoutineSpec tells the interpreter how many cells an engine routine's
// arguments occupy and whether it produces a return value. ACTION's
// own wire encoding carries only a parameter *count*; the per-type
// cell widths live in the engine's routine table, which this package
// doesn't have, so tests supply it directly.
type RoutineSpec struct {
	ArgWidth int
	Returns  bool
}

var (
	ErrStackUnderflow = errors.New("vm: stack underflow")
	ErrUnknownRoutine = errors.New("vm: unknown engine routine")
	ErrUnknownOpcode  = errors.New("vm: unsupported opcode")
)

// Machine interprets one compiled Program against a caller-supplied
// routine table.
type Machine struct {
	prog     *ncs.Program
	index    map[*ncs.Instruction]int
	routines map[uint16]RoutineSpec

	stack []Cell
	bp    int
	calls []int

	Trace ActionTrace
}

// New builds a Machine ready to Run prog, resolving ACTION routine ids
// against routines.
func New(prog *ncs.Program, routines map[uint16]RoutineSpec) *Machine {
	idx := make(map[*ncs.Instruction]int, len(prog.Instructions))
	for i, ins := range prog.Instructions {
		idx[ins] = i
	}
	return &Machine{prog: prog, index: idx, routines: routines}
}

func (m *Machine) push(c Cell) { m.stack = append(m.stack, c) }

func (m *Machine) pop() (Cell, error) {
	if len(m.stack) == 0 {
		return Cell{}, ErrStackUnderflow
	}
	c := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return c, nil
}

func beUint32(b []byte) uint32   { return binary.BigEndian.Uint32(b) }
func beUint16(b []byte) uint16   { return binary.BigEndian.Uint16(b) }
func beInt32(b []byte) int32     { return int32(beUint32(b)) }
func offsetCells(off int32) int  { return int(off) / 4 }
func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// Run interprets the program from its first instruction until the
// top-level RETN (the one with no matching JSR on the call stack).
func (m *Machine) Run() error {
	pc := 0
	for pc < len(m.prog.Instructions) {
		ins := m.prog.Instructions[pc]
		next := pc + 1

		switch ins.Op {
		case ncs.OpNOP:

		case ncs.OpCONST:
			if err := m.execConst(ins); err != nil {
				return err
			}

		case ncs.OpACTION:
			if err := m.execAction(ins); err != nil {
				return err
			}

		case ncs.OpCPTOPSP, ncs.OpCPTOPBP:
			if err := m.execCopyUp(ins); err != nil {
				return err
			}

		case ncs.OpCPDOWNSP, ncs.OpCPDOWNBP:
			if err := m.execCopyDown(ins); err != nil {
				return err
			}

		case ncs.OpMOVSP:
			if err := m.execMovSP(ins); err != nil {
				return err
			}

		case ncs.OpINCISP, ncs.OpINCIBP, ncs.OpDECISP, ncs.OpDECIBP:
			if err := m.execIncDec(ins); err != nil {
				return err
			}

		case ncs.OpADD, ncs.OpSUB, ncs.OpMUL, ncs.OpDIV, ncs.OpMOD,
			ncs.OpEQUAL, ncs.OpNEQUAL, ncs.OpGEQ, ncs.OpGT, ncs.OpLT, ncs.OpLEQ,
			ncs.OpSHLEFT, ncs.OpSHRIGHT, ncs.OpUSHRIGHT,
			ncs.OpBOOLAND, ncs.OpINCOR, ncs.OpEXCOR:
			if err := m.execBinary(ins); err != nil {
				return err
			}

		case ncs.OpNEG, ncs.OpNOT, ncs.OpCOMP:
			if err := m.execUnary(ins); err != nil {
				return err
			}

		case ncs.OpJMP:
			next = m.index[ins.Jump]

		case ncs.OpJZ, ncs.OpJNZ:
			c, err := m.pop()
			if err != nil {
				return err
			}
			zero := c.Int == 0
			if (ins.Op == ncs.OpJZ && zero) || (ins.Op == ncs.OpJNZ && !zero) {
				next = m.index[ins.Jump]
			}

		case ncs.OpJSR:
			m.calls = append(m.calls, next)
			next = m.index[ins.Jump]

		case ncs.OpRETN:
			if len(m.calls) == 0 {
				return nil
			}
			next = m.calls[len(m.calls)-1]
			m.calls = m.calls[:len(m.calls)-1]

		case ncs.OpSAVEBP:
			m.push(Cell{Int: int32(m.bp)})
			m.bp = len(m.stack)

		case ncs.OpRESTOREBP:
			c, err := m.pop()
			if err != nil {
				return err
			}
			m.bp = int(c.Int)

		default:
			return fmt.Errorf("%w: %s", ErrUnknownOpcode, ins.Op)
		}

		pc = next
	}
	return nil
}

func (m *Machine) execConst(ins *ncs.Instruction) error {
	switch ins.Qual {
	case ncs.QualInt, ncs.QualObject:
		m.push(Cell{Int: beInt32(ins.Args)})
	case ncs.QualFloat:
		m.push(Cell{Float: math.Float32frombits(beUint32(ins.Args))})
	case ncs.QualString:
		n := beUint16(ins.Args)
		m.push(Cell{Str: string(ins.Args[2 : 2+n])})
	}
	return nil
}

func (m *Machine) execAction(ins *ncs.Instruction) error {
	spec, ok := m.routines[ins.RoutineID]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrUnknownRoutine, ins.RoutineID)
	}
	args := make([]Cell, spec.ArgWidth)
	for i := spec.ArgWidth - 1; i >= 0; i-- {
		c, err := m.pop()
		if err != nil {
			return err
		}
		args[i] = c
	}
	m.Trace = append(m.Trace, ActionCall{RoutineID: ins.RoutineID, Args: args})
	if spec.Returns {
		m.push(Cell{})
	}
	return nil
}

// execCopyUp implements CPTOPSP/CPTOPBP: copy cellCount cells starting
// at base+offset onto the top of the stack, leaving the source intact.
func (m *Machine) execCopyUp(ins *ncs.Instruction) error {
	base := len(m.stack)
	if ins.Op == ncs.OpCPTOPBP {
		base = m.bp
	}
	start := base + offsetCells(beInt32(ins.Args))
	cellCount := int(beUint16(ins.Args[4:6])) / 4
	for i := 0; i < cellCount; i++ {
		if start+i < 0 || start+i >= len(m.stack) {
			return ErrStackUnderflow
		}
		m.push(m.stack[start+i])
	}
	return nil
}

// execCopyDown implements CPDOWNSP/CPDOWNBP: copy the top cellCount
// cells down into base+offset, leaving them on top too (the value
// remains the expression's result).
func (m *Machine) execCopyDown(ins *ncs.Instruction) error {
	base := len(m.stack)
	if ins.Op == ncs.OpCPDOWNBP {
		base = m.bp
	}
	start := base + offsetCells(beInt32(ins.Args))
	cellCount := int(beUint16(ins.Args[4:6])) / 4
	top := len(m.stack) - cellCount
	for i := 0; i < cellCount; i++ {
		if start+i < 0 || start+i >= len(m.stack) || top+i < 0 {
			return ErrStackUnderflow
		}
		m.stack[start+i] = m.stack[top+i]
	}
	return nil
}

func (m *Machine) execMovSP(ins *ncs.Instruction) error {
	n := offsetCells(beInt32(ins.Args))
	switch {
	case n < 0:
		if -n > len(m.stack) {
			return ErrStackUnderflow
		}
		m.stack = m.stack[:len(m.stack)+n]
	case n > 0:
		for i := 0; i < n; i++ {
			m.push(Cell{})
		}
	}
	return nil
}

func (m *Machine) execIncDec(ins *ncs.Instruction) error {
	base := len(m.stack)
	if ins.Op == ncs.OpINCIBP || ins.Op == ncs.OpDECIBP {
		base = m.bp
	}
	i := base + offsetCells(beInt32(ins.Args))
	if i < 0 || i >= len(m.stack) {
		return ErrStackUnderflow
	}
	delta := int32(1)
	if ins.Op == ncs.OpDECISP || ins.Op == ncs.OpDECIBP {
		delta = -1
	}
	m.stack[i].Int += delta
	return nil
}

func (m *Machine) execBinary(ins *ncs.Instruction) error {
	b, err := m.pop()
	if err != nil {
		return err
	}
	a, err := m.pop()
	if err != nil {
		return err
	}

	var r Cell
	switch ins.Op {
	case ncs.OpADD:
		r = numericOp(ins.Qual, a, b, func(x, y int32) int32 { return x + y }, func(x, y float32) float32 { return x + y })
		if ins.Qual == ncs.QualStringString {
			r = Cell{Str: a.Str + b.Str}
		}
	case ncs.OpSUB:
		r = numericOp(ins.Qual, a, b, func(x, y int32) int32 { return x - y }, func(x, y float32) float32 { return x - y })
	case ncs.OpMUL:
		r = numericOp(ins.Qual, a, b, func(x, y int32) int32 { return x * y }, func(x, y float32) float32 { return x * y })
	case ncs.OpDIV:
		r = numericOp(ins.Qual, a, b, func(x, y int32) int32 { return x / y }, func(x, y float32) float32 { return x / y })
	case ncs.OpMOD:
		r.Int = a.Int % b.Int
	case ncs.OpEQUAL:
		r.Int = boolInt(a == b)
	case ncs.OpNEQUAL:
		r.Int = boolInt(a != b)
	case ncs.OpGEQ:
		r.Int = boolInt(compareNum(ins.Qual, a, b) >= 0)
	case ncs.OpGT:
		r.Int = boolInt(compareNum(ins.Qual, a, b) > 0)
	case ncs.OpLT:
		r.Int = boolInt(compareNum(ins.Qual, a, b) < 0)
	case ncs.OpLEQ:
		r.Int = boolInt(compareNum(ins.Qual, a, b) <= 0)
	case ncs.OpSHLEFT:
		r.Int = a.Int << uint(b.Int)
	case ncs.OpSHRIGHT:
		r.Int = a.Int >> uint(b.Int)
	case ncs.OpUSHRIGHT:
		r.Int = int32(uint32(a.Int) >> uint(b.Int))
	case ncs.OpBOOLAND:
		r.Int = a.Int & b.Int
	case ncs.OpINCOR:
		r.Int = a.Int | b.Int
	case ncs.OpEXCOR:
		r.Int = a.Int ^ b.Int
	}
	m.push(r)
	return nil
}

func numericOp(qual ncs.Qualifier, a, b Cell, intOp func(int32, int32) int32, floatOp func(float32, float32) float32) Cell {
	switch qual {
	case ncs.QualFloatFloat:
		return Cell{Float: floatOp(a.Float, b.Float)}
	case ncs.QualIntFloat:
		return Cell{Float: floatOp(float32(a.Int), b.Float)}
	case ncs.QualFloatInt:
		return Cell{Float: floatOp(a.Float, float32(b.Int))}
	default:
		return Cell{Int: intOp(a.Int, b.Int)}
	}
}

func compareNum(qual ncs.Qualifier, a, b Cell) float64 {
	switch qual {
	case ncs.QualFloatFloat:
		return float64(a.Float) - float64(b.Float)
	case ncs.QualIntFloat:
		return float64(a.Int) - float64(b.Float)
	case ncs.QualFloatInt:
		return float64(a.Float) - float64(b.Int)
	default:
		return float64(a.Int) - float64(b.Int)
	}
}

func (m *Machine) execUnary(ins *ncs.Instruction) error {
	a, err := m.pop()
	if err != nil {
		return err
	}
	var r Cell
	switch ins.Op {
	case ncs.OpNEG:
		if ins.Qual == ncs.QualFloat {
			r.Float = -a.Float
		} else {
			r.Int = -a.Int
		}
	case ncs.OpNOT:
		r.Int = boolInt(a.Int == 0)
	case ncs.OpCOMP:
		r.Int = ^a.Int
	}
	m.push(r)
	return nil
}
