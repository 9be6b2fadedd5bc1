package ncs

import (
	"encoding/binary"
	"math"
)

// NewConstInt builds a CONST instruction pushing a 32-bit integer
// literal, packed big-endian.
func NewConstInt(v int32) *Instruction {
	args := make([]byte, 4)
	binary.BigEndian.PutUint32(args, uint32(v))
	return &Instruction{Op: OpCONST, Qual: QualInt, Args: args}
}

// NewConstFloat builds a CONST instruction pushing a 32-bit float
// literal, bit-packed the same way NewConstInt packs an integer.
func NewConstFloat(v float32) *Instruction {
	bits := math.Float32bits(v)
	args := make([]byte, 4)
	binary.BigEndian.PutUint32(args, bits)
	return &Instruction{Op: OpCONST, Qual: QualFloat, Args: args}
}

// NewConstString builds a CONST instruction pushing a length-prefixed
// string literal.
func NewConstString(s string) *Instruction {
	args := make([]byte, 2+len(s))
	binary.BigEndian.PutUint16(args, uint16(len(s)))
	copy(args[2:], s)
	return &Instruction{Op: OpCONST, Qual: QualString, Args: args}
}

// NewConstObject builds a CONST instruction pushing an object-id
// literal (OBJECT_SELF/OBJECT_INVALID resolve to 0/-1 per
// nss/token.EngineConstants before reaching here).
func NewConstObject(id int32) *Instruction {
	args := make([]byte, 4)
	binary.BigEndian.PutUint32(args, uint32(id))
	return &Instruction{Op: OpCONST, Qual: QualObject, Args: args}
}

// NewAction builds an ACTION instruction invoking the engine routine
// identified by routineID with argCount arguments already pushed.
func NewAction(routineID uint16, argCount uint8) *Instruction {
	return &Instruction{Op: OpACTION, Qual: QualNone, RoutineID: routineID, ArgCount: argCount}
}

// NewMOVSP builds a stack-pointer adjustment instruction (negative n
// shrinks the stack on scope exit, positive n reserves space).
func NewMOVSP(n int32) *Instruction {
	args := make([]byte, 4)
	binary.BigEndian.PutUint32(args, uint32(n))
	return &Instruction{Op: OpMOVSP, Qual: QualNone, Args: args}
}

// NewCopy builds a CPTOPSP/CPDOWNSP/CPTOPBP/CPDOWNBP instruction,
// which all share the (offset int32, size uint16) argument layout.
func NewCopy(op Opcode, offset int32, size uint16) *Instruction {
	args := make([]byte, 6)
	binary.BigEndian.PutUint32(args[0:4], uint32(offset))
	binary.BigEndian.PutUint16(args[4:6], size)
	return &Instruction{Op: op, Qual: QualNone, Args: args}
}

// NewBinary builds a binary-operator instruction (ADD/SUB/.../EQUAL/
// NEQUAL/...) with no packed argument bytes; its effect is fully
// determined by Op and Qual.
func NewBinary(op Opcode, qual Qualifier) *Instruction {
	return &Instruction{Op: op, Qual: qual}
}

// NewUnary builds a unary-operator instruction (NEG/COMP/NOT) typed by
// qual.
func NewUnary(op Opcode, qual Qualifier) *Instruction {
	return &Instruction{Op: op, Qual: qual}
}

// NewIncDec builds an INCISP/DECISP/INCIBP/DECIBP instruction, which
// all take a single 32-bit stack offset argument.
func NewIncDec(op Opcode, offset int32) *Instruction {
	args := make([]byte, 4)
	binary.BigEndian.PutUint32(args, uint32(offset))
	return &Instruction{Op: op, Qual: QualNone, Args: args}
}
