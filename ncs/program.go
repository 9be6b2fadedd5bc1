package ncs

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Signature is the fixed 8-byte NCS file header, written verbatim by
// Serialize and checked verbatim by Deserialize.
const Signature = "NCS V1.0"

// Errors returned while serializing or deserializing a Program.
var (
	ErrInvalidSignature = errors.New("ncs: invalid signature")
	ErrDanglingJump      = errors.New("ncs: jump target not present in program")
	ErrTruncated         = errors.New("ncs: instruction stream truncated")
)

// Instruction is one (opcode, qualifier, arguments, jump-target)
// tuple. Jump is non-nil only for jump-family opcodes (JMP/JSR/JZ/
// JNZ); it references another Instruction in the same Program,
// resolved to a byte offset only at Serialize time.
//
// Args holds the already-packed, qualifier-specific literal or
// operand bytes for every opcode that isn't a jump or ACTION; they
// are packed when the instruction is built (see NewConstInt, NewCopy
// and the other builders), so Serialize never needs to know
// every qualifier's payload shape to write one.
type Instruction struct {
	Op   Opcode
	Qual Qualifier
	Args []byte
	Jump *Instruction

	// RoutineID/ArgCount are set only for ACTION instructions.
	RoutineID uint16
	ArgCount  uint8
}

// Program is an ordered list of instructions, the unit Serialize and
// Deserialize operate on.
type Program struct {
	Instructions []*Instruction
}

// NewProgram returns an empty Program.
func NewProgram() *Program { return &Program{} }

// Append adds ins to the end of the program and returns it, for
// fluent emission from the compiler's Emitter.
func (p *Program) Append(ins *Instruction) *Instruction {
	p.Instructions = append(p.Instructions, ins)
	return ins
}

func argSize(ins *Instruction) int {
	switch ins.Op {
	case OpACTION:
		return 3 // routine id (2, big-endian) + arg count (1)
	case OpJMP, OpJSR, OpJZ, OpJNZ:
		return 4 // signed 32-bit relative offset
	default:
		return len(ins.Args)
	}
}

// Serialize writes sig + big-endian total length + the instruction
// stream, patching every jump argument to its target's relative
// offset (target offset minus the jump instruction's own offset).
// One trailing, unreachable NOP is always appended before emitting,
// for byte-for-byte compatibility with compiled scripts already
// shipped in game installations.
func (p *Program) Serialize(w io.Writer) error {
	withTrailer := append(append([]*Instruction{}, p.Instructions...), &Instruction{Op: OpNOP, Qual: QualNone})
	prog := &Program{Instructions: withTrailer}

	offsets := make(map[*Instruction]int32, len(prog.Instructions))
	var cursor int32
	for _, ins := range prog.Instructions {
		offsets[ins] = cursor
		cursor += 2 + int32(argSize(ins))
	}

	var body bytes.Buffer
	for _, ins := range prog.Instructions {
		if err := writeInstruction(&body, ins, offsets); err != nil {
			return err
		}
	}

	var head bytes.Buffer
	head.WriteString(Signature)
	total := uint32(8+4) + uint32(body.Len())
	if err := binary.Write(&head, binary.BigEndian, total); err != nil {
		return err
	}
	if _, err := w.Write(head.Bytes()); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

func writeInstruction(buf *bytes.Buffer, ins *Instruction, offsets map[*Instruction]int32) error {
	buf.WriteByte(byte(ins.Op))
	buf.WriteByte(byte(ins.Qual))

	switch ins.Op {
	case OpACTION:
		if err := binary.Write(buf, binary.BigEndian, ins.RoutineID); err != nil {
			return err
		}
		buf.WriteByte(ins.ArgCount)
	case OpJMP, OpJSR, OpJZ, OpJNZ:
		if ins.Jump == nil {
			return fmt.Errorf("ncs: %s instruction has no jump target", ins.Op)
		}
		target, ok := offsets[ins.Jump]
		if !ok {
			return ErrDanglingJump
		}
		rel := target - offsets[ins]
		if err := binary.Write(buf, binary.BigEndian, rel); err != nil {
			return err
		}
	default:
		buf.Write(ins.Args)
	}
	return nil
}

// argLen reports how many bytes of Args follow the 2-byte opcode+
// qualifier head for a non-jump, non-ACTION instruction, keyed by
// (opcode, qualifier) since CONST's payload width depends on its
// qualifier (string literals are length-prefixed; every other
// primitive is a fixed 4 bytes).
func argLen(op Opcode, qual Qualifier, rest []byte) (int, error) {
	switch op {
	case OpCONST:
		switch qual {
		case QualString:
			if len(rest) < 2 {
				return 0, ErrTruncated
			}
			strLen := int(binary.BigEndian.Uint16(rest))
			return 2 + strLen, nil
		default:
			return 4, nil
		}
	case OpMOVSP, OpDECISP, OpINCISP, OpDECIBP, OpINCIBP:
		return 4, nil
	case OpDESTRUCT:
		return 6, nil
	case OpCPDOWNSP, OpCPTOPSP, OpCPDOWNBP, OpCPTOPBP:
		return 6, nil
	case OpEQUAL, OpNEQUAL:
		if qual == QualStructStruct {
			return 2, nil
		}
		return 0, nil
	default:
		return 0, nil
	}
}

// Deserialize parses a complete NCS byte stream back into a Program.
// Jump arguments are resolved to Instruction pointers by matching the
// patched relative offset against each instruction's own start offset.
func Deserialize(r io.Reader) (*Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < 12 || string(data[:8]) != Signature {
		return nil, ErrInvalidSignature
	}
	total := binary.BigEndian.Uint32(data[8:12])
	if uint64(total) > uint64(len(data)) {
		return nil, ErrTruncated
	}
	body := data[12:total]

	type pendingJump struct {
		ins    *Instruction
		offset int32
		rel    int32
	}

	var instrs []*Instruction
	offsetOf := make(map[int32]*Instruction)
	var jumps []pendingJump

	pos := int32(0)
	for int(pos) < len(body) {
		if int(pos)+2 > len(body) {
			return nil, ErrTruncated
		}
		op := Opcode(body[pos])
		qual := Qualifier(body[pos+1])
		start := pos
		pos += 2

		ins := &Instruction{Op: op, Qual: qual}
		switch op {
		case OpACTION:
			if int(pos)+3 > len(body) {
				return nil, ErrTruncated
			}
			ins.RoutineID = binary.BigEndian.Uint16(body[pos:])
			ins.ArgCount = body[pos+2]
			pos += 3
		case OpJMP, OpJSR, OpJZ, OpJNZ:
			if int(pos)+4 > len(body) {
				return nil, ErrTruncated
			}
			rel := int32(binary.BigEndian.Uint32(body[pos:]))
			pos += 4
			jumps = append(jumps, pendingJump{ins: ins, offset: start, rel: rel})
		default:
			n, err := argLen(op, qual, body[pos:])
			if err != nil {
				return nil, err
			}
			if int(pos)+n > len(body) {
				return nil, ErrTruncated
			}
			ins.Args = append([]byte{}, body[pos:pos+int32(n)]...)
			pos += int32(n)
		}

		offsetOf[start] = ins
		instrs = append(instrs, ins)
	}

	for _, j := range jumps {
		target := j.offset + j.rel
		tgt, ok := offsetOf[target]
		if !ok {
			return nil, ErrDanglingJump
		}
		j.ins.Jump = tgt
	}

	return &Program{Instructions: instrs}, nil
}
