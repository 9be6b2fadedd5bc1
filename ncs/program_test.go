package ncs

import (
	"bytes"
	"testing"
)

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	prog := NewProgram()
	c14 := NewConstInt(14)
	prog.Append(c14)
	action := NewAction(1, 1)
	prog.Append(action)
	ret := &Instruction{Op: OpRETN}
	prog.Append(ret)

	var buf bytes.Buffer
	if err := prog.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	out, err := Deserialize(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	// +1 for the trailing unreachable NOP quirk.
	if len(out.Instructions) != len(prog.Instructions)+1 {
		t.Fatalf("got %d instructions, want %d", len(out.Instructions), len(prog.Instructions)+1)
	}
	if out.Instructions[0].Op != OpCONST || out.Instructions[0].Qual != QualInt {
		t.Fatalf("first instruction = %v/%v, want CONST/int", out.Instructions[0].Op, out.Instructions[0].Qual)
	}
	last := out.Instructions[len(out.Instructions)-1]
	if last.Op != OpNOP {
		t.Fatalf("trailing instruction = %v, want NOP", last.Op)
	}
}

func TestSerializeJumpPatchesRelativeOffset(t *testing.T) {
	prog := NewProgram()
	target := &Instruction{Op: OpRETN}
	jmp := &Instruction{Op: OpJMP, Jump: target}
	prog.Append(jmp)
	prog.Append(&Instruction{Op: OpNOP})
	prog.Append(target)

	var buf bytes.Buffer
	if err := prog.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	out, err := Deserialize(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if out.Instructions[0].Op != OpJMP {
		t.Fatalf("expected first instruction to be JMP")
	}
	if out.Instructions[0].Jump != out.Instructions[2] {
		t.Fatalf("jump target did not resolve to the RETN instruction")
	}
}

func TestSerializeMissingJumpTargetErrors(t *testing.T) {
	prog := NewProgram()
	prog.Append(&Instruction{Op: OpJMP})
	var buf bytes.Buffer
	if err := prog.Serialize(&buf); err == nil {
		t.Fatal("expected an error for a JMP with no target")
	}
}

func TestDeserializeRejectsBadSignature(t *testing.T) {
	if _, err := Deserialize(bytes.NewReader([]byte("not an ncs file!!!!"))); err != ErrInvalidSignature {
		t.Fatalf("got %v, want ErrInvalidSignature", err)
	}
}
