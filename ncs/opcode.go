// Package ncs implements the NCS compiled-script bytecode model: the
// closed opcode/qualifier enumeration, the Instruction/Program types,
// and their wire serialization.
package ncs

// Opcode is the single-byte instruction mnemonic. The set is closed
// and fixed by the engine's virtual machine; it is not extensible.
type Opcode byte

const (
	OpCPDOWNSP  Opcode = 0x01
	OpRSADD     Opcode = 0x02
	OpCPTOPSP   Opcode = 0x03
	OpCONST     Opcode = 0x04
	OpACTION    Opcode = 0x05
	OpLOGAND    Opcode = 0x06
	OpLOGOR     Opcode = 0x07
	OpINCOR     Opcode = 0x08
	OpEXCOR     Opcode = 0x09
	OpBOOLAND   Opcode = 0x0A
	OpEQUAL     Opcode = 0x0B
	OpNEQUAL    Opcode = 0x0C
	OpGEQ       Opcode = 0x0D
	OpGT        Opcode = 0x0E
	OpLT        Opcode = 0x0F
	OpLEQ       Opcode = 0x10
	OpSHLEFT    Opcode = 0x11
	OpSHRIGHT   Opcode = 0x12
	OpUSHRIGHT  Opcode = 0x13
	OpADD       Opcode = 0x14
	OpSUB       Opcode = 0x15
	OpMUL       Opcode = 0x16
	OpDIV       Opcode = 0x17
	OpMOD       Opcode = 0x18
	OpNEG       Opcode = 0x19
	OpCOMP      Opcode = 0x1A
	OpMOVSP     Opcode = 0x1B
	OpSTORE_SS  Opcode = 0x1C
	OpJMP       Opcode = 0x1D
	OpJSR       Opcode = 0x1E
	OpJZ        Opcode = 0x1F
	OpRETN      Opcode = 0x20
	OpDESTRUCT  Opcode = 0x21
	OpNOT       Opcode = 0x22
	OpDECISP    Opcode = 0x23
	OpINCISP    Opcode = 0x24
	OpJNZ       Opcode = 0x25
	OpCPDOWNBP  Opcode = 0x26
	OpCPTOPBP   Opcode = 0x27
	OpDECIBP    Opcode = 0x28
	OpINCIBP    Opcode = 0x29
	OpSAVEBP    Opcode = 0x2A
	OpRESTOREBP Opcode = 0x2B
	OpSTORESTATE Opcode = 0x2C
	OpNOP       Opcode = 0x2D
)

var opcodeNames = map[Opcode]string{
	OpCPDOWNSP: "CPDOWNSP", OpRSADD: "RSADD", OpCPTOPSP: "CPTOPSP",
	OpCONST: "CONST", OpACTION: "ACTION", OpLOGAND: "LOGAND", OpLOGOR: "LOGOR",
	OpINCOR: "INCOR", OpEXCOR: "EXCOR", OpBOOLAND: "BOOLAND", OpEQUAL: "EQUAL",
	OpNEQUAL: "NEQUAL", OpGEQ: "GEQ", OpGT: "GT", OpLT: "LT", OpLEQ: "LEQ",
	OpSHLEFT: "SHLEFT", OpSHRIGHT: "SHRIGHT", OpUSHRIGHT: "USHRIGHT",
	OpADD: "ADD", OpSUB: "SUB", OpMUL: "MUL", OpDIV: "DIV", OpMOD: "MOD",
	OpNEG: "NEG", OpCOMP: "COMP", OpMOVSP: "MOVSP", OpSTORE_SS: "STORE_STATE",
	OpJMP: "JMP", OpJSR: "JSR", OpJZ: "JZ", OpRETN: "RETN",
	OpDESTRUCT: "DESTRUCT", OpNOT: "NOT", OpDECISP: "DECISP", OpINCISP: "INCISP",
	OpJNZ: "JNZ", OpCPDOWNBP: "CPDOWNBP", OpCPTOPBP: "CPTOPBP",
	OpDECIBP: "DECIBP", OpINCIBP: "INCIBP", OpSAVEBP: "SAVEBP",
	OpRESTOREBP: "RESTOREBP", OpSTORESTATE: "STORESTATE", OpNOP: "NOP",
}

func (op Opcode) String() string {
	if s, ok := opcodeNames[op]; ok {
		return s
	}
	return "UNKNOWN"
}

// Qualifier is the second byte of an instruction. Its meaning is
// opcode-dependent: a single-type selector (CONST, RSADD), a
// pair-of-types selector (ADD, EQUAL), or zero when the opcode takes
// none (JMP, RETN, SAVEBP, NOP).
type Qualifier byte

// Wire values below are the ones the engine's virtual machine
// dispatches on; they are not an internal numbering.
const (
	QualNone   Qualifier = 0x00
	QualInt    Qualifier = 0x03
	QualFloat  Qualifier = 0x04
	QualString Qualifier = 0x05
	QualObject Qualifier = 0x06
	QualEffect Qualifier = 0x10
	QualEvent  Qualifier = 0x11
	QualLoc    Qualifier = 0x12
	QualTalent Qualifier = 0x13

	// Pair qualifiers used by binary arithmetic/comparison opcodes.
	QualIntInt         Qualifier = 0x20
	QualFloatFloat     Qualifier = 0x21
	QualObjectObject   Qualifier = 0x22
	QualStringString   Qualifier = 0x23
	QualStructStruct   Qualifier = 0x24
	QualIntFloat       Qualifier = 0x25
	QualFloatInt       Qualifier = 0x26
	QualEffectEffect   Qualifier = 0x30
	QualEventEvent     Qualifier = 0x31
	QualLocationLoc    Qualifier = 0x32
	QualTalentTalent   Qualifier = 0x33
	QualVectorVector   Qualifier = 0x3A
	QualVectorFloat    Qualifier = 0x3B
	QualFloatVector    Qualifier = 0x3C
)

var qualifierNames = map[Qualifier]string{
	QualNone: "", QualInt: "int", QualFloat: "float", QualString: "string",
	QualObject: "object", QualEffect: "effect", QualEvent: "event",
	QualLoc: "location", QualTalent: "talent", QualIntInt: "int,int",
	QualFloatFloat: "float,float", QualObjectObject: "object,object",
	QualStringString: "string,string", QualStructStruct: "struct,struct",
	QualIntFloat: "int,float", QualFloatInt: "float,int",
	QualEffectEffect: "effect,effect", QualEventEvent: "event,event",
	QualLocationLoc: "location,location", QualTalentTalent: "talent,talent",
	QualVectorVector: "vector,vector", QualVectorFloat: "vector,float",
	QualFloatVector: "float,vector",
}

func (q Qualifier) String() string {
	if s, ok := qualifierNames[q]; ok {
		return s
	}
	return "?"
}
