// Package token defines the lexical token kinds and the small table
// of engine-defined constants the NSS lexer and parser share.
package token

// Kind identifies the lexical class of a Token.
type Kind int

const (
	EOF Kind = iota
	Ident
	Int
	Float
	String
	Comment

	// Keywords
	KwInt
	KwFloat
	KwString
	KwObject
	KwVoid
	KwVector
	KwAction
	KwStruct
	KwEvent
	KwEffect
	KwItemProperty
	KwLocation
	KwTalent
	KwIf
	KwElse
	KwWhile
	KwDo
	KwFor
	KwSwitch
	KwCase
	KwDefault
	KwBreak
	KwContinue
	KwReturn
	KwConst
	KwTrue
	KwFalse

	// Operators
	Plus
	Minus
	Star
	Slash
	Percent
	Assign
	Eq
	Neq
	Lt
	Gt
	Leq
	Geq
	AndAnd
	OrOr
	Not
	Amp
	Pipe
	Caret
	Tilde
	Shl
	Shr
	Inc
	Dec

	// Compound assignment
	PlusAssign
	MinusAssign
	StarAssign
	SlashAssign
	PercentAssign

	// Punctuation
	LParen
	RParen
	LBrace
	RBrace
	LBrack
	RBrack
	Comma
	Dot
	Semicolon
	Colon
	Hash // '#' for preprocessor-style #include
)

var names = map[Kind]string{
	EOF: "EOF", Ident: "identifier", Int: "int literal", Float: "float literal",
	String: "string literal", Comment: "comment",
	KwInt: "int", KwFloat: "float", KwString: "string", KwObject: "object",
	KwVoid: "void", KwVector: "vector", KwAction: "action", KwStruct: "struct",
	KwEvent: "event", KwEffect: "effect", KwItemProperty: "itemproperty",
	KwLocation: "location", KwTalent: "talent",
	KwIf: "if", KwElse: "else", KwWhile: "while", KwDo: "do", KwFor: "for",
	KwSwitch: "switch", KwCase: "case", KwDefault: "default",
	KwBreak: "break", KwContinue: "continue", KwReturn: "return",
	KwConst: "const", KwTrue: "TRUE", KwFalse: "FALSE",
	Plus: "+", Minus: "-", Star: "*", Slash: "/", Percent: "%",
	Assign: "=", Eq: "==", Neq: "!=", Lt: "<", Gt: ">", Leq: "<=", Geq: ">=",
	AndAnd: "&&", OrOr: "||", Not: "!", Amp: "&", Pipe: "|", Caret: "^",
	Tilde: "~", Shl: "<<", Shr: ">>", Inc: "++", Dec: "--",
	PlusAssign: "+=", MinusAssign: "-=", StarAssign: "*=", SlashAssign: "/=",
	PercentAssign: "%=",
	LParen:        "(", RParen: ")", LBrace: "{", RBrace: "}",
	LBrack: "[", RBrack: "]", Comma: ",", Dot: ".", Semicolon: ";", Colon: ":", Hash: "#",
}

// String returns a human-readable token name, used in parse errors.
func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return "?"
}

// Keywords maps reserved words to their keyword token kind.
var Keywords = map[string]Kind{
	"int": KwInt, "float": KwFloat, "string": KwString, "object": KwObject,
	"void": KwVoid, "vector": KwVector, "action": KwAction, "struct": KwStruct,
	"event": KwEvent, "effect": KwEffect, "itemproperty": KwItemProperty,
	"location": KwLocation, "talent": KwTalent,
	"if": KwIf, "else": KwElse, "while": KwWhile, "do": KwDo, "for": KwFor,
	"switch": KwSwitch, "case": KwCase, "default": KwDefault,
	"break": KwBreak, "continue": KwContinue, "return": KwReturn,
	"const": KwConst, "TRUE": KwTrue, "FALSE": KwFalse,
}

// Token is one lexical unit: its kind, literal text, and source
// position for diagnostics.
type Token struct {
	Kind Kind
	Val  string
	Line int
	Col  int
}

func (t Token) String() string {
	if t.Val != "" {
		return t.Kind.String() + "(" + t.Val + ")"
	}
	return t.Kind.String()
}

// EngineConstants names the numeric constants the host engine defines
// outside of any compiled script; the compiler resolves identifiers
// like TRUE and OBJECT_SELF against this table.
var EngineConstants = map[string]int32{
	"TRUE":            1,
	"FALSE":           0,
	"OBJECT_SELF":     0,
	"OBJECT_INVALID":  -1,
	"OBJECT_TYPE_ALL": 0x7FFF,
}
