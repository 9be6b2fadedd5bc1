package compiler

import "github.com/aurora-toolkit/core/nss/ast"

// cellSize is the width, in bytes, of one stack slot. Every scalar
// type occupies one cell; a vector occupies three (matching the
// engine's actual 4-byte-per-float layout for VECTOR values), which is
// why ast.StructField.SlotWidth counts vectors as 3.
const cellSize = 4

// binding is one declared name's location: the stack depth, in cells,
// counted from the start of its frame (function entry for a local,
// program entry for a global) at the moment the variable's first cell
// was pushed.
type binding struct {
	depth      int
	typ        ast.Type
	structName string
	width      int
	global     bool
}

// Scope is one lexical block's symbol table: a flat map of names
// visible in this block plus a link to the enclosing block. Entering
// a block pushes a frame; exiting pops it and emits the matching
// MOVSP.
type Scope struct {
	parent *Scope
	vars   map[string]*binding
}

func newScope(parent *Scope) *Scope {
	return &Scope{parent: parent, vars: make(map[string]*binding)}
}

func (s *Scope) declare(name string, b *binding) { s.vars[name] = b }

func (s *Scope) lookup(name string) (*binding, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if b, ok := cur.vars[name]; ok {
			return b, true
		}
	}
	return nil, false
}
