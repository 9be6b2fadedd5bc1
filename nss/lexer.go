// Package nss implements the lexer and recursive-descent parser for
// NSS, the Odyssey/Aurora engine scripting language.
//
// The lexer is a position scanner tracking line/col, with a
// whitespace-and-comment skip run before every token. Source text is
// decoded through a legacy single-byte code page before scanning
// rather than assumed to be UTF-8.
package nss

import (
	"fmt"
	"strconv"

	"golang.org/x/text/encoding/charmap"

	"github.com/aurora-toolkit/core/nss/token"
)

// Lexer tokenizes NSS source decoded through a legacy code page.
type Lexer struct {
	src  []rune
	pos  int
	line int
	col  int
}

// NewLexer decodes raw through cm (nil defaults to Windows-1252, the
// code page game scripts ship in) and returns a Lexer ready to scan
// it.
func NewLexer(raw []byte, cm *charmap.Charmap) (*Lexer, error) {
	if cm == nil {
		cm = charmap.Windows1252
	}
	decoded, err := cm.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("nss: decode source: %w", err)
	}
	return &Lexer{src: []rune(string(decoded)), pos: 0, line: 1, col: 1}, nil
}

func (l *Lexer) atEnd() bool { return l.pos >= len(l.src) }

func (l *Lexer) peek() rune {
	if l.atEnd() {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(offset int) rune {
	p := l.pos + offset
	if p >= len(l.src) {
		return 0
	}
	return l.src[p]
}

func (l *Lexer) advance() rune {
	ch := l.src[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

func isLetter(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch rune) bool { return ch >= '0' && ch <= '9' }

// Tokenize scans the whole source and returns every token including a
// trailing EOF, or the first lexical error encountered.
func (l *Lexer) Tokenize() ([]token.Token, error) {
	var out []token.Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.Kind == token.EOF {
			return out, nil
		}
	}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for !l.atEnd() {
		ch := l.peek()
		switch {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			l.advance()
		case ch == '/' && l.peekAt(1) == '/':
			for !l.atEnd() && l.peek() != '\n' {
				l.advance()
			}
		case ch == '/' && l.peekAt(1) == '*':
			l.advance()
			l.advance()
			for !l.atEnd() && !(l.peek() == '*' && l.peekAt(1) == '/') {
				l.advance()
			}
			if !l.atEnd() {
				l.advance()
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *Lexer) next() (token.Token, error) {
	l.skipWhitespaceAndComments()
	if l.atEnd() {
		return token.Token{Kind: token.EOF, Line: l.line, Col: l.col}, nil
	}

	line, col := l.line, l.col
	ch := l.peek()

	switch {
	case isLetter(ch):
		return l.scanIdent(line, col), nil
	case isDigit(ch):
		return l.scanNumber(line, col), nil
	case ch == '"':
		return l.scanString(line, col)
	case ch == '#':
		l.advance()
		return token.Token{Kind: token.Hash, Line: line, Col: col}, nil
	}

	return l.scanOperator(line, col)
}

func (l *Lexer) scanIdent(line, col int) token.Token {
	start := l.pos
	for !l.atEnd() && (isLetter(l.peek()) || isDigit(l.peek())) {
		l.advance()
	}
	val := string(l.src[start:l.pos])
	kind, isKeyword := token.Keywords[val]
	if !isKeyword {
		kind = token.Ident
	}
	return token.Token{Kind: kind, Val: val, Line: line, Col: col}
}

func isHexDigit(ch rune) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func (l *Lexer) scanNumber(line, col int) token.Token {
	start := l.pos
	if l.peek() == '0' && (l.peekAt(1) == 'x' || l.peekAt(1) == 'X') {
		l.advance()
		l.advance()
		for !l.atEnd() && isHexDigit(l.peek()) {
			l.advance()
		}
		return token.Token{Kind: token.Int, Val: string(l.src[start:l.pos]), Line: line, Col: col}
	}

	isFloat := false
	for !l.atEnd() && isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		isFloat = true
		l.advance()
		for !l.atEnd() && isDigit(l.peek()) {
			l.advance()
		}
	}
	if l.peek() == 'f' || l.peek() == 'F' {
		isFloat = true
		l.advance()
	}
	val := string(l.src[start:l.pos])
	kind := token.Int
	if isFloat {
		kind = token.Float
	}
	return token.Token{Kind: kind, Val: val, Line: line, Col: col}
}

// scanString scans a double-quoted literal. The language has no
// escape sequences: a backslash is an ordinary character and the
// first '"' always closes the string.
func (l *Lexer) scanString(line, col int) (token.Token, error) {
	l.advance() // opening quote
	start := l.pos
	for !l.atEnd() && l.peek() != '"' {
		l.advance()
	}
	if l.atEnd() {
		return token.Token{}, fmt.Errorf("nss: unterminated string literal at line %d", line)
	}
	val := string(l.src[start:l.pos])
	l.advance() // closing quote
	return token.Token{Kind: token.String, Val: val, Line: line, Col: col}, nil
}

func (l *Lexer) scanOperator(line, col int) (token.Token, error) {
	two := func(a, b rune, kind token.Kind) (token.Token, bool) {
		if l.peek() == a && l.peekAt(1) == b {
			l.advance()
			l.advance()
			return token.Token{Kind: kind, Line: line, Col: col}, true
		}
		return token.Token{}, false
	}

	if t, ok := two('=', '=', token.Eq); ok {
		return t, nil
	}
	if t, ok := two('!', '=', token.Neq); ok {
		return t, nil
	}
	if t, ok := two('<', '=', token.Leq); ok {
		return t, nil
	}
	if t, ok := two('>', '=', token.Geq); ok {
		return t, nil
	}
	if t, ok := two('&', '&', token.AndAnd); ok {
		return t, nil
	}
	if t, ok := two('|', '|', token.OrOr); ok {
		return t, nil
	}
	if t, ok := two('<', '<', token.Shl); ok {
		return t, nil
	}
	if t, ok := two('>', '>', token.Shr); ok {
		return t, nil
	}
	if t, ok := two('+', '+', token.Inc); ok {
		return t, nil
	}
	if t, ok := two('-', '-', token.Dec); ok {
		return t, nil
	}
	if t, ok := two('+', '=', token.PlusAssign); ok {
		return t, nil
	}
	if t, ok := two('-', '=', token.MinusAssign); ok {
		return t, nil
	}
	if t, ok := two('*', '=', token.StarAssign); ok {
		return t, nil
	}
	if t, ok := two('/', '=', token.SlashAssign); ok {
		return t, nil
	}
	if t, ok := two('%', '=', token.PercentAssign); ok {
		return t, nil
	}

	single := map[rune]token.Kind{
		'+': token.Plus, '-': token.Minus, '*': token.Star, '/': token.Slash,
		'%': token.Percent, '=': token.Assign, '<': token.Lt, '>': token.Gt,
		'!': token.Not, '&': token.Amp, '|': token.Pipe, '^': token.Caret,
		'~': token.Tilde,
		'(': token.LParen, ')': token.RParen, '{': token.LBrace, '}': token.RBrace,
		'[': token.LBrack, ']': token.RBrack, ',': token.Comma, '.': token.Dot,
		';': token.Semicolon, ':': token.Colon,
	}
	ch := l.advance()
	kind, ok := single[ch]
	if !ok {
		return token.Token{}, fmt.Errorf("nss: unexpected character %q at line %d col %d", ch, line, col)
	}
	return token.Token{Kind: kind, Line: line, Col: col}, nil
}

func parseIntLiteral(s string) (int32, error) {
	if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		v, err := strconv.ParseUint(s[2:], 16, 32)
		return int32(v), err
	}
	v, err := strconv.ParseInt(s, 10, 32)
	return int32(v), err
}

func parseFloatLiteral(s string) (float32, error) {
	v, err := strconv.ParseFloat(trimFloatSuffix(s), 32)
	return float32(v), err
}

func trimFloatSuffix(s string) string {
	if len(s) > 0 && (s[len(s)-1] == 'f' || s[len(s)-1] == 'F') {
		return s[:len(s)-1]
	}
	return s
}
