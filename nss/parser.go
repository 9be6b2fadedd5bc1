package nss

import (
	"fmt"

	"github.com/aurora-toolkit/core/nss/ast"
	"github.com/aurora-toolkit/core/nss/token"
)

// Parser is a recursive-descent parser over a pre-scanned token
// stream, one method per grammar production, with binary expressions
// handled by precedence climbing over the precedence(kind) table.
type Parser struct {
	tokens  []token.Token
	pos     int
	errors  []error
	structs map[string]*ast.StructDef
}

// NewParser returns a Parser over tokens (as produced by Lexer.Tokenize).
func NewParser(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens, structs: make(map[string]*ast.StructDef)}
}

func (p *Parser) peek() token.Token {
	if p.pos >= len(p.tokens) {
		return token.Token{Kind: token.EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(offset int) token.Token {
	i := p.pos + offset
	if i >= len(p.tokens) {
		return token.Token{Kind: token.EOF}
	}
	return p.tokens[i]
}

func (p *Parser) advance() token.Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) at(kind token.Kind) bool { return p.peek().Kind == kind }

func (p *Parser) match(kinds ...token.Kind) bool {
	k := p.peek().Kind
	for _, kind := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (p *Parser) expect(kind token.Kind) token.Token {
	tok := p.advance()
	if tok.Kind != kind {
		p.errorf("expected %s, got %s at line %d col %d", kind, tok, tok.Line, tok.Col)
	}
	return tok
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.errors = append(p.errors, fmt.Errorf(format, args...))
}

// Errors returns every parse error accumulated so far.
func (p *Parser) Errors() []error { return p.errors }

// ParseFile parses a complete translation unit.
func (p *Parser) ParseFile() (*ast.File, error) {
	file := &ast.File{}

	for p.at(token.Hash) {
		inc, err := p.parseInclude()
		if err != nil {
			return nil, err
		}
		file.Includes = append(file.Includes, inc)
	}

	for !p.at(token.EOF) {
		if p.at(token.KwStruct) {
			sd := p.parseStructDef()
			file.Structs = append(file.Structs, sd)
			continue
		}
		decl := p.parseTopDecl()
		switch d := decl.(type) {
		case *ast.FuncDecl:
			file.Functions = append(file.Functions, d)
		case *ast.VarDecl:
			file.Globals = append(file.Globals, d)
		}
	}

	if len(p.errors) > 0 {
		return file, p.errors[0]
	}
	return file, nil
}

func (p *Parser) parseInclude() (*ast.Include, error) {
	line := p.peek().Line
	p.expect(token.Hash)
	nameTok := p.expect(token.Ident)
	if nameTok.Val != "include" {
		return nil, fmt.Errorf("nss: unsupported directive #%s at line %d", nameTok.Val, line)
	}
	pathTok := p.expect(token.String)
	return &ast.Include{Path: pathTok.Val}, nil
}

// parseStructDef parses `struct Name { Type field; ... };` and
// records its total stack-slot width immediately, so lowering never
// recomputes a struct's layout.
func (p *Parser) parseStructDef() *ast.StructDef {
	p.expect(token.KwStruct)
	name := p.expect(token.Ident).Val
	p.expect(token.LBrace)

	sd := &ast.StructDef{Name: name}
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		typ, structName := p.parseType()
		fieldName := p.expect(token.Ident).Val
		p.expect(token.Semicolon)

		width := 1
		if typ == ast.TypeVector {
			width = 3
		} else if typ == ast.TypeStruct {
			if sub, ok := p.structs[structName]; ok {
				width = sub.TotalWidth
			}
		}
		sd.Fields = append(sd.Fields, ast.StructField{Name: fieldName, Type: typ, StructName: structName, SlotWidth: width})
		sd.TotalWidth += width
	}
	p.expect(token.RBrace)
	p.expect(token.Semicolon)

	p.structs[name] = sd
	return sd
}

func (p *Parser) parseType() (ast.Type, string) {
	switch p.peek().Kind {
	case token.KwInt:
		p.advance()
		return ast.TypeInt, ""
	case token.KwFloat:
		p.advance()
		return ast.TypeFloat, ""
	case token.KwString:
		p.advance()
		return ast.TypeString, ""
	case token.KwObject:
		p.advance()
		return ast.TypeObject, ""
	case token.KwVoid:
		p.advance()
		return ast.TypeVoid, ""
	case token.KwVector:
		p.advance()
		return ast.TypeVector, ""
	case token.KwAction:
		p.advance()
		return ast.TypeAction, ""
	case token.KwEvent:
		p.advance()
		return ast.TypeEvent, ""
	case token.KwEffect:
		p.advance()
		return ast.TypeEffect, ""
	case token.KwItemProperty:
		p.advance()
		return ast.TypeItemProperty, ""
	case token.KwLocation:
		p.advance()
		return ast.TypeLocation, ""
	case token.KwTalent:
		p.advance()
		return ast.TypeTalent, ""
	case token.KwStruct:
		p.advance()
		name := p.expect(token.Ident).Val
		return ast.TypeStruct, name
	case token.Ident:
		// A bare identifier naming a previously declared struct may
		// appear without the `struct` keyword at the use site.
		if _, ok := p.structs[p.peek().Val]; ok {
			name := p.advance().Val
			return ast.TypeStruct, name
		}
		tok := p.advance()
		p.errorf("expected type, got identifier %q at line %d", tok.Val, tok.Line)
		return ast.TypeVoid, ""
	default:
		tok := p.advance()
		p.errorf("expected type, got %s at line %d", tok.Kind, tok.Line)
		return ast.TypeVoid, ""
	}
}

// parseTopDecl parses one global variable declaration or function
// prototype/definition, distinguished by whether an identifier is
// followed by '(' .
func (p *Parser) parseTopDecl() ast.Node {
	line := p.peek().Line
	isConst := false
	if p.at(token.KwConst) {
		isConst = true
		p.advance()
	}
	typ, structName := p.parseType()
	name := p.expect(token.Ident).Val

	if p.at(token.LParen) {
		return p.parseFuncDecl(line, typ, structName, name)
	}

	decl := &ast.VarDecl{Name: name, Type: typ, StructName: structName, Const: isConst}
	decl.Line = line
	if p.at(token.Assign) {
		p.advance()
		decl.Init = p.parseExpr()
	}
	p.expect(token.Semicolon)
	return decl
}

func (p *Parser) parseFuncDecl(line int, typ ast.Type, structName, name string) *ast.FuncDecl {
	p.expect(token.LParen)
	var params []ast.Param
	for !p.at(token.RParen) && !p.at(token.EOF) {
		pt, psn := p.parseType()
		pname := p.expect(token.Ident).Val
		param := ast.Param{Name: pname, Type: pt, StructName: psn}
		if p.at(token.Assign) {
			p.advance()
			param.Default = p.parseExpr()
		}
		params = append(params, param)
		if p.at(token.Comma) {
			p.advance()
		}
	}
	p.expect(token.RParen)

	fd := &ast.FuncDecl{Name: name, ReturnType: typ, StructName: structName, Params: params}
	fd.Line = line

	if p.at(token.Semicolon) {
		p.advance() // prototype only
		return fd
	}
	fd.Body = p.parseBlock()
	return fd
}

func (p *Parser) parseBlock() *ast.Block {
	line := p.peek().Line
	p.expect(token.LBrace)
	block := &ast.Block{}
	block.Line = line
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		block.Stmts = append(block.Stmts, p.parseStmt())
	}
	p.expect(token.RBrace)
	return block
}

func (p *Parser) parseStmt() ast.Stmt {
	switch p.peek().Kind {
	case token.LBrace:
		return p.parseBlock()
	case token.KwIf:
		return p.parseIfStmt()
	case token.KwWhile:
		return p.parseWhileStmt()
	case token.KwDo:
		return p.parseDoWhileStmt()
	case token.KwFor:
		return p.parseForStmt()
	case token.KwSwitch:
		return p.parseSwitchStmt()
	case token.KwReturn:
		return p.parseReturnStmt()
	case token.KwBreak:
		line := p.advance().Line
		p.expect(token.Semicolon)
		s := &ast.BreakStmt{}
		s.Line = line
		return s
	case token.KwContinue:
		line := p.advance().Line
		p.expect(token.Semicolon)
		s := &ast.ContinueStmt{}
		s.Line = line
		return s
	case token.KwInt, token.KwFloat, token.KwString, token.KwObject,
		token.KwVector, token.KwAction, token.KwStruct, token.KwConst,
		token.KwEvent, token.KwEffect, token.KwItemProperty, token.KwLocation,
		token.KwTalent:
		return p.parseDeclStmt()
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseDeclStmt() ast.Stmt {
	line := p.peek().Line
	isConst := false
	if p.at(token.KwConst) {
		isConst = true
		p.advance()
	}
	typ, structName := p.parseType()
	name := p.expect(token.Ident).Val
	decl := &ast.VarDecl{Name: name, Type: typ, StructName: structName, Const: isConst}
	decl.Line = line
	if p.at(token.Assign) {
		p.advance()
		decl.Init = p.parseExpr()
	}
	p.expect(token.Semicolon)
	s := &ast.DeclStmt{Decl: decl}
	s.Line = line
	return s
}

func (p *Parser) parseExprStmt() ast.Stmt {
	line := p.peek().Line
	x := p.parseExpr()
	p.expect(token.Semicolon)
	s := &ast.ExprStmt{X: x}
	s.Line = line
	return s
}

// parseIfStmt accepts either a brace-delimited block or a single
// statement for each arm; `else if` chains nest through Else.
func (p *Parser) parseIfStmt() *ast.IfStmt {
	line := p.advance().Line // 'if'
	p.expect(token.LParen)
	cond := p.parseExpr()
	p.expect(token.RParen)
	then := p.parseStmt()

	s := &ast.IfStmt{Cond: cond, Then: then}
	s.Line = line

	if p.at(token.KwElse) {
		p.advance()
		s.Else = p.parseStmt()
	}
	return s
}

func (p *Parser) parseWhileStmt() *ast.WhileStmt {
	line := p.advance().Line
	p.expect(token.LParen)
	cond := p.parseExpr()
	p.expect(token.RParen)
	body := p.parseBlock()
	s := &ast.WhileStmt{Cond: cond, Body: body}
	s.Line = line
	return s
}

func (p *Parser) parseDoWhileStmt() *ast.DoWhileStmt {
	line := p.advance().Line
	body := p.parseBlock()
	p.expect(token.KwWhile)
	p.expect(token.LParen)
	cond := p.parseExpr()
	p.expect(token.RParen)
	p.expect(token.Semicolon)
	s := &ast.DoWhileStmt{Body: body, Cond: cond}
	s.Line = line
	return s
}

func (p *Parser) parseForStmt() *ast.ForStmt {
	line := p.advance().Line
	p.expect(token.LParen)

	s := &ast.ForStmt{}
	s.Line = line

	if !p.at(token.Semicolon) {
		s.Init = p.parseSimpleStmtNoSemicolon()
	}
	p.expect(token.Semicolon)

	if !p.at(token.Semicolon) {
		s.Cond = p.parseExpr()
	}
	p.expect(token.Semicolon)

	if !p.at(token.RParen) {
		s.Post = p.parseSimpleStmtNoSemicolon()
	}
	p.expect(token.RParen)

	s.Body = p.parseBlock()
	return s
}

// parseSimpleStmtNoSemicolon parses the init/post clauses of a for
// loop, which are bare expressions without a trailing semicolon of
// their own (the enclosing ForStmt consumes the separators).
func (p *Parser) parseSimpleStmtNoSemicolon() ast.Stmt {
	line := p.peek().Line
	x := p.parseExpr()
	s := &ast.ExprStmt{X: x}
	s.Line = line
	return s
}

func (p *Parser) parseSwitchStmt() *ast.SwitchStmt {
	line := p.advance().Line
	p.expect(token.LParen)
	tag := p.parseExpr()
	p.expect(token.RParen)
	p.expect(token.LBrace)

	s := &ast.SwitchStmt{Tag: tag}
	s.Line = line

	for !p.at(token.RBrace) && !p.at(token.EOF) {
		s.Cases = append(s.Cases, p.parseCaseClause())
	}
	p.expect(token.RBrace)
	return s
}

func (p *Parser) parseCaseClause() *ast.CaseClause {
	line := p.peek().Line
	cc := &ast.CaseClause{}
	cc.Line = line

	if p.at(token.KwCase) {
		p.advance()
		cc.Value = p.parseExpr()
		p.expect(token.Colon)
	} else {
		p.expect(token.KwDefault)
		p.expect(token.Colon)
	}

	for !p.match(token.KwCase, token.KwDefault, token.RBrace) && !p.at(token.EOF) {
		cc.Stmts = append(cc.Stmts, p.parseStmt())
	}
	return cc
}

func (p *Parser) parseReturnStmt() *ast.ReturnStmt {
	line := p.advance().Line
	s := &ast.ReturnStmt{}
	s.Line = line
	if !p.at(token.Semicolon) {
		s.Value = p.parseExpr()
	}
	p.expect(token.Semicolon)
	return s
}

// --- Expressions ---

func (p *Parser) parseExpr() ast.Expr {
	return p.parseAssignExpr()
}

func (p *Parser) parseAssignExpr() ast.Expr {
	x := p.parseBinaryExpr(1)

	ops := map[token.Kind]string{
		token.Assign:        "",
		token.PlusAssign:    "+",
		token.MinusAssign:   "-",
		token.StarAssign:    "*",
		token.SlashAssign:   "/",
		token.PercentAssign: "%",
	}
	if op, ok := ops[p.peek().Kind]; ok {
		line := p.advance().Line
		value := p.parseAssignExpr()
		e := &ast.AssignExpr{Target: x, Op: op, Value: value}
		e.Line = line
		return e
	}
	return x
}

func precedence(kind token.Kind) int {
	switch kind {
	case token.OrOr:
		return 1
	case token.AndAnd:
		return 2
	case token.Pipe:
		return 3
	case token.Caret:
		return 4
	case token.Amp:
		return 5
	case token.Eq, token.Neq:
		return 6
	case token.Lt, token.Gt, token.Leq, token.Geq:
		return 7
	case token.Shl, token.Shr:
		return 8
	case token.Plus, token.Minus:
		return 9
	case token.Star, token.Slash, token.Percent:
		return 10
	default:
		return 0
	}
}

func (p *Parser) parseBinaryExpr(minPrec int) ast.Expr {
	left := p.parseUnaryExpr()
	for {
		prec := precedence(p.peek().Kind)
		if prec < minPrec || prec == 0 {
			return left
		}
		opTok := p.advance()
		right := p.parseBinaryExpr(prec + 1)
		e := &ast.BinaryExpr{Op: opTok.Kind.String(), X: left, Y: right}
		e.Line = opTok.Line
		left = e
	}
}

func (p *Parser) parseUnaryExpr() ast.Expr {
	switch p.peek().Kind {
	case token.Minus, token.Not, token.Tilde:
		tok := p.advance()
		x := p.parseUnaryExpr()
		e := &ast.UnaryExpr{Op: tok.Kind.String(), X: x}
		e.Line = tok.Line
		return e
	case token.Inc, token.Dec:
		tok := p.advance()
		x := p.parseUnaryExpr()
		e := &ast.UnaryExpr{Op: tok.Kind.String(), X: x}
		e.Line = tok.Line
		return e
	default:
		return p.parsePostfixExpr()
	}
}

func (p *Parser) parsePostfixExpr() ast.Expr {
	x := p.parsePrimaryExpr()
	for {
		switch p.peek().Kind {
		case token.Dot:
			p.advance()
			field := p.expect(token.Ident).Val
			e := &ast.FieldExpr{X: x, Field: field}
			e.Line = x.Pos()
			x = e
		case token.Inc, token.Dec:
			tok := p.advance()
			e := &ast.PostfixExpr{Op: tok.Kind.String(), X: x}
			e.Line = tok.Line
			x = e
		default:
			return x
		}
	}
}

func (p *Parser) parsePrimaryExpr() ast.Expr {
	tok := p.peek()
	switch tok.Kind {
	case token.Int:
		p.advance()
		v, err := parseIntLiteral(tok.Val)
		if err != nil {
			p.errorf("invalid int literal %q at line %d", tok.Val, tok.Line)
		}
		e := &ast.IntLit{Value: v}
		e.Line = tok.Line
		return e
	case token.Float:
		p.advance()
		v, err := parseFloatLiteral(tok.Val)
		if err != nil {
			p.errorf("invalid float literal %q at line %d", tok.Val, tok.Line)
		}
		e := &ast.FloatLit{Value: v}
		e.Line = tok.Line
		return e
	case token.String:
		p.advance()
		e := &ast.StringLit{Value: tok.Val}
		e.Line = tok.Line
		return e
	case token.KwTrue:
		p.advance()
		e := &ast.IntLit{Value: 1}
		e.Line = tok.Line
		return e
	case token.KwFalse:
		p.advance()
		e := &ast.IntLit{Value: 0}
		e.Line = tok.Line
		return e
	case token.LBrack:
		return p.parseVectorLit()
	case token.LParen:
		p.advance()
		x := p.parseExpr()
		p.expect(token.RParen)
		e := &ast.ParenExpr{X: x}
		e.Line = tok.Line
		return e
	case token.Ident:
		p.advance()
		if p.at(token.LParen) {
			return p.parseCallExpr(tok)
		}
		e := &ast.Ident{Name: tok.Val}
		e.Line = tok.Line
		return e
	default:
		p.advance()
		p.errorf("unexpected token %s at line %d col %d", tok, tok.Line, tok.Col)
		e := &ast.IntLit{}
		e.Line = tok.Line
		return e
	}
}

func (p *Parser) parseVectorLit() ast.Expr {
	line := p.advance().Line // '['
	x := p.parseExpr()
	p.expect(token.Comma)
	y := p.parseExpr()
	p.expect(token.Comma)
	z := p.parseExpr()
	p.expect(token.RBrack)
	e := &ast.VectorLit{X: x, Y: y, Z: z}
	e.Line = line
	return e
}

func (p *Parser) parseCallExpr(name token.Token) ast.Expr {
	p.expect(token.LParen)
	var args []ast.Expr
	for !p.at(token.RParen) && !p.at(token.EOF) {
		args = append(args, p.parseExpr())
		if p.at(token.Comma) {
			p.advance()
		}
	}
	p.expect(token.RParen)
	e := &ast.CallExpr{Callee: name.Val, Args: args}
	e.Line = name.Line
	return e
}
