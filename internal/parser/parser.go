// Package parser is a recursive-descent LL parser producing internal/ast
// trees from an internal/lexer token stream: program/unit headers,
// const/type/var/procedure/function/class declarations, statements and
// expressions.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"pascalvm/internal/ast"
	"pascalvm/internal/errors"
	"pascalvm/internal/lexer"
)

// Parser holds one token stream. The first syntax error panics with
// *errors.SentraError; each Parse* entry point recovers it into the
// returned error so frontend code never needs to set up its own recover.
type Parser struct {
	tokens      []lexer.Token
	current     int
	file        string
	sourceLines []string
}

func New(tokens []lexer.Token, file, source string) *Parser {
	return &Parser{tokens: tokens, file: file, sourceLines: strings.Split(source, "\n")}
}

// ParseProgram parses a full `program Name; Block.` compilation unit.
func (p *Parser) ParseProgram() (prog *ast.Program, err error) {
	defer p.recoverInto(&err)
	loc := p.loc()
	p.consume(lexer.TokenProgram, "expected 'program'")
	name := p.consume(lexer.TokenIdent, "expected program name").Lexeme
	p.consume(lexer.TokenSemicolon, "expected ';' after program header")
	uses := p.parseUsesClause(loc)
	block := p.parseBlock()
	p.consume(lexer.TokenDot, "expected '.' after program body")
	if uses != nil {
		block.Decls = append([]ast.Decl{uses}, block.Decls...)
	}
	return &ast.Program{Name: name, Block: block}, nil
}

// ParseSTProgram parses a bare script body with no `program` header, the
// REPL/`.st` entry point.
func (p *Parser) ParseSTProgram() (prog *ast.STProgram, err error) {
	defer p.recoverInto(&err)
	decls := p.parseDeclPart()
	body := p.parseCompoundStmt()
	p.match(lexer.TokenDot)
	return &ast.STProgram{Decls: decls, Body: body}, nil
}

// ParseUnit parses a full `unit Name; interface ... implementation ...
// end.` compilation unit.
func (p *Parser) ParseUnit() (unit *ast.Unit, err error) {
	defer p.recoverInto(&err)
	p.consume(lexer.TokenUnit, "expected 'unit'")
	name := p.consume(lexer.TokenIdent, "expected unit name").Lexeme
	p.consume(lexer.TokenSemicolon, "expected ';' after unit header")
	p.consume(lexer.TokenInterface, "expected 'interface'")
	ifaceLoc := p.loc()
	ifaceUses := p.parseUsesClause(ifaceLoc)
	iface := p.parseDeclPart()
	if ifaceUses != nil {
		iface = append([]ast.Decl{ifaceUses}, iface...)
	}
	p.consume(lexer.TokenImplementation, "expected 'implementation'")
	implLoc := p.loc()
	implUses := p.parseUsesClause(implLoc)
	impl := p.parseDeclPart()
	if implUses != nil {
		impl = append([]ast.Decl{implUses}, impl...)
	}
	if p.check(lexer.TokenBegin) {
		p.parseCompoundStmt() // unit initialization section, discarded
	}
	p.consume(lexer.TokenEnd, "expected 'end'")
	p.consume(lexer.TokenDot, "expected '.' after unit")
	return &ast.Unit{Name: name, Interface: iface, Implementation: impl}, nil
}

func (p *Parser) recoverInto(err *error) {
	if r := recover(); r != nil {
		if se, ok := r.(*errors.SentraError); ok {
			*err = se
			return
		}
		panic(r)
	}
}

// parseUsesClause parses an optional `uses Unit1, Unit2;` clause and returns
// an *ast.UsesDecl naming the referenced units, or nil if none was present.
func (p *Parser) parseUsesClause(loc ast.Pos) *ast.UsesDecl {
	if !p.match(lexer.TokenUses) {
		return nil
	}
	var units []string
	for {
		units = append(units, p.consume(lexer.TokenIdent, "expected unit name").Lexeme)
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	p.consume(lexer.TokenSemicolon, "expected ';' after uses clause")
	return &ast.UsesDecl{Base: ast.Base{P: loc}, Units: units}
}

// parseBlock parses a declaration part followed by a compound statement.
func (p *Parser) parseBlock() *ast.Block {
	decls := p.parseDeclPart()
	body := p.parseCompoundStmt()
	return &ast.Block{Decls: decls, Body: body}
}

func (p *Parser) parseDeclPart() []ast.Decl {
	var decls []ast.Decl
	for {
		switch {
		case p.check(lexer.TokenConst):
			decls = append(decls, p.parseConstSection()...)
		case p.check(lexer.TokenType_):
			decls = append(decls, p.parseTypeSection()...)
		case p.check(lexer.TokenVar):
			decls = append(decls, p.parseVarSection()...)
		case p.check(lexer.TokenProcedure), p.check(lexer.TokenFunction):
			decls = append(decls, p.parseProcDecl())
		default:
			return decls
		}
	}
}

func (p *Parser) loc() ast.Pos {
	t := p.peek()
	return ast.Pos{File: p.file, Line: t.Line, Column: t.Column}
}

// --- const section ---

func (p *Parser) parseConstSection() []ast.Decl {
	p.advance() // 'const'
	var decls []ast.Decl
	for p.check(lexer.TokenIdent) {
		loc := p.loc()
		name := p.advance().Lexeme
		var typ ast.TypeExpr
		if p.match(lexer.TokenColon) {
			typ = p.parseTypeExpr()
		}
		p.consume(lexer.TokenEqual, "expected '=' in const declaration")
		val := p.parseExpression()
		p.consume(lexer.TokenSemicolon, "expected ';' after const declaration")
		decls = append(decls, &ast.ConstDecl{Name: name, Type: typ, Value: val, Base: ast.Base{P: loc}})
	}
	return decls
}

// --- type section ---

func (p *Parser) parseTypeSection() []ast.Decl {
	p.advance() // 'type'
	var decls []ast.Decl
	for p.check(lexer.TokenIdent) {
		loc := p.loc()
		name := p.advance().Lexeme
		p.consume(lexer.TokenEqual, "expected '=' in type declaration")
		if p.check(lexer.TokenClass) {
			cls := p.parseClassTypeExpr()
			p.consume(lexer.TokenSemicolon, "expected ';' after class declaration")
			decls = append(decls, &ast.ClassDecl{Name: name, Expr: cls, Base: ast.Base{P: loc}})
			continue
		}
		t := p.parseTypeExpr()
		p.consume(lexer.TokenSemicolon, "expected ';' after type declaration")
		decls = append(decls, &ast.TypeDecl{Name: name, Def: t, Base: ast.Base{P: loc}})
	}
	return decls
}

func (p *Parser) parseTypeExpr() ast.TypeExpr {
	loc := p.loc()
	switch {
	case p.match(lexer.TokenCaret):
		elem := p.parseTypeExpr()
		return &ast.PointerTypeExpr{Elem: elem, Base: ast.Base{P: loc}}
	case p.match(lexer.TokenArray):
		p.consume(lexer.TokenLBracket, "expected '[' after 'array'")
		low := p.parseExpression()
		p.consume(lexer.TokenDotDot, "expected '..' in array bounds")
		high := p.parseExpression()
		p.consume(lexer.TokenRBracket, "expected ']' after array bounds")
		p.consume(lexer.TokenOf, "expected 'of' after array bounds")
		elem := p.parseTypeExpr()
		return &ast.ArrayTypeExpr{Low: low, High: high, Elem: elem, Base: ast.Base{P: loc}}
	case p.match(lexer.TokenLParen):
		var names []string
		names = append(names, p.consume(lexer.TokenIdent, "expected enum member").Lexeme)
		for p.match(lexer.TokenComma) {
			names = append(names, p.consume(lexer.TokenIdent, "expected enum member").Lexeme)
		}
		p.consume(lexer.TokenRParen, "expected ')' after enum list")
		return &ast.EnumTypeExpr{Names: names, Base: ast.Base{P: loc}}
	default:
		name := p.consume(lexer.TokenIdent, "expected type name").Lexeme
		if p.match(lexer.TokenDotDot) {
			low := &ast.IdentExpr{Name: name, Base: ast.Base{P: loc}}
			high := p.parseExpression()
			return &ast.SubrangeTypeExpr{Low: low, High: high, Base: ast.Base{P: loc}}
		}
		return &ast.SimpleTypeExpr{Name: name, Base: ast.Base{P: loc}}
	}
}

func (p *Parser) parseClassTypeExpr() *ast.ClassTypeExpr {
	loc := p.loc()
	p.advance() // 'class'
	var parent string
	if p.match(lexer.TokenLParen) {
		parent = p.consume(lexer.TokenIdent, "expected parent class name").Lexeme
		p.consume(lexer.TokenRParen, "expected ')' after parent class")
	}
	cls := &ast.ClassTypeExpr{Parent: parent, Base: ast.Base{P: loc}}
	for !p.check(lexer.TokenEnd) {
		p.skipVisibility()
		if p.check(lexer.TokenProcedure) || p.check(lexer.TokenFunction) {
			cls.Methods = append(cls.Methods, p.parseProcDecl())
			continue
		}
		names := []string{p.consume(lexer.TokenIdent, "expected field name").Lexeme}
		for p.match(lexer.TokenComma) {
			names = append(names, p.consume(lexer.TokenIdent, "expected field name").Lexeme)
		}
		p.consume(lexer.TokenColon, "expected ':' in field declaration")
		t := p.parseTypeExpr()
		p.consume(lexer.TokenSemicolon, "expected ';' after field declaration")
		for _, n := range names {
			cls.Fields = append(cls.Fields, ast.ClassField{Name: n, Type: t})
		}
	}
	p.consume(lexer.TokenEnd, "expected 'end' after class body")
	return cls
}

func (p *Parser) skipVisibility() {
	switch {
	case p.match(lexer.TokenPublic), p.match(lexer.TokenProtected), p.match(lexer.TokenPrivate):
	}
}

// --- var section ---

func (p *Parser) parseVarSection() []ast.Decl {
	p.advance() // 'var'
	var decls []ast.Decl
	for p.check(lexer.TokenIdent) {
		loc := p.loc()
		names := []string{p.advance().Lexeme}
		for p.match(lexer.TokenComma) {
			names = append(names, p.advance().Lexeme)
		}
		p.consume(lexer.TokenColon, "expected ':' in var declaration")
		t := p.parseTypeExpr()
		var init ast.Expr
		if p.match(lexer.TokenEqual) {
			init = p.parseExpression()
		}
		p.consume(lexer.TokenSemicolon, "expected ';' after var declaration")
		decls = append(decls, &ast.VarDecl{Names: names, Type: t, Init: init, Base: ast.Base{P: loc}})
	}
	return decls
}

// --- procedure / function ---

func (p *Parser) parseProcDecl() *ast.ProcDecl {
	loc := p.loc()
	isFunc := p.check(lexer.TokenFunction)
	p.advance() // 'procedure' | 'function'
	name := p.consume(lexer.TokenIdent, "expected procedure/function name").Lexeme
	var receiver string
	if p.match(lexer.TokenDot) {
		receiver = name
		name = p.consume(lexer.TokenIdent, "expected method name").Lexeme
	}

	var params []ast.ParamDecl
	if p.match(lexer.TokenLParen) {
		for !p.check(lexer.TokenRParen) {
			byRef := p.match(lexer.TokenVar)
			names := []string{p.consume(lexer.TokenIdent, "expected parameter name").Lexeme}
			for p.match(lexer.TokenComma) && !p.check(lexer.TokenColon) {
				names = append(names, p.consume(lexer.TokenIdent, "expected parameter name").Lexeme)
			}
			p.consume(lexer.TokenColon, "expected ':' in parameter declaration")
			t := p.parseTypeExpr()
			var def ast.Expr
			if p.match(lexer.TokenEqual) {
				def = p.parseExpression()
			}
			for _, n := range names {
				params = append(params, ast.ParamDecl{Name: n, Type: t, ByRef: byRef, Default: def})
			}
			if !p.match(lexer.TokenSemicolon) {
				break
			}
		}
		p.consume(lexer.TokenRParen, "expected ')' after parameter list")
	}

	var ret ast.TypeExpr
	if isFunc {
		p.consume(lexer.TokenColon, "expected ':' before function return type")
		ret = p.parseTypeExpr()
	}
	p.consume(lexer.TokenSemicolon, "expected ';' after procedure/function header")

	external := false
	if p.match(lexer.TokenExternal) {
		external = true
		p.consume(lexer.TokenSemicolon, "expected ';' after external directive")
	}
	if p.match(lexer.TokenForward) {
		p.consume(lexer.TokenSemicolon, "expected ';' after forward directive")
		return &ast.ProcDecl{Name: name, Receiver: receiver, Params: params, ReturnType: ret, Base: ast.Base{P: loc}}
	}
	if external {
		return &ast.ProcDecl{Name: name, Receiver: receiver, Params: params, ReturnType: ret, External: true, Base: ast.Base{P: loc}}
	}

	body := p.parseBlock()
	p.consume(lexer.TokenSemicolon, "expected ';' after procedure/function body")
	return &ast.ProcDecl{Name: name, Receiver: receiver, Params: params, ReturnType: ret, Body: body, Base: ast.Base{P: loc}}
}

// --- statements ---

func (p *Parser) parseCompoundStmt() *ast.CompoundStmt {
	loc := p.loc()
	p.consume(lexer.TokenBegin, "expected 'begin'")
	var stmts []ast.Stmt
	for !p.check(lexer.TokenEnd) {
		stmts = append(stmts, p.parseStatement())
		if !p.match(lexer.TokenSemicolon) {
			break
		}
	}
	p.consume(lexer.TokenEnd, "expected 'end'")
	return &ast.CompoundStmt{Stmts: stmts, Base: ast.Base{P: loc}}
}

func (p *Parser) parseStatement() ast.Stmt {
	loc := p.loc()
	switch {
	case p.check(lexer.TokenBegin):
		return p.parseCompoundStmt()
	case p.match(lexer.TokenIf):
		return p.parseIfStmt(loc)
	case p.match(lexer.TokenWhile):
		cond := p.parseExpression()
		p.consume(lexer.TokenDo, "expected 'do' after while condition")
		body := p.parseStatement()
		return &ast.WhileStmt{Cond: cond, Body: body, Base: ast.Base{P: loc}}
	case p.match(lexer.TokenRepeat):
		var stmts []ast.Stmt
		for !p.check(lexer.TokenUntil) {
			stmts = append(stmts, p.parseStatement())
			if !p.match(lexer.TokenSemicolon) {
				break
			}
		}
		p.consume(lexer.TokenUntil, "expected 'until' after repeat body")
		cond := p.parseExpression()
		return &ast.RepeatStmt{Stmts: stmts, Cond: cond, Base: ast.Base{P: loc}}
	case p.match(lexer.TokenFor):
		return p.parseForStmt(loc)
	case p.match(lexer.TokenCase):
		return p.parseCaseStmt(loc)
	case p.match(lexer.TokenWith):
		rec := p.parseExpression()
		p.consume(lexer.TokenDo, "expected 'do' after with target")
		body := p.parseStatement()
		return &ast.WithStmt{Record: rec, Body: body, Base: ast.Base{P: loc}}
	case p.match(lexer.TokenWrite):
		return p.parseWriteStmt(loc, false)
	case p.match(lexer.TokenWriteln):
		return p.parseWriteStmt(loc, true)
	case p.match(lexer.TokenBreak):
		return &ast.BreakStmt{Base: ast.Base{P: loc}}
	case p.match(lexer.TokenContinue):
		return &ast.ContinueStmt{Base: ast.Base{P: loc}}
	case p.match(lexer.TokenGoto):
		name := p.consume(lexer.TokenIdent, "expected label after 'goto'").Lexeme
		return &ast.GotoStmt{Label: name, Base: ast.Base{P: loc}}
	case p.match(lexer.TokenTry):
		return p.parseTryStmt(loc)
	case p.match(lexer.TokenRaise):
		if p.check(lexer.TokenSemicolon) || p.check(lexer.TokenEnd) {
			return &ast.RaiseStmt{Base: ast.Base{P: loc}}
		}
		return &ast.RaiseStmt{Value: p.parseExpression(), Base: ast.Base{P: loc}}
	case p.checkNext(lexer.TokenColon) && p.check(lexer.TokenIdent):
		name := p.advance().Lexeme
		p.advance() // ':'
		return &ast.LabelStmt{Name: name, Stmt: p.parseStatement(), Base: ast.Base{P: loc}}
	default:
		return p.parseSimpleStmt(loc)
	}
}

func (p *Parser) parseSimpleStmt(loc ast.Pos) ast.Stmt {
	expr := p.parseExpression()
	if p.match(lexer.TokenAssign) {
		value := p.parseExpression()
		return &ast.AssignStmt{Target: expr, Value: value, Base: ast.Base{P: loc}}
	}
	return &ast.ExprStmt{X: expr, Base: ast.Base{P: loc}}
}

func (p *Parser) parseIfStmt(loc ast.Pos) ast.Stmt {
	cond := p.parseExpression()
	p.consume(lexer.TokenThen, "expected 'then' after if condition")
	thenS := p.parseStatement()
	var elseS ast.Stmt
	if p.match(lexer.TokenElse) {
		elseS = p.parseStatement()
	}
	return &ast.IfStmt{Cond: cond, Then: thenS, Else: elseS, Base: ast.Base{P: loc}}
}

func (p *Parser) parseForStmt(loc ast.Pos) ast.Stmt {
	v := p.consume(lexer.TokenIdent, "expected loop variable").Lexeme
	p.consume(lexer.TokenAssign, "expected ':=' in for statement")
	start := p.parseExpression()
	down := p.match(lexer.TokenDownto)
	if !down {
		p.consume(lexer.TokenTo, "expected 'to' or 'downto' in for statement")
	}
	stop := p.parseExpression()
	p.consume(lexer.TokenDo, "expected 'do' after for range")
	body := p.parseStatement()
	return &ast.ForStmt{Var: v, Start: start, Stop: stop, Down: down, Body: body, Base: ast.Base{P: loc}}
}

func (p *Parser) parseCaseStmt(loc ast.Pos) ast.Stmt {
	sel := p.parseExpression()
	p.consume(lexer.TokenOf, "expected 'of' after case selector")
	cs := &ast.CaseStmt{Selector: sel, Base: ast.Base{P: loc}}
	for !p.check(lexer.TokenEnd) && !p.check(lexer.TokenElse) {
		var labels []ast.Expr
		labels = append(labels, p.parseExpression())
		for p.match(lexer.TokenComma) {
			labels = append(labels, p.parseExpression())
		}
		p.consume(lexer.TokenColon, "expected ':' after case labels")
		body := p.parseStatement()
		cs.Arms = append(cs.Arms, ast.CaseArm{Labels: labels, Body: body})
		p.match(lexer.TokenSemicolon)
	}
	if p.match(lexer.TokenElse) {
		var stmts []ast.Stmt
		for !p.check(lexer.TokenEnd) {
			stmts = append(stmts, p.parseStatement())
			if !p.match(lexer.TokenSemicolon) {
				break
			}
		}
		cs.Default = &ast.CompoundStmt{Stmts: stmts, Base: ast.Base{P: loc}}
	}
	p.consume(lexer.TokenEnd, "expected 'end' after case statement")
	return cs
}

func (p *Parser) parseWriteStmt(loc ast.Pos, newline bool) ast.Stmt {
	var args []ast.Expr
	if p.match(lexer.TokenLParen) {
		if !p.check(lexer.TokenRParen) {
			args = append(args, p.parseExpression())
			for p.match(lexer.TokenComma) {
				args = append(args, p.parseExpression())
			}
		}
		p.consume(lexer.TokenRParen, "expected ')' after write arguments")
	}
	return &ast.WriteStmt{Args: args, Newline: newline, Base: ast.Base{P: loc}}
}

func (p *Parser) parseTryStmt(loc ast.Pos) ast.Stmt {
	var body []ast.Stmt
	for !p.check(lexer.TokenExcept) && !p.check(lexer.TokenFinally) {
		body = append(body, p.parseStatement())
		if !p.match(lexer.TokenSemicolon) {
			break
		}
	}
	ts := &ast.TryStmt{Body: body, Base: ast.Base{P: loc}}
	if p.match(lexer.TokenExcept) {
		for !p.check(lexer.TokenEnd) {
			ts.ExceptBody = append(ts.ExceptBody, p.parseStatement())
			if !p.match(lexer.TokenSemicolon) {
				break
			}
		}
	} else if p.match(lexer.TokenFinally) {
		for !p.check(lexer.TokenEnd) {
			ts.FinallyBody = append(ts.FinallyBody, p.parseStatement())
			if !p.match(lexer.TokenSemicolon) {
				break
			}
		}
	}
	p.consume(lexer.TokenEnd, "expected 'end' after try statement")
	return ts
}

// --- expressions, precedence from lowest to highest: relational,
// additive, multiplicative, unary, postfix, primary. ---

func (p *Parser) parseExpression() ast.Expr { return p.parseRelational() }

func (p *Parser) parseRelational() ast.Expr {
	left := p.parseAdditive()
	for {
		loc := p.loc()
		var op string
		switch {
		case p.match(lexer.TokenEqual):
			op = "="
		case p.match(lexer.TokenNotEqual):
			op = "<>"
		case p.match(lexer.TokenLT):
			op = "<"
		case p.match(lexer.TokenGT):
			op = ">"
		case p.match(lexer.TokenLE):
			op = "<="
		case p.match(lexer.TokenGE):
			op = ">="
		case p.match(lexer.TokenIn):
			op = "in"
		default:
			return left
		}
		right := p.parseAdditive()
		left = &ast.BinaryExpr{Left: left, Operator: op, Right: right, Base: ast.Base{P: loc}}
	}
}

func (p *Parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for {
		loc := p.loc()
		var op string
		switch {
		case p.match(lexer.TokenPlus):
			op = "+"
		case p.match(lexer.TokenMinus):
			op = "-"
		case p.match(lexer.TokenOr):
			op = "or"
		case p.match(lexer.TokenXor):
			op = "xor"
		default:
			return left
		}
		right := p.parseMultiplicative()
		left = &ast.BinaryExpr{Left: left, Operator: op, Right: right, Base: ast.Base{P: loc}}
	}
}

func (p *Parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	for {
		loc := p.loc()
		var op string
		switch {
		case p.match(lexer.TokenStar):
			op = "*"
		case p.match(lexer.TokenSlash):
			op = "/"
		case p.match(lexer.TokenDiv):
			op = "div"
		case p.match(lexer.TokenMod):
			op = "mod"
		case p.match(lexer.TokenAnd):
			op = "and"
		case p.match(lexer.TokenShl):
			op = "shl"
		case p.match(lexer.TokenShr):
			op = "shr"
		default:
			return left
		}
		right := p.parseUnary()
		left = &ast.BinaryExpr{Left: left, Operator: op, Right: right, Base: ast.Base{P: loc}}
	}
}

func (p *Parser) parseUnary() ast.Expr {
	loc := p.loc()
	switch {
	case p.match(lexer.TokenNot):
		return &ast.UnaryExpr{Operator: "not", Operand: p.parseUnary(), Base: ast.Base{P: loc}}
	case p.match(lexer.TokenMinus):
		return &ast.UnaryExpr{Operator: "-", Operand: p.parseUnary(), Base: ast.Base{P: loc}}
	case p.match(lexer.TokenPlus):
		return p.parseUnary()
	case p.match(lexer.TokenAt):
		return &ast.AddressOfExpr{Operand: p.parseUnary(), Base: ast.Base{P: loc}}
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() ast.Expr {
	expr := p.parsePrimary()
	for {
		loc := p.loc()
		switch {
		case p.match(lexer.TokenLParen):
			var args []ast.Expr
			if !p.check(lexer.TokenRParen) {
				args = append(args, p.parseExpression())
				for p.match(lexer.TokenComma) {
					args = append(args, p.parseExpression())
				}
			}
			p.consume(lexer.TokenRParen, "expected ')' after call arguments")
			expr = &ast.CallExpr{Callee: expr, Args: args, Base: ast.Base{P: loc}}
		case p.match(lexer.TokenLBracket):
			idx := p.parseExpression()
			p.consume(lexer.TokenRBracket, "expected ']' after index")
			expr = &ast.IndexExpr{Object: expr, Index: idx, Base: ast.Base{P: loc}}
		case p.match(lexer.TokenDot):
			name := p.consume(lexer.TokenIdent, "expected field name after '.'").Lexeme
			expr = &ast.FieldExpr{Object: expr, Name: name, Base: ast.Base{P: loc}}
		case p.match(lexer.TokenCaret):
			expr = &ast.DerefExpr{Operand: expr, Base: ast.Base{P: loc}}
		default:
			return expr
		}
	}
}

func (p *Parser) parsePrimary() ast.Expr {
	loc := p.loc()
	tok := p.advance()
	switch tok.Type {
	case lexer.TokenInt:
		n, _ := strconv.ParseInt(tok.Lexeme, 10, 64)
		return &ast.LiteralExpr{Value: n, Base: ast.Base{P: loc}}
	case lexer.TokenFloat:
		f, _ := strconv.ParseFloat(tok.Lexeme, 64)
		return &ast.LiteralExpr{Value: f, Base: ast.Base{P: loc}}
	case lexer.TokenString:
		return &ast.LiteralExpr{Value: tok.Lexeme, Base: ast.Base{P: loc}}
	case lexer.TokenChar:
		n, _ := strconv.Atoi(tok.Lexeme)
		return &ast.LiteralExpr{Value: rune(n), Base: ast.Base{P: loc}}
	case lexer.TokenTrue:
		return &ast.LiteralExpr{Value: true, Base: ast.Base{P: loc}}
	case lexer.TokenFalse:
		return &ast.LiteralExpr{Value: false, Base: ast.Base{P: loc}}
	case lexer.TokenIdent:
		return &ast.IdentExpr{Name: tok.Lexeme, Base: ast.Base{P: loc}}
	case lexer.TokenShl, lexer.TokenShr:
		// In operand position shl/shr name the stdlib functions: shl(1, 4).
		return &ast.IdentExpr{Name: tok.Lexeme, Base: ast.Base{P: loc}}
	case lexer.TokenLParen:
		e := p.parseExpression()
		p.consume(lexer.TokenRParen, "expected ')' after parenthesized expression")
		return e
	case lexer.TokenLBracket:
		var elems []ast.Expr
		if !p.check(lexer.TokenRBracket) {
			elems = append(elems, p.parseExpression())
			for p.match(lexer.TokenComma) {
				elems = append(elems, p.parseExpression())
			}
		}
		p.consume(lexer.TokenRBracket, "expected ']' after set literal")
		return &ast.SetLiteralExpr{Elements: elems, Base: ast.Base{P: loc}}
	default:
		p.fail(tok, "unexpected token %q in expression", tok.Lexeme)
		return nil
	}
}

// --- token cursor helpers ---

func (p *Parser) match(t lexer.TokenType) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) consume(t lexer.TokenType, msg string) lexer.Token {
	if p.check(t) {
		return p.advance()
	}
	p.fail(p.peek(), "%s (got %q)", msg, p.peek().Lexeme)
	return lexer.Token{}
}

func (p *Parser) fail(tok lexer.Token, format string, args ...interface{}) {
	err := errors.NewSyntaxError(fmt.Sprintf(format, args...), p.file, tok.Line, tok.Column)
	if tok.Line > 0 && tok.Line <= len(p.sourceLines) {
		err = err.WithSource(p.sourceLines[tok.Line-1])
	}
	panic(err)
}

func (p *Parser) check(t lexer.TokenType) bool {
	return !p.isAtEnd() && p.peek().Type == t
}

func (p *Parser) checkNext(t lexer.TokenType) bool {
	if p.current+1 >= len(p.tokens) {
		return false
	}
	return p.tokens[p.current+1].Type == t
}

func (p *Parser) advance() lexer.Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.tokens[p.current-1]
}

func (p *Parser) peek() lexer.Token { return p.tokens[p.current] }

func (p *Parser) isAtEnd() bool { return p.peek().Type == lexer.TokenEOF }
