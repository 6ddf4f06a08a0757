// Package parser turns a token stream into an ast.Ast, per spec §4.2.
package parser

import (
	"fmt"

	"tickbench/internal/ast"
	"tickbench/internal/token"
)

// Error is a parse diagnostic: an expected-token mismatch or a premature
// end of input. The parser does not recover across statements in this
// version (spec §4.2, §9 open question).
type Error struct {
	Msg  string
	Span token.Span
}

func (e *Error) Error() string {
	return fmt.Sprintf("[ERROR] (parser) %s at %s", e.Msg, e.Span)
}

type parser struct {
	tokens []token.Token
	cursor int
	ast    *ast.Ast
}

// Parse consumes tokens and produces an Ast, or the first Error
// encountered.
func Parse(tokens []token.Token) (*ast.Ast, error) {
	p := &parser{tokens: tokens, ast: ast.New()}

	for p.hasMore() {
		exprID, err := p.expression()
		if err != nil {
			return nil, err
		}
		p.ast.AddStatement(exprID)
	}

	return p.ast, nil
}

func (p *parser) hasMore() bool {
	return p.cursor < len(p.tokens)
}

func (p *parser) peek() (token.Token, bool) {
	if !p.hasMore() {
		return token.Token{}, false
	}
	return p.tokens[p.cursor], true
}

func (p *parser) lastSpan() token.Span {
	if p.cursor == 0 {
		return token.Span{}
	}
	return p.tokens[p.cursor-1].Span
}

func (p *parser) advance() token.Token {
	t := p.tokens[p.cursor]
	p.cursor++
	return t
}

func (p *parser) check(kind token.Kind) bool {
	t, ok := p.peek()
	return ok && t.Kind == kind
}

func (p *parser) checkKeyword(lexeme string) bool {
	t, ok := p.peek()
	return ok && t.Kind == token.Keyword && t.Lexeme == lexeme
}

func (p *parser) expect(kind token.Kind) (token.Token, error) {
	t, ok := p.peek()
	if !ok {
		return token.Token{}, &Error{
			Msg:  fmt.Sprintf("expected %s but reached end of input", kind),
			Span: p.lastSpan(),
		}
	}
	if t.Kind != kind {
		return token.Token{}, &Error{
			Msg:  fmt.Sprintf("expected %s but found %s", kind, t.Kind),
			Span: t.Span,
		}
	}
	return p.advance(), nil
}

// expression := ForLoop | Primary
func (p *parser) expression() (ast.ExpressionID, error) {
	if p.checkKeyword("for") {
		return p.forLoop()
	}
	return p.primary()
}

// ForLoop := 'for' Range '{' { Expression } '}'
func (p *parser) forLoop() (ast.ExpressionID, error) {
	forTok := p.advance() // 'for'

	rangeID, err := p.rangeExpr()
	if err != nil {
		return 0, err
	}

	if _, err := p.expect(token.LeftCurly); err != nil {
		return 0, err
	}

	body := make([]ast.ExpressionID, 0)
	for !p.check(token.RightCurly) {
		if !p.hasMore() {
			return 0, &Error{Msg: "unterminated 'for' body, expected '}'", Span: p.lastSpan()}
		}
		exprID, err := p.expression()
		if err != nil {
			return 0, err
		}
		body = append(body, exprID)
	}
	closeTok, err := p.expect(token.RightCurly)
	if err != nil {
		return 0, err
	}

	span := token.Join(forTok.Span, closeTok.Span)
	id := p.ast.AddExpression(ast.Expression{
		Kind:      ast.For,
		Span:      span,
		RangeExpr: rangeID,
		Body:      body,
	})
	return id, nil
}

// Range := Number '..' Number
func (p *parser) rangeExpr() (ast.ExpressionID, error) {
	start, err := p.expect(token.Number)
	if err != nil {
		return 0, err
	}
	if _, err := p.expect(token.DotDot); err != nil {
		return 0, err
	}
	end, err := p.expect(token.Number)
	if err != nil {
		return 0, err
	}
	id := p.ast.AddExpression(ast.Expression{
		Kind:       ast.Range,
		Span:       token.Join(start.Span, end.Span),
		RangeStart: start,
		RangeEnd:   end,
	})
	return id, nil
}

// Primary := CallOrConstOrVar | StringLiteral | Number | List | Tuple
func (p *parser) primary() (ast.ExpressionID, error) {
	t, ok := p.peek()
	if !ok {
		return 0, &Error{Msg: "expected an expression but reached end of input", Span: p.lastSpan()}
	}

	switch t.Kind {
	case token.Number:
		p.advance()
		return p.ast.AddExpression(ast.Expression{Kind: ast.Number, Span: t.Span, Token: t}), nil
	case token.StringLiteral:
		p.advance()
		return p.ast.AddExpression(ast.Expression{Kind: ast.StringLiteral, Span: t.Span, Token: t}), nil
	case token.LeftBracket:
		return p.list()
	case token.LeftParen:
		return p.tuple()
	case token.Identifier:
		return p.callOrConstantOrVariable()
	default:
		return 0, &Error{
			Msg:  fmt.Sprintf("expected an expression but found %s", t.Kind),
			Span: t.Span,
		}
	}
}

// CallOrConstOrVar :=
//
//	Identifier '(' ArgList? ')'    -- Call
//	Identifier '::' Primary        -- Constant
//	Identifier                     -- Variable
func (p *parser) callOrConstantOrVariable() (ast.ExpressionID, error) {
	name := p.advance() // Identifier

	if p.check(token.LeftParen) {
		return p.call(name)
	}
	if p.check(token.ColonColon) {
		p.advance() // '::'
		valueID, err := p.primary()
		if err != nil {
			return 0, err
		}
		valueSpan := p.ast.Expr(valueID).Span
		return p.ast.AddExpression(ast.Expression{
			Kind:  ast.Constant,
			Span:  token.Join(name.Span, valueSpan),
			Name:  name,
			Value: valueID,
		}), nil
	}

	return p.ast.AddExpression(ast.Expression{Kind: ast.Variable, Span: name.Span, Token: name}), nil
}

func (p *parser) call(identifier token.Token) (ast.ExpressionID, error) {
	if _, err := p.expect(token.LeftParen); err != nil {
		return 0, err
	}

	args, err := p.expressionListUntil(token.RightParen)
	if err != nil {
		return 0, err
	}

	closeTok, err := p.expect(token.RightParen)
	if err != nil {
		return 0, err
	}

	return p.ast.AddExpression(ast.Expression{
		Kind:       ast.Call,
		Span:       token.Join(identifier.Span, closeTok.Span),
		Identifier: identifier,
		Arguments:  args,
	}), nil
}

// List := '[' [ Expression { ',' Expression } ] ']'
func (p *parser) list() (ast.ExpressionID, error) {
	open, err := p.expect(token.LeftBracket)
	if err != nil {
		return 0, err
	}
	elements, err := p.expressionListUntil(token.RightBracket)
	if err != nil {
		return 0, err
	}
	closeTok, err := p.expect(token.RightBracket)
	if err != nil {
		return 0, err
	}
	return p.ast.AddExpression(ast.Expression{
		Kind:     ast.List,
		Span:     token.Join(open.Span, closeTok.Span),
		Elements: elements,
	}), nil
}

// Tuple := '(' [ Expression { ',' Expression } ] ')'
func (p *parser) tuple() (ast.ExpressionID, error) {
	open, err := p.expect(token.LeftParen)
	if err != nil {
		return 0, err
	}
	elements, err := p.expressionListUntil(token.RightParen)
	if err != nil {
		return 0, err
	}
	closeTok, err := p.expect(token.RightParen)
	if err != nil {
		return 0, err
	}
	return p.ast.AddExpression(ast.Expression{
		Kind:     ast.Tuple,
		Span:     token.Join(open.Span, closeTok.Span),
		Elements: elements,
	}), nil
}

// expressionListUntil parses a comma-separated list of expressions,
// allowing a trailing comma, stopping right before closer.
func (p *parser) expressionListUntil(closer token.Kind) ([]ast.ExpressionID, error) {
	elements := make([]ast.ExpressionID, 0)
	if p.check(closer) {
		return elements, nil
	}

	for {
		exprID, err := p.expression()
		if err != nil {
			return nil, err
		}
		elements = append(elements, exprID)

		if p.check(closer) {
			break
		}
		if _, err := p.expect(token.Comma); err != nil {
			return nil, err
		}
		if p.check(closer) { // trailing comma
			break
		}
	}

	return elements, nil
}
