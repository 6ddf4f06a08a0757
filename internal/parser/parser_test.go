package parser

import (
	"testing"

	"tickbench/internal/ast"
	"tickbench/internal/lexer"
)

func mustParse(t *testing.T, src string) *ast.Ast {
	t.Helper()
	tokens, err := lexer.Lex(src)
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	a, err := Parse(tokens)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return a
}

func TestParseSpawnProcess(t *testing.T) {
	a := mustParse(t, `spawn_process("A", 1, 0, [(Cpu, 3), (Io, 2)])`)
	if len(a.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(a.Statements))
	}
	stmt := a.Statements[0]
	if stmt.Kind != ast.ExpressionStatement {
		t.Fatalf("expected ExpressionStatement, got %v", stmt.Kind)
	}
	call := a.Expr(stmt.Expr)
	if call.Kind != ast.Call {
		t.Fatalf("expected top-level Call, got %s", call.Kind)
	}
	if call.Identifier.Lexeme != "spawn_process" {
		t.Fatalf("got callee %q", call.Identifier.Lexeme)
	}
	if len(call.Arguments) != 4 {
		t.Fatalf("expected 4 arguments, got %d", len(call.Arguments))
	}

	listArg := a.Expr(call.Arguments[3])
	if listArg.Kind != ast.List || len(listArg.Elements) != 2 {
		t.Fatalf("expected a 2-element list for events, got %+v", listArg)
	}
	tupleArg := a.Expr(listArg.Elements[0])
	if tupleArg.Kind != ast.Tuple || len(tupleArg.Elements) != 2 {
		t.Fatalf("expected a 2-element tuple event, got %+v", tupleArg)
	}
}

func TestParseConstant(t *testing.T) {
	a := mustParse(t, "max_processes :: 50")
	constExpr := a.Expr(a.Statements[0].Expr)
	if constExpr.Kind != ast.Constant {
		t.Fatalf("expected Constant, got %s", constExpr.Kind)
	}
	if constExpr.Name.Lexeme != "max_processes" {
		t.Fatalf("got knob name %q", constExpr.Name.Lexeme)
	}
	value := a.Expr(constExpr.Value)
	if value.Kind != ast.Number || value.Token.Lexeme != "50" {
		t.Fatalf("got knob value %+v", value)
	}
}

func TestParseForLoop(t *testing.T) {
	a := mustParse(t, "for 0..10 {\n spawn_random_process()\n}")
	forExpr := a.Expr(a.Statements[0].Expr)
	if forExpr.Kind != ast.For {
		t.Fatalf("expected For, got %s", forExpr.Kind)
	}
	rangeExpr := a.Expr(forExpr.RangeExpr)
	if rangeExpr.Kind != ast.Range || rangeExpr.RangeStart.Lexeme != "0" || rangeExpr.RangeEnd.Lexeme != "10" {
		t.Fatalf("got range %+v", rangeExpr)
	}
	if len(forExpr.Body) != 1 {
		t.Fatalf("expected 1 body expression, got %d", len(forExpr.Body))
	}
	call := a.Expr(forExpr.Body[0])
	if call.Kind != ast.Call || call.Identifier.Lexeme != "spawn_random_process" {
		t.Fatalf("got body expr %+v", call)
	}
}

func TestParseVariable(t *testing.T) {
	a := mustParse(t, "Cpu")
	v := a.Expr(a.Statements[0].Expr)
	if v.Kind != ast.Variable || v.Token.Lexeme != "Cpu" {
		t.Fatalf("got %+v", v)
	}
}

func TestParseTrailingComma(t *testing.T) {
	a := mustParse(t, `spawn_process("A", 1, 0, [(Cpu, 3),])`)
	call := a.Expr(a.Statements[0].Expr)
	listArg := a.Expr(call.Arguments[3])
	if len(listArg.Elements) != 1 {
		t.Fatalf("expected trailing comma to be tolerated, got %+v", listArg)
	}
}

func TestParseMultipleStatements(t *testing.T) {
	a := mustParse(t, "max_processes :: 5\nspawn_random_process()\nspawn_random_process()")
	if len(a.Statements) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(a.Statements))
	}
}

func TestParseExpressionIDsAreMonotonic(t *testing.T) {
	a := mustParse(t, `spawn_process("A", 1, 0, [(Cpu, 3), (Io, 2)])`)
	for id, expr := range a.Expressions {
		for _, child := range expr.Elements {
			if int(child) >= id {
				t.Fatalf("expression %d references child %d, which is not strictly earlier", id, child)
			}
		}
	}
}

func TestParseUnterminatedCallIsError(t *testing.T) {
	tokens, err := lexer.Lex(`spawn_process("A", 1, 0`)
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	if _, err := Parse(tokens); err == nil {
		t.Fatalf("expected a parse error for an unterminated call")
	}
}

func TestParseLoneIdentifierIsVariableNotError(t *testing.T) {
	a := mustParse(t, "Io")
	expr := a.Expr(a.Statements[0].Expr)
	if expr.Kind != ast.Variable {
		t.Fatalf("expected Variable, got %s", expr.Kind)
	}
}
