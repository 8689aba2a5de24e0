package parser

import (
	"testing"

	"github.com/achronyme/achronyme/ast"
	"github.com/achronyme/achronyme/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	file := &source.File{Filename: "<test>", Contents: src}
	prog, err := Parse(file)
	require.NoError(t, err)
	return prog
}

func TestParsesArithmeticPrecedence(t *testing.T) {
	prog := mustParse(t, "2 + 3 * 4")
	require.Len(t, prog.Statements, 1)
	es := prog.Statements[0].(*ast.ExprStmt)
	bin := es.X.(*ast.BinaryExpr)
	assert.Equal(t, "+", bin.Operator)
	_, rightIsMul := bin.Right.(*ast.BinaryExpr)
	assert.True(t, rightIsMul, "* should bind tighter than + so it nests on the right")
}

func TestParsesLetAndLambda(t *testing.T) {
	prog := mustParse(t, `let f = (n) => n * 2`)
	let := prog.Statements[0].(*ast.LetStmt)
	assert.False(t, let.Mutable)
	ident := let.Target.(*ast.IdentPattern)
	assert.Equal(t, "f", ident.Name)
	fn := let.Assignment.(*ast.FuncExpr)
	require.Len(t, fn.Params, 1)
	assert.Equal(t, "n", fn.Params[0].Name)
}

func TestParsesMutAndAssignment(t *testing.T) {
	prog := mustParse(t, "mut count = 0\ncount = count + 1")
	let := prog.Statements[0].(*ast.LetStmt)
	assert.True(t, let.Mutable)
	assign := prog.Statements[1].(*ast.AssignStmt)
	assert.Equal(t, "=", assign.Operator)
}

func TestParsesIfElseExpression(t *testing.T) {
	prog := mustParse(t, `if (n <= 1) { 1 } else { n }`)
	es := prog.Statements[0].(*ast.ExprStmt)
	ifExpr := es.X.(*ast.IfExpr)
	require.NotNil(t, ifExpr.Else)
}

func TestParsesGenerateAndYield(t *testing.T) {
	prog := mustParse(t, `generate { yield 1; yield 2 }`)
	es := prog.Statements[0].(*ast.ExprStmt)
	gen := es.X.(*ast.GenerateExpr)
	require.Len(t, gen.Body, 2)
	_, ok := gen.Body[0].(*ast.ExprStmt).X.(*ast.YieldExpr)
	assert.True(t, ok)
}

func TestParsesVectorAndRecordLiterals(t *testing.T) {
	prog := mustParse(t, `[1, 2, 3]`)
	vec := prog.Statements[0].(*ast.ExprStmt).X.(*ast.VectorLit)
	assert.Len(t, vec.Elements, 3)

	prog2 := mustParse(t, `{ name: "Alice", age: 30 }`)
	rec := prog2.Statements[0].(*ast.ExprStmt).X.(*ast.RecordLit)
	require.Len(t, rec.Fields, 2)
	assert.Equal(t, "name", rec.Fields[0].Key)
}

func TestParsesDestructuringWithDefaultsAndTypePatterns(t *testing.T) {
	prog := mustParse(t, `let { name, age = 25 } = { name: "Alice" }`)
	let := prog.Statements[0].(*ast.LetStmt)
	rp := let.Target.(*ast.RecordPattern)
	require.Len(t, rp.Fields, 2)
	assert.Equal(t, "age", rp.Fields[1].Key)
	require.NotNil(t, rp.Fields[1].Default)

	prog2 := mustParse(t, `let { x: Number = 0 } = { x: "hi" }`)
	rp2 := prog2.Statements[0].(*ast.LetStmt).Target.(*ast.RecordPattern)
	assert.Equal(t, "Number", rp2.Fields[0].TypeAssert)
}

func TestParsesTryCatchThrow(t *testing.T) {
	prog := mustParse(t, `try { throw "boom" } catch (e) { e }`)
	exprStmt := prog.Statements[0].(*ast.ExprStmt)
	tryExpr := exprStmt.X.(*ast.TryExpr)
	assert.Equal(t, "e", tryExpr.CatchName)
	_, ok := tryExpr.Body[0].(*ast.ThrowStmt)
	assert.True(t, ok)
}

func TestParsesTryAsExpression(t *testing.T) {
	prog := mustParse(t, `let x = try { 1 / 0 } catch (e) { -1 }`)
	let := prog.Statements[0].(*ast.LetStmt)
	_, ok := let.Assignment.(*ast.TryExpr)
	assert.True(t, ok)
}

func TestParsesForInAndWhile(t *testing.T) {
	prog := mustParse(t, "for x in [1, 2] { x }\nwhile (true) { break }")
	forIn := prog.Statements[0].(*ast.ForInStmt)
	assert.Equal(t, "x", forIn.Binding)
	whileStmt := prog.Statements[1].(*ast.WhileStmt)
	_, ok := whileStmt.Body[0].(*ast.BreakStmt)
	assert.True(t, ok)
}

func TestRejectsUnterminatedString(t *testing.T) {
	file := &source.File{Filename: "<test>", Contents: `"unterminated`}
	_, err := Parse(file)
	assert.Error(t, err)
}
