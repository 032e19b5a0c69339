package internal

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenize(t *testing.T, src string) []*Token {
	t.Helper()
	tokenizer := &Tokenizer{}
	tokens, err := tokenizer.Tokenize(strings.NewReader(src))
	require.NoError(t, err)
	return tokens
}

func parseClass(t *testing.T, src string) *ClassAst {
	t.Helper()
	class, err := Parse(tokenize(t, src))
	require.NoError(t, err)
	return class
}

// parseBody parses statements as the body of function A.f.
func parseBody(t *testing.T, statements string) []StatementAst {
	t.Helper()
	class := parseClass(t, "class A { function void f() { "+statements+" } }")
	return class.Subroutines[0].Body.Statements
}

func TestParser_ParseExpression(t *testing.T) {
	testData := []struct {
		Content string
	}{
		{Content: "a + b"},
		{Content: "a + b * c"},
		{Content: "a * b + c * d"},
		{Content: "a[1 + e * f] * g + b * c"},
		{Content: "a.b(d, e * i) + c * f + g[h * i]"},
		{Content: "a.b(c[1] + d.e(f)) + g[i * j.l(m)] + h"},
		{Content: "b(c, e) + f"},
		{Content: "(a + b + (c * (a + (b)))) * c + (a * (a + b))"},
		{Content: "a = 1 & c = 2"},
		{Content: "i = 1 * 1 + 1 | j = 2"},
		{Content: "i | j = 2 + 1 = 3 * 2 - 1 | 0 * 4 & h / 3 | 8 > 3 | 3 * 2 + 1 < 9"},
		{Content: "-a + ~b"},
		{Content: "\"str\" = null"},
		{Content: "this = true & false"},
	}
	parser := &Parser{}
	for _, data := range testData {
		tokens := tokenize(t, data.Content)
		parser.reset(tokens)
		ast, err := parser.parseExpression()
		assert.NoError(t, err, data.Content)
		assert.NotNil(t, ast, data.Content)
		assert.False(t, parser.hasRemainTokens(), data.Content)
	}
}

func TestParser_ExpressionIsFlat(t *testing.T) {
	parser := &Parser{}
	parser.reset(tokenize(t, "1 + 2 * 3 - x"))
	expr, err := parser.parseExpression()
	require.NoError(t, err)

	assert.Equal(t, &IntegerConstantTerm{Value: 1}, expr.Term)
	require.Len(t, expr.Ops, 3)
	assert.Equal(t, AddOpTP, expr.Ops[0].Op)
	assert.Equal(t, &IntegerConstantTerm{Value: 2}, expr.Ops[0].Term)
	assert.Equal(t, MultipleOpTP, expr.Ops[1].Op)
	assert.Equal(t, MinusOpTP, expr.Ops[2].Op)
	assert.Equal(t, &VarNameTerm{VarName: "x"}, expr.Ops[2].Term)
}

func TestParser_IdentifierTerms(t *testing.T) {
	testData := []struct {
		Content string
		Term    TermAst
	}{
		{Content: "a", Term: &VarNameTerm{VarName: "a"}},
		{Content: "a[1]", Term: &ArrayIndexTerm{VarName: "a", Index: &ExpressionAst{Term: &IntegerConstantTerm{Value: 1}}}},
		{Content: "a()", Term: &CallAst{FuncName: "a"}},
		{Content: "a.b()", Term: &CallAst{FuncProvider: "a", FuncName: "b"}},
		{Content: "a.b(1, c)", Term: &CallAst{FuncProvider: "a", FuncName: "b", Params: []*ExpressionAst{
			{Term: &IntegerConstantTerm{Value: 1}},
			{Term: &VarNameTerm{VarName: "c"}},
		}}},
		{Content: "-a", Term: &UnaryOpTerm{Op: NegationOpTP, Term: &VarNameTerm{VarName: "a"}}},
		{Content: "~(a)", Term: &UnaryOpTerm{Op: BooleanNegationOpTP, Term: &SubExpressionTerm{Expr: &ExpressionAst{Term: &VarNameTerm{VarName: "a"}}}}},
		{Content: "\"a b\"", Term: &StringConstantTerm{Value: "a b"}},
		{Content: "null", Term: &KeywordConstantTerm{Keyword: NullKeywordConstant}},
		{Content: "32767", Term: &IntegerConstantTerm{Value: 32767}},
	}
	parser := &Parser{}
	for _, data := range testData {
		parser.reset(tokenize(t, data.Content))
		expr, err := parser.parseExpression()
		require.NoError(t, err, data.Content)
		assert.Empty(t, expr.Ops, data.Content)
		assert.Equal(t, data.Term, expr.Term, data.Content)
	}
}

func TestParser_ParseClass(t *testing.T) {
	class := parseClass(t, `
class Point {
	static int count;
	field int x, y;
	field Point next;

	constructor Point new(int ax, int ay) {
		let x = ax;
		let y = ay;
		return this;
	}

	method int sum() {
		var int s;
		var Array a, b;
		let s = x + y;
		return s;
	}

	function void reset() {
		do Output.printInt(count);
		return;
	}
}`)

	assert.Equal(t, "Point", class.ClassName)
	require.Len(t, class.ClassVariables, 3)
	assert.Equal(t, &ClassVariableAst{FieldTP: StaticFieldType, VariableType: VariableType{TP: IntVariableType}, VariableNames: []string{"count"}}, class.ClassVariables[0])
	assert.Equal(t, &ClassVariableAst{FieldTP: ObjectFieldType, VariableType: VariableType{TP: IntVariableType}, VariableNames: []string{"x", "y"}}, class.ClassVariables[1])
	assert.Equal(t, VariableType{TP: ClassVariableType, Name: "Point"}, class.ClassVariables[2].VariableType)

	require.Len(t, class.Subroutines, 3)

	ctor := class.Subroutines[0]
	assert.Equal(t, ClassConstructorType, ctor.FuncTP)
	assert.Equal(t, &VariableType{TP: ClassVariableType, Name: "Point"}, ctor.ReturnTP)
	assert.Equal(t, "new", ctor.FuncName)
	assert.Equal(t, []*FuncParamAst{
		{ParamTP: VariableType{TP: IntVariableType}, ParamName: "ax"},
		{ParamTP: VariableType{TP: IntVariableType}, ParamName: "ay"},
	}, ctor.Params)
	assert.Len(t, ctor.Body.Statements, 3)

	method := class.Subroutines[1]
	assert.Equal(t, ClassMethodType, method.FuncTP)
	assert.Empty(t, method.Params)
	assert.Equal(t, []*VarDeclareAst{
		{VarType: VariableType{TP: IntVariableType}, VarNames: []string{"s"}},
		{VarType: VariableType{TP: ClassVariableType, Name: "Array"}, VarNames: []string{"a", "b"}},
	}, method.Body.LocalVariables)

	function := class.Subroutines[2]
	assert.Equal(t, ClassFuncType, function.FuncTP)
	assert.Nil(t, function.ReturnTP)
	require.Len(t, function.Body.Statements, 2)
	assert.Equal(t, &DoStatementAst{Call: &CallAst{
		FuncProvider: "Output",
		FuncName:     "printInt",
		Params:       []*ExpressionAst{{Term: &VarNameTerm{VarName: "count"}}},
	}}, function.Body.Statements[0])
	assert.Equal(t, &ReturnStatementAst{}, function.Body.Statements[1])
}

func TestParser_EmptyClass(t *testing.T) {
	class := parseClass(t, "class Empty {}")
	assert.Equal(t, &ClassAst{ClassName: "Empty"}, class)
}

func TestParser_Statements(t *testing.T) {
	statements := parseBody(t, `
		let a[i] = 1;
		if (a) { return; }
		if (a) { } else { }
		while (~b) { do f(); }
		return a;`)
	require.Len(t, statements, 5)

	let := statements[0].(*LetStatementAst)
	assert.Equal(t, "a", let.VarName)
	assert.Equal(t, &ExpressionAst{Term: &VarNameTerm{VarName: "i"}}, let.ArrayIndex)
	assert.Equal(t, &ExpressionAst{Term: &IntegerConstantTerm{Value: 1}}, let.Value)

	ifNoElse := statements[1].(*IfStatementAst)
	assert.False(t, ifNoElse.HasElse)
	assert.Len(t, ifNoElse.IfTrueStatements, 1)
	assert.Empty(t, ifNoElse.ElseStatements)

	ifElse := statements[2].(*IfStatementAst)
	assert.True(t, ifElse.HasElse)
	assert.Empty(t, ifElse.IfTrueStatements)
	assert.Empty(t, ifElse.ElseStatements)

	while := statements[3].(*WhileStatementAst)
	assert.Equal(t, &UnaryOpTerm{Op: BooleanNegationOpTP, Term: &VarNameTerm{VarName: "b"}}, while.Condition.Term)
	assert.Equal(t, []StatementAst{&DoStatementAst{Call: &CallAst{FuncName: "f"}}}, while.Statements)

	ret := statements[4].(*ReturnStatementAst)
	assert.Equal(t, &ExpressionAst{Term: &VarNameTerm{VarName: "a"}}, ret.Value)
}

func TestParser_Errors(t *testing.T) {
	testData := []struct {
		Content  string
		Found    string
		Expected string
		EOF      bool
	}{
		{Content: "", Expected: "'class'", EOF: true},
		{Content: "function", Found: "function", Expected: "'class'"},
		{Content: "class", Expected: "class name", EOF: true},
		{Content: "class 1", Found: "1", Expected: "class name"},
		{Content: "class A", Expected: "'{'", EOF: true},
		{Content: "class A {", Expected: "'}'", EOF: true},
		{Content: "class A { } }", Found: "}", Expected: "end of input"},
		{Content: "class A { } class B { }", Found: "class", Expected: "end of input"},
		{Content: "class A { field x; }", Found: ";", Expected: "variable name"},
		{Content: "class A { static int x y; }", Found: "y", Expected: "',' or ';'"},
		{Content: "class A { field int x, ; }", Found: ";", Expected: "variable name"},
		{Content: "class A { function f() {} }", Found: "(", Expected: "subroutine name"},
		{Content: "class A { function void () {} }", Found: "(", Expected: "subroutine name"},
		{Content: "class A { function void f {} }", Found: "{", Expected: "'('"},
		{Content: "class A { function void f(int) {} }", Found: ")", Expected: "parameter name"},
		{Content: "class A { function void f(int a b) {} }", Found: "b", Expected: "',' or ')'"},
		{Content: "class A { function void f() return; }", Found: "return", Expected: "'{'"},
		{Content: "class A { function void f() { var int a; let a = 1; var int b; } }", Found: "var", Expected: "statement or '}'"},
		{Content: "class A { function void f() { let = 1; } }", Found: "=", Expected: "variable name"},
		{Content: "class A { function void f() { let a 1; } }", Found: "1", Expected: "'[' or '='"},
		{Content: "class A { function void f() { let a = 1 } }", Found: "}", Expected: "';'"},
		{Content: "class A { function void f() { let a[1 = 1; } }", Found: ";", Expected: "']'"},
		{Content: "class A { function void f() { let a = ; } }", Found: ";", Expected: "term"},
		{Content: "class A { function void f() { if a { } } }", Found: "a", Expected: "'('"},
		{Content: "class A { function void f() { if (a) return; } }", Found: "return", Expected: "'{'"},
		{Content: "class A { function void f() { if (a) { } else return; } }", Found: "return", Expected: "'{'"},
		{Content: "class A { function void f() { while (a { } } }", Found: "{", Expected: "')'"},
		{Content: "class A { function void f() { do 1; } }", Found: "1", Expected: "subroutine call"},
		{Content: "class A { function void f() { do f; } }", Found: ";", Expected: "'('"},
		{Content: "class A { function void f() { do a.; } }", Found: ";", Expected: "subroutine name"},
		{Content: "class A { function void f() { do f(1 2); } }", Found: "2", Expected: "',' or ')'"},
		{Content: "class A { function void f() { return 1 2; } }", Found: "2", Expected: "';'"},
		{Content: "class A { function void f() { let a = \"s\" + ; } }", Found: ";", Expected: "term"},
		{Content: "class A { function void f() { let a = (1; } }", Found: ";", Expected: "')'"},
		{Content: "class A { function void f() { do foo(", Expected: "term", EOF: true},
		{Content: "class A { function void f() { return", Expected: "';' or expression", EOF: true},
	}
	for _, data := range testData {
		tokens := tokenize(t, data.Content)
		class, err := Parse(tokens)
		assert.Nil(t, class, data.Content)
		var syntaxErr *SyntaxError
		if !assert.True(t, errors.As(err, &syntaxErr), "%s: %v", data.Content, err) {
			continue
		}
		assert.Equal(t, data.EOF, syntaxErr.EOF, data.Content)
		assert.Equal(t, data.Found, syntaxErr.Found, data.Content)
		assert.Equal(t, data.Expected, syntaxErr.Expected, data.Content)
	}
}

func TestParser_TruncatedCall(t *testing.T) {
	parser := &Parser{}
	parser.reset(tokenize(t, "do foo("))
	stm, err := parser.parseStatement()
	assert.Nil(t, stm)
	require.Error(t, err)
	assert.Equal(t, "syntax error: unexpected end of input, expected term", err.Error())
}

func TestParser_ErrorLine(t *testing.T) {
	_, err := Parse(tokenize(t, "class A {\n  function void f() {\n    let x = 1\n  }\n}\n"))
	require.Error(t, err)
	assert.Equal(t, "syntax error near } at line 4, expected ';'", err.Error())
}

func TestParser_IntegerRange(t *testing.T) {
	tokens := []*Token{NewToken(IntegerTP, "32768")}
	parser := &Parser{}
	parser.reset(tokens)
	_, err := parser.parseExpression()
	var rangeErr *RangeError
	require.True(t, errors.As(err, &rangeErr))
	assert.Equal(t, 32768, rangeErr.Value)
	assert.Equal(t, MaxInteger, rangeErr.Max)
}

func TestParser_RoundTrip(t *testing.T) {
	testData := []string{
		"class Empty {}",
		`class Point {
			static int count;
			field int x, y;
			field Point next;
			constructor Point new(int ax, Point n) { let x = ax; let next = n; return this; }
			method int sum() { var int s; var Array a, b; let s = x + y; let a[s - 1] = -s; return s; }
			method boolean eq(Point o) { return (x = o.getX()) & ~(y = o.getY()); }
			function void f() {
				var String str;
				let str = "hello, world";
				if (true) { do f(); } else { }
				if (false | null) { }
				while (count < 10) { let count = count * 2 / 1; do Output.printInt(count); }
				return;
			}
			method char c() { return 65; }
		}`,
	}
	for _, src := range testData {
		class := parseClass(t, src)
		tokens := class.Tokens()
		again, err := Parse(tokens)
		require.NoError(t, err, Source(tokens))
		assert.Equal(t, class, again)

		fromText := parseClass(t, Source(tokens))
		assert.Equal(t, class, fromText)
	}
}
