package internal

import (
	"bytes"
	"strconv"
	"strings"
)

// The debug markup of tokens and of the parse tree. Every token is one line:
// <keyword> class </keyword>, and each grammar rule wraps its tokens in a tag:
// <class>, <classVarDec>, <subroutineDec>, <parameterList>, <subroutineBody>, <varDec>,
// <statements>, <letStatement>, <ifStatement>, <whileStatement>, <doStatement>,
// <returnStatement>, <expression>, <term>, <expressionList>.

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

// TokensXML is the flat <tokens> listing.
func TokensXML(tokens []*Token) []byte {
	w := &xmlWriter{}
	w.open("tokens")
	for _, token := range tokens {
		w.token(token.TP, token.Content)
	}
	w.close("tokens")
	return w.buf.Bytes()
}

// XML is the parse tree markup of the class.
func (class *ClassAst) XML() []byte {
	w := &xmlWriter{indent: true}
	w.class(class)
	return w.buf.Bytes()
}

type xmlWriter struct {
	buf    bytes.Buffer
	indent bool
	depth  int
}

func (w *xmlWriter) line(s string) {
	if w.indent {
		for i := 0; i < w.depth; i++ {
			w.buf.WriteString("  ")
		}
	}
	w.buf.WriteString(s)
	w.buf.WriteByte('\n')
}

func (w *xmlWriter) open(tag string) {
	w.line("<" + tag + ">")
	w.depth++
}

func (w *xmlWriter) close(tag string) {
	w.depth--
	w.line("</" + tag + ">")
}

func (w *xmlWriter) token(tp TokenType, content string) {
	tag := tp.Category().String()
	w.line("<" + tag + "> " + xmlEscaper.Replace(content) + " </" + tag + ">")
}

func (w *xmlWriter) add(tps ...TokenType) {
	for _, tp := range tps {
		w.token(tp, tp.Literal())
	}
}

func (w *xmlWriter) identifier(name string) {
	w.token(IdentifierTP, name)
}

func (w *xmlWriter) class(class *ClassAst) {
	w.open("class")
	w.add(ClassTP)
	w.identifier(class.ClassName)
	w.add(LeftBraceTP)
	for _, v := range class.ClassVariables {
		w.open("classVarDec")
		if v.FieldTP == StaticFieldType {
			w.add(StaticTP)
		} else {
			w.add(FieldTP)
		}
		w.names(v.VariableType, v.VariableNames)
		w.close("classVarDec")
	}
	for _, s := range class.Subroutines {
		w.subroutine(s)
	}
	w.add(RightBraceTP)
	w.close("class")
}

func (w *xmlWriter) names(tp VariableType, names []string) {
	w.variableType(tp)
	for i, name := range names {
		if i != 0 {
			w.add(CommaTP)
		}
		w.identifier(name)
	}
	w.add(SemiColonTP)
}

func (w *xmlWriter) variableType(tp VariableType) {
	switch tp.TP {
	case IntVariableType:
		w.add(IntTP)
	case CharVariableType:
		w.add(CharTP)
	case BooleanVariableType:
		w.add(BooleanTP)
	default:
		w.identifier(tp.Name)
	}
}

func (w *xmlWriter) subroutine(s *SubroutineAst) {
	w.open("subroutineDec")
	switch s.FuncTP {
	case ClassConstructorType:
		w.add(ConstructorTP)
	case ClassMethodType:
		w.add(MethodTP)
	default:
		w.add(FunctionTP)
	}
	if s.ReturnTP == nil {
		w.add(VoidTP)
	} else {
		w.variableType(*s.ReturnTP)
	}
	w.identifier(s.FuncName)
	w.add(LeftParentThesesTP)
	w.open("parameterList")
	for i, p := range s.Params {
		if i != 0 {
			w.add(CommaTP)
		}
		w.variableType(p.ParamTP)
		w.identifier(p.ParamName)
	}
	w.close("parameterList")
	w.add(RightParentThesesTP)
	w.open("subroutineBody")
	w.add(LeftBraceTP)
	if s.Body != nil {
		for _, decl := range s.Body.LocalVariables {
			w.open("varDec")
			w.add(VarTP)
			w.names(decl.VarType, decl.VarNames)
			w.close("varDec")
		}
		w.statements(s.Body.Statements)
	} else {
		w.statements(nil)
	}
	w.add(RightBraceTP)
	w.close("subroutineBody")
	w.close("subroutineDec")
}

func (w *xmlWriter) block(statements []StatementAst) {
	w.add(LeftBraceTP)
	w.statements(statements)
	w.add(RightBraceTP)
}

func (w *xmlWriter) statements(statements []StatementAst) {
	w.open("statements")
	for _, statement := range statements {
		switch statement := statement.(type) {
		case *LetStatementAst:
			w.open("letStatement")
			w.add(LetTP)
			w.identifier(statement.VarName)
			if statement.ArrayIndex != nil {
				w.add(LeftSquareBracketTP)
				w.expression(statement.ArrayIndex)
				w.add(RightSquareBracketTP)
			}
			w.add(EqualTP)
			w.expression(statement.Value)
			w.add(SemiColonTP)
			w.close("letStatement")
		case *IfStatementAst:
			w.open("ifStatement")
			w.add(IfTP, LeftParentThesesTP)
			w.expression(statement.Condition)
			w.add(RightParentThesesTP)
			w.block(statement.IfTrueStatements)
			if statement.HasElse {
				w.add(ElseTP)
				w.block(statement.ElseStatements)
			}
			w.close("ifStatement")
		case *WhileStatementAst:
			w.open("whileStatement")
			w.add(WhileTP, LeftParentThesesTP)
			w.expression(statement.Condition)
			w.add(RightParentThesesTP)
			w.block(statement.Statements)
			w.close("whileStatement")
		case *DoStatementAst:
			w.open("doStatement")
			w.add(DoTP)
			w.call(statement.Call)
			w.add(SemiColonTP)
			w.close("doStatement")
		case *ReturnStatementAst:
			w.open("returnStatement")
			w.add(ReturnTP)
			if statement.Value != nil {
				w.expression(statement.Value)
			}
			w.add(SemiColonTP)
			w.close("returnStatement")
		}
	}
	w.close("statements")
}

func (w *xmlWriter) expression(expr *ExpressionAst) {
	w.open("expression")
	w.term(expr.Term)
	for _, op := range expr.Ops {
		w.add(opTokens[op.Op])
		w.term(op.Term)
	}
	w.close("expression")
}

func (w *xmlWriter) term(term TermAst) {
	w.open("term")
	switch term := term.(type) {
	case *IntegerConstantTerm:
		w.token(IntegerTP, strconv.Itoa(term.Value))
	case *StringConstantTerm:
		w.token(StringTP, term.Value)
	case *KeywordConstantTerm:
		w.token(TrueTP, term.Keyword.String())
	case *VarNameTerm:
		w.identifier(term.VarName)
	case *ArrayIndexTerm:
		w.identifier(term.VarName)
		w.add(LeftSquareBracketTP)
		w.expression(term.Index)
		w.add(RightSquareBracketTP)
	case *CallAst:
		w.call(term)
	case *SubExpressionTerm:
		w.add(LeftParentThesesTP)
		w.expression(term.Expr)
		w.add(RightParentThesesTP)
	case *UnaryOpTerm:
		w.token(MinusTP, term.Op.String())
		w.term(term.Term)
	}
	w.close("term")
}

// A call is not a rule of its own, its tokens go straight into the enclosing tag.
func (w *xmlWriter) call(call *CallAst) {
	if call.FuncProvider != "" {
		w.identifier(call.FuncProvider)
		w.add(DotTP)
	}
	w.identifier(call.FuncName)
	w.add(LeftParentThesesTP)
	w.open("expressionList")
	for i, param := range call.Params {
		if i != 0 {
			w.add(CommaTP)
		}
		w.expression(param)
	}
	w.close("expressionList")
	w.add(RightParentThesesTP)
}
