package internal

import (
	"strconv"
)

// Tokens writes the class back as tokens. Parsing them gives an ast equal to class.
func (class *ClassAst) Tokens() []*Token {
	w := &tokenWriter{}
	w.class(class)
	return w.tokens
}

type tokenWriter struct {
	tokens []*Token
}

func (w *tokenWriter) add(tps ...TokenType) {
	for _, tp := range tps {
		w.tokens = append(w.tokens, NewToken(tp))
	}
}

func (w *tokenWriter) identifier(name string) {
	w.tokens = append(w.tokens, NewToken(IdentifierTP, name))
}

func (w *tokenWriter) class(class *ClassAst) {
	w.add(ClassTP)
	w.identifier(class.ClassName)
	w.add(LeftBraceTP)
	for _, v := range class.ClassVariables {
		if v.FieldTP == StaticFieldType {
			w.add(StaticTP)
		} else {
			w.add(FieldTP)
		}
		w.names(v.VariableType, v.VariableNames)
	}
	for _, s := range class.Subroutines {
		w.subroutine(s)
	}
	w.add(RightBraceTP)
}

// names writes type a, b, c;
func (w *tokenWriter) names(tp VariableType, names []string) {
	w.variableType(tp)
	for i, name := range names {
		if i != 0 {
			w.add(CommaTP)
		}
		w.identifier(name)
	}
	w.add(SemiColonTP)
}

func (w *tokenWriter) variableType(tp VariableType) {
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

func (w *tokenWriter) subroutine(s *SubroutineAst) {
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
	for i, p := range s.Params {
		if i != 0 {
			w.add(CommaTP)
		}
		w.variableType(p.ParamTP)
		w.identifier(p.ParamName)
	}
	w.add(RightParentThesesTP, LeftBraceTP)
	if s.Body != nil {
		for _, decl := range s.Body.LocalVariables {
			w.add(VarTP)
			w.names(decl.VarType, decl.VarNames)
		}
		w.statements(s.Body.Statements)
	}
	w.add(RightBraceTP)
}

func (w *tokenWriter) block(statements []StatementAst) {
	w.add(LeftBraceTP)
	w.statements(statements)
	w.add(RightBraceTP)
}

func (w *tokenWriter) statements(statements []StatementAst) {
	for _, statement := range statements {
		switch statement := statement.(type) {
		case *LetStatementAst:
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
		case *IfStatementAst:
			w.add(IfTP, LeftParentThesesTP)
			w.expression(statement.Condition)
			w.add(RightParentThesesTP)
			w.block(statement.IfTrueStatements)
			if statement.HasElse {
				w.add(ElseTP)
				w.block(statement.ElseStatements)
			}
		case *WhileStatementAst:
			w.add(WhileTP, LeftParentThesesTP)
			w.expression(statement.Condition)
			w.add(RightParentThesesTP)
			w.block(statement.Statements)
		case *DoStatementAst:
			w.add(DoTP)
			w.call(statement.Call)
			w.add(SemiColonTP)
		case *ReturnStatementAst:
			w.add(ReturnTP)
			if statement.Value != nil {
				w.expression(statement.Value)
			}
			w.add(SemiColonTP)
		}
	}
}

func (w *tokenWriter) expression(expr *ExpressionAst) {
	w.term(expr.Term)
	for _, op := range expr.Ops {
		w.add(opTokens[op.Op])
		w.term(op.Term)
	}
}

func (w *tokenWriter) term(term TermAst) {
	switch term := term.(type) {
	case *IntegerConstantTerm:
		w.tokens = append(w.tokens, NewToken(IntegerTP, strconv.Itoa(term.Value)))
	case *StringConstantTerm:
		w.tokens = append(w.tokens, NewToken(StringTP, term.Value))
	case *KeywordConstantTerm:
		for tp, k := range keywordConstants {
			if k == term.Keyword {
				w.add(tp)
			}
		}
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
		if term.Op == NegationOpTP {
			w.add(MinusTP)
		} else {
			w.add(BooleanNegativeTP)
		}
		w.term(term.Term)
	}
}

func (w *tokenWriter) call(call *CallAst) {
	if call.FuncProvider != "" {
		w.identifier(call.FuncProvider)
		w.add(DotTP)
	}
	w.identifier(call.FuncName)
	w.add(LeftParentThesesTP)
	for i, param := range call.Params {
		if i != 0 {
			w.add(CommaTP)
		}
		w.expression(param)
	}
	w.add(RightParentThesesTP)
}

// Source joins tokens into jack source text, one space between tokens.
func Source(tokens []*Token) string {
	var b []byte
	for i, token := range tokens {
		if i != 0 {
			b = append(b, ' ')
		}
		b = append(b, token.String()...)
	}
	return string(b)
}
