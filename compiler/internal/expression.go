package internal

import (
	"strconv"
)

// (expression (, expression)*)?
func (parser *Parser) parseExpressions() (exprs []*ExpressionAst, err error) {
	_, match := parser.expectToken(RightParentThesesTP, false)
	if match {
		return nil, nil
	}
	for {
		expression, err := parser.parseExpression()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expression)
		_, match := parser.expectToken(CommaTP, true)
		if !match {
			return exprs, nil
		}
	}
}

// term (op term)*
func (parser *Parser) parseExpression() (*ExpressionAst, error) {
	term, err := parser.parseExpressionTerm()
	if err != nil {
		return nil, err
	}
	expr := &ExpressionAst{Term: term}
	for {
		op, match := parser.matchOp()
		if !match {
			return expr, nil
		}
		parser.stepForward()
		term, err := parser.parseExpressionTerm()
		if err != nil {
			return nil, err
		}
		expr.Ops = append(expr.Ops, &OpTermAst{Op: op, Term: term})
	}
}

func (parser *Parser) matchOp() (OpCode, bool) {
	if !parser.hasRemainTokens() {
		return 0, false
	}
	op, ok := binaryOps[parser.currentTokens[parser.currentTokenPos].TP]
	return op, ok
}

func (parser *Parser) parseExpressionTerm() (TermAst, error) {
	token, err := parser.getCurrentToken("term")
	if err != nil {
		return nil, err
	}
	switch token.TP {
	case IntegerTP:
		return parser.parseIntegerConstantTerm()
	case StringTP:
		parser.stepForward()
		return &StringConstantTerm{Value: token.Content}, nil
	case TrueTP, FalseTP, NullTP, ThisTP:
		parser.stepForward()
		return &KeywordConstantTerm{Keyword: keywordConstants[token.TP]}, nil
	// When it's identifier, it can be a subroutine call, an array element
	// or a plain variable.
	case IdentifierTP:
		return parser.parseSubRoutineCallOrVarTerm()
	case LeftParentThesesTP:
		return parser.parseSubExpressionTerm()
	case MinusTP, BooleanNegativeTP:
		return parser.parseUnaryOpTerm()
	default:
		return nil, parser.makeError("term")
	}
}

var keywordConstants = map[TokenType]KeywordConstant{
	TrueTP:  TrueKeywordConstant,
	FalseTP: FalseKeywordConstant,
	NullTP:  NullKeywordConstant,
	ThisTP:  ThisKeywordConstant,
}

func (parser *Parser) parseIntegerConstantTerm() (*IntegerConstantTerm, error) {
	token, _ := parser.expectToken(IntegerTP, false)
	value, err := strconv.Atoi(token.Content)
	if err != nil || value < 0 {
		return nil, parser.makeError(IntegerTP.String())
	}
	if value > MaxInteger {
		return nil, &RangeError{What: "integer constant", Value: value, Max: MaxInteger}
	}
	parser.stepForward()
	return &IntegerConstantTerm{Value: value}, nil
}

// varName | varName [ expression ] | subroutineName ( expressions ) | provider . subroutineName ( expressions )
func (parser *Parser) parseSubRoutineCallOrVarTerm() (TermAst, error) {
	nameToken, _ := parser.expectToken(IdentifierTP, true)
	if !parser.hasRemainTokens() {
		return &VarNameTerm{VarName: nameToken.Content}, nil
	}
	switch parser.currentTokens[parser.currentTokenPos].TP {
	case LeftSquareBracketTP:
		index, err := parser.parseArrayIndexExpression()
		if err != nil {
			return nil, err
		}
		return &ArrayIndexTerm{VarName: nameToken.Content, Index: index}, nil
	case DotTP, LeftParentThesesTP:
		return parser.parseFuncCall(nameToken)
	default:
		return &VarNameTerm{VarName: nameToken.Content}, nil
	}
}

// parseFuncCall parses the rest of a call whose first identifier is already consumed:
// ( expressions ) or . subroutineName ( expressions ).
func (parser *Parser) parseFuncCall(nameToken *Token) (*CallAst, error) {
	call := &CallAst{FuncName: nameToken.Content}
	_, match := parser.expectToken(DotTP, true)
	if match {
		funcNameToken, match := parser.expectToken(IdentifierTP, true)
		if !match {
			return nil, parser.makeError("subroutine name")
		}
		call.FuncProvider, call.FuncName = nameToken.Content, funcNameToken.Content
	}
	_, match = parser.expectToken(LeftParentThesesTP, true)
	if !match {
		return nil, parser.makeError(LeftParentThesesTP.String())
	}
	params, err := parser.parseExpressions()
	if err != nil {
		return nil, err
	}
	call.Params = params
	_, match = parser.expectToken(RightParentThesesTP, true)
	if !match {
		return nil, parser.makeError("',' or ')'")
	}
	return call, nil
}

// ( expression )
func (parser *Parser) parseSubExpressionTerm() (*SubExpressionTerm, error) {
	expr, err := parser.parseCondition()
	if err != nil {
		return nil, err
	}
	return &SubExpressionTerm{Expr: expr}, nil
}

// -term | ~term
func (parser *Parser) parseUnaryOpTerm() (*UnaryOpTerm, error) {
	token, _ := parser.getCurrentToken("unary operator")
	op := NegationOpTP
	if token.TP == BooleanNegativeTP {
		op = BooleanNegationOpTP
	}
	parser.stepForward()
	term, err := parser.parseExpressionTerm()
	if err != nil {
		return nil, err
	}
	return &UnaryOpTerm{Op: op, Term: term}, nil
}
