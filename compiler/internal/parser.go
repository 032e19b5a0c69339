package internal

import (
	"tlog.app/go/loc"
	"tlog.app/go/tlog"
)

// Parser builds the ast of one class from its tokens. It reads the tokens once from left
// to right and never looks further than the current token.
type Parser struct {
	currentTokenPos int
	currentTokens   []*Token
}

// Parse parses tokens of exactly one class.
func Parse(tokens []*Token) (*ClassAst, error) {
	parser := &Parser{currentTokens: tokens}
	return parser.ParseClassDeclaration()
}

func (parser *Parser) reset(tokens []*Token) {
	parser.currentTokenPos, parser.currentTokens = 0, tokens
}

// class Identifier {
//    classVarDec*
//    subroutineDec*
// }
func (parser *Parser) ParseClassDeclaration() (*ClassAst, error) {
	_, match := parser.expectToken(ClassTP, true)
	if !match {
		return nil, parser.makeError(ClassTP.String())
	}
	classNameToken, match := parser.expectToken(IdentifierTP, true)
	if !match {
		return nil, parser.makeError("class name")
	}
	_, match = parser.expectToken(LeftBraceTP, true)
	if !match {
		return nil, parser.makeError(LeftBraceTP.String())
	}
	classVariables, subroutines, err := parser.ParseClassBody()
	if err != nil {
		return nil, err
	}
	_, match = parser.expectToken(RightBraceTP, true)
	if !match {
		return nil, parser.makeError(RightBraceTP.String())
	}
	if parser.hasRemainTokens() {
		return nil, parser.makeError("end of input")
	}
	return &ClassAst{
		ClassName:      classNameToken.Content,
		ClassVariables: classVariables,
		Subroutines:    subroutines,
	}, nil
}

func (parser *Parser) ParseClassBody() (vars []*ClassVariableAst, subroutines []*SubroutineAst, err error) {
	for parser.matchAny(StaticTP, FieldTP) {
		v, err := parser.ParseVariableDeclaration()
		if err != nil {
			return nil, nil, err
		}
		vars = append(vars, v)
	}
	for parser.matchAny(ConstructorTP, FunctionTP, MethodTP) {
		subroutine, err := parser.parseSubroutineDeclaration()
		if err != nil {
			return nil, nil, err
		}
		subroutines = append(subroutines, subroutine)
	}
	return
}

// static|field type varName (, varName)* ;
func (parser *Parser) ParseVariableDeclaration() (*ClassVariableAst, error) {
	token, err := parser.getCurrentToken("'static' or 'field'")
	if err != nil {
		return nil, err
	}
	ast := &ClassVariableAst{}
	switch token.TP {
	case StaticTP:
		ast.FieldTP = StaticFieldType
	case FieldTP:
		ast.FieldTP = ObjectFieldType
	default:
		return nil, parser.makeError("'static' or 'field'")
	}
	parser.stepForward()
	ast.VariableType, ast.VariableNames, err = parser.parseVarTypeNames()
	if err != nil {
		return nil, err
	}
	return ast, nil
}

// type varName (, varName)* ;
func (parser *Parser) parseVarTypeNames() (tp VariableType, names []string, err error) {
	tp, err = parser.ParseVariableType()
	if err != nil {
		return
	}
	for {
		nameToken, match := parser.expectToken(IdentifierTP, true)
		if !match {
			err = parser.makeError("variable name")
			return
		}
		names = append(names, nameToken.Content)
		_, match = parser.expectToken(CommaTP, true)
		if !match {
			break
		}
	}
	_, match := parser.expectToken(SemiColonTP, true)
	if !match {
		err = parser.makeError("',' or ';'")
	}
	return
}

func (parser *Parser) ParseVariableType() (v VariableType, err error) {
	token, err := parser.getCurrentToken("type")
	if err != nil {
		return
	}
	switch token.TP {
	case IntTP:
		v.TP = IntVariableType
	case CharTP:
		v.TP = CharVariableType
	case BooleanTP:
		v.TP = BooleanVariableType
	case IdentifierTP:
		v.TP, v.Name = ClassVariableType, token.Content
	default:
		err = parser.makeError("type")
		return
	}
	parser.stepForward()
	return
}

// constructor|function|method void|type subroutineName ( parameterList ) subroutineBody
func (parser *Parser) parseSubroutineDeclaration() (*SubroutineAst, error) {
	funcTP, err := parser.parseFuncType()
	if err != nil {
		return nil, err
	}
	returnTP, err := parser.parseFuncReturnType()
	if err != nil {
		return nil, err
	}
	nameToken, match := parser.expectToken(IdentifierTP, true)
	if !match {
		return nil, parser.makeError("subroutine name")
	}
	_, match = parser.expectToken(LeftParentThesesTP, true)
	if !match {
		return nil, parser.makeError(LeftParentThesesTP.String())
	}
	params, err := parser.parseFuncParamList()
	if err != nil {
		return nil, err
	}
	_, match = parser.expectToken(RightParentThesesTP, true)
	if !match {
		return nil, parser.makeError("',' or ')'")
	}
	body, err := parser.parseFuncBody()
	if err != nil {
		return nil, err
	}
	return &SubroutineAst{
		FuncTP:   funcTP,
		ReturnTP: returnTP,
		FuncName: nameToken.Content,
		Params:   params,
		Body:     body,
	}, nil
}

func (parser *Parser) parseFuncType() (funcTP FuncType, err error) {
	token, err := parser.getCurrentToken("subroutine kind")
	if err != nil {
		return
	}
	switch token.TP {
	case ConstructorTP:
		funcTP = ClassConstructorType
	case FunctionTP:
		funcTP = ClassFuncType
	case MethodTP:
		funcTP = ClassMethodType
	default:
		err = parser.makeError("'constructor', 'function' or 'method'")
		return
	}
	parser.stepForward()
	return
}

func (parser *Parser) parseFuncReturnType() (*VariableType, error) {
	_, match := parser.expectToken(VoidTP, true)
	if match {
		return nil, nil
	}
	if !parser.hasRemainTokens() {
		return nil, parser.makeError("'void' or type")
	}
	tp, err := parser.ParseVariableType()
	if err != nil {
		return nil, parser.makeError("'void' or type")
	}
	return &tp, nil
}

// ((type varName) (, type varName)*)?
func (parser *Parser) parseFuncParamList() (params []*FuncParamAst, err error) {
	_, match := parser.expectToken(RightParentThesesTP, false)
	if match {
		return nil, nil
	}
	for {
		paramTP, err := parser.ParseVariableType()
		if err != nil {
			return nil, err
		}
		nameToken, match := parser.expectToken(IdentifierTP, true)
		if !match {
			return nil, parser.makeError("parameter name")
		}
		params = append(params, &FuncParamAst{ParamTP: paramTP, ParamName: nameToken.Content})
		_, match = parser.expectToken(CommaTP, true)
		if !match {
			return params, nil
		}
	}
}

// {
//    varDec*
//    statements
// }
func (parser *Parser) parseFuncBody() (*SubroutineBodyAst, error) {
	_, match := parser.expectToken(LeftBraceTP, true)
	if !match {
		return nil, parser.makeError(LeftBraceTP.String())
	}
	body := &SubroutineBodyAst{}
	for parser.matchAny(VarTP) {
		decl, err := parser.parseVarDeclareStatement()
		if err != nil {
			return nil, err
		}
		body.LocalVariables = append(body.LocalVariables, decl)
	}
	statements, err := parser.parseBlockEnd()
	if err != nil {
		return nil, err
	}
	body.Statements = statements
	return body, nil
}

// var type varName (, varName)* ;
func (parser *Parser) parseVarDeclareStatement() (*VarDeclareAst, error) {
	_, match := parser.expectToken(VarTP, true)
	if !match {
		return nil, parser.makeError(VarTP.String())
	}
	tp, names, err := parser.parseVarTypeNames()
	if err != nil {
		return nil, err
	}
	return &VarDeclareAst{VarType: tp, VarNames: names}, nil
}

// parseBlock parses { statements }.
func (parser *Parser) parseBlock() ([]StatementAst, error) {
	_, match := parser.expectToken(LeftBraceTP, true)
	if !match {
		return nil, parser.makeError(LeftBraceTP.String())
	}
	return parser.parseBlockEnd()
}

// parseBlockEnd parses statements }.
func (parser *Parser) parseBlockEnd() ([]StatementAst, error) {
	statements, err := parser.parseStatements()
	if err != nil {
		return nil, err
	}
	_, match := parser.expectToken(RightBraceTP, true)
	if !match {
		return nil, parser.makeError("statement or '}'")
	}
	return statements, nil
}

func (parser *Parser) parseStatements() (stms []StatementAst, err error) {
	for parser.matchAny(LetTP, IfTP, WhileTP, DoTP, ReturnTP) {
		stm, err := parser.parseStatement()
		if err != nil {
			return nil, err
		}
		stms = append(stms, stm)
	}
	return stms, nil
}

func (parser *Parser) parseStatement() (StatementAst, error) {
	token, err := parser.getCurrentToken("statement")
	if err != nil {
		return nil, err
	}
	switch token.TP {
	case LetTP:
		return parser.parseLetStatement()
	case IfTP:
		return parser.parseIfStatement()
	case WhileTP:
		return parser.parseWhileStatement()
	case DoTP:
		return parser.parseDoStatement()
	case ReturnTP:
		return parser.parseReturnStatement()
	default:
		return nil, parser.makeError("statement")
	}
}

// let varName ([ expression ])? = expression ;
func (parser *Parser) parseLetStatement() (*LetStatementAst, error) {
	_, match := parser.expectToken(LetTP, true)
	if !match {
		return nil, parser.makeError(LetTP.String())
	}
	nameToken, match := parser.expectToken(IdentifierTP, true)
	if !match {
		return nil, parser.makeError("variable name")
	}
	stm := &LetStatementAst{VarName: nameToken.Content}
	_, match = parser.expectToken(LeftSquareBracketTP, false)
	if match {
		index, err := parser.parseArrayIndexExpression()
		if err != nil {
			return nil, err
		}
		stm.ArrayIndex = index
	}
	_, match = parser.expectToken(EqualTP, true)
	if !match {
		return nil, parser.makeError("'[' or '='")
	}
	value, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	stm.Value = value
	_, match = parser.expectToken(SemiColonTP, true)
	if !match {
		return nil, parser.makeError(SemiColonTP.String())
	}
	return stm, nil
}

// [ expression ]
func (parser *Parser) parseArrayIndexExpression() (*ExpressionAst, error) {
	_, match := parser.expectToken(LeftSquareBracketTP, true)
	if !match {
		return nil, parser.makeError(LeftSquareBracketTP.String())
	}
	expr, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	_, match = parser.expectToken(RightSquareBracketTP, true)
	if !match {
		return nil, parser.makeError(RightSquareBracketTP.String())
	}
	return expr, nil
}

// if ( expression ) { statements } (else { statements })?
func (parser *Parser) parseIfStatement() (*IfStatementAst, error) {
	_, match := parser.expectToken(IfTP, true)
	if !match {
		return nil, parser.makeError(IfTP.String())
	}
	condition, err := parser.parseCondition()
	if err != nil {
		return nil, err
	}
	stm := &IfStatementAst{Condition: condition}
	stm.IfTrueStatements, err = parser.parseBlock()
	if err != nil {
		return nil, err
	}
	_, match = parser.expectToken(ElseTP, true)
	if !match {
		return stm, nil
	}
	stm.HasElse = true
	stm.ElseStatements, err = parser.parseBlock()
	if err != nil {
		return nil, err
	}
	return stm, nil
}

// while ( expression ) { statements }
func (parser *Parser) parseWhileStatement() (*WhileStatementAst, error) {
	_, match := parser.expectToken(WhileTP, true)
	if !match {
		return nil, parser.makeError(WhileTP.String())
	}
	condition, err := parser.parseCondition()
	if err != nil {
		return nil, err
	}
	statements, err := parser.parseBlock()
	if err != nil {
		return nil, err
	}
	return &WhileStatementAst{Condition: condition, Statements: statements}, nil
}

// ( expression )
func (parser *Parser) parseCondition() (*ExpressionAst, error) {
	_, match := parser.expectToken(LeftParentThesesTP, true)
	if !match {
		return nil, parser.makeError(LeftParentThesesTP.String())
	}
	condition, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	_, match = parser.expectToken(RightParentThesesTP, true)
	if !match {
		return nil, parser.makeError(RightParentThesesTP.String())
	}
	return condition, nil
}

// do subroutineCall ;
func (parser *Parser) parseDoStatement() (*DoStatementAst, error) {
	_, match := parser.expectToken(DoTP, true)
	if !match {
		return nil, parser.makeError(DoTP.String())
	}
	nameToken, match := parser.expectToken(IdentifierTP, true)
	if !match {
		return nil, parser.makeError("subroutine call")
	}
	call, err := parser.parseFuncCall(nameToken)
	if err != nil {
		return nil, err
	}
	_, match = parser.expectToken(SemiColonTP, true)
	if !match {
		return nil, parser.makeError(SemiColonTP.String())
	}
	return &DoStatementAst{Call: call}, nil
}

// return expression? ;
func (parser *Parser) parseReturnStatement() (*ReturnStatementAst, error) {
	_, match := parser.expectToken(ReturnTP, true)
	if !match {
		return nil, parser.makeError(ReturnTP.String())
	}
	stm := &ReturnStatementAst{}
	_, match = parser.expectToken(SemiColonTP, true)
	if match {
		return stm, nil
	}
	if !parser.hasRemainTokens() {
		return nil, parser.makeError("';' or expression")
	}
	value, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	stm.Value = value
	_, match = parser.expectToken(SemiColonTP, true)
	if !match {
		return nil, parser.makeError(SemiColonTP.String())
	}
	return stm, nil
}

func (parser *Parser) getCurrentToken(expected string) (*Token, error) {
	if !parser.hasRemainTokens() {
		return nil, parser.makeError(expected)
	}
	return parser.currentTokens[parser.currentTokenPos], nil
}

func (parser *Parser) stepForward() {
	parser.currentTokenPos++
}

func (parser *Parser) hasRemainTokens() bool {
	return parser.currentTokenPos < len(parser.currentTokens)
}

// matchAny reports whether the current token is of one of the tps, without consuming it.
func (parser *Parser) matchAny(tps ...TokenType) bool {
	if !parser.hasRemainTokens() {
		return false
	}
	current := parser.currentTokens[parser.currentTokenPos].TP
	for _, tp := range tps {
		if current == tp {
			return true
		}
	}
	return false
}

func (parser *Parser) expectToken(expectedTokenTp TokenType, walk bool) (*Token, bool) {
	if !parser.matchAny(expectedTokenTp) {
		return nil, false
	}
	token := parser.currentTokens[parser.currentTokenPos]
	if walk {
		parser.currentTokenPos++
	}
	return token, true
}

// makeError reports the current token as not being the expected one.
func (parser *Parser) makeError(expected string) error {
	err := &SyntaxError{Expected: expected}
	if parser.hasRemainTokens() {
		token := parser.currentTokens[parser.currentTokenPos]
		err.Found, err.Line = token.String(), token.Line
	} else {
		err.EOF = true
		if n := len(parser.currentTokens); n != 0 {
			err.Line = parser.currentTokens[n-1].Line
		}
	}
	if tlog.If("parser") {
		tlog.Printw("syntax error", "found", err.Found, "expected", expected, "line", err.Line, "from", loc.Caller(1))
	}
	return err
}
