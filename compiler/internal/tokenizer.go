package internal

import (
	"bufio"
	"fmt"
	"io"

	"github.com/xiaobogaga/hack/util"
)

// A simple Tokenizer for jack.

// Jack language has those elements:
// * KeyWord: class, constructor, function, method, field, static, var, int, char, boolean, void, true.
// 			false, null, this, let, do, if, else, while, return.
// * Symbol: {, }, (, ), [, ], ., ,, ;, +, -, *, /, &, |, <, >, =, ~.
// * Constant: integer (0..32767), string ("xxx", no newline and no quote inside).
// * Identifier: letters, digits, underscore, not starting with a digit.
// * Comment: /* */, /** */, //.

type TokenType int

const (
	ClassTP              TokenType = iota // class
	ConstructorTP                         // constructor
	FunctionTP                            // function
	MethodTP                              // method
	FieldTP                               // field
	StaticTP                              // static
	VarTP                                 // var
	IntTP                                 // int
	CharTP                                // char
	BooleanTP                             // boolean
	VoidTP                                // void
	TrueTP                                // true
	FalseTP                               // false
	NullTP                                // null
	ThisTP                                // this
	LetTP                                 // let
	DoTP                                  // do
	IfTP                                  // if
	ElseTP                                // else
	WhileTP                               // while
	ReturnTP                              // return
	LeftBraceTP                           // {
	RightBraceTP                          // }
	LeftParentThesesTP                    // (
	RightParentThesesTP                   // )
	LeftSquareBracketTP                   // [
	RightSquareBracketTP                  // ]
	DotTP                                 // .
	CommaTP                               // ,
	SemiColonTP                           // ;
	AddTP                                 // +
	MinusTP                               // -
	MultiplyTP                            // *
	DivideTP                              // /
	AndTP                                 // &
	OrTP                                  // |
	GreaterTP                             // >
	LessTP                                // <
	EqualTP                               // =
	BooleanNegativeTP                     // ~
	IntegerTP                             // 1010
	StringTP                              // "xxx"
	IdentifierTP                          // varA
)

// MaxInteger is the biggest integer constant the language accepts.
const MaxInteger = 32767

// keyWordTokenTPMap is the mapping from identifier to the corresponding TokenTP.
var keyWordTokenTPMap = map[string]TokenType{
	"class":       ClassTP,
	"constructor": ConstructorTP,
	"function":    FunctionTP,
	"method":      MethodTP,
	"field":       FieldTP,
	"static":      StaticTP,
	"var":         VarTP,
	"int":         IntTP,
	"char":        CharTP,
	"boolean":     BooleanTP,
	"void":        VoidTP,
	"true":        TrueTP,
	"false":       FalseTP,
	"null":        NullTP,
	"this":        ThisTP,
	"let":         LetTP,
	"do":          DoTP,
	"if":          IfTP,
	"else":        ElseTP,
	"while":       WhileTP,
	"return":      ReturnTP,
}

// simpleSymbolTokenTPMap is the mapping from a one byte symbol to the corresponding TokenTP.
var simpleSymbolTokenTPMap = map[byte]TokenType{
	'{': LeftBraceTP,
	'}': RightBraceTP,
	'(': LeftParentThesesTP,
	')': RightParentThesesTP,
	'[': LeftSquareBracketTP,
	']': RightSquareBracketTP,
	'.': DotTP,
	',': CommaTP,
	';': SemiColonTP,
	'+': AddTP,
	'-': MinusTP,
	'*': MultiplyTP,
	'/': DivideTP,
	'&': AndTP,
	'|': OrTP,
	'>': GreaterTP,
	'<': LessTP,
	'=': EqualTP,
	'~': BooleanNegativeTP,
}

var tokenLiterals = map[TokenType]string{}

func init() {
	for literal, tp := range keyWordTokenTPMap {
		tokenLiterals[tp] = literal
	}
	for symbol, tp := range simpleSymbolTokenTPMap {
		tokenLiterals[tp] = string(symbol)
	}
}

// String returns the literal of keyword and symbol types and a category name otherwise.
func (tp TokenType) String() string {
	switch tp {
	case IntegerTP:
		return "integer constant"
	case StringTP:
		return "string constant"
	case IdentifierTP:
		return "identifier"
	}
	if literal, ok := tokenLiterals[tp]; ok {
		return "'" + literal + "'"
	}
	return fmt.Sprintf("TokenType(%d)", int(tp))
}

// Literal is the source text of a keyword or symbol type.
func (tp TokenType) Literal() string {
	return tokenLiterals[tp]
}

type TokenCategory int

const (
	KeywordCategory TokenCategory = iota
	SymbolCategory
	IntegerConstantCategory
	StringConstantCategory
	IdentifierCategory
)

// String is the markup tag of the category.
func (c TokenCategory) String() string {
	switch c {
	case KeywordCategory:
		return "keyword"
	case SymbolCategory:
		return "symbol"
	case IntegerConstantCategory:
		return "integerConstant"
	case StringConstantCategory:
		return "stringConstant"
	default:
		return "identifier"
	}
}

func (tp TokenType) Category() TokenCategory {
	switch {
	case tp <= ReturnTP:
		return KeywordCategory
	case tp <= BooleanNegativeTP:
		return SymbolCategory
	case tp == IntegerTP:
		return IntegerConstantCategory
	case tp == StringTP:
		return StringConstantCategory
	default:
		return IdentifierCategory
	}
}

// Token is one lexical element. Content is the source text; for strings it excludes the quotes.
// Line and Pos locate the token, Pos being the byte offset in the line.
type Token struct {
	TP      TokenType
	Content string
	Line    int
	Pos     int
}

// NewToken builds a token without position. Keywords and symbols take their literal as content.
func NewToken(tp TokenType, content ...string) *Token {
	token := &Token{TP: tp, Content: tp.Literal()}
	if len(content) != 0 {
		token.Content = content[0]
	}
	return token
}

func (t *Token) Category() TokenCategory {
	return t.TP.Category()
}

func (t *Token) String() string {
	if t.TP == StringTP {
		return `"` + t.Content + `"`
	}
	return t.Content
}

type TokenizeError struct {
	Near string
	Line int
	Msg  string
}

func (e *TokenizeError) Error() string {
	return fmt.Sprintf("tokenizer error near %s at line %d: %s", e.Near, e.Line, e.Msg)
}

type Tokenizer struct {
	currentPos  int
	currentLine int
	inComment   bool
	commentLine int
	tokens      []*Token
}

// Tokenize accepts a source `rd` and tokenize its content according to jack language rules.
func (tokenizer *Tokenizer) Tokenize(rd io.Reader) (tokens []*Token, err error) {
	tokenizer.Reset()
	bfReader := bufio.NewReader(rd)
	for {
		line, err := bfReader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		if len(line) != 0 {
			tokenizer.currentLine++
			tokenizer.currentPos = 0
			perr := tokenizer.parseLine(line)
			if perr != nil {
				return nil, perr
			}
		}
		if err == io.EOF {
			break
		}
	}
	if tokenizer.inComment {
		return nil, tokenizer.makeError("/*", tokenizer.commentLine, "incorrect comment format")
	}
	return tokenizer.tokens, nil
}

func (tokenizer *Tokenizer) parseLine(line []byte) error {
	for {
		token, err := tokenizer.getNextToken(line)
		if err != nil {
			return err
		}
		if token == nil {
			return nil
		}
		tokenizer.tokens = append(tokenizer.tokens, token)
	}
}

// getNextToken returns the next token of line, or nil when the line has no more tokens.
func (tokenizer *Tokenizer) getNextToken(line []byte) (*Token, error) {
	for {
		if tokenizer.inComment && !tokenizer.skipComment(line) {
			return nil, nil
		}
		tokenizer.trimSpace(line)
		if !tokenizer.hasRemainCharacters(line) {
			return nil, nil
		}
		c := line[tokenizer.currentPos]
		if c == '/' && tokenizer.currentPos+1 < len(line) {
			switch line[tokenizer.currentPos+1] {
			case '/':
				tokenizer.currentPos = len(line)
				return nil, nil
			case '*':
				tokenizer.inComment, tokenizer.commentLine = true, tokenizer.currentLine
				tokenizer.currentPos += 2
				continue
			}
		}
		switch {
		case c == '"':
			return tokenizer.tokenString(line)
		case util.IsNumber(c):
			return tokenizer.tokenNumber(line)
		case util.IsLetterOrUnderscore(c):
			return tokenizer.toKeywordOrIdentifier(line)
		}
		if tp, ok := simpleSymbolTokenTPMap[c]; ok {
			return tokenizer.tokenSimpleSymbol(tp), nil
		}
		return nil, tokenizer.makeError(string(c), tokenizer.currentLine, "unexpected character")
	}
}

// skipComment steps over a block comment body and reports whether the comment closed on this line.
func (tokenizer *Tokenizer) skipComment(line []byte) bool {
	for tokenizer.currentPos < len(line)-1 {
		if line[tokenizer.currentPos] == '*' && line[tokenizer.currentPos+1] == '/' {
			tokenizer.currentPos += 2
			tokenizer.inComment = false
			return true
		}
		tokenizer.currentPos++
	}
	tokenizer.currentPos = len(line)
	return false
}

// trimSpace will step forward through line and skip all continuous space.
func (tokenizer *Tokenizer) trimSpace(line []byte) {
	for tokenizer.currentPos < len(line) && util.IsSpace(line[tokenizer.currentPos]) {
		tokenizer.currentPos++
	}
}

func (tokenizer *Tokenizer) hasRemainCharacters(line []byte) bool {
	return tokenizer.currentPos < len(line)
}

func (tokenizer *Tokenizer) tokenSimpleSymbol(tp TokenType) *Token {
	token := &Token{
		TP:      tp,
		Content: tp.Literal(),
		Line:    tokenizer.currentLine,
		Pos:     tokenizer.currentPos,
	}
	tokenizer.currentPos++
	return token
}

func (tokenizer *Tokenizer) tokenString(line []byte) (*Token, error) {
	// Looking forward through line to find a closing quote.
	startPos := tokenizer.currentPos
	tokenizer.currentPos++
	for tokenizer.currentPos < len(line) {
		switch line[tokenizer.currentPos] {
		case '"':
			tokenizer.currentPos++
			return &Token{
				TP:      StringTP,
				Content: string(line[startPos+1 : tokenizer.currentPos-1]),
				Line:    tokenizer.currentLine,
				Pos:     startPos,
			}, nil
		case '\n', '\r':
			return nil, tokenizer.makeError(string(line[startPos:tokenizer.currentPos]), tokenizer.currentLine, "incorrect string format")
		}
		tokenizer.currentPos++
	}
	return nil, tokenizer.makeError(string(line[startPos:]), tokenizer.currentLine, "incorrect string format")
}

func (tokenizer *Tokenizer) tokenNumber(line []byte) (*Token, error) {
	startPos := tokenizer.currentPos
	for tokenizer.currentPos < len(line) && util.IsNumber(line[tokenizer.currentPos]) {
		tokenizer.currentPos++
	}
	content := string(line[startPos:tokenizer.currentPos])
	if tokenizer.currentPos < len(line) && util.IsLetterOrUnderscore(line[tokenizer.currentPos]) {
		return nil, tokenizer.makeError(content, tokenizer.currentLine, "incorrect identifier format")
	}
	value := 0
	for i := 0; i < len(content); i++ {
		value = value*10 + int(content[i]-'0')
		if value > MaxInteger {
			return nil, tokenizer.makeError(content, tokenizer.currentLine, fmt.Sprintf("integer constant exceeds %d", MaxInteger))
		}
	}
	return &Token{
		TP:      IntegerTP,
		Content: content,
		Line:    tokenizer.currentLine,
		Pos:     startPos,
	}, nil
}

func (tokenizer *Tokenizer) toKeywordOrIdentifier(line []byte) (*Token, error) {
	startPos := tokenizer.currentPos
	for tokenizer.currentPos < len(line) && util.IsLetterOrUnderscoreOrNumber(line[tokenizer.currentPos]) {
		tokenizer.currentPos++
	}
	content := string(line[startPos:tokenizer.currentPos])
	tp, isKeyWord := keyWordTokenTPMap[content]
	if !isKeyWord {
		tp = IdentifierTP
	}
	return &Token{
		TP:      tp,
		Content: content,
		Line:    tokenizer.currentLine,
		Pos:     startPos,
	}, nil
}

func (tokenizer *Tokenizer) makeError(near string, line int, msg string) error {
	return &TokenizeError{Near: near, Line: line, Msg: msg}
}

func (tokenizer *Tokenizer) Reset() {
	tokenizer.currentPos, tokenizer.currentLine = 0, 0
	tokenizer.inComment, tokenizer.commentLine = false, 0
	tokenizer.tokens = nil
}
