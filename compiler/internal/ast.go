package internal

// In this file, we defined all ast of jack programming language according to the jack grammar.
// Each jack file xxx.jack holds exactly one class definition, there is no package
// declaration and dependency declaration.
//
// Statements and terms are closed sets: only the types in this file implement StatementAst
// and TermAst.

type ClassAst struct {
	ClassName      string
	ClassVariables []*ClassVariableAst
	Subroutines    []*SubroutineAst
}

// ClassVariableAst is one `static|field type a, b, c;` declaration.
type ClassVariableAst struct {
	FieldTP       FieldType
	VariableType  VariableType
	VariableNames []string
}

type FieldType int

const (
	StaticFieldType FieldType = iota
	ObjectFieldType
)

func (f FieldType) String() string {
	if f == StaticFieldType {
		return "static"
	}
	return "field"
}

type VariableType struct {
	TP   VarType
	Name string // class name for ClassVariableType
}

// String is the type as written in source.
func (t VariableType) String() string {
	switch t.TP {
	case IntVariableType:
		return "int"
	case CharVariableType:
		return "char"
	case BooleanVariableType:
		return "boolean"
	}
	return t.Name
}

type VarType int

const (
	IntVariableType VarType = iota
	CharVariableType
	BooleanVariableType
	ClassVariableType
)

type SubroutineAst struct {
	FuncTP   FuncType
	ReturnTP *VariableType // nil for void
	FuncName string
	Params   []*FuncParamAst
	Body     *SubroutineBodyAst
}

type FuncType int

const (
	ClassConstructorType FuncType = iota
	ClassFuncType
	ClassMethodType
)

func (f FuncType) String() string {
	switch f {
	case ClassConstructorType:
		return "constructor"
	case ClassMethodType:
		return "method"
	}
	return "function"
}

type FuncParamAst struct {
	ParamTP   VariableType
	ParamName string
}

type SubroutineBodyAst struct {
	LocalVariables []*VarDeclareAst
	Statements     []StatementAst
}

// VarDeclareAst is one `var type a, b;` declaration.
type VarDeclareAst struct {
	VarType  VariableType
	VarNames []string
}

type StatementAst interface {
	statement()
}

type LetStatementAst struct {
	VarName    string
	ArrayIndex *ExpressionAst // nil unless assigning an array element
	Value      *ExpressionAst
}

type IfStatementAst struct {
	Condition        *ExpressionAst
	IfTrueStatements []StatementAst
	HasElse          bool
	ElseStatements   []StatementAst
}

type WhileStatementAst struct {
	Condition  *ExpressionAst
	Statements []StatementAst
}

type DoStatementAst struct {
	Call *CallAst
}

type ReturnStatementAst struct {
	Value *ExpressionAst // nil for `return;`
}

func (*LetStatementAst) statement()    {}
func (*IfStatementAst) statement()     {}
func (*WhileStatementAst) statement()  {}
func (*DoStatementAst) statement()     {}
func (*ReturnStatementAst) statement() {}

// ExpressionAst is term (op term)*. Jack has no operator priority, the ops apply from left to right.
type ExpressionAst struct {
	Term TermAst
	Ops  []*OpTermAst
}

type OpTermAst struct {
	Op   OpCode
	Term TermAst
}

type OpCode int

const (
	AddOpTP OpCode = iota
	MinusOpTP
	MultipleOpTP
	DivideOpTP
	AndOpTP
	OrOpTP
	LessOpTP
	GreaterOpTP
	EqualOpTP
)

var binaryOps = map[TokenType]OpCode{
	AddTP:      AddOpTP,
	MinusTP:    MinusOpTP,
	MultiplyTP: MultipleOpTP,
	DivideTP:   DivideOpTP,
	AndTP:      AndOpTP,
	OrTP:       OrOpTP,
	LessTP:     LessOpTP,
	GreaterTP:  GreaterOpTP,
	EqualTP:    EqualOpTP,
}

var opTokens = map[OpCode]TokenType{}

func init() {
	for tp, op := range binaryOps {
		opTokens[op] = tp
	}
}

func (op OpCode) String() string {
	return opTokens[op].Literal()
}

type UnaryOpCode int

const (
	NegationOpTP UnaryOpCode = iota
	BooleanNegationOpTP
)

func (op UnaryOpCode) String() string {
	if op == NegationOpTP {
		return "-"
	}
	return "~"
}

type TermAst interface {
	term()
}

type IntegerConstantTerm struct {
	Value int
}

type StringConstantTerm struct {
	Value string
}

type KeywordConstantTerm struct {
	Keyword KeywordConstant
}

type KeywordConstant int

const (
	TrueKeywordConstant KeywordConstant = iota
	FalseKeywordConstant
	NullKeywordConstant
	ThisKeywordConstant
)

func (k KeywordConstant) String() string {
	switch k {
	case TrueKeywordConstant:
		return "true"
	case FalseKeywordConstant:
		return "false"
	case NullKeywordConstant:
		return "null"
	}
	return "this"
}

type VarNameTerm struct {
	VarName string
}

type ArrayIndexTerm struct {
	VarName string
	Index   *ExpressionAst
}

// CallAst is a subroutine call. FuncProvider is a class or variable name for Foo.m1(),
// and empty for m1() which calls into the current class.
type CallAst struct {
	FuncProvider string
	FuncName     string
	Params       []*ExpressionAst
}

type SubExpressionTerm struct {
	Expr *ExpressionAst
}

type UnaryOpTerm struct {
	Op   UnaryOpCode
	Term TermAst
}

func (*IntegerConstantTerm) term() {}
func (*StringConstantTerm) term()  {}
func (*KeywordConstantTerm) term() {}
func (*VarNameTerm) term()         {}
func (*ArrayIndexTerm) term()      {}
func (*CallAst) term()             {}
func (*SubExpressionTerm) term()   {}
func (*UnaryOpTerm) term()         {}
