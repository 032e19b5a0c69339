package internal

import (
	"fmt"
	"math"

	"tlog.app/go/errors"

	"github.com/xiaobogaga/hack/vm"
)

// CodeGenerator lowers a class ast to vm code.
// Labels are numbered by one counter shared by if and while statements, so they are unique
// across every class compiled by the same generator.
type CodeGenerator struct {
	className      string
	subroutineName string
	symbolTable    *SymbolTable
	labelCounter   int
	code           []vm.Instruction
}

func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{}
}

// Compile returns the vm code of class. Nothing is returned on error.
func (generator *CodeGenerator) Compile(class *ClassAst) ([]vm.Instruction, error) {
	generator.className = class.ClassName
	generator.symbolTable = NewSymbolTable()
	generator.code = nil
	// Fields may be used by subroutines declared before them, so all class variables go first.
	for _, variable := range class.ClassVariables {
		err := generator.defineClassVariable(variable)
		if err != nil {
			return nil, err
		}
	}
	for _, subroutine := range class.Subroutines {
		err := generator.generateSubroutineCode(subroutine)
		if err != nil {
			return nil, err
		}
	}
	code := generator.code
	generator.code = nil
	return code, nil
}

// SymbolTable is the table of the last compiled class.
func (generator *CodeGenerator) SymbolTable() *SymbolTable {
	return generator.symbolTable
}

func (generator *CodeGenerator) defineClassVariable(variable *ClassVariableAst) error {
	tp := StaticSymbolType
	if variable.FieldTP == ObjectFieldType {
		tp = FieldSymbolType
	}
	for _, name := range variable.VariableNames {
		_, err := generator.symbolTable.Define(name, variable.VariableType, tp)
		if err != nil {
			return err
		}
	}
	return nil
}

// function className.funcName nLocals
// followed by the this setup of constructors and methods and the statements.
func (generator *CodeGenerator) generateSubroutineCode(subroutine *SubroutineAst) error {
	table := generator.symbolTable
	table.StartSubroutine()
	generator.subroutineName = generator.className + "." + subroutine.FuncName
	if subroutine.Body == nil {
		return errors.New("subroutine %s has no body", generator.subroutineName)
	}
	// The receiver of a method is passed as argument 0.
	if subroutine.FuncTP == ClassMethodType {
		_, err := table.Define("this", VariableType{TP: ClassVariableType, Name: generator.className}, ArgumentSymbolType)
		if err != nil {
			return err
		}
	}
	for _, param := range subroutine.Params {
		_, err := table.Define(param.ParamName, param.ParamTP, ArgumentSymbolType)
		if err != nil {
			return err
		}
	}
	for _, decl := range subroutine.Body.LocalVariables {
		for _, name := range decl.VarNames {
			_, err := table.Define(name, decl.VarType, LocalSymbolType)
			if err != nil {
				return err
			}
		}
	}
	locals, err := checkCount("local variable count", table.VarCount(LocalSymbolType))
	if err != nil {
		return err
	}
	generator.writeOutput(vm.Function(generator.subroutineName, locals))
	switch subroutine.FuncTP {
	case ClassConstructorType:
		// The constructor allocates the object, one word per field.
		fields, err := checkCount("field count", table.VarCount(FieldSymbolType))
		if err != nil {
			return err
		}
		generator.writeOutput(
			vm.Push(vm.ConstantSegment, fields),
			vm.Call("Memory.alloc", 1),
			vm.Pop(vm.PointerSegment, 0),
		)
	case ClassMethodType:
		generator.writeOutput(
			vm.Push(vm.ArgumentSegment, 0),
			vm.Pop(vm.PointerSegment, 0),
		)
	}
	return generator.generateStatementsCode(subroutine.Body.Statements)
}

func (generator *CodeGenerator) generateStatementsCode(statements []StatementAst) error {
	for _, statement := range statements {
		err := generator.generateStatementCode(statement)
		if err != nil {
			return err
		}
	}
	return nil
}

func (generator *CodeGenerator) generateStatementCode(statement StatementAst) error {
	switch statement := statement.(type) {
	case *LetStatementAst:
		return generator.generateLetStatementCode(statement)
	case *IfStatementAst:
		return generator.generateIfStatementCode(statement)
	case *WhileStatementAst:
		return generator.generateWhileStatementCode(statement)
	case *DoStatementAst:
		return generator.generateDoStatementCode(statement)
	case *ReturnStatementAst:
		return generator.generateReturnStatementCode(statement)
	default:
		return errors.New("unsupported statement %T", statement)
	}
}

// let a = expr:
// expr code
// pop segment(a) index(a)
//
// let a[i] = expr:
// push a, i code, add
// expr code
// pop temp 0, pop pointer 1, push temp 0, pop that 0
// The value goes through temp 0 because expr may itself move pointer 1.
func (generator *CodeGenerator) generateLetStatementCode(statement *LetStatementAst) error {
	desc, err := generator.lookUpVariable(statement.VarName)
	if err != nil {
		return err
	}
	if statement.ArrayIndex == nil {
		err = generator.generateExpressionCode(statement.Value)
		if err != nil {
			return err
		}
		generator.writeOutput(vm.Pop(desc.SymbolType.Segment(), desc.Index))
		return nil
	}
	generator.writeOutput(vm.Push(desc.SymbolType.Segment(), desc.Index))
	err = generator.generateExpressionCode(statement.ArrayIndex)
	if err != nil {
		return err
	}
	generator.writeOutput(vm.Arithmetic(vm.AddCommand))
	err = generator.generateExpressionCode(statement.Value)
	if err != nil {
		return err
	}
	generator.writeOutput(
		vm.Pop(vm.TempSegment, 0),
		vm.Pop(vm.PointerSegment, 1),
		vm.Push(vm.TempSegment, 0),
		vm.Pop(vm.ThatSegment, 0),
	)
	return nil
}

// condition code
// not
// if-goto IF_n_FALSE
// if true statements code
// goto IF_n_END
// label IF_n_FALSE
// else statements code
// label IF_n_END
// false and null are 0 and true is -1. if-goto jumps when the top value is not zero.
func (generator *CodeGenerator) generateIfStatementCode(statement *IfStatementAst) error {
	n := generator.nextLabel()
	falseLabel, endLabel := fmt.Sprintf("IF_%d_FALSE", n), fmt.Sprintf("IF_%d_END", n)
	err := generator.generateExpressionCode(statement.Condition)
	if err != nil {
		return err
	}
	generator.writeOutput(vm.Arithmetic(vm.NotCommand), vm.IfGoto(falseLabel))
	err = generator.generateStatementsCode(statement.IfTrueStatements)
	if err != nil {
		return err
	}
	generator.writeOutput(vm.Goto(endLabel), vm.Label(falseLabel))
	err = generator.generateStatementsCode(statement.ElseStatements)
	if err != nil {
		return err
	}
	generator.writeOutput(vm.Label(endLabel))
	return nil
}

// label WHILE_n_CONDITION
// condition code
// not
// if-goto WHILE_n_END
// statements code
// goto WHILE_n_CONDITION
// label WHILE_n_END
func (generator *CodeGenerator) generateWhileStatementCode(statement *WhileStatementAst) error {
	n := generator.nextLabel()
	conditionLabel, endLabel := fmt.Sprintf("WHILE_%d_CONDITION", n), fmt.Sprintf("WHILE_%d_END", n)
	generator.writeOutput(vm.Label(conditionLabel))
	err := generator.generateExpressionCode(statement.Condition)
	if err != nil {
		return err
	}
	generator.writeOutput(vm.Arithmetic(vm.NotCommand), vm.IfGoto(endLabel))
	err = generator.generateStatementsCode(statement.Statements)
	if err != nil {
		return err
	}
	generator.writeOutput(vm.Goto(conditionLabel), vm.Label(endLabel))
	return nil
}

func (generator *CodeGenerator) nextLabel() int {
	generator.labelCounter++
	return generator.labelCounter
}

// The returned value of a do call is dropped.
func (generator *CodeGenerator) generateDoStatementCode(statement *DoStatementAst) error {
	if statement.Call == nil {
		return errors.New("do statement without call in %s", generator.subroutineName)
	}
	err := generator.generateFuncCallCode(statement.Call)
	if err != nil {
		return err
	}
	generator.writeOutput(vm.Pop(vm.TempSegment, 0))
	return nil
}

// Every subroutine returns a value, void ones return 0.
func (generator *CodeGenerator) generateReturnStatementCode(statement *ReturnStatementAst) error {
	if statement.Value == nil {
		generator.writeOutput(vm.Push(vm.ConstantSegment, 0))
	} else {
		err := generator.generateExpressionCode(statement.Value)
		if err != nil {
			return err
		}
	}
	generator.writeOutput(vm.Return())
	return nil
}

// term (op term)* is computed from left to right:
// term1 code, term2 code, op1, term3 code, op2 ...
func (generator *CodeGenerator) generateExpressionCode(expr *ExpressionAst) error {
	if expr == nil {
		return errors.New("missing expression in %s", generator.subroutineName)
	}
	err := generator.generateExpressionTermCode(expr.Term)
	if err != nil {
		return err
	}
	for _, op := range expr.Ops {
		err = generator.generateExpressionTermCode(op.Term)
		if err != nil {
			return err
		}
		err = generator.generateOpCode(op.Op)
		if err != nil {
			return err
		}
	}
	return nil
}

func (generator *CodeGenerator) generateExpressionTermCode(term TermAst) error {
	switch term := term.(type) {
	case *IntegerConstantTerm:
		if term.Value < 0 || term.Value > MaxInteger {
			return &RangeError{What: "integer constant", Value: term.Value, Max: MaxInteger}
		}
		generator.writeOutput(vm.Push(vm.ConstantSegment, uint16(term.Value)))
	case *StringConstantTerm:
		return generator.generateConstantStringCode(term.Value)
	case *KeywordConstantTerm:
		return generator.generateKeywordConstantCode(term.Keyword)
	case *VarNameTerm:
		desc, err := generator.lookUpVariable(term.VarName)
		if err != nil {
			return err
		}
		generator.writeOutput(vm.Push(desc.SymbolType.Segment(), desc.Index))
	case *ArrayIndexTerm:
		return generator.generateArrayIndexCode(term)
	case *CallAst:
		return generator.generateFuncCallCode(term)
	case *SubExpressionTerm:
		return generator.generateExpressionCode(term.Expr)
	case *UnaryOpTerm:
		err := generator.generateExpressionTermCode(term.Term)
		if err != nil {
			return err
		}
		return generator.generateUnaryOpCode(term.Op)
	default:
		return errors.New("unsupported term %T", term)
	}
	return nil
}

func (generator *CodeGenerator) generateKeywordConstantCode(keyword KeywordConstant) error {
	switch keyword {
	case TrueKeywordConstant:
		generator.writeOutput(vm.Push(vm.ConstantSegment, 1), vm.Arithmetic(vm.NegCommand))
	case FalseKeywordConstant, NullKeywordConstant:
		generator.writeOutput(vm.Push(vm.ConstantSegment, 0))
	case ThisKeywordConstant:
		generator.writeOutput(vm.Push(vm.PointerSegment, 0))
	default:
		return errors.New("unsupported keyword constant %d", keyword)
	}
	return nil
}

// push a, index code, add
// pop pointer 1
// push that 0
func (generator *CodeGenerator) generateArrayIndexCode(term *ArrayIndexTerm) error {
	desc, err := generator.lookUpVariable(term.VarName)
	if err != nil {
		return err
	}
	generator.writeOutput(vm.Push(desc.SymbolType.Segment(), desc.Index))
	err = generator.generateExpressionCode(term.Index)
	if err != nil {
		return err
	}
	generator.writeOutput(
		vm.Arithmetic(vm.AddCommand),
		vm.Pop(vm.PointerSegment, 1),
		vm.Push(vm.ThatSegment, 0),
	)
	return nil
}

// There are three kinds of calls:
// * m1(args): a method of the current class on this. push pointer 0, args, call Class.m1 n+1.
// * v.m1(args) where v is a variable: a method of the declared class of v.
//   push v, args, call Type.m1 n+1.
// * Foo.m1(args) where Foo is not a variable: a function or constructor of class Foo.
//   args, call Foo.m1 n.
func (generator *CodeGenerator) generateFuncCallCode(call *CallAst) error {
	argc := len(call.Params)
	var funcName string
	switch {
	case call.FuncProvider == "":
		generator.writeOutput(vm.Push(vm.PointerSegment, 0))
		argc++
		funcName = generator.className + "." + call.FuncName
	default:
		desc, ok := generator.symbolTable.Get(call.FuncProvider)
		if ok {
			generator.writeOutput(vm.Push(desc.SymbolType.Segment(), desc.Index))
			argc++
			funcName = desc.VariableType.String() + "." + call.FuncName
		} else {
			funcName = call.FuncProvider + "." + call.FuncName
		}
	}
	for _, param := range call.Params {
		err := generator.generateExpressionCode(param)
		if err != nil {
			return err
		}
	}
	n, err := checkCount("argument count", argc)
	if err != nil {
		return err
	}
	generator.writeOutput(vm.Call(funcName, n))
	return nil
}

// push constant len
// call String.new 1
// pop temp 0
// then for each character:
// push temp 0, push constant c, call String.appendChar 2
// appendChar returns the string itself. Every result but the last is dropped to temp 0,
// the last one is the value of the term.
func (generator *CodeGenerator) generateConstantStringCode(str string) error {
	chars := []rune(str)
	length, err := checkCount("string length", len(chars))
	if err != nil {
		return err
	}
	generator.writeOutput(
		vm.Push(vm.ConstantSegment, length),
		vm.Call("String.new", 1),
		vm.Pop(vm.TempSegment, 0),
	)
	for i, c := range chars {
		code, err := checkCount("character code", int(c))
		if err != nil {
			return err
		}
		if i != 0 {
			generator.writeOutput(vm.Pop(vm.TempSegment, 0))
		}
		generator.writeOutput(
			vm.Push(vm.TempSegment, 0),
			vm.Push(vm.ConstantSegment, code),
			vm.Call("String.appendChar", 2),
		)
	}
	// An empty string has no appendChar to leave it on the stack.
	if len(chars) == 0 {
		generator.writeOutput(vm.Push(vm.TempSegment, 0))
	}
	return nil
}

func (generator *CodeGenerator) generateOpCode(op OpCode) error {
	switch op {
	case AddOpTP:
		generator.writeOutput(vm.Arithmetic(vm.AddCommand))
	case MinusOpTP:
		generator.writeOutput(vm.Arithmetic(vm.SubCommand))
	case MultipleOpTP:
		generator.writeOutput(vm.Call("Math.multiply", 2))
	case DivideOpTP:
		generator.writeOutput(vm.Call("Math.divide", 2))
	case AndOpTP:
		generator.writeOutput(vm.Arithmetic(vm.AndCommand))
	case OrOpTP:
		generator.writeOutput(vm.Arithmetic(vm.OrCommand))
	case LessOpTP:
		generator.writeOutput(vm.Arithmetic(vm.LtCommand))
	case GreaterOpTP:
		generator.writeOutput(vm.Arithmetic(vm.GtCommand))
	case EqualOpTP:
		generator.writeOutput(vm.Arithmetic(vm.EqCommand))
	default:
		return errors.New("unsupported operator %d", op)
	}
	return nil
}

func (generator *CodeGenerator) generateUnaryOpCode(op UnaryOpCode) error {
	switch op {
	case NegationOpTP:
		generator.writeOutput(vm.Arithmetic(vm.NegCommand))
	case BooleanNegationOpTP:
		generator.writeOutput(vm.Arithmetic(vm.NotCommand))
	default:
		return errors.New("unsupported unary operator %d", op)
	}
	return nil
}

func (generator *CodeGenerator) lookUpVariable(name string) (*SymbolDesc, error) {
	desc, ok := generator.symbolTable.Get(name)
	if !ok {
		return nil, &BindingError{Name: name, Subroutine: generator.subroutineName}
	}
	return desc, nil
}

func checkCount(what string, n int) (uint16, error) {
	if n < 0 || n > math.MaxUint16 {
		return 0, &RangeError{What: what, Value: n, Max: math.MaxUint16}
	}
	return uint16(n), nil
}

func (generator *CodeGenerator) writeOutput(code ...vm.Instruction) {
	generator.code = append(generator.code, code...)
}
