package internal

import (
	"math"

	"github.com/xiaobogaga/hack/vm"
)

// SymbolTable binds variable names to their storage while one class compiles.
// Static and field variables live in the class scope for the whole class,
// arguments and locals live in the subroutine scope and are dropped by StartSubroutine.
type SymbolTable struct {
	classSymbols map[string]*SymbolDesc
	funcSymbols  map[string]*SymbolDesc
	indicators   [symbolTypeCount]int
}

type SymbolDesc struct {
	Name         string
	VariableType VariableType
	SymbolType   SymbolType
	Index        uint16
}

type SymbolType int

const (
	StaticSymbolType SymbolType = iota
	FieldSymbolType
	ArgumentSymbolType
	LocalSymbolType

	symbolTypeCount
)

func (tp SymbolType) String() string {
	switch tp {
	case StaticSymbolType:
		return "static"
	case FieldSymbolType:
		return "field"
	case ArgumentSymbolType:
		return "argument"
	default:
		return "local"
	}
}

// Segment is where variables of this kind are stored.
func (tp SymbolType) Segment() vm.Segment {
	switch tp {
	case StaticSymbolType:
		return vm.StaticSegment
	case FieldSymbolType:
		return vm.ThisSegment
	case ArgumentSymbolType:
		return vm.ArgumentSegment
	default:
		return vm.LocalSegment
	}
}

func (tp SymbolType) isClassScope() bool {
	return tp == StaticSymbolType || tp == FieldSymbolType
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		classSymbols: map[string]*SymbolDesc{},
		funcSymbols:  map[string]*SymbolDesc{},
	}
}

// Define binds name to the next free index of tp. Defining a name already bound in the
// same scope replaces the old binding.
func (table *SymbolTable) Define(name string, variableType VariableType, tp SymbolType) (*SymbolDesc, error) {
	index := table.indicators[tp]
	if index > math.MaxUint16 {
		return nil, &RangeError{What: tp.String() + " variable count", Value: index + 1, Max: math.MaxUint16 + 1}
	}
	desc := &SymbolDesc{Name: name, VariableType: variableType, SymbolType: tp, Index: uint16(index)}
	table.indicators[tp]++
	if tp.isClassScope() {
		table.classSymbols[name] = desc
	} else {
		table.funcSymbols[name] = desc
	}
	return desc, nil
}

// StartSubroutine drops arguments and locals of the previous subroutine.
func (table *SymbolTable) StartSubroutine() {
	table.funcSymbols = map[string]*SymbolDesc{}
	table.indicators[ArgumentSymbolType] = 0
	table.indicators[LocalSymbolType] = 0
}

// Get looks the name up in the subroutine scope first, then in the class scope.
func (table *SymbolTable) Get(name string) (*SymbolDesc, bool) {
	if desc, ok := table.funcSymbols[name]; ok {
		return desc, true
	}
	desc, ok := table.classSymbols[name]
	return desc, ok
}

// VarCount is the number of variables defined of tp. Redefinitions are counted too.
func (table *SymbolTable) VarCount(tp SymbolType) int {
	return table.indicators[tp]
}
