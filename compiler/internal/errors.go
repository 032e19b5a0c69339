package internal

import (
	"fmt"
)

// SyntaxError reports the first token that does not fit the grammar.
// EOF is set when the tokens ran out before the construct was complete.
type SyntaxError struct {
	Found    string
	Expected string
	Line     int
	EOF      bool
}

func (e *SyntaxError) Error() string {
	if e.EOF {
		return fmt.Sprintf("syntax error: unexpected end of input, expected %s", e.Expected)
	}
	return fmt.Sprintf("syntax error near %s at line %d, expected %s", e.Found, e.Line, e.Expected)
}

// BindingError reports a variable used without a declaration in scope.
type BindingError struct {
	Name       string
	Subroutine string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("binding error: undefined variable %s in %s", e.Name, e.Subroutine)
}

// RangeError reports a constant or a count the 16 bit machine cannot hold.
type RangeError struct {
	What  string
	Value int
	Max   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("range error: %s %d out of range 0..%d", e.What, e.Value, e.Max)
}
