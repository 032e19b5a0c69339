package vm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"tlog.app/go/errors"
)

// The vm language has four kinds of commands:
// * Arithmetic commands: add, sub, neg, eq, gt, lt, and, or, not.
// * Memory access commands: push segment index, pop segment index, where segment can be
//   argument, local, static, constant, this, that, pointer, temp.
// * Program flow commands: label name, goto name, if-goto name.
// * Function calling commands: function f k, call f n, return.
//
// The textual form of an Instruction is what downstream translators consume, so String()
// must produce exactly one of those shapes.

type Command int

const (
	PushCommand Command = iota
	PopCommand
	AddCommand
	SubCommand
	NegCommand
	EqCommand
	GtCommand
	LtCommand
	AndCommand
	OrCommand
	NotCommand
	LabelCommand
	GotoCommand
	IfGotoCommand
	FunctionCommand
	CallCommand
	ReturnCommand
)

var commandNames = [...]string{
	PushCommand:     "push",
	PopCommand:      "pop",
	AddCommand:      "add",
	SubCommand:      "sub",
	NegCommand:      "neg",
	EqCommand:       "eq",
	GtCommand:       "gt",
	LtCommand:       "lt",
	AndCommand:      "and",
	OrCommand:       "or",
	NotCommand:      "not",
	LabelCommand:    "label",
	GotoCommand:     "goto",
	IfGotoCommand:   "if-goto",
	FunctionCommand: "function",
	CallCommand:     "call",
	ReturnCommand:   "return",
}

func (c Command) String() string {
	if c < 0 || int(c) >= len(commandNames) {
		return fmt.Sprintf("Command(%d)", int(c))
	}
	return commandNames[c]
}

// IsArithmetic reports whether c takes no operand and works on the stack top.
func (c Command) IsArithmetic() bool {
	return c >= AddCommand && c <= NotCommand
}

type Segment int

const (
	ConstantSegment Segment = iota
	ArgumentSegment
	LocalSegment
	StaticSegment
	ThisSegment
	ThatSegment
	PointerSegment
	TempSegment
)

var segmentNames = [...]string{
	ConstantSegment: "constant",
	ArgumentSegment: "argument",
	LocalSegment:    "local",
	StaticSegment:   "static",
	ThisSegment:     "this",
	ThatSegment:     "that",
	PointerSegment:  "pointer",
	TempSegment:     "temp",
}

func (s Segment) String() string {
	if s < 0 || int(s) >= len(segmentNames) {
		return fmt.Sprintf("Segment(%d)", int(s))
	}
	return segmentNames[s]
}

var (
	commandsByName = map[string]Command{}
	segmentsByName = map[string]Segment{}
)

func init() {
	for c, name := range commandNames {
		commandsByName[name] = Command(c)
	}
	for s, name := range segmentNames {
		segmentsByName[name] = Segment(s)
	}
}

// Instruction is one line of vm code.
//
// Segment and Index are used by push and pop. Name is the label for label, goto and
// if-goto, and the function name for function and call. N is the local count of
// function and the argument count of call.
type Instruction struct {
	Command Command
	Segment Segment
	Index   uint16
	Name    string
	N       uint16
}

func Push(segment Segment, index uint16) Instruction {
	return Instruction{Command: PushCommand, Segment: segment, Index: index}
}

func Pop(segment Segment, index uint16) Instruction {
	return Instruction{Command: PopCommand, Segment: segment, Index: index}
}

func Arithmetic(c Command) Instruction {
	return Instruction{Command: c}
}

func Label(name string) Instruction {
	return Instruction{Command: LabelCommand, Name: name}
}

func Goto(name string) Instruction {
	return Instruction{Command: GotoCommand, Name: name}
}

func IfGoto(name string) Instruction {
	return Instruction{Command: IfGotoCommand, Name: name}
}

func Function(name string, locals uint16) Instruction {
	return Instruction{Command: FunctionCommand, Name: name, N: locals}
}

func Call(name string, args uint16) Instruction {
	return Instruction{Command: CallCommand, Name: name, N: args}
}

func Return() Instruction {
	return Instruction{Command: ReturnCommand}
}

func (i Instruction) String() string {
	switch i.Command {
	case PushCommand, PopCommand:
		return fmt.Sprintf("%s %s %d", i.Command, i.Segment, i.Index)
	case LabelCommand, GotoCommand, IfGotoCommand:
		return fmt.Sprintf("%s %s", i.Command, i.Name)
	case FunctionCommand, CallCommand:
		return fmt.Sprintf("%s %s %d", i.Command, i.Name, i.N)
	default:
		return i.Command.String()
	}
}

// Format renders instructions one per line, each line terminated by a newline.
func Format(code []Instruction) string {
	var b strings.Builder
	for _, i := range code {
		b.WriteString(i.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteTo writes the textual form of code to w.
func WriteTo(w io.Writer, code []Instruction) error {
	bw := bufio.NewWriter(w)
	for _, i := range code {
		if _, err := bw.WriteString(i.String()); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Parse reads one line of vm code. Blank lines and lines holding only a // comment
// return ok == false.
func Parse(line string) (inst Instruction, ok bool, err error) {
	if idx := strings.Index(line, "//"); idx >= 0 {
		line = line[:idx]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return inst, false, nil
	}
	c, exist := commandsByName[fields[0]]
	if !exist {
		return inst, false, errors.New("unknown command %q", fields[0])
	}
	inst.Command = c
	switch {
	case c == PushCommand || c == PopCommand:
		if len(fields) != 3 {
			return inst, false, errors.New("%s needs a segment and an index: %q", c, line)
		}
		seg, exist := segmentsByName[fields[1]]
		if !exist {
			return inst, false, errors.New("unknown segment %q", fields[1])
		}
		if c == PopCommand && seg == ConstantSegment {
			return inst, false, errors.New("cannot pop to the constant segment")
		}
		inst.Segment = seg
		inst.Index, err = parseUint16(fields[2])
	case c == LabelCommand || c == GotoCommand || c == IfGotoCommand:
		if len(fields) != 2 {
			return inst, false, errors.New("%s needs a label: %q", c, line)
		}
		inst.Name = fields[1]
	case c == FunctionCommand || c == CallCommand:
		if len(fields) != 3 {
			return inst, false, errors.New("%s needs a name and a count: %q", c, line)
		}
		inst.Name = fields[1]
		inst.N, err = parseUint16(fields[2])
	default:
		if len(fields) != 1 {
			return inst, false, errors.New("%s takes no operands: %q", c, line)
		}
	}
	if err != nil {
		return inst, false, err
	}
	return inst, true, nil
}

func parseUint16(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, errors.Wrap(err, "bad number %q", s)
	}
	return uint16(v), nil
}

// ParseProgram reads vm code from rd, one instruction per line.
func ParseProgram(rd io.Reader) ([]Instruction, error) {
	var code []Instruction
	sc := bufio.NewScanner(rd)
	line := 0
	for sc.Scan() {
		line++
		inst, ok, err := Parse(sc.Text())
		if err != nil {
			return nil, errors.Wrap(err, "line %d", line)
		}
		if ok {
			code = append(code, inst)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read")
	}
	return code, nil
}
