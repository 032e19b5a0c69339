package vm

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

// Memory layout of the machine follows the hack platform:
// RAM[0] SP, RAM[1] LCL, RAM[2] ARG, RAM[3] THIS, RAM[4] THAT,
// RAM[5..12] temp, RAM[16..255] statics, RAM[256..2047] stack, RAM[2048..16383] heap.
const (
	SP   = 0
	LCL  = 1
	ARG  = 2
	THIS = 3
	THAT = 4

	TempBase   = 5
	TempSize   = 8
	StaticBase = 16
	StackBase  = 256
	HeapBase   = 2048
	HeapEnd    = 16384
	RAMSize    = 32768
)

// returnHalt is the return address given to the entry function.
const returnHalt = -1

// Builtin is a routine the machine provides itself instead of running vm code,
// the way the jack OS classes are linked in on the real platform.
type Builtin func(m *Machine, args []int16) (int16, error)

type Machine struct {
	RAM [RAMSize]int16

	// Out receives what the Output builtins print.
	Out io.Writer

	code      []Instruction
	functions map[string]int
	labels    map[string]int
	owners    []string // function each instruction belongs to
	statics   []int    // static base address for each instruction
	builtins  map[string]Builtin
	heapTop   int
	pc        int
	steps     int
	callDepth int
}

// NewMachine loads code. Functions and labels are resolved at load time, labels being scoped
// to the function they are declared in.
func NewMachine(code []Instruction) (*Machine, error) {
	m := &Machine{
		code:      code,
		functions: map[string]int{},
		labels:    map[string]int{},
		owners:    make([]string, len(code)),
		statics:   make([]int, len(code)),
		builtins:  map[string]Builtin{},
		Out:       io.Discard,
	}
	for name, b := range defaultBuiltins {
		m.builtins[name] = b
	}
	err := m.load()
	if err != nil {
		return nil, err
	}
	m.Reset()
	return m, nil
}

func (m *Machine) load() error {
	if len(m.code) > 32767 {
		return errors.New("program too long: %d instructions", len(m.code))
	}
	staticCount := map[string]int{}
	var classes []string
	current := ""
	for pc, inst := range m.code {
		switch inst.Command {
		case FunctionCommand:
			if _, exist := m.functions[inst.Name]; exist {
				return errors.New("function %s defined twice", inst.Name)
			}
			m.functions[inst.Name] = pc
			current = inst.Name
			class := className(current)
			if _, exist := staticCount[class]; !exist {
				staticCount[class] = 0
				classes = append(classes, class)
			}
		case LabelCommand:
			key := current + "$" + inst.Name
			if _, exist := m.labels[key]; exist {
				return errors.New("label %s defined twice in %s", inst.Name, current)
			}
			m.labels[key] = pc
		case PushCommand, PopCommand:
			if inst.Segment != StaticSegment {
				continue
			}
			class := className(current)
			if int(inst.Index)+1 > staticCount[class] {
				staticCount[class] = int(inst.Index) + 1
			}
		}
	}
	base := map[string]int{}
	next := StaticBase
	for _, class := range classes {
		base[class] = next
		next += staticCount[class]
	}
	if next > StackBase {
		return errors.New("too many static variables: %d", next-StaticBase)
	}
	current = ""
	for pc, inst := range m.code {
		if inst.Command == FunctionCommand {
			current = inst.Name
		}
		m.owners[pc] = current
		m.statics[pc] = base[className(current)]
	}
	return nil
}

func className(function string) string {
	if idx := strings.IndexByte(function, '.'); idx >= 0 {
		return function[:idx]
	}
	return function
}

// Reset clears memory and the heap.
func (m *Machine) Reset() {
	m.RAM = [RAMSize]int16{}
	m.RAM[SP] = StackBase
	m.heapTop = HeapBase
	m.pc = returnHalt
	m.steps = 0
	m.callDepth = 0
}

// Define adds or replaces a builtin routine.
func (m *Machine) Define(name string, b Builtin) {
	m.builtins[name] = b
}

// Steps reports how many instructions the last Run executed.
func (m *Machine) Steps() int { return m.steps }

// SP reports the current stack pointer.
func (m *Machine) SP() int { return int(m.RAM[SP]) }

// Run calls entry with args and executes until it returns. maxSteps <= 0 means no limit.
func (m *Machine) Run(ctx context.Context, entry string, maxSteps int, args ...int16) (res int16, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "vm: run", "entry", entry, "args", args)
	defer tr.Finish("err", &err)

	for _, a := range args {
		if err = m.push(a); err != nil {
			return 0, err
		}
	}
	err = m.call(entry, len(args), returnHalt)
	if err != nil {
		return 0, errors.Wrap(err, "call %v", entry)
	}
	verbose := tr.If("vm")
	for m.pc != returnHalt {
		if maxSteps > 0 && m.steps >= maxSteps {
			return 0, errors.New("step limit %d exceeded in %s", maxSteps, m.functionAt(m.pc))
		}
		if m.steps%4096 == 0 {
			if err = ctx.Err(); err != nil {
				return 0, err
			}
		}
		if m.pc < 0 || m.pc >= len(m.code) {
			return 0, errors.New("pc %d out of code", m.pc)
		}
		inst := m.code[m.pc]
		if verbose {
			tr.Printw("step", "pc", m.pc, "inst", inst.String(), "sp", m.RAM[SP])
		}
		m.steps++
		err = m.step(inst)
		if err != nil {
			return 0, errors.Wrap(err, "%v: %q", m.functionAt(m.pc), inst.String())
		}
	}
	tr.Printw("returned", "steps", m.steps)
	return m.pop()
}

func (m *Machine) functionAt(pc int) string {
	if pc < 0 || pc >= len(m.owners) {
		return ""
	}
	return m.owners[pc]
}

func (m *Machine) step(inst Instruction) error {
	switch inst.Command {
	case PushCommand:
		v, err := m.read(inst.Segment, inst.Index)
		if err != nil {
			return err
		}
		m.pc++
		return m.push(v)
	case PopCommand:
		v, err := m.pop()
		if err != nil {
			return err
		}
		err = m.write(inst.Segment, inst.Index, v)
		m.pc++
		return err
	case AddCommand, SubCommand, EqCommand, GtCommand, LtCommand, AndCommand, OrCommand:
		y, err := m.pop()
		if err != nil {
			return err
		}
		x, err := m.pop()
		if err != nil {
			return err
		}
		m.pc++
		return m.push(binary(inst.Command, x, y))
	case NegCommand, NotCommand:
		x, err := m.pop()
		if err != nil {
			return err
		}
		if inst.Command == NegCommand {
			x = -x
		} else {
			x = ^x
		}
		m.pc++
		return m.push(x)
	case LabelCommand:
		m.pc++
		return nil
	case GotoCommand:
		return m.jump(inst.Name)
	case IfGotoCommand:
		v, err := m.pop()
		if err != nil {
			return err
		}
		if v != 0 {
			return m.jump(inst.Name)
		}
		m.pc++
		return nil
	case FunctionCommand:
		for i := 0; i < int(inst.N); i++ {
			if err := m.push(0); err != nil {
				return err
			}
		}
		m.pc++
		return nil
	case CallCommand:
		return m.call(inst.Name, int(inst.N), m.pc+1)
	case ReturnCommand:
		return m.ret()
	default:
		return errors.New("unsupported command %v", inst.Command)
	}
}

func binary(c Command, x, y int16) int16 {
	switch c {
	case AddCommand:
		return x + y
	case SubCommand:
		return x - y
	case AndCommand:
		return x & y
	case OrCommand:
		return x | y
	case EqCommand:
		return boolValue(x == y)
	case GtCommand:
		return boolValue(x > y)
	default:
		return boolValue(x < y)
	}
}

func boolValue(b bool) int16 {
	if b {
		return -1
	}
	return 0
}

func (m *Machine) jump(label string) error {
	key := m.functionAt(m.pc) + "$" + label
	pc, ok := m.labels[key]
	if !ok {
		return errors.New("unknown label %s", label)
	}
	m.pc = pc
	return nil
}

// call follows the hack calling convention: push return address, LCL, ARG, THIS, THAT,
// then ARG = SP-n-5 and LCL = SP.
func (m *Machine) call(name string, n int, returnAddr int) error {
	if int(m.RAM[SP])-n < StackBase {
		return errors.New("call %s with %d arguments, stack holds %d", name, n, int(m.RAM[SP])-StackBase)
	}
	pc, ok := m.functions[name]
	if !ok {
		b, ok := m.builtins[name]
		if !ok {
			return errors.New("unknown function %s", name)
		}
		return m.callBuiltin(name, b, n, returnAddr)
	}
	sp := int(m.RAM[SP])
	for _, v := range []int16{int16(returnAddr), m.RAM[LCL], m.RAM[ARG], m.RAM[THIS], m.RAM[THAT]} {
		if err := m.push(v); err != nil {
			return err
		}
	}
	m.RAM[ARG] = int16(sp - n)
	m.RAM[LCL] = m.RAM[SP]
	m.pc = pc
	m.callDepth++
	return nil
}

func (m *Machine) callBuiltin(name string, b Builtin, n int, returnAddr int) error {
	sp := int(m.RAM[SP])
	args := make([]int16, n)
	copy(args, m.RAM[sp-n:sp])
	m.RAM[SP] = int16(sp - n)
	res, err := b(m, args)
	if err != nil {
		return errors.Wrap(err, "%v", name)
	}
	m.pc = returnAddr
	return m.push(res)
}

func (m *Machine) ret() error {
	if m.callDepth == 0 {
		return errors.New("return outside of a function")
	}
	frame := int(m.RAM[LCL])
	returnAddr := int(m.RAM[frame-5])
	res, err := m.pop()
	if err != nil {
		return err
	}
	arg := int(m.RAM[ARG])
	m.RAM[arg] = res
	m.RAM[SP] = int16(arg + 1)
	m.RAM[THAT] = m.RAM[frame-1]
	m.RAM[THIS] = m.RAM[frame-2]
	m.RAM[ARG] = m.RAM[frame-3]
	m.RAM[LCL] = m.RAM[frame-4]
	m.pc = returnAddr
	m.callDepth--
	return nil
}

func (m *Machine) push(v int16) error {
	sp := int(m.RAM[SP])
	if sp >= HeapBase {
		return errors.New("stack overflow")
	}
	m.RAM[sp] = v
	m.RAM[SP]++
	return nil
}

func (m *Machine) pop() (int16, error) {
	sp := int(m.RAM[SP])
	limit := StackBase
	if m.callDepth > 0 {
		limit = int(m.RAM[LCL])
	}
	if sp <= limit {
		return 0, errors.New("stack underflow")
	}
	m.RAM[SP]--
	return m.RAM[sp-1], nil
}

func (m *Machine) address(seg Segment, idx uint16) (int, error) {
	i := int(idx)
	switch seg {
	case ArgumentSegment:
		return int(m.RAM[ARG]) + i, nil
	case LocalSegment:
		return int(m.RAM[LCL]) + i, nil
	case ThisSegment:
		return m.checkAddress(int(m.RAM[THIS]) + i)
	case ThatSegment:
		return m.checkAddress(int(m.RAM[THAT]) + i)
	case StaticSegment:
		return m.statics[m.pc] + i, nil
	case PointerSegment:
		if i > 1 {
			return 0, errors.New("pointer %d out of range", i)
		}
		return THIS + i, nil
	case TempSegment:
		if i >= TempSize {
			return 0, errors.New("temp %d out of range", i)
		}
		return TempBase + i, nil
	default:
		return 0, errors.New("segment %v is not addressable", seg)
	}
}

func (m *Machine) checkAddress(addr int) (int, error) {
	if addr < 0 || addr >= RAMSize {
		return 0, errors.New("address %d out of memory", addr)
	}
	return addr, nil
}

func (m *Machine) read(seg Segment, idx uint16) (int16, error) {
	if seg == ConstantSegment {
		if idx > 32767 {
			return 0, errors.New("constant %d out of range", idx)
		}
		return int16(idx), nil
	}
	addr, err := m.address(seg, idx)
	if err != nil {
		return 0, err
	}
	return m.RAM[addr], nil
}

func (m *Machine) write(seg Segment, idx uint16, v int16) error {
	if seg == ConstantSegment {
		return errors.New("cannot pop to the constant segment")
	}
	addr, err := m.address(seg, idx)
	if err != nil {
		return err
	}
	m.RAM[addr] = v
	return nil
}

// Alloc reserves size words on the heap. Memory is never freed.
func (m *Machine) Alloc(size int16) (int16, error) {
	if size < 0 {
		return 0, errors.New("negative allocation size %d", size)
	}
	if m.heapTop+int(size) > HeapEnd {
		return 0, errors.New("heap overflow: %d words requested", size)
	}
	addr := m.heapTop
	m.heapTop += int(size)
	return int16(addr), nil
}

// Strings live on the heap as capacity, length, then the characters.
const (
	stringCap  = 0
	stringLen  = 1
	stringData = 2
)

// NewString allocates a string object holding s.
func (m *Machine) NewString(s string) (int16, error) {
	addr, err := newString(m, int16(len(s)))
	if err != nil {
		return 0, err
	}
	for i := 0; i < len(s); i++ {
		if _, err := appendChar(m, addr, int16(s[i])); err != nil {
			return 0, err
		}
	}
	return addr, nil
}

// StringAt decodes the string object at addr.
func (m *Machine) StringAt(addr int16) (string, error) {
	base, err := m.checkAddress(int(addr))
	if err != nil {
		return "", err
	}
	n := int(m.RAM[base+stringLen])
	if base+stringData+n > RAMSize {
		return "", errors.New("string at %d is corrupted", addr)
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(byte(m.RAM[base+stringData+i]))
	}
	return b.String(), nil
}

func newString(m *Machine, capacity int16) (int16, error) {
	addr, err := m.Alloc(capacity + stringData)
	if err != nil {
		return 0, err
	}
	m.RAM[int(addr)+stringCap] = capacity
	m.RAM[int(addr)+stringLen] = 0
	return addr, nil
}

func appendChar(m *Machine, s, c int16) (int16, error) {
	base, err := m.checkAddress(int(s))
	if err != nil {
		return 0, err
	}
	n := m.RAM[base+stringLen]
	if n >= m.RAM[base+stringCap] {
		return 0, errors.New("string capacity %d exceeded", m.RAM[base+stringCap])
	}
	m.RAM[base+stringData+int(n)] = c
	m.RAM[base+stringLen] = n + 1
	return s, nil
}

func arity(n int, b func(m *Machine, args []int16) (int16, error)) Builtin {
	return func(m *Machine, args []int16) (int16, error) {
		if len(args) != n {
			return 0, errors.New("expected %d arguments, got %d", n, len(args))
		}
		return b(m, args)
	}
}

var defaultBuiltins = map[string]Builtin{
	"Memory.alloc": arity(1, func(m *Machine, args []int16) (int16, error) {
		return m.Alloc(args[0])
	}),
	"Memory.deAlloc": arity(1, func(m *Machine, args []int16) (int16, error) {
		return 0, nil
	}),
	"Array.new": arity(1, func(m *Machine, args []int16) (int16, error) {
		if args[0] <= 0 {
			return 0, errors.New("array size must be positive: %d", args[0])
		}
		return m.Alloc(args[0])
	}),
	"Array.dispose": arity(1, func(m *Machine, args []int16) (int16, error) {
		return 0, nil
	}),
	"Math.multiply": arity(2, func(m *Machine, args []int16) (int16, error) {
		return args[0] * args[1], nil
	}),
	"Math.divide": arity(2, func(m *Machine, args []int16) (int16, error) {
		if args[1] == 0 {
			return 0, errors.New("division by zero")
		}
		return args[0] / args[1], nil
	}),
	"String.new": arity(1, func(m *Machine, args []int16) (int16, error) {
		if args[0] < 0 {
			return 0, errors.New("negative string capacity %d", args[0])
		}
		return newString(m, args[0])
	}),
	"String.appendChar": arity(2, func(m *Machine, args []int16) (int16, error) {
		return appendChar(m, args[0], args[1])
	}),
	"String.length": arity(1, func(m *Machine, args []int16) (int16, error) {
		base, err := m.checkAddress(int(args[0]))
		if err != nil {
			return 0, err
		}
		return m.RAM[base+stringLen], nil
	}),
	"String.charAt": arity(2, func(m *Machine, args []int16) (int16, error) {
		base, err := m.checkAddress(int(args[0]))
		if err != nil {
			return 0, err
		}
		if args[1] < 0 || args[1] >= m.RAM[base+stringLen] {
			return 0, errors.New("index %d out of string bounds", args[1])
		}
		return m.RAM[base+stringData+int(args[1])], nil
	}),
	"Output.printInt": arity(1, func(m *Machine, args []int16) (int16, error) {
		_, err := io.WriteString(m.Out, strconv.Itoa(int(args[0])))
		return 0, err
	}),
	"Output.printChar": arity(1, func(m *Machine, args []int16) (int16, error) {
		_, err := fmt.Fprintf(m.Out, "%c", rune(args[0]))
		return 0, err
	}),
	"Output.printString": arity(1, func(m *Machine, args []int16) (int16, error) {
		s, err := m.StringAt(args[0])
		if err != nil {
			return 0, err
		}
		_, err = io.WriteString(m.Out, s)
		return 0, err
	}),
	"Output.println": arity(0, func(m *Machine, args []int16) (int16, error) {
		_, err := io.WriteString(m.Out, "\n")
		return 0, err
	}),
}
