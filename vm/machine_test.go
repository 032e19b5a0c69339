package vm

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, src string) *Machine {
	t.Helper()
	code, err := ParseProgram(strings.NewReader(src))
	require.NoError(t, err)
	m, err := NewMachine(code)
	require.NoError(t, err)
	return m
}

func TestMachine_Arithmetic(t *testing.T) {
	testData := []struct {
		Body   string
		Expect int16
	}{
		{"push constant 7\npush constant 8\nadd", 15},
		{"push constant 7\npush constant 8\nsub", -1},
		{"push constant 7\nneg", -7},
		{"push constant 3\npush constant 3\neq", -1},
		{"push constant 3\npush constant 4\neq", 0},
		{"push constant 4\npush constant 3\ngt", -1},
		{"push constant 4\npush constant 3\nlt", 0},
		{"push constant 12\npush constant 10\nand", 8},
		{"push constant 12\npush constant 10\nor", 14},
		{"push constant 0\nnot", -1},
		{"push constant 32767\npush constant 1\nadd", -32768},
	}
	for _, data := range testData {
		m := load(t, "function Main.main 0\n"+data.Body+"\nreturn\n")
		res, err := m.Run(context.Background(), "Main.main", 1000)
		require.NoError(t, err, data.Body)
		assert.Equal(t, data.Expect, res, data.Body)
		assert.Equal(t, StackBase, m.SP(), data.Body)
	}
}

func TestMachine_CallAndSegments(t *testing.T) {
	m := load(t, `
function Main.main 1
push constant 5
pop local 0
push local 0
push constant 6
call Main.add 2
return
function Main.add 0
push argument 0
push argument 1
add
pop static 0
push static 0
return
`)
	res, err := m.Run(context.Background(), "Main.main", 1000)
	require.NoError(t, err)
	assert.Equal(t, int16(11), res)
	assert.Equal(t, int16(11), m.RAM[StaticBase])
}

func TestMachine_StaticsPerClass(t *testing.T) {
	m := load(t, `
function A.main 0
push constant 1
pop static 0
call B.set 0
pop temp 0
push static 0
return
function B.set 0
push constant 2
pop static 0
push constant 0
return
`)
	res, err := m.Run(context.Background(), "A.main", 1000)
	require.NoError(t, err)
	assert.Equal(t, int16(1), res)
	assert.Equal(t, int16(2), m.RAM[StaticBase+1])
}

func TestMachine_LabelsAreScopedToFunction(t *testing.T) {
	m := load(t, `
function Main.main 1
label LOOP
push local 0
push constant 1
add
pop local 0
push local 0
push constant 10
lt
if-goto LOOP
call Main.other 0
push local 0
add
return
function Main.other 0
goto LOOP
label LOOP
push constant 100
return
`)
	res, err := m.Run(context.Background(), "Main.main", 1000)
	require.NoError(t, err)
	assert.Equal(t, int16(110), res)
}

func TestMachine_ObjectsAndStrings(t *testing.T) {
	m := load(t, `
function Main.main 0
push constant 2
call Memory.alloc 1
pop pointer 0
push constant 40
pop this 1
push constant 2
call String.new 1
pop temp 0
push temp 0
push constant 104
call String.appendChar 2
push constant 105
call String.appendChar 2
return
`)
	res, err := m.Run(context.Background(), "Main.main", 1000)
	require.NoError(t, err)
	s, err := m.StringAt(res)
	require.NoError(t, err)
	assert.Equal(t, "hi", s)
	assert.Equal(t, int16(40), m.RAM[HeapBase+1])
}

func TestMachine_Output(t *testing.T) {
	m := load(t, `
function Main.main 0
push constant 42
call Output.printInt 1
pop temp 0
call Output.println 0
return
`)
	var out strings.Builder
	m.Out = &out
	_, err := m.Run(context.Background(), "Main.main", 1000)
	require.NoError(t, err)
	assert.Equal(t, "42\n", out.String())
}

func TestMachine_Errors(t *testing.T) {
	testData := []struct {
		Src   string
		Entry string
		Err   string
	}{
		{"function Main.main 0\ncall Main.missing 0\nreturn\n", "Main.main", "unknown function"},
		{"function Main.main 0\ngoto NOWHERE\n", "Main.main", "unknown label"},
		{"function Main.main 0\nadd\nreturn\n", "Main.main", "stack underflow"},
		{"function Main.main 0\npush constant 1\npush constant 0\ncall Math.divide 2\nreturn\n", "Main.main", "division by zero"},
		{"function Main.main 0\nlabel L\ngoto L\n", "Main.main", "step limit"},
		{"function Main.main 0\npush constant 0\nreturn\n", "Main.other", "unknown function"},
	}
	for _, data := range testData {
		m := load(t, data.Src)
		_, err := m.Run(context.Background(), data.Entry, 100)
		if assert.Error(t, err, data.Src) {
			assert.Contains(t, err.Error(), data.Err, data.Src)
		}
	}
}

func TestNewMachine_Duplicates(t *testing.T) {
	for _, src := range []string{
		"function A.f 0\nreturn\nfunction A.f 0\nreturn\n",
		"function A.f 0\nlabel L\nlabel L\nreturn\n",
	} {
		code, err := ParseProgram(strings.NewReader(src))
		require.NoError(t, err)
		_, err = NewMachine(code)
		assert.Error(t, err, src)
	}
}

func TestMachine_Define(t *testing.T) {
	m := load(t, "function Main.main 0\npush constant 4\ncall Sys.double 1\nreturn\n")
	m.Define("Sys.double", func(m *Machine, args []int16) (int16, error) {
		return args[0] * 2, nil
	})
	res, err := m.Run(context.Background(), "Main.main", 100)
	require.NoError(t, err)
	assert.Equal(t, int16(8), res)
}
