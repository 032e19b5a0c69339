package internal

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaobogaga/hack/vm"
)

func runProgram(t *testing.T, sources ...string) (int16, string, *vm.Machine) {
	t.Helper()
	ctx := context.Background()
	var results []*ClassResult
	for i, src := range sources {
		res, err := CompileSource(ctx, fmt.Sprintf("class%d.jack", i), strings.NewReader(src))
		require.NoError(t, err)
		results = append(results, res)
	}
	m, err := vm.NewMachine(Program(results))
	require.NoError(t, err)
	var out bytes.Buffer
	m.Out = &out
	ret, err := m.Run(ctx, "Main.main", 1000000)
	require.NoError(t, err)
	assert.Equal(t, vm.StackBase, m.SP(), "stack is not balanced")
	return ret, out.String(), m
}

func TestProgram_Arrays(t *testing.T) {
	ret, _, _ := runProgram(t, `
class Main {
	function int main() {
		var Array a;
		var int i, sum;
		let a = Array.new(5);
		let i = 0;
		while (i < 5) {
			let a[i] = i * i;
			let i = i + 1;
		}
		let i = 0;
		while (i < 5) {
			let sum = sum + a[i];
			let i = i + 1;
		}
		let a[a[1]] = a[2] + a[a[1] + 2];
		return sum + a[1];
	}
}`)
	// a[1] = a[2] + a[3] = 4 + 9
	assert.Equal(t, int16(30+13), ret)
}

func TestProgram_Objects(t *testing.T) {
	ret, _, _ := runProgram(t, `
class Point {
	field int x, y;
	static int count;

	constructor Point new(int ax, int ay) {
		let x = ax;
		let y = ay;
		let count = count + 1;
		return this;
	}

	method int getX() { return x; }
	method int getY() { return y; }
	method int sum() { return x + y; }

	method Point add(Point o) {
		return Point.new(x + o.getX(), y + o.getY());
	}

	function int count() { return count; }
}`, `
class Main {
	function int main() {
		var Point p, q;
		let p = Point.new(1, 2);
		let q = p.add(Point.new(10, 20));
		return (q.sum() * 10) + Point.count();
	}
}`)
	assert.Equal(t, int16(333), ret)
}

func TestProgram_Recursion(t *testing.T) {
	ret, _, m := runProgram(t, `
class Main {
	function int main() {
		return Main.fact(7);
	}

	function int fact(int n) {
		if (n < 2) {
			return 1;
		}
		return n * Main.fact(n - 1);
	}
}`)
	assert.Equal(t, int16(5040), ret)
	assert.NotZero(t, m.Steps())
}

func TestProgram_Conditions(t *testing.T) {
	testData := []struct {
		Cond   string
		Expect int16
	}{
		{"true", 1},
		{"false", 2},
		{"~(1 = 2) & (3 > 2)", 1},
		{"(1 = 2) | (3 < 2)", 2},
		{"~true", 2},
		{"-1", 1},
		{"0", 2},
		{"null", 2},
	}
	for _, data := range testData {
		ret, _, _ := runProgram(t, `
class Main {
	function int main() {
		if (`+data.Cond+`) {
			return 1;
		} else {
			return 2;
		}
	}
}`)
		assert.Equal(t, data.Expect, ret, data.Cond)
	}
}

func TestProgram_Strings(t *testing.T) {
	ret, out, _ := runProgram(t, `
class Main {
	function int main() {
		var String s;
		let s = "hello";
		do Output.printString(s);
		do Output.printChar(32);
		do Output.printString("");
		do Output.printString("wor" );
		do Output.printString("ld");
		do Output.println();
		do Output.printInt(-5);
		return s.length() + s.charAt(1);
	}
}`)
	assert.Equal(t, "hello world\n-5", out)
	assert.Equal(t, int16(5+'e'), ret)
}

func TestProgram_MethodsCallEachOther(t *testing.T) {
	ret, _, _ := runProgram(t, `
class Main {
	field int n;

	constructor Main new() {
		let n = 3;
		return this;
	}

	method int twice() {
		return add(n, n);
	}

	method int add(int a, int b) {
		let n = a + b;
		return n;
	}

	function int main() {
		var Main m;
		let m = Main.new();
		do m.twice();
		return m.twice();
	}
}`)
	assert.Equal(t, int16(12), ret)
}

func TestProgram_VoidMainIsBalanced(t *testing.T) {
	ret, out, _ := runProgram(t, `
class Main {
	function void main() {
		var int i;
		while (i < 3) {
			do Output.printString("ab");
			do Output.printInt(i);
			let i = i + 1;
		}
		return;
	}
}`)
	assert.Equal(t, int16(0), ret)
	assert.Equal(t, "ab0ab1ab2", out)
}
