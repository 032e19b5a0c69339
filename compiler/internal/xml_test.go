package internal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokensXML(t *testing.T) {
	tokens := tokenize(t, `let s = "a<b" & c > 1;`)
	assert.Equal(t, `<tokens>
<keyword> let </keyword>
<identifier> s </identifier>
<symbol> = </symbol>
<stringConstant> a&lt;b </stringConstant>
<symbol> &amp; </symbol>
<identifier> c </identifier>
<symbol> &gt; </symbol>
<integerConstant> 1 </integerConstant>
<symbol> ; </symbol>
</tokens>
`, string(TokensXML(tokens)))
}

func TestClassAst_XML(t *testing.T) {
	class := parseClass(t, "class A { static int x; function void f() { do g(1); return; } }")
	assert.Equal(t, `<class>
  <keyword> class </keyword>
  <identifier> A </identifier>
  <symbol> { </symbol>
  <classVarDec>
    <keyword> static </keyword>
    <keyword> int </keyword>
    <identifier> x </identifier>
    <symbol> ; </symbol>
  </classVarDec>
  <subroutineDec>
    <keyword> function </keyword>
    <keyword> void </keyword>
    <identifier> f </identifier>
    <symbol> ( </symbol>
    <parameterList>
    </parameterList>
    <symbol> ) </symbol>
    <subroutineBody>
      <symbol> { </symbol>
      <statements>
        <doStatement>
          <keyword> do </keyword>
          <identifier> g </identifier>
          <symbol> ( </symbol>
          <expressionList>
            <expression>
              <term>
                <integerConstant> 1 </integerConstant>
              </term>
            </expression>
          </expressionList>
          <symbol> ) </symbol>
          <symbol> ; </symbol>
        </doStatement>
        <returnStatement>
          <keyword> return </keyword>
          <symbol> ; </symbol>
        </returnStatement>
      </statements>
      <symbol> } </symbol>
    </subroutineBody>
  </subroutineDec>
  <symbol> } </symbol>
</class>
`, string(class.XML()))
}

// The terminals of the parse tree are the tokens of the source in order.
func TestClassAst_XMLTerminals(t *testing.T) {
	src := `class Point {
		field int x, y;
		constructor Point new(int ax, Point n) { let x = ax; return this; }
		method boolean f(Array a) {
			var String s;
			let s = "x < y";
			let a[x] = -a[y] + Point.new(1, null) * s.length();
			if (~(x = y) | true) { while (false) { do f(a); } } else { }
			return x > y;
		}
	}`
	tokens := tokenize(t, src)
	class := parseClass(t, src)

	flat := strings.Split(strings.TrimSpace(string(TokensXML(tokens))), "\n")
	flat = flat[1 : len(flat)-1]

	var terminals []string
	for _, line := range strings.Split(string(class.XML()), "\n") {
		line = strings.TrimSpace(line)
		if strings.Contains(line, "> ") {
			terminals = append(terminals, line)
		}
	}
	assert.Equal(t, flat, terminals)
}
