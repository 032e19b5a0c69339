// Package casebook reads compiler test cases from Markdown files.
//
// A case starts with a "Test: <name>" heading, has exactly one jack fence with the class source
// and at least one assertion fence:
//
//	vm             the exact vm code of the class
//	syntax-error   a substring of the expected parse error
//	compile-error  a substring of the expected tokenize or generate error
//	execute        the output of running <Class>.main in the emulator
//
// Fences outside cases must have no language.
package casebook

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"tlog.app/go/errors"
)

type AssertionType string

const (
	AssertionVM           AssertionType = "vm"
	AssertionSyntaxError  AssertionType = "syntax-error"
	AssertionCompileError AssertionType = "compile-error"
	AssertionExecute      AssertionType = "execute"
)

const inputFence = "jack"

type Assertion struct {
	Type    AssertionType
	Content string
	Line    int
}

type Case struct {
	Name       string
	Source     string
	Line       int
	Assertions []Assertion
}

func isAssertion(lang string) bool {
	switch AssertionType(lang) {
	case AssertionVM, AssertionSyntaxError, AssertionCompileError, AssertionExecute:
		return true
	}
	return false
}

// Extract returns the cases of the Markdown document in order.
func Extract(src []byte) (cases []*Case, err error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var cur *Case

	err = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *ast.Heading:
			title := nodeText(n, src)
			if !strings.HasPrefix(title, "Test: ") {
				return ast.WalkContinue, nil
			}

			if cur != nil {
				if err := cur.validate(); err != nil {
					return ast.WalkStop, err
				}
			}

			cur = &Case{Name: strings.TrimSpace(strings.TrimPrefix(title, "Test: "))}
			cases = append(cases, cur)
		case *ast.FencedCodeBlock:
			lang := string(n.Language(src))
			line := lineOf(n, src)

			if cur == nil {
				if lang != "" {
					return ast.WalkStop, errors.New("line %d: %s fence outside of a test", line, lang)
				}
				return ast.WalkContinue, nil
			}

			content := fenceText(n, src)

			switch {
			case lang == inputFence:
				if cur.Source != "" {
					return ast.WalkStop, errors.New("line %d: second jack fence in test %q", line, cur.Name)
				}
				cur.Source = content
				cur.Line = line
			case isAssertion(lang):
				cur.Assertions = append(cur.Assertions, Assertion{
					Type:    AssertionType(lang),
					Content: strings.TrimRight(content, "\n"),
					Line:    line,
				})
			case lang == "":
			default:
				return ast.WalkStop, errors.New("line %d: unknown fence %q in test %q", line, lang, cur.Name)
			}
		}

		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	if cur != nil {
		if err := cur.validate(); err != nil {
			return nil, err
		}
	}

	return cases, nil
}

func (c *Case) validate() error {
	if c.Source == "" {
		return errors.New("test %q has no jack fence", c.Name)
	}
	if len(c.Assertions) == 0 {
		return errors.New("test %q has no assertions", c.Name)
	}
	return nil
}

func nodeText(node ast.Node, src []byte) string {
	var buf bytes.Buffer

	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(src))
		}
		return ast.WalkContinue, nil
	})

	return buf.String()
}

func fenceText(n *ast.FencedCodeBlock, src []byte) string {
	var buf bytes.Buffer

	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}

	return buf.String()
}

// lineOf is the 1-based line of the first line of the fence body.
func lineOf(n ast.Node, src []byte) int {
	if n.Lines().Len() == 0 {
		return 0
	}

	start := n.Lines().At(0).Start

	return bytes.Count(src[:start], []byte{'\n'}) + 1
}
