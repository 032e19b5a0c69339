package internal

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaobogaga/hack/compiler/internal/casebook"
	"github.com/xiaobogaga/hack/vm"
)

func TestCasebook(t *testing.T) {
	files, err := filepath.Glob("testdata/*.md")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		t.Run(strings.TrimSuffix(filepath.Base(file), ".md"), func(t *testing.T) {
			src, err := os.ReadFile(file)
			require.NoError(t, err)

			cases, err := casebook.Extract(src)
			require.NoError(t, err)

			for _, c := range cases {
				t.Run(c.Name, func(t *testing.T) {
					runCase(t, file, c)
				})
			}
		})
	}
}

func runCase(t *testing.T, file string, c *casebook.Case) {
	ctx := context.Background()
	res, err := CompileSource(ctx, file, strings.NewReader(c.Source))

	for _, a := range c.Assertions {
		where := file + ":" + strconv.Itoa(a.Line)

		switch a.Type {
		case casebook.AssertionVM:
			require.NoError(t, err, where)
			assert.Equal(t, a.Content, strings.TrimSuffix(vm.Format(res.Code), "\n"), where)
		case casebook.AssertionSyntaxError:
			var syntaxErr *SyntaxError
			require.True(t, errors.As(err, &syntaxErr), "%s: expected syntax error, got %v", where, err)
			assert.Contains(t, err.Error(), a.Content, where)
		case casebook.AssertionCompileError:
			require.Error(t, err, where)
			assert.Contains(t, err.Error(), a.Content, where)
		case casebook.AssertionExecute:
			require.NoError(t, err, where)
			m, err := vm.NewMachine(res.Code)
			require.NoError(t, err, where)
			var out bytes.Buffer
			m.Out = &out
			_, err = m.Run(ctx, res.ClassName()+".main", 1000000)
			require.NoError(t, err, where)
			assert.Equal(t, a.Content, out.String(), where)
			assert.Equal(t, vm.StackBase, m.SP(), where)
		default:
			t.Fatalf("%s: unsupported assertion %v", where, a.Type)
		}
	}
}
