package internal

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/xiaobogaga/hack/util"
	"github.com/xiaobogaga/hack/vm"
)

type Options struct {
	// OutputDir is where the .vm and .xml files go. Files go next to their source if empty.
	OutputDir string
	// EmitTokens writes <Class>T.xml with the token listing.
	EmitTokens bool
	// EmitTree writes <Class>.xml with the parse tree.
	EmitTree bool
	// Jobs limits how many classes compile at once. Zero or less means no limit.
	Jobs int
}

// ClassResult is one compiled class.
type ClassResult struct {
	Path   string
	Tokens []*Token
	Ast    *ClassAst
	Code   []vm.Instruction
}

func (res *ClassResult) ClassName() string {
	return res.Ast.ClassName
}

// CompileSource compiles the one class read from rd. name is used in logs and errors only.
func CompileSource(ctx context.Context, name string, rd io.Reader) (res *ClassResult, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "compile class", "name", name)
	defer tr.Finish("err", &err)

	tokenizer := &Tokenizer{}
	tokens, err := tokenizer.Tokenize(rd)
	if err != nil {
		return nil, errors.Wrap(err, "tokenize")
	}
	if tr.If("tokens") {
		tr.Printw("tokens", "count", len(tokens), "source", Source(tokens))
	}

	ast, err := Parse(tokens)
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}
	tr.Printw("parsed class", "class", ast.ClassName, "class_vars", len(ast.ClassVariables), "subroutines", len(ast.Subroutines))
	if tr.If("ast") {
		for _, v := range ast.ClassVariables {
			tr.Printw("class variables", "kind", v.FieldTP, "type", v.VariableType, "names", v.VariableNames)
		}
		for _, s := range ast.Subroutines {
			tr.Printw("subroutine", "kind", s.FuncTP, "name", s.FuncName, "params", len(s.Params))
		}
	}

	code, err := NewCodeGenerator().Compile(ast)
	if err != nil {
		return nil, errors.Wrap(err, "generate %v", ast.ClassName)
	}
	tr.Printw("generated", "class", ast.ClassName, "instructions", len(code))
	if tr.If("vm") {
		tr.Printw("vm code", "code", vm.Format(code))
	}

	return &ClassResult{Path: name, Tokens: tokens, Ast: ast, Code: code}, nil
}

func CompileFile(ctx context.Context, path string) (*ClassResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer f.Close()

	res, err := CompileSource(ctx, path, f)
	if err != nil {
		return nil, err
	}
	if name := util.ClassName(path); name != res.ClassName() {
		tlog.SpanFromContext(ctx).Printw("class name differs from file name", "class", res.ClassName(), "file", path)
	}
	return res, nil
}

// Compile compiles every jack file the paths name and writes the output files described by opts.
// Nothing is written unless every class compiles.
func Compile(ctx context.Context, paths []string, opts Options) (results []*ClassResult, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile", "paths", paths, "jobs", opts.Jobs)
	defer tr.Finish("err", &err)

	results, err = Build(ctx, paths, opts.Jobs)
	if err != nil {
		return nil, err
	}

	if opts.OutputDir != "" {
		err = os.MkdirAll(opts.OutputDir, 0o755)
		if err != nil {
			return nil, errors.Wrap(err, "output dir")
		}
	}
	for _, res := range results {
		err = res.Write(opts)
		if err != nil {
			return nil, errors.Wrap(err, "write %v", res.ClassName())
		}
	}
	tr.Printw("compiled", "classes", len(results))

	return results, nil
}

// Build compiles the jack files the paths name, a path being a file or a directory of them.
// At most jobs classes compile at once, and the first failure stops the rest.
func Build(ctx context.Context, paths []string, jobs int) (results []*ClassResult, err error) {
	var files []string
	for _, path := range paths {
		fs, err := util.JackFiles(path)
		if err != nil {
			return nil, errors.Wrap(err, "list %v", path)
		}
		if len(fs) == 0 {
			return nil, errors.New("no jack files in %v", path)
		}
		files = append(files, fs...)
	}

	results = make([]*ClassResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := CompileFile(gctx, file)
			if err != nil {
				return errors.Wrap(err, "%v", file)
			}
			results[i] = res
			return nil
		})
	}
	err = g.Wait()
	if err != nil {
		return nil, err
	}

	seen := map[string]string{}
	for _, res := range results {
		if prev, ok := seen[res.ClassName()]; ok {
			return nil, errors.New("class %v defined in both %v and %v", res.ClassName(), prev, res.Path)
		}
		seen[res.ClassName()] = res.Path
	}

	return results, nil
}

// Write saves the vm code and the requested xml files of the class.
func (res *ClassResult) Write(opts Options) error {
	dir := opts.OutputDir
	if dir == "" {
		dir = filepath.Dir(res.Path)
	}
	base := filepath.Join(dir, res.ClassName())

	f, err := os.Create(base + ".vm")
	if err != nil {
		return err
	}
	err = vm.WriteTo(f, res.Code)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.Wrap(err, "vm file")
	}

	if opts.EmitTokens {
		err = os.WriteFile(base+"T.xml", TokensXML(res.Tokens), 0o644)
		if err != nil {
			return errors.Wrap(err, "tokens file")
		}
	}
	if opts.EmitTree {
		err = os.WriteFile(base+".xml", res.Ast.XML(), 0o644)
		if err != nil {
			return errors.Wrap(err, "tree file")
		}
	}
	return nil
}

// Program joins the code of all classes into one program.
func Program(results []*ClassResult) []vm.Instruction {
	var code []vm.Instruction
	for _, res := range results {
		code = append(code, res.Code...)
	}
	return code
}
