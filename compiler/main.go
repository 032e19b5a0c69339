// jackc compiles jack classes to vm code and runs them in the vm emulator.
package main

import (
	"context"
	"fmt"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/xiaobogaga/hack/compiler/internal"
	"github.com/xiaobogaga/hack/vm"
)

func main() {
	compileCmd := &cli.Command{
		Name:        "compile",
		Description: "compile .jack files, or directories of them, to .vm files",
		Action:      compileAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("output,o", "", "output directory, next to the sources if empty"),
			cli.NewFlag("tokens,t", false, "also write the token listing to <Class>T.xml"),
			cli.NewFlag("tree,p", false, "also write the parse tree to <Class>.xml"),
			cli.NewFlag("jobs,j", 0, "classes to compile at once, 0 for no limit"),
		},
	}

	runCmd := &cli.Command{
		Name:        "run",
		Description: "compile the program and execute it in the vm emulator",
		Action:      runAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("entry", "Main.main", "function to call"),
			cli.NewFlag("steps", 10000000, "instruction limit, 0 for no limit"),
		},
	}

	app := &cli.Command{
		Name:        "jackc",
		Description: "jackc is the jack compiler",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("verbosity,v", "", "tlog verbosity topics: tokens, ast, vm, parser"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			compileCmd,
			runCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func before(c *cli.Command) error {
	tlog.SetVerbosity(c.String("verbosity"))
	return nil
}

func compileAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	if len(c.Args) == 0 {
		return errors.New("no paths to compile")
	}

	opts := internal.Options{
		OutputDir:  c.String("output"),
		EmitTokens: c.Bool("tokens"),
		EmitTree:   c.Bool("tree"),
		Jobs:       c.Int("jobs"),
	}

	results, err := internal.Compile(ctx, c.Args, opts)
	if err != nil {
		return errors.Wrap(err, "compile")
	}

	for _, res := range results {
		fmt.Printf("%s: %d instructions\n", res.ClassName(), len(res.Code))
	}

	return nil
}

func runAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	if len(c.Args) == 0 {
		return errors.New("no paths to run")
	}

	results, err := internal.Build(ctx, c.Args, 0)
	if err != nil {
		return errors.Wrap(err, "compile")
	}

	m, err := vm.NewMachine(internal.Program(results))
	if err != nil {
		return errors.Wrap(err, "load")
	}
	m.Out = os.Stdout

	res, err := m.Run(ctx, c.String("entry"), c.Int("steps"))
	if err != nil {
		return errors.Wrap(err, "run")
	}

	fmt.Printf("\n%s returned %d after %d steps\n", c.String("entry"), res, m.Steps())

	return nil
}
