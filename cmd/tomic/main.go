package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/tomic-lang/tomic/compiler"
	"github.com/tomic-lang/tomic/compiler/diag"
)

func main() {
	astCmd := &cli.Command{
		Name:        "ast",
		Description: "parse a source file and print its syntax tree (.ast, .xml or .json by output extension)",
		Action:      astAct,
		Args:        cli.Args{},
	}

	irCmd := &cli.Command{
		Name:        "ir",
		Description: "compile a source file to textual IR",
		Action:      irAct,
		Args:        cli.Args{},
	}

	app := &cli.Command{
		Name:        "tomic",
		Description: "tomic is a compiler for the ToMiC teaching language",
		Commands: []*cli.Command{
			astCmd,
			irCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func astAct(c *cli.Command) error {
	return run(c, compiler.EmitAST, ".ast")
}

func irAct(c *cli.Command) error {
	return run(c, compiler.EmitIR, ".ll")
}

func run(c *cli.Command, emit compiler.Emit, defaultExt string) error {
	if len(c.Args) == 0 {
		return errors.New("usage: tomic %s <input> [output]", c.Name)
	}

	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	input := c.Args[0]

	output := strings.TrimSuffix(input, filepath.Ext(input)) + defaultExt
	if len(c.Args) > 1 {
		output = c.Args[1]
	}

	cfg := compiler.Config{
		Input:    input,
		Output:   output,
		Emit:     emit,
		LogLevel: diag.Warning,
	}

	res, err := compiler.CompileFile(ctx, cfg)

	if len(res.Errors) > 0 {
		os.Stderr.Write(res.Errors)
	}

	if err != nil {
		return errors.Wrap(err, "compile %v", input)
	}

	err = os.WriteFile(output, res.Output, 0o644)
	if err != nil {
		return errors.Wrap(err, "write output")
	}

	if res.ErrorCount > 0 {
		return errors.New("%d compile errors", res.ErrorCount)
	}

	return nil
}
