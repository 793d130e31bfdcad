// Package compiler wires the pipeline together: preprocess, tokenize,
// parse, analyze, then print either the syntax tree or the lowered IR.
package compiler

import (
	"context"
	"os"
	"path/filepath"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/tomic-lang/tomic/compiler/ast"
	"github.com/tomic-lang/tomic/compiler/diag"
	"github.com/tomic-lang/tomic/compiler/irgen"
	"github.com/tomic-lang/tomic/compiler/lexer"
	"github.com/tomic-lang/tomic/compiler/parser"
	"github.com/tomic-lang/tomic/compiler/semantic"
	"github.com/tomic-lang/tomic/compiler/text"
)

type (
	Emit int

	// Config is the explicit pipeline configuration. No global state:
	// everything a pass needs travels through here.
	Config struct {
		Input  string
		Output string
		Emit   Emit

		LogLevel diag.Level
	}

	Result struct {
		Output []byte
		Errors []byte

		ErrorCount int
	}
)

const (
	EmitAST Emit = iota
	EmitIR
)

func CompileFile(ctx context.Context, cfg Config) (Result, error) {
	src, err := os.ReadFile(cfg.Input)
	if err != nil {
		return Result{}, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(src), "name", cfg.Input)

	return Compile(ctx, cfg, src)
}

// Compile runs the passes strictly in order, each consuming the output
// of the previous one. Compile errors collect in the error log and come
// back in Result.Errors; only a fatal parse failure is a Go error.
func Compile(ctx context.Context, cfg Config, src []byte) (res Result, err error) {
	errs := &diag.ErrorLog{}
	log := diag.NewLogger(tlog.SpanFromContext(ctx).Logger, cfg.LogLevel)

	clean := lexer.Preprocess(src)

	lex := lexer.NewParser(lexer.NewAnalyzer(text.NewReader(clean)))

	tree, err := parser.New(lex, errs, log).Parse(ctx)
	if err != nil {
		res.Errors = errs.Dump(nil)
		res.ErrorCount = errs.Count()

		return res, errors.Wrap(err, "parse")
	}

	tbl := semantic.New(errs, log).Analyze(ctx, tree)

	switch cfg.Emit {
	case EmitIR:
		name := cfg.Input
		if name == "" {
			name = "module"
		}

		m, err := irgen.Generate(ctx, tree, tbl, name, log)
		if err != nil {
			res.Errors = errs.Dump(nil)
			res.ErrorCount = errs.Count()

			return res, errors.Wrap(err, "lower")
		}

		res.Output = m.Asm()
	default:
		res.Output = ast.For(filepath.Ext(cfg.Output)).Print(tree)
	}

	res.Errors = errs.Dump(nil)
	res.ErrorCount = errs.Count()

	return res, nil
}
