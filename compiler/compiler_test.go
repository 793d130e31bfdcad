package compiler

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomic-lang/tomic/compiler/diag"
)

func TestCompileToIR(t *testing.T) {
	cfg := Config{Output: "out.ll", Emit: EmitIR, LogLevel: diag.Fatal}

	res, err := Compile(context.Background(), cfg, []byte("int main() { return 0; }"))
	require.NoError(t, err)

	assert.Equal(t, 0, res.ErrorCount)
	assert.Contains(t, string(res.Output), "define dso_local i32 @main() {\n    ret i32 0\n}")
	assert.Empty(t, res.Errors)
}

func TestCompileToAST(t *testing.T) {
	cfg := Config{Output: "out.ast", Emit: EmitAST, LogLevel: diag.Fatal}

	res, err := Compile(context.Background(), cfg, []byte("int main() { return 0; }"))
	require.NoError(t, err)

	out := string(res.Output)
	assert.Contains(t, out, "MAINTK main\n")
	assert.Contains(t, out, "<MainFuncDef>\n")
	assert.True(t, strings.HasSuffix(out, "<CompUnit>\n"))
}

func TestCompileToXML(t *testing.T) {
	cfg := Config{Output: "out.xml", Emit: EmitAST, LogLevel: diag.Fatal}

	res, err := Compile(context.Background(), cfg, []byte("int main() { return 0; }"))
	require.NoError(t, err)

	out := string(res.Output)
	assert.True(t, strings.HasPrefix(out, "<CompUnit>\n"))
	assert.Contains(t, out, "<Terminal token='MAINTK' lexeme='main' />")
}

func TestCompileReportsErrors(t *testing.T) {
	cfg := Config{Output: "out.ll", Emit: EmitIR, LogLevel: diag.Fatal}

	res, err := Compile(context.Background(), cfg, []byte("int main() { break; return 0; }"))
	require.NoError(t, err)

	assert.Equal(t, 1, res.ErrorCount)
	assert.Contains(t, string(res.Errors), "ILLEGAL_BREAK")

	// The module still came out well formed.
	assert.Contains(t, string(res.Output), "@main")
}

func TestCompileFatal(t *testing.T) {
	cfg := Config{Output: "out.ll", Emit: EmitIR, LogLevel: diag.Fatal}

	_, err := Compile(context.Background(), cfg, []byte("not a program"))
	assert.Error(t, err)
}
