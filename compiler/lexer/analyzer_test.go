package lexer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomic-lang/tomic/compiler/text"
	"github.com/tomic-lang/tomic/compiler/token"
)

func tokenize(src string) []token.Token {
	an := NewAnalyzer(text.NewReader([]byte(src)))

	var tks []token.Token
	for {
		tk := an.Next()
		if tk.Is(token.Terminator) {
			return tks
		}
		tks = append(tks, tk)
	}
}

func TestAnalyzerKinds(t *testing.T) {
	for _, tc := range []struct {
		in   string
		kind token.Kind
	}{
		{"123", token.Integer},
		{"0", token.Integer},
		{"abc", token.Identifier},
		{"_a1", token.Identifier},
		{"int", token.Int},
		{"const", token.Const},
		{"void", token.Void},
		{"main", token.Main},
		{"getint", token.Getint},
		{"printf", token.Printf},
		{"return", token.Return},
		{"+", token.Plus},
		{"-", token.Minus},
		{"*", token.Mult},
		{"/", token.Div},
		{"%", token.Mod},
		{"&&", token.And},
		{"||", token.Or},
		{"==", token.Equal},
		{"!=", token.NotEqual},
		{"<=", token.LessEq},
		{">=", token.GreaterEq},
		{"<", token.Less},
		{">", token.Greater},
		{"!", token.Not},
		{"=", token.Assign},
		{";", token.Semicolon},
		{",", token.Comma},
		{"(", token.LeftParen},
		{")", token.RightParen},
		{"[", token.LeftBracket},
		{"]", token.RightBracket},
		{"{", token.LeftBrace},
		{"}", token.RightBrace},
		{"&", token.Unknown},
		{"|", token.Unknown},
		{"@", token.Unknown},
	} {
		tks := tokenize(tc.in)

		require.Len(t, tks, 1, "input %q", tc.in)
		assert.Equal(t, tc.kind, tks[0].Kind, "input %q", tc.in)
		assert.Equal(t, tc.in, tks[0].Lexeme, "input %q", tc.in)
	}
}

func TestAnalyzerGluedTail(t *testing.T) {
	tks := tokenize("12ab + x3$y")

	require.Len(t, tks, 3)
	assert.Equal(t, token.Unknown, tks[0].Kind)
	assert.Equal(t, "12ab", tks[0].Lexeme)
	assert.Equal(t, token.Plus, tks[1].Kind)
	assert.Equal(t, token.Unknown, tks[2].Kind)
	assert.Equal(t, "x3$y", tks[2].Lexeme)
}

func TestAnalyzerFormatString(t *testing.T) {
	tks := tokenize(`"x=%d"`)

	require.Len(t, tks, 1)
	assert.Equal(t, token.Format, tks[0].Kind)
	assert.Equal(t, `"x=%d"`, tks[0].Lexeme)

	// \n combines to a real newline in the lexeme.
	tks = tokenize(`"a\n"`)
	require.Len(t, tks, 1)
	assert.Equal(t, token.Format, tks[0].Kind)
	assert.Equal(t, "\"a\n\"", tks[0].Lexeme)

	// %x is not a valid specifier.
	tks = tokenize(`"a%x"`)
	require.Len(t, tks, 1)
	assert.Equal(t, token.Unknown, tks[0].Kind)

	// \t is not a valid escape.
	tks = tokenize(`"a\tb"`)
	require.Len(t, tks, 1)
	assert.Equal(t, token.Unknown, tks[0].Kind)
}

func TestAnalyzerPositions(t *testing.T) {
	tks := tokenize("int a;\n  a = 1;")

	require.True(t, len(tks) >= 4)
	assert.Equal(t, 1, tks[0].Line)
	assert.Equal(t, 1, tks[0].Column)
	assert.Equal(t, 1, tks[1].Line)
	assert.Equal(t, 5, tks[1].Column)

	// 'a' on line 2, after two spaces.
	assert.Equal(t, 2, tks[3].Line)
	assert.Equal(t, 3, tks[3].Column)
}

func TestAnalyzerTerminatorSticks(t *testing.T) {
	an := NewAnalyzer(text.NewReader([]byte("x")))

	an.Next()
	for i := 0; i < 3; i++ {
		assert.Equal(t, token.Terminator, an.Next().Kind)
	}
}

// Concatenating the lexemes of a token stream with spaces must
// tokenize back to the same stream.
func TestTokenBoundaryClosure(t *testing.T) {
	src := `const int N = 3; int main() { int x; x = getint(); if (x >= N && x != 0) { printf("%d", x / 2 % N); } return 0; }`

	tks := tokenize(src)

	parts := make([]string, 0, len(tks))
	for _, tk := range tks {
		parts = append(parts, tk.Lexeme)
	}

	again := tokenize(strings.Join(parts, " "))

	require.Len(t, again, len(tks))
	for i := range tks {
		assert.Equal(t, tks[i].Kind, again[i].Kind, "token %d", i)
		assert.Equal(t, tks[i].Lexeme, again[i].Lexeme, "token %d", i)
	}
}
