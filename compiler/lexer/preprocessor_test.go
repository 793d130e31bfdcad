package lexer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreprocessComments(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   string
		out  string
	}{
		{"line", "int a; // comment\nint b;", "int a; \nint b;"},
		{"block", "int/* x */a;", "int a;"},
		{"block multiline", "a/* x\ny */b", "a\n b"},
		{"division", "a = b / c;", "a = b / c;"},
		{"string kept", `printf("//not a comment");`, `printf("//not a comment");`},
		{"escaped quote", `printf("a\"b//c");`, `printf("a\"b//c");`},
		{"unterminated block", "a /* b", "a  "},
		{"empty", "", ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.out, string(Preprocess([]byte(tc.in))))
		})
	}
}

func TestPreprocessKeepsLineCount(t *testing.T) {
	srcs := []string{
		"int main() { return 0; } // end\n",
		"/* a\nb\nc */\nint x;\n",
		"// one\n// two\n/* three\nfour */\n",
		"int a;\r\nint b; /* x */\r\n",
	}

	for _, src := range srcs {
		out := Preprocess([]byte(src))

		assert.Equal(t, bytes.Count([]byte(src), []byte("\n")), bytes.Count(out, []byte("\n")), "src: %q", src)
	}
}

func TestPreprocessIdempotent(t *testing.T) {
	src := []byte("const int N = 3;\nint main() { return N; }\n")

	once := Preprocess(src)
	twice := Preprocess(once)

	assert.Equal(t, once, twice)
}
