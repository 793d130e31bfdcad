package irgen

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomic-lang/tomic/compiler/diag"
	"github.com/tomic-lang/tomic/compiler/lexer"
	"github.com/tomic-lang/tomic/compiler/parser"
	"github.com/tomic-lang/tomic/compiler/semantic"
	"github.com/tomic-lang/tomic/compiler/text"
)

func lower(t *testing.T, src string) (asm string, errs *diag.ErrorLog) {
	t.Helper()

	ctx := context.Background()
	errs = &diag.ErrorLog{}
	log := diag.NewLogger(nil, diag.Fatal)

	lex := lexer.NewParser(lexer.NewAnalyzer(text.NewReader(lexer.Preprocess([]byte(src)))))

	tree, err := parser.New(lex, errs, log).Parse(ctx)
	require.NoError(t, err)

	tbl := semantic.New(errs, log).Analyze(ctx, tree)

	m, err := Generate(ctx, tree, tbl, "test", log)
	require.NoError(t, err)

	return string(m.Asm()), errs
}

func TestLowerMinimalMain(t *testing.T) {
	asm, errs := lower(t, "int main() { return 0; }")

	assert.Equal(t, 0, errs.Count())

	assert.Equal(t, 1, strings.Count(asm, "define dso_local"))
	assert.Contains(t, asm, "; Function type: i32 ()\ndefine dso_local i32 @main() {\n    ret i32 0\n}\n")
}

func TestLowerGlobals(t *testing.T) {
	asm, errs := lower(t, `
const int N = 3;
int a[4] = {1, 2, 3, 4};
int main() { return a[N - 1]; }
`)

	assert.Equal(t, 0, errs.Count())

	assert.Contains(t, asm, "@N = dso_local constant i32 3\n")
	assert.Contains(t, asm, "@a = dso_local global [4 x i32] [i32 1, i32 2, i32 3, i32 4]\n")

	// a[2]: address, load, return.
	assert.Contains(t, asm, "%1 = getelementptr inbounds [4 x i32], [4 x i32]* @a, i32 0, i32 2\n")
	assert.Contains(t, asm, "%2 = load i32, i32* %1\n")
	assert.Contains(t, asm, "ret i32 %2\n")
}

func TestLowerInputOutput(t *testing.T) {
	asm, errs := lower(t, `
int main() {
	int x;
	x = getint();
	printf("x=%d\n", x);
	return 0;
}
`)

	assert.Equal(t, 0, errs.Count())

	assert.Contains(t, asm, "declare dso_local i32 @getint()\n")
	assert.Contains(t, asm, "declare dso_local void @putint(i32)\n")
	assert.Contains(t, asm, "declare dso_local void @putstr(i8*)\n")

	assert.Contains(t, asm, `@.str = private unnamed_addr constant [3 x i8] c"x=\00", align 1`)
	assert.Contains(t, asm, `@.str.1 = private unnamed_addr constant [2 x i8] c"\0A\00", align 1`)

	assert.Contains(t, asm, "    %1 = alloca i32\n")
	assert.Contains(t, asm, "    %2 = call i32 @getint()\n")
	assert.Contains(t, asm, "    store i32 %2, i32* %1\n")
	assert.Contains(t, asm, "    %3 = load i32, i32* %1\n")
	assert.Contains(t, asm, "call void @putstr(i8* getelementptr inbounds ([3 x i8], [3 x i8]* @.str, i64 0, i64 0))\n")
	assert.Contains(t, asm, "call void @putint(i32 %3)\n")
	assert.Contains(t, asm, "call void @putstr(i8* getelementptr inbounds ([2 x i8], [2 x i8]* @.str.1, i64 0, i64 0))\n")
}

func TestLowerFunctionCall(t *testing.T) {
	asm, errs := lower(t, `
int f(int a, int b) { return a + b; }
int main() { return f(1, 2); }
`)

	assert.Equal(t, 0, errs.Count())

	assert.Contains(t, asm, "define dso_local i32 @f(i32 %0, i32 %1) {\n")

	// Two parameter slots, two stores, loads and the sum.
	assert.Contains(t, asm, "    %3 = alloca i32\n")
	assert.Contains(t, asm, "    %4 = alloca i32\n")
	assert.Contains(t, asm, "    store i32 %0, i32* %3\n")
	assert.Contains(t, asm, "    store i32 %1, i32* %4\n")
	assert.Contains(t, asm, "    %7 = add nsw i32 %5, %6\n")
	assert.Contains(t, asm, "    ret i32 %7\n")

	assert.Contains(t, asm, "= call i32 @f(i32 1, i32 2)\n")
}

func TestLowerLocalArray(t *testing.T) {
	asm, errs := lower(t, `
int main() {
	int v[2] = {10, 20};
	return v[1];
}
`)

	assert.Equal(t, 0, errs.Count())

	assert.Contains(t, asm, "alloca [2 x i32]\n")
	assert.Contains(t, asm, "getelementptr inbounds [2 x i32], [2 x i32]*")
	assert.Contains(t, asm, "store i32 10, i32*")
	assert.Contains(t, asm, "store i32 20, i32*")
}

func TestLowerArrayParam(t *testing.T) {
	asm, errs := lower(t, `
int first(int a[]) { return a[0]; }
int main() {
	int v[2] = {1, 2};
	return first(v);
}
`)

	assert.Equal(t, 0, errs.Count())

	assert.Contains(t, asm, "define dso_local i32 @first(i32* %0) {\n")
	assert.Contains(t, asm, "alloca i32*\n")

	// The argument decays to a pointer to the first element.
	assert.Contains(t, asm, ", i32 0, i32 0\n")
	assert.Contains(t, asm, "call i32 @first(i32* ")
}

func TestLowerNegation(t *testing.T) {
	asm, errs := lower(t, `
int main() {
	int x;
	x = getint();
	return -x;
}
`)

	assert.Equal(t, 0, errs.Count())
	assert.Contains(t, asm, "= sub nsw i32 0, %3\n")
}

func TestLowerIf(t *testing.T) {
	asm, errs := lower(t, `
int main() {
	int x;
	x = getint();
	if (x > 0 && x != 7) {
		printf("%d", x);
	} else {
		x = 0;
	}
	return x;
}
`)

	assert.Equal(t, 0, errs.Count())

	assert.Contains(t, asm, "icmp sgt i32")
	assert.Contains(t, asm, "icmp ne i32")
	assert.Contains(t, asm, "br i1 ")
	assert.Contains(t, asm, "br label ")

	// Every block is terminated: as many terminators as labels plus
	// the entry.
	labels := strings.Count(asm, ":\n")
	terms := strings.Count(asm, "br ") + strings.Count(asm, "ret ")
	assert.GreaterOrEqual(t, terms, labels+1)
}

func TestLowerForLoop(t *testing.T) {
	asm, errs := lower(t, `
int main() {
	int i, s;
	s = 0;
	for (i = 0; i < 10; i = i + 1) {
		if (i == 5) {
			continue;
		}
		if (i > 8) {
			break;
		}
		s = s + i;
	}
	return s;
}
`)

	assert.Equal(t, 0, errs.Count())

	assert.Contains(t, asm, "icmp slt i32")
	assert.Contains(t, asm, "add nsw i32")
	assert.Contains(t, asm, "br i1 ")
}

// A program with a semantic error still lowers to a well-formed
// function.
func TestLowerWithIllegalBreak(t *testing.T) {
	asm, errs := lower(t, "int main() { break; return 0; }")

	assert.Equal(t, 1, errs.Count())
	assert.Equal(t, diag.ErrIllegalBreak, errs.Entries()[0].Kind)

	assert.Contains(t, asm, "define dso_local i32 @main() {\n")
	assert.Contains(t, asm, "ret i32 0\n")
	assert.Contains(t, asm, "}\n")
}

func TestLowerVoidFunction(t *testing.T) {
	asm, errs := lower(t, `
void hello() {
	printf("hi\n");
}
int main() {
	hello();
	return 0;
}
`)

	assert.Equal(t, 0, errs.Count())

	assert.Contains(t, asm, "define dso_local void @hello() {\n")
	assert.Contains(t, asm, "    ret void\n")
	assert.Contains(t, asm, "call void @hello()\n")
}

func TestLowerConstantFoldedExpressions(t *testing.T) {
	asm, errs := lower(t, `
const int N = 4;
int main() { return N * 2 + 1; }
`)

	assert.Equal(t, 0, errs.Count())

	// Folded at compile time: no arithmetic in the output.
	assert.NotContains(t, asm, "mul")
	assert.NotContains(t, asm, "add nsw")
	assert.Contains(t, asm, "ret i32 9\n")
}
