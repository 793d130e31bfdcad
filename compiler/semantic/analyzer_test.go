package semantic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomic-lang/tomic/compiler/ast"
	"github.com/tomic-lang/tomic/compiler/diag"
	"github.com/tomic-lang/tomic/compiler/lexer"
	"github.com/tomic-lang/tomic/compiler/parser"
	"github.com/tomic-lang/tomic/compiler/table"
	"github.com/tomic-lang/tomic/compiler/text"
)

func analyze(t *testing.T, src string) (*ast.Tree, *table.Table, *diag.ErrorLog) {
	t.Helper()

	ctx := context.Background()
	errs := &diag.ErrorLog{}
	log := diag.NewLogger(nil, diag.Fatal)

	lex := lexer.NewParser(lexer.NewAnalyzer(text.NewReader(lexer.Preprocess([]byte(src)))))

	tree, err := parser.New(lex, errs, log).Parse(ctx)
	require.NoError(t, err)

	tbl := New(errs, log).Analyze(ctx, tree)
	require.NotNil(t, tbl)

	return tree, tbl, errs
}

func kinds(errs *diag.ErrorLog) []diag.ErrorKind {
	var ks []diag.ErrorKind
	for _, e := range errs.Entries() {
		ks = append(ks, e.Kind)
	}

	return ks
}

func TestConstantFolding(t *testing.T) {
	tree, _, errs := analyze(t, `
const int N = 2 + 3 * 4;
int main() { return N - 14 + (6 / 2) % 2; }
`)

	assert.Equal(t, 0, errs.Count())

	// N = 14, so the return expression folds to 14-14+1 = 1.
	ret := tree.Root().FindChild(ast.ReturnStmt)
	exp := ret.DirectChild(ast.Exp, 1)
	require.NotNil(t, exp)

	assert.True(t, exp.Attrs.Det)
	assert.Equal(t, 1, exp.Attrs.Value)
}

func TestConstantFoldingWraps(t *testing.T) {
	tree, _, errs := analyze(t, `
const int A = 2147483647;
int main() { return A + 1; }
`)

	assert.Equal(t, 0, errs.Count())

	exp := tree.Root().FindChild(ast.ReturnStmt).DirectChild(ast.Exp, 1)
	require.True(t, exp.Attrs.Det)
	assert.Equal(t, int(int32(-2147483648)), exp.Attrs.Value)
}

func TestConstArrayFolding(t *testing.T) {
	tree, _, errs := analyze(t, `
const int A[2][2] = {{1, 2}, {3, 4}};
int main() { return A[1][0]; }
`)

	assert.Equal(t, 0, errs.Count())

	exp := tree.Root().FindChild(ast.ReturnStmt).DirectChild(ast.Exp, 1)
	require.True(t, exp.Attrs.Det)
	assert.Equal(t, 3, exp.Attrs.Value)
}

// Every LVal naming a known identifier resolves through its block.
func TestLValResolution(t *testing.T) {
	tree, tbl, errs := analyze(t, `
int g;
int main() {
	int x;
	x = g;
	{
		int y;
		y = x;
	}
	return 0;
}
`)

	assert.Equal(t, 0, errs.Count())

	var lvals []*ast.Node
	var walk func(n *ast.Node)
	walk = func(n *ast.Node) {
		if n.Is(ast.LVal) {
			lvals = append(lvals, n)
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walk(c)
		}
	}
	walk(tree.Root())

	require.NotEmpty(t, lvals)
	for _, lv := range lvals {
		name := lv.FirstChild().Token().Lexeme
		blk := tbl.Block(lv.InheritedBlockID())
		require.NotNil(t, blk, "lval %s", name)
		assert.NotNil(t, blk.Find(name), "lval %s", name)
	}
}

func TestScopeAttributes(t *testing.T) {
	tree, tbl, _ := analyze(t, `
int f(int a) { return a; }
int main() { for (;;) { break; } return 0; }
`)

	root := tree.Root()
	assert.NotEqual(t, 0, root.Attrs.BlockID)

	fd := root.FindChild(ast.FuncDef)
	require.NotNil(t, fd)
	require.NotEqual(t, 0, fd.Attrs.BlockID)

	// The parameter lives in the function's scope.
	assert.NotNil(t, tbl.Block(fd.Attrs.BlockID).FindLocal("a"))

	forStmt := root.FindChild(ast.ForStmt)
	require.NotNil(t, forStmt)
	assert.NotEqual(t, 0, forStmt.Attrs.BlockID)
}

func TestDuplicateIdentifier(t *testing.T) {
	_, _, errs := analyze(t, `
int main() {
	int x;
	int x;
	return 0;
}
`)

	assert.Contains(t, kinds(errs), diag.ErrDuplicateIdentifier)
}

func TestUndefinedIdentifier(t *testing.T) {
	_, _, errs := analyze(t, "int main() { return y; }")

	assert.Contains(t, kinds(errs), diag.ErrUndefinedIdentifier)
}

func TestDivisionByZero(t *testing.T) {
	_, _, errs := analyze(t, "int main() { return 1 / 0; }")

	assert.Contains(t, kinds(errs), diag.ErrDivideByZero)
}

func TestIllegalBreakAndContinue(t *testing.T) {
	_, _, errs := analyze(t, `
int main() {
	break;
	continue;
	return 0;
}
`)

	ks := kinds(errs)
	assert.Contains(t, ks, diag.ErrIllegalBreak)
	assert.Contains(t, ks, diag.ErrIllegalContinue)
}

func TestBreakInsideLoopIsFine(t *testing.T) {
	_, _, errs := analyze(t, `
int main() {
	int i;
	for (i = 0; i < 3; i = i + 1) {
		break;
	}
	return 0;
}
`)

	assert.Equal(t, 0, errs.Count())
}

func TestReturnChecks(t *testing.T) {
	_, _, errs := analyze(t, `
void f() { return 1; }
int g() { return; }
int main() { return 0; }
`)

	ks := kinds(errs)
	require.Len(t, ks, 2)
	assert.Equal(t, diag.ErrIllegalReturn, ks[0])
	assert.Equal(t, diag.ErrIllegalReturn, ks[1])
}

func TestAssignToConstant(t *testing.T) {
	_, _, errs := analyze(t, `
const int N = 1;
int main() {
	N = 2;
	return 0;
}
`)

	assert.Contains(t, kinds(errs), diag.ErrAssignToConstant)
}

func TestCallChecks(t *testing.T) {
	_, _, errs := analyze(t, `
int f(int a, int b) { return a + b; }
int main() {
	int v[2] = {1, 2};
	f(1);
	f(v, 2);
	return f(1, 2);
}
`)

	ks := kinds(errs)
	assert.Contains(t, ks, diag.ErrArgumentCountMismatch)
	assert.Contains(t, ks, diag.ErrArgumentTypeMismatch)
}

func TestArrayArgumentDims(t *testing.T) {
	_, _, errs := analyze(t, `
int f(int a[], int n) { return a[n]; }
int main() {
	int v[2] = {1, 2};
	return f(v, 2);
}
`)

	assert.Equal(t, 0, errs.Count())
}

func TestFormatMismatch(t *testing.T) {
	_, _, errs := analyze(t, `
int main() {
	printf("%d %d\n", 1);
	return 0;
}
`)

	assert.Contains(t, kinds(errs), diag.ErrFormatMismatch)
}

func TestFormatMatch(t *testing.T) {
	_, _, errs := analyze(t, `
int main() {
	int x;
	x = 1;
	printf("x=%d, y=%d\n", x, x + 1);
	return 0;
}
`)

	assert.Equal(t, 0, errs.Count())
}
