package ast

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomic-lang/tomic/compiler/token"
)

func sampleTree() *Tree {
	tr := NewTree()

	root := tr.SetRoot(tr.NewNonTerminal(CompUnit))

	number := tr.NewNonTerminal(Number)
	number.InsertEndChild(tr.NewTerminal(token.Token{Kind: token.Integer, Lexeme: "0"}))

	decl := root.InsertEndChild(tr.NewNonTerminal(Decl))
	decl.InsertEndChild(number)

	return tr
}

func TestStandardPrinter(t *testing.T) {
	out := string(NewStandardPrinter().Print(sampleTree()))

	// Terminals in source order, non-terminals post-order; Decl is
	// structural and not reported.
	assert.Equal(t, "INTCON 0\n<Number>\n<CompUnit>\n", out)
}

func TestXMLPrinter(t *testing.T) {
	out := string(NewXMLPrinter().Print(sampleTree()))

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 7)

	assert.Equal(t, "<CompUnit>", lines[0])
	assert.Equal(t, "  <Decl>", lines[1])
	assert.Equal(t, "    <Number>", lines[2])
	assert.Equal(t, "      <Terminal token='INTCON' lexeme='0' />", lines[3])
	assert.Equal(t, "    </Number>", lines[4])
	assert.Equal(t, "  </Decl>", lines[5])
	assert.Equal(t, "</CompUnit>", lines[6])
}

func TestJSONPrinterIsValid(t *testing.T) {
	out := NewJSONPrinter().Print(sampleTree())

	var v map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &v))

	assert.Equal(t, "CompUnit", v["name"])
}

func TestPrinterSelection(t *testing.T) {
	assert.IsType(t, &xmlPrinter{}, For(".xml"))
	assert.IsType(t, &jsonPrinter{}, For(".json"))
	assert.IsType(t, &standardPrinter{}, For(".ast"))
	assert.IsType(t, &standardPrinter{}, For(""))
}
