package ast

import (
	"github.com/nikandfor/hacked/hfmt"
)

type (
	// Printer renders a tree to text. Three renderers exist: standard
	// (one production per line), XML and JSON; pick by output extension
	// with For.
	Printer interface {
		Print(t *Tree) []byte
	}

	standardPrinter struct {
		b []byte
	}
)

// For selects a printer by output file extension.
func For(ext string) Printer {
	switch ext {
	case ".xml":
		return NewXMLPrinter()
	case ".json":
		return NewJSONPrinter()
	}

	return NewStandardPrinter()
}

func NewStandardPrinter() Printer { return &standardPrinter{} }

// The standard format prints terminals in source order and each
// non-terminal after its children, one line each.
func (p *standardPrinter) Print(t *Tree) []byte {
	p.b = p.b[:0]
	t.Accept(p)

	return p.b
}

func (p *standardPrinter) VisitEnter(n *Node) bool { return true }

func (p *standardPrinter) Visit(n *Node) bool {
	if !n.IsTerminal() {
		return true
	}

	tok := n.Token()
	p.b = hfmt.Appendf(p.b, "%s %s\n", tok.Kind.Description(), tok.Lexeme)

	return true
}

func (p *standardPrinter) VisitExit(n *Node) bool {
	if descr := n.Kind().ReducedDescription(); descr != "" {
		p.b = hfmt.Appendf(p.b, "<%s>\n", descr)
	}

	return true
}
