package ast

import (
	"github.com/nikandfor/hacked/hfmt"
)

type xmlPrinter struct {
	b      []byte
	depth  int
	indent int
}

func NewXMLPrinter() Printer {
	return &xmlPrinter{indent: 2}
}

func (p *xmlPrinter) Print(t *Tree) []byte {
	p.b = p.b[:0]
	p.depth = -1

	t.Accept(p)

	return p.b
}

func (p *xmlPrinter) pad() {
	for i := 0; i < p.depth*p.indent; i++ {
		p.b = append(p.b, ' ')
	}
}

func (p *xmlPrinter) VisitEnter(n *Node) bool {
	p.depth++
	p.pad()
	p.b = hfmt.Appendf(p.b, "<%s>\n", n.Kind().Description())

	return true
}

func (p *xmlPrinter) VisitExit(n *Node) bool {
	p.pad()
	p.b = hfmt.Appendf(p.b, "</%s>\n", n.Kind().Description())
	p.depth--

	return true
}

func (p *xmlPrinter) Visit(n *Node) bool {
	p.depth++
	p.pad()

	if n.IsEpsilon() {
		p.b = append(p.b, "<Epsilon />\n"...)
	} else {
		tok := n.Token()
		p.b = hfmt.Appendf(p.b, "<Terminal token='%s' lexeme='%s' />\n",
			tok.Kind.Description(), xmlEscape(tok.Lexeme))
	}

	p.depth--

	return true
}

func xmlEscape(s string) string {
	out := make([]byte, 0, len(s))

	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '<':
			out = append(out, "&lt;"...)
		case '>':
			out = append(out, "&gt;"...)
		case '&':
			out = append(out, "&amp;"...)
		case '\'':
			out = append(out, "&apos;"...)
		case '\n':
			out = append(out, "\\n"...)
		default:
			out = append(out, c)
		}
	}

	return string(out)
}
