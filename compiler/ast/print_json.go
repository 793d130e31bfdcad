package ast

import (
	"strconv"
)

// The JSON renderer produces the same structure as the XML one:
// non-terminals as {"name": ..., "children": [...]}, terminals with
// token and lexeme, epsilons marked as such.
type jsonPrinter struct {
	b []byte
}

func NewJSONPrinter() Printer { return &jsonPrinter{} }

func (p *jsonPrinter) Print(t *Tree) []byte {
	p.b = p.b[:0]

	if t.Root() != nil {
		p.node(t.Root(), 0)
		p.b = append(p.b, '\n')
	}

	return p.b
}

func (p *jsonPrinter) pad(depth int) {
	for i := 0; i < depth*2; i++ {
		p.b = append(p.b, ' ')
	}
}

func (p *jsonPrinter) node(n *Node, depth int) {
	p.pad(depth)

	switch {
	case n.IsEpsilon():
		p.b = append(p.b, `{"epsilon": true}`...)

	case n.IsTerminal():
		tok := n.Token()
		p.b = append(p.b, `{"token": `...)
		p.b = strconv.AppendQuote(p.b, tok.Kind.Description())
		p.b = append(p.b, `, "lexeme": `...)
		p.b = strconv.AppendQuote(p.b, tok.Lexeme)
		p.b = append(p.b, '}')

	default:
		p.b = append(p.b, `{"name": `...)
		p.b = strconv.AppendQuote(p.b, n.Kind().Description())

		if !n.HasChildren() {
			p.b = append(p.b, '}')
			break
		}

		p.b = append(p.b, `, "children": [`...)
		p.b = append(p.b, '\n')

		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			p.node(c, depth+1)
			if c.NextSibling() != nil {
				p.b = append(p.b, ',')
			}
			p.b = append(p.b, '\n')
		}

		p.pad(depth)
		p.b = append(p.b, ']', '}')
	}
}
