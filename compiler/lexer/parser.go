package lexer

import (
	"github.com/tomic-lang/tomic/compiler/token"
)

// Parser buffers the token stream of an Analyzer. Every token ever read
// stays in an ordered log, so positions in the log serve as checkpoints
// and arbitrary rollback is cheap.
type Parser struct {
	an *Analyzer

	log []token.Token
	cur int // number of tokens handed out
}

func NewParser(an *Analyzer) *Parser {
	return &Parser{an: an}
}

// Next returns the next token, fetching from the analyzer if the log is
// exhausted.
func (p *Parser) Next() token.Token {
	if p.cur == len(p.log) {
		p.log = append(p.log, p.an.Next())
	}

	t := p.log[p.cur]
	p.cur++

	return t
}

// Current is the last token returned by Next. ok is false before the
// first Next and after a rollback to the stream start.
func (p *Parser) Current() (t token.Token, ok bool) {
	if p.cur == 0 {
		return token.Token{}, false
	}

	return p.log[p.cur-1], true
}

// Rewind pushes the last token back so Next returns it again.
func (p *Parser) Rewind() {
	if p.cur > 0 {
		p.cur--
	}
}

// SetCheckpoint marks the current stream position.
func (p *Parser) SetCheckpoint() int {
	return p.cur
}

// Rollback restores the stream to a previous checkpoint.
func (p *Parser) Rollback(checkpoint int) {
	if checkpoint >= 0 && checkpoint <= len(p.log) {
		p.cur = checkpoint
	}
}
