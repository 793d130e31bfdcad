package lexer

import (
	"github.com/tomic-lang/tomic/compiler/text"
	"github.com/tomic-lang/tomic/compiler/token"
)

// Analyzer recognizes one token per Next call. Recognition dispatches on
// the first non-whitespace character to a sub-analyzer; the order matters
// and mirrors the language: number, identifier/keyword, format string,
// single-char operator, double-char operator, delimiter, unknown.
type Analyzer struct {
	r *text.Reader
}

func NewAnalyzer(r *text.Reader) *Analyzer {
	return &Analyzer{r: r}
}

func isWhitespace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\v', '\f':
		return true
	}
	return false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isOperator(c byte) bool {
	switch c {
	case '+', '-', '*', '/', '%', '&', '|', '!', '<', '>', '=':
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	switch c {
	case ',', ';', '(', ')', '[', ']', '{', '}':
		return true
	}
	return false
}

// A number or identifier must stop at whitespace, an operator or a
// delimiter. Anything else glues to it and degrades the whole run to
// one Unknown token.
func isSeparator(c byte) bool {
	return isWhitespace(c) || isOperator(c) || isDelimiter(c)
}

// Next returns the next token. At end of input it keeps returning a
// Terminator positioned at the last character.
func (a *Analyzer) Next() token.Token {
	var c byte
	var ok bool

	for {
		c, ok = a.r.Read()
		if !ok {
			return token.Token{Kind: token.Terminator, Line: a.r.Line(), Column: a.r.Column()}
		}
		if !isWhitespace(c) {
			break
		}
	}

	a.r.Rewind()

	switch {
	case isDigit(c):
		return a.lexNumber()
	case isLetter(c) || c == '_':
		return a.lexIdentifier()
	case c == '"':
		return a.lexString()
	case c == '+' || c == '-' || c == '*' || c == '/' || c == '%':
		return a.lexSingleOp()
	case c == '&' || c == '|' || c == '=' || c == '<' || c == '>' || c == '!':
		return a.lexDoubleOp()
	case isDelimiter(c):
		return a.lexDelimiter()
	}

	return a.lexUnknown()
}

func (a *Analyzer) lexNumber() token.Token {
	c, _ := a.r.Read()
	line, col := a.r.Line(), a.r.Column()

	lexeme := []byte{c}

	for {
		c, ok := a.r.Read()
		if !ok {
			break
		}
		if !isDigit(c) {
			a.r.Rewind()
			break
		}
		lexeme = append(lexeme, c)
	}

	if tail, bad := a.lexGluedTail(); bad {
		return token.Token{Kind: token.Unknown, Lexeme: string(append(lexeme, tail...)), Line: line, Column: col}
	}

	return token.Token{Kind: token.Integer, Lexeme: string(lexeme), Line: line, Column: col}
}

func (a *Analyzer) lexIdentifier() token.Token {
	c, _ := a.r.Read()
	line, col := a.r.Line(), a.r.Column()

	lexeme := []byte{c}

	for {
		c, ok := a.r.Read()
		if !ok {
			break
		}
		if !isLetter(c) && !isDigit(c) && c != '_' {
			a.r.Rewind()
			break
		}
		lexeme = append(lexeme, c)
	}

	if tail, bad := a.lexGluedTail(); bad {
		return token.Token{Kind: token.Unknown, Lexeme: string(append(lexeme, tail...)), Line: line, Column: col}
	}

	kind := token.Identifier
	if k, ok := token.KindOf(string(lexeme)); ok {
		kind = k
	}

	return token.Token{Kind: kind, Lexeme: string(lexeme), Line: line, Column: col}
}

// lexGluedTail consumes a run of non-separator characters left after a
// number or identifier stopped. A non-empty run means the token is bad.
func (a *Analyzer) lexGluedTail() (tail []byte, bad bool) {
	for {
		c, ok := a.r.Read()
		if !ok {
			break
		}
		if isSeparator(c) {
			a.r.Rewind()
			break
		}
		tail = append(tail, c)
	}

	return tail, len(tail) > 0
}

func isPlainStringChar(c byte) bool {
	return c == 32 || c == 33 || c >= 40 && c <= 126 && c != '\\'
}

func (a *Analyzer) lexString() token.Token {
	c, _ := a.r.Read() // opening quote
	line, col := a.r.Line(), a.r.Column()

	lexeme := []byte{c}
	bad := false

	for {
		c, ok := a.r.Read()
		if !ok {
			bad = true // unterminated
			break
		}
		if c == '"' {
			lexeme = append(lexeme, c)
			break
		}

		switch {
		case c == '\\':
			n, ok := a.r.Read()
			if ok && n == 'n' {
				lexeme = append(lexeme, '\n')
				continue
			}
			if ok {
				a.r.Rewind()
			}
			lexeme = append(lexeme, c)
			bad = true
		case c == '%':
			n, ok := a.r.Read()
			if ok && n == 'd' {
				lexeme = append(lexeme, '%', 'd')
				continue
			}
			if ok {
				a.r.Rewind()
			}
			lexeme = append(lexeme, c)
			bad = true
		case isPlainStringChar(c):
			lexeme = append(lexeme, c)
		default:
			lexeme = append(lexeme, c)
			bad = true
		}
	}

	kind := token.Format
	if bad {
		kind = token.Unknown
	}

	return token.Token{Kind: kind, Lexeme: string(lexeme), Line: line, Column: col}
}

func (a *Analyzer) lexSingleOp() token.Token {
	c, _ := a.r.Read()

	return token.Token{
		Kind:   kindOf(string(c)),
		Lexeme: string(c),
		Line:   a.r.Line(),
		Column: a.r.Column(),
	}
}

func (a *Analyzer) lexDoubleOp() token.Token {
	c, _ := a.r.Read()
	line, col := a.r.Line(), a.r.Column()

	lexeme := []byte{c}

	var want byte
	switch c {
	case '&', '|':
		want = c
	case '=', '<', '>', '!':
		want = '='
	}

	if n, ok := a.r.Read(); ok {
		if n == want {
			lexeme = append(lexeme, n)
		} else {
			a.r.Rewind()
		}
	}

	return token.Token{
		Kind:   kindOf(string(lexeme)),
		Lexeme: string(lexeme),
		Line:   line,
		Column: col,
	}
}

func (a *Analyzer) lexDelimiter() token.Token {
	c, _ := a.r.Read()

	return token.Token{
		Kind:   kindOf(string(c)),
		Lexeme: string(c),
		Line:   a.r.Line(),
		Column: a.r.Column(),
	}
}

func (a *Analyzer) lexUnknown() token.Token {
	c, _ := a.r.Read()

	return token.Token{
		Kind:   token.Unknown,
		Lexeme: string(c),
		Line:   a.r.Line(),
		Column: a.r.Column(),
	}
}

// kindOf maps a fixed lexeme to its kind. Lone & and | have no kind of
// their own and come out Unknown.
func kindOf(lexeme string) token.Kind {
	if k, ok := token.KindOf(lexeme); ok {
		return k
	}

	return token.Unknown
}
