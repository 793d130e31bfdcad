// Package lexer turns preprocessed source text into tokens: the
// preprocessor strips comments, the analyzer recognizes one token at a
// time, and Parser buffers the stream with checkpoint/rollback.
package lexer

// Preprocess strips comments from source text.
//
// A line comment is replaced by its terminating newline, a block comment
// by a single space with every newline inside it preserved, so line
// numbers downstream match the original file. String literals pass
// through untouched; \" inside a string does not terminate it.
func Preprocess(src []byte) []byte {
	out := make([]byte, 0, len(src))

	for i := 0; i < len(src); {
		c := src[i]

		switch c {
		case '/':
			if i+1 < len(src) && src[i+1] == '/' {
				i += 2
				for i < len(src) && src[i] != '\n' {
					i++
				}
				continue // the newline itself is emitted by the outer loop
			}

			if i+1 < len(src) && src[i+1] == '*' {
				i += 2
				for i < len(src) {
					if src[i] == '*' && i+1 < len(src) && src[i+1] == '/' {
						i += 2
						break
					}
					if src[i] == '\n' {
						out = append(out, '\n')
					}
					i++
				}
				out = append(out, ' ')
				continue
			}

			out = append(out, c)
			i++

		case '"':
			out = append(out, c)
			i++

			for i < len(src) {
				out = append(out, src[i])

				if src[i] == '\\' && i+1 < len(src) {
					out = append(out, src[i+1])
					i += 2
					continue
				}
				if src[i] == '"' {
					i++
					break
				}

				i++
			}

		default:
			out = append(out, c)
			i++
		}
	}

	return out
}
