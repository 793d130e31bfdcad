package diag

import (
	"fmt"
	"sort"

	"github.com/nikandfor/hacked/hfmt"
)

type (
	// ErrorKind classifies a compile error.
	ErrorKind int

	// Entry is one compile error at a source position.
	Entry struct {
		Line   int
		Column int
		Kind   ErrorKind
		Msg    string
	}

	// ErrorLog collects compile errors from every pass. It is dumped
	// once, sorted by position, after the pipeline finishes.
	ErrorLog struct {
		entries []Entry
	}
)

const (
	ErrUnknown ErrorKind = iota

	ErrMissingSemicolon
	ErrMissingRightParen
	ErrMissingRightBracket
	ErrMissingRightBrace

	ErrIllegalCharacter

	ErrDuplicateIdentifier
	ErrUndefinedIdentifier
	ErrArgumentCountMismatch
	ErrArgumentTypeMismatch
	ErrIllegalBreak
	ErrIllegalContinue
	ErrIllegalReturn
	ErrAssignToConstant
	ErrFormatMismatch
	ErrDivideByZero
)

var kindNames = map[ErrorKind]string{
	ErrUnknown:               "UNKNOWN",
	ErrMissingSemicolon:      "MISSING_SEMICOLON",
	ErrMissingRightParen:     "MISSING_RIGHT_PAREN",
	ErrMissingRightBracket:   "MISSING_RIGHT_BRACKET",
	ErrMissingRightBrace:     "MISSING_RIGHT_BRACE",
	ErrIllegalCharacter:      "ILLEGAL_CHARACTER",
	ErrDuplicateIdentifier:   "DUPLICATE_IDENTIFIER",
	ErrUndefinedIdentifier:   "UNDEFINED_IDENTIFIER",
	ErrArgumentCountMismatch: "ARGUMENT_COUNT_MISMATCH",
	ErrArgumentTypeMismatch:  "ARGUMENT_TYPE_MISMATCH",
	ErrIllegalBreak:          "ILLEGAL_BREAK",
	ErrIllegalContinue:       "ILLEGAL_CONTINUE",
	ErrIllegalReturn:         "ILLEGAL_RETURN",
	ErrAssignToConstant:      "ASSIGN_TO_CONSTANT",
	ErrFormatMismatch:        "FORMAT_MISMATCH",
	ErrDivideByZero:          "DIVIDE_BY_ZERO",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}

	return "UNKNOWN"
}

func (e *ErrorLog) Logf(line, col int, kind ErrorKind, format string, args ...interface{}) {
	// Speculative parsing may report the same defect on every attempt;
	// keep one record per position and kind.
	for _, en := range e.entries {
		if en.Line == line && en.Column == col && en.Kind == kind {
			return
		}
	}

	e.entries = append(e.entries, Entry{
		Line:   line,
		Column: col,
		Kind:   kind,
		Msg:    fmt.Sprintf(format, args...),
	})
}

func (e *ErrorLog) Count() int { return len(e.entries) }

// Entries returns the records sorted by (line, column, kind).
func (e *ErrorLog) Entries() []Entry {
	sort.SliceStable(e.entries, func(i, j int) bool {
		l, r := e.entries[i], e.entries[j]

		if l.Line != r.Line {
			return l.Line < r.Line
		}
		if l.Column != r.Column {
			return l.Column < r.Column
		}

		return l.Kind < r.Kind
	})

	return e.entries
}

// Dump renders the sorted log in the report format.
func (e *ErrorLog) Dump(b []byte) []byte {
	for _, en := range e.Entries() {
		b = hfmt.Appendf(b, "Line %d, Column %d: %v\n", en.Line, en.Column, en.Kind)
		b = hfmt.Appendf(b, "    %s\n", en.Msg)
	}

	return b
}
