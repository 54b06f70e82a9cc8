package css

import (
	"fmt"
	"unicode/utf8"
)

// ErrorKind classifies parse failures.
type ErrorKind int

const (
	UnexpectedToken        ErrorKind = iota // Token not allowed at this position
	UnbalancedBrace                         // Unclosed block or stray '}'
	MissingColon                            // Declaration without ':' separator
	UnterminatedString                      // String literal not closed on the same line
	UnknownInterpolation                    // ${name} with no binding
	BadInterpolation                        // Malformed ${...} placeholder
	MisplacedInterpolation                  // ${name} outside of a declaration value
	EmptyProperty                           // Declaration without property name
	EmptyValue                              // Declaration without value
)

var errorKindNames = map[ErrorKind]string{
	UnexpectedToken:        "unexpected token",
	UnbalancedBrace:        "unbalanced braces",
	MissingColon:           "missing colon in declaration",
	UnterminatedString:     "unterminated string",
	UnknownInterpolation:   "unknown interpolation",
	BadInterpolation:       "malformed interpolation",
	MisplacedInterpolation: "interpolation is only allowed in values",
	EmptyProperty:          "empty property name",
	EmptyValue:             "empty declaration value",
}

func (k ErrorKind) String() string {
	if s, ok := errorKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Position locates a byte in the style source. Offset is in bytes, Line and
// Column are 1-based with Column counted in characters.
type Position struct {
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// positionAt converts byte offset into a Position within src.
func positionAt(src string, offset int) Position {
	offset = max(0, min(offset, len(src)))
	pos := Position{Offset: offset, Line: 1, Column: 1}
	for i := 0; i < offset; {
		r, size := utf8.DecodeRuneInString(src[i:])
		if r == '\n' {
			pos.Line++
			pos.Column = 1
		} else {
			pos.Column++
		}
		i += size
	}
	return pos
}

// ParseError is returned when style source cannot be parsed.
type ParseError struct {
	Kind   ErrorKind
	Pos    Position
	Detail string // Offending name or token, may be empty
}

func (e *ParseError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("css: %s %q at %s", e.Kind, e.Detail, e.Pos)
	}
	return fmt.Sprintf("css: %s at %s", e.Kind, e.Pos)
}

// Is allows errors.Is(err, &ParseError{Kind: MissingColon}) to match on kind only.
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}
