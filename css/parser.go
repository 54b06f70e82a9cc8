package css

import (
	"errors"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser turns style source text into Scopes.
//
// Accepted syntax is a sequence of bare declarations (applied to the root
// scope) and "selector { ... }" blocks which may be nested to any depth.
// Declaration values may contain ${name} placeholders resolved against the
// bindings supplied to Parse, including inside quoted strings. Placeholders
// are not allowed in selectors and property names. A bound value is checked
// before use: outside of strings it may not contain braces, semicolons,
// comments or unbalanced brackets, inside a string it may not contain the
// closing quote, backslashes or line breaks.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new style parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Parse parses source using a parser without logging.
func Parse(source string, bindings map[string]string) (Scopes, error) {
	return NewParser(nil).Parse(source, bindings)
}

// Parse parses source text substituting interpolations from bindings. Result
// is deterministic: the same source and bindings always produce structurally
// identical trees. Errors are always of type *ParseError.
func (p *Parser) Parse(source string, bindings map[string]string) (Scopes, error) {
	toks, lerr := lex(source)
	if lerr != nil {
		p.log.Debug("Style lexing failed", zap.Error(lerr))
		return nil, lerr
	}

	sp := &sheetParser{src: source, toks: toks, bindings: bindings}
	items, err := sp.block(-1)
	if err != nil {
		p.log.Debug("Style parsing failed", zap.Error(err))
		return nil, err
	}

	// consecutive top level declarations form a root scope, blocks become
	// scopes of their own, source order is kept
	var (
		scopes Scopes
		root   *Scope
	)
	for _, it := range items {
		if it.Declaration != nil {
			if root == nil {
				root = &Scope{}
				scopes = append(scopes, root)
			}
			root.Items = append(root.Items, it)
			continue
		}
		root = nil
		scopes = append(scopes, it.Scope)
	}
	p.log.Debug("Parsed style", zap.Int("bytes", len(source)), zap.Int("scopes", len(scopes)))
	return scopes, nil
}

type token struct {
	tt     css.TokenType
	data   string
	offset int
	interp bool // data is interpolation name
	quote  byte // for interpolations inside a string, its quote character
}

// lex tokenizes source dropping comments and folding ${name} into single
// interpolation tokens.
func lex(src string) ([]token, *ParseError) {
	l := css.NewLexer(parse.NewInput(strings.NewReader(src)))

	var (
		raw    []token
		offset int
	)
	for {
		tt, data := l.Next()
		if tt == css.ErrorToken {
			if err := l.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, &ParseError{Kind: UnexpectedToken, Pos: positionAt(src, offset), Detail: err.Error()}
			}
			break
		}
		t := token{tt: tt, data: string(data), offset: offset}
		offset += len(data)

		switch tt {
		case css.CommentToken:
			continue
		case css.BadStringToken:
			return nil, &ParseError{Kind: UnterminatedString, Pos: positionAt(src, t.offset)}
		case css.StringToken:
			if !terminated(t.data) {
				return nil, &ParseError{Kind: UnterminatedString, Pos: positionAt(src, t.offset)}
			}
			if strings.Contains(t.data, "${") {
				pieces, err := splitString(src, t)
				if err != nil {
					return nil, err
				}
				raw = append(raw, pieces...)
				continue
			}
		case css.BadURLToken:
			return nil, &ParseError{Kind: UnexpectedToken, Pos: positionAt(src, t.offset), Detail: t.data}
		}
		raw = append(raw, t)
	}

	toks := make([]token, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		t := raw[i]
		if t.tt != css.DelimToken || t.data != "$" || i+1 >= len(raw) || raw[i+1].tt != css.LeftBraceToken {
			toks = append(toks, t)
			continue
		}
		// ${ name }
		j := skipWhitespace(raw, i+2)
		if j >= len(raw) || raw[j].tt != css.IdentToken {
			return nil, &ParseError{Kind: BadInterpolation, Pos: positionAt(src, t.offset)}
		}
		name := raw[j].data
		j = skipWhitespace(raw, j+1)
		if j >= len(raw) || raw[j].tt != css.RightBraceToken {
			return nil, &ParseError{Kind: BadInterpolation, Pos: positionAt(src, t.offset), Detail: name}
		}
		toks = append(toks, token{tt: css.IdentToken, data: name, offset: t.offset, interp: true})
		i = j
	}
	return toks, nil
}

// splitString breaks string token into literal pieces and interpolations.
// Escaped dollar sign is kept as is.
func splitString(src string, t token) ([]token, *ParseError) {
	var (
		pieces []token
		start  int
		s      = t.data
		quote  = s[0]
	)
	for i := 1; i < len(s)-1; i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] != '$' || s[i+1] != '{' {
			continue
		}
		at := t.offset + i
		j := skipSpaces(s, i+2)
		k := j
		for k < len(s) && isNameByte(s[k], k == j) {
			k++
		}
		name := s[j:k]
		if name == "" {
			return nil, &ParseError{Kind: BadInterpolation, Pos: positionAt(src, at)}
		}
		k = skipSpaces(s, k)
		if k >= len(s)-1 || s[k] != '}' {
			return nil, &ParseError{Kind: BadInterpolation, Pos: positionAt(src, at), Detail: name}
		}
		if i > start {
			pieces = append(pieces, token{tt: css.StringToken, data: s[start:i], offset: t.offset + start})
		}
		pieces = append(pieces, token{tt: css.IdentToken, data: name, offset: at, interp: true, quote: quote})
		start = k + 1
		i = k
	}
	return append(pieces, token{tt: css.StringToken, data: s[start:], offset: t.offset + start}), nil
}

func skipSpaces(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i
}

// isNameByte accepts bytes of an identifier, non-ASCII bytes included.
func isNameByte(c byte, first bool) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_', c == '-', c >= 0x80:
		return true
	case c >= '0' && c <= '9':
		return !first
	}
	return false
}

// checkBinding makes sure bound value stays within the declaration it is
// substituted into.
func checkBinding(value string, quote byte) bool {
	if quote != 0 {
		return !strings.ContainsAny(value, string(quote)+"\\\n\r\f")
	}

	l := css.NewLexer(parse.NewInput(strings.NewReader(value)))
	depth := 0
	for {
		tt, data := l.Next()
		switch tt {
		case css.ErrorToken:
			return depth == 0 && (l.Err() == nil || errors.Is(l.Err(), io.EOF))
		case css.LeftBraceToken, css.RightBraceToken, css.SemicolonToken,
			css.CommentToken, css.BadStringToken, css.BadURLToken, css.CDOToken, css.CDCToken:
			return false
		case css.StringToken:
			if !terminated(string(data)) {
				return false
			}
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			if depth--; depth < 0 {
				return false
			}
		}
	}
}

func skipWhitespace(toks []token, i int) int {
	for i < len(toks) && toks[i].tt == css.WhitespaceToken {
		i++
	}
	return i
}

// terminated checks that string token ends with its (unescaped) opening quote.
func terminated(s string) bool {
	if len(s) < 2 || s[len(s)-1] != s[0] {
		return false
	}
	escapes := 0
	for i := len(s) - 2; i > 0 && s[i] == '\\'; i-- {
		escapes++
	}
	return escapes%2 == 0
}

func trimWhitespace(toks []token) []token {
	for len(toks) > 0 && toks[0].tt == css.WhitespaceToken {
		toks = toks[1:]
	}
	for len(toks) > 0 && toks[len(toks)-1].tt == css.WhitespaceToken {
		toks = toks[:len(toks)-1]
	}
	return toks
}

type sheetParser struct {
	src      string
	toks     []token
	pos      int
	bindings map[string]string
}

func (p *sheetParser) fail(kind ErrorKind, offset int, detail string) *ParseError {
	return &ParseError{Kind: kind, Pos: positionAt(p.src, offset), Detail: detail}
}

// block parses items until matching '}' or, for top level (open < 0), until
// end of input. open is offset of the opening brace.
func (p *sheetParser) block(open int) ([]Item, error) {
	var items []Item
	for {
		// empty declarations and stray semicolons are fine
		for p.pos < len(p.toks) && (p.toks[p.pos].tt == css.WhitespaceToken || p.toks[p.pos].tt == css.SemicolonToken) {
			p.pos++
		}
		if p.pos >= len(p.toks) {
			if open >= 0 {
				return nil, p.fail(UnbalancedBrace, open, "{")
			}
			return items, nil
		}
		if t := p.toks[p.pos]; t.tt == css.RightBraceToken {
			if open < 0 {
				return nil, p.fail(UnbalancedBrace, t.offset, "}")
			}
			p.pos++
			return items, nil
		}

		stmt, term := p.statement()
		if term.tt == css.LeftBraceToken {
			sc, err := p.scope(stmt, term.offset)
			if err != nil {
				return nil, err
			}
			items = append(items, Item{Scope: sc})
			continue
		}
		decl, err := p.declaration(stmt)
		if err != nil {
			return nil, err
		}
		items = append(items, Item{Declaration: decl})
	}
}

// statement collects tokens up to ';', '{' or '}'. Semicolon and opening
// brace are consumed, closing brace is left for the enclosing block.
func (p *sheetParser) statement() ([]token, token) {
	start := p.pos
	for p.pos < len(p.toks) {
		t := p.toks[p.pos]
		switch t.tt {
		case css.SemicolonToken, css.LeftBraceToken:
			p.pos++
			return p.toks[start : p.pos-1], t
		case css.RightBraceToken:
			return p.toks[start:p.pos], t
		}
		p.pos++
	}
	return p.toks[start:], token{tt: css.ErrorToken, offset: len(p.src)}
}

func (p *sheetParser) scope(stmt []token, open int) (*Scope, error) {
	stmt = trimWhitespace(stmt)
	for _, t := range stmt {
		if t.interp {
			return nil, p.fail(MisplacedInterpolation, t.offset, t.data)
		}
	}
	sel, err := p.selector(stmt)
	if err != nil {
		return nil, err
	}
	if sel == "" {
		return nil, p.fail(UnexpectedToken, open, "{")
	}
	items, err := p.block(open)
	if err != nil {
		return nil, err
	}
	return &Scope{Selector: sel, Items: items}, nil
}

// selector normalizes selector tokens: whitespace runs collapse to a single
// space and top level comma separated parts are joined with ", ".
func (p *sheetParser) selector(stmt []token) (string, error) {
	var (
		parts []string
		sb    strings.Builder
		depth int
	)
	flush := func(at int) error {
		part := strings.TrimSpace(sb.String())
		sb.Reset()
		if part == "" {
			return p.fail(UnexpectedToken, at, ",")
		}
		parts = append(parts, part)
		return nil
	}
	for _, t := range stmt {
		switch t.tt {
		case css.WhitespaceToken:
			if sb.Len() > 0 && !strings.HasSuffix(sb.String(), " ") {
				sb.WriteByte(' ')
			}
			continue
		case css.LeftParenthesisToken, css.FunctionToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			depth = max(0, depth-1)
		case css.CommaToken:
			if depth == 0 {
				if err := flush(t.offset); err != nil {
					return "", err
				}
				continue
			}
		}
		sb.WriteString(t.data)
	}
	if len(stmt) == 0 {
		return "", nil
	}
	if err := flush(stmt[len(stmt)-1].offset); err != nil {
		return "", err
	}
	return strings.Join(parts, ", "), nil
}

func (p *sheetParser) declaration(stmt []token) (*Declaration, error) {
	stmt = trimWhitespace(stmt)
	if stmt[0].tt == css.AtKeywordToken {
		return nil, p.fail(UnexpectedToken, stmt[0].offset, stmt[0].data)
	}

	colon := -1
	for i, t := range stmt {
		if t.tt == css.ColonToken {
			colon = i
			break
		}
	}
	if colon < 0 {
		return nil, p.fail(MissingColon, stmt[0].offset, stmt[0].data)
	}

	prop := trimWhitespace(stmt[:colon])
	switch {
	case len(prop) == 0:
		return nil, p.fail(EmptyProperty, stmt[colon].offset, "")
	case prop[0].interp:
		return nil, p.fail(MisplacedInterpolation, prop[0].offset, prop[0].data)
	case len(prop) > 1:
		extra := trimWhitespace(prop[1:])[0]
		return nil, p.fail(UnexpectedToken, extra.offset, extra.data)
	case prop[0].tt != css.IdentToken && prop[0].tt != css.CustomPropertyNameToken:
		return nil, p.fail(UnexpectedToken, prop[0].offset, prop[0].data)
	}

	vals := trimWhitespace(stmt[colon+1:])
	if len(vals) == 0 {
		return nil, p.fail(EmptyValue, stmt[colon].offset, prop[0].data)
	}

	var value Value
	literal := func(s string) {
		if n := len(value); n > 0 && !value[n-1].IsInterpolation() {
			value[n-1].Text += s
			return
		}
		value = append(value, Fragment{Text: s})
	}
	for _, t := range vals {
		switch {
		case t.interp:
			bound, ok := p.bindings[t.data]
			if !ok {
				return nil, p.fail(UnknownInterpolation, t.offset, t.data)
			}
			if !checkBinding(bound, t.quote) {
				return nil, p.fail(BadInterpolation, t.offset, t.data)
			}
			value = append(value, Fragment{Text: bound, Name: t.data})
		case t.tt == css.WhitespaceToken:
			if n := len(value); n > 0 && !value[n-1].IsInterpolation() && strings.HasSuffix(value[n-1].Text, " ") {
				continue
			}
			literal(" ")
		default:
			literal(t.data)
		}
	}
	return &Declaration{Property: prop[0].data, Value: value}, nil
}
