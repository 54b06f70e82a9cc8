package css_test

import (
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"stylist/css"
)

func mustParse(t *testing.T, src string, bindings map[string]string) css.Scopes {
	t.Helper()
	ast, err := css.NewParser(zap.NewNop()).Parse(src, bindings)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", src, err)
	}
	return ast
}

func TestParser_RootDeclaration(t *testing.T) {
	ast := mustParse(t, `color: red;`, nil)

	if len(ast) != 1 {
		t.Fatalf("expected 1 scope, got %d", len(ast))
	}
	if !ast[0].IsRoot() {
		t.Errorf("expected root scope, got selector %q", ast[0].Selector)
	}
	decls := ast[0].Declarations()
	if len(decls) != 1 {
		t.Fatalf("expected 1 declaration, got %d", len(decls))
	}
	if decls[0].Property != "color" || decls[0].Value.String() != "red" {
		t.Errorf("expected color: red, got %s: %s", decls[0].Property, decls[0].Value)
	}
}

func TestParser_TrailingSemicolonOptional(t *testing.T) {
	a := mustParse(t, `color: red; margin: 0`, nil)
	b := mustParse(t, `color: red; margin: 0;`, nil)
	if !a.Equal(b) {
		t.Error("expected trailing semicolon to be optional")
	}
}

func TestParser_EmptyDeclarations(t *testing.T) {
	ast := mustParse(t, `;; color: red;; ; a { ; margin: 0;; }`, nil)

	if len(ast) != 2 {
		t.Fatalf("expected 2 scopes, got %d", len(ast))
	}
	if got := len(ast[0].Declarations()); got != 1 {
		t.Errorf("expected 1 root declaration, got %d", got)
	}
	if got := len(ast[1].Declarations()); got != 1 {
		t.Errorf("expected 1 declaration in block, got %d", got)
	}
}

func TestParser_EmptySource(t *testing.T) {
	for _, src := range []string{"", "   \n\t", "/* nothing */"} {
		ast := mustParse(t, src, nil)
		if len(ast) != 0 {
			t.Errorf("Parse(%q): expected no scopes, got %d", src, len(ast))
		}
	}
}

func TestParser_ValueNormalization(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`margin:   0    auto ;`, "0 auto"},
		{`color: red !important;`, "red !important"},
		{`color: rgb(1, 2, 3);`, "rgb(1, 2, 3)"},
		{`color: #fff;`, "#fff"},
		{`width: calc(100% - 2em);`, "calc(100% - 2em)"},
		{`font-family: "Open Sans", serif;`, `"Open Sans", serif`},
		{`margin: 0 /* top */ auto;`, "0 auto"},
	}
	for _, tt := range tests {
		ast := mustParse(t, tt.src, nil)
		got := ast[0].Declarations()[0].Value.String()
		if got != tt.want {
			t.Errorf("Parse(%q) value = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestParser_NestedBlocks(t *testing.T) {
	src := `
		color: red;
		span {
			font-weight: bold;
			&:hover {
				a { b { c { color: blue } } }
			}
		}
	`
	ast := mustParse(t, src, nil)

	if len(ast) != 2 {
		t.Fatalf("expected 2 scopes, got %d", len(ast))
	}
	span := ast[1]
	if span.Selector != "span" {
		t.Fatalf("expected span scope, got %q", span.Selector)
	}
	if len(span.Items) != 2 || span.Items[1].Scope == nil {
		t.Fatalf("expected declaration and nested scope in span, got %+v", span.Items)
	}

	depth := 0
	for sc := span; sc != nil; depth++ {
		var next *css.Scope
		for _, it := range sc.Items {
			if it.Scope != nil {
				next = it.Scope
			}
		}
		sc = next
	}
	if depth != 5 {
		t.Errorf("expected nesting depth 5, got %d", depth)
	}
}

func TestParser_MultipleTopLevelScopes(t *testing.T) {
	ast := mustParse(t, `color: red; a { color: blue; } margin: 0; b, c { padding: 1px; }`, nil)

	want := []string{"", "a", "", "b, c"}
	if len(ast) != len(want) {
		t.Fatalf("expected %d scopes, got %d", len(want), len(ast))
	}
	for i, sel := range want {
		if ast[i].Selector != sel {
			t.Errorf("scope %d: selector = %q, want %q", i, ast[i].Selector, sel)
		}
	}
}

func TestParser_SelectorNormalization(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"a   >\n  b { x: y }", "a > b"},
		{"a,b ,  c { x: y }", "a, b, c"},
		{":is(a, b) span { x: y }", ":is(a, b) span"},
		{"&:hover { x: y }", "&:hover"},
		{"&::before { x: y }", "&::before"},
		{"@media (max-width: 600px) { x: y }", "@media (max-width: 600px)"},
	}
	for _, tt := range tests {
		ast := mustParse(t, tt.src, nil)
		if ast[0].Selector != tt.want {
			t.Errorf("Parse(%q) selector = %q, want %q", tt.src, ast[0].Selector, tt.want)
		}
	}
}

func TestParser_AtRuleScope(t *testing.T) {
	ast := mustParse(t, `@media print { color: black; }`, nil)
	if !ast[0].IsAtRule() {
		t.Errorf("expected at-rule scope, got %q", ast[0].Selector)
	}
}

func TestParser_CustomProperty(t *testing.T) {
	ast := mustParse(t, `--accent: #09f; color: var(--accent);`, nil)
	decls := ast[0].Declarations()
	if decls[0].Property != "--accent" {
		t.Errorf("expected --accent property, got %q", decls[0].Property)
	}
	if decls[1].Value.String() != "var(--accent)" {
		t.Errorf("expected var(--accent), got %q", decls[1].Value)
	}
}

func TestParser_Interpolation(t *testing.T) {
	ast := mustParse(t, `border: ${width} solid ${color};`, map[string]string{"width": "1px", "color": "green"})

	v := ast[0].Declarations()[0].Value
	if v.String() != "1px solid green" {
		t.Errorf("expected substituted value, got %q", v.String())
	}
	if !v.Interpolated() {
		t.Error("expected value to be marked as interpolated")
	}
	if len(v) != 3 || v[0].Name != "width" || v[2].Name != "color" {
		t.Errorf("unexpected fragments: %+v", v)
	}
}

func TestParser_InterpolationIdentity(t *testing.T) {
	green := mustParse(t, `color: ${c};`, map[string]string{"c": "green"})
	blue := mustParse(t, `color: ${c};`, map[string]string{"c": "blue"})
	literal := mustParse(t, `color: green;`, nil)

	if green.Equal(blue) {
		t.Error("different bindings must produce different trees")
	}
	if green.Digest() == blue.Digest() {
		t.Error("different bindings must produce different digests")
	}
	if !green.Equal(literal) {
		t.Error("substituted value must equal identical literal text")
	}
	if green.Digest() != literal.Digest() {
		t.Error("equal trees must have equal digests")
	}
}

func TestParser_InterpolationInString(t *testing.T) {
	bindings := map[string]string{"c": "x", "d": "y z"}
	ast := mustParse(t, `content: "${c} and ${ d }";`, bindings)

	v := ast[0].Declarations()[0].Value
	if v.String() != `"x and y z"` {
		t.Errorf("expected substituted string, got %q", v.String())
	}
	if !v.Interpolated() {
		t.Error("expected value to be marked as interpolated")
	}
	if !ast.Equal(mustParse(t, `content: "x and y z";`, nil)) {
		t.Error("substituted string must equal identical literal text")
	}

	escaped := mustParse(t, `content: "\${c}";`, nil)
	if got := escaped[0].Declarations()[0].Value.String(); got != `"\${c}"` {
		t.Errorf("escaped placeholder changed: %q", got)
	}
}

func TestParser_BindingWithStructure(t *testing.T) {
	ast := mustParse(t, `font-family: ${f}; width: ${w};`, map[string]string{
		"f": `"a;b", sans-serif`,
		"w": "calc(100% - var(--gap))",
	})

	decls := ast[0].Declarations()
	if got := decls[0].Value.String(); got != `"a;b", sans-serif` {
		t.Errorf("font-family = %q", got)
	}
	if got := decls[1].Value.String(); got != "calc(100% - var(--gap))" {
		t.Errorf("width = %q", got)
	}
}

func TestParser_Deterministic(t *testing.T) {
	src := `color: ${c}; &:hover { a, b { margin: 0 auto; } } @media print { display: none }`
	bindings := map[string]string{"c": "red"}

	first := mustParse(t, src, bindings)
	for range 10 {
		next := mustParse(t, src, bindings)
		if !first.Equal(next) || !reflect.DeepEqual(first, next) {
			t.Fatal("parsing the same input produced different trees")
		}
		if first.Digest() != next.Digest() {
			t.Fatal("parsing the same input produced different digests")
		}
	}
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		bindings map[string]string
		kind     css.ErrorKind
		line     int
		col      int
	}{
		{name: "missing colon", src: `color red;`, kind: css.MissingColon, line: 1, col: 1},
		{name: "missing colon second line", src: "color: red;\nbackground blue;", kind: css.MissingColon, line: 2, col: 1},
		{name: "unclosed block", src: `a { color: red;`, kind: css.UnbalancedBrace, line: 1, col: 3},
		{name: "stray closing brace", src: `color: red; }`, kind: css.UnbalancedBrace, line: 1, col: 13},
		{name: "unterminated string", src: `content: "abc`, kind: css.UnterminatedString, line: 1, col: 10},
		{name: "unknown interpolation", src: `color: ${x};`, kind: css.UnknownInterpolation, line: 1, col: 8},
		{name: "empty interpolation", src: `color: ${};`, kind: css.BadInterpolation, line: 1, col: 8},
		{name: "interpolation in selector", src: `${sel} { color: red; }`, bindings: map[string]string{"sel": "a"}, kind: css.MisplacedInterpolation, line: 1, col: 1},
		{name: "empty property", src: `: red;`, kind: css.EmptyProperty, line: 1, col: 1},
		{name: "empty value", src: `color: ;`, kind: css.EmptyValue, line: 1, col: 6},
		{name: "block without selector", src: `{ color: red; }`, kind: css.UnexpectedToken, line: 1, col: 1},
		{name: "at-rule without block", src: `@import "x.css";`, kind: css.UnexpectedToken, line: 1, col: 1},
		{name: "two word property", src: `font size: 1px;`, kind: css.UnexpectedToken, line: 1, col: 6},
		{name: "column counts characters", src: `ä { color red; }`, kind: css.MissingColon, line: 1, col: 5},
		{name: "binding closes block", src: `color: ${c};`, bindings: map[string]string{"c": "red; } body { background: black"}, kind: css.BadInterpolation, line: 1, col: 8},
		{name: "binding with brace", src: `color: ${c};`, bindings: map[string]string{"c": "red }"}, kind: css.BadInterpolation, line: 1, col: 8},
		{name: "binding opens comment", src: `color: ${c};`, bindings: map[string]string{"c": "red /*"}, kind: css.BadInterpolation, line: 1, col: 8},
		{name: "binding with unbalanced function", src: `width: ${w};`, bindings: map[string]string{"w": "calc(1px"}, kind: css.BadInterpolation, line: 1, col: 8},
		{name: "binding with unterminated string", src: `content: ${c};`, bindings: map[string]string{"c": `"abc`}, kind: css.BadInterpolation, line: 1, col: 10},
		{name: "binding leaves string", src: `content: "${c}";`, bindings: map[string]string{"c": `a" } b { x: "`}, kind: css.BadInterpolation, line: 1, col: 11},
		{name: "unknown interpolation in string", src: `content: "${x}";`, kind: css.UnknownInterpolation, line: 1, col: 11},
		{name: "unclosed interpolation in string", src: `content: "${x";`, kind: css.BadInterpolation, line: 1, col: 11},
		{name: "interpolation in selector string", src: `a[title="${t}"] { color: red; }`, bindings: map[string]string{"t": "x"}, kind: css.MisplacedInterpolation, line: 1, col: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := css.Parse(tt.src, tt.bindings)
			if err == nil {
				t.Fatal("expected parse error")
			}
			var pe *css.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *css.ParseError, got %T", err)
			}
			if pe.Kind != tt.kind {
				t.Errorf("kind = %v, want %v", pe.Kind, tt.kind)
			}
			if pe.Pos.Line != tt.line || pe.Pos.Column != tt.col {
				t.Errorf("position = %s, want %d:%d", pe.Pos, tt.line, tt.col)
			}
			if !errors.Is(err, &css.ParseError{Kind: tt.kind}) {
				t.Error("errors.Is must match on kind")
			}
		})
	}
}

func TestParseError_Message(t *testing.T) {
	_, err := css.Parse(`color: ${missing};`, nil)
	if err == nil {
		t.Fatal("expected parse error")
	}
	want := `css: unknown interpolation "missing" at 1:8`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
