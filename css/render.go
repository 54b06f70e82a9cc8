package css

import (
	"strings"
)

// Render produces final style text for the tree scoped to className. Root
// scope declarations apply to ".className" itself, nested selectors are
// combined with the resolved parent selector (see combineSelectors) and
// at-rules wrap the scoped rules they contain. Rules are separated by new
// lines, one rule per line. The tree is never modified.
func Render(ast Scopes, className string) string {
	r := &renderer{}
	root := []string{"." + className}
	for _, sc := range ast {
		r.scope(sc, root, nil)
	}
	return r.sb.String()
}

type renderer struct {
	sb strings.Builder
}

func (r *renderer) scope(sc *Scope, parents, atRules []string) {
	selectors := parents
	if sc.IsAtRule() {
		atRules = append(atRules[:len(atRules):len(atRules)], sc.Selector)
	} else {
		selectors = combineSelectors(parents, sc.Selector)
	}

	// declarations interrupted by a nested scope produce a new rule, this
	// keeps source order intact in the output
	var run []*Declaration
	for _, it := range sc.Items {
		if it.Declaration != nil {
			run = append(run, it.Declaration)
			continue
		}
		r.rule(selectors, atRules, run)
		run = nil
		r.scope(it.Scope, selectors, atRules)
	}
	r.rule(selectors, atRules, run)
}

func (r *renderer) rule(selectors, atRules []string, decls []*Declaration) {
	if len(decls) == 0 {
		return
	}
	if r.sb.Len() > 0 {
		r.sb.WriteByte('\n')
	}
	for _, at := range atRules {
		r.sb.WriteString(at)
		r.sb.WriteString(" { ")
	}
	r.sb.WriteString(strings.Join(selectors, ", "))
	r.sb.WriteString(" {")
	for _, d := range decls {
		r.sb.WriteByte(' ')
		r.sb.WriteString(d.Property)
		r.sb.WriteString(": ")
		r.sb.WriteString(d.Value.String())
		r.sb.WriteByte(';')
	}
	r.sb.WriteString(" }")
	for range atRules {
		r.sb.WriteString(" }")
	}
}

// combineSelectors resolves selector relative to every parent selector:
//   - '&' is replaced with the parent ("& > a", "a &", "&.active")
//   - a fragment starting with ':' attaches to the parent (":hover", "::before")
//   - anything else becomes a descendant of the parent ("span", ".icon")
//
// Comma separated lists on either side expand into all combinations.
func combineSelectors(parents []string, selector string) []string {
	if selector == "" {
		return parents
	}
	parts := splitSelectorList(selector)
	out := make([]string, 0, len(parents)*len(parts))
	for _, parent := range parents {
		for _, part := range parts {
			if resolved, ok := replaceSelf(part, parent); ok {
				out = append(out, resolved)
				continue
			}
			switch {
			case strings.HasPrefix(part, ":"):
				out = append(out, parent+part)
			default:
				out = append(out, parent+" "+part)
			}
		}
	}
	return out
}

// replaceSelf substitutes parent for every '&' outside of quoted strings and
// attribute brackets. It reports whether any substitution took place.
func replaceSelf(part, parent string) (string, bool) {
	var (
		sb       strings.Builder
		brackets int
		quote    byte
		replaced bool
	)
	for i := 0; i < len(part); i++ {
		c := part[i]
		switch {
		case quote != 0:
			if c == '\\' && i+1 < len(part) {
				sb.WriteByte(c)
				i++
				c = part[i]
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[':
			brackets++
		case c == ']':
			brackets = max(0, brackets-1)
		case c == '&' && brackets == 0:
			sb.WriteString(parent)
			replaced = true
			continue
		}
		sb.WriteByte(c)
	}
	if !replaced {
		return part, false
	}
	return sb.String(), true
}

// splitSelectorList splits on commas outside of parentheses, brackets and
// quoted strings.
func splitSelectorList(selector string) []string {
	var (
		parts []string
		depth int
		quote byte
		start int
	)
	for i := 0; i < len(selector); i++ {
		c := selector[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth = max(0, depth-1)
		case c == ',' && depth == 0:
			parts = append(parts, strings.TrimSpace(selector[start:i]))
			start = i + 1
		}
	}
	return append(parts, strings.TrimSpace(selector[start:]))
}
