package css

import (
	"strings"
)

// Fragment is a piece of a declaration value.
type Fragment struct {
	Text string // Literal text or the string bound to Name
	Name string // Interpolation name, empty for literal text
}

// IsInterpolation returns true if the fragment was produced by a ${name} placeholder.
func (f Fragment) IsInterpolation() bool {
	return f.Name != ""
}

// Value is a declaration value: literal text, resolved interpolations or a
// concatenation of both.
type Value []Fragment

// String returns the value text with all interpolations substituted.
func (v Value) String() string {
	switch len(v) {
	case 0:
		return ""
	case 1:
		return v[0].Text
	}
	var sb strings.Builder
	for _, f := range v {
		sb.WriteString(f.Text)
	}
	return sb.String()
}

// Interpolated returns true if any part of the value came from a binding.
func (v Value) Interpolated() bool {
	for _, f := range v {
		if f.IsInterpolation() {
			return true
		}
	}
	return false
}

// Declaration is a single "property: value" pair.
type Declaration struct {
	Property string
	Value    Value
}

// Item is one entry of a scope, exactly one of the fields is set.
type Item struct {
	Declaration *Declaration
	Scope       *Scope
}

// Scope is one style rule: a selector fragment and its ordered content.
// Empty selector denotes the root scope which applies to the generated class
// itself. Selectors starting with '@' are at-rules (@media, @supports...)
// wrapping their content.
type Scope struct {
	Selector string
	Items    []Item
}

// IsRoot returns true for the implicit class scope.
func (s *Scope) IsRoot() bool {
	return s.Selector == ""
}

// IsAtRule returns true if the scope is a conditional group rule.
func (s *Scope) IsAtRule() bool {
	return strings.HasPrefix(s.Selector, "@")
}

// Declarations returns declarations directly contained in the scope.
func (s *Scope) Declarations() []*Declaration {
	var decls []*Declaration
	for _, it := range s.Items {
		if it.Declaration != nil {
			decls = append(decls, it.Declaration)
		}
	}
	return decls
}

// Equal reports whether two scopes are structurally identical. Values are
// compared after substitution so a literal and an interpolation producing the
// same text are equal.
func (s *Scope) Equal(o *Scope) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil {
		return false
	}
	if s.Selector != o.Selector || len(s.Items) != len(o.Items) {
		return false
	}
	for i := range s.Items {
		a, b := s.Items[i], o.Items[i]
		switch {
		case a.Declaration != nil && b.Declaration != nil:
			if a.Declaration.Property != b.Declaration.Property ||
				a.Declaration.Value.String() != b.Declaration.Value.String() {
				return false
			}
		case a.Scope != nil && b.Scope != nil:
			if !a.Scope.Equal(b.Scope) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Clone makes a deep copy of the scope.
func (s *Scope) Clone() *Scope {
	if s == nil {
		return nil
	}
	c := &Scope{Selector: s.Selector, Items: make([]Item, len(s.Items))}
	for i, it := range s.Items {
		switch {
		case it.Declaration != nil:
			d := *it.Declaration
			d.Value = append(Value(nil), it.Declaration.Value...)
			c.Items[i].Declaration = &d
		case it.Scope != nil:
			c.Items[i].Scope = it.Scope.Clone()
		}
	}
	return c
}

// Scopes is the AST of one style definition: ordered sequence of top level
// scopes. Once handed to a registry the tree must not be modified.
type Scopes []*Scope

// Equal reports whether two trees are structurally identical.
func (s Scopes) Equal(o Scopes) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if !s[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// Clone makes a deep copy of the tree.
func (s Scopes) Clone() Scopes {
	if s == nil {
		return nil
	}
	c := make(Scopes, len(s))
	for i, sc := range s {
		c[i] = sc.Clone()
	}
	return c
}
