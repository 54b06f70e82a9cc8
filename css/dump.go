package css

import (
	"stylist/utils/debug"
)

// Dump returns indented human readable representation of the tree.
func (s Scopes) Dump() string {
	tw := debug.NewTreeWriter()
	for _, sc := range s {
		dumpScope(tw, 0, sc)
	}
	return tw.String()
}

func dumpScope(tw *debug.TreeWriter, depth int, sc *Scope) {
	switch {
	case sc.IsRoot():
		tw.Line(depth, "scope <root>")
	case sc.IsAtRule():
		tw.Line(depth, "at-rule %s", sc.Selector)
	default:
		tw.Line(depth, "scope %s", sc.Selector)
	}
	for _, it := range sc.Items {
		if it.Scope != nil {
			dumpScope(tw, depth+1, it.Scope)
			continue
		}
		d := it.Declaration
		tw.TextBlock(depth+1, d.Property, d.Value.String())
		for _, f := range d.Value {
			if f.IsInterpolation() {
				tw.Line(depth+2, "${%s} = %q", f.Name, f.Text)
			}
		}
	}
}
