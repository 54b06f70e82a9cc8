package style

import (
	"fmt"

	"stylist/css"
)

// Key is content addressed identity of a style tree. Two keys are equal when
// their trees are structurally equal, regardless of where the trees live.
type Key struct {
	ast css.Scopes
	sum uint64
}

// NewKey computes key for the tree. The tree must not be modified afterwards.
func NewKey(ast css.Scopes) Key {
	return Key{ast: ast, sum: ast.Digest()}
}

// Scopes returns the tree the key was made of.
func (k Key) Scopes() css.Scopes {
	return k.ast
}

// Sum returns structural digest of the tree.
func (k Key) Sum() uint64 {
	return k.sum
}

// Equal compares keys structurally, digest is only used to reject quickly.
func (k Key) Equal(o Key) bool {
	return k.sum == o.sum && k.ast.Equal(o.ast)
}

func (k Key) String() string {
	return fmt.Sprintf("%016x", k.sum)
}
