package style

import (
	"sync"
	"sync/atomic"

	"stylist/css"
)

// content is a compiled style shared by all handles minted for its key.
// Everything except the rendered text cell is immutable after construction,
// refs and registered are guarded by owning registry lock.
type content struct {
	reg       *Registry
	key       Key
	className string

	once sync.Once
	text string

	refs       int
	registered bool
	released   bool
}

// styleText renders the tree on first access and caches the result for the
// lifetime of the content.
func (c *content) styleText() string {
	c.once.Do(func() {
		c.text = c.reg.render(c.key.ast, c.className)
	})
	return c.text
}

// Style is a handle to compiled style. Every handle obtained from a registry
// (or Clone) must be released exactly once, the style is unmounted when its
// last handle is released. Handles are safe for concurrent use.
type Style struct {
	c        *content
	released atomic.Bool
}

func newHandle(c *content) *Style {
	return &Style{c: c}
}

// ClassName returns generated class name to attach to elements.
func (s *Style) ClassName() string {
	return s.c.className
}

// Text returns rendered style text scoped to the class name. Rendering
// happens at most once per compiled style.
func (s *Style) Text() string {
	return s.c.styleText()
}

// Key returns content identity of the style.
func (s *Style) Key() Key {
	return s.c.key
}

// Scopes returns parsed tree the style was compiled from.
func (s *Style) Scopes() css.Scopes {
	return s.c.key.ast
}

// String returns class name.
func (s *Style) String() string {
	return s.c.className
}

// Clone returns another handle to the same compiled style.
func (s *Style) Clone() *Style {
	if s.released.Load() {
		panic("style: clone of released handle " + s.c.className)
	}
	s.c.reg.acquire(s.c)
	return newHandle(s.c)
}

// Release gives up the handle. Releasing the last handle unmounts the style
// and removes it from the registry. Repeated calls are no-op.
func (s *Style) Release() {
	if !s.released.CompareAndSwap(false, true) {
		return
	}
	s.c.reg.release(s.c)
}

// Released reports whether this handle was released.
func (s *Style) Released() bool {
	return s.released.Load()
}

// Unregister removes the style from registry cache so the next compilation of
// the same source creates a fresh style. Existing handles stay valid, the
// style is unmounted when all of them are released.
func (s *Style) Unregister() {
	s.c.reg.detach(s.c)
}
