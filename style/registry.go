package style

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/maruel/natural"
	"go.uber.org/zap"

	"stylist/css"
)

// ErrMount is wrapped by errors returned when sink refuses to mount a new style.
var ErrMount = errors.New("unable to mount style")

type (
	// ParseFunc turns source and bindings into a tree.
	ParseFunc func(source string, bindings map[string]string) (css.Scopes, error)
	// RenderFunc produces style text for a tree and class name.
	RenderFunc func(ast css.Scopes, className string) string
)

// Registry deduplicates compiled styles by structural key and manages their
// lifecycle. A single lock guards the cache, mount and unmount calls happen
// under it so concurrent creation of equal styles mounts exactly once.
type Registry struct {
	mu     sync.Mutex
	styles map[uint64][]*content // registered styles bucketed by key digest
	live   map[string]*content   // all mounted styles by class name

	sink   Sink
	parse  ParseFunc
	render RenderFunc
	suffix func() string
	log    *zap.Logger
}

// Option configures registry.
type Option func(*Registry)

// WithSink sets surface styles are mounted to. Without sink styles are only
// cached and text is rendered on first access.
func WithSink(s Sink) Option {
	return func(r *Registry) { r.sink = s }
}

// WithLogger sets registry logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// WithParser replaces default parser, for example with css.Cache.Parse.
func WithParser(fn ParseFunc) Option {
	return func(r *Registry) { r.parse = fn }
}

// WithRenderer replaces css.Render.
func WithRenderer(fn RenderFunc) Option {
	return func(r *Registry) { r.render = fn }
}

// WithSuffix replaces random class name suffix generator.
func WithSuffix(fn func() string) Option {
	return func(r *Registry) { r.suffix = fn }
}

// NewRegistry creates empty registry.
func NewRegistry(options ...Option) *Registry {
	r := &Registry{
		styles: make(map[uint64][]*content),
		live:   make(map[string]*content),
		render: css.Render,
		suffix: RandomSuffix,
		log:    zap.NewNop(),
	}
	for _, setOpt := range options {
		setOpt(r)
	}
	if r.parse == nil {
		r.parse = css.NewParser(r.log).Parse
	}
	r.log = r.log.Named("style-registry")
	return r
}

// Compile parses source with bindings and returns handle to compiled style,
// reusing cached style when structurally equal one is registered. Parse
// errors are *css.ParseError, mount failures wrap ErrMount.
func (r *Registry) Compile(source, prefix string, bindings map[string]string) (*Style, error) {
	ast, err := r.parse(source, bindings)
	if err != nil {
		return nil, err
	}
	return r.GetOrCreate(NewKey(ast), prefix)
}

// GetOrCreate returns new handle to registered style with equal key or
// creates, mounts and registers a new one named "{prefix}-{suffix}". The new
// style keeps the key's tree as is, callers must not modify it afterwards.
func (r *Registry) GetOrCreate(key Key, prefix string) (*Style, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c := r.lookup(key); c != nil {
		c.refs++
		r.log.Debug("Style cache hit", zap.String("class", c.className), zap.Stringer("key", key), zap.Int("refs", c.refs))
		return newHandle(c), nil
	}

	c := &content{
		reg:       r,
		key:       key,
		className: r.className(NormalizePrefix(prefix)),
	}
	if r.sink != nil {
		if err := r.sink.Mount(c.className, c.styleText()); err != nil {
			r.log.Debug("Style mount failed", zap.String("class", c.className), zap.Error(err))
			return nil, fmt.Errorf("%w %q: %w", ErrMount, c.className, err)
		}
	}
	c.refs = 1
	c.registered = true
	r.styles[key.sum] = append(r.styles[key.sum], c)
	r.live[c.className] = c

	r.log.Debug("Style created", zap.String("class", c.className), zap.Stringer("key", key), zap.Bool("mounted", r.sink != nil))
	return newHandle(c), nil
}

// Unregister removes style with equal key from cache. Outstanding handles
// keep it mounted until released.
func (r *Registry) Unregister(key Key) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c := r.lookup(key); c != nil {
		r.unregister(c)
	}
}

// Len returns number of registered styles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, bucket := range r.styles {
		n += len(bucket)
	}
	return n
}

// ClassNames returns class names of all mounted styles including
// unregistered ones still in use, in natural order.
func (r *Registry) ClassNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.live))
	for name := range r.live {
		names = append(names, name)
	}
	sort.Sort(natural.StringSlice(names))
	return names
}

func (r *Registry) lookup(key Key) *content {
	for _, c := range r.styles[key.sum] {
		if c.key.Equal(key) {
			return c
		}
	}
	return nil
}

// className picks unused name, falling back to numbered variants if the
// generator repeats itself.
func (r *Registry) className(prefix string) string {
	base := prefix + "-" + r.suffix()
	name := base
	for i := 1; r.live[name] != nil; i++ {
		name = fmt.Sprintf("%s-%d", base, i)
	}
	return name
}

func (r *Registry) acquire(c *content) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.released {
		panic("style: acquire of released style " + c.className)
	}
	c.refs++
}

func (r *Registry) release(c *content) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c.refs--
	if c.refs > 0 {
		return
	}
	r.finalize(c)
}

func (r *Registry) detach(c *content) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.registered {
		r.unregister(c)
	}
}

// unregister must be called with lock held.
func (r *Registry) unregister(c *content) {
	bucket := r.styles[c.key.sum]
	for i, v := range bucket {
		if v == c {
			bucket = append(bucket[:i:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(r.styles, c.key.sum)
	} else {
		r.styles[c.key.sum] = bucket
	}
	c.registered = false
	r.log.Debug("Style unregistered", zap.String("class", c.className), zap.Int("refs", c.refs))

	if c.refs == 0 {
		r.finalize(c)
	}
}

// finalize is terminal transition of a style, must be called with lock held.
func (r *Registry) finalize(c *content) {
	if c.released {
		return
	}
	c.released = true
	if c.registered {
		r.unregister(c)
	}
	delete(r.live, c.className)
	r.unmount(c)
}

// unmount never fails the caller: sink errors and panics are logged.
func (r *Registry) unmount(c *content) {
	if r.sink == nil {
		r.log.Debug("Style released", zap.String("class", c.className))
		return
	}
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("Style unmount panicked", zap.String("class", c.className), zap.Any("panic", p))
		}
	}()
	if err := r.sink.Unmount(c.className); err != nil {
		r.log.Warn("Unable to unmount style", zap.String("class", c.className), zap.Error(err))
		return
	}
	r.log.Debug("Style unmounted", zap.String("class", c.className))
}
