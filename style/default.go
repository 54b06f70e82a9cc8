package style

import (
	"sync"
)

var defaultRegistry = sync.OnceValue(func() *Registry {
	return NewRegistry()
})

// Default returns process wide registry without sink, created on first use.
// Programs attaching styles to a real surface should create their own
// registry with NewRegistry and WithSink.
func Default() *Registry {
	return defaultRegistry()
}

// Compile compiles source using Default registry.
func Compile(source, prefix string, bindings map[string]string) (*Style, error) {
	return Default().Compile(source, prefix, bindings)
}
