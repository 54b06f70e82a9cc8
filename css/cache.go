package css

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Cache memoizes parse results by source text and bindings. Parsing is
// deterministic so returned trees are shared between callers and must be
// treated as read only. Failed parses are not cached.
type Cache struct {
	parser *Parser
	trees  *lru.Cache[string, Scopes]
	log    *zap.Logger
}

// NewCache creates parse cache holding up to size trees.
func NewCache(parser *Parser, size int, log *zap.Logger) (*Cache, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if parser == nil {
		parser = NewParser(log)
	}
	trees, err := lru.New[string, Scopes](size)
	if err != nil {
		return nil, fmt.Errorf("unable to create parse cache: %w", err)
	}
	return &Cache{parser: parser, trees: trees, log: log.Named("css-cache")}, nil
}

// Parse returns cached tree or parses source and remembers result.
func (c *Cache) Parse(source string, bindings map[string]string) (Scopes, error) {
	key := cacheKey(source, bindings)
	if ast, ok := c.trees.Get(key); ok {
		return ast, nil
	}
	ast, err := c.parser.Parse(source, bindings)
	if err != nil {
		return nil, err
	}
	if evicted := c.trees.Add(key, ast); evicted {
		c.log.Debug("Parse cache full, evicted oldest entry", zap.Int("size", c.trees.Len()))
	}
	return ast, nil
}

// Len returns number of cached trees.
func (c *Cache) Len() int {
	return c.trees.Len()
}

// cacheKey is unambiguous: source and every binding are length prefixed,
// bindings are sorted by name.
func cacheKey(source string, bindings map[string]string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d:%s", len(source), source)
	for _, name := range slices.Sorted(maps.Keys(bindings)) {
		value := bindings[name]
		fmt.Fprintf(&sb, "|%d:%s=%d:%s", len(name), name, len(value), value)
	}
	return sb.String()
}
