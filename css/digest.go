package css

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Digest returns 64-bit hash of the tree structure. Structurally equal trees
// (see Scopes.Equal) always produce the same digest, the reverse is only
// probable, so callers must confirm with Equal.
func (s Scopes) Digest() uint64 {
	d := xxhash.New()
	writeLen(d, len(s))
	for _, sc := range s {
		digestScope(d, sc)
	}
	return d.Sum64()
}

// Every string is length prefixed so that concatenation boundaries are part
// of the hash.
func digestScope(d *xxhash.Digest, sc *Scope) {
	_, _ = d.WriteString("S")
	writeString(d, sc.Selector)
	writeLen(d, len(sc.Items))
	for _, it := range sc.Items {
		switch {
		case it.Declaration != nil:
			_, _ = d.WriteString("D")
			writeString(d, it.Declaration.Property)
			writeString(d, it.Declaration.Value.String())
		case it.Scope != nil:
			digestScope(d, it.Scope)
		}
	}
}

func writeLen(d *xxhash.Digest, n int) {
	var buf [binary.MaxVarintLen64]byte
	_, _ = d.Write(buf[:binary.PutUvarint(buf[:], uint64(n))])
}

func writeString(d *xxhash.Digest, s string) {
	writeLen(d, len(s))
	_, _ = d.WriteString(s)
}
