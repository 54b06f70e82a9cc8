package style

import (
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const (
	// DefaultPrefix is used when no class prefix is specified.
	DefaultPrefix = "stylist"
	// SuffixLength is number of random hex characters in generated class names.
	SuffixLength = 10
)

// RandomSuffix returns random lowercase hex string of SuffixLength characters.
func RandomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:SuffixLength]
}

// NormalizePrefix makes class prefix usable as start of CSS identifier:
// transliterated, lowercased, with anything but letters, digits, dashes and
// underscores turned into dashes.
func NormalizePrefix(prefix string) string {
	p := slug.Make(prefix)
	switch {
	case p == "":
		return DefaultPrefix
	case p[0] >= '0' && p[0] <= '9':
		return DefaultPrefix + "-" + p
	}
	return p
}
