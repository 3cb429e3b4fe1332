// Package identity derives stable content-addressed identifiers for graph
// entities extracted from free text (authors, organizations, journals and
// keywords).
//
// An identifier is a pure function of the normalized text, so the identifier
// itself is the deduplication key: the same name in two rows always maps to
// the same node without a lookup table. Identifiers are truncated MD5 digests,
// which keeps them identical to graphs produced by earlier conversion runs.
// Truncation to 8 hex characters carries a small theoretical collision risk.
package identity

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
)

const (
	// DefaultLength is the number of hex characters kept from the digest.
	DefaultLength = 8
	// MinLength is the shortest identifier a Deriver will produce.
	MinLength = 8
	// MaxLength is the full MD5 digest length in hex characters.
	MaxLength = 32
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Normalize trims text and collapses runs of internal whitespace to a single
// space. Case is preserved: "Zhang Wei" and "zhang wei" are distinct entities.
func Normalize(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return whitespaceRegex.ReplaceAllString(text, " ")
}

// Deriver produces fixed-length identifiers from text.
type Deriver struct {
	length int
}

// NewDeriver returns a Deriver keeping length hex characters. Lengths outside
// MinLength..MaxLength are clamped.
func NewDeriver(length int) Deriver {
	switch {
	case length < MinLength:
		length = MinLength
	case length > MaxLength:
		length = MaxLength
	}
	return Deriver{length: length}
}

// Length returns the identifier length in hex characters.
func (d Deriver) Length() int {
	if d.length == 0 {
		return DefaultLength
	}
	return d.length
}

// Derive returns the identifier for text. It never fails: the empty string
// yields the stable sentinel prefix of the MD5 of no bytes.
func (d Deriver) Derive(text string) string {
	sum := md5.Sum([]byte(Normalize(text)))
	return hex.EncodeToString(sum[:])[:d.Length()]
}

// Derive derives an identifier with the default length.
func Derive(text string) string {
	return Deriver{}.Derive(text)
}
