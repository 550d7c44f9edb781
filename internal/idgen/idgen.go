// Package idgen derives object identifiers from titles for objects created
// without an explicit id.
package idgen

import (
	"crypto/sha256"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/validation"
)

// StopWords are dropped from titles; they make ids longer without making
// them easier to recognize.
var StopWords = map[string]bool{
	"a": true, "an": true, "the": true,
	"in": true, "on": true, "at": true, "to": true, "for": true,
	"of": true, "with": true, "by": true, "from": true, "as": true,
	"and": true, "or": true, "but": true, "nor": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"this": true, "that": true, "these": true, "those": true,
	"it": true, "its": true,
}

// maxCollisionSuffix is the last numeric suffix tried before falling back to
// a hash suffix.
const maxCollisionSuffix = 99

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns title into a clean identifier: lowercase words joined by single
// hyphens, stop words removed, cut at a word boundary to fit the identifier
// length limit. Titles with no usable characters yield "untitled".
func Slug(title string) string {
	words := strings.Fields(nonAlphanumeric.ReplaceAllString(strings.ToLower(title), " "))

	filtered := make([]string, 0, len(words))
	for _, w := range words {
		if !StopWords[w] {
			filtered = append(filtered, w)
		}
	}
	if len(filtered) == 0 && len(words) > 0 {
		filtered = words[:1]
	}

	slug := truncate(strings.Join(filtered, "-"), validation.MaxIDLength)
	if slug == "" {
		return "untitled"
	}
	if !validation.IsValidClean(slug) {
		// Reserved device names such as "con" or "aux".
		slug = truncate(slug+"-item", validation.MaxIDLength)
	}
	return slug
}

// truncate cuts s to at most n bytes, preferring the last hyphen in the
// second half so words stay whole.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	if i := strings.LastIndex(cut, "-"); i > n/2 {
		cut = cut[:i]
	}
	return strings.Trim(cut, "-")
}

// Generate returns Slug(title), or the slug with a "-2", "-3", ... suffix
// when exists reports the plain slug taken. After maxCollisionSuffix tries it
// appends a short hash of the title and now instead.
func Generate(title string, now time.Time, exists func(id string) bool) string {
	base := Slug(title)
	if !exists(base) {
		return base
	}
	for n := 2; n <= maxCollisionSuffix; n++ {
		suffix := fmt.Sprintf("-%d", n)
		id := truncate(base, validation.MaxIDLength-len(suffix)) + suffix
		if !exists(id) {
			return id
		}
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", title, now.UnixNano())))
	suffix := "-" + EncodeBase36(sum[:5], 6)
	return truncate(base, validation.MaxIDLength-len(suffix)) + suffix
}

// base36Alphabet is the character set for base36 encoding (0-9, a-z).
const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// EncodeBase36 converts data to a base36 string of exactly length
// characters, zero-padded or keeping the least significant digits.
func EncodeBase36(data []byte, length int) string {
	num := new(big.Int).SetBytes(data)
	base := big.NewInt(36)
	mod := new(big.Int)

	chars := make([]byte, 0, length)
	for num.Sign() > 0 {
		num.DivMod(num, base, mod)
		chars = append(chars, base36Alphabet[mod.Int64()])
	}
	for i, j := 0, len(chars)-1; i < j; i, j = i+1, j-1 {
		chars[i], chars[j] = chars[j], chars[i]
	}

	str := string(chars)
	if len(str) < length {
		str = strings.Repeat("0", length-len(str)) + str
	}
	if len(str) > length {
		str = str[len(str)-length:]
	}
	return str
}
