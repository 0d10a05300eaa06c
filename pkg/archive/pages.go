package archive

import (
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Entries we never serve as pages regardless of extension.
var ignoredNames = map[string]struct{}{
	"thumbs.db":     {},
	".ds_store":     {},
	"comicinfo.xml": {},
	"__macosx":      {},
}

var ignoredExtensions = map[string]struct{}{
	".nfo": {},
	".sfv": {},
	".txt": {},
	".xml": {},
	".db":  {},
	".ini": {},
}

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
	".gif":  {},
	".bmp":  {},
	".tiff": {},
}

// coverWordPattern marks entries that scanlators name as explicit covers so
// they sort ahead of the numbered pages.
var coverWordPattern = regexp.MustCompile(`\b(fc|cover|front)\b`)

// sortPages filters entry names down to page images and orders them for
// reading: explicit covers first, then natural order with digit runs
// compared by numeric value. The sort is stable, so entries with equal keys
// keep their archive order.
func sortPages(names []string) []string {
	type entry struct {
		name string
		key  pageKey
	}

	entries := make([]entry, 0, len(names))
	for _, name := range names {
		base := strings.ToLower(path.Base(filepath.ToSlash(name)))
		if _, ok := ignoredNames[base]; ok {
			continue
		}
		ext := path.Ext(base)
		if _, ok := ignoredExtensions[ext]; ok {
			continue
		}
		if _, ok := imageExtensions[ext]; !ok {
			continue
		}
		entries = append(entries, entry{name: name, key: newPageKey(name)})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].key.less(entries[j].key)
	})

	ordered := make([]string, len(entries))
	for i, e := range entries {
		ordered[i] = e.name
	}
	return ordered
}

// pageKey is the sort key for one entry: a cover rank (0 for explicit
// covers, 1 otherwise) and the name split into alternating text and digit
// fragments, text at even indices.
type pageKey struct {
	cover  int
	tokens []string
}

func newPageKey(name string) pageKey {
	text := strings.ToLower(name)

	cover := 1
	if coverWordPattern.MatchString(text) {
		cover = 0
	}

	// '-' and '_' map to '~', which sorts after all alphanumerics. That
	// keeps "c01.jpg" ahead of "c01-extra.jpg" even though '-' < '.' in
	// ASCII.
	text = strings.Map(func(r rune) rune {
		if r == '-' || r == '_' {
			return '~'
		}
		return r
	}, text)

	return pageKey{cover: cover, tokens: splitNatural(text)}
}

// splitNatural splits a string into maximal runs of digits and non-digits.
// The first token is always text, inserting an empty one when the string
// starts with a digit, so positions stay comparable across keys.
func splitNatural(s string) []string {
	tokens := make([]string, 0, 8)
	isDigit := func(b byte) bool { return b >= '0' && b <= '9' }

	start := 0
	for start < len(s) {
		digits := isDigit(s[start])
		end := start
		for end < len(s) && isDigit(s[end]) == digits {
			end++
		}
		if digits && len(tokens)%2 == 0 {
			tokens = append(tokens, "")
		}
		tokens = append(tokens, s[start:end])
		start = end
	}
	return tokens
}

func (k pageKey) less(other pageKey) bool {
	if k.cover != other.cover {
		return k.cover < other.cover
	}

	a, b := k.tokens, other.tokens
	for i := 0; i < len(a) && i < len(b); i++ {
		var cmp int
		if i%2 == 1 {
			cmp = compareNumeric(a[i], b[i])
		} else {
			cmp = strings.Compare(a[i], b[i])
		}
		if cmp != 0 {
			return cmp < 0
		}
	}
	return len(a) < len(b)
}

// compareNumeric compares two digit runs by value without parsing them into
// integers, so arbitrarily long runs can't overflow: strip leading zeros,
// then shorter means smaller, then compare lexicographically.
func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
