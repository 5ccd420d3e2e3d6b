package fsutil

import "strings"

// Sanitize rewrites name into a token that is safe as a file or folder name.
// Path-illegal characters and control runes become underscores, whitespace
// runs collapse into a single underscore. An empty result becomes "unnamed"
// so callers never build a path from an empty component.
func Sanitize(name string) string {
	mapped := strings.Map(func(r rune) rune {
		if r < 0x20 || strings.ContainsRune(`\/:*?"<>|`, r) {
			return '_'
		}
		return r
	}, name)
	mapped = strings.Join(strings.Fields(mapped), "_")
	if mapped == "" {
		return "unnamed"
	}
	return mapped
}

// TruncateRunes shortens s to at most n runes. Folder names built from group
// keys can exceed filesystem limits without this.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
