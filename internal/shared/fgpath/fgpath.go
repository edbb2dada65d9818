// Package fgpath provides path normalization for user-entered filesystem
// paths in POSIX, Windows, or SMB notation, plus browse-URL construction.
package fgpath

import (
	"net/url"
	"strings"
)

// RemoveTrailingSlashes strips trailing forward and back slashes.
func RemoveTrailingSlashes(path string) string {
	return strings.TrimRight(path, "/\\")
}

// NormalizePosixStylePath strips a single leading slash if present,
// leaving the rest of the path unchanged.
func NormalizePosixStylePath(path string) string {
	return strings.TrimPrefix(path, "/")
}

// ToForwardSlash converts all backslashes to forward slashes.
func ToForwardSlash(path string) string {
	return strings.ReplaceAll(path, "\\", "/")
}

// Join trims whitespace and slashes from each segment and joins the
// non-empty results with single slashes.
func Join(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		seg = strings.Trim(seg, "/\\")
		if seg == "" {
			continue
		}
		parts = append(parts, seg)
	}
	joined := strings.Join(parts, "/")
	for strings.Contains(joined, "//") {
		joined = strings.ReplaceAll(joined, "//", "/")
	}
	return joined
}

// Slugify converts a mount path to a name usable as a share identifier.
// A home marker becomes "home_", every other non-alphanumeric run
// collapses to a single underscore.
func Slugify(path string) string {
	path = strings.ReplaceAll(path, "~", "home_")
	var b strings.Builder
	b.Grow(len(path))
	for _, r := range path {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	slug := b.String()
	for strings.Contains(slug, "__") {
		slug = strings.ReplaceAll(slug, "__", "_")
	}
	return strings.Trim(slug, "_")
}

// MakeBrowseLink builds an internal browse route with the share name and
// each subpath segment percent-encoded.
func MakeBrowseLink(fspName, subpath string) string {
	link := "/browse/" + url.PathEscape(fspName)
	subpath = strings.Trim(strings.TrimSpace(subpath), "/")
	if subpath == "" {
		return link
	}
	segments := strings.Split(subpath, "/")
	encoded := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		encoded = append(encoded, url.PathEscape(seg))
	}
	return link + "/" + strings.Join(encoded, "/")
}
