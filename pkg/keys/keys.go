// Package keys defines how virtual paths map onto object store keys.
//
// A stored key is org-qualified: "org/path/to/object.ext". A folder is
// represented by a marker key without extension ("org/path/to/folder") and a
// sibling metadata object ("org/path/to/folder.props"). Request paths carry
// the org as their first segment ("/org/path/to/object.ext").
package keys

import (
	"path"
	"strings"
)

const (
	// Separator is the path separator used inside keys.
	Separator = "/"

	// PropsSuffix marks the metadata sibling of a folder marker.
	PropsSuffix = ".props"
)

// Sanitize normalizes a caller-supplied destination into a canonical relative
// key: leading and trailing separators are stripped and the result is
// lower-cased.
//
// Sanitize never fails. A raw value made only of separators yields "", which
// callers must treat as invalid.
//
// Examples:
//
//	Sanitize("/FOO/BAR")  // "foo/bar"
//	Sanitize("/foo/bar/") // "foo/bar"
//	Sanitize("///")       // ""
func Sanitize(raw string) string {
	return strings.ToLower(strings.Trim(raw, Separator))
}

// Split separates an org-qualified path into its org and the org-relative key.
// The input may carry leading or trailing separators.
//
//	Split("/acme/docs/a.html") // "acme", "docs/a.html"
//	Split("acme")              // "acme", ""
func Split(p string) (org, key string) {
	p = strings.Trim(p, Separator)
	org, key, _ = strings.Cut(p, Separator)
	return org, key
}

// Join builds an org-qualified key. An empty key yields the org itself.
func Join(org, key string) string {
	key = strings.Trim(key, Separator)
	if key == "" {
		return org
	}
	return org + Separator + key
}

// ValidSegments reports whether every segment of key is non-empty and is
// neither "." nor "..".
func ValidSegments(key string) bool {
	if key == "" {
		return false
	}
	for _, seg := range strings.Split(key, Separator) {
		if strings.TrimSpace(seg) == "" || seg == "." || seg == ".." {
			return false
		}
	}
	return true
}

// IsDescendant reports whether candidate equals ancestor or lives beneath it.
//
// The check is segment-aware: "foo/barn" is not a descendant of "foo/bar".
func IsDescendant(candidate, ancestor string) bool {
	if candidate == ancestor {
		return true
	}
	if ancestor == "" {
		return true
	}
	return strings.HasPrefix(candidate, ancestor+Separator)
}

// Base returns the final segment of key.
func Base(key string) string {
	if i := strings.LastIndex(key, Separator); i >= 0 {
		return key[i+1:]
	}
	return key
}

// Dir returns everything before the final segment of key, or "" for a
// single-segment key.
func Dir(key string) string {
	if i := strings.LastIndex(key, Separator); i >= 0 {
		return key[:i]
	}
	return ""
}

// Ext returns the extension of the final segment including the dot, or "".
func Ext(key string) string {
	return path.Ext(Base(key))
}

// IsProps reports whether key is a folder metadata sibling.
func IsProps(key string) bool {
	return strings.HasSuffix(key, PropsSuffix)
}

// PropsKey returns the metadata sibling of a folder marker.
func PropsKey(folder string) string {
	return folder + PropsSuffix
}

// IsConcrete reports whether key names a single object rather than a folder.
// Concrete keys carry a file extension on their final segment; folder markers
// and their ".props" siblings are not concrete.
func IsConcrete(key string) bool {
	if key == "" || IsProps(key) {
		return false
	}
	return Ext(key) != ""
}

// Belongs reports whether key is part of the tree rooted at prefix: the prefix
// itself, its ".props" sibling, or anything beneath it.
func Belongs(key, prefix string) bool {
	if prefix == "" {
		return true
	}
	return key == prefix || key == PropsKey(prefix) || strings.HasPrefix(key, prefix+Separator)
}

// Rebase maps key from the tree rooted at from onto the tree rooted at to.
// It returns false when key does not belong to from.
//
//	Rebase("o/a.props", "o/a", "o/b") // "o/b.props", true
//	Rebase("o/a/x.html", "o/a", "o/b") // "o/b/x.html", true
func Rebase(key, from, to string) (string, bool) {
	switch {
	case key == from:
		return to, true
	case key == PropsKey(from):
		return PropsKey(to), true
	case strings.HasPrefix(key, from+Separator):
		return to + key[len(from):], true
	default:
		return "", false
	}
}

// WithSuffix inserts "-suffix" into the final segment of key, before its
// extension when it has one.
//
//	WithSuffix("docs/bar", "17")      // "docs/bar-17"
//	WithSuffix("docs/a.html", "17")   // "docs/a-17.html"
func WithSuffix(key, suffix string) string {
	ext := Ext(key)
	stem := strings.TrimSuffix(key, ext)
	return stem + "-" + suffix + ext
}
