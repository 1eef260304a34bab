// Package path implements absolute, slash-delimited paths over the vsfs
// namespace. Unlike the standard library's path package, segments are
// validated against the small set of characters the on-disk directory
// format forbids, and a Path is always rooted.
package path

import "strings"

// forbiddenChars are the bytes a single path segment may not contain.
const forbiddenChars = `/\:*?"<>|`

// Path is an absolute, slash-rooted sequence of non-empty name segments.
// The zero value is the root path.
type Path struct {
	segments []string
}

// Root returns the root path, which has zero segments.
func Root() Path {
	return Path{}
}

// Parse validates and parses an absolute path string. The input must start
// with "/"; the string "/" alone parses to the root. Every segment after
// the leading slash must be non-empty and free of the characters
// `/ \ : * ? " < > |`.
func Parse(s string) (Path, bool) {
	if !strings.HasPrefix(s, "/") {
		return Path{}, false
	}
	if s == "/" {
		return Root(), true
	}

	rawSegments := strings.Split(s[1:], "/")
	segments := make([]string, 0, len(rawSegments))
	for _, seg := range rawSegments {
		if !validSegment(seg) {
			return Path{}, false
		}
		segments = append(segments, seg)
	}
	return Path{segments: segments}, true
}

func validSegment(seg string) bool {
	if seg == "" {
		return false
	}
	return !strings.ContainsAny(seg, forbiddenChars)
}

// IsRoot reports whether the path has no segments.
func (p Path) IsRoot() bool {
	return len(p.segments) == 0
}

// Segments returns the path's segments in order. The caller must not
// mutate the returned slice.
func (p Path) Segments() []string {
	return p.segments
}

// String renders the path, re-emitting its segments separated by "/", with
// a bare "/" for the root.
func (p Path) String() string {
	if p.IsRoot() {
		return "/"
	}
	return "/" + strings.Join(p.segments, "/")
}

// Join returns a new path with name appended as its final segment. It
// panics if name is not a valid segment; callers that accept untrusted
// input should validate with the segment rules before calling Join.
func (p Path) Join(name string) Path {
	if !validSegment(name) {
		panic("path: invalid segment " + name)
	}
	next := make([]string, len(p.segments)+1)
	copy(next, p.segments)
	next[len(p.segments)] = name
	return Path{segments: next}
}

// Parent returns the path with its final segment removed, and true, unless
// p is already the root, in which case it returns the zero Path and false.
func (p Path) Parent() (Path, bool) {
	if p.IsRoot() {
		return Path{}, false
	}
	parent := make([]string, len(p.segments)-1)
	copy(parent, p.segments[:len(p.segments)-1])
	return Path{segments: parent}, true
}

// Base returns the final segment of the path, and true, unless p is the
// root, in which case it returns "" and false.
func (p Path) Base() (string, bool) {
	if p.IsRoot() {
		return "", false
	}
	return p.segments[len(p.segments)-1], true
}

// ValidSegment reports whether name would be accepted as a single path
// segment (non-empty, and free of the characters forbidden in §3).
func ValidSegment(name string) bool {
	return validSegment(name)
}
