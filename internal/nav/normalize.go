// Package nav decides which navigation entry of a page is current.
package nav

import "strings"

// Path is a normalized page path. Values are produced by Normalize so that
// the current page and every menu link are compared in the same form.
type Path string

// Root is the normalized site root.
const Root Path = "/"

const indexFile = "index.html"

// Normalize canonicalizes p: lower-cased, a trailing index.html and
// trailing slashes removed, empty coerced to Root. It never fails and
// Normalize(string(Normalize(p))) == Normalize(p).
func Normalize(p string) Path {
	s := strings.ToLower(p)
	for {
		prev := s
		s = strings.TrimRight(s, "/")
		switch {
		case s == indexFile:
			s = ""
		case strings.HasSuffix(s, "/"+indexFile):
			s = strings.TrimSuffix(s, indexFile)
		}
		if s == prev {
			break
		}
	}
	if s == "" {
		return Root
	}
	return Path(s)
}
