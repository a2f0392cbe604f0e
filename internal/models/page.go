// Package models defines the domain types for lintel.
package models

import "time"

// PageKind tells how a site file becomes an HTML page.
type PageKind string

// Page kinds.
const (
	KindHTML     PageKind = "html"
	KindMarkdown PageKind = "markdown"
)

// KindOf returns the page kind for a file name, or "" for non-page files.
func KindOf(name string) PageKind {
	switch {
	case hasSuffixFold(name, ".html"), hasSuffixFold(name, ".htm"):
		return KindHTML
	case hasSuffixFold(name, ".md"), hasSuffixFold(name, ".markdown"):
		return KindMarkdown
	}
	return ""
}

// PageMetadata is a lightweight representation returned by list operations.
type PageMetadata struct {
	Path      string    `json:"path"`
	Kind      PageKind  `json:"kind"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

func hasSuffixFold(s, suffix string) bool {
	if len(s) < len(suffix) {
		return false
	}
	tail := s[len(s)-len(suffix):]
	for i := 0; i < len(suffix); i++ {
		c := tail[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != suffix[i] {
			return false
		}
	}
	return true
}
