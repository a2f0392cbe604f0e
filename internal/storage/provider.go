// Package storage defines the site file-system abstraction.
package storage

import (
	"io/fs"

	"github.com/starford/lintel/internal/models"
)

// Provider is the read-only interface to the site directory. All paths are
// slash-separated and relative to the site root.
type Provider interface {
	// List returns metadata for every page file (.html, .md) under dir.
	List(dir string) ([]models.PageMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Stat describes the file at path.
	Stat(path string) (fs.FileInfo, error)
}
