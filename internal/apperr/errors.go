// Package apperr holds the sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidPath  = errors.New("invalid path")
	ErrFragmentLoad = errors.New("fragment load failed")
)
