// Package errors provides sentinel errors for documentation discovery operations.
package errors

import "errors"

var (
	// ErrSourceNotFound indicates the configured source directory does not exist.
	ErrSourceNotFound = errors.New("documentation source directory not found")

	// ErrWalkFailed indicates filesystem traversal of the source directory failed.
	ErrWalkFailed = errors.New("documentation directory walk failed")

	// ErrFileReadFailed indicates reading content from a discovered documentation file failed.
	ErrFileReadFailed = errors.New("documentation file read failed")

	// ErrSlugCollision indicates two documents resolve to the same slug.
	ErrSlugCollision = errors.New("slug collision detected")
)
