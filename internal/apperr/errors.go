// Package apperr holds the sentinel errors shared across slipbox layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	// ErrIO marks filesystem read, write, and rename failures.
	ErrIO = errors.New("io failure")
	// ErrHeaderDecode marks a note header that is present but malformed.
	ErrHeaderDecode = errors.New("header decode")
	// ErrLinkParse marks a note body that could not be parsed into a syntax tree.
	ErrLinkParse = errors.New("link parse")
	// ErrIndex marks a search index mutation or commit failure.
	ErrIndex = errors.New("index failure")
	// ErrQuerySyntax marks a search keyword that could not be parsed.
	ErrQuerySyntax = errors.New("query syntax")
)
