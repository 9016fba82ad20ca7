// Package storage defines the note-directory file-system abstraction.
package storage

import "github.com/starford/slipbox/internal/models"

// Provider is the interface for note file operations. Paths are relative to
// the repository root and use forward slashes.
type Provider interface {
	// Root returns the absolute repository root.
	Root() string
	// Scan returns every note file under the root, most recently modified first.
	Scan() ([]models.FileEntry, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the content of path, creating parent directories.
	Write(path string, content []byte) error
	// Create writes a new file and fails if path already exists.
	Create(path string, content []byte) error
	// Exists reports whether path exists.
	Exists(path string) (bool, error)
	// Abs resolves path to an absolute file path inside the root.
	Abs(path string) (string, error)
	// Rel converts an absolute path inside the root to a relative one.
	Rel(abs string) (string, error)
	// Accepts reports whether a file name is a note file.
	Accepts(name string) bool
}
