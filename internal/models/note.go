// Package models defines plain data types shared between slipbox layers.
package models

import "time"

// FileEntry is one note file found by a directory scan.
type FileEntry struct {
	// Path is relative to the repository root, with forward slashes.
	Path    string
	AbsPath string
	ModTime time.Time
}

// GraphNode is a note in the link graph.
type GraphNode struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// GraphLink is a resolved edge: Source links to Target and both are notes.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}
