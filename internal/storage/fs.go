package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/starford/slipbox/internal/apperr"
	"github.com/starford/slipbox/internal/models"
)

const tempPattern = ".slipbox-tmp-*"

// FS implements Provider backed by the local file system.
type FS struct {
	root       string // absolute path to the notes directory
	extensions []string
}

// NewFS creates a new FS provider rooted at the given directory. Only files
// whose extension is in extensions are reported by Scan; an empty list
// accepts every file. The directory must already exist.
func NewFS(root string, extensions ...string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w: %w", apperr.ErrIO, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs, extensions: extensions}, nil
}

// Root returns the absolute repository root.
func (f *FS) Root() string { return f.root }

// Abs resolves a relative path against the root.
func (f *FS) Abs(rel string) (string, error) { return f.safePath(rel) }

// Rel converts an absolute path inside the root to a slash-separated
// relative path.
func (f *FS) Rel(abs string) (string, error) {
	rel, err := filepath.Rel(f.root, abs)
	if err != nil {
		return "", fmt.Errorf("storage: rel %s: %w", abs, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path outside root: %s", abs)
	}
	return filepath.ToSlash(rel), nil
}

// safePath resolves a relative path against the root and rejects any result
// that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes root: %s", rel)
	}
	return abs, nil
}

// Accepts reports whether a file name passes the extension filter. Hidden
// files never do.
func (f *FS) Accepts(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	if len(f.extensions) == 0 {
		return true
	}
	ext := filepath.Ext(name)
	for _, e := range f.extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// Scan walks the root depth-first with an explicit stack of pending
// directories and returns the accepted files sorted by modification time,
// newest first. Hidden directories are not entered. A file whose
// modification time cannot be read sorts as if modified now. Any error
// reading a directory aborts the scan.
func (f *FS) Scan() ([]models.FileEntry, error) {
	now := time.Now()
	var out []models.FileEntry

	pending := []string{f.root}
	for len(pending) > 0 {
		dir := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("storage: scan %s: %w: %w", dir, apperr.ErrIO, err)
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), ".") {
				continue
			}
			p := filepath.Join(dir, e.Name())
			if e.IsDir() {
				pending = append(pending, p)
				continue
			}
			if !f.Accepts(e.Name()) {
				continue
			}
			mod := now
			if info, err := e.Info(); err == nil {
				mod = info.ModTime()
			}
			rel, err := filepath.Rel(f.root, p)
			if err != nil {
				return nil, fmt.Errorf("storage: scan rel %s: %w", p, err)
			}
			out = append(out, models.FileEntry{
				Path:    filepath.ToSlash(rel),
				AbsPath: p,
				ModTime: mod,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ModTime.After(out[j].ModTime)
	})
	return out, nil
}

// Read returns the raw bytes of a note file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w: %w", path, apperr.ErrIO, err)
	}
	return data, nil
}

// Exists reports whether a file exists at path.
func (f *FS) Exists(path string) (bool, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return false, err
	}
	_, err = os.Lstat(abs)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("storage: stat %s: %w: %w", path, apperr.ErrIO, err)
	}
}

// Create writes a new file, refusing to replace an existing one.
func (f *FS) Create(path string, content []byte) error {
	ok, err := f.Exists(path)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("storage: create %s: %w", path, apperr.ErrAlreadyExists)
	}
	return f.Write(path, content)
}

// Write atomically writes content: tmp file → fsync → rename. The original
// file is untouched unless the rename succeeds.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w: %w", apperr.ErrIO, err)
	}

	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return fmt.Errorf("storage: create temp: %w: %w", apperr.ErrIO, err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w: %w", apperr.ErrIO, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w: %w", apperr.ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w: %w", apperr.ErrIO, err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w: %w", apperr.ErrIO, err)
	}
	success = true
	return nil
}
