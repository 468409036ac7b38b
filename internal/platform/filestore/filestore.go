// Package filestore serves and stores files below a single root directory.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"file-gallery/internal/browse"
)

var (
	ErrForbidden    = errors.New("path escapes the file root")
	ErrNotFound     = errors.New("file or directory not found")
	ErrNotDirectory = errors.New("target path is not a directory")
)

// Store is a directory tree rooted at a fixed path.
type Store struct {
	root string
}

// New opens root, creating it when missing. created reports whether it had to.
func New(root string) (store *Store, created bool, err error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}

	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return nil, false, fmt.Errorf("failed to create root %s: %w", abs, err)
		}
		created = true
	case err != nil:
		return nil, false, fmt.Errorf("failed to stat root %s: %w", abs, err)
	case !info.IsDir():
		return nil, false, fmt.Errorf("root %s: %w", abs, ErrNotDirectory)
	}

	return &Store{root: abs}, created, nil
}

// Root returns the absolute root directory.
func (s *Store) Root() string {
	return s.root
}

// Clean normalizes a request path to a slash separated path relative to the root.
// Paths with a ".." component are refused rather than clamped.
func Clean(rel string) (string, error) {
	rel = strings.ReplaceAll(rel, "\\", "/")
	for _, part := range strings.Split(rel, "/") {
		if part == ".." {
			return "", ErrForbidden
		}
	}
	return strings.Trim(path.Clean("/"+rel), "/"), nil
}

// Resolve maps a request path onto the filesystem.
func (s *Store) Resolve(rel string) (string, error) {
	clean, err := Clean(rel)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Stat returns file info for a request path.
func (s *Store) Stat(rel string) (fs.FileInfo, error) {
	p, err := s.Resolve(rel)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return info, err
}

// List reads a directory. Entries that vanish or cannot be stat'ed while reading
// are skipped.
func (s *Store) List(ctx context.Context, rel string) (*browse.Listing, error) {
	clean, err := Clean(rel)
	if err != nil {
		return nil, err
	}
	info, err := s.Stat(clean)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, ErrNotDirectory
	}

	dir, _ := s.Resolve(clean)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", clean, err)
	}

	children := make([]fs.FileInfo, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// os.Stat follows symlinks so links report their target's size
		fi, err := os.Stat(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		children = append(children, renamed{FileInfo: fi, name: e.Name()})
	}

	return browse.NewListing(clean, children), nil
}

// renamed keeps the link name when a symlink was followed.
type renamed struct {
	fs.FileInfo
	name string
}

func (r renamed) Name() string { return r.name }

// Open opens a regular file for reading.
func (s *Store) Open(rel string) (*os.File, fs.FileInfo, error) {
	info, err := s.Stat(rel)
	if err != nil {
		return nil, nil, err
	}
	if info.IsDir() {
		return nil, nil, ErrNotFound
	}
	p, _ := s.Resolve(rel)
	f, err := os.Open(p)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", rel, err)
	}
	return f, info, nil
}

// Saved describes a file written by Save.
type Saved struct {
	Name string
	Path string // relative to the root, slash separated
	Size int64
}

// Save writes r into directory dir under the sanitized form of name, replacing
// any existing file of that name. Names whose stem sanitizes to nothing get a
// generated one. The file appears atomically.
func (s *Store) Save(ctx context.Context, dir, name string, r io.Reader) (*Saved, error) {
	clean, err := Clean(dir)
	if err != nil {
		return nil, err
	}
	info, err := s.Stat(clean)
	if err != nil || !info.IsDir() {
		return nil, ErrNotDirectory
	}

	safe := uploadName(name)

	target, _ := s.Resolve(path.Join(clean, safe))
	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, ctxReader{ctx: ctx, r: r})
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", safe, err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return nil, fmt.Errorf("failed to move %s into place: %w", safe, err)
	}

	return &Saved{Name: safe, Path: strings.TrimPrefix(path.Join(clean, safe), "/"), Size: n}, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
