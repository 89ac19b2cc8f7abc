// Package storage provides the engine's filesystem stores: the upload dir
// holding resume and photo blobs, and the screenshot dir holding audit
// evidence. Directories are explicit configuration with process-scoped
// lifecycle, not ambient side effects.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Uploads persists user-submitted files (resumes, profile photos) under a
// single directory, keyed by basename.
type Uploads struct {
	dir string
}

// NewUploads creates the upload store, creating the directory if needed.
func NewUploads(dir string) (*Uploads, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &Uploads{dir: dir}, nil
}

// Dir returns the upload directory path.
func (u *Uploads) Dir() string { return u.dir }

// Save writes the reader's contents under the file's basename and returns the
// stored path, which adapters later resolve when attaching files to forms.
func (u *Uploads) Save(name string, r io.Reader) (string, error) {
	if name == "" {
		return "", fmt.Errorf("upload name is empty")
	}
	path := filepath.Join(u.dir, filepath.Base(name))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}

	return path, nil
}

// SaveFile copies an existing local file into the upload dir.
func (u *Uploads) SaveFile(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open source file: %w", err)
	}
	defer src.Close()

	return u.Save(filepath.Base(path), src)
}

// Screenshots stores post-submission screenshots as audit evidence. Evidence
// is non-authoritative; callers treat save failures as a downgraded evidence
// reference, never a failed application.
type Screenshots struct {
	dir string
}

// NewScreenshots creates the evidence store, creating the directory if needed.
func NewScreenshots(dir string) (*Screenshots, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create screenshot dir: %w", err)
	}
	return &Screenshots{dir: dir}, nil
}

// Save writes a PNG under the deterministic key and returns its path.
func (s *Screenshots) Save(ctx context.Context, key string, png []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if key == "" {
		return "", fmt.Errorf("evidence key is empty")
	}
	path := filepath.Join(s.dir, key+".png")
	if err := os.WriteFile(path, png, 0644); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	return path, nil
}
