package storage

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gallerygrab/pkg/errors"
)

// Manager handles the on-disk layout for downloaded assets: one
// directory per search term, files named {term}-{ordinal}.{ext} in
// checkpoint order
type Manager struct {
	baseDir    string
	defaultExt string
}

// NewManager creates a storage manager rooted at baseDir
func NewManager(baseDir, defaultExt string) (*Manager, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{
		baseDir:    baseDir,
		defaultExt: strings.TrimPrefix(defaultExt, "."),
	}, nil
}

// ProvisionTermDir creates the directory for a term's downloads
func (m *Manager) ProvisionTermDir(term string) error {
	if err := os.MkdirAll(m.TermDir(term), 0755); err != nil {
		return fmt.Errorf("failed to create directory for term %q: %w", term, err)
	}
	return nil
}

// TermDir returns the directory path for a term
func (m *Manager) TermDir(term string) string {
	return filepath.Join(m.baseDir, sanitizeTerm(term))
}

// sanitizeTerm keeps term-derived paths flat, matching the checkpoint
// store's filename treatment so the two layouts agree on a term
func sanitizeTerm(term string) string {
	term = strings.ReplaceAll(term, string(os.PathSeparator), "_")
	return strings.ReplaceAll(term, "..", "_")
}

// AssetPath returns the deterministic destination for a download task.
// Ordinals start at 1 and follow checkpoint order, so re-running
// against an unchanged checkpoint reproduces the same file-to-URL
// mapping.
func (m *Manager) AssetPath(term string, ordinal int, assetURL string) string {
	ext := m.extensionFor(assetURL)
	return filepath.Join(m.TermDir(term), fmt.Sprintf("%s-%d.%s", sanitizeTerm(term), ordinal, ext))
}

// extensionFor derives the file extension from the URL path, falling
// back to the configured default when the URL carries none
func (m *Manager) extensionFor(assetURL string) string {
	if u, err := url.Parse(assetURL); err == nil {
		if ext := strings.TrimPrefix(path.Ext(u.Path), "."); ext != "" && len(ext) <= 5 {
			return ext
		}
	}
	return m.defaultExt
}

// Exists reports whether a file is already present at the given path
func (m *Manager) Exists(assetPath string) bool {
	_, err := os.Stat(assetPath)
	return err == nil
}

// SaveAsset writes an asset body to its destination atomically. Faults
// come back as filesystem errors, which the retry predicate treats as
// final.
func (m *Manager) SaveAsset(r io.Reader, assetPath string) error {
	tempPath := assetPath + ".tmp"
	out, err := os.Create(tempPath)
	if err != nil {
		return fsError("failed to create temporary file", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempPath)
		return fsError("failed to save asset data", err)
	}

	if closeErr != nil {
		os.Remove(tempPath)
		return fsError("failed to close file", closeErr)
	}

	if err := os.Rename(tempPath, assetPath); err != nil {
		os.Remove(tempPath)
		return fsError("failed to rename temporary file", err)
	}

	return nil
}

func fsError(msg string, err error) error {
	return &errors.Error{
		Type:    errors.ErrorTypeFilesystem,
		Message: fmt.Sprintf("%s: %v", msg, err),
	}
}
