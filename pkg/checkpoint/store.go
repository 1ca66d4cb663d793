package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gallerygrab/pkg/logger"
)

// ErrNotFound is returned by Read when no checkpoint exists for a term.
// The download phase treats it as a skip condition, not a failure.
var ErrNotFound = errors.New("checkpoint not found")

// Store persists one checkpoint per search term: an ordered,
// deduplicated array of URL strings and nothing else. A write replaces
// the previous checkpoint wholesale; checkpoints are never merged or
// appended to.
type Store struct {
	dir    string
	logger logger.Logger
}

// NewStore creates a checkpoint store rooted at dir
func NewStore(dir string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	return &Store{
		dir:    dir,
		logger: log,
	}, nil
}

// path returns the checkpoint file path for a term
func (s *Store) path(term string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.checkpoint.json", sanitizeTerm(term)))
}

// sanitizeTerm keeps term-derived filenames flat
func sanitizeTerm(term string) string {
	term = strings.ReplaceAll(term, string(os.PathSeparator), "_")
	return strings.ReplaceAll(term, "..", "_")
}

// Write persists the URL list for a term atomically, overwriting any
// prior checkpoint
func (s *Store) Write(term string, urls []string) error {
	if urls == nil {
		urls = []string{}
	}

	tempPath := s.path(term) + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(urls); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, s.path(term)); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	logger.LogCheckpointWritten(term, len(urls))

	return nil
}

// Read returns the URL list for a term, or ErrNotFound when no
// checkpoint exists
func (s *Store) Read(term string) ([]string, error) {
	file, err := os.Open(s.path(term))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("term %q: %w", term, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var urls []string
	if err := json.NewDecoder(file).Decode(&urls); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}

	s.logger.DebugWithFields("checkpoint loaded", map[string]interface{}{
		"term": term,
		"urls": len(urls),
	})

	return urls, nil
}

// Exists checks if a checkpoint exists for a term
func (s *Store) Exists(term string) bool {
	_, err := os.Stat(s.path(term))
	return err == nil
}

// Delete removes the checkpoint for a term
func (s *Store) Delete(term string) error {
	if err := os.Remove(s.path(term)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	s.logger.WithField("term", term).Debug("checkpoint deleted")
	return nil
}
