package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("transcript not found")

// TranscriptStore keeps raw transcript text on local disk, keyed by an
// opaque reference. The reference is the only handle the rest of the system
// sees, so the backing store can be swapped without touching the workflow.
type TranscriptStore struct {
	dir string
}

func NewTranscriptStore(dir string) (*TranscriptStore, error) {
	if dir == "" {
		return nil, errors.New("transcript store dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}
	return &TranscriptStore{dir: dir}, nil
}

// Put writes the content durably and returns its reference. The write goes
// through a temp file and rename so a crash never leaves a partial
// transcript behind a valid reference.
func (s *TranscriptStore) Put(content []byte) (string, error) {
	ref := uuid.New().String() + ".txt"

	tmp, err := os.CreateTemp(s.dir, "put-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("write transcript: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("sync transcript: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("close transcript: %w", err)
	}

	if err := os.Rename(tmpPath, filepath.Join(s.dir, ref)); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("store transcript: %w", err)
	}
	return ref, nil
}

// Get returns the content for a reference produced by Put.
func (s *TranscriptStore) Get(ref string) ([]byte, error) {
	if strings.Contains(ref, "..") || strings.ContainsRune(ref, os.PathSeparator) {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(filepath.Join(s.dir, ref))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	return data, nil
}
