package localstorage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const manifestName = "metadata.json"

// TranscriptStorage implements ports.TranscriptStore on the local
// filesystem. All artifacts live flat in one output directory.
type TranscriptStorage struct {
	Dir string
}

// NewTranscriptStorage creates the storage rooted at dir, creating the
// directory if needed.
func NewTranscriptStorage(dir string) (*TranscriptStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create transcript directory %s: %w", dir, err)
	}
	return &TranscriptStorage{Dir: dir}, nil
}

// SaveTranscript writes one transcript document. An existing file with the
// same name is overwritten.
func (s *TranscriptStorage) SaveTranscript(ctx context.Context, filename string, content []byte) (string, error) {
	path := filepath.Join(s.Dir, filename)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to save transcript %s: %w", filename, err)
	}
	return path, nil
}

// SaveManifest overwrites the metadata manifest.
func (s *TranscriptStorage) SaveManifest(ctx context.Context, data []byte) (string, error) {
	path := filepath.Join(s.Dir, manifestName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", manifestName, err)
	}
	return path, nil
}

// ListTranscripts returns the sorted paths of all .txt files in the
// output directory.
func (s *TranscriptStorage) ListTranscripts() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read transcript directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		paths = append(paths, filepath.Join(s.Dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
