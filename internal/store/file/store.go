// Package file stores the tracked incident list as a JSON file.
package file

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bissquit/incident-relay/internal/domain"
)

//go:embed default.json
var defaultContents []byte

// IOError is returned when the store file cannot be read or written.
// The next check cycle writes the whole list again, so it is retryable.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// IsRetryable implements the retryable error contract.
func (e *IOError) IsRetryable() bool {
	return true
}

// Store reads and writes the tracked incident list at Path.
type Store struct {
	path string
}

// New creates a file store at path. The file is created on first Load.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the store file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the tracked incident list, seeding the file from the bundled
// empty default when it does not exist yet.
func (s *Store) Load(_ context.Context) ([]domain.TrackedIncident, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Info("store file not found, seeding default", "path", s.path)
		if err := s.write(defaultContents); err != nil {
			return nil, err
		}
		data = defaultContents
	} else if err != nil {
		return nil, &IOError{Op: "read", Path: s.path, Err: err}
	}

	var incidents []domain.TrackedIncident
	if err := json.Unmarshal(data, &incidents); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if incidents == nil {
		incidents = []domain.TrackedIncident{}
	}
	return incidents, nil
}

// Save replaces the file with the given list.
func (s *Store) Save(_ context.Context, incidents []domain.TrackedIncident) error {
	if incidents == nil {
		incidents = []domain.TrackedIncident{}
	}
	data, err := json.MarshalIndent(incidents, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tracked incidents: %w", err)
	}
	return s.write(append(data, '\n'))
}

// write goes through a temp file in the same directory and a rename, so a
// crash never leaves a truncated store behind.
func (s *Store) write(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &IOError{Op: "mkdir", Path: dir, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return &IOError{Op: "create", Path: s.path, Err: err}
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op after a successful rename
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return &IOError{Op: "write", Path: tmpName, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return &IOError{Op: "sync", Path: tmpName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &IOError{Op: "close", Path: tmpName, Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return &IOError{Op: "rename", Path: s.path, Err: err}
	}
	return nil
}
