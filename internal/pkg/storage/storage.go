package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a stored file does not exist.
var ErrNotFound = errors.New("file not found")

// ErrInvalidName is returned for names that escape the store directory.
var ErrInvalidName = errors.New("invalid file name")

// FileInfo describes a stored file
type FileInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// LocalStore keeps uploaded blobs on the local filesystem under one
// directory. Stored names are prefixed with a UUID so uploads never collide.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates the base directory if needed
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// Save writes the reader's content under a unique name derived from the
// original and returns the stored name
func (s *LocalStore) Save(originalName string, r io.Reader) (string, error) {
	name := uuid.NewString() + "_" + sanitize(originalName)
	path := filepath.Join(s.baseDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write file: %w", err)
	}
	return name, nil
}

// Path resolves a stored name to an absolute path, rejecting traversal
func (s *LocalStore) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", ErrInvalidName
	}
	path := filepath.Join(s.baseDir, name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	return path, nil
}

// Delete removes a stored file
func (s *LocalStore) Delete(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

// List lists stored files
func (s *LocalStore) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, err
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{Name: entry.Name(), Size: info.Size()})
	}
	return files, nil
}

func sanitize(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, " ", "_")
	if name == "." || name == string(filepath.Separator) {
		return "file"
	}
	return name
}
