package manager

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"github.com/gluufederation/containerlib-go/pkg/errors"
)

// FileStore is a Store backed by a single YAML file of key-value pairs,
// typically a mounted configmap or secret volume. Reads always hit the
// file so externally updated mounts are picked up without a reload hook.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore persisting to the given path. The
// file does not need to exist yet; a missing file reads as an empty
// store.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Get returns the value for key, or an empty string when the key (or
// the whole file) is absent.
func (s *FileStore) Get(key string) (string, error) {
	values, err := s.load()
	if err != nil {
		return "", err
	}
	return values[key], nil
}

// Set writes key to the backing file, creating parent directories as
// needed.
func (s *FileStore) Set(key, value string) error {
	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value

	data, err := yaml.Marshal(values)
	if err != nil {
		return errors.NewError(errors.ErrCodeStoreWrite, "failed to marshal store contents").
			WithComponent("filestore").
			WithContext("path", s.path).
			WithCause(err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return errors.NewError(errors.ErrCodeStoreWrite, "failed to create store directory").
			WithComponent("filestore").
			WithContext("path", s.path).
			WithCause(err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return errors.NewError(errors.ErrCodeStoreWrite, "failed to write store file").
			WithComponent("filestore").
			WithContext("path", s.path).
			WithCause(err)
	}
	return nil
}

func (s *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, errors.NewError(errors.ErrCodeStoreRead, "failed to read store file").
			WithComponent("filestore").
			WithContext("path", s.path).
			WithCause(err)
	}

	values := map[string]string{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, errors.NewError(errors.ErrCodeStoreRead, "failed to parse store file").
			WithComponent("filestore").
			WithContext("path", s.path).
			WithCause(err)
	}
	return values, nil
}

// MemoryStore is an in-process Store used by tests and by tools that
// assemble configuration programmatically before persisting it.
type MemoryStore struct {
	values map[string]string
}

// NewMemoryStore creates a MemoryStore seeded with the given values.
// A nil seed creates an empty store.
func NewMemoryStore(seed map[string]string) *MemoryStore {
	values := make(map[string]string, len(seed))
	for k, v := range seed {
		values[k] = v
	}
	return &MemoryStore{values: values}
}

// Get returns the value for key, or an empty string when absent.
func (s *MemoryStore) Get(key string) (string, error) {
	return s.values[key], nil
}

// Set stores key in memory.
func (s *MemoryStore) Set(key, value string) error {
	s.values[key] = value
	return nil
}
