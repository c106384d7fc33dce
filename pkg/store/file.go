package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps all keys in one JSON document. Every call re-reads the
// file so a second process (e.g. the stop command) is observed. Writes
// replace the file atomically.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore opens or creates a JSON store at path
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Path returns the backing file
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) load() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]json.RawMessage), nil
		}
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}

	doc := make(map[string]json.RawMessage)
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode store file: %w", err)
	}
	return doc, nil
}

func (f *FileStore) save(doc map[string]json.RawMessage) error {
	tempPath := f.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary store file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode store: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync store file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close store file: %w", err)
	}

	if err := os.Rename(tempPath, f.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}

func (f *FileStore) Get(ctx context.Context, keys ...string) (Values, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return nil, err
	}

	out := make(Values, len(keys))
	for _, key := range keys {
		if raw, ok := doc[key]; ok {
			out[key] = raw
		}
	}
	return out, nil
}

func (f *FileStore) Set(ctx context.Context, values map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	encoded, err := encode(values)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}
	for key, raw := range encoded {
		doc[key] = raw
	}
	return f.save(doc)
}

func (f *FileStore) Remove(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}
	changed := false
	for _, key := range keys {
		if _, ok := doc[key]; ok {
			delete(doc, key)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return f.save(doc)
}

func (f *FileStore) Close() error { return nil }
