package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/l2laihub/portrait-prompt-engine/internal/template"
)

// fileFormat is the on-disk YAML shape: a flat list of definitions.
type fileFormat struct {
	Templates []*template.Definition `yaml:"templates"`
}

// FileStore keeps template definitions in a single YAML file. It is the
// local fallback when no database is configured; every mutation rewrites
// the file atomically via a temporary sibling.
type FileStore struct {
	path string
	mu   sync.RWMutex
	mem  *MemoryStore
}

// NewFileStore opens or creates the YAML template file at path.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, mem: NewMemoryStore()}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create template directory: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	var file fileFormat
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse template file: %w", err)
	}
	for _, def := range file.Templates {
		if def.ID == "" {
			return nil, fmt.Errorf("template file %s contains an entry without an id", path)
		}
		s.mem.items[def.ID] = def
	}
	return s, nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*template.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mem.Get(ctx, id)
}

func (s *FileStore) GetDefault(ctx context.Context, portraitType template.PortraitType) (*template.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mem.GetDefault(ctx, portraitType)
}

func (s *FileStore) List(ctx context.Context, portraitType template.PortraitType) ([]*template.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mem.List(ctx, portraitType)
}

func (s *FileStore) Put(ctx context.Context, def *template.Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mem.Put(ctx, def); err != nil {
		return err
	}
	return s.save(ctx)
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mem.Delete(ctx, id); err != nil {
		return err
	}
	return s.save(ctx)
}

func (s *FileStore) Close() error { return nil }

// save rewrites the YAML file. Caller holds the write lock.
func (s *FileStore) save(ctx context.Context) error {
	defs, err := s.mem.List(ctx, "")
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(fileFormat{Templates: defs})
	if err != nil {
		return fmt.Errorf("failed to marshal templates: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
