package slotconfig

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/alexbotov/slotsrv/internal/game"
	"gopkg.in/yaml.v3"
)

// catalogue is the YAML layout of a machines file.
type catalogue struct {
	Machines []*game.Definition `yaml:"machines"`
}

// FileStore serves definitions from a YAML file. Saved definitions are
// kept in memory only.
type FileStore struct {
	mu     sync.RWMutex
	defs   map[int64]*game.Definition
	nextID int64
}

// LoadFile reads a machines file. Definitions are not validated here so
// a broken entry surfaces as a configuration error when it is played.
func LoadFile(path string) (*FileStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read machines file: %w", err)
	}
	return ParseYAML(raw)
}

// ParseYAML builds a FileStore from raw YAML.
func ParseYAML(raw []byte) (*FileStore, error) {
	var c catalogue
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to parse machines file: %w", err)
	}
	fs := NewFileStore()
	for i, def := range c.Machines {
		if def == nil {
			continue
		}
		if _, dup := fs.defs[def.Config.ID]; dup {
			return nil, fmt.Errorf("machine %d: duplicate id %d", i, def.Config.ID)
		}
		fs.defs[def.Config.ID] = def
		fs.nextID = max(fs.nextID, def.Config.ID)
	}
	return fs, nil
}

// NewFileStore returns an empty store.
func NewFileStore() *FileStore {
	return &FileStore{defs: make(map[int64]*game.Definition)}
}

func (f *FileStore) Definition(_ context.Context, id int64) (*game.Definition, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	def, ok := f.defs[id]
	if !ok {
		return nil, ErrConfigNotFound
	}
	return def, nil
}

// List returns all configurations ordered by id.
func (f *FileStore) List(_ context.Context) ([]game.Config, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]game.Config, 0, len(f.defs))
	for _, def := range f.defs {
		out = append(out, def.Config)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Save validates def and stores it under a fresh id.
func (f *FileStore) Save(_ context.Context, def *game.Definition) (int64, error) {
	if _, err := game.Build(def); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cp := *def
	cp.Config.ID = f.nextID
	f.defs[cp.Config.ID] = &cp
	return cp.Config.ID, nil
}

// Deactivate drops id from the in-memory catalogue.
func (f *FileStore) Deactivate(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.defs[id]; !ok {
		return ErrConfigNotFound
	}
	delete(f.defs, id)
	return nil
}

// Definitions returns every stored definition ordered by id.
func (f *FileStore) Definitions() []*game.Definition {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*game.Definition, 0, len(f.defs))
	for _, def := range f.defs {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Config.ID < out[j].Config.ID })
	return out
}
