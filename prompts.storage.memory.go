package prompts

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps definitions in memory. It is meant for tests and
// development; everything is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	defs   map[string]*Definition
	closed bool
}

// MemoryStoreDriver is the driver for creating MemoryStore instances.
type MemoryStoreDriver struct{}

func init() {
	RegisterStoreDriver(StoreDriverMemory, &MemoryStoreDriver{})
}

// Open creates a new MemoryStore. The connection string is ignored.
func (d *MemoryStoreDriver) Open(connectionString string) (Store, error) {
	return NewMemoryStore(), nil
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		defs: make(map[string]*Definition),
	}
}

// Get returns a copy of the definition called name.
func (s *MemoryStore) Get(ctx context.Context, name string) (*Definition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStoreClosedError()
	}

	def, ok := s.defs[name]
	if !ok {
		return nil, NewDefinitionNotFoundError(name)
	}
	return def.Clone(), nil
}

// Save stores a copy of def. ID and timestamps are written back to def.
func (s *MemoryStore) Save(ctx context.Context, def *Definition) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStoreClosedError()
	}

	if err := prepareForSave(def, s.defs[nameOf(def)]); err != nil {
		return err
	}
	s.defs[def.Name] = def.Clone()
	return nil
}

// Delete removes the definition called name.
func (s *MemoryStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStoreClosedError()
	}

	if _, ok := s.defs[name]; !ok {
		return NewDefinitionNotFoundError(name)
	}
	delete(s.defs, name)
	return nil
}

// List returns copies of every definition ordered by name.
func (s *MemoryStore) List(ctx context.Context) ([]*Definition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStoreClosedError()
	}

	defs := make([]*Definition, 0, len(s.defs))
	for _, def := range s.defs {
		defs = append(defs, def.Clone())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs, nil
}

// Exists reports whether a definition called name is stored.
func (s *MemoryStore) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, NewStoreClosedError()
	}

	_, ok := s.defs[name]
	return ok, nil
}

// Close marks the store closed and drops its contents.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.defs = nil
	return nil
}

func nameOf(def *Definition) string {
	if def == nil {
		return ""
	}
	return def.Name
}
