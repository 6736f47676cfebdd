package prompts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// FilesystemStore keeps one YAML file per definition in a directory.
//
// Directory structure:
//
//	<root>/
//	  summarize.yaml
//	  classify.yaml
//	  ...
//
// The files are plain definitions, so they can be edited by hand and
// picked up at runtime with Watch.
type FilesystemStore struct {
	mu     sync.RWMutex
	root   string
	logger *zap.Logger
	closed bool
}

// FilesystemStoreDriver is the driver for creating FilesystemStore instances.
type FilesystemStoreDriver struct{}

func init() {
	RegisterStoreDriver(StoreDriverFilesystem, &FilesystemStoreDriver{})
}

// Open creates a new FilesystemStore. The connection string is the root directory.
func (d *FilesystemStoreDriver) Open(connectionString string) (Store, error) {
	return NewFilesystemStore(connectionString)
}

// NewFilesystemStore creates a store rooted at root, creating the directory
// if it does not exist.
func NewFilesystemStore(root string) (*FilesystemStore, error) {
	if root == "" {
		return nil, &StorageError{Message: ErrMsgInvalidStorageRoot}
	}

	if err := os.MkdirAll(root, FilesystemDirPerm); err != nil {
		return nil, &StorageError{
			Message: ErrMsgCreateStorageDir,
			Name:    root,
			Cause:   err,
		}
	}

	return &FilesystemStore{
		root:   root,
		logger: zap.NewNop(),
	}, nil
}

// WithLogger sets the logger used for watcher diagnostics and returns the store.
func (s *FilesystemStore) WithLogger(logger *zap.Logger) *FilesystemStore {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Root returns the directory the store reads and writes.
func (s *FilesystemStore) Root() string {
	return s.root
}

// Get reads the definition called name.
func (s *FilesystemStore) Get(ctx context.Context, name string) (*Definition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateDefinitionName(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStoreClosedError()
	}
	return s.load(name)
}

// Save writes def to <root>/<name>.yaml, replacing any existing file.
func (s *FilesystemStore) Save(ctx context.Context, def *Definition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := def.Validate(); err != nil {
		return err
	}
	if err := validateDefinitionName(def.Name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStoreClosedError()
	}

	existing, err := s.load(def.Name)
	if err != nil && !IsNotFound(err) {
		return err
	}
	if err := prepareForSave(def, existing); err != nil {
		return err
	}

	data, err := MarshalDefinition(def)
	if err != nil {
		return err
	}

	// Write to a temporary file first so readers never see a partial file
	path := s.path(def.Name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, FilesystemFilePerm); err != nil {
		return &StorageError{Message: ErrMsgWriteDefinition, Name: def.Name, Cause: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return &StorageError{Message: ErrMsgWriteDefinition, Name: def.Name, Cause: err}
	}
	return nil
}

// Delete removes the file of the definition called name.
func (s *FilesystemStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateDefinitionName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStoreClosedError()
	}

	if err := os.Remove(s.path(name)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefinitionNotFoundError(name)
		}
		return &StorageError{Message: ErrMsgDeleteDefinition, Name: name, Cause: err}
	}
	return nil
}

// List reads every definition file in the root directory, ordered by name.
func (s *FilesystemStore) List(ctx context.Context) ([]*Definition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStoreClosedError()
	}

	names, err := s.names()
	if err != nil {
		return nil, err
	}

	defs := make([]*Definition, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		def, err := s.load(name)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// Exists reports whether a file for name exists.
func (s *FilesystemStore) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := validateDefinitionName(name); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, NewStoreClosedError()
	}

	_, err := os.Stat(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, &StorageError{Message: ErrMsgReadDefinition, Name: name, Cause: err}
	}
	return true, nil
}

// Close marks the store closed. Files are left in place.
func (s *FilesystemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Watch calls fn with the definition name whenever a definition file is
// written, created, removed or renamed. It returns once the watcher is set
// up; events are delivered until ctx is done.
func (s *FilesystemStore) Watch(ctx context.Context, fn func(name string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return &StorageError{Message: ErrMsgWatchFailed, Name: s.root, Cause: err}
	}
	if err := watcher.Add(s.root); err != nil {
		watcher.Close()
		return &StorageError{Message: ErrMsgWatchFailed, Name: s.root, Cause: err}
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				name, ok := definitionName(event.Name)
				if !ok {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				s.logger.Debug(LogMsgWatchEvent,
					zap.String(LogFieldPath, event.Name),
					zap.String(LogFieldTemplate, name))
				fn(name)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn(LogMsgWatchError, zap.Error(err))
			}
		}
	}()
	return nil
}

func (s *FilesystemStore) path(name string) string {
	return filepath.Join(s.root, name+DefinitionFileExtension)
}

// load reads a definition file; the caller holds the lock.
func (s *FilesystemStore) load(name string) (*Definition, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, NewDefinitionNotFoundError(name)
		}
		return nil, &StorageError{Message: ErrMsgReadDefinition, Name: name, Cause: err}
	}

	def, err := decodeDefinition(data)
	if err == nil {
		// The file name is authoritative
		def.Name = name
		err = def.Validate()
	}
	if err != nil {
		return nil, &StorageError{Message: ErrMsgReadDefinition, Name: name, Cause: err}
	}
	return def, nil
}

// names lists the definition names in the root directory, sorted.
func (s *FilesystemStore) names() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, &StorageError{Message: ErrMsgReadStorageDir, Name: s.root, Cause: err}
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name, ok := definitionName(entry.Name()); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// definitionName extracts the definition name from a file path
func definitionName(path string) (string, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, DefinitionFileExtension) {
		return "", false
	}
	name := strings.TrimSuffix(base, DefinitionFileExtension)
	return name, name != ""
}
