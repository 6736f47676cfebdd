package prompts

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Library builds templates from the definitions in a Store and caches
// them by name until they are invalidated.
type Library struct {
	store    Store
	renderer *Renderer
	logger   *zap.Logger

	mu          sync.RWMutex
	templates   map[string]*Template
	generations map[string]uint64 // bumped by Invalidate
	epoch       uint64            // bumped by InvalidateAll
	group       singleflight.Group
}

// NewLibrary creates a library over store.
func NewLibrary(store Store, opts ...LibraryOption) *Library {
	config := &libraryConfig{renderer: defaultRenderer}
	for _, opt := range opts {
		opt(config)
	}
	if config.logger == nil {
		config.logger = zap.NewNop()
	}

	return &Library{
		store:     store,
		renderer:  config.renderer,
		logger:    config.logger,
		templates:   make(map[string]*Template),
		generations: make(map[string]uint64),
	}
}

// Template returns the template built from the definition called name.
// Concurrent first loads of the same name share one store read. A caller
// whose ctx ends stops waiting without failing the others.
func (l *Library) Template(ctx context.Context, name string) (*Template, error) {
	l.mu.RLock()
	t, ok := l.templates[name]
	gen, epoch := l.generations[name], l.epoch
	l.mu.RUnlock()
	if ok {
		return t, nil
	}

	// Loads started after an invalidation do not join an older one
	key := name + "\x00" + strconv.FormatUint(epoch, 10) + "." + strconv.FormatUint(gen, 10)
	loadCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(key, func() (any, error) {
		return l.load(loadCtx, name, gen, epoch)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Template), nil
	}
}

// load reads and builds name. The template is cached only if name was not
// invalidated while the load ran.
func (l *Library) load(ctx context.Context, name string, gen, epoch uint64) (*Template, error) {
	def, err := l.store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	t, err := def.Build(l.renderer)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	current := l.generations[name] == gen && l.epoch == epoch
	if current {
		l.templates[name] = t
	}
	l.mu.Unlock()

	if !current {
		l.logger.Debug(LogMsgLibraryStale, zap.String(LogFieldTemplate, name))
		return t, nil
	}
	l.logger.Debug(LogMsgLibraryLoaded,
		zap.String(LogFieldTemplate, name),
		zap.Strings(LogFieldModels, t.Models()))
	return t, nil
}

// Render looks up the template called name, selects the variant for model
// and renders it with values.
func (l *Library) Render(ctx context.Context, name, model string, values map[string]any) (string, error) {
	t, err := l.Template(ctx, name)
	if err != nil {
		return "", err
	}
	return t.For(model).CallMap(ctx, values)
}

// Invalidate drops the cached template called name. The next lookup reads
// the store again.
func (l *Library) Invalidate(name string) {
	l.mu.Lock()
	delete(l.templates, name)
	l.generations[name]++
	l.mu.Unlock()

	l.logger.Debug(LogMsgLibraryInvalidate, zap.String(LogFieldTemplate, name))
}

// InvalidateAll drops every cached template
func (l *Library) InvalidateAll() {
	l.mu.Lock()
	l.templates = make(map[string]*Template)
	l.epoch++
	l.mu.Unlock()
}

// Cached returns the names of the cached templates, sorted
func (l *Library) Cached() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.templates))
	for name := range l.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Store returns the backing store
func (l *Library) Store() Store {
	return l.store
}

// WatchFilesystem invalidates cached templates whenever their files in
// store change. Watching stops when ctx is done.
func (l *Library) WatchFilesystem(ctx context.Context, store *FilesystemStore) error {
	return store.Watch(ctx, l.Invalidate)
}
