package prompts

import (
	"go.uber.org/zap"
)

// Option is a functional option for configuring a Renderer.
type Option func(*rendererConfig)

// rendererConfig holds the internal configuration for a Renderer.
type rendererConfig struct {
	tokens            *TokenTable
	logger            *zap.Logger
	cache             ResultCacheConfig
	cacheEnabled      bool
	maxLoopIterations int
	maxRepeatSize     int
}

// defaultRendererConfig returns the default renderer configuration.
func defaultRendererConfig() *rendererConfig {
	return &rendererConfig{
		tokens:            DefaultTokenTable(),
		logger:            nil,
		cache:             DefaultResultCacheConfig(),
		cacheEnabled:      true,
		maxLoopIterations: DefaultMaxLoopIterations,
		maxRepeatSize:     DefaultMaxRepeatSize,
	}
}

// WithTokenTable sets the special-token table used to resolve model names.
// Default: DefaultTokenTable()
func WithTokenTable(table *TokenTable) Option {
	return func(c *rendererConfig) {
		if table != nil {
			c.tokens = table
		}
	}
}

// WithLogger sets the logger for the renderer.
// Default: nil (no logging)
func WithLogger(logger *zap.Logger) Option {
	return func(c *rendererConfig) {
		c.logger = logger
	}
}

// WithCacheConfig configures the render result cache.
// Default: DefaultResultCacheConfig()
func WithCacheConfig(config ResultCacheConfig) Option {
	return func(c *rendererConfig) {
		c.cache = config
		c.cacheEnabled = true
	}
}

// WithoutCache disables render memoization.
func WithoutCache() Option {
	return func(c *rendererConfig) {
		c.cacheEnabled = false
	}
}

// WithMaxLoopIterations caps the items a single for loop or range() call
// may produce. Zero disables the limit.
// Default: DefaultMaxLoopIterations
func WithMaxLoopIterations(n int) Option {
	return func(c *rendererConfig) {
		if n >= 0 {
			c.maxLoopIterations = n
		}
	}
}

// WithMaxRepeatSize caps the bytes of a repeated string, or the items of a
// repeated list, that "*" may produce. Zero disables the limit.
// Default: DefaultMaxRepeatSize
func WithMaxRepeatSize(n int) Option {
	return func(c *rendererConfig) {
		if n >= 0 {
			c.maxRepeatSize = n
		}
	}
}

// TemplateOption is a functional option for configuring a Template.
type TemplateOption func(*templateConfig)

type templateConfig struct {
	renderer *Renderer
	model    string
}

// WithRenderer sets the renderer a template and its variants render with.
// Default: the package-level default renderer
func WithRenderer(r *Renderer) TemplateOption {
	return func(c *templateConfig) {
		if r != nil {
			c.renderer = r
		}
	}
}

// WithBoundModel binds the template to a model at construction.
func WithBoundModel(model string) TemplateOption {
	return func(c *templateConfig) {
		c.model = model
	}
}

// LibraryOption is a functional option for configuring a Library.
type LibraryOption func(*libraryConfig)

type libraryConfig struct {
	renderer *Renderer
	logger   *zap.Logger
}

// WithLibraryRenderer sets the renderer used by templates built from the store.
func WithLibraryRenderer(r *Renderer) LibraryOption {
	return func(c *libraryConfig) {
		if r != nil {
			c.renderer = r
		}
	}
}

// WithLibraryLogger sets the logger for the library.
func WithLibraryLogger(logger *zap.Logger) LibraryOption {
	return func(c *libraryConfig) {
		c.logger = logger
	}
}
