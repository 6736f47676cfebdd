package prompts

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/itsatony/go-prompts/internal"
)

// Renderer normalizes and expands prompt templates for a target model.
// A Renderer is safe for concurrent use.
type Renderer struct {
	tokens   *TokenTable
	logger   *zap.Logger
	cache    *ResultCache
	group    singleflight.Group
	filters  *internal.FuncRegistry
	executor *internal.Executor
}

// NewRenderer creates a renderer with the given options
func NewRenderer(opts ...Option) *Renderer {
	config := defaultRendererConfig()
	for _, opt := range opts {
		opt(config)
	}

	logger := config.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	filters := internal.NewFilterRegistry()
	r := &Renderer{
		tokens:   config.tokens,
		logger:   logger,
		filters:  filters,
		executor: internal.NewExecutor(filters, nil, internal.ExecutorConfig{
			MaxLoopIterations: config.maxLoopIterations,
			MaxRepeatSize:     config.maxRepeatSize,
		}, logger),
	}
	if config.cacheEnabled {
		r.cache = NewResultCache(config.cache)
	}

	logger.Debug(LogMsgRendererCreated,
		zap.Int(LogFieldModels, len(r.tokens.Models())),
		zap.Bool(LogFieldCache, r.cache != nil))
	return r
}

var defaultRenderer = NewRenderer()

// DefaultRenderer returns the process-wide renderer used by Render and by
// templates built without WithRenderer
func DefaultRenderer() *Renderer {
	return defaultRenderer
}

// Render renders text with the process-wide default renderer
func Render(ctx context.Context, text, model string, values map[string]any) (string, error) {
	return defaultRenderer.Render(ctx, text, model, values)
}

// Render normalizes text, injects the special tokens of model and expands
// the template with values. Caller values shadow the token globals.
// An unknown model is logged as a warning and renders with the default tokens.
func (r *Renderer) Render(ctx context.Context, text, model string, values map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tokens := r.lookup(model)
	if r.cache == nil {
		return r.render(ctx, text, tokens, values)
	}

	key, err := r.cache.Key(text, model, values)
	if err != nil {
		r.logger.Debug(LogMsgCacheBypass, zap.Error(err))
		r.cache.recordBypass()
		return r.render(ctx, text, tokens, values)
	}

	if out, ok := r.cache.Get(key); ok {
		r.logger.Debug(LogMsgCacheHit, zap.String(LogFieldModel, model))
		return out, nil
	}

	// The shared render outlives any one caller; each caller stops waiting
	// when its own ctx ends.
	renderCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) {
		out, err := r.render(renderCtx, text, tokens, values)
		if err != nil {
			return "", err
		}
		r.cache.Set(key, out)
		return out, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Check parses the normalized text without rendering it and reports
// syntax errors, including unknown filters and tests
func (r *Renderer) Check(text string) error {
	_, err := r.parse(text)
	return err
}

// Tokens returns the special-token table of the renderer
func (r *Renderer) Tokens() *TokenTable {
	return r.tokens
}

// CacheStats returns render cache statistics. A renderer without a cache
// reports zero values.
func (r *Renderer) CacheStats() ResultCacheStats {
	if r.cache == nil {
		return ResultCacheStats{}
	}
	return r.cache.Stats()
}

// ClearCache drops every memoized render
func (r *Renderer) ClearCache() {
	if r.cache != nil {
		r.cache.Clear()
	}
}

func (r *Renderer) lookup(model string) SpecialTokens {
	tokens, ok := r.tokens.Lookup(model)
	if !ok {
		r.logger.Warn(LogMsgUnknownModel, zap.String(LogFieldModel, model))
	}
	return tokens
}

func (r *Renderer) parse(text string) (*internal.RootNode, error) {
	root, err := internal.Parse(Normalize(text), internal.DefaultLexerConfig(), r.logger)
	if err != nil {
		return nil, convertEngineError(err)
	}
	if err := internal.Validate(root, r.filters); err != nil {
		return nil, convertValidationError(err)
	}
	return root, nil
}

func (r *Renderer) render(ctx context.Context, text string, tokens SpecialTokens, values map[string]any) (string, error) {
	r.logger.Debug(LogMsgRenderStart, zap.Int(LogFieldTextLength, len(text)))

	root, err := r.parse(text)
	if err != nil {
		return "", err
	}

	vars := tokens.globals()
	for name, value := range values {
		vars[name] = value
	}

	out, err := r.executor.Execute(ctx, root, vars)
	if err != nil {
		return "", convertEngineError(err)
	}

	r.logger.Debug(LogMsgRenderEnd, zap.Int(LogFieldOutputLength, len(out)))
	return out, nil
}
