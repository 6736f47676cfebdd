package prompts

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Template is a prompt body paired with a parameter signature and a
// registry of per-model variants.
//
// A Template renders with its bound model, which starts empty. Variants
// registered for a model replace the body when the template is looked up
// for that model.
type Template struct {
	name      string
	body      string
	signature *Signature
	renderer  *Renderer
	registry  *variantRegistry

	mu    sync.RWMutex
	model string
}

// variantRegistry maps model identifiers to templates. Copies made with
// WithModel share the registry of their origin.
type variantRegistry struct {
	mu       sync.RWMutex
	variants map[string]*Template
}

// NewTemplate builds a template from its body text and parameters. The name
// is only used in diagnostics. A body that is empty or whitespace fails
// with NoTemplateFound.
func NewTemplate(name, body string, params []Param, opts ...TemplateOption) (*Template, error) {
	if strings.TrimSpace(body) == "" {
		return nil, NewNoTemplateFoundError(name)
	}

	sig, err := NewSignature(params)
	if err != nil {
		return nil, err
	}

	config := &templateConfig{renderer: defaultRenderer}
	for _, opt := range opts {
		opt(config)
	}

	return &Template{
		name:      name,
		body:      body,
		signature: sig,
		renderer:  config.renderer,
		registry:  &variantRegistry{variants: make(map[string]*Template)},
		model:     config.model,
	}, nil
}

// MustTemplate is like NewTemplate but panics on error
func MustTemplate(name, body string, params []Param, opts ...TemplateOption) *Template {
	t, err := NewTemplate(name, body, params, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Call binds args to the signature and renders the body with the bound
// model. Use Kw to pass an argument by name.
func (t *Template) Call(ctx context.Context, args ...any) (string, error) {
	values, err := t.signature.Bind(args...)
	if err != nil {
		return "", err
	}
	return t.renderer.Render(ctx, t.body, t.Model(), values)
}

// CallMap binds values by name and renders the body with the bound model
func (t *Template) CallMap(ctx context.Context, values map[string]any) (string, error) {
	bound, err := t.signature.BindMap(values)
	if err != nil {
		return "", err
	}
	return t.renderer.Render(ctx, t.body, t.Model(), bound)
}

// Index returns the variant registered for model. When there is none it
// binds this template to model and returns the template itself, so later
// calls on it render with that model's special tokens.
// Registered, WithModel and For do the same lookups without mutation.
func (t *Template) Index(model string) *Template {
	if variant, ok := t.Registered(model); ok {
		return variant
	}

	t.mu.Lock()
	t.model = model
	t.mu.Unlock()

	t.renderer.logger.Debug(LogMsgModelBound,
		zap.String(LogFieldTemplate, t.name),
		zap.String(LogFieldModel, model))
	return t
}

// Registered returns the variant registered for model
func (t *Template) Registered(model string) (*Template, bool) {
	t.registry.mu.RLock()
	defer t.registry.mu.RUnlock()
	variant, ok := t.registry.variants[model]
	return variant, ok
}

// WithModel returns a copy of the template bound to model. The copy shares
// the variant registry with t.
func (t *Template) WithModel(model string) *Template {
	return &Template{
		name:      t.name,
		body:      t.body,
		signature: t.signature,
		renderer:  t.renderer,
		registry:  t.registry,
		model:     model,
	}
}

// For returns the variant registered for model, or a copy of t bound to model
func (t *Template) For(model string) *Template {
	if variant, ok := t.Registered(model); ok {
		return variant
	}
	return t.WithModel(model)
}

// Register builds a variant for model from body and params, stores it in
// the registry (replacing any earlier variant for model) and returns it.
// The variant renders with the same renderer as t.
func (t *Template) Register(model, body string, params []Param) (*Template, error) {
	if model == "" {
		return nil, NewInvalidRegistrationError(ErrMsgEmptyModel, model)
	}

	variant, err := NewTemplate(t.name, body, params, WithRenderer(t.renderer), WithBoundModel(model))
	if err != nil {
		return nil, err
	}

	t.store(model, variant)
	return variant, nil
}

// RegisterTemplate stores an existing template as the variant for model and
// binds it to model. A template cannot be its own variant.
func (t *Template) RegisterTemplate(model string, variant *Template) error {
	switch {
	case model == "":
		return NewInvalidRegistrationError(ErrMsgEmptyModel, model)
	case variant == nil:
		return NewInvalidRegistrationError(ErrMsgNilTemplate, model)
	case variant == t:
		return NewInvalidRegistrationError(ErrMsgSelfRegistration, model)
	}

	variant.mu.Lock()
	variant.model = model
	variant.mu.Unlock()

	t.store(model, variant)
	return nil
}

func (t *Template) store(model string, variant *Template) {
	t.registry.mu.Lock()
	t.registry.variants[model] = variant
	t.registry.mu.Unlock()

	t.renderer.logger.Debug(LogMsgTemplateRegistered,
		zap.String(LogFieldTemplate, t.name),
		zap.String(LogFieldModel, model))
}

// Models returns the models with a registered variant, sorted
func (t *Template) Models() []string {
	t.registry.mu.RLock()
	defer t.registry.mu.RUnlock()

	models := make([]string, 0, len(t.registry.variants))
	for model := range t.registry.variants {
		models = append(models, model)
	}
	sort.Strings(models)
	return models
}

// Model returns the bound model; empty means the default tokens
func (t *Template) Model() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.model
}

// ResetModel clears the bound model
func (t *Template) ResetModel() {
	t.mu.Lock()
	t.model = ""
	t.mu.Unlock()
}

// Name returns the template name
func (t *Template) Name() string { return t.name }

// Body returns the template text as written
func (t *Template) Body() string { return t.body }

// Normalized returns the template text after normalization
func (t *Template) Normalized() string { return Normalize(t.body) }

// Params returns the template parameters
func (t *Template) Params() []Param { return t.signature.Params() }

// Check reports syntax errors in the template body
func (t *Template) Check() error { return t.renderer.Check(t.body) }
