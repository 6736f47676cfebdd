package prompts

import (
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Definition declares a template as data so it can be stored, versioned
// with the rest of a project and loaded at runtime.
type Definition struct {
	// ID is assigned by the store on first save.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Name is the lookup key. It doubles as the file name in a FilesystemStore.
	Name string `json:"name" yaml:"name" jsonschema:"required"`

	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Params is the ordered signature of the template.
	Params []ParamDef `json:"params,omitempty" yaml:"params,omitempty"`

	// Body is the template text.
	Body string `json:"body" yaml:"body" jsonschema:"required"`

	// Variants maps a model identifier to an alternate body.
	Variants map[string]VariantDef `json:"variants,omitempty" yaml:"variants,omitempty"`

	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// ParamDef declares one parameter. A parameter with a default is optional
// unless Required is set.
type ParamDef struct {
	Name     string `json:"name" yaml:"name" jsonschema:"required"`
	Default  any    `json:"default,omitempty" yaml:"default,omitempty"`
	Required bool   `json:"required,omitempty" yaml:"required,omitempty"`
}

// VariantDef is a model-specific body. Nil Params inherit the parent's.
type VariantDef struct {
	Body   string     `json:"body" yaml:"body" jsonschema:"required"`
	Params []ParamDef `json:"params,omitempty" yaml:"params,omitempty"`
}

// Param converts the declaration into a signature parameter
func (p ParamDef) Param() Param {
	if p.Required || p.Default == nil {
		return Required(p.Name)
	}
	return Optional(p.Name, p.Default)
}

func paramsOf(defs []ParamDef) []Param {
	params := make([]Param, len(defs))
	for i, d := range defs {
		params[i] = d.Param()
	}
	return params
}

// Validate checks that the definition can be built
func (d *Definition) Validate() error {
	if d == nil {
		return NewDefinitionError(ErrMsgDefinitionNil, "", nil)
	}
	if strings.TrimSpace(d.Name) == "" {
		return NewDefinitionError(ErrMsgDefinitionNameEmpty, d.Name, nil)
	}
	if strings.TrimSpace(d.Body) == "" {
		return NewNoTemplateFoundError(d.Name)
	}
	for model, v := range d.Variants {
		if strings.TrimSpace(v.Body) == "" {
			return NewNoTemplateFoundError(d.Name + "[" + model + "]")
		}
	}
	return nil
}

// Build creates the template and registers every variant. A nil renderer
// uses the default renderer.
func (d *Definition) Build(r *Renderer) (*Template, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if r == nil {
		r = defaultRenderer
	}

	t, err := NewTemplate(d.Name, d.Body, paramsOf(d.Params), WithRenderer(r))
	if err != nil {
		return nil, err
	}

	for _, model := range d.VariantModels() {
		v := d.Variants[model]
		defs := v.Params
		if defs == nil {
			defs = d.Params
		}
		if _, err := t.Register(model, v.Body, paramsOf(defs)); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// VariantModels returns the models with a variant, sorted
func (d *Definition) VariantModels() []string {
	models := make([]string, 0, len(d.Variants))
	for model := range d.Variants {
		models = append(models, model)
	}
	sort.Strings(models)
	return models
}

// Clone returns a deep copy of the definition
func (d *Definition) Clone() *Definition {
	c := *d
	c.Params = cloneParamDefs(d.Params)
	if d.Variants != nil {
		c.Variants = make(map[string]VariantDef, len(d.Variants))
		for model, v := range d.Variants {
			c.Variants[model] = VariantDef{Body: v.Body, Params: cloneParamDefs(v.Params)}
		}
	}
	if d.Tags != nil {
		c.Tags = append([]string(nil), d.Tags...)
	}
	return &c
}

func cloneParamDefs(defs []ParamDef) []ParamDef {
	if defs == nil {
		return nil
	}
	return append([]ParamDef(nil), defs...)
}

// ParseDefinition reads and validates a YAML definition
func ParseDefinition(data []byte) (*Definition, error) {
	d, err := decodeDefinition(data)
	if err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func decodeDefinition(data []byte) (*Definition, error) {
	var d Definition
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, NewDefinitionError(ErrMsgDefinitionParse, "", err)
	}
	return &d, nil
}

// MarshalDefinition writes a definition as YAML
func MarshalDefinition(d *Definition) ([]byte, error) {
	if d == nil {
		return nil, NewDefinitionError(ErrMsgDefinitionNil, "", nil)
	}
	data, err := yaml.Marshal(d)
	if err != nil {
		return nil, NewDefinitionError(ErrMsgDefinitionMarshal, d.Name, err)
	}
	return data, nil
}
