package prompts

import (
	"regexp"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Param is one named parameter of a template signature
type Param struct {
	Name       string
	Default    any
	HasDefault bool
}

// Required declares a parameter without a default
func Required(name string) Param {
	return Param{Name: name}
}

// Optional declares a parameter that falls back to def when omitted
func Optional(name string, def any) Param {
	return Param{Name: name, Default: def, HasDefault: true}
}

// Params declares required parameters in order
func Params(names ...string) []Param {
	params := make([]Param, len(names))
	for i, name := range names {
		params[i] = Required(name)
	}
	return params
}

// KwArg is an argument passed by name. Build one with Kw.
type KwArg struct {
	Name  string
	Value any
}

// Kw passes value to the parameter called name
func Kw(name string, value any) KwArg {
	return KwArg{Name: name, Value: value}
}

// Signature is the ordered parameter list of a template
type Signature struct {
	params []Param
	index  map[string]int
}

// NewSignature validates params and builds a signature. Names must be
// unique identifiers and no required parameter may follow an optional one.
func NewSignature(params []Param) (*Signature, error) {
	s := &Signature{
		params: make([]Param, len(params)),
		index:  make(map[string]int, len(params)),
	}
	copy(s.params, params)

	seenOptional := false
	for i, p := range s.params {
		if !identifierPattern.MatchString(p.Name) {
			return nil, NewSignatureMismatchError(ErrMsgInvalidParamName, p.Name)
		}
		if _, dup := s.index[p.Name]; dup {
			return nil, NewSignatureMismatchError(ErrMsgDuplicateParam, p.Name)
		}
		if p.HasDefault {
			seenOptional = true
		} else if seenOptional {
			return nil, NewSignatureMismatchError(ErrMsgRequiredAfterOpt, p.Name)
		}
		s.index[p.Name] = i
	}
	return s, nil
}

// Params returns a copy of the parameter list
func (s *Signature) Params() []Param {
	params := make([]Param, len(s.params))
	copy(params, s.params)
	return params
}

// Names returns the parameter names in order
func (s *Signature) Names() []string {
	names := make([]string, len(s.params))
	for i, p := range s.params {
		names[i] = p.Name
	}
	return names
}

// Bind maps call arguments onto the parameters. Plain arguments bind by
// position; KwArg values bind by name and must come last. Omitted
// parameters take their defaults.
func (s *Signature) Bind(args ...any) (map[string]any, error) {
	bound := make(map[string]any, len(s.params))

	positional := 0
	sawKeyword := false
	for _, arg := range args {
		kw, isKw := arg.(KwArg)
		if !isKw {
			if sawKeyword {
				return nil, NewSignatureMismatchError(ErrMsgPositionalAfterKw, "")
			}
			if positional >= len(s.params) {
				return nil, NewSignatureMismatchError(ErrMsgTooManyArgs, "")
			}
			bound[s.params[positional].Name] = arg
			positional++
			continue
		}

		sawKeyword = true
		if err := s.bindKeyword(bound, kw.Name, kw.Value); err != nil {
			return nil, err
		}
	}

	return s.finish(bound)
}

// BindMap binds every value by name
func (s *Signature) BindMap(values map[string]any) (map[string]any, error) {
	bound := make(map[string]any, len(s.params))
	for name, value := range values {
		if err := s.bindKeyword(bound, name, value); err != nil {
			return nil, err
		}
	}
	return s.finish(bound)
}

func (s *Signature) bindKeyword(bound map[string]any, name string, value any) error {
	if _, ok := s.index[name]; !ok {
		return NewSignatureMismatchError(ErrMsgUnknownKeyword, name)
	}
	if _, dup := bound[name]; dup {
		return NewSignatureMismatchError(ErrMsgMultipleValues, name)
	}
	bound[name] = value
	return nil
}

func (s *Signature) finish(bound map[string]any) (map[string]any, error) {
	for _, p := range s.params {
		if _, ok := bound[p.Name]; ok {
			continue
		}
		if !p.HasDefault {
			return nil, NewSignatureMismatchError(ErrMsgMissingArgument, p.Name)
		}
		bound[p.Name] = p.Default
	}
	return bound, nil
}
