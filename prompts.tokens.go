package prompts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Limits is a pair of begin/end markers
type Limits struct {
	Begin string `json:"begin" yaml:"begin" toml:"begin"`
	End   string `json:"end" yaml:"end" toml:"end"`
}

// SpecialTokens holds the sequence and turn markers a model's tokenizer expects
type SpecialTokens struct {
	Sequence  Limits `json:"sequence" yaml:"sequence" toml:"sequence"`
	User      Limits `json:"user" yaml:"user" toml:"user"`
	Assistant Limits `json:"assistant" yaml:"assistant" toml:"assistant"`
	System    Limits `json:"system" yaml:"system" toml:"system"`
}

// HasRoleMarkers reports whether any chat role has a begin or end marker
func (s SpecialTokens) HasRoleMarkers() bool {
	return s.User != (Limits{}) || s.Assistant != (Limits{}) || s.System != (Limits{})
}

// Role returns the markers of a chat role
func (s SpecialTokens) Role(role Role) Limits {
	switch role {
	case RoleUser:
		return s.User
	case RoleAssistant:
		return s.Assistant
	case RoleSystem:
		return s.System
	}
	return Limits{}
}

// TokenTable maps model identifiers to their special tokens.
// A table is read-only once built.
type TokenTable struct {
	def    SpecialTokens
	models map[string]SpecialTokens
}

// tokenTableFile is the on-disk shape of a token table
type tokenTableFile struct {
	Default *SpecialTokens           `json:"default" yaml:"default" toml:"default"`
	Models  map[string]SpecialTokens `json:"models" yaml:"models" toml:"models"`
}

var defaultTokenTable = NewTokenTable(SpecialTokens{}, map[string]SpecialTokens{
	ModelGemma2: {
		Sequence: Limits{Begin: "<bos>", End: "<eos>"},
	},
	ModelGPT2: {
		Sequence: Limits{End: "<|endoftext|>"},
	},
	ModelMistral7B: {
		Sequence: Limits{Begin: "<s>", End: "</s>"},
	},
	ModelMistral7BInstruct: {
		Sequence:  Limits{Begin: "<s>", End: "</s>"},
		User:      Limits{Begin: "[INST]", End: "[/INST]"},
		Assistant: Limits{End: "</s>"},
	},
})

// DefaultTokenTable returns the built-in token table
func DefaultTokenTable() *TokenTable {
	return defaultTokenTable
}

// NewTokenTable builds a table from a default entry and per-model entries
func NewTokenTable(def SpecialTokens, models map[string]SpecialTokens) *TokenTable {
	t := &TokenTable{
		def:    def,
		models: make(map[string]SpecialTokens, len(models)),
	}
	for name, tokens := range models {
		t.models[name] = tokens
	}
	return t
}

// Lookup returns the special tokens of a model. Unknown models get the
// default entry and false. The empty model is the default entry.
func (t *TokenTable) Lookup(model string) (SpecialTokens, bool) {
	if model == "" {
		return t.def, true
	}
	tokens, ok := t.models[model]
	if !ok {
		return t.def, false
	}
	return tokens, true
}

// Default returns the entry used when no model is given
func (t *TokenTable) Default() SpecialTokens {
	return t.def
}

// Models returns the known model identifiers in sorted order
func (t *TokenTable) Models() []string {
	names := make([]string, 0, len(t.models))
	for name := range t.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge returns a new table with the entries of other on top of t
func (t *TokenTable) Merge(other *TokenTable) *TokenTable {
	merged := NewTokenTable(t.def, t.models)
	if other == nil {
		return merged
	}
	merged.def = other.def
	for name, tokens := range other.models {
		merged.models[name] = tokens
	}
	return merged
}

// LoadTokenTable reads a token table file. The format follows the file
// extension. The loaded entries are merged on top of the built-in table.
func LoadTokenTable(path string) (*TokenTable, error) {
	format, err := formatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewConfigError(ErrMsgTokenTableRead, path, err)
	}
	table, err := ParseTokenTable(data, format)
	if err != nil {
		return nil, NewConfigError(ErrMsgTokenTableParse, path, err)
	}
	return table, nil
}

// ParseTokenTable decodes a token table in the given format ("yaml", "toml"
// or "json") and merges it on top of the built-in table
func ParseTokenTable(data []byte, format string) (*TokenTable, error) {
	var file tokenTableFile
	var err error

	switch format {
	case TokenFormatYAML:
		err = yaml.Unmarshal(data, &file)
	case TokenFormatTOML:
		err = toml.Unmarshal(data, &file)
	case TokenFormatJSON:
		err = json.Unmarshal(data, &file)
	default:
		return nil, NewUnsupportedFormatError(format)
	}
	if err != nil {
		return nil, NewConfigError(ErrMsgTokenTableParse, "", err)
	}

	base := DefaultTokenTable()
	def := base.Default()
	if file.Default != nil {
		def = *file.Default
	}
	return base.Merge(NewTokenTable(def, file.Models)), nil
}

func formatFromPath(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case FileExtensionYAML, FileExtensionYML:
		return TokenFormatYAML, nil
	case FileExtensionTOML:
		return TokenFormatTOML, nil
	case FileExtensionJSON:
		return TokenFormatJSON, nil
	default:
		return "", NewUnsupportedFormatError(ext)
	}
}

// limitsValue exposes a Limits pair to templates as begin/end attributes
func limitsValue(l Limits) map[string]any {
	return map[string]any{
		LimitKeyBegin: l.Begin,
		LimitKeyEnd:   l.End,
	}
}

// globals returns the render globals for a set of special tokens
func (s SpecialTokens) globals() map[string]any {
	return map[string]any{
		GlobalBOS:       s.Sequence.Begin,
		GlobalEOS:       s.Sequence.End,
		GlobalUser:      limitsValue(s.User),
		GlobalAssistant: limitsValue(s.Assistant),
		GlobalSystem:    limitsValue(s.System),
		GlobalSpecial: map[string]any{
			SpecialKeySequence: limitsValue(s.Sequence),
			GlobalUser:         limitsValue(s.User),
			GlobalAssistant:    limitsValue(s.Assistant),
			GlobalSystem:       limitsValue(s.System),
		},
	}
}
