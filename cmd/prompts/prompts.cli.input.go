package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/itsatony/go-prompts"
)

// readInput reads content from a file or stdin
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == InputSourceStdin {
		return io.ReadAll(stdin)
	}

	return os.ReadFile(path)
}

// loadData reads render values from an inline JSON string or a data file.
// JSON input may carry comments and trailing commas.
func loadData(jsonStr, filePath string) (map[string]any, error) {
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(filepath.Ext(filePath)) {
		case ExtJSON, ExtJSONC:
			return decodeJSONData(data)
		case ExtYAML, ExtYML:
			return decodeYAMLData(data)
		default:
			return nil, errors.New(ErrMsgUnsupportedData)
		}
	}

	if jsonStr == "" {
		return make(map[string]any), nil
	}
	return decodeJSONData([]byte(jsonStr))
}

func decodeJSONData(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	result, ok := normalizeNumbers(raw).(map[string]any)
	if !ok {
		return nil, errors.New(ErrMsgDataNotObject)
	}
	return result, nil
}

func decodeYAMLData(data []byte) (map[string]any, error) {
	var result map[string]any
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	if result == nil {
		result = make(map[string]any)
	}
	return result, nil
}

// normalizeNumbers turns json.Number into int64 when the value is integral,
// so that 50 renders as "50" rather than "50.0"
func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case map[string]any:
		for k, item := range val {
			val[k] = normalizeNumbers(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = normalizeNumbers(item)
		}
		return val
	default:
		return v
	}
}

// loadTokenTable returns the built-in table, or the built-in table merged
// with the given file
func loadTokenTable(path string) (*prompts.TokenTable, error) {
	if path == "" {
		return prompts.DefaultTokenTable(), nil
	}
	return prompts.LoadTokenTable(path)
}

// newLogger writes warnings to stderr in console format
func newLogger(stderr io.Writer, quiet bool) *zap.Logger {
	if quiet {
		return zap.NewNop()
	}
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.TimeKey = ""
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(stderr),
		zapcore.WarnLevel,
	)
	return zap.New(core)
}

// writeJSON writes v as indented JSON followed by a newline
func writeJSON(stdout io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", JSONIndent)
	if err != nil {
		return err
	}
	_, err = stdout.Write(append(data, '\n'))
	return err
}

func validFormat(format string) bool {
	return format == OutputFormatText || format == OutputFormatJSON
}
