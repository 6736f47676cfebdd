package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/invopop/jsonschema"
	schemavalidator "github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/itsatony/go-prompts"
)

func runSchema(args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet(CmdNameSchema, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var checkPath string
	fs.StringVarP(&checkPath, FlagCheck, FlagCheckShort, "", "")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidFlags, err)
		return ExitCodeUsageError
	}

	schema := definitionSchema()

	if checkPath == "" {
		if err := writeJSON(stdout, schema); err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgSchemaFailed, err)
			return ExitCodeError
		}
		return ExitCodeSuccess
	}

	doc, err := loadDocument(checkPath)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgReadFileFailed, err)
		return ExitCodeInputError
	}

	validator, err := compileSchema(schema)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgSchemaFailed, err)
		return ExitCodeError
	}

	if err := validator.Validate(doc); err != nil {
		fmt.Fprintf(stdout, ValidateTextInvalid+FmtNewline, err)
		return ExitCodeError
	}
	fmt.Fprintln(stdout, ValidateTextValid)
	return ExitCodeSuccess
}

// definitionSchema reflects the JSON Schema of a template definition
func definitionSchema() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(&prompts.Definition{})
	schema.Title = prompts.VersionName + " template definition"
	return schema
}

func compileSchema(schema *jsonschema.Schema) (*schemavalidator.Schema, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	compiler := schemavalidator.NewCompiler()
	if err := compiler.AddResource(SchemaResourceName, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return compiler.Compile(SchemaResourceName)
}

// loadDocument reads a YAML or JSON definition file as a raw JSON value,
// which is the form the validator expects
func loadDocument(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ExtJSON, ExtJSONC:
		data = jsonc.ToJSON(data)
	case ExtYAML, ExtYML:
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		if data, err = json.Marshal(v); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%s: %s", ErrMsgUnsupportedData, path)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}
