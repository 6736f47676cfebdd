package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/itsatony/go-prompts"
)

// validateConfig holds parsed validate command configuration
type validateConfig struct {
	templatePath string
	format       string
}

// validateOutput is the JSON shape of a validation result
type validateOutput struct {
	Valid  bool   `json:"valid"`
	Error  string `json:"error,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

func runValidate(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseValidateFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidFlags, err)
		return ExitCodeUsageError
	}

	source, err := readInput(cfg.templatePath, stdin)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgReadFileFailed, err)
		return ExitCodeInputError
	}

	checkErr := prompts.NewRenderer(prompts.WithoutCache()).Check(string(source))
	result := validateOutput{Valid: checkErr == nil}
	if checkErr != nil {
		result.Error = checkErr.Error()
		result.Line = metadataInt(checkErr, prompts.MetaKeyLine)
		result.Column = metadataInt(checkErr, prompts.MetaKeyColumn)
	}

	if cfg.format == OutputFormatJSON {
		if err := writeJSON(stdout, result); err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgWriteOutputFailed, err)
			return ExitCodeError
		}
	} else if result.Valid {
		fmt.Fprintln(stdout, ValidateTextValid)
	} else {
		fmt.Fprintf(stdout, ValidateTextInvalid+FmtNewline, result.Error)
	}

	if !result.Valid {
		return ExitCodeError
	}
	return ExitCodeSuccess
}

func parseValidateFlags(args []string) (*validateConfig, error) {
	fs := pflag.NewFlagSet(CmdNameValidate, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	cfg := &validateConfig{}
	fs.StringVarP(&cfg.templatePath, FlagTemplate, FlagTemplateShort, "", "")
	fs.StringVarP(&cfg.format, FlagFormat, FlagFormatShort, FlagDefaultFormat, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.templatePath == "" {
		return nil, errors.New(ErrMsgMissingTemplate)
	}
	if !validFormat(cfg.format) {
		return nil, errors.New(ErrMsgInvalidFormat)
	}
	return cfg, nil
}

func metadataInt(err error, key string) int {
	value, ok := prompts.ErrorMetadata(err, key)
	if !ok {
		return 0
	}
	n, _ := strconv.Atoi(value)
	return n
}
