package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/itsatony/go-prompts"
)

// renderConfig holds parsed render command configuration
type renderConfig struct {
	templatePath string
	dataJSON     string
	dataFilePath string
	model        string
	tokensPath   string
	format       string
	quiet        bool
}

// renderOutput is the JSON shape of a rendered prompt
type renderOutput struct {
	Model  string `json:"model,omitempty"`
	Output string `json:"output"`
}

func runRender(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseRenderFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidFlags, err)
		return ExitCodeUsageError
	}

	templateSource, err := readInput(cfg.templatePath, stdin)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgReadFileFailed, err)
		return ExitCodeInputError
	}

	data, err := loadData(cfg.dataJSON, cfg.dataFilePath)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidData, err)
		return ExitCodeInputError
	}

	table, err := loadTokenTable(cfg.tokensPath)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgLoadTokensFailed, err)
		return ExitCodeInputError
	}

	logger := newLogger(stderr, cfg.quiet)
	defer func() { _ = logger.Sync() }()

	renderer := prompts.NewRenderer(
		prompts.WithTokenTable(table),
		prompts.WithLogger(logger),
		prompts.WithoutCache(),
	)
	result, err := renderer.Render(context.Background(), string(templateSource), cfg.model, data)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgRenderFailed, err)
		return ExitCodeError
	}

	if cfg.format == OutputFormatJSON {
		err = writeJSON(stdout, renderOutput{Model: cfg.model, Output: result})
	} else {
		_, err = io.WriteString(stdout, result+FmtNewline)
	}
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgWriteOutputFailed, err)
		return ExitCodeError
	}

	return ExitCodeSuccess
}

func parseRenderFlags(args []string) (*renderConfig, error) {
	fs := pflag.NewFlagSet(CmdNameRender, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	cfg := &renderConfig{}

	fs.StringVarP(&cfg.templatePath, FlagTemplate, FlagTemplateShort, "", "")
	fs.StringVarP(&cfg.dataJSON, FlagData, FlagDataShort, "", "")
	fs.StringVarP(&cfg.dataFilePath, FlagDataFile, FlagDataFileShort, "", "")
	fs.StringVarP(&cfg.model, FlagModel, FlagModelShort, os.Getenv(EnvModel), "")
	fs.StringVar(&cfg.tokensPath, FlagTokens, os.Getenv(EnvTokens), "")
	fs.StringVarP(&cfg.format, FlagOutput, FlagOutputShort, FlagDefaultFormat, "")
	fs.BoolVarP(&cfg.quiet, FlagQuiet, FlagQuietShort, false, "")

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
