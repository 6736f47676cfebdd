package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/itsatony/go-prompts"
)

// tokensConfig holds parsed tokens command configuration
type tokensConfig struct {
	model      string
	tokensPath string
	format     string
}

func runTokens(args []string, stdout, stderr io.Writer) int {
	cfg, err := parseTokensFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidFlags, err)
		return ExitCodeUsageError
	}

	table, err := loadTokenTable(cfg.tokensPath)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgLoadTokensFailed, err)
		return ExitCodeInputError
	}

	if cfg.model != "" {
		tokens, ok := table.Lookup(cfg.model)
		if !ok {
			fmt.Fprintf(stderr, FmtErrorWithDetail, ErrMsgUnknownModel, cfg.model)
			return ExitCodeError
		}
		return writeTokens(stdout, stderr, cfg.format, tokens)
	}

	entries := make(map[string]prompts.SpecialTokens, len(table.Models()))
	for _, model := range table.Models() {
		entries[model], _ = table.Lookup(model)
	}
	if cfg.format == OutputFormatJSON {
		return writeTokens(stdout, stderr, cfg.format, entries)
	}

	fmt.Fprintf(stdout, TokensTextHeader+FmtNewline, TokensTextDefault, describeTokens(table.Default()))
	for _, model := range table.Models() {
		fmt.Fprintf(stdout, TokensTextHeader+FmtNewline, model, describeTokens(entries[model]))
	}
	return ExitCodeSuccess
}

func writeTokens(stdout, stderr io.Writer, format string, v any) int {
	var err error
	if format == OutputFormatJSON {
		err = writeJSON(stdout, v)
	} else {
		var data []byte
		data, err = yaml.Marshal(v)
		if err == nil {
			_, err = stdout.Write(data)
		}
	}
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgWriteOutputFailed, err)
		return ExitCodeError
	}
	return ExitCodeSuccess
}

// describeTokens summarizes the sequence markers and whether role markers exist
func describeTokens(s prompts.SpecialTokens) string {
	desc := fmt.Sprintf("bos=%q eos=%q", s.Sequence.Begin, s.Sequence.End)
	if s.HasRoleMarkers() {
		desc += " roles"
	}
	return desc
}

func parseTokensFlags(args []string) (*tokensConfig, error) {
	fs := pflag.NewFlagSet(CmdNameTokens, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	cfg := &tokensConfig{}
	fs.StringVarP(&cfg.model, FlagModel, FlagModelShort, os.Getenv(EnvModel), "")
	fs.StringVar(&cfg.tokensPath, FlagTokens, os.Getenv(EnvTokens), "")
	fs.StringVarP(&cfg.format, FlagFormat, FlagFormatShort, FlagDefaultFormat, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if !validFormat(cfg.format) {
		return nil, errors.New(ErrMsgInvalidFormat)
	}
	return cfg, nil
}
