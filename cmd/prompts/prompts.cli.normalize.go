package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/itsatony/go-prompts"
)

func runNormalize(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet(CmdNameNormalize, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var templatePath string
	fs.StringVarP(&templatePath, FlagTemplate, FlagTemplateShort, "", "")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidFlags, err)
		return ExitCodeUsageError
	}
	if templatePath == "" {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidFlags, errors.New(ErrMsgMissingTemplate))
		return ExitCodeUsageError
	}

	source, err := readInput(templatePath, stdin)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgReadFileFailed, err)
		return ExitCodeInputError
	}

	if _, err := io.WriteString(stdout, prompts.Normalize(string(source))+FmtNewline); err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgWriteOutputFailed, err)
		return ExitCodeError
	}
	return ExitCodeSuccess
}
