package main

import (
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/pflag"

	"github.com/itsatony/go-prompts"
)

// versionOutput represents JSON output for version
type versionOutput struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
}

func runVersion(args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet(CmdNameVersion, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var format string
	fs.StringVarP(&format, FlagFormat, FlagFormatShort, FlagDefaultFormat, "")
	err := fs.Parse(args)
	if err == nil && !validFormat(format) {
		err = errors.New(ErrMsgInvalidFormat)
	}
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidFlags, err)
		return ExitCodeUsageError
	}

	out := versionOutput{
		Name:      prompts.VersionName,
		Version:   prompts.Version,
		GoVersion: runtime.Version(),
	}

	if format == OutputFormatJSON {
		if err := writeJSON(stdout, out); err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgJSONMarshalFailed, err)
			return ExitCodeError
		}
		return ExitCodeSuccess
	}

	fmt.Fprintf(stdout, VersionTextTemplate+FmtNewline, out.Name, out.Version, out.GoVersion)
	return ExitCodeSuccess
}
