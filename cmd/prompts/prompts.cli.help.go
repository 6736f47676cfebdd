package main

import (
	"fmt"
	"io"
)

// commandHelp maps each command to its usage text
var commandHelp = map[string]string{
	CmdNameRender:    HelpRenderUsage,
	CmdNameNormalize: HelpNormalizeUsage,
	CmdNameValidate:  HelpValidateUsage,
	CmdNameTokens:    HelpTokensUsage,
	CmdNameSchema:    HelpSchemaUsage,
	CmdNameVersion:   HelpVersionUsage,
	CmdNameHelp:      HelpHelpUsage,
}

func runHelp(args []string, stdout io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stdout, HelpMainUsage)
		return ExitCodeSuccess
	}

	usage, ok := commandHelp[args[0]]
	if !ok {
		fmt.Fprintf(stdout, FmtErrorWithDetail, ErrMsgUnknownCommand, args[0])
		fmt.Fprintln(stdout, HelpMainUsage)
		return ExitCodeUsageError
	}

	fmt.Fprintln(stdout, usage)
	return ExitCodeSuccess
}
