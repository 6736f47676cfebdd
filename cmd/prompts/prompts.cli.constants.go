package main

// CLIName is the binary name used in help output
const CLIName = "prompts"

// Command names
const (
	CmdNameRender    = "render"
	CmdNameNormalize = "normalize"
	CmdNameValidate  = "validate"
	CmdNameTokens    = "tokens"
	CmdNameSchema    = "schema"
	CmdNameVersion   = "version"
	CmdNameHelp      = "help"
)

// Flag names - long form
const (
	FlagTemplate = "template"
	FlagData     = "data"
	FlagDataFile = "data-file"
	FlagModel    = "model"
	FlagTokens   = "tokens"
	FlagOutput   = "output"
	FlagQuiet    = "quiet"
	FlagFormat   = "format"
	FlagCheck    = "check"
)

// Flag names - short form
const (
	FlagTemplateShort = "t"
	FlagDataShort     = "d"
	FlagDataFileShort = "f"
	FlagModelShort    = "m"
	FlagOutputShort   = "o"
	FlagQuietShort    = "q"
	FlagFormatShort   = "F"
	FlagCheckShort    = "c"
)

// Flag default values
const (
	FlagDefaultFormat = OutputFormatText
)

// Environment variables supplying flag defaults
const (
	EnvFileName = ".env"
	EnvModel    = "PROMPTS_MODEL"
	EnvTokens   = "PROMPTS_TOKENS"
)

// Output formats
const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
)

// Exit codes
const (
	ExitCodeSuccess    = 0
	ExitCodeError      = 1
	ExitCodeUsageError = 2
	ExitCodeInputError = 3
)

// Input source indicators
const (
	InputSourceStdin = "-"
)

// Data file extensions
const (
	ExtJSON  = ".json"
	ExtJSONC = ".jsonc"
	ExtYAML  = ".yaml"
	ExtYML   = ".yml"
)

// SchemaResourceName identifies the reflected schema inside the validator
const SchemaResourceName = "definition.schema.json"

// File permissions
const (
	FilePermissions = 0o644
)

// Error messages - ALL must be constants
const (
	ErrMsgUnknownCommand    = "unknown command"
	ErrMsgMissingTemplate   = "template source required"
	ErrMsgInvalidData       = "invalid data"
	ErrMsgDataNotObject     = "data must be an object"
	ErrMsgUnsupportedData   = "unsupported data file extension"
	ErrMsgReadFileFailed    = "failed to read file"
	ErrMsgWriteOutputFailed = "failed to write output"
	ErrMsgRenderFailed      = "template rendering failed"
	ErrMsgInvalidFormat     = "invalid output format"
	ErrMsgInvalidFlags      = "invalid flags"
	ErrMsgLoadTokensFailed  = "failed to load token table"
	ErrMsgUnknownModel      = "model has no special tokens"
	ErrMsgSchemaFailed      = "failed to generate schema"
	ErrMsgJSONMarshalFailed = "failed to marshal JSON"
)

// Help text templates
const (
	HelpMainUsage = `go-prompts - LLM prompt templates with model special tokens

Usage:
    prompts <command> [options]

Commands:
    render      Render a template with data
    normalize   Print the normalized template text
    validate    Check a template for syntax errors
    tokens      List the special-token table
    schema      Print or check the JSON Schema of a template definition
    version     Show version information
    help        Show help for a command

Use "prompts help <command>" for more information about a command.`

	HelpRenderUsage = `Render a template with data

Usage:
    prompts render [options]

Options:
    -t, --template <file>   Template file (use "-" for stdin)
    -d, --data <json>       JSON data string
    -f, --data-file <file>  Data file (.json, .jsonc, .yaml, .yml)
    -m, --model <id>        Model whose special tokens are injected ($PROMPTS_MODEL)
        --tokens <file>     Extra token table (.yaml, .toml, .json) ($PROMPTS_TOKENS)
    -o, --output <format>   Output format: text, json (default: text)
    -q, --quiet             Suppress warnings

Examples:
    prompts render -t prompt.txt -d '{"topic": "tennis"}'
    prompts render -t prompt.txt -f data.yaml -m google/gemma-2-9b
    cat prompt.txt | prompts render -t - -d '{"topic": "tomatoes"}'`

	HelpNormalizeUsage = `Print the normalized template text

Usage:
    prompts normalize [options]

Options:
    -t, --template <file>   Template file (use "-" for stdin)

Examples:
    prompts normalize -t prompt.txt`

	HelpValidateUsage = `Check a template for syntax errors

Usage:
    prompts validate [options]

Options:
    -t, --template <file>   Template file (use "-" for stdin)
    -F, --format <format>   Output format: text, json (default: text)

Examples:
    prompts validate -t prompt.txt
    cat prompt.txt | prompts validate -t - -F json`

	HelpTokensUsage = `List the special-token table

Usage:
    prompts tokens [options]

Options:
    -m, --model <id>        Show a single model ($PROMPTS_MODEL)
        --tokens <file>     Extra token table (.yaml, .toml, .json) ($PROMPTS_TOKENS)
    -F, --format <format>   Output format: text, json (default: text)`

	HelpSchemaUsage = `Print the JSON Schema of a template definition

Usage:
    prompts schema [options]

Options:
    -c, --check <file>      Validate a definition file (.yaml, .yml, .json, .jsonc) instead

Examples:
    prompts schema > definition.schema.json
    prompts schema -c prompts/summarize.yaml`

	HelpVersionUsage = `Show version information

Usage:
    prompts version [options]

Options:
    -F, --format <format>   Output format: text, json (default: text)`

	HelpHelpUsage = `Show help for a command

Usage:
    prompts help [command]

Commands:
    render      Show help for render command
    normalize   Show help for normalize command
    validate    Show help for validate command
    tokens      Show help for tokens command
    schema      Show help for schema command
    version     Show help for version command`
)

// Output format templates
const (
	VersionTextTemplate = "%s version %s\nGo: %s"
	ValidateTextValid   = "valid"
	ValidateTextInvalid = "invalid: %s"
	TokensTextHeader    = "%-40s %s"
	TokensTextDefault   = "(default)"
	FmtErrorWithCause   = "%s: %v\n"
	FmtErrorWithDetail  = "%s: %s\n"
	FmtNewline          = "\n"
)

// JSON output indentation
const (
	JSONIndent = "  "
)
