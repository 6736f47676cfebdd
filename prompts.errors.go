package prompts

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/itsatony/go-cuserr"

	"github.com/itsatony/go-prompts/internal"
)

// Error message constants - ALL error messages must be constants (NO MAGIC STRINGS)
const (
	// Signature and binding errors
	ErrMsgSignatureMismatch = "arguments do not match the template signature"
	ErrMsgInvalidParamName  = "invalid parameter name"
	ErrMsgDuplicateParam    = "duplicate parameter"
	ErrMsgRequiredAfterOpt  = "required parameter follows optional parameter"
	ErrMsgTooManyArgs       = "too many positional arguments"
	ErrMsgPositionalAfterKw = "positional argument follows keyword argument"
	ErrMsgUnknownKeyword    = "unexpected keyword argument"
	ErrMsgMultipleValues    = "multiple values for argument"
	ErrMsgMissingArgument   = "missing required argument"
	ErrMsgNoTemplateFound   = "no template text found"
	ErrMsgSelfRegistration  = "a template cannot be registered as its own variant"
	ErrMsgNilTemplate       = "template is nil"
	ErrMsgEmptyModel        = "model identifier cannot be empty"

	// Render errors
	ErrMsgMissingVariable = "template references an undefined variable"
	ErrMsgTemplateSyntax  = "invalid template syntax"
	ErrMsgRenderFailed    = "template rendering failed"

	// Token table errors
	ErrMsgTokenTableRead    = "failed to read token table"
	ErrMsgTokenTableParse   = "failed to parse token table"
	ErrMsgUnsupportedFormat = "unsupported file format"

	// Chat errors
	ErrMsgInvalidRole = "invalid chat role"

	// Definition errors
	ErrMsgDefinitionNameEmpty = "definition name cannot be empty"
	ErrMsgDefinitionParse     = "failed to parse definition"
	ErrMsgDefinitionMarshal   = "failed to marshal definition"
	ErrMsgDefinitionNil       = "definition is nil"

	// Cache key errors
	ErrMsgCacheKeyUnsupported = "value type cannot be part of a cache key"
	ErrMsgCacheKeyCycle       = "value refers to itself"
)

// Error code constants for categorization
const (
	ErrCodeSignature  = "PROMPTS_SIGNATURE"
	ErrCodeTemplate   = "PROMPTS_TEMPLATE"
	ErrCodeSyntax     = "PROMPTS_SYNTAX"
	ErrCodeRender     = "PROMPTS_RENDER"
	ErrCodeConfig     = "PROMPTS_CONFIG"
	ErrCodeChat       = "PROMPTS_CHAT"
	ErrCodeDefinition = "PROMPTS_DEFINITION"
	ErrCodeStorage    = "PROMPTS_STORAGE"
)

// Position represents a location in the source template
type Position struct {
	Offset int // Byte offset from start
	Line   int // 1-indexed line number
	Column int // 1-indexed column number
}

// String returns a human-readable position string
func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

func withPosition(err *cuserr.CustomError, pos Position) *cuserr.CustomError {
	return err.
		WithMetadata(MetaKeyLine, strconv.Itoa(pos.Line)).
		WithMetadata(MetaKeyColumn, strconv.Itoa(pos.Column)).
		WithMetadata(MetaKeyOffset, strconv.Itoa(pos.Offset))
}

// NewSignatureMismatchError creates an error for arguments that cannot be bound
func NewSignatureMismatchError(reason, param string) error {
	return cuserr.NewValidationError(ErrCodeSignature, ErrMsgSignatureMismatch+": "+reason).
		WithMetadata(MetaKeyKind, KindSignatureMismatch).
		WithMetadata(MetaKeyReason, reason).
		WithMetadata(MetaKeyParam, param)
}

// NewNoTemplateFoundError creates an error for a template without text
func NewNoTemplateFoundError(name string) error {
	return cuserr.NewNotFoundError(MetaKeyTemplateName, ErrMsgNoTemplateFound).
		WithMetadata(MetaKeyKind, KindNoTemplateFound).
		WithMetadata(MetaKeyTemplateName, name)
}

// NewMissingVariableError creates an error for a variable the template
// references but the values do not provide
func NewMissingVariableError(variable string, pos Position, cause error) error {
	var err *cuserr.CustomError
	if cause != nil {
		err = cuserr.WrapStdError(cause, ErrCodeRender, ErrMsgMissingVariable)
	} else {
		err = cuserr.NewValidationError(ErrCodeRender, ErrMsgMissingVariable)
	}
	return withPosition(err, pos).
		WithMetadata(MetaKeyKind, KindMissingVariable).
		WithMetadata(MetaKeyVariable, variable)
}

// NewTemplateSyntaxError creates an error for malformed template text
func NewTemplateSyntaxError(msg string, pos Position, cause error) error {
	var err *cuserr.CustomError
	if cause != nil {
		err = cuserr.WrapStdError(cause, ErrCodeSyntax, ErrMsgTemplateSyntax+": "+msg)
	} else {
		err = cuserr.NewValidationError(ErrCodeSyntax, ErrMsgTemplateSyntax+": "+msg)
	}
	return withPosition(err, pos).
		WithMetadata(MetaKeyKind, KindTemplateSyntax).
		WithMetadata(MetaKeyReason, msg)
}

// NewRenderError creates an error for a failure while expanding a template
func NewRenderError(pos Position, cause error) error {
	return withPosition(cuserr.WrapStdError(cause, ErrCodeRender, ErrMsgRenderFailed), pos).
		WithMetadata(MetaKeyKind, KindRender)
}

// NewInvalidRegistrationError creates an error for a variant that cannot be registered
func NewInvalidRegistrationError(reason, model string) error {
	return cuserr.NewValidationError(ErrCodeTemplate, reason).
		WithMetadata(MetaKeyKind, KindInvalidRegistration).
		WithMetadata(MetaKeyModel, model)
}

// NewConfigError creates an error for an unreadable or malformed configuration file
func NewConfigError(msg, path string, cause error) error {
	var err *cuserr.CustomError
	if cause != nil {
		err = cuserr.WrapStdError(cause, ErrCodeConfig, msg)
	} else {
		err = cuserr.NewValidationError(ErrCodeConfig, msg)
	}
	return err.
		WithMetadata(MetaKeyKind, KindConfig).
		WithMetadata(MetaKeyPath, path)
}

// NewUnsupportedFormatError creates an error for a file format that cannot be read
func NewUnsupportedFormatError(format string) error {
	return cuserr.NewValidationError(ErrCodeConfig, ErrMsgUnsupportedFormat).
		WithMetadata(MetaKeyKind, KindConfig).
		WithMetadata(MetaKeyFormat, format)
}

// NewInvalidRoleError creates an error for an unknown chat role
func NewInvalidRoleError(role string) error {
	return cuserr.NewValidationError(ErrCodeChat, ErrMsgInvalidRole).
		WithMetadata(MetaKeyKind, KindInvalidRole).
		WithMetadata(MetaKeyRole, role)
}

// NewDefinitionError creates an error for an invalid template definition
func NewDefinitionError(msg, name string, cause error) error {
	var err *cuserr.CustomError
	if cause != nil {
		err = cuserr.WrapStdError(cause, ErrCodeDefinition, msg)
	} else {
		err = cuserr.NewValidationError(ErrCodeDefinition, msg)
	}
	return err.
		WithMetadata(MetaKeyKind, KindInvalidDefinition).
		WithMetadata(MetaKeyTemplateName, name)
}

// IsSignatureMismatch reports whether err is a binding failure
func IsSignatureMismatch(err error) bool {
	return hasKind(err, KindSignatureMismatch)
}

// IsNoTemplateFound reports whether err is raised for a template without text
func IsNoTemplateFound(err error) bool {
	return hasKind(err, KindNoTemplateFound)
}

// IsMissingVariable reports whether err is raised for an undefined variable
func IsMissingVariable(err error) bool {
	return hasKind(err, KindMissingVariable)
}

// IsTemplateSyntaxError reports whether err is raised for malformed template text
func IsTemplateSyntaxError(err error) bool {
	return hasKind(err, KindTemplateSyntax)
}

// IsInvalidRegistration reports whether err is raised by a rejected variant registration
func IsInvalidRegistration(err error) bool {
	return hasKind(err, KindInvalidRegistration)
}

// IsNotFound reports whether err is raised for a definition missing from a store
func IsNotFound(err error) bool {
	if hasKind(err, KindNotFound) {
		return true
	}
	var storageErr *StorageError
	return errors.As(err, &storageErr) && storageErr.Message == ErrMsgDefinitionNotFound
}

// ErrorMetadata returns a metadata value from a structured error
func ErrorMetadata(err error, key string) (string, bool) {
	var customErr *cuserr.CustomError
	if !errors.As(err, &customErr) {
		return "", false
	}
	return customErr.GetMetadata(key)
}

func hasKind(err error, kind string) bool {
	v, ok := ErrorMetadata(err, MetaKeyKind)
	return ok && v == kind
}

// convertEngineError maps errors from the template engine onto the public
// error taxonomy
func convertEngineError(err error) error {
	if err == nil {
		return nil
	}

	var undefErr *internal.UndefinedError
	if errors.As(err, &undefErr) {
		return NewMissingVariableError(undefErr.Name, enginePosition(err), err)
	}

	var lexErr *internal.LexerError
	if errors.As(err, &lexErr) {
		return NewTemplateSyntaxError(lexErr.Message, Position(lexErr.Position), err)
	}

	var parseErr *internal.ParserError
	if errors.As(err, &parseErr) {
		return NewTemplateSyntaxError(parseErr.Message, Position(parseErr.Position), err)
	}

	return NewRenderError(enginePosition(err), err)
}

// convertValidationError maps an unknown filter or test onto a syntax error
func convertValidationError(err error) error {
	var execErr *internal.ExecutorError
	if errors.As(err, &execErr) {
		return NewTemplateSyntaxError(execErr.Message, Position(execErr.Position), err)
	}
	return NewTemplateSyntaxError(err.Error(), Position{}, err)
}

func enginePosition(err error) Position {
	var execErr *internal.ExecutorError
	if errors.As(err, &execErr) {
		return Position(execErr.Position)
	}
	return Position{}
}
