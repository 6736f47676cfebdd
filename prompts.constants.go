package prompts

import "time"

// Version information
const (
	Version     = "0.1.0"
	VersionName = "go-prompts"
)

// Normalizer constants
const (
	TabSize = 8
)

// Render globals injected into every template. Caller values shadow them.
const (
	GlobalBOS       = "bos"
	GlobalEOS       = "eos"
	GlobalUser      = "user"
	GlobalAssistant = "assistant"
	GlobalSystem    = "system"
	GlobalSpecial   = "special"
)

// Keys of the maps exposed for Limits and SpecialTokens
const (
	LimitKeyBegin      = "begin"
	LimitKeyEnd        = "end"
	SpecialKeySequence = "sequence"
)

// Built-in model identifiers of the default token table
const (
	ModelGemma2            = "google/gemma-2-9b"
	ModelGPT2              = "openai-community/gpt2"
	ModelMistral7B         = "mistralai/Mistral-7B-v0.1"
	ModelMistral7BInstruct = "mistralai/Mistral-7B-Instruct-v0.1"
)

// Token table file formats
const (
	TokenFormatYAML = "yaml"
	TokenFormatTOML = "toml"
	TokenFormatJSON = "json"
)

// File extensions
const (
	FileExtensionYAML  = ".yaml"
	FileExtensionYML   = ".yml"
	FileExtensionTOML  = ".toml"
	FileExtensionJSON  = ".json"
	FileExtensionJSONC = ".jsonc"
)

// Result cache defaults
const (
	DefaultCacheMaxEntries    = 4096
	DefaultCacheMaxResultSize = 1 << 20
	DefaultCacheTTL           = time.Duration(0)
)

// Render limits. Zero disables a limit.
const (
	DefaultMaxLoopIterations = 10000
	DefaultMaxRepeatSize     = 1 << 20
)

// Store driver names
const (
	StoreDriverMemory     = "memory"
	StoreDriverFilesystem = "filesystem"
	StoreDriverPostgres   = "postgres"
)

// Filesystem store constants
const (
	DefinitionFileExtension = FileExtensionYAML
	FilesystemDirPerm       = 0o755
	FilesystemFilePerm      = 0o644
)

// Postgres store defaults
const (
	DefaultPostgresTablePrefix     = ""
	DefaultPostgresTableName       = "prompt_templates"
	DefaultPostgresMaxOpenConns    = 10
	DefaultPostgresMaxIdleConns    = 5
	DefaultPostgresConnMaxLifetime = 30 * time.Minute
	DefaultPostgresConnMaxIdleTime = 5 * time.Minute
	DefaultPostgresQueryTimeout    = 10 * time.Second
	DefaultPostgresConnectAttempts = 5
	DefaultPostgresConnectDelay    = 200 * time.Millisecond
)

// Chat prompt assembly
const (
	ChatMessageSeparator = "\n\n"
)

// Metadata keys for cuserr.WithMetadata
const (
	MetaKeyKind         = "kind"
	MetaKeyLine         = "line"
	MetaKeyColumn       = "column"
	MetaKeyOffset       = "offset"
	MetaKeyVariable     = "variable"
	MetaKeyParam        = "param"
	MetaKeyReason       = "reason"
	MetaKeyTemplateName = "template_name"
	MetaKeyModel        = "model"
	MetaKeyPath         = "path"
	MetaKeyFormat       = "format"
	MetaKeyRole         = "role"
	MetaKeyDriver       = "driver"
)

// Error kinds stored under MetaKeyKind
const (
	KindSignatureMismatch   = "signature_mismatch"
	KindNoTemplateFound     = "no_template_found"
	KindMissingVariable     = "missing_variable"
	KindTemplateSyntax      = "template_syntax"
	KindInvalidRegistration = "invalid_registration"
	KindRender              = "render"
	KindNotFound            = "not_found"
	KindConfig              = "config"
	KindInvalidRole         = "invalid_role"
	KindInvalidDefinition   = "invalid_definition"
)

// Log messages
const (
	LogMsgRendererCreated    = "renderer created"
	LogMsgRenderStart        = "render start"
	LogMsgRenderEnd          = "render end"
	LogMsgUnknownModel       = "unknown model"
	LogMsgCacheHit           = "render cache hit"
	LogMsgCacheBypass        = "render cache bypassed"
	LogMsgTemplateRegistered = "template variant registered"
	LogMsgModelBound         = "template model bound"
	LogMsgLibraryLoaded      = "library template loaded"
	LogMsgLibraryInvalidate  = "library template invalidated"
	LogMsgLibraryStale       = "library template invalidated during load"
	LogMsgWatchEvent         = "definition file changed"
	LogMsgWatchError         = "definition watcher error"
	LogMsgStoreConnected     = "store connected"
	LogMsgStoreRetry         = "store connection retry"
)

// Log field names
const (
	LogFieldModel        = "model"
	LogFieldModels       = "models"
	LogFieldCache        = "cache"
	LogFieldTemplate     = "template"
	LogFieldTextLength   = "text_length"
	LogFieldOutputLength = "output_length"
	LogFieldReason       = "reason"
	LogFieldPath         = "path"
	LogFieldAttempt      = "attempt"
	LogFieldError        = "error"
	LogFieldDriver       = "driver"
)
