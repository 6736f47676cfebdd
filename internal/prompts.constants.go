package internal

// TokenType represents the type of a template segment produced by the lexer
type TokenType string

// Token type constants
const (
	TokenTypeText TokenType = "TEXT"
	TokenTypeExpr TokenType = "EXPR"
	TokenTypeStmt TokenType = "STMT"
	TokenTypeEOF  TokenType = "EOF"
)

// NodeType identifies template AST node types
type NodeType int

// Node type constants
const (
	NodeTypeRoot NodeType = iota
	NodeTypeText
	NodeTypeOutput
	NodeTypeIf
	NodeTypeFor
	NodeTypeSet
)

// Node type string names for debugging
const (
	NodeTypeNameRoot   = "ROOT"
	NodeTypeNameText   = "TEXT"
	NodeTypeNameOutput = "OUTPUT"
	NodeTypeNameIf     = "IF"
	NodeTypeNameFor    = "FOR"
	NodeTypeNameSet    = "SET"
)

// String returns the string representation of the node type
func (n NodeType) String() string {
	switch n {
	case NodeTypeRoot:
		return NodeTypeNameRoot
	case NodeTypeText:
		return NodeTypeNameText
	case NodeTypeOutput:
		return NodeTypeNameOutput
	case NodeTypeIf:
		return NodeTypeNameIf
	case NodeTypeFor:
		return NodeTypeNameFor
	case NodeTypeSet:
		return NodeTypeNameSet
	default:
		return NodeTypeNameRoot
	}
}

// Delimiters of the template dialect
const (
	StrVarOpen      = "{{"
	StrVarClose     = "}}"
	StrBlockOpen    = "{%"
	StrBlockClose   = "%}"
	StrCommentOpen  = "{#"
	StrCommentClose = "#}"
	LenDelim        = 2
)

// Whitespace control markers placed inside a delimiter
const (
	CharTrim     = '-'
	CharKeep     = '+'
	CharNewline  = '\n'
	CharCarriage = '\r'
	CharSpace    = ' '
	CharTab      = '\t'
	CharQuote    = '"'
	CharApos     = '\''
	CharEscape   = '\\'
)

// Statement keywords
const (
	KeywordIf     = "if"
	KeywordElif   = "elif"
	KeywordElse   = "else"
	KeywordEndIf  = "endif"
	KeywordFor    = "for"
	KeywordIn     = "in"
	KeywordEndFor = "endfor"
	KeywordSet    = "set"
	KeywordEndSet = "endset"
	KeywordRaw    = "raw"
	KeywordEndRaw = "endraw"
	KeywordAnd    = "and"
	KeywordOr     = "or"
	KeywordNot    = "not"
	KeywordIs     = "is"
	KeywordTrue   = "true"
	KeywordFalse  = "false"
	KeywordNone   = "none"
	KeywordLoop   = "loop"
)

// Loop variable attributes
const (
	LoopAttrIndex     = "index"
	LoopAttrIndex0    = "index0"
	LoopAttrRevIndex  = "revindex"
	LoopAttrRevIndex0 = "revindex0"
	LoopAttrFirst     = "first"
	LoopAttrLast      = "last"
	LoopAttrLength    = "length"
	LoopAttrPrevItem  = "previtem"
	LoopAttrNextItem  = "nextitem"
	LoopAttrDepth     = "depth"
	LoopAttrDepth0    = "depth0"
	LoopAttrCycle     = "cycle"
)

// Rendering literals for non-string values
const (
	StrNone  = "None"
	StrTrue  = "True"
	StrFalse = "False"
	StrInf   = "inf"
	StrNaN   = "nan"
)

// Execution limits. Zero disables a limit.
const (
	DefaultMaxLoopIterations = 10000   // items one for loop or range() may produce
	DefaultMaxRepeatSize     = 1 << 20 // bytes or items a "*" repetition may produce
	MaxIntegerBits           = 1 << 16 // width of the largest integer arithmetic may produce
)

// Log message constants
const (
	LogMsgLexerCreated    = "lexer created"
	LogMsgTokenizerStart  = "starting tokenization"
	LogMsgTokenizerEnd    = "tokenization complete"
	LogMsgParserCreated   = "parser created"
	LogMsgParserStart     = "starting parse"
	LogMsgParserEnd       = "parse complete"
	LogMsgExecutorCreated = "executor created"
	LogMsgExecutorStart   = "starting execution"
	LogMsgExecutorEnd     = "execution complete"
)

// Log field names
const (
	LogFieldSource = "source_length"
	LogFieldTokens = "token_count"
	LogFieldNodes  = "node_count"
	LogFieldOutput = "output_length"
	LogFieldLine   = "line"
	LogFieldColumn = "column"
)

// Lexer error messages
const (
	ErrMsgUnclosedTag     = "unclosed tag"
	ErrMsgUnclosedComment = "unclosed comment"
	ErrMsgUnclosedRaw     = "missing endraw for raw block"
	ErrMsgUnclosedString  = "unterminated string literal"
)

// Parser error messages
const (
	ErrMsgEmptyStatement    = "empty statement"
	ErrMsgEmptyExpression   = "empty expression"
	ErrMsgUnknownStatement  = "unknown statement"
	ErrMsgUnexpectedEnd     = "unexpected end tag"
	ErrMsgUnclosedBlock     = "missing end tag for block"
	ErrMsgElseAfterElse     = "else already used in this block"
	ErrMsgElifAfterElse     = "elif after else"
	ErrMsgForMissingIn      = "for statement requires 'in'"
	ErrMsgForBadTarget      = "invalid loop target"
	ErrMsgSetBadTarget      = "invalid set target"
	ErrMsgSetMissingEquals  = "set statement requires '='"
	ErrMsgUnexpectedToken   = "unexpected token"
	ErrMsgExpectedToken     = "expected token"
	ErrMsgExpectedName      = "expected name"
	ErrMsgInvalidNumber     = "invalid number literal"
	ErrMsgUnexpectedChar    = "unexpected character"
	ErrMsgTrailingTokens    = "unexpected tokens after expression"
	ErrMsgPositionalAfterKw = "positional argument follows keyword argument"
)

// Evaluation error messages
const (
	ErrMsgUndefined         = "undefined variable"
	ErrMsgUndefinedAttr     = "undefined attribute"
	ErrMsgNotIterable       = "value is not iterable"
	ErrMsgNotCallable       = "value is not callable"
	ErrMsgUnknownFilter     = "unknown filter"
	ErrMsgUnknownTest       = "unknown test"
	ErrMsgUnknownFunc       = "unknown function"
	ErrMsgUnknownMethod     = "unknown method"
	ErrMsgUnsupportedOp     = "unsupported operand types"
	ErrMsgDivisionByZero    = "division by zero"
	ErrMsgIndexOutOfRange   = "index out of range"
	ErrMsgNotComparable     = "values are not comparable"
	ErrMsgUnpackMismatch    = "cannot unpack value into loop targets"
	ErrMsgArgCountMin       = "too few arguments"
	ErrMsgArgCountMax       = "too many arguments"
	ErrMsgUnknownKwarg      = "unexpected keyword argument"
	ErrMsgDuplicateArg      = "argument given more than once"
	ErrMsgFuncNilFunc       = "function cannot be nil"
	ErrMsgFuncEmptyName     = "function name cannot be empty"
	ErrMsgFuncAlreadyExists = "function already registered"
	ErrMsgFuncNotFound      = "function not found"
	ErrMsgInvalidArgument   = "invalid argument"
	ErrMsgContextCancelled  = "rendering cancelled"
	ErrMsgLoopLimitExceeded = "loop iteration limit exceeded"
	ErrMsgRepeatTooLarge    = "repetition result too large"
	ErrMsgIntegerTooLarge   = "integer result too large"
)
