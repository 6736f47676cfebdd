package internal

import (
	"html"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Default argument values for string filters
const (
	DefaultCenterWidth    = 80
	DefaultIndentWidth    = 4
	DefaultTruncateLength = 255
	DefaultTruncateEnd    = "..."
	DefaultTruncateLeeway = 5
)

// registerStringFuncs registers string manipulation filters
func registerStringFuncs(r *FuncRegistry) {
	// upper(s)
	r.MustRegister(&Func{
		Name:    FuncNameUpper,
		Params:  []string{ParamValue},
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(args []any) (any, error) {
			return strings.ToUpper(ToString(args[ArgIndexFirst])), nil
		},
	})

	// lower(s)
	r.MustRegister(&Func{
		Name:    FuncNameLower,
		Params:  []string{ParamValue},
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(args []any) (any, error) {
			return strings.ToLower(ToString(args[ArgIndexFirst])), nil
		},
	})

	// capitalize(s): first character upper, the rest lower
	r.MustRegister(&Func{
		Name:    FuncNameCapitalize,
		Params:  []string{ParamValue},
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(args []any) (any, error) {
			s := ToString(args[ArgIndexFirst])
			if s == "" {
				return s, nil
			}
			first, size := utf8.DecodeRuneInString(s)
			return string(unicode.ToUpper(first)) + strings.ToLower(s[size:]), nil
		},
	})

	// title(s)
	r.MustRegister(&Func{
		Name:    FuncNameTitle,
		Params:  []string{ParamValue},
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(args []any) (any, error) {
			return titleCase(ToString(args[ArgIndexFirst])), nil
		},
	})

	// trim(s, chars=None)
	r.MustRegister(&Func{
		Name:    FuncNameTrim,
		Params:  []string{ParamValue, "chars"},
		MinArgs: 1,
		MaxArgs: 2,
		Fn: func(args []any) (any, error) {
			s := ToString(args[ArgIndexFirst])
			if chars := arg(args, ArgIndexSecond, nil); chars != nil {
				return strings.Trim(s, ToString(chars)), nil
			}
			return strings.TrimSpace(s), nil
		},
	})

	// replace(s, old, new, count=None)
	r.MustRegister(&Func{
		Name:    FuncNameReplace,
		Params:  []string{ParamValue, "old", "new", "count"},
		MinArgs: 3,
		MaxArgs: 4,
		Fn: func(args []any) (any, error) {
			count := -1
			if c := arg(args, ArgIndexFourth, nil); c != nil {
				n, ok := toInt(c)
				if !ok {
					return nil, NewExprEvalError(ErrMsgInvalidArgument, "count")
				}
				count = n
			}
			return strings.Replace(ToString(args[ArgIndexFirst]),
				ToString(args[ArgIndexSecond]), ToString(args[ArgIndexThird]), count), nil
		},
	})

	// center(s, width=80)
	r.MustRegister(&Func{
		Name:    FuncNameCenter,
		Params:  []string{ParamValue, "width"},
		MinArgs: 1,
		MaxArgs: 2,
		Fn: func(args []any) (any, error) {
			width, ok := toInt(arg(args, ArgIndexSecond, DefaultCenterWidth))
			if !ok {
				return nil, NewExprEvalError(ErrMsgInvalidArgument, "width")
			}
			return center(ToString(args[ArgIndexFirst]), width), nil
		},
	})

	// indent(s, width=4, first=False, blank=False)
	r.MustRegister(&Func{
		Name:    FuncNameIndent,
		Params:  []string{ParamValue, "width", "first", "blank"},
		MinArgs: 1,
		MaxArgs: 4,
		Fn: func(args []any) (any, error) {
			prefix := strings.Repeat(" ", DefaultIndentWidth)
			switch w := arg(args, ArgIndexSecond, DefaultIndentWidth).(type) {
			case string:
				prefix = w
			default:
				n, ok := toInt(w)
				if !ok {
					return nil, NewExprEvalError(ErrMsgInvalidArgument, "width")
				}
				prefix = strings.Repeat(" ", n)
			}
			first := IsTruthy(arg(args, ArgIndexThird, false))
			blank := IsTruthy(arg(args, ArgIndexFourth, false))
			return indent(ToString(args[ArgIndexFirst]), prefix, first, blank), nil
		},
	})

	// truncate(s, length=255, killwords=False, end='...', leeway=5)
	r.MustRegister(&Func{
		Name:    FuncNameTruncate,
		Params:  []string{ParamValue, "length", "killwords", "end", "leeway"},
		MinArgs: 1,
		MaxArgs: 5,
		Fn: func(args []any) (any, error) {
			length, ok := toInt(arg(args, ArgIndexSecond, DefaultTruncateLength))
			if !ok {
				return nil, NewExprEvalError(ErrMsgInvalidArgument, "length")
			}
			leeway, ok := toInt(arg(args, ArgIndexFifth, DefaultTruncateLeeway))
			if !ok {
				return nil, NewExprEvalError(ErrMsgInvalidArgument, "leeway")
			}
			end := ToString(arg(args, ArgIndexFourth, DefaultTruncateEnd))
			killwords := IsTruthy(arg(args, ArgIndexThird, false))
			return truncate(ToString(args[ArgIndexFirst]), length, killwords, end, leeway), nil
		},
	})

	// wordcount(s)
	r.MustRegister(&Func{
		Name:    FuncNameWordCount,
		Params:  []string{ParamValue},
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(args []any) (any, error) {
			return len(strings.Fields(ToString(args[ArgIndexFirst]))), nil
		},
	})

	// escape(s): HTML-escape; autoescaping is off, so this is explicit only
	r.MustRegister(&Func{
		Name:    FuncNameEscape,
		Params:  []string{ParamValue},
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(args []any) (any, error) {
			return html.EscapeString(ToString(args[ArgIndexFirst])), nil
		},
	})
	r.Alias(FuncNameE, FuncNameEscape)

	// safe(s): identity, kept for template compatibility
	r.MustRegister(&Func{
		Name:    FuncNameSafe,
		Params:  []string{ParamValue},
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(args []any) (any, error) {
			return args[ArgIndexFirst], nil
		},
	})
}

// titleCase upper-cases the first letter of every word and lower-cases the rest
func titleCase(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	boundary := true
	for _, r := range s {
		switch {
		case unicode.IsSpace(r) || strings.ContainsRune("-([{<", r):
			boundary = true
			sb.WriteRune(r)
		case boundary:
			sb.WriteRune(unicode.ToUpper(r))
			boundary = false
		default:
			sb.WriteRune(unicode.ToLower(r))
		}
	}
	return sb.String()
}

// center pads s on both sides to width, with the extra space on the right
// when the padding is odd and the width even
func center(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if width <= n {
		return s
	}
	margin := width - n
	left := margin/2 + (margin & width & 1)
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", margin-left)
}

// indent prefixes every line but the first; blank lines stay empty unless blank is set
func indent(s, prefix string, first, blank bool) string {
	lines := strings.Split(s, "\n")

	var rv string
	if blank {
		rv = strings.Join(lines, "\n"+prefix)
	} else {
		out := make([]string, len(lines))
		out[0] = lines[0]
		for i := 1; i < len(lines); i++ {
			if lines[i] != "" {
				out[i] = prefix + lines[i]
			}
		}
		rv = strings.Join(out, "\n")
	}

	if first {
		rv = prefix + rv
	}
	return rv
}

// truncate shortens s to length runes, appending end; words are kept whole unless killwords
func truncate(s string, length int, killwords bool, end string, leeway int) string {
	runes := []rune(s)
	if len(runes) <= length+leeway {
		return s
	}

	cut := length - utf8.RuneCountInString(end)
	if cut < 0 {
		cut = 0
	}
	head := string(runes[:cut])
	if killwords {
		return head + end
	}
	if idx := strings.LastIndexByte(head, ' '); idx >= 0 {
		head = head[:idx]
	}
	return head + end
}
