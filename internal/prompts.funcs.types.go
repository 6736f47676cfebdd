package internal

import (
	"bytes"
	"encoding/json"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Rounding methods accepted by the round filter
const (
	RoundCommon = "common"
	RoundCeil   = "ceil"
	RoundFloor  = "floor"
)

// registerTypeFuncs registers conversion and numeric filters
func registerTypeFuncs(r *FuncRegistry) {
	// default(value, default_value='', boolean=False)
	r.MustRegister(&Func{
		Name:    FuncNameDefault,
		Params:  []string{ParamValue, "default_value", "boolean"},
		MinArgs: 1,
		MaxArgs: 3,
		Fn: func(args []any) (any, error) {
			v := args[ArgIndexFirst]
			var def any = ""
			if len(args) > ArgIndexSecond {
				def = args[ArgIndexSecond]
			}
			if _, undefined := v.(Undefined); undefined {
				return def, nil
			}
			if IsTruthy(arg(args, ArgIndexThird, false)) && !IsTruthy(v) {
				return def, nil
			}
			return v, nil
		},
	})
	r.Alias(FuncNameD, FuncNameDefault)

	// string(value)
	r.MustRegister(&Func{
		Name:    FuncNameString,
		Params:  []string{ParamValue},
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(args []any) (any, error) {
			return ToString(args[ArgIndexFirst]), nil
		},
	})

	// int(value, default=0, base=10)
	r.MustRegister(&Func{
		Name:    FuncNameInt,
		Params:  []string{ParamValue, ParamDefault, "base"},
		MinArgs: 1,
		MaxArgs: 3,
		Fn: func(args []any) (any, error) {
			def := arg(args, ArgIndexSecond, 0)
			base, ok := toInt(arg(args, ArgIndexThird, 10))
			if !ok {
				return nil, NewExprEvalError(ErrMsgInvalidArgument, "base")
			}
			return convertInt(args[ArgIndexFirst], def, base), nil
		},
	})

	// float(value, default=0.0)
	r.MustRegister(&Func{
		Name:    FuncNameFloat,
		Params:  []string{ParamValue, ParamDefault},
		MinArgs: 1,
		MaxArgs: 2,
		Fn: func(args []any) (any, error) {
			def := arg(args, ArgIndexSecond, 0.0)
			switch v := args[ArgIndexFirst].(type) {
			case bool:
				if v {
					return 1.0, nil
				}
				return 0.0, nil
			case string:
				f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
				if err != nil {
					return def, nil
				}
				return f, nil
			}
			if f, ok := toFloat(args[ArgIndexFirst]); ok {
				return f, nil
			}
			return def, nil
		},
	})

	// abs(number)
	r.MustRegister(&Func{
		Name:    FuncNameAbs,
		Params:  []string{ParamValue},
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(args []any) (any, error) {
			i, f, kind := asNumber(args[ArgIndexFirst])
			switch kind {
			case intNumber:
				if i < 0 {
					return negateInt(i), nil
				}
				return i, nil
			case bigNumber:
				n, _ := asBigInt(args[ArgIndexFirst])
				return normalizeInt(new(big.Int).Abs(n)), nil
			case floatNumber:
				return math.Abs(f), nil
			}
			return nil, NewExprEvalError(ErrMsgUnsupportedOp, "abs("+typeName(args[ArgIndexFirst])+")")
		},
	})

	// round(value, precision=0, method='common')
	r.MustRegister(&Func{
		Name:    FuncNameRound,
		Params:  []string{ParamValue, "precision", "method"},
		MinArgs: 1,
		MaxArgs: 3,
		Fn: func(args []any) (any, error) {
			f, ok := toFloat(args[ArgIndexFirst])
			if !ok {
				return nil, NewExprEvalError(ErrMsgUnsupportedOp, "round("+typeName(args[ArgIndexFirst])+")")
			}
			precision, ok := toInt(arg(args, ArgIndexSecond, 0))
			if !ok {
				return nil, NewExprEvalError(ErrMsgInvalidArgument, "precision")
			}
			scale := math.Pow(10, float64(precision))
			switch method := ToString(arg(args, ArgIndexThird, RoundCommon)); method {
			case RoundCommon:
				return math.RoundToEven(f*scale) / scale, nil
			case RoundCeil:
				return math.Ceil(f*scale) / scale, nil
			case RoundFloor:
				return math.Floor(f*scale) / scale, nil
			default:
				return nil, NewExprEvalError(ErrMsgInvalidArgument, "method="+method)
			}
		},
	})

	// tojson(value, indent=None): keys sorted, HTML-sensitive characters escaped
	r.MustRegister(&Func{
		Name:    FuncNameToJSON,
		Params:  []string{ParamValue, "indent"},
		MinArgs: 1,
		MaxArgs: 2,
		Fn: func(args []any) (any, error) {
			var buf bytes.Buffer
			enc := json.NewEncoder(&buf)
			if n, ok := toInt(arg(args, ArgIndexSecond, nil)); ok {
				enc.SetIndent("", strings.Repeat(" ", n))
			}
			if err := enc.Encode(jsonValue(args[ArgIndexFirst])); err != nil {
				return nil, NewExprEvalError(ErrMsgInvalidArgument, err.Error())
			}
			out := strings.TrimSuffix(buf.String(), "\n")
			return strings.ReplaceAll(out, "'", `\u0027`), nil
		},
	})
}

// convertInt follows the int filter: strings are parsed in base, floats truncate
func convertInt(v, def any, base int) any {
	switch val := v.(type) {
	case bool:
		if val {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(val)
		if n, ok := parseInt(s, base); ok {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return floatToInt(f)
		}
		return def
	}
	i, f, kind := asNumber(v)
	switch kind {
	case intNumber:
		return int(i)
	case bigNumber:
		return v
	case floatNumber:
		return floatToInt(f)
	}
	return def
}

// jsonValue converts template values into something encoding/json can marshal
func jsonValue(v any) any {
	switch val := v.(type) {
	case Undefined:
		return nil
	case Tuple:
		out := make([]any, len(val))
		for i, it := range val {
			out[i] = jsonValue(it)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, it := range val {
			out[i] = jsonValue(it)
		}
		return out
	}
	if m, ok := toMap(v); ok {
		out := make(map[string]any, len(m))
		for k, it := range m {
			out[k] = jsonValue(it)
		}
		return out
	}
	return v
}
