package internal

import (
	"math"
	"math/big"
	"math/bits"
	"strconv"
)

// Integer arithmetic is exact: int64 results that would overflow are
// recomputed as *big.Int, and results that fit are narrowed back to int64.

// normalizeInt narrows n to int64 when it fits
func normalizeInt(n *big.Int) any {
	if n.IsInt64() {
		return n.Int64()
	}
	return n
}

func negateInt(i int64) any {
	if i == math.MinInt64 {
		return new(big.Int).Neg(big.NewInt(i))
	}
	return -i
}

// floatToInt truncates f toward zero
func floatToInt(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if f >= math.MinInt64 && f < math.MaxInt64 {
		return int(f)
	}
	n, _ := big.NewFloat(f).Int(nil)
	return normalizeInt(n)
}

// parseInt parses s in base, falling back to *big.Int beyond int64
func parseInt(s string, base int) (any, bool) {
	if n, err := strconv.ParseInt(s, base, 64); err == nil {
		return int(n), true
	}
	n, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, false
	}
	return normalizeInt(n), true
}

func intArithmetic(op string, a, b int64) (any, error) {
	switch op {
	case ExprOpAdd:
		sum := a + b
		if (a < 0) == (b < 0) && (sum < 0) != (a < 0) {
			return bigArithmetic(op, big.NewInt(a), big.NewInt(b))
		}
		return sum, nil
	case ExprOpSub:
		diff := a - b
		if (a < 0) != (b < 0) && (diff < 0) != (a < 0) {
			return bigArithmetic(op, big.NewInt(a), big.NewInt(b))
		}
		return diff, nil
	case ExprOpMul:
		hi, lo := bits.Mul64(uint64(absInt(a)), uint64(absInt(b)))
		if hi != 0 || lo > math.MaxInt64 || a == math.MinInt64 || b == math.MinInt64 {
			return bigArithmetic(op, big.NewInt(a), big.NewInt(b))
		}
		return a * b, nil
	case ExprOpDiv:
		if b == 0 {
			return nil, NewExprEvalError(ErrMsgDivisionByZero, "")
		}
		return float64(a) / float64(b), nil
	case ExprOpFloorDiv:
		if b == 0 {
			return nil, NewExprEvalError(ErrMsgDivisionByZero, "")
		}
		if a == math.MinInt64 && b == -1 {
			return bigArithmetic(op, big.NewInt(a), big.NewInt(b))
		}
		q := a / b
		if (a%b != 0) && ((a < 0) != (b < 0)) {
			q--
		}
		return q, nil
	case ExprOpMod:
		if b == 0 {
			return nil, NewExprEvalError(ErrMsgDivisionByZero, "")
		}
		m := a % b
		if m != 0 && ((m < 0) != (b < 0)) {
			m += b
		}
		return m, nil
	case ExprOpPow:
		if b < 0 {
			return math.Pow(float64(a), float64(b)), nil
		}
		if small, ok := powSmallBase(a, b == 0, b%2 == 0); ok {
			return small, nil
		}
		if b >= 64 {
			return bigArithmetic(op, big.NewInt(a), big.NewInt(b))
		}
		result := int64(1)
		for i := int64(0); i < b; i++ {
			hi, lo := bits.Mul64(uint64(absInt(result)), uint64(absInt(a)))
			if hi != 0 || lo > math.MaxInt64 || a == math.MinInt64 {
				return bigArithmetic(op, big.NewInt(a), big.NewInt(b))
			}
			result *= a
		}
		return result, nil
	}
	return nil, NewExprEvalError(ErrMsgUnsupportedOp, op)
}

// powSmallBase handles bases 0, 1 and -1, whose powers stay small for any
// non-negative exponent. 0 ** 0 is 1.
func powSmallBase(a int64, zeroExp, evenExp bool) (int64, bool) {
	switch a {
	case 0:
		if zeroExp {
			return 1, true
		}
		return 0, true
	case 1:
		return 1, true
	case -1:
		if evenExp {
			return 1, true
		}
		return -1, true
	}
	return 0, false
}

// absInt returns |i|; MinInt64 is returned unchanged and callers treat it
// as an overflow
func absInt(i int64) int64 {
	if i < 0 {
		return -i
	}
	return i
}

// bigArithmetic applies op to arbitrary-size integers. Results wider than
// MaxIntegerBits are rejected.
func bigArithmetic(op string, a, b *big.Int) (any, error) {
	switch op {
	case ExprOpAdd:
		return normalizeInt(new(big.Int).Add(a, b)), nil
	case ExprOpSub:
		return normalizeInt(new(big.Int).Sub(a, b)), nil
	case ExprOpMul:
		if a.BitLen()+b.BitLen() > MaxIntegerBits {
			return nil, NewExprEvalError(ErrMsgIntegerTooLarge, "")
		}
		return normalizeInt(new(big.Int).Mul(a, b)), nil
	case ExprOpDiv:
		if b.Sign() == 0 {
			return nil, NewExprEvalError(ErrMsgDivisionByZero, "")
		}
		f, _ := new(big.Float).Quo(new(big.Float).SetInt(a), new(big.Float).SetInt(b)).Float64()
		return f, nil
	case ExprOpFloorDiv, ExprOpMod:
		if b.Sign() == 0 {
			return nil, NewExprEvalError(ErrMsgDivisionByZero, "")
		}
		// QuoRem truncates; floor when the remainder's sign differs from b's
		q, r := new(big.Int).QuoRem(a, b, new(big.Int))
		if r.Sign() != 0 && r.Sign() != b.Sign() {
			q.Sub(q, big.NewInt(1))
			r.Add(r, b)
		}
		if op == ExprOpMod {
			return normalizeInt(r), nil
		}
		return normalizeInt(q), nil
	case ExprOpPow:
		if b.Sign() < 0 {
			x, _ := new(big.Float).SetInt(a).Float64()
			y, _ := new(big.Float).SetInt(b).Float64()
			return math.Pow(x, y), nil
		}
		if a.IsInt64() {
			if small, ok := powSmallBase(a.Int64(), b.Sign() == 0, b.Bit(0) == 0); ok {
				return small, nil
			}
		}
		if !b.IsInt64() || b.Int64() > MaxIntegerBits || int64(a.BitLen()-1)*b.Int64() > MaxIntegerBits {
			return nil, NewExprEvalError(ErrMsgIntegerTooLarge, "")
		}
		return normalizeInt(new(big.Int).Exp(a, b, nil)), nil
	}
	return nil, NewExprEvalError(ErrMsgUnsupportedOp, op)
}
