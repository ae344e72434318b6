package rules

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nathoo/aplcore/types"
)

// ErrTypeMismatch is matched by every TypeMismatchError.
var ErrTypeMismatch = errors.New("type mismatch")

// TypeMismatchError indicates operands that cannot be coerced to a common
// unit. It is an authoring bug and is never silently coerced.
type TypeMismatchError struct {
	Op    string
	Left  types.ValueKind
	Right types.ValueKind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: %s %s %s", e.Left, e.Op, e.Right)
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

// Bool, Number and Duration build values.
func Bool(b bool) types.Value { return types.Value{Kind: types.KindBool, Bool: b} }

func Number(n float64) types.Value { return types.Value{Kind: types.KindNumber, Num: n} }

func Duration(d time.Duration) types.Value { return types.Value{Kind: types.KindDuration, Dur: d} }

// scalar normalizes a numeric operand: numbers stay as-is, durations are
// expressed in milliseconds.
func scalar(v types.Value) (float64, bool) {
	switch v.Kind {
	case types.KindNumber:
		return v.Num, true
	case types.KindDuration:
		return float64(v.Dur) / float64(time.Millisecond), true
	default:
		return 0, false
	}
}

func compare(op types.CompareOp, lhs, rhs types.Value) (bool, error) {
	if lhs.Kind != rhs.Kind {
		return false, &TypeMismatchError{Op: string(op), Left: lhs.Kind, Right: rhs.Kind}
	}
	l, ok := scalar(lhs)
	if !ok {
		return false, &TypeMismatchError{Op: string(op), Left: lhs.Kind, Right: rhs.Kind}
	}
	r, _ := scalar(rhs)

	switch op {
	case types.OpLt:
		return l < r, nil
	case types.OpLe:
		return l <= r, nil
	case types.OpGt:
		return l > r, nil
	case types.OpGe:
		return l >= r, nil
	case types.OpEq:
		return l == r, nil
	case types.OpNe:
		return l != r, nil
	default:
		return false, fmt.Errorf("unknown comparison %q", op)
	}
}

// arith applies a math operator. Division by zero yields a zero value of
// the result kind.
func arith(op types.MathOp, lhs, rhs types.Value) (types.Value, error) {
	kind, err := mathKind(op, lhs.Kind, rhs.Kind)
	if err != nil {
		return types.Value{}, err
	}
	l, _ := scalar(lhs)
	r, _ := scalar(rhs)

	var out float64
	switch op {
	case types.OpAdd:
		out = l + r
	case types.OpSub:
		out = l - r
	case types.OpMul:
		out = l * r
	case types.OpDiv:
		if r != 0 {
			out = l / r
		}
	}

	if kind == types.KindDuration {
		// Duration*number keeps l in ms; duration/number likewise.
		return Duration(time.Duration(out * float64(time.Millisecond))), nil
	}
	return Number(out), nil
}

// mathKind is the result kind of op applied to the operand kinds, shared
// by runtime evaluation and the static checker.
func mathKind(op types.MathOp, l, r types.ValueKind) (types.ValueKind, error) {
	mismatch := &TypeMismatchError{Op: string(op), Left: l, Right: r}
	if l == types.KindBool || r == types.KindBool {
		return "", mismatch
	}
	switch op {
	case types.OpAdd, types.OpSub:
		if l != r {
			return "", mismatch
		}
		return l, nil
	case types.OpMul:
		switch {
		case l == types.KindNumber && r == types.KindNumber:
			return types.KindNumber, nil
		case l == types.KindDuration && r == types.KindNumber:
			return types.KindDuration, nil
		}
		return "", mismatch
	case types.OpDiv:
		switch {
		case l == types.KindNumber && r == types.KindNumber:
			return types.KindNumber, nil
		case l == types.KindDuration && r == types.KindNumber:
			return types.KindDuration, nil
		case l == types.KindDuration && r == types.KindDuration:
			return types.KindNumber, nil
		}
		return "", mismatch
	default:
		return "", fmt.Errorf("unknown math operator %q", op)
	}
}

// ParseConst parses a literal as written in rotation files: "18" is a
// number, "0ms" or "1.5s" a duration, "true"/"false" a boolean.
func ParseConst(s string) (types.Value, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return types.Value{}, errors.New("empty constant")
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return Number(n), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return types.Value{}, fmt.Errorf("constant %q is neither a number nor a duration", s)
	}
	return Duration(d), nil
}
