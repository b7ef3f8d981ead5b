// Package calculator evaluates arithmetic expressions without involving the LLM.
package calculator

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
)

// ErrInvalidExpression is returned for malformed or non-numeric expressions.
var ErrInvalidExpression = errors.New("invalid mathematical expression")

// Result is an evaluated expression.
type Result struct {
	Value float64
}

// String renders the value the way a browser would print a number,
// including the non-finite cases JSON cannot carry.
func (r Result) String() string {
	switch {
	case math.IsNaN(r.Value):
		return "NaN"
	case math.IsInf(r.Value, 1):
		return "Infinity"
	case math.IsInf(r.Value, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(r.Value, 'f', -1, 64)
}

// JSON returns the value for a response body: a number when finite, a string otherwise.
func (r Result) JSON() any {
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		return r.String()
	}
	return r.Value
}

var env = map[string]any{
	"pi":    math.Pi,
	"e":     math.E,
	"sqrt":  math.Sqrt,
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
	"asin":  math.Asin,
	"acos":  math.Acos,
	"atan":  math.Atan,
	"atan2": math.Atan2,
	"log":   math.Log,
	"ln":    math.Log,
	"log10": math.Log10,
	"log2":  math.Log2,
	"exp":   math.Exp,
	"pow":   math.Pow,
}

// Evaluate computes expression. Nothing but the math environment is reachable.
func Evaluate(expression string) (Result, error) {
	src := strings.TrimSpace(expression)
	if src == "" {
		return Result{}, fmt.Errorf("%w: empty expression", ErrInvalidExpression)
	}

	program, err := expr.Compile(src, expr.Env(env))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidExpression, err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidExpression, err)
	}

	value, ok := toFloat(out)
	if !ok {
		return Result{}, fmt.Errorf("%w: result is %T, not a number", ErrInvalidExpression, out)
	}
	return Result{Value: value}, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}
