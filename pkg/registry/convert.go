package registry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Number coerces a tool argument into a float64. Strings holding
// numeric text are accepted, since generators sometimes quote numbers.
func Number(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}

// NumberSlice coerces a tool argument into a slice of float64.
func NumberSlice(v any) ([]float64, error) {
	seq, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("not a sequence: %T", v)
	}
	out := make([]float64, len(seq))
	for i, el := range seq {
		f, err := Number(el)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = f
	}
	return out, nil
}
