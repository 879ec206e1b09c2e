package registry

import (
	"context"
	"errors"
	"math"

	"github.com/treelang/treelang/pkg/schema"
)

// Calculator returns a registry preloaded with the arithmetic and
// comparison tools the examples and tests run against.
func Calculator(opts ...Option) *Registry {
	r := NewRegistry(opts...)

	pair := schema.Params{
		{Name: "a", Type: schema.Float()},
		{Name: "b", Type: schema.Float()},
	}
	single := schema.Params{
		{Name: "a", Type: schema.Float()},
	}

	r.MustRegister(Tool{
		Name:        "add",
		Description: "Add two numbers.",
		Params:      pair,
		Func:        binary(func(a, b float64) (any, error) { return a + b, nil }),
	})
	r.MustRegister(Tool{
		Name:        "subtract",
		Description: "Subtract b from a.",
		Params:      pair,
		Func:        binary(func(a, b float64) (any, error) { return a - b, nil }),
	})
	r.MustRegister(Tool{
		Name:        "multiply",
		Description: "Multiply two numbers.",
		Params:      pair,
		Func:        binary(func(a, b float64) (any, error) { return a * b, nil }),
	})
	r.MustRegister(Tool{
		Name:        "divide",
		Description: "Divide a by b.",
		Params:      pair,
		Func: binary(func(a, b float64) (any, error) {
			if b == 0 {
				return nil, errors.New("cannot divide by zero")
			}
			return a / b, nil
		}),
	})
	r.MustRegister(Tool{
		Name:        "power",
		Description: "Raise a to the power of b.",
		Params:      pair,
		Func:        binary(func(a, b float64) (any, error) { return math.Pow(a, b), nil }),
	})
	r.MustRegister(Tool{
		Name:        "sqrt",
		Description: "Square root of a.",
		Params:      single,
		Func: unary(func(a float64) (any, error) {
			if a < 0 {
				return nil, errors.New("cannot take square root of a negative number")
			}
			return math.Sqrt(a), nil
		}),
	})
	r.MustRegister(Tool{
		Name:        "greater_than",
		Description: "True when a is greater than b.",
		Params:      pair,
		Func:        binary(func(a, b float64) (any, error) { return a > b, nil }),
	})

	return r
}

func unary(f func(a float64) (any, error)) ToolFunction {
	return func(ctx context.Context, args map[string]any) (any, error) {
		a, err := Number(args["a"])
		if err != nil {
			return nil, err
		}
		return f(a)
	}
}

func binary(f func(a, b float64) (any, error)) ToolFunction {
	return func(ctx context.Context, args map[string]any) (any, error) {
		a, err := Number(args["a"])
		if err != nil {
			return nil, err
		}
		b, err := Number(args["b"])
		if err != nil {
			return nil, err
		}
		return f(a, b)
	}
}
