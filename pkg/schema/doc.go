// Package schema declares tool parameter types and validates argument
// values against them.
//
// It defines a simple type system with built-in types (string, int,
// float, bool, any) and support for slices and custom validators.
// Schemas map parameter names to types, enabling runtime validation of
// tool arguments before they cross a transport.
//
// Parameter order is significant for tool declarations: positional
// callers map arguments onto parameters by declaration order, so the
// ordered Params form renders JSON Schema documents whose properties
// keep that order, and Properties reads the order back out of a
// document. The unordered Schema map remains the validation surface.
//
// Basic usage:
//
//	params := schema.Params{
//	    {Name: "a", Type: schema.Float()},
//	    {Name: "b", Type: schema.Float()},
//	}
//
//	if err := schema.Validate(params.Schema(), args); err != nil {
//	    // Handle validation errors
//	}
//
// Schemas can also be created programmatically or parsed from type
// strings:
//
//	typeMap := map[string]string{
//	    "platform": "string",
//	    "players":  "[int]",
//	}
//
//	s, err := schema.ParseTypeMap(typeMap)
//
// Custom validators can be registered for domain-specific validation:
//
//	positive := schema.Custom("positive", func(v any) error {
//	    f, ok := v.(float64)
//	    if !ok {
//	        return fmt.Errorf("expected number")
//	    }
//	    if f <= 0 {
//	        return fmt.Errorf("must be positive")
//	    }
//	    return nil
//	})
package schema
