package schema

// Schema is a map of parameter names to their expected types.
// Example: {"platform": String(), "players": Slice(Int())}
type Schema map[string]Type

// Validate checks if args conform to the schema.
// Returns an error with all validation failures found.
func Validate(schema Schema, args map[string]any) error {
	if len(schema) == 0 {
		// No schema = no validation
		return nil
	}

	var errs []error

	// Validate each parameter in the schema
	for name, typ := range schema {
		value, exists := args[name]
		if !exists {
			errs = append(errs, &ValidationError{
				Key:    name,
				Reason: "required",
				Value:  nil,
			})
			continue
		}

		// Validate the value against the type
		if err := typ.Validate(value); err != nil {
			errs = append(errs, &ValidationError{
				Key:    name,
				Reason: err.Error(),
				Value:  value,
			})
		}
	}

	// If there are errors, aggregate them
	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}

	return nil
}

// ValidateFields validates only the named arguments against the
// schema. Arguments whose parameter is absent from the schema, and
// named arguments missing from args, are both errors. Useful when
// optional parameters may be omitted but supplied values must still
// type-check.
func ValidateFields(schema Schema, args map[string]any, fields ...string) error {
	if len(fields) == 0 {
		// Nothing to validate
		return nil
	}

	var errs []error

	for _, name := range fields {
		typ, exists := schema[name]
		if !exists {
			errs = append(errs, &ValidationError{
				Key:    name,
				Reason: "not defined in schema",
				Value:  nil,
			})
			continue
		}

		value, ok := args[name]
		if !ok {
			errs = append(errs, &ValidationError{
				Key:    name,
				Reason: "required",
				Value:  nil,
			})
			continue
		}

		if err := typ.Validate(value); err != nil {
			errs = append(errs, &ValidationError{
				Key:    name,
				Reason: err.Error(),
				Value:  value,
			})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}

	return nil
}
