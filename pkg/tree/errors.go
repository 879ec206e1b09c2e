package tree

import (
	"errors"
	"fmt"
)

// Sentinel causes carried by ParseError. Match with errors.Is.
var (
	ErrUnknownType  = errors.New("unknown node type")
	ErrMissingField = errors.New("missing required field")
	ErrDuplicateID  = errors.New("duplicate node id")
	ErrUnknownRef   = errors.New("reference to unknown node")
	ErrCycle        = errors.New("cyclic reference")
	ErrBadArity     = errors.New("arity mismatch")
	ErrMaxDepth     = errors.New("maximum nesting depth exceeded")
)

// ParseError reports a malformed wire tree. Key names the offending
// node when one could be identified.
type ParseError struct {
	Key string
	Err error
}

func (e *ParseError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("parse error: %v", e.Err)
	}
	return fmt.Sprintf("parse error at %q: %v", e.Key, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func parseErr(key string, cause error, format string, args ...any) *ParseError {
	if format == "" {
		return &ParseError{Key: key, Err: cause}
	}
	return &ParseError{Key: key, Err: fmt.Errorf("%w: %s", cause, fmt.Sprintf(format, args...))}
}

// StructuralError reports an invalid node construction, such as a Map
// whose function is not a one-parameter lambda.
type StructuralError struct {
	Key string
	Msg string
}

func (e *StructuralError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("invalid tree: %s", e.Msg)
	}
	return fmt.Sprintf("invalid node %q: %s", e.Key, e.Msg)
}

func structuralErr(key, format string, args ...any) *StructuralError {
	return &StructuralError{Key: key, Msg: fmt.Sprintf(format, args...)}
}
