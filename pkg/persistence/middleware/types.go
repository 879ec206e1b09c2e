// Package middleware decorates a conversation store with behavior the
// backends should not know about: redacting sensitive content before
// it is written, and encrypting histories at rest.
package middleware

import "github.com/treelang/treelang/pkg/ports"

// Middleware allows wrapping a Memory to add behavior.
type Middleware func(ports.Memory) ports.Memory
