// Package idgen wraps the UUID generator used for form ids and correlation
// tokens. Callers treat the identifiers as opaque strings; tests stub NewFunc
// to make tokens predictable.
package idgen

import "github.com/google/uuid"

// NewFunc produces a new globally unique identifier as a string.
var NewFunc = func() string { return uuid.New().String() }

// New returns a fresh identifier.
func New() string { return NewFunc() }
