// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// loader.go calls validateStruct immediately after unmarshal and defaults.
// Any tag mismatch aborts startup, so the binary never runs with a
// malformed listen address, public URL, or DSN.

package config

import "github.com/go-playground/validator/v10"

var v = validator.New()

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	return v.Struct(c)
}
