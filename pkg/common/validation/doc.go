// Package validation provides common validation utilities for configuration
// parameters across the lazystream library.
//
// Constructors never fail on bad configuration; they fall back to defaults.
// Callers that want to reject bad input up front call the component's
// Config.Validate, which is built from these helpers.
package validation
