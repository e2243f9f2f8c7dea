// Package validation checks raw user input against schema fields and lints
// schema documents.
//
// Validate is pure and independent of any rendering context: given a field
// and a raw string it returns either a coerced Value or a rejection reason.
// Reasons are stable strings (see the Reason constants and the bound helpers)
// so presentation layers can show them next to the offending input.
package validation
