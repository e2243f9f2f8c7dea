// Package openapi describes the run submission API as an OpenAPI 3 document
// built with kin-openapi. Each loaded parameter schema contributes one POST
// operation whose request body mirrors the schema's fields and bounds.
package openapi
