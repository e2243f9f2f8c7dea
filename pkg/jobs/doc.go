// Package jobs resolves human job names to backend job identifiers and
// triggers runs with validated parameters.
//
// The remote system is reached only through the Backend interface, passed
// explicitly to NewResolver and NewClient, so tests can substitute an
// in-memory implementation (see the memory subpackage). Every backend call is
// bounded by a timeout; RunJob is never retried.
package jobs
