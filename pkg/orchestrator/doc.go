// Package orchestrator wires the catalog → validation → job resolution → run
// submission pipeline and the form rendering that surrounds it, providing a
// dependency injection friendly entry point for the HTTP server and the CLI.
package orchestrator
