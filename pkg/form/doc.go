// Package form holds the editable state of one job's parameter form and turns
// a set of raw inputs into a validated Submission.
//
// Submit validates every field declared by the schema, not only the ones the
// caller supplied, and collects every rejection before returning so a caller
// can surface all problems in a single pass.
package form
