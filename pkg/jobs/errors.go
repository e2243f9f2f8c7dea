package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// NotFoundError reports that no remote job carries the expected name.
type NotFoundError struct {
	JobName       string
	QualifiedName string
	Target        string
}

func (e *NotFoundError) Error() string {
	if e.QualifiedName != "" && e.QualifiedName != e.JobName {
		return fmt.Sprintf("jobs: job %q not found (looked for %q)", e.JobName, e.QualifiedName)
	}
	return fmt.Sprintf("jobs: job %q not found", e.JobName)
}

// AmbiguousError reports that more than one remote job carries the expected
// name. The resolver never picks one of them.
type AmbiguousError struct {
	JobName       string
	QualifiedName string
	Candidates    []Job
}

func (e *AmbiguousError) Error() string {
	ids := make([]string, 0, len(e.Candidates))
	for _, job := range e.Candidates {
		ids = append(ids, job.ID)
	}
	return fmt.Sprintf("jobs: job %q is ambiguous: %d matches for %q (ids %s)", e.JobName, len(e.Candidates), e.QualifiedName, strings.Join(ids, ", "))
}

// LookupError wraps a backend failure raised while resolving a job.
type LookupError struct {
	JobName string
	Op      string
	Timeout bool
	Err     error
}

func (e *LookupError) Error() string {
	suffix := ""
	if e.Timeout {
		suffix = " (timed out)"
	}
	return fmt.Sprintf("jobs: resolve %q: %s%s: %v", e.JobName, e.Op, suffix, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// SubmissionError wraps a failed or timed out run trigger with the backend's
// detail.
type SubmissionError struct {
	JobID   string
	Timeout bool
	Err     error
}

func (e *SubmissionError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("jobs: run job %s: timed out: %v", e.JobID, e.Err)
	}
	return fmt.Sprintf("jobs: run job %s: %v", e.JobID, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
