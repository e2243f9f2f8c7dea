package jobs

import "context"

// Job is a remote job as listed by the backend.
type Job struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Run is the backend's answer to a run trigger.
type Run struct {
	RunID string
	// NumberInJob is the run's sequence number within its job, when the
	// backend reports one.
	NumberInJob int64
}

// Backend is the remote job system consumed by the resolver and the client.
type Backend interface {
	// ListJobs returns every job visible to the caller.
	ListJobs(ctx context.Context) ([]Job, error)
	// RunJob triggers one run of jobID with string parameters.
	RunJob(ctx context.Context, jobID string, params map[string]string) (Run, error)
	// CurrentCallerIdentity returns the short identity of the authenticated
	// principal, as used in deployment-qualified job names.
	CurrentCallerIdentity(ctx context.Context) (string, error)
}

// RunURLBuilder is implemented by backends that can link to a run.
type RunURLBuilder interface {
	RunURL(jobID, runID string) string
}

// ResolvedJob is the outcome of a successful resolution.
type ResolvedJob struct {
	JobName       string `json:"job_name"`
	JobID         string `json:"job_id"`
	QualifiedName string `json:"qualified_name"`
	Target        string `json:"target,omitempty"`
}

// RunHandle identifies a triggered run for tracking outside this system.
type RunHandle struct {
	RunID       string `json:"run_id"`
	JobID       string `json:"job_id"`
	NumberInJob int64  `json:"number_in_job,omitempty"`
	URL         string `json:"url,omitempty"`
}
