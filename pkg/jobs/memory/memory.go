// Package memory provides an in-process jobs.Backend for tests, demos and
// offline development.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/goliatone/go-jobform/pkg/jobs"
)

// RunRecord captures one RunJob call.
type RunRecord struct {
	JobID      string
	RunID      string
	Parameters map[string]string
}

// Backend is a thread-safe jobs.Backend backed by a fixed job list.
type Backend struct {
	mu       sync.Mutex
	jobs     []jobs.Job
	identity string
	nextRun  int64
	runs     []RunRecord
	counts   map[string]int64

	listCalls     int
	identityCalls int

	// ListErr, RunErr and IdentityErr, when set, are returned by the
	// corresponding calls.
	ListErr     error
	RunErr      error
	IdentityErr error
	// Hook, when set, runs at the start of every call with the call name
	// ("list", "run", "identity"); returning an error fails the call.
	Hook func(ctx context.Context, call string) error
}

// New returns a backend listing jobs and reporting identity as the caller.
func New(identity string, list ...jobs.Job) *Backend {
	return &Backend{
		identity: identity,
		jobs:     append([]jobs.Job(nil), list...),
		nextRun:  1000,
		counts:   make(map[string]int64),
	}
}

// SetJobs replaces the job list.
func (b *Backend) SetJobs(list ...jobs.Job) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jobs = append([]jobs.Job(nil), list...)
}

// SetIdentity changes the reported caller identity.
func (b *Backend) SetIdentity(identity string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.identity = identity
}

func (b *Backend) hook(ctx context.Context, call string) error {
	if b.Hook != nil {
		if err := b.Hook(ctx, call); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// ListJobs implements jobs.Backend.
func (b *Backend) ListJobs(ctx context.Context) ([]jobs.Job, error) {
	if err := b.hook(ctx, "list"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listCalls++
	if b.ListErr != nil {
		return nil, b.ListErr
	}
	return append([]jobs.Job(nil), b.jobs...), nil
}

// RunJob implements jobs.Backend.
func (b *Backend) RunJob(ctx context.Context, jobID string, params map[string]string) (jobs.Run, error) {
	if err := b.hook(ctx, "run"); err != nil {
		return jobs.Run{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.RunErr != nil {
		return jobs.Run{}, b.RunErr
	}

	known := false
	for _, job := range b.jobs {
		if job.ID == jobID {
			known = true
			break
		}
	}
	if !known {
		return jobs.Run{}, fmt.Errorf("memory: job %s does not exist", jobID)
	}

	b.nextRun++
	b.counts[jobID]++
	runID := strconv.FormatInt(b.nextRun, 10)
	cloned := make(map[string]string, len(params))
	for k, v := range params {
		cloned[k] = v
	}
	b.runs = append(b.runs, RunRecord{JobID: jobID, RunID: runID, Parameters: cloned})
	return jobs.Run{RunID: runID, NumberInJob: b.counts[jobID]}, nil
}

// CurrentCallerIdentity implements jobs.Backend.
func (b *Backend) CurrentCallerIdentity(ctx context.Context) (string, error) {
	if err := b.hook(ctx, "identity"); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.identityCalls++
	if b.IdentityErr != nil {
		return "", b.IdentityErr
	}
	return b.identity, nil
}

// RunURL implements jobs.RunURLBuilder with a memory:// link.
func (b *Backend) RunURL(jobID, runID string) string {
	return fmt.Sprintf("memory://jobs/%s/runs/%s", jobID, runID)
}

// Runs returns the recorded run triggers in call order.
func (b *Backend) Runs() []RunRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]RunRecord(nil), b.runs...)
}

// ListCalls returns how many times ListJobs reached the job list.
func (b *Backend) ListCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listCalls
}

// IdentityCalls returns how many times the identity was requested.
func (b *Backend) IdentityCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.identityCalls
}

var _ jobs.Backend = (*Backend)(nil)
var _ jobs.RunURLBuilder = (*Backend)(nil)
