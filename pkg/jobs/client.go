package jobs

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-jobform/pkg/form"
)

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithSubmitTimeout bounds the run trigger call.
func WithSubmitTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithClientLogger routes client diagnostics to logger.
func WithClientLogger(logger logrus.FieldLogger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client triggers runs on the backend.
type Client struct {
	backend Backend
	timeout time.Duration
	logger  logrus.FieldLogger
}

// NewClient constructs a Client over backend.
func NewClient(backend Backend, opts ...ClientOption) *Client {
	c := &Client{
		backend: backend,
		timeout: DefaultCallTimeout,
		logger:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// SubmitRun triggers exactly one run of jobID with the encoded submission.
// Failures, including timeouts, are returned as *SubmissionError; the call is
// never retried here because a run trigger is not idempotent.
func (c *Client) SubmitRun(ctx context.Context, jobID string, submission form.Submission) (RunHandle, error) {
	if strings.TrimSpace(jobID) == "" {
		return RunHandle{}, &SubmissionError{JobID: jobID, Err: errors.New("job id is required")}
	}
	if c.backend == nil {
		return RunHandle{}, &SubmissionError{JobID: jobID, Err: errors.New("no backend configured")}
	}

	params := EncodeParameters(submission)
	log := c.logger.WithFields(logrus.Fields{"job": submission.JobName, "job_id": jobID, "parameters": len(params)})

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	run, err := c.backend.RunJob(callCtx, jobID, params)
	if err != nil {
		subErr := &SubmissionError{JobID: jobID, Timeout: isTimeout(err), Err: err}
		log.WithError(err).Error("run trigger failed")
		return RunHandle{}, subErr
	}

	handle := RunHandle{
		RunID:       run.RunID,
		JobID:       jobID,
		NumberInJob: run.NumberInJob,
	}
	if builder, ok := c.backend.(RunURLBuilder); ok {
		handle.URL = builder.RunURL(jobID, run.RunID)
	}
	log.WithField("run_id", handle.RunID).Info("run triggered")
	return handle, nil
}
