// Package databricks implements jobs.Backend over the Databricks Jobs REST
// API (2.1) and the workspace SCIM "Me" endpoint.
package databricks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/goliatone/go-jobform/pkg/jobs"
)

const (
	listPath  = "/api/2.1/jobs/list"
	runPath   = "/api/2.1/jobs/run-now"
	mePath    = "/api/2.0/preview/scim/v2/Me"
	tokenPath = "/oidc/v1/token"

	defaultPageSize   = 100
	defaultAttempts   = 3
	defaultRetryDelay = 200 * time.Millisecond
)

// ErrNoCredentials is returned by New when neither a token nor a client
// credential pair is configured.
var ErrNoCredentials = errors.New("databricks: credentials are required (token or client id/secret)")

// APIError is a non-2xx answer from the workspace.
type APIError struct {
	StatusCode int
	ErrorCode  string
	Message    string
	Path       string
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("databricks: %s: %d %s: %s", e.Path, e.StatusCode, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("databricks: %s: %d: %s", e.Path, e.StatusCode, e.Message)
}

// Temporary reports whether the request may succeed if repeated.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Option configures the backend.
type Option func(*Backend)

// WithToken authenticates with a personal access token.
func WithToken(token string) Option {
	return func(b *Backend) {
		b.token = strings.TrimSpace(token)
	}
}

// WithClientCredentials authenticates as a service principal using OAuth
// machine-to-machine credentials.
func WithClientCredentials(clientID, clientSecret string) Option {
	return func(b *Backend) {
		b.clientID = strings.TrimSpace(clientID)
		b.clientSecret = strings.TrimSpace(clientSecret)
	}
}

// WithHTTPClient sets the transport used for API and token requests.
func WithHTTPClient(client *http.Client) Option {
	return func(b *Backend) {
		if client != nil {
			b.base = client
		}
	}
}

// WithLogger routes backend diagnostics to logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithRetry sets the attempt count and base delay for idempotent reads.
// Run triggers are never retried.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(b *Backend) {
		if attempts > 0 {
			b.attempts = attempts
		}
		if delay > 0 {
			b.delay = delay
		}
	}
}

// WithPageSize sets the jobs/list page size.
func WithPageSize(size int) Option {
	return func(b *Backend) {
		if size > 0 {
			b.pageSize = size
		}
	}
}

// Backend talks to one Databricks workspace.
type Backend struct {
	host         string
	token        string
	clientID     string
	clientSecret string
	base         *http.Client
	http         *http.Client
	logger       logrus.FieldLogger
	attempts     uint
	delay        time.Duration
	pageSize     int
}

// New returns a backend for the workspace at host.
func New(host string, opts ...Option) (*Backend, error) {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		return nil, errors.New("databricks: host is required")
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	if _, err := url.Parse(host); err != nil {
		return nil, fmt.Errorf("databricks: invalid host %q: %w", host, err)
	}

	b := &Backend{
		host:     host,
		base:     http.DefaultClient,
		logger:   logrus.StandardLogger(),
		attempts: defaultAttempts,
		delay:    defaultRetryDelay,
		pageSize: defaultPageSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, b.base)
	switch {
	case b.clientID != "" && b.clientSecret != "":
		cfg := &clientcredentials.Config{
			ClientID:     b.clientID,
			ClientSecret: b.clientSecret,
			TokenURL:     b.host + tokenPath,
			Scopes:       []string{"all-apis"},
		}
		b.http = cfg.Client(ctx)
	case b.token != "":
		b.http = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: b.token, TokenType: "Bearer"}))
	default:
		return nil, ErrNoCredentials
	}
	return b, nil
}

// Host returns the normalised workspace URL.
func (b *Backend) Host() string {
	return b.host
}

type listResponse struct {
	Jobs []struct {
		JobID    int64 `json:"job_id"`
		Settings struct {
			Name string `json:"name"`
		} `json:"settings"`
	} `json:"jobs"`
	HasMore       bool   `json:"has_more"`
	NextPageToken string `json:"next_page_token"`
}

// ListJobs implements jobs.Backend, following pagination to the end.
func (b *Backend) ListJobs(ctx context.Context) ([]jobs.Job, error) {
	var out []jobs.Job
	pageToken := ""
	for {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(b.pageSize))
		if pageToken != "" {
			query.Set("page_token", pageToken)
		}

		var page listResponse
		if err := b.getWithRetry(ctx, listPath+"?"+query.Encode(), &page); err != nil {
			return nil, err
		}
		for _, job := range page.Jobs {
			out = append(out, jobs.Job{ID: strconv.FormatInt(job.JobID, 10), Name: job.Settings.Name})
		}
		if !page.HasMore || page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}
	b.logger.WithField("jobs", len(out)).Debug("databricks jobs listed")
	return out, nil
}

type runNowRequest struct {
	JobID            int64             `json:"job_id"`
	JobParameters    map[string]string `json:"job_parameters,omitempty"`
	IdempotencyToken string            `json:"idempotency_token"`
}

type runNowResponse struct {
	RunID       int64 `json:"run_id"`
	NumberInJob int64 `json:"number_in_job"`
}

// RunJob implements jobs.Backend. It sends a single run-now request carrying
// a fresh idempotency token.
func (b *Backend) RunJob(ctx context.Context, jobID string, params map[string]string) (jobs.Run, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(jobID), 10, 64)
	if err != nil {
		return jobs.Run{}, fmt.Errorf("databricks: job id %q is not numeric", jobID)
	}

	body := runNowRequest{JobID: id, JobParameters: params, IdempotencyToken: uuid.NewString()}
	var resp runNowResponse
	if err := b.do(ctx, http.MethodPost, runPath, body, &resp); err != nil {
		return jobs.Run{}, err
	}
	b.logger.WithFields(logrus.Fields{"job_id": jobID, "run_id": resp.RunID, "idempotency_token": body.IdempotencyToken}).Debug("databricks run-now accepted")
	return jobs.Run{RunID: strconv.FormatInt(resp.RunID, 10), NumberInJob: resp.NumberInJob}, nil
}

type meResponse struct {
	UserName      string `json:"userName"`
	ApplicationID string `json:"applicationId"`
}

// CurrentCallerIdentity implements jobs.Backend. Users are reported by the
// short form of their user name, service principals by application id.
func (b *Backend) CurrentCallerIdentity(ctx context.Context) (string, error) {
	var me meResponse
	if err := b.getWithRetry(ctx, mePath, &me); err != nil {
		return "", err
	}
	name := me.UserName
	if name == "" {
		name = me.ApplicationID
	}
	if name == "" {
		return "", errors.New("databricks: caller identity is empty")
	}
	return ShortName(name), nil
}

// RunURL implements jobs.RunURLBuilder.
func (b *Backend) RunURL(jobID, runID string) string {
	return fmt.Sprintf("%s/#job/%s/run/%s", b.host, jobID, runID)
}

// ShortName reduces a user name to the form used in development deployment
// prefixes: the local part of an e-mail address, lower-cased, with every
// character outside [a-z0-9] replaced by an underscore.
func ShortName(userName string) string {
	local := userName
	if idx := strings.Index(local, "@"); idx >= 0 {
		local = local[:idx]
	}
	local = strings.ToLower(local)
	var sb strings.Builder
	sb.Grow(len(local))
	for _, r := range local {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
			continue
		}
		sb.WriteByte('_')
	}
	return sb.String()
}

func (b *Backend) getWithRetry(ctx context.Context, path string, out any) error {
	return retry.Do(
		func() error {
			return b.do(ctx, http.MethodGet, path, nil, out)
		},
		retry.Context(ctx),
		retry.Attempts(b.attempts),
		retry.Delay(b.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			b.logger.WithFields(logrus.Fields{"path": path, "attempt": n + 1}).WithError(err).Warn("databricks request failed; retrying")
		}),
	)
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return true
}

type errorBody struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	Detail    string `json:"detail"`
}

func (b *Backend) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("databricks: encode %s: %w", path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.host+path, body)
	if err != nil {
		return fmt.Errorf("databricks: build %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("databricks: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("databricks: read %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Path: stripQuery(path)}
		var decoded errorBody
		if json.Unmarshal(raw, &decoded) == nil {
			apiErr.ErrorCode = decoded.ErrorCode
			apiErr.Message = decoded.Message
			if apiErr.Message == "" {
				apiErr.Message = decoded.Detail
			}
		}
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("databricks: decode %s: %w", stripQuery(path), err)
	}
	return nil
}

func stripQuery(path string) string {
	if idx := strings.IndexByte(path, '?'); idx >= 0 {
		return path[:idx]
	}
	return path
}

var _ jobs.Backend = (*Backend)(nil)
var _ jobs.RunURLBuilder = (*Backend)(nil)
