package jobs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultCallTimeout bounds every backend call.
	DefaultCallTimeout = 30 * time.Second
	// DefaultCacheTTL is how long a resolution stays cached.
	DefaultCacheTTL = 30 * time.Minute
)

// ResolverOption customises a Resolver.
type ResolverOption func(*Resolver)

// WithQualifier overrides the deployment-name convention.
func WithQualifier(q Qualifier) ResolverOption {
	return func(r *Resolver) {
		if q != nil {
			r.qualifier = q
		}
	}
}

// WithCallTimeout bounds each backend call made during resolution.
func WithCallTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithCacheTTL sets how long resolutions are kept. A negative TTL disables
// caching.
func WithCacheTTL(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d != 0 {
			r.ttl = d
		}
	}
}

// WithResolverLogger routes resolver diagnostics to logger.
func WithResolverLogger(logger logrus.FieldLogger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Resolver maps job names to backend identifiers. It is safe for concurrent
// use; concurrent resolutions of the same key share one backend lookup.
type Resolver struct {
	backend   Backend
	qualifier Qualifier
	timeout   time.Duration
	ttl       time.Duration
	logger    logrus.FieldLogger

	cache  *cache.Cache
	flight singleflight.Group

	mu           sync.Mutex
	lastIdentity string
	seenIdentity bool
}

// NewResolver constructs a Resolver over backend.
func NewResolver(backend Backend, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		backend:   backend,
		qualifier: NewTemplateQualifier(""),
		timeout:   DefaultCallTimeout,
		ttl:       DefaultCacheTTL,
		logger:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.ttl > 0 {
		r.cache = cache.New(r.ttl, r.ttl)
	}
	return r
}

// Resolve finds the single backend job for jobName. With a non-empty target
// the expected display name is the qualified form built from the target and
// the caller identity; otherwise it is jobName itself. Zero matches yield a
// *NotFoundError, several a *AmbiguousError.
func (r *Resolver) Resolve(ctx context.Context, jobName, target string) (ResolvedJob, error) {
	jobName = strings.TrimSpace(jobName)
	target = NormalizeTarget(target)
	if jobName == "" {
		return ResolvedJob{}, &NotFoundError{JobName: jobName}
	}
	if r.backend == nil {
		return ResolvedJob{}, &LookupError{JobName: jobName, Op: "backend", Err: errors.New("no backend configured")}
	}

	identity, err := r.identity(ctx, jobName)
	if err != nil {
		return ResolvedJob{}, err
	}

	lookup := jobName
	if target != "" {
		lookup = r.qualifier.Qualify(jobName, target, identity)
	}
	key := cacheKey(jobName, target, identity)
	log := r.logger.WithFields(logrus.Fields{"job": jobName, "target": target, "lookup": lookup})

	if r.cache != nil {
		if cached, ok := r.cache.Get(key); ok {
			log.Debug("job resolution served from cache")
			return cached.(ResolvedJob), nil
		}
	}

	// The shared lookup outlives any single caller; each caller only
	// waits on its own context.
	shared := context.WithoutCancel(ctx)
	ch := r.flight.DoChan(key, func() (any, error) {
		resolved, err := r.lookup(shared, jobName, lookup, target)
		if err != nil {
			return nil, err
		}
		if r.cache != nil {
			r.cache.SetDefault(key, resolved)
		}
		return resolved, nil
	})

	select {
	case <-ctx.Done():
		err := &LookupError{JobName: jobName, Op: "list jobs", Timeout: isTimeout(ctx.Err()), Err: ctx.Err()}
		log.WithError(err).Debug("job resolution abandoned by caller")
		return ResolvedJob{}, err
	case res := <-ch:
		if res.Err != nil {
			log.WithError(res.Err).Warn("job resolution failed")
			return ResolvedJob{}, res.Err
		}
		resolved := res.Val.(ResolvedJob)
		log.WithFields(logrus.Fields{"job_id": resolved.JobID, "shared": res.Shared}).Debug("job resolved")
		return resolved, nil
	}
}

// Invalidate drops every cached resolution.
func (r *Resolver) Invalidate() {
	if r.cache != nil {
		r.cache.Flush()
	}
}

// CachedCount returns the number of cached resolutions.
func (r *Resolver) CachedCount() int {
	if r.cache == nil {
		return 0
	}
	return r.cache.ItemCount()
}

func (r *Resolver) identity(ctx context.Context, jobName string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	identity, err := r.backend.CurrentCallerIdentity(callCtx)
	if err != nil {
		return "", &LookupError{JobName: jobName, Op: "caller identity", Timeout: isTimeout(err), Err: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seenIdentity && identity != r.lastIdentity {
		r.logger.WithFields(logrus.Fields{"previous": r.lastIdentity, "current": identity}).Info("caller identity changed; flushing job cache")
		r.Invalidate()
	}
	r.lastIdentity = identity
	r.seenIdentity = true
	return identity, nil
}

func (r *Resolver) lookup(ctx context.Context, jobName, lookup, target string) (ResolvedJob, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	listed, err := r.backend.ListJobs(callCtx)
	if err != nil {
		return ResolvedJob{}, &LookupError{JobName: jobName, Op: "list jobs", Timeout: isTimeout(err), Err: err}
	}

	var matches []Job
	for _, job := range listed {
		if job.Name == lookup {
			matches = append(matches, job)
		}
	}

	switch len(matches) {
	case 0:
		return ResolvedJob{}, &NotFoundError{JobName: jobName, QualifiedName: lookup, Target: target}
	case 1:
		return ResolvedJob{
			JobName:       jobName,
			JobID:         matches[0].ID,
			QualifiedName: lookup,
			Target:        target,
		}, nil
	default:
		return ResolvedJob{}, &AmbiguousError{JobName: jobName, QualifiedName: lookup, Candidates: matches}
	}
}

func cacheKey(jobName, target, identity string) string {
	return jobName + "|" + target + "|" + identity
}
