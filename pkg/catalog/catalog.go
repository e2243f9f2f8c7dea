package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-jobform/pkg/schema"
)

// ErrNotFound is returned by Get when no loaded schema carries the name.
var ErrNotFound = errors.New("catalog: schema not found")

// DuplicateError reports a job_name declared by more than one document.
// None of the conflicting documents is served.
type DuplicateError struct {
	JobName string
	Sources []string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("catalog: job_name %q declared by multiple documents (%s)", e.JobName, strings.Join(e.Sources, ", "))
}

// Failure pairs a document location with the error that prevented it from
// loading.
type Failure struct {
	Source string
	Err    error
}

// Catalog is the read-only set of schemas loaded at startup. It is safe for
// concurrent use because nothing mutates it after construction.
type Catalog struct {
	schemas  []schema.ParameterSchema
	index    map[string]int
	failures []Failure
	conflict map[string]*DuplicateError
}

// Option configures the loader.
type Option func(*loadConfig)

type loadConfig struct {
	logger     logrus.FieldLogger
	extensions map[string]struct{}
}

// WithLogger routes load diagnostics to logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(cfg *loadConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithExtensions overrides the document extensions considered during the walk
// (default .yaml, .yml, .json).
func WithExtensions(exts ...string) Option {
	return func(cfg *loadConfig) {
		if len(exts) == 0 {
			return
		}
		cfg.extensions = make(map[string]struct{}, len(exts))
		for _, ext := range exts {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			cfg.extensions[ext] = struct{}{}
		}
	}
}

func defaultConfig() loadConfig {
	return loadConfig{
		logger: logrus.StandardLogger(),
		extensions: map[string]struct{}{
			".yaml": {},
			".yml":  {},
			".json": {},
		},
	}
}

// LoadDir loads every schema document found under dir. The returned error is
// reserved for an unreadable directory; malformed documents are reported
// through Err and Failures while the remaining schemas stay available.
func LoadDir(dir string, opts ...Option) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("catalog: %s is not a directory", dir)
	}
	return load(os.DirFS(dir), func(name string) schema.Source {
		return schema.SourceFromFile(filepath.Join(dir, filepath.FromSlash(name)))
	}, opts...)
}

// LoadFS walks fsys and loads every schema document it contains. When fsys is
// nil the returned catalog is empty.
func LoadFS(fsys fs.FS, opts ...Option) (*Catalog, error) {
	return load(fsys, schema.SourceFromFS, opts...)
}

func load(fsys fs.FS, sourceFor func(string) schema.Source, opts ...Option) (*Catalog, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	cat := &Catalog{index: make(map[string]int)}
	if fsys == nil {
		return cat, nil
	}

	var parsed []schema.ParameterSchema
	err := fs.WalkDir(fsys, ".", func(name string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}
		if _, ok := cfg.extensions[strings.ToLower(path.Ext(name))]; !ok {
			return nil
		}

		src := sourceFor(name)
		log := cfg.logger.WithField("file", src.Location())

		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			cat.failures = append(cat.failures, Failure{Source: src.Location(), Err: fmt.Errorf("catalog: read %s: %w", src.Location(), err)})
			log.WithError(err).Warn("schema document unreadable")
			return nil
		}

		doc, err := schema.NewDocument(src, raw)
		if err != nil {
			return err
		}
		parsedSchema, err := schema.Parse(doc)
		if err != nil {
			cat.failures = append(cat.failures, Failure{Source: src.Location(), Err: err})
			log.WithError(err).Warn("schema document rejected")
			return nil
		}
		log.WithField("job", parsedSchema.JobName).Debug("schema loaded")
		parsed = append(parsed, parsedSchema)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: walk: %w", err)
	}

	cat.register(parsed, cfg.logger)
	return cat, nil
}

func (c *Catalog) register(parsed []schema.ParameterSchema, logger logrus.FieldLogger) {
	sources := make(map[string][]string, len(parsed))
	for _, s := range parsed {
		sources[s.JobName] = append(sources[s.JobName], s.Source)
	}

	for _, s := range parsed {
		locations := sources[s.JobName]
		if len(locations) > 1 {
			if c.conflict == nil {
				c.conflict = make(map[string]*DuplicateError)
			}
			if _, seen := c.conflict[s.JobName]; !seen {
				dup := &DuplicateError{JobName: s.JobName, Sources: append([]string(nil), locations...)}
				c.conflict[s.JobName] = dup
				for _, location := range locations {
					c.failures = append(c.failures, Failure{Source: location, Err: dup})
				}
				logger.WithField("job", s.JobName).WithField("files", locations).Warn("duplicate job_name; schema disabled")
			}
			continue
		}
		c.index[s.JobName] = len(c.schemas)
		c.schemas = append(c.schemas, s)
	}

	sort.SliceStable(c.failures, func(i, j int) bool {
		return c.failures[i].Source < c.failures[j].Source
	})
}

// All returns the loaded schemas in document order.
func (c *Catalog) All() []schema.ParameterSchema {
	if c == nil {
		return nil
	}
	out := make([]schema.ParameterSchema, len(c.schemas))
	copy(out, c.schemas)
	return out
}

// Get returns the schema registered under jobName. Names disabled by a
// duplicate declaration return the *DuplicateError; unknown names wrap
// ErrNotFound.
func (c *Catalog) Get(jobName string) (schema.ParameterSchema, error) {
	if c == nil {
		return schema.ParameterSchema{}, fmt.Errorf("%w: %q", ErrNotFound, jobName)
	}
	if idx, ok := c.index[jobName]; ok {
		return c.schemas[idx], nil
	}
	if dup, ok := c.conflict[jobName]; ok {
		return schema.ParameterSchema{}, dup
	}
	return schema.ParameterSchema{}, fmt.Errorf("%w: %q", ErrNotFound, jobName)
}

// Has reports whether jobName resolves to a served schema.
func (c *Catalog) Has(jobName string) bool {
	if c == nil {
		return false
	}
	_, ok := c.index[jobName]
	return ok
}

// Names lists the served job names in document order.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.schemas))
	for _, s := range c.schemas {
		names = append(names, s.JobName)
	}
	return names
}

// Len returns the number of served schemas.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.schemas)
}

// Failures returns the documents that could not be loaded, sorted by source.
func (c *Catalog) Failures() []Failure {
	if c == nil {
		return nil
	}
	out := make([]Failure, len(c.failures))
	copy(out, c.failures)
	return out
}

// Err aggregates every load failure, or returns nil when all documents
// loaded.
func (c *Catalog) Err() error {
	if c == nil || len(c.failures) == 0 {
		return nil
	}
	var result *multierror.Error
	reported := make(map[error]struct{}, len(c.failures))
	for _, failure := range c.failures {
		if _, dup := reported[failure.Err]; dup {
			continue
		}
		reported[failure.Err] = struct{}{}
		result = multierror.Append(result, failure.Err)
	}
	return result.ErrorOrNil()
}
