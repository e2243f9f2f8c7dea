package openapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-jobform/pkg/schema"
)

const (
	// DefaultTitle names the generated document when no title is configured.
	DefaultTitle = "Job runs"
	// DefaultVersion is the document version when none is configured.
	DefaultVersion = "1.0.0"
	// DefaultBasePath prefixes every generated path.
	DefaultBasePath = "/api"

	// Extension keys for date bounds, which JSON Schema cannot express.
	ExtensionMinDate = "x-min-date"
	ExtensionMaxDate = "x-max-date"
	// ExtensionSource records the schema document a path was built from.
	ExtensionSource = "x-jobform-source"
)

// Option customises a Generator.
type Option func(*Generator)

// WithTitle sets the document title.
func WithTitle(title string) Option {
	return func(g *Generator) {
		if t := strings.TrimSpace(title); t != "" {
			g.title = t
		}
	}
}

// WithVersion sets the document version.
func WithVersion(version string) Option {
	return func(g *Generator) {
		if v := strings.TrimSpace(version); v != "" {
			g.version = v
		}
	}
}

// WithBasePath overrides the path prefix ("/api").
func WithBasePath(base string) Option {
	return func(g *Generator) {
		g.basePath = "/" + strings.Trim(strings.TrimSpace(base), "/")
		if g.basePath == "/" {
			g.basePath = ""
		}
	}
}

// WithServerURL adds a server entry to the document.
func WithServerURL(url string) Option {
	return func(g *Generator) {
		if u := strings.TrimSpace(url); u != "" {
			g.servers = append(g.servers, &openapi3.Server{URL: u})
		}
	}
}

// Generator builds an OpenAPI 3 document describing the run submission API
// for a set of parameter schemas.
type Generator struct {
	title    string
	version  string
	basePath string
	servers  openapi3.Servers
}

// NewGenerator constructs a Generator applying any provided options.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		title:    DefaultTitle,
		version:  DefaultVersion,
		basePath: DefaultBasePath,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// RunsPath returns the submission path for jobName.
func (g *Generator) RunsPath(jobName string) string {
	return fmt.Sprintf("%s/jobs/%s/runs", g.basePath, jobName)
}

// JobsPath returns the listing path.
func (g *Generator) JobsPath() string {
	return g.basePath + "/jobs"
}

// Build returns a document with one run submission operation per schema
// plus the job listing operation. The result passes openapi3 validation.
func (g *Generator) Build(ctx context.Context, schemas []schema.ParameterSchema) (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   g.title,
			Version: g.version,
		},
		Paths:   openapi3.NewPaths(),
		Servers: g.servers,
	}

	doc.Paths.Set(g.JobsPath(), &openapi3.PathItem{Get: g.listOperation()})

	seen := make(map[string]struct{}, len(schemas))
	for _, s := range schemas {
		if _, dup := seen[s.JobName]; dup {
			return nil, fmt.Errorf("openapi: job %q listed twice", s.JobName)
		}
		seen[s.JobName] = struct{}{}

		op, err := g.runOperation(s)
		if err != nil {
			return nil, err
		}
		doc.Paths.Set(g.RunsPath(s.JobName), &openapi3.PathItem{Post: op})
		doc.Tags = append(doc.Tags, &openapi3.Tag{Name: s.JobName, Description: s.DisplayName})
	}

	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("openapi: generated document is invalid: %w", err)
	}
	return doc, nil
}

// JSON builds the document and encodes it with indentation.
func (g *Generator) JSON(ctx context.Context, schemas []schema.ParameterSchema) ([]byte, error) {
	doc, err := g.Build(ctx, schemas)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("openapi: encode document: %w", err)
	}
	return data, nil
}

func (g *Generator) runOperation(s schema.ParameterSchema) (*openapi3.Operation, error) {
	if strings.TrimSpace(s.JobName) == "" {
		return nil, errors.New("openapi: job name is required")
	}

	params, err := ParametersSchema(s)
	if err != nil {
		return nil, err
	}

	body := openapi3.NewObjectSchema().
		WithProperty("parameters", params).
		WithProperty("target", openapi3.NewStringSchema())
	body.Properties["target"].Value.Description = `Deployment target; "-" disables qualification.`
	if len(params.Required) > 0 {
		body.WithRequired([]string{"parameters"})
	}

	op := openapi3.NewOperation()
	op.OperationID = "run_" + s.JobName
	op.Summary = "Run " + s.DisplayName
	op.Description = s.Description
	op.Tags = []string{s.JobName}
	op.RequestBody = &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchema(body),
	}
	op.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusCreated, responseRef("Run started", runHandleSchema())),
		openapi3.WithStatus(http.StatusBadRequest, responseRef("Malformed request body", errorSchema())),
		openapi3.WithStatus(http.StatusNotFound, responseRef("Unknown job, or no deployed job matches", errorSchema())),
		openapi3.WithStatus(http.StatusConflict, responseRef("Several deployed jobs match", errorSchema())),
		openapi3.WithStatus(http.StatusUnprocessableEntity, responseRef("Parameters rejected", fieldErrorsSchema())),
		openapi3.WithStatus(http.StatusBadGateway, responseRef("Job lookup or run trigger failed", errorSchema())),
	)
	if s.Source != "" {
		op.Extensions = map[string]any{ExtensionSource: s.Source}
	}
	return op, nil
}

func (g *Generator) listOperation() *openapi3.Operation {
	parameter := openapi3.NewObjectSchema().
		WithProperty("name", openapi3.NewStringSchema()).
		WithProperty("label", openapi3.NewStringSchema()).
		WithProperty("type", openapi3.NewStringSchema().WithEnum(fieldTypes()...)).
		WithProperty("required", openapi3.NewBoolSchema())
	job := openapi3.NewObjectSchema().
		WithProperty("job_name", openapi3.NewStringSchema()).
		WithProperty("display_name", openapi3.NewStringSchema()).
		WithProperty("description", openapi3.NewStringSchema()).
		WithProperty("parameters", openapi3.NewArraySchema().WithItems(parameter))
	list := openapi3.NewObjectSchema().
		WithProperty("jobs", openapi3.NewArraySchema().WithItems(job)).
		WithProperty("problems", openapi3.NewArraySchema().WithItems(
			openapi3.NewObjectSchema().
				WithProperty("source", openapi3.NewStringSchema()).
				WithProperty("message", openapi3.NewStringSchema()),
		))

	op := openapi3.NewOperation()
	op.OperationID = "list_jobs"
	op.Summary = "List the jobs that can be run"
	op.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusOK, responseRef("Loaded jobs and schema load problems", list)),
	)
	return op
}

// ParametersSchema describes the "parameters" object of a run request for s.
// Every declared field becomes a property constrained by its rule.
func ParametersSchema(s schema.ParameterSchema) (*openapi3.Schema, error) {
	out := openapi3.NewObjectSchema()
	var required []string
	for _, field := range s.Parameters {
		prop, err := FieldSchema(field)
		if err != nil {
			return nil, fmt.Errorf("openapi: job %q: %w", s.JobName, err)
		}
		out.WithProperty(field.Name, prop)
		if field.Required {
			required = append(required, field.Name)
		}
	}
	if len(required) > 0 {
		out.WithRequired(required)
	}
	return out, nil
}

// FieldSchema maps one parameter field onto a JSON Schema.
func FieldSchema(field schema.Field) (*openapi3.Schema, error) {
	var out *openapi3.Schema
	rule := field.Validation

	switch field.Type {
	case schema.FieldTypeText:
		out = openapi3.NewStringSchema()
		if rule.MaxLength != nil {
			out.WithMaxLength(int64(*rule.MaxLength))
		}
	case schema.FieldTypeInteger, schema.FieldTypeDecimal:
		if field.Type == schema.FieldTypeInteger {
			out = openapi3.NewInt64Schema()
		} else {
			out = openapi3.NewFloat64Schema()
		}
		if rule.Min != nil {
			out.WithMin(*rule.Min)
		}
		if rule.Max != nil {
			out.WithMax(*rule.Max)
		}
	case schema.FieldTypeDate:
		out = openapi3.NewStringSchema().WithFormat("date")
		ext := map[string]any{}
		if rule.MinDate != nil {
			ext[ExtensionMinDate] = rule.MinDate.String()
		}
		if rule.MaxDate != nil {
			ext[ExtensionMaxDate] = rule.MaxDate.String()
		}
		if len(ext) > 0 {
			out.Extensions = ext
		}
	case schema.FieldTypeEnum:
		values := make([]any, 0, len(field.Options))
		for _, option := range field.Options {
			values = append(values, option)
		}
		out = openapi3.NewStringSchema().WithEnum(values...)
	default:
		return nil, fmt.Errorf("field %q: unsupported type %q", field.Name, field.Type)
	}

	out.Title = field.Label
	return out, nil
}

func runHandleSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("run_id", openapi3.NewStringSchema()).
		WithProperty("job_id", openapi3.NewStringSchema()).
		WithProperty("number_in_job", openapi3.NewInt64Schema()).
		WithProperty("url", openapi3.NewStringSchema()).
		WithRequired([]string{"run_id", "job_id"})
}

func errorSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("error", openapi3.NewStringSchema()).
		WithRequired([]string{"error"})
}

func fieldErrorsSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("error", openapi3.NewStringSchema()).
		WithProperty("errors", openapi3.NewObjectSchema().WithAdditionalProperties(openapi3.NewStringSchema())).
		WithRequired([]string{"errors"})
}

func responseRef(description string, body *openapi3.Schema) *openapi3.ResponseRef {
	return &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription(description).WithJSONSchema(body)}
}

func fieldTypes() []any {
	return []any{
		string(schema.FieldTypeText),
		string(schema.FieldTypeInteger),
		string(schema.FieldTypeDecimal),
		string(schema.FieldTypeDate),
		string(schema.FieldTypeEnum),
	}
}
