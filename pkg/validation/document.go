package validation

import (
	"errors"
	"strings"

	"github.com/goliatone/go-jobform/pkg/schema"
)

// SchemaIssue represents a schema document problem with optional field
// scoping.
type SchemaIssue struct {
	Source  string `json:"source,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// SchemaValidationResult captures the outcome of linting a schema document.
type SchemaValidationResult struct {
	Valid   bool                    `json:"valid"`
	JobName string                  `json:"job_name,omitempty"`
	Schema  *schema.ParameterSchema `json:"schema,omitempty"`
	Issues  []SchemaIssue           `json:"issues,omitempty"`
}

// ValidateDocument parses raw as a schema document and reports whether it
// would load, without registering it anywhere.
func ValidateDocument(src schema.Source, raw []byte) SchemaValidationResult {
	result := SchemaValidationResult{Valid: true}
	if src == nil {
		src = schema.SourceFromFS("schema.yaml")
	}

	doc, err := schema.NewDocument(src, raw)
	if err != nil {
		return invalid(issueFromError(err))
	}

	parsed, err := schema.Parse(doc)
	if err != nil {
		return invalid(issueFromError(err))
	}

	result.JobName = parsed.JobName
	result.Schema = &parsed
	return result
}

// IssueFromError converts a load error into a SchemaIssue, keeping the field
// scope when the error carries one.
func IssueFromError(err error) SchemaIssue {
	return issueFromError(err)
}

func invalid(issue SchemaIssue) SchemaValidationResult {
	return SchemaValidationResult{Valid: false, Issues: []SchemaIssue{issue}}
}

func issueFromError(err error) SchemaIssue {
	if err == nil {
		return SchemaIssue{Message: "unknown error"}
	}
	var parseErr *schema.ParseError
	if errors.As(err, &parseErr) {
		msg := strings.TrimSpace(parseErr.Message)
		if parseErr.Cause != nil {
			msg += ": " + parseErr.Cause.Error()
		}
		return SchemaIssue{
			Source:  parseErr.Source,
			Field:   parseErr.Field,
			Message: msg,
		}
	}

	msg := strings.TrimSpace(err.Error())
	msg = strings.TrimPrefix(msg, "schema: ")
	msg = strings.TrimPrefix(msg, "catalog: ")
	return SchemaIssue{Message: strings.TrimSpace(msg)}
}
