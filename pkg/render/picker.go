package render

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-jobform/pkg/catalog"
	"github.com/goliatone/go-jobform/pkg/schema"
)

// Picker is the data behind the job listing page.
type Picker struct {
	Jobs []JobSummary
	// Problems lists schema documents that failed to load.
	Problems []Problem
	// Requested is set when the page was reached with an unknown job name.
	Requested string
}

// JobSummary previews one schema in the picker.
type JobSummary struct {
	JobName     string             `json:"job_name"`
	DisplayName string             `json:"display_name"`
	Description string             `json:"description,omitempty"`
	Parameters  []ParameterSummary `json:"parameters"`
	Link        string             `json:"link"`
}

// ParameterSummary is the "label (type) *" preview of one field.
type ParameterSummary struct {
	Name     string           `json:"name"`
	Label    string           `json:"label"`
	Type     schema.FieldType `json:"type"`
	Required bool             `json:"required"`
}

func (p ParameterSummary) String() string {
	out := fmt.Sprintf("%s (%s)", p.Label, p.Type)
	if p.Required {
		out += " *"
	}
	return out
}

// Problem describes a schema document the catalog rejected.
type Problem struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// Summarize builds the picker entry for s. link formats the job's URL from
// its name; nil uses the "?job=<name>" routing signal.
func Summarize(s schema.ParameterSchema, link func(jobName string) string) JobSummary {
	if link == nil {
		link = QueryLink
	}
	summary := JobSummary{
		JobName:     s.JobName,
		DisplayName: s.DisplayName,
		Description: strings.TrimSpace(s.Description),
		Parameters:  make([]ParameterSummary, 0, len(s.Parameters)),
		Link:        link(s.JobName),
	}
	for _, field := range s.Parameters {
		summary.Parameters = append(summary.Parameters, ParameterSummary{
			Name:     field.Name,
			Label:    field.Label,
			Type:     field.Type,
			Required: field.Required,
		})
	}
	return summary
}

// NewPicker summarises every schema in c and lists its load failures.
func NewPicker(c *catalog.Catalog, requested string, link func(jobName string) string) Picker {
	picker := Picker{Requested: strings.TrimSpace(requested)}
	if c == nil {
		return picker
	}
	for _, s := range c.All() {
		picker.Jobs = append(picker.Jobs, Summarize(s, link))
	}
	for _, failure := range c.Failures() {
		picker.Problems = append(picker.Problems, Problem{Source: failure.Source, Message: Describe(failure.Err)})
	}
	return picker
}

// QueryLink is the default job link: "?job=<name>".
func QueryLink(jobName string) string {
	return "?" + url.Values{"job": []string{jobName}}.Encode()
}
