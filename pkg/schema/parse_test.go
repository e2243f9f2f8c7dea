package schema_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-jobform/pkg/schema"
)

func loadTestdata(t *testing.T, name string) schema.Document {
	t.Helper()
	path := filepath.Join("testdata", name)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return schema.MustNewDocument(schema.SourceFromFile(path), raw)
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func datePtr(v civil.Date) *civil.Date { return &v }

func TestParse_YAML(t *testing.T) {
	got, err := schema.Parse(loadTestdata(t, "inventory_refresh.yaml"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := schema.ParameterSchema{
		JobName:     "inventory_refresh",
		DisplayName: "Inventory refresh",
		Description: "Rebuilds the inventory snapshot for a warehouse.",
		Source:      filepath.Join("testdata", "inventory_refresh.yaml"),
		Parameters: []schema.Field{
			{Name: "warehouse", Type: schema.FieldTypeEnum, Label: "Warehouse", Required: true, Options: []string{"north", "south", "3"}},
			{Name: "batch_size", Type: schema.FieldTypeInteger, Label: "Batch size", Required: true, Validation: schema.Rule{Min: floatPtr(1), Max: floatPtr(1000)}},
			{Name: "sample_rate", Type: schema.FieldTypeDecimal, Label: "sample_rate", Validation: schema.Rule{Min: floatPtr(0), Max: floatPtr(0.5)}},
			{Name: "as_of", Type: schema.FieldTypeDate, Label: "As of", Validation: schema.Rule{
				MinDate: datePtr(civil.Date{Year: 2020, Month: 1, Day: 1}),
				MaxDate: datePtr(civil.Date{Year: 2030, Month: 12, Day: 31}),
			}},
			{Name: "note", Type: schema.FieldTypeText, Label: "Note", Validation: schema.Rule{MaxLength: intPtr(20)}},
		},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("schema mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_JSONDefaults(t *testing.T) {
	got, err := schema.Parse(loadTestdata(t, "report.json"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.DisplayName != "daily_report" {
		t.Fatalf("display name should default to job_name, got %q", got.DisplayName)
	}
	field, ok := got.Field("region")
	if !ok {
		t.Fatalf("region field missing")
	}
	if field.Label != "region" || !field.Required || !field.Validation.Empty() {
		t.Fatalf("unexpected field: %#v", field)
	}
	if diff := cmp.Diff([]string{"region"}, got.FieldNames()); diff != "" {
		t.Fatalf("field names mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		field   string
		message string
	}{
		{
			name:    "empty document",
			payload: "   \n",
			message: "document is empty",
		},
		{
			name:    "not a mapping",
			payload: "- a\n- b\n",
			message: "document must be a mapping",
		},
		{
			name:    "missing job_name",
			payload: "parameters: []\n",
			message: "job_name",
		},
		{
			name:    "missing parameters",
			payload: "job_name: x\n",
			message: "parameters",
		},
		{
			name:    "blank job_name",
			payload: "job_name: '  '\nparameters: []\n",
			message: "job_name is required",
		},
		{
			name: "unknown type",
			payload: `job_name: x
parameters:
  - name: a
    type: boolean
`,
			field:   "a",
			message: `unknown type "boolean"`,
		},
		{
			name: "invalid identifier",
			payload: `job_name: x
parameters:
  - name: 1abc
    type: text
`,
			field:   "1abc",
			message: "valid identifier",
		},
		{
			name: "duplicate parameter",
			payload: `job_name: x
parameters:
  - name: a
    type: text
  - name: a
    type: integer
`,
			field:   "a",
			message: "duplicate parameter name",
		},
		{
			name: "enum without options",
			payload: `job_name: x
parameters:
  - name: a
    type: enum
`,
			field:   "a",
			message: "non-empty options",
		},
		{
			name: "enum duplicate options",
			payload: `job_name: x
parameters:
  - name: a
    type: enum
    options: [x, y, x]
`,
			field:   "a",
			message: `duplicate option "x"`,
		},
		{
			name: "enum empty option",
			payload: `job_name: x
parameters:
  - name: a
    type: enum
    options: [x, ""]
`,
			field:   "a",
			message: "empty values",
		},
		{
			name: "options on text",
			payload: `job_name: x
parameters:
  - name: a
    type: text
    options: [x]
`,
			field:   "a",
			message: "only allowed on enum",
		},
		{
			name: "rule not legal for type",
			payload: `job_name: x
parameters:
  - name: a
    type: text
    validation:
      min: 1
`,
			field:   "a",
			message: `validation rule "min" is not valid for text fields`,
		},
		{
			name: "rule on enum",
			payload: `job_name: x
parameters:
  - name: a
    type: enum
    options: [x]
    validation:
      max_length: 3
`,
			field:   "a",
			message: "not valid for enum fields",
		},
		{
			name: "non positive max_length",
			payload: `job_name: x
parameters:
  - name: a
    type: text
    validation:
      max_length: 0
`,
			field:   "a",
			message: "max_length must be a positive integer",
		},
		{
			name: "non numeric bound",
			payload: `job_name: x
parameters:
  - name: a
    type: decimal
    validation:
      max: lots
`,
			field:   "a",
			message: "max must be numeric",
		},
		{
			name: "integer bound beyond exact range",
			payload: `job_name: x
parameters:
  - name: a
    type: integer
    validation:
      max: 9007199254740993
`,
			field:   "a",
			message: "max must be between -9007199254740992 and 9007199254740992 for integer fields",
		},
		{
			name: "inverted numeric bounds",
			payload: `job_name: x
parameters:
  - name: a
    type: integer
    validation:
      min: 10
      max: 2.5
`,
			field:   "a",
			message: "min (10) is greater than max (2.5)",
		},
		{
			name: "bad date bound",
			payload: `job_name: x
parameters:
  - name: a
    type: date
    validation:
      min_date: 2020-13-01
`,
			field:   "a",
			message: "min_date must be a calendar date",
		},
		{
			name: "inverted date bounds",
			payload: `job_name: x
parameters:
  - name: a
    type: date
    validation:
      min_date: 2031-01-01
      max_date: 2030-12-31
`,
			field:   "a",
			message: "min_date (2031-01-01) is after max_date (2030-12-31)",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := schema.ParseBytes("inline.yaml", []byte(tc.payload))
			if err == nil {
				t.Fatalf("expected error, got schema %#v", got)
			}
			var parseErr *schema.ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected *schema.ParseError, got %T: %v", err, err)
			}
			if parseErr.Source != "inline.yaml" {
				t.Fatalf("source mismatch: %q", parseErr.Source)
			}
			if parseErr.Field != tc.field {
				t.Fatalf("field mismatch: want %q got %q", tc.field, parseErr.Field)
			}
			if !strings.Contains(err.Error(), tc.message) {
				t.Fatalf("expected error to mention %q, got %v", tc.message, err)
			}
			if got.JobName != "" || got.Parameters != nil {
				t.Fatalf("no partial schema expected, got %#v", got)
			}
		})
	}
}

func TestParseError_Format(t *testing.T) {
	err := &schema.ParseError{Source: "jobs/a.yaml", Field: "n", Message: "bad"}
	if got, want := err.Error(), `schema: jobs/a.yaml: parameter "n": bad`; got != want {
		t.Fatalf("error format mismatch: want %q got %q", want, got)
	}

	cause := errors.New("boom")
	wrapped := &schema.ParseError{Message: "decode", Cause: cause}
	if !errors.Is(wrapped, cause) {
		t.Fatalf("expected cause to unwrap")
	}
	if got := wrapped.Error(); got != "schema: <unknown>: decode: boom" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestFormatNumber(t *testing.T) {
	cases := map[float64]string{1000: "1000", 2.5: "2.5", -3: "-3", 0.1: "0.1", 1e21: "1000000000000000000000"}
	for in, want := range cases {
		if got := schema.FormatNumber(in); got != want {
			t.Fatalf("FormatNumber(%v) = %q, want %q", in, got, want)
		}
	}
}
