package schema_test

import (
	"errors"
	"testing"

	"github.com/goliatone/go-jobform/pkg/schema"
)

func TestDocumentFormat(t *testing.T) {
	cases := []struct {
		location string
		raw      string
		want     schema.Format
	}{
		{location: "jobs/report.json", raw: "job_name: x", want: schema.FormatJSON},
		{location: "jobs/refresh.YML", raw: `{"job_name": "x"}`, want: schema.FormatYAML},
		{location: "inline", raw: "  {\"job_name\": \"x\"}", want: schema.FormatJSON},
		{location: "inline", raw: "job_name: x", want: schema.FormatYAML},
	}
	for _, tc := range cases {
		doc := schema.MustNewDocument(schema.SourceFromFS(tc.location), []byte(tc.raw))
		if got := doc.Format(); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.location, tc.want, got)
		}
	}
}

func TestDocumentCopiesPayload(t *testing.T) {
	raw := []byte("job_name: refresh")
	doc := schema.MustNewDocument(schema.SourceFromFS("a.yaml"), raw)
	raw[0] = 'X'
	if string(doc.Raw()) != "job_name: refresh" {
		t.Fatalf("document shares the caller's buffer")
	}
	if doc.Empty() {
		t.Fatalf("expected non-empty document")
	}
	if !schema.MustNewDocument(schema.SourceFromFS("b.yaml"), []byte(" \n\t")).Empty() {
		t.Fatalf("expected whitespace-only document to be empty")
	}
}

func TestParse_InvalidJSONNamesFormat(t *testing.T) {
	_, err := schema.ParseBytes("broken.json", []byte(`{"job_name": `))
	var perr *schema.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if perr.Message != "invalid JSON" {
		t.Fatalf("unexpected message %q", perr.Message)
	}
}

func TestNewDocumentRequiresSource(t *testing.T) {
	if _, err := schema.NewDocument(nil, []byte("x")); err == nil {
		t.Fatalf("expected error for nil source")
	}
}
