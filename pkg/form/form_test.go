package form_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-jobform/pkg/form"
	"github.com/goliatone/go-jobform/pkg/schema"
	"github.com/goliatone/go-jobform/pkg/validation"
)

func ptr[T any](v T) *T { return &v }

func sampleSchema() schema.ParameterSchema {
	return schema.ParameterSchema{
		JobName: "sample_job",
		Parameters: []schema.Field{
			{Name: "param1", Type: schema.FieldTypeText, Required: true},
			{Name: "param2", Type: schema.FieldTypeInteger, Required: true,
				Validation: schema.Rule{Min: ptr(1.0), Max: ptr(1000.0)}},
			{Name: "env", Type: schema.FieldTypeEnum, Options: []string{"dev", "prod"}},
		},
	}
}

func TestSubmit_Success(t *testing.T) {
	got, err := form.Submit(sampleSchema(), map[string]string{"param1": "abc", "param2": "500"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	want := form.Submission{
		JobName: "sample_job",
		Entries: []form.Entry{
			{Name: "param1", Value: validation.TextValue(schema.FieldTypeText, "abc")},
			{Name: "param2", Value: validation.IntValue(500)},
			{Name: "env", Value: validation.Absent(schema.FieldTypeEnum)},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("submission mismatch (-want +got):\n%s", diff)
	}

	env, ok := got.Get("env")
	if !ok || env.Present {
		t.Fatalf("optional empty field should be an explicit absence, got %#v (ok=%v)", env, ok)
	}
}

func TestSubmit_MaxExceeded(t *testing.T) {
	_, err := form.Submit(sampleSchema(), map[string]string{"param1": "abc", "param2": "5000"})
	var verr *form.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *form.ValidationError, got %v", err)
	}
	if diff := cmp.Diff(form.FieldErrors{"param2": "max exceeded (1000)"}, verr.Fields); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmit_AggregatesAllErrors(t *testing.T) {
	_, err := form.Submit(sampleSchema(), map[string]string{"param2": "x", "env": "qa", "ignored": "1"})
	var verr *form.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *form.ValidationError, got %v", err)
	}
	want := form.FieldErrors{
		"param1": "required",
		"param2": "not a number",
		"env":    "not a valid option",
	}
	if diff := cmp.Diff(want, verr.Fields); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(err.Error(), "3 invalid field(s)") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestSubmit_TwoOfThreeInvalid(t *testing.T) {
	_, err := form.Submit(sampleSchema(), map[string]string{"param1": "ok", "param2": "0", "env": "qa"})
	var verr *form.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *form.ValidationError, got %v", err)
	}
	if len(verr.Fields) != 2 {
		t.Fatalf("expected exactly 2 errors, got %#v", verr.Fields)
	}
}

func TestUnknown(t *testing.T) {
	got := form.Unknown(sampleSchema(), map[string]string{"zeta": "1", "param1": "x", "alpha": "2"})
	if diff := cmp.Diff([]string{"alpha", "zeta"}, got); diff != "" {
		t.Fatalf("unknown mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmission_MarshalJSON(t *testing.T) {
	sub, err := form.Submit(sampleSchema(), map[string]string{"param1": "abc", "param2": "7", "env": "dev"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	raw, err := json.Marshal(sub)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got, want := string(raw), `{"env":"dev","param1":"abc","param2":7}`; got != want {
		t.Fatalf("json mismatch: want %s got %s", want, got)
	}
}

func TestForm_ChecksAnswersOneAtATime(t *testing.T) {
	f := form.New(sampleSchema())
	if f.Set("nope", "x") {
		t.Fatalf("undeclared field should be rejected")
	}
	f.Set("param1", "abc")
	f.Set("param2", "5000")

	if res := f.CheckField("param2"); res.Valid() {
		t.Fatalf("expected param2 to be rejected")
	}
	if f.Value("param2") != "5000" {
		t.Fatalf("raw value should be kept after a rejected answer")
	}
	if f.Error("param2") != "max exceeded (1000)" {
		t.Fatalf("unexpected error %q", f.Error("param2"))
	}

	f.Set("param2", "10")
	if res := f.CheckField("param2"); !res.Valid() {
		t.Fatalf("expected param2 to validate, got %q", res.Reason)
	}
	if f.Error("param2") != "" {
		t.Fatalf("CheckField should clear the error, got %q", f.Error("param2"))
	}
	if res := f.CheckField("nope"); res.Valid() {
		t.Fatalf("undeclared field should not validate")
	}

	sub, err := form.Submit(sampleSchema(), f.Values())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if v, _ := sub.Get("param2"); v.Int != 10 {
		t.Fatalf("unexpected value %#v", v)
	}
}
