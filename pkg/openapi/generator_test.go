package openapi_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-jobform/pkg/openapi"
	"github.com/goliatone/go-jobform/pkg/schema"
	"github.com/goliatone/go-jobform/pkg/testsupport"
)

func loadRefresh(t *testing.T) schema.ParameterSchema {
	t.Helper()
	return testsupport.MustLoadSchema(t, filepath.Join("testdata", "refresh.yaml"))
}

func TestGenerator_BuildProducesValidDocument(t *testing.T) {
	s := loadRefresh(t)
	gen := openapi.NewGenerator(openapi.WithTitle("Ops jobs"), openapi.WithServerURL("https://jobs.example.com"))

	doc, err := gen.Build(context.Background(), []schema.ParameterSchema{s})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if doc.Info.Title != "Ops jobs" || len(doc.Servers) != 1 {
		t.Fatalf("unexpected info/servers: %+v %+v", doc.Info, doc.Servers)
	}

	list := doc.Paths.Value("/api/jobs")
	if list == nil || list.Get == nil || list.Get.OperationID != "list_jobs" {
		t.Fatalf("missing list operation: %+v", list)
	}

	item := doc.Paths.Value("/api/jobs/inventory_refresh/runs")
	if item == nil || item.Post == nil {
		t.Fatalf("missing run operation")
	}
	op := item.Post
	if op.OperationID != "run_inventory_refresh" || op.Summary != "Run Inventory refresh" {
		t.Fatalf("unexpected operation %q / %q", op.OperationID, op.Summary)
	}
	if source, _ := op.Extensions[openapi.ExtensionSource].(string); source == "" {
		t.Fatalf("expected source extension")
	}
	for _, code := range []int{201, 400, 404, 409, 422, 502} {
		if op.Responses.Status(code) == nil {
			t.Fatalf("missing %d response", code)
		}
	}

	body := op.RequestBody.Value.Content.Get("application/json").Schema.Value
	params := body.Properties["parameters"].Value
	if diff := cmp.Diff([]string{"warehouse", "ratio"}, params.Required); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"parameters"}, body.Required); diff != "" {
		t.Fatalf("body required mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerator_JSONRoundTrips(t *testing.T) {
	data, err := openapi.NewGenerator().JSON(context.Background(), []schema.ParameterSchema{loadRefresh(t)})
	if err != nil {
		t.Fatalf("json: %v", err)
	}

	loaded, err := openapi3.NewLoader().LoadFromData(data)
	if err != nil {
		t.Fatalf("load generated document: %v", err)
	}
	if err := loaded.Validate(context.Background()); err != nil {
		t.Fatalf("validate reloaded document: %v", err)
	}
	if loaded.Paths.Value("/api/jobs/inventory_refresh/runs") == nil {
		t.Fatalf("run path lost in round trip")
	}
}

func TestFieldSchema_Constraints(t *testing.T) {
	s := loadRefresh(t)
	props := map[string]*openapi3.Schema{}
	for _, field := range s.Parameters {
		prop, err := openapi.FieldSchema(field)
		if err != nil {
			t.Fatalf("field %s: %v", field.Name, err)
		}
		props[field.Name] = prop
	}

	warehouse := props["warehouse"]
	if !warehouse.Type.Is("string") || warehouse.Title != "Warehouse" {
		t.Fatalf("unexpected warehouse schema %+v", warehouse)
	}
	if diff := cmp.Diff([]any{"north", "south"}, warehouse.Enum); diff != "" {
		t.Fatalf("enum mismatch (-want +got):\n%s", diff)
	}

	batch := props["batch_size"]
	if !batch.Type.Is("integer") || *batch.Min != 1 || *batch.Max != 1000 {
		t.Fatalf("unexpected batch_size schema %+v", batch)
	}

	ratio := props["ratio"]
	if !ratio.Type.Is("number") || *ratio.Min != 0 || *ratio.Max != 1 {
		t.Fatalf("unexpected ratio schema %+v", ratio)
	}

	asOf := props["as_of"]
	if asOf.Format != "date" || asOf.Extensions[openapi.ExtensionMinDate] != "2020-01-01" {
		t.Fatalf("unexpected as_of schema %+v", asOf)
	}

	note := props["note"]
	if note.MaxLength == nil || *note.MaxLength != 40 || note.Title != "note" {
		t.Fatalf("unexpected note schema %+v", note)
	}
}

func TestGenerator_BasePathAndDuplicates(t *testing.T) {
	s := loadRefresh(t)
	gen := openapi.NewGenerator(openapi.WithBasePath("/v2/"))
	if got := gen.RunsPath("x"); got != "/v2/jobs/x/runs" {
		t.Fatalf("unexpected runs path %q", got)
	}
	if _, err := gen.Build(context.Background(), []schema.ParameterSchema{s, s}); err == nil {
		t.Fatalf("expected duplicate job error")
	}
}
