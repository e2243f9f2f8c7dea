package catalog_test

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-jobform/pkg/catalog"
	"github.com/goliatone/go-jobform/pkg/schema"
)

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestLoadDir_Valid(t *testing.T) {
	cat, err := catalog.LoadDir(filepath.Join("testdata", "valid"), catalog.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cat.Err() != nil {
		t.Fatalf("unexpected load failures: %v", cat.Err())
	}

	if diff := cmp.Diff([]string{"inventory_refresh", "daily_report"}, cat.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	got, err := cat.Get("inventory_refresh")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Source != filepath.Join("testdata", "valid", "a_refresh.yaml") {
		t.Fatalf("source mismatch: %q", got.Source)
	}
	if len(cat.All()) != 2 || cat.Len() != 2 {
		t.Fatalf("expected 2 schemas, got %d", cat.Len())
	}
}

func TestLoadDir_KeepsValidSchemasWhenOthersFail(t *testing.T) {
	cat, err := catalog.LoadDir(filepath.Join("testdata", "mixed"), catalog.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if diff := cmp.Diff([]string{"inventory_refresh", "export"}, cat.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	failures := cat.Failures()
	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %#v", failures)
	}
	if failures[0].Source != filepath.Join("testdata", "mixed", "broken.yaml") {
		t.Fatalf("failure source mismatch: %q", failures[0].Source)
	}
	var parseErr *schema.ParseError
	if !errors.As(failures[0].Err, &parseErr) {
		t.Fatalf("expected *schema.ParseError, got %T", failures[0].Err)
	}

	var merr *multierror.Error
	if !errors.As(cat.Err(), &merr) || len(merr.Errors) != 1 {
		t.Fatalf("expected aggregated error with one entry, got %v", cat.Err())
	}
}

func TestLoadDir_DuplicateJobName(t *testing.T) {
	cat, err := catalog.LoadDir(filepath.Join("testdata", "duplicate"), catalog.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cat.Len() != 0 {
		t.Fatalf("duplicate schemas must not be served, got %v", cat.Names())
	}
	if cat.Has("inventory_refresh") {
		t.Fatalf("duplicate job should be disabled")
	}

	_, err = cat.Get("inventory_refresh")
	var dup *catalog.DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("expected *catalog.DuplicateError, got %v", err)
	}
	want := []string{
		filepath.Join("testdata", "duplicate", "one.yaml"),
		filepath.Join("testdata", "duplicate", "two.yaml"),
	}
	if diff := cmp.Diff(want, dup.Sources); diff != "" {
		t.Fatalf("sources mismatch (-want +got):\n%s", diff)
	}
	if len(cat.Failures()) != 2 {
		t.Fatalf("expected a failure per conflicting file, got %#v", cat.Failures())
	}
	if got := cat.Err().Error(); strings.Count(got, "declared by multiple documents") != 1 {
		t.Fatalf("duplicate should be reported once: %s", got)
	}
}

func TestLoadDir_Missing(t *testing.T) {
	if _, err := catalog.LoadDir(filepath.Join("testdata", "nope")); err == nil {
		t.Fatalf("expected error for missing directory")
	}
	if _, err := catalog.LoadDir(filepath.Join("testdata", "valid", "a_refresh.yaml")); err == nil {
		t.Fatalf("expected error for file path")
	}
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"jobs/a.yaml":   {Data: []byte("job_name: a\nparameters: []\n")},
		"jobs/b.txt":    {Data: []byte("not a schema")},
		"jobs/c.custom": {Data: []byte("job_name: c\nparameters: []\n")},
	}

	cat, err := catalog.LoadFS(fsys, catalog.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff([]string{"a"}, cat.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	custom, err := catalog.LoadFS(fsys, catalog.WithLogger(quietLogger()), catalog.WithExtensions("custom"))
	if err != nil {
		t.Fatalf("load custom: %v", err)
	}
	got, err := custom.Get("c")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Source != "jobs/c.custom" {
		t.Fatalf("source mismatch: %q", got.Source)
	}
}

func TestGet_NotFound(t *testing.T) {
	cat, err := catalog.LoadFS(nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := cat.Get("missing"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if cat.Err() != nil {
		t.Fatalf("empty catalog should have no error")
	}
}
