package tui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-jobform/pkg/form"
	"github.com/goliatone/go-jobform/pkg/render"
	"github.com/goliatone/go-jobform/pkg/testsupport"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	confirm      []bool
	inputPos     int
	selectPos    int
	confirmPos   int
	prompts      []InputConfig
	selects      []SelectConfig
	infoMessages []string
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	s.prompts = append(s.prompts, cfg)
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, _ ConfirmConfig) (bool, error) {
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	s.selects = append(s.selects, cfg)
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

func newTestRenderer(t *testing.T, driver PromptDriver, opts ...Option) *Renderer {
	t.Helper()
	r, err := New(append([]Option{WithPromptDriver(driver)}, opts...)...)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return r
}

func TestCollect_PromptsByTypeAndFeedsSubmit(t *testing.T) {
	s := testsupport.MustLoadSchema(t, filepath.Join("testdata", "backfill.yaml"))
	driver := &stubDriver{
		inputs:    []string{"7", "2024-03-01"},
		selectIdx: []int{2},
	}

	values, err := newTestRenderer(t, driver).Collect(context.Background(), s, render.RenderOptions{})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}

	want := map[string]string{"days": "7", "region": "us", "start": "2024-03-01"}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if got := driver.prompts[0]; got.Message != "Days *" || got.Help != "Between 1 and 30" {
		t.Fatalf("unexpected days prompt %+v", got)
	}
	if diff := cmp.Diff([]string{"(none)", "eu", "us"}, driver.selects[0].Options); diff != "" {
		t.Fatalf("optional enum options mismatch (-want +got):\n%s", diff)
	}

	submission, err := form.Submit(s, values)
	if err != nil {
		t.Fatalf("submit collected values: %v", err)
	}
	if submission.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", submission.Len())
	}
}

func TestCollect_RepromptsWithReason(t *testing.T) {
	s := testsupport.MustLoadSchema(t, filepath.Join("testdata", "backfill.yaml"))
	driver := &stubDriver{
		inputs:    []string{"", "abc", "99", "3", "2024-02-30", "2024-02-29"},
		selectIdx: []int{0},
	}

	values, err := newTestRenderer(t, driver).Collect(context.Background(), s, render.RenderOptions{})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if values["days"] != "3" || values["start"] != "2024-02-29" || values["region"] != "" {
		t.Fatalf("unexpected values %v", values)
	}

	wantInfo := []string{
		"Events backfill\nReplays raw events into the curated tables.",
		"Invalid Days: required",
		"Invalid Days: not a number",
		"Invalid Days: max exceeded (30)",
		"Invalid Start: not a date",
	}
	if diff := cmp.Diff(wantInfo, driver.infoMessages); diff != "" {
		t.Fatalf("info messages mismatch (-want +got):\n%s", diff)
	}
}

func TestCollect_PrefillAndCarriedErrors(t *testing.T) {
	s := testsupport.MustLoadSchema(t, filepath.Join("testdata", "backfill.yaml"))
	driver := &stubDriver{
		inputs:    []string{"12", "2024-01-01"},
		selectIdx: []int{1},
	}

	_, err := newTestRenderer(t, driver, WithTheme(Theme{ErrorPrefix: "! "})).Collect(context.Background(), s, render.RenderOptions{
		Values:     map[string]string{"days": "40", "region": "eu"},
		Errors:     map[string][]string{"days": {"max exceeded (30)"}},
		FormErrors: []string{"1 parameter(s) need attention"},
	})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if driver.prompts[0].Default != "40" {
		t.Fatalf("expected prefilled default, got %q", driver.prompts[0].Default)
	}
	if driver.selects[0].DefaultIndex != 1 {
		t.Fatalf("expected eu preselected, got %d", driver.selects[0].DefaultIndex)
	}
	testsupport.AssertContains(t, strings.Join(driver.infoMessages, "\n"),
		"! 1 parameter(s) need attention",
		"! Days: max exceeded (30)",
	)
}

func TestCollect_MaxAttempts(t *testing.T) {
	s := testsupport.MustLoadSchema(t, filepath.Join("testdata", "backfill.yaml"))
	driver := &stubDriver{inputs: []string{"0", "0"}}

	_, err := newTestRenderer(t, driver, WithMaxAttempts(2)).Collect(context.Background(), s, render.RenderOptions{})
	var attemptsErr *AttemptsError
	if !errors.As(err, &attemptsErr) {
		t.Fatalf("expected AttemptsError, got %v", err)
	}
	if attemptsErr.Field != "days" || attemptsErr.Reason != "min not met (1)" {
		t.Fatalf("unexpected attempts error %+v", attemptsErr)
	}
}

func TestCollect_PropagatesAbort(t *testing.T) {
	s := testsupport.MustLoadSchema(t, filepath.Join("testdata", "backfill.yaml"))
	driver := abortingDriver{&stubDriver{}}

	_, err := newTestRenderer(t, driver).Collect(context.Background(), s, render.RenderOptions{})
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
}

func TestRender_OutputFormats(t *testing.T) {
	s := testsupport.MustLoadSchema(t, filepath.Join("testdata", "backfill.yaml"))

	cases := []struct {
		format      OutputFormat
		contentType string
		want        string
	}{
		{OutputFormatJSON, "application/json", `{"days":"5","start":"2024-03-01"}`},
		{OutputFormatFormURLEncoded, "application/x-www-form-urlencoded", "days=5&start=2024-03-01"},
		{OutputFormatPrettyText, "text/plain", "Days: 5\nRegion: -\nStart: 2024-03-01\n"},
	}
	for _, tc := range cases {
		t.Run(string(tc.format), func(t *testing.T) {
			driver := &stubDriver{inputs: []string{"5", "2024-03-01"}, selectIdx: []int{0}}
			r := newTestRenderer(t, driver, WithOutputFormat(tc.format))
			if r.ContentType() != tc.contentType {
				t.Fatalf("content type: want %q got %q", tc.contentType, r.ContentType())
			}
			out, err := r.Render(context.Background(), s, render.RenderOptions{})
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if string(out) != tc.want {
				t.Fatalf("output mismatch\nwant: %q\n got: %q", tc.want, string(out))
			}
		})
	}
}

func TestConfirmSubmit(t *testing.T) {
	s := testsupport.MustLoadSchema(t, filepath.Join("testdata", "backfill.yaml"))
	values := map[string]string{"days": "5", "start": "2024-03-01"}

	yes := &stubDriver{confirm: []bool{true}}
	if err := newTestRenderer(t, yes).ConfirmSubmit(context.Background(), s, values, "dev"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	testsupport.AssertContains(t, strings.Join(yes.infoMessages, "\n"), "Days: 5", "Region: -")

	no := &stubDriver{confirm: []bool{false}}
	if err := newTestRenderer(t, no).ConfirmSubmit(context.Background(), s, values, "dev"); !errors.Is(err, ErrDeclined) {
		t.Fatalf("expected ErrDeclined, got %v", err)
	}
}

type abortingDriver struct {
	*stubDriver
}

func (abortingDriver) Input(context.Context, InputConfig) (string, error) {
	return "", ErrAborted
}

func TestState_TracksAnswersThroughForm(t *testing.T) {
	s := testsupport.MustLoadSchema(t, filepath.Join("testdata", "backfill.yaml"))
	state := NewState(s,
		map[string]string{"days": "40", "color": "blue"},
		map[string][]string{"days": {"must be at most 30"}},
	)

	if got := state.ErrorsFor("days"); len(got) != 1 || got[0] != "must be at most 30" {
		t.Fatalf("expected carried-over error, got %v", got)
	}
	if res := state.Answer("days", "0"); res.Valid() {
		t.Fatalf("expected 0 days to be rejected")
	}
	if got := state.ErrorsFor("days"); len(got) != 1 || got[0] == "must be at most 30" {
		t.Fatalf("expected the new rejection reason, got %v", got)
	}
	if res := state.Answer("days", "7"); !res.Valid() {
		t.Fatalf("expected 7 days to be accepted: %s", res.Reason)
	}
	if got := state.ErrorsFor("days"); got != nil {
		t.Fatalf("expected no errors after a valid answer, got %v", got)
	}

	want := map[string]string{"days": "7", "color": "blue"}
	if diff := cmp.Diff(want, state.Values()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}
