package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-jobform/pkg/catalog"
	"github.com/goliatone/go-jobform/pkg/form"
	"github.com/goliatone/go-jobform/pkg/jobs"
	"github.com/goliatone/go-jobform/pkg/orchestrator"
	"github.com/goliatone/go-jobform/pkg/render"
	"github.com/goliatone/go-jobform/pkg/schema"
	"github.com/goliatone/go-jobform/pkg/validation"
)

const maxBodyBytes = 1 << 20

type runRequest struct {
	Parameters map[string]any `json:"parameters"`
	Target     string         `json:"target"`
}

type runResponse struct {
	jobs.RunHandle
	Ignored []string `json:"ignored,omitempty"`
}

type errorResponse struct {
	Error  string            `json:"error"`
	Errors map[string]string `json:"errors,omitempty"`
}

type jobsResponse struct {
	Jobs     []render.JobSummary `json:"jobs"`
	Problems []render.Problem    `json:"problems"`
}

// StatusFor maps a pipeline error onto the HTTP status both the form and the
// JSON API answer with.
func StatusFor(err error) int {
	var (
		verr       *form.ValidationError
		notFound   *jobs.NotFoundError
		ambiguous  *jobs.AmbiguousError
		lookup     *jobs.LookupError
		submission *jobs.SubmissionError
		duplicate  *catalog.DuplicateError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, catalog.ErrNotFound), errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &ambiguous), errors.As(err, &duplicate):
		return http.StatusConflict
	case errors.As(err, &lookup), errors.As(err, &submission):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	requested := strings.TrimSpace(r.URL.Query().Get("job"))
	if requested == "" {
		s.renderPicker(w, r, "", http.StatusOK)
		return
	}
	s.renderJob(w, r, requested)
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	s.renderJob(w, r, chi.URLParam(r, "job"))
}

func (s *Server) renderJob(w http.ResponseWriter, r *http.Request, jobName string) {
	if _, err := s.orch.Catalog().Get(jobName); err != nil {
		s.renderPicker(w, r, jobName, StatusFor(err))
		return
	}
	s.renderForm(w, r, jobName, render.RenderOptions{Action: JobPath(jobName)}, http.StatusOK)
}

func (s *Server) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	jobName := chi.URLParam(r, "job")
	sch, err := s.orch.Catalog().Get(jobName)
	if err != nil {
		s.renderPicker(w, r, jobName, StatusFor(err))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form payload", http.StatusBadRequest)
		return
	}

	raw, target := render.FormValues(sch, r.PostForm)
	req := orchestrator.Request{JobName: jobName, Raw: raw, Target: target}
	outcome, err := s.orch.Submit(r.Context(), req)
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).WithField("job", jobName).Warn("form submission failed")
	}

	opts := orchestrator.ResultOptions(req, outcome, err, render.RenderOptions{Action: JobPath(jobName)})
	s.renderForm(w, r, jobName, opts, status)
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	jobName := chi.URLParam(r, "job")
	if _, err := s.orch.Catalog().Get(jobName); err != nil {
		writeJSON(w, StatusFor(err), errorResponse{Error: render.Describe(err)})
		return
	}

	var body runRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return
	}

	raw, err := stringParameters(body.Parameters)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	outcome, err := s.orch.Submit(r.Context(), orchestrator.Request{
		JobName: jobName,
		Raw:     raw,
		Target:  body.Target,
	})
	if err != nil {
		status := StatusFor(err)
		resp := errorResponse{Error: render.Describe(err)}
		if status == http.StatusUnprocessableEntity {
			resp.Errors = outcome.FieldErrors
		}
		if status >= http.StatusInternalServerError {
			s.logger.WithError(err).WithField("job", jobName).Warn("run request failed")
		}
		writeJSON(w, status, resp)
		return
	}

	writeJSON(w, http.StatusCreated, runResponse{RunHandle: outcome.Run, Ignored: outcome.Unknown})
}

func (s *Server) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	picker := render.NewPicker(s.orch.Catalog(), "", JobPath)
	resp := jobsResponse{Jobs: picker.Jobs, Problems: picker.Problems}
	if resp.Jobs == nil {
		resp.Jobs = []render.JobSummary{}
	}
	if resp.Problems == nil {
		resp.Problems = []render.Problem{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleValidateSchema lints a schema document posted as the raw body
// without adding it to the catalog. ?name= sets the reported location and
// its extension picks the format.
func (s *Server) handleValidateSchema(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "could not read the request body"})
		return
	}
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		name = "request.yaml"
	}

	result := validation.ValidateDocument(schema.SourceFromFS(name), raw)
	status := http.StatusOK
	if !result.Valid {
		status = http.StatusUnprocessableEntity
	} else if s.orch.Catalog().Has(result.JobName) {
		result.Issues = append(result.Issues, validation.SchemaIssue{
			Source:  name,
			Message: fmt.Sprintf("job_name %q is already served", result.JobName),
		})
	}
	writeJSON(w, status, result)
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	data, err := s.openapi.JSON(r.Context(), s.orch.Catalog().All())
	if err != nil {
		s.logger.WithError(err).Error("openapi generation failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not generate the API document"})
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, jobName string, opts render.RenderOptions, status int) {
	out, err := s.orch.RenderForm(r.Context(), orchestrator.RenderRequest{
		JobName:       jobName,
		Renderer:      s.renderer,
		RenderOptions: opts,
	})
	if err != nil {
		s.renderError(w, jobName, err)
		return
	}
	writeHTML(w, status, out)
}

func (s *Server) renderPicker(w http.ResponseWriter, r *http.Request, requested string, status int) {
	out, err := s.orch.RenderPicker(r.Context(), s.renderer, requested, nil, render.RenderOptions{})
	if err != nil {
		s.renderError(w, requested, err)
		return
	}
	writeHTML(w, status, out)
}

func (s *Server) renderError(w http.ResponseWriter, jobName string, err error) {
	s.logger.WithError(err).WithFields(logrus.Fields{"job": jobName}).Error("render failed")
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// stringParameters flattens JSON parameter values to the raw strings the
// validator expects. Numbers keep their literal text.
func stringParameters(in map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(in))
	for name, v := range in {
		switch value := v.(type) {
		case nil:
			out[name] = ""
		case string:
			out[name] = value
		case json.Number:
			out[name] = value.String()
		default:
			return nil, fmt.Errorf("parameter %q: expected a string or a number, got %T", name, v)
		}
	}
	return out, nil
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}
