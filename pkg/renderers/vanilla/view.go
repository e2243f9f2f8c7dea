package vanilla

import (
	"strconv"
	"strings"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-jobform/pkg/jobs"
	"github.com/goliatone/go-jobform/pkg/render"
	"github.com/goliatone/go-jobform/pkg/schema"
)

type pageView struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Locale      string        `json:"locale"`
	Stylesheet  string        `json:"stylesheet"`
	InlineCSS   string        `json:"inline_css"`
	Theme       themeView     `json:"theme"`
	FormErrors  []string      `json:"form_errors"`
	Form        *formView     `json:"form,omitempty"`
	Picker      *pickerView   `json:"picker,omitempty"`
	Run         *runView      `json:"run,omitempty"`
	Hidden      []hiddenInput `json:"hidden"`
}

type themeView struct {
	Name    string `json:"name"`
	Variant string `json:"variant"`
	Style   string `json:"style"`
}

type formView struct {
	JobName string      `json:"job_name"`
	Action  string      `json:"action"`
	Method  string      `json:"method"`
	Target  string      `json:"target"`
	Fields  []fieldView `json:"fields"`
}

type fieldView struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Label     string       `json:"label"`
	Type      string       `json:"type"`
	Control   string       `json:"control"`
	InputType string       `json:"input_type"`
	Step      string       `json:"step"`
	Min       string       `json:"min"`
	Max       string       `json:"max"`
	MaxLength string       `json:"max_length"`
	Required  bool         `json:"required"`
	Value     string       `json:"value"`
	Options   []optionView `json:"options"`
	Hint      string       `json:"hint"`
	Errors    []string     `json:"errors"`
}

type optionView struct {
	Value    string `json:"value"`
	Selected bool   `json:"selected"`
}

type hiddenInput struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type runView struct {
	RunID       string `json:"run_id"`
	JobID       string `json:"job_id"`
	NumberInJob string `json:"number_in_job"`
	URL         string `json:"url"`
}

type pickerView struct {
	Requested string           `json:"requested"`
	Jobs      []pickerJobView  `json:"jobs"`
	Problems  []render.Problem `json:"problems"`
}

type pickerJobView struct {
	JobName     string   `json:"job_name"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description"`
	Link        string   `json:"link"`
	Parameters  []string `json:"parameters"`
}

func buildFormView(s schema.ParameterSchema, opts render.RenderOptions) *formView {
	method := strings.ToUpper(strings.TrimSpace(opts.Method))
	if method == "" {
		method = "POST"
	}
	view := &formView{
		JobName: s.JobName,
		Action:  opts.Action,
		Method:  method,
		Target:  opts.Target,
		Fields:  make([]fieldView, 0, len(s.Parameters)),
	}
	for _, field := range s.Parameters {
		view.Fields = append(view.Fields, buildFieldView(field, opts.Values[field.Name], opts.Errors[field.Name]))
	}
	return view
}

func buildFieldView(field schema.Field, value string, errs []string) fieldView {
	view := fieldView{
		ID:       "jf-" + field.Name,
		Name:     field.Name,
		Label:    field.Label,
		Type:     string(field.Type),
		Control:  "input",
		Required: field.Required,
		Value:    value,
		Hint:     render.Hint(field),
		Errors:   errs,
	}
	rule := field.Validation

	switch field.Type {
	case schema.FieldTypeInteger, schema.FieldTypeDecimal:
		view.InputType = "number"
		view.Step = "1"
		if field.Type == schema.FieldTypeDecimal {
			view.Step = "any"
		}
		if rule.Min != nil {
			view.Min = schema.FormatNumber(*rule.Min)
		}
		if rule.Max != nil {
			view.Max = schema.FormatNumber(*rule.Max)
		}
	case schema.FieldTypeDate:
		view.InputType = "date"
		if rule.MinDate != nil {
			view.Min = rule.MinDate.String()
		}
		if rule.MaxDate != nil {
			view.Max = rule.MaxDate.String()
		}
	case schema.FieldTypeEnum:
		view.Control = "select"
		for _, option := range field.Options {
			view.Options = append(view.Options, optionView{Value: option, Selected: option == value})
		}
	default:
		view.InputType = "text"
		if rule.MaxLength != nil {
			view.MaxLength = strconv.Itoa(*rule.MaxLength)
		}
	}
	return view
}

func buildRunView(handle *jobs.RunHandle) *runView {
	if handle == nil {
		return nil
	}
	view := &runView{
		RunID: handle.RunID,
		JobID: handle.JobID,
		URL:   handle.URL,
	}
	if handle.NumberInJob > 0 {
		view.NumberInJob = strconv.FormatInt(handle.NumberInJob, 10)
	}
	return view
}

func buildHidden(fields map[string]string) []hiddenInput {
	sorted := render.SortedHiddenFields(fields)
	out := make([]hiddenInput, 0, len(sorted))
	for _, field := range sorted {
		out = append(out, hiddenInput{Name: field.Name, Value: field.Value})
	}
	return out
}

func buildThemeView(cfg *theme.RendererConfig) (themeView, string) {
	if cfg == nil {
		return themeView{}, ""
	}
	stylesheet := ""
	if cfg.AssetURL != nil {
		stylesheet = cfg.AssetURL("stylesheet")
	}
	return themeView{
		Name:    cfg.Theme,
		Variant: cfg.Variant,
		Style:   render.CSSVarsStyle(cfg.CSSVars),
	}, stylesheet
}
