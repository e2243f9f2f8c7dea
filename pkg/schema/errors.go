package schema

import "fmt"

// ParseError reports a malformed schema document. Source identifies the
// document (file path or fs.FS name); Field is set when the problem is scoped
// to a single parameter.
type ParseError struct {
	Source  string
	Field   string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	location := e.Source
	if location == "" {
		location = "<unknown>"
	}
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("parameter %q: %s", e.Field, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("schema: %s: %s: %v", location, msg, e.Cause)
	}
	return fmt.Sprintf("schema: %s: %s", location, msg)
}

func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func parseErrorf(source, field, format string, args ...any) *ParseError {
	return &ParseError{
		Source:  source,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}
