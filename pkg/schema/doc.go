// Package schema defines the job parameter schema model and turns raw schema
// documents (YAML or JSON, one job per document) into immutable
// ParameterSchema values.
//
// A document names the job it targets (`job_name`), an optional display name
// and description, and the ordered list of parameters the job accepts. Each
// parameter declares a submission key, one of five field types (text,
// integer, decimal, date, enum), a label, whether it is required, and a rule
// set whose legal keys depend on the type:
//
//	text:             max_length
//	integer, decimal: min, max
//	date:             min_date, max_date
//	enum:             none (membership in options is the rule)
//
// Parse rejects anything it cannot represent faithfully with a *ParseError
// that carries the document location, so a loader can report the broken file
// and keep serving the others.
package schema
