package schema

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// rootField is how gojsonschema names the document root in result errors.
const rootField = "(root)"

//go:embed document.schema.json
var documentSchemaJSON []byte

var (
	documentSchemaOnce sync.Once
	documentSchema     *gojsonschema.Schema
	documentSchemaErr  error
)

func compiledDocumentSchema() (*gojsonschema.Schema, error) {
	documentSchemaOnce.Do(func() {
		documentSchema, documentSchemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(documentSchemaJSON))
	})
	return documentSchema, documentSchemaErr
}

// checkStructure validates the generic decoding of a document against the
// embedded document schema. It catches missing keys and wrongly typed values
// before the typed decode, so the reported messages point at the offending
// key instead of a YAML unmarshal error.
func checkStructure(source string, generic any) error {
	compiled, err := compiledDocumentSchema()
	if err != nil {
		return &ParseError{Source: source, Message: "document schema unavailable", Cause: err}
	}

	result, err := compiled.Validate(gojsonschema.NewGoLoader(generic))
	if err != nil {
		return &ParseError{Source: source, Message: "document is not a mapping of scalar keys", Cause: err}
	}
	if result.Valid() {
		return nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, issue := range result.Errors() {
		issues = append(issues, formatIssue(issue))
	}
	sort.Strings(issues)
	return &ParseError{Source: source, Message: strings.Join(issues, "; ")}
}

func formatIssue(issue gojsonschema.ResultError) string {
	field := issue.Field()
	if field == "" || field == rootField {
		return issue.Description()
	}
	return fmt.Sprintf("%s: %s", field, issue.Description())
}
