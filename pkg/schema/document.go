package schema

import (
	"bytes"
	"errors"
	"path"
	"strings"
)

// Format names the encoding of a schema document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Document is one schema payload paired with where it came from.
type Document struct {
	source Source
	raw    []byte
}

// NewDocument copies raw so later changes by the caller do not leak into the
// parsed schema.
func NewDocument(src Source, raw []byte) (Document, error) {
	if src == nil {
		return Document{}, errors.New("schema: source is required")
	}
	return Document{source: src, raw: bytes.Clone(raw)}, nil
}

// MustNewDocument is NewDocument for fixtures.
func MustNewDocument(src Source, raw []byte) Document {
	doc, err := NewDocument(src, raw)
	if err != nil {
		panic(err)
	}
	return doc
}

func (d Document) Source() Source {
	return d.source
}

// Raw returns a copy of the payload.
func (d Document) Raw() []byte {
	return bytes.Clone(d.raw)
}

// Empty reports a payload with nothing but whitespace.
func (d Document) Empty() bool {
	return len(bytes.TrimSpace(d.raw)) == 0
}

// Format guesses the encoding from the file extension, falling back to the
// first significant byte. JSON is a subset of YAML so both decode with the
// same parser; the format only shapes error messages.
func (d Document) Format() Format {
	switch strings.ToLower(path.Ext(d.Location())) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	}
	if trimmed := bytes.TrimSpace(d.raw); len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatYAML
}

// Location returns the document's file path or fs name.
func (d Document) Location() string {
	if d.source == nil {
		return ""
	}
	return d.source.Location()
}
