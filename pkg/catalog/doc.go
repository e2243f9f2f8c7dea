// Package catalog loads a directory of job parameter schema documents into a
// read-only lookup table. Documents that fail to parse, and job names that
// more than one document claims, are reported without affecting the rest.
package catalog
