package schema

import (
	"path/filepath"
)

// Source names where a schema document came from. Location is what failure
// reports and the picker show to operators.
type Source interface {
	Location() string
}

type fileSource string

func (s fileSource) Location() string {
	return string(s)
}

// SourceFromFile returns a Source for a path on disk.
func SourceFromFile(path string) Source {
	return fileSource(filepath.Clean(path))
}

type fsSource string

func (s fsSource) Location() string {
	return string(s)
}

// SourceFromFS returns a Source for an entry inside an fs.FS.
func SourceFromFS(name string) Source {
	return fsSource(name)
}
