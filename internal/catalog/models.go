package catalog

import "path/filepath"

// FileRecord is one catalogued file instance. An empty Hash means the content
// digest has not been computed yet.
type FileRecord struct {
	Source string
	Path   string
	Name   string
	Size   int64
	Hash   string
}

// HasHash reports whether the record carries a content digest.
func (r FileRecord) HasHash() bool {
	return r.Hash != ""
}

// FullPath joins source, relative directory, and name into the on-disk location.
func (r FileRecord) FullPath() string {
	return filepath.Join(r.Source, r.Path, r.Name)
}

// RelativePath joins the directory and base name relative to Source.
func (r FileRecord) RelativePath() string {
	return filepath.Join(r.Path, r.Name)
}

// NameSizeGroup is one (name, size) pair that occurs more than once in a catalogue.
type NameSizeGroup struct {
	Name  string
	Size  int64
	Count int
}

// Info summarizes a catalogue for diagnostic output.
type Info struct {
	Path    string
	Version int
	Records int64
	Hashed  int64
	Sources []string
}

type recordKey struct {
	source string
	path   string
	name   string
}

func keyOf(r FileRecord) recordKey {
	return recordKey{source: r.Source, path: r.Path, name: r.Name}
}
