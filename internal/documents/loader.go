// Package documents reads the plain-text corpus from the data directory.
package documents

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Document is one corpus file. Name is the file's base name.
type Document struct {
	Name string
	Text string
}

// Loader reads every supported file directly under Dir.
type Loader struct {
	Dir string
}

// NewLoader creates a Loader for dir.
func NewLoader(dir string) *Loader {
	return &Loader{Dir: dir}
}

// SupportedExtensions returns the file extensions the loader reads.
func SupportedExtensions() []string {
	return []string{".txt", ".md", ".markdown"}
}

// IsSupported reports whether path has a supported extension.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions() {
		if ext == e {
			return true
		}
	}
	return false
}

// Load returns the documents sorted by name. Subdirectories and other file
// types are skipped. A missing directory is an error.
func (l *Loader) Load(ctx context.Context) ([]Document, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, fmt.Errorf("reading data dir %s: %w", l.Dir, err)
	}

	docs := make([]Document, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.Type().IsRegular() || !IsSupported(entry.Name()) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(l.Dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		docs = append(docs, Document{Name: entry.Name(), Text: string(data)})
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}
