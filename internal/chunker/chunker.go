// Package chunker splits document text into bounded, overlapping windows.
//
// Splitting is langchaingo's recursive character splitter: the first
// separator found in the text cuts it into pieces, pieces that are still too
// large are cut again with the remaining separators, and the pieces are then
// merged back into windows no longer than ChunkSize runes. Separators stay
// attached to the start of the piece that follows them.
package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// DefaultSeparators are paragraph break, line break and space, in that order.
var DefaultSeparators = []string{"\n\n", "\n", " "}

// Options controls window size and overlap, both measured in runes.
// An empty-string separator splits into single runes.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// DefaultOptions returns 500/50 with the default separators.
func DefaultOptions() Options {
	return Options{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
		Separators:   DefaultSeparators,
	}
}

// Validate rejects sizes that cannot produce progress.
func (o Options) Validate() error {
	if o.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", o.ChunkSize)
	}
	if o.ChunkOverlap < 0 {
		return fmt.Errorf("chunk overlap must not be negative, got %d", o.ChunkOverlap)
	}
	if o.ChunkOverlap >= o.ChunkSize {
		return errors.New("chunk overlap must be smaller than chunk size")
	}
	return nil
}

// Chunk is one window of a named document. (DocName, Index) is unique.
type Chunk struct {
	DocName string
	Index   int
	Text    string
}

// ChunkDocument splits text and numbers the windows from zero.
func ChunkDocument(docName, text string, opts Options) []Chunk {
	parts := Split(text, opts)
	chunks := make([]Chunk, len(parts))
	for i, p := range parts {
		chunks[i] = Chunk{DocName: docName, Index: i, Text: p}
	}
	return chunks
}

// Split returns the chunks of text in input order. Empty input yields an
// empty slice. Every chunk is at most ChunkSize runes unless it is a single
// token that no remaining separator can split.
func Split(text string, opts Options) []string {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.ChunkOverlap < 0 || opts.ChunkOverlap >= opts.ChunkSize {
		opts.ChunkOverlap = 0
	}
	if len(opts.Separators) == 0 {
		opts.Separators = DefaultSeparators
	}
	if strings.TrimSpace(text) == "" {
		return []string{}
	}

	splitter := textsplitter.RecursiveCharacter{
		Separators:    opts.Separators,
		ChunkSize:     opts.ChunkSize,
		ChunkOverlap:  opts.ChunkOverlap,
		LenFunc:       utf8.RuneCountInString,
		KeepSeparator: true,
	}
	// RecursiveCharacter never returns an error.
	parts, _ := splitter.SplitText(text)

	// Oversized tokens come back untrimmed, with their leading separator.
	chunks := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			chunks = append(chunks, p)
		}
	}
	return chunks
}
