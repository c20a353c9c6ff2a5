package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("w%03d", i)
	}
	return out
}

// stitch rebuilds the word sequence from chunks by dropping, for each chunk,
// the longest prefix that repeats the previous chunk's suffix.
func stitch(chunks []string) []string {
	var out []string
	for _, c := range chunks {
		ws := strings.Fields(c)
		overlap := 0
		for k := len(ws); k > 0; k-- {
			if k <= len(out) && equal(out[len(out)-k:], ws[:k]) {
				overlap = k
				break
			}
		}
		out = append(out, ws[overlap:]...)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSplit_EmptyInput(t *testing.T) {
	assert.Empty(t, Split("", DefaultOptions()))
	assert.Empty(t, Split("  \n\n  ", DefaultOptions()))
	assert.NotNil(t, Split("", DefaultOptions()))
}

func TestSplit_ShortTextIsSingleChunk(t *testing.T) {
	chunks := Split("Create your store from the dashboard.", DefaultOptions())
	require.Len(t, chunks, 1)
	assert.Equal(t, "Create your store from the dashboard.", chunks[0])
}

func TestSplit_RespectsChunkSize(t *testing.T) {
	text := strings.Join(words(300), " ")
	opts := Options{ChunkSize: 60, ChunkOverlap: 10, Separators: DefaultSeparators}

	chunks := Split(text, opts)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 60, "chunk too long: %q", c)
	}
}

func TestSplit_ReconstructsOriginalWithoutOverlap(t *testing.T) {
	ws := words(200)
	text := strings.Join(ws, " ")
	chunks := Split(text, Options{ChunkSize: 50, ChunkOverlap: 0, Separators: DefaultSeparators})

	assert.Equal(t, text, strings.Join(chunks, " "))
}

func TestSplit_ReconstructsOriginalWithOverlap(t *testing.T) {
	ws := words(200)
	text := strings.Join(ws, " ")
	chunks := Split(text, Options{ChunkSize: 50, ChunkOverlap: 15, Separators: DefaultSeparators})

	require.Greater(t, len(chunks), 1)
	assert.Equal(t, ws, stitch(chunks))
}

func TestSplit_ConsecutiveChunksOverlap(t *testing.T) {
	text := strings.Join(words(100), " ")
	chunks := Split(text, Options{ChunkSize: 40, ChunkOverlap: 10, Separators: DefaultSeparators})

	require.Greater(t, len(chunks), 2)
	for i := 1; i < len(chunks); i++ {
		prev := strings.Fields(chunks[i-1])
		first := strings.Fields(chunks[i])[0]
		assert.Contains(t, prev, first, "chunk %d should start inside chunk %d", i, i-1)
	}
}

func TestSplit_PrefersParagraphBreaks(t *testing.T) {
	p1 := strings.Repeat("alpha ", 10)
	p2 := strings.Repeat("beta ", 10)
	text := strings.TrimSpace(p1) + "\n\n" + strings.TrimSpace(p2)

	chunks := Split(text, Options{ChunkSize: 70, ChunkOverlap: 0, Separators: DefaultSeparators})
	require.Len(t, chunks, 2)
	assert.Equal(t, strings.TrimSpace(p1), chunks[0])
	assert.Equal(t, strings.TrimSpace(p2), chunks[1])
}

func TestSplit_FallsBackToLineThenSpace(t *testing.T) {
	long := strings.Join(words(40), " ")
	text := "short line\n" + long

	chunks := Split(text, Options{ChunkSize: 30, ChunkOverlap: 0, Separators: DefaultSeparators})
	require.NotEmpty(t, chunks)
	assert.Equal(t, "short line", chunks[0])
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 30)
	}
}

func TestSplit_OversizedTokenPassesWhole(t *testing.T) {
	token := strings.Repeat("x", 120)
	text := "intro " + token + " outro"

	chunks := Split(text, Options{ChunkSize: 50, ChunkOverlap: 0, Separators: DefaultSeparators})
	assert.Contains(t, chunks, token)
	for _, c := range chunks {
		if c != token {
			assert.LessOrEqual(t, utf8.RuneCountInString(c), 50)
		}
	}
}

func TestSplit_EmptySeparatorSplitsRunes(t *testing.T) {
	token := strings.Repeat("é", 25)

	chunks := Split(token, Options{ChunkSize: 10, ChunkOverlap: 0, Separators: []string{" ", ""}})
	require.Len(t, chunks, 3)
	assert.Equal(t, strings.Repeat("é", 10), chunks[0])
	assert.Equal(t, strings.Repeat("é", 5), chunks[2])
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("The quick brown fox.\nJumps over the dog.\n\n", 40)
	opts := Options{ChunkSize: 80, ChunkOverlap: 20, Separators: DefaultSeparators}

	assert.Equal(t, Split(text, opts), Split(text, opts))
}

func TestSplit_IdempotentOnChunkSizedInput(t *testing.T) {
	text := strings.Join(words(150), " ")
	opts := Options{ChunkSize: 60, ChunkOverlap: 10, Separators: DefaultSeparators}

	for _, c := range Split(text, opts) {
		again := Split(c, opts)
		require.Len(t, again, 1)
		assert.Equal(t, c, again[0])
	}
}

func TestSplit_InvalidOptionsFallBack(t *testing.T) {
	text := strings.Join(words(50), " ")
	chunks := Split(text, Options{})
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestChunkDocument_AssignsIndexes(t *testing.T) {
	text := strings.Join(words(100), " ")
	chunks := ChunkDocument("stores.txt", text, Options{ChunkSize: 50, ChunkOverlap: 0, Separators: DefaultSeparators})

	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.Equal(t, "stores.txt", c.DocName)
		assert.Equal(t, i, c.Index)
		assert.NotEmpty(t, c.Text)
	}
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"defaults", DefaultOptions(), false},
		{"zero size", Options{ChunkSize: 0}, true},
		{"negative overlap", Options{ChunkSize: 10, ChunkOverlap: -1}, true},
		{"overlap equals size", Options{ChunkSize: 10, ChunkOverlap: 10}, true},
		{"no overlap", Options{ChunkSize: 10}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSplit_LeadingSeparatorIsTrimmed(t *testing.T) {
	text := "intro\n\n" + strings.Repeat("y", 30)

	chunks := Split(text, Options{ChunkSize: 20, ChunkOverlap: 0, Separators: []string{"\n\n"}})
	assert.Equal(t, []string{"intro", strings.Repeat("y", 30)}, chunks)
}
