// Package chunker splits extracted document text into overlapping windows.
package chunker

import (
	"strings"
	"unicode/utf8"

	"documentor/internal/domain"
	ragerr "documentor/internal/errors"
)

// DefaultChunkSize is the default number of runes per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of runes shared by neighbouring chunks.
const DefaultChunkOverlap = 200

// Split cuts text into windows of chunkSize runes, each starting
// chunkSize-overlap runes after the previous one. The last window may be
// shorter. Windowing stops as soon as a window reaches the end of the text.
func Split(documentID, text string, chunkSize, overlap int) ([]domain.Chunk, error) {
	if err := validate(chunkSize, overlap); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ragerr.New(ragerr.CodeDocumentEmpty, "document has no text to chunk",
			ragerr.FieldDocumentID(documentID))
	}

	runes := []rune(text)
	n := len(runes)
	step := chunkSize - overlap

	chunks := make([]domain.Chunk, 0, Count(n, chunkSize, overlap))
	for start := 0; ; start += step {
		end := min(start+chunkSize, n)
		chunks = append(chunks, domain.Chunk{
			ID:         len(chunks),
			DocumentID: documentID,
			Text:       string(runes[start:end]),
			Start:      start,
			End:        end,
		})
		if end == n {
			break
		}
	}
	return chunks, nil
}

// Count returns how many chunks Split produces for a text of length runes.
func Count(length, chunkSize, overlap int) int {
	if length <= 0 || chunkSize <= overlap {
		return 0
	}
	if length <= chunkSize {
		return 1
	}
	step := chunkSize - overlap
	return (length - overlap + step - 1) / step
}

func validate(chunkSize, overlap int) error {
	if overlap < 0 {
		return ragerr.New(ragerr.CodeConfigInvalid, "chunk overlap must not be negative",
			ragerr.Field("overlap", overlap))
	}
	if chunkSize <= overlap {
		return ragerr.New(ragerr.CodeConfigInvalid, "chunk size must be greater than overlap",
			ragerr.Field("chunk_size", chunkSize), ragerr.Field("overlap", overlap))
	}
	return nil
}

// WindowChunker binds a window size and overlap for use as a domain.Chunker.
type WindowChunker struct {
	chunkSize int
	overlap   int
}

// Option configures a WindowChunker.
type Option func(*WindowChunker)

func WithChunkSize(size int) Option {
	return func(c *WindowChunker) {
		c.chunkSize = size
	}
}

func WithOverlap(overlap int) Option {
	return func(c *WindowChunker) {
		c.overlap = overlap
	}
}

// New returns a WindowChunker. Unlike Split it rejects a bad configuration
// up front, so a misconfigured server fails at startup.
func New(opts ...Option) (*WindowChunker, error) {
	c := &WindowChunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := validate(c.chunkSize, c.overlap); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *WindowChunker) ChunkSize() int { return c.chunkSize }

func (c *WindowChunker) Overlap() int { return c.overlap }

func (c *WindowChunker) Chunk(documentID, text string) ([]domain.Chunk, error) {
	return Split(documentID, text, c.chunkSize, c.overlap)
}

// RuneLen reports the length of text in chunking units.
func RuneLen(text string) int {
	return utf8.RuneCountInString(text)
}
