package domain

import (
	"context"
	"time"
)

// Document is a single uploaded file. It lives only for the duration of an
// ingest call.
type Document struct {
	ID        string
	Name      string
	MediaType string
	Content   []byte
}

// Chunk is a contiguous slice of a document's extracted text. ID is the
// ordinal position of the chunk within its corpus generation; Start and End
// are rune offsets into the extracted text.
type Chunk struct {
	ID         int
	DocumentID string
	Text       string
	Start      int
	End        int
}

// SearchResult represents a matching chunk with its cosine similarity.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// GenerationInfo describes a published corpus generation.
type GenerationInfo struct {
	ID           uint64
	DocumentID   string
	DocumentName string
	ChunkCount   int
	Dimension    int
	BuiltAt      time.Time
}

// Role identifies the speaker of a conversational turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversational turn handed to a completion provider.
type Message struct {
	Role    Role
	Content string
}

// Chunker splits extracted text into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(documentID, text string) ([]Chunk, error)
}

// Extractor turns the raw bytes of a document into plain text.
type Extractor interface {
	Supports(mediaType string) bool
	Extract(ctx context.Context, doc Document) (string, error)
}

// CompletionProvider generates a reply to an ordered list of turns.
type CompletionProvider interface {
	Name() string
	Complete(ctx context.Context, messages []Message) (string, error)
}
