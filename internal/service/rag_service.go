// Package service drives the ingest and query pipelines. It owns the vector
// store and is the only component that writes to it.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"documentor/internal/domain"
	"documentor/internal/embedding"
	ragerr "documentor/internal/errors"
	"documentor/internal/vectorstore"
)

// DefaultTopK is the number of chunks retrieved for each question.
const DefaultTopK = 4

const (
	defaultEmbedTimeout      = 30 * time.Second
	defaultCompletionTimeout = 60 * time.Second
)

// IngestResult reports a successful ingest.
type IngestResult struct {
	Message      string
	ChunkCount   int
	GenerationID uint64
	DocumentID   string
}

// QueryResult is the answer to a question and the chunks it was grounded on,
// in retrieval order.
type QueryResult struct {
	Response string
	Chunks   []domain.SearchResult
}

// Context returns the retrieved chunk texts in retrieval order.
func (r QueryResult) Context() []string {
	out := make([]string, len(r.Chunks))
	for i, c := range r.Chunks {
		out[i] = c.Chunk.Text
	}
	return out
}

// Status describes the pipeline for readiness probes.
type Status struct {
	Ready      bool
	Generation *domain.GenerationInfo
	Embedder   string
	Dimension  int
	Completion string
	TopK       int
}

// Option configures a RAGService.
type Option func(*RAGService)

func WithTopK(k int) Option {
	return func(s *RAGService) {
		if k > 0 {
			s.topK = k
		}
	}
}

func WithEmbedTimeout(d time.Duration) Option {
	return func(s *RAGService) {
		if d > 0 {
			s.embedTimeout = d
		}
	}
}

func WithCompletionTimeout(d time.Duration) Option {
	return func(s *RAGService) {
		if d > 0 {
			s.completionTimeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *RAGService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// RAGService is the retrieval orchestrator. Ingests are serialised; queries
// run concurrently with each other and with an ingest in flight.
type RAGService struct {
	extractor domain.Extractor
	chunker   domain.Chunker
	embedder  embedding.Embedder
	store     vectorstore.Storage
	completer domain.CompletionProvider

	topK              int
	embedTimeout      time.Duration
	completionTimeout time.Duration
	logger            *slog.Logger

	ingestMu sync.Mutex
}

func NewRAGService(
	extractor domain.Extractor,
	chunker domain.Chunker,
	embedder embedding.Embedder,
	store vectorstore.Storage,
	completer domain.CompletionProvider,
	opts ...Option,
) *RAGService {
	s := &RAGService{
		extractor:         extractor,
		chunker:           chunker,
		embedder:          embedder,
		store:             store,
		completer:         completer,
		topK:              DefaultTopK,
		embedTimeout:      defaultEmbedTimeout,
		completionTimeout: defaultCompletionTimeout,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest replaces the corpus with doc. The new generation is published only
// after every chunk has been embedded; on any failure the current
// generation stays in place.
func (s *RAGService) Ingest(ctx context.Context, doc domain.Document) (IngestResult, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	docField := ragerr.FieldDocumentID(doc.ID)

	if !s.extractor.Supports(doc.MediaType) {
		return IngestResult{}, ragerr.New(ragerr.CodeMediaTypeUnsupported,
			fmt.Sprintf("unsupported media type %q: upload a .txt or .pdf file", doc.MediaType),
			docField, ragerr.FieldMediaType(doc.MediaType))
	}

	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	start := time.Now()
	logger := s.logger.With("document_id", doc.ID, "name", doc.Name, "media_type", doc.MediaType)
	logger.Info("ingest started", "bytes", len(doc.Content))

	text, err := s.extractor.Extract(ctx, doc)
	if err != nil {
		if ragerr.CodeOf(err) == "" {
			err = ragerr.Wrap(err, ragerr.CodeExtractionFailure, "extract text", docField)
		}
		return IngestResult{}, s.ingestFailed(logger, ragerr.With(err, ragerr.FieldStage("extract"), docField))
	}

	chunks, err := s.chunker.Chunk(doc.ID, text)
	if err != nil {
		return IngestResult{}, s.ingestFailed(logger, ragerr.With(err, ragerr.FieldStage("chunk"), docField))
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedBatch(ctx, texts)
	if err != nil {
		return IngestResult{}, s.ingestFailed(logger, ragerr.With(err, docField))
	}

	genID, err := s.store.Build(doc.ID, doc.Name, chunks, vectors)
	if err != nil {
		return IngestResult{}, s.ingestFailed(logger, ragerr.With(err, ragerr.FieldStage("build"), docField))
	}

	logger.Info("ingest finished",
		"chunks", len(chunks),
		"generation", genID,
		"duration", time.Since(start))

	return IngestResult{
		Message:      ingestMessage(doc.Name, len(chunks)),
		ChunkCount:   len(chunks),
		GenerationID: genID,
		DocumentID:   doc.ID,
	}, nil
}

// Query answers prompt from the current generation.
func (s *RAGService) Query(ctx context.Context, prompt string) (QueryResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return QueryResult{}, ragerr.New(ragerr.CodeRequestInvalid, "Prompt is required")
	}
	if !s.store.IsReady() {
		return QueryResult{}, ragerr.New(ragerr.CodeNotIngested,
			"no document has been ingested yet: upload a document first")
	}

	start := time.Now()
	vec, err := s.embed(ctx, prompt)
	if err != nil {
		return QueryResult{}, err
	}

	results, err := s.store.Query(vec, s.topK)
	if err != nil {
		return QueryResult{}, ragerr.With(err, ragerr.FieldStage("retrieve"))
	}

	reply, err := s.complete(ctx, BuildMessages(prompt, results))
	if err != nil {
		return QueryResult{}, err
	}

	s.logger.Info("query answered",
		"retrieved", len(results),
		"duration", time.Since(start))

	return QueryResult{Response: reply, Chunks: results}, nil
}

func (s *RAGService) Status() Status {
	st := Status{
		Ready:      s.store.IsReady(),
		Embedder:   s.embedder.Name(),
		Dimension:  s.embedder.Dimension(),
		Completion: s.completer.Name(),
		TopK:       s.topK,
	}
	if info, ok := s.store.Current(); ok {
		st.Generation = &info
		st.Dimension = info.Dimension
	}
	return st
}

func (s *RAGService) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.embedTimeout)
	defer cancel()

	vectors, err := s.embedder.EmbedBatch(pctx, texts)
	if err != nil {
		return nil, s.providerError(pctx, err, ragerr.CodeEmbeddingFailure, "embed", s.embedder.Name())
	}
	if len(vectors) != len(texts) {
		return nil, ragerr.New(ragerr.CodeEmbeddingFailure,
			fmt.Sprintf("embedder returned %d vectors for %d chunks", len(vectors), len(texts)),
			ragerr.FieldStage("embed"), ragerr.FieldProvider(s.embedder.Name()))
	}
	return vectors, nil
}

func (s *RAGService) embed(ctx context.Context, text string) ([]float32, error) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.embedTimeout)
	defer cancel()

	vec, err := s.embedder.Embed(pctx, text)
	if err != nil {
		return nil, s.providerError(pctx, err, ragerr.CodeEmbeddingFailure, "embed", s.embedder.Name())
	}
	return vec, nil
}

func (s *RAGService) complete(ctx context.Context, messages []domain.Message) (string, error) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.completionTimeout)
	defer cancel()

	reply, err := s.completer.Complete(pctx, messages)
	if err != nil {
		return "", s.providerError(pctx, err, ragerr.CodeCompletionFailure, "complete", s.completer.Name())
	}
	return reply, nil
}

// providerError classifies a provider failure. A missed deadline is a
// timeout whatever the provider reported; errors that already carry a code
// keep it.
func (s *RAGService) providerError(pctx context.Context, err error, code ragerr.Code, stage, provider string) error {
	fields := []ragerr.Attr{ragerr.FieldStage(stage), ragerr.FieldProvider(provider)}

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(pctx.Err(), context.DeadlineExceeded):
		err = ragerr.Wrap(err, ragerr.CodeProviderTimeout, stage+" call timed out", fields...)
	case ragerr.CodeOf(err) != "":
		err = ragerr.With(err, fields...)
	default:
		err = ragerr.Wrap(err, code, stage+" call failed", fields...)
	}

	s.logger.Warn("provider call failed", "stage", stage, "provider", provider, "error", err)
	return err
}

func (s *RAGService) ingestFailed(logger *slog.Logger, err error) error {
	logger.Warn("ingest failed", "code", ragerr.CodeOf(err), "error", err)
	return err
}

func ingestMessage(name string, chunks int) string {
	if name == "" {
		return fmt.Sprintf("Document ingested successfully (%d chunks)", chunks)
	}
	return fmt.Sprintf("Document %q ingested successfully (%d chunks)", name, chunks)
}
