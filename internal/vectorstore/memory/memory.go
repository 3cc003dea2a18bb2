package memory

import (
	"cmp"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"documentor/internal/domain"
	ragerr "documentor/internal/errors"
)

// generation is an immutable snapshot of one ingested document.
type generation struct {
	info    domain.GenerationInfo
	chunks  []domain.Chunk
	vectors [][]float32
	norms   []float64
}

// Storage is an in-memory vector store using brute-force cosine similarity.
// The current generation is swapped atomically, so queries never block on an
// ingest and always see one complete generation.
type Storage struct {
	buildMu sync.Mutex
	nextID  uint64
	current atomic.Pointer[generation]
	now     func() time.Time
}

func NewStorage() *Storage {
	return &Storage{now: time.Now}
}

// Build validates and publishes a new generation, replacing the previous
// one. On error the published generation is left untouched.
func (s *Storage) Build(documentID, documentName string, chunks []domain.Chunk, vectors [][]float32) (uint64, error) {
	if len(chunks) == 0 {
		return 0, ragerr.New(ragerr.CodeDocumentEmpty, "cannot build an empty generation",
			ragerr.FieldDocumentID(documentID))
	}
	if len(chunks) != len(vectors) {
		return 0, ragerr.New(ragerr.CodeDimensionMismatch, "chunks and vectors length mismatch",
			ragerr.Field("chunks", len(chunks)), ragerr.Field("vectors", len(vectors)))
	}

	dim := len(vectors[0])
	if dim == 0 {
		return 0, ragerr.New(ragerr.CodeDimensionMismatch, "vectors must not be empty")
	}

	gen := &generation{
		chunks:  make([]domain.Chunk, len(chunks)),
		vectors: make([][]float32, len(vectors)),
		norms:   make([]float64, len(vectors)),
	}
	copy(gen.chunks, chunks)
	for i, v := range vectors {
		if len(v) != dim {
			return 0, ragerr.New(ragerr.CodeDimensionMismatch, "vector dimension mismatch",
				ragerr.Field("index", i), ragerr.Field("expected", dim), ragerr.Field("actual", len(v)))
		}
		gen.vectors[i] = slices.Clone(v)
		gen.norms[i] = norm(v)
	}

	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	s.nextID++
	gen.info = domain.GenerationInfo{
		ID:           s.nextID,
		DocumentID:   documentID,
		DocumentName: documentName,
		ChunkCount:   len(chunks),
		Dimension:    dim,
		BuiltAt:      s.now(),
	}
	s.current.Store(gen)
	return gen.info.ID, nil
}

// Query returns the k chunks most similar to vector, ordered by descending
// score with ties broken by ascending chunk ID. A k beyond the corpus size
// returns the whole corpus.
func (s *Storage) Query(vector []float32, k int) ([]domain.SearchResult, error) {
	gen := s.current.Load()
	if gen == nil {
		return nil, ragerr.New(ragerr.CodeNotIngested, "no document has been ingested")
	}
	if k < 1 {
		return nil, ragerr.New(ragerr.CodeRequestInvalid, "k must be at least 1", ragerr.Field("k", k))
	}
	if len(vector) != gen.info.Dimension {
		return nil, ragerr.New(ragerr.CodeDimensionMismatch, "query vector dimension mismatch",
			ragerr.Field("expected", gen.info.Dimension), ragerr.Field("actual", len(vector)),
			ragerr.FieldGeneration(gen.info.ID))
	}

	qnorm := norm(vector)
	results := make([]domain.SearchResult, len(gen.vectors))
	for i, v := range gen.vectors {
		results[i] = domain.SearchResult{
			Chunk: gen.chunks[i],
			Score: cosine(vector, qnorm, v, gen.norms[i]),
		}
	}
	slices.SortFunc(results, func(a, b domain.SearchResult) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Chunk.ID, b.Chunk.ID)
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k:k], nil
}

func (s *Storage) IsReady() bool {
	return s.current.Load() != nil
}

func (s *Storage) Current() (domain.GenerationInfo, bool) {
	gen := s.current.Load()
	if gen == nil {
		return domain.GenerationInfo{}, false
	}
	return gen.info, true
}

// cosine scores a zero-norm vector as 0.
func cosine(a []float32, anorm float64, b []float32, bnorm float64) float64 {
	if anorm == 0 || bnorm == 0 {
		return 0
	}
	return dot(a, b) / (anorm * bnorm)
}

func dot(a, b []float32) float64 {
	sum := 0.0
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
