package vectorstore

import "documentor/internal/domain"

// Storage holds exactly one published corpus generation and answers
// nearest-neighbour queries against it. Build replaces the whole corpus;
// readers never observe a partially built generation.
type Storage interface {
	Build(documentID, documentName string, chunks []domain.Chunk, vectors [][]float32) (uint64, error)
	Query(vector []float32, k int) ([]domain.SearchResult, error)
	IsReady() bool
	Current() (domain.GenerationInfo, bool)
}
