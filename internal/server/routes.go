package server

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"documentor/internal/domain"
)

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "root",
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "Server banner",
		Tags:        []string{"system"},
	}, s.handleRoot)

	huma.Register(s.api, huma.Operation{
		OperationID: "status",
		Method:      http.MethodGet,
		Path:        "/api/status",
		Summary:     "Readiness probe",
		Description: "Returns 200 once a document has been ingested and 503 before that.",
		Tags:        []string{"system"},
	}, s.handleStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "chat",
		Method:      http.MethodPost,
		Path:        "/api/chat",
		Summary:     "Ask a question about the ingested document",
		Tags:        []string{"chat"},
		Errors: []int{
			http.StatusBadRequest,
			http.StatusConflict,
			http.StatusBadGateway,
			http.StatusGatewayTimeout,
		},
	}, s.handleChat)
}

// --- Request/Response types for huma ---

type messageOutput struct {
	Body struct {
		Message string `json:"message" example:"Server ready to chat with your document"`
	}
}

// GenerationBody describes the published generation.
type GenerationBody struct {
	ID           uint64    `json:"id"`
	DocumentID   string    `json:"documentId"`
	DocumentName string    `json:"documentName,omitempty"`
	ChunkCount   int       `json:"chunkCount"`
	Dimension    int       `json:"dimension"`
	BuiltAt      time.Time `json:"builtAt"`
}

// StatusBody is the readiness payload.
type StatusBody struct {
	Ready      bool            `json:"ready"`
	Generation *GenerationBody `json:"generation,omitempty"`
	Embedder   string          `json:"embedder"`
	Dimension  int             `json:"dimension"`
	Completion string          `json:"completion"`
	TopK       int             `json:"topK"`
}

type statusOutput struct {
	Status int
	Body   StatusBody
}

type chatInput struct {
	Body struct {
		Prompt string `json:"prompt,omitempty" required:"false" maxLength:"8000" doc:"Question about the ingested document"`
	}
}

// Source locates a retrieved chunk in the extracted text.
type Source struct {
	ChunkID int     `json:"chunkId"`
	Score   float64 `json:"score"`
	Start   int     `json:"start"`
	End     int     `json:"end"`
}

// ChatBody is the answer and the chunk texts it was grounded on.
type ChatBody struct {
	Response string   `json:"response"`
	Context  []string `json:"context"`
	Sources  []Source `json:"sources"`
}

type chatOutput struct {
	Body ChatBody
}

// --- Handlers ---

func (s *Server) handleRoot(_ context.Context, _ *struct{}) (*messageOutput, error) {
	out := &messageOutput{}
	out.Body.Message = "Server ready to chat with your document"
	return out, nil
}

func (s *Server) handleStatus(_ context.Context, _ *struct{}) (*statusOutput, error) {
	st := s.pipeline.Status()

	out := &statusOutput{
		Status: http.StatusOK,
		Body: StatusBody{
			Ready:      st.Ready,
			Generation: generationBody(st.Generation),
			Embedder:   st.Embedder,
			Dimension:  st.Dimension,
			Completion: st.Completion,
			TopK:       st.TopK,
		},
	}
	if !st.Ready {
		out.Status = http.StatusServiceUnavailable
	}
	return out, nil
}

func (s *Server) handleChat(ctx context.Context, input *chatInput) (*chatOutput, error) {
	res, err := s.pipeline.Query(ctx, input.Body.Prompt)
	if err != nil {
		return nil, s.fail(err)
	}

	sources := make([]Source, len(res.Chunks))
	for i, r := range res.Chunks {
		sources[i] = Source{ChunkID: r.Chunk.ID, Score: r.Score, Start: r.Chunk.Start, End: r.Chunk.End}
	}

	return &chatOutput{Body: ChatBody{
		Response: res.Response,
		Context:  res.Context(),
		Sources:  sources,
	}}, nil
}

// fail converts a pipeline error for huma, logging server faults.
func (s *Server) fail(err error) error {
	apiErr := toAPIError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "code", apiErr.Code, "error", err)
	}
	return apiErr
}

func generationBody(info *domain.GenerationInfo) *GenerationBody {
	if info == nil {
		return nil
	}
	return &GenerationBody{
		ID:           info.ID,
		DocumentID:   info.DocumentID,
		DocumentName: info.DocumentName,
		ChunkCount:   info.ChunkCount,
		Dimension:    info.Dimension,
		BuiltAt:      info.BuiltAt,
	}
}
