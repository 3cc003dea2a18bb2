package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"documentor/internal/domain"
	ragerr "documentor/internal/errors"
	"documentor/internal/extractor"
)

// multipartOverhead is the allowance for boundaries and part headers on top
// of the file itself.
const multipartOverhead = 64 << 10

// IngestBody is the success payload of an upload.
type IngestBody struct {
	Message      string `json:"message"`
	ChunkCount   int    `json:"chunkCount"`
	GenerationID uint64 `json:"generationId"`
	DocumentID   string `json:"documentId"`
}

// registerIngestRoute mounts the multipart upload handler on chi directly,
// since huma does not stream multipart bodies, and documents it in the
// OpenAPI spec by hand.
func (s *Server) registerIngestRoute() {
	s.router.Post("/api/ingest", s.handleIngest)

	s.api.OpenAPI().AddOperation(&huma.Operation{
		OperationID: "ingest",
		Method:      http.MethodPost,
		Path:        "/api/ingest",
		Summary:     "Upload a document",
		Description: "Replaces the current corpus with the uploaded .txt or .pdf file.",
		Tags:        []string{"documents"},
		RequestBody: &huma.RequestBody{
			Required: true,
			Content: map[string]*huma.MediaType{
				"multipart/form-data": {
					Schema: &huma.Schema{
						Type:     "object",
						Required: []string{"file"},
						Properties: map[string]*huma.Schema{
							"file": {
								Type:        "string",
								Format:      "binary",
								Description: "Document to ingest",
							},
						},
					},
				},
			},
		},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Document ingested",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{
							Type: "object",
							Properties: map[string]*huma.Schema{
								"message":      {Type: "string"},
								"chunkCount":   {Type: "integer"},
								"generationId": {Type: "integer"},
								"documentId":   {Type: "string"},
							},
						},
					},
				},
			},
			"400": {Description: "No file in the request"},
			"413": {Description: "File exceeds the upload limit"},
			"415": {Description: "Unsupported media type"},
			"422": {Description: "Document is empty or could not be read"},
			"502": {Description: "Embedding provider failed"},
			"504": {Description: "Embedding provider timed out"},
		},
	})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+multipartOverhead)

	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeError(w, s.logger, s.uploadError(err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			writeError(w, s.logger, ragerr.New(ragerr.CodeRequestInvalid, "No file uploaded"))
			return
		}
		writeError(w, s.logger, s.uploadError(err))
		return
	}
	defer file.Close()

	if header.Size > s.cfg.MaxUploadBytes {
		writeError(w, s.logger, s.tooLarge())
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, s.logger, ragerr.Wrap(err, ragerr.CodeRequestInvalid, "reading uploaded file"))
		return
	}

	doc := domain.Document{
		Name:      header.Filename,
		MediaType: extractor.InferMediaType(header.Filename, header.Header.Get("Content-Type")),
		Content:   content,
	}

	res, err := s.pipeline.Ingest(r.Context(), doc)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(IngestBody{
		Message:      res.Message,
		ChunkCount:   res.ChunkCount,
		GenerationID: res.GenerationID,
		DocumentID:   res.DocumentID,
	}); err != nil {
		s.logger.Warn("failed to write ingest response", "error", err)
	}
}

func (s *Server) uploadError(err error) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return s.tooLarge()
	}
	return ragerr.Wrap(err, ragerr.CodeRequestInvalid, "malformed multipart upload")
}

func (s *Server) tooLarge() error {
	return ragerr.Errorf(ragerr.CodeRequestTooLarge,
		"file exceeds the upload limit of %d bytes", s.cfg.MaxUploadBytes)
}
