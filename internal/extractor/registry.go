package extractor

import (
	"context"
	"mime"
	"path/filepath"
	"strings"

	"documentor/internal/domain"
	ragerr "documentor/internal/errors"
)

const (
	MediaTypePlainText = "text/plain"
	MediaTypePDF       = "application/pdf"
	MediaTypeXPDF      = "application/x-pdf"
	MediaTypeOctet     = "application/octet-stream"
)

var _ domain.Extractor = (*Registry)(nil)

// Registry dispatches extraction by media type.
type Registry struct {
	extractors []domain.Extractor
}

// NewRegistry returns a registry over the given extractors, consulted in
// order.
func NewRegistry(extractors ...domain.Extractor) *Registry {
	return &Registry{extractors: extractors}
}

// Default returns a registry for plain text and PDF documents.
func Default() *Registry {
	return NewRegistry(NewPlainText(), NewPDF())
}

func (r *Registry) Supports(mediaType string) bool {
	return r.lookup(mediaType) != nil
}

// Extract runs the extractor registered for doc.MediaType. An unknown type
// fails with an unsupported media type error.
func (r *Registry) Extract(ctx context.Context, doc domain.Document) (string, error) {
	ex := r.lookup(doc.MediaType)
	if ex == nil {
		return "", ragerr.New(ragerr.CodeMediaTypeUnsupported, "unsupported media type",
			ragerr.FieldMediaType(doc.MediaType), ragerr.FieldDocumentID(doc.ID))
	}
	doc.MediaType = NormalizeMediaType(doc.MediaType)
	return ex.Extract(ctx, doc)
}

func (r *Registry) lookup(mediaType string) domain.Extractor {
	mt := NormalizeMediaType(mediaType)
	if mt == "" {
		return nil
	}
	for _, ex := range r.extractors {
		if ex.Supports(mt) {
			return ex
		}
	}
	return nil
}

// NormalizeMediaType lower-cases a media type and drops its parameters, so
// "Text/Plain; charset=utf-8" becomes "text/plain". An unparsable value
// yields "".
func NormalizeMediaType(mediaType string) string {
	mediaType = strings.TrimSpace(mediaType)
	if mediaType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return ""
	}
	return mt
}

// InferMediaType returns declared unless it is empty or generic, in which
// case the type is guessed from the file extension.
func InferMediaType(filename, declared string) string {
	if mt := NormalizeMediaType(declared); mt != "" && mt != MediaTypeOctet {
		return declared
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".text", ".md":
		return MediaTypePlainText
	case ".pdf":
		return MediaTypePDF
	}
	return declared
}
