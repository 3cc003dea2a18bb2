package extractor

import (
	"context"
	"strings"
	"unicode/utf8"

	"documentor/internal/domain"
	ragerr "documentor/internal/errors"
)

var _ domain.Extractor = (*PlainText)(nil)

// PlainText extracts UTF-8 text documents.
type PlainText struct{}

func NewPlainText() *PlainText {
	return &PlainText{}
}

func (p *PlainText) Supports(mediaType string) bool {
	return mediaType == MediaTypePlainText
}

// Extract validates the encoding, strips a byte order mark and normalises
// line endings.
func (p *PlainText) Extract(_ context.Context, doc domain.Document) (string, error) {
	if !utf8.Valid(doc.Content) {
		return "", ragerr.New(ragerr.CodeExtractionFailure, "text document is not valid UTF-8",
			ragerr.FieldDocumentID(doc.ID), ragerr.FieldMediaType(doc.MediaType))
	}
	text := strings.TrimPrefix(string(doc.Content), "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return text, nil
}
