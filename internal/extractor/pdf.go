package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"documentor/internal/domain"
	ragerr "documentor/internal/errors"
)

var _ domain.Extractor = (*PDF)(nil)

// PDF extracts the text layer of PDF documents. Scanned pages without a
// text layer yield no text.
type PDF struct{}

func NewPDF() *PDF {
	return &PDF{}
}

func (p *PDF) Supports(mediaType string) bool {
	return mediaType == MediaTypePDF || mediaType == MediaTypeXPDF
}

func (p *PDF) Extract(ctx context.Context, doc domain.Document) (text string, err error) {
	fail := func(cause error) error {
		return ragerr.Wrap(cause, ragerr.CodeExtractionFailure, "extract pdf text",
			ragerr.FieldDocumentID(doc.ID), ragerr.FieldMediaType(doc.MediaType))
	}

	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fail(fmt.Errorf("malformed pdf: %v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	reader, err := pdf.NewReader(bytes.NewReader(doc.Content), int64(len(doc.Content)))
	if err != nil {
		return "", fail(err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fail(err)
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return "", fail(err)
	}
	return string(out), nil
}
