package extractor

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"documentor/internal/domain"
	ragerr "documentor/internal/errors"
)

func TestNormalizeMediaType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "text/plain", want: "text/plain"},
		{in: "Text/Plain; charset=utf-8", want: "text/plain"},
		{in: " application/pdf ", want: "application/pdf"},
		{in: "", want: ""},
		{in: "not a media type;;", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeMediaType(tt.in), "input %q", tt.in)
	}
}

func TestInferMediaType(t *testing.T) {
	assert.Equal(t, "text/plain; charset=utf-8", InferMediaType("notes.pdf", "text/plain; charset=utf-8"))
	assert.Equal(t, MediaTypePDF, InferMediaType("paper.PDF", ""))
	assert.Equal(t, MediaTypePDF, InferMediaType("paper.pdf", MediaTypeOctet))
	assert.Equal(t, MediaTypePlainText, InferMediaType("notes.txt", ""))
	assert.Equal(t, "image/png", InferMediaType("cat.png", "image/png"))
	assert.Equal(t, "", InferMediaType("archive.zip", ""))
}

func TestRegistryDispatch(t *testing.T) {
	r := Default()

	assert.True(t, r.Supports("text/plain"))
	assert.True(t, r.Supports("text/plain; charset=utf-8"))
	assert.True(t, r.Supports("application/pdf"))
	assert.True(t, r.Supports("application/x-pdf"))
	assert.False(t, r.Supports("image/png"))
	assert.False(t, r.Supports(""))

	text, err := r.Extract(context.Background(), domain.Document{
		ID:        "doc",
		MediaType: "text/plain; charset=utf-8",
		Content:   []byte("hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestRegistryRejectsUnsupportedType(t *testing.T) {
	_, err := Default().Extract(context.Background(), domain.Document{
		ID:        "doc",
		MediaType: "image/png",
		Content:   []byte{0x89, 'P', 'N', 'G'},
	})
	require.Error(t, err)
	assert.True(t, ragerr.HasCode(err, ragerr.CodeMediaTypeUnsupported))
	assert.Equal(t, "image/png", ragerr.FieldsOf(err)["media_type"])
}

func TestPlainTextExtract(t *testing.T) {
	p := NewPlainText()

	text, err := p.Extract(context.Background(), domain.Document{
		Content: []byte("\ufeffline one\r\nline two\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\n", text)

	_, err = p.Extract(context.Background(), domain.Document{Content: []byte{0xff, 0xfe, 0xfd}})
	assert.True(t, ragerr.HasCode(err, ragerr.CodeExtractionFailure))
}

func TestPDFExtract(t *testing.T) {
	p := NewPDF()
	assert.True(t, p.Supports(MediaTypePDF))
	assert.False(t, p.Supports(MediaTypePlainText))

	text, err := p.Extract(context.Background(), domain.Document{
		ID:        "doc",
		MediaType: MediaTypePDF,
		Content:   buildPDF("Cats sleep sixteen hours a day"),
	})
	require.NoError(t, err)
	assert.Contains(t, text, "Cats sleep sixteen hours a day")
}

func TestPDFExtractRejectsGarbage(t *testing.T) {
	_, err := NewPDF().Extract(context.Background(), domain.Document{
		ID:        "doc",
		MediaType: MediaTypePDF,
		Content:   []byte("this is not a pdf"),
	})
	require.Error(t, err)
	assert.True(t, ragerr.HasCode(err, ragerr.CodeExtractionFailure))
}

// buildPDF assembles a single-page PDF with one line of Helvetica text and
// a correct cross-reference table.
func buildPDF(line string) []byte {
	stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", line)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}
