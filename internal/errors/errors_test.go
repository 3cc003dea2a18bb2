package errors_test

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ragerr "documentor/internal/errors"
)

func TestNewCarriesCodeAndFields(t *testing.T) {
	err := ragerr.New(ragerr.CodeDocumentEmpty, "document has no text", ragerr.FieldDocumentID("doc-1"))
	require.Error(t, err)
	assert.Equal(t, ragerr.CodeDocumentEmpty, ragerr.CodeOf(err))
	assert.Equal(t, "doc-1", ragerr.FieldsOf(err)["document_id"])
	assert.Contains(t, err.Error(), "document has no text")
}

func TestErrorfWrapsInnerError(t *testing.T) {
	inner := stderrors.New("connection reset")
	err := ragerr.Errorf(ragerr.CodeEmbeddingFailure, "embedding batch: %w", inner)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, ragerr.CodeEmbeddingFailure, ragerr.CodeOf(err))
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, ragerr.Wrap(nil, ragerr.CodeInternalFailure, "ignored"))
	assert.NoError(t, ragerr.Wrapf(nil, ragerr.CodeInternalFailure, "ignored %d", 1))
	assert.NoError(t, ragerr.With(nil, ragerr.FieldStage("chunk")))
}

func TestWrapKeepsInnermostCode(t *testing.T) {
	inner := ragerr.New(ragerr.CodeExtractionFailure, "bad pdf")
	outer := ragerr.Wrap(inner, ragerr.CodeInternalFailure, "ingest")
	assert.Equal(t, ragerr.CodeExtractionFailure, ragerr.CodeOf(outer))
	assert.True(t, ragerr.HasCode(outer, ragerr.CodeExtractionFailure))
}

func TestWithKeepsCodeAndAddsFields(t *testing.T) {
	err := ragerr.New(ragerr.CodeNotIngested, "no document")
	err = ragerr.With(err, ragerr.FieldStage("query"))
	assert.Equal(t, ragerr.CodeNotIngested, ragerr.CodeOf(err))
	assert.Equal(t, "query", ragerr.FieldsOf(err)["stage"])
}

func TestWithDefaultsToInternalFailure(t *testing.T) {
	err := ragerr.With(stderrors.New("plain"), ragerr.FieldStage("x"))
	assert.Equal(t, ragerr.CodeInternalFailure, ragerr.CodeOf(err))
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, ragerr.Code(""), ragerr.CodeOf(stderrors.New("plain")))
	assert.Equal(t, ragerr.Code(""), ragerr.CodeOf(nil))
	assert.False(t, ragerr.HasCode(nil, ragerr.CodeInternalFailure))
	assert.Nil(t, ragerr.FieldsOf(stderrors.New("plain")))
}

func TestClassification(t *testing.T) {
	tests := []struct {
		code   ragerr.Code
		status int
		fault  ragerr.Fault
	}{
		{ragerr.CodeConfigInvalid, http.StatusInternalServerError, ragerr.FaultServer},
		{ragerr.CodeDocumentEmpty, http.StatusUnprocessableEntity, ragerr.FaultClient},
		{ragerr.CodeMediaTypeUnsupported, http.StatusUnsupportedMediaType, ragerr.FaultClient},
		{ragerr.CodeExtractionFailure, http.StatusUnprocessableEntity, ragerr.FaultClient},
		{ragerr.CodeDimensionMismatch, http.StatusInternalServerError, ragerr.FaultServer},
		{ragerr.CodeEmbeddingFailure, http.StatusBadGateway, ragerr.FaultServer},
		{ragerr.CodeNotIngested, http.StatusConflict, ragerr.FaultClient},
		{ragerr.CodeCompletionFailure, http.StatusBadGateway, ragerr.FaultServer},
		{ragerr.CodeProviderTimeout, http.StatusGatewayTimeout, ragerr.FaultServer},
		{ragerr.CodeRequestInvalid, http.StatusBadRequest, ragerr.FaultClient},
		{ragerr.CodeRequestTooLarge, http.StatusRequestEntityTooLarge, ragerr.FaultClient},
		{ragerr.CodeRequestRateLimited, http.StatusTooManyRequests, ragerr.FaultClient},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := ragerr.New(tt.code, "boom")
			assert.Equal(t, tt.status, ragerr.HTTPStatus(err))
			assert.Equal(t, tt.fault, ragerr.FaultOf(err))
		})
	}
}

func TestUnknownErrorIsServerFault(t *testing.T) {
	err := stderrors.New("surprise")
	assert.Equal(t, http.StatusInternalServerError, ragerr.HTTPStatus(err))
	assert.Equal(t, ragerr.FaultServer, ragerr.FaultOf(err))
}

func TestJoin(t *testing.T) {
	assert.NoError(t, ragerr.Join())
	a, b := stderrors.New("a"), stderrors.New("b")
	err := ragerr.Join(a, b)
	assert.ErrorIs(t, err, a)
	assert.ErrorIs(t, err, b)
	assert.Equal(t, ragerr.CodeInternalFailure, ragerr.CodeOf(err))
}
