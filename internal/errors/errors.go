// Package errors defines the error taxonomy shared by the ingest and query
// pipelines, the HTTP layer and the CLI. Every error carries a stable Code
// that classifies it as a client or server fault.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeConfigInvalid Code = "config.validate.invalid_value"

	CodeDocumentEmpty        Code = "ingest.document.empty"
	CodeMediaTypeUnsupported Code = "ingest.media_type.unsupported"
	CodeExtractionFailure    Code = "ingest.extract.failure"

	CodeDimensionMismatch Code = "store.dimension.mismatch"
	CodeNotIngested       Code = "query.corpus.not_ingested"

	CodeEmbeddingFailure  Code = "provider.embedding.failure"
	CodeCompletionFailure Code = "provider.completion.failure"
	CodeProviderTimeout   Code = "provider.call.timeout"

	CodeRequestInvalid     Code = "server.request.invalid"
	CodeRequestTooLarge    Code = "server.request.too_large"
	CodeRequestRateLimited Code = "server.request.rate_limited"
	CodeInternalFailure    Code = "server.internal.failure"
	CodeServerStartFailure Code = "server.start.failure"

	CodeClientRequestFailure  Code = "client.request.failure"
	CodeClientResponseInvalid Code = "client.response.invalid"
)

// Fault classifies who is responsible for an error.
type Fault string

const (
	FaultClient Fault = "client"
	FaultServer Fault = "server"
)

var statusByCode = map[Code]int{
	CodeConfigInvalid:         http.StatusInternalServerError,
	CodeDocumentEmpty:         http.StatusUnprocessableEntity,
	CodeMediaTypeUnsupported:  http.StatusUnsupportedMediaType,
	CodeExtractionFailure:     http.StatusUnprocessableEntity,
	CodeDimensionMismatch:     http.StatusInternalServerError,
	CodeNotIngested:           http.StatusConflict,
	CodeEmbeddingFailure:      http.StatusBadGateway,
	CodeCompletionFailure:     http.StatusBadGateway,
	CodeProviderTimeout:       http.StatusGatewayTimeout,
	CodeRequestInvalid:        http.StatusBadRequest,
	CodeRequestTooLarge:       http.StatusRequestEntityTooLarge,
	CodeRequestRateLimited:    http.StatusTooManyRequests,
	CodeInternalFailure:       http.StatusInternalServerError,
	CodeServerStartFailure:    http.StatusInternalServerError,
	CodeClientRequestFailure:  http.StatusBadGateway,
	CodeClientResponseInvalid: http.StatusBadGateway,
}

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldDocumentID(value string) Attr {
	return Field("document_id", value)
}

func FieldStage(value string) Attr {
	return Field("stage", value)
}

func FieldProvider(value string) Attr {
	return Field("provider", value)
}

func FieldGeneration(value uint64) Attr {
	return Field("generation", value)
}

func FieldMediaType(value string) Attr {
	return Field("media_type", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain, keeping its code.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

// CodeOf returns the code attached to err, or "" when err carries none.
// oops resolves to the innermost coded error, so wrapping a coded error with
// a different code does not reclassify it.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	switch code := oopsErr.Code().(type) {
	case Code:
		return code
	case string:
		return Code(code)
	case nil:
		return ""
	default:
		return Code(fmt.Sprintf("%v", code))
	}
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// HTTPStatus maps err to the status code the API answers with. Errors
// without a known code are internal failures.
func HTTPStatus(err error) int {
	if status, ok := statusByCode[CodeOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// FaultOf reports whether err was caused by the caller or by the server and
// its providers.
func FaultOf(err error) Fault {
	if HTTPStatus(err) < http.StatusInternalServerError {
		return FaultClient
	}
	return FaultServer
}

func Join(errs ...error) error {
	joined := stderrors.Join(errs...)
	if joined == nil {
		return nil
	}
	return oops.Code(CodeInternalFailure).Wrap(joined)
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}
