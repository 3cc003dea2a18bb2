package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	ragerr "documentor/internal/errors"
)

// APIError is the body of every error response.
type APIError struct {
	Status  int          `json:"status" example:"409" doc:"HTTP status code"`
	Code    ragerr.Code  `json:"code" example:"query.corpus.not_ingested" doc:"Stable machine-readable error code"`
	Fault   ragerr.Fault `json:"fault" enum:"client,server" doc:"Whether the caller or the server is at fault"`
	Message string       `json:"error" doc:"Human-readable description"`
}

func (e *APIError) Error() string { return e.Message }

func (e *APIError) GetStatus() int { return e.Status }

// toAPIError classifies err. Messages of server faults are passed through;
// they come from our own wrapping and never carry credentials.
func toAPIError(err error) *APIError {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr
	}
	return &APIError{
		Status:  ragerr.HTTPStatus(err),
		Code:    codeOrInternal(err),
		Fault:   ragerr.FaultOf(err),
		Message: err.Error(),
	}
}

func codeOrInternal(err error) ragerr.Code {
	if code := ragerr.CodeOf(err); code != "" {
		return code
	}
	return ragerr.CodeInternalFailure
}

// Errors raised by huma itself (body parsing, schema validation, oversized
// bodies) get the same shape as ours.
func init() {
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		details := make([]string, 0, len(errs)+1)
		details = append(details, msg)
		for _, e := range errs {
			if e != nil {
				details = append(details, e.Error())
			}
		}
		message := strings.Join(details, ": ")

		var code ragerr.Code
		switch {
		case status == http.StatusRequestEntityTooLarge:
			code = ragerr.CodeRequestTooLarge
		case status == http.StatusTooManyRequests:
			code = ragerr.CodeRequestRateLimited
		case status >= http.StatusInternalServerError:
			code = ragerr.CodeInternalFailure
		default:
			code = ragerr.CodeRequestInvalid
		}
		return toAPIError(ragerr.New(code, message))
	}
}

// writeError renders err for handlers that bypass huma.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	apiErr := toAPIError(err)
	if apiErr.Fault == ragerr.FaultServer {
		logger.Error("request failed", "code", apiErr.Code, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	if err := json.NewEncoder(w).Encode(apiErr); err != nil {
		logger.Warn("failed to write error response", "error", err)
	}
}
