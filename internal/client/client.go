// Package client talks to a running documentor server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	ragerr "documentor/internal/errors"
	"documentor/internal/extractor"
	"documentor/internal/server"
)

// Default configuration values.
const (
	DefaultBaseURL = "http://127.0.0.1:5000"
	DefaultTimeout = 180 * time.Second
)

// Client is a typed wrapper over the HTTP API.
type Client struct {
	http    *http.Client
	baseURL string
}

// New creates a Client for baseURL. A zero timeout uses DefaultTimeout.
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// IngestFile uploads the file at path.
func (c *Client) IngestFile(ctx context.Context, path string) (server.IngestBody, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return server.IngestBody{}, ragerr.Wrapf(err, ragerr.CodeRequestInvalid, "reading %s", path)
	}
	return c.Ingest(ctx, filepath.Base(path), content)
}

// Ingest uploads content under name. The media type is inferred from the
// file extension.
func (c *Client) Ingest(ctx context.Context, name string, content []byte) (server.IngestBody, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	h.Set("Content-Type", extractor.InferMediaType(name, extractor.MediaTypeOctet))
	part, err := mw.CreatePart(h)
	if err != nil {
		return server.IngestBody{}, ragerr.Wrap(err, ragerr.CodeClientRequestFailure, "building upload")
	}
	if _, err := part.Write(content); err != nil {
		return server.IngestBody{}, ragerr.Wrap(err, ragerr.CodeClientRequestFailure, "building upload")
	}
	if err := mw.Close(); err != nil {
		return server.IngestBody{}, ragerr.Wrap(err, ragerr.CodeClientRequestFailure, "building upload")
	}

	var out server.IngestBody
	err = c.do(ctx, http.MethodPost, "/api/ingest", mw.FormDataContentType(), &buf, &out)
	return out, err
}

// Ask sends a question and returns the grounded answer.
func (c *Client) Ask(ctx context.Context, prompt string) (server.ChatBody, error) {
	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return server.ChatBody{}, ragerr.Wrap(err, ragerr.CodeClientRequestFailure, "marshal request")
	}

	var out server.ChatBody
	err = c.do(ctx, http.MethodPost, "/api/chat", "application/json", bytes.NewReader(body), &out)
	return out, err
}

// Status returns the readiness report. A server that is up but has no
// document yet answers 503; that is reported as Ready=false, not an error.
func (c *Client) Status(ctx context.Context) (server.StatusBody, error) {
	var out server.StatusBody
	err := c.do(ctx, http.MethodGet, "/api/status", "", nil, &out)
	return out, err
}

// Health checks liveness.
func (c *Client) Health(ctx context.Context) error {
	var out server.HealthBody
	if err := c.do(ctx, http.MethodGet, "/health", "", nil, &out); err != nil {
		return err
	}
	if out.Status != "ok" {
		return ragerr.Errorf(ragerr.CodeClientResponseInvalid, "unexpected health status %q", out.Status)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return ragerr.Wrap(err, ragerr.CodeClientRequestFailure, "create request")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return ragerr.Wrapf(err, ragerr.CodeClientRequestFailure, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return ragerr.Wrap(err, ragerr.CodeClientResponseInvalid, "read response")
	}

	if resp.StatusCode >= http.StatusBadRequest && !(path == "/api/status" && resp.StatusCode == http.StatusServiceUnavailable) {
		return decodeError(resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return ragerr.Wrapf(err, ragerr.CodeClientResponseInvalid, "decode %s response", path)
	}
	return nil
}

// decodeError rebuilds the server's classified error so callers can match
// on its code.
func decodeError(status int, data []byte) error {
	var apiErr server.APIError
	if err := json.Unmarshal(data, &apiErr); err != nil || apiErr.Code == "" {
		return ragerr.Errorf(ragerr.CodeClientResponseInvalid,
			"server returned %d: %s", status, strings.TrimSpace(string(data)))
	}
	return ragerr.New(apiErr.Code, apiErr.Message, ragerr.Field("status", status))
}
