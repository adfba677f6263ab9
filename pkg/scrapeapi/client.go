package scrapeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the backend address used when none is configured.
const DefaultBaseURL = "http://localhost:5000"

// Remote job status markers reported by the status endpoint.
const (
	StatusCompleted = "completed"
	StatusError     = "error"
)

// Client defines the scrape backend operations.
type Client interface {
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error)
	GetStatus(ctx context.Context, jobID string) (*StatusResponse, error)
}

// SubmitRequest is the multipart body for POST /api/scrape.
type SubmitRequest struct {
	Filename string
	File     io.Reader
	Email    string
}

// SubmitResponse is the response from POST /api/scrape.
type SubmitResponse struct {
	JobID string `json:"job_id"`
}

// Progress is the per-job progress counter reported by the backend.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// StatusResponse is the response from GET /api/status/{job_id}.
type StatusResponse struct {
	Status   string   `json:"status"`
	Progress Progress `json:"progress"`
	Message  string   `json:"message"`
}

// Completed reports whether the backend signalled job completion.
func (s *StatusResponse) Completed() bool { return s.Status == StatusCompleted }

// Failed reports whether the backend signalled job failure.
func (s *StatusResponse) Failed() bool { return s.Status == StatusError }

// APIError is returned when the backend responds with a non-2xx status.
// Message holds the JSON "error" field when the body carried one.
type APIError struct {
	StatusCode int
	Body       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("scrapeapi: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("scrapeapi: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithHTTPClient sets a custom *http.Client. A nil client is ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout. It applies to a copy of the
// underlying *http.Client, so a client passed to WithHTTPClient is never
// modified.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		c.userAgent = ua
	}
}

// WithRateLimit caps the request rate across all callers sharing the client.
// A non-positive limit disables throttling.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *httpClient) {
		if limit <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
	timeout   time.Duration
	limiter   *rate.Limiter
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &httpClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: "pricescrape/1.0",
		http: &http.Client{
			Timeout: 2 * time.Minute,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c
}

func (c *httpClient) Submit(ctx context.Context, sr SubmitRequest) (*SubmitResponse, error) {
	body, contentType, err := encodeMultipart(sr)
	if err != nil {
		return nil, eris.Wrap(err, "scrapeapi: encode upload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/scrape", body)
	if err != nil {
		return nil, eris.Wrap(err, "scrapeapi: create request")
	}
	req.Header.Set("Content-Type", contentType)

	var resp SubmitResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, eris.Wrap(err, "scrapeapi: submit")
	}
	if resp.JobID == "" {
		return nil, eris.New("scrapeapi: submit: response has no job_id")
	}
	return &resp, nil
}

func (c *httpClient) GetStatus(ctx context.Context, jobID string) (*StatusResponse, error) {
	if jobID == "" {
		return nil, eris.New("scrapeapi: job id is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/status/"+url.PathEscape(jobID), nil)
	if err != nil {
		return nil, eris.Wrap(err, "scrapeapi: create request")
	}

	var resp StatusResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("scrapeapi: get status %s", jobID))
	}
	return &resp, nil
}

// encodeMultipart buffers the upload into a multipart/form-data body with
// the "file" and "email" fields.
func encodeMultipart(sr SubmitRequest) (io.Reader, string, error) {
	if sr.File == nil {
		return nil, "", eris.New("file is required")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", sr.Filename)
	if err != nil {
		return nil, "", eris.Wrap(err, "create file part")
	}
	if _, err := io.Copy(fw, sr.File); err != nil {
		return nil, "", eris.Wrap(err, "copy file part")
	}
	if err := mw.WriteField("email", sr.Email); err != nil {
		return nil, "", eris.Wrap(err, "write email field")
	}
	if err := mw.Close(); err != nil {
		return nil, "", eris.Wrap(err, "close multipart writer")
	}

	return &buf, mw.FormDataContentType(), nil
}

func (c *httpClient) do(ctx context.Context, req *http.Request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "rate limiter wait")
		}
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.New().String())

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &payload) == nil {
			apiErr.Message = payload.Error
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}

	return nil
}

// ErrorMessage returns the backend-reported error message carried by err,
// or "" when err holds no *APIError with a message.
func ErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}
