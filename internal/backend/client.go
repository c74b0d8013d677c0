// Package backend talks to the remote visual-search API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/cloo-solutions/vsearch/internal/domain"
	"github.com/cloo-solutions/vsearch/internal/telemetry"
)

const (
	DefaultBaseURL   = "http://127.0.0.1:8000"
	defaultUserAgent = "vsearch/0.1"

	SearchPath   = "/search-high-res/"
	ImagePath    = "/get-image-by-path/"
	FileField    = "file"
	pathParam    = "path"
	fallbackMIME = "application/octet-stream"
)

// Client talks to the visual-search HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient builds a Client from a base URL or host:port value.
// The default http.Client has no timeout: a search runs until the backend answers.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return strings.TrimSuffix(c.baseURL.String(), "/")
}

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Search request failed with status: %d", e.StatusCode)
}

type searchResponse struct {
	ResultPaths []string `json:"result_paths"`
}

// Search uploads the query image as multipart form data and returns the result
// paths in server order. A missing result_paths field yields an empty slice.
func (c *Client) Search(ctx context.Context, img *domain.QueryImage) ([]string, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if img == nil {
		return nil, domain.ErrNoFileSelected
	}

	ctx, span := telemetry.StartSpan(ctx, "backend.search", telemetry.SpanAttributes{
		Operation: "search",
		Filename:  img.Filename,
	})
	defer span.End()

	body, contentType, err := encodeMultipart(img)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	reqURL := c.baseURL.ResolveReference(&url.URL{Path: SearchPath})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
		span.SetError(statusErr)
		return nil, statusErr
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if payload.ResultPaths == nil {
		payload.ResultPaths = []string{}
	}
	span.SetResults(len(payload.ResultPaths))
	return payload.ResultPaths, nil
}

// ImageURL builds the fetch-by-path URL for a result path.
func (c *Client) ImageURL(path string) string {
	return ImageURL(c.BaseURL(), path)
}

// ImageURL builds {base}/get-image-by-path/?path=<encoded path>.
func ImageURL(baseURL, path string) string {
	return strings.TrimSuffix(baseURL, "/") + ImagePath + "?" + pathParam + "=" + EncodeURIComponent(path)
}

// FetchImage streams a result image from the backend. The caller closes the body.
func (c *Client) FetchImage(ctx context.Context, path string) (io.ReadCloser, string, error) {
	if c == nil {
		return nil, "", fmt.Errorf("client is nil")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ImageURL(path), nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("execute request: %w", err)
	}
	if resp.StatusCode >= 400 {
		_ = resp.Body.Close()
		return nil, "", &StatusError{StatusCode: resp.StatusCode}
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeMultipart(img *domain.QueryImage) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	contentType := img.MimeType
	if contentType == "" {
		contentType = fallbackMIME
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FileField, quoteEscaper.Replace(img.Filename)))
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", fmt.Errorf("write multipart part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse backend url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse backend url %q: missing host", raw)
	}
	u.Path = ""
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
