// Package api is the shared transport to the clinic records backend. It attaches the stored
// bearer token, stamps request ids, and turns every failure into an *apperr.Error.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"clinicdesk/internal/apperr"
	"clinicdesk/internal/tokenstore"
)

const (
	requestIDHeader = "X-Request-Id"
	maxErrorBody    = 64 << 10
)

// TokenSource yields the bearer token for authenticated calls.
type TokenSource interface {
	Load(ctx context.Context) (string, error)
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	tokens     TokenSource
	log        zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, log zerolog.Logger) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url must be http(s), got %q", baseURL)
	}

	return &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		tokens: tokens,
		log:    log,
	}, nil
}

// Request describes one backend call. Path is relative to the base URL.
type Request struct {
	Method string
	Path   string
	Body   any
	Auth   bool

	// Multipart, when set, replaces Body.
	Multipart *MultipartBody
}

type MultipartBody struct {
	Fields    map[string]string
	FileField string
	FileName  string
	FileType  string
	File      []byte
}

// Response is a raw successful response, for downloads.
type Response struct {
	Header http.Header
	Body   []byte
}

// Do sends req and decodes a JSON response into out when out is non-nil.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	resp, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Transport(apperr.DefaultMessage, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// Fetch sends req and returns the whole body and headers.
func (c *Client) Fetch(ctx context.Context, req Request) (Response, error) {
	resp, err := c.send(ctx, req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, apperr.Transport(apperr.DefaultMessage, fmt.Errorf("read body: %w", err))
	}
	return Response{Header: resp.Header, Body: body}, nil
}

func (c *Client) send(ctx context.Context, req Request) (*http.Response, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log.Warn().Err(err).
			Str("method", req.Method).
			Str("path", req.Path).
			Msg("backend unreachable")
		return nil, apperr.Transport(apperr.DefaultMessage, fmt.Errorf("do request: %w", err))
	}

	c.log.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Str("request_id", httpReq.Header.Get(requestIDHeader)).
		Msg("backend call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, apperr.FromStatus(resp.StatusCode, errorMessage(resp.Body))
	}
	return resp, nil
}

func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	ref, err := url.Parse(strings.TrimPrefix(req.Path, "/"))
	if err != nil {
		return nil, apperr.Transport(apperr.DefaultMessage, fmt.Errorf("parse path: %w", err))
	}
	target := c.baseURL.ResolveReference(ref)

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.Multipart != nil:
		buf, ct, err := encodeMultipart(req.Multipart)
		if err != nil {
			return nil, apperr.Transport(apperr.DefaultMessage, err)
		}
		body, contentType = buf, ct
	case req.Body != nil:
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, apperr.Transport(apperr.DefaultMessage, fmt.Errorf("encode body: %w", err))
		}
		body, contentType = bytes.NewReader(payload), "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, apperr.Transport(apperr.DefaultMessage, fmt.Errorf("create request: %w", err))
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(requestIDHeader, requestID(ctx))

	if req.Auth {
		token, err := c.tokens.Load(ctx)
		if err != nil {
			if errors.Is(err, tokenstore.ErrAbsent) {
				return nil, apperr.Auth("no token")
			}
			return nil, apperr.AuthWrap("no token", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	return httpReq, nil
}

func encodeMultipart(m *MultipartBody) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	for name, value := range m.Fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", name, err)
		}
	}

	if m.File != nil {
		field := m.FileField
		if field == "" {
			field = "file"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
			"name":     field,
			"filename": m.FileName,
		}))
		fileType := m.FileType
		if fileType == "" {
			fileType = "application/octet-stream"
		}
		h.Set("Content-Type", fileType)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create file part: %w", err)
		}
		if _, err := part.Write(m.File); err != nil {
			return nil, "", fmt.Errorf("write file part: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

// errorMessage pulls the server's explanation out of an error body, if it gave one.
func errorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

type requestIDKey struct{}

// WithRequestID propagates an inbound request id to backend calls made under ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// DispositionFilename extracts the file name from a Content-Disposition header.
func DispositionFilename(header http.Header, fallback string) string {
	cd := header.Get("Content-Disposition")
	if cd == "" {
		return fallback
	}
	_, params, err := mime.ParseMediaType(cd)
	if err != nil || params["filename"] == "" {
		return fallback
	}
	return params["filename"]
}
