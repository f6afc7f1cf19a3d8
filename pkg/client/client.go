// Package client issues HTTP requests against the configured backend base
// URL. It attaches the session's bearer header, serializes bodies and query
// parameters, and translates every transport or HTTP failure into the typed
// taxonomy in pkg/apierror. It carries no retry logic; candidate-path
// probing belongs to pkg/endpoint.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/godeps/schoolsdk-go/pkg/apierror"
	"github.com/godeps/schoolsdk-go/pkg/session"
	"github.com/godeps/schoolsdk-go/pkg/telemetry"
)

const (
	// DefaultReadTimeout bounds ordinary list/detail calls.
	DefaultReadTimeout = 15 * time.Second
	// DefaultUploadTimeout bounds bulk spreadsheet uploads, which move a
	// whole file and run server-side row processing.
	DefaultUploadTimeout = 2 * time.Minute

	tokenPath = "/token/"
)

// Response is a successful backend reply.
type Response struct {
	Status  int
	Payload json.RawMessage
}

// Doer is the request surface consumed by the resolver and the stores.
type Doer interface {
	Do(ctx context.Context, method, path string, body any, query url.Values) (Response, error)
}

// Client wraps one backend base URL under one session.
type Client struct {
	base          *url.URL
	http          *http.Client
	sess          *session.Manager
	tel           *telemetry.Manager
	readTimeout   time.Duration
	uploadTimeout time.Duration
	userAgent     string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying transport.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTimeouts overrides the read and upload bounds.
func WithTimeouts(read, upload time.Duration) Option {
	return func(c *Client) {
		if read > 0 {
			c.readTimeout = read
		}
		if upload > 0 {
			c.uploadTimeout = upload
		}
	}
}

// WithTelemetry attaches a telemetry manager for spans and metrics.
func WithTelemetry(tel *telemetry.Manager) Option {
	return func(c *Client) { c.tel = tel }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if strings.TrimSpace(ua) != "" {
			c.userAgent = ua
		}
	}
}

// New builds a client for baseURL bound to sess.
func New(baseURL string, sess *session.Manager, opts ...Option) (*Client, error) {
	if sess == nil {
		return nil, errors.New("client: session manager is required")
	}
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("client: base url %q needs scheme and host", baseURL)
	}
	c := &Client{
		base:          base,
		http:          &http.Client{},
		sess:          sess,
		readTimeout:   DefaultReadTimeout,
		uploadTimeout: DefaultUploadTimeout,
		userAgent:     "schoolsdk-go",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Session exposes the bound session manager.
func (c *Client) Session() *session.Manager { return c.sess }

// Do issues one request. body, when non-nil, is JSON-encoded. The call is
// bounded by the read timeout unless ctx already carries a tighter deadline.
func (c *Client) Do(ctx context.Context, method, path string, body any, query url.Values) (Response, error) {
	var reader io.Reader
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return Response{}, fmt.Errorf("client: encode body: %w", err)
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, reader, contentType, query, c.readTimeout)
}

// Upload posts a multipart form with one file field plus extra string
// fields, under the longer upload bound.
func (c *Client) Upload(ctx context.Context, path, field, filename string, file io.Reader, extra map[string]string) (Response, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile(field, filename)
	if err != nil {
		return Response{}, fmt.Errorf("client: create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return Response{}, fmt.Errorf("client: read upload: %w", err)
	}
	for key, value := range extra {
		if err := form.WriteField(key, value); err != nil {
			return Response{}, fmt.Errorf("client: write form field: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return Response{}, fmt.Errorf("client: finish form: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, &buf, form.FormDataContentType(), nil, c.uploadTimeout)
}

// Credentials is the login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Authenticate exchanges credentials for a token pair and logs the session
// in. A 401 surfaces as an auth failure and, like any 401, forces the
// session to Anonymous, where a failed login already is.
func (c *Client) Authenticate(ctx context.Context, username, password string) error {
	resp, err := c.Do(ctx, http.MethodPost, tokenPath, Credentials{Username: username, Password: password}, nil)
	if err != nil {
		return err
	}
	var tokens tokenResponse
	if err := json.Unmarshal(resp.Payload, &tokens); err != nil {
		return fmt.Errorf("client: decode token response: %w", err)
	}
	return c.sess.Login(tokens.Access, tokens.Refresh)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, query url.Values, bound time.Duration) (Response, error) {
	op := method + " " + path
	target, err := c.resolveURL(path, query)
	if err != nil {
		return Response{}, err
	}

	if _, ok := ctx.Deadline(); !ok && bound > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, bound)
		defer cancel()
	}

	ctx, span := telemetry.StartSpan(ctx, "school.client.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(c.sanitize(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		)...))
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		telemetry.EndSpan(span, err)
		return Response{}, fmt.Errorf("client: build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if header := c.sess.AuthHeader(); header != "" {
		req.Header.Set("Authorization", header)
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		apiErr := c.classifyTransport(op, err)
		c.record(ctx, span, method, path, 0, start, apiErr)
		return Response{}, apiErr
	}
	defer httpResp.Body.Close()

	payload, err := io.ReadAll(httpResp.Body)
	if err != nil {
		apiErr := c.classifyTransport(op, err)
		c.record(ctx, span, method, path, httpResp.StatusCode, start, apiErr)
		return Response{}, apiErr
	}

	if httpResp.StatusCode >= 400 {
		apiErr := apierror.FromStatus(op, httpResp.StatusCode, payload)
		if apiErr.Kind == apierror.KindAuth {
			// A rejected credential ends the session; it is never
			// retried silently.
			c.sess.Invalidate()
		}
		c.record(ctx, span, method, path, httpResp.StatusCode, start, apiErr)
		return Response{}, apiErr
	}

	c.record(ctx, span, method, path, httpResp.StatusCode, start, nil)
	return Response{Status: httpResp.StatusCode, Payload: payload}, nil
}

func (c *Client) resolveURL(path string, query url.Values) (string, error) {
	if !strings.HasPrefix(path, "/") {
		return "", fmt.Errorf("client: path %q must be rooted", path)
	}
	target := *c.base
	target.Path = strings.TrimSuffix(c.base.Path, "/") + path
	if len(query) > 0 {
		merged := target.Query()
		for key, values := range query {
			for _, v := range values {
				merged.Add(key, v)
			}
		}
		target.RawQuery = merged.Encode()
	}
	return target.String(), nil
}

func (c *Client) classifyTransport(op string, err error) *apierror.Error {
	kind := apierror.KindNetwork
	if errors.Is(err, context.DeadlineExceeded) {
		kind = apierror.KindTimeout
	} else {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			kind = apierror.KindTimeout
		}
	}
	return apierror.New(kind, op, err)
}

func (c *Client) record(ctx context.Context, span trace.Span, method, path string, status int, start time.Time, err error) {
	data := telemetry.RequestData{
		Method:   method,
		Path:     path,
		Status:   status,
		Duration: time.Since(start),
		Error:    err,
	}
	if err != nil {
		data.ErrorKind = apierror.KindOf(err).String()
	}
	if c.tel != nil {
		c.tel.RecordRequest(ctx, data)
	} else {
		telemetry.RecordRequest(ctx, data)
	}
	if status != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	telemetry.EndSpan(span, err)
}

func (c *Client) sanitize(attrs ...attribute.KeyValue) []attribute.KeyValue {
	if c.tel != nil {
		return c.tel.SanitizeAttributes(attrs...)
	}
	return telemetry.SanitizeAttributes(attrs...)
}

var _ Doer = (*Client)(nil)
