package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"shortsadmin/internal/logging"
)

const (
	// HeaderRequestID carries the per-request correlation identifier.
	HeaderRequestID = "X-Request-ID"

	maxErrorBody = 64 << 10
	apiPrefix    = "/api"
)

// TokenSource supplies the current bearer credential. session.Store
// satisfies it.
type TokenSource interface {
	Token() string
}

// Options configures a Client.
type Options struct {
	BaseURL string
	// Timeout bounds each request. Zero means no deadline beyond ctx.
	Timeout time.Duration
	// RatePerSecond caps outgoing requests across every caller sharing the
	// client. Zero disables the limiter.
	RatePerSecond float64
	Burst         int
	HTTPClient    *http.Client
	Logger        *slog.Logger
	UserAgent     string
}

// Request carries the optional parts of a call.
type Request struct {
	Query  url.Values
	Body   any
	Upload *Upload
}

// Upload is a single multipart file part.
type Upload struct {
	Field       string
	FileName    string
	ContentType string
	Content     io.Reader
}

// Client issues calls against the admin backend. It never retries.
type Client struct {
	base      *url.URL
	http      *http.Client
	tokens    TokenSource
	limiter   *rate.Limiter
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
	newID     func() string
}

// New builds a Client. tokens may be nil for unauthenticated use.
func New(opts Options, tokens TokenSource) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		return nil, errors.New("gateway: base url is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("gateway: parse base url: %w", err)
	}
	base.Path = strings.TrimSuffix(strings.TrimRight(base.Path, "/"), apiPrefix)
	base.RawQuery = ""
	base.Fragment = ""

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "shortsadmin"
	}

	return &Client{
		base:      base,
		http:      httpClient,
		tokens:    tokens,
		limiter:   limiter,
		timeout:   opts.Timeout,
		userAgent: userAgent,
		logger:    logging.NewComponentLogger(opts.Logger, "gateway"),
		newID:     uuid.NewString,
	}, nil
}

// BaseURL returns the backend origin without the /api prefix.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Path joins escaped segments into an API path, e.g.
// Path("admin", "users", id, "active").
func Path(segments ...string) string {
	var b strings.Builder
	for _, segment := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(segment))
	}
	return b.String()
}

// Do sends one request to /api + path and decodes a 2xx JSON body into out
// when out is non-nil. A request ID already on ctx is reused. Failures are
// *APIError except for cancellation before the request leaves the client.
func (c *Client) Do(ctx context.Context, method, path string, req Request, out any) error {
	requestID, ok := logging.RequestIDFromContext(ctx)
	if !ok {
		requestID = c.newID()
		ctx = logging.WithRequestID(ctx, requestID)
	}
	logger := logging.WithContext(ctx, c.logger)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	endpoint, err := c.endpoint(path, req.Query)
	if err != nil {
		return err
	}
	body, contentType, err := encodeBody(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set(HeaderRequestID, requestID)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	started := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		logger.Debug("request failed",
			logging.String("method", method),
			logging.String("path", path),
			logging.Error(err),
		)
		return transportError(requestID, unwrapURLError(err))
	}
	defer resp.Body.Close()

	logger.Debug("request completed",
		logging.String("method", method),
		logging.String("path", path),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(started)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return protocolError(resp.StatusCode, requestID, data)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &APIError{
			Status:    resp.StatusCode,
			Message:   "decode response: " + err.Error(),
			RequestID: requestID,
			Err:       err,
		}
	}
	return nil
}

// Get is Do with GET and a query.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, Request{Query: query}, out)
}

func (c *Client) endpoint(path string, query url.Values) (string, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	target, err := url.Parse(strings.TrimRight(c.base.String(), "/") + apiPrefix + path)
	if err != nil {
		return "", fmt.Errorf("build endpoint %q: %w", path, err)
	}
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}
	return target.String(), nil
}

func encodeBody(req Request) (io.Reader, string, error) {
	switch {
	case req.Upload != nil:
		return encodeMultipart(req.Upload)
	case req.Body != nil:
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, "", fmt.Errorf("encode request body: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	default:
		return nil, "", nil
	}
}

func encodeMultipart(upload *Upload) (io.Reader, string, error) {
	if upload.Content == nil {
		return nil, "", errors.New("upload content is required")
	}
	field := upload.Field
	if field == "" {
		field = "file"
	}
	fileName := upload.FileName
	if fileName == "" {
		fileName = "upload.bin"
	}
	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, fileName))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := io.Copy(part, upload.Content); err != nil {
		return nil, "", fmt.Errorf("read upload content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("finish multipart body: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err
	}
	return err
}
