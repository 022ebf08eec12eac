package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/goliatone/go-integrations/core"
)

const defaultRESTClientTimeout = 30 * time.Second
const defaultRESTResponseBodyLimit int64 = 10 << 20 // 10 MiB

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Option func(*RESTAdapter)

func WithMaxResponseBodyBytes(limit int64) Option {
	return func(a *RESTAdapter) {
		if limit > 0 {
			a.MaxResponseBodyBytes = limit
		}
	}
}

// WithDefaultTimeout applies to requests that do not set their own timeout.
func WithDefaultTimeout(timeout time.Duration) Option {
	return func(a *RESTAdapter) {
		if timeout > 0 {
			a.DefaultTimeout = timeout
		}
	}
}

// WithRateLimit throttles outbound calls made through the adapter. A
// non-positive perSecond disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(a *RESTAdapter) {
		if perSecond <= 0 {
			a.Limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		a.Limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func WithDefaultHeaders(headers map[string]string) Option {
	return func(a *RESTAdapter) {
		for key, value := range headers {
			a.DefaultHeaders[key] = value
		}
	}
}

type RESTAdapter struct {
	Client               HTTPDoer
	DefaultHeaders       map[string]string
	DefaultTimeout       time.Duration
	MaxResponseBodyBytes int64
	Limiter              *rate.Limiter
}

func NewRESTAdapter(client HTTPDoer, opts ...Option) *RESTAdapter {
	if client == nil {
		client = &http.Client{Timeout: defaultRESTClientTimeout}
	}
	adapter := &RESTAdapter{
		Client:               client,
		DefaultHeaders:       map[string]string{},
		DefaultTimeout:       defaultRESTClientTimeout,
		MaxResponseBodyBytes: defaultRESTResponseBodyLimit,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(adapter)
	}
	return adapter
}

// NewRESTAdapterFromConfig builds an adapter from the http config section.
func NewRESTAdapterFromConfig(cfg core.HTTPConfig, client HTTPDoer) *RESTAdapter {
	return NewRESTAdapter(client,
		WithDefaultTimeout(cfg.RequestTimeout),
		WithMaxResponseBodyBytes(cfg.MaxResponseBodyBytes),
		WithRateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst),
	)
}

// Do performs one HTTP call. Non-2xx responses are not errors; callers decide
// on status handling. Every call runs under a timeout.
func (a *RESTAdapter) Do(ctx context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if a == nil || a.Client == nil {
		return core.TransportResponse{}, core.ConfigurationError("transport: rest adapter requires an http client", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	method := strings.TrimSpace(strings.ToUpper(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	rawURL := strings.TrimSpace(req.URL)
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return core.TransportResponse{}, core.ValidationError("transport: invalid request url: " + err.Error())
	}
	if rawURL == "" || !parsedURL.IsAbs() {
		return core.TransportResponse{}, core.ValidationError(fmt.Sprintf("transport: absolute request url is required, got %q", rawURL))
	}

	if len(req.Query) > 0 {
		query := parsedURL.Query()
		for key, value := range req.Query {
			if strings.TrimSpace(key) == "" {
				continue
			}
			query.Set(strings.TrimSpace(key), value)
		}
		parsedURL.RawQuery = query.Encode()
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = a.DefaultTimeout
	}
	if timeout <= 0 {
		timeout = defaultRESTClientTimeout
	}
	requestCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	meta := map[string]any{"method": method, "url": redactURL(parsedURL)}
	if a.Limiter != nil {
		if err := a.Limiter.Wait(requestCtx); err != nil {
			return core.TransportResponse{}, core.TransportError(err, "transport: rate limit wait", meta)
		}
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(requestCtx, method, parsedURL.String(), body)
	if err != nil {
		return core.TransportResponse{}, core.ValidationError("transport: create http request: " + err.Error())
	}
	for key, value := range a.DefaultHeaders {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	for key, value := range req.Headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	if len(req.Body) > 0 && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	startedAt := time.Now()
	httpRes, err := a.Client.Do(httpReq)
	if err != nil {
		return core.TransportResponse{}, core.TransportError(scrubRequestError(err, parsedURL), "transport: execute http request", meta)
	}
	defer httpRes.Body.Close()

	maxBodyBytes := resolveResponseBodyLimit(a.MaxResponseBodyBytes)
	payload, err := io.ReadAll(io.LimitReader(httpRes.Body, maxBodyBytes+1))
	if err != nil {
		meta["status_code"] = httpRes.StatusCode
		return core.TransportResponse{}, core.TransportError(err, "transport: read response body", meta)
	}
	if int64(len(payload)) > maxBodyBytes {
		meta["status_code"] = httpRes.StatusCode
		meta["response_limit_b"] = maxBodyBytes
		return core.TransportResponse{}, core.TransportError(nil,
			fmt.Sprintf("transport: response body exceeds limit of %d bytes", maxBodyBytes),
			meta,
		)
	}

	return core.TransportResponse{
		StatusCode: httpRes.StatusCode,
		Headers:    cloneHeader(httpRes.Header),
		Body:       payload,
		Duration:   time.Since(startedAt),
	}, nil
}

// IsSuccess reports a 2xx status.
func IsSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

func cloneHeader(headers http.Header) map[string][]string {
	out := make(map[string][]string, len(headers))
	for key, values := range headers {
		out[key] = append([]string(nil), values...)
	}
	return out
}

// redactURL drops the query string, which may carry an api key.
func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	clone := *u
	clone.RawQuery = ""
	clone.User = nil
	return clone.String()
}

// scrubRequestError rebuilds the *url.Error returned by the client with the
// query string and userinfo removed from its URL.
func scrubRequestError(err error, requestURL *url.URL) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	target := requestURL
	if parsed, parseErr := url.Parse(urlErr.URL); parseErr == nil {
		target = parsed
	}
	scrubbed := &url.Error{Op: urlErr.Op, URL: redactURL(target), Err: urlErr.Err}
	if requestURL != nil && requestURL.RawQuery != "" && strings.Contains(scrubbed.Error(), requestURL.RawQuery) {
		return errors.New(strings.ReplaceAll(scrubbed.Error(), requestURL.RawQuery, "REDACTED"))
	}
	return scrubbed
}

func resolveResponseBodyLimit(adapterLimit int64) int64 {
	if adapterLimit > 0 {
		return adapterLimit
	}
	return defaultRESTResponseBodyLimit
}

var _ core.TransportAdapter = (*RESTAdapter)(nil)
