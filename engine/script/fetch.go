package script

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dop251/goja"

	"github.com/goliatone/go-integrations/core"
)

type fetchOptions struct {
	Method  string
	Headers map[string]string
	Params  map[string]string
	Body    []byte
	Auth    bool
}

// fetch returns the context.fetch binding. Calls run synchronously on the
// runtime goroutine and hand back an already settled promise, so no event
// loop is needed.
func (s *sandbox) fetch(authHeaders map[string]string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		promise, resolve, reject := s.vm.NewPromise()
		value, err := s.doFetch(call, authHeaders)
		if err != nil {
			reject(s.vm.NewGoError(err))
		} else {
			resolve(value)
		}
		return s.vm.ToValue(promise)
	}
}

func (s *sandbox) doFetch(call goja.FunctionCall, authHeaders map[string]string) (goja.Value, error) {
	s.mu.Lock()
	s.fetchCalls++
	calls := s.fetchCalls
	s.mu.Unlock()
	if calls > s.runner.maxFetchCalls {
		return nil, fmt.Errorf("fetch limit of %d calls exceeded", s.runner.maxFetchCalls)
	}

	rawURL := strings.TrimSpace(call.Argument(0).String())
	if goja.IsUndefined(call.Argument(0)) || rawURL == "" {
		return nil, fmt.Errorf("fetch requires a url")
	}
	target, err := s.resolveURL(rawURL)
	if err != nil {
		return nil, err
	}
	opts, err := s.parseOptions(call.Argument(1))
	if err != nil {
		return nil, err
	}

	headers := map[string]string{}
	if opts.Auth {
		for key, value := range authHeaders {
			headers[key] = value
		}
	}
	for key, value := range opts.Headers {
		headers[key] = value
	}
	query := map[string]string{}
	if opts.Auth {
		for key, value := range s.runner.headers.QueryParams(s.req.Auth) {
			query[key] = value
		}
	}
	for key, value := range opts.Params {
		query[key] = value
	}

	res, err := s.runner.transport.Do(s.ctx, core.TransportRequest{
		Method:  opts.Method,
		URL:     target,
		Headers: headers,
		Query:   query,
		Body:    opts.Body,
		Timeout: s.runner.requestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s failed: %s", opts.Method, redactedURL(target), core.MapError(err).Message)
	}
	return s.responseObject(res)
}

func (s *sandbox) resolveURL(raw string) (string, error) {
	if parsed, err := url.Parse(raw); err == nil && parsed.IsAbs() {
		return raw, nil
	}
	base := strings.TrimSpace(s.req.BaseURL)
	if parsed, err := url.Parse(base); base == "" || err != nil || !parsed.IsAbs() {
		return "", fmt.Errorf("fetch: relative url %q needs an absolute baseUrl", raw)
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(raw, "/"), nil
}

func (s *sandbox) parseOptions(value goja.Value) (fetchOptions, error) {
	opts := fetchOptions{Method: http.MethodGet, Auth: true}
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return opts, nil
	}
	raw, ok := value.Export().(map[string]any)
	if !ok {
		return opts, fmt.Errorf("fetch options must be an object")
	}
	if method := strings.ToUpper(strings.TrimSpace(stringValue(raw["method"]))); method != "" {
		opts.Method = method
	}
	if auth, ok := raw["auth"].(bool); ok {
		opts.Auth = auth
	}
	opts.Headers = stringMap(raw["headers"])
	opts.Params = stringMap(raw["params"])
	switch body := raw["body"].(type) {
	case nil:
	case string:
		opts.Body = []byte(body)
	default:
		encoded, err := json.Marshal(body)
		if err != nil {
			return opts, fmt.Errorf("fetch body could not be encoded: %w", err)
		}
		opts.Body = encoded
		if _, ok := opts.Headers["Content-Type"]; !ok {
			if opts.Headers == nil {
				opts.Headers = map[string]string{}
			}
			opts.Headers["Content-Type"] = "application/json"
		}
	}
	return opts, nil
}

func (s *sandbox) responseObject(res core.TransportResponse) (goja.Value, error) {
	headers := s.vm.NewObject()
	for key, values := range res.Headers {
		if err := headers.Set(strings.ToLower(key), strings.Join(values, ", ")); err != nil {
			return nil, err
		}
	}
	var data any
	if trimmed := bytes.TrimSpace(res.Body); len(trimmed) > 0 {
		if err := json.Unmarshal(trimmed, &data); err != nil {
			data = nil
		}
	}
	text := string(res.Body)

	object := s.vm.NewObject()
	for key, value := range map[string]any{
		"status":     res.StatusCode,
		"ok":         res.StatusCode >= 200 && res.StatusCode < 300,
		"statusText": http.StatusText(res.StatusCode),
		"headers":    headers,
		"data":       data,
		"text":       text,
		"json":       s.settledValue(data),
	} {
		if err := object.Set(key, value); err != nil {
			return nil, err
		}
	}
	return object, nil
}

// settledValue returns a function yielding a promise already resolved with
// value, matching the fetch API's res.json().
func (s *sandbox) settledValue(value any) func(goja.FunctionCall) goja.Value {
	return func(goja.FunctionCall) goja.Value {
		promise, resolve, _ := s.vm.NewPromise()
		resolve(value)
		return s.vm.ToValue(promise)
	}
}

func stringMap(value any) map[string]string {
	raw, ok := value.(map[string]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for key, item := range raw {
		out[key] = stringValue(item)
	}
	return out
}

func redactedURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	parsed.RawQuery = ""
	parsed.User = nil
	return parsed.String()
}
