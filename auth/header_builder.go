package auth

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-integrations/core"
)

const DefaultAPIKeyHeader = "X-API-Key"

type Option func(*HeaderBuilder)

func WithHTTPClient(client *http.Client) Option {
	return func(b *HeaderBuilder) {
		if client != nil {
			b.httpClient = client
		}
	}
}

// WithTokenCache enables OAuth2 token reuse keyed by AuthSpec.CacheKey.
func WithTokenCache(cache repositorycache.CacheService) Option {
	return func(b *HeaderBuilder) {
		b.cache = cache
	}
}

func WithRenewBefore(window time.Duration) Option {
	return func(b *HeaderBuilder) {
		if window > 0 {
			b.renewBefore = window
		}
	}
}

func WithLogger(logger core.Logger) Option {
	return func(b *HeaderBuilder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func WithNow(now func() time.Time) Option {
	return func(b *HeaderBuilder) {
		if now != nil {
			b.now = now
		}
	}
}

type HeaderBuilder struct {
	httpClient  *http.Client
	cache       repositorycache.CacheService
	renewBefore time.Duration
	logger      core.Logger
	now         func() time.Time
	tokens      *ClientCredentialsTokenSource
}

func NewHeaderBuilder(opts ...Option) *HeaderBuilder {
	builder := &HeaderBuilder{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		renewBefore: 30 * time.Second,
		logger:      glog.Nop(),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(builder)
	}
	builder.tokens = NewClientCredentialsTokenSource(builder.httpClient, builder.cache, builder.renewBefore)
	builder.tokens.now = builder.now
	return builder
}

// Build returns the request headers for spec. It never fails: an oauth2
// token error is logged and yields an empty map.
func (b *HeaderBuilder) Build(ctx context.Context, spec core.AuthSpec) map[string]string {
	headers := map[string]string{}
	params := spec.Params
	switch normalizeAuthType(spec.Type) {
	case core.AuthTypeAPIKey:
		if isQueryPlacement(params) {
			return headers
		}
		value := readRawString(params, "keyValue", "key_value", "apiKey", "api_key")
		if value == "" {
			return headers
		}
		name := readString(params, "keyName", "key_name", "headerName")
		if name == "" {
			name = DefaultAPIKeyHeader
		}
		headers[name] = value
	case core.AuthTypeBearer:
		if token := readString(params, "token", "accessToken", "access_token"); token != "" {
			headers["Authorization"] = "Bearer " + token
		}
	case core.AuthTypeBasic:
		username := readRawString(params, "username", "user")
		password := readRawString(params, "password")
		if username == "" && password == "" {
			return headers
		}
		headers["Authorization"] = "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
	case core.AuthTypeOAuth2:
		token, err := b.tokens.Token(ctx, ClientCredentialsRequest{
			TokenURL:     readString(params, "tokenUrl", "token_url"),
			ClientID:     readString(params, "clientId", "client_id"),
			ClientSecret: readRawString(params, "clientSecret", "client_secret"),
			Scopes:       readScopes(params, "scope", "scopes"),
			CacheKey:     spec.CacheKey,
		})
		if err != nil {
			b.logger.Warn("auth: oauth2 token fetch failed, continuing without auth headers",
				"cache_key", spec.CacheKey,
				"error", err.Error(),
			)
			return headers
		}
		headers["Authorization"] = "Bearer " + token.AccessToken
	}
	return headers
}

// QueryParams returns the auth values that belong in the query string. Only
// api_key with location "query" produces any.
func (b *HeaderBuilder) QueryParams(spec core.AuthSpec) map[string]string {
	params := map[string]string{}
	if normalizeAuthType(spec.Type) != core.AuthTypeAPIKey || !isQueryPlacement(spec.Params) {
		return params
	}
	value := readRawString(spec.Params, "keyValue", "key_value", "apiKey", "api_key")
	if value == "" {
		return params
	}
	name := readString(spec.Params, "keyName", "key_name", "paramName")
	if name == "" {
		name = "api_key"
	}
	params[name] = value
	return params
}

func isQueryPlacement(params map[string]any) bool {
	return strings.EqualFold(readString(params, "location", "in"), "query")
}

func normalizeAuthType(authType core.AuthType) core.AuthType {
	normalized := strings.ToLower(strings.TrimSpace(string(authType)))
	switch normalized {
	case "apikey", "api-key":
		return core.AuthTypeAPIKey
	case "oauth", "oauth2_client_credentials":
		return core.AuthTypeOAuth2
	}
	return core.AuthType(normalized)
}

var _ core.HeaderBuilder = (*HeaderBuilder)(nil)
