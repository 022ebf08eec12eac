package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/goliatone/go-integrations/core"
)

const tokenCacheKeyPrefix = "go-integrations::oauth2_token::v1"

type ClientCredentialsRequest struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	// CacheKey scopes cached tokens, usually the integration id. Tokens are
	// only cached when it is set.
	CacheKey string
}

type Token struct {
	AccessToken string
	TokenType   string
	Expiry      time.Time
}

type ClientCredentialsTokenSource struct {
	httpClient  *http.Client
	cache       repositorycache.CacheService
	renewBefore time.Duration
	now         func() time.Time
}

func NewClientCredentialsTokenSource(
	httpClient *http.Client,
	cache repositorycache.CacheService,
	renewBefore time.Duration,
) *ClientCredentialsTokenSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if renewBefore <= 0 {
		renewBefore = 30 * time.Second
	}
	return &ClientCredentialsTokenSource{
		httpClient:  httpClient,
		cache:       cache,
		renewBefore: renewBefore,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Token posts a client-credentials grant, or returns a cached token that is
// not within renewBefore of its expiry.
func (s *ClientCredentialsTokenSource) Token(ctx context.Context, req ClientCredentialsRequest) (Token, error) {
	if err := validateClientCredentials(req); err != nil {
		return Token{}, err
	}
	if s.cache == nil || strings.TrimSpace(req.CacheKey) == "" {
		return s.fetch(ctx, req)
	}

	cacheKey := TokenCacheKey(req)
	fetch := func(ctx context.Context) (Token, error) {
		return s.fetch(ctx, req)
	}
	token, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, fetch)
	if err != nil {
		return Token{}, err
	}
	if s.fresh(token) {
		return token, nil
	}
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		return s.fetch(ctx, req)
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, fetch)
}

// Invalidate drops any cached token for req.
func (s *ClientCredentialsTokenSource) Invalidate(ctx context.Context, req ClientCredentialsRequest) error {
	if s.cache == nil || strings.TrimSpace(req.CacheKey) == "" {
		return nil
	}
	return s.cache.Delete(ctx, TokenCacheKey(req))
}

func (s *ClientCredentialsTokenSource) fresh(token Token) bool {
	if token.Expiry.IsZero() {
		return true
	}
	return s.now().Add(s.renewBefore).Before(token.Expiry)
}

func (s *ClientCredentialsTokenSource) fetch(ctx context.Context, req ClientCredentialsRequest) (Token, error) {
	cfg := clientcredentials.Config{
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		TokenURL:     req.TokenURL,
		Scopes:       req.Scopes,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, err := cfg.Token(ctx)
	if err != nil {
		return Token{}, core.TransportError(err, "auth: client credentials token request failed", map[string]any{
			"token_url": req.TokenURL,
		})
	}
	if strings.TrimSpace(token.AccessToken) == "" {
		return Token{}, core.TransportError(nil, "auth: token response missing access_token", map[string]any{
			"token_url": req.TokenURL,
		})
	}
	return Token{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		Expiry:      token.Expiry,
	}, nil
}

// TokenCacheKey returns go-integrations::oauth2_token::v1::<cache_key>::<fingerprint>
// where fingerprint hashes the client id, client secret, token url and scopes
// so a rotated credential never reuses a token minted for the old one.
func TokenCacheKey(req ClientCredentialsRequest) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		req.ClientID,
		req.ClientSecret,
		req.TokenURL,
		strings.Join(req.Scopes, " "),
	}, "\x00")))
	return strings.Join([]string{
		tokenCacheKeyPrefix,
		url.PathEscape(strings.TrimSpace(req.CacheKey)),
		hex.EncodeToString(sum[:8]),
	}, "::")
}

func validateClientCredentials(req ClientCredentialsRequest) error {
	var missing []string
	if strings.TrimSpace(req.TokenURL) == "" {
		missing = append(missing, "tokenUrl")
	}
	if strings.TrimSpace(req.ClientID) == "" {
		missing = append(missing, "clientId")
	}
	if strings.TrimSpace(req.ClientSecret) == "" {
		missing = append(missing, "clientSecret")
	}
	if len(missing) > 0 {
		return core.ConfigurationError(fmt.Sprintf("auth: oauth2 config missing %s", strings.Join(missing, ", ")), nil)
	}
	return nil
}
