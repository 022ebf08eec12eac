package auth

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/goliatone/go-integrations/core"
)

func TestClientCredentialsTokenSource_RejectsIncompleteRequest(t *testing.T) {
	source := NewClientCredentialsTokenSource(nil, nil, 0)
	_, err := source.Token(context.Background(), ClientCredentialsRequest{TokenURL: "https://idp.example.com/token"})
	if err == nil {
		t.Fatalf("expected validation failure")
	}
	if !core.HasTextCode(err, core.ErrorConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), "clientId") || !strings.Contains(err.Error(), "clientSecret") {
		t.Fatalf("expected missing fields in message, got %v", err)
	}
}

func TestClientCredentialsTokenSource_MissingAccessTokenIsTransportError(t *testing.T) {
	var hits int32
	server := newTokenServer(t, &hits, `{"token_type":"bearer"}`, http.StatusOK)
	source := NewClientCredentialsTokenSource(server.Client(), nil, 0)
	_, err := source.Token(context.Background(), ClientCredentialsRequest{
		TokenURL:     server.URL,
		ClientID:     "c",
		ClientSecret: "s",
	})
	if err == nil {
		t.Fatalf("expected error for missing access token")
	}
	if !core.HasTextCode(err, core.ErrorTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestClientCredentialsTokenSource_InvalidateDropsCachedToken(t *testing.T) {
	var hits int32
	server := newTokenServer(t, &hits, `{"access_token":"t1","expires_in":3600}`, http.StatusOK)
	source := NewClientCredentialsTokenSource(server.Client(), newTestCacheService(t), 0)
	req := ClientCredentialsRequest{TokenURL: server.URL, ClientID: "c", ClientSecret: "s", CacheKey: "int_1"}

	if _, err := source.Token(context.Background(), req); err != nil {
		t.Fatalf("token: %v", err)
	}
	if err := source.Invalidate(context.Background(), req); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := source.Token(context.Background(), req); err != nil {
		t.Fatalf("token: %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Fatalf("expected refetch after invalidate, got %d requests", got)
	}
}

func TestTokenCacheKey_ChangesWithCredentials(t *testing.T) {
	base := ClientCredentialsRequest{TokenURL: "https://idp/token", ClientID: "a", ClientSecret: "s", CacheKey: "int/1"}
	key := TokenCacheKey(base)
	if !strings.HasPrefix(key, tokenCacheKeyPrefix+"::int%2F1::") {
		t.Fatalf("unexpected cache key %q", key)
	}
	rotated := base
	rotated.ClientID = "b"
	if TokenCacheKey(rotated) == key {
		t.Fatalf("expected client id change to alter cache key")
	}
	secretOnly := base
	secretOnly.ClientSecret = "other"
	if TokenCacheKey(secretOnly) == key {
		t.Fatalf("expected secret rotation to alter cache key")
	}
	if strings.Contains(TokenCacheKey(secretOnly), "other") {
		t.Fatalf("cache key must not embed the secret: %q", TokenCacheKey(secretOnly))
	}
	if TokenCacheKey(base) != key {
		t.Fatalf("expected stable cache key for unchanged credentials")
	}
}

func TestClientCredentialsTokenSource_RotatedSecretSkipsCachedToken(t *testing.T) {
	var hits int32
	server := newTokenServer(t, &hits, `{"access_token":"t1","expires_in":3600}`, http.StatusOK)
	source := NewClientCredentialsTokenSource(server.Client(), newTestCacheService(t), 0)
	req := ClientCredentialsRequest{TokenURL: server.URL, ClientID: "c", ClientSecret: "old", CacheKey: "int_1"}

	if _, err := source.Token(context.Background(), req); err != nil {
		t.Fatalf("token: %v", err)
	}
	if _, err := source.Token(context.Background(), req); err != nil {
		t.Fatalf("token: %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("expected cached token for unchanged secret, got %d requests", got)
	}

	req.ClientSecret = "new"
	if _, err := source.Token(context.Background(), req); err != nil {
		t.Fatalf("token: %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Fatalf("expected refetch after secret rotation, got %d requests", got)
	}
}
