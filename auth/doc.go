// Package auth turns a decrypted auth configuration into outbound request
// headers. OAuth2 client-credentials tokens are fetched with
// golang.org/x/oauth2 and may be cached through go-repository-cache.
package auth
