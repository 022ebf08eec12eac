// Package transport executes outbound HTTP calls for the execution engines
// with per-call timeouts, a response size ceiling and optional rate limiting.
package transport
