// Package declarative runs visual-mode custom integrations: an ordered list
// of HTTP endpoints whose responses are mapped to evidence items.
package declarative
