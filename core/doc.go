// Package core holds the integrations domain model, collaborator contracts,
// the go-errors taxonomy and configuration loading. Engines, stores and
// adapters depend on this package; core depends on none of them.
package core
