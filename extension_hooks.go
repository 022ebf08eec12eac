package integrations

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-integrations/core"
)

// ConnectorPack groups builtin connectors shipped together, optionally with
// the summarizers for the evidence they produce.
type ConnectorPack struct {
	Name        string
	Connectors  []core.Connector
	Summarizers map[string]core.Summarizer
}

type ExtensionHooks struct {
	mu sync.RWMutex

	connectorPacks map[string]ConnectorPack
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		connectorPacks: map[string]ConnectorPack{},
	}
}

func (h *ExtensionHooks) RegisterConnectorPack(pack ConnectorPack) error {
	if h == nil {
		return fmt.Errorf("integrations: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("integrations: connector pack name is required")
	}
	if len(pack.Connectors) == 0 && len(pack.Summarizers) == 0 {
		return fmt.Errorf("integrations: connector pack %q is empty", name)
	}

	normalized := ConnectorPack{
		Name:        name,
		Connectors:  append([]core.Connector(nil), pack.Connectors...),
		Summarizers: make(map[string]core.Summarizer, len(pack.Summarizers)),
	}
	for connectorType, summarizer := range pack.Summarizers {
		normalized.Summarizers[connectorType] = summarizer
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.connectorPacks[name]; exists {
		return fmt.Errorf("integrations: connector pack %q already registered", name)
	}
	h.connectorPacks[name] = normalized
	return nil
}

// Apply registers every pack, in name order, into registry and summarizers.
func (h *ExtensionHooks) Apply(registry core.ConnectorRegistry, summarizers *core.SummarizerRegistry) error {
	if h == nil {
		return nil
	}
	if registry == nil {
		return fmt.Errorf("integrations: connector registry is required")
	}
	for _, pack := range h.ConnectorPacks() {
		for _, connector := range pack.Connectors {
			if connector == nil {
				return fmt.Errorf("integrations: connector pack %q contains nil connector", pack.Name)
			}
			if err := registry.Register(connector); err != nil {
				return err
			}
		}
		for connectorType, summarizer := range pack.Summarizers {
			summarizers.Register(connectorType, summarizer)
		}
	}
	return nil
}

func (h *ExtensionHooks) ConnectorPacks() []ConnectorPack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.connectorPacks))
	for name := range h.connectorPacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ConnectorPack, 0, len(names))
	for _, name := range names {
		pack := h.connectorPacks[name]
		out = append(out, ConnectorPack{
			Name:        pack.Name,
			Connectors:  append([]core.Connector(nil), pack.Connectors...),
			Summarizers: pack.Summarizers,
		})
	}
	return out
}
