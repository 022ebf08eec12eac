package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

type ConnectorCatalog struct {
	mu         sync.RWMutex
	connectors map[string]Connector
}

func NewConnectorCatalog() *ConnectorCatalog {
	return &ConnectorCatalog{connectors: make(map[string]Connector)}
}

func (r *ConnectorCatalog) Register(connector Connector) error {
	if connector == nil {
		return fmt.Errorf("core: connector is nil")
	}
	connectorType := normalizeConnectorType(connector.Type())
	if connectorType == "" {
		return fmt.Errorf("core: connector type is required")
	}
	if connectorType == ConnectorTypeCustom {
		return fmt.Errorf("core: connector type %q is reserved", ConnectorTypeCustom)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.connectors[connectorType]; exists {
		return fmt.Errorf("core: connector already registered: %s", connectorType)
	}
	r.connectors[connectorType] = connector
	return nil
}

func (r *ConnectorCatalog) Get(connectorType string) (Connector, bool) {
	key := normalizeConnectorType(connectorType)
	if key == "" {
		return nil, false
	}
	r.mu.RLock()
	connector, ok := r.connectors[key]
	r.mu.RUnlock()
	return connector, ok
}

func (r *ConnectorCatalog) List() []Connector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.connectors))
	for key := range r.connectors {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]Connector, 0, len(keys))
	for _, key := range keys {
		out = append(out, r.connectors[key])
	}
	return out
}

func normalizeConnectorType(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
