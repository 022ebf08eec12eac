package core

import (
	"sort"
	"strings"
	"sync"
)

// Summarizer derives connector-specific counters for an evidence row.
type Summarizer func(item EvidenceItem) map[string]any

type SummarizerRegistry struct {
	mu          sync.RWMutex
	summarizers map[string]Summarizer
}

func NewSummarizerRegistry() *SummarizerRegistry {
	return &SummarizerRegistry{summarizers: map[string]Summarizer{}}
}

// DefaultSummarizers returns a registry loaded with the builtin vendor
// summarizers.
func DefaultSummarizers() *SummarizerRegistry {
	registry := NewSummarizerRegistry()
	registry.Register("aws", summarizeAWS)
	registry.Register("github", summarizeGitHub)
	for _, connectorType := range []string{"okta", "azure_ad", "google_workspace"} {
		registry.Register(connectorType, summarizeIdentity)
	}
	for _, connectorType := range []string{"snyk", "qualys", "scanner", "dependabot"} {
		registry.Register(connectorType, summarizeFindings)
	}
	return registry
}

func (r *SummarizerRegistry) Register(connectorType string, summarizer Summarizer) {
	if r == nil || summarizer == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summarizers[normalizeConnectorType(connectorType)] = summarizer
}

// Summarize never returns nil; unknown connector types get the generic
// summary.
func (r *SummarizerRegistry) Summarize(connectorType string, item EvidenceItem) map[string]any {
	summarizer := summarizeGeneric
	if r != nil {
		r.mu.RLock()
		if registered, ok := r.summarizers[normalizeConnectorType(connectorType)]; ok {
			summarizer = registered
		}
		r.mu.RUnlock()
	}
	summary := summarizer(item)
	if summary == nil {
		summary = summarizeGeneric(item)
	}
	summary["connector_type"] = normalizeConnectorType(connectorType)
	if strings.TrimSpace(item.Type) != "" {
		summary["evidence_type"] = item.Type
	}
	return summary
}

func summarizeGeneric(item EvidenceItem) map[string]any {
	summary := map[string]any{"summary_type": "generic"}
	switch data := item.Data.(type) {
	case []any:
		summary["item_count"] = len(data)
	case map[string]any:
		keys := make([]string, 0, len(data))
		for key := range data {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		if len(keys) > 20 {
			keys = keys[:20]
		}
		summary["item_count"] = 1
		summary["fields"] = keys
	case nil:
		summary["item_count"] = 0
	default:
		summary["item_count"] = 1
	}
	return summary
}

func summarizeFindings(item EvidenceItem) map[string]any {
	findings := listAt(item.Data, "findings", "vulnerabilities", "issues")
	counts := map[string]int{"critical": 0, "high": 0, "medium": 0, "low": 0, "other": 0}
	for _, entry := range findings {
		severity := strings.ToLower(stringAt(entry, "severity"))
		if _, ok := counts[severity]; !ok {
			severity = "other"
		}
		counts[severity]++
	}
	return map[string]any{
		"summary_type":   "findings",
		"finding_count":  len(findings),
		"critical_count": counts["critical"],
		"high_count":     counts["high"],
		"medium_count":   counts["medium"],
		"low_count":      counts["low"],
	}
}

func summarizeIdentity(item EvidenceItem) map[string]any {
	users := listAt(item.Data, "users", "members")
	mfa := 0
	active := 0
	for _, entry := range users {
		if boolAt(entry, "mfaEnabled", "mfa_enabled", "mfaEnrolled", "mfa_enrolled") {
			mfa++
		}
		status := strings.ToLower(stringAt(entry, "status"))
		if status == "" || status == "active" {
			active++
		}
	}
	return map[string]any{
		"summary_type": "identity",
		"user_count":   len(users),
		"active_users": active,
		"mfa_enrolled": mfa,
		"mfa_coverage": ratio(mfa, len(users)),
	}
}

func summarizeAWS(item EvidenceItem) map[string]any {
	summary := map[string]any{"summary_type": "aws"}
	root, _ := item.Data.(map[string]any)
	accountSummary, _ := root["summary"].(map[string]any)
	if accountSummary == nil {
		return nil
	}
	summary["user_count"] = intValue(accountSummary["Users"])
	summary["group_count"] = intValue(accountSummary["Groups"])
	summary["mfa_devices_in_use"] = intValue(accountSummary["MFADevicesInUse"])
	summary["root_mfa_enabled"] = intValue(accountSummary["AccountMFAEnabled"]) > 0
	return summary
}

func summarizeGitHub(item EvidenceItem) map[string]any {
	repos := listAt(item.Data, "repositories")
	if repos == nil {
		return nil
	}
	private := 0
	archived := 0
	for _, repo := range repos {
		if boolAt(repo, "private") {
			private++
		}
		if boolAt(repo, "archived") {
			archived++
		}
	}
	return map[string]any{
		"summary_type":     "github",
		"repository_count": len(repos),
		"private_count":    private,
		"archived_count":   archived,
	}
}

func listAt(data any, keys ...string) []any {
	switch typed := data.(type) {
	case []any:
		return typed
	case []map[string]any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = typed[i]
		}
		return out
	case map[string]any:
		for _, key := range keys {
			if value, ok := typed[key]; ok {
				return listAt(value)
			}
		}
	}
	return nil
}

func stringAt(entry any, key string) string {
	record, ok := entry.(map[string]any)
	if !ok {
		return ""
	}
	value, _ := record[key].(string)
	return strings.TrimSpace(value)
}

func boolAt(entry any, keys ...string) bool {
	record, ok := entry.(map[string]any)
	if !ok {
		return false
	}
	for _, key := range keys {
		if value, ok := record[key].(bool); ok && value {
			return true
		}
	}
	return false
}

func intValue(value any) int {
	switch typed := value.(type) {
	case int:
		return typed
	case int32:
		return int(typed)
	case int64:
		return int(typed)
	case float64:
		return int(typed)
	default:
		return 0
	}
}

func ratio(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}
