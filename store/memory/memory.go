// Package memory holds mutex-guarded in-process implementations of the core
// store contracts. They back tests, dry runs and the CLI without a database.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-integrations/core"
)

type IntegrationStore struct {
	mu      sync.RWMutex
	records map[string]core.Integration
	now     func() time.Time
}

func NewIntegrationStore() *IntegrationStore {
	return &IntegrationStore{records: map[string]core.Integration{}, now: utcNow}
}

func (s *IntegrationStore) Create(_ context.Context, in core.Integration) (core.Integration, error) {
	if strings.TrimSpace(in.ConnectorType) == "" {
		return core.Integration{}, core.ValidationError("memory: connector type is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.Status == "" {
		in.Status = core.IntegrationStatusPendingSetup
	}
	if in.SyncFrequency == "" {
		in.SyncFrequency = core.SyncFrequencyManual
	}
	now := s.now()
	in.CreatedAt = now
	in.UpdatedAt = now
	in.Config = cloneMap(in.Config)
	s.records[in.ID] = in
	return cloneIntegration(in), nil
}

func (s *IntegrationStore) Get(_ context.Context, id string) (core.Integration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return core.Integration{}, notFound(core.ErrIntegrationNotFound, "integration_id", id)
	}
	return cloneIntegration(record), nil
}

func (s *IntegrationStore) UpdateConfig(_ context.Context, id string, config map[string]any, status core.IntegrationStatus) (core.Integration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return core.Integration{}, notFound(core.ErrIntegrationNotFound, "integration_id", id)
	}
	record.Config = cloneMap(config)
	if status != "" {
		record.Status = status
	}
	record.UpdatedAt = s.now()
	s.records[id] = record
	return cloneIntegration(record), nil
}

func (s *IntegrationStore) RecordSync(_ context.Context, id string, in core.SyncBookkeeping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return notFound(core.ErrIntegrationNotFound, "integration_id", id)
	}
	lastSync := in.LastSyncAt
	record.LastSyncAt = &lastSync
	record.LastSyncStatus = in.LastSyncStatus
	if in.Status != "" {
		record.Status = in.Status
	}
	record.LastError = in.LastError
	record.TotalEvidenceCount += in.EvidenceIncrease
	record.UpdatedAt = s.now()
	s.records[id] = record
	return nil
}

type CustomConfigStore struct {
	mu      sync.RWMutex
	records map[string]core.CustomExecutionConfig
	now     func() time.Time
}

func NewCustomConfigStore() *CustomConfigStore {
	return &CustomConfigStore{records: map[string]core.CustomExecutionConfig{}, now: utcNow}
}

func (s *CustomConfigStore) GetByIntegration(_ context.Context, integrationID string) (core.CustomExecutionConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[integrationID]
	if !ok {
		return core.CustomExecutionConfig{}, notFound(core.ErrCustomConfigNotFound, "integration_id", integrationID)
	}
	return cloneCustomConfig(record), nil
}

// Upsert keeps one config per integration; the id and creation time of an
// existing row survive.
func (s *CustomConfigStore) Upsert(_ context.Context, in core.CustomExecutionConfig) (core.CustomExecutionConfig, error) {
	if strings.TrimSpace(in.IntegrationID) == "" {
		return core.CustomExecutionConfig{}, core.ValidationError("memory: integration id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if existing, ok := s.records[in.IntegrationID]; ok {
		in.ID = existing.ID
		in.CreatedAt = existing.CreatedAt
	} else {
		if in.ID == "" {
			in.ID = uuid.NewString()
		}
		in.CreatedAt = now
	}
	in.UpdatedAt = now
	in = cloneCustomConfig(in)
	s.records[in.IntegrationID] = in
	return cloneCustomConfig(in), nil
}

func (s *CustomConfigStore) RecordTest(_ context.Context, integrationID string, outcome core.TestOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[integrationID]
	if !ok {
		return notFound(core.ErrCustomConfigNotFound, "integration_id", integrationID)
	}
	at := outcome.At
	record.LastTestStatus = outcome.Status
	record.LastTestError = outcome.Error
	record.LastTestAt = &at
	record.UpdatedAt = s.now()
	s.records[integrationID] = record
	return nil
}

type SyncJobStore struct {
	mu      sync.RWMutex
	records map[string]core.SyncJob
}

func NewSyncJobStore() *SyncJobStore {
	return &SyncJobStore{records: map[string]core.SyncJob{}}
}

func (s *SyncJobStore) Create(_ context.Context, job core.SyncJob) (core.SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Logs = append([]string(nil), job.Logs...)
	s.records[job.ID] = job
	return job, nil
}

func (s *SyncJobStore) Get(_ context.Context, id string) (core.SyncJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.records[id]
	if !ok {
		return core.SyncJob{}, notFound(core.ErrSyncJobNotFound, "job_id", id)
	}
	job.Logs = append([]string(nil), job.Logs...)
	return job, nil
}

// Finalize accepts exactly one terminal write per job.
func (s *SyncJobStore) Finalize(_ context.Context, job core.SyncJob) (core.SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.records[job.ID]
	if !ok {
		return core.SyncJob{}, notFound(core.ErrSyncJobNotFound, "job_id", job.ID)
	}
	if current.Status.Terminal() {
		return core.SyncJob{}, core.ValidationError("memory: sync job " + job.ID + " is already " + string(current.Status))
	}
	if !job.Status.Terminal() {
		return core.SyncJob{}, core.ValidationError("memory: finalize requires a terminal status")
	}
	job.Logs = append([]string(nil), job.Logs...)
	s.records[job.ID] = job
	return job, nil
}

// List returns jobs of an integration, newest first.
func (s *SyncJobStore) List(integrationID string) []core.SyncJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []core.SyncJob{}
	for _, job := range s.records {
		if integrationID == "" || job.IntegrationID == integrationID {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

// ListByIntegration returns at most limit jobs of an integration, newest
// first. A non-positive limit means 20.
func (s *SyncJobStore) ListByIntegration(_ context.Context, integrationID string, limit int) ([]core.SyncJob, error) {
	if limit <= 0 {
		limit = 20
	}
	jobs := s.List(integrationID)
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

type EvidenceStore struct {
	mu      sync.RWMutex
	records []core.Evidence
}

func NewEvidenceStore() *EvidenceStore {
	return &EvidenceStore{}
}

func (s *EvidenceStore) Create(_ context.Context, in core.Evidence) (core.Evidence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = utcNow()
	}
	in.Metadata = cloneMap(in.Metadata)
	s.records = append(s.records, in)
	return in, nil
}

func (s *EvidenceStore) ListBySyncJob(_ context.Context, syncJobID string) ([]core.Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []core.Evidence{}
	for _, record := range s.records {
		if record.SyncJobID == syncJobID {
			out = append(out, record)
		}
	}
	return out, nil
}

func (s *EvidenceStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

type BlobStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	types   map[string]string
}

func NewBlobStore() *BlobStore {
	return &BlobStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *BlobStore) Put(_ context.Context, path string, contentType string, data []byte) (core.BlobObject, error) {
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if path == "" {
		return core.BlobObject{}, core.ValidationError("memory: blob path is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = append([]byte(nil), data...)
	s.types[path] = contentType
	return core.BlobObject{Path: path, ContentType: contentType, Size: int64(len(data))}, nil
}

func (s *BlobStore) Get(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[path]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

func (s *BlobStore) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.objects))
	for path := range s.objects {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

type AuditLog struct {
	mu      sync.RWMutex
	entries []core.AuditEntry
}

func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

func (l *AuditLog) Append(_ context.Context, entry core.AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.Metadata = cloneMap(entry.Metadata)
	l.entries = append(l.entries, entry)
	return nil
}

func (l *AuditLog) Entries() []core.AuditEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]core.AuditEntry(nil), l.entries...)
}

func notFound(sentinel error, key, id string) error {
	return core.MissingError(sentinel, sentinel.Error()+": "+id, map[string]any{key: id})
}

func cloneIntegration(in core.Integration) core.Integration {
	in.Config = cloneMap(in.Config)
	if in.LastSyncAt != nil {
		at := *in.LastSyncAt
		in.LastSyncAt = &at
	}
	return in
}

func cloneCustomConfig(in core.CustomExecutionConfig) core.CustomExecutionConfig {
	in.AuthConfig = cloneMap(in.AuthConfig)
	in.Endpoints = append([]core.EndpointSpec(nil), in.Endpoints...)
	if in.LastTestAt != nil {
		at := *in.LastTestAt
		in.LastTestAt = &at
	}
	return in
}

func cloneMap(source map[string]any) map[string]any {
	if source == nil {
		return nil
	}
	out := make(map[string]any, len(source))
	for key, value := range source {
		if nested, ok := value.(map[string]any); ok {
			out[key] = cloneMap(nested)
			continue
		}
		out[key] = value
	}
	return out
}

func utcNow() time.Time {
	return time.Now().UTC()
}

var (
	_ core.IntegrationStore  = (*IntegrationStore)(nil)
	_ core.CustomConfigStore = (*CustomConfigStore)(nil)
	_ core.SyncJobStore      = (*SyncJobStore)(nil)
	_ core.EvidenceStore     = (*EvidenceStore)(nil)
	_ core.BlobStore         = (*BlobStore)(nil)
	_ core.AuditLogger       = (*AuditLog)(nil)
)
