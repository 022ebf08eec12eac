package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

type identifiedRecord interface {
	recordID() string
	setRecordID(id string)
}

func recordHandlers[T identifiedRecord](newRecord func() T) repository.ModelHandlers[T] {
	return repository.ModelHandlers[T]{
		NewRecord: newRecord,
		GetID: func(record T) uuid.UUID {
			return parseUUID(record.recordID())
		},
		SetID: func(record T, id uuid.UUID) {
			record.setRecordID(id.String())
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record T) string {
			return strings.TrimSpace(record.recordID())
		},
	}
}

func (r *integrationRecord) recordID() string {
	if r == nil {
		return ""
	}
	return r.ID
}

func (r *integrationRecord) setRecordID(id string) {
	if r != nil {
		r.ID = id
	}
}

func (r *customExecutionConfigRecord) recordID() string {
	if r == nil {
		return ""
	}
	return r.ID
}

func (r *customExecutionConfigRecord) setRecordID(id string) {
	if r != nil {
		r.ID = id
	}
}

func (r *syncJobRecord) recordID() string {
	if r == nil {
		return ""
	}
	return r.ID
}

func (r *syncJobRecord) setRecordID(id string) {
	if r != nil {
		r.ID = id
	}
}

func (r *evidenceRecord) recordID() string {
	if r == nil {
		return ""
	}
	return r.ID
}

func (r *evidenceRecord) setRecordID(id string) {
	if r != nil {
		r.ID = id
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
