package worker

import (
	"context"

	"github.com/triage-ai/ehr-gateway/internal/store"
)

// Records is the read side of the record store used by the tools.
type Records interface {
	ListSubjects(ctx context.Context) ([]string, error)
	GetIdentity(ctx context.Context, subjectID string) (*store.Identity, error)
	GetReadings(ctx context.Context, subjectID string, limit int) ([]store.Reading, error)
	GetMedications(ctx context.Context, subjectID string) ([]store.Medication, error)
	GetHistory(ctx context.Context, subjectID string, limit int) ([]store.HistoryEntry, error)
}

var _ Records = (*store.Store)(nil)
