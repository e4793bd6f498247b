package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RunRecord is the outcome of one run. Transcripts and replies are not kept.
type RunRecord struct {
	ID         uuid.UUID
	DeviceID   string
	FinalState RunState
	Decision   DecisionKind
	ErrorCode  string
	StartedAt  time.Time
	Duration   time.Duration
}

type Journal interface {
	Record(ctx context.Context, rec RunRecord) error
	// Recent returns the latest runs of a device, newest first.
	Recent(ctx context.Context, deviceID string, limit int) ([]RunRecord, error)
}

type NopJournal struct{}

func (NopJournal) Record(context.Context, RunRecord) error { return nil }

func (NopJournal) Recent(context.Context, string, int) ([]RunRecord, error) {
	return []RunRecord{}, nil
}
