package run

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xpanvictor/ava/internal/domains/pipeline"
)

func TestEntityKeepsOutcomeOnly(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("WAT", 3600))
	rec := pipeline.RunRecord{
		ID:         uuid.New(),
		DeviceID:   "abc",
		FinalState: pipeline.StateFailed,
		Decision:   pipeline.DecisionToolCall,
		ErrorCode:  pipeline.CodeInvalidToolArguments,
		StartedAt:  started,
		Duration:   1500 * time.Millisecond,
	}

	entity := NewRunEntityFromDomain(rec)
	if entity.StartedAt.Location() != time.UTC {
		t.Errorf("expected started_at stored in UTC, got %v", entity.StartedAt.Location())
	}
	if entity.DurationMs != 1500 {
		t.Errorf("expected 1500ms, got %d", entity.DurationMs)
	}

	back := entity.ToDomain()
	if back.ID != rec.ID || back.FinalState != rec.FinalState || back.ErrorCode != rec.ErrorCode {
		t.Errorf("outcome fields changed: %+v", back)
	}
	if !back.StartedAt.Equal(started) || back.Duration != rec.Duration {
		t.Errorf("timing changed: %v %v", back.StartedAt, back.Duration)
	}
}
