package handlers

import (
	"time"

	"github.com/google/uuid"
	"github.com/xpanvictor/ava/internal/domains/pipeline"
	"github.com/xpanvictor/ava/pkg/io/events"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// RunResponse is returned by a synchronous assistant request.
type RunResponse struct {
	RunID      uuid.UUID      `json:"runId"`
	Transcript string         `json:"transcript"`
	Reply      events.Message `json:"reply"`
}

// StartRunResponse is returned when the run continues in the background.
type StartRunResponse struct {
	RunID uuid.UUID `json:"runId"`
}

type RunSummary struct {
	ID         uuid.UUID `json:"id"`
	FinalState string    `json:"finalState"`
	Decision   string    `json:"decision,omitempty"`
	ErrorCode  string    `json:"errorCode,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	DurationMs int64     `json:"durationMs"`
}

type ListRunsResponse struct {
	Runs []RunSummary `json:"runs"`
}

func newRunSummary(rec pipeline.RunRecord) RunSummary {
	return RunSummary{
		ID:         rec.ID,
		FinalState: string(rec.FinalState),
		Decision:   string(rec.Decision),
		ErrorCode:  rec.ErrorCode,
		StartedAt:  rec.StartedAt,
		DurationMs: rec.Duration.Milliseconds(),
	}
}
