package importrun

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Phase string

const (
	PhaseParsing    Phase = "parsing"
	PhaseProcessing Phase = "processing"
	PhaseCompleted  Phase = "completed"
	PhaseError      Phase = "error"
)

// Run is the audit record of one import run: parameters in, counters and
// rollback handle out.
type Run struct {
	ID                uuid.UUID
	RollbackID        *uuid.UUID
	FileName          string
	DryRun            bool
	BatchSize         int
	OverwriteUserData bool
	Phase             Phase
	TotalRows         int
	Processed         int
	Created           int
	Updated           int
	Skipped           int
	Duplicates        int
	Errored           int
	ErrorMessage      string
	StartedAt         time.Time
	FinishedAt        *time.Time
}

type Repository interface {
	Create(ctx context.Context, run Run) error
	Update(ctx context.Context, run Run) error
	GetByID(ctx context.Context, id uuid.UUID) (Run, error)
	List(ctx context.Context, limit int) ([]Run, error)
}
