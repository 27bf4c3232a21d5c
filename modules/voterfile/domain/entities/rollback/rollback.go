package rollback

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hwyzisk/annaverse-voter-vault-sub000/modules/voterfile/domain/aggregates/contact"
)

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
)

// Entry records enough to reverse one write performed during an import:
// deletes for creates, pre-image restores for updates. Entries are grouped by
// the run's rollback ID and kept until rollback or retention expiry.
type Entry struct {
	ID         int64
	RollbackID uuid.UUID
	Op         Op
	ContactID  int64
	PreImage   map[contact.Field]string
	// PreUpdatedBy is the record's last writer before the import touched it.
	// Restored on reversal so a human edit keeps protecting the record from
	// later imports.
	PreUpdatedBy string
	CreatedAt    time.Time
}

type Repository interface {
	Append(ctx context.Context, entries []Entry) error

	// ListByRollbackID returns the group's entries in insertion order; the
	// caller replays them in reverse.
	ListByRollbackID(ctx context.Context, id uuid.UUID) ([]Entry, error)

	// DeleteEntries removes entries that have been reversed, so a retried
	// partial rollback only replays what is left.
	DeleteEntries(ctx context.Context, ids []int64) error

	// PurgeOlderThan enforces retention expiry. Returns entries removed.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
