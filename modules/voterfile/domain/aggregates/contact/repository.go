package contact

import (
	"context"

	"github.com/go-faster/errors"
)

var ErrNotFound = errors.New("contact not found")

// Match is one bulk-lookup candidate. Confirmed reports whether the full
// voter ID hash matched, not merely the truncated system ID prefix; an
// unconfirmed match is a truncation near-collision and must never be merged.
type Match struct {
	Contact   Contact
	Confirmed bool
}

// Repository is the storage boundary the reconciliation core depends on. All
// methods honor an ambient transaction placed in the context by
// composables.InTx; the bulk methods are each a single database round trip.
type Repository interface {
	// FindBySystemIDs performs the chunk's one bulk existence lookup. Input
	// maps system ID -> full hash; candidates matched on system ID are
	// confirmed against the full hash.
	FindBySystemIDs(ctx context.Context, hashesBySystemID map[string]string) ([]Match, error)

	// BulkCreate inserts new contacts and returns their storage-assigned IDs
	// in input order.
	BulkCreate(ctx context.Context, contacts []Contact) ([]int64, error)

	BulkCreatePhones(ctx context.Context, phones []Phone) error
	BulkCreateAliases(ctx context.Context, aliases []Alias) error

	// UpdateFields applies exactly the given field values to one contact,
	// along with the last-updated-by and updated-at bookkeeping columns.
	// Fields outside the system-updatable set are rejected.
	UpdateFields(ctx context.Context, id int64, fields map[Field]string, updatedBy string) error

	// DeleteByIDs removes contacts and their phone/alias rows. Used only by
	// rollback of imported creates.
	DeleteByIDs(ctx context.Context, ids []int64) error

	Count(ctx context.Context) (int64, error)
}
