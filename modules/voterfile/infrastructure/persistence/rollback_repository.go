package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/hwyzisk/annaverse-voter-vault-sub000/modules/voterfile/domain/entities/rollback"
	"github.com/hwyzisk/annaverse-voter-vault-sub000/modules/voterfile/infrastructure/persistence/models"
	"github.com/hwyzisk/annaverse-voter-vault-sub000/pkg/composables"
)

const (
	rollbackEntriesInsertQuery = `INSERT INTO import_rollback_entries (rollback_id, op, contact_id, pre_image, pre_updated_by) VALUES`

	rollbackEntriesByIDQuery = `
        SELECT id, rollback_id, op, contact_id, pre_image, pre_updated_by, created_at
        FROM import_rollback_entries
        WHERE rollback_id = $1
        ORDER BY id`

	rollbackEntriesDeleteQuery = `DELETE FROM import_rollback_entries WHERE id = ANY($1)`

	rollbackEntriesPurgeQuery = `DELETE FROM import_rollback_entries WHERE created_at < $1`
)

type PgRollbackRepository struct{}

func NewRollbackRepository() rollback.Repository {
	return &PgRollbackRepository{}
}

func (r *PgRollbackRepository) Append(ctx context.Context, entries []rollback.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString(rollbackEntriesInsertQuery)
	args := make([]any, 0, len(entries)*5)
	for i, e := range entries {
		m, err := toDBRollbackEntry(e)
		if err != nil {
			return gerrors.Wrap(err, "failed to encode rollback pre-image")
		}
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, " ($%d, $%d, $%d, $%d, $%d)", i*5+1, i*5+2, i*5+3, i*5+4, i*5+5)
		args = append(args, m.RollbackID, m.Op, m.ContactID, m.PreImage, m.PreUpdatedBy)
	}

	if _, err := tx.Exec(ctx, sb.String(), args...); err != nil {
		return gerrors.Wrap(err, "failed to append rollback entries")
	}
	return nil
}

func (r *PgRollbackRepository) ListByRollbackID(ctx context.Context, id uuid.UUID) ([]rollback.Entry, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, rollbackEntriesByIDQuery, id)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to list rollback entries")
	}
	defer rows.Close()

	var entries []rollback.Entry
	for rows.Next() {
		var m models.RollbackEntry
		if err := rows.Scan(&m.ID, &m.RollbackID, &m.Op, &m.ContactID, &m.PreImage, &m.PreUpdatedBy, &m.CreatedAt); err != nil {
			return nil, gerrors.Wrap(err, "failed to scan rollback entry")
		}
		entry, err := toDomainRollbackEntry(m)
		if err != nil {
			return nil, gerrors.Wrap(err, "failed to decode rollback pre-image")
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *PgRollbackRepository) DeleteEntries(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, rollbackEntriesDeleteQuery, ids); err != nil {
		return gerrors.Wrap(err, "failed to delete rollback entries")
	}
	return nil
}

func (r *PgRollbackRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}

	tag, err := tx.Exec(ctx, rollbackEntriesPurgeQuery, cutoff)
	if err != nil {
		return 0, gerrors.Wrap(err, "failed to purge rollback entries")
	}
	return tag.RowsAffected(), nil
}
