package persistence

import (
	"context"
	"errors"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hwyzisk/annaverse-voter-vault-sub000/modules/voterfile/domain/entities/importrun"
	"github.com/hwyzisk/annaverse-voter-vault-sub000/modules/voterfile/infrastructure/persistence/models"
	"github.com/hwyzisk/annaverse-voter-vault-sub000/pkg/composables"
)

var ErrRunNotFound = errors.New("import run not found")

const (
	importRunInsertQuery = `
        INSERT INTO import_runs (
            id, rollback_id, file_name, dry_run, batch_size, overwrite_user_data,
            phase, total_rows, processed, created, updated, skipped, duplicates,
            errored, error_message, started_at, finished_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	importRunUpdateQuery = `
        UPDATE import_runs SET
            rollback_id = $2,
            phase = $3,
            total_rows = $4,
            processed = $5,
            created = $6,
            updated = $7,
            skipped = $8,
            duplicates = $9,
            errored = $10,
            error_message = $11,
            finished_at = $12
        WHERE id = $1`

	importRunSelectQuery = `
        SELECT id, rollback_id, file_name, dry_run, batch_size, overwrite_user_data,
            phase, total_rows, processed, created, updated, skipped, duplicates,
            errored, error_message, started_at, finished_at
        FROM import_runs`

	importRunByIDQuery = importRunSelectQuery + ` WHERE id = $1`
	importRunListQuery = importRunSelectQuery + ` ORDER BY started_at DESC LIMIT $1`
)

type PgImportRunRepository struct{}

func NewImportRunRepository() importrun.Repository {
	return &PgImportRunRepository{}
}

func (r *PgImportRunRepository) Create(ctx context.Context, run importrun.Run) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, importRunInsertQuery,
		run.ID,
		run.RollbackID,
		run.FileName,
		run.DryRun,
		run.BatchSize,
		run.OverwriteUserData,
		string(run.Phase),
		run.TotalRows,
		run.Processed,
		run.Created,
		run.Updated,
		run.Skipped,
		run.Duplicates,
		run.Errored,
		run.ErrorMessage,
		run.StartedAt,
		run.FinishedAt,
	); err != nil {
		return gerrors.Wrap(err, "failed to insert import run")
	}
	return nil
}

func (r *PgImportRunRepository) Update(ctx context.Context, run importrun.Run) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, importRunUpdateQuery,
		run.ID,
		run.RollbackID,
		string(run.Phase),
		run.TotalRows,
		run.Processed,
		run.Created,
		run.Updated,
		run.Skipped,
		run.Duplicates,
		run.Errored,
		run.ErrorMessage,
		run.FinishedAt,
	)
	if err != nil {
		return gerrors.Wrap(err, "failed to update import run")
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (r *PgImportRunRepository) GetByID(ctx context.Context, id uuid.UUID) (importrun.Run, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return importrun.Run{}, err
	}

	m, err := scanImportRun(tx.QueryRow(ctx, importRunByIDQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return importrun.Run{}, ErrRunNotFound
		}
		return importrun.Run{}, gerrors.Wrap(err, "failed to get import run")
	}
	return toDomainImportRun(m), nil
}

func (r *PgImportRunRepository) List(ctx context.Context, limit int) ([]importrun.Run, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, importRunListQuery, limit)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to list import runs")
	}
	defer rows.Close()

	var runs []importrun.Run
	for rows.Next() {
		m, err := scanImportRun(rows)
		if err != nil {
			return nil, gerrors.Wrap(err, "failed to scan import run")
		}
		runs = append(runs, toDomainImportRun(m))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

func scanImportRun(row pgx.Row) (models.ImportRun, error) {
	var m models.ImportRun
	err := row.Scan(
		&m.ID,
		&m.RollbackID,
		&m.FileName,
		&m.DryRun,
		&m.BatchSize,
		&m.OverwriteUserData,
		&m.Phase,
		&m.TotalRows,
		&m.Processed,
		&m.Created,
		&m.Updated,
		&m.Skipped,
		&m.Duplicates,
		&m.Errored,
		&m.ErrorMessage,
		&m.StartedAt,
		&m.FinishedAt,
	)
	return m, err
}
