package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hwyzisk/annaverse-voter-vault-sub000/modules/voterfile/domain/aggregates/contact"
	"github.com/hwyzisk/annaverse-voter-vault-sub000/modules/voterfile/domain/entities/rollback"
	"github.com/hwyzisk/annaverse-voter-vault-sub000/pkg/composables"
)

var ErrNoRollbackEntries = errors.New("no rollback entries for this id")

// RollbackReport summarizes one rollback attempt. Unresolved lists entry IDs
// whose reversal failed; they stay in the log for a retry.
type RollbackReport struct {
	Reversed   int
	Deleted    int
	Restored   int
	Unresolved []int64
}

type RollbackService struct {
	contacts  contact.Repository
	rollbacks rollback.Repository
	log       *logrus.Logger

	// inTx is swappable so repository fakes can run without a pgx pool.
	inTx func(ctx context.Context, fn func(context.Context) error) error
}

func NewRollbackService(contacts contact.Repository, rollbacks rollback.Repository, log *logrus.Logger) *RollbackService {
	return &RollbackService{contacts: contacts, rollbacks: rollbacks, log: log, inTx: composables.InTx}
}

// Rollback replays an import's log in reverse: created contacts are deleted,
// updated contacts get their pre-images restored. Reversal is best-effort per
// entry; an entry that fails is reported and left in the log, the rest
// proceed. Each reversed entry is removed inside the same transaction as its
// reversal, so a retried partial rollback only replays what is left.
func (s *RollbackService) Rollback(ctx context.Context, rollbackID uuid.UUID) (RollbackReport, error) {
	entries, err := s.rollbacks.ListByRollbackID(ctx, rollbackID)
	if err != nil {
		return RollbackReport{}, err
	}
	if len(entries) == 0 {
		return RollbackReport{}, ErrNoRollbackEntries
	}

	var report RollbackReport
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		err := s.inTx(ctx, func(txCtx context.Context) error {
			if err := s.reverse(txCtx, entry); err != nil {
				return err
			}
			return s.rollbacks.DeleteEntries(txCtx, []int64{entry.ID})
		})
		if err != nil {
			report.Unresolved = append(report.Unresolved, entry.ID)
			s.log.WithFields(logrus.Fields{
				"rollback_id": rollbackID,
				"entry_id":    entry.ID,
				"contact_id":  entry.ContactID,
				"op":          entry.Op,
			}).WithError(err).Error("rollback entry could not be reversed")
			continue
		}
		report.Reversed++
		switch entry.Op {
		case rollback.OpCreate:
			report.Deleted++
		case rollback.OpUpdate:
			report.Restored++
		}
	}
	return report, nil
}

func (s *RollbackService) reverse(ctx context.Context, entry rollback.Entry) error {
	switch entry.Op {
	case rollback.OpCreate:
		return s.contacts.DeleteByIDs(ctx, []int64{entry.ContactID})
	case rollback.OpUpdate:
		// Restore the pre-import last writer along with the field values, so
		// a record a human had edited stays protected from later imports.
		updatedBy := entry.PreUpdatedBy
		if updatedBy == "" {
			updatedBy = contact.ImportActor
		}
		// A contact deleted since the import cannot be restored; treat as
		// already reversed.
		err := s.contacts.UpdateFields(ctx, entry.ContactID, entry.PreImage, updatedBy)
		if errors.Is(err, contact.ErrNotFound) {
			return nil
		}
		return err
	default:
		return errors.New("unknown rollback op: " + string(entry.Op))
	}
}

// PurgeExpired removes rollback entries older than the retention window,
// returning how many were dropped.
func (s *RollbackService) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	return s.rollbacks.PurgeOlderThan(ctx, time.Now().Add(-retention))
}
