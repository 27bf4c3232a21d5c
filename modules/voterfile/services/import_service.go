package services

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hwyzisk/annaverse-voter-vault-sub000/modules/voterfile/domain/aggregates/contact"
	"github.com/hwyzisk/annaverse-voter-vault-sub000/modules/voterfile/domain/entities/importrun"
	"github.com/hwyzisk/annaverse-voter-vault-sub000/modules/voterfile/domain/entities/rollback"
	"github.com/hwyzisk/annaverse-voter-vault-sub000/modules/voterfile/domain/reconcile"
	"github.com/hwyzisk/annaverse-voter-vault-sub000/modules/voterfile/domain/voterid"
	"github.com/hwyzisk/annaverse-voter-vault-sub000/pkg/composables"
	"github.com/hwyzisk/annaverse-voter-vault-sub000/pkg/configuration"
	"github.com/hwyzisk/annaverse-voter-vault-sub000/pkg/eventbus"
	"github.com/hwyzisk/annaverse-voter-vault-sub000/pkg/excel"
)

// ImportCompletedEvent is published on the event bus when a run reaches a
// terminal phase, successful or not.
type ImportCompletedEvent struct {
	Run importrun.Run
}

// ImportParams are the caller-supplied knobs of one run. A zero BatchSize
// falls back to the configured default. RunID may be set up front so the
// caller can subscribe to progress before the run starts; zero means
// generate one.
type ImportParams struct {
	RunID             uuid.UUID
	FileName          string `validate:"required"`
	Data              []byte `validate:"required"`
	BatchSize         int    `validate:"gte=0,lte=50000"`
	DryRun            bool
	OverwriteUserData bool
}

type ImportService struct {
	contacts   contact.Repository
	rollbacks  rollback.Repository
	runs       importrun.Repository
	rollbacker *RollbackService
	bus        eventbus.EventBus
	progress   *ProgressRegistry
	log        *logrus.Logger
	opts       configuration.ImportOptions
	validate   *validator.Validate

	// inTx is swappable so repository fakes can run without a pgx pool.
	inTx func(ctx context.Context, fn func(context.Context) error) error
}

func NewImportService(
	contacts contact.Repository,
	rollbacks rollback.Repository,
	runs importrun.Repository,
	rollbacker *RollbackService,
	bus eventbus.EventBus,
	progress *ProgressRegistry,
	log *logrus.Logger,
	opts configuration.ImportOptions,
) *ImportService {
	return &ImportService{
		contacts:   contacts,
		rollbacks:  rollbacks,
		runs:       runs,
		rollbacker: rollbacker,
		bus:        bus,
		progress:   progress,
		log:        log,
		opts:       opts,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		inTx:       composables.InTx,
	}
}

// chunkStats are the per-chunk counter deltas. Every considered row lands in
// exactly one of created/updated/skipped/duplicates/errored.
type chunkStats struct {
	processed  int
	created    int
	updated    int
	skipped    int
	duplicates int
	errored    int
}

// Import runs one spreadsheet through the full pipeline: chunked reading,
// normalization, classification, per-chunk transactional upsert, rollback
// logging. Chunks are sequential; a failed chunk errors its own rows and the
// run continues. Dry-run walks the identical classification path with zero
// writes.
//
// Concurrent imports against the same database are unsupported.
func (s *ImportService) Import(ctx context.Context, params ImportParams) (importrun.Run, error) {
	runID := params.RunID
	if runID == uuid.Nil {
		runID = uuid.New()
	}
	defer s.progress.Finish(runID)

	if err := s.validate.Struct(params); err != nil {
		return importrun.Run{}, err
	}

	batchSize := params.BatchSize
	if batchSize == 0 {
		batchSize = s.opts.BatchSize
	}
	if batchSize <= 0 {
		return importrun.Run{}, fmt.Errorf("batch size not configured")
	}

	run := importrun.Run{
		ID:                runID,
		FileName:          params.FileName,
		DryRun:            params.DryRun,
		BatchSize:         batchSize,
		OverwriteUserData: params.OverwriteUserData,
		Phase:             importrun.PhaseParsing,
		StartedAt:         time.Now(),
	}
	if !params.DryRun {
		rollbackID := uuid.New()
		run.RollbackID = &rollbackID
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return importrun.Run{}, err
	}

	reader, err := excel.NewSheetReader(params.Data, reconcile.ColVoterID, reconcile.RequiredColumns()...)
	if err != nil {
		return s.finishWithError(ctx, run, err)
	}
	defer func() { _ = reader.Close() }()

	run.TotalRows = reader.RowCount()
	run.Phase = importrun.PhaseProcessing
	if err := s.runs.Update(ctx, run); err != nil {
		return s.finishWithError(ctx, run, err)
	}

	chunkCount := (run.TotalRows + batchSize - 1) / batchSize
	classifier := reconcile.NewClassifier(params.OverwriteUserData)
	normalizer := reconcile.NewNormalizer()

	// Voter ID hashes already encountered in this run, for in-file duplicate
	// detection. Only merged after a chunk succeeds, so a failed chunk does
	// not poison the rows behind it.
	seen := make(map[string]int, run.TotalRows)

	started := time.Now()
	for i := 0; i < chunkCount; i++ {
		start := i*batchSize + 1
		end := min((i+1)*batchSize, run.TotalRows)

		rows, err := reader.ReadRange(start, end)
		if err != nil {
			return s.finishWithError(ctx, run, err)
		}

		stats, chunkSeen, err := s.runChunk(ctx, rows, seen, classifier, normalizer, run)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"run_id": run.ID,
				"chunk":  i + 1,
				"rows":   len(rows),
			}).WithError(err).Error("import chunk failed; continuing with next chunk")
			stats = chunkStats{processed: len(rows), errored: len(rows)}
		} else {
			for hash, row := range chunkSeen {
				seen[hash] = row
			}
		}

		run.Processed += stats.processed
		run.Created += stats.created
		run.Updated += stats.updated
		run.Skipped += stats.skipped
		run.Duplicates += stats.duplicates
		run.Errored += stats.errored
		if err := s.runs.Update(ctx, run); err != nil {
			return s.finishWithError(ctx, run, err)
		}

		s.publishProgress(run, i+1, chunkCount, started)

		if s.opts.ReclaimEvery > 0 && (i+1)%s.opts.ReclaimEvery == 0 {
			runtime.GC()
		}
	}

	now := time.Now()
	run.Phase = importrun.PhaseCompleted
	run.FinishedAt = &now
	if err := s.runs.Update(ctx, run); err != nil {
		return run, err
	}
	s.publishProgress(run, chunkCount, chunkCount, started)
	s.bus.Publish(&ImportCompletedEvent{Run: run})
	return run, nil
}

// runChunk classifies one chunk and, unless the run is a dry-run, commits its
// writes in a single transaction. Returned chunkSeen holds the hashes first
// observed in this chunk; the caller merges them only on success.
func (s *ImportService) runChunk(
	ctx context.Context,
	rows []excel.RawRow,
	seen map[string]int,
	classifier *reconcile.Classifier,
	normalizer *reconcile.Normalizer,
	run importrun.Run,
) (chunkStats, map[string]int, error) {
	chunkSeen := make(map[string]int)

	if run.DryRun {
		stats, err := s.processChunk(ctx, rows, seen, chunkSeen, classifier, normalizer, run, false)
		return stats, chunkSeen, err
	}

	var stats chunkStats
	err := s.inTx(ctx, func(txCtx context.Context) error {
		var txErr error
		stats, txErr = s.processChunk(txCtx, rows, seen, chunkSeen, classifier, normalizer, run, true)
		return txErr
	})
	return stats, chunkSeen, err
}

func (s *ImportService) processChunk(
	ctx context.Context,
	rows []excel.RawRow,
	seen map[string]int,
	chunkSeen map[string]int,
	classifier *reconcile.Classifier,
	normalizer *reconcile.Normalizer,
	run importrun.Run,
	apply bool,
) (chunkStats, error) {
	var stats chunkStats
	stats.processed = len(rows)

	records := make([]reconcile.ProcessedRecord, 0, len(rows))
	hashesBySystemID := make(map[string]string, len(rows))
	for _, row := range rows {
		rec, err := normalizer.Normalize(row)
		if err != nil {
			stats.errored++
			s.log.WithFields(logrus.Fields{
				"run_id":      run.ID,
				"row":         row.Number,
				"redacted_id": voterid.Redact(row.Get(reconcile.ColVoterID)),
			}).WithError(err).Warn("row rejected")
			continue
		}
		if firstRow, dup := seen[rec.Identity.Hash]; dup {
			stats.duplicates++
			s.log.WithFields(logrus.Fields{
				"run_id":      run.ID,
				"row":         rec.RowNumber,
				"first_row":   firstRow,
				"system_id":   rec.Identity.SystemID,
				"redacted_id": rec.Identity.Redacted,
			}).Debug("duplicate identifier within file")
			continue
		}
		if firstRow, dup := chunkSeen[rec.Identity.Hash]; dup {
			stats.duplicates++
			s.log.WithFields(logrus.Fields{
				"run_id":      run.ID,
				"row":         rec.RowNumber,
				"first_row":   firstRow,
				"system_id":   rec.Identity.SystemID,
				"redacted_id": rec.Identity.Redacted,
			}).Debug("duplicate identifier within file")
			continue
		}
		chunkSeen[rec.Identity.Hash] = rec.RowNumber
		hashesBySystemID[rec.Identity.SystemID] = rec.Identity.Hash
		records = append(records, rec)
	}

	matches, err := s.contacts.FindBySystemIDs(ctx, hashesBySystemID)
	if err != nil {
		return stats, err
	}
	matchBySystemID := make(map[string]contact.Match, len(matches))
	for _, m := range matches {
		matchBySystemID[m.Contact.SystemID()] = m
	}

	var creates, updates []reconcile.ProcessedRecord
	for idx := range records {
		rec := &records[idx]
		match, found := matchBySystemID[rec.Identity.SystemID]
		if !found {
			rec.IsNew = true
			stats.created++
			creates = append(creates, *rec)
			continue
		}
		if !match.Confirmed {
			// Truncated system-ID prefix collided with a different hash.
			// Never merge; record the anomaly and error the row.
			stats.errored++
			s.log.WithFields(logrus.Fields{
				"run_id":            run.ID,
				"row":               rec.RowNumber,
				"system_id":         rec.Identity.SystemID,
				"incoming_redacted": rec.Identity.Redacted,
				"existing_redacted": match.Contact.RedactedVoterID(),
			}).Error("system id collision between distinct voter id hashes")
			continue
		}
		rec.Existing = match.Contact
		rec.ChangeSet = classifier.Classify(rec.Contact, match.Contact)
		if rec.ChangeSet.Empty() {
			stats.skipped++
			continue
		}
		stats.updated++
		updates = append(updates, *rec)
	}

	if !apply {
		return stats, nil
	}
	if err := s.applyChunk(ctx, creates, updates, run); err != nil {
		return stats, err
	}
	return stats, nil
}

// applyChunk performs the chunk's writes. Caller holds the transaction.
func (s *ImportService) applyChunk(ctx context.Context, creates, updates []reconcile.ProcessedRecord, run importrun.Run) error {
	var entries []rollback.Entry

	if len(creates) > 0 {
		contacts := make([]contact.Contact, 0, len(creates))
		for _, rec := range creates {
			contacts = append(contacts, rec.Contact)
		}
		ids, err := s.contacts.BulkCreate(ctx, contacts)
		if err != nil {
			return err
		}

		var phones []contact.Phone
		var aliases []contact.Alias
		for i, rec := range creates {
			id := ids[i]
			if rec.Phone != nil {
				p := *rec.Phone
				p.ContactID = id
				phones = append(phones, p)
			}
			if rec.Alias != nil {
				a := *rec.Alias
				a.ContactID = id
				aliases = append(aliases, a)
			}
			entries = append(entries, rollback.Entry{
				RollbackID: *run.RollbackID,
				Op:         rollback.OpCreate,
				ContactID:  id,
			})
		}
		if err := s.contacts.BulkCreatePhones(ctx, phones); err != nil {
			return err
		}
		if err := s.contacts.BulkCreateAliases(ctx, aliases); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	for _, rec := range updates {
		fields := make(map[contact.Field]string, len(rec.ChangeSet)+1)
		preImage := make(map[contact.Field]string, len(rec.ChangeSet)+1)
		for _, f := range rec.ChangeSet {
			fields[f] = rec.Contact.FieldValue(f)
			preImage[f] = rec.Existing.FieldValue(f)
		}
		fields[contact.LastPublicUpdateField] = now.Format(time.RFC3339)
		preImage[contact.LastPublicUpdateField] = rec.Existing.FieldValue(contact.LastPublicUpdateField)

		if err := s.contacts.UpdateFields(ctx, rec.Existing.ID(), fields, contact.ImportActor); err != nil {
			return fmt.Errorf("update contact %s: %w", rec.Existing.SystemID(), err)
		}
		entries = append(entries, rollback.Entry{
			RollbackID:   *run.RollbackID,
			Op:           rollback.OpUpdate,
			ContactID:    rec.Existing.ID(),
			PreImage:     preImage,
			PreUpdatedBy: rec.Existing.LastUpdatedBy(),
		})
	}

	return s.rollbacks.Append(ctx, entries)
}

func (s *ImportService) publishProgress(run importrun.Run, chunkIndex, chunkCount int, started time.Time) {
	var eta float64
	if chunkIndex > 0 && chunkIndex < chunkCount {
		perChunk := time.Since(started).Seconds() / float64(chunkIndex)
		eta = perChunk * float64(chunkCount-chunkIndex)
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	s.progress.Publish(ProgressEvent{
		RunID:      run.ID,
		Phase:      run.Phase,
		ChunkIndex: chunkIndex,
		ChunkCount: chunkCount,
		TotalRows:  run.TotalRows,
		Processed:  run.Processed,
		Created:    run.Created,
		Updated:    run.Updated,
		Skipped:    run.Skipped,
		Duplicates: run.Duplicates,
		Errored:    run.Errored,
		ETASeconds: eta,
		HeapBytes:  mem.HeapAlloc,
	})
}

func (s *ImportService) finishWithError(ctx context.Context, run importrun.Run, cause error) (importrun.Run, error) {
	now := time.Now()
	run.Phase = importrun.PhaseError
	run.ErrorMessage = cause.Error()
	run.FinishedAt = &now

	// Chunks committed before the fatal error are reversed automatically;
	// anything unresolved stays in the log for a manual retry.
	if run.RollbackID != nil && run.Created+run.Updated > 0 {
		report, rbErr := s.rollbacker.Rollback(ctx, *run.RollbackID)
		switch {
		case rbErr != nil:
			s.log.WithFields(logrus.Fields{
				"run_id":      run.ID,
				"rollback_id": run.RollbackID,
			}).WithError(rbErr).Error("automatic rollback after run failure did not run")
		case len(report.Unresolved) > 0:
			s.log.WithFields(logrus.Fields{
				"run_id":      run.ID,
				"rollback_id": run.RollbackID,
				"reversed":    report.Reversed,
				"unresolved":  len(report.Unresolved),
			}).Error("automatic rollback after run failure is incomplete")
		default:
			s.log.WithFields(logrus.Fields{
				"run_id":      run.ID,
				"rollback_id": run.RollbackID,
				"reversed":    report.Reversed,
			}).Warn("committed chunks rolled back after run failure")
		}
	}

	if err := s.runs.Update(ctx, run); err != nil {
		s.log.WithError(err).WithField("run_id", run.ID).Error("failed to record run failure")
	}
	s.progress.Publish(ProgressEvent{
		RunID:      run.ID,
		Phase:      run.Phase,
		TotalRows:  run.TotalRows,
		Processed:  run.Processed,
		Created:    run.Created,
		Updated:    run.Updated,
		Skipped:    run.Skipped,
		Duplicates: run.Duplicates,
		Errored:    run.Errored,
		Message:    run.ErrorMessage,
	})
	s.bus.Publish(&ImportCompletedEvent{Run: run})
	return run, cause
}

// Runs lists recent import runs, newest first.
func (s *ImportService) Runs(ctx context.Context, limit int) ([]importrun.Run, error) {
	return s.runs.List(ctx, limit)
}
