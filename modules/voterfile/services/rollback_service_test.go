package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/hwyzisk/annaverse-voter-vault-sub000/modules/voterfile/domain/aggregates/contact"
	"github.com/hwyzisk/annaverse-voter-vault-sub000/modules/voterfile/domain/voterid"
)

func TestRollback_RestoresImport(t *testing.T) {
	env := newTestEnv(t, 5)
	existing := seedContact(t, env.contacts, "200", "1 Old Rd", "Gainesville", contact.ImportActor)

	data := buildWorkbook(t, [][]string{
		{"100", "Ann", "Rivera", "12 Palm Ave", "Gainesville", "FL", "32601", "NPA", "", ""},
		{"200", "Seeded", "Voter", "9 New Blvd", "Gainesville", "FL", "32601", "NPA", "", ""},
	})

	run, err := env.importer.Import(context.Background(), ImportParams{FileName: "voters.xlsx", Data: data})
	require.NoError(t, err)
	require.NotNil(t, run.RollbackID)
	require.Equal(t, 1, run.Created)
	require.Equal(t, 1, run.Updated)

	report, err := env.rollback.Rollback(context.Background(), *run.RollbackID)
	require.NoError(t, err)
	require.Equal(t, 2, report.Reversed)
	require.Equal(t, 1, report.Deleted)
	require.Equal(t, 1, report.Restored)
	require.Empty(t, report.Unresolved)

	// Created contact is gone, updated contact is back to its pre-image.
	_, ok := env.contacts.bySystemID(voterid.FromRaw("100").SystemID)
	require.False(t, ok)
	restored, ok := env.contacts.bySystemID(existing.SystemID())
	require.True(t, ok)
	require.Equal(t, "1 Old Rd", restored.Address().Line1)
	require.Nil(t, restored.LastPublicUpdate())

	// Reversed entries are consumed.
	entries, err := env.rollbacks.ListByRollbackID(context.Background(), *run.RollbackID)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestRollback_RestoresLastWriter(t *testing.T) {
	env := newTestEnv(t, 5)
	existing := seedContact(t, env.contacts, "200", "1 Old Rd", "Gainesville", "staff@campaign")

	data := buildWorkbook(t, [][]string{
		{"200", "Seeded", "Voter", "9 New Blvd", "Ocala", "FL", "34470", "NPA", "", ""},
	})
	run, err := env.importer.Import(context.Background(), ImportParams{
		FileName: "voters.xlsx", Data: data, OverwriteUserData: true,
	})
	require.NoError(t, err)
	require.Equal(t, 1, run.Updated)

	report, err := env.rollback.Rollback(context.Background(), *run.RollbackID)
	require.NoError(t, err)
	require.Equal(t, 1, report.Restored)

	restored, ok := env.contacts.bySystemID(existing.SystemID())
	require.True(t, ok)
	require.Equal(t, "1 Old Rd", restored.Address().Line1)
	require.Equal(t, "staff@campaign", restored.LastUpdatedBy())

	// The restored human edit protects the record from a later plain import.
	rerun, err := env.importer.Import(context.Background(), ImportParams{FileName: "voters.xlsx", Data: data})
	require.NoError(t, err)
	require.Equal(t, 0, rerun.Updated)
	require.Equal(t, 1, rerun.Skipped)
}

func TestRollback_UnknownID(t *testing.T) {
	env := newTestEnv(t, 5)
	_, err := env.rollback.Rollback(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrNoRollbackEntries)
}

func TestRollback_PartialFailureLeavesEntry(t *testing.T) {
	env := newTestEnv(t, 5)
	failing := seedContact(t, env.contacts, "200", "1 Old Rd", "Gainesville", contact.ImportActor)

	data := buildWorkbook(t, [][]string{
		{"100", "Ann", "Rivera", "12 Palm Ave", "Gainesville", "FL", "32601", "NPA", "", ""},
		{"200", "Seeded", "Voter", "9 New Blvd", "Gainesville", "FL", "32601", "NPA", "", ""},
	})
	run, err := env.importer.Import(context.Background(), ImportParams{FileName: "voters.xlsx", Data: data})
	require.NoError(t, err)

	env.contacts.failUpdateID = failing.ID()
	report, err := env.rollback.Rollback(context.Background(), *run.RollbackID)
	require.NoError(t, err)
	require.Equal(t, 1, report.Reversed)
	require.Len(t, report.Unresolved, 1)

	// The unresolved entry stays for a retry.
	entries, err := env.rollbacks.ListByRollbackID(context.Background(), *run.RollbackID)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	env.contacts.failUpdateID = 0
	retry, err := env.rollback.Rollback(context.Background(), *run.RollbackID)
	require.NoError(t, err)
	require.Equal(t, 1, retry.Reversed)
	require.Empty(t, retry.Unresolved)

	restored, ok := env.contacts.bySystemID(failing.SystemID())
	require.True(t, ok)
	require.Equal(t, "1 Old Rd", restored.Address().Line1)
}

func TestRollback_DeletedContactTreatedAsReversed(t *testing.T) {
	env := newTestEnv(t, 5)
	existing := seedContact(t, env.contacts, "200", "1 Old Rd", "Gainesville", contact.ImportActor)

	data := buildWorkbook(t, [][]string{
		{"200", "Seeded", "Voter", "9 New Blvd", "Gainesville", "FL", "32601", "NPA", "", ""},
	})
	run, err := env.importer.Import(context.Background(), ImportParams{FileName: "voters.xlsx", Data: data})
	require.NoError(t, err)

	require.NoError(t, env.contacts.DeleteByIDs(context.Background(), []int64{existing.ID()}))

	report, err := env.rollback.Rollback(context.Background(), *run.RollbackID)
	require.NoError(t, err)
	require.Equal(t, 1, report.Reversed)
	require.Empty(t, report.Unresolved)
}

func TestPurgeExpired(t *testing.T) {
	env := newTestEnv(t, 5)
	data := buildWorkbook(t, [][]string{
		{"100", "Ann", "Rivera", "12 Palm Ave", "Gainesville", "FL", "32601", "NPA", "", ""},
	})
	_, err := env.importer.Import(context.Background(), ImportParams{FileName: "voters.xlsx", Data: data})
	require.NoError(t, err)

	// Age the entries past the retention window.
	env.rollbacks.mu.Lock()
	for i := range env.rollbacks.entries {
		env.rollbacks.entries[i].CreatedAt = time.Now().Add(-48 * time.Hour)
	}
	env.rollbacks.mu.Unlock()

	purged, err := env.rollback.PurgeExpired(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(1), purged)
}
