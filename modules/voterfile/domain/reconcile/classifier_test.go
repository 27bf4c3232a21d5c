package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hwyzisk/annaverse-voter-vault-sub000/modules/voterfile/domain/aggregates/contact"
	"github.com/hwyzisk/annaverse-voter-vault-sub000/modules/voterfile/domain/voterid"
)

func makeContact(t *testing.T, line1, city string, lastUpdatedBy string) contact.Contact {
	t.Helper()
	ident := voterid.FromRaw("123456789")
	return contact.Hydrate(
		1,
		ident.SystemID, ident.Hash, ident.Redacted,
		contact.Name{First: "Ann", Last: "Rivera"},
		contact.Address{Line1: line1, City: city, State: "FL", Zip: "32601"},
		contact.Registration{Party: "NPA", Status: "ACT"},
		contact.Districts{Precinct: "21"},
		contact.NeutralEngagement(),
		nil,
		lastUpdatedBy,
		time.Now(), time.Now(),
	)
}

func TestClassify_ApprovesChangedSystemFields(t *testing.T) {
	existing := makeContact(t, "12 Palm Ave", "Gainesville", contact.ImportActor)
	incoming := makeContact(t, "99 Oak St", "Gainesville", contact.ImportActor)

	changes := NewClassifier(false).Classify(incoming, existing)
	require.Equal(t, ChangeSet{contact.AddressLine1Field}, changes)
}

func TestClassify_NoChanges(t *testing.T) {
	existing := makeContact(t, "12 Palm Ave", "Gainesville", contact.ImportActor)
	incoming := makeContact(t, "12 Palm Ave", "Gainesville", contact.ImportActor)

	changes := NewClassifier(false).Classify(incoming, existing)
	require.True(t, changes.Empty())
}

func TestClassify_ProtectsHumanEditedRecord(t *testing.T) {
	existing := makeContact(t, "12 Palm Ave", "Gainesville", "staff@campaign")
	incoming := makeContact(t, "99 Oak St", "Ocala", contact.ImportActor)

	changes := NewClassifier(false).Classify(incoming, existing)
	require.True(t, changes.Empty(), "human-edited record must not be overwritten without override")
}

func TestClassify_OverrideUnprotects(t *testing.T) {
	existing := makeContact(t, "12 Palm Ave", "Gainesville", "staff@campaign")
	incoming := makeContact(t, "99 Oak St", "Ocala", contact.ImportActor)

	changes := NewClassifier(true).Classify(incoming, existing)
	require.True(t, changes.Contains(contact.AddressLine1Field))
	require.True(t, changes.Contains(contact.CityField))
}

func TestClassify_BlankIncomingNeverClears(t *testing.T) {
	existing := makeContact(t, "12 Palm Ave", "Gainesville", contact.ImportActor)
	incoming := makeContact(t, "", "", contact.ImportActor)

	changes := NewClassifier(true).Classify(incoming, existing)
	require.True(t, changes.Empty())
}

func TestClassify_OnlySystemUpdatableFields(t *testing.T) {
	existing := makeContact(t, "12 Palm Ave", "Gainesville", contact.ImportActor)
	incoming := makeContact(t, "99 Oak St", "Ocala", contact.ImportActor)

	changes := NewClassifier(true).Classify(incoming, existing)
	for _, f := range changes {
		require.True(t, contact.IsSystemUpdatable(f), "field %q escaped the closed set", f)
	}
	require.False(t, changes.Contains(contact.LastPublicUpdateField),
		"bookkeeping timestamp is stamped by the executor, not classified")
}

func TestClassify_CustomPredicate(t *testing.T) {
	existing := makeContact(t, "12 Palm Ave", "Gainesville", contact.ImportActor)
	incoming := makeContact(t, "99 Oak St", "Ocala", contact.ImportActor)

	// Per-field provenance: only the city carries a human edit.
	classifier := NewClassifier(false).WithPredicate(
		func(_ contact.Contact, f contact.Field) bool {
			return f == contact.CityField
		})

	changes := classifier.Classify(incoming, existing)
	require.True(t, changes.Contains(contact.AddressLine1Field))
	require.False(t, changes.Contains(contact.CityField))
}

func TestClassify_SecondPassSkips(t *testing.T) {
	existing := makeContact(t, "12 Palm Ave", "Gainesville", contact.ImportActor)
	incoming := makeContact(t, "99 Oak St", "Gainesville", contact.ImportActor)

	classifier := NewClassifier(false)
	first := classifier.Classify(incoming, existing)
	require.False(t, first.Empty())

	// After the first pass applied the change, re-importing the same row
	// must classify as no-op.
	applied := makeContact(t, "99 Oak St", "Gainesville", contact.ImportActor)
	second := classifier.Classify(incoming, applied)
	require.True(t, second.Empty())
}
