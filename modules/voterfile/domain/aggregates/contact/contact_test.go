package contact_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hwyzisk/annaverse-voter-vault-sub000/modules/voterfile/domain/aggregates/contact"
)

func TestNew_Defaults(t *testing.T) {
	c := contact.New(
		"AV-0123456789ab", "hash", "*****6789",
		contact.Name{First: "Ann", Middle: "B", Last: "Rivera"},
		contact.Address{Line1: "12 Palm Ave"},
		contact.Registration{},
		contact.Districts{},
	)

	require.Equal(t, contact.ImportActor, c.LastUpdatedBy())
	require.False(t, c.EditedByHuman())
	require.Equal(t, contact.NeutralEngagement(), c.Engagement())
	require.Equal(t, "Ann B Rivera", c.Name().Full)
}

func TestName_FullNotOverridden(t *testing.T) {
	c := contact.New(
		"AV-0123456789ab", "hash", "****",
		contact.Name{Full: "A. B. Rivera", First: "Ann", Last: "Rivera"},
		contact.Address{}, contact.Registration{}, contact.Districts{},
	)
	require.Equal(t, "A. B. Rivera", c.Name().Full)
}

func TestFieldValue_Canonical(t *testing.T) {
	dob := time.Date(1980, 6, 15, 0, 0, 0, 0, time.UTC)
	lpu := time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC)
	c := contact.Hydrate(
		7, "AV-0123456789ab", "hash", "****",
		contact.Name{First: "Ann", Last: "Rivera"},
		contact.Address{Line1: "12 Palm Ave", City: "Gainesville", State: "FL", Zip: "32601"},
		contact.Registration{Party: "NPA", Status: "ACT", DateOfBirth: &dob},
		contact.Districts{Precinct: "21", Congressional: "3"},
		contact.NeutralEngagement(),
		&lpu, contact.ImportActor,
		time.Now(), time.Now(),
	)

	require.Equal(t, "12 Palm Ave", c.FieldValue(contact.AddressLine1Field))
	require.Equal(t, "1980-06-15", c.FieldValue(contact.DateOfBirthField))
	require.Equal(t, "", c.FieldValue(contact.RegistrationDateField))
	require.Equal(t, "21", c.FieldValue(contact.PrecinctField))
	require.Equal(t, "2026-08-01T12:30:00Z", c.FieldValue(contact.LastPublicUpdateField))
	require.Equal(t, "", c.FieldValue(contact.Field("notes")))
}

func TestEditedByHuman(t *testing.T) {
	base := func(by string) contact.Contact {
		return contact.Hydrate(
			1, "AV-0123456789ab", "hash", "****",
			contact.Name{Last: "Rivera"},
			contact.Address{}, contact.Registration{}, contact.Districts{},
			contact.NeutralEngagement(), nil, by, time.Now(), time.Now(),
		)
	}
	require.False(t, base(contact.ImportActor).EditedByHuman())
	require.False(t, base("").EditedByHuman())
	require.True(t, base("staff@campaign").EditedByHuman())
}

func TestDiffableFields_ExcludesBookkeeping(t *testing.T) {
	for _, f := range contact.DiffableFields() {
		require.NotEqual(t, contact.LastPublicUpdateField, f)
		require.True(t, contact.IsSystemUpdatable(f))
	}
	require.Len(t, contact.DiffableFields(), len(contact.SystemUpdatableFields())-1)
}
