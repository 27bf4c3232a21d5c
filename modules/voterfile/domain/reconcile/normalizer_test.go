package reconcile

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hwyzisk/annaverse-voter-vault-sub000/modules/voterfile/domain/voterid"
	"github.com/hwyzisk/annaverse-voter-vault-sub000/pkg/excel"
)

func rawRow(num int, cells map[string]string) excel.RawRow {
	return excel.RawRow{Number: num, Cells: cells}
}

func TestNormalize_FullRow(t *testing.T) {
	n := NewNormalizer()
	rec, err := n.Normalize(rawRow(3, map[string]string{
		ColVoterID:          "123456789",
		ColNameFirst:        "Ann",
		ColNameMiddle:       "B",
		ColNameLast:         "Rivera",
		ColAddressLine1:     "12 Palm Ave",
		ColCity:             "Gainesville",
		ColState:            "FL",
		ColZip:              "32601",
		ColParty:            "NPA",
		ColVoterStatus:      "ACT",
		ColBirthDate:        "1980-06-15",
		ColRegistrationDate: "01/20/2016",
		ColPrecinct:         "21",
		ColCongressional:    "3",
		ColStateHouse:       "21",
		ColStateSenate:      "8",
		ColSchoolBoard:      "1",
		ColPhone:            "(352) 555-0187",
		ColNickname:         "Annie",
	}))
	require.NoError(t, err)

	require.Equal(t, 3, rec.RowNumber)
	require.Equal(t, voterid.Hash("123456789"), rec.Identity.Hash)
	require.Equal(t, "Ann B Rivera", rec.Contact.Name().Full)
	require.Equal(t, "12 Palm Ave", rec.Contact.Address().Line1)
	require.Equal(t, "NPA", rec.Contact.Registration().Party)

	dob := rec.Contact.Registration().DateOfBirth
	require.NotNil(t, dob)
	require.Equal(t, "1980-06-15", dob.Format("2006-01-02"))

	reg := rec.Contact.Registration().RegisteredOn
	require.NotNil(t, reg)
	require.Equal(t, "2016-01-20", reg.Format("2006-01-02"))

	require.NotNil(t, rec.Phone)
	require.Equal(t, "3525550187", rec.Phone.Number)
	require.NotNil(t, rec.Alias)
	require.Equal(t, "Annie", rec.Alias.Nickname)
}

func TestNormalize_DateSerial(t *testing.T) {
	n := NewNormalizer()
	// Serial 29356 is 1980-05-15 in the 1900 date system.
	rec, err := n.Normalize(rawRow(1, map[string]string{
		ColVoterID:   "42",
		ColNameFirst: "Ben",
		ColNameLast:  "Okafor",
		ColBirthDate: "29356",
	}))
	require.NoError(t, err)
	dob := rec.Contact.Registration().DateOfBirth
	require.NotNil(t, dob)
	require.Equal(t, "1980-05-15", dob.Format("2006-01-02"))
}

func TestNormalize_SentinelsFiltered(t *testing.T) {
	n := NewNormalizer()
	rec, err := n.Normalize(rawRow(1, map[string]string{
		ColVoterID:      "42",
		ColNameFirst:    "Ben",
		ColNameLast:     "Okafor",
		ColAddressLine1: "*",
		ColCity:         "N/A",
		ColParty:        "UNK",
		ColBirthDate:    "NONE",
	}))
	require.NoError(t, err)
	require.Empty(t, rec.Contact.Address().Line1)
	require.Empty(t, rec.Contact.Address().City)
	require.Empty(t, rec.Contact.Registration().Party)
	require.Nil(t, rec.Contact.Registration().DateOfBirth)
}

func TestNormalize_DerivesFullName(t *testing.T) {
	n := NewNormalizer()
	rec, err := n.Normalize(rawRow(1, map[string]string{
		ColVoterID:  "42",
		ColNameLast: "Okafor",
	}))
	require.NoError(t, err)
	require.Equal(t, "Okafor", rec.Contact.Name().Full)
}

func TestNormalize_RejectsNamelessRow(t *testing.T) {
	n := NewNormalizer()
	_, err := n.Normalize(rawRow(7, map[string]string{
		ColVoterID: "42",
		ColCity:    "Gainesville",
	}))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidRow))
}

func TestNormalize_NeutralEngagementDefaults(t *testing.T) {
	n := NewNormalizer()
	rec, err := n.Normalize(rawRow(1, map[string]string{
		ColVoterID:   "42",
		ColNameFirst: "Ben",
		ColNameLast:  "Okafor",
	}))
	require.NoError(t, err)
	eng := rec.Contact.Engagement()
	require.Equal(t, "unknown", string(eng.SupporterStatus))
	require.Equal(t, "unknown", string(eng.VolunteerLikelihood))
	require.Empty(t, eng.Notes)
}

func TestNormalize_Deterministic(t *testing.T) {
	n := NewNormalizer()
	cells := map[string]string{
		ColVoterID:   "123456789",
		ColNameFirst: "Ann",
		ColNameLast:  "Rivera",
	}
	a, err := n.Normalize(rawRow(1, cells))
	require.NoError(t, err)
	b, err := n.Normalize(rawRow(1, cells))
	require.NoError(t, err)
	require.Equal(t, a.Identity, b.Identity)
	require.Equal(t, a.Contact.FieldValue("address_line1"), b.Contact.FieldValue("address_line1"))
}

func TestParseDate_Unparseable(t *testing.T) {
	require.Nil(t, parseDate("not a date"))
	require.Nil(t, parseDate("0"))
	require.Nil(t, parseDate("99999999"))
	require.NotNil(t, parseDate("2020-02-29"))
}

func TestParseDate_TimezoneStable(t *testing.T) {
	d := parseDate("2016-01-20")
	require.NotNil(t, d)
	require.Equal(t, time.UTC, d.Location())
}
