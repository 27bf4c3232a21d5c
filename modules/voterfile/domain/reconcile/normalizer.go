package reconcile

import (
	"strconv"
	"strings"
	"time"

	"github.com/hwyzisk/annaverse-voter-vault-sub000/modules/voterfile/domain/aggregates/contact"
	"github.com/hwyzisk/annaverse-voter-vault-sub000/modules/voterfile/domain/voterid"
	"github.com/hwyzisk/annaverse-voter-vault-sub000/pkg/excel"
	"github.com/hwyzisk/annaverse-voter-vault-sub000/pkg/serrors"
)

// Source column names of the voter registration extract.
const (
	ColVoterID          = "Voter ID"
	ColNameLast         = "Name Last"
	ColNameFirst        = "Name First"
	ColNameMiddle       = "Name Middle"
	ColAddressLine1     = "Residence Address Line 1"
	ColCity             = "Residence City"
	ColState            = "Residence State"
	ColZip              = "Residence Zipcode"
	ColBirthDate        = "Birth Date"
	ColParty            = "Party Affiliation"
	ColVoterStatus      = "Voter Status"
	ColRegistrationDate = "Registration Date"
	ColPrecinct         = "Precinct"
	ColCongressional    = "Congressional District"
	ColStateHouse       = "House District"
	ColStateSenate      = "Senate District"
	ColSchoolBoard      = "School Board District"
	ColPhone            = "Daytime Phone Number"
	ColNickname         = "Nickname"
)

var ErrInvalidRow = serrors.NewError("IMPORT_INVALID_ROW", "row has neither first nor last name", "")

// RequiredColumns are the headers a workbook must carry to be importable.
func RequiredColumns() []string {
	return []string{ColNameFirst, ColNameLast}
}

// sentinels are placeholder tokens the source emits for "no data".
var sentinels = map[string]bool{
	"*":       true,
	"N/A":     true,
	"NA":      true,
	"NONE":    true,
	"NULL":    true,
	"UNK":     true,
	"UNKNOWN": true,
}

// ProcessedRecord pairs one normalized row with its derived records and, after
// classification, the write decision. Lives for one chunk.
type ProcessedRecord struct {
	RowNumber int
	Identity  voterid.Identity
	Contact   contact.Contact
	Phone     *contact.Phone
	Alias     *contact.Alias

	IsNew     bool
	Existing  contact.Contact
	ChangeSet ChangeSet
}

type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize converts one raw spreadsheet row into a canonical contact plus
// optional phone/alias records. The raw identifier is hashed and redacted
// here; nothing downstream ever sees it.
func (n *Normalizer) Normalize(row excel.RawRow) (ProcessedRecord, error) {
	first := cleanValue(row.Get(ColNameFirst))
	last := cleanValue(row.Get(ColNameLast))
	if first == "" && last == "" {
		return ProcessedRecord{}, ErrInvalidRow
	}

	ident := voterid.FromRaw(row.Get(ColVoterID))

	c := contact.New(
		ident.SystemID,
		ident.Hash,
		ident.Redacted,
		contact.Name{
			First:  first,
			Middle: cleanValue(row.Get(ColNameMiddle)),
			Last:   last,
		},
		contact.Address{
			Line1: cleanValue(row.Get(ColAddressLine1)),
			City:  cleanValue(row.Get(ColCity)),
			State: cleanValue(row.Get(ColState)),
			Zip:   cleanValue(row.Get(ColZip)),
		},
		contact.Registration{
			Party:        cleanValue(row.Get(ColParty)),
			Status:       cleanValue(row.Get(ColVoterStatus)),
			RegisteredOn: parseDate(cleanValue(row.Get(ColRegistrationDate))),
			DateOfBirth:  parseDate(cleanValue(row.Get(ColBirthDate))),
		},
		contact.Districts{
			Precinct:      cleanValue(row.Get(ColPrecinct)),
			Congressional: cleanValue(row.Get(ColCongressional)),
			StateHouse:    cleanValue(row.Get(ColStateHouse)),
			StateSenate:   cleanValue(row.Get(ColStateSenate)),
			SchoolBoard:   cleanValue(row.Get(ColSchoolBoard)),
		},
	)

	rec := ProcessedRecord{
		RowNumber: row.Number,
		Identity:  ident,
		Contact:   c,
	}
	if phone := cleanPhone(row.Get(ColPhone)); phone != "" {
		rec.Phone = &contact.Phone{Number: phone, Kind: "daytime"}
	}
	if nick := cleanValue(row.Get(ColNickname)); nick != "" {
		rec.Alias = &contact.Alias{Nickname: nick}
	}
	return rec, nil
}

func cleanValue(v string) string {
	v = strings.TrimSpace(v)
	if sentinels[strings.ToUpper(v)] {
		return ""
	}
	return v
}

func cleanPhone(v string) string {
	v = cleanValue(v)
	var digits strings.Builder
	for _, r := range v {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() < 7 {
		return ""
	}
	return digits.String()
}

// excelEpoch anchors the 1900 date system. Serials of 61 and above
// (1900-03-01 onward) convert exactly; below that the phantom 1900 leap day
// shifts results by a day, which no real birth or registration date hits.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"2006/01/02",
}

// parseDate accepts either an Excel date serial or a formatted date string.
// Unparseable values degrade to nil rather than failing the row.
func parseDate(v string) *time.Time {
	if v == "" {
		return nil
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		if serial < 1 || serial > 200000 {
			return nil
		}
		t := excelEpoch.AddDate(0, 0, int(serial))
		return &t
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
