package contact

import (
	"strings"
	"time"
)

// ImportActor is the last-updated-by marker the import pipeline writes.
// Records whose last writer differs are presumed hand-edited.
const ImportActor = "voter-file-import"

const dateLayout = "2006-01-02"

type SupporterStatus string

const (
	SupporterUnknown   SupporterStatus = "unknown"
	SupporterConfirmed SupporterStatus = "supporter"
	SupporterUndecided SupporterStatus = "undecided"
	SupporterOpposed   SupporterStatus = "opposed"
)

type Likelihood string

const (
	LikelihoodUnknown Likelihood = "unknown"
	LikelihoodLow     Likelihood = "low"
	LikelihoodMedium  Likelihood = "medium"
	LikelihoodHigh    Likelihood = "high"
)

type Name struct {
	Full   string
	First  string
	Middle string
	Last   string
}

type Address struct {
	Line1 string
	City  string
	State string
	Zip   string
}

type Registration struct {
	Party        string
	Status       string
	RegisteredOn *time.Time
	DateOfBirth  *time.Time
}

type Districts struct {
	Precinct      string
	Congressional string
	StateHouse    string
	StateSenate   string
	SchoolBoard   string
}

// Engagement groups the user-owned fields. The import pipeline writes them
// once at creation with neutral defaults and never on update.
type Engagement struct {
	SupporterStatus     SupporterStatus
	VolunteerLikelihood Likelihood
	Notes               string
}

func NeutralEngagement() Engagement {
	return Engagement{
		SupporterStatus:     SupporterUnknown,
		VolunteerLikelihood: LikelihoodUnknown,
	}
}

// Contact is the canonical reconciled record. Exactly one Contact exists per
// distinct voter ID hash; the raw external identifier is never part of it.
type Contact struct {
	id               int64
	systemID         string
	voterIDHash      string
	redactedVoterID  string
	name             Name
	address          Address
	registration     Registration
	districts        Districts
	engagement       Engagement
	lastPublicUpdate *time.Time
	lastUpdatedBy    string
	createdAt        time.Time
	updatedAt        time.Time
}

// New builds a contact the way the import pipeline creates one: engagement
// defaults to neutral and the last writer is the import actor.
func New(systemID, voterIDHash, redactedVoterID string, name Name, address Address, registration Registration, districts Districts) Contact {
	return Contact{
		systemID:        systemID,
		voterIDHash:     voterIDHash,
		redactedVoterID: redactedVoterID,
		name:            normalizeName(name),
		address:         address,
		registration:    registration,
		districts:       districts,
		engagement:      NeutralEngagement(),
		lastUpdatedBy:   ImportActor,
	}
}

func Hydrate(
	id int64,
	systemID, voterIDHash, redactedVoterID string,
	name Name,
	address Address,
	registration Registration,
	districts Districts,
	engagement Engagement,
	lastPublicUpdate *time.Time,
	lastUpdatedBy string,
	createdAt, updatedAt time.Time,
) Contact {
	return Contact{
		id:               id,
		systemID:         systemID,
		voterIDHash:      voterIDHash,
		redactedVoterID:  redactedVoterID,
		name:             normalizeName(name),
		address:          address,
		registration:     registration,
		districts:        districts,
		engagement:       engagement,
		lastPublicUpdate: lastPublicUpdate,
		lastUpdatedBy:    lastUpdatedBy,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}
}

func normalizeName(n Name) Name {
	n.Full = strings.TrimSpace(n.Full)
	n.First = strings.TrimSpace(n.First)
	n.Middle = strings.TrimSpace(n.Middle)
	n.Last = strings.TrimSpace(n.Last)
	if n.Full == "" {
		parts := make([]string, 0, 3)
		for _, p := range []string{n.First, n.Middle, n.Last} {
			if p != "" {
				parts = append(parts, p)
			}
		}
		n.Full = strings.Join(parts, " ")
	}
	return n
}

func (c Contact) ID() int64                   { return c.id }
func (c Contact) SystemID() string            { return c.systemID }
func (c Contact) VoterIDHash() string         { return c.voterIDHash }
func (c Contact) RedactedVoterID() string     { return c.redactedVoterID }
func (c Contact) Name() Name                  { return c.name }
func (c Contact) Address() Address            { return c.address }
func (c Contact) Registration() Registration  { return c.registration }
func (c Contact) Districts() Districts        { return c.districts }
func (c Contact) Engagement() Engagement      { return c.engagement }
func (c Contact) LastPublicUpdate() *time.Time { return c.lastPublicUpdate }
func (c Contact) LastUpdatedBy() string       { return c.lastUpdatedBy }
func (c Contact) CreatedAt() time.Time        { return c.createdAt }
func (c Contact) UpdatedAt() time.Time        { return c.updatedAt }
func (c Contact) IsZero() bool                { return c.voterIDHash == "" && c.id == 0 }

func (c Contact) WithID(id int64) Contact {
	c.id = id
	return c
}

// EditedByHuman is the user-modified heuristic: the record's last writer was
// not the import pipeline. Per-field provenance would be more precise; this
// record-level approximation can both under- and over-protect.
func (c Contact) EditedByHuman() bool {
	return c.lastUpdatedBy != "" && c.lastUpdatedBy != ImportActor
}

// FieldValue returns the canonical string form of a system-updatable field,
// used for change classification and rollback pre-images.
func (c Contact) FieldValue(f Field) string {
	switch f {
	case AddressLine1Field:
		return c.address.Line1
	case CityField:
		return c.address.City
	case StateField:
		return c.address.State
	case ZipField:
		return c.address.Zip
	case DateOfBirthField:
		return formatDate(c.registration.DateOfBirth)
	case PartyField:
		return c.registration.Party
	case VoterStatusField:
		return c.registration.Status
	case RegistrationDateField:
		return formatDate(c.registration.RegisteredOn)
	case PrecinctField:
		return c.districts.Precinct
	case CongressionalField:
		return c.districts.Congressional
	case StateHouseField:
		return c.districts.StateHouse
	case StateSenateField:
		return c.districts.StateSenate
	case SchoolBoardField:
		return c.districts.SchoolBoard
	case LastPublicUpdateField:
		if c.lastPublicUpdate == nil {
			return ""
		}
		return c.lastPublicUpdate.UTC().Format(time.RFC3339)
	default:
		return ""
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

// Phone is a contact phone number derived from an import row or entered by a
// user. Stitched to its parent after the bulk insert assigns contact IDs.
type Phone struct {
	ContactID int64
	Number    string
	Kind      string
}

// Alias is an alternate name (nickname) for a contact, fed to the interactive
// search collaborator.
type Alias struct {
	ContactID int64
	Nickname  string
}
