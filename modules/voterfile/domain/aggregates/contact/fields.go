package contact

// Field names a single contact attribute as stored. Field values flow through
// classification, updates, and rollback pre-images in a canonical string form
// (dates as YYYY-MM-DD, absent values as "").
type Field string

const (
	AddressLine1Field     Field = "address_line1"
	CityField             Field = "city"
	StateField            Field = "state"
	ZipField              Field = "zip"
	DateOfBirthField      Field = "date_of_birth"
	PartyField            Field = "party"
	VoterStatusField      Field = "voter_status"
	RegistrationDateField Field = "registration_date"
	PrecinctField         Field = "precinct"
	CongressionalField    Field = "congressional_district"
	StateHouseField       Field = "state_house_district"
	StateSenateField      Field = "state_senate_district"
	SchoolBoardField      Field = "school_board_district"
	LastPublicUpdateField Field = "last_public_update"
)

// systemUpdatable is the closed set of fields the import pipeline may
// overwrite from the voter file. Everything else on a contact is user-owned:
// written once at creation, then only by humans.
var systemUpdatable = map[Field]bool{
	AddressLine1Field:     true,
	CityField:             true,
	StateField:            true,
	ZipField:              true,
	DateOfBirthField:      true,
	PartyField:            true,
	VoterStatusField:      true,
	RegistrationDateField: true,
	PrecinctField:         true,
	CongressionalField:    true,
	StateHouseField:       true,
	StateSenateField:      true,
	SchoolBoardField:      true,
	LastPublicUpdateField: true,
}

// SystemUpdatableFields returns the closed field list in stable order.
func SystemUpdatableFields() []Field {
	return []Field{
		AddressLine1Field,
		CityField,
		StateField,
		ZipField,
		DateOfBirthField,
		PartyField,
		VoterStatusField,
		RegistrationDateField,
		PrecinctField,
		CongressionalField,
		StateHouseField,
		StateSenateField,
		SchoolBoardField,
		LastPublicUpdateField,
	}
}

func IsSystemUpdatable(f Field) bool {
	return systemUpdatable[f]
}

// DiffableFields is the subset the classifier compares row against record.
// LastPublicUpdate is excluded: it is bookkeeping stamped on every approved
// update, not a value carried by the voter file.
func DiffableFields() []Field {
	fields := SystemUpdatableFields()
	out := make([]Field, 0, len(fields)-1)
	for _, f := range fields {
		if f == LastPublicUpdateField {
			continue
		}
		out = append(out, f)
	}
	return out
}
