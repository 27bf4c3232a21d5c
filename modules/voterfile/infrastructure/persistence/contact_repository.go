package persistence

import (
	"context"
	"fmt"
	"strings"

	gerrors "github.com/go-faster/errors"

	"github.com/hwyzisk/annaverse-voter-vault-sub000/modules/voterfile/domain/aggregates/contact"
	"github.com/hwyzisk/annaverse-voter-vault-sub000/modules/voterfile/infrastructure/persistence/models"
	"github.com/hwyzisk/annaverse-voter-vault-sub000/pkg/composables"
)

const (
	contactSelectQuery = `
        SELECT
            c.id,
            c.system_id,
            c.voter_id_hash,
            c.redacted_voter_id,
            c.full_name,
            c.first_name,
            c.middle_name,
            c.last_name,
            c.date_of_birth,
            c.address_line1,
            c.city,
            c.state,
            c.zip,
            c.party,
            c.voter_status,
            c.registration_date,
            c.precinct,
            c.congressional_district,
            c.state_house_district,
            c.state_senate_district,
            c.school_board_district,
            c.supporter_status,
            c.volunteer_likelihood,
            c.notes,
            c.last_public_update,
            c.last_updated_by,
            c.created_at,
            c.updated_at
        FROM contacts c`

	contactsBySystemIDsQuery = contactSelectQuery + ` WHERE c.system_id = ANY($1)`

	contactCountQuery = `SELECT COUNT(c.id) FROM contacts c`

	contactInsertColumns = `system_id, voter_id_hash, redacted_voter_id, full_name, first_name,
        middle_name, last_name, date_of_birth, address_line1, city, state, zip, party,
        voter_status, registration_date, precinct, congressional_district, state_house_district,
        state_senate_district, school_board_district, supporter_status, volunteer_likelihood,
        notes, last_updated_by`

	contactPhoneInsertQuery = `INSERT INTO contact_phones (contact_id, number, kind) VALUES`
	contactAliasInsertQuery = `INSERT INTO contact_aliases (contact_id, nickname) VALUES`

	contactPhonesDeleteQuery  = `DELETE FROM contact_phones WHERE contact_id = ANY($1)`
	contactAliasesDeleteQuery = `DELETE FROM contact_aliases WHERE contact_id = ANY($1)`
	contactsDeleteQuery       = `DELETE FROM contacts WHERE id = ANY($1)`
)

const contactInsertParamCount = 24

// fieldColumns maps system-updatable fields to their columns and the SQL
// expression used to coerce the canonical string value. Fields absent here
// cannot be written by UpdateFields at all.
var fieldColumns = map[contact.Field]struct {
	column string
	expr   string
}{
	contact.AddressLine1Field:     {"address_line1", "%s"},
	contact.CityField:             {"city", "%s"},
	contact.StateField:            {"state", "%s"},
	contact.ZipField:              {"zip", "%s"},
	contact.DateOfBirthField:      {"date_of_birth", "NULLIF(%s, '')::date"},
	contact.PartyField:            {"party", "%s"},
	contact.VoterStatusField:      {"voter_status", "%s"},
	contact.RegistrationDateField: {"registration_date", "NULLIF(%s, '')::date"},
	contact.PrecinctField:         {"precinct", "%s"},
	contact.CongressionalField:    {"congressional_district", "%s"},
	contact.StateHouseField:       {"state_house_district", "%s"},
	contact.StateSenateField:      {"state_senate_district", "%s"},
	contact.SchoolBoardField:      {"school_board_district", "%s"},
	contact.LastPublicUpdateField: {"last_public_update", "NULLIF(%s, '')::timestamptz"},
}

type PgContactRepository struct{}

func NewContactRepository() contact.Repository {
	return &PgContactRepository{}
}

func (r *PgContactRepository) FindBySystemIDs(ctx context.Context, hashesBySystemID map[string]string) ([]contact.Match, error) {
	if len(hashesBySystemID) == 0 {
		return nil, nil
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	systemIDs := make([]string, 0, len(hashesBySystemID))
	for id := range hashesBySystemID {
		systemIDs = append(systemIDs, id)
	}

	rows, err := tx.Query(ctx, contactsBySystemIDsQuery, systemIDs)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to look up contacts by system id")
	}
	defer rows.Close()

	matches := make([]contact.Match, 0, len(systemIDs))
	for rows.Next() {
		var m models.Contact
		if err := rows.Scan(
			&m.ID,
			&m.SystemID,
			&m.VoterIDHash,
			&m.RedactedVoterID,
			&m.FullName,
			&m.FirstName,
			&m.MiddleName,
			&m.LastName,
			&m.DateOfBirth,
			&m.AddressLine1,
			&m.City,
			&m.State,
			&m.Zip,
			&m.Party,
			&m.VoterStatus,
			&m.RegistrationDate,
			&m.Precinct,
			&m.CongressionalDist,
			&m.StateHouseDist,
			&m.StateSenateDist,
			&m.SchoolBoardDist,
			&m.SupporterStatus,
			&m.VolunteerLikelihood,
			&m.Notes,
			&m.LastPublicUpdate,
			&m.LastUpdatedBy,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, gerrors.Wrap(err, "failed to scan contact")
		}
		matches = append(matches, contact.Match{
			Contact:   toDomainContact(m),
			Confirmed: hashesBySystemID[m.SystemID] == m.VoterIDHash,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *PgContactRepository) BulkCreate(ctx context.Context, contacts []contact.Contact) ([]int64, error) {
	if len(contacts) == 0 {
		return nil, nil
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO contacts (")
	sb.WriteString(contactInsertColumns)
	sb.WriteString(") VALUES ")

	args := make([]any, 0, len(contacts)*contactInsertParamCount)
	for i, c := range contacts {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j := 0; j < contactInsertParamCount; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", i*contactInsertParamCount+j+1)
		}
		sb.WriteString(")")

		name := c.Name()
		addr := c.Address()
		reg := c.Registration()
		dist := c.Districts()
		eng := c.Engagement()
		args = append(args,
			c.SystemID(),
			c.VoterIDHash(),
			c.RedactedVoterID(),
			name.Full,
			name.First,
			name.Middle,
			name.Last,
			reg.DateOfBirth,
			addr.Line1,
			addr.City,
			addr.State,
			addr.Zip,
			reg.Party,
			reg.Status,
			reg.RegisteredOn,
			dist.Precinct,
			dist.Congressional,
			dist.StateHouse,
			dist.StateSenate,
			dist.SchoolBoard,
			string(eng.SupporterStatus),
			string(eng.VolunteerLikelihood),
			eng.Notes,
			c.LastUpdatedBy(),
		)
	}
	sb.WriteString(" RETURNING id")

	rows, err := tx.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to bulk insert contacts")
	}
	defer rows.Close()

	ids := make([]int64, 0, len(contacts))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, gerrors.Wrap(err, "failed to scan inserted contact id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) != len(contacts) {
		return nil, gerrors.Errorf("bulk insert returned %d ids for %d contacts", len(ids), len(contacts))
	}
	return ids, nil
}

func (r *PgContactRepository) BulkCreatePhones(ctx context.Context, phones []contact.Phone) error {
	if len(phones) == 0 {
		return nil
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString(contactPhoneInsertQuery)
	args := make([]any, 0, len(phones)*3)
	for i, p := range phones {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, " ($%d, $%d, $%d)", i*3+1, i*3+2, i*3+3)
		args = append(args, p.ContactID, p.Number, p.Kind)
	}

	if _, err := tx.Exec(ctx, sb.String(), args...); err != nil {
		return gerrors.Wrap(err, "failed to bulk insert contact phones")
	}
	return nil
}

func (r *PgContactRepository) BulkCreateAliases(ctx context.Context, aliases []contact.Alias) error {
	if len(aliases) == 0 {
		return nil
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString(contactAliasInsertQuery)
	args := make([]any, 0, len(aliases)*2)
	for i, a := range aliases {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, " ($%d, $%d)", i*2+1, i*2+2)
		args = append(args, a.ContactID, a.Nickname)
	}

	if _, err := tx.Exec(ctx, sb.String(), args...); err != nil {
		return gerrors.Wrap(err, "failed to bulk insert contact aliases")
	}
	return nil
}

func (r *PgContactRepository) UpdateFields(ctx context.Context, id int64, fields map[contact.Field]string, updatedBy string) error {
	if len(fields) == 0 {
		return nil
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	setParts := make([]string, 0, len(fields)+2)
	args := make([]any, 0, len(fields)+2)
	for _, f := range contact.SystemUpdatableFields() {
		value, ok := fields[f]
		if !ok {
			continue
		}
		col := fieldColumns[f]
		args = append(args, value)
		placeholder := fmt.Sprintf("$%d", len(args))
		setParts = append(setParts, fmt.Sprintf("%s = %s", col.column, fmt.Sprintf(col.expr, placeholder)))
	}
	if len(setParts) != len(fields) {
		return gerrors.Errorf("update contains %d fields outside the system-updatable set", len(fields)-len(setParts))
	}

	args = append(args, updatedBy)
	setParts = append(setParts, fmt.Sprintf("last_updated_by = $%d", len(args)))
	setParts = append(setParts, "updated_at = NOW()")

	args = append(args, id)
	query := fmt.Sprintf("UPDATE contacts SET %s WHERE id = $%d", strings.Join(setParts, ", "), len(args))

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return gerrors.Wrap(err, "failed to update contact fields")
	}
	if tag.RowsAffected() == 0 {
		return contact.ErrNotFound
	}
	return nil
}

func (r *PgContactRepository) DeleteByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, contactPhonesDeleteQuery, ids); err != nil {
		return gerrors.Wrap(err, "failed to delete contact phones")
	}
	if _, err := tx.Exec(ctx, contactAliasesDeleteQuery, ids); err != nil {
		return gerrors.Wrap(err, "failed to delete contact aliases")
	}
	if _, err := tx.Exec(ctx, contactsDeleteQuery, ids); err != nil {
		return gerrors.Wrap(err, "failed to delete contacts")
	}
	return nil
}

func (r *PgContactRepository) Count(ctx context.Context) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := tx.QueryRow(ctx, contactCountQuery).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
