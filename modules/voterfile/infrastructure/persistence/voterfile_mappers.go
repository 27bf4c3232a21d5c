package persistence

import (
	"encoding/json"

	"github.com/hwyzisk/annaverse-voter-vault-sub000/modules/voterfile/domain/aggregates/contact"
	"github.com/hwyzisk/annaverse-voter-vault-sub000/modules/voterfile/domain/entities/importrun"
	"github.com/hwyzisk/annaverse-voter-vault-sub000/modules/voterfile/domain/entities/rollback"
	"github.com/hwyzisk/annaverse-voter-vault-sub000/modules/voterfile/infrastructure/persistence/models"
)

func toDomainContact(m models.Contact) contact.Contact {
	return contact.Hydrate(
		m.ID,
		m.SystemID,
		m.VoterIDHash,
		m.RedactedVoterID,
		contact.Name{
			Full:   m.FullName,
			First:  m.FirstName,
			Middle: m.MiddleName,
			Last:   m.LastName,
		},
		contact.Address{
			Line1: m.AddressLine1,
			City:  m.City,
			State: m.State,
			Zip:   m.Zip,
		},
		contact.Registration{
			Party:        m.Party,
			Status:       m.VoterStatus,
			RegisteredOn: m.RegistrationDate,
			DateOfBirth:  m.DateOfBirth,
		},
		contact.Districts{
			Precinct:      m.Precinct,
			Congressional: m.CongressionalDist,
			StateHouse:    m.StateHouseDist,
			StateSenate:   m.StateSenateDist,
			SchoolBoard:   m.SchoolBoardDist,
		},
		contact.Engagement{
			SupporterStatus:     contact.SupporterStatus(m.SupporterStatus),
			VolunteerLikelihood: contact.Likelihood(m.VolunteerLikelihood),
			Notes:               m.Notes,
		},
		m.LastPublicUpdate,
		m.LastUpdatedBy,
		m.CreatedAt,
		m.UpdatedAt,
	)
}

func toDomainRollbackEntry(m models.RollbackEntry) (rollback.Entry, error) {
	entry := rollback.Entry{
		ID:           m.ID,
		RollbackID:   m.RollbackID,
		Op:           rollback.Op(m.Op),
		ContactID:    m.ContactID,
		PreUpdatedBy: m.PreUpdatedBy,
		CreatedAt:    m.CreatedAt,
	}
	if len(m.PreImage) > 0 {
		if err := json.Unmarshal(m.PreImage, &entry.PreImage); err != nil {
			return rollback.Entry{}, err
		}
	}
	return entry, nil
}

func toDBRollbackEntry(e rollback.Entry) (models.RollbackEntry, error) {
	m := models.RollbackEntry{
		ID:           e.ID,
		RollbackID:   e.RollbackID,
		Op:           string(e.Op),
		ContactID:    e.ContactID,
		PreUpdatedBy: e.PreUpdatedBy,
		CreatedAt:    e.CreatedAt,
	}
	if len(e.PreImage) > 0 {
		data, err := json.Marshal(e.PreImage)
		if err != nil {
			return models.RollbackEntry{}, err
		}
		m.PreImage = data
	}
	return m, nil
}

func toDomainImportRun(m models.ImportRun) importrun.Run {
	return importrun.Run{
		ID:                m.ID,
		RollbackID:        m.RollbackID,
		FileName:          m.FileName,
		DryRun:            m.DryRun,
		BatchSize:         m.BatchSize,
		OverwriteUserData: m.OverwriteUserData,
		Phase:             importrun.Phase(m.Phase),
		TotalRows:         m.TotalRows,
		Processed:         m.Processed,
		Created:           m.Created,
		Updated:           m.Updated,
		Skipped:           m.Skipped,
		Duplicates:        m.Duplicates,
		Errored:           m.Errored,
		ErrorMessage:      m.ErrorMessage,
		StartedAt:         m.StartedAt,
		FinishedAt:        m.FinishedAt,
	}
}
