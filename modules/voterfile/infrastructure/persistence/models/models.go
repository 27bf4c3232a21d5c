package models

import (
	"time"

	"github.com/google/uuid"
)

type Contact struct {
	ID                  int64
	SystemID            string
	VoterIDHash         string
	RedactedVoterID     string
	FullName            string
	FirstName           string
	MiddleName          string
	LastName            string
	DateOfBirth         *time.Time
	AddressLine1        string
	City                string
	State               string
	Zip                 string
	Party               string
	VoterStatus         string
	RegistrationDate    *time.Time
	Precinct            string
	CongressionalDist   string
	StateHouseDist      string
	StateSenateDist     string
	SchoolBoardDist     string
	SupporterStatus     string
	VolunteerLikelihood string
	Notes               string
	LastPublicUpdate    *time.Time
	LastUpdatedBy       string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type ContactPhone struct {
	ID        int64
	ContactID int64
	Number    string
	Kind      string
	CreatedAt time.Time
}

type ContactAlias struct {
	ID        int64
	ContactID int64
	Nickname  string
	CreatedAt time.Time
}

type RollbackEntry struct {
	ID           int64
	RollbackID   uuid.UUID
	Op           string
	ContactID    int64
	PreImage     []byte
	PreUpdatedBy string
	CreatedAt    time.Time
}

type ImportRun struct {
	ID                uuid.UUID
	RollbackID        *uuid.UUID
	FileName          string
	DryRun            bool
	BatchSize         int
	OverwriteUserData bool
	Phase             string
	TotalRows         int
	Processed         int
	Created           int
	Updated           int
	Skipped           int
	Duplicates        int
	Errored           int
	ErrorMessage      string
	StartedAt         time.Time
	FinishedAt        *time.Time
}
