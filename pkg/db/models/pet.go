package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
)

// Pet is a member's pet going through membership review.
type Pet struct {
	ID                  uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MemberID            uuid.UUID        `gorm:"column:member_id;type:uuid;not null"`
	Name                string           `gorm:"column:name;not null"`
	Species             enums.PetSpecies `gorm:"column:species;type:pet_species;not null"`
	Breed               string           `gorm:"column:breed;not null"`
	BreedSize           enums.BreedSize  `gorm:"column:breed_size;type:breed_size;not null"`
	BirthDate           *time.Time       `gorm:"column:birth_date;type:date"`
	RUAC                *string          `gorm:"column:ruac"`
	Status              enums.PetStatus  `gorm:"column:status;type:pet_status;not null;default:'pending'"`
	AdminNotes          *string          `gorm:"column:admin_notes"`
	PhotoURL            *string          `gorm:"column:photo_url"`
	Photo2URL           *string          `gorm:"column:photo2_url"`
	VetCertificateURL   *string          `gorm:"column:vet_certificate_url"`
	AppealMessage       *string          `gorm:"column:appeal_message"`
	AppealCount         int              `gorm:"column:appeal_count;not null;default:0"`
	AppealedAt          *time.Time       `gorm:"column:appealed_at"`
	LastAdminResponse   *string          `gorm:"column:last_admin_response"`
	LastAdminResponseAt *time.Time       `gorm:"column:last_admin_response_at"`
	ReviewedBy          *uuid.UUID       `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt          *time.Time       `gorm:"column:reviewed_at"`
	CreatedAt           time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// HasRegistryID reports whether the pet carries a national registry id.
func (p Pet) HasRegistryID() bool {
	return p.RUAC != nil && *p.RUAC != ""
}

// PetAppealLog is one entry of a pet's review thread.
type PetAppealLog struct {
	ID         uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PetID      uuid.UUID              `gorm:"column:pet_id;type:uuid;not null"`
	AuthorType enums.AppealAuthorType `gorm:"column:author_type;type:appeal_author_type;not null"`
	AuthorID   *uuid.UUID             `gorm:"column:author_id;type:uuid"`
	Message    string                 `gorm:"column:message;not null"`
	// Seq is assigned by the database and orders entries written in the
	// same instant.
	Seq       int64     `gorm:"column:seq;->"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (PetAppealLog) TableName() string { return "pet_appeal_logs" }
