package pets

import (
	"time"

	"github.com/google/uuid"

	"github.com/clubpataamiga/pataamiga-backend/internal/uploads"
	"github.com/clubpataamiga/pataamiga-backend/internal/waitingperiod"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
)

// PetDTO exposes a pet in member and admin responses.
type PetDTO struct {
	ID                  uuid.UUID             `json:"id"`
	MemberID            uuid.UUID             `json:"member_id"`
	Name                string                `json:"name"`
	Species             enums.PetSpecies      `json:"species"`
	Breed               string                `json:"breed"`
	BreedSize           enums.BreedSize       `json:"breed_size"`
	BirthDate           *time.Time            `json:"birth_date,omitempty"`
	RUAC                *string               `json:"ruac,omitempty"`
	Status              enums.PetStatus       `json:"status"`
	AdminNotes          *string               `json:"admin_notes,omitempty"`
	PhotoURL            *string               `json:"photo_url,omitempty"`
	Photo2URL           *string               `json:"photo2_url,omitempty"`
	VetCertificateURL   *string               `json:"vet_certificate_url,omitempty"`
	AppealMessage       *string               `json:"appeal_message,omitempty"`
	AppealCount         int                   `json:"appeal_count"`
	CanAppeal           bool                  `json:"can_appeal"`
	AppealedAt          *time.Time            `json:"appealed_at,omitempty"`
	LastAdminResponse   *string               `json:"last_admin_response,omitempty"`
	LastAdminResponseAt *time.Time            `json:"last_admin_response_at,omitempty"`
	ReviewedBy          *uuid.UUID            `json:"reviewed_by,omitempty"`
	ReviewedAt          *time.Time            `json:"reviewed_at,omitempty"`
	WaitingPeriod       *waitingperiod.Result `json:"waiting_period,omitempty"`
	CreatedAt           time.Time             `json:"created_at"`
	UpdatedAt           time.Time             `json:"updated_at"`
}

// AppealLogDTO is one entry of a pet's review thread.
type AppealLogDTO struct {
	ID         uuid.UUID              `json:"id"`
	AuthorType enums.AppealAuthorType `json:"author_type"`
	AuthorID   *uuid.UUID             `json:"author_id,omitempty"`
	Message    string                 `json:"message"`
	CreatedAt  time.Time              `json:"created_at"`
}

// RegisterInput carries a new pet submitted by its owner.
type RegisterInput struct {
	Name           string
	Species        enums.PetSpecies
	Breed          string
	BreedSize      enums.BreedSize
	BirthDate      *time.Time
	RUAC           string
	Photo          *uploads.File
	Photo2         *uploads.File
	VetCertificate *uploads.File
}

// AppealInput is the owner's appeal of a rejection.
type AppealInput struct {
	Message string
	Photo   *uploads.File
	Photo2  *uploads.File
}

// UpdateInput is the owner's answer to an action_required review.
type UpdateInput struct {
	Message        string
	Photo          *uploads.File
	Photo2         *uploads.File
	VetCertificate *uploads.File
}

// DecisionInput is an admin review decision.
type DecisionInput struct {
	PetID   uuid.UUID
	AdminID uuid.UUID
	Status  enums.PetStatus
	Notes   string
}

// AdminListParams filters the admin pet queue.
type AdminListParams struct {
	Status   enums.PetStatus
	MemberID uuid.UUID
	Search   string
	Limit    int
	Cursor   string
}

func fromModel(p *models.Pet, maxAppeals int) *PetDTO {
	if p == nil {
		return nil
	}
	return &PetDTO{
		ID:                  p.ID,
		MemberID:            p.MemberID,
		Name:                p.Name,
		Species:             p.Species,
		Breed:               p.Breed,
		BreedSize:           p.BreedSize,
		BirthDate:           p.BirthDate,
		RUAC:                p.RUAC,
		Status:              p.Status,
		AdminNotes:          p.AdminNotes,
		PhotoURL:            p.PhotoURL,
		Photo2URL:           p.Photo2URL,
		VetCertificateURL:   p.VetCertificateURL,
		AppealMessage:       p.AppealMessage,
		AppealCount:         p.AppealCount,
		CanAppeal:           p.Status == enums.PetStatusRejected && p.AppealCount < maxAppeals,
		AppealedAt:          p.AppealedAt,
		LastAdminResponse:   p.LastAdminResponse,
		LastAdminResponseAt: p.LastAdminResponseAt,
		ReviewedBy:          p.ReviewedBy,
		ReviewedAt:          p.ReviewedAt,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

func logsFromModels(rows []models.PetAppealLog) []AppealLogDTO {
	out := make([]AppealLogDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, AppealLogDTO{
			ID:         row.ID,
			AuthorType: row.AuthorType,
			AuthorID:   row.AuthorID,
			Message:    row.Message,
			CreatedAt:  row.CreatedAt,
		})
	}
	return out
}
