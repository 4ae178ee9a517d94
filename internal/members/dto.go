package members

import (
	"time"

	"github.com/google/uuid"

	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
)

// MemberDTO exposes the member mirror in API responses.
type MemberDTO struct {
	ID                     uuid.UUID  `json:"id"`
	MemberstackID          string     `json:"memberstack_id"`
	Email                  string     `json:"email"`
	FirstName              string     `json:"first_name"`
	LastName               string     `json:"last_name"`
	Phone                  *string    `json:"phone,omitempty"`
	ReferredByAmbassadorID *uuid.UUID `json:"referred_by_ambassador_id,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
}

// FromModel maps the persisted member into a DTO.
func FromModel(m *models.Member) *MemberDTO {
	if m == nil {
		return nil
	}
	return &MemberDTO{
		ID:                     m.ID,
		MemberstackID:          m.MemberstackID,
		Email:                  m.Email,
		FirstName:              m.FirstName,
		LastName:               m.LastName,
		Phone:                  m.Phone,
		ReferredByAmbassadorID: m.ReferredByAmbassadorID,
		CreatedAt:              m.CreatedAt,
	}
}

// FromModels maps a slice of members.
func FromModels(rows []models.Member) []MemberDTO {
	out := make([]MemberDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
