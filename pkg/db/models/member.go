package models

import (
	"time"

	"github.com/google/uuid"
)

// Member mirrors a Memberstack member the first time they call the API.
type Member struct {
	ID                     uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MemberstackID          string     `gorm:"column:memberstack_id;not null;uniqueIndex"`
	Email                  string     `gorm:"column:email;not null"`
	FirstName              string     `gorm:"column:first_name;not null;default:''"`
	LastName               string     `gorm:"column:last_name;not null;default:''"`
	Phone                  *string    `gorm:"column:phone"`
	ReferredByAmbassadorID *uuid.UUID `gorm:"column:referred_by_ambassador_id;type:uuid"`
	CreatedAt              time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// DisplayName joins first and last name.
func (m Member) DisplayName() string {
	switch {
	case m.FirstName == "":
		return m.LastName
	case m.LastName == "":
		return m.FirstName
	}
	return m.FirstName + " " + m.LastName
}
