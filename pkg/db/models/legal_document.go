package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
)

type LegalDocument struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title          string              `gorm:"column:title;not null"`
	Description    *string             `gorm:"column:description"`
	FileURL        string              `gorm:"column:file_url;not null"`
	TargetAudience enums.LegalAudience `gorm:"column:target_audience;type:legal_audience;not null"`
	IsActive       bool                `gorm:"column:is_active;not null"`
	UploadedBy     *uuid.UUID          `gorm:"column:uploaded_by;type:uuid"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
