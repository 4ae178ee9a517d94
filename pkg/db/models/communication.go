package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
)

// CommTemplate is a reusable message with {{placeholder}} variables.
type CommTemplate struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string             `gorm:"column:name;not null"`
	Channel   enums.CommChannel  `gorm:"column:channel;type:comm_channel;not null"`
	Subject   *string            `gorm:"column:subject"`
	Body      string             `gorm:"column:body;not null"`
	Trigger   *enums.CommTrigger `gorm:"column:trigger;type:comm_trigger"`
	IsActive  bool               `gorm:"column:is_active;not null"`
	CreatedBy *uuid.UUID         `gorm:"column:created_by;type:uuid"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// CommLog is the immutable record of a single send attempt.
type CommLog struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TemplateID   *uuid.UUID          `gorm:"column:template_id;type:uuid"`
	MemberID     *uuid.UUID          `gorm:"column:member_id;type:uuid"`
	Channel      enums.CommChannel   `gorm:"column:channel;type:comm_channel;not null"`
	Recipient    string              `gorm:"column:recipient;not null"`
	Subject      *string             `gorm:"column:subject"`
	Content      string              `gorm:"column:content;not null"`
	Status       enums.CommLogStatus `gorm:"column:status;type:comm_log_status;not null"`
	ErrorMessage *string             `gorm:"column:error_message"`
	ProviderID   *string             `gorm:"column:provider_id"`
	Actor        string              `gorm:"column:actor;not null"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
}
