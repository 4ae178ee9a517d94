package communications

import (
	"time"

	"github.com/google/uuid"

	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
)

// TemplateDTO exposes a communication template.
type TemplateDTO struct {
	ID        uuid.UUID          `json:"id"`
	Name      string             `json:"name"`
	Channel   enums.CommChannel  `json:"channel"`
	Subject   *string            `json:"subject,omitempty"`
	Body      string             `json:"body"`
	Trigger   *enums.CommTrigger `json:"trigger,omitempty"`
	IsActive  bool               `json:"is_active"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// LogDTO exposes a send attempt.
type LogDTO struct {
	ID           uuid.UUID           `json:"id"`
	TemplateID   *uuid.UUID          `json:"template_id,omitempty"`
	MemberID     *uuid.UUID          `json:"member_id,omitempty"`
	Channel      enums.CommChannel   `json:"channel"`
	Recipient    string              `json:"recipient"`
	Subject      *string             `json:"subject,omitempty"`
	Content      string              `json:"content"`
	Status       enums.CommLogStatus `json:"status"`
	ErrorMessage *string             `json:"error_message,omitempty"`
	Actor        string              `json:"actor"`
	CreatedAt    time.Time           `json:"created_at"`
}

// TemplateInput creates a template.
type TemplateInput struct {
	Name     string
	Channel  enums.CommChannel
	Subject  string
	Body     string
	Trigger  *enums.CommTrigger
	IsActive *bool
}

// TemplatePatch updates a template. Nil fields are left untouched;
// ClearTrigger removes the automatic trigger.
type TemplatePatch struct {
	Name         *string
	Subject      *string
	Body         *string
	Trigger      *enums.CommTrigger
	ClearTrigger bool
	IsActive     *bool
}

// TemplateListParams filters the template listing.
type TemplateListParams struct {
	Channel    enums.CommChannel
	ActiveOnly bool
}

// Recipient is one addressee of a send. Email is used for the email
// channel, Phone for WhatsApp.
type Recipient struct {
	MemberID  *uuid.UUID
	Name      string
	Email     string
	Phone     string
	Variables map[string]string
}

// SendInput is an admin send: either a template or an ad-hoc message.
type SendInput struct {
	TemplateID *uuid.UUID
	Channel    enums.CommChannel
	Subject    string
	Body       string
	Recipients []Recipient
	Variables  map[string]string
}

// SendResult summarizes a send.
type SendResult struct {
	Sent   int      `json:"sent"`
	Failed int      `json:"failed"`
	Logs   []LogDTO `json:"logs"`
}

// LogListParams configures the log listing.
type LogListParams struct {
	MemberID uuid.UUID
	Channel  enums.CommChannel
	Status   enums.CommLogStatus
	Limit    int
	Cursor   string
}

func templateFromModel(m *models.CommTemplate) TemplateDTO {
	return TemplateDTO{
		ID:        m.ID,
		Name:      m.Name,
		Channel:   m.Channel,
		Subject:   m.Subject,
		Body:      m.Body,
		Trigger:   m.Trigger,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func logFromModel(m *models.CommLog) LogDTO {
	return LogDTO{
		ID:           m.ID,
		TemplateID:   m.TemplateID,
		MemberID:     m.MemberID,
		Channel:      m.Channel,
		Recipient:    m.Recipient,
		Subject:      m.Subject,
		Content:      m.Content,
		Status:       m.Status,
		ErrorMessage: m.ErrorMessage,
		Actor:        m.Actor,
		CreatedAt:    m.CreatedAt,
	}
}
