// Package communications manages message templates and sends email and
// WhatsApp messages, recording every attempt in an immutable log.
package communications

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clubpataamiga/pataamiga-backend/pkg/db"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
	"github.com/clubpataamiga/pataamiga-backend/pkg/pagination"
	"github.com/clubpataamiga/pataamiga-backend/pkg/sendgrid"
)

const (
	// ActorSystem marks sends made by the worker.
	ActorSystem = "system"

	maxRecipients  = 500
	maxTemplateLen = 20000
)

type emailSender interface {
	Send(ctx context.Context, msg sendgrid.Email) (string, error)
}

type whatsAppSender interface {
	SendText(ctx context.Context, to, body string) (string, error)
}

// Service defines template management and message delivery.
type Service interface {
	CreateTemplate(ctx context.Context, adminID uuid.UUID, input TemplateInput) (*TemplateDTO, error)
	ListTemplates(ctx context.Context, params TemplateListParams) ([]TemplateDTO, error)
	UpdateTemplate(ctx context.Context, templateID uuid.UUID, patch TemplatePatch) (*TemplateDTO, error)
	DeleteTemplate(ctx context.Context, templateID uuid.UUID) error

	Send(ctx context.Context, actor string, input SendInput) (*SendResult, error)
	SendTriggered(ctx context.Context, trigger enums.CommTrigger, recipient Recipient) (*SendResult, error)
	ListLogs(ctx context.Context, params LogListParams) (*pagination.Page[LogDTO], error)
}

type service struct {
	repo     Repository
	email    emailSender
	whatsapp whatsAppSender
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the communications dependencies. Either sender may be nil
// when its channel is not configured; sends on that channel are logged as
// failed.
func NewService(repo Repository, email emailSender, whatsapp whatsAppSender, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "communications repository required")
	}
	return &service{
		repo:     repo,
		email:    email,
		whatsapp: whatsapp,
		logg:     logg,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) CreateTemplate(ctx context.Context, adminID uuid.UUID, input TemplateInput) (*TemplateDTO, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Subject = strings.TrimSpace(input.Subject)
	details := map[string]string{}
	if input.Name == "" {
		details["name"] = "required"
	}
	if !input.Channel.IsValid() {
		details["channel"] = "oneof=email whatsapp"
	}
	if strings.TrimSpace(input.Body) == "" {
		details["body"] = "required"
	} else if len(input.Body) > maxTemplateLen {
		details["body"] = "max=20000"
	}
	if input.Channel == enums.CommChannelEmail && input.Subject == "" {
		details["subject"] = "required for email"
	}
	if input.Trigger != nil && !input.Trigger.IsValid() {
		details["trigger"] = "invalid"
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid template").WithDetails(details)
	}

	template := &models.CommTemplate{
		Name:     input.Name,
		Channel:  input.Channel,
		Body:     input.Body,
		Trigger:  input.Trigger,
		IsActive: input.IsActive == nil || *input.IsActive,
	}
	if input.Subject != "" {
		template.Subject = &input.Subject
	}
	if adminID != uuid.Nil {
		template.CreatedBy = &adminID
	}
	if err := s.repo.CreateTemplate(ctx, template); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create template")
	}
	out := templateFromModel(template)
	return &out, nil
}

func (s *service) ListTemplates(ctx context.Context, params TemplateListParams) ([]TemplateDTO, error) {
	if params.Channel != "" && !params.Channel.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid channel filter")
	}
	rows, err := s.repo.ListTemplates(ctx, listTemplatesParams{Channel: params.Channel, ActiveOnly: params.ActiveOnly})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list templates")
	}
	out := make([]TemplateDTO, 0, len(rows))
	for i := range rows {
		out = append(out, templateFromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) UpdateTemplate(ctx context.Context, templateID uuid.UUID, patch TemplatePatch) (*TemplateDTO, error) {
	current, err := s.loadTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{"updated_at": s.now()}
	details := map[string]string{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			details["name"] = "required"
		}
		updates["name"] = name
	}
	if patch.Body != nil {
		if strings.TrimSpace(*patch.Body) == "" {
			details["body"] = "required"
		} else if len(*patch.Body) > maxTemplateLen {
			details["body"] = "max=20000"
		}
		updates["body"] = *patch.Body
	}
	if patch.Subject != nil {
		subject := strings.TrimSpace(*patch.Subject)
		if subject == "" && current.Channel == enums.CommChannelEmail {
			details["subject"] = "required for email"
		}
		updates["subject"] = subject
	}
	switch {
	case patch.ClearTrigger:
		updates["trigger"] = nil
	case patch.Trigger != nil:
		if !patch.Trigger.IsValid() {
			details["trigger"] = "invalid"
		}
		updates["trigger"] = *patch.Trigger
	}
	if patch.IsActive != nil {
		updates["is_active"] = *patch.IsActive
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid template").WithDetails(details)
	}

	if err := s.repo.UpdateTemplate(ctx, current.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update template")
	}
	updated, err := s.loadTemplate(ctx, current.ID)
	if err != nil {
		return nil, err
	}
	out := templateFromModel(updated)
	return &out, nil
}

func (s *service) DeleteTemplate(ctx context.Context, templateID uuid.UUID) error {
	if templateID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "template id required")
	}
	if err := s.repo.DeleteTemplate(ctx, templateID); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "template not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete template")
	}
	return nil
}

// Send delivers one message per recipient. Delivery failures are recorded
// in the log and counted; only a failure to write the log is an error.
func (s *service) Send(ctx context.Context, actor string, input SendInput) (*SendResult, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sender identity missing")
	}
	if len(input.Recipients) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one recipient is required").
			WithDetails(map[string]string{"recipients": "required"})
	}
	if len(input.Recipients) > maxRecipients {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many recipients").
			WithDetails(map[string]string{"recipients": "max=500"})
	}

	var template *models.CommTemplate
	if input.TemplateID != nil {
		loaded, err := s.loadTemplate(ctx, *input.TemplateID)
		if err != nil {
			return nil, err
		}
		if !loaded.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "template is inactive")
		}
		template = loaded
	} else {
		if !input.Channel.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "channel is required without a template").
				WithDetails(map[string]string{"channel": "oneof=email whatsapp"})
		}
		if strings.TrimSpace(input.Body) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "body is required without a template").
				WithDetails(map[string]string{"body": "required"})
		}
		template = &models.CommTemplate{Channel: input.Channel, Body: input.Body}
		if subject := strings.TrimSpace(input.Subject); subject != "" {
			template.Subject = &subject
		}
	}

	return s.deliver(ctx, actor, template, input.Recipients, input.Variables)
}

// SendTriggered sends every active template bound to trigger. No matching
// template is not an error.
func (s *service) SendTriggered(ctx context.Context, trigger enums.CommTrigger, recipient Recipient) (*SendResult, error) {
	if !trigger.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown trigger")
	}
	templates, err := s.repo.ActiveByTrigger(ctx, trigger)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load triggered templates")
	}
	result := &SendResult{Logs: []LogDTO{}}
	for i := range templates {
		partial, err := s.deliver(ctx, ActorSystem, &templates[i], []Recipient{recipient}, nil)
		if err != nil {
			return nil, err
		}
		result.Sent += partial.Sent
		result.Failed += partial.Failed
		result.Logs = append(result.Logs, partial.Logs...)
	}
	return result, nil
}

func (s *service) ListLogs(ctx context.Context, params LogListParams) (*pagination.Page[LogDTO], error) {
	if params.Channel != "" && !params.Channel.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid channel filter")
	}
	if params.Status != "" && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListLogs(ctx, listLogsParams{
		MemberID: params.MemberID,
		Channel:  params.Channel,
		Status:   params.Status,
		Limit:    pagination.LimitWithBuffer(params.Limit),
		Cursor:   cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list communication logs")
	}
	page := pagination.BuildPage(rows, params.Limit, func(l models.CommLog) pagination.Cursor {
		return pagination.Cursor{CreatedAt: l.CreatedAt, ID: l.ID}
	})
	items := make([]LogDTO, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, logFromModel(&page.Items[i]))
	}
	return &pagination.Page[LogDTO]{Items: items, NextCursor: page.NextCursor}, nil
}

func (s *service) deliver(ctx context.Context, actor string, template *models.CommTemplate, recipients []Recipient, shared map[string]string) (*SendResult, error) {
	result := &SendResult{Logs: make([]LogDTO, 0, len(recipients))}
	now := s.now()
	for _, recipient := range recipients {
		vars := mergeVars(now, recipient, shared)
		entry := &models.CommLog{
			MemberID: recipient.MemberID,
			Channel:  template.Channel,
			Content:  Render(template.Body, vars),
			Actor:    actor,
		}
		if template.ID != uuid.Nil {
			id := template.ID
			entry.TemplateID = &id
		}
		if template.Subject != nil {
			subject := Render(*template.Subject, vars)
			entry.Subject = &subject
		}

		providerID, err := s.dispatch(ctx, entry, recipient)
		if err != nil {
			msg := err.Error()
			entry.Status = enums.CommLogStatusFailed
			entry.ErrorMessage = &msg
			result.Failed++
			s.logFailure(ctx, entry, err)
		} else {
			entry.Status = enums.CommLogStatusSent
			if providerID != "" {
				entry.ProviderID = &providerID
			}
			result.Sent++
		}

		if err := s.repo.AppendLog(ctx, entry); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record communication log")
		}
		result.Logs = append(result.Logs, logFromModel(entry))
	}
	return result, nil
}

func (s *service) dispatch(ctx context.Context, entry *models.CommLog, recipient Recipient) (string, error) {
	switch entry.Channel {
	case enums.CommChannelEmail:
		entry.Recipient = strings.ToLower(strings.TrimSpace(recipient.Email))
		if entry.Recipient == "" {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "recipient has no email")
		}
		if s.email == nil {
			return "", pkgerrors.New(pkgerrors.CodeDependency, "email channel not configured")
		}
		subject := ""
		if entry.Subject != nil {
			subject = *entry.Subject
		}
		return s.email.Send(ctx, sendgrid.Email{To: entry.Recipient, Subject: subject, HTML: entry.Content})
	case enums.CommChannelWhatsApp:
		entry.Recipient = strings.TrimSpace(recipient.Phone)
		if entry.Recipient == "" {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "recipient has no phone")
		}
		if s.whatsapp == nil {
			return "", pkgerrors.New(pkgerrors.CodeDependency, "whatsapp channel not configured")
		}
		return s.whatsapp.SendText(ctx, entry.Recipient, entry.Content)
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, "unsupported channel")
}

func (s *service) logFailure(ctx context.Context, entry *models.CommLog, err error) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"channel":   entry.Channel.String(),
		"recipient": entry.Recipient,
		"actor":     entry.Actor,
	})
	s.logg.Warn(logCtx, "communication send failed: "+err.Error())
}

func (s *service) loadTemplate(ctx context.Context, id uuid.UUID) (*models.CommTemplate, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "template id required")
	}
	template, err := s.repo.FindTemplate(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "template not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load template")
	}
	return template, nil
}
