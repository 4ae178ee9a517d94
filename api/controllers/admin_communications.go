package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/clubpataamiga/pataamiga-backend/api/responses"
	"github.com/clubpataamiga/pataamiga-backend/api/validators"
	"github.com/clubpataamiga/pataamiga-backend/internal/communications"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
)

type templateRequest struct {
	Name     string  `json:"name" validate:"required,notblank,max=120"`
	Channel  string  `json:"channel" validate:"required,oneof=email whatsapp"`
	Subject  string  `json:"subject" validate:"max=200"`
	Body     string  `json:"body" validate:"required,notblank"`
	Trigger  *string `json:"trigger"`
	IsActive *bool   `json:"is_active"`
}

type templatePatchRequest struct {
	Name         *string `json:"name" validate:"omitempty,notblank,max=120"`
	Subject      *string `json:"subject" validate:"omitempty,max=200"`
	Body         *string `json:"body" validate:"omitempty,notblank"`
	Trigger      *string `json:"trigger"`
	ClearTrigger bool    `json:"clear_trigger"`
	IsActive     *bool   `json:"is_active"`
}

type recipientRequest struct {
	MemberID  *uuid.UUID        `json:"member_id"`
	Name      string            `json:"name" validate:"max=200"`
	Email     string            `json:"email" validate:"omitempty,email"`
	Phone     string            `json:"phone" validate:"max=32"`
	Variables map[string]string `json:"variables"`
}

type sendRequest struct {
	TemplateID *uuid.UUID         `json:"template_id"`
	Channel    string             `json:"channel" validate:"omitempty,oneof=email whatsapp"`
	Subject    string             `json:"subject" validate:"max=200"`
	Body       string             `json:"body"`
	Recipients []recipientRequest `json:"recipients" validate:"required,min=1,dive"`
	Variables  map[string]string  `json:"variables"`
}

func parseTrigger(raw *string) (*enums.CommTrigger, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	trigger, err := enums.ParseCommTrigger(strings.TrimSpace(*raw))
	if err != nil {
		return nil, invalidField("trigger", "unknown trigger", err)
	}
	return &trigger, nil
}

func AdminListTemplates(svc communications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := communications.TemplateListParams{
			ActiveOnly: r.URL.Query().Get("active") == "true",
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("channel")); raw != "" {
			channel, err := enums.ParseCommChannel(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, invalidField("channel", "oneof=email whatsapp", err))
				return
			}
			params.Channel = channel
		}
		list, err := svc.ListTemplates(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func AdminCreateTemplate(svc communications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, err := currentAdmin(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body templateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		trigger, err := parseTrigger(body.Trigger)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		template, err := svc.CreateTemplate(r.Context(), adminID, communications.TemplateInput{
			Name:     body.Name,
			Channel:  enums.CommChannel(body.Channel),
			Subject:  body.Subject,
			Body:     body.Body,
			Trigger:  trigger,
			IsActive: body.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, template)
	}
}

func AdminUpdateTemplate(svc communications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateID, err := parseUUIDParam(r, "templateId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body templatePatchRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		trigger, err := parseTrigger(body.Trigger)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		template, err := svc.UpdateTemplate(r.Context(), templateID, communications.TemplatePatch{
			Name:         body.Name,
			Subject:      body.Subject,
			Body:         body.Body,
			Trigger:      trigger,
			ClearTrigger: body.ClearTrigger,
			IsActive:     body.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, template)
	}
}

func AdminDeleteTemplate(svc communications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateID, err := parseUUIDParam(r, "templateId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteTemplate(r.Context(), templateID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// AdminSendCommunication sends a template or an ad-hoc message to a list
// of recipients. Every attempt is logged, failed ones included.
func AdminSendCommunication(svc communications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, err := currentAdmin(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body sendRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recipients := make([]communications.Recipient, 0, len(body.Recipients))
		for _, rcpt := range body.Recipients {
			recipients = append(recipients, communications.Recipient{
				MemberID:  rcpt.MemberID,
				Name:      rcpt.Name,
				Email:     rcpt.Email,
				Phone:     rcpt.Phone,
				Variables: rcpt.Variables,
			})
		}
		result, err := svc.Send(r.Context(), "admin:"+adminID.String(), communications.SendInput{
			TemplateID: body.TemplateID,
			Channel:    enums.CommChannel(body.Channel),
			Subject:    body.Subject,
			Body:       body.Body,
			Recipients: recipients,
			Variables:  body.Variables,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminListCommunicationLogs(svc communications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, cursor, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := communications.LogListParams{Limit: limit, Cursor: cursor}
		if params.MemberID, err = parseUUIDQuery(r, "memberId"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query := r.URL.Query()
		if raw := strings.TrimSpace(query.Get("channel")); raw != "" {
			channel, err := enums.ParseCommChannel(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, invalidField("channel", "oneof=email whatsapp", err))
				return
			}
			params.Channel = channel
		}
		if raw := strings.TrimSpace(query.Get("status")); raw != "" {
			status, err := enums.ParseCommLogStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, invalidField("status", "oneof=sent failed", err))
				return
			}
			params.Status = status
		}
		page, err := svc.ListLogs(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
