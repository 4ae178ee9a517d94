package communications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/clubpataamiga/pataamiga-backend/pkg/db/dbtest"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
	"github.com/clubpataamiga/pataamiga-backend/pkg/sendgrid"
)

type stubEmail struct {
	sent []sendgrid.Email
	err  error
}

func (s *stubEmail) Send(_ context.Context, msg sendgrid.Email) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, msg)
	return "sg-1", nil
}

type stubWhatsApp struct {
	to   []string
	body []string
}

func (s *stubWhatsApp) SendText(_ context.Context, to, body string) (string, error) {
	s.to = append(s.to, to)
	s.body = append(s.body, body)
	return "wamid.1", nil
}

func newTestService(t *testing.T, email emailSender, wa whatsAppSender) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), email, wa, nil)
	require.NoError(t, err)
	svc.(*service).now = func() time.Time { return time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC) }
	return svc, conn
}

func TestRender(t *testing.T) {
	vars := map[string]string{"name": "Ana", "pet_name": "Firulais"}
	assert.Equal(t, "Hola Ana, Firulais fue aprobado", Render("Hola {{name}}, {{ pet_name }} fue aprobado", vars))
	assert.Equal(t, "Hola Ana {{plan}}", Render("Hola {{name}} {{plan}}", vars))
	assert.Equal(t, "sin variables", Render("sin variables", nil))
}

func TestTemplateValidation(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	ctx := context.Background()

	_, err := svc.CreateTemplate(ctx, uuid.New(), TemplateInput{Name: "Bienvenida", Channel: enums.CommChannelEmail, Body: "Hola"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.CreateTemplate(ctx, uuid.New(), TemplateInput{Name: "x", Channel: "sms", Body: "Hola"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	bad := enums.CommTrigger("pet_deleted")
	_, err = svc.CreateTemplate(ctx, uuid.New(), TemplateInput{Name: "x", Channel: enums.CommChannelWhatsApp, Body: "Hola", Trigger: &bad})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestTemplateCrud(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	ctx := context.Background()
	inactive := false

	created, err := svc.CreateTemplate(ctx, uuid.Nil, TemplateInput{
		Name:     " Aviso ",
		Channel:  enums.CommChannelWhatsApp,
		Body:     "Hola {{name}}",
		IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "Aviso", created.Name)
	assert.False(t, created.IsActive)

	trigger := enums.CommTriggerPetApproved
	active := true
	body := "Hola {{name}}, {{pet_name}} ya está protegido"
	updated, err := svc.UpdateTemplate(ctx, created.ID, TemplatePatch{Body: &body, Trigger: &trigger, IsActive: &active})
	require.NoError(t, err)
	assert.Equal(t, body, updated.Body)
	require.NotNil(t, updated.Trigger)
	assert.Equal(t, trigger, *updated.Trigger)
	assert.True(t, updated.IsActive)

	cleared, err := svc.UpdateTemplate(ctx, created.ID, TemplatePatch{ClearTrigger: true})
	require.NoError(t, err)
	assert.Nil(t, cleared.Trigger)

	list, err := svc.ListTemplates(ctx, TemplateListParams{Channel: enums.CommChannelWhatsApp, ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.DeleteTemplate(ctx, created.ID))
	err = svc.DeleteTemplate(ctx, created.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestSendRendersAndLogsEveryRecipient(t *testing.T) {
	email := &stubEmail{}
	svc, conn := newTestService(t, email, nil)
	ctx := context.Background()

	tmpl, err := svc.CreateTemplate(ctx, uuid.New(), TemplateInput{
		Name:    "Recordatorio",
		Channel: enums.CommChannelEmail,
		Subject: "Hola {{name}}",
		Body:    "{{name}}, tu plan {{plan}} vence el {{date}}. {{unknown}}",
	})
	require.NoError(t, err)

	memberID := uuid.New()
	result, err := svc.Send(ctx, "admin:"+uuid.NewString(), SendInput{
		TemplateID: &tmpl.ID,
		Variables:  map[string]string{"plan": "Básico"},
		Recipients: []Recipient{
			{MemberID: &memberID, Name: "Ana", Email: " ANA@example.com "},
			{Name: "Sin correo"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, 1, result.Failed)

	require.Len(t, email.sent, 1)
	assert.Equal(t, "ana@example.com", email.sent[0].To)
	assert.Equal(t, "Hola Ana", email.sent[0].Subject)
	assert.Equal(t, "Ana, tu plan Básico vence el 09/03/2026. {{unknown}}", email.sent[0].HTML)

	var logs []models.CommLog
	require.NoError(t, conn.Order("created_at ASC").Find(&logs).Error)
	require.Len(t, logs, 2)
	statuses := []enums.CommLogStatus{logs[0].Status, logs[1].Status}
	assert.ElementsMatch(t, []enums.CommLogStatus{enums.CommLogStatusSent, enums.CommLogStatusFailed}, statuses)

	page, err := svc.ListLogs(ctx, LogListParams{MemberID: memberID})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, enums.CommLogStatusSent, page.Items[0].Status)
}

func TestSendAdHocWithoutConfiguredChannelIsLoggedAsFailed(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	result, err := svc.Send(context.Background(), "admin:1", SendInput{
		Channel:    enums.CommChannelWhatsApp,
		Body:       "Hola {{name}}",
		Recipients: []Recipient{{Name: "Luis", Phone: "55 1234 5678"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Sent)
	require.Len(t, result.Logs, 1)
	require.NotNil(t, result.Logs[0].ErrorMessage)
	assert.Contains(t, *result.Logs[0].ErrorMessage, "not configured")

	_, err = svc.Send(context.Background(), "admin:1", SendInput{Channel: enums.CommChannelWhatsApp, Body: "x"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSendTriggeredUsesActiveTemplatesOnly(t *testing.T) {
	email := &stubEmail{}
	wa := &stubWhatsApp{}
	svc, _ := newTestService(t, email, wa)
	ctx := context.Background()
	trigger := enums.CommTriggerPetRejected
	inactive := false

	_, err := svc.CreateTemplate(ctx, uuid.Nil, TemplateInput{Name: "wa", Channel: enums.CommChannelWhatsApp, Body: "{{pet_name}} no fue aprobado: {{reason}}", Trigger: &trigger})
	require.NoError(t, err)
	_, err = svc.CreateTemplate(ctx, uuid.Nil, TemplateInput{Name: "mail", Channel: enums.CommChannelEmail, Subject: "Aviso", Body: "x", Trigger: &trigger, IsActive: &inactive})
	require.NoError(t, err)

	result, err := svc.SendTriggered(ctx, trigger, Recipient{
		Name:      "Ana",
		Email:     "ana@example.com",
		Phone:     "5512345678",
		Variables: map[string]string{"pet_name": "Michi", "reason": "Fotos borrosas"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	assert.Empty(t, email.sent)
	require.Len(t, wa.body, 1)
	assert.Equal(t, "Michi no fue aprobado: Fotos borrosas", wa.body[0])
	assert.Equal(t, ActorSystem, result.Logs[0].Actor)

	none, err := svc.SendTriggered(ctx, enums.CommTriggerAmbassadorApproved, Recipient{Email: "a@example.com"})
	require.NoError(t, err)
	assert.Zero(t, none.Sent+none.Failed)
}
