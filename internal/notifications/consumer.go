package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/clubpataamiga/pataamiga-backend/internal/communications"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
	"github.com/clubpataamiga/pataamiga-backend/pkg/outbox"
	"github.com/clubpataamiga/pataamiga-backend/pkg/outbox/payloads"
)

const (
	notificationStep = "member-notifications"
	autoMessageStep  = "auto-messages"
)

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type memberDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Member, error)
}

type autoMessenger interface {
	SendTriggered(ctx context.Context, trigger enums.CommTrigger, recipient communications.Recipient) (*communications.SendResult, error)
}

type idempotencyGuard interface {
	Once(ctx context.Context, step string, eventID uuid.UUID, fn func() error) (bool, error)
}

// ConsumerParams groups the consumer dependencies. Messenger is optional.
type ConsumerParams struct {
	Repository   repository
	Members      memberDirectory
	Messenger    autoMessenger
	Subscription *pubsub.Subscriber
	Idempotency  idempotencyGuard
	Logger       *logger.Logger
}

// Consumer turns domain events into member notifications and, when a
// template is bound to the matching trigger, an automatic message.
type Consumer struct {
	repo         repository
	members      memberDirectory
	messenger    autoMessenger
	subscription *pubsub.Subscriber
	idempotency  idempotencyGuard
	logg         *logger.Logger
}

// NewConsumer builds a notification consumer.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Members == nil {
		return nil, fmt.Errorf("member directory required")
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         params.Repository,
		members:      params.Members,
		messenger:    params.Messenger,
		subscription: params.Subscription,
		idempotency:  params.Idempotency,
		logg:         params.Logger,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if c.subscription == nil {
		return fmt.Errorf("notification subscription required")
	}
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		eventType := enums.OutboxEventType(msg.Attributes["event_type"])
		logCtx := c.logg.WithFields(ctx, map[string]any{
			"message_id": msg.ID,
			"event_type": eventType,
		})
		if err := c.Process(logCtx, eventType, msg.Data); err != nil {
			if pkgerrors.Retryable(err) {
				c.logg.Error(logCtx, "notification handling failed, will retry", err)
				msg.Nack()
				return
			}
			c.logg.Error(logCtx, "notification event dropped", err)
		}
		msg.Ack()
	})
}

// effect is what one event produces: an in-app notification, an automatic
// message, or both.
type effect struct {
	memberID  *uuid.UUID
	kind      enums.NotificationType
	title     string
	message   string
	link      string
	trigger   enums.CommTrigger
	recipient *communications.Recipient
	vars      map[string]string
}

// Process handles one envelope. Each side effect is guarded separately so a
// retry after a failed message does not duplicate the notification.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, data []byte) error {
	envelope, eventID, err := outbox.DecodeEnvelope(data)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode envelope")
	}

	eff, err := c.build(ctx, eventType, envelope.Data)
	if err != nil {
		return err
	}
	if eff == nil {
		c.logg.Debug(ctx, "event has no member-facing effect")
		return nil
	}

	if eff.memberID != nil {
		if err := c.once(ctx, notificationStep, eventID, func() error {
			return c.notify(ctx, eff)
		}); err != nil {
			return err
		}
	}
	if eff.trigger != "" && eff.recipient != nil && c.messenger != nil {
		if err := c.once(ctx, autoMessageStep, eventID, func() error {
			recipient := *eff.recipient
			recipient.Variables = eff.vars
			result, err := c.messenger.SendTriggered(ctx, eff.trigger, recipient)
			if err != nil {
				return err
			}
			c.logg.Info(c.logg.WithFields(ctx, map[string]any{
				"trigger": eff.trigger,
				"sent":    result.Sent,
				"failed":  result.Failed,
			}), "automatic message processed")
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

func (c *Consumer) once(ctx context.Context, step string, eventID uuid.UUID, fn func() error) error {
	ran, err := c.idempotency.Once(ctx, step, eventID, fn)
	if err == nil && !ran {
		c.logg.Debug(c.logg.WithField(ctx, "step", step), "step already completed")
	}
	return err
}

func (c *Consumer) notify(ctx context.Context, eff *effect) error {
	notification := &models.Notification{
		MemberID: *eff.memberID,
		Type:     eff.kind,
		Title:    eff.title,
		Message:  strings.TrimSpace(eff.message),
	}
	if eff.link != "" {
		link := eff.link
		notification.Link = &link
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
	}
	return nil
}

func (c *Consumer) build(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage) (*effect, error) {
	switch eventType {
	case enums.EventPetStatusChanged:
		var p payloads.PetStatusChangedEvent
		if err := decode(data, &p); err != nil {
			return nil, err
		}
		return c.petStatusEffect(ctx, p)
	case enums.EventPetAdminMessage:
		var p payloads.PetAdminMessageEvent
		if err := decode(data, &p); err != nil {
			return nil, err
		}
		return &effect{
			memberID: &p.MemberID,
			kind:     enums.NotificationTypeAdminMessage,
			title:    "Nuevo mensaje sobre " + p.PetName,
			message:  p.Message,
			link:     petLink(p.PetID),
		}, nil
	case enums.EventPetWaitingPeriodCompleted:
		var p payloads.PetWaitingPeriodCompletedEvent
		if err := decode(data, &p); err != nil {
			return nil, err
		}
		return &effect{
			memberID: &p.MemberID,
			kind:     enums.NotificationTypeWaitingPeriod,
			title:    "¡Periodo de carencia completado!",
			message:  p.PetName + " ya cuenta con cobertura completa.",
			link:     petLink(p.PetID),
		}, nil
	case enums.EventAmbassadorStatusChanged:
		var p payloads.AmbassadorStatusChangedEvent
		if err := decode(data, &p); err != nil {
			return nil, err
		}
		return ambassadorEffect(p), nil
	case enums.EventReferralCreated:
		var p payloads.ReferralCreatedEvent
		if err := decode(data, &p); err != nil {
			return nil, err
		}
		if p.AmbassadorMember == nil {
			return nil, nil
		}
		return &effect{
			memberID: p.AmbassadorMember,
			kind:     enums.NotificationTypeReferral,
			title:    "Nuevo referido",
			message:  "Un nuevo miembro se registró con tu código de embajador.",
			link:     ambassadorLink,
		}, nil
	case enums.EventReferralCommissionChanged:
		var p payloads.ReferralCommissionChangedEvent
		if err := decode(data, &p); err != nil {
			return nil, err
		}
		if p.AmbassadorMember == nil {
			return nil, nil
		}
		return &effect{
			memberID: p.AmbassadorMember,
			kind:     enums.NotificationTypeReferral,
			title:    "Comisión " + commissionLabel(p.Status),
			message:  fmt.Sprintf("Tu comisión de $%s ahora está %s.", p.CommissionAmount.StringFixed(2), commissionLabel(p.Status)),
			link:     ambassadorLink,
		}, nil
	case enums.EventPayoutStatusChanged:
		var p payloads.PayoutStatusChangedEvent
		if err := decode(data, &p); err != nil {
			return nil, err
		}
		if p.AmbassadorMember == nil {
			return nil, nil
		}
		message := fmt.Sprintf("Tu retiro de $%s está %s.", p.Amount.StringFixed(2), payoutLabel(p.Status))
		if p.FailureReason != "" {
			message += " Motivo: " + p.FailureReason
		}
		return &effect{
			memberID: p.AmbassadorMember,
			kind:     enums.NotificationTypePayout,
			title:    "Retiro " + payoutLabel(p.Status),
			message:  message,
			link:     ambassadorLink,
		}, nil
	}
	return nil, nil
}

func (c *Consumer) petStatusEffect(ctx context.Context, p payloads.PetStatusChangedEvent) (*effect, error) {
	eff := &effect{
		memberID: &p.MemberID,
		kind:     enums.NotificationTypePetStatus,
		link:     petLink(p.PetID),
		vars:     map[string]string{"pet_name": p.PetName, "reason": p.Note, "status": p.Status.String()},
	}
	switch p.Status {
	case enums.PetStatusApproved:
		eff.title = "¡" + p.PetName + " fue aprobado!"
		eff.message = p.PetName + " ya forma parte del club. Su periodo de carencia está en curso."
		eff.trigger = enums.CommTriggerPetApproved
	case enums.PetStatusRejected:
		eff.title = "Revisión de " + p.PetName
		eff.message = "No pudimos aprobar a " + p.PetName + ". Motivo: " + p.Note + ". Puedes apelar desde tu panel."
		eff.trigger = enums.CommTriggerPetRejected
	case enums.PetStatusActionRequired:
		eff.title = p.PetName + " necesita información"
		eff.message = "Necesitamos algo más para completar la revisión de " + p.PetName + ": " + p.Note
		eff.trigger = enums.CommTriggerPetActionRequired
	default:
		return nil, nil
	}

	member, err := c.members.FindByID(ctx, p.MemberID)
	switch {
	case err == nil:
		name := member.DisplayName()
		eff.vars["name"] = name
		eff.recipient = &communications.Recipient{MemberID: &member.ID, Name: name, Email: member.Email}
		if member.Phone != nil {
			eff.recipient.Phone = *member.Phone
		}
	case db.IsNotFound(err):
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pet owner not found")
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pet owner")
	}
	return eff, nil
}

func ambassadorEffect(p payloads.AmbassadorStatusChangedEvent) *effect {
	eff := &effect{
		memberID:  p.MemberID,
		kind:      enums.NotificationTypeAmbassadorStatus,
		link:      ambassadorLink,
		recipient: &communications.Recipient{MemberID: p.MemberID, Name: p.Name, Email: p.Email, Phone: p.Phone},
		vars: map[string]string{
			"name":          p.Name,
			"reason":        p.Reason,
			"referral_code": p.ReferralCode,
			"status":        p.Status.String(),
		},
	}
	switch p.Status {
	case enums.AmbassadorStatusApproved:
		eff.title = "¡Bienvenido al programa de embajadores!"
		eff.message = "Tu solicitud fue aprobada. Tu código de referido es " + p.ReferralCode + "."
		eff.trigger = enums.CommTriggerAmbassadorApproved
	case enums.AmbassadorStatusRejected:
		eff.title = "Solicitud de embajador"
		eff.message = "Tu solicitud no fue aprobada. Motivo: " + p.Reason
		eff.trigger = enums.CommTriggerAmbassadorRejected
	case enums.AmbassadorStatusSuspended:
		eff.title = "Cuenta de embajador suspendida"
		eff.message = "Tu cuenta de embajador fue suspendida."
		if p.Reason != "" {
			eff.message += " Motivo: " + p.Reason
		}
		eff.trigger = enums.CommTriggerAmbassadorSuspended
	default:
		return nil
	}
	return eff
}

const ambassadorLink = "/embajadores"

func petLink(petID uuid.UUID) string {
	return "/mascotas/" + petID.String()
}

func commissionLabel(status enums.CommissionStatus) string {
	switch status {
	case enums.CommissionStatusApproved:
		return "aprobada"
	case enums.CommissionStatusPaid:
		return "pagada"
	case enums.CommissionStatusCancelled:
		return "cancelada"
	}
	return "pendiente"
}

func payoutLabel(status enums.PayoutStatus) string {
	switch status {
	case enums.PayoutStatusProcessing:
		return "en proceso"
	case enums.PayoutStatusCompleted:
		return "completado"
	case enums.PayoutStatusFailed:
		return "rechazado"
	}
	return "pendiente"
}

var errEmptyPayload = errors.New("empty payload")

func decode(data json.RawMessage, dest any) error {
	if len(data) == 0 {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, errEmptyPayload, "decode payload")
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payload")
	}
	return nil
}
