// Package identity keeps the Memberstack "is-ambassador" custom field in step
// with ambassador review decisions.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/clubpataamiga/pataamiga-backend/pkg/db"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
	"github.com/clubpataamiga/pataamiga-backend/pkg/outbox"
	"github.com/clubpataamiga/pataamiga-backend/pkg/outbox/payloads"
)

const (
	identityConsumerName = "identity-sync"
	// AmbassadorField is the Memberstack custom field mirrored from the
	// ambassador status.
	AmbassadorField = "is-ambassador"
)

type memberUpdater interface {
	UpdateCustomFields(ctx context.Context, memberID string, fields map[string]string) error
}

type ambassadorLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Ambassador, error)
}

type stepGuard interface {
	Once(ctx context.Context, step string, eventID uuid.UUID, fn func() error) (bool, error)
}

// Consumer applies ambassador_status_changed events to the identity provider.
type Consumer struct {
	subscription *gcppubsub.Subscriber
	client       memberUpdater
	ambassadors  ambassadorLookup
	guard        stepGuard
	logg         *logger.Logger
	enabled      bool
}

// NewConsumer builds the identity sync consumer. When enabled is false events
// are acknowledged without calling Memberstack.
func NewConsumer(subscription *gcppubsub.Subscriber, client memberUpdater, ambassadors ambassadorLookup, guard stepGuard, logg *logger.Logger, enabled bool) (*Consumer, error) {
	if client == nil {
		return nil, errors.New("memberstack client is required")
	}
	if ambassadors == nil {
		return nil, errors.New("ambassador lookup is required")
	}
	if guard == nil {
		return nil, errors.New("idempotency guard is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		subscription: subscription,
		client:       client,
		ambassadors:  ambassadors,
		guard:        guard,
		logg:         logg,
		enabled:      enabled,
	}, nil
}

type processResult struct {
	nack bool
}

// Run consumes the identity subscription until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if c.subscription == nil {
		return errors.New("identity subscription is required")
	}
	return c.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if c.process(innerCtx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (c *Consumer) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	eventType := enums.OutboxEventType(strings.TrimSpace(msg.Attributes["event_type"]))
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	if eventType != enums.EventAmbassadorStatusChanged {
		return processResult{}
	}

	envelope, eventID, err := outbox.DecodeEnvelope(msg.Data)
	if err != nil {
		c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "invalid identity envelope")
		return processResult{}
	}
	logCtx = c.logg.WithEvent(logCtx, envelope.EventID, string(eventType))

	ran, err := c.guard.Once(logCtx, identityConsumerName, eventID, func() error {
		return c.Handle(logCtx, envelope.Data)
	})
	switch {
	case err == nil && !ran:
		c.logg.Info(logCtx, "event already processed")
	case err != nil && pkgerrors.Retryable(err):
		c.logg.Error(logCtx, "identity sync failed, will retry", err)
		return processResult{nack: true}
	case err != nil:
		c.logg.Error(logCtx, "identity sync dropped", err)
	}
	return processResult{}
}

// Handle writes the flag for the ambassador's current status, not the one
// carried by the event. Delivery is unordered, so a late redelivery of an
// older decision must not overwrite a newer one.
func (c *Consumer) Handle(ctx context.Context, data json.RawMessage) error {
	var event payloads.AmbassadorStatusChangedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode ambassador status payload")
	}

	logCtx := c.logg.WithFields(ctx, map[string]any{
		"ambassador_id": event.AmbassadorID.String(),
		"event_status":  event.Status,
	})
	if strings.TrimSpace(event.MemberstackID) == "" {
		c.logg.Warn(logCtx, "ambassador has no linked identity, skipping sync")
		return nil
	}
	if !c.enabled {
		c.logg.Info(logCtx, "identity sync disabled, skipping")
		return nil
	}

	flag, ok, err := c.currentFlag(ctx, event.AmbassadorID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	logCtx = c.logg.WithField(logCtx, "flag", flag)

	if err := c.client.UpdateCustomFields(ctx, event.MemberstackID, map[string]string{AmbassadorField: flag}); err != nil {
		return fmt.Errorf("update %s: %w", AmbassadorField, err)
	}
	c.logg.Info(logCtx, "identity flag synced")
	return nil
}

// currentFlag reads the stored ambassador. A deleted ambassador is no longer
// one, so it maps to "false".
func (c *Consumer) currentFlag(ctx context.Context, ambassadorID uuid.UUID) (string, bool, error) {
	ambassador, err := c.ambassadors.FindByID(ctx, ambassadorID)
	if err != nil {
		if db.IsNotFound(err) {
			return "false", true, nil
		}
		return "", false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ambassador")
	}
	flag, ok := ambassador.Status.IdentityFlag()
	return flag, ok, nil
}
