package communications

import (
	"context"

	"github.com/clubpataamiga/pataamiga-backend/pkg/config"
	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
	"github.com/clubpataamiga/pataamiga-backend/pkg/sendgrid"
	"github.com/clubpataamiga/pataamiga-backend/pkg/whatsapp"
)

// NewServiceFromConfig builds the provider clients from configuration and
// leaves a channel unwired when its credentials are missing.
func NewServiceFromConfig(repo Repository, cfg *config.Config, logg *logger.Logger) (Service, error) {
	var email emailSender
	if client, err := sendgrid.NewClient(cfg.Sendgrid); err != nil {
		logg.Warn(logg.WithField(context.Background(), "channel", "email"), "communications.channel_disabled")
	} else {
		email = client
	}

	var wa whatsAppSender
	if client, err := whatsapp.NewClient(cfg.WhatsApp); err != nil {
		logg.Warn(logg.WithField(context.Background(), "channel", "whatsapp"), "communications.channel_disabled")
	} else {
		wa = client
	}

	return NewService(repo, email, wa, logg)
}
