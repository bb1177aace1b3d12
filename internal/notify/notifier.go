package notify

import (
	"context"
	"strings"

	"github.com/containrrr/shoutrrr"
	"github.com/containrrr/shoutrrr/pkg/router"
	"github.com/containrrr/shoutrrr/pkg/types"
	"github.com/rs/zerolog"
)

const notificationTitle = "New Ticket Notification"

// Notifier delivers a formatted message with optional file
// attachments. Delivery is best-effort: implementations log failures
// and never surface them to the caller.
type Notifier interface {
	Send(ctx context.Context, message string, attachments []string)
}

// Shoutrrr sends through any transport shoutrrr supports (Telegram,
// Discord, ntfy, email, ...), selected by a single service URL.
type Shoutrrr struct {
	sender *router.ServiceRouter
	log    zerolog.Logger
}

// New builds a notifier for the given service URL. An empty URL yields
// a notifier that logs and skips every send.
func New(serviceURL string, log zerolog.Logger) *Shoutrrr {
	n := &Shoutrrr{log: log}
	if serviceURL == "" {
		return n
	}
	sender, err := shoutrrr.CreateSender(serviceURL)
	if err != nil {
		log.Error().Err(err).Msg("invalid notification url, notifications disabled")
		return n
	}
	n.sender = sender
	return n
}

func (n *Shoutrrr) Send(_ context.Context, message string, attachments []string) {
	if n.sender == nil {
		n.log.Warn().Msg("no notification target configured; skipping notification")
		return
	}

	// The transport cannot carry file attachments, so local paths are
	// appended to the body instead.
	if len(attachments) > 0 {
		message += "\n" + strings.Join(attachments, "\n")
	}

	params := types.Params{"title": notificationTitle}
	errs := n.sender.Send(message, &params)
	for _, err := range errs {
		if err != nil {
			n.log.Error().Err(err).Msg("failed to send notification")
			return
		}
	}
	n.log.Info().Int("attachments", len(attachments)).Msg("notification sent successfully")
}
