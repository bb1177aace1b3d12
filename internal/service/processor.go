package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Shayennn/ptm-noti/internal/api"
	"github.com/Shayennn/ptm-noti/internal/domain/ticket"
	"github.com/Shayennn/ptm-noti/internal/notify"
	"github.com/Shayennn/ptm-noti/internal/state"
	"github.com/Shayennn/ptm-noti/internal/storage"
	"github.com/Shayennn/ptm-noti/internal/utils"
)

// Archive is the optional side sink for processed tickets. It never
// participates in de-duplication and its failures never abort a run.
type Archive interface {
	SaveProcessed(ctx context.Context, info ticket.Info, images []string, rawDetail []byte) error
}

// Processor fetches the ticket list, filters out already-processed
// numbers, and handles each new ticket in remote order: detail,
// evidence images, storage, state commit, notification. A failing
// ticket aborts the run; the state already committed for earlier
// tickets stands.
type Processor struct {
	api      *api.Client
	store    *state.Store
	storage  storage.Storage
	notifier notify.Notifier
	archive  Archive
	log      zerolog.Logger
}

func NewProcessor(client *api.Client, store *state.Store, stor storage.Storage, notifier notify.Notifier, archive Archive, log zerolog.Logger) *Processor {
	return &Processor{
		api:      client,
		store:    store,
		storage:  stor,
		notifier: notifier,
		archive:  archive,
		log:      log,
	}
}

// Process runs one poll cycle with the given access token.
func (p *Processor) Process(ctx context.Context, accessToken string) error {
	tickets, err := p.api.AllTickets(ctx, accessToken)
	if err != nil {
		return fmt.Errorf("failed to list tickets: %w", err)
	}
	p.log.Info().Int("count", len(tickets)).Msg("retrieved tickets")

	st := p.store.Load()
	newTickets := make([]ticket.Summary, 0, len(tickets))
	for _, t := range tickets {
		if !st.IsProcessed(t.TicketNo) {
			newTickets = append(newTickets, t)
		}
	}

	if len(newTickets) == 0 {
		p.log.Info().Msg("no new tickets to process")
		return nil
	}

	for _, t := range newTickets {
		if err := p.processOne(ctx, accessToken, &st, t.TicketNo); err != nil {
			return err
		}
	}

	p.log.Info().Msg("processing complete")
	return nil
}

func (p *Processor) processOne(ctx context.Context, accessToken string, st *state.PersistedState, ticketNo string) error {
	detail, err := p.api.TicketDetail(ctx, accessToken, ticketNo)
	if err != nil {
		return fmt.Errorf("failed to fetch detail for ticket %s: %w", ticketNo, err)
	}

	info := ticket.InfoFromDetail(ticketNo, detail)
	p.log.Info().Interface("ticket", info).Msg("processing ticket")

	happenedAt, err := utils.ParseDateDMY(detail.DateHappen)
	if err != nil {
		return fmt.Errorf("ticket %s has invalid dateHappen %q: %w", ticketNo, detail.DateHappen, err)
	}
	stamp := utils.DateStamp(happenedAt)

	evidence, err := p.api.ImageEvidence(ctx, accessToken, ticketNo)
	if err != nil {
		return fmt.Errorf("failed to fetch evidence for ticket %s: %w", ticketNo, err)
	}

	var images, accessRefs []string
	for i := 1; i <= ticket.MaxEvidenceImages; i++ {
		encoded := evidence.Image(i)
		if encoded == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return fmt.Errorf("failed to decode image %d of ticket %s: %w", i, ticketNo, err)
		}

		filename := fmt.Sprintf("%s_%s_%d.png", stamp, ticketNo, i)
		if err := p.storage.Upload(ctx, filename, data); err != nil {
			return fmt.Errorf("failed to store image %s: %w", filename, err)
		}
		ref, err := p.storage.Access(ctx, filename)
		if err != nil {
			return fmt.Errorf("failed to resolve access for image %s: %w", filename, err)
		}
		images = append(images, filename)
		accessRefs = append(accessRefs, ref)
	}

	// Commit before notifying: a crash or notify failure past this
	// point must not reprocess the ticket on the next run.
	st.MarkProcessed(ticketNo)
	if err := p.store.Save(*st); err != nil {
		return fmt.Errorf("failed to persist state for ticket %s: %w", ticketNo, err)
	}

	if p.archive != nil {
		raw, _ := json.Marshal(detail)
		if err := p.archive.SaveProcessed(ctx, info, images, raw); err != nil {
			p.log.Error().Err(err).Str("ticket_no", ticketNo).Msg("failed to archive ticket")
		}
	}

	message := formatMessage(info, len(images))
	if p.storage.Attachable() {
		p.notifier.Send(ctx, message, accessRefs)
	} else {
		// Remote-only backends hand out URLs the notification
		// transport cannot attach, so they go into the body.
		if len(accessRefs) > 0 {
			message += "\n" + strings.Join(accessRefs, "\n")
		}
		p.notifier.Send(ctx, message, nil)
	}

	return nil
}

func formatMessage(info ticket.Info, imageCount int) string {
	var b strings.Builder
	b.WriteString("New ticket processed:\n")
	fmt.Fprintf(&b, "- Ticket No: %s\n", info.TicketNo)
	fmt.Fprintf(&b, "- Order Name: %s\n", deref(info.OrderName))
	fmt.Fprintf(&b, "- Date: %s\n", info.DateHappen)
	fmt.Fprintf(&b, "- Create Date: %s\n", deref(info.CreateDate))
	if info.OrderDivision != nil {
		fmt.Fprintf(&b, "- Order Division: %s\n", *info.OrderDivision)
	}
	fmt.Fprintf(&b, "- Fine Amount: %s THB\n", deref(info.FineAmount))
	fmt.Fprintf(&b, "- License Plate: %s\n", deref(info.LicensePlate))
	fmt.Fprintf(&b, "- Location: %s\n", deref(info.Location))
	fmt.Fprintf(&b, "- Offense: %s\n", deref(info.Offense))
	if info.LimitSpeed != nil {
		fmt.Fprintf(&b, "- Speed Limit: %s km/h\n", *info.LimitSpeed)
	}
	if info.Speed != nil {
		fmt.Fprintf(&b, "- Speed: %s km/h\n", *info.Speed)
	}
	if info.Lane != nil {
		fmt.Fprintf(&b, "- Lane: %s\n", *info.Lane)
	}
	fmt.Fprintf(&b, "- Images: %d", imageCount)
	return b.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
