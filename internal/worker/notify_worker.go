package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

const maxNotifyAttempts = 3

// Sender delivers a plain-text email (implemented by infra.Mailer).
type Sender interface {
	Send(to, subject, body string) error
}

// NotifyWorker processes notification jobs from QueueNotify.
// Incident creation announces to the helpdesk inbox; resolution announces
// to the reporter.
type NotifyWorker struct {
	mailer Sender
	inbox  string
}

func NewNotifyWorker(mailer Sender, helpdeskInbox string) *NotifyWorker {
	return &NotifyWorker{mailer: mailer, inbox: helpdeskInbox}
}

// Process sends the notification, retrying transient failures with backoff.
// A non-nil return means all attempts failed and the job belongs in the DLQ.
func (w *NotifyWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var p NotifyPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Error().Err(err).Msg("notify_worker: invalid payload")
		return nil // malformed jobs are dropped, not retried
	}

	to, subject, body := w.compose(p)
	if to == "" {
		log.Warn().Str("event", p.Event).Msg("notify_worker: no recipient — skipping")
		return nil
	}

	var err error
	for attempt := 1; attempt <= maxNotifyAttempts; attempt++ {
		if err = w.mailer.Send(to, subject, body); err == nil {
			log.Info().Str("to", to).Str("event", p.Event).Msg("notify_worker: notification sent")
			return nil
		}
		if attempt < maxNotifyAttempts {
			delay := time.Duration(1<<(attempt-1)) * time.Second
			log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).
				Msg("notify_worker: send failed, retrying")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return err
			}
		}
	}
	return err
}

func (w *NotifyWorker) compose(p NotifyPayload) (to, subject, body string) {
	switch p.Event {
	case "created":
		to = w.inbox
		subject = fmt.Sprintf("[%s] Nueva incidencia: %s", p.Office, p.Title)
		body = fmt.Sprintf("Incidencia %s creada por %s (%s) en la oficina %s.",
			p.IncidentID, p.ReporterName, p.ReporterEmail, p.Office)
	case "resolved":
		to = p.ReporterEmail
		subject = fmt.Sprintf("Incidencia resuelta: %s", p.Title)
		body = fmt.Sprintf("Hola %s,\n\nTu incidencia %q ha sido marcada como resuelta.",
			p.ReporterName, p.Title)
	}
	return to, subject, body
}
