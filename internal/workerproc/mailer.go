package workerproc

import (
	"context"

	"anoud-backend/internal/queue"
	"anoud-backend/internal/shared/telemetry"
)

// Mailer delivers one campaign email.
type Mailer interface {
	Send(ctx context.Context, msg queue.Message) error
}

// LogMailer records deliveries in the log instead of contacting an SMTP
// relay. It is the only transport shipped.
type LogMailer struct {
	From string
}

func (m LogMailer) Send(ctx context.Context, msg queue.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	telemetry.Info("mail.delivered", map[string]any{
		"from":       m.From,
		"to":         msg.To,
		"lead_id":    msg.LeadID,
		"subject":    msg.Subject,
		"body_len":   len(msg.Body),
		"request_id": msg.RequestID,
	})
	return nil
}
