package queue

import (
	"context"

	"anoud-backend/internal/shared/telemetry"
)

// Client sends messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// LogClient records messages in the log instead of delivering them.
// It is used when no queue is configured.
type LogClient struct{}

func (LogClient) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	telemetry.Info("queue.email_logged", map[string]any{
		"lead_id":    msg.LeadID,
		"to":         msg.To,
		"subject":    msg.Subject,
		"request_id": msg.RequestID,
	})
	return nil
}

var _ Client = LogClient{}
