package main

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"anoud-backend/internal/queue"
	"anoud-backend/internal/shared/telemetry"
)

type flakyMailer struct {
	failTo string
}

func (m flakyMailer) Send(ctx context.Context, msg queue.Message) error {
	if msg.To == m.failTo {
		return errors.New("mailbox unavailable")
	}
	return nil
}

func record(t *testing.T, id, to string) events.SQSMessage {
	t.Helper()
	raw, err := queue.EncodeMessage(queue.Message{LeadID: "lead-" + id, To: to, Subject: "Hi", Version: queue.MessageVersion})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return events.SQSMessage{MessageId: id, Body: string(raw)}
}

func TestProcessBatchReportsOnlyRetryableFailures(t *testing.T) {
	t.Cleanup(telemetry.SetOutput(io.Discard))
	event := events.SQSEvent{Records: []events.SQSMessage{
		record(t, "ok", "a@acme.com"),
		record(t, "retry", "b@acme.com"),
		{MessageId: "garbage", Body: "{"},
	}}

	resp := processBatch(context.Background(), flakyMailer{failTo: "b@acme.com"}, event)
	if len(resp.BatchItemFailures) != 1 || resp.BatchItemFailures[0].ItemIdentifier != "retry" {
		t.Fatalf("unexpected failures %+v", resp.BatchItemFailures)
	}
}
