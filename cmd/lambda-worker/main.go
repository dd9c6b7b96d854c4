package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"anoud-backend/internal/shared/config"
	"anoud-backend/internal/shared/metrics"
	"anoud-backend/internal/shared/telemetry"
	"anoud-backend/internal/workerproc"
)

var (
	initOnce sync.Once
	mailer   workerproc.Mailer
)

func initMailer() {
	cfg := config.Load()
	mailer = workerproc.LogMailer{From: cfg.MailFrom}
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initMailer)
	return processBatch(ctx, mailer, event), nil
}

// processBatch reports delivery failures as batch item failures so only
// those records are retried. Undeliverable records are dropped.
func processBatch(ctx context.Context, m workerproc.Mailer, event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		err := workerproc.HandleMessage(ctx, m, record.Body)
		switch {
		case err == nil:
		case workerproc.Unrecoverable(err):
			telemetry.Error("worker.email.rejected", map[string]any{"sqs_message_id": record.MessageId, "error": err.Error()})
			metrics.IncCampaignMessageDropped()
		default:
			telemetry.Error("worker.email.failed", map[string]any{"sqs_message_id": record.MessageId, "error": err.Error()})
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}
