package main

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"anoud-backend/internal/queue"
	"anoud-backend/internal/shared/telemetry"
)

type fakeSQS struct {
	deleted []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeMailer struct {
	err   error
	calls int
}

func (f *fakeMailer) Send(ctx context.Context, msg queue.Message) error {
	f.calls++
	return f.err
}

func sqsMessage(t *testing.T, id string, body string) sqstypes.Message {
	t.Helper()
	return sqstypes.Message{
		MessageId:     aws.String("m-" + id),
		ReceiptHandle: aws.String("r-" + id),
		Body:          aws.String(body),
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}
}

func campaignBody(t *testing.T) string {
	t.Helper()
	raw, err := queue.EncodeMessage(queue.Message{LeadID: "lead-1", To: "buyer@acme.com", Subject: "Hi", Body: "Hello", RequestID: "req-1", Version: queue.MessageVersion})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return string(raw)
}

func TestWorkerDeletesMessageOnSuccess(t *testing.T) {
	t.Cleanup(telemetry.SetOutput(io.Discard))
	client := &fakeSQS{}
	mailer := &fakeMailer{}

	handleMessage(context.Background(), client, "queue", mailer, sqsMessage(t, "1", campaignBody(t)))

	if mailer.calls != 1 || len(client.deleted) != 1 || client.deleted[0] != "r-1" {
		t.Fatalf("expected send and delete, got calls=%d deleted=%v", mailer.calls, client.deleted)
	}
}

func TestWorkerKeepsMessageOnDeliveryFailure(t *testing.T) {
	t.Cleanup(telemetry.SetOutput(io.Discard))
	client := &fakeSQS{}
	mailer := &fakeMailer{err: errors.New("relay down")}

	handleMessage(context.Background(), client, "queue", mailer, sqsMessage(t, "2", campaignBody(t)))

	if len(client.deleted) != 0 {
		t.Fatalf("expected no delete, got %v", client.deleted)
	}
}

func TestWorkerDropsUndeliverableMessages(t *testing.T) {
	t.Cleanup(telemetry.SetOutput(io.Discard))
	client := &fakeSQS{}
	mailer := &fakeMailer{}

	handleMessage(context.Background(), client, "queue", mailer, sqsMessage(t, "3", "{bad-json"))
	handleMessage(context.Background(), client, "queue", mailer, sqsMessage(t, "4", `{"leadId":"x","to":"not-an-email","subject":"Hi"}`))

	if mailer.calls != 0 || len(client.deleted) != 2 {
		t.Fatalf("expected two drops without sends, got calls=%d deleted=%v", mailer.calls, client.deleted)
	}
}
