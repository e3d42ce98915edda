package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/Tzelon/thunder-mail/internal/model"
)

const (
	sqsBatchSize   = 10
	sqsWaitSeconds = 20
)

// SQSQueue long-polls an SQS queue with the org's own credentials.
type SQSQueue struct {
	client   *sqs.Client
	queueURL string
}

// NewSQSFactory builds SQS clients from per-org settings.
func NewSQSFactory() Factory {
	return func(org *model.Org) (NotificationQueue, error) {
		if !org.HasQueueSettings() {
			return nil, errors.New("org has no queue settings")
		}
		cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(org.SESRegion),
			awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(org.SESAccessKeyID, org.SESSecretAccessKey, ""),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("load queue config: %w", err)
		}
		return &SQSQueue{client: sqs.NewFromConfig(cfg), queueURL: org.SQSUrl}, nil
	}
}

func (q *SQSQueue) Receive(ctx context.Context) ([]Message, error) {
	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: sqsBatchSize,
		WaitTimeSeconds:     sqsWaitSeconds,
	})
	if err != nil {
		return nil, err
	}

	msgs := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, Message{
			Body:    []byte(aws.ToString(m.Body)),
			Receipt: aws.ToString(m.ReceiptHandle),
		})
	}
	return msgs, nil
}

func (q *SQSQueue) Ack(ctx context.Context, msg Message) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(msg.Receipt),
	})
	return err
}

func (q *SQSQueue) Close() error { return nil }

var _ NotificationQueue = (*SQSQueue)(nil)
