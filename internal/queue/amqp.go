package queue

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/Tzelon/thunder-mail/internal/model"
)

const (
	amqpBatchSize = 10
	amqpWait      = 20 * time.Second
)

// AMQPQueue adapts a broker queue to the long-poll interface, for
// self-hosted deployments that bridge provider notifications through AMQP
// instead of SQS. One queue per org, named after its domain.
type AMQPQueue struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	deliveries <-chan amqp.Delivery

	mu      sync.Mutex
	pending map[string]amqp.Delivery
}

// NewAMQPFactory connects per org to the configured broker and consumes
// the org's feedback queue.
func NewAMQPFactory(url string) Factory {
	return func(org *model.Org) (NotificationQueue, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, fmt.Errorf("amqp dial: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("amqp channel: %w", err)
		}

		name := "email_feedback." + org.Domain
		q, err := ch.QueueDeclare(
			name,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("amqp declare %s: %w", name, err)
		}

		deliveries, err := ch.Consume(
			q.Name,
			"",
			false, // autoAck = false, we ack after handling
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("amqp consume %s: %w", name, err)
		}

		return &AMQPQueue{
			conn:       conn,
			ch:         ch,
			deliveries: deliveries,
			pending:    make(map[string]amqp.Delivery),
		}, nil
	}
}

// Receive drains up to a batch of deliveries, waiting at most the poll
// timeout for the first one.
func (q *AMQPQueue) Receive(ctx context.Context) ([]Message, error) {
	msgs := []Message{}
	timeout := time.NewTimer(amqpWait)
	defer timeout.Stop()

	for len(msgs) < amqpBatchSize {
		select {
		case d, ok := <-q.deliveries:
			if !ok {
				if len(msgs) > 0 {
					return msgs, nil
				}
				return nil, amqp.ErrClosed
			}
			receipt := strconv.FormatUint(d.DeliveryTag, 10)
			q.mu.Lock()
			q.pending[receipt] = d
			q.mu.Unlock()
			msgs = append(msgs, Message{Body: d.Body, Receipt: receipt})
		case <-timeout.C:
			return msgs, nil
		case <-ctx.Done():
			return msgs, ctx.Err()
		}
	}
	return msgs, nil
}

func (q *AMQPQueue) Ack(ctx context.Context, msg Message) error {
	q.mu.Lock()
	d, ok := q.pending[msg.Receipt]
	delete(q.pending, msg.Receipt)
	q.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown delivery %s", msg.Receipt)
	}
	return d.Ack(false)
}

func (q *AMQPQueue) Close() error {
	q.ch.Close()
	return q.conn.Close()
}

var _ NotificationQueue = (*AMQPQueue)(nil)
