// Package queue receives delivery-feedback notifications from the
// per-tenant notification channel.
package queue

import (
	"context"

	"github.com/Tzelon/thunder-mail/internal/model"
)

// Message is one raw notification pulled off a queue. Receipt is the
// driver-specific handle needed to acknowledge it.
type Message struct {
	Body    []byte
	Receipt string
}

// NotificationQueue long-polls one org's feedback channel. Receive blocks
// up to the driver's wait timeout and returns a bounded batch; an empty
// batch is not an error. Ack must be called for every handled message,
// including ones that failed to parse, so poison messages do not loop.
type NotificationQueue interface {
	Receive(ctx context.Context) ([]Message, error)
	Ack(ctx context.Context, msg Message) error
	Close() error
}

// Factory builds the queue client for one org's settings.
type Factory func(org *model.Org) (NotificationQueue, error)
