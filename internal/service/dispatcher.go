// internal/service/dispatcher.go
package service

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	appErrors "github.com/Tzelon/thunder-mail/internal/errors"
	"github.com/Tzelon/thunder-mail/internal/model"
)

// SendFunc performs one provider send call and returns the provider
// message id.
type SendFunc func(ctx context.Context, email model.OutboundEmail) (string, error)

// DispatchResult pairs one email with its send outcome.
type DispatchResult struct {
	Email     model.OutboundEmail
	MessageID string
	Err       error
}

// Dispatcher bounds the rate and concurrency of outbound provider calls.
// Limiters are keyed by organization, so tenants cannot interfere with each
// other, and reconfiguration happens under the registry lock instead of
// racing on process-global settings.
type Dispatcher struct {
	mu       sync.Mutex
	limiters map[int]*orgLimiter
}

type orgLimiter struct {
	limiter       *rate.Limiter
	sem           chan struct{}
	ratePerSecond int
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{limiters: make(map[int]*orgLimiter)}
}

// limiterFor returns the org's limiter, creating or reconfiguring it to the
// most recently computed rate.
func (d *Dispatcher) limiterFor(orgID, ratePerSecond int) *orgLimiter {
	if ratePerSecond < 1 {
		ratePerSecond = 1
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	l, ok := d.limiters[orgID]
	if !ok || l.ratePerSecond != ratePerSecond {
		l = &orgLimiter{
			limiter:       rate.NewLimiter(rate.Limit(ratePerSecond), 1),
			sem:           make(chan struct{}, ratePerSecond),
			ratePerSecond: ratePerSecond,
		}
		d.limiters[orgID] = l
	}
	return l
}

// Dispatch sends every email through the org's limiter. A failed call does
// not abort siblings; each result carries its own outcome, in input order.
func (d *Dispatcher) Dispatch(ctx context.Context, orgID, ratePerSecond int, emails []model.OutboundEmail, send SendFunc) []DispatchResult {
	l := d.limiterFor(orgID, ratePerSecond)
	results := make([]DispatchResult, len(emails))

	var wg sync.WaitGroup
	for i, email := range emails {
		wg.Add(1)
		go func(i int, email model.OutboundEmail) {
			defer wg.Done()
			results[i] = DispatchResult{Email: email}

			select {
			case l.sem <- struct{}{}:
				defer func() { <-l.sem }()
			case <-ctx.Done():
				results[i].Err = ctx.Err()
				return
			}

			if err := l.limiter.Wait(ctx); err != nil {
				results[i].Err = err
				return
			}

			messageID, err := send(ctx, email)
			if err != nil {
				recipient := ""
				if len(email.To) > 0 {
					recipient = email.To[0]
				}
				results[i].Err = &appErrors.ProviderSendError{Recipient: recipient, Err: err}
				return
			}
			results[i].MessageID = messageID
		}(i, email)
	}
	wg.Wait()

	return results
}
