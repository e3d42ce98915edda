package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/Tzelon/thunder-mail/internal/model"
)

// SandboxProvider accepts every send and mints fake message ids. Used for
// local development and tests instead of real provider credentials.
type SandboxProvider struct {
	mu    sync.Mutex
	seq   int
	Sends []SendInput

	Quota    Quota
	SendRate float64
}

func NewSandboxFactory() Factory {
	return func(org *model.Org) (EmailProvider, error) {
		return &SandboxProvider{
			Quota: Quota{Max24HourSend: 50000, SentLast24Hours: 0, MaxSendRate: 14},
		}, nil
	}
}

func (p *SandboxProvider) Send(ctx context.Context, in SendInput) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	p.Sends = append(p.Sends, in)
	return fmt.Sprintf("sandbox-%06d", p.seq), nil
}

func (p *SandboxProvider) GetSendQuota(ctx context.Context) (Quota, error) {
	return p.Quota, nil
}

var _ EmailProvider = (*SandboxProvider)(nil)
