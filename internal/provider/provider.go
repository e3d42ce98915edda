// Package provider is the boundary to the external sending provider.
package provider

import (
	"context"

	"github.com/Tzelon/thunder-mail/internal/model"
)

// Quota is the provider's view of an org's daily sending allowance.
type Quota struct {
	Max24HourSend   float64
	SentLast24Hours float64
	MaxSendRate     float64
}

// Available returns the remaining daily allowance.
func (q Quota) Available() float64 {
	return q.Max24HourSend - q.SentLast24Hours
}

// SendInput is one outbound provider call.
type SendInput struct {
	From    string
	To      []string
	CC      []string
	BCC     []string
	Subject string
	Text    string
	HTML    string
}

// EmailProvider sends rendered emails and reports quota for one org's
// credentials.
type EmailProvider interface {
	// Send returns the provider-assigned message id on acceptance.
	Send(ctx context.Context, in SendInput) (string, error)
	GetSendQuota(ctx context.Context) (Quota, error)
}

// Factory builds a provider bound to an org's credentials.
type Factory func(org *model.Org) (EmailProvider, error)
