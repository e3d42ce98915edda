// internal/service/email_service.go
package service

import (
	"context"
	"net/mail"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appErrors "github.com/Tzelon/thunder-mail/internal/errors"
	"github.com/Tzelon/thunder-mail/internal/model"
	"github.com/Tzelon/thunder-mail/internal/provider"
	"github.com/Tzelon/thunder-mail/internal/repository"
)

const maxRecipientsPerDestination = 50

type EmailService struct {
	Subscribers repository.SubscriberRepositoryInterface
	Activities  repository.ActivityRepositoryInterface
	Orgs        repository.OrgRepositoryInterface
	Providers   provider.Factory
	Dispatcher  *Dispatcher

	PublicHostname string
	DevSendRate    int // operator override; 0 means use the provider rate
	Env            string
	Logger         zerolog.Logger
}

// sendAction is the in-flight aggregate for one request. Ephemeral.
type sendAction struct {
	destinations  []model.Destination
	emails        []model.OutboundEmail
	ratePerSecond int
}

// Send runs the full pipeline for one request: validate, render, consent
// gate, quota guard, create pending activities, inject analytics, dispatch,
// attach message ids. Errors detected before activity creation abort the
// request atomically; later per-recipient failures do not roll back
// siblings.
func (s *EmailService) Send(ctx context.Context, org *model.Org, req *model.SendRequest) (*model.SendReport, error) {
	if err := validateSendRequest(req); err != nil {
		return nil, err
	}

	action := &sendAction{}
	if err := s.resolveTemplates(req, action); err != nil {
		return nil, err
	}

	totalRecipients := countRecipients(action.destinations)

	if err := s.applyConsentGate(org, action); err != nil {
		return nil, err
	}

	p, err := s.Providers(org)
	if err != nil {
		return nil, err
	}
	if err := s.checkQuota(ctx, p, totalRecipients, action); err != nil {
		return nil, err
	}

	if err := s.createActivities(org, req.Source, action); err != nil {
		return nil, err
	}

	host := s.PublicHostname
	if org.WhiteLabelURL != "" {
		host = org.WhiteLabelURL
	}
	for i := range action.emails {
		if err := ApplyAnalytics(host, &action.emails[i], AnalyticsTransforms); err != nil {
			return nil, err
		}
	}

	results := s.Dispatcher.Dispatch(ctx, org.ID, action.ratePerSecond, action.emails, func(ctx context.Context, email model.OutboundEmail) (string, error) {
		return p.Send(ctx, provider.SendInput{
			From:    email.From,
			To:      email.To,
			CC:      email.CC,
			BCC:     email.BCC,
			Subject: email.Subject,
			Text:    email.Text,
			HTML:    email.HTML,
		})
	})

	return s.reconcileResults(org, results), nil
}

func validateSendRequest(req *model.SendRequest) error {
	if _, err := mail.ParseAddress(req.Source); err != nil {
		return appErrors.NewValidation("source", "must be a valid email address")
	}
	if len(req.Destination) == 0 {
		return appErrors.NewValidation("destination", "at least one destination is required")
	}
	for _, d := range req.Destination {
		if len(d.To) == 0 || len(d.To) > maxRecipientsPerDestination {
			return appErrors.NewValidation("destination.to", "must contain between 1 and 50 addresses")
		}
	}
	if req.Message.Subject == "" {
		return appErrors.NewValidation("message.subject", "is required")
	}
	if req.Message.Body.Text == "" && req.Message.Body.HTML == "" {
		return appErrors.NewValidation("message.body", "at least one of text or html is required")
	}
	return nil
}

// resolveTemplates expands the request into one rendered email per
// destination. Destination values override the message-level ones for both
// the subject and every template variable.
func (s *EmailService) resolveTemplates(req *model.SendRequest, action *sendAction) error {
	for _, dest := range req.Destination {
		data, err := MergeTemplateData(req.TemplateData, dest.TemplateData)
		if err != nil {
			return err
		}

		subjectTemplate := req.Message.Subject
		if dest.Subject != "" {
			subjectTemplate = dest.Subject
		}

		subject, err := RenderTemplate(subjectTemplate, data)
		if err != nil {
			return err
		}
		text, err := RenderTemplate(req.Message.Body.Text, data)
		if err != nil {
			return err
		}
		html, err := RenderTemplate(req.Message.Body.HTML, data)
		if err != nil {
			return err
		}

		action.destinations = append(action.destinations, dest)
		action.emails = append(action.emails, model.OutboundEmail{
			From:    req.Source,
			To:      dest.To,
			CC:      dest.CC,
			BCC:     dest.BCC,
			Subject: subject,
			Text:    text,
			HTML:    html,
		})
	}
	return nil
}

// applyConsentGate find-or-creates a subscriber for every recipient and
// strips opted-out addresses from to. A destination left without to
// recipients is dropped; when every destination drops, the request fails
// and nothing is persisted.
func (s *EmailService) applyConsentGate(org *model.Org, action *sendAction) error {
	unsubscribed := map[string]bool{}
	seen := map[string]bool{}

	for _, dest := range action.destinations {
		for _, email := range dest.Recipients() {
			if seen[email] {
				continue
			}
			seen[email] = true

			subscriber, err := s.Subscribers.FindOrCreate(org.ID, email)
			if err != nil {
				return err
			}
			if subscriber != nil && !subscriber.Subscribed {
				unsubscribed[email] = true
			}
		}
	}

	destinations := make([]model.Destination, 0, len(action.destinations))
	emails := make([]model.OutboundEmail, 0, len(action.emails))
	for i, dest := range action.destinations {
		to := []string{}
		for _, email := range dest.To {
			if !unsubscribed[email] {
				to = append(to, email)
			}
		}
		// TODO: filter cc/bcc against consent as well.
		if len(to) == 0 {
			continue
		}
		dest.To = to
		action.emails[i].To = to
		destinations = append(destinations, dest)
		emails = append(emails, action.emails[i])
	}
	action.destinations = destinations
	action.emails = emails

	if len(action.destinations) == 0 {
		return &appErrors.NoValidDestinations{}
	}
	return nil
}

// checkQuota queries the remaining daily allowance before anything is
// persisted or sent. A shortage within the 10-message tolerance proceeds
// with a warning; beyond it the whole request is rejected.
func (s *EmailService) checkQuota(ctx context.Context, p provider.EmailProvider, totalRecipients int, action *sendAction) error {
	quota, err := p.GetSendQuota(ctx)
	if err != nil {
		return err
	}

	available := int(quota.Available())
	switch {
	case available < totalRecipients-10:
		return &appErrors.QuotaExceeded{Available: available, Recipients: totalRecipients}
	case available < totalRecipients:
		s.Logger.Warn().
			Int("available", available).
			Int("recipients", totalRecipients).
			Msg("daily send allowance will be exceeded")
	}

	if quota.MaxSendRate <= 1 && s.Env == "production" {
		s.Logger.Warn().Msg("provider send rate is 1/s; the account looks sandboxed")
	}

	action.ratePerSecond = int(quota.MaxSendRate)
	if s.DevSendRate > 0 {
		action.ratePerSecond = s.DevSendRate
	}
	return nil
}

// createActivities bulk-creates one pending activity per destination and
// stamps its tracking id onto the outgoing email.
func (s *EmailService) createActivities(org *model.Org, sender string, action *sendAction) error {
	activities := make([]*model.Activity, len(action.destinations))
	for i, dest := range action.destinations {
		trackingID := uuid.NewString()
		activities[i] = &model.Activity{
			TrackingID: trackingID,
			Recipient:  dest.To[0],
			Sender:     sender,
			Subject:    action.emails[i].Subject,
			OrgID:      org.ID,
			APIKeyUUID: org.APIKeyUUID,
		}
		action.emails[i].TrackingID = trackingID
	}

	if err := s.Activities.CreatePending(activities); err != nil {
		return err
	}
	return nil
}

// reconcileResults attaches provider message ids, bumps the org counter and
// builds the aggregate report. Send failures are surfaced per destination.
func (s *EmailService) reconcileResults(org *model.Org, results []DispatchResult) *model.SendReport {
	report := &model.SendReport{}
	for _, res := range results {
		result := model.DestinationResult{
			To:         res.Email.To,
			TrackingID: res.Email.TrackingID,
		}
		if res.Err != nil {
			result.Status = "failed"
			result.Error = res.Err.Error()
			report.Failed++
			s.Logger.Error().Err(res.Err).Str("tracking_id", res.Email.TrackingID).Msg("provider send failed")
		} else {
			result.Status = "sent"
			result.MessageID = res.MessageID
			report.Accepted++
			if err := s.Activities.AttachMessageID(res.Email.TrackingID, res.MessageID); err != nil {
				s.Logger.Error().Err(err).Str("tracking_id", res.Email.TrackingID).Msg("failed to attach message id")
			}
		}
		report.Results = append(report.Results, result)
	}

	if report.Accepted > 0 {
		if err := s.Orgs.IncrementSentCount(org.ID, report.Accepted); err != nil {
			s.Logger.Error().Err(err).Int("org_id", org.ID).Msg("failed to bump sent counter")
		}
	}
	return report
}

func countRecipients(destinations []model.Destination) int {
	total := 0
	for _, d := range destinations {
		total += len(d.Recipients())
	}
	return total
}
