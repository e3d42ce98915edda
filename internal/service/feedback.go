// internal/service/feedback.go
package service

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	appErrors "github.com/Tzelon/thunder-mail/internal/errors"
	"github.com/Tzelon/thunder-mail/internal/model"
	"github.com/Tzelon/thunder-mail/internal/repository"
)

// now is stubbed in tests.
var now = time.Now

// FeedbackService maps provider notification events onto activity history.
type FeedbackService struct {
	Activities repository.ActivityRepositoryInterface
	Logger     zerolog.Logger
}

// snsEnvelope is the outer wrapper the queue delivers when the provider
// publishes through a topic: the event JSON is a string in Message.
type snsEnvelope struct {
	Message string `json:"Message"`
}

// ParseNotification unwraps a raw queue message body into a notification.
// Bodies may arrive either wrapped in a topic envelope or as the bare
// event JSON.
func ParseNotification(body []byte) (*model.Notification, error) {
	payload := body
	var envelope snsEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Message != "" {
		payload = []byte(envelope.Message)
	}

	var n model.Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, &appErrors.ConsumerParseError{Detail: err.Error()}
	}
	if n.EventType == "" || n.Mail == nil || n.Mail.MessageID == "" {
		return nil, &appErrors.ConsumerParseError{Detail: "missing eventType or mail.messageId"}
	}
	return &n, nil
}

// ClassifyNotification derives the history entry for a notification.
// An unrecognized event type returns (entry, false) and must be discarded
// by the caller, not treated as an error.
func ClassifyNotification(n *model.Notification) (model.HistoryEntry, bool, error) {
	switch n.EventType {
	case "Send":
		return model.HistoryEntry{
			Status:     model.StatusSend,
			OccurredAt: n.Mail.Timestamp,
		}, true, nil

	case "Delivery":
		if n.Delivery == nil {
			return model.HistoryEntry{}, false, &appErrors.ConsumerParseError{Detail: "Delivery event without delivery block"}
		}
		return model.HistoryEntry{
			Status:     model.StatusDelivery,
			OccurredAt: n.Delivery.Timestamp,
			Meta: map[string]any{
				"processingTimeMillis": n.Delivery.ProcessingTimeMillis,
				"smtpResponse":         n.Delivery.SMTPResponse,
				"reportingMTA":         n.Delivery.ReportingMTA,
			},
		}, true, nil

	case "Reject":
		if n.Reject == nil {
			return model.HistoryEntry{}, false, &appErrors.ConsumerParseError{Detail: "Reject event without reject block"}
		}
		return model.HistoryEntry{
			Status:     model.StatusReject,
			OccurredAt: now(),
			Meta:       map[string]any{"reason": n.Reject.Reason},
		}, true, nil

	case "Bounce":
		if n.Bounce == nil {
			return model.HistoryEntry{}, false, &appErrors.ConsumerParseError{Detail: "Bounce event without bounce block"}
		}
		return model.HistoryEntry{
			Status:     model.StatusBounce,
			OccurredAt: n.Bounce.Timestamp,
			Meta: map[string]any{
				"bounceType":    n.Bounce.BounceType,
				"bounceSubType": n.Bounce.BounceSubType,
			},
		}, true, nil

	case "Complaint":
		if n.Complaint == nil {
			return model.HistoryEntry{}, false, &appErrors.ConsumerParseError{Detail: "Complaint event without complaint block"}
		}
		return model.HistoryEntry{
			Status:     model.StatusComplaint,
			OccurredAt: n.Complaint.Timestamp,
			Meta: map[string]any{
				"userAgent":             n.Complaint.UserAgent,
				"complaintFeedbackType": n.Complaint.ComplaintFeedbackType,
			},
		}, true, nil
	}

	return model.HistoryEntry{}, false, nil
}

// HandleMessage processes one raw queue message. Every return path is
// non-fatal to the poll loop: parse failures are logged and the message is
// still acknowledged to avoid poison-message loops, and a message id with
// no matching activity is silently discarded (the send may predate this
// deployment or belong to another tenant).
func (s *FeedbackService) HandleMessage(body []byte) error {
	notification, err := ParseNotification(body)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("discarding feedback message")
		return nil
	}

	entry, known, err := ClassifyNotification(notification)
	if err != nil {
		s.Logger.Warn().Err(err).Str("event_type", notification.EventType).Msg("discarding feedback message")
		return nil
	}
	if !known {
		s.Logger.Info().
			Str("event_type", notification.EventType).
			Str("message_id", notification.Mail.MessageID).
			Msg("unrecognized feedback event type, discarding")
		return nil
	}

	if err := s.Activities.AppendHistoryByMessageID(notification.Mail.MessageID, entry); err != nil {
		s.Logger.Error().Err(err).Str("message_id", notification.Mail.MessageID).Msg("failed to append history")
		return err
	}
	return nil
}
