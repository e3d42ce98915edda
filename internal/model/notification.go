package model

import "time"

// Notification is a parsed feedback event describing the fate of a
// previously sent message. The shape follows the provider's event
// publishing format: a typed event plus a mail block whose messageId
// correlates back to an activity.
type Notification struct {
	EventType string            `json:"eventType"`
	Mail      *NotificationMail `json:"mail"`
	Delivery  *DeliveryDetail   `json:"delivery"`
	Reject    *RejectDetail     `json:"reject"`
	Bounce    *BounceDetail     `json:"bounce"`
	Complaint *ComplaintDetail  `json:"complaint"`
}

type NotificationMail struct {
	Timestamp time.Time `json:"timestamp"`
	MessageID string    `json:"messageId"`
	Source    string    `json:"source"`
}

type DeliveryDetail struct {
	Timestamp            time.Time `json:"timestamp"`
	ProcessingTimeMillis int64     `json:"processingTimeMillis"`
	SMTPResponse         string    `json:"smtpResponse"`
	ReportingMTA         string    `json:"reportingMTA"`
}

type RejectDetail struct {
	Reason string `json:"reason"`
}

type BounceDetail struct {
	Timestamp     time.Time `json:"timestamp"`
	BounceType    string    `json:"bounceType"`
	BounceSubType string    `json:"bounceSubType"`
}

type ComplaintDetail struct {
	Timestamp             time.Time `json:"timestamp"`
	UserAgent             string    `json:"userAgent"`
	ComplaintFeedbackType string    `json:"complaintFeedbackType"`
}
