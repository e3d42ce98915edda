package model

import "time"

// History statuses an activity can move through. The record is never
// closed; any subset of these may still be appended after "send".
const (
	StatusCreating    = "creating"
	StatusSend        = "send"
	StatusDelivery    = "delivery"
	StatusReject      = "reject"
	StatusBounce      = "bounce"
	StatusComplaint   = "complaint"
	StatusOpened      = "opened"
	StatusClicked     = "clicked"
	StatusUnsubscribe = "unsubscribe"
)

// Activity is the durable record of one attempted delivery to one
// recipient. TrackingID is minted at creation and immutable; MessageID is
// attached once the provider accepts the send and is the correlation key
// for feedback notifications.
type Activity struct {
	TrackingID string    `db:"tracking_id" json:"tracking_id"`
	MessageID  string    `db:"message_id" json:"message_id,omitempty"`
	Recipient  string    `db:"recipient" json:"recipient"`
	Sender     string    `db:"sender" json:"sender"`
	Subject    string    `db:"subject" json:"subject"`
	OrgID      int       `db:"org_id" json:"org_id"`
	APIKeyUUID string    `db:"api_key_uuid" json:"-"`
	Opened     bool      `db:"opened" json:"opened"`
	Clicked    bool      `db:"clicked" json:"clicked"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`

	History []HistoryEntry `db:"-" json:"history,omitempty"`
}

// HistoryEntry is one append-only row in an activity's status history.
// Entries are never removed or reordered.
type HistoryEntry struct {
	Status     string         `json:"status"`
	OccurredAt time.Time      `json:"occurred_at"`
	Meta       map[string]any `json:"meta,omitempty"`
}
