package model

import "time"

// Org is a tenant. It owns the provider credentials used to send on its
// behalf and the notification queue its delivery feedback arrives on.
type Org struct {
	ID                 int       `db:"id" json:"id"`
	Domain             string    `db:"domain" json:"domain"`
	Name               string    `db:"name" json:"name"`
	APIKeyUUID         string    `db:"api_key_uuid" json:"-"`
	SESAccessKeyID     string    `db:"ses_access_key_id" json:"ses_access_key_id"`
	SESSecretAccessKey string    `db:"-" json:"-"` // decrypted in memory, stored encrypted
	SESRegion          string    `db:"ses_region" json:"ses_region"`
	SQSUrl             string    `db:"sqs_url" json:"sqs_url"`
	WhiteLabelURL      string    `db:"white_label_url" json:"white_label_url"`
	SentEmailsCount    int       `db:"sent_emails_count" json:"sent_emails_count"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// OrgUpdate carries the mutable fields of an org. Nil pointers are left
// untouched. The API key is deliberately not updatable through this path.
type OrgUpdate struct {
	Name               *string `json:"name"`
	SESAccessKeyID     *string `json:"ses_access_key_id"`
	SESSecretAccessKey *string `json:"ses_secret_access_key"`
	SESRegion          *string `json:"ses_region"`
	SQSUrl             *string `json:"sqs_url"`
	WhiteLabelURL      *string `json:"white_label_url"`
}

// HasQueueSettings reports whether the org can run a feedback consumer.
func (o *Org) HasQueueSettings() bool {
	return o.SESAccessKeyID != "" && o.SESSecretAccessKey != "" && o.SESRegion != "" && o.SQSUrl != ""
}
