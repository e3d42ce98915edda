package model

import "time"

// Subscriber is a recipient known to an org, created lazily the first time
// the address appears in any destination list. Never deleted; unsubscribing
// flips the flag.
type Subscriber struct {
	OrgID      int       `db:"org_id" json:"org_id"`
	Email      string    `db:"email" json:"email"`
	Subscribed bool      `db:"subscribed" json:"subscribed"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
