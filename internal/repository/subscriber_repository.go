package repository

import (
	"database/sql"

	"github.com/Tzelon/thunder-mail/internal/model"
)

type SubscriberRepositoryInterface interface {
	FindOrCreate(orgID int, email string) (*model.Subscriber, error)
	Unsubscribe(orgID int, email string) error
}

type SubscriberRepository struct {
	DB *sql.DB
}

// FindOrCreate is idempotent under concurrency: the unique constraint on
// (org_id, email) is the source of truth, not an application-level lock.
// ON CONFLICT DO NOTHING means a racing identical insert simply falls
// through to the select.
func (r *SubscriberRepository) FindOrCreate(orgID int, email string) (*model.Subscriber, error) {
	insert := `
        INSERT INTO subscribers (org_id, email, subscribed, created_at, updated_at)
        VALUES ($1, $2, TRUE, NOW(), NOW())
        ON CONFLICT (org_id, email) DO NOTHING
    `
	if _, err := r.DB.Exec(insert, orgID, email); err != nil {
		return nil, err
	}

	query := `
        SELECT org_id, email, subscribed, created_at, updated_at
        FROM subscribers
        WHERE org_id=$1 AND email=$2
    `
	var s model.Subscriber
	err := r.DB.QueryRow(query, orgID, email).Scan(&s.OrgID, &s.Email, &s.Subscribed, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// Unsubscribe flips the one-way flag. Subscribers are never deleted.
func (r *SubscriberRepository) Unsubscribe(orgID int, email string) error {
	query := `UPDATE subscribers SET subscribed=FALSE, updated_at=NOW() WHERE org_id=$1 AND email=$2`
	_, err := r.DB.Exec(query, orgID, email)
	return err
}

var _ SubscriberRepositoryInterface = (*SubscriberRepository)(nil)
