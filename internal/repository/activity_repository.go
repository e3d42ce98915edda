package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Tzelon/thunder-mail/internal/model"
)

type ActivityRepositoryInterface interface {
	CreatePending(activities []*model.Activity) error
	AttachMessageID(trackingID, messageID string) error
	GetByTrackingID(trackingID string) (*model.Activity, error)
	GetByMessageID(messageID string) (*model.Activity, error)
	AppendHistory(trackingID string, entry model.HistoryEntry) error
	AppendHistoryByMessageID(messageID string, entry model.HistoryEntry) error
	History(trackingID string) ([]model.HistoryEntry, error)
	SetOpened(trackingID string) error
	SetClicked(trackingID string) error
	ListBetween(orgID int, from, to time.Time, limit, offset int) ([]*model.Activity, error)
}

type ActivityRepository struct {
	DB *sql.DB
}

const activityColumns = `tracking_id, COALESCE(message_id, ''), recipient, sender,
	subject, org_id, api_key_uuid, opened, clicked, created_at, updated_at`

// CreatePending bulk-inserts one row per destination recipient together with
// the initial "creating" history entry, inside one transaction so a partial
// failure leaves nothing behind.
func (r *ActivityRepository) CreatePending(activities []*model.Activity) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	insertActivity := `
        INSERT INTO activities (tracking_id, recipient, sender, subject, org_id, api_key_uuid,
            opened, clicked, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, FALSE, FALSE, NOW(), NOW())
    `
	insertHistory := `
        INSERT INTO activity_history (tracking_id, status, occurred_at, meta)
        VALUES ($1, $2, NOW(), '{}')
    `
	for _, a := range activities {
		if _, err := tx.Exec(insertActivity, a.TrackingID, a.Recipient, a.Sender, a.Subject, a.OrgID, a.APIKeyUUID); err != nil {
			return err
		}
		if _, err := tx.Exec(insertHistory, a.TrackingID, model.StatusCreating); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AttachMessageID records the provider-assigned message id exactly once the
// provider accepts the send.
func (r *ActivityRepository) AttachMessageID(trackingID, messageID string) error {
	query := `UPDATE activities SET message_id=$1, updated_at=NOW() WHERE tracking_id=$2`
	_, err := r.DB.Exec(query, messageID, trackingID)
	return err
}

func (r *ActivityRepository) GetByTrackingID(trackingID string) (*model.Activity, error) {
	return r.getOne(`SELECT `+activityColumns+` FROM activities WHERE tracking_id=$1`, trackingID)
}

func (r *ActivityRepository) GetByMessageID(messageID string) (*model.Activity, error) {
	return r.getOne(`SELECT `+activityColumns+` FROM activities WHERE message_id=$1`, messageID)
}

func (r *ActivityRepository) getOne(query string, arg any) (*model.Activity, error) {
	var a model.Activity
	err := r.DB.QueryRow(query, arg).Scan(
		&a.TrackingID, &a.MessageID, &a.Recipient, &a.Sender,
		&a.Subject, &a.OrgID, &a.APIKeyUUID, &a.Opened, &a.Clicked,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// AppendHistory writes one row into the append-only side table. A plain
// INSERT cannot lose a concurrent sibling append, unlike the
// read-modify-write of a JSON column.
func (r *ActivityRepository) AppendHistory(trackingID string, entry model.HistoryEntry) error {
	meta, err := metaJSON(entry.Meta)
	if err != nil {
		return err
	}
	query := `INSERT INTO activity_history (tracking_id, status, occurred_at, meta) VALUES ($1, $2, $3, $4)`
	_, err = r.DB.Exec(query, trackingID, entry.Status, entry.OccurredAt, meta)
	return err
}

// AppendHistoryByMessageID resolves the tracking id first; an unknown
// message id appends nothing and is not an error (the send may predate this
// deployment or belong to another tenant).
func (r *ActivityRepository) AppendHistoryByMessageID(messageID string, entry model.HistoryEntry) error {
	meta, err := metaJSON(entry.Meta)
	if err != nil {
		return err
	}
	query := `
        INSERT INTO activity_history (tracking_id, status, occurred_at, meta)
        SELECT tracking_id, $2, $3, $4 FROM activities WHERE message_id=$1
    `
	_, err = r.DB.Exec(query, messageID, entry.Status, entry.OccurredAt, meta)
	return err
}

func (r *ActivityRepository) History(trackingID string) ([]model.HistoryEntry, error) {
	query := `SELECT status, occurred_at, meta FROM activity_history WHERE tracking_id=$1 ORDER BY id`
	rows, err := r.DB.Query(query, trackingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []model.HistoryEntry{}
	for rows.Next() {
		var e model.HistoryEntry
		var meta []byte
		if err := rows.Scan(&e.Status, &e.OccurredAt, &meta); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Meta); err != nil {
				return nil, err
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SetOpened and SetClicked are one-way flags: the UPDATE is idempotent and
// never transitions back to false.

func (r *ActivityRepository) SetOpened(trackingID string) error {
	_, err := r.DB.Exec(`UPDATE activities SET opened=TRUE, updated_at=NOW() WHERE tracking_id=$1`, trackingID)
	return err
}

func (r *ActivityRepository) SetClicked(trackingID string) error {
	_, err := r.DB.Exec(`UPDATE activities SET clicked=TRUE, updated_at=NOW() WHERE tracking_id=$1`, trackingID)
	return err
}

// ListBetween returns activities created in [from, to) with their history
// loaded, for stats aggregation.
func (r *ActivityRepository) ListBetween(orgID int, from, to time.Time, limit, offset int) ([]*model.Activity, error) {
	query := `
        SELECT ` + activityColumns + `
        FROM activities
        WHERE org_id=$1 AND created_at >= $2 AND created_at < $3
        ORDER BY created_at
        LIMIT $4 OFFSET $5
    `
	rows, err := r.DB.Query(query, orgID, from, to, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := []*model.Activity{}
	for rows.Next() {
		var a model.Activity
		if err := rows.Scan(
			&a.TrackingID, &a.MessageID, &a.Recipient, &a.Sender,
			&a.Subject, &a.OrgID, &a.APIKeyUUID, &a.Opened, &a.Clicked,
			&a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		activities = append(activities, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, a := range activities {
		if a.History, err = r.History(a.TrackingID); err != nil {
			return nil, err
		}
	}
	return activities, nil
}

func metaJSON(meta map[string]any) ([]byte, error) {
	if meta == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(meta)
}

var _ ActivityRepositoryInterface = (*ActivityRepository)(nil)
