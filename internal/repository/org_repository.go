package repository

import (
	"database/sql"
	"fmt"

	"github.com/Tzelon/thunder-mail/internal/model"
	"github.com/Tzelon/thunder-mail/internal/secrets"
)

type OrgRepositoryInterface interface {
	Create(org *model.Org) error
	GetByAPIKey(apiKeyUUID string) (*model.Org, error)
	GetByDomain(domain string) (*model.Org, error)
	UpdateByDomain(domain string, fields model.OrgUpdate) error
	ListAll() ([]*model.Org, error)
	IncrementSentCount(orgID, n int) error
}

type OrgRepository struct {
	DB     *sql.DB
	Cipher *secrets.Cipher
}

const orgColumns = `id, domain, name, api_key_uuid, ses_access_key_id,
	COALESCE(ses_secret_access_key_encrypted, ''), ses_region, sqs_url,
	white_label_url, sent_emails_count, created_at, updated_at`

func (r *OrgRepository) Create(org *model.Org) error {
	encrypted := ""
	if org.SESSecretAccessKey != "" {
		var err error
		encrypted, err = r.Cipher.Encrypt(org.SESSecretAccessKey)
		if err != nil {
			return err
		}
	}
	query := `
        INSERT INTO orgs (domain, name, api_key_uuid, ses_access_key_id,
            ses_secret_access_key_encrypted, ses_region, sqs_url, white_label_url,
            sent_emails_count, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, NOW(), NOW())
        RETURNING id
    `
	return r.DB.QueryRow(query,
		org.Domain, org.Name, org.APIKeyUUID, org.SESAccessKeyID,
		encrypted, org.SESRegion, org.SQSUrl, org.WhiteLabelURL,
	).Scan(&org.ID)
}

func (r *OrgRepository) GetByAPIKey(apiKeyUUID string) (*model.Org, error) {
	return r.getOne(`SELECT `+orgColumns+` FROM orgs WHERE api_key_uuid=$1`, apiKeyUUID)
}

func (r *OrgRepository) GetByDomain(domain string) (*model.Org, error) {
	return r.getOne(`SELECT `+orgColumns+` FROM orgs WHERE domain=$1`, domain)
}

func (r *OrgRepository) getOne(query string, arg any) (*model.Org, error) {
	var o model.Org
	var encrypted string
	err := r.DB.QueryRow(query, arg).Scan(
		&o.ID, &o.Domain, &o.Name, &o.APIKeyUUID, &o.SESAccessKeyID,
		&encrypted, &o.SESRegion, &o.SQSUrl, &o.WhiteLabelURL,
		&o.SentEmailsCount, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if encrypted != "" {
		o.SESSecretAccessKey, err = r.Cipher.Decrypt(encrypted)
		if err != nil {
			return nil, fmt.Errorf("org %s: decrypt secret key: %w", o.Domain, err)
		}
	}
	return &o, nil
}

// UpdateByDomain patches only the fields present in the update. The API key
// is not updatable through this path.
func (r *OrgRepository) UpdateByDomain(domain string, fields model.OrgUpdate) error {
	set := ""
	args := []interface{}{}
	argPos := 1

	add := func(column string, value interface{}) {
		if set != "" {
			set += ", "
		}
		set += fmt.Sprintf("%s=$%d", column, argPos)
		args = append(args, value)
		argPos++
	}

	if fields.Name != nil {
		add("name", *fields.Name)
	}
	if fields.SESAccessKeyID != nil {
		add("ses_access_key_id", *fields.SESAccessKeyID)
	}
	if fields.SESSecretAccessKey != nil {
		encrypted, err := r.Cipher.Encrypt(*fields.SESSecretAccessKey)
		if err != nil {
			return err
		}
		add("ses_secret_access_key_encrypted", encrypted)
	}
	if fields.SESRegion != nil {
		add("ses_region", *fields.SESRegion)
	}
	if fields.SQSUrl != nil {
		add("sqs_url", *fields.SQSUrl)
	}
	if fields.WhiteLabelURL != nil {
		add("white_label_url", *fields.WhiteLabelURL)
	}
	if set == "" {
		return nil
	}

	query := fmt.Sprintf("UPDATE orgs SET %s, updated_at=NOW() WHERE domain=$%d", set, argPos)
	args = append(args, domain)

	res, err := r.DB.Exec(query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("no org for domain %s", domain)
	}
	return nil
}

func (r *OrgRepository) ListAll() ([]*model.Org, error) {
	rows, err := r.DB.Query(`SELECT ` + orgColumns + ` FROM orgs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orgs := []*model.Org{}
	for rows.Next() {
		var o model.Org
		var encrypted string
		if err := rows.Scan(
			&o.ID, &o.Domain, &o.Name, &o.APIKeyUUID, &o.SESAccessKeyID,
			&encrypted, &o.SESRegion, &o.SQSUrl, &o.WhiteLabelURL,
			&o.SentEmailsCount, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if encrypted != "" {
			if o.SESSecretAccessKey, err = r.Cipher.Decrypt(encrypted); err != nil {
				return nil, fmt.Errorf("org %s: decrypt secret key: %w", o.Domain, err)
			}
		}
		orgs = append(orgs, &o)
	}
	return orgs, rows.Err()
}

// IncrementSentCount bumps the monotonically increasing sent-email counter.
func (r *OrgRepository) IncrementSentCount(orgID, n int) error {
	_, err := r.DB.Exec(`UPDATE orgs SET sent_emails_count = sent_emails_count + $1, updated_at=NOW() WHERE id=$2`, n, orgID)
	return err
}

var _ OrgRepositoryInterface = (*OrgRepository)(nil)
