package model

import "time"

// Merchant is the tenant root. Every other row is scoped to one merchant.
type Merchant struct {
	BaseModel
	ExternalID   *string    `db:"external_id" json:"external_id"` // remote merchant id, nil until provisioned
	Name         string     `db:"name" json:"name"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	AccessToken  *string    `db:"access_token" json:"-"`
	LastSyncedAt *time.Time `db:"last_synced_at" json:"last_synced_at"`
}

// HasCredential reports whether a non-blank access token is stored.
func (m *Merchant) HasCredential() bool {
	return m.AccessToken != nil && *m.AccessToken != ""
}
