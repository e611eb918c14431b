package model

import "time"

// Metadata is the audit block embedded in every table row.
type Metadata struct {
	CreatedAt  time.Time `db:"created_at"  json:"created_at"`
	ModifiedAt time.Time `db:"modified_at" json:"modified_at"`
	CreatedBy  string    `db:"created_by"  json:"created_by"`
	ModifiedBy string    `db:"modified_by" json:"modified_by"`
}

func NewMetadata(actor string, now time.Time) Metadata {
	return Metadata{
		CreatedAt:  now,
		ModifiedAt: now,
		CreatedBy:  actor,
		ModifiedBy: actor,
	}
}

// Touch stamps a modification without altering the creation fields.
func (m *Metadata) Touch(actor string, now time.Time) {
	m.ModifiedAt = now
	m.ModifiedBy = actor
}
