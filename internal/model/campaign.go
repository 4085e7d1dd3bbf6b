// internal/model/campaign.go
package model

import "time"

type Campaign struct {
	ID        int        `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	ShortName string     `db:"short_name" json:"short_name"`
	IsActive  bool       `db:"is_active" json:"is_active"`
	StartDate time.Time  `db:"start_date" json:"start_date"`
	EndDate   *time.Time `db:"end_date" json:"end_date,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// Option is one entry of a campaign-scoped dropdown.
type Option struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}
