// internal/model/message_assignment.go
package model

import (
	"strings"
	"time"
)

type MessageAssignment struct {
	ID              int        `db:"id" json:"id"`
	CampaignID      int        `db:"campaign_id" json:"campaign_id"`
	LeadID          int        `db:"lead_id" json:"lead_id"`
	MessageID       int        `db:"message_id" json:"message_id"`
	PersonalizedMsg string     `db:"personalized_msg" json:"personalized_msg"`
	ScheduledAt     *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	SentAt          *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	Responded       bool       `db:"responded" json:"responded"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// LeadFilter selects campaign leads by type and/or source. Empty fields match
// every lead.
type LeadFilter struct {
	Type   LeadType   `json:"lead_type,omitempty"`
	Source LeadSource `json:"lead_source,omitempty"`
}

func (f LeadFilter) Normalize() LeadFilter {
	return LeadFilter{
		Type:   LeadType(strings.TrimSpace(string(f.Type))),
		Source: LeadSource(strings.TrimSpace(string(f.Source))),
	}
}

func (f LeadFilter) IsEmpty() bool {
	return f.Type == "" && f.Source == ""
}

func (f LeadFilter) Matches(l *Lead) bool {
	if f.Type != "" && l.Type != f.Type {
		return false
	}
	if f.Source != "" && l.Source != f.Source {
		return false
	}
	return true
}

// AssignmentRequest is one admin form submission. When Filter is non-empty
// it wins over LeadID.
type AssignmentRequest struct {
	CampaignID int
	MessageID  int
	LeadID     *int
	Filter     LeadFilter
}
