package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/unclebandit/dcrm-backend/internal/model"
)

type MessageRepositoryInterface interface {
	GetByID(ctx context.Context, id int) (*model.Message, error)
	ListByCampaign(ctx context.Context, campaignID int) ([]*model.Message, error)
}

type MessageRepository struct {
	DB *sql.DB
}

// GetByID returns nil, nil when the message does not exist.
func (r *MessageRepository) GetByID(ctx context.Context, id int) (*model.Message, error) {
	query := `
        SELECT id, subject, intro, content, cta, ps, pps, created_at
        FROM messages
        WHERE id = $1
    `
	var m model.Message
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.Subject, &m.Intro, &m.Content, &m.CTA, &m.PS, &m.PPS, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// ListByCampaign returns the campaign's messages ordered by id.
func (r *MessageRepository) ListByCampaign(ctx context.Context, campaignID int) ([]*model.Message, error) {
	query := `
        SELECT m.id, m.subject, m.intro, m.content, m.cta, m.ps, m.pps, m.created_at
        FROM messages m
        JOIN campaign_messages cm ON cm.message_id = m.id
        WHERE cm.campaign_id = $1
        ORDER BY m.id
    `
	rows, err := r.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []*model.Message{}
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.Subject, &m.Intro, &m.Content, &m.CTA, &m.PS, &m.PPS, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

var _ MessageRepositoryInterface = (*MessageRepository)(nil)
