package repository

import (
	"context"
	"database/sql"
	"errors"

	appErrors "github.com/unclebandit/dcrm-backend/internal/errors"
	"github.com/unclebandit/dcrm-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	GetByID(ctx context.Context, id int) (*model.Campaign, error)

	// Scope membership
	HasLead(ctx context.Context, campaignID, leadID int) (bool, error)
	HasMessage(ctx context.Context, campaignID, messageID int) (bool, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

// ====================== Campaigns ======================

func (r *CampaignRepository) GetByID(ctx context.Context, id int) (*model.Campaign, error) {
	query := `
        SELECT id, name, short_name, is_active, start_date, end_date, created_at
        FROM campaigns WHERE id=$1
    `
	var c model.Campaign
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.ShortName, &c.IsActive, &c.StartDate, &c.EndDate, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return &c, nil
}

// ====================== Scope ======================

func (r *CampaignRepository) HasLead(ctx context.Context, campaignID, leadID int) (bool, error) {
	return r.exists(ctx,
		`SELECT EXISTS (SELECT 1 FROM campaign_leads WHERE campaign_id=$1 AND lead_id=$2)`,
		campaignID, leadID)
}

func (r *CampaignRepository) HasMessage(ctx context.Context, campaignID, messageID int) (bool, error) {
	return r.exists(ctx,
		`SELECT EXISTS (SELECT 1 FROM campaign_messages WHERE campaign_id=$1 AND message_id=$2)`,
		campaignID, messageID)
}

func (r *CampaignRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var ok bool
	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
