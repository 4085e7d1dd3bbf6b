package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/unclebandit/dcrm-backend/internal/model"
)

// LeadRepositoryInterface defines the lead reads used by the services.
type LeadRepositoryInterface interface {
	GetByID(ctx context.Context, id int) (*model.Lead, error)
	ListByCampaign(ctx context.Context, campaignID int, filter model.LeadFilter) ([]*model.Lead, error)
}

type LeadRepository struct {
	DB *sql.DB
}

const leadColumns = `l.id, l.full_name, l.first_name, l.last_name, l.position, l.email,
        l.company_name, l.lead_type, l.source, l.created_at`

// GetByID returns nil, nil when the lead does not exist.
func (r *LeadRepository) GetByID(ctx context.Context, id int) (*model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads l WHERE l.id = $1`

	l, err := scanLead(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return l, nil
}

// ListByCampaign returns the campaign's leads ordered by id. Empty filter
// fields are not applied.
func (r *LeadRepository) ListByCampaign(ctx context.Context, campaignID int, filter model.LeadFilter) ([]*model.Lead, error) {
	query := `SELECT ` + leadColumns + `
        FROM leads l
        JOIN campaign_leads cl ON cl.lead_id = l.id
        WHERE cl.campaign_id = $1`
	args := []any{campaignID}
	argPos := 2

	if filter.Type != "" {
		query += fmt.Sprintf(" AND l.lead_type = $%d", argPos)
		args = append(args, string(filter.Type))
		argPos++
	}
	if filter.Source != "" {
		query += fmt.Sprintf(" AND l.source = $%d", argPos)
		args = append(args, string(filter.Source))
	}
	query += " ORDER BY l.id"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := []*model.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(s rowScanner) (*model.Lead, error) {
	var l model.Lead
	var leadType, source string
	if err := s.Scan(
		&l.ID, &l.FullName, &l.FirstName, &l.LastName, &l.Position, &l.Email,
		&l.CompanyName, &leadType, &source, &l.CreatedAt,
	); err != nil {
		return nil, err
	}
	l.Type = model.LeadType(leadType)
	l.Source = model.LeadSource(source)
	return &l, nil
}

var _ LeadRepositoryInterface = (*LeadRepository)(nil)
