package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	appErrors "github.com/unclebandit/dcrm-backend/internal/errors"
	"github.com/unclebandit/dcrm-backend/internal/model"
)

// AssignmentUniqueConstraint guards (campaign_id, lead_id, message_id).
const AssignmentUniqueConstraint = "message_assignments_campaign_lead_message_key"

const uniqueViolation = "23505"

type AssignmentRepositoryInterface interface {
	LeadIDsWithMessage(ctx context.Context, campaignID, messageID int) (map[int]bool, error)
	CreateBatch(ctx context.Context, assignments []*model.MessageAssignment) ([]*model.MessageAssignment, int, error)
	GetByID(ctx context.Context, id int) (*model.MessageAssignment, error)
	ListByCampaign(ctx context.Context, campaignID int) ([]*model.MessageAssignment, error)
	ListUnpersonalizedIDs(ctx context.Context, campaignID int) ([]int, error)
	UpdatePersonalizedMsg(ctx context.Context, id int, msg string) error
}

type AssignmentRepository struct {
	DB *sql.DB
}

const assignmentColumns = `id, campaign_id, lead_id, message_id, personalized_msg,
        scheduled_at, sent_at, responded, created_at`

// LeadIDsWithMessage returns the leads that already hold the message in the campaign.
func (r *AssignmentRepository) LeadIDsWithMessage(ctx context.Context, campaignID, messageID int) (map[int]bool, error) {
	query := `SELECT lead_id FROM message_assignments WHERE campaign_id = $1 AND message_id = $2`

	rows, err := r.DB.QueryContext(ctx, query, campaignID, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := map[int]bool{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// CreateBatch inserts the assignments in one transaction. Rows rejected by
// the unique constraint are rolled back to their savepoint and counted as
// skipped; any other failure rolls the whole batch back.
func (r *AssignmentRepository) CreateBatch(ctx context.Context, assignments []*model.MessageAssignment) ([]*model.MessageAssignment, int, error) {
	created := []*model.MessageAssignment{}
	if len(assignments) == 0 {
		return created, 0, nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin assignment batch: %w", err)
	}
	defer tx.Rollback()

	skipped := 0
	for _, a := range assignments {
		err := insertAssignment(ctx, tx, a)
		if errors.Is(err, appErrors.ErrDuplicateAssignment) {
			skipped++
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		created = append(created, a)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit assignment batch: %w", err)
	}
	return created, skipped, nil
}

func insertAssignment(ctx context.Context, tx *sql.Tx, a *model.MessageAssignment) error {
	if _, err := tx.ExecContext(ctx, `SAVEPOINT assignment_insert`); err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}

	query := `
        INSERT INTO message_assignments (campaign_id, lead_id, message_id, created_at)
        VALUES ($1, $2, $3, NOW())
        RETURNING id, personalized_msg, responded, created_at
    `
	err := tx.QueryRowContext(ctx, query, a.CampaignID, a.LeadID, a.MessageID).
		Scan(&a.ID, &a.PersonalizedMsg, &a.Responded, &a.CreatedAt)
	if err != nil {
		if IsUniqueAssignmentViolation(err) {
			if _, rbErr := tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT assignment_insert`); rbErr != nil {
				return fmt.Errorf("rollback to savepoint: %w", rbErr)
			}
			return appErrors.ErrDuplicateAssignment
		}
		return fmt.Errorf("insert assignment for lead %d: %w", a.LeadID, err)
	}

	if _, err := tx.ExecContext(ctx, `RELEASE SAVEPOINT assignment_insert`); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

// IsUniqueAssignmentViolation reports whether err is Postgres rejecting a
// duplicate (campaign, lead, message) triple.
func IsUniqueAssignmentViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == uniqueViolation && pqErr.Constraint == AssignmentUniqueConstraint
}

// GetByID returns nil, nil when the assignment does not exist.
func (r *AssignmentRepository) GetByID(ctx context.Context, id int) (*model.MessageAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM message_assignments WHERE id = $1`

	a, err := scanAssignment(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func (r *AssignmentRepository) ListByCampaign(ctx context.Context, campaignID int) ([]*model.MessageAssignment, error) {
	query := `SELECT ` + assignmentColumns + `
        FROM message_assignments
        WHERE campaign_id = $1
        ORDER BY id`

	rows, err := r.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := []*model.MessageAssignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

func (r *AssignmentRepository) ListUnpersonalizedIDs(ctx context.Context, campaignID int) ([]int, error) {
	query := `
        SELECT id FROM message_assignments
        WHERE campaign_id = $1 AND personalized_msg = ''
        ORDER BY id
    `
	rows, err := r.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *AssignmentRepository) UpdatePersonalizedMsg(ctx context.Context, id int, msg string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE message_assignments SET personalized_msg = $1 WHERE id = $2`, msg, id)
	return err
}

func scanAssignment(s rowScanner) (*model.MessageAssignment, error) {
	var a model.MessageAssignment
	if err := s.Scan(
		&a.ID, &a.CampaignID, &a.LeadID, &a.MessageID, &a.PersonalizedMsg,
		&a.ScheduledAt, &a.SentAt, &a.Responded, &a.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

var _ AssignmentRepositoryInterface = (*AssignmentRepository)(nil)
