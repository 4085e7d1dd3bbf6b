package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/dcrm-backend/internal/repository"
)

// PersonalizationWorker renders the personalized text of message assignments.
type PersonalizationWorker struct {
	AssignmentRepo repository.AssignmentRepositoryInterface
	LeadRepo       repository.LeadRepositoryInterface
	MessageRepo    repository.MessageRepositoryInterface
	Logger         *zap.Logger

	// Force re-renders assignments that already have text.
	Force   bool
	Timeout time.Duration
}

func NewPersonalizationWorker(
	assignments repository.AssignmentRepositoryInterface,
	leads repository.LeadRepositoryInterface,
	messages repository.MessageRepositoryInterface,
	logger *zap.Logger,
) *PersonalizationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PersonalizationWorker{
		AssignmentRepo: assignments,
		LeadRepo:       leads,
		MessageRepo:    messages,
		Logger:         logger,
		Timeout:        10 * time.Second,
	}
}

// Handle is the queue handler. The payload is an assignment id.
func (w *PersonalizationWorker) Handle(payload any) error {
	id, ok := payload.(int)
	if !ok {
		w.Logger.Warn("invalid payload type, expected assignment id", zap.Any("payload", payload))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.Timeout)
	defer cancel()
	_, err := w.Personalize(ctx, id)
	return err
}

// Personalize renders and stores one assignment's text. It reports whether
// the assignment was written. Missing rows are not an error so the queue
// does not retry them.
func (w *PersonalizationWorker) Personalize(ctx context.Context, assignmentID int) (bool, error) {
	a, err := w.AssignmentRepo.GetByID(ctx, assignmentID)
	if err != nil {
		return false, fmt.Errorf("load assignment %d: %w", assignmentID, err)
	}
	if a == nil {
		w.Logger.Warn("assignment not found", zap.Int("assignment_id", assignmentID))
		return false, nil
	}
	if a.PersonalizedMsg != "" && !w.Force {
		return false, nil
	}

	lead, err := w.LeadRepo.GetByID(ctx, a.LeadID)
	if err != nil {
		return false, fmt.Errorf("load lead %d: %w", a.LeadID, err)
	}
	msg, err := w.MessageRepo.GetByID(ctx, a.MessageID)
	if err != nil {
		return false, fmt.Errorf("load message %d: %w", a.MessageID, err)
	}
	if lead == nil || msg == nil {
		w.Logger.Warn("assignment references missing lead or message",
			zap.Int("assignment_id", assignmentID),
			zap.Bool("lead_found", lead != nil),
			zap.Bool("message_found", msg != nil),
		)
		return false, nil
	}

	rendered := RenderTemplate(ComposeMessage(msg), LeadPlaceholders(lead))
	if err := w.AssignmentRepo.UpdatePersonalizedMsg(ctx, a.ID, rendered); err != nil {
		return false, fmt.Errorf("store personalized message %d: %w", a.ID, err)
	}

	w.Logger.Info("personalized assignment", zap.Int("assignment_id", a.ID), zap.Int("lead_id", a.LeadID))
	return true, nil
}

// PersonalizeCampaign processes every assignment of the campaign that still
// has no text (all of them with Force) and returns how many were written.
func (w *PersonalizationWorker) PersonalizeCampaign(ctx context.Context, campaignID int) (int, error) {
	ids, err := w.campaignAssignmentIDs(ctx, campaignID)
	if err != nil {
		return 0, fmt.Errorf("list assignments for campaign %d: %w", campaignID, err)
	}

	done := 0
	for _, id := range ids {
		ok, err := w.Personalize(ctx, id)
		if err != nil {
			w.Logger.Error("failed to personalize assignment", zap.Int("assignment_id", id), zap.Error(err))
			continue
		}
		if ok {
			done++
		}
	}
	return done, nil
}

func (w *PersonalizationWorker) campaignAssignmentIDs(ctx context.Context, campaignID int) ([]int, error) {
	if !w.Force {
		return w.AssignmentRepo.ListUnpersonalizedIDs(ctx, campaignID)
	}
	all, err := w.AssignmentRepo.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(all))
	for _, a := range all {
		ids = append(ids, a.ID)
	}
	return ids, nil
}
