// internal/service/assignment_service.go
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/dcrm-backend/internal/errors"
	"github.com/unclebandit/dcrm-backend/internal/model"
	"github.com/unclebandit/dcrm-backend/internal/queue"
	"github.com/unclebandit/dcrm-backend/internal/repository"
)

type AssignmentService struct {
	Scope          *ScopeService
	AssignmentRepo repository.AssignmentRepositoryInterface
	Queue          queue.Queue
	Topic          string
	Logger         *zap.Logger
}

// ResolveResult is the outcome of one Resolve call.
type ResolveResult struct {
	BatchID string
	Created []*model.MessageAssignment
	Skipped int
}

func (s *AssignmentService) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// Resolve turns an assignment request into persisted message assignments.
// Leads that already hold the message in the campaign are counted in
// Skipped, including those that lose a concurrent insert race.
func (s *AssignmentService) Resolve(ctx context.Context, req model.AssignmentRequest) (*ResolveResult, error) {
	if _, err := s.Scope.RequireCampaign(ctx, req.CampaignID); err != nil {
		return nil, err
	}
	if err := s.Scope.RequireMessage(ctx, req.CampaignID, req.MessageID); err != nil {
		return nil, err
	}

	filter := req.Filter.Normalize()
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	leadIDs, err := s.targetLeads(ctx, req, filter)
	if err != nil {
		return nil, err
	}

	result := &ResolveResult{
		BatchID: uuid.NewString(),
		Created: []*model.MessageAssignment{},
	}
	logger := s.log().With(
		zap.String("batch_id", result.BatchID),
		zap.Int("campaign_id", req.CampaignID),
		zap.Int("message_id", req.MessageID),
	)

	if len(leadIDs) == 0 {
		logger.Info("no leads matched assignment request",
			zap.String("lead_type", string(filter.Type)),
			zap.String("lead_source", string(filter.Source)),
		)
		return result, nil
	}

	existing, err := s.AssignmentRepo.LeadIDsWithMessage(ctx, req.CampaignID, req.MessageID)
	if err != nil {
		return nil, fmt.Errorf("load existing assignments: %w", err)
	}

	pending := []*model.MessageAssignment{}
	for _, leadID := range leadIDs {
		if existing[leadID] {
			result.Skipped++
			continue
		}
		pending = append(pending, &model.MessageAssignment{
			CampaignID: req.CampaignID,
			LeadID:     leadID,
			MessageID:  req.MessageID,
		})
	}

	created, raced, err := s.AssignmentRepo.CreateBatch(ctx, pending)
	if err != nil {
		logger.Error("failed to create message assignments", zap.Int("pending", len(pending)), zap.Error(err))
		return nil, fmt.Errorf("create message assignments: %w", err)
	}
	result.Created = created
	result.Skipped += raced

	logger.Info("resolved message assignments",
		zap.Int("targeted", len(leadIDs)),
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", result.Skipped),
		zap.Int("raced", raced),
	)

	s.publish(logger, result.Created)
	return result, nil
}

// targetLeads applies the precedence rule: filter criteria win over an
// explicit lead.
func (s *AssignmentService) targetLeads(ctx context.Context, req model.AssignmentRequest, filter model.LeadFilter) ([]int, error) {
	if !filter.IsEmpty() {
		leads, err := s.Scope.CampaignLeads(ctx, req.CampaignID, filter)
		if err != nil {
			return nil, err
		}
		ids := make([]int, 0, len(leads))
		for _, l := range leads {
			if filter.Matches(l) {
				ids = append(ids, l.ID)
			}
		}
		return ids, nil
	}

	if req.LeadID == nil {
		return nil, appErrors.NewEmptySelection()
	}
	if err := s.Scope.RequireLead(ctx, req.CampaignID, *req.LeadID); err != nil {
		return nil, err
	}
	return []int{*req.LeadID}, nil
}

func validateFilter(f model.LeadFilter) error {
	if f.Type != "" && !f.Type.Valid() {
		return appErrors.NewInvalidFilter("lead_type", string(f.Type))
	}
	if f.Source != "" && !f.Source.Valid() {
		return appErrors.NewInvalidFilter("lead_source", string(f.Source))
	}
	return nil
}

// publish is best effort: the rows are committed, and the worker can be
// re-run per campaign for anything that was not queued.
func (s *AssignmentService) publish(logger *zap.Logger, created []*model.MessageAssignment) {
	if s.Queue == nil {
		return
	}
	topic := s.Topic
	if topic == "" {
		topic = queue.DefaultAssignmentTopic
	}
	for _, a := range created {
		if err := s.Queue.Publish(topic, a.ID); err != nil {
			logger.Warn("failed to enqueue assignment", zap.Int("assignment_id", a.ID), zap.Error(err))
		}
	}
}

// ListAssignments returns the campaign's assignments ordered by id.
func (s *AssignmentService) ListAssignments(ctx context.Context, campaignID int) ([]*model.MessageAssignment, error) {
	if campaignID <= 0 {
		return []*model.MessageAssignment{}, nil
	}
	return s.AssignmentRepo.ListByCampaign(ctx, campaignID)
}
