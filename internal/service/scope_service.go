// internal/service/scope_service.go
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/dcrm-backend/internal/errors"
	"github.com/unclebandit/dcrm-backend/internal/model"
	"github.com/unclebandit/dcrm-backend/internal/repository"
)

const (
	scopeLeads    = "leads"
	scopeMessages = "messages"
)

// ScopeCache is the optional read-through cache for dropdown lists.
type ScopeCache interface {
	Get(ctx context.Context, campaignID int, kind string) ([]model.Option, bool, error)
	Set(ctx context.Context, campaignID int, kind string, opts []model.Option) error
}

// ScopeService answers which leads and messages belong to a campaign.
// The dropdown methods never fail: an unselected or unknown campaign is an
// empty list. The Require* methods are the strict variants used when
// resolving assignments.
type ScopeService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	LeadRepo     repository.LeadRepositoryInterface
	MessageRepo  repository.MessageRepositoryInterface
	Cache        ScopeCache
	Logger       *zap.Logger
}

func (s *ScopeService) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// LeadsForCampaign lists the campaign's leads ordered by id.
func (s *ScopeService) LeadsForCampaign(ctx context.Context, campaignID int) []model.Option {
	return s.options(ctx, campaignID, scopeLeads, func() ([]model.Option, error) {
		leads, err := s.LeadRepo.ListByCampaign(ctx, campaignID, model.LeadFilter{})
		if err != nil {
			return nil, err
		}
		opts := make([]model.Option, 0, len(leads))
		for _, l := range leads {
			opts = append(opts, model.Option{ID: l.ID, Text: l.DisplayText()})
		}
		return opts, nil
	})
}

// MessagesForCampaign lists the campaign's messages ordered by id.
func (s *ScopeService) MessagesForCampaign(ctx context.Context, campaignID int) []model.Option {
	return s.options(ctx, campaignID, scopeMessages, func() ([]model.Option, error) {
		messages, err := s.MessageRepo.ListByCampaign(ctx, campaignID)
		if err != nil {
			return nil, err
		}
		opts := make([]model.Option, 0, len(messages))
		for _, m := range messages {
			opts = append(opts, model.Option{ID: m.ID, Text: m.DisplayText()})
		}
		return opts, nil
	})
}

func (s *ScopeService) options(ctx context.Context, campaignID int, kind string, load func() ([]model.Option, error)) []model.Option {
	if campaignID <= 0 {
		return []model.Option{}
	}

	if s.Cache != nil {
		opts, ok, err := s.Cache.Get(ctx, campaignID, kind)
		if err != nil {
			s.log().Warn("scope cache read failed", zap.Int("campaign_id", campaignID), zap.String("kind", kind), zap.Error(err))
		} else if ok {
			return opts
		}
	}

	opts, err := load()
	if err != nil {
		s.log().Error("failed to load campaign scope",
			zap.Int("campaign_id", campaignID), zap.String("kind", kind), zap.Error(err))
		return []model.Option{}
	}

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, campaignID, kind, opts); err != nil {
			s.log().Warn("scope cache write failed", zap.Int("campaign_id", campaignID), zap.String("kind", kind), zap.Error(err))
		}
	}
	return opts
}

// RequireCampaign fails with InvalidReference when the campaign does not exist.
func (s *ScopeService) RequireCampaign(ctx context.Context, campaignID int) (*model.Campaign, error) {
	if campaignID <= 0 {
		return nil, appErrors.NewInvalidReference("campaign_id", campaignID, "campaign is required")
	}
	c, err := s.CampaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		var notFound *appErrors.ErrCampaignNotFound
		if errors.As(err, &notFound) {
			return nil, appErrors.NewInvalidReference("campaign_id", campaignID, "campaign does not exist")
		}
		return nil, fmt.Errorf("load campaign %d: %w", campaignID, err)
	}
	return c, nil
}

// RequireMessage fails with InvalidReference unless the message is in the
// campaign's message scope.
func (s *ScopeService) RequireMessage(ctx context.Context, campaignID, messageID int) error {
	if messageID <= 0 {
		return appErrors.NewInvalidReference("message_id", messageID, "message is required")
	}
	ok, err := s.CampaignRepo.HasMessage(ctx, campaignID, messageID)
	if err != nil {
		return fmt.Errorf("check message %d scope: %w", messageID, err)
	}
	if !ok {
		return appErrors.NewInvalidReference("message_id", messageID, "message is not part of the campaign")
	}
	return nil
}

// RequireLead fails with InvalidReference unless the lead is in the
// campaign's lead scope.
func (s *ScopeService) RequireLead(ctx context.Context, campaignID, leadID int) error {
	if leadID <= 0 {
		return appErrors.NewInvalidReference("lead_id", leadID, "lead does not exist")
	}
	ok, err := s.CampaignRepo.HasLead(ctx, campaignID, leadID)
	if err != nil {
		return fmt.Errorf("check lead %d scope: %w", leadID, err)
	}
	if !ok {
		return appErrors.NewInvalidReference("lead_id", leadID, "lead is not part of the campaign")
	}
	return nil
}

// CampaignLeads returns the campaign's leads matching filter, ordered by id.
// Unlike LeadsForCampaign it bypasses the cache and reports errors.
func (s *ScopeService) CampaignLeads(ctx context.Context, campaignID int, filter model.LeadFilter) ([]*model.Lead, error) {
	leads, err := s.LeadRepo.ListByCampaign(ctx, campaignID, filter)
	if err != nil {
		return nil, fmt.Errorf("list campaign %d leads: %w", campaignID, err)
	}
	return leads, nil
}
