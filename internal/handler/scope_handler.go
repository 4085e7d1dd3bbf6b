// internal/handler/scope_handler.go
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/unclebandit/dcrm-backend/internal/model"
)

// ScopeProvider lists the dropdown choices valid for a campaign.
type ScopeProvider interface {
	LeadsForCampaign(ctx context.Context, campaignID int) []model.Option
	MessagesForCampaign(ctx context.Context, campaignID int) []model.Option
}

// ScopeHandler serves the dependent dropdowns of the assignment form.
type ScopeHandler struct {
	Scope ScopeProvider
}

func NewScopeHandler(scope ScopeProvider) *ScopeHandler {
	return &ScopeHandler{Scope: scope}
}

// GetCampaignLeads answers GET ?campaign_id=<id>. A missing or unknown
// campaign yields an empty list, never an error.
func (h *ScopeHandler) GetCampaignLeads(w http.ResponseWriter, r *http.Request) {
	leads := h.Scope.LeadsForCampaign(r.Context(), campaignIDParam(r))
	writeJSON(w, http.StatusOK, map[string]any{"campaign_leads": leads})
}

func (h *ScopeHandler) GetCampaignMessages(w http.ResponseWriter, r *http.Request) {
	messages := h.Scope.MessagesForCampaign(r.Context(), campaignIDParam(r))
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// GetLeadFilterOptions lists the lead types and sources the form can filter on.
func (h *ScopeHandler) GetLeadFilterOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"lead_types":   model.LeadTypeChoices,
		"lead_sources": model.LeadSourceChoices,
	})
}

func campaignIDParam(r *http.Request) int {
	id, err := strconv.Atoi(r.URL.Query().Get("campaign_id"))
	if err != nil || id < 0 {
		return 0
	}
	return id
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
