// internal/controller/assignment_controller.go
package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/dcrm-backend/internal/errors"
	"github.com/unclebandit/dcrm-backend/internal/model"
	"github.com/unclebandit/dcrm-backend/internal/service"
)

const noLeadsMatched = "no leads matched the selected filters"

type AssignmentController struct {
	AssignmentService *service.AssignmentService
	ResolveTimeout    time.Duration
	Logger            *zap.Logger
}

type assignmentResponse struct {
	BatchID     string                     `json:"batch_id"`
	Created     int                        `json:"created"`
	Skipped     int                        `json:"skipped"`
	Assignments []*model.MessageAssignment `json:"assignments"`
	Message     string                     `json:"message,omitempty"`
}

// AddMessageAssignment handles the admin add-form submission. The form
// carries campaign_id, message_id and either lead_id or the lead_type and
// lead_source filters.
func (c *AssignmentController) AddMessageAssignment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body", "")
		return
	}

	req, field, err := parseAssignmentForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), field)
		return
	}

	ctx := r.Context()
	if c.ResolveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.ResolveTimeout)
		defer cancel()
	}

	result, err := c.AssignmentService.Resolve(ctx, req)
	if err != nil {
		if field, ok := appErrors.IsValidation(err); ok {
			writeError(w, http.StatusBadRequest, err.Error(), field)
			return
		}
		c.log().Error("resolve assignments failed",
			zap.Int("campaign_id", req.CampaignID),
			zap.Int("message_id", req.MessageID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to resolve assignments", "")
		return
	}

	resp := assignmentResponse{
		BatchID:     result.BatchID,
		Created:     len(result.Created),
		Skipped:     result.Skipped,
		Assignments: result.Created,
	}
	if resp.Created == 0 && resp.Skipped == 0 {
		resp.Message = noLeadsMatched
	}
	writeJSON(w, http.StatusCreated, resp)
}

// ListCampaignAssignments returns every assignment of the campaign in the path.
func (c *AssignmentController) ListCampaignAssignments(w http.ResponseWriter, r *http.Request) {
	campaignID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || campaignID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid campaign id", "id")
		return
	}

	list, err := c.AssignmentService.ListAssignments(r.Context(), campaignID)
	if err != nil {
		c.log().Error("list assignments failed", zap.Int("campaign_id", campaignID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list assignments", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": list})
}

func (c *AssignmentController) log() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// parseAssignmentForm reads the submitted ids. A missing campaign or message
// id is left as zero and rejected by the service. A malformed lead_id only
// matters when no filter is chosen, since filters take precedence over it.
func parseAssignmentForm(r *http.Request) (model.AssignmentRequest, string, error) {
	var req model.AssignmentRequest

	campaignID, err := formInt(r, "campaign_id")
	if err != nil {
		return req, "campaign_id", err
	}
	messageID, err := formInt(r, "message_id")
	if err != nil {
		return req, "message_id", err
	}
	req.CampaignID = campaignID
	req.MessageID = messageID
	req.Filter = model.LeadFilter{
		Type:   model.LeadType(r.PostForm.Get("lead_type")),
		Source: model.LeadSource(r.PostForm.Get("lead_source")),
	}.Normalize()

	leadID, err := formInt(r, "lead_id")
	switch {
	case err != nil && req.Filter.IsEmpty():
		return req, "lead_id", err
	case err == nil && leadID > 0:
		req.LeadID = &leadID
	}
	return req, "", nil
}

func formInt(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.PostForm.Get(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg, field string) {
	body := map[string]string{"error": msg}
	if field != "" {
		body["field"] = field
	}
	writeJSON(w, status, body)
}
