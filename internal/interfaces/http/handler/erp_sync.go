package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bizpulse/backend/internal/application/erpconn"
	"github.com/bizpulse/backend/internal/domain/erp"
)

// SyncHandler handles on-demand sync API endpoints
type SyncHandler struct {
	BaseHandler
	orchestrator *erpconn.SyncOrchestrator
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(orchestrator *erpconn.SyncOrchestrator) *SyncHandler {
	return &SyncHandler{
		orchestrator: orchestrator,
	}
}

// SyncRequest represents a manual sync trigger
type SyncRequest struct {
	Domains     []string `json:"domains" binding:"required,min=1"`
	TriggeredBy string   `json:"triggered_by" binding:"max=100"`
}

// Sync runs a synchronous sync over the requested data domains. The response
// reports the outcome even when the run failed partway: precondition failures
// (unknown connection, wrong state, concurrent sync) are errors, anything
// after fetching starts is a recorded result.
//
// POST /api/v1/erp/connections/:id/sync
func (h *SyncHandler) Sync(c *gin.Context) {
	connectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid connection ID format")
		return
	}

	var req SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	triggeredBy := req.TriggeredBy
	if triggeredBy == "" {
		triggeredBy = "api"
	}

	outcome, err := h.orchestrator.Sync(c.Request.Context(), connectionID, req.Domains, erp.SyncTypeManual, triggeredBy)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, outcome)
}
