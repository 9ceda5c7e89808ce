package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bizpulse/backend/internal/application/erpconn"
	"github.com/bizpulse/backend/internal/domain/erp"
)

// ERPConnectionHandler handles connection lifecycle API endpoints
type ERPConnectionHandler struct {
	BaseHandler
	lifecycle *erpconn.LifecycleService
}

// NewERPConnectionHandler creates a new ERPConnectionHandler
func NewERPConnectionHandler(lifecycle *erpconn.LifecycleService) *ERPConnectionHandler {
	return &ERPConnectionHandler{
		lifecycle: lifecycle,
	}
}

// =============================================================================
// Request DTOs
// =============================================================================

// CredentialsRequest carries provider credentials on connection creation.
// Which fields are required depends on the provider; full validation happens
// in the domain layer where the provider type is known.
type CredentialsRequest struct {
	BaseURL       string `json:"base_url" binding:"required,url"`
	Database      string `json:"database"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	APIKey        string `json:"api_key"`
	ClientID      string `json:"client_id"`
	ClientSecret  string `json:"client_secret"`
	SecurityToken string `json:"security_token"`
}

// CreateConnectionRequest represents a request to connect a customer to an ERP
type CreateConnectionRequest struct {
	CustomerID  string             `json:"customer_id" binding:"required,uuid"`
	ERPType     string             `json:"erp_type" binding:"required,providertype"`
	Credentials CredentialsRequest `json:"credentials" binding:"required"`
}

// FieldMappingRequest is one entity-field mapping to validate
type FieldMappingRequest struct {
	Entity     string `json:"entity" binding:"required"`
	SourceName string `json:"source_name" binding:"required"`
	TargetName string `json:"target_name" binding:"required"`
	Required   bool   `json:"required"`
}

// ValidateMappingsRequest represents a mapping validation request
type ValidateMappingsRequest struct {
	Mappings []FieldMappingRequest `json:"mappings" binding:"required,dive"`
}

// HistoryListRequest represents sync-history pagination parameters
type HistoryListRequest struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

func (r *CreateConnectionRequest) toCredentials() erp.Credentials {
	return erp.Credentials{
		ProviderType:  erp.ProviderType(r.ERPType),
		BaseURL:       r.Credentials.BaseURL,
		Database:      r.Credentials.Database,
		Username:      r.Credentials.Username,
		Password:      r.Credentials.Password,
		APIKey:        r.Credentials.APIKey,
		ClientID:      r.Credentials.ClientID,
		ClientSecret:  r.Credentials.ClientSecret,
		SecurityToken: r.Credentials.SecurityToken,
	}
}

// =============================================================================
// Endpoints
// =============================================================================

// Create connects a customer to an ERP provider. The credentials are tested
// against the live provider before anything is stored.
//
// POST /api/v1/erp/connections
func (h *ERPConnectionHandler) Create(c *gin.Context) {
	var req CreateConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	conn, test, err := h.lifecycle.Connect(c.Request.Context(), customerID, erp.ProviderType(req.ERPType), req.toCredentials())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, gin.H{
		"connection": erpconn.NewConnectionResponse(conn),
		"test":       erpconn.NewTestResponse(test),
	})
}

// Test re-tests a stored connection against the live provider.
//
// POST /api/v1/erp/connections/:id/test
func (h *ERPConnectionHandler) Test(c *gin.Context) {
	connectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid connection ID format")
		return
	}

	result, err := h.lifecycle.Test(c.Request.Context(), connectionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, erpconn.NewTestResponse(result))
}

// Reconnect re-validates stored credentials for an errored or disconnected
// connection and moves it back to CONNECTED on success.
//
// POST /api/v1/erp/connections/:id/reconnect
func (h *ERPConnectionHandler) Reconnect(c *gin.Context) {
	connectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid connection ID format")
		return
	}

	conn, err := h.lifecycle.Reconnect(c.Request.Context(), connectionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, erpconn.NewConnectionResponse(conn))
}

// Disconnect takes a connection out of service without deleting it.
//
// POST /api/v1/erp/connections/:id/disconnect
func (h *ERPConnectionHandler) Disconnect(c *gin.Context) {
	connectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid connection ID format")
		return
	}

	conn, err := h.lifecycle.Disconnect(c.Request.Context(), connectionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, erpconn.NewConnectionResponse(conn))
}

// Get returns one connection. Credentials are never included.
//
// GET /api/v1/erp/connections/:id
func (h *ERPConnectionHandler) Get(c *gin.Context) {
	connectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid connection ID format")
		return
	}

	conn, err := h.lifecycle.Get(c.Request.Context(), connectionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, erpconn.NewConnectionResponse(conn))
}

// List returns connections, optionally filtered by customer.
//
// GET /api/v1/erp/connections?customer_id=
func (h *ERPConnectionHandler) List(c *gin.Context) {
	var customerID *uuid.UUID
	if raw := c.Query("customer_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid customer ID format")
			return
		}
		customerID = &id
	}

	conns, err := h.lifecycle.List(c.Request.Context(), customerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]*erpconn.ConnectionResponse, 0, len(conns))
	for i := range conns {
		responses = append(responses, erpconn.NewConnectionResponse(&conns[i]))
	}
	h.Success(c, responses)
}

// Delete removes a connection and its sync history.
//
// DELETE /api/v1/erp/connections/:id
func (h *ERPConnectionHandler) Delete(c *gin.Context) {
	connectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid connection ID format")
		return
	}

	if err := h.lifecycle.Delete(c.Request.Context(), connectionID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// History lists sync runs for a connection, newest first.
//
// GET /api/v1/erp/connections/:id/history?limit=&offset=
func (h *ERPConnectionHandler) History(c *gin.Context) {
	connectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid connection ID format")
		return
	}

	var req HistoryListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	list, err := h.lifecycle.History(c.Request.Context(), connectionID, req.Limit, req.Offset)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, list.Records, list.Total, list.Limit, list.Offset)
}

// ValidateMappings checks configured field mappings against the provider's
// model surface and refreshes the connection's mapping health score.
//
// POST /api/v1/erp/connections/:id/mappings/validate
func (h *ERPConnectionHandler) ValidateMappings(c *gin.Context) {
	connectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid connection ID format")
		return
	}

	var req ValidateMappingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	mappings := make([]erp.FieldMapping, 0, len(req.Mappings))
	for _, m := range req.Mappings {
		mappings = append(mappings, erp.FieldMapping{
			Entity:     m.Entity,
			SourceName: m.SourceName,
			TargetName: m.TargetName,
			Required:   m.Required,
		})
	}

	result, err := h.lifecycle.ValidateMappings(c.Request.Context(), connectionID, mappings)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
