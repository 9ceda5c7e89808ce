package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bizpulse/backend/internal/application/kpiquery"
	"github.com/bizpulse/backend/internal/domain/kpi"
	"github.com/bizpulse/backend/internal/interfaces/http/dto"
)

const kpiDateLayout = "2006-01-02"

// KPIHandler handles KPI catalog and computation endpoints
type KPIHandler struct {
	BaseHandler
	queries *kpiquery.QueryService
}

// NewKPIHandler creates a new KPIHandler
func NewKPIHandler(queries *kpiquery.QueryService) *KPIHandler {
	return &KPIHandler{
		queries: queries,
	}
}

// Catalog lists the supported KPI codes with their formulas.
//
// GET /api/v1/erp/kpis
func (h *KPIHandler) Catalog(c *gin.Context) {
	h.Success(c, h.queries.Catalog())
}

// Compute calculates one KPI from the connection's live provider data.
// Period KPIs take start_date/end_date; point-in-time KPIs take as_of_date.
// Debt and recruiting figures, which no provider exposes, come in as
// total_debt/total_equity/total_recruiting_cost/hires query parameters.
//
// GET /api/v1/erp/connections/:id/kpis/:code
func (h *KPIHandler) Compute(c *gin.Context) {
	connectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid connection ID format")
		return
	}

	query := kpiquery.Query{Code: kpi.Code(c.Param("code"))}

	if raw := c.Query("as_of_date"); raw != "" {
		asOf, err := time.Parse(kpiDateLayout, raw)
		if err != nil {
			h.Error(c, 400, dto.ErrCodeValidation, "as_of_date must be YYYY-MM-DD")
			return
		}
		query.AsOf = &asOf
	}

	start := c.Query("start_date")
	end := c.Query("end_date")
	if start != "" || end != "" {
		startDate, err := time.Parse(kpiDateLayout, start)
		if err != nil {
			h.Error(c, 400, dto.ErrCodeValidation, "start_date must be YYYY-MM-DD")
			return
		}
		endDate, err := time.Parse(kpiDateLayout, end)
		if err != nil {
			h.Error(c, 400, dto.ErrCodeValidation, "end_date must be YYYY-MM-DD")
			return
		}
		query.Period = &kpi.Period{Start: startDate, End: endDate}
	}

	if ok := h.bindFinancialInputs(c, &query.Inputs); !ok {
		return
	}

	result, err := h.queries.Compute(c.Request.Context(), connectionID, query)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

func (h *KPIHandler) bindFinancialInputs(c *gin.Context, inputs *kpiquery.FinancialInputs) bool {
	decimalParam := func(name string) (*decimal.Decimal, bool) {
		raw := c.Query(name)
		if raw == "" {
			return nil, true
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			h.Error(c, 400, dto.ErrCodeValidation, name+" must be a decimal number")
			return nil, false
		}
		return &d, true
	}

	var ok bool
	if inputs.TotalDebt, ok = decimalParam("total_debt"); !ok {
		return false
	}
	if inputs.TotalEquity, ok = decimalParam("total_equity"); !ok {
		return false
	}
	if inputs.TotalRecruitingCost, ok = decimalParam("total_recruiting_cost"); !ok {
		return false
	}

	if raw := c.Query("hires"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil || !d.IsInteger() {
			h.Error(c, 400, dto.ErrCodeValidation, "hires must be an integer")
			return false
		}
		hires := int(d.IntPart())
		inputs.Hires = &hires
	}
	return true
}
