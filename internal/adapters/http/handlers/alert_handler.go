package handlers

import (
	"strings"

	"e2e-transit/internal/core/services"
	"e2e-transit/internal/pkg/pagination"
	"e2e-transit/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AlertHandler serves the dashboard alert widgets
type AlertHandler struct {
	alertService *services.AlertService
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(alertService *services.AlertService) *AlertHandler {
	return &AlertHandler{alertService: alertService}
}

// AlertQuery is accepted as query parameters or as a JSON body
type AlertQuery struct {
	OrgID      string `json:"orgId" query:"orgId"`
	OrgIDSnake string `json:"org_id" query:"org_id"`
	Status     string `json:"status" query:"status"`
}

func (q *AlertQuery) org() string {
	if q.OrgID != "" {
		return strings.TrimSpace(q.OrgID)
	}
	return strings.TrimSpace(q.OrgIDSnake)
}

// parseAlertQuery reads query parameters, then fills gaps from a JSON body
func parseAlertQuery(c *fiber.Ctx) (*AlertQuery, error) {
	var q AlertQuery
	if err := c.QueryParser(&q); err != nil {
		return nil, err
	}
	if len(c.Body()) > 0 && (q.org() == "" || q.Status == "") {
		var body AlertQuery
		if err := c.BodyParser(&body); err != nil {
			return nil, err
		}
		if q.org() == "" {
			q.OrgID = body.org()
		}
		if q.Status == "" {
			q.Status = body.Status
		}
	}
	return &q, nil
}

// CriticalAlerts lists unresolved alerts for an organisation
// @Summary Unresolved critical alerts
// @Description Unresolved alerts of the organisation's trucks, newest first, optionally filtered by status
// @Tags Dashboard
// @Produce json
// @Param orgId query string true "Organisation ID"
// @Param status query string false "Alert status (breakdown, delay, overdue, low mileage, suspicious)"
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/dashboard/alerts/critical [get]
func (h *AlertHandler) CriticalAlerts(c *fiber.Ctx) error {
	q, err := parseAlertQuery(c)
	if err != nil {
		return invalidJSON(c)
	}
	if q.org() == "" {
		return response.InvalidBody(c, "orgId")
	}

	params := pagination.GetParams(c)
	list, total, err := h.alertService.UnresolvedCriticalAlerts(c.UserContext(), q.org(), q.Status, params)
	if err != nil {
		return handleServiceError(c, err, "Error fetching critical alerts")
	}

	if params == nil {
		return response.Success(c, "", list)
	}
	return response.Success(c, "", fiber.Map{
		"data":       list.Data,
		"count":      list.Count,
		"pagination": pagination.GetMeta(params, total),
	})
}

// SuspiciousAlerts returns the monthly suspicious-activity trend
// @Summary Suspicious activity by month
// @Description Suspicious-activity alerts per month (Asia/Kolkata) and the change over the previous month
// @Tags Dashboard
// @Produce json
// @Param orgId query string true "Organisation ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/dashboard/alerts/suspicious [get]
func (h *AlertHandler) SuspiciousAlerts(c *fiber.Ctx) error {
	q, err := parseAlertQuery(c)
	if err != nil {
		return invalidJSON(c)
	}
	if q.org() == "" {
		return response.InvalidBody(c, "orgId")
	}

	summary, err := h.alertService.MonthlySuspiciousActivity(c.UserContext(), q.org())
	if err != nil {
		return handleServiceError(c, err, "Error fetching suspicious alerts")
	}

	return response.Success(c, "", summary)
}
