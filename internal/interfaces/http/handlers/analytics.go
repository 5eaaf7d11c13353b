// internal/interfaces/http/handlers/analytics.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-membership/internal/domain/analytics"
	"github.com/your-org/storefront-membership/internal/interfaces/http/middleware"
)

const defaultReportDays = 30

// AnalyticsHandler serves the membership analytics contract
type AnalyticsHandler struct {
	analyticsService *analytics.Service
	renderer         analytics.Renderer
	log              logrus.FieldLogger
}

// NewAnalyticsHandler creates a new analytics handler. renderer backs the
// pdf export format and may be nil.
func NewAnalyticsHandler(svc *analytics.Service, renderer analytics.Renderer, log logrus.FieldLogger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: svc,
		renderer:         renderer,
		log:              log,
	}
}

// Get handles GET /api/membership/analytics
func (h *AnalyticsHandler) Get(c *gin.Context) {
	queryType := c.DefaultQuery("type", "overview")

	if queryType != "overview" && !middleware.IsStaffFromContext(c) {
		respondError(c, http.StatusForbidden, "Staff access required")
		return
	}

	switch queryType {
	case "overview":
		h.overview(c)
	case "system":
		h.system(c)
	case "report":
		h.report(c)
	case "export":
		h.export(c)
	default:
		respondError(c, http.StatusBadRequest, fmt.Sprintf("Invalid analytics type: %s", queryType))
	}
}

func (h *AnalyticsHandler) overview(c *gin.Context) {
	customerID, ok := h.targetCustomer(c, c.Query("customerId"))
	if !ok {
		return
	}
	if customerID == "" {
		respondError(c, http.StatusBadRequest, "customerId is required")
		return
	}

	overview, err := h.analyticsService.Overview(c.Request.Context(), customerID)
	if err != nil {
		h.internalError(c, "overview", "Failed to retrieve analytics", err)
		return
	}
	respondSuccess(c, http.StatusOK, overview)
}

func (h *AnalyticsHandler) system(c *gin.Context) {
	system, err := h.analyticsService.SystemAnalytics(c.Request.Context())
	if err != nil {
		h.internalError(c, "system", "Failed to retrieve analytics", err)
		return
	}
	respondSuccess(c, http.StatusOK, system)
}

func (h *AnalyticsHandler) report(c *gin.Context) {
	start, end, err := parseRange(c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if end == nil {
		now := time.Now().UTC()
		end = &now
	}
	if start == nil {
		from := end.AddDate(0, 0, -defaultReportDays)
		start = &from
	}

	period := analytics.Period(c.DefaultQuery("period", string(analytics.PeriodDaily)))
	report, err := h.analyticsService.Report(c.Request.Context(), period, *start, *end)
	if err != nil {
		if errors.Is(err, analytics.ErrInvalidReport) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		h.internalError(c, "report", "Failed to retrieve analytics", err)
		return
	}
	respondSuccess(c, http.StatusOK, report)
}

func (h *AnalyticsHandler) export(c *gin.Context) {
	since, until, err := parseRange(c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	filter := analytics.Filter{CustomerID: c.Query("customerId")}
	if since != nil {
		filter.Since = *since
	}
	if until != nil {
		filter.Until = *until
	}
	format := c.DefaultQuery("format", analytics.FormatJSON)

	export, err := h.analyticsService.Export(c.Request.Context(), filter, format, h.renderer)
	if err != nil {
		if errors.Is(err, analytics.ErrUnsupportedFormat) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		h.internalError(c, "export", "Failed to retrieve analytics", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	c.Data(http.StatusOK, export.ContentType, export.Body)
}

// Track handles POST /api/membership/analytics
func (h *AnalyticsHandler) Track(c *gin.Context) {
	var event analytics.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid event body")
		return
	}

	customerID, ok := h.targetCustomer(c, event.CustomerID)
	if !ok {
		return
	}
	event.CustomerID = customerID

	// only staff may backfill events with their own ids and timestamps
	if !middleware.IsStaffFromContext(c) {
		event.ID = ""
		event.Timestamp = time.Time{}
	}

	tracked, err := h.analyticsService.Track(c.Request.Context(), event)
	if err != nil {
		switch {
		case errors.Is(err, analytics.ErrInvalidEvent):
			respondError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, analytics.ErrDuplicateEvent):
			respondError(c, http.StatusConflict, err.Error())
		default:
			h.internalError(c, "track", "Failed to track analytics event", err)
		}
		return
	}
	respondSuccess(c, http.StatusCreated, tracked)
}

// targetCustomer resolves whose data the request is about. Customers may
// only address themselves; staff may address anyone.
func (h *AnalyticsHandler) targetCustomer(c *gin.Context, requested string) (string, bool) {
	own, _ := middleware.GetCustomerIDFromContext(c)
	if requested == "" {
		return own, true
	}
	if requested != own && !middleware.IsStaffFromContext(c) {
		respondError(c, http.StatusForbidden, "Not allowed to access another customer's analytics")
		return "", false
	}
	return requested, true
}

func (h *AnalyticsHandler) internalError(c *gin.Context, action, message string, err error) {
	h.log.WithError(err).WithField("action", action).Error("Analytics request failed")
	respondError(c, http.StatusInternalServerError, message)
}

// parseRange parses optional startDate/endDate query values. Both accept
// RFC 3339 or YYYY-MM-DD; a bare end date includes that whole day.
func parseRange(startValue, endValue string) (*time.Time, *time.Time, error) {
	var start, end *time.Time

	if startValue != "" {
		t, _, err := parseDate(startValue)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid startDate: %s", startValue)
		}
		start = &t
	}

	if endValue != "" {
		t, dateOnly, err := parseDate(endValue)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid endDate: %s", endValue)
		}
		if dateOnly {
			t = t.AddDate(0, 0, 1)
		}
		end = &t
	}

	if start != nil && end != nil && !end.After(*start) {
		return nil, nil, fmt.Errorf("endDate must be after startDate")
	}
	return start, end, nil
}

func parseDate(value string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), false, nil
	}
	t, err := time.Parse("2006-01-02", value)
	return t, true, err
}
