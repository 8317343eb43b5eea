package rest

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orbitapp/backend/internal/application/services"
)

type AnalyticsHandler struct {
	analytics *services.AnalyticsService
}

func NewAnalyticsHandler(analytics *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

func (h *AnalyticsHandler) Overview(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	overview, err := h.analytics.Overview(c.Request.Context(), session, c.Query("org"))
	HandleGet(c, overview, err)
}

func (h *AnalyticsHandler) Earnings(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	months, _ := strconv.Atoi(c.DefaultQuery("months", "12"))
	buckets, err := h.analytics.Earnings(c.Request.Context(), session, months)
	HandleGet(c, buckets, err)
}

func (h *AnalyticsHandler) Throughput(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	weeks, _ := strconv.Atoi(c.DefaultQuery("weeks", "12"))
	buckets, err := h.analytics.Throughput(c.Request.Context(), session, c.Query("org"), weeks)
	HandleGet(c, buckets, err)
}

func (h *AnalyticsHandler) QCSummary(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	summaries, err := h.analytics.QCSummary(c.Request.Context(), session, c.Query("org"))
	HandleGet(c, summaries, err)
}

type queryRequest struct {
	Query string `json:"query" binding:"required"`
}

// Query runs raw admin SQL through the validator. Admin-only, enforced by
// route middleware and again in the service.
func (h *AnalyticsHandler) Query(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req queryRequest
	if !BindJSON(c, &req) {
		return
	}
	result, err := h.analytics.Query(c.Request.Context(), session, req.Query)
	HandleGet(c, result, err)
}

type exportRequest struct {
	Query  string `json:"query" binding:"required"`
	Format string `json:"format"`
}

// Export streams a validated query result as a csv or json attachment.
func (h *AnalyticsHandler) Export(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req exportRequest
	if !BindJSON(c, &req) {
		return
	}
	data, contentType, err := h.analytics.Export(c.Request.Context(), session, req.Query, req.Format)
	if err != nil {
		RespondError(c, err)
		return
	}

	ext := "json"
	if req.Format == "csv" {
		ext = "csv"
	}
	filename := fmt.Sprintf("orbit-export-%s.%s", time.Now().Format("20060102-150405"), ext)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, data)
}
