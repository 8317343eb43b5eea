package rest

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/orbitapp/backend/internal/application/services"
)

type GamificationHandler struct {
	gamification *services.GamificationService
}

func NewGamificationHandler(gamification *services.GamificationService) *GamificationHandler {
	return &GamificationHandler{gamification: gamification}
}

func (h *GamificationHandler) ListBadges(c *gin.Context) {
	badges, err := h.gamification.ListBadges(c.Request.Context())
	HandleGet(c, badges, err)
}

func (h *GamificationHandler) CreateBadge(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req services.CreateBadgeRequest
	if !BindJSON(c, &req) {
		return
	}
	badge, err := h.gamification.CreateBadge(c.Request.Context(), session, req)
	HandleCreate(c, badge, err)
}

type badgeActiveRequest struct {
	IsActive bool `json:"is_active"`
}

func (h *GamificationHandler) SetBadgeActive(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req badgeActiveRequest
	if !BindJSON(c, &req) {
		return
	}
	err = h.gamification.SetBadgeActive(c.Request.Context(), session, c.Param("id"), req.IsActive)
	HandleDelete(c, err)
}

// MyStats returns the caller's badge environment plus earned awards.
func (h *GamificationHandler) MyStats(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	stats, err := h.gamification.Stats(c.Request.Context(), session.ID)
	if err != nil {
		RespondError(c, err)
		return
	}
	awards, err := h.gamification.ListAwards(c.Request.Context(), session.ID)
	HandleGet(c, gin.H{"stats": stats, "awards": awards}, err)
}

// Progress reports each active badge as met or unmet for the caller.
func (h *GamificationHandler) Progress(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	progress, err := h.gamification.Progress(c.Request.Context(), session.ID)
	HandleGet(c, progress, err)
}

// Evaluate re-checks the caller's badges on demand and returns fresh awards.
func (h *GamificationHandler) Evaluate(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	awards, err := h.gamification.EvaluateUser(c.Request.Context(), session.ID)
	HandleGet(c, awards, err)
}

func (h *GamificationHandler) Leaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	entries, err := h.gamification.Leaderboard(c.Request.Context(), limit)
	HandleGet(c, entries, err)
}
