package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/orbitapp/backend/internal/application/services"
)

type QCHandler struct {
	qc *services.QCService
}

func NewQCHandler(qc *services.QCService) *QCHandler {
	return &QCHandler{qc: qc}
}

type recordPassRequest struct {
	Score  float64  `json:"score"`
	Passed bool     `json:"passed"`
	Weight *float64 `json:"weight"`
	Notes  string   `json:"notes"`
}

func (h *QCHandler) RecordPass(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req recordPassRequest
	if !BindJSON(c, &req) {
		return
	}
	review, err := h.qc.RecordPass(c.Request.Context(), session, services.RecordPassRequest{
		TaskID: c.Param("id"),
		Score:  req.Score,
		Passed: req.Passed,
		Weight: req.Weight,
		Notes:  req.Notes,
	})
	HandleCreate(c, review, err)
}

func (h *QCHandler) ListPasses(c *gin.Context) {
	reviews, err := h.qc.ListPasses(c.Request.Context(), c.Param("id"))
	HandleGet(c, reviews, err)
}

type decisionRequest struct {
	Approve bool `json:"approve"`
}

func (h *QCHandler) Decide(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req decisionRequest
	if !BindJSON(c, &req) {
		return
	}
	task, err := h.qc.Decide(c.Request.Context(), session, c.Param("id"), req.Approve)
	HandleUpdate(c, task, err)
}
