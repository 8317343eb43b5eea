package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/orbitapp/backend/internal/application/services"
)

type PayoutHandler struct {
	payouts *services.PayoutService
	tasks   *services.TaskService
	qc      *services.QCService
}

func NewPayoutHandler(payouts *services.PayoutService, tasks *services.TaskService, qc *services.QCService) *PayoutHandler {
	return &PayoutHandler{payouts: payouts, tasks: tasks, qc: qc}
}

func (h *PayoutHandler) ListByTask(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	// Visibility check rides on task access.
	if _, err := h.tasks.Get(c.Request.Context(), session, c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	payouts, err := h.payouts.ListByTask(c.Request.Context(), c.Param("id"))
	HandleGet(c, payouts, err)
}

func (h *PayoutHandler) ListMine(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	payouts, err := h.payouts.ListMine(c.Request.Context(), session.ID)
	HandleGet(c, payouts, err)
}

// Preview computes the split for a task in review without persisting it.
func (h *PayoutHandler) Preview(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	task, err := h.tasks.Get(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	reviews, err := h.qc.ListPasses(c.Request.Context(), task.ID)
	if err != nil {
		RespondError(c, err)
		return
	}
	result, err := h.payouts.Preview(task, reviews)
	HandleGet(c, result, err)
}

func (h *PayoutHandler) Release(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	p, err := h.payouts.Release(c.Request.Context(), session, c.Param("id"))
	HandleUpdate(c, p, err)
}
