package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orbitapp/backend/internal/application/services"
)

// GuestHandler serves the unauthenticated trial workspace. The session is
// identified only by the opaque token in the URL.
type GuestHandler struct {
	guests *services.GuestService
}

func NewGuestHandler(guests *services.GuestService) *GuestHandler {
	return &GuestHandler{guests: guests}
}

type startGuestRequest struct {
	ProjectName string `json:"project_name"`
}

func (h *GuestHandler) Start(c *gin.Context) {
	var req startGuestRequest
	// Body is optional here, ignore bind errors on an empty request.
	_ = c.ShouldBindJSON(&req)

	workspace, err := h.guests.Start(c.Request.Context(), req.ProjectName)
	HandleCreate(c, workspace, err)
}

func (h *GuestHandler) Get(c *gin.Context) {
	workspace, err := h.guests.Get(c.Request.Context(), c.Param("token"))
	HandleGet(c, workspace, err)
}

type guestTaskRequest struct {
	Title string `json:"title" binding:"required"`
}

func (h *GuestHandler) AddTask(c *gin.Context) {
	var req guestTaskRequest
	if !BindJSON(c, &req) {
		return
	}
	task, err := h.guests.AddTask(c.Request.Context(), c.Param("token"), req.Title)
	HandleCreate(c, task, err)
}

type moveTaskRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *GuestHandler) MoveTask(c *gin.Context) {
	var req moveTaskRequest
	if !BindJSON(c, &req) {
		return
	}
	err := h.guests.MoveTask(c.Request.Context(), c.Param("token"), c.Param("taskId"), req.Status)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
