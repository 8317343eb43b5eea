package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/orbitapp/backend/internal/application/services"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// List is admin-only, enforced by route middleware.
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	HandleGet(c, users, err)
}

func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	HandleGet(c, user, err)
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req services.UpdateProfileRequest
	if !BindJSON(c, &req) {
		return
	}
	user, err := h.users.UpdateProfile(c.Request.Context(), session.ID, req)
	HandleUpdate(c, user, err)
}

// AdminUpdate is admin-only, enforced by route middleware.
func (h *UserHandler) AdminUpdate(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req services.AdminUpdateRequest
	if !BindJSON(c, &req) {
		return
	}
	user, err := h.users.AdminUpdate(c.Request.Context(), session, c.Param("id"), req)
	HandleUpdate(c, user, err)
}

type setRRequest struct {
	R float64 `json:"r"`
}

// SetR lets the caller pick their salary ratio inside their bounds.
func (h *UserHandler) SetR(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req setRRequest
	if !BindJSON(c, &req) {
		return
	}
	user, err := h.users.SetR(c.Request.Context(), session.ID, req.R)
	HandleUpdate(c, user, err)
}

// Salary returns the caller's fixed/performance mix projection.
func (h *UserHandler) Salary(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	mix, err := h.users.SalaryProjection(c.Request.Context(), session.ID)
	HandleGet(c, mix, err)
}
