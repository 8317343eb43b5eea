package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orbitapp/backend/internal/application/services"
	"github.com/orbitapp/backend/pkg/constants"
)

type AuthHandler struct {
	auth  *services.AuthService
	users *services.UserService
}

func NewAuthHandler(auth *services.AuthService, users *services.UserService) *AuthHandler {
	return &AuthHandler{auth: auth, users: users}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if !BindJSON(c, &req) {
		return
	}
	user, err := h.auth.Register(c.Request.Context(), req)
	HandleCreate(c, user, err)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !BindJSON(c, &req) {
		return
	}
	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password,
		c.ClientIP(), c.Request.UserAgent())
	HandleGet(c, result, err)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	token := c.GetString(constants.ContextKeyToken)
	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) Me(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	user, err := h.users.Get(c.Request.Context(), session.ID)
	HandleGet(c, user, err)
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req changePasswordRequest
	if !BindJSON(c, &req) {
		return
	}
	if err := h.auth.ChangePassword(c.Request.Context(), session.ID, req.OldPassword, req.NewPassword); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
