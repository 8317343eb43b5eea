package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/orbitapp/backend/internal/application/services"
)

type ProjectHandler struct {
	projects *services.ProjectService
}

func NewProjectHandler(projects *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

func (h *ProjectHandler) Create(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req services.CreateProjectRequest
	if !BindJSON(c, &req) {
		return
	}
	project, err := h.projects.Create(c.Request.Context(), session, req)
	HandleCreate(c, project, err)
}

func (h *ProjectHandler) Get(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	project, err := h.projects.Get(c.Request.Context(), session, c.Param("id"))
	HandleGet(c, project, err)
}

// List expects ?org=<id>.
func (h *ProjectHandler) List(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	projects, err := h.projects.List(c.Request.Context(), session, c.Query("org"))
	HandleGet(c, projects, err)
}

func (h *ProjectHandler) Update(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req services.UpdateProjectRequest
	if !BindJSON(c, &req) {
		return
	}
	project, err := h.projects.Update(c.Request.Context(), session, c.Param("id"), req)
	HandleUpdate(c, project, err)
}

type accessRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Level  string `json:"level" binding:"required"`
}

func (h *ProjectHandler) GrantAccess(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req accessRequest
	if !BindJSON(c, &req) {
		return
	}
	err = h.projects.GrantAccess(c.Request.Context(), session, c.Param("id"), req.UserID, req.Level)
	HandleDelete(c, err)
}

func (h *ProjectHandler) RevokeAccess(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	err = h.projects.RevokeAccess(c.Request.Context(), session, c.Param("id"), c.Param("userId"))
	HandleDelete(c, err)
}

func (h *ProjectHandler) ListAccess(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	grants, err := h.projects.ListAccess(c.Request.Context(), session, c.Param("id"))
	HandleGet(c, grants, err)
}
