package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/orbitapp/backend/internal/application/services"
)

type OrganizationHandler struct {
	orgs *services.OrganizationService
}

func NewOrganizationHandler(orgs *services.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{orgs: orgs}
}

type createOrgRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *OrganizationHandler) Create(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req createOrgRequest
	if !BindJSON(c, &req) {
		return
	}
	org, err := h.orgs.Create(c.Request.Context(), session, req.Name)
	HandleCreate(c, org, err)
}

func (h *OrganizationHandler) List(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	orgs, err := h.orgs.ListForUser(c.Request.Context(), session.ID)
	HandleGet(c, orgs, err)
}

func (h *OrganizationHandler) Get(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	org, err := h.orgs.Get(c.Request.Context(), session, c.Param("id"))
	HandleGet(c, org, err)
}

func (h *OrganizationHandler) Rename(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req createOrgRequest
	if !BindJSON(c, &req) {
		return
	}
	org, err := h.orgs.Rename(c.Request.Context(), session, c.Param("id"), req.Name)
	HandleUpdate(c, org, err)
}

type addMemberRequest struct {
	Email string `json:"email" binding:"required"`
	Role  string `json:"role" binding:"required"`
}

func (h *OrganizationHandler) AddMember(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req addMemberRequest
	if !BindJSON(c, &req) {
		return
	}
	member, err := h.orgs.AddMember(c.Request.Context(), session, c.Param("id"), req.Email, req.Role)
	HandleCreate(c, member, err)
}

func (h *OrganizationHandler) ListMembers(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	members, err := h.orgs.ListMembers(c.Request.Context(), session, c.Param("id"))
	HandleGet(c, members, err)
}

type memberRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (h *OrganizationHandler) UpdateMemberRole(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req memberRoleRequest
	if !BindJSON(c, &req) {
		return
	}
	err = h.orgs.UpdateMemberRole(c.Request.Context(), session, c.Param("id"), c.Param("userId"), req.Role)
	HandleDelete(c, err)
}

func (h *OrganizationHandler) RemoveMember(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	err = h.orgs.RemoveMember(c.Request.Context(), session, c.Param("id"), c.Param("userId"))
	HandleDelete(c, err)
}
