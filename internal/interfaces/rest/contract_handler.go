package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orbitapp/backend/internal/application/services"
)

type ContractHandler struct {
	contracts *services.ContractService
}

func NewContractHandler(contracts *services.ContractService) *ContractHandler {
	return &ContractHandler{contracts: contracts}
}

func (h *ContractHandler) Create(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req services.CreateContractRequest
	if !BindJSON(c, &req) {
		return
	}
	contract, err := h.contracts.Create(c.Request.Context(), session, req)
	HandleCreate(c, contract, err)
}

func (h *ContractHandler) Update(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req services.UpdateDraftRequest
	if !BindJSON(c, &req) {
		return
	}
	contract, err := h.contracts.UpdateDraft(c.Request.Context(), session, c.Param("id"), req)
	HandleUpdate(c, contract, err)
}

func (h *ContractHandler) Get(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	contract, err := h.contracts.Get(c.Request.Context(), session, c.Param("id"))
	HandleGet(c, contract, err)
}

// List expects ?org=<id>; without it, returns contracts addressed to the
// caller.
func (h *ContractHandler) List(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	if orgID := c.Query("org"); orgID != "" {
		contracts, err := h.contracts.ListByOrganization(c.Request.Context(), session, orgID)
		HandleGet(c, contracts, err)
		return
	}
	contracts, err := h.contracts.ListMine(c.Request.Context(), session)
	HandleGet(c, contracts, err)
}

func (h *ContractHandler) Send(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	result, err := h.contracts.Send(c.Request.Context(), session, c.Param("id"))
	HandleGet(c, result, err)
}

func (h *ContractHandler) Dispute(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	err = h.contracts.Dispute(c.Request.Context(), session, c.Param("id"))
	HandleDelete(c, err)
}

func (h *ContractHandler) Resolve(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	err = h.contracts.Resolve(c.Request.Context(), session, c.Param("id"))
	HandleDelete(c, err)
}

// Public, unauthenticated endpoints

func (h *ContractHandler) PublicView(c *gin.Context) {
	view, err := h.contracts.GetBySignToken(c.Request.Context(), c.Param("token"))
	HandleGet(c, view, err)
}

func (h *ContractHandler) PublicSign(c *gin.Context) {
	var req services.SignRequest
	if !BindJSON(c, &req) {
		return
	}
	result, err := h.contracts.Sign(c.Request.Context(), c.Param("token"), req, c.ClientIP())
	HandleGet(c, result, err)
}

type declineRequest struct {
	Reason string `json:"reason"`
}

func (h *ContractHandler) PublicDecline(c *gin.Context) {
	var req declineRequest
	if !BindJSON(c, &req) {
		return
	}
	if err := h.contracts.Decline(c.Request.Context(), c.Param("token"), req.Reason); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ContractHandler) PublicSubmitView(c *gin.Context) {
	view, err := h.contracts.GetBySubmitToken(c.Request.Context(), c.Param("token"))
	HandleGet(c, view, err)
}

type submitWorkRequest struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message" binding:"required"`
}

func (h *ContractHandler) PublicSubmitWork(c *gin.Context) {
	var req submitWorkRequest
	if !BindJSON(c, &req) {
		return
	}
	if err := h.contracts.SubmitWork(c.Request.Context(), c.Param("token"), req.TaskID, req.Message); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}
