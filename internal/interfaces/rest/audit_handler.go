package rest

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/orbitapp/backend/internal/application/services"
	"github.com/orbitapp/backend/internal/infrastructure/persistence"
)

type AuditHandler struct {
	audit *services.AuditService
}

func NewAuditHandler(audit *services.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List returns audit entries filtered by the query string. Admin-only.
func (h *AuditHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	entries, err := h.audit.List(c.Request.Context(), persistence.AuditFilter{
		OrganizationID: c.Query("org"),
		ActorID:        c.Query("actor"),
		Action:         c.Query("action"),
		ObjectType:     c.Query("object_type"),
		Limit:          limit,
	})
	HandleGet(c, entries, err)
}
