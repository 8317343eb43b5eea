package rest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orbitapp/backend/pkg/auth"
	"github.com/orbitapp/backend/pkg/constants"
	apperrors "github.com/orbitapp/backend/pkg/errors"
)

// GetUserFromContext extracts the authenticated session placed by the auth
// middleware.
func GetUserFromContext(c *gin.Context) (*auth.UserSession, error) {
	value, exists := c.Get(constants.ContextKeyUser)
	if !exists {
		return nil, errors.New("no authenticated user in context")
	}
	user, ok := value.(auth.UserSession)
	if !ok {
		return nil, fmt.Errorf("unexpected session type %T", value)
	}
	return &user, nil
}

// BindJSON binds the request body and answers 400 on failure. Returns false
// when the handler should stop.
func BindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.ResponseError: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// RespondError maps an application error onto its HTTP status and envelope.
func RespondError(c *gin.Context, err error) {
	c.JSON(apperrors.GetHTTPStatus(err), gin.H{
		constants.ResponseError: err.Error(),
		"code":                  apperrors.GetErrorCode(err),
	})
}

// RespondData wraps a successful payload in the standard envelope.
func RespondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{constants.ResponseData: data})
}

// HandleGet answers a lookup: the error branch, then 200.
func HandleGet(c *gin.Context, data interface{}, err error) {
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondData(c, http.StatusOK, data)
}

// HandleCreate answers a creation: the error branch, then 201.
func HandleCreate(c *gin.Context, data interface{}, err error) {
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondData(c, http.StatusCreated, data)
}

// HandleUpdate answers a mutation returning the fresh resource.
func HandleUpdate(c *gin.Context, data interface{}, err error) {
	HandleGet(c, data, err)
}

// HandleDelete answers a removal with 204 on success.
func HandleDelete(c *gin.Context, err error) {
	if err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
