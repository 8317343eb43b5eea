package rest

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orbitapp/backend/internal/application/services"
	"github.com/orbitapp/backend/pkg/constants"
	apperrors "github.com/orbitapp/backend/pkg/errors"
)

// FileHandler stores contract documents on disk and records the path on the
// contract.
type FileHandler struct {
	contracts *services.ContractService
}

func NewFileHandler(contracts *services.ContractService) *FileHandler {
	return &FileHandler{contracts: contracts}
}

// UploadContractPDF accepts a multipart "file" field, saves it under the
// upload directory and attaches it to the draft contract in the URL.
func (h *FileHandler) UploadContractPDF(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.ResponseError: "no file uploaded"})
		return
	}
	if file.Size > constants.MaxContractPDFBytes {
		RespondError(c, apperrors.NewValidationError("file", "document exceeds the maximum upload size"))
		return
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".pdf") {
		RespondError(c, apperrors.NewValidationError("file", "only PDF documents are accepted"))
		return
	}

	if _, err := os.Stat(constants.UploadDir); os.IsNotExist(err) {
		if err := os.Mkdir(constants.UploadDir, 0755); err != nil {
			RespondError(c, apperrors.NewInternalError("failed to create upload directory", err))
			return
		}
	}

	filename := fmt.Sprintf("%d-contract.pdf", time.Now().UnixNano())
	path := filepath.Join(constants.UploadDir, filename)
	if err := c.SaveUploadedFile(file, path); err != nil {
		RespondError(c, apperrors.NewInternalError("failed to save file", err))
		return
	}

	contractID := c.Param("id")
	if err := h.contracts.AttachPDF(c.Request.Context(), session, contractID, path); err != nil {
		os.Remove(path)
		RespondError(c, err)
		return
	}

	RespondData(c, http.StatusCreated, gin.H{
		"path":       path,
		"name":       file.Filename,
		"size_bytes": file.Size,
	})
}

// DownloadContractPDF streams the stored document, with the same visibility
// rules as reading the contract itself.
func (h *FileHandler) DownloadContractPDF(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}

	contract, err := h.contracts.Get(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	if contract.PDFPath == "" {
		RespondError(c, apperrors.NewNotFoundError("document", c.Param("id")))
		return
	}
	if _, err := os.Stat(contract.PDFPath); err != nil {
		RespondError(c, apperrors.NewNotFoundError("document", c.Param("id")))
		return
	}
	c.FileAttachment(contract.PDFPath, filepath.Base(contract.PDFPath))
}
