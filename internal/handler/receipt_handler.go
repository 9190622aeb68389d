package handler

import (
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
	"github.com/noah-isme/school-fees-api/pkg/response"
	"github.com/noah-isme/school-fees-api/pkg/storage"
)

// ReceiptHandler serves archived receipts through signed links. The route is
// public; the token in the query string is the authorization.
type ReceiptHandler struct {
	store  *storage.ReceiptStore
	signer *storage.DownloadSigner
}

// NewReceiptHandler constructs ReceiptHandler.
func NewReceiptHandler(store *storage.ReceiptStore, signer *storage.DownloadSigner) *ReceiptHandler {
	return &ReceiptHandler{store: store, signer: signer}
}

// Download godoc
// @Summary Download an archived receipt via signed link
// @Tags Fees
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Router /receipts/download [get]
func (h *ReceiptHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing download token"))
		return
	}
	_, relPath, _, err := h.signer.Parse(token)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token"))
		return
	}

	file, err := h.store.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "receipt not found"))
		return
	}
	defer file.Close() //nolint:errcheck

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", path.Base(relPath)))
	c.Header("Content-Type", "application/pdf")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}
