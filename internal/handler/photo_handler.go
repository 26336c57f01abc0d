package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/laporpak-api/pkg/response"
)

type photoOpener interface {
	OpenPhoto(ctx context.Context, token string) (io.ReadCloser, string, error)
}

// PhotoHandler streams report photos behind signed links.
type PhotoHandler struct {
	photos photoOpener
}

// NewPhotoHandler constructs handler.
func NewPhotoHandler(photos photoOpener) *PhotoHandler {
	return &PhotoHandler{photos: photos}
}

// Show godoc
// @Summary Stream a report photo
// @Tags Reports
// @Produce image/jpeg,image/png
// @Param token path string true "Signed photo token"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /photos/{token} [get]
func (h *PhotoHandler) Show(c *gin.Context) {
	rc, contentType, err := h.photos.OpenPhoto(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer rc.Close()
	c.Header("Cache-Control", "private, max-age=300")
	c.DataFromReader(http.StatusOK, -1, contentType, rc, nil)
}
