package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/laporpak-api/internal/models"
	"github.com/noah-isme/laporpak-api/pkg/response"
)

type petugasDirectory interface {
	Available(ctx context.Context) ([]models.User, error)
}

// PetugasHandler lists field workers that reports can be assigned to.
type PetugasHandler struct {
	directory petugasDirectory
}

// NewPetugasHandler constructs handler.
func NewPetugasHandler(directory petugasDirectory) *PetugasHandler {
	return &PetugasHandler{directory: directory}
}

// Available godoc
// @Summary Petugas available for assignment
// @Tags Review
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /api/admin/petugas/available [get]
func (h *PetugasHandler) Available(c *gin.Context) {
	users, err := h.directory.Available(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, nil)
}
