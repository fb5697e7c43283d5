package handlers

import (
	"net/http"

	providerRepo "barberbook/database/repository/provider"

	"github.com/gin-gonic/gin"
)

type ProviderHandler struct {
	Repo providerRepo.ProviderRepository
}

func NewProviderHandler(repo providerRepo.ProviderRepository) *ProviderHandler {
	return &ProviderHandler{Repo: repo}
}

// ListProvidersHandler handles GET /api/providers.
func (h *ProviderHandler) ListProvidersHandler(c *gin.Context) {
	providers, err := h.Repo.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to list providers", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"providers": providers})
}

// GetProviderHandler handles GET /api/providers/:id.
func (h *ProviderHandler) GetProviderHandler(c *gin.Context) {
	p, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Provider not found", err)
		return
	}
	c.JSON(http.StatusOK, p)
}
