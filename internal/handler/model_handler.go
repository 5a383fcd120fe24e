package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fnolguard/internal/invoker"
)

// ModelCatalog lists the configured model identities.
type ModelCatalog interface {
	List() []invoker.ModelInfo
}

// ModelHandler handles model listing.
type ModelHandler struct {
	catalog ModelCatalog
}

// NewModelHandler creates a new ModelHandler.
func NewModelHandler(catalog ModelCatalog) *ModelHandler {
	return &ModelHandler{catalog: catalog}
}

// List handles GET /api/v1/models
// @Summary List models
// @Description List configured model identities with their strategy kind and availability
// @Tags models
// @Produce json
// @Success 200 {object} map[string][]invoker.ModelInfo
// @Router /models [get]
func (h *ModelHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": h.catalog.List()})
}
