package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Harsh-BH/reviewlens/internal/domain"
	"github.com/Harsh-BH/reviewlens/internal/source"
)

// CatalogHandler lists what a job may be submitted with.
type CatalogHandler struct {
	languages []domain.LanguageInfo
	sources   *source.Registry
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(languages []domain.LanguageInfo, sources *source.Registry) *CatalogHandler {
	return &CatalogHandler{languages: languages, sources: sources}
}

// Languages handles GET /api/v1/languages
func (h *CatalogHandler) Languages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"languages": h.languages,
		"default":   domain.DefaultLanguage,
	})
}

// Sources handles GET /api/v1/sources
func (h *CatalogHandler) Sources(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"sources": h.sources.Kinds(),
		"default": domain.DefaultSource,
	})
}
