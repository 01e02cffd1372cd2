package handlers

import (
	"content-hub-cms/helper"
	"content-hub-cms/services"

	"github.com/gin-gonic/gin"
)

type MaterialHandler struct {
	materialService services.MaterialService
	Helper          *helper.HTTPHelper
}

func NewMaterialHandler(materialService services.MaterialService, h *helper.HTTPHelper) *MaterialHandler {
	return &MaterialHandler{materialService: materialService, Helper: h}
}

// GetMaterial serves the published view of a material. No auth required.
func (h *MaterialHandler) GetMaterial(c *gin.Context) {
	material, err := h.materialService.GetPublishedBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}
	h.Helper.SendSuccess(c, gin.H{"material": material})
}
