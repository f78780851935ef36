package handler

import (
	"net/http"

	"github.com/designmaster/backend/internal/service"
	"github.com/gin-gonic/gin"
)

// TemplateHandler 模板目录
type TemplateHandler struct {
	service service.TemplateService
}

func NewTemplateHandler(service service.TemplateService) *TemplateHandler {
	return &TemplateHandler{service: service}
}

// RegisterRoutes 注册路由
func (h *TemplateHandler) RegisterRoutes(router *gin.RouterGroup) {
	templates := router.Group("/templates")
	templates.GET("", h.Market)
	templates.POST("", h.Create)
	templates.GET("/:id", h.Detail)
	templates.DELETE("/:id", h.Delete)
	templates.POST("/:id/reset", h.ResetProgress)
}

func (h *TemplateHandler) Create(c *gin.Context) {
	var req service.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	detail, err := h.service.Create(c.Request.Context(), credential(c), &req)
	if err != nil {
		respondError(c, "CreateTemplate", err)
		return
	}
	c.JSON(http.StatusCreated, detail)
}

func (h *TemplateHandler) Market(c *gin.Context) {
	result, err := h.service.Market(c.Request.Context(), credential(c))
	if err != nil {
		respondError(c, "Market", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *TemplateHandler) Detail(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	detail, err := h.service.Detail(c.Request.Context(), credential(c), id)
	if err != nil {
		respondError(c, "TemplateDetail", err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *TemplateHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), credential(c), id); err != nil {
		respondError(c, "DeleteTemplate", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *TemplateHandler) ResetProgress(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.ResetProgress(c.Request.Context(), credential(c), id); err != nil {
		respondError(c, "ResetProgress", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
