package handler

import (
	"net/http"

	"github.com/designmaster/backend/internal/service"
	"github.com/gin-gonic/gin"
)

// AuthHandler 注册、登录与凭证管理
type AuthHandler struct {
	service service.UserService
}

func NewAuthHandler(service service.UserService) *AuthHandler {
	return &AuthHandler{service: service}
}

// RegisterRoutes 注册路由
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.GET("/me", h.Me)
	auth.POST("/token", h.RegenerateToken)
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "Register", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user, "auth_token": user.AuthToken})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "Login", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Me 返回当前凭证对应的用户，以及用于 MCP 的 API Token
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.service.Resolve(c.Request.Context(), credential(c))
	if err != nil {
		respondError(c, "Me", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "auth_token": user.AuthToken})
}

func (h *AuthHandler) RegenerateToken(c *gin.Context) {
	token, err := h.service.RegenerateToken(c.Request.Context(), credential(c))
	if err != nil {
		respondError(c, "RegenerateToken", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auth_token": token})
}
