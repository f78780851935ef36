package router

import (
	"net/http"
	"strings"

	"github.com/designmaster/backend/config"
	"github.com/designmaster/backend/internal/handler"
	"github.com/designmaster/backend/internal/mcpserver"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/server"
)

func Setup(
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	templateHandler *handler.TemplateHandler,
	workflowHandler *handler.WorkflowHandler,
	sse *server.SSEServer,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-API-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// SSE 是长连接流，不能经过 gzip
	api := r.Group("/api", gzip.Gzip(gzip.DefaultCompression))
	{
		authHandler.RegisterRoutes(api)
		templateHandler.RegisterRoutes(api)
		workflowHandler.RegisterRoutes(api)
	}

	if sse != nil {
		base := strings.TrimRight(cfg.MCP.BasePath, "/")
		r.GET(base+"/sse", mcpserver.Adapt(sse.SSEHandler))
		r.POST(base+"/message", mcpserver.Adapt(sse.MessageHandler))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return r
}
