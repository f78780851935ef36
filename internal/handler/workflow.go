package handler

import (
	"context"
	"net/http"

	"github.com/designmaster/backend/internal/model"
	"github.com/designmaster/backend/internal/service/workflow"
	"github.com/gin-gonic/gin"
)

type workflowService interface {
	Start(ctx context.Context, req workflow.StartRequest) (*workflow.StartResult, error)
	NextStep(ctx context.Context, req workflow.StepRequest) (*workflow.NextStep, error)
	Submit(ctx context.Context, req workflow.SubmitRequest) (*workflow.SubmitResult, error)
	CompleteStep(ctx context.Context, req workflow.CompleteRequest) (*workflow.CompleteResult, error)
	Generate(ctx context.Context, req workflow.StepRequest) (*workflow.GenerateResult, error)
	Progress(ctx context.Context, req workflow.StepRequest) (*workflow.Progress, error)
	ListPlaceholders(ctx context.Context, req workflow.StepRequest) ([]model.Placeholder, error)
	ListSessions(ctx context.Context, credential string) ([]model.Session, error)
	GetDocument(ctx context.Context, credential string, id uint) (*model.GeneratedDocument, error)
	ListDocuments(ctx context.Context, credential string) ([]model.GeneratedDocument, error)
}

// WorkflowHandler 文档生成流程
type WorkflowHandler struct {
	service workflowService
}

func NewWorkflowHandler(service workflowService) *WorkflowHandler {
	return &WorkflowHandler{service: service}
}

// RegisterRoutes 注册路由
func (h *WorkflowHandler) RegisterRoutes(router *gin.RouterGroup) {
	wf := router.Group("/workflow")
	wf.POST("/start", h.Start)
	wf.GET("/next-step", h.NextStep)
	wf.POST("/submit", h.Submit)
	wf.POST("/complete", h.CompleteStep)
	wf.POST("/generate", h.Generate)
	wf.GET("/progress", h.Progress)
	wf.GET("/placeholders", h.ListPlaceholders)
	wf.GET("/sessions", h.ListSessions)

	docs := router.Group("/documents")
	docs.GET("", h.ListDocuments)
	docs.GET("/:id", h.GetDocument)
}

// StartRequest 开始生成请求
type StartRequest struct {
	TemplateID      uint   `json:"template_id"`
	ProjectRootPath string `json:"project_root_path"`
}

// SubmitRequest 提交占位符内容，Content 为空指针表示缺失
type SubmitRequest struct {
	PlaceholderID uint    `json:"placeholder_id"`
	Content       *string `json:"content"`
	SessionID     string  `json:"session_id"`
}

// CompleteRequest 完成步骤请求
type CompleteRequest struct {
	PromptID  uint   `json:"prompt_id"`
	SessionID string `json:"session_id"`
}

// GenerateRequest 生成请求
type GenerateRequest struct {
	TemplateID uint   `json:"template_id"`
	SessionID  string `json:"session_id"`
}

func (h *WorkflowHandler) Start(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.service.Start(c.Request.Context(), workflow.StartRequest{
		Credential:      credential(c),
		TemplateID:      req.TemplateID,
		ProjectRootPath: req.ProjectRootPath,
	})
	if err != nil {
		respondError(c, "Start", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *WorkflowHandler) NextStep(c *gin.Context) {
	req, ok := stepRequest(c)
	if !ok {
		return
	}
	step, err := h.service.NextStep(c.Request.Context(), req)
	if err != nil {
		respondError(c, "NextStep", err)
		return
	}
	c.JSON(http.StatusOK, NextStepResponse(step))
}

// NextStepResponse 全部完成时返回 no_more_steps 而不是错误
func NextStepResponse(step *workflow.NextStep) gin.H {
	if step.Done {
		return gin.H{
			"no_more_steps": true,
			"message":       "No more steps available",
			"session_id":    step.SessionID,
		}
	}
	return gin.H{
		"prompt_id":  step.Prompt.ID,
		"content":    step.Prompt.Content,
		"order":      step.Prompt.Order,
		"remaining":  step.Remaining,
		"session_id": step.SessionID,
	}
}

func (h *WorkflowHandler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.service.Submit(c.Request.Context(), workflow.SubmitRequest{
		Credential:    credential(c),
		PlaceholderID: req.PlaceholderID,
		Content:       req.Content,
		SessionID:     req.SessionID,
	})
	if err != nil {
		respondError(c, "Submit", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *WorkflowHandler) CompleteStep(c *gin.Context) {
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.service.CompleteStep(c.Request.Context(), workflow.CompleteRequest{
		Credential: credential(c),
		PromptID:   req.PromptID,
		SessionID:  req.SessionID,
	})
	if err != nil {
		respondError(c, "CompleteStep", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *WorkflowHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.service.Generate(c.Request.Context(), workflow.StepRequest{
		Credential: credential(c),
		TemplateID: req.TemplateID,
		SessionID:  req.SessionID,
	})
	if err != nil {
		respondError(c, "Generate", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *WorkflowHandler) Progress(c *gin.Context) {
	req, ok := stepRequest(c)
	if !ok {
		return
	}
	progress, err := h.service.Progress(c.Request.Context(), req)
	if err != nil {
		respondError(c, "Progress", err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

func (h *WorkflowHandler) ListPlaceholders(c *gin.Context) {
	req, ok := stepRequest(c)
	if !ok {
		return
	}
	list, err := h.service.ListPlaceholders(c.Request.Context(), req)
	if err != nil {
		respondError(c, "ListPlaceholders", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"placeholders": list})
}

func (h *WorkflowHandler) ListSessions(c *gin.Context) {
	sessions, err := h.service.ListSessions(c.Request.Context(), credential(c))
	if err != nil {
		respondError(c, "ListSessions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h *WorkflowHandler) ListDocuments(c *gin.Context) {
	docs, err := h.service.ListDocuments(c.Request.Context(), credential(c))
	if err != nil {
		respondError(c, "ListDocuments", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func (h *WorkflowHandler) GetDocument(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	doc, err := h.service.GetDocument(c.Request.Context(), credential(c), id)
	if err != nil {
		respondError(c, "GetDocument", err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func stepRequest(c *gin.Context) (workflow.StepRequest, bool) {
	templateID, ok := queryID(c, "template_id")
	if !ok {
		return workflow.StepRequest{}, false
	}
	return workflow.StepRequest{
		Credential: credential(c),
		TemplateID: templateID,
		SessionID:  c.Query("session_id"),
	}, true
}
