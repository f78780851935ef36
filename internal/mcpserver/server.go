package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/designmaster/backend/internal/model"
	"github.com/designmaster/backend/internal/service/workflow"
	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"k8s.io/klog/v2"
)

const (
	serverName    = "DesignMaster MCP Server"
	serverVersion = "1.0"
)

type authHeaderKey struct{}

type workflowService interface {
	Start(ctx context.Context, req workflow.StartRequest) (*workflow.StartResult, error)
	NextStep(ctx context.Context, req workflow.StepRequest) (*workflow.NextStep, error)
	Submit(ctx context.Context, req workflow.SubmitRequest) (*workflow.SubmitResult, error)
	CompleteStep(ctx context.Context, req workflow.CompleteRequest) (*workflow.CompleteResult, error)
	Generate(ctx context.Context, req workflow.StepRequest) (*workflow.GenerateResult, error)
	ListPlaceholders(ctx context.Context, req workflow.StepRequest) ([]model.Placeholder, error)
}

// Server 以 MCP 工具的形式暴露文档生成流程
type Server struct {
	engine workflowService
	mcp    *server.MCPServer
}

func New(engine workflowService) *Server {
	s := &Server{
		engine: engine,
		mcp: server.NewMCPServer(
			serverName,
			serverVersion,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}
	s.registerTools()
	return s
}

// MCPServer 返回底层 MCP server
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// ServeStdio 通过标准输入输出提供服务，阻塞直到输入关闭
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// NewSSEServer 创建 SSE 传输，连接上的 Authorization 头作为缺省凭证
func (s *Server) NewSSEServer(basePath string, opts ...server.SSEOption) *server.SSEServer {
	options := []server.SSEOption{
		server.WithStaticBasePath(basePath),
		server.WithSSEContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return context.WithValue(ctx, authHeaderKey{}, r.Header.Get("Authorization"))
		}),
	}
	options = append(options, opts...)
	return server.NewSSEServer(s.mcp, options...)
}

// Adapt 将标准的 http.Handler 适配为 Gin 框架可用的处理函数。
func Adapt(fn func() http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		handler := fn()
		handler.ServeHTTP(c.Writer, c.Request)
	}
}

func (s *Server) registerTools() {
	apiKey := mcp.WithString("api_key", mcp.Description("API token of the caller; defaults to the Authorization header of the connection"))
	sessionID := mcp.WithString("session_id", mcp.Description("Optional generation session id; omit to use the template's shared progress"))

	s.mcp.AddTool(mcp.NewTool("start_document_generation",
		mcp.WithDescription("Start generating a design document. With template_id a private generation session is created."),
		mcp.WithString("project_root_path", mcp.Description("Root path of the project the document describes")),
		mcp.WithNumber("template_id", mcp.Description("Template to generate from")),
		apiKey,
	), s.handleStart)

	s.mcp.AddTool(mcp.NewTool("get_next_step",
		mcp.WithDescription("Get the next incomplete prompt in the sequence"),
		mcp.WithNumber("template_id", mcp.Description("Template id; optional when session_id is given")),
		sessionID,
		apiKey,
	), s.handleNextStep)

	s.mcp.AddTool(mcp.NewTool("list_placeholders",
		mcp.WithDescription("List the placeholders of a template with their description, example and current content"),
		mcp.WithNumber("template_id", mcp.Description("Template id; optional when session_id is given")),
		sessionID,
		apiKey,
	), s.handleListPlaceholders)

	s.mcp.AddTool(mcp.NewTool("submit_placeholder_content",
		mcp.WithDescription("Submit content for a placeholder. Re-submission overwrites. Does not complete the prompt."),
		mcp.WithNumber("placeholder_id", mcp.Required(), mcp.Description("Placeholder id")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Content to substitute")),
		sessionID,
		apiKey,
	), s.handleSubmit)

	s.mcp.AddTool(mcp.NewTool("complete_step",
		mcp.WithDescription("Mark a prompt as completed"),
		mcp.WithNumber("prompt_id", mcp.Required(), mcp.Description("Prompt id returned by get_next_step")),
		sessionID,
		apiKey,
	), s.handleComplete)

	s.mcp.AddTool(mcp.NewTool("generate_complete_document",
		mcp.WithDescription("Generate the complete design document once every prompt is completed"),
		mcp.WithNumber("template_id", mcp.Description("Template id; optional when session_id is given")),
		sessionID,
		apiKey,
	), s.handleGenerate)
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	templateID, err := uintArg(request, "template_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.engine.Start(ctx, workflow.StartRequest{
		Credential:      credential(ctx, request),
		TemplateID:      templateID,
		ProjectRootPath: request.GetString("project_root_path", ""),
	})
	return toolResult("start_document_generation", result, err)
}

func (s *Server) handleNextStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := stepRequest(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	step, err := s.engine.NextStep(ctx, req)
	if err != nil {
		return toolResult("get_next_step", nil, err)
	}
	if step.Done {
		return toolResult("get_next_step", map[string]any{
			"no_more_steps": true,
			"message":       "No more steps available",
			"session_id":    step.SessionID,
		}, nil)
	}
	return toolResult("get_next_step", map[string]any{
		"prompt_id":  step.Prompt.ID,
		"content":    step.Prompt.Content,
		"order":      step.Prompt.Order,
		"remaining":  step.Remaining,
		"session_id": step.SessionID,
	}, nil)
}

func (s *Server) handleListPlaceholders(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := stepRequest(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	list, err := s.engine.ListPlaceholders(ctx, req)
	return toolResult("list_placeholders", map[string]any{"placeholders": list}, err)
}

func (s *Server) handleSubmit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	placeholderID, err := uintArg(request, "placeholder_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var content *string
	if v, ok := request.GetArguments()["content"].(string); ok {
		content = &v
	}
	result, err := s.engine.Submit(ctx, workflow.SubmitRequest{
		Credential:    credential(ctx, request),
		PlaceholderID: placeholderID,
		Content:       content,
		SessionID:     request.GetString("session_id", ""),
	})
	return toolResult("submit_placeholder_content", result, err)
}

func (s *Server) handleComplete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	promptID, err := uintArg(request, "prompt_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.engine.CompleteStep(ctx, workflow.CompleteRequest{
		Credential: credential(ctx, request),
		PromptID:   promptID,
		SessionID:  request.GetString("session_id", ""),
	})
	return toolResult("complete_step", result, err)
}

func (s *Server) handleGenerate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := stepRequest(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.engine.Generate(ctx, req)
	if err != nil {
		return toolResult("generate_complete_document", nil, err)
	}
	return toolResult("generate_complete_document", map[string]any{
		"message":          "Document generated successfully",
		"document_content": result.Document,
		"document_id":      result.DocumentID,
		"session_id":       result.SessionID,
	}, nil)
}

// toolResult 业务错误以工具错误结果返回，不作为协议错误
func toolResult(tool string, payload any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		var incomplete *workflow.IncompleteStepsError
		if errors.As(err, &incomplete) {
			data, _ := json.Marshal(map[string]any{
				"error":           "Not all steps are completed",
				"remaining_count": incomplete.Remaining,
			})
			return mcp.NewToolResultError(string(data)), nil
		}
		if errors.Is(err, workflow.ErrAccessDenied) {
			return mcp.NewToolResultError("Access denied"), nil
		}
		klog.V(6).Infof("%s: %v", tool, err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal result: %w", tool, err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func stepRequest(ctx context.Context, request mcp.CallToolRequest) (workflow.StepRequest, error) {
	templateID, err := uintArg(request, "template_id")
	if err != nil {
		return workflow.StepRequest{}, err
	}
	return workflow.StepRequest{
		Credential: credential(ctx, request),
		TemplateID: templateID,
		SessionID:  request.GetString("session_id", ""),
	}, nil
}

// credential 优先使用 api_key 参数，其次是 SSE 连接上的 Authorization 头
func credential(ctx context.Context, request mcp.CallToolRequest) string {
	if key := request.GetString("api_key", ""); key != "" {
		return key
	}
	if header, ok := ctx.Value(authHeaderKey{}).(string); ok {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

// uintArg 参数缺省时返回 0，JSON 数字和数字字符串均可
func uintArg(request mcp.CallToolRequest, name string) (uint, error) {
	raw, ok := request.GetArguments()[name]
	if !ok || raw == nil {
		return 0, nil
	}
	switch v := raw.(type) {
	case float64:
		if v < 0 || v != float64(uint(v)) {
			return 0, fmt.Errorf("%s must be a positive integer", name)
		}
		return uint(v), nil
	case string:
		if v == "" {
			return 0, nil
		}
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("%s must be a positive integer", name)
		}
		return uint(id), nil
	default:
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
}
