package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/designmaster/backend/internal/model"
	"github.com/designmaster/backend/internal/service/workflow"
	"github.com/gin-gonic/gin"
)

type mockWorkflowService struct {
	workflowService
	NextStepFunc func(ctx context.Context, req workflow.StepRequest) (*workflow.NextStep, error)
	SubmitFunc   func(ctx context.Context, req workflow.SubmitRequest) (*workflow.SubmitResult, error)
	GenerateFunc func(ctx context.Context, req workflow.StepRequest) (*workflow.GenerateResult, error)
}

func (m *mockWorkflowService) NextStep(ctx context.Context, req workflow.StepRequest) (*workflow.NextStep, error) {
	return m.NextStepFunc(ctx, req)
}

func (m *mockWorkflowService) Submit(ctx context.Context, req workflow.SubmitRequest) (*workflow.SubmitResult, error) {
	return m.SubmitFunc(ctx, req)
}

func (m *mockWorkflowService) Generate(ctx context.Context, req workflow.StepRequest) (*workflow.GenerateResult, error) {
	return m.GenerateFunc(ctx, req)
}

func newWorkflowRouter(svc workflowService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewWorkflowHandler(svc).RegisterRoutes(router.Group("/api"))
	return router
}

func doJSON(router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestWorkflowHandlerNextStepDone 验证全部完成时返回 no_more_steps
func TestWorkflowHandlerNextStepDone(t *testing.T) {
	var got workflow.StepRequest
	router := newWorkflowRouter(&mockWorkflowService{
		NextStepFunc: func(ctx context.Context, req workflow.StepRequest) (*workflow.NextStep, error) {
			got = req
			return &workflow.NextStep{Done: true}, nil
		},
	})

	w := doJSON(router, http.MethodGet, "/api/workflow/next-step?template_id=7", "tok", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal response error: %v", err)
	}
	if payload["no_more_steps"] != true {
		t.Fatalf("expected no_more_steps, got %v", payload)
	}
	if got.TemplateID != 7 || got.Credential != "tok" {
		t.Fatalf("unexpected request: %+v", got)
	}
}

// TestWorkflowHandlerNextStepPrompt 验证返回步骤字段，order 为 0 也会输出
func TestWorkflowHandlerNextStepPrompt(t *testing.T) {
	router := newWorkflowRouter(&mockWorkflowService{
		NextStepFunc: func(ctx context.Context, req workflow.StepRequest) (*workflow.NextStep, error) {
			return &workflow.NextStep{Prompt: &model.Prompt{ID: 3, Order: 0, Content: "q"}, Remaining: 2}, nil
		},
	})

	w := doJSON(router, http.MethodGet, "/api/workflow/next-step?template_id=1", "tok", nil)
	var payload map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal response error: %v", err)
	}
	if payload["prompt_id"] != float64(3) || payload["order"] != float64(0) || payload["content"] != "q" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

// TestWorkflowHandlerErrorMapping 验证错误类型到状态码的映射
func TestWorkflowHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{workflow.ErrMissingParameter, http.StatusBadRequest},
		{workflow.ErrInvalidCaller, http.StatusUnauthorized},
		{workflow.ErrAccessDenied, http.StatusForbidden},
		{workflow.ErrNotFound, http.StatusNotFound},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, c := range cases {
		router := newWorkflowRouter(&mockWorkflowService{
			SubmitFunc: func(ctx context.Context, req workflow.SubmitRequest) (*workflow.SubmitResult, error) {
				return nil, c.err
			},
		})
		w := doJSON(router, http.MethodPost, "/api/workflow/submit", "tok", map[string]any{"placeholder_id": 1, "content": "x"})
		if w.Code != c.code {
			t.Fatalf("error %v: expected status %d, got %d", c.err, c.code, w.Code)
		}
	}
}

// TestWorkflowHandlerIncompleteSteps 验证未完成时返回剩余数量
func TestWorkflowHandlerIncompleteSteps(t *testing.T) {
	router := newWorkflowRouter(&mockWorkflowService{
		GenerateFunc: func(ctx context.Context, req workflow.StepRequest) (*workflow.GenerateResult, error) {
			return nil, &workflow.IncompleteStepsError{Remaining: 3}
		},
	})

	w := doJSON(router, http.MethodPost, "/api/workflow/generate", "tok", map[string]any{"template_id": 1})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal response error: %v", err)
	}
	if payload["remaining_count"] != float64(3) {
		t.Fatalf("unexpected remaining_count: %v", payload["remaining_count"])
	}
}

// TestWorkflowHandlerSubmitMissingContent 验证 content 缺失与空字符串的区分
func TestWorkflowHandlerSubmitMissingContent(t *testing.T) {
	var got workflow.SubmitRequest
	router := newWorkflowRouter(&mockWorkflowService{
		SubmitFunc: func(ctx context.Context, req workflow.SubmitRequest) (*workflow.SubmitResult, error) {
			got = req
			return &workflow.SubmitResult{Status: "success"}, nil
		},
	})

	doJSON(router, http.MethodPost, "/api/workflow/submit", "tok", map[string]any{"placeholder_id": 1})
	if got.Content != nil {
		t.Fatalf("expected nil content when field is absent")
	}
	doJSON(router, http.MethodPost, "/api/workflow/submit", "tok", map[string]any{"placeholder_id": 1, "content": ""})
	if got.Content == nil || *got.Content != "" {
		t.Fatalf("expected empty content to be passed through")
	}
}
