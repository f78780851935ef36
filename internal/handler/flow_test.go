package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/designmaster/backend/internal/eventbus"
	"github.com/designmaster/backend/internal/pkg/database"
	"github.com/designmaster/backend/internal/repository"
	"github.com/designmaster/backend/internal/service"
	"github.com/designmaster/backend/internal/service/workflow"
	"github.com/gin-gonic/gin"
)

func newFlowRouter(t *testing.T) *gin.Engine {
	t.Helper()
	db, err := database.NewMemoryDB()
	if err != nil {
		t.Fatalf("open db error: %v", err)
	}
	users := service.NewUserService(repository.NewUserRepository(db), "secret", time.Hour)
	templateRepo := repository.NewTemplateRepository(db)
	engine := workflow.NewEngine(users, workflow.Repositories{
		Templates:    templateRepo,
		Placeholders: repository.NewPlaceholderRepository(db),
		Prompts:      repository.NewPromptRepository(db),
		Sessions:     repository.NewSessionRepository(db),
		Documents:    repository.NewGeneratedDocumentRepository(db),
	}, eventbus.NewWorkflowEventBus())

	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api")
	NewAuthHandler(users).RegisterRoutes(api)
	NewTemplateHandler(service.NewTemplateService(users, templateRepo)).RegisterRoutes(api)
	NewWorkflowHandler(engine).RegisterRoutes(api)
	return router
}

func decode(t *testing.T, body []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("unmarshal response error: %v, body=%s", err, body)
	}
}

// TestHTTPRoundTrip 注册、建模板、逐步填写并生成文档
func TestHTTPRoundTrip(t *testing.T) {
	router := newFlowRouter(t)

	w := doJSON(router, http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": "alice", "email": "alice@example.com", "password": "pw",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(router, http.MethodPost, "/api/auth/login", "", map[string]any{"username": "alice", "password": "pw"})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", w.Code)
	}
	var login struct {
		Token string `json:"token"`
	}
	decode(t, w.Body.Bytes(), &login)
	token := login.Token

	w = doJSON(router, http.MethodPost, "/api/templates", token, map[string]any{
		"name":         "demo",
		"content":      "A={{a}} B={{b}}",
		"placeholders": []map[string]any{{"name": "a"}, {"name": "b"}},
		"prompts":      []string{"first", "second"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create template: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var tpl struct {
		ID           uint `json:"id"`
		Placeholders []struct {
			ID   uint   `json:"id"`
			Name string `json:"name"`
		} `json:"placeholders"`
	}
	decode(t, w.Body.Bytes(), &tpl)

	w = doJSON(router, http.MethodPost, "/api/workflow/generate", token, map[string]any{"template_id": tpl.ID})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("generate early: expected 400, got %d", w.Code)
	}

	values := map[string]string{"a": "1", "b": "2"}
	for _, p := range tpl.Placeholders {
		w = doJSON(router, http.MethodGet, fmt.Sprintf("/api/workflow/next-step?template_id=%d", tpl.ID), token, nil)
		var step struct {
			PromptID uint `json:"prompt_id"`
		}
		decode(t, w.Body.Bytes(), &step)

		w = doJSON(router, http.MethodPost, "/api/workflow/submit", token, map[string]any{"placeholder_id": p.ID, "content": values[p.Name]})
		if w.Code != http.StatusOK {
			t.Fatalf("submit: expected 200, got %d", w.Code)
		}
		w = doJSON(router, http.MethodPost, "/api/workflow/complete", token, map[string]any{"prompt_id": step.PromptID})
		if w.Code != http.StatusOK {
			t.Fatalf("complete: expected 200, got %d: %s", w.Code, w.Body.String())
		}
	}

	w = doJSON(router, http.MethodGet, fmt.Sprintf("/api/workflow/next-step?template_id=%d", tpl.ID), token, nil)
	var done map[string]any
	decode(t, w.Body.Bytes(), &done)
	if done["no_more_steps"] != true {
		t.Fatalf("expected no_more_steps, got %v", done)
	}

	w = doJSON(router, http.MethodPost, "/api/workflow/generate", token, map[string]any{"template_id": tpl.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("generate: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var result struct {
		Document string `json:"document"`
	}
	decode(t, w.Body.Bytes(), &result)
	if result.Document != "A=1 B=2" {
		t.Fatalf("unexpected document: %q", result.Document)
	}
}

// TestHTTPUnauthenticated 验证缺少凭证时返回 401
func TestHTTPUnauthenticated(t *testing.T) {
	router := newFlowRouter(t)

	w := doJSON(router, http.MethodGet, "/api/workflow/next-step?template_id=1", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	w = doJSON(router, http.MethodGet, "/api/templates", "bogus", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
