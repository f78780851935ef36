package mcpserver

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/designmaster/backend/internal/eventbus"
	"github.com/designmaster/backend/internal/model"
	"github.com/designmaster/backend/internal/pkg/database"
	"github.com/designmaster/backend/internal/repository"
	"github.com/designmaster/backend/internal/service"
	"github.com/designmaster/backend/internal/service/workflow"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	server   *Server
	token    string
	template *model.Template
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.NewMemoryDB()
	require.NoError(t, err)
	ctx := context.Background()

	users := service.NewUserService(repository.NewUserRepository(db), "secret", time.Hour)
	user, err := users.Register(ctx, &service.RegisterRequest{Username: "alice", Email: "a@example.com", Password: "pw"})
	require.NoError(t, err)

	templates := repository.NewTemplateRepository(db)
	tpl := &model.Template{
		Name:         "demo",
		Content:      "Hello {{x}}",
		OwnerID:      user.ID,
		Placeholders: []model.Placeholder{{Name: "x"}},
		Prompts:      []model.Prompt{{Order: 0, Content: "who?"}},
	}
	require.NoError(t, templates.Create(ctx, tpl))

	engine := workflow.NewEngine(users, workflow.Repositories{
		Templates:    templates,
		Placeholders: repository.NewPlaceholderRepository(db),
		Prompts:      repository.NewPromptRepository(db),
		Sessions:     repository.NewSessionRepository(db),
		Documents:    repository.NewGeneratedDocumentRepository(db),
	}, eventbus.NewWorkflowEventBus())

	return &testEnv{server: New(engine), token: user.AuthToken, template: tpl}
}

func callTool(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestToolsRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.server

	result, err := s.handleStart(ctx, callTool("start_document_generation", map[string]any{
		"project_root_path": "/srv/app",
		"api_key":           env.token,
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError, resultText(t, result))

	result, err = s.handleGenerate(ctx, callTool("generate_complete_document", map[string]any{
		"template_id": float64(env.template.ID),
		"api_key":     env.token,
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	var incomplete map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &incomplete))
	assert.Equal(t, float64(1), incomplete["remaining_count"])

	result, err = s.handleNextStep(ctx, callTool("get_next_step", map[string]any{
		"template_id": float64(env.template.ID),
		"api_key":     env.token,
	}))
	require.NoError(t, err)
	var step map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &step))
	assert.Equal(t, float64(env.template.Prompts[0].ID), step["prompt_id"])

	result, err = s.handleSubmit(ctx, callTool("submit_placeholder_content", map[string]any{
		"placeholder_id": float64(env.template.Placeholders[0].ID),
		"content":        "World",
		"api_key":        env.token,
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError, resultText(t, result))

	result, err = s.handleComplete(ctx, callTool("complete_step", map[string]any{
		"prompt_id": step["prompt_id"],
		"api_key":   env.token,
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError, resultText(t, result))

	result, err = s.handleGenerate(ctx, callTool("generate_complete_document", map[string]any{
		"template_id": float64(env.template.ID),
		"api_key":     env.token,
	}))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &doc))
	assert.Equal(t, "Hello World", doc["document_content"])
}

func TestToolCredentialFromConnectionHeader(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.WithValue(context.Background(), authHeaderKey{}, "Bearer "+env.token)

	result, err := env.server.handleListPlaceholders(ctx, callTool("list_placeholders", map[string]any{
		"template_id": float64(env.template.ID),
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError, resultText(t, result))
}

func TestToolErrorsAreResults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.server.handleNextStep(ctx, callTool("get_next_step", map[string]any{
		"template_id": float64(env.template.ID),
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = env.server.handleSubmit(ctx, callTool("submit_placeholder_content", map[string]any{
		"placeholder_id": float64(env.template.Placeholders[0].ID),
		"api_key":        env.token,
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "content")

	result, err = env.server.handleComplete(ctx, callTool("complete_step", map[string]any{
		"prompt_id": "abc",
		"api_key":   env.token,
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestUintArg(t *testing.T) {
	cases := []struct {
		raw     any
		want    uint
		wantErr bool
	}{
		{nil, 0, false},
		{float64(12), 12, false},
		{"7", 7, false},
		{"", 0, false},
		{float64(1.5), 0, true},
		{float64(-1), 0, true},
		{true, 0, true},
	}
	for _, c := range cases {
		got, err := uintArg(callTool("x", map[string]any{"id": c.raw}), "id")
		if c.wantErr {
			assert.Error(t, err, "%v", c.raw)
			continue
		}
		assert.NoError(t, err, "%v", c.raw)
		assert.Equal(t, c.want, got)
	}
}
