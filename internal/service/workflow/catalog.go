package workflow

import (
	"context"

	"github.com/designmaster/backend/internal/model"
	"github.com/designmaster/backend/internal/repository"
)

// PlaceholderCatalog 模板的占位符集合及其当前内容
type PlaceholderCatalog interface {
	// Get 返回模板的全部占位符，Content 为当前范围内提交的值
	Get(ctx context.Context, templateID uint) ([]model.Placeholder, error)
	// SubmitContent 覆盖写入，重复提交只保留最后一次
	SubmitContent(ctx context.Context, placeholderID uint, content string) error
}

// Values 将占位符转换为 name -> content，供渲染使用
func Values(placeholders []model.Placeholder) map[string]string {
	values := make(map[string]string, len(placeholders))
	for _, p := range placeholders {
		values[p.Name] = p.Content
	}
	return values
}

type templateCatalog struct {
	placeholders repository.PlaceholderRepository
}

func NewTemplateCatalog(placeholders repository.PlaceholderRepository) PlaceholderCatalog {
	return &templateCatalog{placeholders: placeholders}
}

func (c *templateCatalog) Get(ctx context.Context, templateID uint) ([]model.Placeholder, error) {
	return c.placeholders.ListByTemplate(ctx, templateID)
}

func (c *templateCatalog) SubmitContent(ctx context.Context, placeholderID uint, content string) error {
	if _, err := c.placeholders.Get(ctx, placeholderID); err != nil {
		return err
	}
	return c.placeholders.UpdateContent(ctx, placeholderID, content)
}

// sessionCatalog 模板定义来自共享记录，内容只来自会话
type sessionCatalog struct {
	sessionID    string
	placeholders repository.PlaceholderRepository
	sessions     repository.SessionRepository
}

func NewSessionCatalog(sessionID string, placeholders repository.PlaceholderRepository, sessions repository.SessionRepository) PlaceholderCatalog {
	return &sessionCatalog{sessionID: sessionID, placeholders: placeholders, sessions: sessions}
}

func (c *sessionCatalog) Get(ctx context.Context, templateID uint) ([]model.Placeholder, error) {
	list, err := c.placeholders.ListByTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	values, err := c.sessions.Values(ctx, c.sessionID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Content = values[list[i].ID]
	}
	return list, nil
}

func (c *sessionCatalog) SubmitContent(ctx context.Context, placeholderID uint, content string) error {
	if _, err := c.placeholders.Get(ctx, placeholderID); err != nil {
		return err
	}
	return c.sessions.UpsertValue(ctx, c.sessionID, placeholderID, content)
}
