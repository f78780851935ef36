package repository

import (
	"context"
	"errors"
	"time"

	"github.com/designmaster/backend/internal/model"
)

// ErrNotFound 记录不存在错误
var ErrNotFound = errors.New("record not found")

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uint) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByAuthToken(ctx context.Context, token string) (*model.User, error)
	UpdateAuthToken(ctx context.Context, id uint, token string) error
}

type TemplateRepository interface {
	Create(ctx context.Context, template *model.Template) error
	Get(ctx context.Context, id uint) (*model.Template, error)
	GetDetail(ctx context.Context, id uint) (*model.Template, error)
	GetByName(ctx context.Context, name string) (*model.Template, error)
	ListPublic(ctx context.Context) ([]model.Template, error)
	ListByOwner(ctx context.Context, ownerID uint) ([]model.Template, error)
	Delete(ctx context.Context, id uint) error
	ResetProgress(ctx context.Context, id uint) error
}

type PlaceholderRepository interface {
	Get(ctx context.Context, id uint) (*model.Placeholder, error)
	ListByTemplate(ctx context.Context, templateID uint) ([]model.Placeholder, error)
	UpdateContent(ctx context.Context, id uint, content string) error
}

type PromptRepository interface {
	Get(ctx context.Context, id uint) (*model.Prompt, error)
	ListByTemplate(ctx context.Context, templateID uint) ([]model.Prompt, error)
	// NextIncomplete 返回 order 最小的未完成步骤，全部完成时返回 nil, nil
	NextIncomplete(ctx context.Context, templateID uint) (*model.Prompt, error)
	MarkComplete(ctx context.Context, id uint) error
	CountIncomplete(ctx context.Context, templateID uint) (int64, error)
	Count(ctx context.Context, templateID uint) (int64, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	Get(ctx context.Context, id string) (*model.Session, error)
	ListByOwner(ctx context.Context, ownerID uint) ([]model.Session, error)
	UpdateState(ctx context.Context, id string, state string, generatedAt *time.Time) error

	// NextIncomplete 返回会话内 order 最小的未完成步骤，全部完成时返回 nil, nil
	NextIncomplete(ctx context.Context, sessionID string, templateID uint) (*model.Prompt, error)
	CountIncomplete(ctx context.Context, sessionID string, templateID uint) (int64, error)
	MarkStepComplete(ctx context.Context, sessionID string, promptID uint) error

	UpsertValue(ctx context.Context, sessionID string, placeholderID uint, content string) error
	Values(ctx context.Context, sessionID string) (map[uint]string, error)
}

type GeneratedDocumentRepository interface {
	Create(ctx context.Context, doc *model.GeneratedDocument) error
	Get(ctx context.Context, id uint) (*model.GeneratedDocument, error)
	ListByUser(ctx context.Context, userID uint, limit int) ([]model.GeneratedDocument, error)
}
