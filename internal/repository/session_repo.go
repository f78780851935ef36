package repository

import (
	"context"
	"errors"
	"time"

	"github.com/designmaster/backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sessionStepPending 会话内未完成步骤的过滤条件
const sessionStepPending = "NOT EXISTS (SELECT 1 FROM session_steps s WHERE s.session_id = ? AND s.prompt_id = prompts.id)"

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository 创建会话仓储
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *model.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepository) Get(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) ListByOwner(ctx context.Context, ownerID uint) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepository) UpdateState(ctx context.Context, id string, state string, generatedAt *time.Time) error {
	updates := map[string]interface{}{"state": state}
	if generatedAt != nil {
		updates["generated_at"] = *generatedAt
	}
	return r.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *sessionRepository) NextIncomplete(ctx context.Context, sessionID string, templateID uint) (*model.Prompt, error) {
	var prompts []model.Prompt
	err := r.db.WithContext(ctx).
		Where("template_id = ?", templateID).
		Where(sessionStepPending, sessionID).
		Order("sort_order ASC, id ASC").
		Limit(1).
		Find(&prompts).Error
	if err != nil {
		return nil, err
	}
	if len(prompts) == 0 {
		return nil, nil
	}
	return &prompts[0], nil
}

func (r *sessionRepository) CountIncomplete(ctx context.Context, sessionID string, templateID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Prompt{}).
		Where("template_id = ?", templateID).
		Where(sessionStepPending, sessionID).
		Count(&count).Error
	return count, err
}

// MarkStepComplete 幂等，重复标记不会产生新记录
func (r *sessionRepository) MarkStepComplete(ctx context.Context, sessionID string, promptID uint) error {
	step := &model.SessionStep{
		SessionID:   sessionID,
		PromptID:    promptID,
		CompletedAt: time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "prompt_id"}},
		DoNothing: true,
	}).Create(step).Error
}

// UpsertValue 每个会话每个占位符只保留一条当前值
func (r *sessionRepository) UpsertValue(ctx context.Context, sessionID string, placeholderID uint, content string) error {
	value := &model.SessionValue{
		SessionID:     sessionID,
		PlaceholderID: placeholderID,
		Content:       content,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "placeholder_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
	}).Create(value).Error
}

// Values 返回 placeholderID -> content
func (r *sessionRepository) Values(ctx context.Context, sessionID string) (map[uint]string, error) {
	var values []model.SessionValue
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Find(&values).Error; err != nil {
		return nil, err
	}
	result := make(map[uint]string, len(values))
	for _, v := range values {
		result[v.PlaceholderID] = v.Content
	}
	return result, nil
}
