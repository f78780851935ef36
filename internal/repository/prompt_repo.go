package repository

import (
	"context"
	"errors"

	"github.com/designmaster/backend/internal/model"
	"gorm.io/gorm"
)

type promptRepository struct {
	db *gorm.DB
}

// NewPromptRepository 创建步骤仓储
func NewPromptRepository(db *gorm.DB) PromptRepository {
	return &promptRepository{db: db}
}

func (r *promptRepository) Get(ctx context.Context, id uint) (*model.Prompt, error) {
	var prompt model.Prompt
	if err := r.db.WithContext(ctx).First(&prompt, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &prompt, nil
}

func (r *promptRepository) ListByTemplate(ctx context.Context, templateID uint) ([]model.Prompt, error) {
	var prompts []model.Prompt
	err := r.db.WithContext(ctx).
		Where("template_id = ?", templateID).
		Order("sort_order ASC, id ASC").
		Find(&prompts).Error
	return prompts, err
}

func (r *promptRepository) NextIncomplete(ctx context.Context, templateID uint) (*model.Prompt, error) {
	var prompts []model.Prompt
	err := r.db.WithContext(ctx).
		Where("template_id = ? AND completed = ?", templateID, false).
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

func (r *promptRepository) MarkComplete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&model.Prompt{}).
		Where("id = ?", id).
		Update("completed", true).Error
}

func (r *promptRepository) CountIncomplete(ctx context.Context, templateID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Prompt{}).
		Where("template_id = ? AND completed = ?", templateID, false).
		Count(&count).Error
	return count, err
}

func (r *promptRepository) Count(ctx context.Context, templateID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Prompt{}).
		Where("template_id = ?", templateID).
		Count(&count).Error
	return count, err
}
