package repository

import (
	"context"
	"errors"

	"github.com/designmaster/backend/internal/model"
	"gorm.io/gorm"
)

type placeholderRepository struct {
	db *gorm.DB
}

// NewPlaceholderRepository 创建占位符仓储
func NewPlaceholderRepository(db *gorm.DB) PlaceholderRepository {
	return &placeholderRepository{db: db}
}

func (r *placeholderRepository) Get(ctx context.Context, id uint) (*model.Placeholder, error) {
	var placeholder model.Placeholder
	if err := r.db.WithContext(ctx).First(&placeholder, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &placeholder, nil
}

func (r *placeholderRepository) ListByTemplate(ctx context.Context, templateID uint) ([]model.Placeholder, error) {
	var placeholders []model.Placeholder
	err := r.db.WithContext(ctx).
		Where("template_id = ?", templateID).
		Order("id ASC").
		Find(&placeholders).Error
	return placeholders, err
}

// UpdateContent 单字段更新，重复提交直接覆盖
func (r *placeholderRepository) UpdateContent(ctx context.Context, id uint, content string) error {
	return r.db.WithContext(ctx).
		Model(&model.Placeholder{}).
		Where("id = ?", id).
		Update("content", content).Error
}
