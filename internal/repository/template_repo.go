package repository

import (
	"context"
	"errors"

	"github.com/designmaster/backend/internal/model"
	"gorm.io/gorm"
)

// templateRepository 实现
type templateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository 创建 Repository 实例
func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{db: db}
}

// Create 创建模板，同时写入其占位符和步骤
func (r *templateRepository) Create(ctx context.Context, template *model.Template) error {
	return r.db.WithContext(ctx).Create(template).Error
}

// Get 获取模板基本信息（不含占位符和步骤）
func (r *templateRepository) Get(ctx context.Context, id uint) (*model.Template, error) {
	var template model.Template
	if err := r.db.WithContext(ctx).First(&template, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &template, nil
}

// GetDetail 获取模板详情（含占位符和步骤）
func (r *templateRepository) GetDetail(ctx context.Context, id uint) (*model.Template, error) {
	var template model.Template
	result := r.db.WithContext(ctx).Preload("Placeholders", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).Preload("Prompts", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order ASC, id ASC")
	}).First(&template, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}
	return &template, nil
}

// GetByName 根据名称获取模板
func (r *templateRepository) GetByName(ctx context.Context, name string) (*model.Template, error) {
	var template model.Template
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&template).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &template, nil
}

// ListPublic 获取所有公开模板
func (r *templateRepository) ListPublic(ctx context.Context) ([]model.Template, error) {
	var templates []model.Template
	err := r.db.WithContext(ctx).Where("is_public = ?", true).Order("id ASC").Find(&templates).Error
	return templates, err
}

// ListByOwner 获取用户自己的模板
func (r *templateRepository) ListByOwner(ctx context.Context, ownerID uint) ([]model.Template, error) {
	var templates []model.Template
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id ASC").Find(&templates).Error
	return templates, err
}

// Delete 删除模板及其占位符、步骤、会话和生成历史
func (r *templateRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sessionIDs := tx.Model(&model.Session{}).Select("id").Where("template_id = ?", id)
		if err := tx.Where("session_id IN (?)", sessionIDs).Delete(&model.SessionStep{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id IN (?)", sessionIDs).Delete(&model.SessionValue{}).Error; err != nil {
			return err
		}
		if err := tx.Where("template_id = ?", id).Delete(&model.Session{}).Error; err != nil {
			return err
		}
		if err := tx.Where("template_id = ?", id).Delete(&model.GeneratedDocument{}).Error; err != nil {
			return err
		}
		if err := tx.Where("template_id = ?", id).Delete(&model.Placeholder{}).Error; err != nil {
			return err
		}
		if err := tx.Where("template_id = ?", id).Delete(&model.Prompt{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&model.Template{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ResetProgress 清空模板全局进度：步骤完成标记和占位符内容
func (r *templateRepository) ResetProgress(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Prompt{}).Where("template_id = ?", id).Update("completed", false).Error; err != nil {
			return err
		}
		return tx.Model(&model.Placeholder{}).Where("template_id = ?", id).Update("content", "").Error
	})
}
