package repository

import (
	"context"
	"errors"

	"github.com/designmaster/backend/internal/model"
	"gorm.io/gorm"
)

type generatedDocumentRepository struct {
	db *gorm.DB
}

// NewGeneratedDocumentRepository 创建生成历史仓储
func NewGeneratedDocumentRepository(db *gorm.DB) GeneratedDocumentRepository {
	return &generatedDocumentRepository{db: db}
}

func (r *generatedDocumentRepository) Create(ctx context.Context, doc *model.GeneratedDocument) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *generatedDocumentRepository) Get(ctx context.Context, id uint) (*model.GeneratedDocument, error) {
	var doc model.GeneratedDocument
	if err := r.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *generatedDocumentRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]model.GeneratedDocument, error) {
	var docs []model.GeneratedDocument
	query := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&docs).Error
	return docs, err
}
