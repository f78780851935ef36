package model

import "time"

// GeneratedDocument 生成历史，SessionID 为空表示基于模板全局进度生成
type GeneratedDocument struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	TemplateID uint      `json:"template_id" gorm:"index;not null"`
	SessionID  string    `json:"session_id,omitempty" gorm:"size:36;index"`
	UserID     uint      `json:"user_id" gorm:"index;not null"`
	Content    string    `json:"content" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName 指定表名
func (GeneratedDocument) TableName() string {
	return "generated_documents"
}
