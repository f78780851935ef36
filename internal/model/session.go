package model

import "time"

// Session 一次文档生成过程，进度与模板上的全局进度相互隔离
type Session struct {
	ID              string     `json:"id" gorm:"primaryKey;size:36"`
	TemplateID      uint       `json:"template_id" gorm:"index;not null"`
	OwnerID         uint       `json:"owner_id" gorm:"index;not null"`
	State           string     `json:"state" gorm:"size:20;not null;default:'not_started'"`
	ProjectRootPath string     `json:"project_root_path" gorm:"size:500"`
	GeneratedAt     *time.Time `json:"generated_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (Session) TableName() string {
	return "sessions"
}

// SessionStep 会话内已完成的步骤
type SessionStep struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	SessionID   string    `json:"session_id" gorm:"size:36;not null;uniqueIndex:idx_session_step"`
	PromptID    uint      `json:"prompt_id" gorm:"not null;uniqueIndex:idx_session_step"`
	CompletedAt time.Time `json:"completed_at"`
}

// TableName 指定表名
func (SessionStep) TableName() string {
	return "session_steps"
}

// SessionValue 会话内提交的占位符内容
type SessionValue struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	SessionID     string    `json:"session_id" gorm:"size:36;not null;uniqueIndex:idx_session_value"`
	PlaceholderID uint      `json:"placeholder_id" gorm:"not null;uniqueIndex:idx_session_value"`
	Content       string    `json:"content" gorm:"type:text"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName 指定表名
func (SessionValue) TableName() string {
	return "session_values"
}
