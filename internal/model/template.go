package model

import "time"

// Template 文档模板，Content 中以 {{name}} 标记占位符
type Template struct {
	ID           uint          `json:"id" gorm:"primaryKey"`
	Name         string        `json:"name" gorm:"size:100;not null"`
	Content      string        `json:"content" gorm:"type:text;not null"`
	Description  string        `json:"description" gorm:"type:text"`
	IsPublic     bool          `json:"is_public" gorm:"default:false;index"`
	OwnerID      uint          `json:"owner_id" gorm:"index;not null"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	Placeholders []Placeholder `json:"placeholders,omitempty" gorm:"foreignKey:TemplateID;constraint:OnDelete:CASCADE;"`
	Prompts      []Prompt      `json:"prompts,omitempty" gorm:"foreignKey:TemplateID;constraint:OnDelete:CASCADE;"`
}

// TableName 指定表名
func (Template) TableName() string {
	return "templates"
}

// Placeholder 模板占位符，名称在模板内唯一
type Placeholder struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	TemplateID  uint      `json:"template_id" gorm:"not null;uniqueIndex:idx_placeholder_template_name"`
	Name        string    `json:"name" gorm:"size:100;not null;uniqueIndex:idx_placeholder_template_name"`
	Description string    `json:"description" gorm:"type:text"`
	Example     string    `json:"example" gorm:"type:text"`
	Content     string    `json:"content" gorm:"type:text"` // 用户提交的内容，空表示未提交
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Placeholder) TableName() string {
	return "placeholders"
}

// Prompt 引导用户填写的步骤，按 Order 升序出现
type Prompt struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	TemplateID uint      `json:"template_id" gorm:"index;not null"`
	Order      int       `json:"order" gorm:"column:sort_order;not null;default:0"`
	Content    string    `json:"content" gorm:"type:text;not null"`
	Completed  bool      `json:"completed" gorm:"default:false"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Prompt) TableName() string {
	return "prompts"
}
