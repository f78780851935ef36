package workflow

import "github.com/designmaster/backend/internal/model"

// CanRead 所有者或公开模板可读取步骤并生成文档
func CanRead(template *model.Template, userID uint) bool {
	if template == nil {
		return false
	}
	return template.OwnerID == userID || template.IsPublic
}

// CanWrite 只有所有者可修改模板级进度，公开不授予写权限
func CanWrite(template *model.Template, userID uint) bool {
	if template == nil {
		return false
	}
	return template.OwnerID == userID
}
