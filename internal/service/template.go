package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/designmaster/backend/internal/model"
	"github.com/designmaster/backend/internal/repository"
	"github.com/designmaster/backend/internal/service/workflow"
	"k8s.io/klog/v2"
)

var ErrInvalidTemplateData = errors.New("invalid template data")

// markerPattern 匹配正文中的 {{name}} 标记
var markerPattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// TemplateService 模板目录服务接口
type TemplateService interface {
	// Create 创建模板及其占位符和步骤
	Create(ctx context.Context, credential string, req *CreateTemplateRequest) (*TemplateDetail, error)

	// Market 返回公开模板和调用方自己的模板
	Market(ctx context.Context, credential string) (*MarketResult, error)

	// Detail 返回模板详情及标记诊断
	Detail(ctx context.Context, credential string, id uint) (*TemplateDetail, error)

	// Delete 删除模板及其全部进度
	Delete(ctx context.Context, credential string, id uint) error

	// ResetProgress 清空模板级进度
	ResetProgress(ctx context.Context, credential string, id uint) error
}

// PlaceholderInput 创建模板时的占位符定义
type PlaceholderInput struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Example     string `json:"example" yaml:"example"`
}

// CreateTemplateRequest 创建模板请求，Prompts 的下标即 order
type CreateTemplateRequest struct {
	Name         string             `json:"name" yaml:"name" binding:"required"`
	Content      string             `json:"content" yaml:"content" binding:"required"`
	Description  string             `json:"description" yaml:"description"`
	IsPublic     bool               `json:"is_public" yaml:"is_public"`
	Placeholders []PlaceholderInput `json:"placeholders" yaml:"placeholders"`
	Prompts      []string           `json:"prompts" yaml:"prompts"`
}

// TemplateDetail 模板详情
type TemplateDetail struct {
	*model.Template
	UnknownMarkers     []string `json:"unknown_markers"`
	UnusedPlaceholders []string `json:"unused_placeholders"`
}

// MarketResult 模板市场
type MarketResult struct {
	PublicTemplates []model.Template `json:"public_templates"`
	UserTemplates   []model.Template `json:"user_templates"`
}

type templateService struct {
	identity workflow.IdentityResolver
	repo     repository.TemplateRepository
}

// NewTemplateService 创建模板服务
func NewTemplateService(identity workflow.IdentityResolver, repo repository.TemplateRepository) TemplateService {
	return &templateService{identity: identity, repo: repo}
}

func (s *templateService) Create(ctx context.Context, credential string, req *CreateTemplateRequest) (*TemplateDetail, error) {
	caller, err := s.caller(ctx, credential)
	if err != nil {
		return nil, err
	}
	template, err := buildTemplate(caller.ID, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, template); err != nil {
		klog.Errorf("CreateTemplate: save failed, name=%s, error=%v", template.Name, err)
		return nil, err
	}
	klog.V(6).Infof("CreateTemplate: templateID=%d, placeholders=%d, prompts=%d", template.ID, len(template.Placeholders), len(template.Prompts))
	return newTemplateDetail(template), nil
}

func (s *templateService) Market(ctx context.Context, credential string) (*MarketResult, error) {
	caller, err := s.caller(ctx, credential)
	if err != nil {
		return nil, err
	}
	public, err := s.repo.ListPublic(ctx)
	if err != nil {
		return nil, err
	}
	owned, err := s.repo.ListByOwner(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	return &MarketResult{PublicTemplates: public, UserTemplates: owned}, nil
}

func (s *templateService) Detail(ctx context.Context, credential string, id uint) (*TemplateDetail, error) {
	caller, err := s.caller(ctx, credential)
	if err != nil {
		return nil, err
	}
	template, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		return nil, templateNotFound(err, id)
	}
	if !workflow.CanRead(template, caller.ID) {
		klog.Warningf("TemplateDetail: access denied, templateID=%d, userID=%d", id, caller.ID)
		return nil, workflow.ErrAccessDenied
	}
	return newTemplateDetail(template), nil
}

func (s *templateService) Delete(ctx context.Context, credential string, id uint) error {
	if _, err := s.owned(ctx, credential, id, "DeleteTemplate"); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return templateNotFound(err, id)
	}
	klog.V(6).Infof("DeleteTemplate: templateID=%d", id)
	return nil
}

func (s *templateService) ResetProgress(ctx context.Context, credential string, id uint) error {
	if _, err := s.owned(ctx, credential, id, "ResetProgress"); err != nil {
		return err
	}
	if err := s.repo.ResetProgress(ctx, id); err != nil {
		return err
	}
	klog.V(6).Infof("ResetProgress: templateID=%d", id)
	return nil
}

func (s *templateService) owned(ctx context.Context, credential string, id uint, op string) (*model.Template, error) {
	caller, err := s.caller(ctx, credential)
	if err != nil {
		return nil, err
	}
	template, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, templateNotFound(err, id)
	}
	if !workflow.CanWrite(template, caller.ID) {
		klog.Warningf("%s: access denied, templateID=%d, userID=%d", op, id, caller.ID)
		return nil, workflow.ErrAccessDenied
	}
	return template, nil
}

func (s *templateService) caller(ctx context.Context, credential string) (*model.User, error) {
	user, err := s.identity.Resolve(ctx, credential)
	if err != nil {
		return nil, workflow.IdentityError(err)
	}
	return user, nil
}

func templateNotFound(err error, id uint) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: template %d", workflow.ErrNotFound, id)
	}
	return err
}

// buildTemplate 校验请求并组装模型，占位符名称在模板内必须唯一
func buildTemplate(ownerID uint, req *CreateTemplateRequest) (*model.Template, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: name and content are required", ErrInvalidTemplateData)
	}

	template := &model.Template{
		Name:        name,
		Content:     req.Content,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		OwnerID:     ownerID,
	}

	seen := make(map[string]bool, len(req.Placeholders))
	for _, p := range req.Placeholders {
		pname := strings.TrimSpace(p.Name)
		if pname == "" {
			return nil, fmt.Errorf("%w: placeholder name is required", ErrInvalidTemplateData)
		}
		if seen[pname] {
			return nil, fmt.Errorf("%w: duplicate placeholder %s", ErrInvalidTemplateData, pname)
		}
		seen[pname] = true
		template.Placeholders = append(template.Placeholders, model.Placeholder{
			Name:        pname,
			Description: p.Description,
			Example:     p.Example,
		})
	}

	for i, content := range req.Prompts {
		if strings.TrimSpace(content) == "" {
			return nil, fmt.Errorf("%w: prompt %d is empty", ErrInvalidTemplateData, i)
		}
		template.Prompts = append(template.Prompts, model.Prompt{Order: i, Content: content})
	}
	return template, nil
}

func newTemplateDetail(template *model.Template) *TemplateDetail {
	unknown, unused := markerDiagnostics(template.Content, template.Placeholders)
	return &TemplateDetail{
		Template:           template,
		UnknownMarkers:     unknown,
		UnusedPlaceholders: unused,
	}
}

// markerDiagnostics 返回正文中没有对应占位符的标记，以及正文中未引用的占位符
func markerDiagnostics(content string, placeholders []model.Placeholder) (unknown []string, unused []string) {
	markers := make(map[string]bool)
	for _, m := range markerPattern.FindAllStringSubmatch(content, -1) {
		markers[m[1]] = true
	}

	defined := make(map[string]bool, len(placeholders))
	for _, p := range placeholders {
		defined[p.Name] = true
		if !markers[p.Name] {
			unused = append(unused, p.Name)
		}
	}
	for name := range markers {
		if !defined[name] {
			unknown = append(unknown, name)
		}
	}

	sort.Strings(unknown)
	sort.Strings(unused)
	if unknown == nil {
		unknown = []string{}
	}
	if unused == nil {
		unused = []string{}
	}
	return unknown, unused
}
