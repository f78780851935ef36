package service

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"path"

	"github.com/designmaster/backend/internal/model"
	"github.com/designmaster/backend/internal/repository"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

//go:embed samples/*.yaml
var sampleFS embed.FS

// SampleUser 示例数据所属用户
type SampleUser struct {
	Username string
	Email    string
	Password string
}

// DefaultSampleUser 示例用户
var DefaultSampleUser = SampleUser{
	Username: "testuser",
	Email:    "test@example.com",
	Password: "password123",
}

// SeedResult 初始化结果
type SeedResult struct {
	User             *model.User `json:"user"`
	CreatedTemplates []string    `json:"created_templates"`
}

// SeedService 示例数据初始化
type SeedService struct {
	users     repository.UserRepository
	userSvc   UserService
	templates repository.TemplateRepository
}

func NewSeedService(users repository.UserRepository, userSvc UserService, templates repository.TemplateRepository) *SeedService {
	return &SeedService{users: users, userSvc: userSvc, templates: templates}
}

// Seed 创建示例用户和公开模板，重复执行不会产生重复数据
func (s *SeedService) Seed(ctx context.Context, sample SampleUser) (*SeedResult, error) {
	user, err := s.users.GetByUsername(ctx, sample.Username)
	if errors.Is(err, repository.ErrNotFound) {
		user, err = s.userSvc.Register(ctx, &RegisterRequest{
			Username: sample.Username,
			Email:    sample.Email,
			Password: sample.Password,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("seed user: %w", err)
	}

	samples, err := LoadSampleTemplates()
	if err != nil {
		return nil, err
	}

	result := &SeedResult{User: user, CreatedTemplates: []string{}}
	for _, req := range samples {
		if _, err := s.templates.GetByName(ctx, req.Name); err == nil {
			klog.V(6).Infof("Seed: template %s already exists, skip", req.Name)
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}

		template, err := buildTemplate(user.ID, req)
		if err != nil {
			return nil, fmt.Errorf("sample %s: %w", req.Name, err)
		}
		if err := s.templates.Create(ctx, template); err != nil {
			return nil, fmt.Errorf("seed template %s: %w", req.Name, err)
		}
		result.CreatedTemplates = append(result.CreatedTemplates, template.Name)
	}

	klog.Infof("Seed: userID=%d, created %d templates", user.ID, len(result.CreatedTemplates))
	return result, nil
}

// LoadSampleTemplates 读取内置的示例模板
func LoadSampleTemplates() ([]*CreateTemplateRequest, error) {
	entries, err := sampleFS.ReadDir("samples")
	if err != nil {
		return nil, err
	}

	var result []*CreateTemplateRequest
	for _, entry := range entries {
		data, err := sampleFS.ReadFile(path.Join("samples", entry.Name()))
		if err != nil {
			return nil, err
		}
		var req CreateTemplateRequest
		if err := yaml.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("parse sample %s: %w", entry.Name(), err)
		}
		result = append(result, &req)
	}
	return result, nil
}
