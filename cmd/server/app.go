package main

import (
	"fmt"
	"os"

	"github.com/designmaster/backend/config"
	"github.com/designmaster/backend/internal/eventbus"
	"github.com/designmaster/backend/internal/pkg/database"
	"github.com/designmaster/backend/internal/repository"
	"github.com/designmaster/backend/internal/service"
	"github.com/designmaster/backend/internal/service/workflow"
	"github.com/designmaster/backend/internal/subscriber"
	"gorm.io/gorm"
	"k8s.io/klog/v2"
)

// app 进程内共享的依赖
type app struct {
	cfg       *config.Config
	db        *gorm.DB
	userRepo  repository.UserRepository
	tplRepo   repository.TemplateRepository
	users     service.UserService
	templates service.TemplateService
	engine    *workflow.Engine
}

func newApp() (*app, error) {
	cfg := config.GetConfig()

	if err := os.MkdirAll(cfg.Data.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	// 初始化数据库
	db, err := database.InitDB(cfg.Database.Type, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	tplRepo := repository.NewTemplateRepository(db)
	repos := workflow.Repositories{
		Templates:    tplRepo,
		Placeholders: repository.NewPlaceholderRepository(db),
		Prompts:      repository.NewPromptRepository(db),
		Sessions:     repository.NewSessionRepository(db),
		Documents:    repository.NewGeneratedDocumentRepository(db),
	}

	// 初始化事件总线
	bus := eventbus.NewWorkflowEventBus()
	subscriber.NewWorkflowEventSubscriber().Register(bus)

	// 初始化 Service
	users := service.NewUserService(userRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	engine := workflow.NewEngine(users, repos, bus)
	engine.SetHistoryLimit(cfg.Workflow.HistoryLimit)

	klog.V(6).Infof("数据库已就绪: type=%s", cfg.Database.Type)
	return &app{
		cfg:       cfg,
		db:        db,
		userRepo:  userRepo,
		tplRepo:   tplRepo,
		users:     users,
		templates: service.NewTemplateService(users, tplRepo),
		engine:    engine,
	}, nil
}
